package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var _ Store = (*MongoStore)(nil)

// MongoStore keeps each collection in a MongoDB collection of the same name.
type MongoStore struct {
	client  *mongo.Client
	users   *mongo.Collection
	history *mongo.Collection
	files   *mongo.Collection
}

// OpenMongo connects to uri and ensures the unique chat_id index on users.
func OpenMongo(ctx context.Context, uri, database string) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", redact(uri), err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping %s: %w", redact(uri), err)
	}

	db := client.Database(database)
	s := &MongoStore{
		client:  client,
		users:   db.Collection(usersCollection),
		history: db.Collection(historyCollection),
		files:   db.Collection(filesCollection),
	}

	_, err = s.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "chat_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("create users index: %w", err)
	}
	return s, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *MongoStore) FindUser(ctx context.Context, chatID int64) (*User, error) {
	var user User
	err := s.users.FindOne(ctx, bson.M{"chat_id": chatID}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoStore) InsertUser(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	_, err := s.users.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("user %d: %w", u.ChatID, ErrDuplicate)
	}
	return err
}

func (s *MongoStore) SetPhoneNumber(ctx context.Context, chatID int64, phone string) (bool, error) {
	res, err := s.users.UpdateOne(ctx,
		bson.M{"chat_id": chatID},
		bson.M{"$set": bson.M{"phone_number": phone}},
	)
	if err != nil {
		return false, err
	}
	return res.MatchedCount > 0, nil
}

func (s *MongoStore) CountUsers(ctx context.Context) (int, error) {
	n, err := s.users.CountDocuments(ctx, bson.M{})
	return int(n), err
}

func (s *MongoStore) InsertChatHistory(ctx context.Context, e *ChatHistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Timestamp = e.Timestamp.UTC()
	_, err := s.history.InsertOne(ctx, e)
	return err
}

func (s *MongoStore) ListChatHistory(ctx context.Context, chatID int64) ([]ChatHistoryEntry, error) {
	var entries []ChatHistoryEntry
	if err := s.findAll(ctx, s.history, chatID, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *MongoStore) InsertFile(ctx context.Context, f *FileRecord) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.Timestamp = f.Timestamp.UTC()
	_, err := s.files.InsertOne(ctx, f)
	return err
}

func (s *MongoStore) ListFiles(ctx context.Context, chatID int64) ([]FileRecord, error) {
	var files []FileRecord
	if err := s.findAll(ctx, s.files, chatID, &files); err != nil {
		return nil, err
	}
	return files, nil
}

func (s *MongoStore) findAll(ctx context.Context, coll *mongo.Collection, chatID int64, out any) error {
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})
	cur, err := coll.Find(ctx, bson.M{"chat_id": chatID}, opts)
	if err != nil {
		return err
	}
	return cur.All(ctx, out)
}
