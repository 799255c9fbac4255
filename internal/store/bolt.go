package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"
)

var _ Store = (*BoltStore)(nil)

// BoltStore persists the three collections to a single BoltDB file, one
// bucket per collection.
type BoltStore struct {
	db *bbolt.DB
	mu sync.Mutex
}

// OpenBolt initializes the store with the provided file path.
func OpenBolt(path string) (*BoltStore, error) {
	return openBolt(path, nil)
}

// OpenBoltReadOnly opens an existing store file without taking the write lock.
func OpenBoltReadOnly(path string) (*BoltStore, error) {
	return openBolt(path, &bbolt.Options{Timeout: time.Second, ReadOnly: true})
}

func openBolt(path string, opts *bbolt.Options) (*BoltStore, error) {
	if path == "" {
		return nil, fmt.Errorf("bolt store path is empty")
	}
	if opts == nil {
		opts = &bbolt.Options{Timeout: time.Second}
	}
	db, err := bbolt.Open(path, 0o600, opts)
	if err != nil {
		return nil, err
	}
	s := &BoltStore{db: db}
	if opts.ReadOnly {
		return s, nil
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{usersCollection, historyCollection, filesCollection} {
			if _, e := tx.CreateBucketIfNotExists([]byte(name)); e != nil {
				return e
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases database resources.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Ping checks the database file is still open.
func (s *BoltStore) Ping(ctx context.Context) error {
	return s.db.View(func(tx *bbolt.Tx) error {
		if tx.Bucket([]byte(usersCollection)) == nil {
			return fmt.Errorf("bucket %s missing", usersCollection)
		}
		return nil
	})
}

func (s *BoltStore) FindUser(ctx context.Context, chatID int64) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var user User
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(usersCollection)).Get(chatKey(chatID))
		if data == nil {
			return ErrNotFound
		}
		return json.Unmarshal(data, &user)
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *BoltStore) InsertUser(ctx context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(usersCollection))
		if bucket.Get(chatKey(u.ChatID)) != nil {
			return fmt.Errorf("user %d: %w", u.ChatID, ErrDuplicate)
		}
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		return putJSON(bucket, chatKey(u.ChatID), u)
	})
}

func (s *BoltStore) SetPhoneNumber(ctx context.Context, chatID int64, phone string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched bool
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(usersCollection))
		data := bucket.Get(chatKey(chatID))
		if data == nil {
			return nil
		}
		var user User
		if err := json.Unmarshal(data, &user); err != nil {
			return err
		}
		matched = true
		user.PhoneNumber = &phone
		return putJSON(bucket, chatKey(chatID), &user)
	})
	return matched, err
}

func (s *BoltStore) CountUsers(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = tx.Bucket([]byte(usersCollection)).Stats().KeyN
		return nil
	})
	return n, err
}

func (s *BoltStore) InsertChatHistory(ctx context.Context, e *ChatHistoryEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.Timestamp = e.Timestamp.UTC()
	return s.appendJSON(historyCollection, e)
}

func (s *BoltStore) ListChatHistory(ctx context.Context, chatID int64) ([]ChatHistoryEntry, error) {
	var entries []ChatHistoryEntry
	err := s.forEach(historyCollection, func(v []byte) error {
		var e ChatHistoryEntry
		if err := json.Unmarshal(v, &e); err != nil {
			return err
		}
		if e.ChatID == chatID {
			entries = append(entries, e)
		}
		return nil
	})
	return entries, err
}

func (s *BoltStore) InsertFile(ctx context.Context, f *FileRecord) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.Timestamp = f.Timestamp.UTC()
	return s.appendJSON(filesCollection, f)
}

func (s *BoltStore) ListFiles(ctx context.Context, chatID int64) ([]FileRecord, error) {
	var files []FileRecord
	err := s.forEach(filesCollection, func(v []byte) error {
		var f FileRecord
		if err := json.Unmarshal(v, &f); err != nil {
			return err
		}
		if f.ChatID == chatID {
			files = append(files, f)
		}
		return nil
	})
	return files, err
}

// Dump walks every document of a collection in key order and hands the raw
// JSON to fn.
func (s *BoltStore) Dump(collection string, fn func(doc json.RawMessage) error) error {
	return s.forEach(collection, func(v []byte) error {
		doc := make(json.RawMessage, len(v))
		copy(doc, v)
		return fn(doc)
	})
}

// Collections lists the collection names in a stable order.
func Collections() []string {
	return []string{usersCollection, historyCollection, filesCollection}
}

// appendJSON stores v under the next sequence number of the bucket so that
// iteration follows insertion order.
func (s *BoltStore) appendJSON(collection string, v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		seq, err := bucket.NextSequence()
		if err != nil {
			return err
		}
		return putJSON(bucket, seqKey(seq), v)
	})
}

func (s *BoltStore) forEach(collection string, fn func(v []byte) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(collection))
		if bucket == nil {
			return nil
		}
		return bucket.ForEach(func(_, v []byte) error {
			return fn(v)
		})
	})
}

func chatKey(chatID int64) []byte {
	return []byte(strconv.FormatInt(chatID, 10))
}

func seqKey(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}

func putJSON(bucket *bbolt.Bucket, key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return bucket.Put(key, data)
}
