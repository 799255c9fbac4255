package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no document matches the lookup key.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when inserting a user whose chat id already exists.
	ErrDuplicate = errors.New("duplicate chat id")
)

const (
	usersCollection   = "users"
	historyCollection = "chat_history"
	filesCollection   = "files"
)

// User is one Telegram user, keyed by chat id.
type User struct {
	ID             string  `json:"id" bson:"_id"`
	FirstName      string  `json:"first_name" bson:"first_name"`
	Username       string  `json:"username" bson:"username"`
	ChatID         int64   `json:"chat_id" bson:"chat_id"`
	PhoneNumber    *string `json:"phone_number" bson:"phone_number"`
	ReferralPoints int     `json:"referral_points" bson:"referral_points"`
}

// ChatHistoryEntry records one prompt/completion exchange.
type ChatHistoryEntry struct {
	ID          string    `json:"id" bson:"_id"`
	ChatID      int64     `json:"chat_id" bson:"chat_id"`
	UserInput   string    `json:"user_input" bson:"user_input"`
	BotResponse string    `json:"bot_response" bson:"bot_response"`
	Timestamp   time.Time `json:"timestamp" bson:"timestamp"`
}

// FileRecord records metadata of one received document or photo.
type FileRecord struct {
	ID        string    `json:"id" bson:"_id"`
	ChatID    int64     `json:"chat_id" bson:"chat_id"`
	FileName  string    `json:"file_name" bson:"file_name"`
	FileID    string    `json:"file_id" bson:"file_id"`
	FileSize  int       `json:"file_size" bson:"file_size"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Store is the persistence gateway over the users, chat_history and files
// collections. There are no transactions across collections.
type Store interface {
	// FindUser returns ErrNotFound when no user has the chat id.
	FindUser(ctx context.Context, chatID int64) (*User, error)
	// InsertUser assigns u.ID when empty. Returns ErrDuplicate if the chat id exists.
	InsertUser(ctx context.Context, u *User) error
	// SetPhoneNumber updates only the phone number of an existing user and
	// reports whether a user matched.
	SetPhoneNumber(ctx context.Context, chatID int64, phone string) (bool, error)
	CountUsers(ctx context.Context) (int, error)

	InsertChatHistory(ctx context.Context, e *ChatHistoryEntry) error
	ListChatHistory(ctx context.Context, chatID int64) ([]ChatHistoryEntry, error)

	InsertFile(ctx context.Context, f *FileRecord) error
	ListFiles(ctx context.Context, chatID int64) ([]FileRecord, error)

	Ping(ctx context.Context) error
	Close() error
}

// Open selects a backend by URI scheme: mongodb:// and mongodb+srv:// use
// MongoDB, bolt:// and file:// use an embedded bbolt file.
func Open(ctx context.Context, uri, database string) (Store, error) {
	var (
		s   Store
		err error
	)
	switch {
	case strings.HasPrefix(uri, "mongodb://"), strings.HasPrefix(uri, "mongodb+srv://"):
		s, err = OpenMongo(ctx, uri, database)
	case strings.HasPrefix(uri, "bolt://"):
		s, err = OpenBolt(strings.TrimPrefix(uri, "bolt://"))
	case strings.HasPrefix(uri, "file://"):
		s, err = OpenBolt(strings.TrimPrefix(uri, "file://"))
	default:
		return nil, fmt.Errorf("unsupported store uri %q", redact(uri))
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// redact drops credentials from a URI before it reaches logs or errors.
func redact(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return uri
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***@" + rest[at+1:]
	}
	return scheme + "://" + rest
}
