package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteStore backs MessageStore with a local SQLite database. The driver is
// pure Go, so the relay binary stays cgo-free.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

var _ MessageStore = (*SQLiteStore)(nil)

// Open opens or creates the message database in the given directory.
func Open(dataDir string) (*SQLiteStore, error) {
	dbPath := filepath.Join(dataDir, "messages.db")

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// WAL keeps concurrent readers from blocking the mark-read writer.
	if _, err := db.Exec(`
		PRAGMA foreign_keys = ON;
		PRAGMA journal_mode = WAL;
		PRAGMA busy_timeout = 5000;
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS messages (
			id         TEXT PRIMARY KEY,
			sender     TEXT NOT NULL,
			receiver   TEXT NOT NULL,
			body       TEXT NOT NULL,
			is_read    INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_messages_unread
			ON messages (sender, receiver, is_read);
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create messages table: %w", err)
	}

	return &SQLiteStore{db: db, path: dbPath}, nil
}

// InsertMessage persists one message as unread. The relay itself never calls
// this; it exists for the backend's write path and for tests.
func (s *SQLiteStore) InsertMessage(ctx context.Context, senderID, receiverID, body string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, sender, receiver, body) VALUES (?, ?, ?, ?)`,
		id, senderID, receiverID, body,
	)
	if err != nil {
		return "", fmt.Errorf("insert message: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) MarkConversationRead(ctx context.Context, senderID, receiverID string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET is_read = 1 WHERE sender = ? AND receiver = ? AND is_read = 0`,
		senderID, receiverID,
	)
	if err != nil {
		return 0, fmt.Errorf("mark conversation read: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

// UnreadCount reports unread messages from senderID to receiverID.
func (s *SQLiteStore) UnreadCount(ctx context.Context, senderID, receiverID string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM messages WHERE sender = ? AND receiver = ? AND is_read = 0`,
		senderID, receiverID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
