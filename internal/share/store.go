// Package share implements the handoff store between the out-of-process
// share intake and the dictation app. One producer writes a shared file
// under a well-known key; the consumer reads and deletes it on the next
// activation and feeds it into file transcription.
package share

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// handoffKey is the well-known key the intake producer writes under.
const handoffKey = "dicta.shared-file"

// SharedFile is one file handed off by the share intake.
type SharedFile struct {
	Name      string
	MediaType string
	Data      []byte
	SharedAt  time.Time
}

// Store is the sqlite-backed handoff store.
type Store struct {
	db *sql.DB
}

// DefaultStorePath returns the default handoff database path.
func DefaultStorePath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "dicta", "handoff.sqlite")
}

// Open opens (and if needed creates) the handoff store.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != ":memory:" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS handoff (
			key       TEXT PRIMARY KEY,
			name      TEXT NOT NULL,
			mediaType TEXT NOT NULL,
			data      BLOB NOT NULL,
			sharedAt  REAL NOT NULL
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create handoff table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Put writes a shared file under the handoff key, replacing any file a
// previous share left unconsumed.
func (s *Store) Put(file SharedFile) error {
	sharedAt := file.SharedAt
	if sharedAt.IsZero() {
		sharedAt = time.Now()
	}

	_, err := s.db.Exec(`
		INSERT INTO handoff (key, name, mediaType, data, sharedAt)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name = excluded.name,
			mediaType = excluded.mediaType,
			data = excluded.data,
			sharedAt = excluded.sharedAt
	`, handoffKey, file.Name, file.MediaType, file.Data, float64(sharedAt.UnixMilli())/1000.0)
	if err != nil {
		return fmt.Errorf("put shared file: %w", err)
	}
	return nil
}

// Take reads and deletes the pending shared file. Returns nil if no file is
// pending. Read and delete run in one transaction so a file is consumed at
// most once.
func (s *Store) Take() (*SharedFile, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		SELECT name, mediaType, data, sharedAt FROM handoff WHERE key = ?
	`, handoffKey)

	var file SharedFile
	var sharedAt float64
	if err := row.Scan(&file.Name, &file.MediaType, &file.Data, &sharedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("scan shared file: %w", err)
	}
	file.SharedAt = time.UnixMilli(int64(sharedAt * 1000))

	if _, err := tx.Exec(`DELETE FROM handoff WHERE key = ?`, handoffKey); err != nil {
		return nil, fmt.Errorf("delete shared file: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit take: %w", err)
	}

	return &file, nil
}
