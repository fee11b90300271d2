// Package history keeps a local record of completed translations.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/transbraille/transbraille/internal/translation"
)

// Entry is one completed translation.
type Entry struct {
	ID         int64     `json:"id" yaml:"id"`
	Language   string    `json:"language" yaml:"language"`
	ImageCount int       `json:"image_count" yaml:"image_count"`
	URLs       []string  `json:"urls" yaml:"urls"`
	Result     string    `json:"result" yaml:"result"`
	Empty      bool      `json:"empty" yaml:"empty"`
	CreatedAt  time.Time `json:"created_at" yaml:"created_at"`
}

type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS translations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		language TEXT NOT NULL,
		image_count INTEGER NOT NULL,
		urls TEXT NOT NULL,
		result TEXT NOT NULL DEFAULT '',
		empty INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_translations_created_at ON translations(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts e and returns its id. A zero CreatedAt is set to now.
func (s *Store) Record(ctx context.Context, e Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	urls, err := json.Marshal(e.URLs)
	if err != nil {
		return 0, err
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO translations (language, image_count, urls, result, empty, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		e.Language, e.ImageCount, string(urls), e.Result, e.Empty, e.CreatedAt,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to record translation: %w", err)
	}
	return res.LastInsertId()
}

// RecordTranslation stores a successful translation.
func (s *Store) RecordTranslation(ctx context.Context, lang translation.Language, urls []string, result translation.Result) error {
	_, err := s.Record(ctx, Entry{
		Language:   lang.Tag(),
		ImageCount: len(urls),
		URLs:       urls,
		Result:     result.Text,
		Empty:      result.Empty,
	})
	return err
}

// List returns up to limit entries, newest first. A limit of zero or less
// returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := "SELECT id, language, image_count, urls, result, empty, created_at FROM translations ORDER BY created_at DESC, id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list translations: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var urls string
		if err := rows.Scan(&e.ID, &e.Language, &e.ImageCount, &urls, &e.Result, &e.Empty, &e.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(urls), &e.URLs); err != nil {
			return nil, fmt.Errorf("translation %d has malformed urls: %w", e.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
