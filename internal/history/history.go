// Package history keeps notified events in a SQLite database.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/CZERTAINLY/Spotter/internal/model"

	_ "modernc.org/sqlite"
)

const DefaultLimit = 50

// timeLayout is fixed width, so stored values sort in time order as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Store records notifications. It implements notify.Notifier.
type Store struct {
	db *sql.DB
}

// Open opens or creates a history database.
// DSN format:
//   - "sqlite:///path/to/file.db"
//   - "/path/to/file.db" (without prefix)
//   - ":memory:" (in-memory database)
func Open(ctx context.Context, dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("empty SQLite DSN")
	}
	if strings.HasPrefix(strings.ToLower(dsn), "sqlite://") {
		dsn = dsn[len("sqlite://"):]
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	// a single connection keeps :memory: databases alive and serializes writers
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	stmt := `CREATE TABLE IF NOT EXISTS notifications(
		id TEXT PRIMARY KEY,
		occurred_at TEXT NOT NULL,
		phrases TEXT NOT NULL
	);`
	_, err := s.db.ExecContext(ctx, stmt)
	return err
}

func (s *Store) Notify(ctx context.Context, n model.Notification) error {
	phrases, err := json.Marshal(n.Phrases)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications(id, occurred_at, phrases)
		VALUES(?, ?, ?);`,
		n.ID, n.At.UTC().Format(timeLayout), string(phrases))
	if err != nil {
		return fmt.Errorf("storing notification %s: %w", n.ID, err)
	}
	return nil
}

// Recent returns up to limit notifications, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]model.Notification, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, occurred_at, phrases FROM notifications
		ORDER BY occurred_at DESC, rowid DESC
		LIMIT ?;`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	ret := make([]model.Notification, 0, limit)
	for rows.Next() {
		var (
			n       model.Notification
			at      string
			phrases string
		)
		if err := rows.Scan(&n.ID, &at, &phrases); err != nil {
			return nil, err
		}
		n.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parsing time of %s: %w", n.ID, err)
		}
		if err := json.Unmarshal([]byte(phrases), &n.Phrases); err != nil {
			return nil, fmt.Errorf("parsing phrases of %s: %w", n.ID, err)
		}
		ret = append(ret, n)
	}
	return ret, rows.Err()
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
