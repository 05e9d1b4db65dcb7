package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps the journal blobs in a single SQLite table.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	s, err := NewSQLiteStoreDB(db)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLiteStoreDB wraps an open database and ensures the schema exists.
func NewSQLiteStoreDB(db *sql.DB) (*SQLiteStore, error) {
	if _, err := db.Exec(Schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (State, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, data FROM blobs WHERE name IN (?, ?)`, EntriesBlob, SettingsBlob)
	if err != nil {
		return State{}, err
	}
	defer rows.Close()

	blobs := map[string][]byte{}
	for rows.Next() {
		var (
			name string
			data []byte
		)
		if err := rows.Scan(&name, &data); err != nil {
			return State{}, err
		}
		blobs[name] = data
	}
	if err := rows.Err(); err != nil {
		return State{}, err
	}

	return decodeState(blobs)
}

// Save writes both blobs in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, st State) error {
	blobs, err := encodeState(st)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	now := s.now().UTC()
	for _, name := range []string{EntriesBlob, SettingsBlob} {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO blobs (name, data, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			name, blobs[name], now,
		)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("write %s: %w", name, err)
		}
	}

	return tx.Commit()
}

// UpdatedAt returns when a blob was last written.
func (s *SQLiteStore) UpdatedAt(ctx context.Context, name string) (time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM blobs WHERE name = ?`, name).Scan(&t)
	if err == sql.ErrNoRows {
		return time.Time{}, fmt.Errorf("blob %q not found", name)
	}
	return t, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
