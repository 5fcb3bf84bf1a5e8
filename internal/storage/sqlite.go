package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/claude/scanflow/internal/document"
	_ "modernc.org/sqlite"
)

// SQLite is a single-node document store. It keeps one connection open, so
// each Update transaction runs alone.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

var _ document.Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the document database at path.
func OpenSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data dir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS user_documents (
		uid        TEXT PRIMARY KEY,
		doc        TEXT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating documents table: %w", err)
	}

	return &SQLite{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func (s *SQLite) Get(ctx context.Context, uid string) (document.Doc, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM user_documents WHERE uid = ?`, uid).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}
	return decodeDoc([]byte(raw))
}

func (s *SQLite) Create(ctx context.Context, uid string, doc document.Doc) error {
	built, err := document.Build(doc, s.now())
	if err != nil {
		return err
	}
	raw, err := json.Marshal(built)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_documents (uid, doc) VALUES (?, ?)`, uid, string(raw))
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	if n == 0 {
		return document.ErrExists
	}
	return nil
}

func (s *SQLite) Update(ctx context.Context, uid string, updates ...document.Update) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT doc FROM user_documents WHERE uid = ?`, uid).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return document.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("querying document: %w", err)
	}

	cur, err := decodeDoc([]byte(raw))
	if err != nil {
		return err
	}
	next, err := document.Apply(cur, s.now(), updates...)
	if err != nil {
		return err
	}
	out, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE user_documents SET doc = ?, updated_at = CURRENT_TIMESTAMP WHERE uid = ?`,
		string(out), uid); err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	return tx.Commit()
}
