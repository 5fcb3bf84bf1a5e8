package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/claude/scanflow/internal/document"
	"github.com/jackc/pgx/v5"
)

var _ document.Store = (*DB)(nil)

// Get returns the stored document for uid.
func (db *DB) Get(ctx context.Context, uid string) (document.Doc, error) {
	var raw []byte
	err := db.Pool.QueryRow(ctx, `SELECT doc FROM user_documents WHERE uid = $1`, uid).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, document.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying document: %w", err)
	}
	return decodeDoc(raw)
}

// Create inserts a new document. It never overwrites an existing row.
func (db *DB) Create(ctx context.Context, uid string, doc document.Doc) error {
	built, err := document.Build(doc, db.now())
	if err != nil {
		return err
	}
	raw, err := json.Marshal(built)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	tag, err := db.Pool.Exec(ctx,
		`INSERT INTO user_documents (uid, doc) VALUES ($1, $2) ON CONFLICT (uid) DO NOTHING`,
		uid, raw)
	if err != nil {
		return fmt.Errorf("inserting document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return document.ErrExists
	}
	return nil
}

// Update applies updates inside one transaction holding the row lock, so
// concurrent appends and increments on the same user serialise.
func (db *DB) Update(ctx context.Context, uid string, updates ...document.Update) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	err = tx.QueryRow(ctx, `SELECT doc FROM user_documents WHERE uid = $1 FOR UPDATE`, uid).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return document.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("locking document: %w", err)
	}

	cur, err := decodeDoc(raw)
	if err != nil {
		return err
	}
	next, err := document.Apply(cur, db.now(), updates...)
	if err != nil {
		return err
	}
	out, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encoding document: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE user_documents SET doc = $2, updated_at = NOW() WHERE uid = $1`,
		uid, out); err != nil {
		return fmt.Errorf("updating document: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing document: %w", err)
	}
	return nil
}

func decodeDoc(raw []byte) (document.Doc, error) {
	doc := document.Doc{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decoding document: %w", err)
	}
	return doc, nil
}
