// Package document implements the per-user document model: one nested JSON
// object per user, changed only through ordered partial updates.
package document

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned when the target user document does not exist.
	ErrNotFound = errors.New("document not found")
	// ErrExists is returned by Create when a document is already stored for the user.
	ErrExists = errors.New("document already exists")
	// ErrInvalidPath is returned for malformed field paths or out-of-range array indexes.
	ErrInvalidPath = errors.New("invalid field path")
)

// Doc is a user document. Values are always a JSON tree: map[string]any,
// []any, string, float64, bool or nil.
type Doc map[string]any

// Store persists one document per user. Every Update call is applied
// atomically with respect to other updates of the same document, which is
// what makes Append and Increment safe under concurrent writers.
type Store interface {
	Get(ctx context.Context, uid string) (Doc, error)
	Create(ctx context.Context, uid string, doc Doc) error
	Update(ctx context.Context, uid string, updates ...Update) error
}
