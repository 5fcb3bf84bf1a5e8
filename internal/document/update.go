package document

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PathSeparator separates the segments of a nested field path.
const PathSeparator = "."

// Update is one field-level change. Path addresses a top-level field or, with
// separators, a nested one. Value is either a plain value (overwrite) or one of
// the markers produced by Append and Increment.
type Update struct {
	Path  string
	Value any
}

type arrayUnion struct {
	elem any
}

type increment struct {
	delta float64
}

type serverTimestamp struct{}

// MarshalJSON rejects the marker: it is only meaningful as a direct update value
// or inside map[string]any / []any values, where the store resolves it.
func (serverTimestamp) MarshalJSON() ([]byte, error) {
	return nil, errors.New("server timestamp must be a map or slice element, not a struct field")
}

// ServerTimestamp is replaced by the store's clock (RFC 3339, UTC) when the
// update is applied.
var ServerTimestamp any = serverTimestamp{}

// Set overwrites the field at path, creating intermediate objects as needed.
func Set(path string, v any) Update {
	return Update{Path: path, Value: v}
}

// Append pushes v onto the list at path, creating the list if absent.
func Append(path string, v any) Update {
	return Update{Path: path, Value: arrayUnion{elem: v}}
}

// Increment adds delta to the number at path. Absent or non-numeric values count as 0.
func Increment(path string, delta float64) Update {
	return Update{Path: path, Value: increment{delta: delta}}
}

// Apply returns a copy of doc with updates applied in order. The input is not
// modified; on error nothing of the batch is visible to the caller.
func Apply(doc Doc, now time.Time, updates ...Update) (Doc, error) {
	root := clone(map[string]any(doc))
	out, _ := root.(map[string]any)
	if out == nil {
		out = map[string]any{}
	}

	for _, u := range updates {
		segs, err := splitPath(u.Path)
		if err != nil {
			return nil, err
		}

		fn, err := mutator(u.Value, now)
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", u.Path, err)
		}

		node, err := updateAt(out, segs, fn)
		if err != nil {
			return nil, fmt.Errorf("update %s: %w", u.Path, err)
		}
		out = node.(map[string]any)
	}
	return Doc(out), nil
}

// Build resolves markers and normalises values of a whole document, without
// interpreting keys as paths. Used when creating documents.
func Build(doc Doc, now time.Time) (Doc, error) {
	v, err := normalize(map[string]any(doc), now)
	if err != nil {
		return nil, err
	}
	return Doc(v.(map[string]any)), nil
}

func splitPath(path string) ([]string, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	segs := strings.Split(path, PathSeparator)
	for _, s := range segs {
		if s == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
	}
	return segs, nil
}

type mutateFunc func(cur any, exists bool) (any, error)

func mutator(v any, now time.Time) (mutateFunc, error) {
	switch m := v.(type) {
	case arrayUnion:
		elem, err := normalize(m.elem, now)
		if err != nil {
			return nil, err
		}
		return func(cur any, _ bool) (any, error) {
			list, _ := cur.([]any)
			next := make([]any, len(list), len(list)+1)
			copy(next, list)
			return append(next, elem), nil
		}, nil
	case increment:
		return func(cur any, _ bool) (any, error) {
			n, _ := cur.(float64)
			return n + m.delta, nil
		}, nil
	default:
		val, err := normalize(v, now)
		if err != nil {
			return nil, err
		}
		return func(any, bool) (any, error) { return val, nil }, nil
	}
}

// updateAt replaces the value at segs below node with fn(current) and returns
// the (possibly new) node. Missing or scalar intermediates become objects;
// numeric segments index into existing arrays.
func updateAt(node any, segs []string, fn mutateFunc) (any, error) {
	seg := segs[0]
	switch n := node.(type) {
	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(n) {
			return nil, fmt.Errorf("%w: index %q out of range (len %d)", ErrInvalidPath, seg, len(n))
		}
		if len(segs) == 1 {
			v, err := fn(n[i], true)
			if err != nil {
				return nil, err
			}
			n[i] = v
			return n, nil
		}
		child, err := updateAt(n[i], segs[1:], fn)
		if err != nil {
			return nil, err
		}
		n[i] = child
		return n, nil
	case map[string]any:
		cur, ok := n[seg]
		if len(segs) == 1 {
			v, err := fn(cur, ok)
			if err != nil {
				return nil, err
			}
			n[seg] = v
			return n, nil
		}
		child, err := updateAt(cur, segs[1:], fn)
		if err != nil {
			return nil, err
		}
		n[seg] = child
		return n, nil
	default:
		return updateAt(map[string]any{}, segs, fn)
	}
}

// normalize converts v into a JSON tree, resolving ServerTimestamp markers.
func normalize(v any, now time.Time) (any, error) {
	switch x := v.(type) {
	case nil, string, bool, float64:
		return x, nil
	case serverTimestamp:
		return now.UTC().Format(time.RFC3339Nano), nil
	case Doc:
		return normalize(map[string]any(x), now)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			ne, err := normalize(e, now)
			if err != nil {
				return nil, err
			}
			out[k] = ne
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			ne, err := normalize(e, now)
			if err != nil {
				return nil, err
			}
			out[i] = ne
		}
		return out, nil
	case arrayUnion, increment:
		return nil, errors.New("append and increment markers are only valid as top-level update values")
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return nil, fmt.Errorf("encoding value: %w", err)
		}
		var out any
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, fmt.Errorf("decoding value: %w", err)
		}
		return out, nil
	}
}

func clone(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = clone(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = clone(e)
		}
		return out
	default:
		return x
	}
}

// Clone returns a deep copy of doc.
func Clone(doc Doc) Doc {
	if doc == nil {
		return nil
	}
	return Doc(clone(map[string]any(doc)).(map[string]any))
}
