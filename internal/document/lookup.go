package document

import (
	"strconv"
	"strings"
)

// Lookup returns the value at a dot path. Numeric segments index arrays.
func Lookup(doc Doc, path string) (any, bool) {
	var node any = map[string]any(doc)
	for _, seg := range strings.Split(path, PathSeparator) {
		switch n := node.(type) {
		case map[string]any:
			v, ok := n[seg]
			if !ok {
				return nil, false
			}
			node = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(n) {
				return nil, false
			}
			node = n[i]
		default:
			return nil, false
		}
	}
	return node, true
}

// String returns the string at path, or "" when absent or not a string.
func String(doc Doc, path string) string {
	v, _ := Lookup(doc, path)
	s, _ := v.(string)
	return s
}

// Number returns the number at path and whether a number was found.
func Number(doc Doc, path string) (float64, bool) {
	v, _ := Lookup(doc, path)
	n, ok := v.(float64)
	return n, ok
}

// Strings returns the string elements of the list at path, skipping other types.
func Strings(doc Doc, path string) []string {
	v, _ := Lookup(doc, path)
	list, _ := v.([]any)
	out := make([]string, 0, len(list))
	for _, e := range list {
		if s, ok := e.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Tail returns at most the last n elements of the list at path.
func Tail(doc Doc, path string, n int) []any {
	v, _ := Lookup(doc, path)
	list, _ := v.([]any)
	if n < 0 {
		n = 0
	}
	if len(list) > n {
		list = list[len(list)-n:]
	}
	out := make([]any, len(list))
	copy(out, list)
	return out
}
