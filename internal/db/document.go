package db

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Ref addresses one document.
type Ref struct {
	Collection string
	ID         string
}

// Path returns the document's full path, collection/id.
func (r Ref) Path() string {
	return strings.TrimSuffix(r.Collection, "/") + "/" + r.ID
}

func (r Ref) String() string {
	return r.Path()
}

// Document is a decoded JSON document. Values are JSON-typed: maps,
// slices, strings, float64, bool and nil.
type Document map[string]any

// Lookup reads a gjson path (e.g. "proforma.grandTotal", "items.#") from the
// document.
func (d Document) Lookup(path string) gjson.Result {
	return d.Parse().Get(path)
}

// Parse encodes the document once so several paths can be read from it.
func (d Document) Parse() gjson.Result {
	b, err := json.Marshal(d)
	if err != nil {
		return gjson.Result{}
	}
	return gjson.ParseBytes(b)
}

// Snapshot is a document together with its address and write time.
type Snapshot struct {
	Ref       Ref
	Data      Document
	UpdatedAt time.Time
}

// Patch is a set of field writes applied atomically by Update. Keys may be
// dotted paths into nested maps; values may be ServerTimestamp or ArrayUnion
// sentinels.
type Patch map[string]any

// SetOptions controls Set.
type SetOptions struct {
	// Merge deep-merges the data into an existing document instead of
	// replacing it.
	Merge bool
}

type serverTimestamp struct{}

type arrayUnion struct {
	elems []any
}

// ServerTimestamp is replaced by the store clock when the write commits.
func ServerTimestamp() any {
	return serverTimestamp{}
}

// ArrayUnion appends elems to the array at the target field, skipping
// elements whose JSON encoding already appears in it. A missing or non-array
// field is replaced by a new array.
func ArrayUnion(elems ...any) any {
	return arrayUnion{elems: elems}
}

// resolve turns v into a JSON-typed value, expanding sentinels. current is
// the value presently stored at the target field.
func resolve(v any, current any, now time.Time) (any, error) {
	switch x := v.(type) {
	case serverTimestamp:
		return now.Format(time.RFC3339Nano), nil
	case arrayUnion:
		existing, _ := current.([]any)
		out := make([]any, 0, len(existing)+len(x.elems))
		out = append(out, existing...)
		for _, e := range x.elems {
			val, err := resolve(e, nil, now)
			if err != nil {
				return nil, err
			}
			if !containsJSON(out, val) {
				out = append(out, val)
			}
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, val := range x {
			r, err := resolve(val, nil, now)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case Document:
		return resolve(map[string]any(x), current, now)
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			r, err := resolve(val, nil, now)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	default:
		return toJSONValue(v)
	}
}

func toJSONValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func containsJSON(list []any, v any) bool {
	want, err := json.Marshal(v)
	if err != nil {
		return false
	}
	for _, e := range list {
		got, err := json.Marshal(e)
		if err == nil && bytes.Equal(got, want) {
			return true
		}
	}
	return false
}

// setPath writes v at the dotted path inside doc, creating or replacing
// intermediate maps as needed.
func setPath(doc map[string]any, path string, v any, now time.Time) error {
	parts := strings.Split(path, ".")
	node := doc
	for _, p := range parts[:len(parts)-1] {
		next, ok := node[p].(map[string]any)
		if !ok {
			next = make(map[string]any)
			node[p] = next
		}
		node = next
	}
	leaf := parts[len(parts)-1]
	val, err := resolve(v, node[leaf], now)
	if err != nil {
		return err
	}
	node[leaf] = val
	return nil
}

// mergeInto deep-merges src into dst: nested maps merge, everything else
// replaces.
func mergeInto(dst map[string]any, src map[string]any, now time.Time) error {
	for k, v := range src {
		if sub, ok := asMap(v); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				if err := mergeInto(existing, sub, now); err != nil {
					return err
				}
				continue
			}
		}
		val, err := resolve(v, dst[k], now)
		if err != nil {
			return err
		}
		dst[k] = val
	}
	return nil
}

func asMap(v any) (map[string]any, bool) {
	switch x := v.(type) {
	case map[string]any:
		return x, true
	case Document:
		return map[string]any(x), true
	default:
		return nil, false
	}
}
