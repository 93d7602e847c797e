// Package docstore implements a small MongoDB-collection-shaped API (filters,
// updates, cursors) that the job-board services use regardless of whether the
// documents live in SQLite, MongoDB or process memory.
//
// Filters are compiled once into a backend-neutral AST (see ParseFilter) which
// every backend evaluates: the memory backend through Filter.Match, the SQL
// backend through Filter.SQL and the Mongo backend through Filter.BSON.
package docstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// System fields maintained by every backend.
const (
	FieldID        = "_id"
	FieldCreatedAt = "created_at"
	FieldUpdatedAt = "updated_at"
)

// TimeLayout is the fixed-width UTC layout used for stored timestamps, so the
// lexicographic order of stored strings matches chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// M is an unordered filter, update or document literal, in the spirit of bson.M.
type M map[string]any

// Document is one schema-less record.
type Document map[string]any

// ID returns the document identity, or "" if absent.
func (d Document) ID() string {
	s, _ := d[FieldID].(string)
	return s
}

// CreatedAt returns the creation timestamp. It accepts both the stored string
// form and the canonical time.Time form.
func (d Document) CreatedAt() time.Time { return timeField(d[FieldCreatedAt]) }

// UpdatedAt returns the last modification timestamp.
func (d Document) UpdatedAt() time.Time { return timeField(d[FieldUpdatedAt]) }

func timeField(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if parsed, ok := parseTime(t); ok {
			return parsed
		}
	}
	return time.Time{}
}

// NewID returns a fresh document identity (UUID v4).
func NewID() string { return uuid.NewString() }

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string { return t.UTC().Format(TimeLayout) }

var timeLayouts = []string{
	TimeLayout,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTime(s string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Normalize reduces v to plain JSON types (string, float64, bool, nil,
// []any, map[string]any). Times become TimeLayout strings. Both the memory
// and the SQL backend store normalized documents, which is what makes them
// agree on coercion and comparison.
func Normalize(v any) (any, error) {
	raw, err := marshalJSON(prepare(v))
	if err != nil {
		return nil, err
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// NormalizeDocument is Normalize for a whole document.
func NormalizeDocument(doc map[string]any) (Document, error) {
	if doc == nil {
		return Document{}, nil
	}
	out, err := Normalize(doc)
	if err != nil {
		return nil, fmt.Errorf("normalize document: %w", err)
	}
	m, _ := out.(map[string]any)
	return Document(m), nil
}

// prepare rewrites the values json.Marshal would render in an unsortable or
// lossy way: times, bson.D and the bson primitive time types.
func prepare(v any) any {
	switch t := v.(type) {
	case time.Time:
		return FormatTime(t)
	case *time.Time:
		if t == nil {
			return nil
		}
		return FormatTime(*t)
	case primitive.DateTime:
		return FormatTime(t.Time())
	case primitive.ObjectID:
		return t.Hex()
	case primitive.Regex:
		return t.Pattern
	case Regex:
		return t.Pattern
	case bson.D:
		m := make(map[string]any, len(t))
		for _, e := range t {
			m[e.Key] = prepare(e.Value)
		}
		return m
	case M:
		return prepare(map[string]any(t))
	case Document:
		return prepare(map[string]any(t))
	case bson.M:
		return prepare(map[string]any(t))
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = prepare(val)
		}
		return m
	case primitive.A:
		return prepare([]any(t))
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = prepare(val)
		}
		return out
	case []M:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = prepare(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = prepare(val)
		}
		return out
	}
	return v
}

func marshalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// MarshalPayload renders a stored document as the compact JSON payload
// written to the SQL data column.
func MarshalPayload(doc Document) ([]byte, error) {
	return marshalJSON(map[string]any(doc))
}

// Clone returns a deep copy of a normalized document.
func Clone(doc Document) Document {
	if doc == nil {
		return nil
	}
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[k] = cloneValue(val)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	}
	return v
}

// Canonical converts a stored document into the shape returned to callers:
// a deep copy whose system timestamps are time.Time values.
func Canonical(stored Document) Document {
	if stored == nil {
		return nil
	}
	out := Clone(stored)
	for _, k := range []string{FieldCreatedAt, FieldUpdatedAt} {
		if s, ok := out[k].(string); ok {
			if t, ok := parseTime(s); ok {
				out[k] = t.UTC()
			}
		}
	}
	return out
}

// PrepareInsert normalizes doc for insertion: it assigns a fresh _id
// (replacing any caller value) and fills the timestamps when absent.
func PrepareInsert(doc map[string]any, now time.Time) (Document, error) {
	out, err := NormalizeDocument(doc)
	if err != nil {
		return nil, err
	}
	out[FieldID] = NewID()
	stamp := FormatTime(now)
	if _, ok := out[FieldCreatedAt].(string); !ok {
		out[FieldCreatedAt] = stamp
	}
	if _, ok := out[FieldUpdatedAt].(string); !ok {
		out[FieldUpdatedAt] = stamp
	}
	return out, nil
}

// Decode copies a document into out (a pointer to a struct or map) using the
// bson struct tags the service models already carry.
func Decode(doc Document, out any) error {
	raw, err := bson.Marshal(map[string]any(doc))
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}
