package docstore

import (
	"context"
	"sort"
	"strconv"
)

// Executor runs a query for a Cursor. Backends bind their own execution
// strategy; the executor receives the raw filter and the accumulated options.
type Executor func(ctx context.Context, filter M, opts FindOptions) ([]Document, error)

// Cursor is an immutable query descriptor. Every builder call returns a new
// Cursor; ToArray runs the query. A Cursor holds no server-side state and
// can be materialized more than once.
type Cursor struct {
	exec   Executor
	filter M
	opts   FindOptions
}

// NewCursor binds a filter to an executor.
func NewCursor(exec Executor, filter M) *Cursor {
	return &Cursor{exec: exec, filter: filter}
}

// Sort orders by a single field; direction is 1 or -1. Only the most recent
// call is honored.
func (c *Cursor) Sort(field string, direction int) *Cursor {
	next := *c
	if direction >= 0 {
		direction = 1
	} else {
		direction = -1
	}
	next.opts.Sort = &Sort{Field: field, Direction: direction}
	return &next
}

// Skip drops the first n matches. Negative values are treated as 0.
func (c *Cursor) Skip(n int64) *Cursor {
	next := *c
	if n < 0 {
		n = 0
	}
	next.opts.Skip = n
	return &next
}

// Limit caps the number of results; n <= 0 removes the cap.
func (c *Cursor) Limit(n int64) *Cursor {
	next := *c
	if n < 0 {
		n = 0
	}
	next.opts.Limit = n
	return &next
}

// Project sets the projection applied to each result.
func (c *Cursor) Project(p M) *Cursor {
	next := *c
	next.opts.Projection = p
	return &next
}

// Filter returns the filter the cursor was built with.
func (c *Cursor) Filter() M { return c.filter }

// Options returns the accumulated options.
func (c *Cursor) Options() FindOptions { return c.opts }

// WithOptions replaces the accumulated options.
func (c *Cursor) WithOptions(opts FindOptions) *Cursor {
	next := *c
	next.opts = opts
	return &next
}

// ToArray materializes the query.
func (c *Cursor) ToArray(ctx context.Context) ([]Document, error) {
	docs, err := c.exec(ctx, c.filter, c.opts)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []Document{}
	}
	return docs, nil
}

// SortDocuments orders stored documents the way SQLite orders the sort
// expression, so the memory backend agrees with the SQL one on every key
// that is not tied.
func SortDocuments(docs []Document, s *Sort) {
	if s == nil || s.Field == "" {
		return
	}
	sort.SliceStable(docs, func(i, j int) bool {
		r := compareForSort(docs[i][s.Field], docs[j][s.Field])
		if s.Direction < 0 {
			return r > 0
		}
		return r < 0
	})
}

// sortClass follows SQLite's cross-type order: NULL < numeric < text.
func sortClass(v any) (int, float64, string) {
	switch t := v.(type) {
	case nil:
		return 0, 0, ""
	case bool:
		if t {
			return 1, 1, ""
		}
		return 1, 0, ""
	case float64:
		return 1, t, ""
	case string:
		return 2, 0, t
	}
	return 2, 0, Coerce(v)
}

func compareForSort(a, b any) int {
	ca, na, sa := sortClass(a)
	cb, nb, sb := sortClass(b)
	if ca != cb {
		return ca - cb
	}
	switch ca {
	case 1:
		switch {
		case na < nb:
			return -1
		case na > nb:
			return 1
		}
		return 0
	case 2:
		switch {
		case sa < sb:
			return -1
		case sa > sb:
			return 1
		}
	}
	return 0
}

// Paginate applies skip then limit.
func Paginate(docs []Document, skip, limit int64) []Document {
	if skip > 0 {
		if skip >= int64(len(docs)) {
			return []Document{}
		}
		docs = docs[skip:]
	}
	if limit > 0 && limit < int64(len(docs)) {
		docs = docs[:limit]
	}
	return docs
}

// Project applies a projection to a canonical document. If any key is
// included (1 or true) only the listed keys are kept, system fields included;
// otherwise the listed keys are dropped. Mixed projections are not supported.
func Project(doc Document, projection M) Document {
	if doc == nil || len(projection) == 0 {
		return doc
	}
	inclusion := false
	for _, v := range projection {
		if included(v) {
			inclusion = true
			break
		}
	}
	out := Document{}
	if inclusion {
		for k, v := range projection {
			if !included(v) {
				continue
			}
			if val, ok := doc[k]; ok {
				out[k] = val
			}
		}
		return out
	}
	for k, v := range doc {
		out[k] = v
	}
	for k := range projection {
		delete(out, k)
	}
	return out
}

func included(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case int:
		return t == 1
	case int32:
		return t == 1
	case int64:
		return t == 1
	case float64:
		return t == 1
	case string:
		n, err := strconv.Atoi(t)
		return err == nil && n == 1
	}
	return false
}
