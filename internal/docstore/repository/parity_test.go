package repository

import (
	"context"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobboard/backend/go-services/internal/docstore"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// parityFixtures mixes types on purpose: the same field holds numbers, numeric
// text, booleans, nulls and missing values across documents.
var parityFixtures = []docstore.M{
	{"key": "k1", "title": "Senior Go Engineer", "status": "active", "salary": 5000, "remote": true,
		"tags": []any{"go", "sql"}, "posted_at": day(2026, 1, 10), "employer_id": "e1"},
	{"key": "k2", "title": "junior go developer", "status": "closed", "salary": 3000.5, "remote": false,
		"posted_at": day(2026, 2, 1), "employer_id": "e2"},
	{"key": "k3", "title": "Designer 50% off", "status": "active", "salary": "5000", "note": nil,
		"posted_at": "2026-03-05T10:00:00Z", "employer_id": "e1"},
	{"key": "k4", "title": "Data_Engineer", "status": "ACTIVE", "meta": map[string]any{"level": 2},
		"posted_at": "not a date"},
	{"key": "k5", "status": nil, "salary": 0, "title": "Ünïcode Ops"},
	{"key": "k6", "remote": "true", "salary": -1.25, "tags": []any{}, "employer_id": "e2"},
	// Dates as they arrive in JSON payloads: date only, RFC 3339, and with an
	// offset (07:00Z).
	{"key": "k7", "title": "Deadline A", "salary": 100, "deadline": "2026-03-05"},
	{"key": "k8", "title": "Deadline B", "salary": 200, "deadline": "2026-03-05T10:00:00Z"},
	{"key": "k9", "title": "Deadline C", "salary": 300, "deadline": "2026-03-05T12:00:00+05:00"},
}

var parityFilters = []docstore.M{
	{},
	{"status": "active"},
	{"status": "ACTIVE"},
	{"salary": 5000},
	{"salary": "5000"},
	{"salary": 3000.5},
	{"salary": 0},
	{"remote": true},
	{"remote": "true"},
	{"remote": false},
	{"note": nil},
	{"status": nil},
	{"title": docstore.Regex{Pattern: "go"}},
	{"title": docstore.Regex{Pattern: "50%"}},
	{"title": docstore.Regex{Pattern: "_e"}},
	{"title": docstore.Regex{Pattern: "ünï"}},
	{"title": regexp.MustCompile("ENGINEER")},
	{"title": docstore.M{"$regex": "Designer"}},
	{"salary": docstore.Regex{Pattern: "000"}},
	{"remote": docstore.Regex{Pattern: "tru"}},
	{"status": docstore.M{"$in": []any{"active", "closed"}}},
	{"status": docstore.M{"$in": []any{nil, "closed"}}},
	{"salary": docstore.M{"$in": []any{5000, -1.25}}},
	{"salary": docstore.M{"$in": []any{}}},
	{"salary": docstore.M{"$in": []float64{5000, 100}}},
	{"salary": docstore.M{"$in": []int64{200}}},
	{"salary": docstore.M{"$in": 5000}},
	{"status": docstore.M{"$in": [2]string{"active", "closed"}}},
	{"status": docstore.M{"$ne": "active"}},
	{"status": docstore.M{"$ne": nil}},
	{"remote": docstore.M{"$ne": true}},
	{"posted_at": docstore.M{"$gte": day(2026, 2, 1)}},
	{"posted_at": docstore.M{"$gt": "2026-01-15", "$lt": "2026-03-01"}},
	{"posted_at": docstore.M{"$lte": int64(1767225600000)}},
	{"posted_at": docstore.M{"$gte": "whenever"}},
	{"deadline": docstore.M{"$gte": "2026-03-05"}},
	{"deadline": docstore.M{"$gt": "2026-03-05T10:00:00Z"}},
	{"deadline": docstore.M{"$gte": "2026-03-05T08:00:00Z"}},
	{"deadline": docstore.M{"$lt": "2026-03-05T08:00:00Z"}},
	{"deadline": docstore.M{"$lte": day(2026, 3, 5)}},
	{"created_at": docstore.M{"$gte": day(2020, 1, 1)}},
	{"tags": []any{"go", "sql"}},
	{"tags": []any{}},
	{"meta": map[string]any{"level": 2}},
	{"$or": []any{docstore.M{"status": "closed"}, docstore.M{"remote": true}}},
	{"status": "active", "$or": []any{docstore.M{"salary": 5000}, docstore.M{"title": docstore.Regex{Pattern: "designer"}}}},
	{"$or": []any{docstore.M{}, docstore.M{"status": "closed"}}},
	{"$or": []any{docstore.M{}}},
	{"employer_id": "e1", "status": docstore.M{"$ne": "closed"}},
	{"unknown": docstore.M{"$exists": true}},
}

func seedParity(t *testing.T, s docstore.Store) docstore.Collection {
	t.Helper()
	c := s.Collection("jobs")
	for _, f := range parityFixtures {
		_, err := c.InsertOne(context.Background(), f)
		require.NoError(t, err)
	}
	return c
}

func keys(docs []docstore.Document) []string {
	out := make([]string, len(docs))
	for i, d := range docs {
		out[i], _ = d["key"].(string)
	}
	return out
}

// stripSystem drops fields whose values necessarily differ between stores.
func stripSystem(docs []docstore.Document) map[string]docstore.Document {
	out := make(map[string]docstore.Document, len(docs))
	for _, d := range docs {
		c := docstore.Document{}
		for k, v := range d {
			if k != docstore.FieldID && k != docstore.FieldCreatedAt && k != docstore.FieldUpdatedAt {
				c[k] = v
			}
		}
		out[c["key"].(string)] = c
	}
	return out
}

func TestParity_FilterSelection(t *testing.T) {
	ctx := context.Background()
	mem := seedParity(t, newMemoryBackend(t, newStepClock().Now))
	sql := seedParity(t, newSQLiteBackend(t, newStepClock().Now))

	for i, f := range parityFilters {
		t.Run(fmt.Sprintf("%02d_%v", i, f), func(t *testing.T) {
			m, err := mem.Find(f).ToArray(ctx)
			require.NoError(t, err)
			s, err := sql.Find(f).ToArray(ctx)
			require.NoError(t, err)
			require.Equal(t, sortedStrings(keys(m)), sortedStrings(keys(s)))

			mc, err := mem.CountDocuments(ctx, f)
			require.NoError(t, err)
			sc, err := sql.CountDocuments(ctx, f)
			require.NoError(t, err)
			require.Equal(t, mc, sc)
			require.Equal(t, int64(len(m)), mc)
		})
	}
}

func TestParity_KnownSelections(t *testing.T) {
	ctx := context.Background()
	for name, open := range map[string]storeFactory{"memory": newMemoryBackend, "sqlite": newSQLiteBackend} {
		t.Run(name, func(t *testing.T) {
			c := seedParity(t, open(t, newStepClock().Now))
			expect := func(f docstore.M, want ...string) {
				t.Helper()
				docs, err := c.Find(f).ToArray(ctx)
				require.NoError(t, err)
				require.Equal(t, want, sortedStrings(keys(docs)), "filter %v", f)
			}
			expect(docstore.M{"salary": 5000}, "k1", "k3")
			expect(docstore.M{"remote": true}, "k1", "k6")
			expect(docstore.M{"status": docstore.M{"$ne": "active"}}, "k2", "k4", "k5", "k6", "k7", "k8", "k9")
			expect(docstore.M{"status": docstore.M{"$in": []any{nil, "closed"}}}, "k2", "k5", "k6", "k7", "k8", "k9")
			expect(docstore.M{"title": docstore.Regex{Pattern: "_e"}}, "k4")
			expect(docstore.M{"title": docstore.Regex{Pattern: "go"}}, "k1", "k2")
			expect(docstore.M{"note": nil}, "k1", "k2", "k3", "k4", "k5", "k6", "k7", "k8", "k9")
			expect(docstore.M{"posted_at": docstore.M{"$gte": "whenever"}})

			expect(docstore.M{"salary": docstore.M{"$in": []float64{5000}}}, "k1", "k3")
			expect(docstore.M{"salary": docstore.M{"$in": []int64{200}}}, "k8")
			expect(docstore.M{"salary": docstore.M{"$in": 5000}})

			expect(docstore.M{"deadline": docstore.M{"$gte": "2026-03-05"}}, "k7", "k8", "k9")
			expect(docstore.M{"deadline": docstore.M{"$gt": "2026-03-05T10:00:00Z"}})
			expect(docstore.M{"deadline": docstore.M{"$gte": "2026-03-05T08:00:00Z"}}, "k8")
			expect(docstore.M{"deadline": docstore.M{"$lt": "2026-03-05T08:00:00Z"}}, "k7", "k9")
		})
	}
}

func TestParity_OrderingAndDocuments(t *testing.T) {
	ctx := context.Background()
	mem := seedParity(t, newMemoryBackend(t, newStepClock().Now))
	sql := seedParity(t, newSQLiteBackend(t, newStepClock().Now))

	cursors := []func(docstore.Collection) *docstore.Cursor{
		func(c docstore.Collection) *docstore.Cursor { return c.Find(nil).Sort("salary", 1) },
		func(c docstore.Collection) *docstore.Cursor { return c.Find(nil).Sort("salary", -1).Skip(2) },
		func(c docstore.Collection) *docstore.Cursor { return c.Find(nil).Sort("title", 1).Limit(3) },
		func(c docstore.Collection) *docstore.Cursor { return c.Find(nil).Sort("created_at", -1).Skip(1).Limit(2) },
		func(c docstore.Collection) *docstore.Cursor {
			return c.Find(docstore.M{"status": docstore.M{"$ne": nil}}).Sort("key", -1)
		},
	}
	for i, build := range cursors {
		m, err := build(mem).ToArray(ctx)
		require.NoError(t, err)
		s, err := build(sql).ToArray(ctx)
		require.NoError(t, err)
		require.Equal(t, keys(m), keys(s), "cursor %d", i)
	}

	m, err := mem.Find(nil).ToArray(ctx)
	require.NoError(t, err)
	s, err := sql.Find(nil).ToArray(ctx)
	require.NoError(t, err)
	require.Equal(t, stripSystem(m), stripSystem(s))

	m, err = mem.Find(nil).Project(docstore.M{"key": 1, "tags": 1}).ToArray(ctx)
	require.NoError(t, err)
	s, err = sql.Find(nil).Project(docstore.M{"key": 1, "tags": 1}).ToArray(ctx)
	require.NoError(t, err)
	require.ElementsMatch(t, m, s)
}
