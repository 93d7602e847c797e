package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobboard/backend/go-services/internal/docstore"
)

func TestSQLStore_RowLayout(t *testing.T) {
	ctx := context.Background()
	clock := newStepClock()
	s := newSQLiteBackend(t, clock.Now).(*SQLStore)
	c := s.Collection("jobs")

	res, err := c.InsertOne(ctx, docstore.M{"title": "Engineer", "salary": 4200})
	require.NoError(t, err)

	var id, data, createdAt, updatedAt string
	err = s.db.QueryRowContext(ctx, `SELECT id, data, created_at, updated_at FROM "jobs"`).Scan(&id, &data, &createdAt, &updatedAt)
	require.NoError(t, err)
	require.Equal(t, res.InsertedID, id)
	require.Equal(t, "2026-01-01T00:00:01.000000000Z", createdAt)
	require.Equal(t, createdAt, updatedAt)

	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(data), &payload))
	require.Equal(t, map[string]any{
		"_id":        id,
		"title":      "Engineer",
		"salary":     float64(4200),
		"created_at": createdAt,
		"updated_at": updatedAt,
	}, payload)

	_, err = c.UpdateOne(ctx, docstore.M{"_id": id}, docstore.M{"$set": docstore.M{"title": "Lead"}})
	require.NoError(t, err)
	err = s.db.QueryRowContext(ctx, `SELECT updated_at FROM "jobs" WHERE id = ?`, id).Scan(&updatedAt)
	require.NoError(t, err)
	require.Equal(t, "2026-01-01T00:00:02.000000000Z", updatedAt)
}

func TestSQLStore_RowsWrittenByOtherTools(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteBackend(t, time.Now).(*SQLStore)
	c := s.Collection("companies")
	_, err := c.CountDocuments(ctx, nil)
	require.NoError(t, err)

	// payload without system fields: the row columns fill them in
	_, err = s.db.ExecContext(ctx, `INSERT INTO "companies" (id, data, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		"legacy-1", `{"name":"Acme","_id":"stale"}`, "2025-01-01T00:00:00.000000000Z", "2025-02-01T00:00:00.000000000Z")
	require.NoError(t, err)

	got, err := c.FindOne(ctx, docstore.M{"name": "Acme"})
	require.NoError(t, err)
	require.Equal(t, "legacy-1", got.ID())
	require.True(t, got.CreatedAt().Equal(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)))
	require.True(t, got.UpdatedAt().Equal(time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))
}

func TestSQLStore_InvalidCollection(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteBackend(t, time.Now)
	for _, name := range []string{"", "jobs; DROP TABLE users", `a"b`, "1jobs", "cms-pages"} {
		_, err := s.Collection(name).InsertOne(ctx, docstore.M{"a": 1})
		require.ErrorIs(t, err, docstore.ErrInvalidCollection, name)
	}
}

func TestSQLStore_FieldNamesWithQuotesAreIgnored(t *testing.T) {
	ctx := context.Background()
	c := newSQLiteBackend(t, time.Now).Collection("jobs")
	_, err := c.InsertOne(ctx, docstore.M{"title": "Engineer"})
	require.NoError(t, err)

	docs, err := c.Find(docstore.M{`title" OR 1=1 --`: "x", "title": "Engineer"}).ToArray(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
}

func TestSQLStore_ConcurrentUpsertsInsertOnce(t *testing.T) {
	ctx := context.Background()
	c := newSQLiteBackend(t, time.Now).Collection("company_parameters")
	opts := docstore.FindOneAndUpdate().SetUpsert(true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.FindOneAndUpdate(ctx, docstore.M{"employer_id": "e1"}, docstore.M{"$set": docstore.M{"logo_url": fmt.Sprint(i)}}, opts)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	n, err := c.CountDocuments(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)
}

func TestSQLStore_ConcurrentUpdatesAreNotLost(t *testing.T) {
	ctx := context.Background()
	c := newSQLiteBackend(t, time.Now).Collection("jobs")
	res, err := c.InsertOne(ctx, docstore.M{"title": "Engineer"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.UpdateOne(ctx, docstore.M{"_id": res.InsertedID}, docstore.M{"$set": docstore.M{fmt.Sprintf("f%d", i): i}})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	got, err := c.FindOne(ctx, docstore.M{"_id": res.InsertedID})
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		require.Contains(t, got, fmt.Sprintf("f%d", i))
	}
}
