package repository

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobboard/backend/go-services/internal/docstore"
)

func TestMemoryStore_ConcurrentUpdatesAreNotLost(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection("jobs")
	res, err := c.InsertOne(ctx, docstore.M{"title": "Engineer"})
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
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
	for i := 0; i < 50; i++ {
		require.Contains(t, got, fmt.Sprintf("f%d", i))
	}
}

func TestMemoryStore_ConcurrentUpsertsInsertOnce(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection("company_parameters")
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

func TestMemoryStore_ReturnedDocumentsAreCopies(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryStore().Collection("jobs")
	input := docstore.M{"tags": []any{"go"}}
	res, err := c.InsertOne(ctx, input)
	require.NoError(t, err)
	input["tags"].([]any)[0] = "mutated"

	got, err := c.FindOne(ctx, docstore.M{"_id": res.InsertedID})
	require.NoError(t, err)
	got["tags"].([]any)[0] = "changed"

	again, err := c.FindOne(ctx, docstore.M{"_id": res.InsertedID})
	require.NoError(t, err)
	require.Equal(t, []any{"go"}, again["tags"])
}

func TestMemoryStore_CloseDropsData(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Collection("jobs").InsertOne(context.Background(), docstore.M{"a": 1})
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.Empty(t, s.collections)
}
