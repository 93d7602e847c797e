package repository

import (
	"context"
	"fmt"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jobboard/backend/go-services/internal/database"
	"github.com/jobboard/backend/go-services/internal/docstore"
)

var mongoDBSeq atomic.Int64

// TestMongoStoreContract runs the collection contract against a real server.
// It needs MONGODB_URI, e.g. mongodb://localhost:27017.
func TestMongoStoreContract(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}
	runCollectionTests(t, func(t *testing.T, now func() time.Time) docstore.Store {
		client, err := database.ConnectMongo(context.Background(), uri, 5*time.Second)
		require.NoError(t, err)
		name := fmt.Sprintf("docstore_test_%d_%d", time.Now().UnixNano(), mongoDBSeq.Add(1))
		s := NewMongoStore(client, name)
		s.now = now
		t.Cleanup(func() {
			_ = client.Database(name).Drop(context.Background())
			_ = s.Close()
		})
		return s
	})
}

func TestMongoStore_InvalidCollection(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}
	client, err := database.ConnectMongo(context.Background(), uri, 5*time.Second)
	require.NoError(t, err)
	s := NewMongoStore(client, "docstore_test_invalid")
	defer s.Close()

	_, err = s.Collection("system.users").InsertOne(context.Background(), docstore.M{"a": 1})
	require.ErrorIs(t, err, docstore.ErrInvalidCollection)
}
