package docstore

import (
	"context"
	"errors"
	"regexp"
)

var (
	// ErrInvalidCollection is returned for collection names that cannot be
	// used as a table name.
	ErrInvalidCollection = errors.New("invalid collection name")
	// ErrStoreClosed is returned by operations on a closed store.
	ErrStoreClosed = errors.New("store is closed")
)

var collectionNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidCollectionName reports whether name is usable on every backend.
func ValidCollectionName(name string) bool {
	return collectionNamePattern.MatchString(name)
}

// Collection is a named set of documents. Not-found conditions are reported
// as nil documents or zero counts, never as errors.
type Collection interface {
	Name() string

	FindOne(ctx context.Context, filter M, opts ...*FindOneOptions) (Document, error)
	Find(filter M) *Cursor
	CountDocuments(ctx context.Context, filter M) (int64, error)

	InsertOne(ctx context.Context, doc M) (*InsertOneResult, error)
	UpdateOne(ctx context.Context, filter, update M) (*UpdateResult, error)
	// UpdateMany applies the update document by document; it is not atomic
	// as a batch.
	UpdateMany(ctx context.Context, filter, update M) (*UpdateResult, error)
	FindOneAndUpdate(ctx context.Context, filter, update M, opts ...*FindOneAndUpdateOptions) (Document, error)

	DeleteOne(ctx context.Context, filter M) (*DeleteResult, error)
	// DeleteMany with a filter that selects everything deletes nothing.
	DeleteMany(ctx context.Context, filter M) (*DeleteResult, error)
}

// Store owns a backend and hands out collections, created on first use.
type Store interface {
	Collection(name string) Collection
	Ping(ctx context.Context) error
	Close() error
}
