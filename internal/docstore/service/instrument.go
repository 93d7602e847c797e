package service

import (
	"context"
	"time"

	"github.com/jobboard/backend/go-services/internal/docstore"
	"github.com/jobboard/backend/go-services/pkg/metrics"
)

// Instrument wraps every collection handed out by store so that each
// operation is counted and timed under the given backend label.
func Instrument(store docstore.Store, backend string) docstore.Store {
	return &instrumentedStore{Store: store, backend: backend}
}

type instrumentedStore struct {
	docstore.Store
	backend string
}

func (s *instrumentedStore) Collection(name string) docstore.Collection {
	return &instrumentedCollection{inner: s.Store.Collection(name), backend: s.backend}
}

type instrumentedCollection struct {
	inner   docstore.Collection
	backend string
}

func (c *instrumentedCollection) observe(op string, start time.Time, err error) {
	metrics.ObserveOperation(c.backend, c.inner.Name(), op, start, err)
}

func (c *instrumentedCollection) Name() string { return c.inner.Name() }

func (c *instrumentedCollection) FindOne(ctx context.Context, filter docstore.M, opts ...*docstore.FindOneOptions) (docstore.Document, error) {
	start := time.Now()
	d, err := c.inner.FindOne(ctx, filter, opts...)
	c.observe("findOne", start, err)
	return d, err
}

// Find times the materialization: the executor of the returned cursor runs
// the inner cursor with the options accumulated on the outer one.
func (c *instrumentedCollection) Find(filter docstore.M) *docstore.Cursor {
	inner := c.inner.Find(filter)
	return docstore.NewCursor(func(ctx context.Context, _ docstore.M, opts docstore.FindOptions) ([]docstore.Document, error) {
		start := time.Now()
		docs, err := inner.WithOptions(opts).ToArray(ctx)
		c.observe("find", start, err)
		return docs, err
	}, filter)
}

func (c *instrumentedCollection) CountDocuments(ctx context.Context, filter docstore.M) (int64, error) {
	start := time.Now()
	n, err := c.inner.CountDocuments(ctx, filter)
	c.observe("countDocuments", start, err)
	return n, err
}

func (c *instrumentedCollection) InsertOne(ctx context.Context, doc docstore.M) (*docstore.InsertOneResult, error) {
	start := time.Now()
	res, err := c.inner.InsertOne(ctx, doc)
	c.observe("insertOne", start, err)
	return res, err
}

func (c *instrumentedCollection) UpdateOne(ctx context.Context, filter, update docstore.M) (*docstore.UpdateResult, error) {
	start := time.Now()
	res, err := c.inner.UpdateOne(ctx, filter, update)
	c.observe("updateOne", start, err)
	return res, err
}

func (c *instrumentedCollection) UpdateMany(ctx context.Context, filter, update docstore.M) (*docstore.UpdateResult, error) {
	start := time.Now()
	res, err := c.inner.UpdateMany(ctx, filter, update)
	c.observe("updateMany", start, err)
	return res, err
}

func (c *instrumentedCollection) FindOneAndUpdate(ctx context.Context, filter, update docstore.M, opts ...*docstore.FindOneAndUpdateOptions) (docstore.Document, error) {
	start := time.Now()
	d, err := c.inner.FindOneAndUpdate(ctx, filter, update, opts...)
	c.observe("findOneAndUpdate", start, err)
	return d, err
}

func (c *instrumentedCollection) DeleteOne(ctx context.Context, filter docstore.M) (*docstore.DeleteResult, error) {
	start := time.Now()
	res, err := c.inner.DeleteOne(ctx, filter)
	c.observe("deleteOne", start, err)
	return res, err
}

func (c *instrumentedCollection) DeleteMany(ctx context.Context, filter docstore.M) (*docstore.DeleteResult, error) {
	start := time.Now()
	res, err := c.inner.DeleteMany(ctx, filter)
	c.observe("deleteMany", start, err)
	return res, err
}
