package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jobboard/backend/go-services/internal/docstore"
)

// MemoryStore keeps every collection in process memory. Data is lost on
// restart. It is the fallback when no persistent backend is reachable and
// the backend used by unit tests.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*MemoryCollection
	closed      bool
	now         func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*MemoryCollection), now: time.Now}
}

// Collection returns the named collection, creating it on first use.
func (s *MemoryStore) Collection(name string) docstore.Collection {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[name]
	if !ok {
		c = &MemoryCollection{name: name, store: s, docs: make(map[string]docstore.Document)}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docstore.ErrStoreClosed
	}
	return nil
}

// Close drops all data.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.collections = make(map[string]*MemoryCollection)
	return nil
}

func (s *MemoryStore) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MemoryCollection holds normalized documents keyed by _id. A per-collection
// mutex makes every read-modify-write sequence atomic.
type MemoryCollection struct {
	name  string
	store *MemoryStore
	mu    sync.RWMutex
	docs  map[string]docstore.Document
}

func (c *MemoryCollection) Name() string { return c.name }

// ready rejects operations on a closed store and on names the SQL backend
// could not use as a table.
func (c *MemoryCollection) ready() error {
	if c.store.isClosed() {
		return docstore.ErrStoreClosed
	}
	if !docstore.ValidCollectionName(c.name) {
		return fmt.Errorf("%w: %q", docstore.ErrInvalidCollection, c.name)
	}
	return nil
}

// matchLocked returns the stored documents matching f. Callers hold c.mu.
func (c *MemoryCollection) matchLocked(f *docstore.Filter) []docstore.Document {
	if id, ok := f.IDLookup(); ok {
		if d, found := c.docs[id]; found {
			return []docstore.Document{d}
		}
		return nil
	}
	var out []docstore.Document
	for _, d := range c.docs {
		if f.Match(d) {
			out = append(out, d)
		}
	}
	return out
}

func (c *MemoryCollection) firstLocked(f *docstore.Filter) docstore.Document {
	if id, ok := f.IDLookup(); ok {
		return c.docs[id]
	}
	for _, d := range c.docs {
		if f.Match(d) {
			return d
		}
	}
	return nil
}

func (c *MemoryCollection) FindOne(ctx context.Context, filter docstore.M, opts ...*docstore.FindOneOptions) (docstore.Document, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	o := docstore.MergeFindOneOptions(opts...)
	f := docstore.ParseFilter(filter)
	c.mu.RLock()
	defer c.mu.RUnlock()
	d := c.firstLocked(f)
	if d == nil {
		return nil, nil
	}
	return docstore.Project(docstore.Canonical(d), o.Projection), nil
}

func (c *MemoryCollection) Find(filter docstore.M) *docstore.Cursor {
	return docstore.NewCursor(c.execute, filter)
}

func (c *MemoryCollection) execute(ctx context.Context, filter docstore.M, opts docstore.FindOptions) ([]docstore.Document, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	f := docstore.ParseFilter(filter)
	c.mu.RLock()
	matched := c.matchLocked(f)
	c.mu.RUnlock()

	docstore.SortDocuments(matched, opts.Sort)
	matched = docstore.Paginate(matched, opts.Skip, opts.Limit)
	out := make([]docstore.Document, 0, len(matched))
	for _, d := range matched {
		out = append(out, docstore.Project(docstore.Canonical(d), opts.Projection))
	}
	return out, nil
}

func (c *MemoryCollection) CountDocuments(ctx context.Context, filter docstore.M) (int64, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	f := docstore.ParseFilter(filter)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return int64(len(c.matchLocked(f))), nil
}

func (c *MemoryCollection) InsertOne(ctx context.Context, doc docstore.M) (*docstore.InsertOneResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	stored, err := docstore.PrepareInsert(doc, c.store.now())
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[stored.ID()] = stored
	return &docstore.InsertOneResult{InsertedID: stored.ID()}, nil
}

func (c *MemoryCollection) UpdateOne(ctx context.Context, filter, update docstore.M) (*docstore.UpdateResult, error) {
	return c.update(filter, update, false)
}

func (c *MemoryCollection) UpdateMany(ctx context.Context, filter, update docstore.M) (*docstore.UpdateResult, error) {
	return c.update(filter, update, true)
}

func (c *MemoryCollection) update(filter, update docstore.M, many bool) (*docstore.UpdateResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	u, err := docstore.ParseUpdate(update)
	if err != nil {
		return nil, err
	}
	f := docstore.ParseFilter(filter)

	c.mu.Lock()
	defer c.mu.Unlock()
	var targets []docstore.Document
	if many {
		targets = c.matchLocked(f)
	} else if d := c.firstLocked(f); d != nil {
		targets = []docstore.Document{d}
	}
	now := c.store.now()
	for _, d := range targets {
		next := docstore.ApplyUpdate(docstore.Clone(d), u, false, now)
		c.docs[d.ID()] = next
	}
	n := int64(len(targets))
	return &docstore.UpdateResult{MatchedCount: n, ModifiedCount: n}, nil
}

func (c *MemoryCollection) FindOneAndUpdate(ctx context.Context, filter, update docstore.M, opts ...*docstore.FindOneAndUpdateOptions) (docstore.Document, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	o := docstore.MergeFindOneAndUpdateOptions(opts...)
	u, err := docstore.ParseUpdate(update)
	if err != nil {
		return nil, err
	}
	f := docstore.ParseFilter(filter)

	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.store.now()
	before := c.firstLocked(f)
	if before == nil {
		if !o.Upsert {
			return nil, nil
		}
		inserted := docstore.ApplyUpdate(f.SeedFields(), u, true, now)
		inserted[docstore.FieldID] = docstore.NewID()
		c.docs[inserted.ID()] = inserted
		if o.ReturnDocument == docstore.Before {
			return nil, nil
		}
		return docstore.Canonical(inserted), nil
	}
	after := docstore.ApplyUpdate(docstore.Clone(before), u, false, now)
	c.docs[before.ID()] = after
	if o.ReturnDocument == docstore.Before {
		return docstore.Canonical(before), nil
	}
	return docstore.Canonical(after), nil
}

func (c *MemoryCollection) DeleteOne(ctx context.Context, filter docstore.M) (*docstore.DeleteResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	f := docstore.ParseFilter(filter)
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.firstLocked(f)
	if d == nil {
		return &docstore.DeleteResult{}, nil
	}
	delete(c.docs, d.ID())
	return &docstore.DeleteResult{DeletedCount: 1}, nil
}

func (c *MemoryCollection) DeleteMany(ctx context.Context, filter docstore.M) (*docstore.DeleteResult, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	f := docstore.ParseFilter(filter)
	if f.IsEmpty() {
		log.Warnf("%s: refusing deleteMany with an empty filter", c.name)
		return &docstore.DeleteResult{}, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	matched := c.matchLocked(f)
	for _, d := range matched {
		delete(c.docs, d.ID())
	}
	return &docstore.DeleteResult{DeletedCount: int64(len(matched))}, nil
}
