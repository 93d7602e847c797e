package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/jobboard/backend/go-services/internal/docstore"
)

// MongoStore keeps normalized documents (string _id, string timestamps) in a
// MongoDB database. Mutations read the current document, run the shared
// update engine and replace the document by _id, so system field handling
// matches the other backends.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	now    func() time.Time

	mu      sync.Mutex
	indexed map[string]bool
}

// NewMongoStore takes ownership of client; Close disconnects it.
func NewMongoStore(client *mongo.Client, database string) *MongoStore {
	return &MongoStore{
		client:  client,
		db:      client.Database(database),
		now:     time.Now,
		indexed: make(map[string]bool),
	}
}

func (s *MongoStore) Collection(name string) docstore.Collection {
	return &MongoCollection{name: name, store: s, col: s.db.Collection(name)}
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// prepare validates the collection name and ensures the created_at index.
func (s *MongoStore) prepare(ctx context.Context, c *MongoCollection) error {
	if !docstore.ValidCollectionName(c.name) {
		return fmt.Errorf("%w: %q", docstore.ErrInvalidCollection, c.name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexed[c.name] {
		return nil
	}
	idx := mongo.IndexModel{Keys: bson.D{{Key: docstore.FieldCreatedAt, Value: 1}}}
	if _, err := c.col.Indexes().CreateOne(ctx, idx); err != nil {
		log.Warnf("%s: create created_at index: %v", c.name, err)
		return nil
	}
	s.indexed[c.name] = true
	return nil
}

type MongoCollection struct {
	name  string
	store *MongoStore
	col   *mongo.Collection
}

func (c *MongoCollection) Name() string { return c.name }

func (c *MongoCollection) wrap(op string, err error) error {
	return fmt.Errorf("mongo %s.%s: %w", c.name, op, err)
}

func (c *MongoCollection) first(ctx context.Context, f *docstore.Filter) (docstore.Document, error) {
	var raw bson.M
	err := c.col.FindOne(ctx, f.BSON()).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return docstore.FromBSON(raw)
}

func (c *MongoCollection) all(ctx context.Context, f *docstore.Filter, opts *options.FindOptions) ([]docstore.Document, error) {
	cur, err := c.col.Find(ctx, f.BSON(), opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var out []docstore.Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, err
		}
		d, err := docstore.FromBSON(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, cur.Err()
}

func (c *MongoCollection) replace(ctx context.Context, doc docstore.Document) error {
	_, err := c.col.ReplaceOne(ctx, bson.M{docstore.FieldID: doc.ID()}, map[string]any(doc))
	return err
}

func (c *MongoCollection) FindOne(ctx context.Context, filter docstore.M, opts ...*docstore.FindOneOptions) (docstore.Document, error) {
	if err := c.store.prepare(ctx, c); err != nil {
		return nil, err
	}
	o := docstore.MergeFindOneOptions(opts...)
	d, err := c.first(ctx, docstore.ParseFilter(filter))
	if err != nil {
		return nil, c.wrap("findOne", err)
	}
	if d == nil {
		return nil, nil
	}
	return docstore.Project(docstore.Canonical(d), o.Projection), nil
}

func (c *MongoCollection) Find(filter docstore.M) *docstore.Cursor {
	return docstore.NewCursor(c.execute, filter)
}

func (c *MongoCollection) execute(ctx context.Context, filter docstore.M, opts docstore.FindOptions) ([]docstore.Document, error) {
	if err := c.store.prepare(ctx, c); err != nil {
		return nil, err
	}
	fo := options.Find()
	if opts.Sort != nil && opts.Sort.Field != "" {
		dir := 1
		if opts.Sort.Direction < 0 {
			dir = -1
		}
		fo.SetSort(bson.D{{Key: opts.Sort.Field, Value: dir}})
	}
	if opts.Skip > 0 {
		fo.SetSkip(opts.Skip)
	}
	if opts.Limit > 0 {
		fo.SetLimit(opts.Limit)
	}
	docs, err := c.all(ctx, docstore.ParseFilter(filter), fo)
	if err != nil {
		return nil, c.wrap("find", err)
	}
	out := make([]docstore.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, docstore.Project(docstore.Canonical(d), opts.Projection))
	}
	return out, nil
}

func (c *MongoCollection) CountDocuments(ctx context.Context, filter docstore.M) (int64, error) {
	if err := c.store.prepare(ctx, c); err != nil {
		return 0, err
	}
	n, err := c.col.CountDocuments(ctx, docstore.ParseFilter(filter).BSON())
	if err != nil {
		return 0, c.wrap("countDocuments", err)
	}
	return n, nil
}

func (c *MongoCollection) InsertOne(ctx context.Context, doc docstore.M) (*docstore.InsertOneResult, error) {
	if err := c.store.prepare(ctx, c); err != nil {
		return nil, err
	}
	stored, err := docstore.PrepareInsert(doc, c.store.now())
	if err != nil {
		return nil, err
	}
	if _, err := c.col.InsertOne(ctx, map[string]any(stored)); err != nil {
		return nil, c.wrap("insertOne", err)
	}
	return &docstore.InsertOneResult{InsertedID: stored.ID()}, nil
}

func (c *MongoCollection) UpdateOne(ctx context.Context, filter, update docstore.M) (*docstore.UpdateResult, error) {
	if err := c.store.prepare(ctx, c); err != nil {
		return nil, err
	}
	u, err := docstore.ParseUpdate(update)
	if err != nil {
		return nil, err
	}
	before, err := c.first(ctx, docstore.ParseFilter(filter))
	if err != nil {
		return nil, c.wrap("updateOne", err)
	}
	if before == nil {
		return &docstore.UpdateResult{}, nil
	}
	if err := c.replace(ctx, docstore.ApplyUpdate(before, u, false, c.store.now())); err != nil {
		return nil, c.wrap("updateOne", err)
	}
	return &docstore.UpdateResult{MatchedCount: 1, ModifiedCount: 1}, nil
}

func (c *MongoCollection) UpdateMany(ctx context.Context, filter, update docstore.M) (*docstore.UpdateResult, error) {
	if err := c.store.prepare(ctx, c); err != nil {
		return nil, err
	}
	u, err := docstore.ParseUpdate(update)
	if err != nil {
		return nil, err
	}
	docs, err := c.all(ctx, docstore.ParseFilter(filter), options.Find())
	if err != nil {
		return nil, c.wrap("updateMany", err)
	}
	res := &docstore.UpdateResult{MatchedCount: int64(len(docs))}
	now := c.store.now()
	for _, d := range docs {
		if err := c.replace(ctx, docstore.ApplyUpdate(d, u, false, now)); err != nil {
			return res, c.wrap("updateMany", err)
		}
		res.ModifiedCount++
	}
	return res, nil
}

func (c *MongoCollection) FindOneAndUpdate(ctx context.Context, filter, update docstore.M, opts ...*docstore.FindOneAndUpdateOptions) (docstore.Document, error) {
	if err := c.store.prepare(ctx, c); err != nil {
		return nil, err
	}
	o := docstore.MergeFindOneAndUpdateOptions(opts...)
	u, err := docstore.ParseUpdate(update)
	if err != nil {
		return nil, err
	}
	f := docstore.ParseFilter(filter)
	before, err := c.first(ctx, f)
	if err != nil {
		return nil, c.wrap("findOneAndUpdate", err)
	}
	now := c.store.now()
	if before == nil {
		if !o.Upsert {
			return nil, nil
		}
		inserted := docstore.ApplyUpdate(f.SeedFields(), u, true, now)
		inserted[docstore.FieldID] = docstore.NewID()
		if _, err := c.col.InsertOne(ctx, map[string]any(inserted)); err != nil {
			return nil, c.wrap("findOneAndUpdate", err)
		}
		if o.ReturnDocument == docstore.Before {
			return nil, nil
		}
		return docstore.Canonical(inserted), nil
	}
	after := docstore.ApplyUpdate(before, u, false, now)
	if err := c.replace(ctx, after); err != nil {
		return nil, c.wrap("findOneAndUpdate", err)
	}
	if o.ReturnDocument == docstore.Before {
		return docstore.Canonical(before), nil
	}
	return docstore.Canonical(after), nil
}

func (c *MongoCollection) DeleteOne(ctx context.Context, filter docstore.M) (*docstore.DeleteResult, error) {
	if err := c.store.prepare(ctx, c); err != nil {
		return nil, err
	}
	res, err := c.col.DeleteOne(ctx, docstore.ParseFilter(filter).BSON())
	if err != nil {
		return nil, c.wrap("deleteOne", err)
	}
	return &docstore.DeleteResult{DeletedCount: res.DeletedCount}, nil
}

func (c *MongoCollection) DeleteMany(ctx context.Context, filter docstore.M) (*docstore.DeleteResult, error) {
	if err := c.store.prepare(ctx, c); err != nil {
		return nil, err
	}
	f := docstore.ParseFilter(filter)
	if f.IsEmpty() {
		log.Warnf("%s: refusing deleteMany with an empty filter", c.name)
		return &docstore.DeleteResult{}, nil
	}
	res, err := c.col.DeleteMany(ctx, f.BSON())
	if err != nil {
		return nil, c.wrap("deleteMany", err)
	}
	return &docstore.DeleteResult{DeletedCount: res.DeletedCount}, nil
}
