package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/jobboard/backend/go-services/internal/docstore"
)

// SQLStore keeps one table per collection:
//
//	id TEXT PRIMARY KEY, data TEXT (JSON payload, system fields included),
//	created_at TEXT, updated_at TEXT
//
// Tables are created on first use. Filters compile to WHERE clauses over the
// JSON payload (see docstore.Filter.SQL).
type SQLStore struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	now func() time.Time

	mu     sync.Mutex
	tables map[string]bool
	closed bool
}

// NewSQLStore takes ownership of db; Close closes it.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{
		db:     db,
		sb:     sq.StatementBuilder.PlaceholderFormat(sq.Question),
		now:    time.Now,
		tables: make(map[string]bool),
	}
}

func (s *SQLStore) Collection(name string) docstore.Collection {
	return &SQLCollection{name: name, table: `"` + name + `"`, store: s}
}

func (s *SQLStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return docstore.ErrStoreClosed
	}
	return s.db.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}

// ensureTable creates the collection table and its index once per process.
func (s *SQLStore) ensureTable(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return docstore.ErrStoreClosed
	}
	if s.tables[name] {
		return nil
	}
	if !docstore.ValidCollectionName(name) {
		return fmt.Errorf("%w: %q", docstore.ErrInvalidCollection, name)
	}
	ddl := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "%s" (
			id TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`, name),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS "idx_%s_created_at" ON "%s" (created_at)`, name, name),
	}
	for _, stmt := range ddl {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
	}
	s.tables[name] = true
	log.Debugf("collection table %s ready", name)
	return nil
}

// runner is what statements need from *sql.DB and *sql.Tx.
type runner interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// SQLCollection executes collection operations as SQL statements. Every
// read-modify-write (UpdateOne, UpdateMany, FindOneAndUpdate) runs in one
// transaction, which the database package opens with BEGIN IMMEDIATE.
type SQLCollection struct {
	name  string
	table string
	store *SQLStore
}

func (c *SQLCollection) Name() string { return c.name }

func (c *SQLCollection) wrap(op string, err error) error {
	return fmt.Errorf("sql %s.%s: %w", c.name, op, err)
}

// atomically runs fn inside a transaction. The pool holds a single
// connection, so other statements of this process wait until it ends.
func (c *SQLCollection) atomically(ctx context.Context, fn func(r runner) error) error {
	tx, err := c.store.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (c *SQLCollection) selectBuilder(f *docstore.Filter) sq.SelectBuilder {
	q := c.store.sb.Select(docstore.ColumnID, docstore.ColumnData, docstore.ColumnCreatedAt, docstore.ColumnUpdatedAt).From(c.table)
	if where, args := f.SQL(); where != "" {
		q = q.Where(sq.Expr(where, args...))
	}
	return q
}

// query runs a select and decodes every row into a stored document.
func (c *SQLCollection) query(ctx context.Context, r runner, q sq.SelectBuilder) ([]docstore.Document, error) {
	stmt, args, err := q.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []docstore.Document
	for rows.Next() {
		var id, data, createdAt, updatedAt string
		if err := rows.Scan(&id, &data, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		doc, err := rowDocument(id, data, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}

// rowDocument merges the JSON payload with the row's identity and
// timestamps. The id column always wins; the timestamp columns only fill
// fields missing from the payload.
func rowDocument(id, data, createdAt, updatedAt string) (docstore.Document, error) {
	doc := docstore.Document{}
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("decode payload of %s: %w", id, err)
	}
	doc[docstore.FieldID] = id
	if _, ok := doc[docstore.FieldCreatedAt]; !ok {
		doc[docstore.FieldCreatedAt] = createdAt
	}
	if _, ok := doc[docstore.FieldUpdatedAt]; !ok {
		doc[docstore.FieldUpdatedAt] = updatedAt
	}
	return doc, nil
}

func (c *SQLCollection) first(ctx context.Context, r runner, f *docstore.Filter) (docstore.Document, error) {
	docs, err := c.query(ctx, r, c.selectBuilder(f).Limit(1))
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	return docs[0], nil
}

func (c *SQLCollection) FindOne(ctx context.Context, filter docstore.M, opts ...*docstore.FindOneOptions) (docstore.Document, error) {
	if err := c.store.ensureTable(ctx, c.name); err != nil {
		return nil, err
	}
	o := docstore.MergeFindOneOptions(opts...)
	d, err := c.first(ctx, c.store.db, docstore.ParseFilter(filter))
	if err != nil {
		return nil, c.wrap("findOne", err)
	}
	if d == nil {
		return nil, nil
	}
	return docstore.Project(docstore.Canonical(d), o.Projection), nil
}

func (c *SQLCollection) Find(filter docstore.M) *docstore.Cursor {
	return docstore.NewCursor(c.execute, filter)
}

func (c *SQLCollection) execute(ctx context.Context, filter docstore.M, opts docstore.FindOptions) ([]docstore.Document, error) {
	if err := c.store.ensureTable(ctx, c.name); err != nil {
		return nil, err
	}
	q := c.selectBuilder(docstore.ParseFilter(filter))
	if opts.Sort != nil && opts.Sort.Field != "" {
		expr, args := opts.Sort.OrderSQL()
		q = q.OrderByClause(expr, args...)
	}
	switch {
	case opts.Limit > 0:
		q = q.Limit(uint64(opts.Limit))
		if opts.Skip > 0 {
			q = q.Offset(uint64(opts.Skip))
		}
	case opts.Skip > 0:
		// SQLite only accepts OFFSET after a LIMIT clause.
		q = q.Suffix("LIMIT -1 OFFSET ?", opts.Skip)
	}
	docs, err := c.query(ctx, c.store.db, q)
	if err != nil {
		return nil, c.wrap("find", err)
	}
	out := make([]docstore.Document, 0, len(docs))
	for _, d := range docs {
		out = append(out, docstore.Project(docstore.Canonical(d), opts.Projection))
	}
	return out, nil
}

func (c *SQLCollection) CountDocuments(ctx context.Context, filter docstore.M) (int64, error) {
	if err := c.store.ensureTable(ctx, c.name); err != nil {
		return 0, err
	}
	q := c.store.sb.Select("COUNT(*)").From(c.table)
	if where, args := docstore.ParseFilter(filter).SQL(); where != "" {
		q = q.Where(sq.Expr(where, args...))
	}
	var n int64
	if err := q.RunWith(c.store.db).QueryRowContext(ctx).Scan(&n); err != nil {
		return 0, c.wrap("countDocuments", err)
	}
	return n, nil
}

func (c *SQLCollection) insert(ctx context.Context, r runner, doc docstore.Document) error {
	payload, err := docstore.MarshalPayload(doc)
	if err != nil {
		return err
	}
	stmt, args, err := c.store.sb.Insert(c.table).
		Columns(docstore.ColumnID, docstore.ColumnData, docstore.ColumnCreatedAt, docstore.ColumnUpdatedAt).
		Values(doc.ID(), string(payload), doc[docstore.FieldCreatedAt], doc[docstore.FieldUpdatedAt]).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.ExecContext(ctx, stmt, args...)
	return err
}

// write stores the full next payload of an existing row.
func (c *SQLCollection) write(ctx context.Context, r runner, doc docstore.Document) error {
	payload, err := docstore.MarshalPayload(doc)
	if err != nil {
		return err
	}
	stmt, args, err := c.store.sb.Update(c.table).
		Set(docstore.ColumnData, string(payload)).
		Set(docstore.ColumnUpdatedAt, doc[docstore.FieldUpdatedAt]).
		Where(sq.Eq{docstore.ColumnID: doc.ID()}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = r.ExecContext(ctx, stmt, args...)
	return err
}

func (c *SQLCollection) InsertOne(ctx context.Context, doc docstore.M) (*docstore.InsertOneResult, error) {
	if err := c.store.ensureTable(ctx, c.name); err != nil {
		return nil, err
	}
	stored, err := docstore.PrepareInsert(doc, c.store.now())
	if err != nil {
		return nil, err
	}
	if err := c.insert(ctx, c.store.db, stored); err != nil {
		return nil, c.wrap("insertOne", err)
	}
	return &docstore.InsertOneResult{InsertedID: stored.ID()}, nil
}

func (c *SQLCollection) UpdateOne(ctx context.Context, filter, update docstore.M) (*docstore.UpdateResult, error) {
	if err := c.store.ensureTable(ctx, c.name); err != nil {
		return nil, err
	}
	u, err := docstore.ParseUpdate(update)
	if err != nil {
		return nil, err
	}
	f := docstore.ParseFilter(filter)
	res := &docstore.UpdateResult{}
	err = c.atomically(ctx, func(r runner) error {
		before, err := c.first(ctx, r, f)
		if err != nil || before == nil {
			return err
		}
		if err := c.write(ctx, r, docstore.ApplyUpdate(before, u, false, c.store.now())); err != nil {
			return err
		}
		res.MatchedCount, res.ModifiedCount = 1, 1
		return nil
	})
	if err != nil {
		return nil, c.wrap("updateOne", err)
	}
	return res, nil
}

func (c *SQLCollection) UpdateMany(ctx context.Context, filter, update docstore.M) (*docstore.UpdateResult, error) {
	if err := c.store.ensureTable(ctx, c.name); err != nil {
		return nil, err
	}
	u, err := docstore.ParseUpdate(update)
	if err != nil {
		return nil, err
	}
	f := docstore.ParseFilter(filter)
	res := &docstore.UpdateResult{}
	err = c.atomically(ctx, func(r runner) error {
		docs, err := c.query(ctx, r, c.selectBuilder(f))
		if err != nil {
			return err
		}
		now := c.store.now()
		for _, d := range docs {
			if err := c.write(ctx, r, docstore.ApplyUpdate(d, u, false, now)); err != nil {
				return err
			}
		}
		res.MatchedCount = int64(len(docs))
		res.ModifiedCount = res.MatchedCount
		return nil
	})
	if err != nil {
		return nil, c.wrap("updateMany", err)
	}
	return res, nil
}

func (c *SQLCollection) FindOneAndUpdate(ctx context.Context, filter, update docstore.M, opts ...*docstore.FindOneAndUpdateOptions) (docstore.Document, error) {
	if err := c.store.ensureTable(ctx, c.name); err != nil {
		return nil, err
	}
	o := docstore.MergeFindOneAndUpdateOptions(opts...)
	u, err := docstore.ParseUpdate(update)
	if err != nil {
		return nil, err
	}
	f := docstore.ParseFilter(filter)
	var before, after docstore.Document
	err = c.atomically(ctx, func(r runner) error {
		var err error
		before, err = c.first(ctx, r, f)
		if err != nil {
			return err
		}
		now := c.store.now()
		if before == nil {
			if !o.Upsert {
				return nil
			}
			after = docstore.ApplyUpdate(f.SeedFields(), u, true, now)
			after[docstore.FieldID] = docstore.NewID()
			return c.insert(ctx, r, after)
		}
		after = docstore.ApplyUpdate(before, u, false, now)
		return c.write(ctx, r, after)
	})
	if err != nil {
		return nil, c.wrap("findOneAndUpdate", err)
	}
	doc := after
	if o.ReturnDocument == docstore.Before {
		doc = before
	}
	if doc == nil {
		return nil, nil
	}
	return docstore.Canonical(doc), nil
}

func (c *SQLCollection) DeleteOne(ctx context.Context, filter docstore.M) (*docstore.DeleteResult, error) {
	if err := c.store.ensureTable(ctx, c.name); err != nil {
		return nil, err
	}
	sub, args, err := c.store.sb.Select(docstore.ColumnID).From(c.table).
		Where(sqlWhere(docstore.ParseFilter(filter))).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}
	res, err := c.store.sb.Delete(c.table).
		Where(sq.Expr(docstore.ColumnID+" IN ("+sub+")", args...)).
		RunWith(c.store.db).ExecContext(ctx)
	if err != nil {
		return nil, c.wrap("deleteOne", err)
	}
	n, _ := res.RowsAffected()
	return &docstore.DeleteResult{DeletedCount: n}, nil
}

func (c *SQLCollection) DeleteMany(ctx context.Context, filter docstore.M) (*docstore.DeleteResult, error) {
	if err := c.store.ensureTable(ctx, c.name); err != nil {
		return nil, err
	}
	f := docstore.ParseFilter(filter)
	if f.IsEmpty() {
		log.Warnf("%s: refusing deleteMany with an empty filter", c.name)
		return &docstore.DeleteResult{}, nil
	}
	res, err := c.store.sb.Delete(c.table).Where(sqlWhere(f)).RunWith(c.store.db).ExecContext(ctx)
	if err != nil {
		return nil, c.wrap("deleteMany", err)
	}
	n, _ := res.RowsAffected()
	return &docstore.DeleteResult{DeletedCount: n}, nil
}

// sqlWhere returns the compiled filter as a squirrel predicate; an empty
// filter becomes a literal true.
func sqlWhere(f *docstore.Filter) sq.Sqlizer {
	where, args := f.SQL()
	if where == "" {
		return sq.Expr("1")
	}
	return sq.Expr(where, args...)
}
