package docstore

// Sort is a single sort key. Direction is 1 (ascending) or -1 (descending).
type Sort struct {
	Field     string
	Direction int
}

// FindOptions describes the slice of a query a Cursor materializes.
type FindOptions struct {
	Sort       *Sort
	Skip       int64
	Limit      int64
	Projection M
}

// FindOneOptions configures FindOne.
type FindOneOptions struct {
	Projection M
}

// FindOne returns an empty FindOneOptions builder.
func FindOne() *FindOneOptions { return &FindOneOptions{} }

// SetProjection sets the projection applied to the returned document.
func (o *FindOneOptions) SetProjection(p M) *FindOneOptions {
	o.Projection = p
	return o
}

// ReturnDocument selects which version FindOneAndUpdate returns.
type ReturnDocument int

const (
	// Before returns the document as it was before the update (nil on upsert-insert).
	Before ReturnDocument = iota
	// After returns the updated or inserted document.
	After
)

// FindOneAndUpdateOptions configures FindOneAndUpdate.
type FindOneAndUpdateOptions struct {
	Upsert         bool
	ReturnDocument ReturnDocument
}

// FindOneAndUpdate returns an options builder with ReturnDocument set to After.
func FindOneAndUpdate() *FindOneAndUpdateOptions {
	return &FindOneAndUpdateOptions{ReturnDocument: After}
}

// SetUpsert enables insert-if-absent.
func (o *FindOneAndUpdateOptions) SetUpsert(b bool) *FindOneAndUpdateOptions {
	o.Upsert = b
	return o
}

// SetReturnDocument selects the returned version.
func (o *FindOneAndUpdateOptions) SetReturnDocument(rd ReturnDocument) *FindOneAndUpdateOptions {
	o.ReturnDocument = rd
	return o
}

// MergeFindOneOptions folds variadic options, last one wins.
func MergeFindOneOptions(opts ...*FindOneOptions) FindOneOptions {
	var out FindOneOptions
	for _, o := range opts {
		if o != nil && o.Projection != nil {
			out.Projection = o.Projection
		}
	}
	return out
}

// MergeFindOneAndUpdateOptions folds variadic options, last one wins. With no
// options the result is {Upsert: false, ReturnDocument: After}.
func MergeFindOneAndUpdateOptions(opts ...*FindOneAndUpdateOptions) FindOneAndUpdateOptions {
	out := FindOneAndUpdateOptions{ReturnDocument: After}
	for _, o := range opts {
		if o != nil {
			out = *o
		}
	}
	return out
}

// InsertOneResult is returned by InsertOne.
type InsertOneResult struct {
	InsertedID string
}

// UpdateResult is returned by UpdateOne and UpdateMany.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// DeleteResult is returned by DeleteOne and DeleteMany.
type DeleteResult struct {
	DeletedCount int64
}
