package jobs

import (
	"context"
	"errors"

	"github.com/jobboard/backend/go-services/internal/docstore"
)

// CollectionName is the collection holding job postings.
const CollectionName = "jobs"

var ErrNotFound = errors.New("job not found")

// Repository stores jobs in a document collection.
type Repository struct {
	col docstore.Collection
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{col: store.Collection(CollectionName)}
}

// Create inserts j and returns its new id. A missing status defaults to active.
func (r *Repository) Create(ctx context.Context, j *Job) (string, error) {
	status := j.Status
	if status == "" {
		status = StatusActive
	}
	doc := docstore.M{
		"title":       j.Title,
		"description": j.Description,
		"employer_id": j.EmployerID,
		"company_id":  j.CompanyID,
		"location":    j.Location,
		"status":      status,
	}
	if len(j.Tags) > 0 {
		doc["tags"] = j.Tags
	}
	res, err := r.col.InsertOne(ctx, doc)
	if err != nil {
		return "", err
	}
	return res.InsertedID, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Job, error) {
	d, err := r.col.FindOne(ctx, docstore.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrNotFound
	}
	return decode(d)
}

func (q Query) filter() docstore.M {
	f := docstore.M{}
	if q.Status != "" {
		f["status"] = q.Status
	}
	if q.EmployerID != "" {
		f["employer_id"] = q.EmployerID
	}
	if q.Search != "" {
		f["$or"] = []docstore.M{
			{"title": docstore.Regex{Pattern: q.Search}},
			{"description": docstore.Regex{Pattern: q.Search}},
		}
	}
	if len(q.Locations) > 0 {
		f["location"] = docstore.M{"$in": q.Locations}
	}
	if !q.Since.IsZero() {
		f["created_at"] = docstore.M{"$gte": q.Since}
	}
	return f
}

// List returns matching jobs, newest first.
func (r *Repository) List(ctx context.Context, q Query) ([]*Job, error) {
	docs, err := r.col.Find(q.filter()).Sort("created_at", -1).Skip(q.Skip).Limit(q.Limit).ToArray(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*Job, 0, len(docs))
	for _, d := range docs {
		j, err := decode(d)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, nil
}

// Count ignores the paging fields of q.
func (r *Repository) Count(ctx context.Context, q Query) (int64, error) {
	return r.col.CountDocuments(ctx, q.filter())
}

func (r *Repository) SetStatus(ctx context.Context, id, status string) error {
	res, err := r.col.UpdateOne(ctx, docstore.M{"_id": id}, docstore.M{"$set": docstore.M{"status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ArchiveByEmployer archives every non-archived job of an employer and
// returns how many changed.
func (r *Repository) ArchiveByEmployer(ctx context.Context, employerID string) (int64, error) {
	res, err := r.col.UpdateMany(ctx,
		docstore.M{"employer_id": employerID, "status": docstore.M{"$ne": StatusArchived}},
		docstore.M{"$set": docstore.M{"status": StatusArchived}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *Repository) Delete(ctx context.Context, id string) error {
	res, err := r.col.DeleteOne(ctx, docstore.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByEmployer removes all jobs of an employer. An empty employer id
// deletes nothing.
func (r *Repository) DeleteByEmployer(ctx context.Context, employerID string) (int64, error) {
	if employerID == "" {
		return 0, nil
	}
	res, err := r.col.DeleteMany(ctx, docstore.M{"employer_id": employerID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func decode(d docstore.Document) (*Job, error) {
	var j Job
	if err := docstore.Decode(d, &j); err != nil {
		return nil, err
	}
	return &j, nil
}
