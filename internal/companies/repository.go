package companies

import (
	"context"
	"time"

	"github.com/jobboard/backend/go-services/internal/docstore"
)

// CollectionName holds one parameters document per employer.
const CollectionName = "company_parameters"

// Parameters are the per-employer company page settings.
type Parameters struct {
	ID         string    `json:"id" bson:"_id,omitempty"`
	EmployerID string    `json:"employerId" bson:"employer_id"`
	LogoURL    string    `json:"logoUrl,omitempty" bson:"logo_url,omitempty"`
	BannerURL  string    `json:"bannerUrl,omitempty" bson:"banner_url,omitempty"`
	Theme      string    `json:"theme,omitempty" bson:"theme,omitempty"`
	CreatedAt  time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt  time.Time `json:"updatedAt" bson:"updated_at"`
}

// DefaultTheme is stored when an employer's parameters are first created.
const DefaultTheme = "light"

type Repository struct {
	col docstore.Collection
}

func NewRepository(store docstore.Store) *Repository {
	return &Repository{col: store.Collection(CollectionName)}
}

// upsert applies update to the employer's parameters, creating them on first use.
func (r *Repository) upsert(ctx context.Context, employerID string, update docstore.M) (*Parameters, error) {
	update["$setOnInsert"] = docstore.M{"theme": DefaultTheme}
	opts := docstore.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(docstore.After)
	d, err := r.col.FindOneAndUpdate(ctx, docstore.M{"employer_id": employerID}, update, opts)
	if err != nil {
		return nil, err
	}
	var p Parameters
	if err := docstore.Decode(d, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// SetLogo records the employer's logo URL.
func (r *Repository) SetLogo(ctx context.Context, employerID, url string) (*Parameters, error) {
	return r.upsert(ctx, employerID, docstore.M{"$set": docstore.M{"logo_url": url}})
}

func (r *Repository) SetBanner(ctx context.Context, employerID, url string) (*Parameters, error) {
	return r.upsert(ctx, employerID, docstore.M{"$set": docstore.M{"banner_url": url}})
}

// RemoveLogo clears the logo; the parameters document stays.
func (r *Repository) RemoveLogo(ctx context.Context, employerID string) (*Parameters, error) {
	return r.upsert(ctx, employerID, docstore.M{"$unset": docstore.M{"logo_url": ""}})
}

// Get returns nil when the employer has no parameters yet.
func (r *Repository) Get(ctx context.Context, employerID string) (*Parameters, error) {
	d, err := r.col.FindOne(ctx, docstore.M{"employer_id": employerID})
	if err != nil || d == nil {
		return nil, err
	}
	var p Parameters
	if err := docstore.Decode(d, &p); err != nil {
		return nil, err
	}
	return &p, nil
}
