package jobs

import "time"

// Statuses a job posting moves through.
const (
	StatusActive   = "active"
	StatusClosed   = "closed"
	StatusArchived = "archived"
)

// Job is a posting in the jobs collection.
type Job struct {
	ID          string    `json:"id" bson:"_id,omitempty"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	EmployerID  string    `json:"employerId" bson:"employer_id"`
	CompanyID   string    `json:"companyId,omitempty" bson:"company_id,omitempty"`
	Location    string    `json:"location,omitempty" bson:"location,omitempty"`
	Status      string    `json:"status" bson:"status"`
	Tags        []string  `json:"tags,omitempty" bson:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updated_at"`
}

// Query narrows a job listing. Zero values mean "any".
type Query struct {
	Status     string
	EmployerID string
	// Search is matched case-insensitively against title and description.
	Search    string
	Locations []string
	Since     time.Time
	Skip      int64
	Limit     int64
}
