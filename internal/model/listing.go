package model

import (
	"context"
	"strings"
	"time"
)

// ListingStatus is the review state of a job listing.
type ListingStatus string

const (
	ListingDraft   ListingStatus = "Draft"
	ListingOpen    ListingStatus = "Open"
	ListingClosed  ListingStatus = "Closed"
	ListingPending ListingStatus = "Pending"
)

// ListingType says where a listing came from.
type ListingType string

const (
	ListingInternal ListingType = "internal"
	ListingExternal ListingType = "external"
	ListingProject  ListingType = "project"
)

// ParseListingType maps free text onto a ListingType. Anything that is not
// internal or project is treated as external.
func ParseListingType(s string) ListingType {
	switch ListingType(strings.ToLower(strings.TrimSpace(s))) {
	case ListingInternal:
		return ListingInternal
	case ListingProject:
		return ListingProject
	default:
		return ListingExternal
	}
}

// Placeholder values used when extraction could not recover a field.
const (
	DefaultTitle           = "Untitled Job"
	DefaultCompany         = "Unknown Company"
	DefaultDescription     = "No description extracted."
	DefaultLocation        = "Remote"
	DefaultSalary          = "Not specified"
	DefaultExperienceLevel = "Entry Level"
	DefaultMarketDemand    = "Medium"
)

// Applicant is a user who applied to a listing. The import pipeline never
// writes applicants; it only has to preserve them across re-scrapes.
type Applicant struct {
	UserID    string    `json:"userId"`
	Status    string    `json:"status"`
	AppliedAt time.Time `json:"appliedAt"`
	ResumeURL string    `json:"resumeUrl,omitempty"`
}

// JobListing is a persisted job posting.
type JobListing struct {
	ID               string
	Title            string
	Company          string
	Description      string
	Location         string
	Salary           string
	EmploymentType   string
	Type             ListingType
	ExperienceLevel  string
	MarketDemand     string
	TechStack        []string
	Requirements     []string
	Responsibilities []string
	Benefits         []string
	RequiredSkills   SkillLevels
	Status           ListingStatus
	ExternalURL      string
	PostedBy         string
	Applicants       []Applicant
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ApplyExtracted overwrites the content fields of l with f. Identity,
// applicants, poster and creation time are left alone.
func (l *JobListing) ApplyExtracted(f ExtractedFields) {
	f = f.WithDefaults()
	l.Title = f.Title
	l.Company = f.Company
	l.Description = f.Description
	l.Location = f.Location
	l.Salary = f.Salary
	l.EmploymentType = f.EmploymentType
	l.Type = ParseListingType(f.Type)
	l.TechStack = f.TechStack
	l.Requirements = f.Requirements
	l.Responsibilities = f.Responsibilities
	l.Benefits = f.Benefits
	l.RequiredSkills = f.RequiredSkills
}

// ListingStore is the durable collection of job listings.
type ListingStore interface {
	// FindByURL returns the listing whose external URL is url, or ErrNotFound.
	FindByURL(ctx context.Context, url string) (*JobListing, error)
	// FindByTitleCompany returns a listing with exactly this title and company, or ErrNotFound.
	FindByTitleCompany(ctx context.Context, title, company string) (*JobListing, error)
	Get(ctx context.Context, id string) (*JobListing, error)
	Create(ctx context.Context, l *JobListing) error
	Update(ctx context.Context, l *JobListing) error
}
