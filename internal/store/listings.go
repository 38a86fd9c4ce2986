package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobimport/internal/model"
)

var _ model.ListingStore = (*ListingStore)(nil)

// ListingStore is the SQLite job_listings table. List-valued fields are
// stored as JSON arrays.
type ListingStore struct {
	db *sql.DB
}

const listingColumns = `id, title, company, description, location, salary, employment_type, type,
	experience_level, market_demand, tech_stack, requirements, responsibilities, benefits,
	required_skills, applicants, status, external_url, posted_by, created_at, updated_at`

// FindByURL returns the oldest listing whose external URL is url.
func (l *ListingStore) FindByURL(ctx context.Context, url string) (*model.JobListing, error) {
	if url == "" {
		return nil, model.ErrNotFound
	}
	row := l.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM job_listings WHERE external_url = ? ORDER BY created_at LIMIT 1`, url)
	listing, err := scanListing(row)
	if err != nil {
		return nil, fmt.Errorf("finding listing for %s: %w", url, err)
	}
	return listing, nil
}

// FindByTitleCompany returns the oldest listing with exactly this title and company.
func (l *ListingStore) FindByTitleCompany(ctx context.Context, title, company string) (*model.JobListing, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT `+listingColumns+` FROM job_listings WHERE title = ? AND company = ? ORDER BY created_at LIMIT 1`,
		title, company)
	listing, err := scanListing(row)
	if err != nil {
		return nil, fmt.Errorf("finding listing %q at %q: %w", title, company, err)
	}
	return listing, nil
}

// Get returns the listing with the given ID, or model.ErrNotFound.
func (l *ListingStore) Get(ctx context.Context, id string) (*model.JobListing, error) {
	row := l.db.QueryRowContext(ctx, `SELECT `+listingColumns+` FROM job_listings WHERE id = ?`, id)
	listing, err := scanListing(row)
	if err != nil {
		return nil, fmt.Errorf("getting listing %s: %w", id, err)
	}
	return listing, nil
}

// Create inserts listing, assigning a UUID and timestamps when unset.
func (l *ListingStore) Create(ctx context.Context, listing *model.JobListing) error {
	now := time.Now().UTC()
	if listing.ID == "" {
		listing.ID = uuid.NewString()
	}
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = now
	}
	listing.UpdatedAt = now

	cols, err := encodeListing(listing)
	if err != nil {
		return fmt.Errorf("creating listing: %w", err)
	}
	_, err = l.db.ExecContext(ctx,
		`INSERT INTO job_listings (`+listingColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		append([]any{listing.ID}, append(cols, formatTime(listing.CreatedAt), formatTime(listing.UpdatedAt))...)...,
	)
	if err != nil {
		return fmt.Errorf("creating listing %q: %w", listing.Title, err)
	}
	return nil
}

// Update overwrites every stored field of listing except its ID and creation time.
func (l *ListingStore) Update(ctx context.Context, listing *model.JobListing) error {
	listing.UpdatedAt = time.Now().UTC()

	cols, err := encodeListing(listing)
	if err != nil {
		return fmt.Errorf("updating listing %s: %w", listing.ID, err)
	}
	res, err := l.db.ExecContext(ctx,
		`UPDATE job_listings SET
			title = ?, company = ?, description = ?, location = ?, salary = ?, employment_type = ?, type = ?,
			experience_level = ?, market_demand = ?, tech_stack = ?, requirements = ?, responsibilities = ?,
			benefits = ?, required_skills = ?, applicants = ?, status = ?, external_url = ?, posted_by = ?,
			updated_at = ?
		 WHERE id = ?`,
		append(cols, formatTime(listing.UpdatedAt), listing.ID)...,
	)
	if err != nil {
		return fmt.Errorf("updating listing %s: %w", listing.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("updating listing %s: %w", listing.ID, model.ErrNotFound)
	}
	return nil
}

// encodeListing returns the column values from title through posted_by.
func encodeListing(l *model.JobListing) ([]any, error) {
	jsonCols := make([]string, 0, 6)
	for _, v := range []any{
		nonNilStrings(l.TechStack), nonNilStrings(l.Requirements), nonNilStrings(l.Responsibilities),
		nonNilStrings(l.Benefits), l.RequiredSkills, nonNilApplicants(l.Applicants),
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encoding list column: %w", err)
		}
		jsonCols = append(jsonCols, string(b))
	}
	return []any{
		l.Title, l.Company, l.Description, l.Location, l.Salary, l.EmploymentType, string(l.Type),
		l.ExperienceLevel, l.MarketDemand,
		jsonCols[0], jsonCols[1], jsonCols[2], jsonCols[3], jsonCols[4], jsonCols[5],
		string(l.Status), l.ExternalURL, l.PostedBy,
	}, nil
}

func scanListing(s scanner) (*model.JobListing, error) {
	var (
		l                                                   model.JobListing
		typ, status                                         string
		techStack, requirements, responsibilities, benefits string
		requiredSkills, applicants, createdAt, updatedAt    string
	)
	err := s.Scan(&l.ID, &l.Title, &l.Company, &l.Description, &l.Location, &l.Salary, &l.EmploymentType, &typ,
		&l.ExperienceLevel, &l.MarketDemand, &techStack, &requirements, &responsibilities, &benefits,
		&requiredSkills, &applicants, &status, &l.ExternalURL, &l.PostedBy, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	for _, col := range []struct {
		raw string
		dst any
	}{
		{techStack, &l.TechStack},
		{requirements, &l.Requirements},
		{responsibilities, &l.Responsibilities},
		{benefits, &l.Benefits},
		{requiredSkills, &l.RequiredSkills},
		{applicants, &l.Applicants},
	} {
		if err := json.Unmarshal([]byte(col.raw), col.dst); err != nil {
			return nil, fmt.Errorf("decoding list column of listing %s: %w", l.ID, err)
		}
	}

	l.Type = model.ListingType(typ)
	l.Status = model.ListingStatus(status)
	l.CreatedAt = parseTime(createdAt)
	l.UpdatedAt = parseTime(updatedAt)
	return &l, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilApplicants(a []model.Applicant) []model.Applicant {
	if a == nil {
		return []model.Applicant{}
	}
	return a
}
