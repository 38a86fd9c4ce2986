package model

import "context"

// ExtractedFields is the normalized shape every extraction strategy produces.
type ExtractedFields struct {
	Title            string
	Company          string
	Description      string
	Location         string
	Salary           string
	EmploymentType   string
	Type             string
	TechStack        []string
	RequiredSkills   SkillLevels
	Requirements     []string
	Responsibilities []string
	Benefits         []string
}

// WithDefaults fills blank scalar fields with placeholders and replaces nil
// slices with empty ones so persisted listings never carry null arrays.
func (f ExtractedFields) WithDefaults() ExtractedFields {
	if f.Title == "" {
		f.Title = DefaultTitle
	}
	if f.Company == "" {
		f.Company = DefaultCompany
	}
	if f.Description == "" {
		f.Description = DefaultDescription
	}
	if f.Location == "" {
		f.Location = DefaultLocation
	}
	if f.Salary == "" {
		f.Salary = DefaultSalary
	}
	f.TechStack = nonNil(f.TechStack)
	f.Requirements = nonNil(f.Requirements)
	f.Responsibilities = nonNil(f.Responsibilities)
	f.Benefits = nonNil(f.Benefits)
	return f
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// ExtractionResult is the outcome of an extraction attempt that is allowed
// to fail: either Fields is usable, or Reason says why not.
type ExtractionResult struct {
	Fields ExtractedFields
	Reason string
	ok     bool
}

// Extracted wraps a successful extraction.
func Extracted(f ExtractedFields) ExtractionResult {
	return ExtractionResult{Fields: f, ok: true}
}

// ExtractionFailed wraps a failed extraction.
func ExtractionFailed(reason string) ExtractionResult {
	if reason == "" {
		reason = "unknown extraction failure"
	}
	return ExtractionResult{Reason: reason}
}

func (r ExtractionResult) OK() bool { return r.ok }

// Err returns the failure as an *ExtractionError, or nil on success.
func (r ExtractionResult) Err() error {
	if r.ok {
		return nil
	}
	return &ExtractionError{Reason: r.Reason}
}

// PageFetcher retrieves the raw body of a page.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}
