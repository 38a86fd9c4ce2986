package importer

import "github.com/amishk599/jobimport/internal/model"

// Outcome is what a batch did with one queue item.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeUpdated   Outcome = "updated"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeFailed    Outcome = "failed"
)

// Notes recorded on items completed without a new listing.
const (
	NoteDuplicateURL          = "Duplicate: Job with this URL already exists."
	NoteDuplicateTitleCompany = "Duplicate: Job with this Title and Company already exists."
)

// AIDegradedNote is appended to descriptions produced by heuristic
// extraction after the AI extractor failed.
const AIDegradedNote = "\n\n[Note: AI extraction failed, basic details only.]"

// EnqueueResult counts submitted URLs.
type EnqueueResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// ItemOutcome describes one processed item.
type ItemOutcome struct {
	ItemID    string  `json:"itemId"`
	URL       string  `json:"url"`
	Outcome   Outcome `json:"outcome"`
	ListingID string  `json:"listingId,omitempty"`
	Message   string  `json:"message,omitempty"`
}

// BatchReport aggregates one RunBatch call. Created and updated listings
// both count as succeeded.
type BatchReport struct {
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Duplicates int           `json:"duplicates"`
	Items      []ItemOutcome `json:"items"`
}

// Empty reports whether the batch found nothing to do.
func (r BatchReport) Empty() bool { return len(r.Items) == 0 }

func (r *BatchReport) add(o ItemOutcome) {
	switch o.Outcome {
	case OutcomeCreated, OutcomeUpdated:
		r.Succeeded++
	case OutcomeDuplicate:
		r.Duplicates++
	case OutcomeFailed:
		r.Failed++
	}
	r.Items = append(r.Items, o)
}

// RecentItem is a queue item as shown in the status view.
type RecentItem struct {
	model.QueueItem
	CanRetry bool `json:"canRetry"`
}

// StatusReport is the queue status view: counts per state and the most
// recent items, newest first.
type StatusReport struct {
	Counts model.QueueCounts `json:"counts"`
	Recent []RecentItem      `json:"recent"`
}
