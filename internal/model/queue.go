package model

import (
	"context"
	"time"
)

// QueueStatus is the lifecycle state of an import queue item.
type QueueStatus string

const (
	StatusPending    QueueStatus = "Pending"
	StatusProcessing QueueStatus = "Processing"
	StatusCompleted  QueueStatus = "Completed"
	StatusFailed     QueueStatus = "Failed"
)

// QueueItem is one URL's import lifecycle record.
type QueueItem struct {
	ID          string      `json:"id"` // ULID; lexical order is queue order
	URL         string      `json:"url"`
	PreferAI    bool        `json:"preferAI"`
	ForceUpdate bool        `json:"forceUpdate"`
	Status      QueueStatus `json:"status"`
	Error       string      `json:"error,omitempty"` // last failure, empty when none
	Note        string      `json:"note,omitempty"`  // completion annotation, e.g. why no listing was created
	ListingID   string      `json:"listingId,omitempty"`
	SubmittedBy string      `json:"submittedBy,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	UpdatedAt   time.Time   `json:"updatedAt"`
}

// CanRetry reports whether an operator may send the item back to Pending.
func (q QueueItem) CanRetry() bool {
	return q.Status == StatusFailed || q.Status == StatusCompleted
}

// QueueCounts holds the number of items per state.
type QueueCounts struct {
	Pending    int `json:"pending"`
	Processing int `json:"processing"`
	Completed  int `json:"completed"`
	Failed     int `json:"failed"`
}

// QueueStore persists import queue items.
type QueueStore interface {
	// Add inserts item. It returns false without error when the URL is already queued.
	Add(ctx context.Context, item *QueueItem) (bool, error)
	Get(ctx context.Context, id string) (*QueueItem, error)
	FindByURL(ctx context.Context, url string) (*QueueItem, error)
	// ListPending returns up to limit Pending items in queue order.
	ListPending(ctx context.Context, limit int) ([]QueueItem, error)
	// Claim moves id from Pending to Processing. It returns false when the
	// item was no longer Pending, i.e. another runner got it first.
	Claim(ctx context.Context, id string) (bool, error)
	// Save writes the mutable fields of item.
	Save(ctx context.Context, item *QueueItem) error
	// Requeue moves a non-Processing item back to Pending atomically.
	Requeue(ctx context.Context, id string, force bool) error
	Counts(ctx context.Context) (QueueCounts, error)
	// Recent returns the newest limit items, newest first.
	Recent(ctx context.Context, limit int) ([]QueueItem, error)
	// ResetFailed moves every Failed item to Pending and clears its error.
	ResetFailed(ctx context.Context) (int, error)
}
