package importer

import (
	"context"

	"github.com/amishk599/jobimport/internal/model"
)

// Extractor asks an AI service for a page's fields. A failed result sends
// the item to heuristic extraction.
type Extractor interface {
	Extract(ctx context.Context, page string) model.ExtractionResult
}

// URLFilter decides whether a submitted URL may be queued.
type URLFilter interface {
	Match(rawURL string) bool
}
