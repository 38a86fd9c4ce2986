package ai

import (
	"context"

	"github.com/amishk599/jobimport/internal/model"
)

var _ Extractor = (*DisabledExtractor)(nil)

// DisabledExtractor is used when ai.enabled is false. Every call fails, so
// items that prefer AI go straight to the heuristic path.
type DisabledExtractor struct{}

// NewDisabledExtractor returns a DisabledExtractor.
func NewDisabledExtractor() *DisabledExtractor {
	return &DisabledExtractor{}
}

// Extract always reports that AI extraction is disabled.
func (n *DisabledExtractor) Extract(_ context.Context, _ string) model.ExtractionResult {
	return model.ExtractionFailed("ai extraction disabled")
}
