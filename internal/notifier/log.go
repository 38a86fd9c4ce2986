package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobimport/internal/importer"
	"github.com/amishk599/jobimport/internal/scheduler"
)

// Ensure LogNotifier implements scheduler.Notifier.
var _ scheduler.Notifier = (*LogNotifier)(nil)

// LogNotifier writes batch reports to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each batch via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyBatch logs the batch totals and one line per failed item.
// Returns nil (stdout logging does not fail).
func (n *LogNotifier) NotifyBatch(_ context.Context, r importer.BatchReport) error {
	n.logger.Info("import batch finished",
		"succeeded", r.Succeeded,
		"failed", r.Failed,
		"duplicates", r.Duplicates,
	)
	for _, it := range r.Items {
		if it.Outcome == importer.OutcomeFailed {
			n.logger.Info("import failed", "id", it.ItemID, "url", it.URL, "error", it.Message)
		}
	}
	return nil
}
