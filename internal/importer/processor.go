package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/amishk599/jobimport/internal/extract"
	"github.com/amishk599/jobimport/internal/metrics"
	"github.com/amishk599/jobimport/internal/model"
)

const (
	DefaultBatchSize   = 5
	DefaultRecentLimit = 20
)

// recordTimeout bounds the terminal-state write of an item. It runs on a
// context detached from the batch, so an item whose batch was cancelled
// mid-fetch still ends up Completed or Failed instead of Processing.
const recordTimeout = 5 * time.Second

// Options tunes a Processor. Zero values select the defaults.
type Options struct {
	BatchSize   int
	RecentLimit int
}

// Processor owns the import pipeline for queued URLs:
// claim → dedup → fetch → extract → dedup → persist → record outcome.
type Processor struct {
	queue    model.QueueStore
	listings model.ListingStore
	fetcher  model.PageFetcher
	ai       Extractor
	filter   URLFilter
	opts     Options
	logger   *slog.Logger
}

// NewProcessor creates a processor wired with all its dependencies. A nil
// filter accepts every URL.
func NewProcessor(
	queue model.QueueStore,
	listings model.ListingStore,
	fetcher model.PageFetcher,
	ai Extractor,
	filter URLFilter,
	opts Options,
	logger *slog.Logger,
) *Processor {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.RecentLimit <= 0 {
		opts.RecentLimit = DefaultRecentLimit
	}
	return &Processor{
		queue:    queue,
		listings: listings,
		fetcher:  fetcher,
		ai:       ai,
		filter:   filter,
		opts:     opts,
		logger:   logger,
	}
}

// Enqueue adds each URL that is not already queued or imported. Blank
// entries are ignored; URLs rejected by the filter count as skipped.
func (p *Processor) Enqueue(ctx context.Context, urls []string, submittedBy string, preferAI bool) (EnqueueResult, error) {
	var res EnqueueResult
	defer func() { metrics.AddEnqueued(res.Added, res.Skipped) }()

	for _, raw := range urls {
		u := strings.TrimSpace(raw)
		if u == "" {
			continue
		}
		if p.filter != nil && !p.filter.Match(u) {
			p.logger.Debug("url rejected by filter", "url", u)
			res.Skipped++
			continue
		}

		_, err := p.listings.FindByURL(ctx, u)
		switch {
		case err == nil:
			res.Skipped++
			continue
		case !errors.Is(err, model.ErrNotFound):
			return res, &model.PersistenceError{Op: "enqueue: looking up listing", Err: err}
		}

		added, err := p.queue.Add(ctx, &model.QueueItem{
			URL:         u,
			PreferAI:    preferAI,
			Status:      model.StatusPending,
			SubmittedBy: submittedBy,
		})
		if err != nil {
			return res, &model.PersistenceError{Op: "enqueue: adding " + u, Err: err}
		}
		if added {
			res.Added++
		} else {
			res.Skipped++
		}
	}

	p.logger.Info("enqueued urls", "added", res.Added, "skipped", res.Skipped, "submitted_by", submittedBy)
	return res, nil
}

// RunBatch processes up to BatchSize pending items in queue order. Item
// failures are recorded on the item and never abort the batch; only a
// failure to list pending items is returned. Items claimed by another
// runner in the meantime are skipped.
func (p *Processor) RunBatch(ctx context.Context) (BatchReport, error) {
	var report BatchReport

	items, err := p.queue.ListPending(ctx, p.opts.BatchSize)
	if err != nil {
		return report, &model.PersistenceError{Op: "listing pending items", Err: err}
	}
	if len(items) == 0 {
		return report, nil
	}

	for i := range items {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("batch interrupted", "processed", len(report.Items), "remaining", len(items)-i)
			return report, err
		}
		item := items[i]

		claimed, err := p.queue.Claim(ctx, item.ID)
		if err != nil {
			// Not ours to touch: the row may belong to another runner now.
			p.logger.Error("failed to claim item, leaving it as is", "id", item.ID, "url", item.URL, "error", err)
			metrics.IncItem("claim_error")
			continue
		}
		if !claimed {
			p.logger.Debug("item claimed elsewhere", "id", item.ID)
			continue
		}
		item.Status = model.StatusProcessing

		out := p.process(ctx, &item)
		metrics.IncItem(string(out.Outcome))
		report.add(out)
	}

	p.logger.Info("batch complete",
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"duplicates", report.Duplicates,
	)
	return report, nil
}

// process runs one claimed item to a terminal state.
func (p *Processor) process(ctx context.Context, item *model.QueueItem) (out ItemOutcome) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic while processing item", "id", item.ID, "url", item.URL, "panic", r)
			out = p.fail(ctx, item, fmt.Sprintf("internal error: %v", r))
		}
	}()

	existing, err := p.listings.FindByURL(ctx, item.URL)
	switch {
	case err == nil:
		if !item.ForceUpdate {
			return p.complete(ctx, item, OutcomeDuplicate, existing.ID, NoteDuplicateURL)
		}
	case errors.Is(err, model.ErrNotFound):
		existing = nil
	default:
		return p.fail(ctx, item, fmt.Sprintf("looking up listing: %v", err))
	}

	start := time.Now()
	page, err := p.fetcher.Fetch(ctx, item.URL)
	metrics.ObserveFetch(time.Since(start), err == nil)
	if err != nil {
		return p.fail(ctx, item, err.Error())
	}

	fields := p.extractFields(ctx, page, item.PreferAI, item.URL)

	if existing != nil {
		existing.ApplyExtracted(fields)
		existing.Status = model.ListingDraft
		if err := p.listings.Update(ctx, existing); err != nil {
			return p.fail(ctx, item, (&model.PersistenceError{Op: "updating listing", Err: err}).Error())
		}
		p.logger.Info("updated listing", "url", item.URL, "listing_id", existing.ID)
		return p.complete(ctx, item, OutcomeUpdated, existing.ID, "")
	}

	if !item.ForceUpdate {
		dup, err := p.listings.FindByTitleCompany(ctx, fields.Title, fields.Company)
		switch {
		case err == nil:
			return p.complete(ctx, item, OutcomeDuplicate, dup.ID, NoteDuplicateTitleCompany)
		case !errors.Is(err, model.ErrNotFound):
			return p.fail(ctx, item, fmt.Sprintf("looking up listing by title and company: %v", err))
		}
	}

	listing := &model.JobListing{
		Status:          model.ListingDraft,
		ExternalURL:     item.URL,
		PostedBy:        item.SubmittedBy,
		ExperienceLevel: model.DefaultExperienceLevel,
		MarketDemand:    model.DefaultMarketDemand,
		Applicants:      []model.Applicant{},
	}
	listing.ApplyExtracted(fields)
	if err := p.listings.Create(ctx, listing); err != nil {
		return p.fail(ctx, item, (&model.PersistenceError{Op: "creating listing", Err: err}).Error())
	}
	p.logger.Info("imported listing",
		"url", item.URL,
		"listing_id", listing.ID,
		"title", listing.Title,
		"company", listing.Company,
	)
	return p.complete(ctx, item, OutcomeCreated, listing.ID, "")
}

// extractFields tries the AI extractor when asked to and falls back to
// heuristic extraction, marking the description when the AI failed.
func (p *Processor) extractFields(ctx context.Context, page string, preferAI bool, url string) model.ExtractedFields {
	if preferAI && p.ai != nil {
		res := p.ai.Extract(ctx, page)
		if res.OK() {
			return res.Fields.WithDefaults()
		}
		p.logger.Warn("ai extraction failed, using basic extraction", "url", url, "reason", res.Reason)
		metrics.IncAIFallback()
		fields := extract.Basic(page)
		fields.Description += AIDegradedNote
		return fields
	}
	return extract.Basic(page)
}

// record writes item's terminal state on a context that outlives ctx.
func (p *Processor) record(ctx context.Context, item *model.QueueItem) error {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	return p.queue.Save(rctx, item)
}

func (p *Processor) complete(ctx context.Context, item *model.QueueItem, outcome Outcome, listingID, note string) ItemOutcome {
	item.Status = model.StatusCompleted
	item.ListingID = listingID
	item.Error = ""
	item.Note = note
	if err := p.record(ctx, item); err != nil {
		p.logger.Error("failed to record completion", "id", item.ID, "error", err)
		return p.fail(ctx, item, (&model.PersistenceError{Op: "recording completion", Err: err}).Error())
	}
	if outcome == OutcomeDuplicate {
		p.logger.Info("skipped duplicate", "url", item.URL, "listing_id", listingID, "note", note)
	}
	return ItemOutcome{ItemID: item.ID, URL: item.URL, Outcome: outcome, ListingID: listingID, Message: note}
}

func (p *Processor) fail(ctx context.Context, item *model.QueueItem, msg string) ItemOutcome {
	p.logger.Warn("import failed", "id", item.ID, "url", item.URL, "error", msg)
	item.Status = model.StatusFailed
	item.Error = msg
	item.Note = ""
	if err := p.record(ctx, item); err != nil {
		p.logger.Error("failed to record failure", "id", item.ID, "error", err)
	}
	return ItemOutcome{ItemID: item.ID, URL: item.URL, Outcome: OutcomeFailed, Message: msg}
}

// Status returns queue counts and the most recent items.
func (p *Processor) Status(ctx context.Context) (StatusReport, error) {
	counts, err := p.queue.Counts(ctx)
	if err != nil {
		return StatusReport{}, fmt.Errorf("counting queue items: %w", err)
	}
	recent, err := p.queue.Recent(ctx, p.opts.RecentLimit)
	if err != nil {
		return StatusReport{}, fmt.Errorf("listing recent queue items: %w", err)
	}
	report := StatusReport{Counts: counts, Recent: make([]RecentItem, 0, len(recent))}
	for _, it := range recent {
		report.Recent = append(report.Recent, RecentItem{QueueItem: it, CanRetry: it.CanRetry()})
	}
	return report, nil
}

// RetryFailed sends every Failed item back to Pending and returns how many moved.
func (p *Processor) RetryFailed(ctx context.Context) (int, error) {
	n, err := p.queue.ResetFailed(ctx)
	if err != nil {
		return 0, &model.PersistenceError{Op: "resetting failed items", Err: err}
	}
	p.logger.Info("retrying failed items", "count", n)
	return n, nil
}

// Rescrape queues item id again with forceUpdate set, so the next batch
// refreshes its listing in place. Processing items cannot be rescraped; the
// check and the move to Pending are one conditional update.
func (p *Processor) Rescrape(ctx context.Context, id string) (*model.QueueItem, error) {
	if err := p.queue.Requeue(ctx, id, true); err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrInvalidTransition) {
			return nil, fmt.Errorf("rescrape %s: %w", id, err)
		}
		return nil, &model.PersistenceError{Op: "rescrape " + id, Err: err}
	}
	item, err := p.queue.Get(ctx, id)
	if err != nil {
		return nil, &model.PersistenceError{Op: "rescrape " + id, Err: err}
	}
	p.logger.Info("queued rescrape", "id", id, "url", item.URL)
	return item, nil
}

// Preview fetches and extracts url without touching any store.
func (p *Processor) Preview(ctx context.Context, url string, preferAI bool) (model.ExtractedFields, error) {
	page, err := p.fetcher.Fetch(ctx, url)
	if err != nil {
		return model.ExtractedFields{}, err
	}
	return p.extractFields(ctx, page, preferAI, url), nil
}
