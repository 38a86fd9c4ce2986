package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/amishk599/jobimport/internal/model"
)

var _ model.QueueStore = (*QueueStore)(nil)

// QueueStore is the SQLite import_queue table. IDs are ULIDs, so ordering by
// id is submission order.
type QueueStore struct {
	db *sql.DB
}

const queueColumns = `id, url, prefer_ai, force_update, status, error, note, listing_id, submitted_by, created_at, updated_at`

// Add inserts item as a new queue entry. It reports false, without error,
// when the URL is already queued. Empty IDs and timestamps are filled in.
func (q *QueueStore) Add(ctx context.Context, item *model.QueueItem) (bool, error) {
	now := time.Now().UTC()
	if item.ID == "" {
		item.ID = ulid.Make().String()
	}
	if item.Status == "" {
		item.Status = model.StatusPending
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	res, err := q.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO import_queue (`+queueColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.URL, boolInt(item.PreferAI), boolInt(item.ForceUpdate), string(item.Status),
		item.Error, item.Note, item.ListingID, item.SubmittedBy,
		formatTime(item.CreatedAt), formatTime(item.UpdatedAt),
	)
	if err != nil {
		return false, fmt.Errorf("inserting queue item %s: %w", item.URL, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting queue item %s: %w", item.URL, err)
	}
	return n == 1, nil
}

// Get returns the item with the given ID, or model.ErrNotFound.
func (q *QueueStore) Get(ctx context.Context, id string) (*model.QueueItem, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+queueColumns+` FROM import_queue WHERE id = ?`, id)
	item, err := scanQueueItem(row)
	if err != nil {
		return nil, fmt.Errorf("getting queue item %s: %w", id, err)
	}
	return item, nil
}

// FindByURL returns the item queued for url, or model.ErrNotFound.
func (q *QueueStore) FindByURL(ctx context.Context, url string) (*model.QueueItem, error) {
	row := q.db.QueryRowContext(ctx, `SELECT `+queueColumns+` FROM import_queue WHERE url = ?`, url)
	item, err := scanQueueItem(row)
	if err != nil {
		return nil, fmt.Errorf("finding queue item for %s: %w", url, err)
	}
	return item, nil
}

// ListPending returns up to limit Pending items, oldest first.
func (q *QueueStore) ListPending(ctx context.Context, limit int) ([]model.QueueItem, error) {
	return q.list(ctx, "listing pending queue items",
		`SELECT `+queueColumns+` FROM import_queue WHERE status = ? ORDER BY id ASC LIMIT ?`,
		string(model.StatusPending), limit)
}

// Recent returns up to limit items of any status, newest first.
func (q *QueueStore) Recent(ctx context.Context, limit int) ([]model.QueueItem, error) {
	return q.list(ctx, "listing recent queue items",
		`SELECT `+queueColumns+` FROM import_queue ORDER BY id DESC LIMIT ?`, limit)
}

func (q *QueueStore) list(ctx context.Context, op, query string, args ...any) ([]model.QueueItem, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	items := []model.QueueItem{}
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return items, nil
}

// Claim moves a Pending item to Processing in one conditional update. It
// reports false when the item is no longer Pending, which means another
// runner got there first.
func (q *QueueStore) Claim(ctx context.Context, id string) (bool, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE import_queue SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		string(model.StatusProcessing), formatTime(time.Now()), id, string(model.StatusPending),
	)
	if err != nil {
		return false, fmt.Errorf("claiming queue item %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claiming queue item %s: %w", id, err)
	}
	return n == 1, nil
}

// Save writes every mutable field of item and stamps UpdatedAt.
func (q *QueueStore) Save(ctx context.Context, item *model.QueueItem) error {
	item.UpdatedAt = time.Now().UTC()
	res, err := q.db.ExecContext(ctx,
		`UPDATE import_queue
		 SET prefer_ai = ?, force_update = ?, status = ?, error = ?, note = ?, listing_id = ?, updated_at = ?
		 WHERE id = ?`,
		boolInt(item.PreferAI), boolInt(item.ForceUpdate), string(item.Status), item.Error, item.Note,
		item.ListingID, formatTime(item.UpdatedAt), item.ID,
	)
	if err != nil {
		return fmt.Errorf("saving queue item %s: %w", item.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("saving queue item %s: %w", item.ID, model.ErrNotFound)
	}
	return nil
}

// Requeue moves id back to Pending with its error and note cleared, in one
// conditional update that never touches a Processing row. force sets
// ForceUpdate. It returns model.ErrInvalidTransition for a Processing item
// and model.ErrNotFound for an unknown one.
func (q *QueueStore) Requeue(ctx context.Context, id string, force bool) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE import_queue
		 SET status = ?, force_update = ?, error = '', note = '', updated_at = ?
		 WHERE id = ? AND status <> ?`,
		string(model.StatusPending), boolInt(force), formatTime(time.Now()), id, string(model.StatusProcessing),
	)
	if err != nil {
		return fmt.Errorf("requeueing queue item %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("requeueing queue item %s: %w", id, err)
	}
	if n == 1 {
		return nil
	}
	if _, err := q.Get(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("requeueing queue item %s: item is processing: %w", id, model.ErrInvalidTransition)
}

// Counts returns the number of items in each status.
func (q *QueueStore) Counts(ctx context.Context) (model.QueueCounts, error) {
	var counts model.QueueCounts
	rows, err := q.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM import_queue GROUP BY status`)
	if err != nil {
		return counts, fmt.Errorf("counting queue items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return counts, fmt.Errorf("counting queue items: %w", err)
		}
		switch model.QueueStatus(status) {
		case model.StatusPending:
			counts.Pending = n
		case model.StatusProcessing:
			counts.Processing = n
		case model.StatusCompleted:
			counts.Completed = n
		case model.StatusFailed:
			counts.Failed = n
		}
	}
	if err := rows.Err(); err != nil {
		return counts, fmt.Errorf("counting queue items: %w", err)
	}
	return counts, nil
}

// ResetFailed moves every Failed item back to Pending with its error cleared
// and returns how many were reset. ForceUpdate is left as it was.
func (q *QueueStore) ResetFailed(ctx context.Context) (int, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE import_queue SET status = ?, error = '', updated_at = ? WHERE status = ?`,
		string(model.StatusPending), formatTime(time.Now()), string(model.StatusFailed),
	)
	if err != nil {
		return 0, fmt.Errorf("resetting failed queue items: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("resetting failed queue items: %w", err)
	}
	return int(n), nil
}

func scanQueueItem(s scanner) (*model.QueueItem, error) {
	var (
		item                 model.QueueItem
		preferAI, force      int
		status               string
		createdAt, updatedAt string
	)
	err := s.Scan(&item.ID, &item.URL, &preferAI, &force, &status, &item.Error, &item.Note,
		&item.ListingID, &item.SubmittedBy, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	item.PreferAI = preferAI != 0
	item.ForceUpdate = force != 0
	item.Status = model.QueueStatus(status)
	item.CreatedAt = parseTime(createdAt)
	item.UpdatedAt = parseTime(updatedAt)
	return &item, nil
}
