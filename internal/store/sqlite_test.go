package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/jobimport/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func addItem(t *testing.T, q *QueueStore, url string) *model.QueueItem {
	t.Helper()
	item := &model.QueueItem{URL: url, PreferAI: true, SubmittedBy: "admin-1"}
	added, err := q.Add(context.Background(), item)
	if err != nil {
		t.Fatalf("Add(%s): %v", url, err)
	}
	if !added {
		t.Fatalf("Add(%s) reported duplicate", url)
	}
	return item
}

func TestQueueAddThenGet(t *testing.T) {
	q := newTestStore(t).Queue()
	item := addItem(t, q, "https://jobs.example.com/1")

	if item.ID == "" || item.Status != model.StatusPending {
		t.Fatalf("Add did not fill defaults: %+v", item)
	}

	got, err := q.Get(context.Background(), item.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.URL != item.URL || !got.PreferAI || got.SubmittedBy != "admin-1" {
		t.Errorf("Get = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not persisted")
	}
}

func TestQueueAddDuplicateURL(t *testing.T) {
	q := newTestStore(t).Queue()
	addItem(t, q, "https://jobs.example.com/1")

	added, err := q.Add(context.Background(), &model.QueueItem{URL: "https://jobs.example.com/1"})
	if err != nil {
		t.Fatalf("second Add: %v", err)
	}
	if added {
		t.Error("expected duplicate URL to be rejected")
	}

	counts, err := q.Counts(context.Background())
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	if counts.Pending != 1 {
		t.Errorf("Pending = %d, want 1", counts.Pending)
	}
}

func TestQueueGetUnknownReturnsNotFound(t *testing.T) {
	q := newTestStore(t).Queue()

	_, err := q.Get(context.Background(), "does-not-exist")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	_, err = q.FindByURL(context.Background(), "https://nowhere.example.com")
	if !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueueListPendingInOrderAndRecentNewestFirst(t *testing.T) {
	q := newTestStore(t).Queue()
	ctx := context.Background()
	first := addItem(t, q, "https://jobs.example.com/1")
	second := addItem(t, q, "https://jobs.example.com/2")
	third := addItem(t, q, "https://jobs.example.com/3")

	pending, err := q.ListPending(ctx, 2)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 || pending[0].ID != first.ID || pending[1].ID != second.ID {
		t.Errorf("ListPending = %v", ids(pending))
	}

	recent, err := q.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(recent) != 3 || recent[0].ID != third.ID || recent[2].ID != first.ID {
		t.Errorf("Recent = %v", ids(recent))
	}
}

func TestQueueClaimOnlyOnce(t *testing.T) {
	q := newTestStore(t).Queue()
	ctx := context.Background()
	item := addItem(t, q, "https://jobs.example.com/1")

	ok, err := q.Claim(ctx, item.ID)
	if err != nil || !ok {
		t.Fatalf("first Claim = %v, %v", ok, err)
	}
	ok, err = q.Claim(ctx, item.ID)
	if err != nil {
		t.Fatalf("second Claim: %v", err)
	}
	if ok {
		t.Error("second Claim should fail once the item is Processing")
	}

	got, _ := q.Get(ctx, item.ID)
	if got.Status != model.StatusProcessing {
		t.Errorf("Status = %s, want Processing", got.Status)
	}
}

func TestQueueSaveAndCounts(t *testing.T) {
	q := newTestStore(t).Queue()
	ctx := context.Background()
	a := addItem(t, q, "https://jobs.example.com/a")
	b := addItem(t, q, "https://jobs.example.com/b")
	addItem(t, q, "https://jobs.example.com/c")

	a.Status = model.StatusCompleted
	a.ListingID = "listing-1"
	a.Note = "Duplicate: Job with this URL already exists."
	if err := q.Save(ctx, a); err != nil {
		t.Fatalf("Save a: %v", err)
	}
	b.Status = model.StatusFailed
	b.Error = "fetch https://jobs.example.com/b: 404 Not Found"
	if err := q.Save(ctx, b); err != nil {
		t.Fatalf("Save b: %v", err)
	}

	counts, err := q.Counts(ctx)
	if err != nil {
		t.Fatalf("Counts: %v", err)
	}
	want := model.QueueCounts{Pending: 1, Completed: 1, Failed: 1}
	if counts != want {
		t.Errorf("Counts = %+v, want %+v", counts, want)
	}

	got, _ := q.Get(ctx, a.ID)
	if got.ListingID != "listing-1" || got.Note == "" {
		t.Errorf("saved fields not persisted: %+v", got)
	}

	if err := q.Save(ctx, &model.QueueItem{ID: "missing"}); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Save unknown: expected ErrNotFound, got %v", err)
	}
}

func TestQueueRequeue(t *testing.T) {
	q := newTestStore(t).Queue()
	ctx := context.Background()

	done := addItem(t, q, "https://jobs.example.com/done")
	done.Status = model.StatusCompleted
	done.Note = "Duplicate: Job with this URL already exists."
	if err := q.Save(ctx, done); err != nil {
		t.Fatalf("Save: %v", err)
	}
	busy := addItem(t, q, "https://jobs.example.com/busy")
	if ok, err := q.Claim(ctx, busy.ID); err != nil || !ok {
		t.Fatalf("Claim = %v, %v", ok, err)
	}

	if err := q.Requeue(ctx, done.ID, true); err != nil {
		t.Fatalf("Requeue completed: %v", err)
	}
	got, _ := q.Get(ctx, done.ID)
	if got.Status != model.StatusPending || !got.ForceUpdate || got.Note != "" {
		t.Errorf("requeued item = %+v", got)
	}

	if err := q.Requeue(ctx, busy.ID, true); !errors.Is(err, model.ErrInvalidTransition) {
		t.Errorf("Requeue processing: err = %v, want ErrInvalidTransition", err)
	}
	got, _ = q.Get(ctx, busy.ID)
	if got.Status != model.StatusProcessing || got.ForceUpdate {
		t.Errorf("processing item changed: %+v", got)
	}

	if err := q.Requeue(ctx, "missing", true); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Requeue unknown: err = %v, want ErrNotFound", err)
	}
}

func TestQueueResetFailed(t *testing.T) {
	q := newTestStore(t).Queue()
	ctx := context.Background()

	var failed []*model.QueueItem
	for _, u := range []string{"https://x.test/1", "https://x.test/2", "https://x.test/3"} {
		item := addItem(t, q, u)
		item.Status = model.StatusFailed
		item.Error = "boom"
		item.ForceUpdate = true
		if err := q.Save(ctx, item); err != nil {
			t.Fatalf("Save: %v", err)
		}
		failed = append(failed, item)
	}
	for _, u := range []string{"https://x.test/4", "https://x.test/5"} {
		item := addItem(t, q, u)
		item.Status = model.StatusCompleted
		if err := q.Save(ctx, item); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	n, err := q.ResetFailed(ctx)
	if err != nil {
		t.Fatalf("ResetFailed: %v", err)
	}
	if n != 3 {
		t.Errorf("reset %d, want 3", n)
	}

	counts, _ := q.Counts(ctx)
	if counts.Pending != 3 || counts.Completed != 2 || counts.Failed != 0 {
		t.Errorf("Counts = %+v", counts)
	}
	got, _ := q.Get(ctx, failed[0].ID)
	if got.Error != "" || !got.ForceUpdate {
		t.Errorf("after reset: error=%q forceUpdate=%v", got.Error, got.ForceUpdate)
	}
}

func newListing() *model.JobListing {
	return &model.JobListing{
		Title:          "Backend Engineer",
		Company:        "Acme Corp",
		Description:    "Build things.",
		Location:       "Remote",
		Salary:         "Not specified",
		Type:           model.ListingExternal,
		TechStack:      []string{"Go", "Docker"},
		RequiredSkills: model.NewSkillLevels(50, "Go", "Docker"),
		Status:         model.ListingDraft,
		ExternalURL:    "https://jobs.example.com/1",
		PostedBy:       "admin-1",
		Applicants: []model.Applicant{
			{UserID: "u-1", Status: "Applied", AppliedAt: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)},
		},
	}
}

func TestListingCreateFindAndGet(t *testing.T) {
	l := newTestStore(t).Listings()
	ctx := context.Background()

	listing := newListing()
	if err := l.Create(ctx, listing); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if listing.ID == "" {
		t.Fatal("Create did not assign an ID")
	}

	byURL, err := l.FindByURL(ctx, "https://jobs.example.com/1")
	if err != nil {
		t.Fatalf("FindByURL: %v", err)
	}
	if byURL.ID != listing.ID {
		t.Errorf("FindByURL ID = %s, want %s", byURL.ID, listing.ID)
	}
	if len(byURL.TechStack) != 2 || byURL.RequiredSkills.Len() != 2 || len(byURL.Applicants) != 1 {
		t.Errorf("list columns not round-tripped: %+v", byURL)
	}
	if byURL.Requirements == nil {
		t.Error("Requirements should decode as empty, not nil")
	}

	if _, err := l.FindByTitleCompany(ctx, "Backend Engineer", "Acme Corp"); err != nil {
		t.Errorf("FindByTitleCompany: %v", err)
	}
	if _, err := l.FindByTitleCompany(ctx, "backend engineer", "Acme Corp"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("title match should be exact, got %v", err)
	}
	if _, err := l.FindByURL(ctx, ""); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("empty URL should not match, got %v", err)
	}
}

func TestListingUpdatePreservesCreatedAt(t *testing.T) {
	l := newTestStore(t).Listings()
	ctx := context.Background()

	listing := newListing()
	if err := l.Create(ctx, listing); err != nil {
		t.Fatalf("Create: %v", err)
	}
	created := listing.CreatedAt

	listing.Title = "Senior Backend Engineer"
	listing.TechStack = nil
	if err := l.Update(ctx, listing); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := l.Get(ctx, listing.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Title != "Senior Backend Engineer" {
		t.Errorf("Title = %q", got.Title)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt changed: %v -> %v", created, got.CreatedAt)
	}
	if got.TechStack == nil || len(got.TechStack) != 0 {
		t.Errorf("TechStack = %#v, want empty", got.TechStack)
	}

	missing := newListing()
	missing.ID = "missing"
	if err := l.Update(ctx, missing); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Update unknown: expected ErrNotFound, got %v", err)
	}
}

func TestReopenKeepsData(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	s, err := NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := s.Queue().Add(context.Background(), &model.QueueItem{URL: "https://x.test/keep"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	s.Close()

	s, err = NewSQLiteStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, err := s.Queue().FindByURL(context.Background(), "https://x.test/keep"); err != nil {
		t.Errorf("item lost after reopen: %v", err)
	}
}

func ids(items []model.QueueItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}
