package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/amishk599/jobimport/internal/importer"
	"github.com/amishk599/jobimport/internal/model"
	"github.com/amishk599/jobimport/internal/scheduler"
)

const testSecret = "0123456789abcdef0123456789abcdef"

// --- in-memory mocks ---

type mockImports struct {
	enqueued    []string
	submittedBy string
	preferAI    bool
	enqueueErr  error
	rescrapeErr error
	status      importer.StatusReport
	reset       int
}

func (m *mockImports) Enqueue(_ context.Context, urls []string, by string, preferAI bool) (importer.EnqueueResult, error) {
	if m.enqueueErr != nil {
		return importer.EnqueueResult{}, m.enqueueErr
	}
	m.enqueued = append(m.enqueued, urls...)
	m.submittedBy = by
	m.preferAI = preferAI
	return importer.EnqueueResult{Added: len(urls), Skipped: 0}, nil
}

func (m *mockImports) Status(context.Context) (importer.StatusReport, error) {
	return m.status, nil
}

func (m *mockImports) RetryFailed(context.Context) (int, error) {
	return m.reset, nil
}

func (m *mockImports) Rescrape(_ context.Context, id string) (*model.QueueItem, error) {
	if m.rescrapeErr != nil {
		return nil, m.rescrapeErr
	}
	return &model.QueueItem{ID: id, Status: model.StatusPending, ForceUpdate: true}, nil
}

type mockBatches struct {
	submitted int
	busy      bool
}

func (m *mockBatches) RunNow(context.Context) (importer.BatchReport, error) {
	if m.busy {
		return importer.BatchReport{}, scheduler.ErrBatchInProgress
	}
	return importer.BatchReport{Succeeded: 2, Failed: 1}, nil
}

func (m *mockBatches) Submit() { m.submitted++ }

// --- helpers ---

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(imports *mockImports, batches *mockBatches) http.Handler {
	return NewServer(imports, batches, NewAuth(testSecret), time.Second, discardLogger()).Handler()
}

func adminToken(t *testing.T) string {
	t.Helper()
	tok, err := NewAuth(testSecret).Mint("admin-42", time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	return tok
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

// --- tests ---

func TestHealth_NoAuth(t *testing.T) {
	rec := do(t, newTestServer(&mockImports{}, &mockBatches{}), http.MethodGet, "/health", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestAuth(t *testing.T) {
	h := newTestServer(&mockImports{}, &mockBatches{})

	wrongKey, _ := NewAuth("ffffffffffffffffffffffffffffffff").Mint("x", time.Hour)
	expired, _ := NewAuth(testSecret).Mint("x", -time.Minute)
	viewer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		Role:             "viewer",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "v"},
	}).SignedString([]byte(testSecret))

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "not.a.jwt", http.StatusUnauthorized},
		{"wrong key", wrongKey, http.StatusUnauthorized},
		{"expired", expired, http.StatusUnauthorized},
		{"non-admin role", viewer, http.StatusForbidden},
		{"admin", adminToken(t), http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/api/v1/imports/status", "", tt.token)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestEnqueue(t *testing.T) {
	imports := &mockImports{}
	batches := &mockBatches{}
	h := newTestServer(imports, batches)

	rec := do(t, h, http.MethodPost, "/api/v1/imports",
		`{"urls":["https://a.test/1","https://a.test/2"],"process":true}`, adminToken(t))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body)
	}
	var res importer.EnqueueResult
	decode(t, rec, &res)
	if res.Added != 2 {
		t.Errorf("added = %d", res.Added)
	}
	if imports.submittedBy != "admin-42" {
		t.Errorf("submittedBy = %q, want token subject", imports.submittedBy)
	}
	if !imports.preferAI {
		t.Error("preferAI should default to true")
	}
	if batches.submitted != 1 {
		t.Errorf("submitted = %d, want 1", batches.submitted)
	}
}

func TestEnqueue_PreferAIDefaultsToServerSetting(t *testing.T) {
	imports := &mockImports{}
	h := NewServer(imports, &mockBatches{}, NewAuth(testSecret), time.Second, discardLogger()).
		WithDefaultPreferAI(false).
		Handler()

	rec := do(t, h, http.MethodPost, "/api/v1/imports", `{"urls":["https://a.test/1"]}`, adminToken(t))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d body %s", rec.Code, rec.Body)
	}
	if imports.preferAI {
		t.Error("preferAI = true, want the server default of false")
	}
}

func TestEnqueue_PreferAIFalseNoProcess(t *testing.T) {
	imports := &mockImports{}
	batches := &mockBatches{}
	h := newTestServer(imports, batches)

	rec := do(t, h, http.MethodPost, "/api/v1/imports", `{"urls":["https://a.test/1"],"preferAI":false}`, adminToken(t))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d", rec.Code)
	}
	if imports.preferAI {
		t.Error("preferAI = true, want false")
	}
	if batches.submitted != 0 {
		t.Error("batch submitted without process flag")
	}
}

func TestEnqueue_BadRequests(t *testing.T) {
	h := newTestServer(&mockImports{}, &mockBatches{})
	for _, body := range []string{`{`, `{"urls":[]}`, `{}`} {
		rec := do(t, h, http.MethodPost, "/api/v1/imports", body, adminToken(t))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestEnqueue_StoreFailureIsGeneric500(t *testing.T) {
	imports := &mockImports{enqueueErr: &model.PersistenceError{Op: "enqueue", Err: errors.New("database is locked")}}
	rec := do(t, newTestServer(imports, &mockBatches{}), http.MethodPost, "/api/v1/imports", `{"urls":["https://a.test"]}`, adminToken(t))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "locked") {
		t.Errorf("500 body leaks internals: %s", rec.Body)
	}
}

func TestRunNow(t *testing.T) {
	rec := do(t, newTestServer(&mockImports{}, &mockBatches{}), http.MethodPost, "/api/v1/imports/run", "", adminToken(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var res runResponse
	decode(t, rec, &res)
	if res.Succeeded != 2 || res.Failed != 1 {
		t.Errorf("response = %+v", res)
	}

	rec = do(t, newTestServer(&mockImports{}, &mockBatches{busy: true}), http.MethodPost, "/api/v1/imports/run", "", adminToken(t))
	if rec.Code != http.StatusConflict {
		t.Errorf("busy status = %d, want 409", rec.Code)
	}
}

func TestStatus(t *testing.T) {
	imports := &mockImports{status: importer.StatusReport{
		Counts: model.QueueCounts{Pending: 1, Failed: 2},
		Recent: []importer.RecentItem{{QueueItem: model.QueueItem{ID: "01J", URL: "https://a.test", Status: model.StatusFailed}, CanRetry: true}},
	}}
	rec := do(t, newTestServer(imports, &mockBatches{}), http.MethodGet, "/api/v1/imports/status", "", adminToken(t))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Counts model.QueueCounts `json:"counts"`
		Recent []struct {
			ID       string `json:"id"`
			Status   string `json:"status"`
			CanRetry bool   `json:"canRetry"`
		} `json:"recent"`
	}
	decode(t, rec, &body)
	if body.Counts.Failed != 2 || len(body.Recent) != 1 || !body.Recent[0].CanRetry || body.Recent[0].ID != "01J" {
		t.Errorf("body = %+v", body)
	}
}

func TestRetry(t *testing.T) {
	rec := do(t, newTestServer(&mockImports{reset: 3}, &mockBatches{}), http.MethodPost, "/api/v1/imports/retry", "", adminToken(t))
	var res retryResponse
	decode(t, rec, &res)
	if rec.Code != http.StatusOK || res.Reset != 3 {
		t.Errorf("status %d response %+v", rec.Code, res)
	}
}

func TestRescrape_StatusCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"ok", nil, http.StatusOK},
		{"not found", model.ErrNotFound, http.StatusNotFound},
		{"processing", model.ErrInvalidTransition, http.StatusConflict},
		{"store failure", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(&mockImports{rescrapeErr: tt.err}, &mockBatches{})
			rec := do(t, h, http.MethodPost, "/api/v1/imports/01ABC/rescrape", "", adminToken(t))
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
			if tt.err == nil {
				var item model.QueueItem
				decode(t, rec, &item)
				if item.ID != "01ABC" || !item.ForceUpdate {
					t.Errorf("item = %+v", item)
				}
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	rec := do(t, newTestServer(&mockImports{}, &mockBatches{}), http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}
