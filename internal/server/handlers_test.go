package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vanshika/scansync/internal/domain"
	"github.com/vanshika/scansync/internal/provider"
	"github.com/vanshika/scansync/internal/service"
)

type stubRunner struct {
	report  service.Report
	err     error
	last    time.Time
	hasLast bool
	lastErr error
	calls   int
	ctxErr  error
}

func (s *stubRunner) Run(ctx context.Context) (service.Report, error) {
	s.calls++
	s.ctxErr = ctx.Err()
	return s.report, s.err
}

func (s *stubRunner) LastSync(ctx context.Context) (time.Time, bool, error) {
	return s.last, s.hasLast, s.lastErr
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleSyncReportsCounts(t *testing.T) {
	runner := &stubRunner{
		report: service.Report{
			RunID:   "run-1",
			Filter:  provider.Filter{"query_status=open"},
			Fetched: 4,
			Skipped: []error{errors.New("bad record")},
			Result:  domain.PublishResult{Created: 3, Updated: 1},
		},
	}
	handlers := NewSyncHandlers(discardLogger(), runner)

	req := httptest.NewRequest(http.MethodPost, "/v1/sync", nil)
	rec := httptest.NewRecorder()

	handlers.handleSync(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var payload syncResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.RunID != "run-1" {
		t.Fatalf("expected run id run-1, got %s", payload.RunID)
	}
	if payload.Created != 3 || payload.Updated != 1 || payload.Deleted != 0 {
		t.Fatalf("unexpected counts: %+v", payload)
	}
	if payload.Skipped != 1 {
		t.Fatalf("expected 1 skipped record, got %d", payload.Skipped)
	}
	if len(payload.Filter) != 1 || payload.Filter[0] != "query_status=open" {
		t.Fatalf("unexpected filter: %v", payload.Filter)
	}
}

func TestHandleSyncIgnoresCallerCancellation(t *testing.T) {
	runner := &stubRunner{}
	handlers := NewSyncHandlers(discardLogger(), runner)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodPost, "/v1/sync", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	handlers.handleSync(rec, req)

	if runner.ctxErr != nil {
		t.Fatalf("expected run context to outlive the request, got %v", runner.ctxErr)
	}
}

func TestHandleSyncErrorStatus(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "in progress", err: service.ErrRunInProgress, status: http.StatusConflict},
		{name: "authentication", err: &domain.AuthenticationError{Err: errors.New("401")}, status: http.StatusBadGateway},
		{name: "fetch", err: &domain.FetchError{Op: "findings", Err: errors.New("timeout")}, status: http.StatusBadGateway},
		{name: "publish", err: &domain.PublishError{Err: errors.New("tx aborted")}, status: http.StatusInternalServerError},
		{name: "configuration", err: &domain.ConfigurationError{Reason: "accountId is required"}, status: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			handlers := NewSyncHandlers(discardLogger(), &stubRunner{err: tc.err})

			req := httptest.NewRequest(http.MethodPost, "/v1/sync", nil)
			rec := httptest.NewRecorder()

			handlers.handleSync(rec, req)

			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rec.Code)
			}
			var payload map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if payload["error"] != tc.err.Error() {
				t.Fatalf("expected error %q, got %q", tc.err.Error(), payload["error"])
			}
		})
	}
}

func TestHandleSyncRejectsGet(t *testing.T) {
	runner := &stubRunner{}
	handlers := NewSyncHandlers(discardLogger(), runner)

	req := httptest.NewRequest(http.MethodGet, "/v1/sync", nil)
	rec := httptest.NewRecorder()

	handlers.handleSync(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", rec.Code)
	}
	if allow := rec.Header().Get("Allow"); allow != http.MethodPost {
		t.Fatalf("expected Allow POST, got %s", allow)
	}
	if runner.calls != 0 {
		t.Fatalf("expected no runs, got %d", runner.calls)
	}
}

func TestHandleLastSync(t *testing.T) {
	last := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	handlers := NewSyncHandlers(discardLogger(), &stubRunner{last: last, hasLast: true})

	req := httptest.NewRequest(http.MethodGet, "/v1/sync/last", nil)
	rec := httptest.NewRecorder()

	handlers.handleLastSync(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var payload lastSyncResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.LastSync == nil || *payload.LastSync != "2024-05-01T12:00:00Z" {
		t.Fatalf("unexpected last sync: %v", payload.LastSync)
	}
	if payload.LastSyncMillis == nil || *payload.LastSyncMillis != last.UnixMilli() {
		t.Fatalf("unexpected last sync millis: %v", payload.LastSyncMillis)
	}
}

func TestHandleLastSyncNeverRun(t *testing.T) {
	handlers := NewSyncHandlers(discardLogger(), &stubRunner{})

	req := httptest.NewRequest(http.MethodGet, "/v1/sync/last", nil)
	rec := httptest.NewRecorder()

	handlers.handleLastSync(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var payload lastSyncResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if payload.LastSync != nil || payload.LastSyncMillis != nil {
		t.Fatalf("expected null cursor, got %+v", payload)
	}
}

func TestHandleLastSyncStoreFailure(t *testing.T) {
	handlers := NewSyncHandlers(discardLogger(), &stubRunner{lastErr: errors.New("redis down")})

	req := httptest.NewRequest(http.MethodGet, "/v1/sync/last", nil)
	rec := httptest.NewRecorder()

	handlers.handleLastSync(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rec.Code)
	}
}
