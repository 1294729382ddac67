package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vanshika/scansync/internal/domain"
	"github.com/vanshika/scansync/internal/service"
)

// SyncRunner triggers passes and reports the recorded cursor.
type SyncRunner interface {
	Run(ctx context.Context) (service.Report, error)
	LastSync(ctx context.Context) (time.Time, bool, error)
}

// SyncHandlers exposes the synchronization trigger to an external scheduler.
type SyncHandlers struct {
	logger *slog.Logger
	runner SyncRunner
}

// NewSyncHandlers constructs a SyncHandlers instance.
func NewSyncHandlers(logger *slog.Logger, runner SyncRunner) *SyncHandlers {
	return &SyncHandlers{
		logger: logger,
		runner: runner,
	}
}

type syncResponse struct {
	RunID   string   `json:"runId"`
	Filter  []string `json:"filter"`
	Fetched int      `json:"fetched"`
	Skipped int      `json:"skipped"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Deleted int      `json:"deleted"`
}

type lastSyncResponse struct {
	LastSync       *string `json:"lastSync"`
	LastSyncMillis *int64  `json:"lastSyncMillis"`
}

func (h *SyncHandlers) handleSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	// A pass is never cancelled mid-batch, even if the caller goes away.
	report, err := h.runner.Run(context.WithoutCancel(r.Context()))
	if err != nil {
		status := statusForError(err)
		if status >= http.StatusInternalServerError {
			h.logger.Error("synchronization failed", "error", err, "run_id", report.RunID)
		}
		writeError(w, status, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, syncResponse{
		RunID:   report.RunID,
		Filter:  nonNil(report.Filter),
		Fetched: report.Fetched,
		Skipped: len(report.Skipped),
		Created: report.Result.Created,
		Updated: report.Result.Updated,
		Deleted: report.Result.Deleted,
	})
}

func (h *SyncHandlers) handleLastSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	last, ok, err := h.runner.LastSync(r.Context())
	if err != nil {
		h.logger.Error("failed to read last sync", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read last sync")
		return
	}

	var resp lastSyncResponse
	if ok {
		formatted := formatTime(last)
		millis := last.UnixMilli()
		resp.LastSync = &formatted
		resp.LastSyncMillis = &millis
	}
	respondJSON(w, http.StatusOK, resp)
}

func statusForError(err error) int {
	var (
		authErr  *domain.AuthenticationError
		fetchErr *domain.FetchError
	)
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		return http.StatusConflict
	case errors.As(err, &authErr), errors.As(err, &fetchErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{
		"error": msg,
	})
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
