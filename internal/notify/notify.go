// Package notify publishes a summary of every synchronization run.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
)

// RunSummary describes one finished run.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	InstanceID string    `json:"instance_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Created    int       `json:"created"`
	Updated    int       `json:"updated"`
	Deleted    int       `json:"deleted"`
	Skipped    int       `json:"skipped"`
	Error      string    `json:"error,omitempty"`
}

// Notifier delivers run summaries.
type Notifier interface {
	NotifyRun(ctx context.Context, summary RunSummary) error
	Close() error
}

// Noop discards summaries.
type Noop struct{}

func (Noop) NotifyRun(context.Context, RunSummary) error { return nil }

func (Noop) Close() error { return nil }

// NATSNotifier publishes summaries as JSON on a NATS subject.
type NATSNotifier struct {
	nc      *nats.Conn
	subject string
	logger  *slog.Logger
}

// NewNATSNotifier connects to the NATS server at url.
func NewNATSNotifier(url, subject string, logger *slog.Logger) (*NATSNotifier, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(url,
		nats.Name("scansync"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(10),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return NewNATSNotifierWithConn(nc, subject, logger), nil
}

// NewNATSNotifierWithConn wraps an existing connection.
func NewNATSNotifierWithConn(nc *nats.Conn, subject string, logger *slog.Logger) *NATSNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSNotifier{nc: nc, subject: subject, logger: logger.With("component", "notify")}
}

func (n *NATSNotifier) NotifyRun(ctx context.Context, summary RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal run summary: %w", err)
	}
	if err := n.nc.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish run summary: %w", err)
	}
	if err := n.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("failed to flush run summary: %w", err)
	}

	n.logger.Debug("Published run summary",
		"subject", n.subject,
		"run_id", summary.RunID)
	return nil
}

func (n *NATSNotifier) Close() error {
	return n.nc.Drain()
}
