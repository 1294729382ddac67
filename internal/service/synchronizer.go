// Package service sequences one synchronization pass: window planning,
// fetch, aggregation, reconciliation and the atomic publish.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vanshika/scansync/internal/aggregate"
	"github.com/vanshika/scansync/internal/domain"
	"github.com/vanshika/scansync/internal/mapper"
	"github.com/vanshika/scansync/internal/metrics"
	"github.com/vanshika/scansync/internal/provider"
	"github.com/vanshika/scansync/internal/reconcile"
	"github.com/vanshika/scansync/internal/window"
)

var tracer = otel.Tracer("github.com/vanshika/scansync/internal/service")

// Publisher is the atomic publish boundary.
type Publisher interface {
	Publish(ctx context.Context, batches ...domain.OperationBatch) (domain.PublishResult, error)
}

// Dependencies wires the collaborators of a Synchronizer.
type Dependencies struct {
	Provider  provider.Client
	LastSync  window.LastSyncLookup
	Reader    reconcile.GraphReader
	Publisher Publisher
	Logger    *slog.Logger
	Metrics   *metrics.Recorder
}

// Options tunes a Synchronizer.
type Options struct {
	InstanceID       string
	ScanType         string
	ApplicationIDs   []string
	FetchConcurrency int
}

// Report summarises a finished pass. Result is the publish result as
// returned by the publisher.
type Report struct {
	RunID           string
	Filter          provider.Filter
	Fetched         int
	Vulnerabilities int
	Findings        int
	Skipped         []error
	Result          domain.PublishResult
}

// Synchronizer runs synchronization passes. It reads the last-sync cursor
// but never writes it.
type Synchronizer struct {
	provider  provider.Client
	planner   *window.Planner
	pool      *FetchPool
	engine    *reconcile.Engine
	publisher Publisher
	logger    *slog.Logger
	metrics   *metrics.Recorder
	opts      Options
}

// NewSynchronizer validates the wiring and builds a Synchronizer.
func NewSynchronizer(deps Dependencies, opts Options) (*Synchronizer, error) {
	if deps.Provider == nil || deps.Reader == nil || deps.Publisher == nil {
		return nil, errors.New("provider, graph reader and publisher are required")
	}
	if opts.InstanceID == "" {
		return nil, &domain.ConfigurationError{Reason: "integration instance id is required"}
	}
	if opts.ScanType == "" {
		opts.ScanType = domain.ScanTypeStatic
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "synchronizer", "instance_id", opts.InstanceID)

	return &Synchronizer{
		provider:  deps.Provider,
		planner:   window.NewPlanner(deps.LastSync),
		pool:      NewFetchPool(deps.Provider, opts.FetchConcurrency),
		engine:    reconcile.NewEngine(deps.Reader, reconcile.WithLogger(logger)),
		publisher: deps.Publisher,
		logger:    logger,
		metrics:   deps.Metrics,
		opts:      opts,
	}, nil
}

// Synchronize runs one pass and returns the publish result. Records that
// cannot be mapped are skipped and reported; every other failure aborts the
// pass before anything is published.
func (s *Synchronizer) Synchronize(ctx context.Context) (Report, error) {
	report := Report{RunID: uuid.NewString()}
	logger := s.logger.With("run_id", report.RunID)

	ctx, span := tracer.Start(ctx, "scansync.synchronize",
		trace.WithAttributes(
			attribute.String("scansync.run_id", report.RunID),
			attribute.String("scansync.instance_id", s.opts.InstanceID),
		))
	defer span.End()

	fail := func(err error) (Report, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logger.Error("synchronization failed", "error", err)
		return report, err
	}

	resources, err := s.provider.GetResources(ctx)
	if err != nil {
		if errors.Is(err, provider.ErrUnauthorized) {
			return fail(&domain.AuthenticationError{Err: err})
		}
		return fail(&domain.FetchError{Op: "resources", Err: err})
	}
	account := mapper.Account(resources.Account, s.opts.InstanceID)

	filter, err := s.planner.Plan(ctx)
	if err != nil {
		return fail(err)
	}
	report.Filter = filter
	logger.Info("fetching findings", "filter", []string(filter), "applications", len(s.opts.ApplicationIDs))

	records, err := s.fetch(ctx, filter)
	if err != nil {
		return fail(err)
	}
	report.Fetched = len(records)

	agg := aggregate.Aggregate(records, s.opts.ScanType)
	report.Vulnerabilities = len(agg.Vulnerabilities)
	report.Findings = agg.FindingCount()
	report.Skipped = agg.Skipped
	for _, skipped := range agg.Skipped {
		var mapErr *domain.MappingError
		if errors.As(skipped, &mapErr) {
			logger.Warn("skipping finding", "finding_id", mapErr.RecordID, "field", mapErr.Field, "error", skipped)
		}
	}
	s.metrics.ObserveSkipped(len(agg.Skipped))
	logger.Info("aggregated findings",
		"fetched", report.Fetched,
		"vulnerabilities", report.Vulnerabilities,
		"findings", report.Findings,
		"skipped", len(agg.Skipped))

	accountBatch, findingsBatch, err := s.reconcile(ctx, account, agg)
	if err != nil {
		return fail(err)
	}

	result, err := s.publish(ctx, accountBatch, findingsBatch)
	if err != nil {
		return fail(err)
	}
	report.Result = result
	s.metrics.ObserveBatch(accountBatch)
	s.metrics.ObserveBatch(findingsBatch)

	span.SetAttributes(
		attribute.Int("scansync.created", result.Created),
		attribute.Int("scansync.updated", result.Updated),
		attribute.Int("scansync.deleted", result.Deleted),
	)
	logger.Info("published operations",
		"created", result.Created,
		"updated", result.Updated,
		"deleted", result.Deleted)
	return report, nil
}

func (s *Synchronizer) fetch(ctx context.Context, filter provider.Filter) ([]provider.Finding, error) {
	ctx, span := tracer.Start(ctx, "scansync.fetch")
	defer span.End()

	start := time.Now()
	records, err := s.pool.Fetch(ctx, filter, s.opts.ApplicationIDs)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("scansync.records", len(records)))
	s.logger.Debug("fetch complete", "records", len(records), "elapsed", time.Since(start))
	return records, nil
}

func (s *Synchronizer) reconcile(ctx context.Context, account domain.AccountEntity, agg aggregate.Result) (domain.OperationBatch, domain.OperationBatch, error) {
	ctx, span := tracer.Start(ctx, "scansync.reconcile")
	defer span.End()

	accountBatch, err := s.engine.ReconcileAccount(ctx, account)
	if err != nil {
		span.RecordError(err)
		return domain.OperationBatch{}, domain.OperationBatch{}, fmt.Errorf("reconcile account: %w", err)
	}

	findingsBatch, err := s.engine.Reconcile(ctx, reconcile.Input{
		Account:         account,
		Vulnerabilities: agg.Vulnerabilities,
		CVEs:            agg.CVEs,
		Findings:        agg.Findings,
		Services:        agg.Services,
	})
	if err != nil {
		span.RecordError(err)
		return domain.OperationBatch{}, domain.OperationBatch{}, fmt.Errorf("reconcile findings: %w", err)
	}

	span.SetAttributes(attribute.Int("scansync.operations", accountBatch.Len()+findingsBatch.Len()))
	return accountBatch, findingsBatch, nil
}

func (s *Synchronizer) publish(ctx context.Context, batches ...domain.OperationBatch) (domain.PublishResult, error) {
	ctx, span := tracer.Start(ctx, "scansync.publish")
	defer span.End()

	result, err := s.publisher.Publish(ctx, batches...)
	if err != nil {
		span.RecordError(err)
		var publishErr *domain.PublishError
		if !errors.As(err, &publishErr) {
			err = &domain.PublishError{Err: err}
		}
		return domain.PublishResult{}, err
	}
	return result, nil
}
