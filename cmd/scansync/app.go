package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vanshika/scansync/internal/config"
	"github.com/vanshika/scansync/internal/graph"
	"github.com/vanshika/scansync/internal/metrics"
	"github.com/vanshika/scansync/internal/notify"
	"github.com/vanshika/scansync/internal/provider"
	"github.com/vanshika/scansync/internal/repository"
	"github.com/vanshika/scansync/internal/service"
	"github.com/vanshika/scansync/internal/state"
)

// app holds the wired components shared by the sync and serve commands.
type app struct {
	logger   *slog.Logger
	graph    graph.Client
	store    state.Store
	notifier notify.Notifier
	metrics  *metrics.Recorder
	runner   *service.Runner
}

// newApp wires one synchronization pipeline around an already connected
// graph client. The app owns the client afterwards.
func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, graphClient graph.Client) (*app, error) {
	client, err := buildProvider(cfg.Provider)
	if err != nil {
		return nil, err
	}

	store, err := buildStateStore(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("open state store: %w", err)
	}

	notifier, err := buildNotifier(cfg.Notify, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	recorder := metrics.New()
	repo := repository.New(graphClient, repository.Scope{
		AccountID:  cfg.Instance.AccountID,
		InstanceID: cfg.Instance.ID,
	})
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = notifier.Close()
		_ = store.Close()
		return nil, err
	}

	syncer, err := service.NewSynchronizer(service.Dependencies{
		Provider:  client,
		LastSync:  store,
		Reader:    repo,
		Publisher: repo,
		Logger:    logger,
		Metrics:   recorder,
	}, service.Options{
		InstanceID:       cfg.Instance.ID,
		ScanType:         cfg.Provider.ScanType,
		ApplicationIDs:   cfg.Provider.ApplicationIDs,
		FetchConcurrency: cfg.Provider.FetchConcurrency,
	})
	if err != nil {
		_ = notifier.Close()
		_ = store.Close()
		return nil, err
	}

	runner := service.NewRunner(syncer, store, cfg.Instance.ID,
		service.WithNotifier(notifier),
		service.WithMetrics(recorder),
		service.WithRunnerLogger(logger),
	)

	logger.Debug("pipeline wired",
		"provider", cfg.Provider.Kind,
		"state_backend", cfg.State.Backend,
		"notifications", cfg.Notify.NATSURL != "",
	)

	return &app{
		logger:   logger,
		graph:    graphClient,
		store:    store,
		notifier: notifier,
		metrics:  recorder,
		runner:   runner,
	}, nil
}

// Close releases everything the app owns.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if err := a.notifier.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close notifier: %w", err))
	}
	if err := a.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close state store: %w", err))
	}
	if a.graph != nil {
		if err := a.graph.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close graph client: %w", err))
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		a.logger.Warn("shutdown incomplete", "error", err)
	}
	return err
}

func buildGraphClient(ctx context.Context, cfg config.Config) (graph.Client, error) {
	if cfg.Graph.URI == "" {
		return nil, graph.ErrMissingURI
	}

	opts := graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
		TxTimeout:      cfg.Graph.TxTimeout,
	}
	return graph.NewNeo4jClient(ctx, opts)
}

func buildProvider(cfg config.ProviderConfig) (provider.Client, error) {
	switch cfg.Kind {
	case config.ProviderKindFile:
		client, err := provider.LoadFileClient(cfg.DatasetPath)
		if err != nil {
			return nil, fmt.Errorf("load dataset: %w", err)
		}
		return client, nil
	default:
		client, err := provider.NewHTTPClient(provider.HTTPOptions{
			BaseURL:           cfg.BaseURL,
			APIKey:            cfg.APIKey,
			PageSize:          cfg.PageSize,
			RequestsPerSecond: cfg.RequestsPerSecond,
			Timeout:           cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("create provider client: %w", err)
		}
		return client, nil
	}
}

func buildStateStore(cfg config.Config, logger *slog.Logger) (state.Store, error) {
	switch cfg.State.Backend {
	case config.StateBackendRedis:
		store, err := state.NewRedisStore(state.RedisOptions{URL: cfg.State.RedisURL}, cfg.Instance.ID)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StateBackendMemory:
		return state.NewMemoryStore(), nil
	default:
		store, err := state.OpenBadger(state.BadgerConfig{
			Path:       cfg.State.Path,
			SyncWrites: true,
			Logger:     logger,
		}, cfg.Instance.ID)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func buildNotifier(cfg config.NotifyConfig, logger *slog.Logger) (notify.Notifier, error) {
	if cfg.NATSURL == "" {
		return notify.Noop{}, nil
	}
	n, err := notify.NewNATSNotifier(cfg.NATSURL, cfg.Subject, logger)
	if err != nil {
		return nil, err
	}
	return n, nil
}
