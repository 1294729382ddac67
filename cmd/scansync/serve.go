package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/vanshika/scansync/internal/config"
	"github.com/vanshika/scansync/internal/server"
)

func serve(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	graphClient, err := buildGraphClient(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create graph client: %w", err)
	}
	a, err := newApp(ctx, cfg, logger, graphClient)
	if err != nil {
		_ = graphClient.Close(context.Background())
		return err
	}
	defer a.Close(context.Background())

	return server.New(logger, cfg.HTTP, newRouter(a, cfg.HTTP)).Run(ctx)
}

func newRouter(a *app, cfg config.HTTPConfig) http.Handler {
	deps := server.RouterDependencies{
		Health: server.Checks{
			{Name: "graph", Check: server.GraphHealthService{Client: a.graph}},
			{Name: "state", Check: server.CursorHealthService{Store: a.store}},
		},
		Sync: server.NewSyncHandlers(a.logger, a.runner),
	}
	if cfg.MetricsEnabled {
		deps.Metrics = a.metrics.Handler()
	}
	return server.NewRouter(a.logger, deps)
}
