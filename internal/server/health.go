package server

import (
	"context"
	"fmt"
	"time"

	"github.com/vanshika/scansync/internal/graph"
)

// HealthService is one readiness check.
type HealthService interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to HealthService.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// GraphHealthService checks that the graph database answers.
type GraphHealthService struct {
	Client graph.Client
}

func (s GraphHealthService) Ping(ctx context.Context) error {
	if s.Client == nil {
		return nil
	}
	return s.Client.VerifyConnectivity(ctx)
}

// CursorReader reads the last-sync cursor.
type CursorReader interface {
	LastSync(ctx context.Context) (time.Time, bool, error)
}

// CursorHealthService checks that the last-sync store answers.
type CursorHealthService struct {
	Store CursorReader
}

func (s CursorHealthService) Ping(ctx context.Context) error {
	if s.Store == nil {
		return nil
	}
	_, _, err := s.Store.LastSync(ctx)
	return err
}

// Checks runs named checks in order and fails on the first failing one.
type Checks []NamedCheck

// NamedCheck labels a check in failure messages.
type NamedCheck struct {
	Name  string
	Check HealthService
}

func (c Checks) Ping(ctx context.Context) error {
	for _, nc := range c {
		if err := nc.Check.Ping(ctx); err != nil {
			return fmt.Errorf("%s: %w", nc.Name, err)
		}
	}
	return nil
}
