package server

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vanshika/scansync/internal/graph"
)

type cursorStub struct {
	err error
}

func (c cursorStub) LastSync(context.Context) (time.Time, bool, error) {
	return time.Time{}, false, c.err
}

func TestGraphHealthService(t *testing.T) {
	mem := graph.NewMemoryClient().WithConnectivityError(errors.New("bolt refused"))

	if err := (GraphHealthService{Client: mem}).Ping(context.Background()); err == nil {
		t.Fatal("expected connectivity error")
	}
	if err := (GraphHealthService{}).Ping(context.Background()); err != nil {
		t.Fatalf("expected nil client to pass, got %v", err)
	}
}

func TestChecksNamesFailingCheck(t *testing.T) {
	checks := Checks{
		{Name: "graph", Check: GraphHealthService{Client: graph.NewMemoryClient()}},
		{Name: "state", Check: CursorHealthService{Store: cursorStub{err: errors.New("badger closed")}}},
	}

	err := checks.Ping(context.Background())
	if err == nil {
		t.Fatal("expected failure")
	}
	if err.Error() != "state: badger closed" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestChecksAllHealthy(t *testing.T) {
	checks := Checks{
		{Name: "graph", Check: GraphHealthService{Client: graph.NewMemoryClient()}},
		{Name: "state", Check: CursorHealthService{Store: cursorStub{}}},
	}

	if err := checks.Ping(context.Background()); err != nil {
		t.Fatalf("expected healthy, got %v", err)
	}
}
