// Package window decides which provider records need to be fetched, based
// on the instant of the last successful synchronization.
package window

import (
	"context"
	"fmt"
	"time"

	"github.com/vanshika/scansync/internal/provider"
)

// BaseFilter is always sent: both open and closed findings are fetched and
// closure is read from the record itself.
const BaseFilter = "query_status=open,closed"

// isoMillis renders an instant the way the provider expects it.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// LastSyncLookup reports when the last synchronization completed. ok is
// false when no run has completed yet.
type LastSyncLookup interface {
	LastSync(ctx context.Context) (last time.Time, ok bool, err error)
}

// Planner builds fetch filters from a LastSyncLookup. It never writes the
// last-sync state.
type Planner struct {
	lookup LastSyncLookup
}

// NewPlanner returns a Planner reading from lookup. A nil lookup always
// plans a full historical fetch.
func NewPlanner(lookup LastSyncLookup) *Planner {
	return &Planner{lookup: lookup}
}

// Plan reads the cursor and returns the filter for the next fetch.
func (p *Planner) Plan(ctx context.Context) (provider.Filter, error) {
	if p.lookup == nil {
		return Since(nil), nil
	}
	last, ok, err := p.lookup.LastSync(ctx)
	if err != nil {
		return nil, fmt.Errorf("read last sync time: %w", err)
	}
	if !ok {
		return Since(nil), nil
	}
	return Since(&last), nil
}

// Since returns the filter for records changed after last, or the base
// filter alone when last is nil or zero.
func Since(last *time.Time) provider.Filter {
	filter := provider.Filter{BaseFilter}
	if last == nil || last.IsZero() {
		return filter
	}
	instant := last.UTC().Format(isoMillis)
	return filter.With(
		"query_opened_after="+instant,
		"query_closed_after="+instant,
		"query_found_after="+instant,
	)
}

// SinceMillis is Since for an epoch-millisecond cursor; zero means no cursor.
func SinceMillis(ms int64) provider.Filter {
	if ms == 0 {
		return Since(nil)
	}
	t := time.UnixMilli(ms)
	return Since(&t)
}
