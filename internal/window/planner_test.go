package window

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/scansync/internal/provider"
)

type stubLookup struct {
	last time.Time
	ok   bool
	err  error
}

func (s stubLookup) LastSync(context.Context) (time.Time, bool, error) {
	return s.last, s.ok, s.err
}

func TestPlan_NoPriorSyncFetchesEverything(t *testing.T) {
	filter, err := NewPlanner(stubLookup{}).Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, provider.Filter{"query_status=open,closed"}, filter)
}

func TestPlan_NilLookup(t *testing.T) {
	filter, err := NewPlanner(nil).Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, provider.Filter{"query_status=open,closed"}, filter)
}

func TestPlan_UsesLastSyncTime(t *testing.T) {
	lookup := stubLookup{last: time.UnixMilli(1558533852128), ok: true}

	filter, err := NewPlanner(lookup).Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, provider.Filter{
		"query_status=open,closed",
		"query_opened_after=2019-05-22T14:04:12.128Z",
		"query_closed_after=2019-05-22T14:04:12.128Z",
		"query_found_after=2019-05-22T14:04:12.128Z",
	}, filter)
}

func TestPlan_LookupFailure(t *testing.T) {
	_, err := NewPlanner(stubLookup{err: errors.New("store offline")}).Plan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store offline")
}

func TestSinceMillis(t *testing.T) {
	assert.Equal(t, provider.Filter{BaseFilter}, SinceMillis(0))
	assert.Len(t, SinceMillis(1558533852128), 4)
}

func TestSince_NonUTCInstantIsNormalized(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	last := time.Date(2019, 5, 22, 16, 4, 12, 128_000_000, loc)

	filter := Since(&last)
	assert.Equal(t, "query_found_after=2019-05-22T14:04:12.128Z", filter[3])
}
