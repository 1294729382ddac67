package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/scansync/internal/domain"
)

func TestRecorder_ObserveBatch(t *testing.T) {
	rec := New()
	rec.ObserveBatch(domain.OperationBatch{
		Entities: []domain.EntityOperation{
			{Kind: domain.OperationCreate, EntityType: domain.FindingEntityType},
			{Kind: domain.OperationCreate, EntityType: domain.FindingEntityType},
			{Kind: domain.OperationUpdate, EntityType: domain.VulnerabilityEntityType},
		},
		Relationships: []domain.RelationshipOperation{
			{Kind: domain.OperationCreate, RelationshipType: domain.VulnerabilityFindingRelationshipType},
		},
	})

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.operations.WithLabelValues("entity", domain.FindingEntityType, "CREATE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.operations.WithLabelValues("entity", domain.VulnerabilityEntityType, "UPDATE")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.operations.WithLabelValues("relationship", domain.VulnerabilityFindingRelationshipType, "CREATE")))
}

func TestRecorder_RunsAndSkipped(t *testing.T) {
	rec := New()
	rec.ObserveRun(OutcomeSuccess, time.Second)
	rec.ObserveRun(OutcomeFailure, time.Second)
	rec.ObserveRun(OutcomeSuccess, time.Second)
	rec.ObserveSkipped(2)
	rec.ObserveSkipped(0)
	rec.ObserveLastSuccess(time.Unix(1558533852, 0))

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.runs.WithLabelValues(OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.runs.WithLabelValues(OutcomeFailure)))
	assert.Equal(t, 2.0, testutil.ToFloat64(rec.skipped))
	assert.Equal(t, 1558533852.0, testutil.ToFloat64(rec.lastSuccess))
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var rec *Recorder
	assert.NotPanics(t, func() {
		rec.ObserveRun(OutcomeSuccess, time.Second)
		rec.ObserveBatch(domain.OperationBatch{})
		rec.ObserveSkipped(1)
		rec.ObserveLastSuccess(time.Now())
	})
}

func TestRecorder_Handler(t *testing.T) {
	rec := New()
	rec.ObserveRun(OutcomeSuccess, time.Second)

	srv := httptest.NewServer(rec.Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `scansync_runs_total{outcome="success"} 1`)
}
