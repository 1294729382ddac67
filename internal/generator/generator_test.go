package generator

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/scansync/internal/mapper"
	"github.com/vanshika/scansync/internal/provider"
)

var fixedNow = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.NumFindings = 200
	cfg.Now = fixedNow
	return cfg
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	first, err := New(testConfig()).Generate(context.Background())
	require.NoError(t, err)
	second, err := New(testConfig()).Generate(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first.Findings, 200)
	assert.Equal(t, "Acme Corp", first.Resources.Account.Company)
}

func TestGenerateProducesMappableFindings(t *testing.T) {
	cfg := testConfig()
	cfg.MalformedChance = 0
	dataset, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)

	ids := make(map[int64]struct{}, len(dataset.Findings))
	for _, raw := range dataset.Findings {
		_, dup := ids[raw.ID]
		require.False(t, dup, "duplicate finding id %d", raw.ID)
		ids[raw.ID] = struct{}{}

		mapped, err := mapper.Map(raw, "DYNAMIC")
		require.NoError(t, err)
		assert.LessOrEqual(t, mapped.Finding.FoundDate, fixedNow.UnixMilli())
		if raw.Status == "closed" {
			require.NotNil(t, mapped.Finding.ResolvedDate)
			assert.False(t, mapped.Finding.Open)
		} else {
			assert.True(t, mapped.Finding.Open)
		}
	}
}

func TestGenerateMalformedRecordsAreSkippable(t *testing.T) {
	cfg := testConfig()
	cfg.MalformedChance = 1
	dataset, err := New(cfg).Generate(context.Background())
	require.NoError(t, err)

	for _, raw := range dataset.Findings {
		_, err := mapper.Map(raw, "DYNAMIC")
		require.Error(t, err)
	}
}

func TestGenerateRespectsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(testConfig()).Generate(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestWriteDatasetRoundTripsThroughFileClient(t *testing.T) {
	dataset, err := New(testConfig()).Generate(context.Background())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "dataset.json")
	require.NoError(t, WriteDataset(dataset, path))

	client, err := provider.LoadFileClient(path)
	require.NoError(t, err)

	resources, err := client.GetResources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dataset.Resources, resources)

	open, err := client.GetVulnerabilities(context.Background(), provider.Filter{"query_status=open"})
	require.NoError(t, err)
	for _, f := range open {
		assert.Equal(t, "open", f.Status)
	}
}
