package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vanshika/scansync/internal/provider"
)

func TestDatagenWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "findings.json")

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--findings", "12", "--applications", "2", "--output", path})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Generated 12 findings across 2 applications")

	client, err := provider.LoadFileClient(path)
	require.NoError(t, err)
	all, err := client.GetVulnerabilities(context.Background(), provider.Filter{"query_status=open,closed"})
	require.NoError(t, err)
	assert.Len(t, all, 12)
}

func TestDatagenStdout(t *testing.T) {
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--findings", "3", "--stdout", "--seed", "7"})

	require.NoError(t, cmd.Execute())

	var dataset provider.Dataset
	require.NoError(t, json.Unmarshal(out.Bytes(), &dataset))
	assert.Len(t, dataset.Findings, 3)
}

func TestClampProbability(t *testing.T) {
	assert.Equal(t, 0.0, clampProbability(-1))
	assert.Equal(t, 1.0, clampProbability(2))
	assert.Equal(t, 0.5, clampProbability(0.5))
}
