package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryClient_ExecuteWriteTx(t *testing.T) {
	mem := NewMemoryClient()
	params := map[string]any{"key": "a"}

	err := mem.ExecuteWriteTx(context.Background(), []Statement{
		{Query: "CREATE (n)", Params: params},
		{Query: "MATCH (n) DELETE n"},
	})
	require.NoError(t, err)

	params["key"] = "mutated"
	txs := mem.Transactions()
	require.Len(t, txs, 1)
	require.Len(t, txs[0], 2)
	assert.Equal(t, "a", txs[0][0].Params["key"], "params must be captured by value")
}

func TestMemoryClient_TxErrorCommitsNothing(t *testing.T) {
	boom := errors.New("boom")
	mem := NewMemoryClient().WithTxError(boom)

	err := mem.ExecuteWriteTx(context.Background(), []Statement{{Query: "CREATE (n)"}})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, mem.Transactions())
}

func TestMemoryClient_ReadHandler(t *testing.T) {
	mem := NewMemoryClient().WithReadHandler(func(_ string, params map[string]any) (Result, error) {
		return Result{Records: []Record{{"type": params["type"]}}}, nil
	})

	res, err := mem.ExecuteRead(context.Background(), "MATCH (n)", map[string]any{"type": "cve"})
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "cve", res.Records[0]["type"])
	assert.Len(t, mem.ReadCalls(), 1)
}
