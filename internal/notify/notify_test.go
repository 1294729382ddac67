package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoop(t *testing.T) {
	var n Notifier = Noop{}
	assert.NoError(t, n.NotifyRun(context.Background(), RunSummary{RunID: "r"}))
	assert.NoError(t, n.Close())
}

func TestRunSummary_JSON(t *testing.T) {
	data, err := json.Marshal(RunSummary{RunID: "r-1", Created: 2})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "r-1", decoded["run_id"])
	assert.Equal(t, float64(2), decoded["created"])
	_, hasError := decoded["error"]
	assert.False(t, hasError)
}

func TestNATSNotifier_Publishes(t *testing.T) {
	nc, err := nats.Connect(nats.DefaultURL)
	if err != nil {
		t.Skipf("Skipping test: NATS not available: %v", err)
	}
	defer nc.Close()

	sub, err := nc.SubscribeSync("scansync.test.runs")
	require.NoError(t, err)

	notifier := NewNATSNotifierWithConn(nc, "scansync.test.runs", nil)
	require.NoError(t, notifier.NotifyRun(context.Background(), RunSummary{RunID: "r-2", Updated: 1}))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)

	var got RunSummary
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	assert.Equal(t, "r-2", got.RunID)
	assert.Equal(t, 1, got.Updated)
}

func TestNewNATSNotifier_Unreachable(t *testing.T) {
	_, err := NewNATSNotifier("nats://127.0.0.1:1", "scansync.runs", nil)
	assert.Error(t, err)
}
