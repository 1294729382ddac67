// Package state persists the instant of the last successful
// synchronization per integration instance.
package state

import (
	"context"
	"errors"
	"strconv"
	"time"
)

// ErrMissingInstance is returned when a store is built without an instance id.
var ErrMissingInstance = errors.New("integration instance id is required")

// Store reads and records the last-sync cursor for one integration instance.
// Only the run hook calls RecordSync, after a successful publish.
type Store interface {
	LastSync(ctx context.Context) (time.Time, bool, error)
	RecordSync(ctx context.Context, at time.Time) error
	Close() error
}

func cursorKey(instanceID string) string {
	return "scansync:last-sync:" + instanceID
}

func encodeMillis(t time.Time) []byte {
	return []byte(strconv.FormatInt(t.UnixMilli(), 10))
}

func decodeMillis(raw []byte) (time.Time, error) {
	ms, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}
