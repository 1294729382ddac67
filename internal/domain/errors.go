package domain

import (
	"errors"
	"fmt"
)

// ErrMissingConfiguration is wrapped when no configuration is supplied at all.
var ErrMissingConfiguration = errors.New("missing configuration")

// ConfigurationError reports missing or invalid configuration. Fatal before any fetch.
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return "configuration error: " + e.Reason
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// AuthenticationError reports that the provider rejected the credentials on
// the trial call.
type AuthenticationError struct {
	Err error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("provider authentication failed: %v", e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// FetchError reports a failure to pull data from the provider.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MappingError reports a raw record that could not be converted. The record
// is skipped; the batch continues.
type MappingError struct {
	RecordID int64
	Field    string
	Err      error
}

func (e *MappingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("map finding %d: field %s: %v", e.RecordID, e.Field, e.Err)
	}
	return fmt.Sprintf("map finding %d: missing required field %s", e.RecordID, e.Field)
}

func (e *MappingError) Unwrap() error { return e.Err }

// ReconciliationError reports a violated precondition inside the engine,
// such as a relationship endpoint that was never constructed.
type ReconciliationError struct {
	Reason string
}

func (e *ReconciliationError) Error() string {
	return "reconciliation error: " + e.Reason
}

// PublishError reports a failed atomic publish. Nothing of the batch is
// assumed applied.
type PublishError struct {
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish operations: %v", e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
