// Package graph is the thin boundary between the repository and the graph
// database. Queries are Cypher with parameter maps.
package graph

import (
	"context"
	"errors"
	"time"
)

// Client is what the repository needs from the graph database.
type Client interface {
	// ExecuteRead runs a read-only query and returns every record.
	ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error)
	// ExecuteWrite runs a single auto-committed write, used for schema setup.
	ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error)
	// ExecuteWriteTx runs every statement inside a single write transaction.
	// Either all statements commit or none do.
	ExecuteWriteTx(ctx context.Context, statements []Statement) error
	VerifyConnectivity(ctx context.Context) error
	Close(ctx context.Context) error
}

// Statement is one cypher query with its parameters.
type Statement struct {
	Query  string
	Params map[string]any
}

// Result holds the records of one query.
type Result struct {
	Records []Record
}

// Record maps return keys to values.
type Record map[string]any

// Options configures the neo4j client.
type Options struct {
	URI            string
	Database       string
	Username       string
	Password       string
	MaxConnections int
	// TxTimeout bounds the publish transaction. Zero leaves the server default.
	TxTimeout time.Duration
}

// ErrMissingURI indicates the graph URI is not provided.
var ErrMissingURI = errors.New("graph URI is required")
