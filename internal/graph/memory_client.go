package graph

import (
	"context"
	"maps"
	"sync"
)

// ReadHandler answers a read query in the in-memory client.
type ReadHandler func(cypher string, params map[string]any) (Result, error)

// MemoryClient records every statement it receives and answers reads from
// queued results or a ReadHandler. It stands in for neo4j in tests.
type MemoryClient struct {
	mu           sync.Mutex
	reads        []ExecutedQuery
	writes       []ExecutedQuery
	transactions [][]ExecutedQuery
	queued       []Result
	readHandler  ReadHandler
	err          error
	txErr        error
	connectivity error
}

// ExecutedQuery is one recorded statement. Params are copied on receipt.
type ExecutedQuery struct {
	Query  string
	Params map[string]any
}

// NewMemoryClient returns an empty client.
func NewMemoryClient() *MemoryClient {
	return &MemoryClient{}
}

// WithError fails every subsequent call with err.
func (m *MemoryClient) WithError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithTxError makes ExecuteWriteTx fail without committing anything.
func (m *MemoryClient) WithTxError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.txErr = err
	return m
}

// WithConnectivityError makes VerifyConnectivity return err.
func (m *MemoryClient) WithConnectivityError(err error) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectivity = err
	return m
}

// WithReadHandler routes reads through fn instead of the queued results.
// Reads issued concurrently have no stable queue order, so tests covering
// concurrent lookups use a handler.
func (m *MemoryClient) WithReadHandler(fn ReadHandler) *MemoryClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.readHandler = fn
	return m
}

// PushReadResult queues the result of the next unhandled read.
func (m *MemoryClient) PushReadResult(res Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queued = append(m.queued, res)
}

func (m *MemoryClient) ExecuteRead(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure(ctx); err != nil {
		return Result{}, err
	}
	m.reads = append(m.reads, ExecutedQuery{Query: cypher, Params: maps.Clone(params)})

	if m.readHandler != nil {
		return m.readHandler(cypher, params)
	}
	if len(m.queued) == 0 {
		return Result{}, nil
	}
	res := m.queued[0]
	m.queued = m.queued[1:]
	return res, nil
}

func (m *MemoryClient) ExecuteWrite(ctx context.Context, cypher string, params map[string]any) (Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure(ctx); err != nil {
		return Result{}, err
	}
	m.writes = append(m.writes, ExecutedQuery{Query: cypher, Params: maps.Clone(params)})
	return Result{}, nil
}

func (m *MemoryClient) ExecuteWriteTx(ctx context.Context, statements []Statement) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.failure(ctx); err != nil {
		return err
	}
	if m.txErr != nil {
		return m.txErr
	}

	tx := make([]ExecutedQuery, 0, len(statements))
	for _, st := range statements {
		tx = append(tx, ExecutedQuery{Query: st.Query, Params: maps.Clone(st.Params)})
	}
	m.transactions = append(m.transactions, tx)
	return nil
}

func (m *MemoryClient) VerifyConnectivity(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectivity
}

func (m *MemoryClient) Close(context.Context) error {
	return nil
}

// ReadCalls returns the recorded reads.
func (m *MemoryClient) ReadCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.reads...)
}

// WriteCalls returns the recorded auto-committed writes.
func (m *MemoryClient) WriteCalls() []ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutedQuery(nil), m.writes...)
}

// Transactions returns the committed write transactions in order.
func (m *MemoryClient) Transactions() [][]ExecutedQuery {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]ExecutedQuery(nil), m.transactions...)
}

func (m *MemoryClient) failure(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return m.err
}
