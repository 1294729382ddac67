// Package reconcile diffs newly aggregated entities and relationships against
// the persisted graph and emits the minimal operation set that converges it.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/scansync/internal/domain"
)

// GraphReader is the read boundary of the persisted graph, scoped to one
// integration instance.
type GraphReader interface {
	FindEntitiesByType(ctx context.Context, entityType string) ([]domain.Entity, error)
	FindRelationshipsByType(ctx context.Context, relationshipType string) ([]domain.Relationship, error)
}

// Input is one aggregation pass plus the account it belongs to. CVEs and
// Findings are keyed by finding class, Services by scan type.
type Input struct {
	Account         domain.AccountEntity
	Vulnerabilities []domain.VulnerabilityEntity
	CVEs            map[string][]domain.CVEEntity
	Findings        map[string][]domain.FindingEntity
	Services        map[string]domain.ServiceEntity
}

// Option configures an Engine.
type Option func(*Engine)

// WithCompleteInventory marks entity or relationship types for which a run is
// a complete inventory, so persisted-only keys of those types are deleted.
// No type is complete by default.
func WithCompleteInventory(types ...string) Option {
	return func(e *Engine) {
		for _, t := range types {
			e.complete[t] = true
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLookupConcurrency bounds the number of persisted lookups in flight.
func WithLookupConcurrency(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.lookupConcurrency = n
		}
	}
}

// Engine computes operation batches. It never writes to the graph.
type Engine struct {
	reader            GraphReader
	complete          map[string]bool
	logger            *slog.Logger
	lookupConcurrency int
}

// NewEngine builds an Engine reading persisted state from reader.
func NewEngine(reader GraphReader, opts ...Option) *Engine {
	e := &Engine{
		reader:            reader,
		complete:          make(map[string]bool),
		logger:            slog.Default(),
		lookupConcurrency: 4,
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With("component", "reconcile")
	return e
}

// ReconcileAccount diffs the account entity on its own.
func (e *Engine) ReconcileAccount(ctx context.Context, account domain.AccountEntity) (domain.OperationBatch, error) {
	if account.Key == "" {
		return domain.OperationBatch{}, &domain.ReconciliationError{Reason: "account entity has no key"}
	}
	persisted, err := e.reader.FindEntitiesByType(ctx, domain.AccountEntityType)
	if err != nil {
		return domain.OperationBatch{}, fmt.Errorf("lookup persisted accounts: %w", err)
	}
	ops := DiffEntities(persisted, []domain.Entity{account.ToEntity()}, e.complete[domain.AccountEntityType])
	return domain.OperationBatch{Entities: ops}, nil
}

// Reconcile computes the findings batch: vulnerability, service and finding
// entity operations followed by the four relationship groups. A vulnerability
// whose persisted createdOn is earlier keeps the persisted value.
func (e *Engine) Reconcile(ctx context.Context, in Input) (domain.OperationBatch, error) {
	graph, err := buildGraph(in)
	if err != nil {
		return domain.OperationBatch{}, err
	}

	snap, err := e.lookup(ctx)
	if err != nil {
		return domain.OperationBatch{}, err
	}

	vulnerabilities := keepEarliestPersisted(graph.vulnerabilities, snap.entities[domain.VulnerabilityEntityType])

	var batch domain.OperationBatch
	for _, group := range []struct {
		entityType string
		next       []domain.Entity
	}{
		{domain.VulnerabilityEntityType, vulnerabilityEntities(vulnerabilities)},
		{domain.ServiceEntityType, graph.services},
		{domain.FindingEntityType, graph.findings},
	} {
		ops := DiffEntities(snap.entities[group.entityType], group.next, e.complete[group.entityType])
		e.logger.Debug("entity diff", "type", group.entityType, "computed", len(group.next), "operations", len(ops))
		batch.Entities = append(batch.Entities, ops...)
	}

	for _, relType := range relationshipTypes {
		next := graph.relationships[relType]
		ops := DiffRelationships(snap.relationships[relType], next, e.complete[relType])
		e.logger.Debug("relationship diff", "type", relType, "computed", len(next), "operations", len(ops))
		batch.Relationships = append(batch.Relationships, ops...)
	}
	return batch, nil
}

var (
	entityTypes = []string{
		domain.VulnerabilityEntityType,
		domain.ServiceEntityType,
		domain.FindingEntityType,
	}
	relationshipTypes = []string{
		domain.AccountServiceRelationshipType,
		domain.ServiceVulnerabilityRelationshipType,
		domain.VulnerabilityCVERelationshipType,
		domain.VulnerabilityFindingRelationshipType,
	}
)

type snapshot struct {
	entities      map[string][]domain.Entity
	relationships map[string][]domain.Relationship
}

// lookup reads every persisted type concurrently; the reads are independent.
func (e *Engine) lookup(ctx context.Context) (snapshot, error) {
	entities := make([][]domain.Entity, len(entityTypes))
	relationships := make([][]domain.Relationship, len(relationshipTypes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.lookupConcurrency)
	for i, t := range entityTypes {
		i, t := i, t
		g.Go(func() error {
			found, err := e.reader.FindEntitiesByType(gctx, t)
			if err != nil {
				return fmt.Errorf("lookup persisted %s entities: %w", t, err)
			}
			entities[i] = found
			return nil
		})
	}
	for i, t := range relationshipTypes {
		i, t := i, t
		g.Go(func() error {
			found, err := e.reader.FindRelationshipsByType(gctx, t)
			if err != nil {
				return fmt.Errorf("lookup persisted %s relationships: %w", t, err)
			}
			relationships[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return snapshot{}, err
	}

	snap := snapshot{
		entities:      make(map[string][]domain.Entity, len(entityTypes)),
		relationships: make(map[string][]domain.Relationship, len(relationshipTypes)),
	}
	for i, t := range entityTypes {
		snap.entities[t] = entities[i]
	}
	for i, t := range relationshipTypes {
		snap.relationships[t] = relationships[i]
	}
	return snap, nil
}

type computedGraph struct {
	vulnerabilities []domain.VulnerabilityEntity
	services        []domain.Entity
	findings        []domain.Entity
	relationships   map[string][]domain.Relationship
}

// buildGraph derives the entity and relationship sets of the run. Every
// relationship endpoint must have been constructed by the aggregation pass.
func buildGraph(in Input) (computedGraph, error) {
	if in.Account.Key == "" {
		return computedGraph{}, &domain.ReconciliationError{Reason: "account entity has no key"}
	}

	g := computedGraph{
		vulnerabilities: in.Vulnerabilities,
		relationships:   make(map[string][]domain.Relationship, len(relationshipTypes)),
	}

	scanTypes := make([]string, 0, len(in.Services))
	for scanType := range in.Services {
		scanTypes = append(scanTypes, scanType)
	}
	sort.Strings(scanTypes)
	for _, scanType := range scanTypes {
		service := in.Services[scanType]
		g.services = append(g.services, service.ToEntity())
		g.add(domain.NewAccountServiceRelationship(in.Account, service))
	}

	for _, vuln := range in.Vulnerabilities {
		service, ok := in.Services[vuln.ScanType]
		if !ok {
			return computedGraph{}, &domain.ReconciliationError{
				Reason: fmt.Sprintf("vulnerability %s references unknown service scan type %q", vuln.Key, vuln.ScanType),
			}
		}
		g.add(domain.NewServiceVulnerabilityRelationship(service, vuln))

		for _, cve := range in.CVEs[vuln.Class] {
			g.add(domain.NewVulnerabilityCVERelationship(vuln, cve))
		}

		findings, ok := in.Findings[vuln.Class]
		if !ok {
			return computedGraph{}, &domain.ReconciliationError{
				Reason: fmt.Sprintf("vulnerability %s has no findings for class %q", vuln.Key, vuln.Class),
			}
		}
		for _, finding := range findings {
			g.findings = append(g.findings, finding.ToEntity())
			g.add(domain.NewVulnerabilityFindingRelationship(vuln, finding))
		}
	}
	return g, nil
}

func (g *computedGraph) add(rel domain.Relationship) {
	g.relationships[rel.Type] = append(g.relationships[rel.Type], rel)
}

// keepEarliestPersisted applies the cross-run date rule: createdOn may only
// move earlier.
func keepEarliestPersisted(next []domain.VulnerabilityEntity, persisted []domain.Entity) []domain.VulnerabilityEntity {
	earliest := make(map[string]int64, len(persisted))
	for _, e := range persisted {
		if v, ok := e.Property("createdOn"); ok {
			if ms, ok := toInt64(v); ok {
				earliest[e.Key] = ms
			}
		}
	}

	out := make([]domain.VulnerabilityEntity, len(next))
	for i, vuln := range next {
		if ms, ok := earliest[vuln.Key]; ok && ms < vuln.CreatedOn {
			vuln.CreatedOn = ms
		}
		out[i] = vuln
	}
	return out
}

func vulnerabilityEntities(vulns []domain.VulnerabilityEntity) []domain.Entity {
	out := make([]domain.Entity, len(vulns))
	for i, v := range vulns {
		out[i] = v.ToEntity()
	}
	return out
}

func toInt64(v any) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case float64:
		return int64(val), true
	default:
		return 0, false
	}
}
