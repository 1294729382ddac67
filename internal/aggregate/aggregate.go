// Package aggregate folds a batch of raw findings into per-class entity
// maps, applying the earliest-date merge policy for vulnerabilities.
package aggregate

import (
	"errors"
	"fmt"
	"sync"

	"github.com/vanshika/scansync/internal/domain"
	"github.com/vanshika/scansync/internal/mapper"
	"github.com/vanshika/scansync/internal/provider"
)

// ErrKeyCollision marks a record whose class derives a vulnerability key
// already owned by a different class in the same batch.
var ErrKeyCollision = errors.New("vulnerability key collision")

// Result is the output of one aggregation pass. Every map is keyed by
// finding class, except Services which is keyed by scan type.
type Result struct {
	// Vulnerabilities are ordered by the first appearance of their class.
	Vulnerabilities []domain.VulnerabilityEntity
	CVEs            map[string][]domain.CVEEntity
	Findings        map[string][]domain.FindingEntity
	Services        map[string]domain.ServiceEntity
	// Skipped holds one MappingError per rejected record.
	Skipped []error
}

// FindingCount returns the number of findings across all classes.
func (r Result) FindingCount() int {
	n := 0
	for _, findings := range r.Findings {
		n += len(findings)
	}
	return n
}

// KeepEarliest is the vulnerability merge policy: the candidate's attributes
// win, but the smaller CreatedOn of the two is kept.
func KeepEarliest(existing, candidate domain.VulnerabilityEntity) domain.VulnerabilityEntity {
	merged := candidate
	if existing.CreatedOn < candidate.CreatedOn {
		merged.CreatedOn = existing.CreatedOn
	}
	return merged
}

// Aggregator accumulates findings. Add is safe for concurrent use; Result
// should be called once all Adds have returned.
type Aggregator struct {
	scanType        string
	vulnerabilities *Mapping[string, domain.VulnerabilityEntity]
	cves            *Mapping[string, []domain.CVEEntity]
	findings        *Mapping[string, *Mapping[string, domain.FindingEntity]]

	mu      sync.Mutex
	owners  map[string]string
	skipped []error
}

// New returns an Aggregator tagging vulnerabilities with scanType.
func New(scanType string) *Aggregator {
	return &Aggregator{
		scanType:        scanType,
		vulnerabilities: NewMapping[string, domain.VulnerabilityEntity](),
		cves:            NewMapping[string, []domain.CVEEntity](),
		findings:        NewMapping[string, *Mapping[string, domain.FindingEntity]](),
		owners:          make(map[string]string),
	}
}

// Add maps and folds one record. A MappingError is recorded and returned;
// the aggregator state is left untouched for that record.
func (a *Aggregator) Add(raw provider.Finding) error {
	mapped, err := mapper.Map(raw, a.scanType)
	if err == nil {
		err = a.claim(raw.ID, mapped)
	}
	if err != nil {
		a.mu.Lock()
		a.skipped = append(a.skipped, err)
		a.mu.Unlock()
		return err
	}

	a.vulnerabilities.Upsert(mapped.Class, mapped.Vulnerability, KeepEarliest)
	a.cves.Upsert(mapped.Class, mapped.CVEs, nil)

	group := a.findings.Upsert(mapped.Class, NewMapping[string, domain.FindingEntity](), keepGroup)
	group.Upsert(mapped.Finding.Key, mapped.Finding, nil)
	return nil
}

// Result snapshots the accumulated state.
func (a *Aggregator) Result() Result {
	a.mu.Lock()
	skipped := append([]error(nil), a.skipped...)
	a.mu.Unlock()

	findings := make(map[string][]domain.FindingEntity, a.findings.Len())
	for class, group := range a.findings.Map() {
		findings[class] = group.Values()
	}
	return Result{
		Vulnerabilities: a.vulnerabilities.Values(),
		CVEs:            a.cves.Map(),
		Findings:        findings,
		Services:        domain.DefaultServices(),
		Skipped:         skipped,
	}
}

// Aggregate folds records in order and returns the result.
func Aggregate(records []provider.Finding, scanType string) Result {
	agg := New(scanType)
	for _, raw := range records {
		_ = agg.Add(raw)
	}
	return agg.Result()
}

// claim binds the vulnerability key of mapped to its class. The first class
// to derive a key owns it for the rest of the batch.
func (a *Aggregator) claim(recordID int64, mapped mapper.Mapped) error {
	key := mapped.Vulnerability.Key
	a.mu.Lock()
	defer a.mu.Unlock()
	owner, ok := a.owners[key]
	if !ok {
		a.owners[key] = mapped.Class
		return nil
	}
	if owner == mapped.Class {
		return nil
	}
	return &domain.MappingError{
		RecordID: recordID,
		Field:    "class",
		Err:      fmt.Errorf("%w: %q and %q both derive %s", ErrKeyCollision, owner, mapped.Class, key),
	}
}

func keepGroup(existing, _ *Mapping[string, domain.FindingEntity]) *Mapping[string, domain.FindingEntity] {
	return existing
}
