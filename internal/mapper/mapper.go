// Package mapper converts raw provider records into canonical graph
// entities with deterministic keys. It performs no I/O.
package mapper

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vanshika/scansync/internal/domain"
	"github.com/vanshika/scansync/internal/provider"
)

const (
	vulnerabilityKeyPrefix = "vulnerability-"
	findingKeyPrefix       = "finding-"
	applicationCategory    = "application"
	statusOpen             = "open"
)

var errEmpty = errors.New("value is empty")

// Mapped holds everything derived from a single raw finding.
type Mapped struct {
	Class         string
	Vulnerability domain.VulnerabilityEntity
	CVEs          []domain.CVEEntity
	Finding       domain.FindingEntity
}

// Map converts one raw finding. A MappingError is returned when a required
// field is missing or malformed; callers skip the record.
func Map(raw provider.Finding, scanType string) (Mapped, error) {
	vuln, err := Vulnerability(raw, scanType)
	if err != nil {
		return Mapped{}, err
	}
	finding, err := Finding(raw)
	if err != nil {
		return Mapped{}, err
	}
	return Mapped{
		Class:         vuln.Class,
		Vulnerability: vuln,
		CVEs:          CVEs(raw),
		Finding:       finding,
	}, nil
}

// Account builds the account entity keyed by the integration instance id.
func Account(account provider.AccountData, instanceID string) domain.AccountEntity {
	return domain.AccountEntity{
		Key:  instanceID,
		Name: account.Company,
	}
}

// Vulnerability builds the class-level entity. CreatedOn is the record's
// found timestamp; the aggregator and reconciler move it earlier as needed.
func Vulnerability(raw provider.Finding, scanType string) (domain.VulnerabilityEntity, error) {
	class := strings.TrimSpace(raw.Class)
	if class == "" {
		return domain.VulnerabilityEntity{}, &domain.MappingError{RecordID: raw.ID, Field: "class"}
	}
	found, err := requiredMillis(raw.ID, "found", raw.Found)
	if err != nil {
		return domain.VulnerabilityEntity{}, err
	}
	return domain.VulnerabilityEntity{
		Key:         VulnerabilityKey(class),
		Class:       class,
		Name:        class,
		DisplayName: readable(raw),
		Category:    applicationCategory,
		ScanType:    scanType,
		CreatedOn:   found,
	}, nil
}

// CVEs builds one entity per reference carrying a title. References without
// a title cannot be keyed and are dropped.
func CVEs(raw provider.Finding) []domain.CVEEntity {
	cves := make([]domain.CVEEntity, 0, len(raw.CVEReference.Collection))
	for _, ref := range raw.CVEReference.Collection {
		title := strings.TrimSpace(ref.Title)
		if title == "" {
			continue
		}
		var refs []string
		if ref.Link != "" {
			refs = []string{ref.Link}
		}
		cves = append(cves, domain.CVEEntity{
			Key:       title,
			Name:      title,
			WebLink:   ref.Link,
			Reference: refs,
		})
	}
	return cves
}

// Finding builds the per-record entity.
func Finding(raw provider.Finding) (domain.FindingEntity, error) {
	if raw.ID <= 0 {
		return domain.FindingEntity{}, &domain.MappingError{RecordID: raw.ID, Field: "id"}
	}
	class := strings.TrimSpace(raw.Class)
	if class == "" {
		return domain.FindingEntity{}, &domain.MappingError{RecordID: raw.ID, Field: "class"}
	}
	found, err := requiredMillis(raw.ID, "found", raw.Found)
	if err != nil {
		return domain.FindingEntity{}, err
	}
	opened, err := optionalMillis(raw.ID, "opened", raw.Opened)
	if err != nil {
		return domain.FindingEntity{}, err
	}
	modified, err := optionalMillis(raw.ID, "modified", raw.Modified)
	if err != nil {
		return domain.FindingEntity{}, err
	}
	var resolved *int64
	if raw.Closed != nil {
		if resolved, err = optionalMillis(raw.ID, "closed", *raw.Closed); err != nil {
			return domain.FindingEntity{}, err
		}
	}

	return domain.FindingEntity{
		Key:           FindingKey(raw.ID),
		ProviderID:    raw.ID,
		Name:          class,
		DisplayName:   readable(raw),
		ApplicationID: raw.Application.ID,
		Targets:       lastSegment(raw.Application.Label),
		Open:          raw.Status == statusOpen,
		Status:        raw.Status,
		CVSS:          raw.CVSSv3Score,
		CVSSVector:    raw.CVSSv3Vector,
		Likelihood:    raw.Likelihood,
		Impact:        raw.Impact,
		Risk:          raw.Risk,
		Location:      raw.Location,
		CreatedOn:     found,
		FoundDate:     found,
		OpenedDate:    opened,
		ModifiedDate:  modified,
		ResolvedDate:  resolved,
	}, nil
}

// VulnerabilityKey derives the vulnerability key from a finding class.
func VulnerabilityKey(class string) string {
	return vulnerabilityKeyPrefix + Slug(class)
}

// FindingKey derives the finding key from the provider id.
func FindingKey(id int64) string {
	return fmt.Sprintf("%s%d", findingKeyPrefix, id)
}

// Slug lowercases s and replaces every dot with a dash. Other characters are
// kept, so classes differing only in punctuation map to distinct slugs.
func Slug(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), ".", "-")
}

// Millis converts a provider timestamp to epoch milliseconds. An empty
// value yields nil, never epoch 0.
func Millis(value string) (*int64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return nil, err
	}
	ms := ts.UnixMilli()
	return &ms, nil
}

func requiredMillis(id int64, field, value string) (int64, error) {
	ms, err := optionalMillis(id, field, value)
	if err != nil {
		return 0, err
	}
	if ms == nil {
		return 0, &domain.MappingError{RecordID: id, Field: field, Err: errEmpty}
	}
	return *ms, nil
}

func optionalMillis(id int64, field, value string) (*int64, error) {
	ms, err := Millis(value)
	if err != nil {
		return nil, &domain.MappingError{RecordID: id, Field: field, Err: err}
	}
	return ms, nil
}

func readable(raw provider.Finding) string {
	if s := strings.TrimSpace(raw.ClassReadable); s != "" {
		return s
	}
	return strings.TrimSpace(raw.Class)
}

func lastSegment(label string) string {
	if i := strings.LastIndex(label, "/"); i >= 0 {
		return label[i+1:]
	}
	return label
}
