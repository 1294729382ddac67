package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Dataset is the on-disk form served by FileClient.
type Dataset struct {
	Resources Resources `json:"resources"`
	Findings  []Finding `json:"findings"`
}

// FileClient serves a static dataset, applying the provider's filter
// semantics locally. Useful for local runs and fixtures.
type FileClient struct {
	dataset Dataset
}

// NewFileClient wraps an in-memory dataset.
func NewFileClient(dataset Dataset) *FileClient {
	return &FileClient{dataset: dataset}
}

// LoadFileClient reads a dataset from a JSON file.
func LoadFileClient(path string) (*FileClient, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	var dataset Dataset
	if err := json.NewDecoder(file).Decode(&dataset); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return NewFileClient(dataset), nil
}

// GetResources returns the dataset's account metadata.
func (c *FileClient) GetResources(context.Context) (Resources, error) {
	return c.dataset.Resources, nil
}

// GetVulnerabilities returns the findings matching the filter. Status and
// application fragments must all match; the *_after fragments match when any
// of them does, so a record changed in any way since the cursor is returned.
func (c *FileClient) GetVulnerabilities(ctx context.Context, filter Filter) ([]Finding, error) {
	m, err := newMatcher(filter)
	if err != nil {
		return nil, err
	}
	var out []Finding
	for _, f := range c.dataset.Findings {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if m.matches(f) {
			out = append(out, f)
		}
	}
	return out, nil
}

type matcher struct {
	statuses     map[string]struct{}
	applications map[string]struct{}
	openedAfter  *time.Time
	closedAfter  *time.Time
	foundAfter   *time.Time
}

func newMatcher(filter Filter) (*matcher, error) {
	m := &matcher{}
	for _, p := range filter.Params() {
		name, value := p[0], p[1]
		switch name {
		case "query_status":
			m.statuses = splitSet(value)
		case "query_application":
			m.applications = splitSet(value)
		case "query_opened_after", "query_closed_after", "query_found_after":
			ts, err := time.Parse(time.RFC3339Nano, value)
			if err != nil {
				return nil, fmt.Errorf("parse %s: %w", name, err)
			}
			switch name {
			case "query_opened_after":
				m.openedAfter = &ts
			case "query_closed_after":
				m.closedAfter = &ts
			default:
				m.foundAfter = &ts
			}
		}
	}
	return m, nil
}

func (m *matcher) matches(f Finding) bool {
	if m.statuses != nil {
		if _, ok := m.statuses[f.Status]; !ok {
			return false
		}
	}
	if m.applications != nil {
		if _, ok := m.applications[f.Application.ID]; !ok {
			return false
		}
	}
	if m.openedAfter == nil && m.closedAfter == nil && m.foundAfter == nil {
		return true
	}
	closed := ""
	if f.Closed != nil {
		closed = *f.Closed
	}
	return after(f.Opened, m.openedAfter) || after(closed, m.closedAfter) || after(f.Found, m.foundAfter)
}

func after(value string, cursor *time.Time) bool {
	if cursor == nil || value == "" {
		return false
	}
	ts, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return false
	}
	return ts.After(*cursor)
}

func splitSet(csv string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			set[part] = struct{}{}
		}
	}
	return set
}
