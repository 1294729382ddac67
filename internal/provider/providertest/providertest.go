// Package providertest offers fixtures and a recording fake of the provider
// client for tests.
package providertest

import (
	"context"
	"sync"

	"github.com/vanshika/scansync/internal/provider"
)

// MockFinding returns the canonical single-finding fixture.
func MockFinding() provider.Finding {
	return provider.Finding{
		ID:          987,
		Application: provider.Application{ID: "123456", Label: "my-app"},
		Status:      "open",
		CVEReference: provider.CVEReference{Collection: []provider.CVEData{
			{Link: "https://cve-website.com/cve", Title: "Very Bad Vulnerability"},
		}},
		CVSSv3Score:   "6.9",
		CVSSv3Vector:  "A:B:C:D:E:F:G",
		Likelihood:    2,
		Impact:        5,
		Risk:          "low",
		Class:         "My.Mock.Class",
		ClassReadable: "My Mock Class",
		Location:      "somewhere.js",
		Found:         "2019-04-22T21:43:53.000Z",
		Opened:        "2019-04-22T21:43:53.000Z",
		Modified:      "2019-04-22T21:43:53.000Z",
		Closed:        nil,
	}
}

// MockResources returns the account fixture.
func MockResources() provider.Resources {
	return provider.Resources{Account: provider.AccountData{Company: "LifeOmic"}}
}

// FakeClient is a provider.Client that serves canned data and records every
// filter it receives.
type FakeClient struct {
	mu           sync.Mutex
	Findings     []provider.Finding
	ByFilter     func(filter provider.Filter) ([]provider.Finding, error)
	Resources    provider.Resources
	ResourcesErr error
	FindingsErr  error
	filters      []provider.Filter
}

// NewFakeClient returns a fake serving the given findings and MockResources.
func NewFakeClient(findings ...provider.Finding) *FakeClient {
	return &FakeClient{Findings: findings, Resources: MockResources()}
}

func (c *FakeClient) GetVulnerabilities(_ context.Context, filter provider.Filter) ([]provider.Finding, error) {
	c.mu.Lock()
	c.filters = append(c.filters, append(provider.Filter(nil), filter...))
	byFilter := c.ByFilter
	findings, err := c.Findings, c.FindingsErr
	c.mu.Unlock()

	if byFilter != nil {
		return byFilter(filter)
	}
	if err != nil {
		return nil, err
	}
	return append([]provider.Finding(nil), findings...), nil
}

func (c *FakeClient) GetResources(context.Context) (provider.Resources, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ResourcesErr != nil {
		return provider.Resources{}, c.ResourcesErr
	}
	return c.Resources, nil
}

// Filters returns a snapshot of the filters received so far.
func (c *FakeClient) Filters() []provider.Filter {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]provider.Filter(nil), c.filters...)
}
