package service

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vanshika/scansync/internal/domain"
	"github.com/vanshika/scansync/internal/provider"
)

// ApplicationErrors lists the failed per-application fetches of one pass in
// configured application order.
type ApplicationErrors []error

func (e ApplicationErrors) Error() string {
	if len(e) == 1 {
		return e[0].Error()
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d application fetches failed: %s", len(e), strings.Join(msgs, "; "))
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (e ApplicationErrors) Unwrap() []error {
	return e
}

// FetchPool pulls findings from the provider, one request per configured
// application, with at most workers requests in flight.
type FetchPool struct {
	client  provider.Client
	workers int
}

// NewFetchPool creates a FetchPool with the provided concurrency.
func NewFetchPool(client provider.Client, workers int) *FetchPool {
	if workers <= 0 {
		workers = 3
	}
	return &FetchPool{
		client:  client,
		workers: workers,
	}
}

// Fetch returns the findings matching filter. Without application ids a
// single request is made. Otherwise every application is fetched with
// query_application appended and the results are concatenated in the order
// of applicationIDs, whatever order the requests complete in. A failing
// application does not stop the others; all failures come back together.
func (p *FetchPool) Fetch(ctx context.Context, filter provider.Filter, applicationIDs []string) ([]provider.Finding, error) {
	if len(applicationIDs) == 0 {
		findings, err := p.client.GetVulnerabilities(ctx, filter)
		if err != nil {
			return nil, &domain.FetchError{Op: "vulnerabilities", Err: err}
		}
		return findings, nil
	}

	results := make([][]provider.Finding, len(applicationIDs))
	failures := make([]error, len(applicationIDs))

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, appID := range applicationIDs {
		if ctx.Err() != nil {
			break
		}
		i, appID := i, appID
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			findings, err := p.client.GetVulnerabilities(ctx, filter.With("query_application="+appID))
			if err != nil {
				failures[i] = &domain.FetchError{Op: "vulnerabilities for application " + appID, Err: err}
				return nil
			}
			results[i] = findings
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var errs ApplicationErrors
	for _, err := range failures {
		if err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	var all []provider.Finding
	for _, findings := range results {
		all = append(all, findings...)
	}
	return all, nil
}
