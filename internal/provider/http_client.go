package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"golang.org/x/time/rate"
)

// ErrUnauthorized is returned when the provider rejects the API key.
var ErrUnauthorized = errors.New("provider rejected credentials")

const (
	defaultBaseURL  = "https://sentinel.whitehatsec.com/api"
	defaultPageSize = 500
	defaultTimeout  = 30 * time.Second
	maxErrorBody    = 4 << 10
)

// HTTPOptions configures the HTTP provider client.
type HTTPOptions struct {
	BaseURL           string
	APIKey            string
	PageSize          int
	RequestsPerSecond float64
	Timeout           time.Duration
	HTTPClient        *http.Client
}

// HTTPClient talks to the provider's REST API.
type HTTPClient struct {
	baseURL  string
	apiKey   string
	pageSize int
	limiter  *rate.Limiter
	http     *http.Client
}

// NewHTTPClient builds an HTTPClient, applying defaults for unset options.
func NewHTTPClient(opts HTTPOptions) (*HTTPClient, error) {
	if opts.APIKey == "" {
		return nil, errors.New("provider API key is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("parse provider base URL: %w", err)
	}
	if opts.PageSize <= 0 {
		opts.PageSize = defaultPageSize
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	limit := rate.Inf
	burst := 1
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
		burst = int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &HTTPClient{
		baseURL:  opts.BaseURL,
		apiKey:   opts.APIKey,
		pageSize: opts.PageSize,
		limiter:  rate.NewLimiter(limit, burst),
		http:     httpClient,
	}, nil
}

type vulnPage struct {
	Collection []Finding `json:"collection"`
	Page       struct {
		Total int `json:"total"`
	} `json:"page"`
}

// GetVulnerabilities pages through /vuln with the given filter fragments.
func (c *HTTPClient) GetVulnerabilities(ctx context.Context, filter Filter) ([]Finding, error) {
	var findings []Finding
	offset := 0
	for {
		query := url.Values{}
		for _, p := range filter.Params() {
			query.Add(p[0], p[1])
		}
		query.Set("display_cve_reference", "1")
		query.Set("display_application", "1")
		query.Set("page:limit", strconv.Itoa(c.pageSize))
		query.Set("page:offset", strconv.Itoa(offset))

		var page vulnPage
		if err := c.get(ctx, "/vuln", query, &page); err != nil {
			return nil, err
		}
		findings = append(findings, page.Collection...)
		offset += len(page.Collection)

		if len(page.Collection) < c.pageSize {
			break
		}
		if page.Page.Total > 0 && offset >= page.Page.Total {
			break
		}
	}
	return findings, nil
}

// GetResources fetches the account metadata visible to the API key.
func (c *HTTPClient) GetResources(ctx context.Context) (Resources, error) {
	var res Resources
	if err := c.get(ctx, "/resources", nil, &res); err != nil {
		return Resources{}, err
	}
	return res, nil
}

func (c *HTTPClient) get(ctx context.Context, path string, query url.Values, dst any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request %s: %w", path, err)
	}
	req.Header.Set("key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w (status %d)", path, ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode >= 300:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("%s: unexpected status %d: %s", path, resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
