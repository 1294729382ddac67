package provider

import (
	"context"
	"strings"
)

// Application identifies the scanned application a finding belongs to.
type Application struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// CVEData is one external reference attached to a finding.
type CVEData struct {
	Link  string `json:"link"`
	Title string `json:"title"`
}

// CVEReference wraps the provider's reference collection.
type CVEReference struct {
	Collection []CVEData `json:"collection"`
}

// Finding is one raw vulnerability record as returned by the provider.
type Finding struct {
	ID            int64        `json:"id"`
	Application   Application  `json:"application"`
	Status        string       `json:"status"`
	CVEReference  CVEReference `json:"cve_reference"`
	CVSSv3Score   string       `json:"cvss_v3_score"`
	CVSSv3Vector  string       `json:"cvss_v3_vector"`
	Likelihood    int64        `json:"likelihood"`
	Impact        int64        `json:"impact"`
	Risk          string       `json:"risk"`
	Class         string       `json:"class"`
	ClassReadable string       `json:"class_readable"`
	Location      string       `json:"location"`
	Found         string       `json:"found"`
	Opened        string       `json:"opened"`
	Modified      string       `json:"modified"`
	Closed        *string      `json:"closed"`
}

// AccountData is the account-level record.
type AccountData struct {
	Company string `json:"company"`
}

// Resources describes what the API key can see.
type Resources struct {
	Account AccountData `json:"account"`
}

// Filter is the ordered list of query fragments sent to the provider, each
// of the form name=value.
type Filter []string

// With returns a copy of the filter with the fragments appended.
func (f Filter) With(fragments ...string) Filter {
	out := make(Filter, 0, len(f)+len(fragments))
	out = append(out, f...)
	return append(out, fragments...)
}

// Params splits each fragment into its name and value.
func (f Filter) Params() [][2]string {
	params := make([][2]string, 0, len(f))
	for _, fragment := range f {
		name, value, _ := strings.Cut(fragment, "=")
		params = append(params, [2]string{name, value})
	}
	return params
}

// Client is the fetch boundary towards the scanning provider. Implementations
// handle pagination and authentication.
type Client interface {
	GetVulnerabilities(ctx context.Context, filter Filter) ([]Finding, error)
	GetResources(ctx context.Context) (Resources, error)
}
