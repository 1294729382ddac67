package generator

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/vanshika/scansync/internal/provider"
)

// Generator produces synthetic provider datasets in the shape the file
// provider serves.
type Generator struct {
	cfg     Config
	rand    *rand.Rand
	classes []vulnClass
}

// New returns a configured Generator instance.
func New(cfg Config) *Generator {
	defaults := DefaultConfig()
	if cfg.Company == "" {
		cfg.Company = defaults.Company
	}
	if cfg.NumFindings <= 0 {
		cfg.NumFindings = defaults.NumFindings
	}
	if cfg.NumApplications <= 0 {
		cfg.NumApplications = defaults.NumApplications
	}
	if cfg.CVEChance < 0 {
		cfg.CVEChance = defaults.CVEChance
	}
	if cfg.ClosedChance < 0 {
		cfg.ClosedChance = defaults.ClosedChance
	}
	if cfg.MalformedChance < 0 {
		cfg.MalformedChance = 0
	}
	if cfg.HistoryDays <= 0 {
		cfg.HistoryDays = defaults.HistoryDays
	}
	if cfg.FirstFindingID <= 0 {
		cfg.FirstFindingID = defaults.FirstFindingID
	}
	if cfg.ApplicationLabel == "" {
		cfg.ApplicationLabel = defaults.ApplicationLabel
	}
	if cfg.Seed == 0 {
		cfg.Seed = time.Now().UnixNano()
	}
	if cfg.Now.IsZero() {
		cfg.Now = time.Now()
	}
	cfg.Now = cfg.Now.UTC()

	return &Generator{
		cfg:     cfg,
		rand:    rand.New(rand.NewSource(cfg.Seed)),
		classes: defaultClasses(),
	}
}

// Generate synthesises a dataset. It respects context cancellation.
func (g *Generator) Generate(ctx context.Context) (provider.Dataset, error) {
	apps := make([]provider.Application, g.cfg.NumApplications)
	for i := range apps {
		apps[i] = provider.Application{
			ID:    fmt.Sprintf("%d", 100+i),
			Label: fmt.Sprintf("%s/app-%02d", g.cfg.ApplicationLabel, i+1),
		}
	}

	findings := make([]provider.Finding, g.cfg.NumFindings)
	for i := range findings {
		if err := ctx.Err(); err != nil {
			return provider.Dataset{}, err
		}
		findings[i] = g.finding(g.cfg.FirstFindingID+int64(i), apps[g.rand.Intn(len(apps))])
	}

	return provider.Dataset{
		Resources: provider.Resources{Account: provider.AccountData{Company: g.cfg.Company}},
		Findings:  findings,
	}, nil
}

func (g *Generator) finding(id int64, app provider.Application) provider.Finding {
	class := g.classes[g.rand.Intn(len(g.classes))]
	found := g.cfg.Now.Add(-time.Duration(g.rand.Intn(g.cfg.HistoryDays*24)+1) * time.Hour)
	opened := found.Add(time.Duration(g.rand.Intn(48)) * time.Minute)
	modified := opened.Add(time.Duration(g.rand.Intn(72)) * time.Hour)
	if modified.After(g.cfg.Now) {
		modified = g.cfg.Now
	}

	likelihood := int64(1 + g.rand.Intn(5))
	impact := int64(1 + g.rand.Intn(5))

	f := provider.Finding{
		ID:            id,
		Application:   app,
		Status:        "open",
		CVSSv3Score:   fmt.Sprintf("%.1f", class.baseScore+g.rand.Float64()*(10-class.baseScore)),
		CVSSv3Vector:  class.vector,
		Likelihood:    likelihood,
		Impact:        impact,
		Risk:          fmt.Sprintf("%d", (likelihood+impact+1)/2),
		Class:         class.name,
		ClassReadable: class.readable,
		Location:      fmt.Sprintf("/%s/%s", class.path, g.randomParameter()),
		Found:         formatTimestamp(found),
		Opened:        formatTimestamp(opened),
		Modified:      formatTimestamp(modified),
	}

	if g.rand.Float64() < g.cfg.CVEChance {
		f.CVEReference = provider.CVEReference{Collection: g.references(class)}
	}

	if g.rand.Float64() < g.cfg.ClosedChance {
		closed := formatTimestamp(modified)
		f.Status = "closed"
		f.Closed = &closed
	}

	if g.rand.Float64() < g.cfg.MalformedChance {
		g.corrupt(&f)
	}

	return f
}

func (g *Generator) references(class vulnClass) []provider.CVEData {
	count := 1 + g.rand.Intn(2)
	refs := make([]provider.CVEData, 0, count)
	for i := 0; i < count; i++ {
		title := fmt.Sprintf("CVE-%d-%04d", 2015+g.rand.Intn(10), class.cveBase+g.rand.Intn(50))
		refs = append(refs, provider.CVEData{
			Title: title,
			Link:  "https://nvd.nist.gov/vuln/detail/" + title,
		})
	}
	return refs
}

// corrupt breaks one required field so the record is skipped downstream.
func (g *Generator) corrupt(f *provider.Finding) {
	switch g.rand.Intn(3) {
	case 0:
		f.Class = ""
	case 1:
		f.Found = ""
	default:
		f.Found = "yesterday"
	}
}

func (g *Generator) randomParameter() string {
	params := []string{"id", "q", "user", "redirect", "file", "page", "token"}
	return params[g.rand.Intn(len(params))]
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

type vulnClass struct {
	name      string
	readable  string
	path      string
	vector    string
	baseScore float64
	cveBase   int
}

func defaultClasses() []vulnClass {
	return []vulnClass{
		{name: "SQL.Injection", readable: "SQL Injection", path: "search", vector: "CVSS:3.0/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:H/A:H", baseScore: 8.0, cveBase: 1000},
		{name: "Cross.Site.Scripting", readable: "Cross-Site Scripting (XSS)", path: "comments", vector: "CVSS:3.0/AV:N/AC:L/PR:N/UI:R/S:C/C:L/I:L/A:N", baseScore: 5.0, cveBase: 2000},
		{name: "Directory.Indexing", readable: "Directory Indexing", path: "static", vector: "CVSS:3.0/AV:N/AC:L/PR:N/UI:N/S:U/C:L/I:N/A:N", baseScore: 3.0, cveBase: 3000},
		{name: "Insufficient.Transport.Layer.Protection", readable: "Insufficient TLS", path: "login", vector: "CVSS:3.0/AV:N/AC:H/PR:N/UI:N/S:U/C:H/I:N/A:N", baseScore: 4.5, cveBase: 4000},
		{name: "URL.Redirector.Abuse", readable: "Open Redirect", path: "redirect", vector: "CVSS:3.0/AV:N/AC:L/PR:N/UI:R/S:C/C:L/I:L/A:N", baseScore: 4.0, cveBase: 5000},
		{name: "Path.Traversal", readable: "Path Traversal", path: "download", vector: "CVSS:3.0/AV:N/AC:L/PR:N/UI:N/S:U/C:H/I:N/A:N", baseScore: 6.5, cveBase: 6000},
	}
}
