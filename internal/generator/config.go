package generator

import "time"

// Config drives the synthetic findings generator.
type Config struct {
	Company          string
	NumFindings      int
	NumApplications  int
	CVEChance        float64
	ClosedChance     float64
	MalformedChance  float64
	HistoryDays      int
	Seed             int64
	Now              time.Time
	FirstFindingID   int64
	ApplicationLabel string
}

// DefaultConfig returns baseline settings for a small local dataset.
func DefaultConfig() Config {
	return Config{
		Company:          "Acme Corp",
		NumFindings:      500,
		NumApplications:  5,
		CVEChance:        0.4,
		ClosedChance:     0.3,
		MalformedChance:  0.02,
		HistoryDays:      180,
		Seed:             42,
		FirstFindingID:   1000,
		ApplicationLabel: "https://apps.example.com",
	}
}
