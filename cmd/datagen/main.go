package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vanshika/scansync/internal/generator"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "generation failed: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := generator.DefaultConfig()
	var (
		output      string
		writeStdout bool
	)

	cmd := &cobra.Command{
		Use:           "datagen",
		Short:         "Write a synthetic WhiteHat findings dataset for the file provider",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.CVEChance = clampProbability(cfg.CVEChance)
			cfg.ClosedChance = clampProbability(cfg.ClosedChance)
			cfg.MalformedChance = clampProbability(cfg.MalformedChance)

			ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
			defer cancel()

			dataset, err := generator.New(cfg).Generate(ctx)
			if err != nil {
				return err
			}

			if writeStdout {
				if err := json.NewEncoder(cmd.OutOrStdout()).Encode(dataset); err != nil {
					return fmt.Errorf("write dataset to stdout: %w", err)
				}
				return nil
			}

			if err := generator.WriteDataset(dataset, output); err != nil {
				return fmt.Errorf("write dataset: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Generated %d findings across %d applications into %s\n", len(dataset.Findings), cfg.NumApplications, output)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Company, "company", cfg.Company, "account company name")
	flags.IntVar(&cfg.NumFindings, "findings", cfg.NumFindings, "number of findings to generate")
	flags.IntVar(&cfg.NumApplications, "applications", cfg.NumApplications, "number of applications findings are spread over")
	flags.Float64Var(&cfg.CVEChance, "cve-chance", cfg.CVEChance, "probability of a finding carrying CVE references")
	flags.Float64Var(&cfg.ClosedChance, "closed-chance", cfg.ClosedChance, "probability of a finding being closed")
	flags.Float64Var(&cfg.MalformedChance, "malformed-chance", cfg.MalformedChance, "probability of a finding missing a required field")
	flags.IntVar(&cfg.HistoryDays, "history-days", cfg.HistoryDays, "how far back found timestamps reach")
	flags.Int64Var(&cfg.Seed, "seed", cfg.Seed, "random seed for deterministic generation")
	flags.StringVar(&output, "output", "data/findings.json", "file to write the dataset to")
	flags.BoolVar(&writeStdout, "stdout", false, "write the dataset to stdout instead of a file")

	return cmd
}

func clampProbability(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}
