package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/vanshika/scansync/internal/config"
	"github.com/vanshika/scansync/internal/logging"
	"github.com/vanshika/scansync/internal/service"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "scansync",
		Short: "Synchronize WhiteHat vulnerability findings into the security graph",
		Long: `scansync fetches findings changed since the last successful run,
reconciles them against the graph and publishes the difference atomically.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file (defaults to $"+config.ConfigFileEnv+")")

	rootCmd.AddCommand(
		newSyncCmd(opts),
		newValidateCmd(opts),
		newServeCmd(opts),
	)
	return rootCmd
}

func newSyncCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one synchronization pass and record the last-sync instant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			logger := logging.NewWithWriter(cfg.Logging, cmd.ErrOrStderr())

			ctx := cmd.Context()
			graphClient, err := buildGraphClient(ctx, cfg)
			if err != nil {
				return fmt.Errorf("create graph client: %w", err)
			}
			a, err := newApp(ctx, cfg, logger, graphClient)
			if err != nil {
				_ = graphClient.Close(ctx)
				return err
			}
			defer a.Close(ctx)

			report, err := a.runner.Run(ctx)
			if err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), report)
		},
	}
}

func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and the provider credentials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			client, err := buildProvider(cfg.Provider)
			if err != nil {
				return err
			}
			if err := service.ValidateInvocation(cmd.Context(), &cfg, client); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "configuration valid for integration instance %s\n", cfg.Instance.ID)
			return nil
		},
	}
}

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve health, metrics and the sync trigger over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts.configPath)
			if err != nil {
				return err
			}
			logger := logging.New(cfg.Logging)
			return serve(cmd.Context(), cfg, logger)
		},
	}
}

// loadConfig reads and validates the configuration before anything is dialed.
func loadConfig(path string) (config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

type reportOutput struct {
	RunID           string   `json:"runId"`
	Filter          []string `json:"filter"`
	Fetched         int      `json:"fetched"`
	Vulnerabilities int      `json:"vulnerabilities"`
	Findings        int      `json:"findings"`
	Skipped         []string `json:"skipped"`
	Created         int      `json:"created"`
	Updated         int      `json:"updated"`
	Deleted         int      `json:"deleted"`
}

func writeReport(w io.Writer, report service.Report) error {
	out := reportOutput{
		RunID:           report.RunID,
		Filter:          append([]string{}, report.Filter...),
		Fetched:         report.Fetched,
		Vulnerabilities: report.Vulnerabilities,
		Findings:        report.Findings,
		Skipped:         make([]string, 0, len(report.Skipped)),
		Created:         report.Result.Created,
		Updated:         report.Result.Updated,
		Deleted:         report.Result.Deleted,
	}
	for _, err := range report.Skipped {
		out.Skipped = append(out.Skipped, err.Error())
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}
