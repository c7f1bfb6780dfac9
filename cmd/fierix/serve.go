package main

import (
	"context"
	"fmt"

	"github.com/korniloval/fierix/pkg/scanner"
	"github.com/korniloval/fierix/pkg/serve"
	"github.com/spf13/cobra"
)

var (
	serveRulesPath        string
	servePresets          []string
	serveIncludeSynthetic bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Answer instrumentation queries over stdin/stdout",
	Long: `Run a streaming server that reads NDJSON requests from stdin and writes
responses to stdout. Profiling agents use it to ask which methods to
instrument and to add or remove rules while running.

Request types: match, match_batch, include, exclude, remove, scan_class, close.`,
	RunE: runServe,
}

func init() {
	addServeFlags(serveCmd)
}

func addServeFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&serveRulesPath, "rules", "", "Path to a YAML rule configuration")
	cmd.Flags().StringSliceVar(&servePresets, "preset", nil, "Built-in presets to merge (comma-separated)")
	cmd.Flags().BoolVar(&serveIncludeSynthetic, "include-synthetic", false, "Also report synthetic and bridge methods")
}

func runServe(cmd *cobra.Command, args []string) error {
	s := currentSettings()
	fromSettings(cmd, "rules", &serveRulesPath, s.Rules)
	fromSettings(cmd, "preset", &servePresets, s.Presets)
	fromSettings(cmd, "include-synthetic", &serveIncludeSynthetic, s.Scan.IncludeSynthetic)

	configuration, err := loadConfiguration(serveRulesPath, servePresets)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	sc, err := scanner.New(scanner.Config{
		Configuration:    configuration,
		IncludeSynthetic: serveIncludeSynthetic,
	})
	if err != nil {
		return fmt.Errorf("creating scanner: %w", err)
	}
	defer sc.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	srv := serve.NewServer(sc, configuration, cmd.InOrStdin(), cmd.OutOrStdout())
	return srv.Run(ctx)
}
