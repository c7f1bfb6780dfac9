package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/korniloval/fierix/pkg/enum"
	"github.com/korniloval/fierix/pkg/scanner"
	"github.com/korniloval/fierix/pkg/store"
	"github.com/spf13/cobra"
)

var (
	scanRulesPath        string
	scanPresets          []string
	scanOutputPath       string
	scanOutputFormat     string
	scanMaxFileSize      int64
	scanIncludeHidden    bool
	scanIncremental      bool
	scanIncludeSynthetic bool
	scanSkipArchives     bool
	scanInclude          []string
	scanWorkers          int
)

var scanCmd = &cobra.Command{
	Use:   "scan <target> [target...]",
	Short: "Scan compiled classes for selected methods",
	Long: `Scan class files, jars or directories and record every method the rule
configuration selects.

Results are stored in a SQLite database (see the report command).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScan,
}

func init() {
	addScanFlags(scanCmd)
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&scanRulesPath, "rules", "", "Path to a YAML rule configuration")
	cmd.Flags().StringSliceVar(&scanPresets, "preset", nil, "Built-in presets to merge (comma-separated)")
	cmd.Flags().StringVar(&scanOutputPath, "output", "fierix.db", "Output database path")
	cmd.Flags().StringVar(&scanOutputFormat, "format", "human", "Output format: human, json")
	cmd.Flags().Int64Var(&scanMaxFileSize, "max-file-size", 10*1024*1024, "Maximum file size to scan (bytes)")
	cmd.Flags().BoolVar(&scanIncludeHidden, "include-hidden", false, "Include hidden files and directories")
	cmd.Flags().BoolVar(&scanIncremental, "incremental", false, "Skip already-scanned classes")
	cmd.Flags().BoolVar(&scanIncludeSynthetic, "include-synthetic", false, "Also report synthetic and bridge methods")
	cmd.Flags().BoolVar(&scanSkipArchives, "skip-archives", false, "Do not read classes from jar, war, ear and zip files")
	cmd.Flags().StringSliceVar(&scanInclude, "include", nil, "Only scan paths matching these globs (e.g. 'com/acme/**')")
	cmd.Flags().IntVar(&scanWorkers, "workers", 0, "Parallel file readers (0 = number of CPUs)")
}

func runScan(cmd *cobra.Command, args []string) error {
	applyScanSettings(cmd)

	for _, target := range args {
		if _, err := os.Stat(target); err != nil {
			return fmt.Errorf("target does not exist: %s", target)
		}
	}

	configuration, err := loadConfiguration(scanRulesPath, scanPresets)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	s, err := store.New(store.Config{Path: scanOutputPath})
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}

	sc, err := scanner.New(scanner.Config{
		Configuration:    configuration,
		Store:            s,
		Incremental:      scanIncremental,
		IncludeSynthetic: scanIncludeSynthetic,
	})
	if err != nil {
		s.Close()
		return fmt.Errorf("creating scanner: %w", err)
	}
	defer sc.Close()

	enumerators := make([]enum.Enumerator, 0, len(args))
	for _, target := range args {
		enumerators = append(enumerators, enum.NewFilesystemEnumerator(enum.Config{
			Root:          target,
			Include:       scanInclude,
			IncludeHidden: scanIncludeHidden,
			MaxFileSize:   scanMaxFileSize,
			SkipArchives:  scanSkipArchives,
			Workers:       scanWorkers,
		}))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	stats, err := sc.Scan(ctx, enum.NewCombinedEnumerator(enumerators...))
	if err != nil {
		return fmt.Errorf("scanning: %w", err)
	}

	switch scanOutputFormat {
	case "json":
		return outputScanJSON(cmd, stats)
	case "human":
		return outputScanHuman(cmd, stats)
	default:
		return fmt.Errorf("unknown output format: %s", scanOutputFormat)
	}
}

// applyScanSettings fills every flag the user did not set from the
// settings file and environment.
func applyScanSettings(cmd *cobra.Command) {
	s := currentSettings()
	fromSettings(cmd, "rules", &scanRulesPath, s.Rules)
	fromSettings(cmd, "preset", &scanPresets, s.Presets)
	fromSettings(cmd, "output", &scanOutputPath, s.Database)
	fromSettings(cmd, "format", &scanOutputFormat, s.Output.Format)
	fromSettings(cmd, "max-file-size", &scanMaxFileSize, s.Scan.MaxFileSize)
	fromSettings(cmd, "include-hidden", &scanIncludeHidden, s.Scan.IncludeHidden)
	fromSettings(cmd, "incremental", &scanIncremental, s.Scan.Incremental)
	fromSettings(cmd, "include-synthetic", &scanIncludeSynthetic, s.Scan.IncludeSynthetic)
	fromSettings(cmd, "skip-archives", &scanSkipArchives, s.Scan.SkipArchives)
	fromSettings(cmd, "include", &scanInclude, s.Scan.Include)
	fromSettings(cmd, "workers", &scanWorkers, s.Scan.Workers)
}

type scanSummary struct {
	*scanner.Stats
	Output string `json:"output"`
}

func outputScanJSON(cmd *cobra.Command, stats *scanner.Stats) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(scanSummary{Stats: stats, Output: scanOutputPath})
}

func outputScanHuman(cmd *cobra.Command, stats *scanner.Stats) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scan complete: %d classes, %d methods, %d selected\n", stats.Classes, stats.Methods, stats.Matches)
	if stats.Skipped > 0 {
		fmt.Fprintf(out, "Skipped (already scanned): %d\n", stats.Skipped)
	}
	if stats.Failed > 0 {
		fmt.Fprintf(out, "Unreadable class files: %d\n", stats.Failed)
	}
	fmt.Fprintf(out, "Results stored in: %s\n", scanOutputPath)
	return nil
}
