package main

import (
	"github.com/korniloval/fierix/pkg/logging"
	"github.com/korniloval/fierix/pkg/settings"
	"github.com/spf13/cobra"
)

var (
	verbosity    int
	quiet        bool
	settingsPath string

	// loaded by the root command before any subcommand runs
	cfg *settings.Settings
)

var rootCmd = &cobra.Command{
	Use:   "fierix",
	Short: "Fierix - method selection rules for JVM profiling",
	Long: `Fierix decides which JVM methods are instrumented when profiling.

Rules use the notation <class>.<method>(<param>[+], ...)[+] with '*' wildcards.
Fierix can test rules, decode JVM descriptors, and scan compiled classes and
jars to report which methods a rule configuration selects.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Verbose output (repeat for more)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")
	rootCmd.PersistentFlags().StringVar(&settingsPath, "settings", "", "Settings file (default: ./"+settings.DefaultFile+" if present)")

	// Add subcommands
	rootCmd.AddCommand(matchCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func setup(cmd *cobra.Command, args []string) error {
	level := verbosity
	if quiet {
		level = -1
	}
	logging.SetupLoggerWithWriter(level, cmd.ErrOrStderr())

	s, err := settings.Load(settingsPath)
	if err != nil {
		return err
	}
	cfg = s
	return nil
}

// currentSettings returns the loaded settings, or the defaults when a
// command runs without the root command (as in tests).
func currentSettings() *settings.Settings {
	if cfg == nil {
		return settings.Default()
	}
	return cfg
}

// fromSettings copies a settings value into a flag variable unless the flag
// was given on the command line.
func fromSettings[T any](cmd *cobra.Command, flag string, dst *T, value T) {
	if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
		return
	}
	*dst = value
}
