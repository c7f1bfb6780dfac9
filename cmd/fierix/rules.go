package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/korniloval/fierix/pkg/rule"
	"github.com/korniloval/fierix/pkg/types"
	"github.com/spf13/cobra"
)

var (
	rulesPath      string
	rulesPresets   []string
	outputFormat   string
	rulesInclude   string
	rulesExclude   string
	rulesWritePath string
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage method rules",
	Long:  "Commands for listing, checking and formatting rule configurations",
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured rules",
	Long: `Display the including and excluding rules of a configuration.

Without --rules or --preset, every built-in preset is listed.`,
	RunE: runRulesList,
}

var rulesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate a rule configuration",
	RunE:  runRulesCheck,
}

var rulesFormatCmd = &cobra.Command{
	Use:   "format",
	Short: "Print a rule configuration in canonical form",
	RunE:  runRulesFormat,
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesCheckCmd)
	rulesCmd.AddCommand(rulesFormatCmd)

	for _, c := range []*cobra.Command{rulesListCmd, rulesCheckCmd, rulesFormatCmd} {
		c.Flags().StringVar(&rulesPath, "rules", "", "Path to a YAML rule configuration")
		c.Flags().StringSliceVar(&rulesPresets, "preset", nil, "Built-in presets to merge (comma-separated)")
	}
	rulesListCmd.Flags().StringVar(&outputFormat, "format", "table", "Output format: table, json")
	rulesListCmd.Flags().StringVar(&rulesInclude, "include", "", "Only list rules matching these regexes (comma-separated)")
	rulesListCmd.Flags().StringVar(&rulesExclude, "exclude", "", "Skip rules matching these regexes (comma-separated)")
	rulesFormatCmd.Flags().StringVarP(&rulesWritePath, "write", "w", "", "Write the result to this file instead of stdout")
}

// ruleRow is one rule as listed.
type ruleRow struct {
	Kind            string `json:"kind"`
	Rule            string `json:"rule"`
	Enabled         bool   `json:"enabled"`
	SaveReturnValue bool   `json:"save_return_value"`
}

func runRulesList(cmd *cobra.Command, args []string) error {
	var configuration *rule.Configuration
	if rulesPath == "" && len(rulesPresets) == 0 {
		presets, err := rule.NewLoader().LoadBuiltinPresets()
		if err != nil {
			return fmt.Errorf("loading builtin presets: %w", err)
		}
		configuration = rule.NewConfiguration(nil, nil)
		for _, p := range presets {
			configuration.Merge(p.Configuration)
		}
	} else {
		c, err := loadConfiguration(rulesPath, rulesPresets)
		if err != nil {
			return err
		}
		configuration = c
	}

	filter := rule.FilterConfig{
		Include: rule.ParsePatterns(rulesInclude),
		Exclude: rule.ParsePatterns(rulesExclude),
	}
	s := configuration.Snapshot()
	including, err := rule.Filter(s.Including, filter)
	if err != nil {
		return fmt.Errorf("filtering rules: %w", err)
	}
	excluding, err := rule.Filter(s.Excluding, filter)
	if err != nil {
		return fmt.Errorf("filtering rules: %w", err)
	}

	rows := append(toRows("include", including), toRows("exclude", excluding)...)

	// Output based on format
	switch outputFormat {
	case "json":
		return outputRulesJSON(cmd, rows)
	case "table":
		return outputRulesTable(cmd, rows)
	default:
		return fmt.Errorf("unknown output format: %s", outputFormat)
	}
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	c, err := loadConfiguration(rulesPath, rulesPresets)
	if err != nil {
		return err
	}
	if err := rule.ValidateConfiguration(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	including, excluding := c.Len()
	fmt.Fprintf(cmd.OutOrStdout(), "OK: %d including, %d excluding rules\n", including, excluding)
	return nil
}

func runRulesFormat(cmd *cobra.Command, args []string) error {
	c, err := loadConfiguration(rulesPath, rulesPresets)
	if err != nil {
		return err
	}

	if rulesWritePath != "" {
		if err := rule.SaveConfigurationFile(rulesWritePath, c); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", rulesWritePath)
		return nil
	}

	data, err := rule.MarshalConfiguration(c)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// =============================================================================
// HELPERS
// =============================================================================

// loadConfiguration reads the rule file, if any, and merges the named
// presets into it.
func loadConfiguration(path string, presets []string) (*rule.Configuration, error) {
	if path == "" && len(presets) == 0 {
		return nil, fmt.Errorf("no rules given: use --rules or --preset")
	}

	loader := rule.NewLoader()
	configuration := rule.NewConfiguration(nil, nil)
	if path != "" {
		c, err := loader.LoadConfigurationFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading rules from %s: %w", path, err)
		}
		configuration = c
	}
	for _, name := range presets {
		p, err := loader.LoadPreset(name)
		if err != nil {
			return nil, err
		}
		configuration.Merge(p.Configuration)
	}
	return configuration, nil
}

func toRows(kind string, configs []*types.MethodConfig) []ruleRow {
	rows := make([]ruleRow, 0, len(configs))
	for _, mc := range configs {
		rows = append(rows, ruleRow{
			Kind:            kind,
			Rule:            mc.String(),
			Enabled:         mc.Enabled(),
			SaveReturnValue: mc.SaveReturnValue(),
		})
	}
	return rows
}

func outputRulesJSON(cmd *cobra.Command, rows []ruleRow) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(rows)
}

func outputRulesTable(cmd *cobra.Command, rows []ruleRow) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KIND\tENABLED\tRULE")
	fmt.Fprintln(w, "----\t-------\t----")
	for _, r := range rows {
		enabled := "yes"
		if !r.Enabled {
			enabled = "no"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Kind, enabled, r.Rule)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nTotal: %d rules\n", len(rows))
	return nil
}
