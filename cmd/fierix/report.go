package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/korniloval/fierix/pkg/store"
	"github.com/korniloval/fierix/pkg/types"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	reportDatastore string
	reportFormat    string
	reportColor     string
	reportClass     string
)

// styles holds color formatters for report output
type styles struct {
	classHeading *color.Color
	method       *color.Color
	returnType   *color.Color
	ruleName     *color.Color
	metadata     *color.Color
}

// newStyles creates color formatters for report output
// enabled=false respects --color=never and the NO_COLOR env var
func newStyles(enabled bool) *styles {
	s := &styles{
		classHeading: color.New(color.Bold, color.FgHiWhite),
		method:       color.New(color.FgHiGreen),
		returnType:   color.New(color.FgYellow),
		ruleName:     color.New(color.Bold, color.FgHiBlue),
		metadata:     color.New(color.FgHiBlue),
	}

	for _, c := range []*color.Color{s.classHeading, s.method, s.returnType, s.ruleName, s.metadata} {
		// override color.NoColor, which follows stdout rather than --color
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}

	return s
}

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Report selected methods from scan results",
	Long:  "Read a scan database and print the selected methods grouped by class",
	RunE:  runReport,
}

func init() {
	addReportFlags(reportCmd)
}

func addReportFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&reportDatastore, "datastore", "fierix.db", "Path to the scan database")
	cmd.Flags().StringVar(&reportFormat, "format", "human", "Output format: human, json")
	cmd.Flags().StringVar(&reportColor, "color", "auto", "Color output: auto, always, never")
	cmd.Flags().StringVar(&reportClass, "class", "", "Only report methods of this class")
}

func runReport(cmd *cobra.Command, args []string) error {
	s := currentSettings()
	fromSettings(cmd, "datastore", &reportDatastore, s.Database)
	fromSettings(cmd, "format", &reportFormat, s.Output.Format)
	fromSettings(cmd, "color", &reportColor, s.Output.Color)

	if reportDatastore == ":memory:" {
		return fmt.Errorf("cannot report from in-memory store")
	}
	if _, err := os.Stat(reportDatastore); err != nil {
		return fmt.Errorf("datastore not found: %s", reportDatastore)
	}

	st, err := store.New(store.Config{Path: reportDatastore})
	if err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer st.Close()

	var matches []*types.Match
	if reportClass != "" {
		matches, err = st.GetMatchesForClass(reportClass)
	} else {
		matches, err = st.GetAllMatches()
	}
	if err != nil {
		return fmt.Errorf("retrieving matches: %w", err)
	}

	switch reportFormat {
	case "json":
		return outputReportJSON(cmd, matches)
	case "human":
		return outputReportHuman(cmd, matches)
	default:
		return fmt.Errorf("unknown output format: %s", reportFormat)
	}
}

// classReport groups the matches of one class.
type classReport struct {
	Class   string         `json:"class"`
	Methods []*types.Match `json:"methods"`
}

// groupByClass keeps the store order, which sorts by class first.
func groupByClass(matches []*types.Match) []classReport {
	var groups []classReport
	for _, m := range matches {
		if n := len(groups); n > 0 && groups[n-1].Class == m.Method.Class {
			groups[n-1].Methods = append(groups[n-1].Methods, m)
			continue
		}
		groups = append(groups, classReport{Class: m.Method.Class, Methods: []*types.Match{m}})
	}
	return groups
}

func outputReportJSON(cmd *cobra.Command, matches []*types.Match) error {
	groups := groupByClass(matches)
	if groups == nil {
		groups = []classReport{}
	}
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(groups)
}

func outputReportHuman(cmd *cobra.Command, matches []*types.Match) error {
	out := cmd.OutOrStdout()

	var colorEnabled bool
	switch reportColor {
	case "always":
		colorEnabled = true
	case "never":
		colorEnabled = false
	default:
		// Check if stdout is a TTY and NO_COLOR is not set
		colorEnabled = term.IsTerminal(int(os.Stdout.Fd())) && os.Getenv("NO_COLOR") == ""
	}
	st := newStyles(colorEnabled)

	if len(matches) == 0 {
		fmt.Fprintln(out, "No selected methods.")
		return nil
	}

	groups := groupByClass(matches)
	for i, g := range groups {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "%s (%d)\n", st.classHeading.Sprint(g.Class), len(g.Methods))
		for _, m := range g.Methods {
			signature := m.Method.Name + "(" + strings.Join(m.Method.Parameters, ", ") + ")"
			fmt.Fprintf(out, "  %s", st.method.Sprint(signature))
			if m.Method.ReturnType != "" {
				fmt.Fprintf(out, " %s", st.returnType.Sprint(m.Method.ReturnType))
			}
			fmt.Fprintln(out)

			rule := m.Rule
			if m.SaveReturnValue {
				rule += " [saves return value]"
			}
			fmt.Fprintf(out, "    %s %s\n", st.metadata.Sprint("Rule:"), st.ruleName.Sprint(rule))
			if m.Location != "" {
				fmt.Fprintf(out, "    %s %s\n", st.metadata.Sprint("Location:"), m.Location)
			}
		}
	}

	fmt.Fprintf(out, "\n%d methods selected in %d classes\n", len(matches), len(groups))
	return nil
}
