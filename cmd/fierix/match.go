package main

import (
	"encoding/json"
	"fmt"

	"github.com/korniloval/fierix/pkg/descriptor"
	"github.com/korniloval/fierix/pkg/types"
	"github.com/spf13/cobra"
)

var (
	matchNoParams   bool
	matchDescriptor string
	matchFormat     string
)

var matchCmd = &cobra.Command{
	Use:   "match <rule> <class> <method> [param...]",
	Short: "Test a rule against a method",
	Long: `Check whether a rule selects a method.

The method is given as a fully qualified class name, a method name and the
simple names of its parameter types:

  fierix match 'com.foo.*.run(String+, *)' com.foo.Bar run String int

Parameters may instead come from a JVM descriptor with --descriptor, or be
left unknown with --no-params, which only compares class and method names.`,
	Args: cobra.MinimumNArgs(3),
	RunE: runMatch,
}

func init() {
	matchCmd.Flags().BoolVar(&matchNoParams, "no-params", false, "Match without parameter information")
	matchCmd.Flags().StringVar(&matchDescriptor, "descriptor", "", "Take parameters from a JVM method descriptor, e.g. (Ljava/lang/String;I)V")
	matchCmd.Flags().StringVar(&matchFormat, "format", "human", "Output format: human, json")
}

// matchResult is the outcome of one match command.
type matchResult struct {
	Rule         string   `json:"rule"`
	Class        string   `json:"class"`
	Method       string   `json:"method"`
	Parameters   []string `json:"parameters"`
	ClassMatches bool     `json:"class_matches"`
	Matches      bool     `json:"matches"`
}

func runMatch(cmd *cobra.Command, args []string) error {
	mc, err := types.ParseMethodConfig(args[0])
	if err != nil {
		return fmt.Errorf("parsing rule: %w", err)
	}
	className, methodName := args[1], args[2]

	params, err := matchParameters(args[3:])
	if err != nil {
		return err
	}

	result := matchResult{
		Rule:         mc.String(),
		Class:        className,
		Method:       methodName,
		Parameters:   params,
		ClassMatches: mc.AppliesToClass(className),
		Matches:      mc.Matches(className, methodName, params),
	}

	switch matchFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "human":
		return outputMatchHuman(cmd, result)
	default:
		return fmt.Errorf("unknown output format: %s", matchFormat)
	}
}

// matchParameters resolves the parameter list: nil when unknown, decoded
// from --descriptor, or the positional names.
func matchParameters(positional []string) ([]string, error) {
	switch {
	case matchNoParams:
		if len(positional) > 0 || matchDescriptor != "" {
			return nil, fmt.Errorf("--no-params cannot be combined with parameters")
		}
		return nil, nil
	case matchDescriptor != "":
		if len(positional) > 0 {
			return nil, fmt.Errorf("--descriptor cannot be combined with positional parameters")
		}
		params, _, err := descriptor.DecodeMethodQualified(matchDescriptor)
		if err != nil {
			return nil, err
		}
		return params, nil
	default:
		return append([]string{}, positional...), nil
	}
}

func outputMatchHuman(cmd *cobra.Command, r matchResult) error {
	out := cmd.OutOrStdout()
	params := "<unknown>"
	if r.Parameters != nil {
		params = fmt.Sprintf("%v", r.Parameters)
	}

	fmt.Fprintf(out, "Rule:       %s\n", r.Rule)
	fmt.Fprintf(out, "Method:     %s.%s\n", r.Class, r.Method)
	fmt.Fprintf(out, "Parameters: %s\n", params)
	if r.Matches {
		fmt.Fprintln(out, "Result:     match")
	} else if r.ClassMatches {
		fmt.Fprintln(out, "Result:     no match (class matches)")
	} else {
		fmt.Fprintln(out, "Result:     no match")
	}
	return nil
}
