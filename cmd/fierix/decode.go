package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/korniloval/fierix/pkg/descriptor"
	"github.com/spf13/cobra"
)

var decodeFormat string

var decodeCmd = &cobra.Command{
	Use:   "decode <descriptor>",
	Short: "Decode a JVM descriptor",
	Long: `Decode a JVM descriptor into the parameter names used by rules.

A parameter block such as Ljava/lang/String;I[B decodes to String, int, byte[].
A full method descriptor such as (Ljava/lang/String;I)V also reports the
return type.`,
	Args: cobra.ExactArgs(1),
	RunE: runDecode,
}

func init() {
	decodeCmd.Flags().StringVar(&decodeFormat, "format", "human", "Output format: human, json")
}

type decodeResult struct {
	Descriptor string   `json:"descriptor"`
	Parameters []string `json:"parameters"`
	ReturnType string   `json:"return_type,omitempty"`
}

func runDecode(cmd *cobra.Command, args []string) error {
	desc := args[0]
	result := decodeResult{Descriptor: desc}

	var err error
	if strings.HasPrefix(desc, "(") {
		result.Parameters, result.ReturnType, err = descriptor.DecodeMethod(desc)
	} else {
		result.Parameters, err = descriptor.Decode(desc)
	}
	if err != nil {
		return err
	}

	switch decodeFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	case "human":
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "(%s)", strings.Join(result.Parameters, ", "))
		if result.ReturnType != "" {
			fmt.Fprintf(out, " %s", result.ReturnType)
		}
		fmt.Fprintln(out)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", decodeFormat)
	}
}
