package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/korniloval/fierix/pkg/store"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newScanCmd creates a fresh scan command for testing
func newScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:  "scan <target> [target...]",
		Args: cobra.MinimumNArgs(1),
		RunE: runScan,
	}
	addScanFlags(cmd)
	return cmd
}

// scanFixture lays out a classes directory and a library jar.
func scanFixture(t *testing.T) (classes, jar string) {
	t.Helper()
	dir := t.TempDir()
	classes = filepath.Join(dir, "classes")
	writeFile(t, filepath.Join(classes, "com", "acme", "OrderService.class"), orderService())
	jar = filepath.Join(dir, "lib", "billing.jar")
	writeFile(t, jar, jarBytes(t, "com/acme/billing/Invoice.class", billing()))
	return classes, jar
}

func TestRunScan(t *testing.T) {
	classes, jar := scanFixture(t)
	rules := writeRules(t, "include: [\"com.acme.*.*(*)\"]\nexclude: [\"*.get*()\"]\n")
	dbPath := filepath.Join(t.TempDir(), "scan.db")

	var buf bytes.Buffer
	cmd := newScanCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--rules", rules, "--output", dbPath, classes, jar})
	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Scan complete: 2 classes, 4 methods, 3 selected")
	assert.Contains(t, output, "Results stored in: "+dbPath)

	s, err := store.New(store.Config{Path: dbPath})
	require.NoError(t, err)
	defer s.Close()

	matches, err := s.GetAllMatches()
	require.NoError(t, err)
	require.Len(t, matches, 3)
	assert.Equal(t, "com.acme.OrderService", matches[0].Method.Class)
	assert.Equal(t, "<init>", matches[0].Method.Name)
	assert.Equal(t, "place", matches[1].Method.Name)
	assert.Equal(t, []string{"String", "int"}, matches[1].Method.Parameters)
	assert.Equal(t, "com.acme.billing.Invoice", matches[2].Method.Class)
	assert.Equal(t, []string{"byte[]", "boolean"}, matches[2].Method.Parameters)
}

func TestRunScan_JSONAndIncremental(t *testing.T) {
	classes, _ := scanFixture(t)
	rules := writeRules(t, "include: [\"com.acme.OrderService.place(String+, *)+\"]\n")
	dbPath := filepath.Join(t.TempDir(), "scan.db")

	scan := func(extra ...string) scanSummary {
		var buf bytes.Buffer
		cmd := newScanCmd()
		cmd.SetOut(&buf)
		args := append([]string{"--rules", rules, "--output", dbPath, "--format", "json"}, extra...)
		cmd.SetArgs(append(args, classes))
		require.NoError(t, cmd.Execute())

		var summary scanSummary
		require.NoError(t, json.Unmarshal(buf.Bytes(), &summary))
		return summary
	}

	first := scan()
	require.NotNil(t, first.Stats)
	assert.Equal(t, 1, first.Classes)
	assert.Equal(t, 1, first.Matches)
	assert.Equal(t, dbPath, first.Output)

	second := scan("--incremental")
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 0, second.Classes)
	assert.Equal(t, 0, second.Matches)
}

func TestRunScan_Presets(t *testing.T) {
	classes, _ := scanFixture(t)
	rules := writeRules(t, "include: [\"com.acme.*.*(*)\"]\n")
	dbPath := filepath.Join(t.TempDir(), "scan.db")

	var buf bytes.Buffer
	cmd := newScanCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--rules", rules, "--preset", "accessors", "--output", dbPath, classes})
	require.NoError(t, cmd.Execute())

	// getName is an accessor
	assert.Contains(t, buf.String(), "3 methods, 2 selected")
}

func TestRunScan_SkipArchives(t *testing.T) {
	classes, jar := scanFixture(t)
	rules := writeRules(t, "include: [\"com.acme.*.*(*)\"]\n")

	var buf bytes.Buffer
	cmd := newScanCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--rules", rules, "--output", ":memory:", "--skip-archives", classes, jar})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, buf.String(), "Scan complete: 1 classes")
}

func TestRunScan_Errors(t *testing.T) {
	classes, _ := scanFixture(t)
	rules := writeRules(t, "include: [\"com.acme.*.*(*)\"]\n")

	tests := []struct {
		name      string
		args      []string
		errSubstr string
	}{
		{
			name:      "nonexistent target",
			args:      []string{"--rules", rules, "--output", ":memory:", "/nonexistent/path"},
			errSubstr: "target does not exist",
		},
		{
			name:      "no rules",
			args:      []string{"--output", ":memory:", classes},
			errSubstr: "no rules given",
		},
		{
			name:      "unknown format",
			args:      []string{"--rules", rules, "--output", ":memory:", "--format", "xml", classes},
			errSubstr: "unknown output format",
		},
		{
			name:      "invalid include glob",
			args:      []string{"--rules", rules, "--output", ":memory:", "--include", "com/[", classes},
			errSubstr: "invalid include glob",
		},
		{
			name:      "no target",
			args:      []string{"--rules", rules},
			errSubstr: "requires at least 1 arg",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := newScanCmd()
			cmd.SetOut(&bytes.Buffer{})
			cmd.SetErr(&bytes.Buffer{})
			cmd.SetArgs(tt.args)

			err := cmd.Execute()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSubstr)
		})
	}
}

func TestRunScan_SettingsDefaults(t *testing.T) {
	classes, _ := scanFixture(t)
	rules := writeRules(t, "include: [\"com.acme.*.*(*)\"]\n")
	dir := t.TempDir()
	t.Chdir(dir)

	writeFile(t, filepath.Join(dir, "custom.toml"), []byte(`
rules = "`+filepath.ToSlash(rules)+`"
database = "from-settings.db"

[output]
format = "json"
`))
	t.Cleanup(func() { cfg = nil })
	settingsPath = filepath.Join(dir, "custom.toml")
	t.Cleanup(func() { settingsPath = "" })

	var buf bytes.Buffer
	cmd := newScanCmd()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{classes})
	require.NoError(t, setup(cmd, nil))
	require.NoError(t, cmd.Execute())

	var summary scanSummary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &summary))
	assert.Equal(t, "from-settings.db", summary.Output)
	_, err := os.Stat(filepath.Join(dir, "from-settings.db"))
	assert.NoError(t, err)
}
