package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		level   string
		format  string
		wantErr bool
	}{
		{"json info", "info", "json", false},
		{"console debug", "debug", "console", false},
		{"text alias", "warn", "text", false},
		{"bad level", "loud", "json", true},
		{"bad format", "info", "xml", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := newLogger(tt.level, tt.format)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			want, _ := zapcore.ParseLevel(tt.level)
			require.True(t, l.Core().Enabled(want))
		})
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())
	require.Equal(t, "cdiscengine "+Version+"\n", out.String())
}

func TestPrepareCommand(t *testing.T) {
	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "ae.json"),
		[]byte(`{"columns": ["DOMAIN", "USUBJID", "AESEQ", "AETERM"], "rows": [["AE", "S1", 1, "HEADACHE"], ["AE", "S1", 2, ""]]}`), 0o644))

	rulesDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, "rule.json"), []byte(`{
  "core_id": "CORE-000001",
  "standards": [{"Name": "SDTMIG", "Version": "3.4"}],
  "domains": {"Include": ["AE"]},
  "conditions": {"all": [{"name": "get_dataset", "operator": "empty", "value": {"target": "--TERM"}}]},
  "operations": [{"id": "$max_seq", "operator": "max", "name": "AESEQ"}],
  "actions": [{"name": "generate_dataset_error_objects", "params": {"message": "AETERM is empty"}}]
}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(rulesDir, "rule_bad.json"), []byte(`{
  "core_id": "CORE-000002",
  "standards": [{"Name": "SDTMIG", "Version": "3.4"}],
  "conditions": {"all": [{"name": "get_dataset", "operator": "empty", "value": {"target": "--TERM"}}]},
  "operations": [{"id": "$x", "operator": "no_such_op", "name": "AESEQ"}],
  "actions": [{"name": "generate_dataset_error_objects", "params": {"message": "never runs"}}]
}`), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"prepare",
		"--log-level", "error",
		"--data-dir", dataDir,
		"--rules", rulesDir,
		"--pool-size", "2",
	})
	t.Cleanup(func() { rootCmd.SetOut(nil); rootCmd.SetArgs(nil) })

	require.NoError(t, rootCmd.Execute())

	var report struct {
		RunID    string           `json:"run_id"`
		Results  []map[string]any `json:"results"`
		Rejected []map[string]any `json:"rejected"`
	}
	require.NoError(t, json.NewDecoder(strings.NewReader(out.String())).Decode(&report))
	require.NotEmpty(t, report.RunID)

	require.Len(t, report.Rejected, 1, "invalid rule is reported, not fatal")
	require.Equal(t, "CORE-000002", report.Rejected[0]["core_id"])
	require.Contains(t, report.Rejected[0]["reason"], "no_such_op")

	results := report.Results
	require.Len(t, results, 1)
	require.Equal(t, "CORE-000001", results[0]["core_id"])
	require.Equal(t, "AE", results[0]["domain"])
	require.Equal(t, "AETERM is empty", results[0]["message"])
	require.Equal(t, []any{"AETERM"}, results[0]["targets"])
	require.NotContains(t, results[0], "error")
	require.NotContains(t, results[0], "dataset")
}
