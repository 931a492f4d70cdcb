package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solatis/cdiscengine/internal/operations"
	"github.com/solatis/cdiscengine/internal/types"
)

const jsonRule = `{
  "core_id": "CORE-000001",
  "standards": [{"Name": "SDTMIG", "Version": "3.4"}],
  "domains": {"Include": ["AE"]},
  "conditions": {"all": [{"name": "get_dataset", "operator": "empty", "value": {"target": "--TERM"}}]},
  "operations": [{"id": "$max_seq", "operator": "max", "name": "AESEQ"}],
  "actions": [{"name": "generate_dataset_error_objects", "params": {"message": "AETERM is empty"}}]
}`

const yamlRules = `
- core_id: CORE-000002
  standards:
    - Name: SDTMIG
      Version: "3.3"
  domains:
    Include: [SUPP--]
  conditions:
    any:
      - name: get_dataset
        operator: non_empty
        value:
          target: QVAL
  actions:
    - name: generate_dataset_error_objects
      params:
        message: QVAL is populated
- core_id: CORE-000003
  standards:
    - Name: SENDIG
      Version: "3.1"
  conditions:
    name: get_dataset
    operator: empty
    value:
      target: --SEQ
  actions:
    - name: generate_dataset_error_objects
      params:
        message: sequence missing
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_JSON(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rule.json", jsonRule)

	rules, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, rules, 1)

	rule := rules[0]
	require.Equal(t, "CORE-000001", rule.CoreID)
	require.Equal(t, []string{"AE"}, rule.Domains.Include)
	require.Len(t, rule.Operations, 1)
	require.Equal(t, "max", rule.Operations[0].Operator)

	leaves := types.Leaves(rule.Conditions)
	require.Len(t, leaves, 1)
	require.Equal(t, "--TERM", leaves[0].Value.Target)
}

func TestLoadFile_YAML(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rules.yaml", yamlRules)

	rules, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, rules, 2)

	require.Equal(t, "CORE-000002", rules[0].CoreID)
	require.Equal(t, "3.3", rules[0].Standards[0].Version)
	require.Equal(t, []string{"SUPP--"}, rules[0].Domains.Include)

	root, ok := rules[1].Conditions.(*types.Leaf)
	require.True(t, ok, "bare leaf root should decode as *types.Leaf")
	require.Equal(t, "--SEQ", root.Value.Target)
}

func TestLoadFile_UnsupportedExtension(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rule.txt", jsonRule)

	_, err := LoadFile(path)
	require.Error(t, err)
}

func TestLoadPaths_Directory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.yaml", yamlRules)
	writeFile(t, dir, "a.json", jsonRule)
	writeFile(t, dir, "notes.md", "# not a rule")

	rules, err := LoadPaths([]string{dir})
	require.NoError(t, err)
	require.Len(t, rules, 3)
	require.Equal(t, "CORE-000001", rules[0].CoreID)
}

func TestFilterByStandard(t *testing.T) {
	path := writeFile(t, t.TempDir(), "rules.yaml", yamlRules)
	rules, err := LoadFile(path)
	require.NoError(t, err)

	require.Len(t, FilterByStandard(rules, "", ""), 2)
	require.Len(t, FilterByStandard(rules, "sdtmig", ""), 1)
	require.Len(t, FilterByStandard(rules, "SDTMIG", "3.4"), 0)
	require.Len(t, FilterByStandard(rules, "SENDIG", "3.1"), 1)
}

func TestCatalog_Reload(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.json", jsonRule)
	writeFile(t, dir, "b.yaml", yamlRules)

	catalog := NewCatalog(nil)
	rejected, err := catalog.Reload([]string{dir})
	require.NoError(t, err)
	require.Empty(t, rejected)
	require.Equal(t, 3, catalog.Len())

	rule, ok := catalog.Get("CORE-000002")
	require.True(t, ok)
	require.Equal(t, "CORE-000002", rule.CoreID)

	require.Len(t, catalog.List("SDTMIG", ""), 2)

	writeFile(t, dir, "c.json", `{"core_id": "CORE-000001", "standards": [], "conditions": {"name": "x", "value": {"target": "A"}}, "actions": [{"params": {"message": "m"}}]}`)
	rejected, err = catalog.Reload([]string{dir})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	require.Equal(t, "CORE-000001", rejected[0].CoreID)
	require.ErrorIs(t, rejected[0].Err, types.ErrInvalidRule)
	require.Equal(t, 3, catalog.Len(), "first CORE-000001 is kept")

	writeFile(t, dir, "d.json", `{not json`)
	_, err = catalog.Reload([]string{dir})
	require.Error(t, err)
	require.Equal(t, 3, catalog.Len(), "failed load keeps previous rules")
}

func TestCatalog_SetKeepsValidRules(t *testing.T) {
	good := types.Rule{
		CoreID:     "CORE-1",
		Standards:  []types.Standard{{Name: "SDTMIG", Version: "3.4"}},
		Conditions: &types.Leaf{Operator: "empty", Value: types.Value{Target: "--TERM"}},
		Operations: []types.Operation{{ID: "$max", Operator: "max", Name: "AESEQ"}},
		Actions:    []types.Action{{Params: types.ActionParams{Message: "term empty"}}},
	}
	badOperator := good.Clone()
	badOperator.CoreID = "CORE-2"
	badOperator.Operations = []types.Operation{{ID: "$x", Operator: "no_such_op"}}
	noStandards := good.Clone()
	noStandards.CoreID = "CORE-3"
	noStandards.Standards = nil

	catalog := NewCatalog(operations.DefaultRegistry())
	rejected := catalog.Set([]types.Rule{good, badOperator, noStandards})

	require.Equal(t, 1, catalog.Len())
	_, ok := catalog.Get("CORE-1")
	require.True(t, ok, "valid rule survives invalid siblings")

	require.Len(t, rejected, 2)
	require.Equal(t, "CORE-2", rejected[0].CoreID)
	require.ErrorIs(t, rejected[0].Err, types.ErrUnknownOperation)
	require.Equal(t, "CORE-3", rejected[1].CoreID)
	require.ErrorIs(t, rejected[1].Err, types.ErrInvalidRule)
	require.Equal(t, rejected, catalog.Rejected())
}
