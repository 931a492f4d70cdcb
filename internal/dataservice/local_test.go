package dataservice

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/solatis/cdiscengine/internal/dataset"
	"github.com/solatis/cdiscengine/internal/engine"
	"github.com/solatis/cdiscengine/internal/rules"
	"github.com/solatis/cdiscengine/internal/types"
)

func writeDataset(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func studyDir(t *testing.T) string {
	dir := t.TempDir()
	writeDataset(t, dir, "ae.json", `{"label": "Adverse Events", "columns": ["DOMAIN", "USUBJID", "AETERM"], "rows": [["AE", "S1", "HEADACHE"], ["AE", "S2", "RASH"]]}`)
	writeDataset(t, dir, "lb1.json", `{"columns": ["DOMAIN", "LBTESTCD"], "rows": [["LB", "ALT"]]}`)
	writeDataset(t, dir, "lb2.json", `{"columns": ["DOMAIN", "LBTESTCD"], "rows": [["LB", "AST"], ["LB", "BILI"]]}`)
	writeDataset(t, dir, "suppae.json", `{"columns": ["RDOMAIN", "USUBJID", "QNAM"], "rows": [["AE", "S1", "AETRTEM"]]}`)
	writeDataset(t, dir, "notes.txt", "not a dataset")
	return dir
}

func TestLocal_Descriptors(t *testing.T) {
	dir := studyDir(t)
	svc := NewLocal(dir, nil)

	descs, err := svc.Descriptors(context.Background())
	require.NoError(t, err)
	require.Len(t, descs, 4)

	require.Equal(t, "AE", descs[0].Domain)
	require.Equal(t, "Adverse Events", descs[0].Label)
	require.Equal(t, filepath.Join(dir, "ae.json"), descs[0].FullPath)
	require.Positive(t, descs[0].Size)
	require.NotEmpty(t, descs[0].ModificationDate)

	require.Equal(t, "LB", descs[1].Domain)
	require.Equal(t, "LB", descs[2].Domain)
	require.Equal(t, "SUPPAE", descs[3].Domain)
	require.True(t, types.IsSplitDomain(descs, "LB"))
}

func TestLocal_GetDataset(t *testing.T) {
	dir := studyDir(t)
	svc := NewLocal(dir, nil)
	ctx := context.Background()

	ds, err := svc.GetDataset(ctx, filepath.Join(dir, "ae.json"))
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())
	require.Equal(t, "RASH", ds.Value("AETERM", 1))

	again, err := svc.GetDataset(ctx, filepath.Join(dir, "ae.json"))
	require.NoError(t, err)
	require.Same(t, ds, again)

	_, err = svc.GetDataset(ctx, filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}

func TestLocal_ConcatSplitDatasets(t *testing.T) {
	dir := studyDir(t)
	svc := NewLocal(dir, nil)

	names := []string{filepath.Join(dir, "lb1.json"), filepath.Join(dir, "lb2.json")}
	ds, err := svc.ConcatSplitDatasets(context.Background(), svc.GetDataset, names)
	require.NoError(t, err)

	got, _ := ds.Column("LBTESTCD")
	require.Equal(t, []any{"ALT", "AST", "BILI"}, got)
}

func TestLocal_GetDatasetClass(t *testing.T) {
	dir := studyDir(t)
	svc := NewLocal(dir, nil)
	ctx := context.Background()
	descs, err := svc.Descriptors(ctx)
	require.NoError(t, err)

	tests := map[string]string{
		"ae.json":     rules.ClassEvents,
		"lb1.json":    rules.ClassFindings,
		"suppae.json": rules.ClassRelationship,
	}
	for file, want := range tests {
		path := filepath.Join(dir, file)
		ds, err := svc.GetDataset(ctx, path)
		require.NoError(t, err)
		got, err := svc.GetDatasetClass(ctx, ds, path, descs)
		require.NoError(t, err)
		require.Equal(t, want, got, file)
	}
}

func TestDetectClass(t *testing.T) {
	tests := []struct {
		name    string
		columns []string
		domain  string
		want    string
	}{
		{"interventions", []string{"CMTRT", "CMDOSE"}, "CM", rules.ClassInterventions},
		{"findings about", []string{"FATESTCD", "FAOBJ"}, "FA", rules.ClassFindingsAbout},
		{"relationship", []string{"RDOMAIN"}, "RELREC", rules.ClassRelationship},
		{"special purpose", []string{"USUBJID", "BRTHDTC"}, "DM", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, DetectClass(dataset.New(tt.columns...), tt.domain))
		})
	}
}

func TestDummy(t *testing.T) {
	ae, err := dataset.FromRows([]string{"DOMAIN", "AETERM"}, [][]any{{"AE", "X"}})
	require.NoError(t, err)
	svc := NewDummy(map[string]*dataset.Dataset{"/study/ae.json": ae})

	var ds engine.DataService = svc
	require.True(t, ds.IsDummy())

	got, err := ds.GetDataset(context.Background(), "/study/ae.json")
	require.NoError(t, err)
	require.Same(t, ae, got)

	_, err = ds.GetDataset(context.Background(), "/study/cm.json")
	require.ErrorIs(t, err, types.ErrDomainNotFound)
}
