package dataset

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/solatis/cdiscengine/internal/types"
)

func mustRows(t *testing.T, columns []string, rows [][]any) *Dataset {
	t.Helper()
	d, err := FromRows(columns, rows)
	if err != nil {
		t.Fatalf("FromRows() error = %v, want nil", err)
	}
	return d
}

func TestFromRows_RejectsRaggedRows(t *testing.T) {
	_, err := FromRows([]string{"A", "B"}, [][]any{{1, 2}, {3}})
	if err == nil {
		t.Fatal("FromRows() error = nil, want ragged row error")
	}
}

func TestWithColumn_DoesNotMutateReceiver(t *testing.T) {
	orig := mustRows(t, []string{"USUBJID"}, [][]any{{"S1"}, {"S2"}})

	out := orig.WithColumn("OP", []any{1, 2})

	if orig.HasColumn("OP") {
		t.Error("receiver gained column OP, want copy-on-write")
	}
	if got := out.Columns(); !cmp.Equal(got, []string{"USUBJID", "OP"}) {
		t.Errorf("Columns() = %v, want [USUBJID OP]", got)
	}
}

func TestWithColumn_AlignsByPosition(t *testing.T) {
	d := mustRows(t, []string{"A"}, [][]any{{1}, {2}, {3}})

	short := d.WithColumn("B", []any{"x"})
	if got, _ := short.Column("B"); !cmp.Equal(got, []any{"x", nil, nil}) {
		t.Errorf("short column = %v, want [x <nil> <nil>]", got)
	}

	long := d.WithColumn("B", []any{"x", "y", "z", "w"})
	if got, _ := long.Column("B"); !cmp.Equal(got, []any{"x", "y", "z"}) {
		t.Errorf("long column = %v, want [x y z]", got)
	}
}

func TestWithScalar_Broadcasts(t *testing.T) {
	d := mustRows(t, []string{"A"}, [][]any{{1}, {2}})
	got, _ := d.WithScalar("N", int64(2)).Column("N")
	if !cmp.Equal(got, []any{int64(2), int64(2)}) {
		t.Errorf("Column(N) = %v, want [2 2]", got)
	}
}

func TestRenameColumn(t *testing.T) {
	d := mustRows(t, []string{"USUBJID", "AESEQ"}, [][]any{{"S1", 1}})

	out, err := d.RenameColumn("AESEQ", "max_seq")
	if err != nil {
		t.Fatalf("RenameColumn() error = %v, want nil", err)
	}
	if got := out.Columns(); !cmp.Equal(got, []string{"USUBJID", "max_seq"}) {
		t.Errorf("Columns() = %v, want [USUBJID max_seq]", got)
	}

	if _, err := d.RenameColumn("MISSING", "x"); !errors.Is(err, types.ErrColumnNotFound) {
		t.Errorf("RenameColumn(MISSING) error = %v, want ErrColumnNotFound", err)
	}
}

func TestAddRowNumber(t *testing.T) {
	d := mustRows(t, []string{"A"}, [][]any{{"a"}, {"b"}, {"c"}})
	got, _ := AddRowNumber(d).Column(RowNumberColumn)
	want := []any{int64(1), int64(2), int64(3)}
	if !cmp.Equal(got, want) {
		t.Errorf("row_number = %v, want %v", got, want)
	}
}

func TestConcat_UnionOfColumns(t *testing.T) {
	a := mustRows(t, []string{"DOMAIN", "AESEQ"}, [][]any{{"AE", 1}, {"AE", 2}})
	b := mustRows(t, []string{"DOMAIN", "AETERM"}, [][]any{{"AE", "HEADACHE"}})

	out := Concat(a, b)

	if out.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", out.Len())
	}
	if got := out.Columns(); !cmp.Equal(got, []string{"DOMAIN", "AESEQ", "AETERM"}) {
		t.Errorf("Columns() = %v, want [DOMAIN AESEQ AETERM]", got)
	}
	if got, _ := out.Column("AETERM"); !cmp.Equal(got, []any{nil, nil, "HEADACHE"}) {
		t.Errorf("AETERM = %v, want [<nil> <nil> HEADACHE]", got)
	}
}

func TestLeftJoin_PreservesRowsAndOrder(t *testing.T) {
	left := mustRows(t, []string{"USUBJID", "AESEQ"}, [][]any{
		{"S1", 1}, {"S2", 1}, {"S1", 2}, {"S3", 1},
	})
	right := mustRows(t, []string{"USUBJID", "op"}, [][]any{
		{"S1", int64(2)}, {"S2", int64(1)},
	})

	out, err := LeftJoin(left, right, []string{"USUBJID"})
	if err != nil {
		t.Fatalf("LeftJoin() error = %v, want nil", err)
	}
	if out.Len() != left.Len() {
		t.Fatalf("Len() = %d, want %d", out.Len(), left.Len())
	}
	got, _ := out.Column("op")
	want := []any{int64(2), int64(1), int64(2), nil}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("op column mismatch (-want +got):\n%s", diff)
	}
}

func TestLeftJoin_NumericKeysAcrossTypes(t *testing.T) {
	left := mustRows(t, []string{"VISITNUM"}, [][]any{{float64(1)}, {int64(2)}})
	right := mustRows(t, []string{"VISITNUM", "v"}, [][]any{{int64(1), "one"}, {2.0, "two"}})

	out, err := LeftJoin(left, right, []string{"VISITNUM"})
	if err != nil {
		t.Fatalf("LeftJoin() error = %v, want nil", err)
	}
	if got, _ := out.Column("v"); !cmp.Equal(got, []any{"one", "two"}) {
		t.Errorf("v = %v, want [one two]", got)
	}
}

func TestLeftJoin_MissingKey(t *testing.T) {
	left := mustRows(t, []string{"A"}, nil)
	right := mustRows(t, []string{"B"}, nil)
	if _, err := LeftJoin(left, right, []string{"A"}); !errors.Is(err, types.ErrColumnNotFound) {
		t.Errorf("LeftJoin() error = %v, want ErrColumnNotFound", err)
	}
}

func TestGroupBy_FirstAppearanceOrder(t *testing.T) {
	d := mustRows(t, []string{"USUBJID"}, [][]any{{"S2"}, {"S1"}, {"S2"}})
	groups, err := d.GroupBy([]string{"USUBJID"})
	if err != nil {
		t.Fatalf("GroupBy() error = %v, want nil", err)
	}
	want := []Group{
		{Key: []any{"S2"}, Rows: []int{0, 2}},
		{Key: []any{"S1"}, Rows: []int{1}},
	}
	if diff := cmp.Diff(want, groups); diff != "" {
		t.Errorf("GroupBy() mismatch (-want +got):\n%s", diff)
	}
}

func TestDataset_JSONRoundTrip(t *testing.T) {
	d := mustRows(t, []string{"A", "B"}, [][]any{{int64(1), "x"}, {1.5, nil}})
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v, want nil", err)
	}
	var back Dataset
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v, want nil", err)
	}
	if got, _ := back.Column("A"); !cmp.Equal(got, []any{int64(1), 1.5}) {
		t.Errorf("A = %v, want [1 1.5]", got)
	}
}

// Property-based test: a left join never changes the left row count
func TestLeftJoin_PropertyRowCountPreserved(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("left join keeps every left row", prop.ForAll(
		func(leftKeys []int, rightKeys []int) bool {
			leftRows := make([][]any, len(leftKeys))
			for i, k := range leftKeys {
				leftRows[i] = []any{int64(k)}
			}
			rightRows := make([][]any, len(rightKeys))
			for i, k := range rightKeys {
				rightRows[i] = []any{int64(k), "v"}
			}
			left, _ := FromRows([]string{"K"}, leftRows)
			right, _ := FromRows([]string{"K", "V"}, rightRows)

			out, err := LeftJoin(left, right, []string{"K"})
			if err != nil || out.Len() != len(leftKeys) {
				return false
			}
			matched := make(map[int]bool)
			for _, k := range rightKeys {
				matched[k] = true
			}
			values, _ := out.Column("V")
			for i, k := range leftKeys {
				if matched[k] != (values[i] != nil) {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 8)),
		gen.SliceOf(gen.IntRange(0, 8)),
	))

	properties.TestingRun(t)
}

// Property-based test: concat keeps part order then row order
func TestConcat_PropertyOrdering(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("concat of N parts with M rows yields M rows in part-then-row order", prop.ForAll(
		func(sizes []int) bool {
			var parts []*Dataset
			total := 0
			for p, n := range sizes {
				rows := make([][]any, n)
				for r := range rows {
					rows[r] = []any{int64(p), int64(r)}
				}
				part, _ := FromRows([]string{"FILE", "ROW"}, rows)
				parts = append(parts, part)
				total += n
			}
			out := Concat(parts...)
			if out.Len() != total {
				return false
			}
			i := 0
			for p, n := range sizes {
				for r := 0; r < n; r++ {
					if out.Value("FILE", i) != int64(p) || out.Value("ROW", i) != int64(r) {
						return false
					}
					i++
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 6)),
	))

	properties.TestingRun(t)
}
