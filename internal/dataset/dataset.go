// Package dataset provides the in-memory tabular dataset the rules engine
// enriches with derived columns.
//
// A Dataset is column-oriented: an ordered list of column names and one cell
// slice per column, all of equal length. Every transforming method returns a
// new Dataset; the receiver is never mutated, so a dataset handed to a
// pipeline invocation stays intact for its caller.
package dataset

import (
	"encoding/json"
	"fmt"

	"github.com/solatis/cdiscengine/internal/types"
)

// Well-known column names.
const (
	DomainColumn    = "DOMAIN"
	RowNumberColumn = "row_number"
)

// Dataset is an immutable-by-convention column-oriented table.
type Dataset struct {
	columns []string
	data    map[string][]any
	rows    int
}

// New creates an empty dataset with the given columns and zero rows.
func New(columns ...string) *Dataset {
	d := &Dataset{data: make(map[string][]any, len(columns))}
	for _, c := range columns {
		if _, dup := d.data[c]; dup {
			continue
		}
		d.columns = append(d.columns, c)
		d.data[c] = []any{}
	}
	return d
}

// FromRows builds a dataset from row-major cells.
// Every row must have exactly len(columns) cells.
func FromRows(columns []string, rows [][]any) (*Dataset, error) {
	d := New(columns...)
	if len(d.columns) != len(columns) {
		return nil, fmt.Errorf("duplicate column names in %v", columns)
	}
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(columns))
		}
		for j, c := range columns {
			d.data[c] = append(d.data[c], row[j])
		}
	}
	d.rows = len(rows)
	return d, nil
}

// FromRecords builds a dataset from row maps. Columns are taken from the
// given order; keys absent from a record yield nil cells.
func FromRecords(columns []string, records []map[string]any) *Dataset {
	d := New(columns...)
	for _, rec := range records {
		for _, c := range d.columns {
			d.data[c] = append(d.data[c], rec[c])
		}
	}
	d.rows = len(records)
	return d
}

// Len returns the number of rows.
func (d *Dataset) Len() int { return d.rows }

// Columns returns a copy of the column names in order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// HasColumn reports whether name is a column.
func (d *Dataset) HasColumn(name string) bool {
	_, ok := d.data[name]
	return ok
}

// Column returns a copy of the column's cells.
func (d *Dataset) Column(name string) ([]any, bool) {
	cells, ok := d.data[name]
	if !ok {
		return nil, false
	}
	out := make([]any, len(cells))
	copy(out, cells)
	return out, true
}

// Value returns the cell at (column, row), or nil when out of range.
func (d *Dataset) Value(column string, row int) any {
	cells, ok := d.data[column]
	if !ok || row < 0 || row >= len(cells) {
		return nil
	}
	return cells[row]
}

// Row returns row i as a map.
func (d *Dataset) Row(i int) map[string]any {
	out := make(map[string]any, len(d.columns))
	for _, c := range d.columns {
		out[c] = d.Value(c, i)
	}
	return out
}

// Copy returns a deep copy of the column slices.
func (d *Dataset) Copy() *Dataset {
	out := &Dataset{
		columns: d.Columns(),
		data:    make(map[string][]any, len(d.data)),
		rows:    d.rows,
	}
	for c, cells := range d.data {
		cp := make([]any, len(cells))
		copy(cp, cells)
		out.data[c] = cp
	}
	return out
}

// shallow shares cell slices with d; callers must replace, never mutate, them.
func (d *Dataset) shallow() *Dataset {
	out := &Dataset{
		columns: d.Columns(),
		data:    make(map[string][]any, len(d.data)),
		rows:    d.rows,
	}
	for c, cells := range d.data {
		out.data[c] = cells
	}
	return out
}

// WithColumn returns a dataset with name set to values aligned by row
// position. Shorter inputs are padded with nil, longer ones truncated.
// An existing column of the same name is replaced in place of order.
func (d *Dataset) WithColumn(name string, values []any) *Dataset {
	cells := make([]any, d.rows)
	copy(cells, values)
	out := d.shallow()
	if _, exists := out.data[name]; !exists {
		out.columns = append(out.columns, name)
	}
	out.data[name] = cells
	return out
}

// WithScalar returns a dataset with name set to v on every row.
func (d *Dataset) WithScalar(name string, v any) *Dataset {
	cells := make([]any, d.rows)
	for i := range cells {
		cells[i] = v
	}
	return d.WithColumn(name, cells)
}

// RenameColumn returns a dataset with column from renamed to to.
// A pre-existing column named to is dropped.
func (d *Dataset) RenameColumn(from, to string) (*Dataset, error) {
	if !d.HasColumn(from) {
		return nil, fmt.Errorf("%w: %s", types.ErrColumnNotFound, from)
	}
	if from == to {
		return d.shallow(), nil
	}
	out := &Dataset{data: make(map[string][]any, len(d.data)), rows: d.rows}
	for _, c := range d.columns {
		switch c {
		case to:
			continue
		case from:
			out.columns = append(out.columns, to)
			out.data[to] = d.data[from]
		default:
			out.columns = append(out.columns, c)
			out.data[c] = d.data[c]
		}
	}
	return out, nil
}

// Select returns a dataset restricted to columns, in the given order.
func (d *Dataset) Select(columns ...string) (*Dataset, error) {
	out := &Dataset{data: make(map[string][]any, len(columns)), rows: d.rows}
	for _, c := range columns {
		cells, ok := d.data[c]
		if !ok {
			return nil, fmt.Errorf("%w: %s", types.ErrColumnNotFound, c)
		}
		if _, dup := out.data[c]; dup {
			continue
		}
		out.columns = append(out.columns, c)
		out.data[c] = cells
	}
	return out, nil
}

// AddRowNumber returns a dataset stamped with a 1-based sequential
// row_number column.
func AddRowNumber(d *Dataset) *Dataset {
	numbers := make([]any, d.rows)
	for i := range numbers {
		numbers[i] = int64(i + 1)
	}
	return d.WithColumn(RowNumberColumn, numbers)
}

// Concat stacks datasets vertically in argument order. The result has the
// union of columns in first-appearance order; cells of columns a part lacks
// are nil.
func Concat(parts ...*Dataset) *Dataset {
	out := New()
	for _, p := range parts {
		if p == nil {
			continue
		}
		for _, c := range p.columns {
			if _, ok := out.data[c]; !ok {
				out.columns = append(out.columns, c)
				out.data[c] = make([]any, out.rows)
			}
		}
		for _, c := range out.columns {
			if cells, ok := p.data[c]; ok {
				out.data[c] = append(out.data[c], cells...)
			} else {
				out.data[c] = append(out.data[c], make([]any, p.rows)...)
			}
		}
		out.rows += p.rows
	}
	return out
}

type wireDataset struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// MarshalJSON encodes the dataset as {"columns": [...], "rows": [[...]]}.
func (d *Dataset) MarshalJSON() ([]byte, error) {
	w := wireDataset{Columns: d.Columns(), Rows: make([][]any, d.rows)}
	for i := 0; i < d.rows; i++ {
		row := make([]any, len(d.columns))
		for j, c := range d.columns {
			row[j] = d.data[c][i]
		}
		w.Rows[i] = row
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes the format written by MarshalJSON.
// Whole numbers decode as int64, other numbers as float64.
func (d *Dataset) UnmarshalJSON(data []byte) error {
	var w wireDataset
	if err := decodeNumbers(data, &w); err != nil {
		return err
	}
	for _, row := range w.Rows {
		for j, cell := range row {
			row[j] = NormalizeNumber(cell)
		}
	}
	parsed, err := FromRows(w.Columns, w.Rows)
	if err != nil {
		return err
	}
	*d = *parsed
	return nil
}
