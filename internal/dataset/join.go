package dataset

import (
	"fmt"
	"strings"

	"github.com/solatis/cdiscengine/internal/types"
)

// Group is one distinct key of a GroupBy, with the rows that carry it.
type Group struct {
	Key  []any
	Rows []int
}

// GroupBy partitions rows by the values of columns.
// Groups are returned in order of first appearance.
func (d *Dataset) GroupBy(columns []string) ([]Group, error) {
	for _, c := range columns {
		if !d.HasColumn(c) {
			return nil, fmt.Errorf("%w: %s", types.ErrColumnNotFound, c)
		}
	}
	index := make(map[string]int)
	var groups []Group
	for row := 0; row < d.rows; row++ {
		key := d.rowKey(columns, row)
		gi, ok := index[key]
		if !ok {
			values := make([]any, len(columns))
			for i, c := range columns {
				values[i] = d.data[c][row]
			}
			gi = len(groups)
			index[key] = gi
			groups = append(groups, Group{Key: values})
		}
		groups[gi].Rows = append(groups[gi].Rows, row)
	}
	return groups, nil
}

func (d *Dataset) rowKey(columns []string, row int) string {
	var b strings.Builder
	for _, c := range columns {
		b.WriteString(keyPart(d.data[c][row]))
		b.WriteByte(0x1f)
	}
	return b.String()
}

// LeftJoin attaches the non-key columns of right to left, matching rows on
// the on columns. Every left row is kept exactly once and in order, so the
// result has left.Len() rows. Unmatched rows get nil cells. When right holds
// several rows for one key, the first one wins.
func LeftJoin(left, right *Dataset, on []string) (*Dataset, error) {
	for _, c := range on {
		if !left.HasColumn(c) {
			return nil, fmt.Errorf("left side: %w: %s", types.ErrColumnNotFound, c)
		}
		if !right.HasColumn(c) {
			return nil, fmt.Errorf("right side: %w: %s", types.ErrColumnNotFound, c)
		}
	}

	lookup := make(map[string]int, right.rows)
	for row := 0; row < right.rows; row++ {
		key := right.rowKey(on, row)
		if _, seen := lookup[key]; !seen {
			lookup[key] = row
		}
	}

	keys := make(map[string]bool, len(on))
	for _, c := range on {
		keys[c] = true
	}

	out := left
	for _, c := range right.columns {
		if keys[c] {
			continue
		}
		cells := make([]any, left.rows)
		src := right.data[c]
		for row := 0; row < left.rows; row++ {
			if match, ok := lookup[left.rowKey(on, row)]; ok {
				cells[row] = src[match]
			}
		}
		out = out.WithColumn(c, cells)
	}
	if out == left {
		out = left.shallow()
	}
	return out, nil
}
