package operations

import (
	"context"
	"fmt"
	"time"

	"github.com/solatis/cdiscengine/internal/dataset"
	"github.com/solatis/cdiscengine/internal/types"
)

/*
 * Built-in operations.
 *
 * Every aggregate follows one shape: without grouping it reduces the target
 * column to a scalar; with grouping it reduces each group and returns a table
 * of grouping columns plus the target column, groups in first-appearance
 * order.
 *
 * Missing values (nil, blank strings) are skipped. Numeric aggregates also
 * skip cells that fail numeric coercion; an all-missing input yields nil.
 */

// reducer folds the target cells of one group into a value.
type reducer func(cells []any) (any, error)

// aggregate applies reduce to the whole target column or to each group.
func aggregate(p Params, reduce reducer) (Result, error) {
	cells, ok := p.Dataset.Column(p.Target)
	if !ok {
		return Result{}, fmt.Errorf("%s: %w: %s", p.Kind, types.ErrColumnNotFound, p.Target)
	}
	if !p.Grouped() {
		v, err := reduce(cells)
		if err != nil {
			return Result{}, err
		}
		return Scalar(v), nil
	}

	groups, err := p.Dataset.GroupBy(p.Grouping)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", p.Kind, err)
	}
	columns := append(append([]string{}, p.Grouping...), p.Target)
	rows := make([][]any, 0, len(groups))
	for _, g := range groups {
		groupCells := make([]any, len(g.Rows))
		for i, r := range g.Rows {
			groupCells[i] = cells[r]
		}
		v, err := reduce(groupCells)
		if err != nil {
			return Result{}, err
		}
		row := append(append([]any{}, g.Key...), v)
		rows = append(rows, row)
	}
	out, err := dataset.FromRows(columns, rows)
	if err != nil {
		return Result{}, err
	}
	return Grouped(out), nil
}

func distinct(_ context.Context, p Params) (Result, error) {
	return aggregate(p, func(cells []any) (any, error) {
		seen := make(map[string]bool)
		out := []any{}
		for _, c := range cells {
			res, err := dataset.Coerce(c, dataset.KindText)
			if err != nil || res.IsNull {
				continue
			}
			key := res.Value.(string)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, c)
		}
		return out, nil
	})
}

func numericAggregate(fold func([]float64) float64) func(context.Context, Params) (Result, error) {
	return func(_ context.Context, p Params) (Result, error) {
		res, err := aggregate(p, func(cells []any) (any, error) {
			var values []float64
			for _, c := range cells {
				res, err := dataset.Coerce(c, dataset.KindNumeric)
				if err != nil || res.IsNull {
					continue
				}
				values = append(values, res.Value.(float64))
			}
			if len(values) == 0 {
				return nil, nil
			}
			return fold(values), nil
		})
		res.Numeric = err == nil
		return res, err
	}
}

func maxOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(values []float64) float64 {
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func meanOf(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// dateAggregate returns the original cell text of the latest (or earliest) date.
func dateAggregate(latest bool) func(context.Context, Params) (Result, error) {
	return func(_ context.Context, p Params) (Result, error) {
		return aggregate(p, func(cells []any) (any, error) {
			var best any
			var bestTime time.Time
			for _, c := range cells {
				res, err := dataset.Coerce(c, dataset.KindDate)
				if err != nil || res.IsNull {
					continue
				}
				t := res.Value.(time.Time)
				if best == nil || (latest && t.After(bestTime)) || (!latest && t.Before(bestTime)) {
					best, bestTime = c, t
				}
			}
			return best, nil
		})
	}
}

func recordCount(_ context.Context, p Params) (Result, error) {
	if !p.Grouped() {
		return Scalar(int64(p.Dataset.Len())), nil
	}
	groups, err := p.Dataset.GroupBy(p.Grouping)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", p.Kind, err)
	}
	target := p.Target
	if target == "" {
		target = p.OperationID
	}
	rows := make([][]any, len(groups))
	for i, g := range groups {
		rows[i] = append(append([]any{}, g.Key...), int64(len(g.Rows)))
	}
	out, err := dataset.FromRows(append(append([]string{}, p.Grouping...), target), rows)
	if err != nil {
		return Result{}, err
	}
	return Grouped(out), nil
}

func variableExists(_ context.Context, p Params) (Result, error) {
	return Scalar(p.Dataset.HasColumn(p.Target)), nil
}

func columnOrder(_ context.Context, p Params) (Result, error) {
	names := p.Dataset.Columns()
	out := make([]any, len(names))
	for i, n := range names {
		out[i] = n
	}
	return Scalar(out), nil
}
