// Package operations implements the derived-column computations rules declare.
//
// Operations are resolved by name into a closed Kind enum, then dispatched
// through a Registry built once at startup. Each operation computes over the
// dataset in Params and returns a Result: a scalar broadcast to every row, a
// column aligned by row position, or a grouped table keyed by the grouping
// columns.
package operations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/solatis/cdiscengine/internal/dataset"
	"github.com/solatis/cdiscengine/internal/types"
)

// Params is the parameter bundle handed to an operation.
type Params struct {
	OperationID     string
	Kind            Kind
	Dataset         *dataset.Dataset
	Target          string
	Domain          string
	DatasetPath     string
	DirectoryPath   string
	Descriptors     []types.DatasetDescriptor
	Grouping        []string
	Standard        string
	StandardVersion string
	MedDRAPath      string
	WHODrugPath     string
}

// Grouped reports whether the operation aggregates per group.
func (p Params) Grouped() bool { return len(p.Grouping) > 0 }

// ResultKind discriminates Result.
type ResultKind string

const (
	ResultScalar  ResultKind = "scalar"
	ResultColumn  ResultKind = "column"
	ResultGrouped ResultKind = "grouped"
)

// Result is an operation outcome.
// Grouped holds the grouping columns plus one value column named by the
// operation target, always last. Numeric marks results whose values are
// float64 so they survive a JSON round trip with their type.
type Result struct {
	Kind    ResultKind       `json:"kind"`
	Scalar  any              `json:"scalar"`
	Column  []any            `json:"column,omitempty"`
	Grouped *dataset.Dataset `json:"grouped,omitempty"`
	Numeric bool             `json:"numeric,omitempty"`
}

// Scalar builds a scalar result.
func Scalar(v any) Result { return Result{Kind: ResultScalar, Scalar: v} }

// Column builds a positional column result.
func Column(values []any) Result { return Result{Kind: ResultColumn, Column: values} }

// Grouped builds a grouped result.
func Grouped(d *dataset.Dataset) Result { return Result{Kind: ResultGrouped, Grouped: d} }

type resultAlias Result

// UnmarshalJSON restores value types so cached results equal freshly
// computed ones: whole numbers decode as int64, except in Numeric results
// where every number is float64.
func (r *Result) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var aux resultAlias
	if err := dec.Decode(&aux); err != nil {
		return err
	}
	aux.Scalar = normalize(aux.Scalar)
	for i, v := range aux.Column {
		aux.Column[i] = normalize(v)
	}
	switch aux.Kind {
	case ResultScalar, ResultColumn, ResultGrouped:
	default:
		return fmt.Errorf("unknown result kind %q", aux.Kind)
	}
	if aux.Numeric {
		aux.Scalar = asFloat(aux.Scalar)
		for i, v := range aux.Column {
			aux.Column[i] = asFloat(v)
		}
		if aux.Grouped != nil {
			aux.Grouped = floatValueColumn(aux.Grouped)
		}
	}
	*r = Result(aux)
	return nil
}

func asFloat(v any) any {
	if i, ok := v.(int64); ok {
		return float64(i)
	}
	return v
}

// floatValueColumn converts the value column of a grouped table. Grouping
// columns keep their decoded types.
func floatValueColumn(d *dataset.Dataset) *dataset.Dataset {
	columns := d.Columns()
	if len(columns) == 0 {
		return d
	}
	value := columns[len(columns)-1]
	cells, _ := d.Column(value)
	out := make([]any, len(cells))
	for i, c := range cells {
		out[i] = asFloat(c)
	}
	return d.WithColumn(value, out)
}

func normalize(v any) any {
	switch t := v.(type) {
	case []any:
		for i, x := range t {
			t[i] = normalize(x)
		}
		return t
	default:
		return dataset.NormalizeNumber(v)
	}
}

// Operation computes one derived column.
type Operation interface {
	Execute(ctx context.Context, p Params) (Result, error)
}

// Func adapts a function to Operation.
type Func func(ctx context.Context, p Params) (Result, error)

// Execute implements Operation.
func (f Func) Execute(ctx context.Context, p Params) (Result, error) { return f(ctx, p) }

// Registry maps kinds to implementations. Build it at startup; it is read
// concurrently afterwards and must not be modified then.
type Registry struct {
	ops map[Kind]Operation
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{ops: make(map[Kind]Operation)}
}

// DefaultRegistry returns a registry holding every built-in operation.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(KindDistinct, Func(distinct))
	r.Register(KindMax, Func(numericAggregate(maxOf)))
	r.Register(KindMin, Func(numericAggregate(minOf)))
	r.Register(KindMean, Func(numericAggregate(meanOf)))
	r.Register(KindMaxDate, Func(dateAggregate(true)))
	r.Register(KindMinDate, Func(dateAggregate(false)))
	r.Register(KindRecordCount, Func(recordCount))
	r.Register(KindVariableExists, Func(variableExists))
	r.Register(KindColumnOrder, Func(columnOrder))
	return r
}

// Register binds op to kind, replacing any previous binding.
func (r *Registry) Register(kind Kind, op Operation) {
	r.ops[kind] = op
}

// Resolve maps an operator name to its kind and implementation.
// Names outside the Kind enum, and kinds without a registered
// implementation, return ErrUnknownOperation.
func (r *Registry) Resolve(name string) (Kind, Operation, error) {
	kind, err := ParseKind(name)
	if err != nil {
		return KindUnspecified, nil, err
	}
	op, ok := r.ops[kind]
	if !ok {
		return KindUnspecified, nil, fmt.Errorf("%w: %q has no registered implementation", types.ErrUnknownOperation, name)
	}
	return kind, op, nil
}
