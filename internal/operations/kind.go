package operations

import (
	"fmt"

	"github.com/solatis/cdiscengine/internal/types"
)

// Kind is the closed set of operations a rule may declare.
type Kind int

const (
	KindUnspecified Kind = iota
	KindDistinct
	KindMax
	KindMin
	KindMean
	KindMaxDate
	KindMinDate
	KindRecordCount
	KindVariableExists
	KindColumnOrder
)

// kindNames maps kinds to the operator names used in rule documents.
var kindNames = map[Kind]string{
	KindDistinct:       "distinct",
	KindMax:            "max",
	KindMin:            "min",
	KindMean:           "mean",
	KindMaxDate:        "max_date",
	KindMinDate:        "min_date",
	KindRecordCount:    "record_count",
	KindVariableExists: "variable_exists",
	KindColumnOrder:    "get_column_order_from_dataset",
}

var kindsByName = func() map[string]Kind {
	out := make(map[string]Kind, len(kindNames))
	for k, name := range kindNames {
		out[name] = k
	}
	return out
}()

// String returns the rule-document name of the kind.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind resolves an operator name from a rule document.
// Unknown names return ErrUnknownOperation.
func ParseKind(name string) (Kind, error) {
	k, ok := kindsByName[name]
	if !ok {
		return KindUnspecified, fmt.Errorf("%w: %q", types.ErrUnknownOperation, name)
	}
	return k, nil
}

// Kinds returns every known kind in declaration order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(kindNames))
	for k := KindDistinct; k <= KindColumnOrder; k++ {
		out = append(out, k)
	}
	return out
}
