// internal/rules/rewrite.go
package rules

import (
	"fmt"

	"github.com/solatis/cdiscengine/internal/types"
)

/*
 * Condition tree rewriting.
 *
 * Every rewriter takes a rule value and returns a new rule whose condition
 * tree is freshly built. The input tree is never modified, so a rule loaded
 * once can be rewritten concurrently by many pipeline invocations.
 *
 * MultiplyByTargets expands each leaf into one copy per target:
 *
 *   all[ L1, any[ L2 ] ]  x  [A, B]
 *   => all[ L1(A), L1(B), any[ L2(A), L2(B) ] ]
 *
 * Copies are ordered leaf-major, target-minor. A bare leaf at the root is
 * wrapped in an "all" composite before expansion, and so are the copies of
 * a leaf under "not":
 *
 *   not[ L ]  x  [A, B]  =>  not[ all[ L(A), L(B) ] ]
 */

// rebuild returns a new tree where every leaf is replaced by the conditions
// returned from fn. Composites keep their kind and child order. A "not" keeps
// a single child: several replacements under it are grouped in an "all".
func rebuild(c types.Condition, fn func(*types.Leaf) []types.Condition) types.Condition {
	switch n := c.(type) {
	case *types.Composite:
		children := make([]types.Condition, 0, len(n.Children))
		for _, child := range n.Children {
			if leaf, ok := child.(*types.Leaf); ok {
				children = append(children, fn(leaf)...)
				continue
			}
			children = append(children, rebuild(child, fn))
		}
		if n.Kind == types.KindNot && len(children) > 1 {
			children = []types.Condition{types.NewComposite(types.KindAll, children...)}
		}
		return types.NewComposite(n.Kind, children...)
	case *types.Leaf:
		out := fn(n)
		if len(out) == 1 {
			return out[0]
		}
		return types.NewComposite(types.KindAll, out...)
	}
	return c
}

func withConditions(rule types.Rule, c types.Condition) types.Rule {
	out := rule
	out.Conditions = c
	return out
}

func cloneLeaf(l *types.Leaf) *types.Leaf {
	return l.Clone().(*types.Leaf)
}

// MultiplyByTargets replaces every leaf with one copy per target, each copy's
// value.target set to that target.
func MultiplyByTargets(rule types.Rule, targets []string) types.Rule {
	if rule.Conditions == nil {
		return rule
	}
	expand := func(l *types.Leaf) []types.Condition {
		out := make([]types.Condition, 0, len(targets))
		for _, t := range targets {
			cp := cloneLeaf(l)
			cp.Value.Target = t
			out = append(out, cp)
		}
		return out
	}
	root := rule.Conditions
	if leaf, ok := root.(*types.Leaf); ok {
		return withConditions(rule, types.NewComposite(types.KindAll, expand(leaf)...))
	}
	return withConditions(rule, rebuild(root, expand))
}

// InjectOperator sets the operator of leaves whose domain-resolved target has
// an entry in operators. One operator is set in place; several replace the
// leaf with an "any" composite of copies, one per operator.
func InjectOperator(rule types.Rule, operators map[string][]string, domain string) types.Rule {
	if rule.Conditions == nil {
		return rule
	}
	inject := func(l *types.Leaf) []types.Condition {
		ops := operators[types.ResolveDomain(l.Value.Target, domain)]
		switch len(ops) {
		case 0:
			return []types.Condition{cloneLeaf(l)}
		case 1:
			cp := cloneLeaf(l)
			cp.Operator = ops[0]
			return []types.Condition{cp}
		}
		copies := make([]types.Condition, 0, len(ops))
		for _, op := range ops {
			cp := cloneLeaf(l)
			cp.Operator = op
			copies = append(copies, cp)
		}
		return []types.Condition{types.NewComposite(types.KindAny, copies...)}
	}
	return withConditions(rule, rebuild(rule.Conditions, inject))
}

// ComparatorSource supplies comparators keyed by a leaf's raw target. Map
// takes precedence; Prefix builds the comparator as Prefix+target.
type ComparatorSource struct {
	Map    map[string]any
	Prefix string
}

func (s ComparatorSource) lookup(target string) (any, bool) {
	if len(s.Map) > 0 {
		v, ok := s.Map[target]
		return v, ok && v != nil
	}
	if s.Prefix != "" {
		return s.Prefix + target, true
	}
	return nil, false
}

// InjectComparator sets value.comparator on every leaf the source has an
// entry for. Existing comparators are overwritten.
func InjectComparator(rule types.Rule, src ComparatorSource) types.Rule {
	if rule.Conditions == nil {
		return rule
	}
	inject := func(l *types.Leaf) []types.Condition {
		cp := cloneLeaf(l)
		if v, ok := src.lookup(l.Value.Target); ok {
			cp.Value.Comparator = v
		}
		return []types.Condition{cp}
	}
	return withConditions(rule, rebuild(rule.Conditions, inject))
}

// DatasetSizeTarget is the leaf target carrying a dataset size threshold.
const DatasetSizeTarget = "dataset_size"

// SizeUnit returns the unit of the first leaf targeting the dataset size.
func SizeUnit(rule types.Rule) (string, bool) {
	for _, l := range types.Leaves(rule.Conditions) {
		if l.Value.Target == DatasetSizeTarget {
			return l.Value.Unit, true
		}
	}
	return "", false
}

// Message returns the message template of the rule's first action.
func Message(rule types.Rule) (string, error) {
	if len(rule.Actions) == 0 || rule.Actions[0].Params.Message == "" {
		return "", fmt.Errorf("rule %s: %w", rule.CoreID, types.ErrMissingMessage)
	}
	return rule.Actions[0].Params.Message, nil
}
