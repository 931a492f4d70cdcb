package types

import (
	"encoding/json"
	"fmt"
)

/*
 * Condition tree model.
 *
 * A rule's pass/fail logic is a boolean tree: composites (any/all/not) over
 * leaf conditions. Condition is a sealed interface so rewriters switch over
 * exactly two variants, *Composite and *Leaf.
 *
 * Wire shape (JSON and YAML rule files):
 *   {"all": [ {"name": "get_dataset", "operator": "equal_to",
 *              "value": {"target": "--SEQ", "comparator": "AESEQ"}}, ... ]}
 *   {"not": {"any": [...]}}          single child accepted for not
 *
 * Leaf value keys other than target/comparator/unit are preserved verbatim in
 * Value.Extra so the external evaluator sees the rule as authored.
 */

// CompositeKind tags a composite node.
type CompositeKind string

const (
	KindAny CompositeKind = "any"
	KindAll CompositeKind = "all"
	KindNot CompositeKind = "not"
)

// Condition is a node of a rule's condition tree.
type Condition interface {
	isCondition()
	// Clone returns a deep copy of the subtree.
	Clone() Condition
}

// Composite is a logical node over ordered children.
type Composite struct {
	Kind     CompositeKind
	Children []Condition
}

// Value carries the operands of a leaf condition.
type Value struct {
	Target     string
	Comparator any
	Unit       string
	Extra      map[string]any
}

// Leaf is a single predicate evaluated by the external evaluator.
type Leaf struct {
	Name     string
	Operator string
	Value    Value
}

func (*Composite) isCondition() {}
func (*Leaf) isCondition()      {}

// NewComposite builds a composite node.
func NewComposite(kind CompositeKind, children ...Condition) *Composite {
	return &Composite{Kind: kind, Children: children}
}

// Clone implements Condition.
func (c *Composite) Clone() Condition {
	out := &Composite{Kind: c.Kind, Children: make([]Condition, len(c.Children))}
	for i, child := range c.Children {
		out.Children[i] = child.Clone()
	}
	return out
}

// Clone implements Condition.
func (l *Leaf) Clone() Condition {
	cp := *l
	cp.Value = l.Value.clone()
	return &cp
}

func (v Value) clone() Value {
	cp := v
	cp.Comparator = cloneAny(v.Comparator)
	if v.Extra != nil {
		cp.Extra = make(map[string]any, len(v.Extra))
		for k, x := range v.Extra {
			cp.Extra[k] = cloneAny(x)
		}
	}
	return cp
}

// ComparatorString returns the comparator when it is a non-empty string.
func (v Value) ComparatorString() (string, bool) {
	s, ok := v.Comparator.(string)
	return s, ok && s != ""
}

func cloneAny(v any) any {
	switch t := v.(type) {
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = cloneAny(x)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[k] = cloneAny(x)
		}
		return out
	default:
		return v
	}
}

// Walk visits every leaf in depth-first, left-to-right order.
func Walk(c Condition, fn func(*Leaf)) {
	switch n := c.(type) {
	case *Composite:
		for _, child := range n.Children {
			Walk(child, fn)
		}
	case *Leaf:
		fn(n)
	}
}

// Leaves returns every leaf in traversal order.
func Leaves(c Condition) []*Leaf {
	var out []*Leaf
	Walk(c, func(l *Leaf) { out = append(out, l) })
	return out
}

// ParseCondition decodes a generic tree (as produced by encoding/json or
// yaml.v3) into a Condition.
func ParseCondition(raw any) (Condition, error) {
	m, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected object, got %T", ErrInvalidCondition, raw)
	}
	if len(m) == 1 {
		for key, body := range m {
			switch kind := CompositeKind(key); kind {
			case KindAny, KindAll, KindNot:
				return parseComposite(kind, body)
			}
		}
	}
	return parseLeaf(m)
}

func parseComposite(kind CompositeKind, body any) (Condition, error) {
	var items []any
	switch b := body.(type) {
	case []any:
		items = b
	case map[string]any:
		items = []any{b}
	default:
		return nil, fmt.Errorf("%w: %q must hold a list, got %T", ErrInvalidCondition, kind, body)
	}
	out := &Composite{Kind: kind, Children: make([]Condition, 0, len(items))}
	for i, item := range items {
		child, err := ParseCondition(item)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", kind, i, err)
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}

func parseLeaf(m map[string]any) (Condition, error) {
	leaf := &Leaf{}
	if name, ok := m["name"].(string); ok {
		leaf.Name = name
	}
	if op, ok := m["operator"].(string); ok {
		leaf.Operator = op
	}
	if rawValue, present := m["value"]; present && rawValue != nil {
		vm, ok := rawValue.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: value must be an object, got %T", ErrInvalidCondition, rawValue)
		}
		for k, x := range vm {
			switch k {
			case "target":
				s, ok := x.(string)
				if !ok {
					return nil, fmt.Errorf("%w: target must be a string, got %T", ErrInvalidCondition, x)
				}
				leaf.Value.Target = s
			case "comparator":
				leaf.Value.Comparator = x
			case "unit":
				leaf.Value.Unit, _ = x.(string)
			default:
				if leaf.Value.Extra == nil {
					leaf.Value.Extra = make(map[string]any)
				}
				leaf.Value.Extra[k] = x
			}
		}
	}
	return leaf, nil
}

// ConditionToMap renders a Condition back into its generic wire shape.
func ConditionToMap(c Condition) map[string]any {
	switch n := c.(type) {
	case *Composite:
		children := make([]any, len(n.Children))
		for i, child := range n.Children {
			children[i] = ConditionToMap(child)
		}
		return map[string]any{string(n.Kind): children}
	case *Leaf:
		out := map[string]any{}
		if n.Name != "" {
			out["name"] = n.Name
		}
		if n.Operator != "" {
			out["operator"] = n.Operator
		}
		value := map[string]any{}
		for k, x := range n.Value.Extra {
			value[k] = x
		}
		if n.Value.Target != "" {
			value["target"] = n.Value.Target
		}
		if n.Value.Comparator != nil {
			value["comparator"] = n.Value.Comparator
		}
		if n.Value.Unit != "" {
			value["unit"] = n.Value.Unit
		}
		out["value"] = value
		return out
	default:
		return nil
	}
}

// MarshalJSON implements json.Marshaler.
func (c *Composite) MarshalJSON() ([]byte, error) { return json.Marshal(ConditionToMap(c)) }

// MarshalJSON implements json.Marshaler.
func (l *Leaf) MarshalJSON() ([]byte, error) { return json.Marshal(ConditionToMap(l)) }
