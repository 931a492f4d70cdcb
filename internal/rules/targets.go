package rules

import (
	"regexp"
	"sort"
	"strings"

	"github.com/solatis/cdiscengine/internal/dataset"
	"github.com/solatis/cdiscengine/internal/types"
)

// Operators whose target names a column family (TARGET1, TARGET2, ...).
var columnFamilyOperators = map[string]bool{
	"additional_columns_empty":     true,
	"additional_columns_not_empty": true,
}

// ExtractTargetNames returns the sorted, deduplicated variable names a rule
// targets in the given domain. Output variables take precedence over
// condition targets.
func ExtractTargetNames(rule types.Rule, domain string, columns []string) []string {
	seen := make(map[string]bool)
	add := func(name string) {
		seen[name] = true
	}

	if len(rule.OutputVariables) > 0 {
		for _, v := range rule.OutputVariables {
			add(strings.Replace(v, types.DomainPlaceholder, domain, 1))
		}
		return sortedKeys(seen)
	}

	types.Walk(rule.Conditions, func(l *types.Leaf) {
		if l.Value.Target == "" {
			return
		}
		target := types.ResolveDomain(l.Value.Target, domain)
		if !columnFamilyOperators[l.Operator] {
			add(target)
			return
		}
		pattern := regexp.MustCompile("^" + regexp.QuoteMeta(target) + `\d+$`)
		for _, col := range columns {
			if pattern.MatchString(col) {
				add(col)
			}
		}
	})
	return sortedKeys(seen)
}

// ExtractReferencedVariables returns every leaf target and every non-empty
// comparator in traversal order, duplicates kept. Comparators keep their
// decoded type: strings, numbers and lists alike.
func ExtractReferencedVariables(rule types.Rule) []any {
	var out []any
	types.Walk(rule.Conditions, func(l *types.Leaf) {
		if l.Value.Target != "" {
			out = append(out, l.Value.Target)
		}
		if present(l.Value.Comparator) {
			out = append(out, l.Value.Comparator)
		}
	})
	return out
}

// present reports whether a comparator carries a value: nil, false, zero,
// and empty strings, lists or objects do not.
func present(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case []any:
		return len(t) > 0
	case map[string]any:
		return len(t) > 0
	}
	if f, ok := dataset.ToFloat64(v); ok {
		return f != 0
	}
	return true
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
