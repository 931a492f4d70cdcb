// internal/types/rules.go
package types

import (
	"encoding/json"
	"fmt"
)

/*
 * Rule definition types.
 *
 * Rule mirrors the CDISC rule document: scope (domains/classes), the
 * condition tree, declared operations, output variables and actions.
 * Decoding goes through UnmarshalJSON so JSON and YAML rule files (YAML is
 * converted to a generic tree first) share one path.
 *
 * Key types:
 *   - Rule: complete rule definition
 *   - DomainScope / ClassScope: inclusion/exclusion lists
 *   - Operation: derived-column declaration executed before evaluation
 *   - Action: message template reported on failure
 */

// Standard names a CDISC standard a rule belongs to.
type Standard struct {
	Name    string `json:"Name"`
	Version string `json:"Version"`
}

// DomainScope lists included/excluded domains plus the split-dataset policy.
// IncludeSplitDatasets is tri-state: nil means no policy.
type DomainScope struct {
	Include              []string `json:"Include,omitempty"`
	Exclude              []string `json:"Exclude,omitempty"`
	IncludeSplitDatasets *bool    `json:"include_split_datasets,omitempty"`
}

// ClassScope lists included/excluded dataset classes.
type ClassScope struct {
	Include []string `json:"Include,omitempty"`
	Exclude []string `json:"Exclude,omitempty"`
}

// Operation declares a derived column computed before condition evaluation.
type Operation struct {
	ID       string   `json:"id"`
	Operator string   `json:"operator"`
	Name     string   `json:"name,omitempty"`
	Domain   string   `json:"domain,omitempty"`
	Group    []string `json:"group,omitempty"`
}

// ActionParams carries the message template of an action.
type ActionParams struct {
	Message string `json:"message"`
}

// Action is reported when a rule's conditions hold.
type Action struct {
	Name   string       `json:"name"`
	Params ActionParams `json:"params"`
}

// Rule is a declarative compliance rule.
type Rule struct {
	CoreID          string       `json:"core_id,omitempty"`
	Standards       []Standard   `json:"standards"`
	RuleType        string       `json:"rule_type,omitempty"`
	Sensitivity     string       `json:"sensitivity,omitempty"`
	Domains         *DomainScope `json:"domains,omitempty"`
	Classes         *ClassScope  `json:"classes,omitempty"`
	Conditions      Condition    `json:"-"`
	Operations      []Operation  `json:"operations,omitempty"`
	OutputVariables []string     `json:"output_variables,omitempty"`
	Actions         []Action     `json:"actions,omitempty"`
}

type ruleAlias Rule

// UnmarshalJSON implements json.Unmarshaler.
// The condition tree is decoded through ParseCondition.
func (r *Rule) UnmarshalJSON(data []byte) error {
	aux := struct {
		*ruleAlias
		Conditions any `json:"conditions"`
	}{ruleAlias: (*ruleAlias)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if aux.Conditions == nil {
		r.Conditions = nil
		return nil
	}
	cond, err := ParseCondition(aux.Conditions)
	if err != nil {
		return fmt.Errorf("rule %q conditions: %w", r.CoreID, err)
	}
	r.Conditions = cond
	return nil
}

// MarshalJSON implements json.Marshaler.
func (r Rule) MarshalJSON() ([]byte, error) {
	aux := struct {
		ruleAlias
		Conditions map[string]any `json:"conditions,omitempty"`
	}{ruleAlias: ruleAlias(r)}
	if r.Conditions != nil {
		aux.Conditions = ConditionToMap(r.Conditions)
	}
	return json.Marshal(aux)
}

// Valid reports whether the rule carries the keys every evaluable rule needs.
// Standards must be present; an explicitly empty list still counts.
func (r *Rule) Valid() bool {
	return r != nil && r.CoreID != "" && r.Standards != nil
}

// Clone returns a deep copy of the rule.
func (r Rule) Clone() Rule {
	cp := r
	cp.Standards = cloneSlice(r.Standards)
	if r.Domains != nil {
		d := *r.Domains
		d.Include = cloneSlice(d.Include)
		d.Exclude = cloneSlice(d.Exclude)
		if d.IncludeSplitDatasets != nil {
			v := *d.IncludeSplitDatasets
			d.IncludeSplitDatasets = &v
		}
		cp.Domains = &d
	}
	if r.Classes != nil {
		c := *r.Classes
		c.Include = cloneSlice(c.Include)
		c.Exclude = cloneSlice(c.Exclude)
		cp.Classes = &c
	}
	if r.Conditions != nil {
		cp.Conditions = r.Conditions.Clone()
	}
	if r.Operations != nil {
		cp.Operations = make([]Operation, len(r.Operations))
		for i, op := range r.Operations {
			op.Group = cloneSlice(op.Group)
			cp.Operations[i] = op
		}
	}
	cp.OutputVariables = cloneSlice(r.OutputVariables)
	cp.Actions = cloneSlice(r.Actions)
	return cp
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
