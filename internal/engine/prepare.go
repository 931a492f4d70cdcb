package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/solatis/cdiscengine/internal/dataset"
	"github.com/solatis/cdiscengine/internal/rules"
	"github.com/solatis/cdiscengine/internal/types"
)

/*
 * Rule preparation.
 *
 * Between the executor and the evaluator the rule is reshaped by rule type:
 *   1. Configured operator overrides replace the operators of matching leaves
 *   2. Variable metadata checks with output variables get one leaf per variable
 *   3. Checks against Define-XML compare each target with its define_ column
 *      and carry the Define-XML records they read
 *   4. A dataset_size leaf gets the file size stamped in its unit
 */

// DefineColumnPrefix names the Define-XML counterpart of a dataset attribute.
const DefineColumnPrefix = "define_"

const variableMetadataCheck = "Variable Metadata Check"

type defineSource int

const (
	defineNone defineSource = iota
	defineItemGroups
	defineVariables
	defineValueLevel
)

var defineSources = map[string]defineSource{
	"Dataset Metadata Check against Define XML":     defineItemGroups,
	"Define Item Group Metadata Check":              defineItemGroups,
	"Variable Metadata Check against Define XML":    defineVariables,
	"Define Item Metadata Check":                    defineVariables,
	"Value Level Metadata Check against Define XML": defineValueLevel,
}

var comparedWithDefine = map[string]bool{
	"Dataset Metadata Check against Define XML":     true,
	"Variable Metadata Check against Define XML":    true,
	"Value Level Metadata Check against Define XML": true,
}

type preparedRule struct {
	rule    types.Rule
	dataset *dataset.Dataset
	define  []map[string]any
}

func (p *Pipeline) prepareRule(ctx context.Context, b *Builder, u Unit, ds *dataset.Dataset) (preparedRule, error) {
	rule := u.Rule
	if len(p.cfg.OperatorOverrides) > 0 {
		rule = rules.InjectOperator(rule, p.cfg.OperatorOverrides, u.Domain)
	}
	if rule.RuleType == variableMetadataCheck && len(rule.OutputVariables) > 0 {
		targets := make([]string, len(rule.OutputVariables))
		for i, v := range rule.OutputVariables {
			targets[i] = types.ResolveDomain(v, u.Domain)
		}
		rule = rules.MultiplyByTargets(rule, targets)
	}
	if comparedWithDefine[rule.RuleType] {
		rule = rules.InjectComparator(rule, rules.ComparatorSource{Prefix: DefineColumnPrefix})
	}
	out := preparedRule{rule: rule, dataset: ds}

	var err error
	switch defineSources[rule.RuleType] {
	case defineItemGroups:
		out.define, err = b.DefineItemGroupMetadata(ctx, u.Domain)
	case defineVariables:
		out.define, err = b.DefineVariablesMetadata(ctx)
	case defineValueLevel:
		out.define, err = b.DefineValueLevelMetadata(ctx)
	}
	if err != nil {
		return preparedRule{}, fmt.Errorf("failed to read Define-XML metadata: %w", err)
	}

	if unit, ok := rules.SizeUnit(rule); ok {
		size, err := ConvertFileSize(unitSize(u), unit)
		if err != nil {
			return preparedRule{}, err
		}
		out.dataset = out.dataset.WithScalar(rules.DatasetSizeTarget, size)
	}
	return out, nil
}

// unitSize returns the bytes on disk behind a unit: the whole split group for
// a content check, the unit's own file otherwise.
func unitSize(u Unit) int64 {
	var total int64
	if IsContentCheck(u.Rule) && types.IsSplitDomain(u.Descriptors, u.Domain) {
		for _, d := range types.SplitGroup(u.Descriptors, u.Domain) {
			total += d.Size
		}
		return total
	}
	for _, d := range u.Descriptors {
		if d.FullPath == u.DatasetPath {
			total += d.Size
		}
	}
	return total
}

// ConvertFileSize expresses size bytes in unit (B, KB, MB or GB, decimal).
func ConvertFileSize(size int64, unit string) (float64, error) {
	var div float64
	switch strings.ToUpper(unit) {
	case "", "B", "BYTES":
		div = 1
	case "KB":
		div = 1e3
	case "MB":
		div = 1e6
	case "GB":
		div = 1e9
	default:
		return 0, fmt.Errorf("unsupported dataset size unit %q", unit)
	}
	return float64(size) / div, nil
}
