// internal/rules/applicability.go
package rules

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/solatis/cdiscengine/internal/dataset"
	"github.com/solatis/cdiscengine/internal/types"
)

/*
 * Rule applicability.
 *
 * Decides whether a rule runs against a dataset. Three gates, evaluated in
 * order with short-circuit:
 *   1. Structure: rule carries core_id and standards
 *   2. Domain: Include/Exclude lists with family patterns, then the
 *      split-dataset policy
 *   3. Class: Include/Exclude class lists against the detected dataset class
 *
 * Domain gate algorithm:
 *   - non-empty Include: domain must match verbatim, "All" or a family entry
 *   - empty Include with include_split_datasets=true: only split datasets
 *   - Exclude: same matching; any match excludes
 *   - include_split_datasets=true and split and not excluded: force include
 *   - include_split_datasets=false and split: force exclude
 *
 * Class gate: included classes the engine cannot detect are dropped before
 * matching so authors can list them without blocking the rule. The class is
 * looked up at most once per check, and only if a class list needs it.
 */

// ClassSource provides the dataset class lookup used by the class gate.
type ClassSource interface {
	GetDataset(ctx context.Context, name string) (*dataset.Dataset, error)
	GetDatasetClass(ctx context.Context, ds *dataset.Dataset, path string, descriptors []types.DatasetDescriptor) (string, error)
}

// Resolver decides rule applicability.
type Resolver struct {
	data   ClassSource
	logger *zap.Logger
}

// NewResolver creates a resolver. A nil logger disables logging.
func NewResolver(data ClassSource, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{data: data, logger: logger}
}

// ValidRuleStructure reports whether rule carries the required keys.
func ValidRuleStructure(rule *types.Rule) bool {
	return rule.Valid()
}

// RuleAppliesToDomain applies the domain gate.
func RuleAppliesToDomain(rule *types.Rule, domain string, isSplitDomain bool) bool {
	scope := rule.Domains
	if scope == nil {
		scope = &types.DomainScope{}
	}
	includeSplit := scope.IncludeSplitDatasets

	included := true
	if len(scope.Include) > 0 {
		included = listMatches(domain, scope.Include)
	} else if includeSplit != nil && *includeSplit && !isSplitDomain {
		included = false
	}

	excluded := len(scope.Exclude) > 0 && listMatches(domain, scope.Exclude)

	if includeSplit != nil && isSplitDomain {
		if *includeSplit && !excluded {
			included = true
		}
		if !*includeSplit {
			excluded = true
		}
	}

	return included && !excluded
}

// RuleAppliesToClass applies the class gate.
func (r *Resolver) RuleAppliesToClass(ctx context.Context, rule *types.Rule, filePath string, descriptors []types.DatasetDescriptor) (bool, error) {
	if rule.Classes == nil {
		return true, nil
	}
	var included []string
	for _, c := range rule.Classes.Include {
		if DetectableClasses[c] || c == AllEntry {
			included = append(included, c)
		}
	}
	excluded := rule.Classes.Exclude
	if len(included) == 0 && len(excluded) == 0 {
		return true, nil
	}

	className, err := r.datasetClass(ctx, filePath, descriptors)
	if err != nil {
		return false, err
	}

	isIncluded := true
	if len(included) > 0 && !contains(included, className) && !contains(included, AllEntry) {
		isIncluded = false
	}
	isExcluded := className != "" && contains(excluded, className)
	return isIncluded && !isExcluded, nil
}

func (r *Resolver) datasetClass(ctx context.Context, filePath string, descriptors []types.DatasetDescriptor) (string, error) {
	if r.data == nil {
		return "", nil
	}
	ds, err := r.data.GetDataset(ctx, filePath)
	if err != nil {
		return "", fmt.Errorf("failed to load dataset %s for class lookup: %w", filePath, err)
	}
	className, err := r.data.GetDatasetClass(ctx, ds, filePath, descriptors)
	if err != nil {
		return "", fmt.Errorf("failed to detect class of %s: %w", filePath, err)
	}
	return className, nil
}

// IsSuitableForValidation reports whether rule should run against the dataset.
func (r *Resolver) IsSuitableForValidation(ctx context.Context, rule *types.Rule, domain, filePath string, isSplitDomain bool, descriptors []types.DatasetDescriptor) (bool, error) {
	suitable := ValidRuleStructure(rule) && RuleAppliesToDomain(rule, domain, isSplitDomain)
	if suitable {
		var err error
		suitable, err = r.RuleAppliesToClass(ctx, rule, filePath, descriptors)
		if err != nil {
			return false, err
		}
	}
	r.logger.Debug("is_suitable_for_validation",
		zap.String("rule", rule.CoreID),
		zap.String("domain", domain),
		zap.Bool("split", isSplitDomain),
		zap.Bool("result", suitable))
	return suitable, nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
