// internal/rules/compile.go
package rules

import (
	"errors"
	"fmt"

	"github.com/solatis/cdiscengine/internal/operations"
	"github.com/solatis/cdiscengine/internal/types"
)

/*
 * Rule validation at load time.
 *
 * Checks a loaded rule before it enters the pipeline:
 *   1. Structure: core_id and standards present
 *   2. Conditions: a non-nil tree with at least one leaf
 *   3. Actions: the first action carries a message template
 *   4. Operations: every id is set and every operator resolves in the registry
 *
 * All problems are reported together via errors.Join. The executor still
 * rejects unknown operators at run time; this step moves the failure to load
 * time for rule files the CLI and service accept.
 */

// Validate reports every structural problem of rule.
func Validate(rule *types.Rule, registry *operations.Registry) error {
	var errs []error

	if !rule.Valid() {
		errs = append(errs, fmt.Errorf("%w: core_id and standards are required", types.ErrInvalidRule))
	}
	if rule.Conditions == nil || len(types.Leaves(rule.Conditions)) == 0 {
		errs = append(errs, types.ErrEmptyConditions)
	}
	if _, err := Message(*rule); err != nil {
		errs = append(errs, err)
	}

	for i, op := range rule.Operations {
		if op.ID == "" {
			errs = append(errs, fmt.Errorf("%w: operation %d has no id", types.ErrInvalidRule, i))
		}
		if registry == nil {
			continue
		}
		if _, _, err := registry.Resolve(op.Operator); err != nil {
			errs = append(errs, fmt.Errorf("operation %s: %w", op.ID, err))
		}
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("rule %q: %w", rule.CoreID, errors.Join(errs...))
}
