package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/solatis/cdiscengine/internal/cache"
	"github.com/solatis/cdiscengine/internal/dataset"
	"github.com/solatis/cdiscengine/internal/operations"
	"github.com/solatis/cdiscengine/internal/rules"
	"github.com/solatis/cdiscengine/internal/types"
)

/*
 * Operation execution.
 *
 * For each operation a rule declares, in declaration order:
 *   1. Build the signature {directory, operator, domain, grouping, target}
 *   2. Cache hit: use the stored result, skip fetch and computation
 *   3. Resolve the operand dataset: the working dataset when it already
 *      holds the operation's domain, otherwise fetch the domain's file
 *   4. Dispatch through the registry
 *   5. Store the result unless the data service serves placeholder data
 *   6. Merge the result into the working dataset under the operation id
 *
 * Relationship domains (RELREC, RELSUB, CO, SUPPxx) are always fetched: their
 * rows describe other domains, so a DOMAIN match says nothing about content.
 *
 * Any failure aborts the whole rule; the caller never sees a dataset with
 * only some operation columns.
 */

// Options carries dictionary paths handed through to operations.
type Options struct {
	MedDRAPath  string
	WHODrugPath string
}

// Executor performs rule operations over a working dataset.
type Executor struct {
	registry *operations.Registry
	cache    cache.Cache[operations.Result]
	data     DataService
	logger   *zap.Logger
}

// NewExecutor creates an executor. A nil logger disables logging.
func NewExecutor(registry *operations.Registry, c cache.Cache[operations.Result], data DataService, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{registry: registry, cache: c, data: data, logger: logger}
}

// OperationSignature builds the cache key of an operation invocation.
// Grouping order does not affect the key.
func OperationSignature(directory, operator, domain string, grouping []string, target string) string {
	sorted := append([]string(nil), grouping...)
	sort.Strings(sorted)
	return fmt.Sprintf("%s/operations/%s/%s/%s/%s", directory, operator, domain, strings.Join(sorted, ";"), target)
}

// PerformRuleOperations returns ds enriched with one column per operation
// of rule. ds itself is not modified.
func (e *Executor) PerformRuleOperations(
	ctx context.Context,
	rule types.Rule,
	ds *dataset.Dataset,
	domain string,
	descriptors []types.DatasetDescriptor,
	datasetPath string,
	standard, standardVersion string,
	opts Options,
) (*dataset.Dataset, error) {
	working := ds
	directory := filepath.Dir(datasetPath)

	for _, op := range rule.Operations {
		kind, impl, err := e.registry.Resolve(op.Operator)
		if err != nil {
			return nil, fmt.Errorf("rule %s operation %s: %w", rule.CoreID, op.ID, err)
		}

		opDomain := op.Domain
		if opDomain == "" {
			opDomain = domain
		}
		key := OperationSignature(directory, op.Operator, opDomain, op.Group, op.Name)

		result, hit, err := e.cache.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to read operation cache: %w", err)
		}

		if hit {
			e.logger.Debug("operation_cache_hit", zap.String("rule", rule.CoreID), zap.String("operation", op.ID), zap.String("key", key))
		} else {
			operand, err := e.operandDataset(ctx, working, opDomain, descriptors, datasetPath)
			if err != nil {
				return nil, fmt.Errorf("rule %s operation %s: %w", rule.CoreID, op.ID, err)
			}
			result, err = impl.Execute(ctx, operations.Params{
				OperationID:     op.ID,
				Kind:            kind,
				Dataset:         operand,
				Target:          op.Name,
				Domain:          opDomain,
				DatasetPath:     datasetPath,
				DirectoryPath:   directory,
				Descriptors:     descriptors,
				Grouping:        op.Group,
				Standard:        standard,
				StandardVersion: standardVersion,
				MedDRAPath:      opts.MedDRAPath,
				WHODrugPath:     opts.WHODrugPath,
			})
			if err != nil {
				return nil, fmt.Errorf("rule %s operation %s: %w", rule.CoreID, op.ID, err)
			}
			if !e.data.IsDummy() {
				if err := e.cache.Add(ctx, key, result); err != nil {
					return nil, fmt.Errorf("failed to store operation result: %w", err)
				}
			}
		}

		working, err = mergeResult(working, op, result)
		if err != nil {
			return nil, fmt.Errorf("rule %s operation %s: %w", rule.CoreID, op.ID, err)
		}
		e.logger.Debug("processed_operation",
			zap.String("rule", rule.CoreID),
			zap.String("operation", op.ID),
			zap.String("operator", op.Operator),
			zap.String("domain", opDomain))
	}
	return working, nil
}

// operandDataset returns the dataset an operation computes over.
func (e *Executor) operandDataset(ctx context.Context, working *dataset.Dataset, domain string, descriptors []types.DatasetDescriptor, datasetPath string) (*dataset.Dataset, error) {
	if isCurrentDomain(working, domain) {
		return working, nil
	}
	desc, ok := types.FindDescriptor(descriptors, domain)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrDomainNotFound, domain)
	}
	path := filepath.Join(filepath.Dir(datasetPath), desc.Filename)
	e.logger.Debug("fetch_domain", zap.String("domain", domain), zap.String("path", path))
	fetched, err := e.data.GetDataset(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch domain %s: %w", domain, err)
	}
	return fetched, nil
}

// IsRelationshipDomain reports whether domain holds cross-domain links.
func IsRelationshipDomain(domain string) bool {
	switch domain {
	case "RELREC", "RELSUB", "CO":
		return true
	}
	return strings.HasPrefix(domain, "SUPP")
}

func isCurrentDomain(ds *dataset.Dataset, domain string) bool {
	if IsRelationshipDomain(domain) || ds.Len() == 0 {
		return false
	}
	v, ok := ds.Value(dataset.DomainColumn, 0).(string)
	return ok && v == domain
}

// mergeResult attaches result to ds as column op.ID.
func mergeResult(ds *dataset.Dataset, op types.Operation, result operations.Result) (*dataset.Dataset, error) {
	switch result.Kind {
	case operations.ResultScalar:
		return ds.WithScalar(op.ID, result.Scalar), nil
	case operations.ResultColumn:
		if len(result.Column) != ds.Len() {
			return nil, fmt.Errorf("column result has %d rows, dataset has %d", len(result.Column), ds.Len())
		}
		return ds.WithColumn(op.ID, result.Column), nil
	case operations.ResultGrouped:
		valueColumn := op.Name
		if valueColumn == "" {
			valueColumn = op.ID
		}
		grouped, err := result.Grouped.RenameColumn(valueColumn, op.ID)
		if err != nil {
			return nil, fmt.Errorf("grouped result: %w", err)
		}
		grouped, err = grouped.Select(append(append([]string{}, op.Group...), op.ID)...)
		if err != nil {
			return nil, fmt.Errorf("grouped result: %w", err)
		}
		return dataset.LeftJoin(ds, grouped, op.Group)
	}
	return nil, fmt.Errorf("unknown result kind %q", result.Kind)
}

var _ rules.ClassSource = DataService(nil)
