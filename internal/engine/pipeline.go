package engine

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/solatis/cdiscengine/internal/dataset"
	"github.com/solatis/cdiscengine/internal/rules"
	"github.com/solatis/cdiscengine/internal/types"
)

/*
 * Pipeline.
 *
 * One invocation per (rule, dataset) unit:
 *   Resolver gate -> Builder -> Executor -> row_number -> rule preparation
 *   -> target extraction
 *
 * RunAll fans units out over a bounded worker pool. Units share nothing but
 * the operation cache. A unit that fails records its error in its Outcome
 * and does not stop the others; only cancellation of ctx ends the run early.
 */

// Unit is one (rule, dataset) pair.
type Unit struct {
	Rule        types.Rule
	Domain      string
	DatasetPath string
	Descriptors []types.DatasetDescriptor
}

// Outcome is the result of one unit.
type Outcome struct {
	CoreID      string           `json:"core_id"`
	Domain      string           `json:"domain"`
	DatasetPath string           `json:"dataset_path"`
	Skipped     bool             `json:"skipped"`
	Rule        *types.Rule      `json:"rule,omitempty"`
	Targets     []string         `json:"targets,omitempty"`
	Variables   []any            `json:"variables,omitempty"`
	Message     string           `json:"message,omitempty"`
	Define      []map[string]any `json:"define,omitempty"`
	Dataset     *dataset.Dataset `json:"dataset,omitempty"`
	Error       string           `json:"error,omitempty"`

	Err error `json:"-"`
}

// PipelineConfig holds Pipeline dependencies and run parameters.
type PipelineConfig struct {
	Resolver        *rules.Resolver
	Executor        *Executor
	Data            DataService
	DefineReaders   DefineXMLReaderFactory
	Standard        string
	StandardVersion string
	Options         Options
	PoolSize        int
	// OperatorOverrides maps a resolved target to the operators injected
	// into leaves on it.
	OperatorOverrides map[string][]string
	// UnitTimeout bounds one unit; zero means no bound.
	UnitTimeout time.Duration
	Logger      *zap.Logger
}

// Pipeline runs units.
type Pipeline struct {
	cfg    PipelineConfig
	logger *zap.Logger
}

// NewPipeline creates a pipeline.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PoolSize <= 0 {
		cfg.PoolSize = 1
	}
	return &Pipeline{cfg: cfg, logger: logger}
}

// Plan pairs every rule with every domain in descriptors. For content checks
// a split domain yields one unit, anchored on its first file, and the builder
// stacks the rest. Structural rules get one unit per physical file.
func Plan(ruleSet []types.Rule, descriptors []types.DatasetDescriptor) []Unit {
	seen := make(map[string]bool)
	var anchors []types.DatasetDescriptor
	for _, d := range descriptors {
		if seen[d.Domain] {
			continue
		}
		seen[d.Domain] = true
		anchors = append(anchors, d)
	}

	var units []Unit
	for _, r := range ruleSet {
		files := anchors
		if !IsContentCheck(r) {
			files = descriptors
		}
		for _, d := range files {
			units = append(units, Unit{
				Rule:        r,
				Domain:      d.Domain,
				DatasetPath: d.FullPath,
				Descriptors: descriptors,
			})
		}
	}
	return units
}

// Run executes one unit. A rule that does not apply yields a skipped outcome
// and a nil error.
func (p *Pipeline) Run(ctx context.Context, u Unit) (Outcome, error) {
	out := Outcome{CoreID: u.Rule.CoreID, Domain: u.Domain, DatasetPath: u.DatasetPath}

	if p.cfg.UnitTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.UnitTimeout)
		defer cancel()
	}

	isSplit := types.IsSplitDomain(u.Descriptors, u.Domain)
	suitable, err := p.cfg.Resolver.IsSuitableForValidation(ctx, &u.Rule, u.Domain, u.DatasetPath, isSplit, u.Descriptors)
	if err != nil {
		return out, fmt.Errorf("failed to check applicability: %w", err)
	}
	if !suitable {
		out.Skipped = true
		return out, nil
	}

	builder := NewBuilder(BuilderConfig{
		Rule:          u.Rule,
		Data:          p.cfg.Data,
		DatasetPath:   u.DatasetPath,
		Descriptors:   u.Descriptors,
		Domain:        u.Domain,
		DefineReaders: p.cfg.DefineReaders,
	})
	ds, err := builder.GetDataset(ctx)
	if err != nil {
		return out, err
	}

	ds, err = p.cfg.Executor.PerformRuleOperations(ctx, u.Rule, ds, u.Domain, u.Descriptors, u.DatasetPath,
		p.cfg.Standard, p.cfg.StandardVersion, p.cfg.Options)
	if err != nil {
		return out, err
	}
	ds = dataset.AddRowNumber(ds)

	prepared, err := p.prepareRule(ctx, builder, u, ds)
	if err != nil {
		return out, err
	}
	rule, ds := prepared.rule, prepared.dataset
	out.Rule = &rule
	out.Targets = rules.ExtractTargetNames(rule, u.Domain, ds.Columns())
	out.Variables = rules.ExtractReferencedVariables(rule)
	if msg, err := rules.Message(rule); err == nil {
		out.Message = msg
	}
	out.Define = prepared.define
	out.Dataset = ds
	return out, nil
}

// RunAll executes units over the worker pool. Outcomes are returned in unit
// order; per-unit failures are recorded in Outcome.Err.
func (p *Pipeline) RunAll(ctx context.Context, units []Unit) ([]Outcome, error) {
	outcomes := make([]Outcome, len(units))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.PoolSize)

	for i, u := range units {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := p.Run(gctx, u)
			if err != nil {
				out.Err = err
				out.Error = err.Error()
				p.logger.Warn("rule_failed",
					zap.String("rule", u.Rule.CoreID),
					zap.String("dataset", u.DatasetPath),
					zap.Error(err))
			} else {
				p.logger.Debug("rule_processed",
					zap.String("rule", u.Rule.CoreID),
					zap.String("dataset", u.DatasetPath),
					zap.Bool("skipped", out.Skipped))
			}
			outcomes[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}
