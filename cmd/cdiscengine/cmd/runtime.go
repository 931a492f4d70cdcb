package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/cdiscengine/internal/cache"
	"github.com/solatis/cdiscengine/internal/core/config"
	"github.com/solatis/cdiscengine/internal/dataservice"
	"github.com/solatis/cdiscengine/internal/engine"
	"github.com/solatis/cdiscengine/internal/operations"
	"github.com/solatis/cdiscengine/internal/rules"
	"github.com/solatis/cdiscengine/internal/types"
)

// runtime wires the engine components for one command invocation.
type runtime struct {
	cfg      *config.Config
	runID    types.RunID
	registry *operations.Registry
	catalog  *rules.Catalog
	data     *dataservice.Local
	pipeline *engine.Pipeline
	close    func() error
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfigWithFlags(configFile, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newRuntime(cfg *config.Config) (*runtime, error) {
	runID := types.NewRunID()

	opCache, closeCache, err := cache.Open[operations.Result](cfg.Engine.CacheURL, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to open operation cache: %w", err)
	}

	registry := operations.DefaultRegistry()
	data := dataservice.NewLocal(cfg.Engine.DataDir, logger)
	pipeline := engine.NewPipeline(engine.PipelineConfig{
		Resolver:        rules.NewResolver(data, logger),
		Executor:        engine.NewExecutor(registry, opCache, data, logger),
		Data:            data,
		Standard:        cfg.Engine.Standard,
		StandardVersion: cfg.Engine.StandardVersion,
		Options: engine.Options{
			MedDRAPath:  cfg.Engine.MedDRAPath,
			WHODrugPath: cfg.Engine.WHODrugPath,
		},
		PoolSize:          cfg.Engine.PoolSize,
		OperatorOverrides: cfg.Engine.OperatorOverrides,
		UnitTimeout:       cfg.Engine.RequestTimeout,
		Logger:            logger,
	})

	logger.Debug("runtime_ready",
		zap.String("run_id", string(runID)),
		zap.String("cache_url", cfg.Engine.CacheURL),
		zap.String("data_dir", cfg.Engine.DataDir),
		zap.Int("pool_size", cfg.Engine.PoolSize))

	return &runtime{
		cfg:      cfg,
		runID:    runID,
		registry: registry,
		catalog:  rules.NewCatalog(registry),
		data:     data,
		pipeline: pipeline,
		close:    closeCache,
	}, nil
}

// loadRules fills the catalog from paths. Rejected rules are logged and
// returned; they do not fail the command.
func (rt *runtime) loadRules(paths []string) ([]rules.Rejection, error) {
	rejected, err := rt.catalog.Reload(paths)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules: %w", err)
	}
	for _, r := range rejected {
		logger.Warn("rule_rejected", zap.String("rule", r.CoreID), zap.Error(r.Err))
	}
	return rejected, nil
}
