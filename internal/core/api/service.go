// Package api provides the gRPC rule service.
package api

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/solatis/cdiscengine/internal/core/config"
	"github.com/solatis/cdiscengine/internal/engine"
	"github.com/solatis/cdiscengine/internal/rules"
	"github.com/solatis/cdiscengine/internal/types"
)

// DatasetSource lists the study's dataset files.
type DatasetSource interface {
	Descriptors(ctx context.Context) ([]types.DatasetDescriptor, error)
}

// RuleService implements RuleServiceServer.
// Thin orchestration layer delegating to the rule catalog and the pipeline.
type RuleService struct {
	catalog  *rules.Catalog
	datasets DatasetSource
	pipeline *engine.Pipeline
	cfg      *config.EngineConfig
	logger   *zap.Logger
}

// NewRuleService creates service instance with dependencies.
func NewRuleService(catalog *rules.Catalog, datasets DatasetSource, pipeline *engine.Pipeline, cfg *config.EngineConfig, logger *zap.Logger) (*RuleService, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog cannot be nil")
	}
	if datasets == nil {
		return nil, fmt.Errorf("datasets cannot be nil")
	}
	if pipeline == nil {
		return nil, fmt.Errorf("pipeline cannot be nil")
	}
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleService{catalog: catalog, datasets: datasets, pipeline: pipeline, cfg: cfg, logger: logger}, nil
}

// ListRules returns the catalog's rules, optionally filtered by standard.
func (s *RuleService) ListRules(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	standard := stringField(req, "standard")
	version := stringField(req, "version")
	return toStruct(map[string]any{
		"rules":    s.catalog.List(standard, version),
		"rejected": s.catalog.Rejected(),
	})
}

// GetRule returns one rule by core id.
func (s *RuleService) GetRule(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	coreID := stringField(req, "core_id")
	if coreID == "" {
		return nil, status.Error(codes.InvalidArgument, "core_id is required")
	}
	rule, ok := s.catalog.Get(coreID)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "rule %s not found", coreID)
	}
	return toStruct(map[string]any{"rule": rule})
}

// ListDatasetMetadata returns the descriptors of every dataset file.
func (s *RuleService) ListDatasetMetadata(ctx context.Context, _ *structpb.Struct) (*structpb.Struct, error) {
	descs, err := s.datasets.Descriptors(ctx)
	if err != nil {
		return nil, statusFromError(err)
	}
	return toStruct(map[string]any{"datasets": descs})
}

// Validate runs the selected rules (all rules when core_ids is empty) against
// every dataset and returns one outcome per (rule, domain).
func (s *RuleService) Validate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	var selected []types.Rule
	ids := stringListField(req, "core_ids")
	if len(ids) == 0 {
		selected = s.catalog.List("", "")
	}
	for _, id := range ids {
		rule, ok := s.catalog.Get(id)
		if !ok {
			return nil, status.Errorf(codes.NotFound, "rule %s not found", id)
		}
		selected = append(selected, rule)
	}

	descs, err := s.datasets.Descriptors(ctx)
	if err != nil {
		return nil, statusFromError(err)
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	defer cancel()

	outcomes, err := s.pipeline.RunAll(ctx, engine.Plan(selected, descs))
	if err != nil {
		return nil, statusFromError(err)
	}

	if !boolField(req, "include_dataset") {
		for i := range outcomes {
			outcomes[i].Dataset = nil
		}
	}
	s.logger.Info("validate", zap.Int("rules", len(selected)), zap.Int("datasets", len(descs)), zap.Int("outcomes", len(outcomes)))
	return toStruct(map[string]any{"outcomes": outcomes})
}

// toStruct converts v to a Struct through its JSON encoding.
func toStruct(v map[string]any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	var generic map[string]any
	if err := json.Unmarshal(data, &generic); err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	out, err := structpb.NewStruct(generic)
	if err != nil {
		return nil, status.Error(codes.Internal, fmt.Sprintf("failed to encode response: %v", err))
	}
	return out, nil
}

func stringField(req *structpb.Struct, name string) string {
	if req == nil {
		return ""
	}
	return req.GetFields()[name].GetStringValue()
}

func boolField(req *structpb.Struct, name string) bool {
	if req == nil {
		return false
	}
	return req.GetFields()[name].GetBoolValue()
}

func stringListField(req *structpb.Struct, name string) []string {
	if req == nil {
		return nil
	}
	var out []string
	for _, v := range req.GetFields()[name].GetListValue().GetValues() {
		if s := v.GetStringValue(); s != "" {
			out = append(out, s)
		}
	}
	return out
}
