// Package engine runs rules against datasets: it assembles the logical
// dataset, gates the rule, enriches the dataset with the rule's operations
// and shapes the rule for the external evaluator.
package engine

import (
	"context"

	"github.com/solatis/cdiscengine/internal/dataset"
	"github.com/solatis/cdiscengine/internal/types"
)

// BuildFunc produces the dataset for one physical file.
type BuildFunc func(ctx context.Context, path string) (*dataset.Dataset, error)

// DataService loads datasets and detects their class.
type DataService interface {
	GetDataset(ctx context.Context, name string) (*dataset.Dataset, error)
	// GetDatasetClass returns "" when no class can be detected.
	GetDatasetClass(ctx context.Context, ds *dataset.Dataset, path string, descriptors []types.DatasetDescriptor) (string, error)
	// ConcatSplitDatasets builds every named file with build and stacks the
	// results in name order.
	ConcatSplitDatasets(ctx context.Context, build BuildFunc, names []string) (*dataset.Dataset, error)
	// IsDummy reports whether the service serves placeholder data. Results
	// computed over placeholder data are never cached.
	IsDummy() bool
}

// DefineXMLReader exposes Define-XML metadata records for one study.
type DefineXMLReader interface {
	ExtractDomainMetadata(ctx context.Context, domain string) ([]map[string]any, error)
	ExtractVariablesMetadata(ctx context.Context, domain string) ([]map[string]any, error)
	ExtractValueLevelMetadata(ctx context.Context, domain string) ([]map[string]any, error)
}

// DefineXMLReaderFactory returns the reader for a dataset path and Define-XML
// path.
type DefineXMLReaderFactory func(ctx context.Context, datasetPath, defineXMLPath string) (DefineXMLReader, error)
