package dataservice

import (
	"context"
	"fmt"

	"github.com/solatis/cdiscengine/internal/dataset"
	"github.com/solatis/cdiscengine/internal/engine"
	"github.com/solatis/cdiscengine/internal/types"
)

// Dummy serves placeholder datasets held in memory, keyed by path. Results
// computed over them are never cached by the executor.
type Dummy struct {
	datasets map[string]*dataset.Dataset
}

// NewDummy creates a placeholder service. datasets must not be modified
// afterwards.
func NewDummy(datasets map[string]*dataset.Dataset) *Dummy {
	return &Dummy{datasets: datasets}
}

// GetDataset implements engine.DataService.
func (d *Dummy) GetDataset(_ context.Context, name string) (*dataset.Dataset, error) {
	ds, ok := d.datasets[name]
	if !ok {
		return nil, fmt.Errorf("%w: no placeholder dataset %s", types.ErrDomainNotFound, name)
	}
	return ds, nil
}

// GetDatasetClass implements engine.DataService.
func (d *Dummy) GetDatasetClass(_ context.Context, ds *dataset.Dataset, path string, descriptors []types.DatasetDescriptor) (string, error) {
	return DetectClass(ds, domainFor(ds, path, descriptors)), nil
}

// ConcatSplitDatasets implements engine.DataService.
func (d *Dummy) ConcatSplitDatasets(ctx context.Context, build engine.BuildFunc, names []string) (*dataset.Dataset, error) {
	return concat(ctx, build, names)
}

// IsDummy implements engine.DataService.
func (d *Dummy) IsDummy() bool { return true }

var _ engine.DataService = (*Dummy)(nil)
