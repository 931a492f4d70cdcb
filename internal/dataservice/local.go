// Package dataservice serves study datasets to the engine.
//
// Local reads datasets from JSON files in one directory:
//
//	{"domain": "AE", "label": "Adverse Events",
//	 "columns": ["STUDYID", "DOMAIN", "USUBJID", "AESEQ"],
//	 "rows": [["S1", "AE", "S1-001", 1], ...]}
//
// domain and label are optional. Without domain the first DOMAIN cell is
// used, then the upper-cased file name stem.
package dataservice

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/solatis/cdiscengine/internal/dataset"
	"github.com/solatis/cdiscengine/internal/engine"
	"github.com/solatis/cdiscengine/internal/types"
)

// DatasetExt is the extension of dataset files.
const DatasetExt = ".json"

type fileHeader struct {
	Domain string `json:"domain"`
	Label  string `json:"label"`
}

// Local serves datasets from a directory of JSON files. Loaded datasets are
// kept for the lifetime of the service; callers never mutate them.
type Local struct {
	dir    string
	logger *zap.Logger

	mu     sync.RWMutex
	loaded map[string]*dataset.Dataset
}

// NewLocal creates a service over dir. A nil logger disables logging.
func NewLocal(dir string, logger *zap.Logger) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{dir: dir, logger: logger, loaded: make(map[string]*dataset.Dataset)}
}

// Dir returns the dataset directory.
func (s *Local) Dir() string { return s.dir }

// GetDataset loads the dataset at name, a path to a JSON dataset file.
func (s *Local) GetDataset(_ context.Context, name string) (*dataset.Dataset, error) {
	s.mu.RLock()
	ds, ok := s.loaded[name]
	s.mu.RUnlock()
	if ok {
		return ds, nil
	}

	ds, _, err := readDatasetFile(name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	if existing, ok := s.loaded[name]; ok {
		ds = existing
	} else {
		s.loaded[name] = ds
	}
	s.mu.Unlock()

	s.logger.Debug("dataset_loaded", zap.String("path", name), zap.Int("rows", ds.Len()))
	return ds, nil
}

// GetDatasetClass detects the class of ds from its variables.
func (s *Local) GetDatasetClass(_ context.Context, ds *dataset.Dataset, path string, descriptors []types.DatasetDescriptor) (string, error) {
	return DetectClass(ds, domainFor(ds, path, descriptors)), nil
}

// ConcatSplitDatasets builds every file in names and stacks them in order.
func (s *Local) ConcatSplitDatasets(ctx context.Context, build engine.BuildFunc, names []string) (*dataset.Dataset, error) {
	return concat(ctx, build, names)
}

// IsDummy implements engine.DataService.
func (s *Local) IsDummy() bool { return false }

// Descriptors lists every dataset file in the directory, sorted by file name.
func (s *Local) Descriptors(_ context.Context) ([]types.DatasetDescriptor, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list datasets: %w", err)
	}

	var out []types.DatasetDescriptor
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), DatasetExt) {
			continue
		}
		path := filepath.Join(s.dir, e.Name())
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		}
		ds, header, err := readDatasetFile(path)
		if err != nil {
			return nil, err
		}
		out = append(out, types.DatasetDescriptor{
			Domain:           datasetDomain(ds, header, e.Name()),
			Filename:         e.Name(),
			FullPath:         path,
			Size:             info.Size(),
			Label:            header.Label,
			ModificationDate: info.ModTime().UTC().Format(time.RFC3339),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

func readDatasetFile(path string) (*dataset.Dataset, fileHeader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fileHeader{}, fmt.Errorf("failed to read dataset: %w", err)
	}
	var header fileHeader
	if err := json.Unmarshal(data, &header); err != nil {
		return nil, fileHeader{}, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}
	ds := dataset.New()
	if err := json.Unmarshal(data, ds); err != nil {
		return nil, fileHeader{}, fmt.Errorf("failed to parse dataset %s: %w", path, err)
	}
	return ds, header, nil
}

func datasetDomain(ds *dataset.Dataset, header fileHeader, filename string) string {
	if header.Domain != "" {
		return strings.ToUpper(header.Domain)
	}
	if v, ok := ds.Value(dataset.DomainColumn, 0).(string); ok && v != "" {
		return strings.ToUpper(v)
	}
	return strings.ToUpper(strings.TrimSuffix(filename, filepath.Ext(filename)))
}

// domainFor finds the domain of the dataset at path, preferring descriptors.
func domainFor(ds *dataset.Dataset, path string, descriptors []types.DatasetDescriptor) string {
	base := filepath.Base(path)
	for _, d := range descriptors {
		if d.FullPath == path || d.Filename == base {
			return d.Domain
		}
	}
	return datasetDomain(ds, fileHeader{}, base)
}

func concat(ctx context.Context, build engine.BuildFunc, names []string) (*dataset.Dataset, error) {
	parts := make([]*dataset.Dataset, 0, len(names))
	for _, name := range names {
		ds, err := build(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to build %s: %w", name, err)
		}
		parts = append(parts, ds)
	}
	return dataset.Concat(parts...), nil
}

var _ engine.DataService = (*Local)(nil)
