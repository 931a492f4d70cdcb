package engine

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/solatis/cdiscengine/internal/dataset"
	"github.com/solatis/cdiscengine/internal/types"
)

// DefineXMLFileName is the Define-XML document expected next to the datasets.
const DefineXMLFileName = "define.xml"

// Structural rule types check metadata rather than dataset content; they run
// against each physical file of a split domain on its own.
var structuralRuleTypes = map[string]bool{}

func init() {
	for _, t := range []string{
		"Dataset Metadata Check",
		"Dataset Metadata Check against Define XML",
		"Variable Metadata Check",
		"Variable Metadata Check against Define XML",
		"Value Level Metadata Check against Define XML",
		"Define Item Group Metadata Check",
		"Define Item Metadata Check",
		"Domain Presence Check",
		"Variable Metadata Check against Library Metadata",
	} {
		structuralRuleTypes[t] = true
	}
}

// IsContentCheck reports whether rule inspects dataset content.
func IsContentCheck(rule types.Rule) bool {
	return !structuralRuleTypes[rule.RuleType]
}

// Builder assembles the logical dataset a rule runs against.
type Builder struct {
	rule          types.Rule
	data          DataService
	datasetPath   string
	descriptors   []types.DatasetDescriptor
	domain        string
	defineReaders DefineXMLReaderFactory
	build         BuildFunc
}

// BuilderConfig holds Builder inputs.
type BuilderConfig struct {
	Rule          types.Rule
	Data          DataService
	DatasetPath   string
	Descriptors   []types.DatasetDescriptor
	Domain        string
	DefineReaders DefineXMLReaderFactory
	// Build produces one physical dataset; defaults to Data.GetDataset.
	Build BuildFunc
}

// NewBuilder creates a builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	b := &Builder{
		rule:          cfg.Rule,
		data:          cfg.Data,
		datasetPath:   cfg.DatasetPath,
		descriptors:   cfg.Descriptors,
		domain:        cfg.Domain,
		defineReaders: cfg.DefineReaders,
		build:         cfg.Build,
	}
	if b.build == nil {
		b.build = cfg.Data.GetDataset
	}
	return b
}

// GetDataset returns the dataset the rule runs against. A content check on a
// split domain gets every sibling file stacked in descriptor order.
func (b *Builder) GetDataset(ctx context.Context) (*dataset.Dataset, error) {
	if types.IsSplitDomain(b.descriptors, b.domain) && IsContentCheck(b.rule) {
		ds, err := b.data.ConcatSplitDatasets(ctx, b.build, b.CorrespondingDatasetNames())
		if err != nil {
			return nil, fmt.Errorf("failed to concatenate split domain %s: %w", b.domain, err)
		}
		return ds, nil
	}
	ds, err := b.build(ctx, b.datasetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to build dataset %s: %w", b.datasetPath, err)
	}
	return ds, nil
}

// CorrespondingDatasetNames returns the paths of every file of the builder's
// domain, in descriptor order.
func (b *Builder) CorrespondingDatasetNames() []string {
	dir := filepath.Dir(b.datasetPath)
	var names []string
	for _, d := range types.SplitGroup(b.descriptors, b.domain) {
		names = append(names, filepath.Join(dir, d.Filename))
	}
	return names
}

func (b *Builder) defineReader(ctx context.Context) (DefineXMLReader, error) {
	if b.defineReaders == nil {
		return nil, types.ErrNoDefineXML
	}
	path := filepath.Join(filepath.Dir(b.datasetPath), DefineXMLFileName)
	reader, err := b.defineReaders(ctx, b.datasetPath, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Define-XML %s: %w", path, err)
	}
	return reader, nil
}

// DefineItemGroupMetadata returns Define-XML dataset-level metadata for domain.
func (b *Builder) DefineItemGroupMetadata(ctx context.Context, domain string) ([]map[string]any, error) {
	reader, err := b.defineReader(ctx)
	if err != nil {
		return nil, err
	}
	return reader.ExtractDomainMetadata(ctx, domain)
}

// DefineVariablesMetadata returns Define-XML variable metadata for the
// builder's domain.
func (b *Builder) DefineVariablesMetadata(ctx context.Context) ([]map[string]any, error) {
	reader, err := b.defineReader(ctx)
	if err != nil {
		return nil, err
	}
	return reader.ExtractVariablesMetadata(ctx, b.domain)
}

// DefineValueLevelMetadata returns Define-XML value-level metadata for the
// builder's domain.
func (b *Builder) DefineValueLevelMetadata(ctx context.Context) ([]map[string]any, error) {
	reader, err := b.defineReader(ctx)
	if err != nil {
		return nil, err
	}
	return reader.ExtractValueLevelMetadata(ctx, b.domain)
}
