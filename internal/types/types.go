// Package types provides domain models shared across the rules engine components.
//
// Rules, condition trees and dataset descriptors live here so that the
// applicability resolver, the condition rewriter and the operation executor
// agree on one representation. The package has no knowledge of tabular data;
// in-memory datasets live in internal/dataset.
package types

import "strings"

// RunID identifies one validation run. Cache entries persisted by the SQL
// cache backend are scoped to a RunID so they never leak into a later run.
type RunID string

// DomainPlaceholder is substituted with the real domain code when a rule is
// applied to a dataset (e.g. "--TEST" becomes "AETEST").
const DomainPlaceholder = "--"

// DatasetDescriptor describes one physical dataset file.
// Several descriptors sharing a Domain form a split group.
type DatasetDescriptor struct {
	Domain           string `json:"domain"`
	Filename         string `json:"filename"`
	FullPath         string `json:"full_path,omitempty"`
	Size             int64  `json:"size,omitempty"`
	Label            string `json:"label,omitempty"`
	ModificationDate string `json:"modification_date,omitempty"`
}

// IsSplitDomain reports whether more than one descriptor maps to domain.
func IsSplitDomain(descriptors []DatasetDescriptor, domain string) bool {
	return len(SplitGroup(descriptors, domain)) > 1
}

// SplitGroup returns every descriptor for domain in descriptor order.
func SplitGroup(descriptors []DatasetDescriptor, domain string) []DatasetDescriptor {
	var group []DatasetDescriptor
	for _, d := range descriptors {
		if d.Domain == domain {
			group = append(group, d)
		}
	}
	return group
}

// FindDescriptor returns the first descriptor for domain.
func FindDescriptor(descriptors []DatasetDescriptor, domain string) (DatasetDescriptor, bool) {
	for _, d := range descriptors {
		if d.Domain == domain {
			return d, true
		}
	}
	return DatasetDescriptor{}, false
}

// ResolveDomain replaces every domain placeholder in name with domain.
func ResolveDomain(name, domain string) string {
	return strings.ReplaceAll(name, DomainPlaceholder, domain)
}
