// internal/rules/applicability_test.go
package rules

import (
	"context"
	"errors"
	"testing"

	"github.com/solatis/cdiscengine/internal/dataset"
	"github.com/solatis/cdiscengine/internal/types"
)

func boolPtr(b bool) *bool { return &b }

func ruleWithDomains(include, exclude []string, includeSplit *bool) *types.Rule {
	return &types.Rule{
		CoreID:    "CORE-000001",
		Standards: []types.Standard{{Name: "SDTMIG", Version: "3.4"}},
		Domains: &types.DomainScope{
			Include:              include,
			Exclude:              exclude,
			IncludeSplitDatasets: includeSplit,
		},
	}
}

func TestRuleAppliesToDomain(t *testing.T) {
	tests := []struct {
		name    string
		rule    *types.Rule
		domain  string
		isSplit bool
		want    bool
	}{
		{"include verbatim", ruleWithDomains([]string{"AE"}, nil, nil), "AE", false, true},
		{"include other domain", ruleWithDomains([]string{"AE"}, nil, nil), "CM", false, false},
		{"include all", ruleWithDomains([]string{"All"}, nil, nil), "LB", false, true},
		{"no scope", &types.Rule{CoreID: "X", Standards: []types.Standard{}}, "DM", false, true},
		{"supp family", ruleWithDomains([]string{"SUPP--"}, nil, nil), "SUPPAE", false, true},
		{"supp needs family entry", ruleWithDomains([]string{"AE"}, nil, nil), "SUPPAE", false, false},
		{"sq family", ruleWithDomains([]string{"SQ--"}, nil, nil), "SQAPDM", false, true},
		{"ap family", ruleWithDomains([]string{"AP--"}, nil, nil), "APDM", false, true},
		{"apfa family via ap entry", ruleWithDomains([]string{"AP--"}, nil, nil), "APFAMH", false, true},
		{"aprelsub via apfa entry", ruleWithDomains([]string{"APFA--"}, nil, nil), "APRELSUB", false, true},
		{"ap entry does not match ae", ruleWithDomains([]string{"AP--"}, nil, nil), "AE", false, false},
		{"exclude verbatim", ruleWithDomains(nil, []string{"AE"}, nil), "AE", false, false},
		{"exclude other", ruleWithDomains(nil, []string{"AE"}, nil), "CM", false, true},
		{"exclude all", ruleWithDomains(nil, []string{"All"}, nil), "CM", false, false},
		{"exclude supp family", ruleWithDomains([]string{"All"}, []string{"SUPP--"}, nil), "SUPPLB", false, false},
		{"split only, not split", ruleWithDomains(nil, nil, boolPtr(true)), "LB", false, false},
		{"split only, split", ruleWithDomains(nil, nil, boolPtr(true)), "LB", true, true},
		{"split forces include", ruleWithDomains([]string{"AE"}, nil, boolPtr(true)), "LB", true, true},
		{"split include respects exclude", ruleWithDomains(nil, []string{"LB"}, boolPtr(true)), "LB", true, false},
		{"split false excludes", ruleWithDomains([]string{"LB"}, nil, boolPtr(false)), "LB", true, false},
		{"split false ignores unsplit", ruleWithDomains([]string{"LB"}, nil, boolPtr(false)), "LB", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RuleAppliesToDomain(tt.rule, tt.domain, tt.isSplit)
			if got != tt.want {
				t.Errorf("RuleAppliesToDomain(%s, split=%v) = %v, want %v", tt.domain, tt.isSplit, got, tt.want)
			}
		})
	}
}

type fakeClassSource struct {
	class     string
	err       error
	classHits int
}

func (f *fakeClassSource) GetDataset(_ context.Context, _ string) (*dataset.Dataset, error) {
	return dataset.New(), nil
}

func (f *fakeClassSource) GetDatasetClass(_ context.Context, _ *dataset.Dataset, _ string, _ []types.DatasetDescriptor) (string, error) {
	f.classHits++
	return f.class, f.err
}

func TestRuleAppliesToClass(t *testing.T) {
	tests := []struct {
		name      string
		classes   *types.ClassScope
		class     string
		want      bool
		wantCalls int
	}{
		{"no classes", nil, "EVENTS", true, 0},
		{"include match", &types.ClassScope{Include: []string{"EVENTS"}}, "EVENTS", true, 1},
		{"include miss", &types.ClassScope{Include: []string{"FINDINGS"}}, "EVENTS", false, 1},
		{"include all", &types.ClassScope{Include: []string{"All"}}, "EVENTS", true, 1},
		{"undetectable include ignored", &types.ClassScope{Include: []string{"SPECIAL PURPOSE"}}, "EVENTS", true, 0},
		{"exclude match", &types.ClassScope{Exclude: []string{"EVENTS"}}, "EVENTS", false, 1},
		{"absent class never excludes", &types.ClassScope{Exclude: []string{"EVENTS"}}, "", true, 1},
		{"include and exclude share lookup", &types.ClassScope{Include: []string{"FINDINGS"}, Exclude: []string{"EVENTS"}}, "FINDINGS", true, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := &fakeClassSource{class: tt.class}
			r := NewResolver(src, nil)
			rule := &types.Rule{CoreID: "X", Standards: []types.Standard{}, Classes: tt.classes}

			got, err := r.RuleAppliesToClass(context.Background(), rule, "/data/ae.json", nil)
			if err != nil {
				t.Fatalf("RuleAppliesToClass() error = %v, want nil", err)
			}
			if got != tt.want {
				t.Errorf("RuleAppliesToClass() = %v, want %v", got, tt.want)
			}
			if src.classHits != tt.wantCalls {
				t.Errorf("class lookups = %d, want %d", src.classHits, tt.wantCalls)
			}
		})
	}
}

func TestIsSuitableForValidation(t *testing.T) {
	ctx := context.Background()
	src := &fakeClassSource{class: "EVENTS"}
	r := NewResolver(src, nil)

	rule := ruleWithDomains([]string{"AE"}, nil, nil)
	rule.Classes = &types.ClassScope{Include: []string{"EVENTS"}}

	ok, err := r.IsSuitableForValidation(ctx, rule, "AE", "/data/ae.json", false, nil)
	if err != nil {
		t.Fatalf("IsSuitableForValidation() error = %v, want nil", err)
	}
	if !ok {
		t.Errorf("IsSuitableForValidation(AE) = false, want true")
	}

	src.classHits = 0
	ok, err = r.IsSuitableForValidation(ctx, rule, "CM", "/data/cm.json", false, nil)
	if err != nil {
		t.Fatalf("IsSuitableForValidation() error = %v, want nil", err)
	}
	if ok {
		t.Errorf("IsSuitableForValidation(CM) = true, want false")
	}
	if src.classHits != 0 {
		t.Errorf("class lookups after domain rejection = %d, want 0", src.classHits)
	}
}

func TestIsSuitableForValidation_InvalidRule(t *testing.T) {
	r := NewResolver(&fakeClassSource{}, nil)

	missingStandards := &types.Rule{CoreID: "CORE-1", Domains: &types.DomainScope{Include: []string{"All"}}}
	missingID := &types.Rule{Standards: []types.Standard{}, Domains: &types.DomainScope{Include: []string{"All"}}}

	for _, rule := range []*types.Rule{missingStandards, missingID} {
		ok, err := r.IsSuitableForValidation(context.Background(), rule, "AE", "", false, nil)
		if err != nil {
			t.Fatalf("IsSuitableForValidation() error = %v, want nil", err)
		}
		if ok {
			t.Errorf("IsSuitableForValidation(%+v) = true, want false", rule)
		}
	}
}

func TestIsSuitableForValidation_ClassLookupError(t *testing.T) {
	lookupErr := errors.New("service unavailable")
	r := NewResolver(&fakeClassSource{err: lookupErr}, nil)

	rule := ruleWithDomains([]string{"AE"}, nil, nil)
	rule.Classes = &types.ClassScope{Include: []string{"EVENTS"}}

	_, err := r.IsSuitableForValidation(context.Background(), rule, "AE", "/data/ae.json", false, nil)
	if !errors.Is(err, lookupErr) {
		t.Errorf("IsSuitableForValidation() error = %v, want %v", err, lookupErr)
	}
}

func TestIsAPDomain(t *testing.T) {
	tests := map[string]bool{
		"APDM":     true,
		"APFAMH":   true,
		"APRELSUB": true,
		"AE":       false,
		"APPLE1":   false,
		"SUPPAE":   false,
	}
	for domain, want := range tests {
		if got := IsAPDomain(domain); got != want {
			t.Errorf("IsAPDomain(%q) = %v, want %v", domain, got, want)
		}
	}
}
