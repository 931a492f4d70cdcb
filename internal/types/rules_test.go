package types

import (
	"encoding/json"
	"testing"
	"time"
)

const ruleJSON = `{
  "core_id": "CORE-000123",
  "standards": [{"Name": "SDTMIG", "Version": "3.4"}],
  "domains": {"Include": ["AE"], "include_split_datasets": false},
  "classes": {"Exclude": ["FINDINGS"]},
  "conditions": {"all": [{"name": "get_dataset", "operator": "empty", "value": {"target": "--TERM"}}]},
  "operations": [{"id": "$n", "operator": "record_count", "group": ["USUBJID"]}],
  "output_variables": ["--TERM"],
  "actions": [{"name": "generate_dataset_error_objects", "params": {"message": "term is empty"}}]
}`

func TestRule_JSON(t *testing.T) {
	var r Rule
	if err := json.Unmarshal([]byte(ruleJSON), &r); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, want nil", err)
	}
	if !r.Valid() {
		t.Fatalf("Valid() = false, want true")
	}
	if r.Domains.IncludeSplitDatasets == nil || *r.Domains.IncludeSplitDatasets {
		t.Errorf("IncludeSplitDatasets = %v, want explicit false", r.Domains.IncludeSplitDatasets)
	}
	if len(Leaves(r.Conditions)) != 1 {
		t.Fatalf("Leaves() = %d, want 1", len(Leaves(r.Conditions)))
	}

	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v, want nil", err)
	}
	var again Rule
	if err := json.Unmarshal(data, &again); err != nil {
		t.Fatalf("json.Unmarshal() round trip error = %v, want nil", err)
	}
	if got := Leaves(again.Conditions)[0].Value.Target; got != "--TERM" {
		t.Errorf("round trip target = %q, want --TERM", got)
	}
	if again.Operations[0].Group[0] != "USUBJID" {
		t.Errorf("round trip group = %v, want [USUBJID]", again.Operations[0].Group)
	}
}

func TestRule_Valid(t *testing.T) {
	tests := []struct {
		name string
		rule *Rule
		want bool
	}{
		{"nil", nil, false},
		{"no core id", &Rule{Standards: []Standard{}}, false},
		{"no standards", &Rule{CoreID: "CORE-1"}, false},
		{"empty standards", &Rule{CoreID: "CORE-1", Standards: []Standard{}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.Valid(); got != tt.want {
				t.Errorf("Valid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRule_Clone(t *testing.T) {
	var r Rule
	if err := json.Unmarshal([]byte(ruleJSON), &r); err != nil {
		t.Fatalf("json.Unmarshal() error = %v, want nil", err)
	}
	cp := r.Clone()
	cp.Domains.Include[0] = "LB"
	*cp.Domains.IncludeSplitDatasets = true
	cp.Operations[0].Group[0] = "STUDYID"
	Leaves(cp.Conditions)[0].Value.Target = "AETERM"

	if r.Domains.Include[0] != "AE" || *r.Domains.IncludeSplitDatasets {
		t.Errorf("original domains mutated: %+v", r.Domains)
	}
	if r.Operations[0].Group[0] != "USUBJID" {
		t.Errorf("original group mutated: %v", r.Operations[0].Group)
	}
	if got := Leaves(r.Conditions)[0].Value.Target; got != "--TERM" {
		t.Errorf("original target = %q, want --TERM", got)
	}
}

func TestSplitDomain(t *testing.T) {
	descs := []DatasetDescriptor{
		{Domain: "LB", Filename: "lb1.json"},
		{Domain: "AE", Filename: "ae.json"},
		{Domain: "LB", Filename: "lb2.json"},
	}
	if !IsSplitDomain(descs, "LB") {
		t.Errorf("IsSplitDomain(LB) = false, want true")
	}
	if IsSplitDomain(descs, "AE") {
		t.Errorf("IsSplitDomain(AE) = true, want false")
	}
	group := SplitGroup(descs, "LB")
	if len(group) != 2 || group[0].Filename != "lb1.json" || group[1].Filename != "lb2.json" {
		t.Errorf("SplitGroup(LB) = %v, want lb1 then lb2", group)
	}
	if _, ok := FindDescriptor(descs, "DM"); ok {
		t.Errorf("FindDescriptor(DM) ok = true, want false")
	}
	if got := ResolveDomain("--TESTCD--", "LB"); got != "LBTESTCDLB" {
		t.Errorf("ResolveDomain() = %q, want LBTESTCDLB", got)
	}
}

func TestRunID(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := NewRunID()

	parsed, err := ParseRunID(string(id))
	if err != nil {
		t.Fatalf("ParseRunID() error = %v, want nil", err)
	}
	if parsed != id {
		t.Errorf("ParseRunID() = %q, want %q", parsed, id)
	}
	if ts := RunIDTime(id); ts.Before(before) {
		t.Errorf("RunIDTime() = %v, want after %v", ts, before)
	}
	if _, err := ParseRunID("not-a-uuid"); err == nil {
		t.Errorf("ParseRunID(invalid) error = nil, want error")
	}
	if !RunIDTime("bogus").IsZero() {
		t.Errorf("RunIDTime(invalid) not zero")
	}
}
