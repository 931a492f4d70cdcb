package dataservice

import (
	"strings"

	"github.com/solatis/cdiscengine/internal/dataset"
	"github.com/solatis/cdiscengine/internal/engine"
	"github.com/solatis/cdiscengine/internal/rules"
)

// DetectClass infers the SDTM class of ds from its domain and variables.
// It returns "" when the variables match no detectable class.
//
//	--TESTCD and --OBJ   FINDINGS ABOUT
//	--TESTCD             FINDINGS
//	--TRT                INTERVENTIONS
//	--TERM               EVENTS
func DetectClass(ds *dataset.Dataset, domain string) string {
	if engine.IsRelationshipDomain(domain) || rules.IsSuppDomain(domain) {
		return rules.ClassRelationship
	}
	if ds == nil {
		return ""
	}
	has := func(suffix string) bool {
		if domain != "" && ds.HasColumn(domain+suffix) {
			return true
		}
		for _, c := range ds.Columns() {
			if len(c) == len(suffix)+2 && strings.HasSuffix(c, suffix) {
				return true
			}
		}
		return false
	}
	switch {
	case has("TESTCD") && has("OBJ"):
		return rules.ClassFindingsAbout
	case has("TESTCD"):
		return rules.ClassFindings
	case has("TRT"):
		return rules.ClassInterventions
	case has("TERM"):
		return rules.ClassEvents
	}
	return ""
}
