// internal/rules/domains.go
package rules

import (
	"regexp"
	"strings"
)

/*
 * Domain and class naming conventions.
 *
 * Family patterns let a rule name a whole group of domains with one generic
 * entry:
 *   - Supplementary qualifiers: SUPPxx / SQxx matched by "SUPP--" / "SQ--"
 *   - Associated persons: APxx, APFAxx and APRELSUB matched by "AP--" or "APFA--"
 *
 * Any associated-persons domain matches either generic AP entry; APRELSUB is
 * part of the family even though it does not follow the APxx shape.
 */

// AllEntry in an Include/Exclude list matches every domain or class.
const AllEntry = "All"

// SupplementaryPrefixes are the name prefixes of supplementary-qualifier domains.
var SupplementaryPrefixes = []string{"SUPP", "SQ"}

// Associated-persons domain codes.
const (
	APDomain       = "AP"
	APFADomain     = "APFA"
	APRelSubDomain = "APRELSUB"
)

var (
	apDomainPattern   = regexp.MustCompile(`^AP[A-Z0-9]{2}$`)
	apfaDomainPattern = regexp.MustCompile(`^APFA[A-Z0-9]{2}$`)
)

// Dataset classes the data service can detect from a dataset's variables.
const (
	ClassFindings      = "FINDINGS"
	ClassFindingsAbout = "FINDINGS ABOUT"
	ClassEvents        = "EVENTS"
	ClassInterventions = "INTERVENTIONS"
	ClassRelationship  = "RELATIONSHIP"
)

// DetectableClasses is the set of classes GetDatasetClass can return.
var DetectableClasses = map[string]bool{
	ClassFindings:      true,
	ClassFindingsAbout: true,
	ClassEvents:        true,
	ClassInterventions: true,
	ClassRelationship:  true,
}

// IsSuppDomain reports whether domain is a supplementary-qualifier domain.
func IsSuppDomain(domain string) bool {
	for _, p := range SupplementaryPrefixes {
		if strings.HasPrefix(domain, p) {
			return true
		}
	}
	return false
}

// IsAPDomain reports whether domain belongs to the associated-persons family.
func IsAPDomain(domain string) bool {
	return domain == APRelSubDomain ||
		apDomainPattern.MatchString(domain) ||
		apfaDomainPattern.MatchString(domain)
}

// matchesFamily reports whether domain is covered by a generic family entry
// of list.
func matchesFamily(domain string, list []string) bool {
	if IsSuppDomain(domain) {
		for _, entry := range list {
			for _, p := range SupplementaryPrefixes {
				if entry == p+"--" {
					return true
				}
			}
		}
	}
	if IsAPDomain(domain) {
		for _, entry := range list {
			if entry == APDomain+"--" || entry == APFADomain+"--" {
				return true
			}
		}
	}
	return false
}

// listMatches reports whether domain appears verbatim, via "All", or via a
// family pattern.
func listMatches(domain string, list []string) bool {
	for _, entry := range list {
		if entry == domain || entry == AllEntry {
			return true
		}
	}
	return matchesFamily(domain, list)
}
