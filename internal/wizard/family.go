// Package wizard defines the user-facing alert rule model: condition
// families, the flat parameter mapping the wizard sends, and the typed
// condition those parameters are coerced into.
package wizard

// Family is the condition family of a wizard alert rule.
type Family string

const (
	// FamilyCount counts matching messages.
	FamilyCount Family = "COUNT"
	// FamilyStatistical compares an aggregate of a field against a threshold.
	FamilyStatistical Family = "STATISTICAL"
	// FamilyGroupDistinct counts distinct values per group.
	FamilyGroupDistinct Family = "GROUP_DISTINCT"
	// FamilyThen fires when the second stream matches after the first.
	FamilyThen Family = "THEN"
	// FamilyAnd fires when both streams match in any order.
	FamilyAnd Family = "AND"
)

var knownFamilies = map[Family]struct{}{
	FamilyCount:         {},
	FamilyStatistical:   {},
	FamilyGroupDistinct: {},
	FamilyThen:          {},
	FamilyAnd:           {},
}

// Known reports whether f is one of the defined families.
func (f Family) Known() bool {
	_, ok := knownFamilies[f]
	return ok
}

// IsCorrelation reports whether f correlates two streams.
func (f Family) IsCorrelation() bool {
	return f == FamilyThen || f == FamilyAnd
}
