package wizard

// Severities accepted on wizard alert rules.
const (
	SeverityInfo   = "info"
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

var validSeverities = map[string]struct{}{
	SeverityInfo:   {},
	SeverityLow:    {},
	SeverityMedium: {},
	SeverityHigh:   {},
}

// IsValidSeverity reports whether s is exactly one of info, low, medium or
// high. The comparison is case sensitive.
func IsValidSeverity(s string) bool {
	_, ok := validSeverities[s]
	return ok
}
