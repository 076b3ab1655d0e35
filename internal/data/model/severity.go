package model

import "strings"

// Severity is the normalized five-level vulnerability impact scale.
// Every scanner's native scale maps onto this one before storage.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
	SeverityUnknown  Severity = "unknown"
)

// severityRank orders severities for conservative merging; higher is worse.
var severityRank = map[Severity]int{
	SeverityCritical: 4,
	SeverityHigh:     3,
	SeverityMedium:   2,
	SeverityLow:      1,
	SeverityUnknown:  0,
}

// ParseSeverity maps a scanner-reported severity string onto the
// normalized scale. Unrecognized or empty values map to unknown;
// "negligible" (grype, trivy) maps to low.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium", "moderate":
		return SeverityMedium
	case "low", "negligible":
		return SeverityLow
	default:
		return SeverityUnknown
	}
}

// Rank returns the ordinal position of s on the normalized scale.
func (s Severity) Rank() int {
	return severityRank[s]
}

// Max returns the worse of the two severities.
func (s Severity) Max(other Severity) Severity {
	if other.Rank() > s.Rank() {
		return other
	}
	return s
}
