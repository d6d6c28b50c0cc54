package finding

import (
	"fmt"
	"strings"
)

// Severity represents the ordered risk classification of a finding.
// The ordering is CRITICAL > HIGH > MEDIUM > LOW > GAS.
type Severity string

const (
	// SeverityCritical indicates a direct loss-of-funds or full-compromise issue.
	// Examples: reentrancy draining a vault, unrestricted proxy upgrade
	SeverityCritical Severity = "critical"

	// SeverityHigh indicates a high-impact issue with realistic preconditions.
	// Examples: oracle manipulation, broken share accounting
	SeverityHigh Severity = "high"

	// SeverityMedium indicates a conditional or bounded-impact issue.
	// Examples: missing slippage protection, griefing vectors
	SeverityMedium Severity = "medium"

	// SeverityLow indicates a minor issue without direct fund risk.
	// Examples: event emission gaps, weak input validation
	SeverityLow Severity = "low"

	// SeverityGas indicates a gas-optimization observation with no security impact.
	SeverityGas Severity = "gas"
)

// severityWeights maps severity levels to numeric weights for scoring.
// Higher weights indicate more severe findings.
var severityWeights = map[Severity]float64{
	SeverityCritical: 10.0,
	SeverityHigh:     7.5,
	SeverityMedium:   5.0,
	SeverityLow:      2.5,
	SeverityGas:      1.0,
}

// IsValid returns true if the severity level is valid.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityGas:
		return true
	default:
		return false
	}
}

// Weight returns the numeric weight associated with the severity level.
// Returns 0.0 for invalid severity levels.
func (s Severity) Weight() float64 {
	if weight, ok := severityWeights[s]; ok {
		return weight
	}
	return 0.0
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// ParseSeverity parses a string into a Severity value. Parsing is
// case-insensitive so report formats that carry "HIGH" or "High" map onto
// the canonical lowercase values.
// Returns an error if the string is not a valid severity level.
func ParseSeverity(s string) (Severity, error) {
	severity := Severity(strings.ToLower(strings.TrimSpace(s)))
	if !severity.IsValid() {
		return "", fmt.Errorf("invalid severity: %s", s)
	}
	return severity, nil
}

// CompareSeverity compares two severity levels.
// Returns:
//   - negative if s1 < s2
//   - zero if s1 == s2
//   - positive if s1 > s2
func CompareSeverity(s1, s2 Severity) int {
	w1 := s1.Weight()
	w2 := s2.Weight()
	if w1 < w2 {
		return -1
	}
	if w1 > w2 {
		return 1
	}
	return 0
}

// AllSeverities returns all valid severity levels in order from critical to gas.
func AllSeverities() []Severity {
	return []Severity{
		SeverityCritical,
		SeverityHigh,
		SeverityMedium,
		SeverityLow,
		SeverityGas,
	}
}
