// Package recommend filters and ranks stored image records against a
// set of user requirements.
package recommend

import (
	"fmt"
	"strings"
)

// SizePreference orders the image size categories. The ordinal values
// feed the category-distance ranking key.
type SizePreference int

const (
	SizeMinimal SizePreference = iota
	SizeBalanced
	SizeFull
)

func (s SizePreference) String() string {
	switch s {
	case SizeMinimal:
		return "minimal"
	case SizeBalanced:
		return "balanced"
	case SizeFull:
		return "full"
	default:
		return "unknown"
	}
}

// Set implements pflag.Value.
func (s *SizePreference) Set(value string) error {
	switch strings.ToLower(value) {
	case "minimal":
		*s = SizeMinimal
	case "balanced":
		*s = SizeBalanced
	case "full":
		*s = SizeFull
	default:
		return fmt.Errorf("invalid size preference %q, expected minimal, balanced or full", value)
	}
	return nil
}

// Type implements pflag.Value.
func (s *SizePreference) Type() string { return "sizePreference" }

// SecurityLevel tightens the vulnerability ceilings.
type SecurityLevel int

const (
	SecurityBasic SecurityLevel = iota
	SecurityHigh
	SecurityMaximum
)

func (l SecurityLevel) String() string {
	switch l {
	case SecurityBasic:
		return "basic"
	case SecurityHigh:
		return "high"
	case SecurityMaximum:
		return "maximum"
	default:
		return "unknown"
	}
}

// Set implements pflag.Value.
func (l *SecurityLevel) Set(value string) error {
	switch strings.ToLower(value) {
	case "basic":
		*l = SecurityBasic
	case "high":
		*l = SecurityHigh
	case "maximum":
		*l = SecurityMaximum
	default:
		return fmt.Errorf("invalid security level %q, expected basic, high or maximum", value)
	}
	return nil
}

// Type implements pflag.Value.
func (l *SecurityLevel) Type() string { return "securityLevel" }

// Requirements is the recommendation input. Nil ceilings mean
// unconstrained. SecurityMaximum does not add hard ceilings; it makes
// the result call out which images carry zero critical and zero high
// findings, leaving the ceilings to the explicit Max fields.
type Requirements struct {
	Language string `json:"language"`
	// Version is an exact version, a component prefix, or a semver
	// range expression.
	Version string `json:"version,omitempty"`
	// Packages must all be present by name, except on full-size
	// candidates where coverage is scored instead.
	Packages []string `json:"packages,omitempty"`

	SizePreference SizePreference `json:"sizePreference"`
	SecurityLevel  SecurityLevel  `json:"securityLevel"`

	MaxCritical *int `json:"maxCritical,omitempty"`
	MaxHigh     *int `json:"maxHigh,omitempty"`
	MaxTotal    *int `json:"maxTotal,omitempty"`
}
