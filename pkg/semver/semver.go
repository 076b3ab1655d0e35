// Package semver matches runtime version strings against user
// requirements. Versions found in images are rarely clean semver, so
// parsing is tolerant and falls back to string comparison.
package semver

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// constraintChars are the characters that mark a requirement as a
// semver range rather than a literal version.
const constraintChars = "<>=~^*|, "

// IsRange reports whether the requirement is a semver range expression.
func IsRange(requirement string) bool {
	return strings.ContainsAny(requirement, constraintChars)
}

// Matches reports whether an observed version satisfies a requirement.
// Three forms are accepted, tried in order:
//
//   - a range expression like ">=3.11, <3.13" or "^20.10", evaluated
//     with semver constraints;
//   - an exact version string;
//   - a component prefix, so "3.12" matches "3.12.4" but not "3.120.0".
//
// Unparsable versions never satisfy a range but can still match
// exactly or by prefix.
func Matches(version, requirement string) bool {
	requirement = strings.TrimSpace(requirement)
	if requirement == "" {
		return true
	}
	if IsRange(requirement) {
		constraint, err := semver.NewConstraint(requirement)
		if err != nil {
			return false
		}
		// Ranges compare the upstream version only. A distro revision
		// like "3.11.2-1+deb12u1" would otherwise parse as a semver
		// prerelease and fail every constraint.
		parsed, err := semver.NewVersion(numericCore(version))
		if err != nil {
			return false
		}
		return constraint.Check(parsed)
	}
	if strings.EqualFold(version, requirement) {
		return true
	}
	return hasComponentPrefix(version, requirement)
}

// MajorMinor reduces a version string to its first two numeric
// components, "3.12.4" to "3.12". A single-component version is
// returned unchanged; anything unparsable comes back empty.
func MajorMinor(version string) string {
	parts := strings.SplitN(normalize(version), ".", 3)
	switch len(parts) {
	case 0:
		return ""
	case 1:
		if !isNumeric(parts[0]) {
			return ""
		}
		return parts[0]
	default:
		if !isNumeric(parts[0]) || !isNumeric(trimSuffix(parts[1])) {
			return ""
		}
		return parts[0] + "." + trimSuffix(parts[1])
	}
}

// Compare orders two version strings, parsing tolerantly. Unparsable
// versions sort before parsable ones, and equal to each other.
func Compare(a, b string) int {
	av, aerr := semver.NewVersion(normalize(a))
	bv, berr := semver.NewVersion(normalize(b))
	switch {
	case aerr != nil && berr != nil:
		return 0
	case aerr != nil:
		return -1
	case berr != nil:
		return 1
	default:
		return av.Compare(bv)
	}
}

func normalize(version string) string {
	version = strings.TrimSpace(version)
	version = strings.TrimPrefix(version, "v")
	// Distro packaging suffixes like "3.11.2-1+deb12u1" confuse the
	// parser less once the epoch prefix is gone.
	if i := strings.Index(version, ":"); i >= 0 && isNumeric(version[:i]) {
		version = version[i+1:]
	}
	return version
}

// numericCore truncates a version at its first revision separator,
// "3.11.2-1+deb12u1" to "3.11.2".
func numericCore(version string) string {
	version = normalize(version)
	if i := strings.IndexAny(version, "-+"); i >= 0 {
		version = version[:i]
	}
	return version
}

func hasComponentPrefix(version, prefix string) bool {
	v, p := normalize(version), normalize(prefix)
	if !strings.HasPrefix(strings.ToLower(v), strings.ToLower(p)) {
		return false
	}
	rest := v[len(p):]
	return rest == "" || rest[0] == '.' || rest[0] == '-' || rest[0] == '+'
}

func trimSuffix(component string) string {
	for i := 0; i < len(component); i++ {
		if component[i] < '0' || component[i] > '9' {
			return component[:i]
		}
	}
	return component
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
