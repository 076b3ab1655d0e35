package recommend

import (
	"sort"
	"strings"

	"github.com/basescout/basescout/internal/config"
	"github.com/basescout/basescout/internal/data/model"
	"github.com/basescout/basescout/pkg/semver"
)

// Engine ranks image records. Size categorization depends on the
// configured thresholds, everything else is fixed policy.
type Engine struct {
	thresholds config.SizeThresholds
}

// NewEngine creates an Engine with the given size thresholds.
func NewEngine(thresholds config.SizeThresholds) *Engine {
	return &Engine{thresholds: thresholds}
}

// RankKey is the ordered comparison key. Candidates are ranked by
// ascending lexicographic comparison of these fields, in declaration
// order, with the digest as the final deterministic tiebreak.
type RankKey struct {
	Critical         int   `json:"critical"`
	High             int   `json:"high"`
	Total            int   `json:"total"`
	CategoryDistance int   `json:"categoryDistance"`
	SizeBytes        int64 `json:"sizeBytes"`
}

// Reasoning explains why an image ranked where it did.
type Reasoning struct {
	LanguageMatched bool   `json:"languageMatched"`
	VersionMatched  bool   `json:"versionMatched"`
	CeilingsMet     bool   `json:"ceilingsMet"`
	PackagesPresent bool   `json:"packagesPresent"`
	SizeCategory    string `json:"sizeCategory"`
	// PackageCoverage is the fraction of required packages found,
	// 1 when none were required.
	PackageCoverage float64 `json:"packageCoverage"`
	// MissingPackages lists required packages the image lacks. Only
	// full-size candidates can rank with a non-empty list.
	MissingPackages []string `json:"missingPackages,omitempty"`
	// ZeroCriticalHigh is set for securityLevel=maximum queries.
	ZeroCriticalHigh bool `json:"zeroCriticalHigh,omitempty"`
}

// RankedImage is one recommendation result.
type RankedImage struct {
	Image     model.Image `json:"image"`
	Reference string      `json:"reference"`
	Key       RankKey     `json:"key"`
	Reasoning Reasoning   `json:"reasoning"`
}

// Recommend filters candidates on the hard constraints and ranks the
// survivors. An empty result is a valid answer, never an error. The
// output order does not depend on the candidate order.
func (e *Engine) Recommend(reqs Requirements, candidates []model.Image, limit int) []RankedImage {
	ranked := make([]RankedImage, 0, len(candidates))
	for i := range candidates {
		if r, ok := e.evaluate(reqs, &candidates[i]); ok {
			ranked = append(ranked, r)
		}
	}

	sort.Slice(ranked, func(i, j int) bool {
		return lessKey(ranked[i], ranked[j])
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

func (e *Engine) evaluate(reqs Requirements, image *model.Image) (RankedImage, bool) {
	reasoning := Reasoning{}

	reasoning.LanguageMatched, reasoning.VersionMatched = matchRuntime(reqs, image.Runtimes)
	if !reasoning.LanguageMatched || !reasoning.VersionMatched {
		return RankedImage{}, false
	}

	counts := image.CountVulnerabilities()
	reasoning.CeilingsMet = (reqs.MaxCritical == nil || counts.Critical <= *reqs.MaxCritical) &&
		(reqs.MaxHigh == nil || counts.High <= *reqs.MaxHigh) &&
		(reqs.MaxTotal == nil || counts.Total <= *reqs.MaxTotal)
	if !reasoning.CeilingsMet {
		return RankedImage{}, false
	}

	category := e.sizeCategory(image.SizeBytes)
	reasoning.SizeCategory = category.String()

	coverage, missing := packageCoverage(reqs.Packages, image.Packages)
	reasoning.PackageCoverage = coverage
	reasoning.MissingPackages = missing
	reasoning.PackagesPresent = len(missing) == 0
	// Full-size images satisfy requirements through OS tooling that
	// never shows up as discrete packages, so missing names only score
	// against them instead of rejecting.
	if !reasoning.PackagesPresent && category != SizeFull {
		return RankedImage{}, false
	}

	if reqs.SecurityLevel == SecurityMaximum {
		reasoning.ZeroCriticalHigh = counts.Critical == 0 && counts.High == 0
	}

	return RankedImage{
		Image:     *image,
		Reference: image.Reference(),
		Key: RankKey{
			Critical:         counts.Critical,
			High:             counts.High,
			Total:            counts.Total,
			CategoryDistance: distance(category, reqs.SizePreference),
			SizeBytes:        image.SizeBytes,
		},
		Reasoning: reasoning,
	}, true
}

// matchRuntime checks the language and version constraints against the
// image's runtimes. The version constraint only applies to runtimes of
// the requested language.
func matchRuntime(reqs Requirements, runtimes []model.LanguageRuntime) (langOK, versionOK bool) {
	if reqs.Language == "" {
		return true, true
	}
	for _, rt := range runtimes {
		if !strings.EqualFold(rt.Language, reqs.Language) {
			continue
		}
		langOK = true
		if reqs.Version == "" || semver.Matches(rt.Version, reqs.Version) {
			return true, true
		}
	}
	return langOK, false
}

func packageCoverage(required []string, packages []model.Package) (float64, []string) {
	if len(required) == 0 {
		return 1, nil
	}
	present := make(map[string]bool, len(packages))
	for _, p := range packages {
		present[strings.ToLower(p.Name)] = true
	}
	var missing []string
	for _, name := range required {
		if !present[strings.ToLower(name)] {
			missing = append(missing, name)
		}
	}
	found := len(required) - len(missing)
	return float64(found) / float64(len(required)), missing
}

func (e *Engine) sizeCategory(sizeBytes int64) SizePreference {
	switch {
	case sizeBytes < e.thresholds.MinimalMax:
		return SizeMinimal
	case sizeBytes < e.thresholds.BalancedMax:
		return SizeBalanced
	default:
		return SizeFull
	}
}

func distance(a, b SizePreference) int {
	d := int(a) - int(b)
	if d < 0 {
		return -d
	}
	return d
}

func lessKey(a, b RankedImage) bool {
	if a.Key.Critical != b.Key.Critical {
		return a.Key.Critical < b.Key.Critical
	}
	if a.Key.High != b.Key.High {
		return a.Key.High < b.Key.High
	}
	if a.Key.Total != b.Key.Total {
		return a.Key.Total < b.Key.Total
	}
	if a.Key.CategoryDistance != b.Key.CategoryDistance {
		return a.Key.CategoryDistance < b.Key.CategoryDistance
	}
	if a.Key.SizeBytes != b.Key.SizeBytes {
		return a.Key.SizeBytes < b.Key.SizeBytes
	}
	return a.Image.Digest < b.Image.Digest
}
