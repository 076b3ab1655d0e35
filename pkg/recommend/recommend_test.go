package recommend

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/basescout/basescout/internal/config"
	"github.com/basescout/basescout/internal/data/model"
)

func testEngine() *Engine {
	return NewEngine(config.SizeThresholds{
		MinimalMax:  100 << 20,
		BalancedMax: 300 << 20,
	})
}

func pythonImage(digest string, sizeBytes int64, critical, high int) model.Image {
	img := model.Image{
		Registry:   "docker.io",
		Repository: "library/python",
		Tag:        "3.12",
		Digest:     digest,
		SizeBytes:  sizeBytes,
		Runtimes: []model.LanguageRuntime{
			{Language: "python", Version: "3.12.4", MajorMinor: "3.12"},
		},
		Packages: []model.Package{
			{Name: "pip", Version: "24.0", Ecosystem: "python"},
			{Name: "openssl", Version: "3.0.11", Ecosystem: "deb"},
		},
	}
	for i := 0; i < critical; i++ {
		img.Vulnerabilities = append(img.Vulnerabilities, model.Vulnerability{Severity: model.SeverityCritical})
	}
	for i := 0; i < high; i++ {
		img.Vulnerabilities = append(img.Vulnerabilities, model.Vulnerability{Severity: model.SeverityHigh})
	}
	return img
}

func TestRecommendHighCountDecides(t *testing.T) {
	t.Parallel()
	// X: 0 critical, 1 high, 80MB. Y: 0 critical, 0 high, 500MB. The
	// critical counts tie, so the high count ranks Y first despite its
	// size.
	x := pythonImage("sha256:xxx", 80<<20, 0, 1)
	y := pythonImage("sha256:yyy", 500<<20, 0, 0)

	ranked := testEngine().Recommend(Requirements{
		Language:      "python",
		SecurityLevel: SecurityMaximum,
	}, []model.Image{x, y}, 0)

	require.Len(t, ranked, 2)
	require.Equal(t, "sha256:yyy", ranked[0].Image.Digest)
	require.Equal(t, "sha256:xxx", ranked[1].Image.Digest)
	require.True(t, ranked[0].Reasoning.ZeroCriticalHigh)
	require.False(t, ranked[1].Reasoning.ZeroCriticalHigh)
}

func TestRecommendFilterCorrectness(t *testing.T) {
	t.Parallel()
	one := 1
	reqs := Requirements{
		Language:    "python",
		Version:     "3.12",
		MaxCritical: new(int),
		MaxHigh:     &one,
		MaxTotal:    &one,
	}

	candidates := []model.Image{
		pythonImage("sha256:clean", 90<<20, 0, 0),
		pythonImage("sha256:toomany", 90<<20, 1, 0),
		pythonImage("sha256:highonly", 90<<20, 0, 1),
	}
	wrongLang := pythonImage("sha256:nodeimg", 90<<20, 0, 0)
	wrongLang.Runtimes = []model.LanguageRuntime{{Language: "node", Version: "20.11.0"}}
	wrongVersion := pythonImage("sha256:oldpython", 90<<20, 0, 0)
	wrongVersion.Runtimes = []model.LanguageRuntime{{Language: "python", Version: "3.9.1"}}
	candidates = append(candidates, wrongLang, wrongVersion)

	ranked := testEngine().Recommend(reqs, candidates, 0)
	require.Len(t, ranked, 2)
	for _, r := range ranked {
		counts := r.Image.CountVulnerabilities()
		require.Zero(t, counts.Critical)
		require.LessOrEqual(t, counts.High, 1)
		require.True(t, r.Reasoning.LanguageMatched)
		require.True(t, r.Reasoning.VersionMatched)
		require.True(t, r.Reasoning.CeilingsMet)
	}
	require.Equal(t, "sha256:clean", ranked[0].Image.Digest)
}

func TestRecommendCaseInsensitiveLanguage(t *testing.T) {
	t.Parallel()
	img := pythonImage("sha256:aaa", 90<<20, 0, 0)
	ranked := testEngine().Recommend(Requirements{Language: "Python"}, []model.Image{img}, 0)
	require.Len(t, ranked, 1)
}

func TestRecommendVersionRange(t *testing.T) {
	t.Parallel()
	img := pythonImage("sha256:aaa", 90<<20, 0, 0)
	ranked := testEngine().Recommend(Requirements{
		Language: "python",
		Version:  ">=3.11, <3.13",
	}, []model.Image{img}, 0)
	require.Len(t, ranked, 1)

	ranked = testEngine().Recommend(Requirements{
		Language: "python",
		Version:  ">=3.13",
	}, []model.Image{img}, 0)
	require.Empty(t, ranked)
}

func TestRecommendRequiredPackages(t *testing.T) {
	t.Parallel()
	small := pythonImage("sha256:small", 50<<20, 0, 0)
	full := pythonImage("sha256:full", 400<<20, 0, 0)

	reqs := Requirements{
		Language: "python",
		Packages: []string{"openssl", "curl"},
	}
	ranked := testEngine().Recommend(reqs, []model.Image{small, full}, 0)

	// The small image lacks curl and is rejected; the full-size image
	// survives on coverage.
	require.Len(t, ranked, 1)
	require.Equal(t, "sha256:full", ranked[0].Image.Digest)
	require.False(t, ranked[0].Reasoning.PackagesPresent)
	require.InDelta(t, 0.5, ranked[0].Reasoning.PackageCoverage, 0.001)
	require.Equal(t, []string{"curl"}, ranked[0].Reasoning.MissingPackages)
}

func TestRecommendSizeOrdering(t *testing.T) {
	t.Parallel()
	minimal := pythonImage("sha256:min", 50<<20, 0, 0)
	balanced := pythonImage("sha256:bal", 200<<20, 0, 0)
	full := pythonImage("sha256:ful", 400<<20, 0, 0)

	ranked := testEngine().Recommend(Requirements{
		Language:       "python",
		SizePreference: SizeBalanced,
	}, []model.Image{full, minimal, balanced}, 0)

	require.Len(t, ranked, 3)
	require.Equal(t, "sha256:bal", ranked[0].Image.Digest)
	// Minimal and full are both one category away; size breaks the tie.
	require.Equal(t, "sha256:min", ranked[1].Image.Digest)
	require.Equal(t, "sha256:ful", ranked[2].Image.Digest)
	require.Equal(t, "balanced", ranked[0].Reasoning.SizeCategory)
}

func TestRecommendStableUnderPermutation(t *testing.T) {
	t.Parallel()
	candidates := []model.Image{
		pythonImage("sha256:a", 90<<20, 0, 2),
		pythonImage("sha256:b", 90<<20, 0, 2),
		pythonImage("sha256:c", 200<<20, 1, 0),
		pythonImage("sha256:d", 50<<20, 0, 0),
	}
	reqs := Requirements{Language: "python"}
	engine := testEngine()
	base := engine.Recommend(reqs, candidates, 0)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 10; i++ {
		shuffled := make([]model.Image, len(candidates))
		copy(shuffled, candidates)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		if diff := cmp.Diff(base, engine.Recommend(reqs, shuffled, 0)); diff != "" {
			t.Fatalf("order depends on candidate permutation (-base +perm):\n%s", diff)
		}
	}

	// a and b tie on every key; the digest decides.
	require.Equal(t, "sha256:d", base[0].Image.Digest)
}

func TestRecommendLimit(t *testing.T) {
	t.Parallel()
	candidates := []model.Image{
		pythonImage("sha256:a", 50<<20, 0, 0),
		pythonImage("sha256:b", 60<<20, 0, 0),
		pythonImage("sha256:c", 70<<20, 0, 0),
	}
	engine := testEngine()

	ranked := engine.Recommend(Requirements{Language: "python"}, candidates, 2)
	require.Len(t, ranked, 2)

	// Fewer survivors than the limit returns all of them.
	ranked = engine.Recommend(Requirements{Language: "python"}, candidates[:1], 5)
	require.Len(t, ranked, 1)
}

func TestRecommendNoSurvivorsIsEmptyNotError(t *testing.T) {
	t.Parallel()
	ranked := testEngine().Recommend(Requirements{Language: "cobol"}, []model.Image{
		pythonImage("sha256:a", 50<<20, 0, 0),
	}, 0)
	require.NotNil(t, ranked)
	require.Empty(t, ranked)
}

func TestSizePreferenceFlagValue(t *testing.T) {
	t.Parallel()
	var p SizePreference
	require.NoError(t, p.Set("full"))
	require.Equal(t, SizeFull, p)
	require.Equal(t, "full", p.String())
	require.Error(t, p.Set("gigantic"))

	var l SecurityLevel
	require.NoError(t, l.Set("MAXIMUM"))
	require.Equal(t, SecurityMaximum, l)
	require.Error(t, l.Set(""))
}
