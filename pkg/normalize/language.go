package normalize

import (
	"regexp"
	"strings"

	"github.com/basescout/basescout/internal/data/model"
	"github.com/basescout/basescout/pkg/semver"
)

// languageRule detects one language family. Rules are evaluated in
// order; within a language the highest-priority matching package wins.
type languageRule struct {
	language string
	patterns []*regexp.Regexp
	// excluded lists library packages that match the patterns but are
	// not runtimes.
	excluded map[string]bool
}

var languageRules = []languageRule{
	{
		language: "python",
		patterns: compile(`^python3?$`, `^python3\.\d+$`, `^python3\.\d+-.*`),
		excluded: set(
			"python-wheel", "python-pip", "python-setuptools", "python-dev",
			"python-distutils", "python-pkg-resources", "python-six",
			"python-urllib3", "python-requests", "python-chardet",
			"python-certifi", "python-idna", "python-pysocks",
		),
	},
	{
		language: "node",
		patterns: compile(`^nodejs?$`, `^node$`),
		excluded: set("nodejs-dev", "nodejs-npm", "node-gyp"),
	},
	{
		language: "java",
		patterns: compile(`^openjdk.*`, `^java$`, `^jre.*`, `^jdk.*`),
		excluded: set("java-common"),
	},
	{
		language: "go",
		patterns: compile(`^golang?$`, `^go$`),
	},
	{
		language: "ruby",
		patterns: compile(`^ruby$`, `^ruby\d+.*`),
	},
	{
		language: "php",
		patterns: compile(`^php$`, `^php\d+.*`),
	},
	{
		language: "dotnet",
		patterns: compile(`^dotnet.*`, `^aspnetcore.*`, `^netstandard.*`,
			`^microsoft\.netcore\.app.*`, `^microsoft\.aspnetcore\.app.*`),
	},
	{
		language: "rust",
		patterns: compile(`^rust$`, `^cargo$`),
	},
	{
		language: "perl",
		patterns: compile(`^perl$`),
	},
	{
		language: "lua",
		patterns: compile(`^lua$`, `^lua\d+.*`),
	},
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

func set(names ...string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

// osPackageEcosystems are the distro package formats; a runtime shipped
// through one of these outranks a language-ecosystem artifact of the
// same name.
var osPackageEcosystems = map[string]bool{"rpm": true, "deb": true, "apk": true}

// packagePriority scores how likely a matching package is the actual
// runtime. Exact language-name matches and versioned runtime packages
// outrank dev and library packages.
func packagePriority(name, language, ecosystem string) int {
	priority := 0
	if name == language {
		priority += 100
	}
	if osPackageEcosystems[ecosystem] {
		priority += 50
	}
	switch language {
	case "python":
		switch {
		case regexp.MustCompile(`^python3\.\d+$`).MatchString(name):
			priority += 80
		case name == "python3":
			priority += 70
		case name == "python":
			priority += 60
		}
	case "node":
		switch name {
		case "nodejs":
			priority += 80
		case "node":
			priority += 70
		}
	case "java":
		switch {
		case strings.Contains(name, "openjdk"):
			priority += 80
		case name == "java":
			priority += 70
		}
	}
	for _, suffix := range []string{"-dev", "-devel", "-lib", "-common"} {
		if strings.Contains(name, suffix) {
			priority -= 20
			break
		}
	}
	return priority
}

var pythonPackageVersion = regexp.MustCompile(`python3\.(\d+)`)

// runtimeMajorMinor reduces a runtime version to major.minor. Python
// runtime packages carry the series in their name, which is more
// reliable than the package version.
func runtimeMajorMinor(language, packageName, version string) string {
	if language == "python" {
		if m := pythonPackageVersion.FindStringSubmatch(packageName); m != nil {
			return "3." + m[1]
		}
	}
	if mm := semver.MajorMinor(version); mm != "" {
		if language == "node" && !strings.Contains(mm, ".") {
			return mm + ".0"
		}
		return mm
	}
	return version
}

type runtimeCandidate struct {
	runtime  model.LanguageRuntime
	priority int
}

// detectRuntimes derives language runtimes from the package union.
// One runtime per language, the highest-priority match.
func detectRuntimes(packages []model.Package) []model.LanguageRuntime {
	best := make(map[string]runtimeCandidate)
	for _, pkg := range packages {
		name := strings.ToLower(pkg.Name)
		for _, rule := range languageRules {
			if rule.excluded[name] {
				continue
			}
			for _, pattern := range rule.patterns {
				if !pattern.MatchString(name) {
					continue
				}
				priority := packagePriority(name, rule.language, pkg.Ecosystem)
				current, seen := best[rule.language]
				if !seen || priority > current.priority {
					best[rule.language] = runtimeCandidate{
						runtime: model.LanguageRuntime{
							Language:    rule.language,
							Version:     pkg.Version,
							MajorMinor:  runtimeMajorMinor(rule.language, name, pkg.Version),
							PackageName: pkg.Name,
						},
						priority: priority,
					}
				}
				break
			}
		}
	}

	runtimes := make([]model.LanguageRuntime, 0, len(best))
	for _, c := range best {
		runtimes = append(runtimes, c.runtime)
	}
	return runtimes
}
