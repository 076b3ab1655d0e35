// Package normalize merges raw tool results into one canonical image
// record. Normalization is pure: the output depends only on the input
// set, never on input order or wall-clock time.
package normalize

import (
	"sort"
	"strings"
	"time"

	"github.com/basescout/basescout/internal/data/model"
	"github.com/basescout/basescout/pkg/types"
)

// vulnKey is the dedup identity for findings. Two scanners reporting
// the same advisory against the same package describe one finding.
type vulnKey struct {
	vulnID  string
	pkgName string
}

// Normalize merges tool results into a model.Image ready for the
// store. SBOM-only input produces a valid non-comprehensive record.
// ScannedAt is left zero; the store stamps it on upsert.
func Normalize(ref types.ImageReference, results []types.ToolResult) *model.Image {
	// Copy and order the input so the merge never sees tool results in
	// arrival order.
	ordered := make([]types.ToolResult, len(results))
	copy(ordered, results)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Tool < ordered[j].Tool })

	image := &model.Image{
		Registry:   ref.Registry,
		Repository: ref.Repository,
		Tag:        ref.Tag,
	}

	packages := make(map[[3]string]model.Package)
	vulns := make(map[vulnKey]*model.Vulnerability)

	for _, result := range ordered {
		image.SourceTools = append(image.SourceTools, result.Tool)
		switch {
		case result.Syft != nil:
			mergeSyft(image, result.Syft, packages)
		case result.Trivy != nil:
			image.Comprehensive = true
			mergeTrivy(image, result.Trivy, vulns, "trivy")
		case result.Grype != nil:
			image.Comprehensive = true
			mergeGrype(image, result.Grype, packages, vulns, "grype")
		case result.Inspect != nil:
			mergeInspect(image, result.Inspect)
		}
	}

	image.Packages = sortedPackages(packages)
	image.Vulnerabilities = sortedVulnerabilities(vulns)
	image.Runtimes = sortedRuntimes(detectRuntimes(image.Packages))
	return image
}

func mergeSyft(image *model.Image, doc *types.SyftDocument, packages map[[3]string]model.Package) {
	if doc.Distro.Name != "" {
		image.BaseOSName = doc.Distro.Name
		image.BaseOSVersion = doc.Distro.Version
	}
	for _, artifact := range doc.Artifacts {
		addPackage(packages, model.Package{
			Name:      artifact.Name,
			Version:   artifact.Version,
			Ecosystem: strings.ToLower(artifact.Type),
			PURL:      artifact.PURL,
		})
	}
}

func mergeTrivy(image *model.Image, report *types.TrivyReport, vulns map[vulnKey]*model.Vulnerability, tool string) {
	if report.Metadata.Size > 0 && image.SizeBytes == 0 {
		image.SizeBytes = report.Metadata.Size
	}
	if image.Digest == "" {
		image.Digest = digestFrom(report.Metadata.RepoDigests)
	}
	if image.ImageCreatedAt.IsZero() {
		image.ImageCreatedAt = parseTime(report.Metadata.ImageConfig.Created)
	}
	for _, result := range report.Results {
		for _, v := range result.Vulnerabilities {
			addVulnerability(vulns, model.Vulnerability{
				VulnID:         v.VulnerabilityID,
				Severity:       model.ParseSeverity(v.Severity),
				PackageName:    v.PkgName,
				PackageVersion: v.InstalledVersion,
				FixedVersion:   v.FixedVersion,
				Description:    v.Description,
			}, v.Severity != "", tool)
		}
	}
}

func mergeGrype(image *model.Image, doc *types.GrypeDocument, packages map[[3]string]model.Package, vulns map[vulnKey]*model.Vulnerability, tool string) {
	for _, match := range doc.Matches {
		addPackage(packages, model.Package{
			Name:      match.Artifact.Name,
			Version:   match.Artifact.Version,
			Ecosystem: strings.ToLower(match.Artifact.Type),
			PURL:      match.Artifact.PURL,
		})
		var fixed string
		if len(match.Vulnerability.Fix.Versions) > 0 {
			fixed = match.Vulnerability.Fix.Versions[0]
		}
		addVulnerability(vulns, model.Vulnerability{
			VulnID:         match.Vulnerability.ID,
			Severity:       model.ParseSeverity(match.Vulnerability.Severity),
			PackageName:    match.Artifact.Name,
			PackageVersion: match.Artifact.Version,
			FixedVersion:   fixed,
			Description:    match.Vulnerability.Description,
		}, match.Vulnerability.Severity != "", tool)
	}
}

func mergeInspect(image *model.Image, info *types.InspectInfo) {
	if info.Size > 0 {
		image.SizeBytes = info.Size
	}
	if d := digestFrom(info.RepoDigests); d != "" {
		image.Digest = d
	}
	if t := parseTime(info.Created); !t.IsZero() {
		image.ImageCreatedAt = t
	}
}

func addPackage(packages map[[3]string]model.Package, pkg model.Package) {
	if pkg.Name == "" {
		return
	}
	key := pkg.Key()
	if existing, ok := packages[key]; ok {
		// Same identity from two tools; keep the richer entry.
		if existing.PURL == "" && pkg.PURL != "" {
			existing.PURL = pkg.PURL
			packages[key] = existing
		}
		return
	}
	packages[key] = pkg
}

// addVulnerability collapses repeat findings onto one record. Severity
// merges conservatively: the worse assessment wins, and a reported
// severity always beats a missing one.
func addVulnerability(vulns map[vulnKey]*model.Vulnerability, v model.Vulnerability, hasSeverity bool, tool string) {
	if v.VulnID == "" {
		return
	}
	key := vulnKey{vulnID: v.VulnID, pkgName: v.PackageName}
	existing, ok := vulns[key]
	if !ok {
		if !hasSeverity {
			v.Severity = model.SeverityUnknown
		}
		v.SourceTools = model.JSONStringArray{tool}
		vulns[key] = &v
		return
	}
	if hasSeverity && v.Severity.Rank() > existing.Severity.Rank() {
		existing.Severity = v.Severity
	}
	if existing.FixedVersion == "" {
		existing.FixedVersion = v.FixedVersion
	}
	if existing.Description == "" {
		existing.Description = v.Description
	}
	existing.SourceTools = appendUnique(existing.SourceTools, tool)
}

func appendUnique(tools model.JSONStringArray, tool string) model.JSONStringArray {
	for _, t := range tools {
		if t == tool {
			return tools
		}
	}
	return append(tools, tool)
}

func digestFrom(repoDigests []string) string {
	for _, rd := range repoDigests {
		if at := strings.LastIndex(rd, "@"); at >= 0 && at+1 < len(rd) {
			return rd[at+1:]
		}
	}
	return ""
}

func parseTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func sortedPackages(packages map[[3]string]model.Package) []model.Package {
	out := make([]model.Package, 0, len(packages))
	for _, p := range packages {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		if out[i].Version != out[j].Version {
			return out[i].Version < out[j].Version
		}
		return out[i].Ecosystem < out[j].Ecosystem
	})
	return out
}

func sortedVulnerabilities(vulns map[vulnKey]*model.Vulnerability) []model.Vulnerability {
	out := make([]model.Vulnerability, 0, len(vulns))
	for _, v := range vulns {
		sort.Strings(v.SourceTools)
		out = append(out, *v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].VulnID != out[j].VulnID {
			return out[i].VulnID < out[j].VulnID
		}
		return out[i].PackageName < out[j].PackageName
	})
	return out
}

func sortedRuntimes(runtimes []model.LanguageRuntime) []model.LanguageRuntime {
	sort.Slice(runtimes, func(i, j int) bool {
		return runtimes[i].Language < runtimes[j].Language
	})
	return runtimes
}
