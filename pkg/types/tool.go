package types

// ToolResult is the raw, already-decoded output of one external analysis
// tool for one image reference. Exactly one of the payload fields is
// non-nil; normalization switches on it rather than probing loose JSON.
type ToolResult struct {
	Tool        string `json:"tool"`
	ToolVersion string `json:"toolVersion,omitempty"`

	Syft    *SyftDocument  `json:"syft,omitempty"`
	Trivy   *TrivyReport   `json:"trivy,omitempty"`
	Grype   *GrypeDocument `json:"grype,omitempty"`
	Inspect *InspectInfo   `json:"inspect,omitempty"`
}

// SyftDocument is the subset of `syft <image> -o json` output consumed here.
type SyftDocument struct {
	Distro struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"distro"`
	Artifacts []SyftArtifact `json:"artifacts"`
}

// SyftArtifact is one package entry in a syft SBOM.
type SyftArtifact struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Type    string `json:"type"`
	PURL    string `json:"purl"`
}

// TrivyReport is the subset of `trivy image --format json` output consumed here.
type TrivyReport struct {
	ArtifactName string `json:"ArtifactName"`
	Metadata     struct {
		ImageID     string   `json:"ImageID"`
		RepoDigests []string `json:"RepoDigests"`
		Size        int64    `json:"Size"`
		ImageConfig struct {
			Created string `json:"created"`
		} `json:"ImageConfig"`
	} `json:"Metadata"`
	Results []TrivyResult `json:"Results"`
}

// TrivyResult is one target section of a trivy report.
type TrivyResult struct {
	Target          string               `json:"Target"`
	Class           string               `json:"Class"`
	Type            string               `json:"Type"`
	Vulnerabilities []TrivyVulnerability `json:"Vulnerabilities"`
}

// TrivyVulnerability is one finding reported by trivy.
type TrivyVulnerability struct {
	VulnerabilityID  string `json:"VulnerabilityID"`
	PkgName          string `json:"PkgName"`
	InstalledVersion string `json:"InstalledVersion"`
	FixedVersion     string `json:"FixedVersion"`
	Severity         string `json:"Severity"`
	Description      string `json:"Description"`
}

// GrypeDocument is the subset of `grype <image> -o json` output consumed here.
type GrypeDocument struct {
	Descriptor struct {
		Timestamp string `json:"timestamp"`
	} `json:"descriptor"`
	Matches []GrypeMatch `json:"matches"`
}

// GrypeMatch is one finding reported by grype.
type GrypeMatch struct {
	Vulnerability struct {
		ID          string `json:"id"`
		Severity    string `json:"severity"`
		Description string `json:"description"`
		Fix         struct {
			Versions []string `json:"versions"`
		} `json:"fix"`
	} `json:"vulnerability"`
	Artifact struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Type    string `json:"type"`
		PURL    string `json:"purl"`
	} `json:"artifact"`
}

// InspectInfo is the subset of `docker inspect` output consumed here.
type InspectInfo struct {
	ID           string   `json:"Id"`
	Created      string   `json:"Created"`
	Architecture string   `json:"Architecture"`
	Os           string   `json:"Os"`
	Size         int64    `json:"Size"`
	RepoDigests  []string `json:"RepoDigests"`
	RootFS       struct {
		Layers []string `json:"Layers"`
	} `json:"RootFS"`
}
