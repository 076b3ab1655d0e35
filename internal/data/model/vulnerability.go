package model

// Vulnerability is one finding, already deduplicated across scanners.
// (VulnID, PackageName) is the dedup key; SourceTools is provenance,
// not identity.
type Vulnerability struct {
	ID      uint `json:"ID" gorm:"primaryKey;autoIncrement"`
	ImageID uint `json:"ImageID" gorm:"index:idx_vulnerability_image"`

	VulnID         string   `json:"VulnID" gorm:"not null;index:idx_vulnerability_vuln_id"`
	Severity       Severity `json:"Severity" gorm:"not null;index:idx_vulnerability_severity"`
	PackageName    string   `json:"PackageName"`
	PackageVersion string   `json:"PackageVersion"`
	FixedVersion   string   `json:"FixedVersion"`
	Description    string   `json:"Description"`

	// SourceTools names every scanner that reported this finding.
	SourceTools JSONStringArray `json:"SourceTools" gorm:"type:text"`
}
