package model

// Package represents one installed software component inside an image.
// (Name, Version, Ecosystem) is unique within an image.
type Package struct {
	ID      uint `json:"ID" gorm:"primaryKey;autoIncrement"`
	ImageID uint `json:"ImageID" gorm:"index:idx_package_image"`

	Name      string `json:"Name" gorm:"not null"`
	Version   string `json:"Version"`
	Ecosystem string `json:"Ecosystem"`
	PURL      string `json:"PURL"`
}

// Key returns the identity triple used for in-image uniqueness.
func (p Package) Key() [3]string {
	return [3]string{p.Name, p.Version, p.Ecosystem}
}

// LanguageRuntime is a detected programming-language runtime. It is
// derived from the package set and recomputed on every rescan, never
// edited independently.
type LanguageRuntime struct {
	ID      uint `json:"ID" gorm:"primaryKey;autoIncrement"`
	ImageID uint `json:"ImageID" gorm:"index:idx_runtime_image"`

	Language   string `json:"Language" gorm:"not null;index:idx_runtime_language"`
	Version    string `json:"Version"`
	MajorMinor string `json:"MajorMinor"`
	// PackageName is the package the detection rule matched.
	PackageName string `json:"PackageName"`
}
