package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Image represents one scanned container image. The digest is the
// immutable identity: at most one row per digest. (Registry,
// Repository, Tag) is a mutable pointer that is repointed when a tag
// moves to new content. Degraded scans can leave the digest empty;
// those rows fall back to the reference as identity, so the unique
// index is partial.
type Image struct {
	ID         uint   `json:"ID" gorm:"primaryKey;autoIncrement"`
	Registry   string `json:"Registry" gorm:"not null;index:idx_image_reference"`
	Repository string `json:"Repository" gorm:"not null;index:idx_image_reference"`
	Tag        string `json:"Tag" gorm:"not null;index:idx_image_reference"`
	Digest     string `json:"Digest" gorm:"uniqueIndex:idx_image_digest,where:digest <> ''"`

	SizeBytes      int64     `json:"SizeBytes"`
	ImageCreatedAt time.Time `json:"ImageCreatedAt"`
	ScannedAt      time.Time `json:"ScannedAt"`
	Comprehensive  bool      `json:"Comprehensive"`

	BaseOSName    string `json:"BaseOSName"`
	BaseOSVersion string `json:"BaseOSVersion"`

	// SourceTools lists the tools that contributed to this record.
	SourceTools JSONStringArray `json:"SourceTools" gorm:"type:text"`

	Packages        []Package         `json:"Packages" gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE"`
	Vulnerabilities []Vulnerability   `json:"Vulnerabilities" gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE"`
	Runtimes        []LanguageRuntime `json:"Runtimes" gorm:"foreignKey:ImageID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `json:"CreatedAt" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"UpdatedAt" gorm:"autoUpdateTime"`
}

// Reference returns the registry/repository:tag form of the image identity.
func (i *Image) Reference() string {
	return fmt.Sprintf("%s/%s:%s", i.Registry, i.Repository, i.Tag)
}

// VulnerabilityCounts tallies stored vulnerabilities by severity.
type VulnerabilityCounts struct {
	Critical int `json:"Critical"`
	High     int `json:"High"`
	Medium   int `json:"Medium"`
	Low      int `json:"Low"`
	Unknown  int `json:"Unknown"`
	Total    int `json:"Total"`
}

// CountVulnerabilities tallies the image's vulnerability set by severity.
func (i *Image) CountVulnerabilities() VulnerabilityCounts {
	var c VulnerabilityCounts
	for idx := range i.Vulnerabilities {
		switch i.Vulnerabilities[idx].Severity {
		case SeverityCritical:
			c.Critical++
		case SeverityHigh:
			c.High++
		case SeverityMedium:
			c.Medium++
		case SeverityLow:
			c.Low++
		default:
			c.Unknown++
		}
		c.Total++
	}
	return c
}

// JSONStringArray custom type for handling JSON serialization of string arrays.
type JSONStringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (j JSONStringArray) Value() (driver.Value, error) {
	if len(j) == 0 {
		return nil, nil // Return nil if the array is empty
	}
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface for database deserialization.
func (j *JSONStringArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("JSONStringArray Scan error: expected []byte, got %T", value)
	}
	return json.Unmarshal(b, j)
}
