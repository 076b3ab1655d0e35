package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/basescout/basescout/internal/data/model"
	"github.com/basescout/basescout/internal/log"
)

// ErrNotFound is returned when no image matches the requested reference.
var ErrNotFound = errors.New("image not found")

// QueryFilter narrows an image query. All set fields are conjunctive.
type QueryFilter struct {
	// Language matches images with a detected runtime for this language.
	Language string
	// MaxVulnerabilities excludes images with more total findings. Nil
	// means no ceiling.
	MaxVulnerabilities *int
	// ZeroCriticalHigh keeps only images with no critical and no high findings.
	ZeroCriticalHigh bool
	// TextSearch matches repository or tag substrings, case-insensitively.
	TextSearch string
}

// Statistics summarizes the stored corpus.
type Statistics struct {
	TotalImages                int64            `json:"totalImages"`
	TotalPackages              int64            `json:"totalPackages"`
	AvgVulnerabilitiesPerImage float64          `json:"avgVulnerabilitiesPerImage"`
	LanguageDistribution       map[string]int64 `json:"languageDistribution"`
	ZeroVulnerabilityCount     int64            `json:"zeroVulnerabilityCount"`
}

// ImageStore defines the persistence interface for scanned image records.
type ImageStore interface {
	// Upsert inserts the record when its digest is unseen; otherwise it
	// either returns the stored record untouched (updateExisting false)
	// or atomically replaces its package/vulnerability/runtime sets.
	// The returned bool reports whether the store was modified.
	Upsert(ctx context.Context, image *model.Image, updateExisting bool) (*model.Image, bool, error)
	// FindByReference returns the most recently scanned record for the
	// given reference, or ErrNotFound.
	FindByReference(ctx context.Context, registry, repository, tag string) (*model.Image, error)
	// Query returns one page of matching records plus the total match count.
	Query(ctx context.Context, filter QueryFilter, page, pageSize int) ([]model.Image, int64, error)
	// AggregateStatistics summarizes the stored corpus.
	AggregateStatistics(ctx context.Context) (*Statistics, error)
}

// GormImageStore implements ImageStore using a GORM DB connection. The
// store serializes writers itself; callers never take external locks.
type GormImageStore struct {
	db *gorm.DB
}

// NewGormImageStore creates a new GormImageStore.
func NewGormImageStore(db *gorm.DB) (*GormImageStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	return &GormImageStore{db: db}, nil
}

// Upsert implements ImageStore.
func (s *GormImageStore) Upsert(ctx context.Context, image *model.Image, updateExisting bool) (*model.Image, bool, error) {
	if ctx == nil {
		return nil, false, fmt.Errorf("ctx cannot be nil")
	}
	if image == nil {
		return nil, false, fmt.Errorf("image cannot be nil")
	}
	logger := log.NewLogger(ctx)

	// An empty digest is no identity. Degraded scans that could not
	// resolve one are keyed by reference instead, so two digest-less
	// images are never conflated.
	lookup := s.db.WithContext(ctx)
	if image.Digest != "" {
		lookup = lookup.Where("digest = ?", image.Digest)
	} else {
		lookup = lookup.Where("digest = ? AND registry = ? AND repository = ? AND tag = ?",
			"", image.Registry, image.Repository, image.Tag)
	}

	var existing model.Image
	err := lookup.First(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if image.ScannedAt.IsZero() {
			image.ScannedAt = time.Now().UTC()
		}
		if err := s.db.WithContext(ctx).Create(image).Error; err != nil {
			return nil, false, fmt.Errorf("error inserting image: %w", err)
		}
		logger.Debug("inserted image", zap.String("digest", image.Digest), zap.String("reference", image.Reference()))
		return image, true, nil
	case err != nil:
		return nil, false, fmt.Errorf("error looking up image by digest: %w", err)
	}

	if !updateExisting {
		logger.Debug("image already stored, skipping", zap.String("digest", image.Digest))
		full, err := s.loadFull(ctx, existing.ID)
		if err != nil {
			return nil, false, err
		}
		return full, false, nil
	}

	// Replace the owned sets atomically; a crash mid-update must never
	// mix packages from one scan with vulnerabilities from another.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, child := range []interface{}{&model.Package{}, &model.Vulnerability{}, &model.LanguageRuntime{}} {
			if err := tx.Where("image_id = ?", existing.ID).Delete(child).Error; err != nil {
				return fmt.Errorf("error deleting existing children: %w", err)
			}
		}

		existing.Registry = image.Registry
		existing.Repository = image.Repository
		existing.Tag = image.Tag
		existing.SizeBytes = image.SizeBytes
		existing.ImageCreatedAt = image.ImageCreatedAt
		existing.Comprehensive = image.Comprehensive
		existing.BaseOSName = image.BaseOSName
		existing.BaseOSVersion = image.BaseOSVersion
		existing.SourceTools = image.SourceTools
		existing.ScannedAt = time.Now().UTC()
		existing.Packages = cloneForeign(image.Packages, existing.ID)
		existing.Vulnerabilities = cloneVulns(image.Vulnerabilities, existing.ID)
		existing.Runtimes = cloneRuntimes(image.Runtimes, existing.ID)

		if err := tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&existing).Error; err != nil {
			return fmt.Errorf("error updating image: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, false, fmt.Errorf("transaction failed: %w", err)
	}

	logger.Debug("updated image", zap.String("digest", image.Digest), zap.String("reference", existing.Reference()))
	full, err := s.loadFull(ctx, existing.ID)
	if err != nil {
		return nil, false, err
	}
	return full, true, nil
}

// FindByReference implements ImageStore. When a tag has moved across
// digests, the newest scan wins.
func (s *GormImageStore) FindByReference(ctx context.Context, registry, repository, tag string) (*model.Image, error) {
	var image model.Image
	err := s.db.WithContext(ctx).
		Preload("Packages").Preload("Vulnerabilities").Preload("Runtimes").
		Where("registry = ? AND repository = ? AND tag = ?", registry, repository, tag).
		Order("scanned_at DESC, id DESC").
		First(&image).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error retrieving image: %w", err)
	}
	return &image, nil
}

// Query implements ImageStore.
func (s *GormImageStore) Query(ctx context.Context, filter QueryFilter, page, pageSize int) ([]model.Image, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&model.Image{})

	if filter.Language != "" {
		query = query.Where(
			"id IN (?)",
			s.db.Model(&model.LanguageRuntime{}).Select("image_id").
				Where("LOWER(language) = ?", strings.ToLower(filter.Language)),
		)
	}
	if filter.MaxVulnerabilities != nil {
		query = query.Where(
			"(?) <= ?",
			s.db.Model(&model.Vulnerability{}).Select("COUNT(*)").
				Where("vulnerabilities.image_id = images.id"),
			*filter.MaxVulnerabilities,
		)
	}
	if filter.ZeroCriticalHigh {
		query = query.Where(
			"(?) = 0",
			s.db.Model(&model.Vulnerability{}).Select("COUNT(*)").
				Where("vulnerabilities.image_id = images.id AND severity IN ?",
					[]model.Severity{model.SeverityCritical, model.SeverityHigh}),
		)
	}
	if filter.TextSearch != "" {
		needle := "%" + strings.ToLower(filter.TextSearch) + "%"
		query = query.Where("LOWER(repository) LIKE ? OR LOWER(tag) LIKE ?", needle, needle)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting images: %w", err)
	}

	var images []model.Image
	err := query.
		Preload("Packages").Preload("Vulnerabilities").Preload("Runtimes").
		Order("registry, repository, tag").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&images).Error
	if err != nil {
		return nil, 0, fmt.Errorf("error querying images: %w", err)
	}
	return images, total, nil
}

// AggregateStatistics implements ImageStore.
func (s *GormImageStore) AggregateStatistics(ctx context.Context) (*Statistics, error) {
	stats := &Statistics{LanguageDistribution: make(map[string]int64)}
	db := s.db.WithContext(ctx)

	if err := db.Model(&model.Image{}).Count(&stats.TotalImages).Error; err != nil {
		return nil, fmt.Errorf("error counting images: %w", err)
	}
	if err := db.Model(&model.Package{}).Count(&stats.TotalPackages).Error; err != nil {
		return nil, fmt.Errorf("error counting packages: %w", err)
	}

	var totalVulns int64
	if err := db.Model(&model.Vulnerability{}).Count(&totalVulns).Error; err != nil {
		return nil, fmt.Errorf("error counting vulnerabilities: %w", err)
	}
	if stats.TotalImages > 0 {
		stats.AvgVulnerabilitiesPerImage = float64(totalVulns) / float64(stats.TotalImages)
	}

	type langCount struct {
		Language string
		Count    int64
	}
	var langs []langCount
	err := db.Model(&model.LanguageRuntime{}).
		Select("language, COUNT(DISTINCT image_id) AS count").
		Group("language").
		Scan(&langs).Error
	if err != nil {
		return nil, fmt.Errorf("error aggregating languages: %w", err)
	}
	for _, lc := range langs {
		stats.LanguageDistribution[lc.Language] = lc.Count
	}

	err = db.Model(&model.Image{}).
		Where("id NOT IN (?)", s.db.Model(&model.Vulnerability{}).Select("DISTINCT image_id")).
		Count(&stats.ZeroVulnerabilityCount).Error
	if err != nil {
		return nil, fmt.Errorf("error counting zero-vulnerability images: %w", err)
	}
	return stats, nil
}

func (s *GormImageStore) loadFull(ctx context.Context, id uint) (*model.Image, error) {
	var image model.Image
	err := s.db.WithContext(ctx).
		Preload("Packages").Preload("Vulnerabilities").Preload("Runtimes").
		First(&image, id).Error
	if err != nil {
		return nil, fmt.Errorf("error reloading image: %w", err)
	}
	return &image, nil
}

func cloneForeign(pkgs []model.Package, imageID uint) []model.Package {
	out := make([]model.Package, len(pkgs))
	for i, p := range pkgs {
		p.ID = 0
		p.ImageID = imageID
		out[i] = p
	}
	return out
}

func cloneVulns(vulns []model.Vulnerability, imageID uint) []model.Vulnerability {
	out := make([]model.Vulnerability, len(vulns))
	for i, v := range vulns {
		v.ID = 0
		v.ImageID = imageID
		out[i] = v
	}
	return out
}

func cloneRuntimes(runtimes []model.LanguageRuntime, imageID uint) []model.LanguageRuntime {
	out := make([]model.LanguageRuntime, len(runtimes))
	for i, r := range runtimes {
		r.ID = 0
		r.ImageID = imageID
		out[i] = r
	}
	return out
}
