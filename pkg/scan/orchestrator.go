// Package scan sequences the analysis tools for one image or a batch
// of tags and persists the merged records. It is the only component
// that blocks on subprocesses or cleans up pulled images.
package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/basescout/basescout/internal/data/db"
	"github.com/basescout/basescout/internal/data/model"
	"github.com/basescout/basescout/internal/log"
	"github.com/basescout/basescout/internal/metrics"
	"github.com/basescout/basescout/pkg/normalize"
	"github.com/basescout/basescout/pkg/scanner"
	"github.com/basescout/basescout/pkg/types"
)

// MetricsName is the context key of the collector the orchestrator
// records scan metrics on.
const MetricsName = "basescout"

// Options tune one scan invocation.
type Options struct {
	// Comprehensive runs the vulnerability scanners after the SBOM.
	Comprehensive bool
	// UpdateExisting replaces a stored record on digest collision
	// instead of keeping it.
	UpdateExisting bool
	// Timeout bounds one image end to end. Zero means no per-image
	// bound beyond the caller's context.
	Timeout time.Duration
	// KeepImages skips the docker cleanup after each image.
	KeepImages bool
}

// Failure is one itemized per-image failure inside a batch.
type Failure struct {
	Reference string `json:"reference"`
	Err       error  `json:"-"`
	Message   string `json:"message"`
}

// BatchResult is the outcome of a repository scan. Failures never
// abort the batch; completed records remain valid alongside them.
type BatchResult struct {
	Records  []*model.Image `json:"records"`
	Failures []Failure      `json:"failures"`
}

// Orchestrator drives the adapters and the store.
type Orchestrator struct {
	sbom     scanner.Adapter
	vuln     []scanner.Adapter
	metadata scanner.Adapter
	store    db.ImageStore
	exec     types.CommandExecutor
	registry string
}

// NewOrchestrator wires an orchestrator. The sbom adapter and store are
// required; vulnerability and metadata adapters are optional
// degradations of coverage, not of validity.
func NewOrchestrator(sbom scanner.Adapter, vuln []scanner.Adapter, metadata scanner.Adapter,
	store db.ImageStore, exec types.CommandExecutor, defaultRegistry string) (*Orchestrator, error) {
	if sbom == nil {
		return nil, errors.New("sbom adapter cannot be nil")
	}
	if store == nil {
		return nil, errors.New("store cannot be nil")
	}
	return &Orchestrator{
		sbom:     sbom,
		vuln:     vuln,
		metadata: metadata,
		store:    store,
		exec:     exec,
		registry: defaultRegistry,
	}, nil
}

// ScanImage analyzes one image reference and upserts the merged record.
// The SBOM runs first; vulnerability scanners run only for
// comprehensive scans. Missing or slow tools degrade the record; the
// scan fails only when every attempted source fails.
func (o *Orchestrator) ScanImage(ctx context.Context, rawRef string, opts Options) (*model.Image, error) {
	logger := log.NewLogger(ctx)

	ref, err := ParseReference(rawRef, o.registry)
	if err != nil {
		return nil, err
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	if !opts.KeepImages {
		defer o.removeLocalImage(ref.Name(), logger)
	}

	results, errs := o.runAdapters(ctx, ref, opts, logger)
	if len(results) == 0 {
		return nil, fmt.Errorf("all scan sources failed for %s: %w", ref.Name(), errors.Join(errs...))
	}

	image := normalize.Normalize(ref, results)
	stored, _, err := o.store.Upsert(ctx, image, opts.UpdateExisting)
	if err != nil {
		return nil, fmt.Errorf("failed to store scan for %s: %w", ref.Name(), err)
	}

	o.recordScanMetrics(ctx, stored)
	logger.Info("scan complete",
		zap.String("image", ref.Name()),
		zap.String("digest", stored.Digest),
		zap.Int("packages", len(stored.Packages)),
		zap.Int("vulnerabilities", len(stored.Vulnerabilities)),
		zap.Bool("comprehensive", stored.Comprehensive))
	return stored, nil
}

// runAdapters sequences the tools for one image. The SBOM must finish
// or definitively fail before the vulnerability scanners run, because
// their findings correlate against the package list.
func (o *Orchestrator) runAdapters(ctx context.Context, ref types.ImageReference, opts Options, logger types.Logger) ([]types.ToolResult, []error) {
	adapters := []scanner.Adapter{o.sbom}
	if opts.Comprehensive {
		adapters = append(adapters, o.vuln...)
	}
	if o.metadata != nil {
		adapters = append(adapters, o.metadata)
	}

	var results []types.ToolResult
	var errs []error
	for _, adapter := range adapters {
		result, err := adapter.Analyze(ctx, ref.Name())
		if err != nil {
			errs = append(errs, err)
			if failure, ok := scanner.AsFailure(err); ok && !failure.Kind.Fatal() {
				logger.Warn("scan source unavailable, continuing without it",
					zap.String("image", ref.Name()), zap.String("tool", adapter.Name()), zap.Error(err))
			} else {
				logger.Error("scan source failed",
					zap.String("image", ref.Name()), zap.String("tool", adapter.Name()), zap.Error(err))
			}
			continue
		}
		results = append(results, *result)
	}
	return results, errs
}

// ScanRepository scans the given tags of one repository sequentially.
// Per-image failures are collected, never propagated; cancellation is
// honored between images and already-completed records are kept.
func (o *Orchestrator) ScanRepository(ctx context.Context, repository string, tags []string, opts Options) *BatchResult {
	logger := log.NewLogger(ctx)
	result := &BatchResult{}

	for _, tag := range tags {
		if err := ctx.Err(); err != nil {
			logger.Warn("repository scan cancelled, keeping completed results",
				zap.String("repository", repository),
				zap.Int("completed", len(result.Records)), zap.Error(err))
			break
		}

		rawRef := repository + ":" + tag
		image, err := o.ScanImage(ctx, rawRef, opts)
		if err != nil {
			o.countFailure(ctx)
			result.Failures = append(result.Failures, Failure{
				Reference: rawRef,
				Err:       err,
				Message:   err.Error(),
			})
			logger.Error("image scan failed",
				zap.String("repository", repository), zap.String("tag", tag), zap.Error(err))
			continue
		}
		result.Records = append(result.Records, image)
	}

	logger.Info("repository scan finished",
		zap.String("repository", repository),
		zap.Int("scanned", len(result.Records)),
		zap.Int("failed", len(result.Failures)))
	return result
}

// removeLocalImage frees the disk the tools' pull left behind. Failure
// to clean up never fails the scan.
func (o *Orchestrator) removeLocalImage(ref string, logger types.Logger) {
	if o.exec == nil {
		return
	}
	_, stderr, err := o.exec.ExecuteCommand("docker", []string{"rmi", "-f", ref}, nil)
	if err != nil {
		logger.Debug("image cleanup skipped", zap.String("stderr", stderr), zap.Error(err))
	}
}

func (o *Orchestrator) recordScanMetrics(ctx context.Context, image *model.Image) {
	collector := metrics.FromContext(ctx, MetricsName)
	counts := image.CountVulnerabilities()
	_ = collector.AddCounter(ctx, "images_scanned_total", 1)
	for severity, count := range map[string]int{
		"critical": counts.Critical,
		"high":     counts.High,
		"medium":   counts.Medium,
		"low":      counts.Low,
	} {
		_ = collector.AddCounter(ctx, "vulnerabilities_total", float64(count), severity)
	}
}

func (o *Orchestrator) countFailure(ctx context.Context) {
	_ = metrics.FromContext(ctx, MetricsName).AddCounter(ctx, "scan_failures_total", 1)
}

// RegisterScanMetrics registers the orchestrator's counters on the
// context's collector. Safe to skip; counting against unregistered
// metrics is a no-op error the orchestrator ignores.
func RegisterScanMetrics(ctx context.Context) {
	collector := metrics.FromContext(ctx, MetricsName)
	_, _ = collector.RegisterCounter(ctx, "images_scanned_total")
	_, _ = collector.RegisterCounter(ctx, "scan_failures_total")
	_, _ = collector.RegisterCounter(ctx, "vulnerabilities_total", "severity")
}
