package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/basescout/basescout/pkg/types"
)

// TrivyAdapter runs the trivy vulnerability scanner.
type TrivyAdapter struct {
	exec    types.CommandExecutor
	timeout time.Duration
}

// NewTrivyAdapter creates a TrivyAdapter. A non-positive timeout falls
// back to DefaultToolTimeout.
func NewTrivyAdapter(exec types.CommandExecutor, timeout time.Duration) *TrivyAdapter {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &TrivyAdapter{exec: exec, timeout: timeout}
}

func (a *TrivyAdapter) Name() string { return "trivy" }

func (a *TrivyAdapter) Available() bool { return toolAvailable("trivy") }

// Analyze runs `trivy image --format json --scanners vuln` with the
// report written to a temporary file. The file is removed on all paths.
func (a *TrivyAdapter) Analyze(ctx context.Context, imageRef string) (*types.ToolResult, error) {
	dir, err := os.MkdirTemp("", "trivy-scan-*")
	if err != nil {
		return nil, malformed("trivy", fmt.Errorf("failed to create temp dir: %w", err))
	}
	defer os.RemoveAll(dir)
	reportPath := filepath.Join(dir, "report.json")

	args := []string{
		"image",
		"--format", "json",
		"--scanners", "vuln",
		"--output", reportPath,
		imageRef,
	}
	_, stderr, err := a.exec.ExecuteCommandWithTimeout(ctx, a.timeout, "trivy", args, nil)
	if err != nil {
		return nil, classify("trivy", stderr, err)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		return nil, malformed("trivy", fmt.Errorf("failed to read report: %w", err))
	}
	var report types.TrivyReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, malformed("trivy", fmt.Errorf("failed to decode report: %w", err))
	}
	return &types.ToolResult{
		Tool:        "trivy",
		ToolVersion: captureVersion(ctx, a.exec, "trivy"),
		Trivy:       &report,
	}, nil
}
