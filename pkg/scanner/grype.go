package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/basescout/basescout/pkg/types"
)

// GrypeAdapter runs the grype vulnerability scanner.
type GrypeAdapter struct {
	exec    types.CommandExecutor
	timeout time.Duration
}

// NewGrypeAdapter creates a GrypeAdapter. A non-positive timeout falls
// back to DefaultToolTimeout.
func NewGrypeAdapter(exec types.CommandExecutor, timeout time.Duration) *GrypeAdapter {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &GrypeAdapter{exec: exec, timeout: timeout}
}

func (a *GrypeAdapter) Name() string { return "grype" }

func (a *GrypeAdapter) Available() bool { return toolAvailable("grype") }

// Analyze runs `grype <ref> -o json` and decodes the matches.
func (a *GrypeAdapter) Analyze(ctx context.Context, imageRef string) (*types.ToolResult, error) {
	args := []string{imageRef, "-o", "json", "--quiet"}
	stdout, stderr, err := a.exec.ExecuteCommandWithTimeout(ctx, a.timeout, "grype", args, nil)
	if err != nil {
		return nil, classify("grype", stderr, err)
	}

	var doc types.GrypeDocument
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		return nil, malformed("grype", fmt.Errorf("failed to decode matches: %w", err))
	}
	return &types.ToolResult{
		Tool:        "grype",
		ToolVersion: captureVersion(ctx, a.exec, "grype"),
		Grype:       &doc,
	}, nil
}
