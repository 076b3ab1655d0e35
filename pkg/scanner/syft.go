package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/basescout/basescout/pkg/types"
)

// SyftAdapter produces the SBOM for an image.
type SyftAdapter struct {
	exec    types.CommandExecutor
	timeout time.Duration
}

// NewSyftAdapter creates a SyftAdapter. A non-positive timeout falls
// back to DefaultToolTimeout.
func NewSyftAdapter(exec types.CommandExecutor, timeout time.Duration) *SyftAdapter {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &SyftAdapter{exec: exec, timeout: timeout}
}

func (a *SyftAdapter) Name() string { return "syft" }

func (a *SyftAdapter) Available() bool { return toolAvailable("syft") }

// Analyze runs `syft <ref> -o json` and decodes the SBOM.
func (a *SyftAdapter) Analyze(ctx context.Context, imageRef string) (*types.ToolResult, error) {
	args := []string{imageRef, "-o", "json", "--quiet"}
	stdout, stderr, err := a.exec.ExecuteCommandWithTimeout(ctx, a.timeout, "syft", args, nil)
	if err != nil {
		return nil, classify("syft", stderr, err)
	}

	var doc types.SyftDocument
	if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
		return nil, malformed("syft", fmt.Errorf("failed to decode SBOM: %w", err))
	}
	return &types.ToolResult{
		Tool:        "syft",
		ToolVersion: captureVersion(ctx, a.exec, "syft"),
		Syft:        &doc,
	}, nil
}
