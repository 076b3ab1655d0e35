package scanner

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/basescout/basescout/pkg/types"
)

// InspectAdapter reads low-level image metadata with `docker inspect`.
type InspectAdapter struct {
	exec    types.CommandExecutor
	timeout time.Duration
}

// NewInspectAdapter creates an InspectAdapter. A non-positive timeout
// falls back to DefaultToolTimeout.
func NewInspectAdapter(exec types.CommandExecutor, timeout time.Duration) *InspectAdapter {
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	return &InspectAdapter{exec: exec, timeout: timeout}
}

func (a *InspectAdapter) Name() string { return "docker-inspect" }

func (a *InspectAdapter) Available() bool { return toolAvailable("docker") }

// Analyze pulls the image if needed and decodes `docker inspect`. The
// inspect output is a one-element JSON array.
func (a *InspectAdapter) Analyze(ctx context.Context, imageRef string) (*types.ToolResult, error) {
	// Inspect only sees local images; a failed pull surfaces as the
	// inspect error below for images that are already present.
	_, _, _ = a.exec.ExecuteCommandWithTimeout(ctx, a.timeout, "docker", []string{"pull", imageRef}, nil)

	stdout, stderr, err := a.exec.ExecuteCommandWithTimeout(ctx, a.timeout, "docker", []string{"inspect", imageRef}, nil)
	if err != nil {
		return nil, classify("docker-inspect", stderr, err)
	}

	var infos []types.InspectInfo
	if err := json.Unmarshal([]byte(stdout), &infos); err != nil {
		return nil, malformed("docker-inspect", fmt.Errorf("failed to decode inspect output: %w", err))
	}
	if len(infos) != 1 {
		return nil, malformed("docker-inspect", fmt.Errorf("expected one inspect entry, got %d", len(infos)))
	}
	return &types.ToolResult{
		Tool:        "docker-inspect",
		ToolVersion: captureVersion(ctx, a.exec, "docker"),
		Inspect:     &infos[0],
	}, nil
}
