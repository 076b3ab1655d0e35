package scanner

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/basescout/basescout/pkg/types"
)

// DefaultToolTimeout bounds a single tool invocation when the caller
// does not override it.
const DefaultToolTimeout = 5 * time.Minute

// Adapter runs one external analysis tool against an image reference.
type Adapter interface {
	// Name returns the tool's binary name.
	Name() string
	// Available reports whether the tool is installed.
	Available() bool
	// Analyze runs the tool and decodes its output. Errors are
	// *Failure values.
	Analyze(ctx context.Context, imageRef string) (*types.ToolResult, error)
}

// lookPath is swapped in tests.
var lookPath = exec.LookPath

func toolAvailable(name string) bool {
	_, err := lookPath(name)
	return err == nil
}

// captureVersion asks the tool for its version. Failures are ignored;
// provenance just goes without a version.
func captureVersion(ctx context.Context, exec types.CommandExecutor, tool string) string {
	stdout, _, err := exec.ExecuteCommandWithTimeout(ctx, 10*time.Second, tool, []string{"--version"}, nil)
	if err != nil {
		return ""
	}
	return extractVersion(stdout)
}

// extractVersion pulls the first version-shaped token out of a
// "--version" banner like "syft 1.14.0" or "Docker version 27.1.1, build ...".
func extractVersion(banner string) string {
	for _, field := range strings.Fields(firstLine(strings.TrimSpace(banner))) {
		field = strings.Trim(field, "v,")
		if field == "" || field[0] < '0' || field[0] > '9' {
			continue
		}
		if strings.Contains(field, ".") {
			return field
		}
	}
	return ""
}
