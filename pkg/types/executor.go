package types

import (
	"context"
	"time"
)

// CommandExecutor is an interface for executing external commands.
type CommandExecutor interface {
	// ExecuteCommand executes a command with the given name, arguments, and environment variables.
	// It returns the standard output, standard error, and any error that occurred during execution.
	ExecuteCommand(name string, args []string, env []string) (stdout string, stderr string, err error)
	// ExecuteCommandWithTimeout is like ExecuteCommand but enforces a wall-clock deadline.
	// The context bounds the whole invocation; the timeout applies on top of it.
	ExecuteCommandWithTimeout(ctx context.Context, timeout time.Duration,
		name string, args []string, env []string) (stdout string, stderr string, err error)
}
