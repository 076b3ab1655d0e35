package executor

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"time"

	"github.com/basescout/basescout/pkg/types"
)

// RealCommandExecutor is a struct that implements the CommandExecutor interface.
type RealCommandExecutor struct {
	ctx context.Context
}

// NewCommandExecutor creates a new instance of the RealCommandExecutor.
func NewCommandExecutor(ctx context.Context) types.CommandExecutor {
	return &RealCommandExecutor{ctx: ctx}
}

// ExecuteCommand executes a command and returns the stdout, stderr, and error.
func (r *RealCommandExecutor) ExecuteCommand(name string, args []string,
	env []string) (stdout string, stderr string, err error) {
	return run(exec.CommandContext(r.ctx, name, args...), env)
}

// ExecuteCommandWithTimeout executes a command under the given wall-clock
// deadline. A timeout of zero means no additional deadline beyond ctx.
func (r *RealCommandExecutor) ExecuteCommandWithTimeout(ctx context.Context, timeout time.Duration,
	name string, args []string, env []string) (stdout string, stderr string, err error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	stdout, stderr, err = run(exec.CommandContext(ctx, name, args...), env)
	if err != nil && ctx.Err() != nil {
		// The deadline fired; surface that instead of the kill-induced exit error.
		err = ctx.Err()
	}
	return stdout, stderr, err
}

func run(cmd *exec.Cmd, env []string) (string, string, error) {
	cmd.Env = env
	var outb, errb bytes.Buffer
	cmd.Stdout = &outb
	cmd.Stderr = &errb
	err := cmd.Run()
	return outb.String(), errb.String(), err
}

// IsNotInstalled reports whether err indicates the command binary was
// not found on PATH.
func IsNotInstalled(err error) bool {
	return errors.Is(err, exec.ErrNotFound)
}

// IsTimeout reports whether err indicates the command was killed by a
// context deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

// ExitCode returns the process exit code carried by err, or -1 when err
// does not wrap an *exec.ExitError.
func ExitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
