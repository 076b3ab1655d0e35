// Package scanner wraps the external analysis tools behind a common
// adapter interface and classifies their failures.
package scanner

import (
	"errors"
	"fmt"
	"strings"

	"github.com/basescout/basescout/internal/executor"
)

// Kind classifies why a tool invocation produced no usable result.
type Kind int

const (
	// KindToolNotInstalled means the tool binary was not found on PATH.
	KindToolNotInstalled Kind = iota
	// KindToolTimeout means the invocation exceeded its time budget.
	KindToolTimeout
	// KindToolNonZeroExit means the tool ran and reported failure.
	KindToolNonZeroExit
	// KindMalformedOutput means the tool exited zero but its output
	// could not be decoded.
	KindMalformedOutput
)

func (k Kind) String() string {
	switch k {
	case KindToolNotInstalled:
		return "tool not installed"
	case KindToolTimeout:
		return "tool timed out"
	case KindToolNonZeroExit:
		return "tool exited non-zero"
	case KindMalformedOutput:
		return "malformed tool output"
	default:
		return "unknown failure"
	}
}

// Fatal reports whether the failure is unrecoverable for the current
// scan. Missing or slow tools degrade the result; bad exits and
// undecodable output mean the tool's contribution is lost entirely too,
// but callers may want to distinguish environment problems from tool
// problems.
func (k Kind) Fatal() bool {
	return k == KindToolNonZeroExit || k == KindMalformedOutput
}

// Failure is the error type returned by adapters.
type Failure struct {
	Tool   string
	Kind   Kind
	Stderr string
	Err    error
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s: %s", f.Tool, f.Kind)
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	if s := strings.TrimSpace(f.Stderr); s != "" {
		msg += fmt.Sprintf(" (stderr: %s)", firstLine(s))
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure extracts a *Failure from an error chain.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}

// classify maps an executor error onto the failure taxonomy.
func classify(tool, stderr string, err error) *Failure {
	f := &Failure{Tool: tool, Stderr: stderr, Err: err}
	switch {
	case executor.IsNotInstalled(err):
		f.Kind = KindToolNotInstalled
	case executor.IsTimeout(err):
		f.Kind = KindToolTimeout
	default:
		f.Kind = KindToolNonZeroExit
	}
	return f
}

func malformed(tool string, err error) *Failure {
	return &Failure{Tool: tool, Kind: KindMalformedOutput, Err: err}
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
