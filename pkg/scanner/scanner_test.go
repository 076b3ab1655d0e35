package scanner

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeExecutor replays canned responses keyed on the command name and
// first argument.
type fakeExecutor struct {
	responses map[string]fakeResponse
	calls     []string
}

type fakeResponse struct {
	stdout string
	stderr string
	err    error
}

func (f *fakeExecutor) key(name string, args []string) string {
	if len(args) > 0 {
		return name + " " + args[0]
	}
	return name
}

func (f *fakeExecutor) ExecuteCommand(name string, args, _ []string) (string, string, error) {
	k := f.key(name, args)
	f.calls = append(f.calls, k)
	r := f.responses[k]
	return r.stdout, r.stderr, r.err
}

func (f *fakeExecutor) ExecuteCommandWithTimeout(_ context.Context, _ time.Duration, name string, args, env []string) (string, string, error) {
	return f.ExecuteCommand(name, args, env)
}

const syftOutput = `{
	"distro": {"name": "debian", "version": "12"},
	"artifacts": [
		{"name": "openssl", "version": "3.0.11", "type": "deb", "purl": "pkg:deb/debian/openssl@3.0.11"},
		{"name": "pip", "version": "24.0", "type": "python", "purl": "pkg:pypi/pip@24.0"}
	]
}`

func TestSyftAdapterAnalyze(t *testing.T) {
	t.Parallel()
	fake := &fakeExecutor{responses: map[string]fakeResponse{
		"syft docker.io/library/python:3.12": {stdout: syftOutput},
		"syft --version":                     {stdout: "syft 1.14.0"},
	}}
	adapter := NewSyftAdapter(fake, 0)

	result, err := adapter.Analyze(context.Background(), "docker.io/library/python:3.12")
	require.NoError(t, err)
	require.Equal(t, "syft", result.Tool)
	require.Equal(t, "1.14.0", result.ToolVersion)
	require.NotNil(t, result.Syft)
	require.Nil(t, result.Trivy)
	require.Equal(t, "debian", result.Syft.Distro.Name)
	require.Len(t, result.Syft.Artifacts, 2)
}

func TestSyftAdapterMalformedOutput(t *testing.T) {
	t.Parallel()
	fake := &fakeExecutor{responses: map[string]fakeResponse{
		"syft ref": {stdout: "not json at all"},
	}}
	adapter := NewSyftAdapter(fake, 0)

	_, err := adapter.Analyze(context.Background(), "ref")
	failure, ok := AsFailure(err)
	require.True(t, ok)
	require.Equal(t, KindMalformedOutput, failure.Kind)
	require.Equal(t, "syft", failure.Tool)
}

func TestAdapterClassifiesNotInstalled(t *testing.T) {
	t.Parallel()
	fake := &fakeExecutor{responses: map[string]fakeResponse{
		"grype ref": {err: fmt.Errorf("command not found: %w", exec.ErrNotFound)},
	}}
	adapter := NewGrypeAdapter(fake, 0)

	_, err := adapter.Analyze(context.Background(), "ref")
	failure, ok := AsFailure(err)
	require.True(t, ok)
	require.Equal(t, KindToolNotInstalled, failure.Kind)
	require.False(t, failure.Kind.Fatal())
}

func TestAdapterClassifiesTimeout(t *testing.T) {
	t.Parallel()
	fake := &fakeExecutor{responses: map[string]fakeResponse{
		"trivy image": {err: fmt.Errorf("command timed out: %w", context.DeadlineExceeded)},
	}}
	adapter := NewTrivyAdapter(fake, time.Second)

	_, err := adapter.Analyze(context.Background(), "ref")
	failure, ok := AsFailure(err)
	require.True(t, ok)
	require.Equal(t, KindToolTimeout, failure.Kind)
	require.False(t, failure.Kind.Fatal())
}

func TestAdapterClassifiesNonZeroExit(t *testing.T) {
	t.Parallel()
	fake := &fakeExecutor{responses: map[string]fakeResponse{
		"syft ref": {stderr: "image not found\nmore context", err: errors.New("exit status 1")},
	}}
	adapter := NewSyftAdapter(fake, 0)

	_, err := adapter.Analyze(context.Background(), "ref")
	failure, ok := AsFailure(err)
	require.True(t, ok)
	require.Equal(t, KindToolNonZeroExit, failure.Kind)
	require.True(t, failure.Kind.Fatal())
	require.Contains(t, failure.Error(), "image not found")
	require.NotContains(t, failure.Error(), "more context")
}

func TestInspectAdapterAnalyze(t *testing.T) {
	t.Parallel()
	inspectOutput := `[{
		"Id": "sha256:abc",
		"Created": "2024-05-01T10:00:00Z",
		"Architecture": "amd64",
		"Os": "linux",
		"Size": 125829120,
		"RepoDigests": ["library/python@sha256:def"],
		"RootFS": {"Layers": ["sha256:l1", "sha256:l2"]}
	}]`
	fake := &fakeExecutor{responses: map[string]fakeResponse{
		"docker pull":      {},
		"docker inspect":   {stdout: inspectOutput},
		"docker --version": {stdout: "Docker version 27.1.1, build 6312585"},
	}}
	adapter := NewInspectAdapter(fake, 0)

	result, err := adapter.Analyze(context.Background(), "library/python:3.12")
	require.NoError(t, err)
	require.Equal(t, "docker-inspect", result.Tool)
	require.Equal(t, "27.1.1", result.ToolVersion)
	require.NotNil(t, result.Inspect)
	require.EqualValues(t, 125829120, result.Inspect.Size)
	require.Equal(t, "amd64", result.Inspect.Architecture)
}

func TestInspectAdapterEmptyArray(t *testing.T) {
	t.Parallel()
	fake := &fakeExecutor{responses: map[string]fakeResponse{
		"docker inspect": {stdout: "[]"},
	}}
	adapter := NewInspectAdapter(fake, 0)

	_, err := adapter.Analyze(context.Background(), "ref")
	failure, ok := AsFailure(err)
	require.True(t, ok)
	require.Equal(t, KindMalformedOutput, failure.Kind)
}

func TestGrypeAdapterAnalyze(t *testing.T) {
	t.Parallel()
	grypeOutput := `{
		"descriptor": {"timestamp": "2024-05-01T10:00:00Z"},
		"matches": [{
			"vulnerability": {"id": "CVE-2024-0001", "severity": "High", "description": "", "fix": {"versions": ["3.0.12"]}},
			"artifact": {"name": "openssl", "version": "3.0.11", "type": "deb", "purl": "pkg:deb/debian/openssl@3.0.11"}
		}]
	}`
	fake := &fakeExecutor{responses: map[string]fakeResponse{
		"grype ref":       {stdout: grypeOutput},
		"grype --version": {stdout: "grype 0.80.0"},
	}}
	adapter := NewGrypeAdapter(fake, 0)

	result, err := adapter.Analyze(context.Background(), "ref")
	require.NoError(t, err)
	require.Len(t, result.Grype.Matches, 1)
	require.Equal(t, "CVE-2024-0001", result.Grype.Matches[0].Vulnerability.ID)
	require.Equal(t, []string{"3.0.12"}, result.Grype.Matches[0].Vulnerability.Fix.Versions)
}

func TestAvailableUsesLookPath(t *testing.T) {
	orig := lookPath
	defer func() { lookPath = orig }()

	lookPath = func(name string) (string, error) {
		if name == "syft" {
			return "/usr/bin/syft", nil
		}
		return "", exec.ErrNotFound
	}

	require.True(t, NewSyftAdapter(&fakeExecutor{}, 0).Available())
	require.False(t, NewTrivyAdapter(&fakeExecutor{}, 0).Available())
	require.False(t, NewGrypeAdapter(&fakeExecutor{}, 0).Available())
	require.False(t, NewInspectAdapter(&fakeExecutor{}, 0).Available())
}

func TestExtractVersion(t *testing.T) {
	t.Parallel()
	tests := []struct {
		banner string
		want   string
	}{
		{"syft 1.14.0", "1.14.0"},
		{"Docker version 27.1.1, build 6312585", "27.1.1"},
		{"Version: 0.55.2\nVulnerability DB: ...", "0.55.2"},
		{"grype v0.80.0", "0.80.0"},
		{"no digits here", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := extractVersion(tt.banner); got != tt.want {
			t.Errorf("extractVersion(%q) = %q, want %q", tt.banner, got, tt.want)
		}
	}
}

func TestFailureErrorMessage(t *testing.T) {
	t.Parallel()
	f := &Failure{Tool: "trivy", Kind: KindToolTimeout, Err: context.DeadlineExceeded}
	require.True(t, strings.HasPrefix(f.Error(), "trivy: tool timed out"))
	require.ErrorIs(t, f, context.DeadlineExceeded)
}
