package scan

import (
	"testing"

	"github.com/basescout/basescout/pkg/types"
)

func TestParseReference(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		raw     string
		want    types.ImageReference
		wantErr bool
	}{
		{
			name: "bare repository",
			raw:  "library/python:3.12-slim",
			want: types.ImageReference{Registry: "docker.io", Repository: "library/python", Tag: "3.12-slim"},
		},
		{
			name: "no tag defaults to latest",
			raw:  "library/alpine",
			want: types.ImageReference{Registry: "docker.io", Repository: "library/alpine", Tag: "latest"},
		},
		{
			name: "explicit registry kept",
			raw:  "ghcr.io/org/app:v2",
			want: types.ImageReference{Registry: "ghcr.io", Repository: "org/app", Tag: "v2"},
		},
		{
			name: "explicit default registry not canonicalized away",
			raw:  "docker.io/library/python:3.12",
			want: types.ImageReference{Registry: "docker.io", Repository: "library/python", Tag: "3.12"},
		},
		{
			name: "canonical alias maps back to the configured default",
			raw:  "index.docker.io/library/python:3.12",
			want: types.ImageReference{Registry: "docker.io", Repository: "library/python", Tag: "3.12"},
		},
		{
			name: "registry with port",
			raw:  "localhost:5000/team/api:v1",
			want: types.ImageReference{Registry: "localhost:5000", Repository: "team/api", Tag: "v1"},
		},
		{
			name:    "invalid reference",
			raw:     "UPPERCASE/Repo:tag",
			wantErr: true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseReference(tt.raw, "docker.io")
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseReference(%q) expected error, got %+v", tt.raw, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseReference(%q) error = %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("ParseReference(%q) = %+v, want %+v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestImageReferenceName(t *testing.T) {
	t.Parallel()
	ref := types.ImageReference{Registry: "docker.io", Repository: "library/python", Tag: "3.12"}
	if got := ref.Name(); got != "docker.io/library/python:3.12" {
		t.Errorf("Name() = %q", got)
	}
}
