package semver

import "testing"

func TestMatches(t *testing.T) {
	tests := []struct {
		name        string
		version     string
		requirement string
		want        bool
	}{
		{"exact", "3.12.4", "3.12.4", true},
		{"exact mismatch", "3.12.4", "3.12.5", false},
		{"prefix major.minor", "3.12.4", "3.12", true},
		{"prefix major only", "3.12.4", "3", true},
		{"prefix not at boundary", "3.120.0", "3.12", false},
		{"prefix with v", "v20.11.0", "20.11", true},
		{"range satisfied", "3.12.4", ">=3.11, <3.13", true},
		{"range excluded", "3.10.0", ">=3.11, <3.13", false},
		{"caret range", "20.11.0", "^20.10", true},
		{"range against junk version", "unknown", ">=3.11", false},
		{"range with distro revision", "3.11.2-1+deb12u1", ">=3.11", true},
		{"range with distro revision excluded", "3.11.2-1+deb12u1", ">=3.12", false},
		{"range with alpine revision", "20.10.5-r0", "^20.10", true},
		{"empty requirement matches anything", "whatever", "", true},
		{"exact on unparsable version", "jdk-17+35", "jdk-17+35", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.version, tt.requirement); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.version, tt.requirement, got, tt.want)
			}
		})
	}
}

func TestMajorMinor(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"3.12.4", "3.12"},
		{"3.12", "3.12"},
		{"20", "20"},
		{"v1.21.5", "1.21"},
		{"1.2-rc1", "1.2"},
		{"2:4.17-1", "4.17"},
		{"garbage", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := MajorMinor(tt.version); got != tt.want {
			t.Errorf("MajorMinor(%q) = %q, want %q", tt.version, got, tt.want)
		}
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.0.0", "2.0.0", -1},
		{"2.0.0", "1.0.0", 1},
		{"1.0.0", "1.0.0", 0},
		{"v1.2.3", "1.2.3", 0},
		{"junk", "1.0.0", -1},
		{"junk", "alsojunk", 0},
	}
	for _, tt := range tests {
		got := Compare(tt.a, tt.b)
		if (got < 0) != (tt.want < 0) || (got > 0) != (tt.want > 0) {
			t.Errorf("Compare(%q, %q) = %d, want sign of %d", tt.a, tt.b, got, tt.want)
		}
	}
}
