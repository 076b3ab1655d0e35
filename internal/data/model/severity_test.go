package model

import "testing"

func TestParseSeverity(t *testing.T) {
	testCases := []struct {
		in   string
		want Severity
	}{
		{"CRITICAL", SeverityCritical},
		{"High", SeverityHigh},
		{"medium", SeverityMedium},
		{"Moderate", SeverityMedium},
		{"low", SeverityLow},
		{"Negligible", SeverityLow},
		{"", SeverityUnknown},
		{"wat", SeverityUnknown},
		{"  High  ", SeverityHigh},
	}
	for _, tc := range testCases {
		if got := ParseSeverity(tc.in); got != tc.want {
			t.Errorf("ParseSeverity(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestSeverityMax(t *testing.T) {
	if got := SeverityHigh.Max(SeverityCritical); got != SeverityCritical {
		t.Errorf("high.Max(critical) = %q, want critical", got)
	}
	if got := SeverityCritical.Max(SeverityHigh); got != SeverityCritical {
		t.Errorf("critical.Max(high) = %q, want critical", got)
	}
	if got := SeverityUnknown.Max(SeverityLow); got != SeverityLow {
		t.Errorf("unknown.Max(low) = %q, want low", got)
	}
}

func TestSeverityRankOrdering(t *testing.T) {
	order := []Severity{SeverityUnknown, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i := 1; i < len(order); i++ {
		if order[i-1].Rank() >= order[i].Rank() {
			t.Errorf("expected %q to rank below %q", order[i-1], order[i])
		}
	}
}
