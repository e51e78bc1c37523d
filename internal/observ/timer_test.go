package observ

import (
	"strings"
	"testing"
)

func TestReportAggregatesByName(t *testing.T) {
	tm := NewTimer()
	a := tm.Begin("define")
	tm.End(a, "")
	b := tm.Begin("finalize")
	tm.End(b, "")
	c := tm.Begin("define")
	tm.End(c, "failed")

	r := tm.Report()
	if len(r.Phases) != 2 {
		t.Fatalf("expected 2 phases, got %d", len(r.Phases))
	}
	if p := r.Phases[0]; p.Name != "define" || p.Count != 2 || p.Failed != 1 {
		t.Fatalf("unexpected define phase: %+v", p)
	}
	if p := r.Phases[1]; p.Name != "finalize" || p.Count != 1 || p.Failed != 0 {
		t.Fatalf("unexpected finalize phase: %+v", p)
	}
	if r.TotalMS < r.Phases[0].DurationMS {
		t.Fatalf("total %f below phase %f", r.TotalMS, r.Phases[0].DurationMS)
	}
}

func TestEndIgnoresBadIndex(t *testing.T) {
	tm := NewTimer()
	tm.End(3, "x")
	tm.End(-1, "x")
	if r := tm.Report(); len(r.Phases) != 0 {
		t.Fatalf("expected empty report, got %+v", r)
	}
}

func TestSummaryAndReset(t *testing.T) {
	tm := NewTimer()
	tm.End(tm.Begin("reify"), "failed")
	s := tm.Summary()
	if !strings.Contains(s, "reify") || !strings.Contains(s, "1 failed") || !strings.Contains(s, "total") {
		t.Fatalf("unexpected summary:\n%s", s)
	}
	tm.Reset()
	if r := tm.Report(); len(r.Phases) != 0 {
		t.Fatalf("reset kept phases: %+v", r)
	}
}
