package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	if LevelPhase.ShouldEmit(ScopeFunction) {
		t.Fatalf("phase level must drop function events")
	}
	if !LevelPhase.ShouldEmit(ScopeUnit) || !LevelDetail.ShouldEmit(ScopeFunction) {
		t.Fatalf("coarser scopes must pass")
	}
	if LevelOff.ShouldEmit(ScopeSession) {
		t.Fatalf("off emits nothing")
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)
	root := Begin(tr, ScopeUnit, "finalize", 0)
	child := Begin(tr, ScopeFunction, "emit:sum", root.ID()).WithExtra("bytes", "64")
	Begin(tr, ScopeInstr, "ignored", child.ID())
	child.End("")
	root.End("unit #1")
	out := buf.String()
	for _, want := range []string{"→ finalize", "  → emit:sum", "← emit:sum {bytes=64}", "← finalize (unit #1)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in:\n%s", want, out)
		}
	}
	if strings.Contains(out, "ignored") {
		t.Fatalf("instr scope leaked at detail level")
	}
}

func TestStreamTracerChromeIsValidJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatChrome)
	Begin(tr, ScopeSession, "run", 0).End("ok")
	Point(tr, ScopeUnit, "release", "unit #2")
	if err := tr.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	var doc struct {
		TraceEvents []map[string]any `json:"traceEvents"`
	}
	if err := json.Unmarshal(buf.Bytes(), &doc); err != nil {
		t.Fatalf("invalid chrome trace: %v\n%s", err, buf.String())
	}
	if len(doc.TraceEvents) != 3 {
		t.Fatalf("expected 3 events, got %d", len(doc.TraceEvents))
	}
	if doc.TraceEvents[0]["ph"] != "B" || doc.TraceEvents[2]["ph"] != "i" {
		t.Fatalf("unexpected phases: %v", doc.TraceEvents)
	}
}

func TestRingTracerKeepsNewest(t *testing.T) {
	r := NewRingTracer(2, LevelDebug)
	for _, name := range []string{"a", "b", "c"} {
		Point(r, ScopeUnit, name, "")
	}
	evs := r.Snapshot()
	if len(evs) != 2 || evs[0].Name != "b" || evs[1].Name != "c" {
		t.Fatalf("unexpected snapshot %+v", evs)
	}
	var buf bytes.Buffer
	if err := r.Dump(&buf, FormatNDJSON); err != nil {
		t.Fatalf("dump: %v", err)
	}
	if strings.Count(buf.String(), "\n") != 2 {
		t.Fatalf("expected two lines, got %q", buf.String())
	}
}

func TestNewPicksTracer(t *testing.T) {
	tr, err := New(Config{Level: LevelOff})
	if err != nil || tr.Enabled() {
		t.Fatalf("off level must give a disabled tracer")
	}
	var buf bytes.Buffer
	tr, err = New(Config{Level: LevelPhase, Mode: ModeBoth, Output: &buf})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	m, ok := tr.(*MultiTracer)
	if !ok || m.Ring() == nil {
		t.Fatalf("both mode must include a ring tracer")
	}
	Point(tr, ScopeSession, "hello", "")
	if !strings.Contains(buf.String(), "hello") || len(m.Ring().Snapshot()) != 1 {
		t.Fatalf("event must reach both tracers")
	}
}

func TestContextPropagation(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("default tracer must be Nop")
	}
	r := NewRingTracer(8, LevelDebug)
	ctx := WithTracer(context.Background(), r)
	span := Begin(FromContext(ctx), ScopeSession, "root", 0)
	ctx = WithSpan(ctx, span)
	if CurrentSpan(ctx) != span.ID() {
		t.Fatalf("span id not propagated")
	}
}
