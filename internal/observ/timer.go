package observ

import (
	"fmt"
	"strings"
	"time"
)

// Phase records one run of a named compiler phase.
type Phase struct {
	Name  string
	Start time.Time
	Dur   time.Duration
	Note  string
}

// Timer tracks compiler phases. Phases with the same name are reported
// together.
type Timer struct {
	phases []Phase
}

// NewTimer creates a new empty Timer.
func NewTimer() *Timer { return &Timer{phases: make([]Phase, 0, 8)} }

// Begin starts a new phase and returns its index.
func (t *Timer) Begin(name string) int {
	t.phases = append(t.phases, Phase{Name: name, Start: time.Now()})
	return len(t.phases) - 1
}

// End finishes a phase by its index.
func (t *Timer) End(idx int, note string) {
	if idx < 0 || idx >= len(t.phases) {
		return
	}
	p := &t.phases[idx]
	p.Dur = time.Since(p.Start)
	p.Note = note
}

// Reset forgets every phase.
func (t *Timer) Reset() {
	t.phases = t.phases[:0]
}

// Summary returns a human-readable string summarizing all tracked phases.
func (t *Timer) Summary() string {
	report := t.Report()
	var sb strings.Builder
	sb.WriteString("timings:\n")
	for _, p := range report.Phases {
		fmt.Fprintf(&sb, "  %-20s %7.2f ms  x%d", p.Name, p.DurationMS, p.Count)
		if p.Failed > 0 {
			fmt.Fprintf(&sb, "  // %d failed", p.Failed)
		}
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "  %-20s %7.2f ms\n", "total", report.TotalMS)
	return sb.String()
}

// PhaseReport is the aggregate of every run of one phase.
type PhaseReport struct {
	Name       string  `json:"name" msgpack:"name"`
	DurationMS float64 `json:"duration_ms" msgpack:"duration_ms"`
	Count      int     `json:"count" msgpack:"count"`
	Failed     int     `json:"failed,omitempty" msgpack:"failed,omitempty"`
}

// Report lists phases in order of first appearance.
type Report struct {
	TotalMS float64       `json:"total_ms" msgpack:"total_ms"`
	Phases  []PhaseReport `json:"phases" msgpack:"phases"`
}

// Report aggregates the tracked phases by name. A phase ended with a
// non-empty note counts as failed.
func (t *Timer) Report() Report {
	if len(t.phases) == 0 {
		return Report{}
	}
	var (
		report Report
		total  time.Duration
		byName = make(map[string]int)
	)
	for _, phase := range t.phases {
		total += phase.Dur
		i, ok := byName[phase.Name]
		if !ok {
			i = len(report.Phases)
			byName[phase.Name] = i
			report.Phases = append(report.Phases, PhaseReport{Name: phase.Name})
		}
		p := &report.Phases[i]
		p.DurationMS += durationToMillis(phase.Dur)
		p.Count++
		if phase.Note != "" {
			p.Failed++
		}
	}
	report.TotalMS = durationToMillis(total)
	return report
}

func durationToMillis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
