package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"jitcc/internal/trace"
)

func TestParseOverridesDefaults(t *testing.T) {
	cfg, err := Parse(`
opt_level = 2
verify = false
heap_size = 4096
region_limit = 65536

[trace]
level = "detail"
output = "trace.ndjson"
`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.OptLevel != 2 || cfg.Verify || cfg.HeapSize != 4096 || cfg.RegionLimit != 65536 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.StackSize != 0 || cfg.Trace.Mode != "stream" {
		t.Fatalf("defaults lost: %+v", cfg)
	}
	tc, err := cfg.TraceConfig()
	if err != nil {
		t.Fatalf("trace config: %v", err)
	}
	if tc.Level != trace.LevelDetail || tc.Mode != trace.ModeStream || tc.OutputPath != "trace.ndjson" {
		t.Fatalf("unexpected trace config: %+v", tc)
	}
	opts := cfg.Options(trace.Nop)
	if opts.OptLevel != 2 || opts.HeapSize != 4096 || opts.RegionLimit != 65536 || opts.Tracer != trace.Nop {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestParseRejectsUnknownKeys(t *testing.T) {
	_, err := Parse("opt_level = 1\nspeed = 9\n[trace]\ncolour = true\n")
	if err == nil {
		t.Fatalf("expected unknown key error")
	}
	if !strings.Contains(err.Error(), "speed") || !strings.Contains(err.Error(), "trace.colour") {
		t.Fatalf("error does not name the keys: %v", err)
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	cfg := Default()
	cfg.OptLevel = MaxOptLevel + 1
	cfg.HeapSize = -1
	cfg.Trace.Level = "loud"
	err := cfg.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"opt_level", "heap_size", "loud"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jitcc.toml")
	if err := os.WriteFile(path, []byte("opt_level = 0\nverify = true\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("JITCC_OPT_LEVEL", "3")
	t.Setenv("JITCC_VERIFY", "false")
	t.Setenv("JITCC_TRACE_LEVEL", "phase")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.OptLevel != 3 || cfg.Verify || cfg.Trace.Level != "phase" {
		t.Fatalf("environment not applied: %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
