package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"

	"jitcc/internal/artifact"
	"jitcc/internal/config"
	"jitcc/internal/engine"
)

func requireExec(t *testing.T) {
	t.Helper()
	if !engine.CanExecute() {
		t.Skip("generated code cannot run on this host")
	}
}

func TestCatalogProducesExpectedValues(t *testing.T) {
	requireExec(t)
	for i := range catalog {
		s := &catalog[i]
		t.Run(s.name, func(t *testing.T) {
			o := runSample(context.Background(), config.Default(), s)
			if o.err != nil {
				t.Fatalf("run: %v", o.err)
			}
			if o.got != s.want {
				t.Fatalf("%s = %d, want %d", s.name, o.got, s.want)
			}
			if !strings.Contains(o.timings, "reify") {
				t.Fatalf("timings miss reify:\n%s", o.timings)
			}
		})
	}
}

func TestCatalogWithoutOptimization(t *testing.T) {
	requireExec(t)
	cfg := config.Default()
	cfg.OptLevel = 0
	for i := range catalog {
		if o := runSample(context.Background(), cfg, &catalog[i]); !o.ok() {
			t.Fatalf("%s at opt level 0: got %d, err %v", catalog[i].name, o.got, o.err)
		}
	}
}

func TestSampleNames(t *testing.T) {
	seen := make(map[string]bool)
	for _, s := range catalog {
		if seen[s.name] {
			t.Fatalf("duplicate sample %q", s.name)
		}
		seen[s.name] = true
	}
	if _, err := findSample("nope"); err == nil || !strings.Contains(err.Error(), "answer") {
		t.Fatalf("unknown sample error should list known names, got %v", err)
	}
	all, err := selectSamples(nil)
	if err != nil || len(all) != len(catalog) {
		t.Fatalf("select all: %d samples, %v", len(all), err)
	}
}

func TestCodeArtifacts(t *testing.T) {
	requireExec(t)
	s, err := findSample("fact")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	c, err := newCompiler(context.Background(), config.Default())
	if err != nil {
		t.Fatalf("compiler: %v", err)
	}
	defer c.Close()

	arts, err := collectArtifacts(c, s, true)
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if _, ok := arts[0].Lookup("fact"); !ok {
		t.Fatalf("image artifact lacks fact: %+v", arts[0].Symbols)
	}

	dir := filepath.Join(t.TempDir(), "images")
	if err := writeArtifacts(dir, true, arts); err != nil {
		t.Fatalf("write: %v", err)
	}
	back, err := artifact.ReadFile(filepath.Join(dir, arts[0].Name+".mp"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if !bytes.Equal(back.Code, arts[0].Code) {
		t.Fatalf("code changed on disk")
	}

	color.NoColor = true
	var out bytes.Buffer
	if err := writeHex(&out, arts); err != nil {
		t.Fatalf("hex: %v", err)
	}
	if !strings.Contains(out.String(), "fact") || !strings.Contains(out.String(), "00000000  55 48 89 e5") {
		t.Fatalf("unexpected hex dump:\n%s", out.String())
	}
}

func TestVersionJSON(t *testing.T) {
	var out bytes.Buffer
	if err := renderVersionJSON(&out, true); err != nil {
		t.Fatalf("render: %v", err)
	}
	var payload versionPayload
	if err := json.Unmarshal(out.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Tool != "jitcc" || payload.Version == "" || payload.GitCommit == "" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}
