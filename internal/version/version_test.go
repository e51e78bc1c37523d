package version

import (
	"testing"

	"github.com/fatih/color"
)

func TestVersionDefault(t *testing.T) {
	if Version == "" {
		t.Fatalf("Version should have a default value")
	}
}

func TestColoredPlainWhenColorDisabled(t *testing.T) {
	orig, origNoColor := Version, color.NoColor
	t.Cleanup(func() { Version, color.NoColor = orig, origNoColor })
	color.NoColor = true

	cases := map[string]string{
		"1.2.3":                "1.2.3",
		"0.1.0-dev":            "0.1.0-dev",
		"1.2.3-rc.1+build.123": "1.2.3-rc.1+build.123",
		"dev":                  "dev",
	}
	for in, want := range cases {
		Version = in
		if got := Colored(); got != want {
			t.Fatalf("Colored() for %q = %q, want %q", in, got, want)
		}
	}
}

func TestColoredWrapsParts(t *testing.T) {
	orig, origNoColor := Version, color.NoColor
	t.Cleanup(func() { Version, color.NoColor = orig, origNoColor })
	color.NoColor = false

	Version = "1.2.3-dev"
	got := Colored()
	if got == Version || len(got) <= len(Version) {
		t.Fatalf("expected escape sequences, got %q", got)
	}
}
