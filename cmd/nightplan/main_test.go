package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/obscode/magdash/internal/filter"
	"github.com/obscode/magdash/internal/night"
)

const fourTargets = `1 a 01:00:00 -30:00:00 2000 0 0 0 EQU - - 2000 - - 2000 # sn
2 b 05:00:00 -30:00:00 2000 0 0 0 EQU - - 2000 - - 2000 # std
3 c 10:00:00 -30:00:00 2000 0 0 0 EQU - - 2000 - - 2000 # sn
4 d 15:00:00 -30:00:00 2000 0 0 0 EQU - - 2000 - - 2000 # sn
`

// run executes the root command with flags reset to their defaults.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	siteName, sitesFile, planDate = "LCO", "", ""
	stepMins, verbose = int(night.DefaultStep.Minutes()), false
	maxAirmass, raRange, decRange, tags, outFormat = filter.MaxAirmass, "", "", nil, "table"

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeCatalog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tonight.cat")
	if err := os.WriteFile(path, []byte(fourTargets), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestWindowCommand(t *testing.T) {
	out, err := run(t, "window", "--site", "LCO", "--date", "2024-06-21")
	if err != nil {
		t.Fatalf("window: %v", err)
	}
	for _, want := range []string{"Night at LCO starting Fri 2024-06-21", "Sunset", "Evening twilight", "Sunrise", "Dark time"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestWindowCommandErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown site", []string{"window", "--site", "Atlantis"}},
		{"bad date", []string{"window", "--date", "21-06-2024"}},
		{"bad step", []string{"window", "--step", "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestSitesCommand(t *testing.T) {
	out, err := run(t, "sites")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"LCO", "CTIO", "Paranal"} {
		if !strings.Contains(out, want) {
			t.Errorf("sites output missing %q", want)
		}
	}
}

func TestCatalogCommand(t *testing.T) {
	path := writeCatalog(t)

	out, err := run(t, "catalog", path, "--date", "2024-06-21", "--ra", "0:6")
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if !strings.Contains(out, "2 of 4 targets shown") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "01:00:00") || strings.Contains(out, "10:00:00") {
		t.Errorf("wrong rows shown:\n%s", out)
	}

	out, err = run(t, "catalog", path, "--date", "2024-06-21", "--tag", "sn", "--format", "catalog")
	if err != nil {
		t.Fatalf("catalog --format catalog: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d catalog lines, want 3:\n%s", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "1 a ") {
		t.Errorf("first line = %q", lines[0])
	}
}

func TestCatalogCommandErrors(t *testing.T) {
	path := writeCatalog(t)
	tests := []struct {
		name string
		args []string
	}{
		{"missing file", []string{"catalog", filepath.Join(t.TempDir(), "none.cat")}},
		{"bad range", []string{"catalog", path, "--ra", "6"}},
		{"inverted range", []string{"catalog", path, "--dec", "10:-10"}},
		{"bad format", []string{"catalog", path, "--format", "xml"}},
		{"airmass above maximum", []string{"catalog", path, "--max-airmass", "9"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := run(t, tt.args...); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		in      string
		lo, hi  float64
		wantErr bool
	}{
		{"0:6", 0, 6, false},
		{" -30 : 10.5 ", -30, 10.5, false},
		{"6", 0, 0, true},
		{"a:1", 0, 0, true},
		{"1:b", 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			lo, hi, err := parseRange(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && (lo != tt.lo || hi != tt.hi) {
				t.Errorf("got %v:%v, want %v:%v", lo, hi, tt.lo, tt.hi)
			}
		})
	}
}
