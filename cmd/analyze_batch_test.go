package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAnalyzeBatch_CollisionSuffixAndJSON(t *testing.T) {
	home := isolateHome(t)

	// Prepare two CSV files with the same basename in different directories
	d1 := filepath.Join(home, "d1")
	d2 := filepath.Join(home, "d2")
	for _, d := range []string{d1, d2} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", d, err)
		}
	}
	csv := "col1,col2\nA,1\nB,2\nC,3\n"
	writeFile(t, filepath.Join(d1, "metrics.csv"), csv)
	writeFile(t, filepath.Join(d2, "metrics.csv"), csv)
	outDir := filepath.Join(home, "summaries")

	out := runCmd(t, "analyze-batch", filepath.Join(home, "d*", "metrics.csv"), "--out-dir", outDir)
	if !strings.Contains(out, "[1/2] Processing metrics.csv...") || !strings.Contains(out, "[2/2] Processing metrics.csv...") {
		t.Fatalf("expected progress lines, got:\n%s", out)
	}

	b1 := filepath.Join(outDir, "metrics.summary.md")
	b2 := filepath.Join(outDir, "metrics__2.summary.md")
	for _, p := range []string{b1, b2} {
		body, err := os.ReadFile(p)
		if err != nil {
			t.Fatalf("missing summary %s: %v", p, err)
		}
		if !strings.Contains(string(body), "[DATASET SUMMARY]") {
			t.Fatalf("expected markdown summary in %s", p)
		}
	}

	out = runCmd(t, "analyze-batch", filepath.Join(d1, "metrics.csv"), "--out-dir", outDir, "--format", "json", "--quiet", "--backup")
	if out != "" {
		t.Fatalf("expected no output with --quiet, got %q", out)
	}
	body, err := os.ReadFile(filepath.Join(outDir, "metrics.summary.json"))
	if err != nil {
		t.Fatalf("missing json summary: %v", err)
	}
	if !strings.Contains(string(body), `"file_name": "metrics.csv"`) {
		t.Fatalf("unexpected json summary:\n%s", body)
	}
	backups, _ := filepath.Glob(filepath.Join(home, ".vizloom", "data", "backups", "metrics_*"))
	if len(backups) != 2 {
		t.Fatalf("expected data and summary backups, got %v", backups)
	}

	if _, err := execCmd(t, "", "analyze-batch", filepath.Join(home, "nothing-*.csv")); err == nil {
		t.Fatal("expected error when no files match")
	}
}
