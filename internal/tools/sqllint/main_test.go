package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGo(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLintTargets(t *testing.T) {
	dir := t.TempDir()
	writeGo(t, dir, "ok.go", "package q\n\nconst QOk = `--sql 81f9b16a-01cb-44b3-b145-2dda8f48e9b1\nselect 1;\n`\n\nconst Label = \"plain text\"\n")
	writeGo(t, dir, "missing.go", "package q\n\nconst QMissing = `select id from video_jobs;`\n")
	writeGo(t, dir, "dup.go", "package q\n\nconst QDup = `--sql 81f9b16a-01cb-44b3-b145-2dda8f48e9b1\nupdate video_jobs set status = 'failed';\n`\n")
	writeGo(t, dir, "_skip/ignored.go", "package q\n\nconst QIgnored = `select 2;`\n")
	writeGo(t, dir, "q_test.go", "package q\n\nconst QTest = `select 3;`\n")

	violations, err := lintTargets([]string{dir})
	if err != nil {
		t.Fatalf("lintTargets error: %v", err)
	}
	if len(violations) != 2 {
		t.Fatalf("expected 2 violations, got %#v", violations)
	}
	byName := map[string]violation{}
	for _, v := range violations {
		byName[v.name] = v
	}
	if v, ok := byName["QMissing"]; !ok || !strings.Contains(v.message, "missing or invalid") {
		t.Fatalf("missing marker not reported: %#v", violations)
	}
	// WalkDir visits dup.go before ok.go.
	if v, ok := byName["QOk"]; !ok || !strings.Contains(v.message, "already used by QDup") {
		t.Fatalf("duplicate marker not reported: %#v", violations)
	}
}

func TestLintTargetsSingleFile(t *testing.T) {
	path := writeGo(t, t.TempDir(), "one.go", "package q\n\nvar QBad = \"delete from users\"\n")
	violations, err := lintTargets([]string{path})
	if err != nil {
		t.Fatalf("lintTargets error: %v", err)
	}
	if len(violations) != 1 || violations[0].line != 3 {
		t.Fatalf("unexpected violations: %#v", violations)
	}
}

func TestLintTargetsMissingPath(t *testing.T) {
	if _, err := lintTargets([]string{filepath.Join(t.TempDir(), "nope")}); err == nil {
		t.Fatal("expected error for missing path")
	}
}
