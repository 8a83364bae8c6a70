package deps

import (
	"os"
	"path/filepath"
	"testing"
)

func writeStub(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestCheckBinaries(t *testing.T) {
	present := writeStub(t, t.TempDir(), "present")
	reqs := []Requirement{
		{Name: "Present", Candidates: []string{present}},
		{Name: "Missing", Candidates: []string{"clearly-not-present-binary"}},
		{Name: "Empty"},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Command != present || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected empty requirement status: %#v", results[2])
	}
}

func TestChromeUsesFirstCandidateOnPath(t *testing.T) {
	binDir := t.TempDir()
	want := writeStub(t, binDir, "chromium")
	writeStub(t, binDir, "google-chrome")
	t.Setenv("PATH", binDir)

	status := CheckBinaries([]Requirement{Chrome("")})[0]
	if !status.Available || status.Command != want {
		t.Fatalf("expected %s, got %#v", want, status)
	}
}

func TestChromeConfiguredPathReplacesCandidates(t *testing.T) {
	binDir := t.TempDir()
	writeStub(t, binDir, "chromium")
	t.Setenv("PATH", binDir)

	status := CheckBinaries([]Requirement{Chrome(filepath.Join(t.TempDir(), "missing-chrome"))})[0]
	if status.Available {
		t.Fatalf("configured path must not fall back to PATH candidates: %#v", status)
	}
}
