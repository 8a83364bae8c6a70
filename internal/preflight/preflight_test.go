package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"tcgprice/internal/config"
	"tcgprice/internal/deps"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/broken" {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		if r.URL.Query().Get("page") != "1" && r.URL.Query().Get("q") != "test" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ok := CheckSource(context.Background(), srv.Client(), "ua", config.Source{Key: "alpha", ListURL: srv.URL + "/list?page={page}"})
	if !ok.Passed || ok.Name != "Source alpha" {
		t.Fatalf("expected pass, got %#v", ok)
	}
	searchOnly := CheckSource(context.Background(), srv.Client(), "", config.Source{Key: "beta", SearchURL: srv.URL + "/search?q={keyword}"})
	if !searchOnly.Passed {
		t.Fatalf("expected search-only source to pass, got %#v", searchOnly)
	}
	broken := CheckSource(context.Background(), srv.Client(), "", config.Source{Key: "gamma", ListURL: srv.URL + "/broken?page={page}"})
	if broken.Passed || broken.Detail == "" {
		t.Fatalf("expected failure for 503, got %#v", broken)
	}
}

func TestCheckNotifications(t *testing.T) {
	missing := CheckNotifications(config.Notifications{})
	if missing.Passed || !missing.Optional {
		t.Fatalf("missing topic should be an optional failure, got %#v", missing)
	}
	bad := CheckNotifications(config.Notifications{NtfyTopic: "not a url"})
	if bad.Passed || bad.Optional {
		t.Fatalf("invalid topic should fail, got %#v", bad)
	}
	good := CheckNotifications(config.Notifications{NtfyTopic: "https://ntfy.sh/cards"})
	if !good.Passed || good.Detail != "ntfy.sh/cards" {
		t.Fatalf("unexpected result %#v", good)
	}
}

func TestRunAllChecksChromeOnlyForBrowserSources(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = base
	cfg.Paths.LogDir = base
	cfg.Paths.LockDir = base
	cfg.Sources = []config.Source{{Key: "alpha", Enabled: true, Render: "http", ListURL: "http://alpha.invalid/?page={page}"}}

	results := RunAll(context.Background(), &cfg, Options{})
	for _, r := range results {
		if r.Name == "Chrome" {
			t.Fatalf("chrome must not be checked for http sources: %#v", results)
		}
	}
	if Failed(results) {
		t.Fatalf("expected only optional failures, got %#v", results)
	}

	cfg.Scraper.ChromePath = filepath.Join(base, "no-chrome")
	cfg.Sources[0].Render = "browser"
	results = RunAll(context.Background(), &cfg, Options{})
	var chrome *Result
	for i := range results {
		if results[i].Name == "Chrome" {
			chrome = &results[i]
		}
	}
	if chrome == nil || chrome.Passed {
		t.Fatalf("expected failing chrome check, got %#v", results)
	}
	if !Failed(results) {
		t.Fatal("missing chrome should fail preflight")
	}
}

func TestCheckBinaryReportsResolvedPath(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, "chrome")
	if err := os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	result := CheckBinary(deps.Chrome(bin))
	if !result.Passed || result.Detail != bin {
		t.Fatalf("unexpected result %#v", result)
	}
}
