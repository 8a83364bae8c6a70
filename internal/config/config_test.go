package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"tcgprice/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("TCGPRICE_NTFY_TOPIC", "https://ntfy.example/topic")
	prevWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prevWD) })

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantData := filepath.Join(tempHome, ".local", "share", "tcgprice")
	if cfg.Paths.DataDir != wantData {
		t.Fatalf("unexpected data dir: got %q want %q", cfg.Paths.DataDir, wantData)
	}
	if cfg.Store.Path != filepath.Join(wantData, "card_price.db") {
		t.Fatalf("unexpected store path: %q", cfg.Store.Path)
	}
	if cfg.Paths.LockDir != filepath.Join(wantData, "locks") {
		t.Fatalf("unexpected lock dir: %q", cfg.Paths.LockDir)
	}
	if cfg.Notifications.NtfyTopic != "https://ntfy.example/topic" {
		t.Fatalf("expected ntfy topic from env, got %q", cfg.Notifications.NtfyTopic)
	}
	if cfg.Crawl.MaxPagesPerRun != 50 || cfg.Crawl.NewArrivalsPages != 3 || cfg.Crawl.PageIntervalSeconds != 5 {
		t.Fatalf("unexpected crawl defaults: %+v", cfg.Crawl)
	}
	if cfg.Queue.BatchLimit != 10 || cfg.Queue.CleanupDays != 7 {
		t.Fatalf("unexpected queue defaults: %+v", cfg.Queue)
	}
	if cfg.Detect.PostAmountThreshold != 500 || cfg.Detect.PostPercentThreshold != 20 {
		t.Fatalf("unexpected detect defaults: %+v", cfg.Detect)
	}
	if cfg.Logging.Format != "console" || cfg.Logging.Level != "info" {
		t.Fatalf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestSampleConfigLoads(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load sample: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected sample to be found at %q, got %q (exists=%v)", path, resolved, exists)
	}
	if len(cfg.Sources) != 1 {
		t.Fatalf("expected one sample source, got %d", len(cfg.Sources))
	}
	if len(cfg.EnabledSources()) != 0 {
		t.Fatal("sample source should be disabled")
	}
	src, ok := cfg.SourceByKey("EXAMPLE")
	if !ok || src.Render != "http" {
		t.Fatalf("unexpected sample source lookup: %+v ok=%v", src, ok)
	}
	if cfg.Schedule.Crawl == "" {
		t.Fatal("expected sample crawl schedule")
	}
}

func TestLoadNormalizesSourcesAndKeywords(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Sources = []config.Source{{
		Key:           "  ShopA ",
		Name:          "Shop A",
		Enabled:       true,
		SearchURL:     "https://a.example/search?q={keyword}",
		ItemSelector:  ".item",
		NameSelector:  ".name",
		PriceSelector: ".price",
	}}
	cfg.Fetch.Keywords = []string{"ピカチュウ", " ", "#comment", "ピカチュウ", "リザードン"}
	writeConfig(t, path, cfg)

	loaded, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	src := loaded.Sources[0]
	if src.Key != "shopa" {
		t.Fatalf("expected lowercased key, got %q", src.Key)
	}
	if src.Render != "http" {
		t.Fatalf("expected default render http, got %q", src.Render)
	}
	if src.LinkSelector != ".name" {
		t.Fatalf("expected link selector to fall back to name selector, got %q", src.LinkSelector)
	}
	if got := strings.Join(loaded.Fetch.Keywords, ","); got != "ピカチュウ,リザードン" {
		t.Fatalf("unexpected keywords: %q", got)
	}
	if loaded.Store.Path != filepath.Join(dir, "data", "card_price.db") {
		t.Fatalf("unexpected store path: %q", loaded.Store.Path)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "page budget",
			mutate: func(c *config.Config) { c.Crawl.MaxPagesPerRun = 0 },
			want:   "crawl.max_pages_per_run",
		},
		{
			name:   "negative interval",
			mutate: func(c *config.Config) { c.Queue.ItemIntervalSeconds = -1 },
			want:   "queue.item_interval_seconds",
		},
		{
			name:   "recent window",
			mutate: func(c *config.Config) { c.Detect.RecentWindowHours = 0 },
			want:   "detect.recent_window_hours",
		},
		{
			name:   "bad cron",
			mutate: func(c *config.Config) { c.Schedule.Notify = "every day" },
			want:   "schedule.notify",
		},
		{
			name: "source without page placeholder",
			mutate: func(c *config.Config) {
				c.Sources = []config.Source{{
					Key: "a", Name: "A", Render: "http", ListURL: "https://a.example/list",
					ItemSelector: ".i", NameSelector: ".n", PriceSelector: ".p",
				}}
			},
			want: "list_url must contain {page}",
		},
		{
			name: "duplicate source",
			mutate: func(c *config.Config) {
				src := config.Source{
					Key: "a", Name: "A", Render: "http", SearchURL: "https://a.example/?q={keyword}",
					ItemSelector: ".i", NameSelector: ".n", PriceSelector: ".p",
				}
				c.Sources = []config.Source{src, src}
			},
			want: "more than once",
		},
		{
			name: "unknown render",
			mutate: func(c *config.Config) {
				c.Sources = []config.Source{{
					Key: "a", Name: "A", Render: "curl", SearchURL: "https://a.example/?q={keyword}",
					ItemSelector: ".i", NameSelector: ".n", PriceSelector: ".p",
				}}
			},
			want: "render",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Store.Path = filepath.Join(t.TempDir(), "db.sqlite")
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tc.want)
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error containing %q, got %v", tc.want, err)
			}
		})
	}
}

func TestEnsureDirectoriesCreatesPaths(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.LockDir = filepath.Join(base, "locks")
	cfg.Store.Path = filepath.Join(base, "db", "card_price.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.LogDir, cfg.Paths.LockDir, filepath.Dir(cfg.Store.Path)} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s: %v", dir, err)
		}
	}
}

func writeConfig(t *testing.T, path string, cfg config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}
