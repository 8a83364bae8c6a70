package preflight

import (
	"context"
	"net/http"
	"time"

	"tcgprice/internal/config"
	"tcgprice/internal/deps"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name     string
	Passed   bool
	Optional bool
	Detail   string
}

// Options selects which checks RunAll performs.
type Options struct {
	// Network fetches the first page of every enabled source.
	Network bool
	// Client overrides the HTTP client used by network checks.
	Client *http.Client
}

// RunAll executes all applicable preflight checks for the given config.
func RunAll(ctx context.Context, cfg *config.Config, opts Options) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckDirectoryAccess("Lock directory", cfg.Paths.LockDir),
	}

	enabled := cfg.EnabledSources()
	if len(enabled) == 0 {
		results = append(results, Result{Name: "Sources", Detail: "no enabled [[sources]]"})
	}
	for _, src := range enabled {
		if src.Render == "browser" {
			results = append(results, CheckBinary(deps.Chrome(cfg.Scraper.ChromePath)))
			break
		}
	}

	results = append(results, CheckNotifications(cfg.Notifications))

	if opts.Network {
		client := opts.Client
		if client == nil {
			client = &http.Client{Timeout: time.Duration(cfg.Scraper.RequestTimeout) * time.Second}
		}
		for _, src := range enabled {
			results = append(results, CheckSource(ctx, client, cfg.Scraper.UserAgent, src))
		}
	}
	return results
}

// Failed reports whether any required check did not pass.
func Failed(results []Result) bool {
	for _, r := range results {
		if !r.Passed && !r.Optional {
			return true
		}
	}
	return false
}
