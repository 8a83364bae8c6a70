package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	LockDir string `toml:"lock_dir"`
}

// Store contains SQLite settings.
type Store struct {
	Path     string `toml:"path"`
	Timezone string `toml:"timezone"`
}

// Scraper contains settings shared by every catalog source.
type Scraper struct {
	UserAgent          string `toml:"user_agent"`
	RequestTimeout     int    `toml:"request_timeout"`
	BrowserTimeout     int    `toml:"browser_timeout"`
	BrowserWaitSeconds int    `toml:"browser_wait_seconds"`
	ChromePath         string `toml:"chrome_path"`
}

// Source describes one shop catalog. Selectors are CSS selectors evaluated
// against each item node matched by ItemSelector.
type Source struct {
	Key               string `toml:"key"`
	Name              string `toml:"name"`
	URL               string `toml:"url"`
	Enabled           bool   `toml:"enabled"`
	Render            string `toml:"render"`
	ListURL           string `toml:"list_url"`
	NewArrivalsURL    string `toml:"new_arrivals_url"`
	SearchURL         string `toml:"search_url"`
	ItemSelector      string `toml:"item_selector"`
	NameSelector      string `toml:"name_selector"`
	LinkSelector      string `toml:"link_selector"`
	PriceSelector     string `toml:"price_selector"`
	StockSelector     string `toml:"stock_selector"`
	ImageSelector     string `toml:"image_selector"`
	SoldOutSelector   string `toml:"sold_out_selector"`
	PageLinkSelector  string `toml:"page_link_selector"`
	PagePattern       string `toml:"page_pattern"`
	TotalCountPattern string `toml:"total_count_pattern"`
	PerPage           int    `toml:"per_page"`
}

// Crawl contains settings for the resumable catalog crawl.
type Crawl struct {
	MaxPagesPerRun      int `toml:"max_pages_per_run"`
	NewArrivalsPages    int `toml:"new_arrivals_pages"`
	PageIntervalSeconds int `toml:"page_interval_seconds"`
}

// Fetch contains settings for keyword fetch runs.
type Fetch struct {
	Keywords               []string `toml:"keywords"`
	KeywordIntervalSeconds int      `toml:"keyword_interval_seconds"`
}

// Queue contains settings for the fetch queue processor.
type Queue struct {
	BatchLimit          int `toml:"batch_limit"`
	ItemIntervalSeconds int `toml:"item_interval_seconds"`
	CleanupDays         int `toml:"cleanup_days"`
}

// Popular contains settings for the popular-card refresh job.
type Popular struct {
	BatchLimit          int `toml:"batch_limit"`
	StaleHours          int `toml:"stale_hours"`
	CardIntervalSeconds int `toml:"card_interval_seconds"`
	SearchThreshold     int `toml:"search_threshold"`
	ClickThreshold      int `toml:"click_threshold"`
	WindowDays          int `toml:"window_days"`
	MaxPopular          int `toml:"max_popular"`
}

// Detect contains settings for the price change sweep.
type Detect struct {
	RecentWindowHours    int     `toml:"recent_window_hours"`
	PostAmountThreshold  int     `toml:"post_amount_threshold"`
	PostPercentThreshold float64 `toml:"post_percent_threshold"`
	SummaryMinChanges    int     `toml:"summary_min_changes"`
	SummaryTopMovers     int     `toml:"summary_top_movers"`
}

// Search contains settings for the local search command.
type Search struct {
	MinResults      int `toml:"min_results"`
	ResultLimit     int `toml:"result_limit"`
	EnqueuePriority int `toml:"enqueue_priority"`
}

// Notifications contains configuration for ntfy operator alerts.
type Notifications struct {
	NtfyTopic      string `toml:"ntfy_topic"`
	RequestTimeout int    `toml:"request_timeout"`
	RunFailures    bool   `toml:"run_failures"`
	RunSummaries   bool   `toml:"run_summaries"`
	PriceMovers    bool   `toml:"price_movers"`
}

// Schedule holds cron specs per job class. An empty spec disables the job.
type Schedule struct {
	Crawl       string `toml:"crawl"`
	NewArrivals string `toml:"new_arrivals"`
	Fetch       string `toml:"fetch"`
	Queue       string `toml:"queue"`
	Popular     string `toml:"popular"`
	Notify      string `toml:"notify"`
	Link        string `toml:"link"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for tcgprice.
//
// Configuration sections by subsystem:
//   - Paths: data, log and lock directories
//   - Store: SQLite location and the timezone used for daily history
//   - Scraper/Sources: catalog adapters
//   - Crawl, Fetch, Queue, Popular: batch job pacing and limits
//   - Detect: price change windows and social post thresholds
//   - Search: local search behaviour
//   - Notifications: ntfy operator alerts
//   - Schedule: cron specs for the in-process scheduler
//   - Logging: log format and level
type Config struct {
	Paths         Paths         `toml:"paths"`
	Store         Store         `toml:"store"`
	Scraper       Scraper       `toml:"scraper"`
	Sources       []Source      `toml:"sources"`
	Crawl         Crawl         `toml:"crawl"`
	Fetch         Fetch         `toml:"fetch"`
	Queue         Queue         `toml:"queue"`
	Popular       Popular       `toml:"popular"`
	Detect        Detect        `toml:"detect"`
	Search        Search        `toml:"search"`
	Notifications Notifications `toml:"notifications"`
	Schedule      Schedule      `toml:"schedule"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/tcgprice/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("tcgprice.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the data, log and lock directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir, c.Paths.LockDir, filepath.Dir(c.Store.Path)} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// Location resolves the configured store timezone.
func (c *Config) Location() (*time.Location, error) {
	name := strings.TrimSpace(c.Store.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("store.timezone: %w", err)
	}
	return loc, nil
}

// EnabledSources returns the configured sources that are switched on.
func (c *Config) EnabledSources() []Source {
	out := make([]Source, 0, len(c.Sources))
	for _, src := range c.Sources {
		if src.Enabled {
			out = append(out, src)
		}
	}
	return out
}

// SourceByKey looks up a configured source regardless of its enabled flag.
func (c *Config) SourceByKey(key string) (Source, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, src := range c.Sources {
		if src.Key == key {
			return src, true
		}
	}
	return Source{}, false
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
