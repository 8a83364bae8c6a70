package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeScraper()
	c.normalizeSources()
	c.normalizeFetch()
	c.normalizeNotifications()
	c.normalizeSchedule()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LockDir) == "" {
		c.Paths.LockDir = filepath.Join(c.Paths.DataDir, "locks")
	}
	if c.Paths.LockDir, err = expandPath(c.Paths.LockDir); err != nil {
		return fmt.Errorf("paths.lock_dir: %w", err)
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = filepath.Join(c.Paths.DataDir, defaultDatabaseName)
	}
	if c.Store.Path, err = expandPath(c.Store.Path); err != nil {
		return fmt.Errorf("store.path: %w", err)
	}
	c.Store.Timezone = strings.TrimSpace(c.Store.Timezone)
	if c.Store.Timezone == "" {
		c.Store.Timezone = defaultTimezone
	}
	return nil
}

func (c *Config) normalizeScraper() {
	c.Scraper.UserAgent = strings.TrimSpace(c.Scraper.UserAgent)
	if c.Scraper.UserAgent == "" {
		c.Scraper.UserAgent = defaultUserAgent
	}
	c.Scraper.ChromePath = strings.TrimSpace(c.Scraper.ChromePath)
	if c.Scraper.BrowserWaitSeconds < 0 {
		c.Scraper.BrowserWaitSeconds = 0
	}
}

func (c *Config) normalizeSources() {
	for i := range c.Sources {
		src := &c.Sources[i]
		src.Key = strings.ToLower(strings.TrimSpace(src.Key))
		src.Name = strings.TrimSpace(src.Name)
		src.URL = strings.TrimSpace(src.URL)
		src.Render = strings.ToLower(strings.TrimSpace(src.Render))
		if src.Render == "" {
			src.Render = defaultRender
		}
		src.ListURL = strings.TrimSpace(src.ListURL)
		src.NewArrivalsURL = strings.TrimSpace(src.NewArrivalsURL)
		src.SearchURL = strings.TrimSpace(src.SearchURL)
		if src.LinkSelector == "" {
			src.LinkSelector = src.NameSelector
		}
		if src.PerPage < 0 {
			src.PerPage = 0
		}
	}
}

func (c *Config) normalizeFetch() {
	keywords := make([]string, 0, len(c.Fetch.Keywords))
	seen := make(map[string]struct{}, len(c.Fetch.Keywords))
	for _, kw := range c.Fetch.Keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" || strings.HasPrefix(kw, "#") {
			continue
		}
		if _, ok := seen[kw]; ok {
			continue
		}
		seen[kw] = struct{}{}
		keywords = append(keywords, kw)
	}
	c.Fetch.Keywords = keywords
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.NtfyTopic == "" {
		if value, ok := os.LookupEnv("TCGPRICE_NTFY_TOPIC"); ok {
			c.Notifications.NtfyTopic = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeSchedule() {
	for _, spec := range []*string{
		&c.Schedule.Crawl,
		&c.Schedule.NewArrivals,
		&c.Schedule.Fetch,
		&c.Schedule.Queue,
		&c.Schedule.Popular,
		&c.Schedule.Notify,
		&c.Schedule.Link,
	} {
		*spec = strings.TrimSpace(*spec)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
