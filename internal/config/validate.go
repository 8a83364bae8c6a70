package config

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/robfig/cron/v3"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateScraper(); err != nil {
		return err
	}
	if err := c.validateSources(); err != nil {
		return err
	}
	if err := c.validateJobs(); err != nil {
		return err
	}
	if err := c.validateDetect(); err != nil {
		return err
	}
	if err := c.validateSchedule(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateStore() error {
	if strings.TrimSpace(c.Store.Path) == "" {
		return errors.New("store.path must be set")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateScraper() error {
	return ensurePositiveMap(map[string]int{
		"scraper.request_timeout":       c.Scraper.RequestTimeout,
		"scraper.browser_timeout":       c.Scraper.BrowserTimeout,
		"notifications.request_timeout": c.Notifications.RequestTimeout,
	})
}

func (c *Config) validateSources() error {
	seen := make(map[string]struct{}, len(c.Sources))
	for i, src := range c.Sources {
		if src.Key == "" {
			return fmt.Errorf("sources[%d].key must be set", i)
		}
		prefix := "sources." + src.Key
		if _, dup := seen[src.Key]; dup {
			return fmt.Errorf("%s is defined more than once", prefix)
		}
		seen[src.Key] = struct{}{}
		if src.Name == "" {
			return fmt.Errorf("%s.name must be set", prefix)
		}
		switch src.Render {
		case "http", "browser":
		default:
			return fmt.Errorf("%s.render must be one of: http, browser", prefix)
		}
		if src.ListURL == "" && src.SearchURL == "" {
			return fmt.Errorf("%s needs list_url or search_url", prefix)
		}
		if src.ListURL != "" && !strings.Contains(src.ListURL, "{page}") {
			return fmt.Errorf("%s.list_url must contain {page}", prefix)
		}
		if src.NewArrivalsURL != "" && !strings.Contains(src.NewArrivalsURL, "{page}") {
			return fmt.Errorf("%s.new_arrivals_url must contain {page}", prefix)
		}
		if src.SearchURL != "" && !strings.Contains(src.SearchURL, "{keyword}") {
			return fmt.Errorf("%s.search_url must contain {keyword}", prefix)
		}
		if src.ItemSelector == "" || src.NameSelector == "" || src.PriceSelector == "" {
			return fmt.Errorf("%s requires item_selector, name_selector and price_selector", prefix)
		}
		for key, pattern := range map[string]string{
			"page_pattern":        src.PagePattern,
			"total_count_pattern": src.TotalCountPattern,
		} {
			if pattern == "" {
				continue
			}
			if _, err := regexp.Compile(pattern); err != nil {
				return fmt.Errorf("%s.%s: %w", prefix, key, err)
			}
		}
		if src.TotalCountPattern != "" && src.PerPage <= 0 {
			return fmt.Errorf("%s.per_page must be positive when total_count_pattern is set", prefix)
		}
	}
	return nil
}

func (c *Config) validateJobs() error {
	if err := ensurePositiveMap(map[string]int{
		"crawl.max_pages_per_run":  c.Crawl.MaxPagesPerRun,
		"crawl.new_arrivals_pages": c.Crawl.NewArrivalsPages,
		"queue.batch_limit":        c.Queue.BatchLimit,
		"queue.cleanup_days":       c.Queue.CleanupDays,
		"popular.batch_limit":      c.Popular.BatchLimit,
		"popular.stale_hours":      c.Popular.StaleHours,
		"popular.window_days":      c.Popular.WindowDays,
		"popular.max_popular":      c.Popular.MaxPopular,
		"search.result_limit":      c.Search.ResultLimit,
	}); err != nil {
		return err
	}
	if err := ensureNonNegativeMap(map[string]int{
		"crawl.page_interval_seconds":    c.Crawl.PageIntervalSeconds,
		"fetch.keyword_interval_seconds": c.Fetch.KeywordIntervalSeconds,
		"queue.item_interval_seconds":    c.Queue.ItemIntervalSeconds,
		"popular.card_interval_seconds":  c.Popular.CardIntervalSeconds,
		"popular.search_threshold":       c.Popular.SearchThreshold,
		"popular.click_threshold":        c.Popular.ClickThreshold,
		"search.min_results":             c.Search.MinResults,
	}); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateDetect() error {
	if err := ensurePositiveMap(map[string]int{
		"detect.recent_window_hours": c.Detect.RecentWindowHours,
		"detect.summary_min_changes": c.Detect.SummaryMinChanges,
		"detect.summary_top_movers":  c.Detect.SummaryTopMovers,
	}); err != nil {
		return err
	}
	if c.Detect.PostAmountThreshold < 0 {
		return errors.New("detect.post_amount_threshold must be >= 0")
	}
	if c.Detect.PostPercentThreshold < 0 {
		return errors.New("detect.post_percent_threshold must be >= 0")
	}
	return nil
}

func (c *Config) validateSchedule() error {
	for key, spec := range map[string]string{
		"schedule.crawl":        c.Schedule.Crawl,
		"schedule.new_arrivals": c.Schedule.NewArrivals,
		"schedule.fetch":        c.Schedule.Fetch,
		"schedule.queue":        c.Schedule.Queue,
		"schedule.popular":      c.Schedule.Popular,
		"schedule.notify":       c.Schedule.Notify,
		"schedule.link":         c.Schedule.Link,
	} {
		if spec == "" {
			continue
		}
		if _, err := cron.ParseStandard(spec); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
