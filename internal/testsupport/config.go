package testsupport

import (
	"path/filepath"
	"testing"

	"tcgprice/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Courtesy sleeps are zeroed and the store timezone is UTC.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.LockDir = filepath.Join(base, "locks")
	cfgVal.Store.Path = filepath.Join(base, "data", "card_price.db")
	cfgVal.Store.Timezone = "UTC"
	cfgVal.Crawl.PageIntervalSeconds = 0
	cfgVal.Fetch.KeywordIntervalSeconds = 0
	cfgVal.Queue.ItemIntervalSeconds = 0
	cfgVal.Popular.CardIntervalSeconds = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithSource appends an enabled catalog source to the test config.
func WithSource(key, name string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Sources = append(b.cfg.Sources, config.Source{
			Key:           key,
			Name:          name,
			Enabled:       true,
			Render:        "http",
			ListURL:       "http://" + key + ".invalid/list?page={page}",
			SearchURL:     "http://" + key + ".invalid/search?q={keyword}",
			ItemSelector:  ".item",
			NameSelector:  ".name",
			LinkSelector:  ".name",
			PriceSelector: ".price",
		})
	}
}

// WithNtfyTopic sets the ntfy topic on the test config.
func WithNtfyTopic(topic string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Notifications.NtfyTopic = topic
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
