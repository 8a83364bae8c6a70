package config

const (
	defaultDataDir                = "~/.local/share/tcgprice"
	defaultLogDir                 = "~/.local/share/tcgprice/logs"
	defaultLockDir                = "~/.local/share/tcgprice/locks"
	defaultDatabaseName           = "card_price.db"
	defaultTimezone               = "Local"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultUserAgent              = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"
	defaultRequestTimeout         = 30
	defaultBrowserTimeout         = 60
	defaultBrowserWaitSeconds     = 3
	defaultRender                 = "http"
	defaultMaxPagesPerRun         = 50
	defaultNewArrivalsPages       = 3
	defaultPageIntervalSeconds    = 5
	defaultKeywordIntervalSeconds = 3
	defaultQueueBatchLimit        = 10
	defaultQueueItemInterval      = 3
	defaultQueueCleanupDays       = 7
	defaultPopularBatchLimit      = 50
	defaultPopularStaleHours      = 24
	defaultPopularCardInterval    = 3
	defaultPopularSearchThreshold = 5
	defaultPopularClickThreshold  = 3
	defaultPopularWindowDays      = 7
	defaultPopularMax             = 100
	defaultRecentWindowHours      = 48
	defaultPostAmountThreshold    = 500
	defaultPostPercentThreshold   = 20.0
	defaultSummaryMinChanges      = 3
	defaultSummaryTopMovers       = 5
	defaultSearchMinResults       = 3
	defaultSearchResultLimit      = 50
	defaultNotifyRequestTimeout   = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			LockDir: defaultLockDir,
		},
		Store: Store{
			Timezone: defaultTimezone,
		},
		Scraper: Scraper{
			UserAgent:          defaultUserAgent,
			RequestTimeout:     defaultRequestTimeout,
			BrowserTimeout:     defaultBrowserTimeout,
			BrowserWaitSeconds: defaultBrowserWaitSeconds,
		},
		Crawl: Crawl{
			MaxPagesPerRun:      defaultMaxPagesPerRun,
			NewArrivalsPages:    defaultNewArrivalsPages,
			PageIntervalSeconds: defaultPageIntervalSeconds,
		},
		Fetch: Fetch{
			KeywordIntervalSeconds: defaultKeywordIntervalSeconds,
		},
		Queue: Queue{
			BatchLimit:          defaultQueueBatchLimit,
			ItemIntervalSeconds: defaultQueueItemInterval,
			CleanupDays:         defaultQueueCleanupDays,
		},
		Popular: Popular{
			BatchLimit:          defaultPopularBatchLimit,
			StaleHours:          defaultPopularStaleHours,
			CardIntervalSeconds: defaultPopularCardInterval,
			SearchThreshold:     defaultPopularSearchThreshold,
			ClickThreshold:      defaultPopularClickThreshold,
			WindowDays:          defaultPopularWindowDays,
			MaxPopular:          defaultPopularMax,
		},
		Detect: Detect{
			RecentWindowHours:    defaultRecentWindowHours,
			PostAmountThreshold:  defaultPostAmountThreshold,
			PostPercentThreshold: defaultPostPercentThreshold,
			SummaryMinChanges:    defaultSummaryMinChanges,
			SummaryTopMovers:     defaultSummaryTopMovers,
		},
		Search: Search{
			MinResults:  defaultSearchMinResults,
			ResultLimit: defaultSearchResultLimit,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			RunFailures:    true,
			RunSummaries:   false,
			PriceMovers:    true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
