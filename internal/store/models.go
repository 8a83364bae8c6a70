package store

import "time"

// Shop is a price source. Shops are seeded from configuration and never deleted.
type Shop struct {
	ID     int64
	Key    string
	Name   string
	URL    string
	Active bool
}

// ShopSeed describes a shop row to create when missing.
type ShopSeed struct {
	Key  string
	Name string
	URL  string
}

// Card is a canonical product. Name is the unique identity key.
type Card struct {
	ID               int64
	Name             string
	NormalizedName   string
	ExtractedCode    string
	BaseName         string
	DetailURL        string
	SourceShopID     int64
	IsPopular        bool
	LastPriceFetchAt *time.Time
	CreatedAt        time.Time
}

// CardSeed carries the identity fields computed for a raw listing name.
type CardSeed struct {
	Name           string
	NormalizedName string
	ExtractedCode  string
	BaseName       string
	DetailURL      string
	SourceShopID   int64
}

// PriceObservation is one scraped (card, shop) quote awaiting persistence.
type PriceObservation struct {
	CardID    int64
	ShopID    int64
	Price     int
	Stock     *int
	StockText string
	URL       string
	ImageURL  string
}

// Price is a row of the append-only price ledger.
type Price struct {
	ID        int64
	CardID    int64
	ShopID    int64
	Price     int
	Stock     *int
	StockText string
	URL       string
	ImageURL  string
	FetchedAt time.Time
}

// PriceQuote joins the latest price of a (card, shop) pair with display names.
type PriceQuote struct {
	CardID        int64
	CardName      string
	ExtractedCode string
	ShopID        int64
	ShopName      string
	Price         int
	Stock         *int
	URL           string
	FetchedAt     time.Time
}

// HistoryPoint is one daily price snapshot.
type HistoryPoint struct {
	ShopID   int64
	ShopName string
	Day      string
	Price    int
}

// ProgressStatus is the lifecycle of a crawl cursor.
type ProgressStatus string

const (
	ProgressPending    ProgressStatus = "pending"
	ProgressInProgress ProgressStatus = "in_progress"
)

// CrawlProgress is the persisted form of a crawl cursor.
type CrawlProgress struct {
	ShopID        int64
	CursorType    string
	CursorKey     string
	CurrentPage   int
	TotalPages    int
	Status        ProgressStatus
	LastFetchedAt *time.Time
	UpdatedAt     time.Time
}

// QueueStatus is the lifecycle of a fetch queue item.
type QueueStatus string

const (
	QueuePending    QueueStatus = "pending"
	QueueProcessing QueueStatus = "processing"
	QueueDone       QueueStatus = "done"
)

// QueueItem is a keyword awaiting a background fetch.
type QueueItem struct {
	ID          int64
	Keyword     string
	Source      string
	Priority    int
	Status      QueueStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// PriceMove pairs the recent price of a watched (card, shop) with the price
// in effect before the recent window.
type PriceMove struct {
	CardID   int64
	CardName string
	ShopID   int64
	ShopName string
	OldPrice int
	NewPrice int
}

// PriceChange is the immutable audit record of a detected transition.
type PriceChange struct {
	ID            int64
	CardID        int64
	CardName      string
	ShopID        int64
	ShopName      string
	OldPrice      int
	NewPrice      int
	ChangeAmount  int
	ChangePercent float64
	DetectedAt    time.Time
}

// Watcher is a user who favorited a card, with their notification settings.
// Users without a settings row are enabled with zero thresholds.
type Watcher struct {
	UserID             int64
	SiteEnabled        bool
	PriceDropThreshold int
	PriceRiseThreshold int
}

// NotificationSettings is a user's opt-in and threshold configuration.
type NotificationSettings struct {
	UserID             int64
	SiteEnabled        bool
	PriceDropThreshold int
	PriceRiseThreshold int
}

// Notification is an in-app message for one user.
type Notification struct {
	ID            int64
	UserID        int64
	Type          string
	Title         string
	Message       string
	CardID        int64
	PriceChangeID int64
	IsRead        bool
	CreatedAt     time.Time
}

// Post is an outbound social post awaiting the external poster.
type Post struct {
	ID            int64
	PostType      string
	Content       string
	CardID        int64
	PriceChangeID int64
	Status        string
	CreatedAt     time.Time
	PostedAt      *time.Time
}

// BatchLog is the summary row written at the end of every job run.
type BatchLog struct {
	ID             int64
	RunID          string
	BatchType      string
	ShopName       string
	Status         string
	PagesProcessed int
	CardsTotal     int
	CardsNew       int
	CardsUpdated   int
	Message        string
	StartedAt      time.Time
	FinishedAt     time.Time
}
