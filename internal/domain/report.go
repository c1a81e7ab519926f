package domain

import "time"

// ListingPage is what the crawler needs from one category listing page.
type ListingPage struct {
	URL          string
	PageNumber   int
	ProductLinks []string
	HasNext      bool
	NextURL      string
}

// CategoryResult is emitted once per crawled leaf category.
type CategoryResult struct {
	Path    []string
	Link    string
	Pages   int
	Records []ProductRecord
}

type CrawlStats struct {
	Categories    int `json:"categories"`
	Pages         int `json:"pages"`
	ProductLinks  int `json:"product_links"`
	Records       int `json:"records"`
	NotProduct    int `json:"not_product"`
	FetchFailures int `json:"fetch_failures"`
	CacheHits     int `json:"cache_hits"`
}

func (s *CrawlStats) Add(o CrawlStats) {
	s.Categories += o.Categories
	s.Pages += o.Pages
	s.ProductLinks += o.ProductLinks
	s.Records += o.Records
	s.NotProduct += o.NotProduct
	s.FetchFailures += o.FetchFailures
	s.CacheHits += o.CacheHits
}

type MergeReport struct {
	Input   int `json:"input"`
	Output  int `json:"output"`
	Merged  int `json:"merged"`
	Skipped int `json:"skipped"`
}

type SyncReport struct {
	Inserted    int            `json:"inserted"`
	Updated     int            `json:"updated"`
	Unchanged   int            `json:"unchanged"`
	SoftDeleted int            `json:"soft_deleted"`
	Skipped     int            `json:"skipped"`
	Failed      int            `json:"failed"`
	Failures    []WriteFailure `json:"-"`
	Active      int            `json:"active"`
	Deleted     int            `json:"deleted"`
}

// Writes is the number of records the run actually changed in the store.
func (r SyncReport) Writes() int {
	return r.Inserted + r.Updated + r.SoftDeleted
}

type RunReport struct {
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Crawl      CrawlStats  `json:"crawl"`
	Merge      MergeReport `json:"merge"`
	Sync       SyncReport  `json:"sync"`
}

const (
	StatusIdle      = "idle"
	StatusRunning   = "running"
	StatusCompleted = "completed"
)

// RunStatus is the read-only snapshot exposed by the trigger surface.
type RunStatus struct {
	IsRunning bool       `json:"is_running"`
	LastRun   *time.Time `json:"last_run"`
	Status    string     `json:"status"`
}
