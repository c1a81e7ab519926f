package crawler

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"fouani/storesync/internal/client"
	"fouani/storesync/internal/domain"
	"fouani/storesync/internal/metrics"
	"fouani/storesync/internal/urlnorm"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Sink receives each category as soon as it has been crawled. Calls are serialized.
type Sink func(result domain.CategoryResult) error

type Crawler struct {
	fetcher client.Fetcher
	visited VisitedStore
	baseURL string
	workers int
}

// New returns a crawler. workers > 1 crawls that many leaf categories in
// parallel; each worker still goes through the fetcher's politeness delay.
func New(fetcher client.Fetcher, visited VisitedStore, baseURL string, workers int) *Crawler {
	if workers < 1 {
		workers = 1
	}
	return &Crawler{
		fetcher: fetcher,
		visited: visited,
		baseURL: baseURL,
		workers: workers,
	}
}

// run holds the state shared by all workers of one crawl
type run struct {
	visited VisitedSet
	cache   *productCache
}

// Crawl visits every leaf of tree once and returns the per-category results
// in leaf order, whatever the number of workers. Failures of single pages
// only shrink the result; the returned error is reserved for cancellation.
func (c *Crawler) Crawl(ctx context.Context, runID string, tree *domain.Tree, sink Sink) ([]domain.CategoryResult, domain.CrawlStats, error) {
	leaves := tree.Leaves()
	log.Infof("🔄 Crawling %d categories with %d worker(s)", len(leaves), c.workers)

	r := &run{
		visited: c.visited.ForRun(runID),
		cache:   newProductCache(),
	}

	results := make([]domain.CategoryResult, len(leaves))
	var total domain.CrawlStats
	var mu sync.Mutex

	finish := func(i int, result domain.CategoryResult, stats domain.CrawlStats) {
		mu.Lock()
		defer mu.Unlock()

		results[i] = result
		total.Add(stats)
		if sink != nil {
			if err := sink(result); err != nil {
				log.Warnf("⚠️ Failed to persist category %s: %v", domain.Leaf{Path: result.Path}.PathKey(), err)
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, leaf := range leaves {
		g.Go(func() error {
			result, stats := c.crawlCategory(gctx, r, leaf)
			if err := gctx.Err(); err != nil {
				return err
			}
			finish(i, result, stats)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, total, fmt.Errorf("crawl interrupted: %w", err)
	}

	log.Infof("✅ Crawl finished: %d categories, %d pages, %d records, %d not-a-product, %d fetch failures",
		total.Categories, total.Pages, total.Records, total.NotProduct, total.FetchFailures)
	return results, total, nil
}

func (c *Crawler) crawlCategory(ctx context.Context, r *run, leaf domain.Leaf) (domain.CategoryResult, domain.CrawlStats) {
	stats := domain.CrawlStats{Categories: 1}
	result := domain.CategoryResult{
		Path:    leaf.Path,
		Link:    leaf.Node.Link,
		Records: []domain.ProductRecord{},
	}

	categoryURL, err := urlnorm.Resolve(c.baseURL, leaf.Node.Link)
	if err != nil {
		log.Errorf("❌ Invalid category link %q for %s: %v", leaf.Node.Link, leaf.PathKey(), err)
		return result, stats
	}
	log.Infof("🔄 Processing category: %s", leaf.PathKey())

	seenProducts := make(map[string]struct{})
	pageURL := urlnorm.WithPage(categoryURL, 1)

	for page := 1; pageURL != "" && ctx.Err() == nil; page++ {
		first, err := r.visited.Visit(ctx, leaf.PathKey()+"|"+urlnorm.Normalize(pageURL))
		if err != nil {
			log.Errorf("❌ Visited set unavailable for %s: %v", pageURL, err)
			stats.FetchFailures++
			break
		}
		if !first {
			log.Warnf("⚠️ Pagination of %s returned to %s, stopping", leaf.PathKey(), pageURL)
			break
		}

		body, err := c.fetcher.Fetch(ctx, pageURL)
		if err != nil {
			metrics.FetchesTotal.WithLabelValues("listing", "error").Inc()
			stats.FetchFailures++
			log.Errorf("❌ Failed to fetch listing %s: %v", pageURL, err)
			break
		}
		metrics.FetchesTotal.WithLabelValues("listing", "ok").Inc()

		listing, err := client.ParseListing(body, pageURL, page)
		if err != nil {
			log.Errorf("❌ Failed to parse listing %s: %v", pageURL, err)
			break
		}
		stats.Pages++
		result.Pages++

		if len(listing.ProductLinks) == 0 {
			log.Infof("No product links on page %d of %s, moving to next category", page, leaf.PathKey())
			break
		}

		for _, link := range listing.ProductLinks {
			if _, dup := seenProducts[link]; dup {
				continue
			}
			seenProducts[link] = struct{}{}
			stats.ProductLinks++

			record, ok := c.product(ctx, r, link, &stats)
			if !ok {
				continue
			}
			result.Records = append(result.Records, record.WithCategoryPath(leaf.Path))
			stats.Records++
		}

		pageURL = listing.NextURL
		if pageURL == "" {
			log.Debugf("No more pages for %s after page %d", leaf.PathKey(), page)
		}
	}

	log.Infof("✅ Processed category %s: %d pages, %d products", leaf.PathKey(), result.Pages, len(result.Records))
	return result, stats
}

// product returns the extracted record for link, fetching it at most once per run
func (c *Crawler) product(ctx context.Context, r *run, link string, stats *domain.CrawlStats) (domain.ProductRecord, bool) {
	if cached, hit := r.cache.get(link); hit {
		stats.CacheHits++
		if cached == nil {
			stats.NotProduct++
			return domain.ProductRecord{}, false
		}
		return *cached, true
	}

	body, err := c.fetcher.Fetch(ctx, link)
	if err != nil {
		metrics.FetchesTotal.WithLabelValues("product", "error").Inc()
		stats.FetchFailures++
		log.Errorf("❌ Failed to fetch product %s: %v", link, err)
		return domain.ProductRecord{}, false
	}
	metrics.FetchesTotal.WithLabelValues("product", "ok").Inc()

	record, err := client.ExtractProduct(body, link)
	if err != nil {
		if !errors.Is(err, domain.ErrNotProduct) {
			log.Warnf("⚠️ Failed to parse product %s: %v", link, err)
		}
		metrics.NotProductPages.Inc()
		stats.NotProduct++
		r.cache.put(link, nil)
		return domain.ProductRecord{}, false
	}

	metrics.ProductsExtracted.Inc()
	log.Debugf("Extracted %s (%s)", record.SKU, record.Title)
	r.cache.put(link, record)
	return *record, true
}

// productCache maps a normalized product URL to its record; nil marks a non-product page
type productCache struct {
	mu      sync.Mutex
	records map[string]*domain.ProductRecord
}

func newProductCache() *productCache {
	return &productCache{records: make(map[string]*domain.ProductRecord)}
}

func (c *productCache) get(link string) (*domain.ProductRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.records[link]
	return rec, ok
}

func (c *productCache) put(link string, rec *domain.ProductRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[link] = rec
}
