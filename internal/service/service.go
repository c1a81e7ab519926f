package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fouani/storesync/internal/aggregate"
	"fouani/storesync/internal/client"
	"fouani/storesync/internal/crawler"
	"fouani/storesync/internal/domain"
	"fouani/storesync/internal/metrics"
	"fouani/storesync/internal/repository"
	"fouani/storesync/internal/storage"
	"fouani/storesync/internal/syncer"

	log "github.com/sirupsen/logrus"
)

// Service runs the pipeline: category tree, crawl, merge, sync. Each stage
// is also callable on its own.
type Service struct {
	fetcher    client.Fetcher
	crawler    *crawler.Crawler
	engine     *syncer.Engine
	repository repository.ProductRepository
	files      *storage.Files
	menuURL    string
}

func NewService(
	fetcher client.Fetcher,
	crawler *crawler.Crawler,
	engine *syncer.Engine,
	repository repository.ProductRepository,
	files *storage.Files,
	menuURL string,
) *Service {
	return &Service{
		fetcher:    fetcher,
		crawler:    crawler,
		engine:     engine,
		repository: repository,
		files:      files,
		menuURL:    menuURL,
	}
}

// BuildMenu fetches the storefront navigation, parses it and saves it.
func (s *Service) BuildMenu(ctx context.Context) (*domain.Tree, error) {
	log.Infof("🔄 Building category tree from %s", s.menuURL)

	page, err := s.fetcher.Fetch(ctx, s.menuURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch menu: %w", err)
	}

	tree, err := client.ParseMenu(page)
	if err != nil {
		return nil, fmt.Errorf("failed to parse menu: %w", err)
	}

	if err := s.files.SaveMenu(tree); err != nil {
		return nil, fmt.Errorf("failed to save menu: %w", err)
	}

	log.Infof("✅ Category tree built: %d top-level categories, %d leaves", len(tree.MainMenu), len(tree.Leaves()))
	return tree, nil
}

// categoryTree builds a fresh tree and falls back to the saved one. Having
// neither aborts the run.
func (s *Service) categoryTree(ctx context.Context) (*domain.Tree, error) {
	tree, buildErr := s.BuildMenu(ctx)
	if buildErr == nil {
		return tree, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	log.Warnf("⚠️ %v, falling back to saved category tree", buildErr)

	tree, loadErr := s.files.LoadMenu()
	if loadErr != nil {
		return nil, domain.NewConfigurationError("load category tree", errors.Join(buildErr, loadErr))
	}
	return tree, nil
}

// Crawl visits every leaf category and returns the raw records. The raw file
// is reset first and receives each category as soon as it is done.
func (s *Service) Crawl(ctx context.Context) ([]domain.ProductRecord, domain.CrawlStats, error) {
	tree, err := s.categoryTree(ctx)
	if err != nil {
		return nil, domain.CrawlStats{}, err
	}

	if err := s.files.ResetRaw(); err != nil {
		return nil, domain.CrawlStats{}, domain.NewConfigurationError("reset raw products file", err)
	}

	runID := time.Now().UTC().Format("20060102T150405.000000000")
	results, stats, err := s.crawler.Crawl(ctx, runID, tree, func(result domain.CategoryResult) error {
		return s.files.AppendRaw(result.Records)
	})
	if err != nil {
		return nil, stats, err
	}

	var records []domain.ProductRecord
	for _, result := range results {
		records = append(records, result.Records...)
	}
	return records, stats, nil
}

// Dedupe merges raw records and saves the result.
func (s *Service) Dedupe(records []domain.ProductRecord) ([]domain.ProductRecord, domain.MergeReport, error) {
	merged, report := aggregate.Merge(records)
	if err := s.files.SaveDedup(merged); err != nil {
		return merged, report, fmt.Errorf("failed to save deduplicated products: %w", err)
	}
	return merged, report, nil
}

// Sync reconciles records with the store and makes sure its indexes exist.
func (s *Service) Sync(ctx context.Context, records []domain.ProductRecord) (domain.SyncReport, error) {
	if err := s.repository.EnsureIndexes(ctx); err != nil {
		return domain.SyncReport{}, domain.NewConfigurationError("ensure store indexes", err)
	}
	return s.engine.Synchronize(ctx, records)
}

// Run executes the whole pipeline once. The crawl completes before merge
// and sync begin.
func (s *Service) Run(ctx context.Context) (*domain.RunReport, error) {
	report := &domain.RunReport{StartedAt: time.Now()}
	log.Info("🚀 Starting pipeline run")

	err := s.run(ctx, report)
	report.FinishedAt = time.Now()

	outcome := "completed"
	if err != nil {
		outcome = "failed"
	}
	metrics.RunsTotal.WithLabelValues(outcome).Inc()
	metrics.RunDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())

	if err != nil {
		log.Errorf("❌ Pipeline run failed: %v", err)
		return report, err
	}

	log.Infof("✅ Pipeline run finished in %s: %d raw records, %d unique, %d writes",
		report.FinishedAt.Sub(report.StartedAt).Round(time.Second),
		report.Crawl.Records, report.Merge.Output, report.Sync.Writes())
	return report, nil
}

func (s *Service) run(ctx context.Context, report *domain.RunReport) error {
	// an unreachable store aborts the run before any page is fetched
	if err := s.repository.Ping(ctx); err != nil {
		return domain.NewConfigurationError("ping store", err)
	}

	raw, stats, err := s.Crawl(ctx)
	report.Crawl = stats
	if err != nil {
		return err
	}

	merged, mergeReport, err := s.Dedupe(raw)
	report.Merge = mergeReport
	if err != nil {
		log.Warnf("⚠️ %v", err)
	}

	syncReport, err := s.Sync(ctx, merged)
	report.Sync = syncReport
	return err
}
