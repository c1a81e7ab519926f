// Package syncer reconciles a deduplicated product set with the persisted store.
package syncer

import (
	"context"
	"slices"

	"fouani/storesync/internal/domain"
	"fouani/storesync/internal/metrics"
	"fouani/storesync/internal/repository"

	log "github.com/sirupsen/logrus"
)

const DefaultBatchSize = 1000

type Engine struct {
	repo      repository.ProductRepository
	batchSize int
}

func NewEngine(repo repository.ProductRepository, batchSize int) *Engine {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Engine{
		repo:      repo,
		batchSize: batchSize,
	}
}

// plan is the full set of writes for one synchronization, decided before anything is written
type plan struct {
	inserts []domain.ProductRecord
	updates []domain.ProductRecord
	deletes []string
}

// Synchronize makes the store mirror records:
//
//	in store and in records   -> overwrite, deleted=false
//	only in records           -> insert, deleted=false
//	only in store             -> deleted=true, other fields kept
//
// Records already equal to their stored version are not written, so a
// second run with the same input writes nothing. Per-record refusals are
// counted in the report; only a store failure aborts, as a ConfigurationError.
func (e *Engine) Synchronize(ctx context.Context, records []domain.ProductRecord) (domain.SyncReport, error) {
	var report domain.SyncReport

	existing, err := e.repo.FindAll(ctx)
	if err != nil {
		return report, domain.NewConfigurationError("load stored products", err)
	}
	log.Infof("🔄 Synchronizing %d products against %d stored", len(records), len(existing))

	p := e.plan(existing, records, &report)

	for batch := range slices.Chunk(p.inserts, e.batchSize) {
		res, err := e.repo.InsertBatch(ctx, batch)
		if err != nil {
			return report, domain.NewConfigurationError("insert products", err)
		}
		report.Inserted += res.Written
		e.recordFailures(&report, res.Failures)
		metrics.SyncWrites.WithLabelValues("insert").Add(float64(res.Written))
	}

	for batch := range slices.Chunk(p.updates, e.batchSize) {
		res, err := e.repo.ReplaceBatch(ctx, batch)
		if err != nil {
			return report, domain.NewConfigurationError("update products", err)
		}
		report.Updated += res.Written
		e.recordFailures(&report, res.Failures)
		metrics.SyncWrites.WithLabelValues("update").Add(float64(res.Written))
	}

	for batch := range slices.Chunk(p.deletes, e.batchSize) {
		flagged, err := e.repo.MarkDeleted(ctx, batch)
		if err != nil {
			return report, domain.NewConfigurationError("soft delete products", err)
		}
		report.SoftDeleted += flagged
		metrics.SyncWrites.WithLabelValues("soft_delete").Add(float64(flagged))
	}

	report.Active, report.Deleted, err = e.repo.Counts(ctx)
	if err != nil {
		return report, domain.NewConfigurationError("count products", err)
	}

	log.Infof("✅ Sync finished: %d inserted, %d updated, %d unchanged, %d soft-deleted, %d skipped, %d failed (%d active, %d deleted)",
		report.Inserted, report.Updated, report.Unchanged, report.SoftDeleted, report.Skipped, report.Failed,
		report.Active, report.Deleted)
	return report, nil
}

func (e *Engine) plan(existing, records []domain.ProductRecord, report *domain.SyncReport) plan {
	stored := make(map[string]domain.ProductRecord, len(existing))
	for _, rec := range existing {
		stored[rec.SKU] = rec
	}

	var p plan
	incoming := make(map[string]struct{}, len(records))
	for _, rec := range records {
		sku, err := rec.Identifier()
		if err != nil {
			report.Skipped++
			log.Debugf("Skipping sync input: %v", err)
			continue
		}
		if _, dup := incoming[sku]; dup {
			log.Warnf("⚠️ Duplicate sku %s in sync input, keeping the first", sku)
			report.Skipped++
			continue
		}
		incoming[sku] = struct{}{}

		desired := rec.Clone()
		desired.SKU = sku
		desired.Deleted = false

		current, ok := stored[sku]
		switch {
		case !ok:
			p.inserts = append(p.inserts, desired)
		case current.Equal(desired):
			report.Unchanged++
		default:
			p.updates = append(p.updates, desired)
		}
	}

	for _, rec := range existing {
		if _, ok := incoming[rec.SKU]; ok || rec.Deleted {
			continue
		}
		p.deletes = append(p.deletes, rec.SKU)
	}

	return p
}

func (e *Engine) recordFailures(report *domain.SyncReport, failures []domain.WriteFailure) {
	for _, f := range failures {
		log.Warnf("⚠️ Failed to write product %s: %v", f.SKU, f.Err)
	}
	report.Failures = append(report.Failures, failures...)
	report.Failed += len(failures)
	metrics.SyncWrites.WithLabelValues("failed").Add(float64(len(failures)))
}
