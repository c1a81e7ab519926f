// Package aggregate consolidates raw crawl output into one record per sku.
package aggregate

import (
	"slices"
	"strings"

	"fouani/storesync/internal/domain"
	"fouani/storesync/internal/metrics"

	log "github.com/sirupsen/logrus"
)

// Merge groups records by sku in first-occurrence order.
//
// The first record of a group supplies every non-category field ("first
// wins"). Category fields become the sorted union of all members' values.
// Records without a sku are dropped and counted as skipped. Deleted is
// carried over from the first record unchanged.
func Merge(records []domain.ProductRecord) ([]domain.ProductRecord, domain.MergeReport) {
	report := domain.MergeReport{Input: len(records)}

	index := make(map[string]int, len(records))
	merged := make([]domain.ProductRecord, 0, len(records))

	for _, rec := range records {
		sku, err := rec.Identifier()
		if err != nil {
			report.Skipped++
			log.Debugf("Skipping record: %v", err)
			continue
		}

		i, seen := index[sku]
		if !seen {
			base := rec.Clone()
			base.SKU = sku
			index[sku] = len(merged)
			merged = append(merged, base)
			continue
		}

		report.Merged++
		group := &merged[i]
		group.MainCategory = append(group.MainCategory, rec.MainCategory...)
		group.SubCategory = append(group.SubCategory, rec.SubCategory...)
		group.ProductType = append(group.ProductType, rec.ProductType...)
	}

	for i := range merged {
		merged[i].MainCategory = sortedUnique(merged[i].MainCategory)
		merged[i].SubCategory = sortedUnique(merged[i].SubCategory)
		merged[i].ProductType = sortedUnique(merged[i].ProductType)
	}

	report.Output = len(merged)
	if report.Skipped > 0 {
		metrics.MergeSkipped.Add(float64(report.Skipped))
		log.Warnf("⚠️ Skipped %d records without sku", report.Skipped)
	}
	log.Infof("✅ Merged %d records into %d unique products", report.Input, report.Output)
	return merged, report
}

// sortedUnique returns values sorted with duplicates and blanks removed. Never nil.
func sortedUnique(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
