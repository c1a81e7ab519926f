// Package repository persists product records keyed by sku.
package repository

import (
	"context"
	"errors"

	"fouani/storesync/internal/domain"
)

// ErrDuplicateSKU is reported per record when the store already holds the sku.
var ErrDuplicateSKU = errors.New("duplicate sku")

// ErrUnknownSKU is reported per record when a replace targets a missing sku.
var ErrUnknownSKU = errors.New("sku not found")

// BatchResult reports one batch write. Failures are records the store
// refused; the rest of the batch was written.
type BatchResult struct {
	Written  int
	Failures []domain.WriteFailure
}

// ProductRepository is the persisted product store. Records are never
// removed, only flagged deleted. A returned error means the store itself
// failed; per-record refusals are reported in BatchResult.
type ProductRepository interface {
	FindAll(ctx context.Context) ([]domain.ProductRecord, error)
	InsertBatch(ctx context.Context, records []domain.ProductRecord) (BatchResult, error)
	ReplaceBatch(ctx context.Context, records []domain.ProductRecord) (BatchResult, error)
	MarkDeleted(ctx context.Context, skus []string) (int, error)
	Counts(ctx context.Context) (active, deleted int, err error)
	EnsureIndexes(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// IndexedFields are the secondary indexes every store keeps besides the unique sku.
var IndexedFields = []string{"title", "main_category", "sub_category", "product_type", "availability", "deleted"}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
