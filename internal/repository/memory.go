package repository

import (
	"context"
	"sync"

	"fouani/storesync/internal/domain"
)

type memoryRepository struct {
	mu      sync.RWMutex
	order   []string
	records map[string]domain.ProductRecord
}

// NewMemoryRepository returns a process-local store, used by the memory driver and in tests.
func NewMemoryRepository(seed ...domain.ProductRecord) ProductRepository {
	r := &memoryRepository{records: make(map[string]domain.ProductRecord)}
	for _, rec := range seed {
		if _, ok := r.records[rec.SKU]; !ok {
			r.order = append(r.order, rec.SKU)
		}
		r.records[rec.SKU] = rec.Clone()
	}
	return r
}

func (r *memoryRepository) FindAll(ctx context.Context) ([]domain.ProductRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.ProductRecord, 0, len(r.order))
	for _, sku := range r.order {
		out = append(out, r.records[sku].Clone())
	}
	return out, nil
}

func (r *memoryRepository) InsertBatch(ctx context.Context, records []domain.ProductRecord) (BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return BatchResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var result BatchResult
	for _, rec := range records {
		if _, exists := r.records[rec.SKU]; exists {
			result.Failures = append(result.Failures, domain.WriteFailure{SKU: rec.SKU, Err: ErrDuplicateSKU})
			continue
		}
		r.order = append(r.order, rec.SKU)
		r.records[rec.SKU] = rec.Clone()
		result.Written++
	}
	return result, nil
}

func (r *memoryRepository) ReplaceBatch(ctx context.Context, records []domain.ProductRecord) (BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return BatchResult{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var result BatchResult
	for _, rec := range records {
		if _, exists := r.records[rec.SKU]; !exists {
			result.Failures = append(result.Failures, domain.WriteFailure{SKU: rec.SKU, Err: ErrUnknownSKU})
			continue
		}
		r.records[rec.SKU] = rec.Clone()
		result.Written++
	}
	return result, nil
}

func (r *memoryRepository) MarkDeleted(ctx context.Context, skus []string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	flagged := 0
	for _, sku := range skus {
		rec, ok := r.records[sku]
		if !ok || rec.Deleted {
			continue
		}
		rec.Deleted = true
		r.records[sku] = rec
		flagged++
	}
	return flagged, nil
}

func (r *memoryRepository) Counts(ctx context.Context) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	active, deleted := 0, 0
	for _, rec := range r.records {
		if rec.Deleted {
			deleted++
		} else {
			active++
		}
	}
	return active, deleted, nil
}

func (r *memoryRepository) EnsureIndexes(context.Context) error { return nil }

func (r *memoryRepository) Ping(ctx context.Context) error { return ctx.Err() }

func (r *memoryRepository) Close(context.Context) error { return nil }
