package syncer_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"fouani/storesync/internal/domain"
	"fouani/storesync/internal/repository"
	"fouani/storesync/internal/syncer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(sku, main string) domain.ProductRecord {
	return domain.ProductRecord{
		SKU:          sku,
		Title:        "Product " + sku,
		Price:        "500.00",
		URL:          "https://shop.test/product/" + sku,
		Images:       []string{},
		TagsImages:   []string{},
		MainCategory: []string{main},
		SubCategory:  []string{},
		ProductType:  []string{},
	}
}

func stored(t *testing.T, repo repository.ProductRepository) map[string]domain.ProductRecord {
	t.Helper()
	all, err := repo.FindAll(context.Background())
	require.NoError(t, err)
	out := make(map[string]domain.ProductRecord, len(all))
	for _, rec := range all {
		out[rec.SKU] = rec
	}
	return out
}

func TestSynchronize_Transitions(t *testing.T) {
	ctx := context.Background()
	c := product("C", "TV")
	c.Description = "kept as is"
	repo := repository.NewMemoryRepository(product("A", "Phones"), product("B", "Phones"), c)

	newA := product("A", "Offers")
	newA.Price = "450.00"

	report, err := syncer.NewEngine(repo, 2).Synchronize(ctx, []domain.ProductRecord{newA, product("D", "Phones")})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, 2, report.SoftDeleted)
	assert.Equal(t, 2, report.Active)
	assert.Equal(t, 2, report.Deleted)

	got := stored(t, repo)
	require.Len(t, got, 4)
	assert.True(t, got["A"].Equal(newA))
	assert.False(t, got["D"].Deleted)
	assert.True(t, got["B"].Deleted)
	assert.True(t, got["C"].Deleted)

	c.Deleted = true
	assert.True(t, got["C"].Equal(c), "soft delete only flips the flag")
}

func TestSynchronize_SecondRunWritesNothing(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository(product("A", "Phones"), product("B", "Phones"))
	engine := syncer.NewEngine(repo, 1000)
	input := []domain.ProductRecord{product("A", "Offers"), product("C", "TV")}

	first, err := engine.Synchronize(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Writes())

	second, err := engine.Synchronize(ctx, input)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Writes())
	assert.Equal(t, 2, second.Unchanged)
	assert.Equal(t, first.Active, second.Active)
	assert.Equal(t, first.Deleted, second.Deleted)
}

func TestSynchronize_NeverShrinksStore(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewMemoryRepository(product("A", "x"), product("B", "x"), product("C", "x"))
	engine := syncer.NewEngine(repo, 2)

	inputs := [][]domain.ProductRecord{
		{product("A", "x")},
		{},
		{product("D", "x"), product("B", "y")},
		{product("A", "z")},
	}

	total := 3
	for i, input := range inputs {
		report, err := engine.Synchronize(ctx, input)
		require.NoError(t, err, "run %d", i)
		assert.GreaterOrEqual(t, report.Active+report.Deleted, total, "run %d", i)
		total = report.Active + report.Deleted
	}
	assert.Equal(t, 4, total)
}

func TestSynchronize_RestoresDeletedRecord(t *testing.T) {
	deleted := product("A", "Phones")
	deleted.Deleted = true
	repo := repository.NewMemoryRepository(deleted)

	report, err := syncer.NewEngine(repo, 10).Synchronize(context.Background(), []domain.ProductRecord{product("A", "Phones")})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Updated)
	assert.False(t, stored(t, repo)["A"].Deleted)
}

func TestSynchronize_BatchSizeDoesNotChangeOutcome(t *testing.T) {
	var seed, input []domain.ProductRecord
	for i := 0; i < 25; i++ {
		seed = append(seed, product(fmt.Sprintf("S%02d", i), "Old"))
	}
	for i := 10; i < 40; i++ {
		input = append(input, product(fmt.Sprintf("S%02d", i), "New"))
	}

	var outcomes []map[string]domain.ProductRecord
	var reports []domain.SyncReport
	for _, size := range []int{1, 3, 7, 1000} {
		repo := repository.NewMemoryRepository(seed...)
		report, err := syncer.NewEngine(repo, size).Synchronize(context.Background(), input)
		require.NoError(t, err)
		outcomes = append(outcomes, stored(t, repo))
		reports = append(reports, report)
	}

	for i := 1; i < len(outcomes); i++ {
		assert.Equal(t, outcomes[0], outcomes[i])
		assert.Equal(t, reports[0], reports[i])
	}
	assert.Equal(t, 15, reports[0].Inserted)
	assert.Equal(t, 15, reports[0].Updated)
	assert.Equal(t, 10, reports[0].SoftDeleted)
}

func TestSynchronize_SkipsUnidentifiedAndRepeated(t *testing.T) {
	repo := repository.NewMemoryRepository()

	report, err := syncer.NewEngine(repo, 10).Synchronize(context.Background(), []domain.ProductRecord{
		product("", "x"), product("A", "first"), product("A", "second"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 1, report.Inserted)
	assert.Equal(t, []string{"first"}, stored(t, repo)["A"].MainCategory)
}

// racingRepository inserts a conflicting record right before each insert batch,
// the way a concurrent writer would.
type racingRepository struct {
	repository.ProductRepository
	conflict domain.ProductRecord
}

func (r *racingRepository) InsertBatch(ctx context.Context, records []domain.ProductRecord) (repository.BatchResult, error) {
	if _, err := r.ProductRepository.InsertBatch(ctx, []domain.ProductRecord{r.conflict}); err != nil {
		return repository.BatchResult{}, err
	}
	return r.ProductRepository.InsertBatch(ctx, records)
}

func TestSynchronize_UniquenessFailureIsIsolated(t *testing.T) {
	repo := &racingRepository{
		ProductRepository: repository.NewMemoryRepository(),
		conflict:          product("B", "elsewhere"),
	}

	report, err := syncer.NewEngine(repo, 10).Synchronize(context.Background(), []domain.ProductRecord{
		product("A", "x"), product("B", "x"), product("C", "x"),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, report.Inserted)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "B", report.Failures[0].SKU)
	assert.ErrorIs(t, report.Failures[0].Err, repository.ErrDuplicateSKU)
}

type unreachableRepository struct {
	repository.ProductRepository
}

func (unreachableRepository) FindAll(context.Context) ([]domain.ProductRecord, error) {
	return nil, errors.New("connection refused")
}

func TestSynchronize_UnreachableStoreIsConfigurationError(t *testing.T) {
	_, err := syncer.NewEngine(unreachableRepository{}, 10).Synchronize(context.Background(), []domain.ProductRecord{product("A", "x")})
	require.Error(t, err)
	assert.True(t, domain.IsConfigurationError(err))
}
