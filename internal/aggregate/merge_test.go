package aggregate_test

import (
	"testing"

	"fouani/storesync/internal/aggregate"
	"fouani/storesync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(sku, title, main string) domain.ProductRecord {
	return domain.ProductRecord{
		SKU:          sku,
		Title:        title,
		URL:          "https://shop.test/product/" + sku,
		MainCategory: []string{main},
		SubCategory:  []string{},
		ProductType:  []string{},
	}
}

func TestMerge_CrossListedProduct(t *testing.T) {
	phones := record("A1", "Phone", "Phones")
	phones.Price = "100"
	offers := record("A1", "Phone (promo)", "Offers")
	offers.Price = "90"

	out, report := aggregate.Merge([]domain.ProductRecord{phones, offers})
	require.Len(t, out, 1)

	assert.Equal(t, []string{"Offers", "Phones"}, out[0].MainCategory)
	assert.Equal(t, "Phone", out[0].Title, "first occurrence wins")
	assert.Equal(t, "100", out[0].Price)
	assert.Equal(t, domain.MergeReport{Input: 2, Output: 1, Merged: 1}, report)
}

func TestMerge_SkipsMissingSKU(t *testing.T) {
	out, report := aggregate.Merge([]domain.ProductRecord{
		record("", "No id", "Phones"),
		record("  ", "Blank id", "Phones"),
		record("B2", "TV", "TV"),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "B2", out[0].SKU)
	assert.Equal(t, 2, report.Skipped)
}

func TestMerge_Idempotent(t *testing.T) {
	in := []domain.ProductRecord{
		record("C", "c", "Zeta"),
		record("A", "a", "Phones"),
		record("C", "c2", "Alpha"),
		record("A", "a2", "Phones"),
		record("B", "b", "Offers"),
	}

	once, _ := aggregate.Merge(in)
	twice, _ := aggregate.Merge(once)
	assert.Equal(t, once, twice)

	seen := make(map[string]bool)
	for _, rec := range once {
		assert.False(t, seen[rec.SKU], "duplicate sku %s", rec.SKU)
		seen[rec.SKU] = true
		assert.IsIncreasing(t, rec.MainCategory)
	}
	assert.Equal(t, []string{"C", "A", "B"}, []string{once[0].SKU, once[1].SKU, once[2].SKU})
	assert.Equal(t, []string{"Alpha", "Zeta"}, once[0].MainCategory)
	assert.Equal(t, []string{"Phones"}, once[1].MainCategory)
}

func TestMerge_DoesNotAliasInput(t *testing.T) {
	in := []domain.ProductRecord{record("A", "a", "Phones"), record("A", "a", "Offers")}
	out, _ := aggregate.Merge(in)

	assert.Equal(t, []string{"Phones"}, in[0].MainCategory)
	out[0].MainCategory[0] = "changed"
	assert.Equal(t, []string{"Phones"}, in[0].MainCategory)
}

func TestMerge_KeepsDeletedFlag(t *testing.T) {
	rec := record("A", "a", "Phones")
	rec.Deleted = true

	out, _ := aggregate.Merge([]domain.ProductRecord{rec})
	assert.True(t, out[0].Deleted)
}
