package domain_test

import (
	"testing"

	"fouani/storesync/internal/domain"

	"github.com/stretchr/testify/assert"
)

func TestProductRecord_WithCategoryPath(t *testing.T) {
	rec := domain.ProductRecord{SKU: "A1", Images: []string{"x.jpg"}}

	got := rec.WithCategoryPath([]string{"Phones", "Smartphones"})
	assert.Equal(t, []string{"Phones"}, got.MainCategory)
	assert.Equal(t, []string{"Smartphones"}, got.SubCategory)
	assert.Equal(t, []string{}, got.ProductType)

	got.Images[0] = "changed.jpg"
	assert.Equal(t, "x.jpg", rec.Images[0])
}

func TestProductRecord_Equal(t *testing.T) {
	a := domain.ProductRecord{SKU: "A1", Title: "Phone", Images: nil, MainCategory: []string{"Phones"}}
	b := a.Clone()
	b.Images = []string{}

	assert.True(t, a.Equal(b), "nil and empty lists compare equal")

	b.Price = "100"
	assert.False(t, a.Equal(b))

	c := a.Clone()
	c.Deleted = true
	assert.False(t, a.Equal(c))
}

func TestProductRecord_Identifier(t *testing.T) {
	sku, err := domain.ProductRecord{SKU: "  TV-55 "}.Identifier()
	assert.NoError(t, err)
	assert.Equal(t, "TV-55", sku)

	_, err = domain.ProductRecord{SKU: " ", URL: "https://shop.test/product/x"}.Identifier()
	assert.ErrorIs(t, err, domain.ErrMissingIdentifier)
	assert.Contains(t, err.Error(), "https://shop.test/product/x")
}
