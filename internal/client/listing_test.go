package client_test

import (
	"testing"

	"fouani/storesync/internal/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseListing(t *testing.T) {
	page := `<html><body>
<div class="products-row">
  <a href="/ng/en/product/a?ref=grid">A</a>
  <a href="/ng/en/product/a?ref=grid#top">A again</a>
  <a href="https://fouanistore.com/ng/en/product/b">B</a>
  <a href="/ng/en/wishlist/add">wishlist</a>
</div>
<div class="products-row"><a href="/ng/en/product/c">C</a></div>
<div class="pagination">
  <a class="pagination-link-label" href="?page=1">1</a>
  <a class="pagination-link-label" href="?page=21">21</a>
  <a class="pagination-link-label" href="?page=3&page=2">2</a>
</div>
</body></html>`

	listing, err := client.ParseListing(page, "https://fouanistore.com/ng/en/category/tv?page=1", 1)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://fouanistore.com/ng/en/product/a?ref=grid",
		"https://fouanistore.com/ng/en/product/b",
		"https://fouanistore.com/ng/en/product/c",
	}, listing.ProductLinks)
	assert.True(t, listing.HasNext)
	assert.Equal(t, "https://fouanistore.com/ng/en/category/tv?page=2", listing.NextURL)
}

func TestParseListing_FallbackSelectorAndLastPage(t *testing.T) {
	page := `<div class="products-row">
  <a href="#">top</a>
  <a href="javascript:void(0)">quick view</a>
  <a href="/ng/en/item/42">Item</a>
</div>
<div class="pagination"><a class="pagination-link-label" href="?page=2">2</a></div>`

	listing, err := client.ParseListing(page, "https://fouanistore.com/c/tv?page=3", 3)
	require.NoError(t, err)

	assert.Equal(t, []string{"https://fouanistore.com/ng/en/item/42"}, listing.ProductLinks)
	assert.False(t, listing.HasNext)
	assert.Empty(t, listing.NextURL)
}

func TestParseListing_SemicolonQueriesStayDistinct(t *testing.T) {
	page := `<div class="products-row">
  <a href="/product/view?id=7;v=1">Seven</a>
  <a href="/product/view?id=8;v=1">Eight</a>
</div>`

	listing, err := client.ParseListing(page, "https://shop.test/c/tv", 1)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://shop.test/product/view?id=7;v=1",
		"https://shop.test/product/view?id=8;v=1",
	}, listing.ProductLinks)
}

func TestParseListing_Empty(t *testing.T) {
	listing, err := client.ParseListing(`<html><body><p>No products</p></body></html>`, "https://fouanistore.com/c/tv", 1)
	require.NoError(t, err)
	assert.Empty(t, listing.ProductLinks)
	assert.False(t, listing.HasNext)
}
