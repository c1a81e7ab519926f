package domain_test

import (
	"testing"

	"fouani/storesync/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func node(title, link string, children ...*domain.CategoryNode) *domain.CategoryNode {
	return &domain.CategoryNode{Title: title, Link: link, Children: children}
}

func TestTree_Leaves(t *testing.T) {
	tree := domain.NewTree([]*domain.CategoryNode{
		node("Phones", "/phones",
			node("Smartphones", "",
				node("Android", "/phones/android"),
				node("iOS", "/phones/ios",
					node("Too deep", "/phones/ios/deep"),
				),
			),
			node("Accessories", "/phones/accessories"),
			node("Broken", ""),
		),
		node("Offers", "/offers"),
	})

	leaves := tree.Leaves()
	require.Len(t, leaves, 4)

	var keys []string
	for _, l := range leaves {
		keys = append(keys, l.PathKey())
	}
	assert.Equal(t, []string{
		"Phones > Smartphones > Android",
		"Phones > Smartphones > iOS",
		"Phones > Accessories",
		"Offers",
	}, keys)

	assert.Equal(t, "/phones/ios", leaves[1].Node.Link, "nodes at the deepest level are crawled through their own link")
}

func TestTree_AssignDepths(t *testing.T) {
	deep := node("C", "/c")
	tree := domain.NewTree([]*domain.CategoryNode{node("A", "", node("B", "", deep))})

	assert.Equal(t, 0, tree.MainMenu[0].Depth)
	assert.Equal(t, 1, tree.MainMenu[0].Children[0].Depth)
	assert.Equal(t, 2, deep.Depth)
	assert.Equal(t, 3, tree.Count())
}

func TestDepthPolicy(t *testing.T) {
	assert.True(t, domain.DepthAllowed(0))
	assert.True(t, domain.DepthAllowed(domain.MaxCategoryDepth))
	assert.False(t, domain.DepthAllowed(domain.MaxCategoryDepth+1))
	assert.True(t, domain.CanDescend(1))
	assert.False(t, domain.CanDescend(domain.MaxCategoryDepth))
}
