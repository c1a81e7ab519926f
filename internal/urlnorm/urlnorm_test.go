package urlnorm_test

import (
	"testing"

	"fouani/storesync/internal/urlnorm"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"no query", "https://fouanistore.com/ng/en/category/tv", "https://fouanistore.com/ng/en/category/tv"},
		{"first page dropped", "https://fouanistore.com/c/tv?page=1", "https://fouanistore.com/c/tv"},
		{"repeated page keeps last", "https://fouanistore.com/c/tv?page=2&page=3", "https://fouanistore.com/c/tv?page=3"},
		{"repeated page ending at first", "https://fouanistore.com/c/tv?page=4&page=1", "https://fouanistore.com/c/tv"},
		{"params sorted", "https://fouanistore.com/c/tv?sort=price&brand=lg&page=2", "https://fouanistore.com/c/tv?brand=lg&page=2&sort=price"},
		{"fragment removed", "https://fouanistore.com/p/1#reviews", "https://fouanistore.com/p/1"},
		{"padded first page", "https://fouanistore.com/c/tv?page=%201", "https://fouanistore.com/c/tv"},
		{"semicolon pair kept", "https://h/c?a=1;b=2", "https://h/c?a=1;b=2"},
		{"semicolon pairs with page", "https://h/c?z=1;y=2&page=1&a=%zz", "https://h/c?a=%zz&z=1;y=2"},
		{"semicolon pairs with later page", "https://h/c?id=7;v=1&page=4", "https://h/c?id=7;v=1&page=4"},
		{"opaque url kept", "mailto:x@y.z", "mailto:x@y.z"},
		{"userinfo kept", "https://user:pw@h/p?page=1", "https://user:pw@h/p"},
		{"scheme relative keeps authority", "//host/p", "//host/p"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, urlnorm.Normalize(tt.in))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"https://fouanistore.com/c/tv?page=2&page=3&b=1&a=2",
		"https://fouanistore.com/c/tv?page=1",
		"https://fouanistore.com/c/a%20b?q=x+y&q=z",
		"/relative/path?page=5",
		"https://fouanistore.com/c/tv?",
		"https://h/c?z=1;y=2&page=3&a=%zz",
		"//host/p?page=2",
	}
	for _, in := range inputs {
		once := urlnorm.Normalize(in)
		assert.Equal(t, once, urlnorm.Normalize(once), in)
	}
}

func TestNormalize_FirstPageEqualsNoPage(t *testing.T) {
	base := "https://fouanistore.com/c/phones?brand=tecno"
	assert.Equal(t, urlnorm.Normalize(base), urlnorm.Normalize(base+"&page=1"))
}

func TestNormalize_KeepsDistinctRawQueries(t *testing.T) {
	a := urlnorm.Normalize("https://shop.test/product/view?id=7;v=1")
	b := urlnorm.Normalize("https://shop.test/product/view?id=8;v=1")
	assert.NotEqual(t, a, b)
	assert.Equal(t, "https://shop.test/product/view?id=7;v=1", a)
}

func TestWithPage_RawQuery(t *testing.T) {
	u := urlnorm.WithPage("https://h/c?id=7;v=1&page=9", 2)
	assert.Equal(t, "https://h/c?id=7;v=1&page=2", u)
	assert.Equal(t, 2, urlnorm.PageOf(u))
}

func TestWithPageAndPageOf(t *testing.T) {
	u := urlnorm.WithPage("https://fouanistore.com/c/tv?brand=lg&page=7", 3)
	assert.Equal(t, 3, urlnorm.PageOf(u))
	assert.Equal(t, "https://fouanistore.com/c/tv?brand=lg&page=3", urlnorm.Normalize(u))

	assert.Equal(t, 1, urlnorm.PageOf("https://fouanistore.com/c/tv"))
	assert.Equal(t, 0, urlnorm.PageOf("https://fouanistore.com/c/tv?page=abc"))
}

func TestResolve(t *testing.T) {
	got, err := urlnorm.Resolve("https://fouanistore.com/ng/en/product/1", "/images/a.jpg")
	assert.NoError(t, err)
	assert.Equal(t, "https://fouanistore.com/images/a.jpg", got)

	got, err = urlnorm.Resolve("https://fouanistore.com/ng/en/product/1", "https://cdn.example.com/b.jpg")
	assert.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/b.jpg", got)
}
