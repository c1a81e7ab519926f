package service_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"fouani/storesync/internal/client"
	"fouani/storesync/internal/config"
	"fouani/storesync/internal/crawler"
	"fouani/storesync/internal/domain"
	"fouani/storesync/internal/repository"
	"fouani/storesync/internal/service"
	"fouani/storesync/internal/storage"
	"fouani/storesync/internal/syncer"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const menuHTML = `<html><body><ul class="main-menu level-1">
  <li class="item"><a href="/c/phones">Phones</a>
    <ul class="main-menu level-m level-2">
      <li class="item"><a href="/c/android">Android</a></li>
    </ul>
  </li>
  <li class="item"><a href="/c/offers">Offers</a></li>
</ul></body></html>`

func listingHTML(next string, slugs ...string) string {
	body := `<div class="products-row">`
	for _, slug := range slugs {
		body += fmt.Sprintf(`<a href="/product/%s">%s</a>`, slug, slug)
	}
	body += `</div>`
	if next != "" {
		body += fmt.Sprintf(`<div class="pagination"><a class="pagination-link-label" href="?page=%s">next</a></div>`, next)
	}
	return body
}

func productHTML(sku string) string {
	return fmt.Sprintf(`<div class="product-detail-wrapper"><div class="label">Item %s</div><span class="sku">%s</span>
<div class="price">&#8358; 12,500.00</div></div>`, sku, sku)
}

func storefront(menuOK bool) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page")
		switch {
		case r.URL.Path == "/menu" && menuOK:
			fmt.Fprint(w, menuHTML)
		case r.URL.Path == "/c/android" && page == "1":
			fmt.Fprint(w, listingHTML("2", "p1", "p2"))
		case r.URL.Path == "/c/android" && page == "2":
			fmt.Fprint(w, listingHTML("3", "p3"))
		case r.URL.Path == "/c/android" && page == "3":
			fmt.Fprint(w, listingHTML(""))
		case r.URL.Path == "/c/offers" && page == "1":
			fmt.Fprint(w, listingHTML("", "p1", "guide"))
		case r.URL.Path == "/product/guide":
			fmt.Fprint(w, `<html><body><h1>Buying guide</h1></body></html>`)
		case r.URL.Path == "/product/p1", r.URL.Path == "/product/p2", r.URL.Path == "/product/p3":
			fmt.Fprint(w, productHTML(filepath.Base(r.URL.Path)))
		default:
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}
	}))
}

type fixture struct {
	svc   *service.Service
	repo  repository.ProductRepository
	files *storage.Files
}

func newFixture(t *testing.T, baseURL string, repo repository.ProductRepository) fixture {
	dir := t.TempDir()
	files := storage.NewFiles(config.FilesConfig{
		Menu:  filepath.Join(dir, "menu_structure.json"),
		Raw:   filepath.Join(dir, "products.json"),
		Dedup: filepath.Join(dir, "products_dedup.json"),
	})

	fetcher := client.NewFetcher(config.SiteConfig{Timeout: 5 * time.Second, UserAgent: "storesync-test"}, nil)
	svc := service.NewService(
		fetcher,
		crawler.New(fetcher, crawler.NewMemoryVisitedStore(), baseURL, 2),
		syncer.NewEngine(repo, 2),
		repo,
		files,
		baseURL+"/menu",
	)
	return fixture{svc: svc, repo: repo, files: files}
}

func TestService_Run(t *testing.T) {
	srv := storefront(true)
	defer srv.Close()

	f := newFixture(t, srv.URL, repository.NewMemoryRepository())

	report, err := f.svc.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, report.Crawl.Categories)
	assert.Equal(t, 4, report.Crawl.Records)
	assert.Equal(t, 1, report.Crawl.NotProduct)
	assert.Equal(t, 3, report.Merge.Output)
	assert.Equal(t, 3, report.Sync.Inserted)
	assert.Equal(t, 3, report.Sync.Active)

	raw, err := f.files.LoadRaw()
	require.NoError(t, err)
	assert.Len(t, raw, 4)

	dedup, err := f.files.LoadDedup()
	require.NoError(t, err)
	require.Len(t, dedup, 3)

	bySKU := make(map[string]domain.ProductRecord)
	for _, rec := range dedup {
		bySKU[rec.SKU] = rec
	}
	assert.Equal(t, []string{"Offers", "Phones"}, bySKU["p1"].MainCategory)
	assert.Equal(t, []string{"Android"}, bySKU["p1"].SubCategory)
	assert.Equal(t, "12500.00", bySKU["p1"].Price)

	menu, err := f.files.LoadMenu()
	require.NoError(t, err)
	assert.Len(t, menu.Leaves(), 2)

	again, err := f.svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, again.Sync.Writes())
}

func TestService_FallsBackToSavedMenu(t *testing.T) {
	good := storefront(true)
	f := newFixture(t, good.URL, repository.NewMemoryRepository())
	_, err := f.svc.BuildMenu(context.Background())
	require.NoError(t, err)
	good.Close()

	// same files, a site whose menu page is down
	broken := storefront(false)
	defer broken.Close()
	fetcher := client.NewFetcher(config.SiteConfig{Timeout: 5 * time.Second}, nil)
	svc := service.NewService(
		fetcher,
		crawler.New(fetcher, crawler.NewMemoryVisitedStore(), broken.URL, 1),
		syncer.NewEngine(f.repo, 10),
		f.repo,
		f.files,
		broken.URL+"/menu",
	)

	records, stats, err := svc.Crawl(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Categories)
	assert.Len(t, records, 4)
}

func TestService_NoCategoryTreeIsConfigurationError(t *testing.T) {
	srv := storefront(false)
	defer srv.Close()

	f := newFixture(t, srv.URL, repository.NewMemoryRepository())
	_, err := f.svc.Run(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsConfigurationError(err))
}

type downRepository struct {
	repository.ProductRepository
}

func (downRepository) Ping(context.Context) error {
	return fmt.Errorf("dial tcp: connection refused")
}

func TestService_UnreachableStoreAbortsBeforeCrawl(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		fmt.Fprint(w, menuHTML)
	}))
	defer srv.Close()

	f := newFixture(t, srv.URL, downRepository{})
	_, err := f.svc.Run(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsConfigurationError(err))
	assert.Zero(t, hits)
}
