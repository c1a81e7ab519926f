package client

import (
	"fmt"
	"strings"

	"fouani/storesync/internal/domain"
	"fouani/storesync/internal/urlnorm"

	"github.com/PuerkitoBio/goquery"
	log "github.com/sirupsen/logrus"
)

// Candidate selectors, most specific first. The first one that yields links wins.
var (
	productLinkSelectors = []string{
		`.products-row a[href*="/product/"]`,
		`.products-row a[href]`,
	}

	nextPageSelectors = []string{
		`.pagination-link-label[href]`,
		`.pagination a[href]`,
	}
)

// ParseListing extracts product links and the next-page affordance from one
// category listing page. pageNumber is the page that was requested.
func ParseListing(page, pageURL string, pageNumber int) (*domain.ListingPage, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	listing := &domain.ListingPage{
		URL:        pageURL,
		PageNumber: pageNumber,
	}

	for _, selector := range productLinkSelectors {
		listing.ProductLinks = collectLinks(doc.Find(selector), pageURL)
		if len(listing.ProductLinks) > 0 {
			break
		}
	}

	listing.NextURL = findNextPage(doc, pageURL, pageNumber+1)
	listing.HasNext = listing.NextURL != ""

	log.Debugf("Listing %s: %d product links, next page: %t", pageURL, len(listing.ProductLinks), listing.HasNext)
	return listing, nil
}

// collectLinks resolves and normalizes hrefs, dropping repeats but keeping first-seen order
func collectLinks(sel *goquery.Selection, base string) []string {
	var links []string
	seen := make(map[string]struct{})

	sel.Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(strings.ToLower(href), "javascript:") {
			return
		}

		abs, err := urlnorm.Resolve(base, href)
		if err != nil {
			log.Debugf("Skipping unparseable link %q: %v", href, err)
			return
		}

		normalized := urlnorm.Normalize(abs)
		if _, dup := seen[normalized]; dup {
			return
		}
		seen[normalized] = struct{}{}
		links = append(links, normalized)
	})

	return links
}

func findNextPage(doc *goquery.Document, base string, want int) string {
	for _, selector := range nextPageSelectors {
		next := ""
		doc.Find(selector).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			abs, err := urlnorm.Resolve(base, a.AttrOr("href", ""))
			if err != nil {
				return true
			}
			if urlnorm.PageOf(abs) == want {
				next = urlnorm.Normalize(abs)
				return false
			}
			return true
		})
		if next != "" {
			return next
		}
	}
	return ""
}
