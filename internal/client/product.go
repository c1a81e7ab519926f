package client

import (
	"fmt"
	"regexp"
	"strings"

	"fouani/storesync/internal/domain"
	"fouani/storesync/internal/urlnorm"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

const detailRegion = ".product-detail-wrapper"

type scope int

const (
	scopeDetail scope = iota
	scopeDocument
)

// source is one place a field value may come from. An empty attr reads the element text.
type source struct {
	scope    scope
	selector string
	attr     string
}

// Field sources in priority order.
var (
	skuSources = []source{
		{scopeDetail, ".sku", ""},
		{scopeDocument, `[itemprop="sku"]`, "content"},
		{scopeDocument, `[itemprop="sku"]`, ""},
	}
	titleSources = []source{
		{scopeDetail, ".label", ""},
		{scopeDocument, "h1", ""},
		{scopeDocument, `meta[property="og:title"]`, "content"},
	}
	priceSources = []source{
		{scopeDocument, ".price", ""},
		{scopeDocument, `[itemprop="price"]`, "content"},
		{scopeDocument, `meta[property="product:price:amount"]`, "content"},
	}
	availabilitySources = []source{
		{scopeDocument, "td.availability", ""},
		{scopeDocument, ".availability", ""},
	}

	imageContainers    = []string{".custom-dots img"}
	tagImageContainers = []string{".tags-images img"}
	imageAttrs         = []string{"src", "data-src"}
)

var nonPriceChars = regexp.MustCompile(`[^\d.]`)

// ExtractProduct turns a product page into a record. Pages without the
// product-detail region return domain.ErrNotProduct. A field whose sources
// are all empty is left empty; it never fails the other fields.
func ExtractProduct(page, pageURL string) (*domain.ProductRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	detail := doc.Find(detailRegion).First()
	if detail.Length() == 0 {
		return nil, domain.ErrNotProduct
	}

	scopes := map[scope]*goquery.Selection{
		scopeDetail:   detail,
		scopeDocument: doc.Selection,
	}

	record := &domain.ProductRecord{
		URL:          pageURL,
		SKU:          firstValue(scopes, skuSources, cleanText),
		Title:        firstValue(scopes, titleSources, cleanText),
		Price:        firstValue(scopes, priceSources, cleanPrice),
		Availability: firstValue(scopes, availabilitySources, cleanText),
		Images:       collectImages(doc, imageContainers, pageURL),
		TagsImages:   collectImages(doc, tagImageContainers, pageURL),
		MainCategory: []string{},
		SubCategory:  []string{},
		ProductType:  []string{},
	}

	panels := doc.Find(".panel.active")
	if panels.Length() > 0 {
		record.Description = description(panels.Eq(0))
	}
	if panels.Length() > 1 {
		record.Specifications = specifications(panels.Eq(1))
	}

	return record, nil
}

func firstValue(scopes map[scope]*goquery.Selection, sources []source, clean func(string) string) string {
	for _, src := range sources {
		sel := scopes[src.scope].Find(src.selector)
		value := ""
		sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			raw := s.Text()
			if src.attr != "" {
				raw = s.AttrOr(src.attr, "")
			}
			value = clean(raw)
			return value == ""
		})
		if value != "" {
			return value
		}
	}
	return ""
}

func cleanText(raw string) string {
	return strings.Join(strings.Fields(raw), " ")
}

// cleanPrice keeps only digits and the decimal point
func cleanPrice(raw string) string {
	return nonPriceChars.ReplaceAllString(raw, "")
}

func collectImages(doc *goquery.Document, containers []string, base string) []string {
	images := []string{}
	for _, selector := range containers {
		doc.Find(selector).Each(func(_ int, img *goquery.Selection) {
			for _, attr := range imageAttrs {
				src := strings.TrimSpace(img.AttrOr(attr, ""))
				if src == "" {
					continue
				}
				if abs, err := urlnorm.Resolve(base, src); err == nil {
					images = append(images, abs)
				}
				return
			}
		})
	}
	return images
}

// description joins the non-empty text lines of the panel's text block
func description(panel *goquery.Selection) string {
	block := panel.Find(".texts").First()
	if block.Length() == 0 {
		return ""
	}

	var lines []string
	for _, n := range block.Nodes {
		walkText(n, func(text string) {
			for _, line := range strings.Split(text, "\n") {
				if line = cleanText(line); line != "" {
					lines = append(lines, line)
				}
			}
		})
	}
	return strings.Join(lines, "\n")
}

func walkText(root *html.Node, visit func(string)) {
	stack := []*html.Node{root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if n.Type == html.TextNode {
			visit(n.Data)
			continue
		}
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			continue
		}

		var children []*html.Node
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			children = append(children, c)
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
}

// specifications reads label/value rows; rows missing either side are skipped
func specifications(panel *goquery.Selection) map[string]string {
	specs := make(map[string]string)
	panel.Find("tr").Each(func(_ int, row *goquery.Selection) {
		label := cleanText(row.Find(".row-label").First().Text())
		value := cleanText(row.Find(".row-value").First().Text())
		if label == "" || value == "" {
			return
		}
		specs[label] = value
	})
	if len(specs) == 0 {
		return nil
	}
	return specs
}
