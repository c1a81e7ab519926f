// Package urlnorm canonicalizes storefront URLs for identity comparison.
package urlnorm

import (
	"net/url"
	"sort"
	"strconv"
	"strings"
)

const pageParam = "page"

// Normalize returns the canonical form of raw: a repeated page parameter
// collapses to its last value, a first-page parameter is dropped, the
// remaining parameters are sorted by key and the fragment is removed.
// Scheme, userinfo and host are kept as written. Unparseable input is
// returned trimmed.
func Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	u.RawQuery = canonicalQuery(u.RawQuery)
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

func canonicalQuery(rawQuery string) string {
	query, err := url.ParseQuery(rawQuery)
	if err != nil {
		return canonicalRawQuery(rawQuery)
	}
	if pages, ok := query[pageParam]; ok {
		last := pages[len(pages)-1]
		if isFirstPage(last) {
			query.Del(pageParam)
		} else {
			query[pageParam] = []string{last}
		}
	}
	return query.Encode()
}

// canonicalRawQuery handles queries ParseQuery rejects, such as ';'
// separators or bad escapes. Pairs are kept verbatim so nothing is lost.
func canonicalRawQuery(rawQuery string) string {
	pairs, page, hasPage := splitPage(rawQuery)
	if hasPage {
		value, err := url.QueryUnescape(page)
		if err != nil || !isFirstPage(value) {
			pairs = append(pairs, pageParam+"="+page)
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return pairKey(pairs[i]) < pairKey(pairs[j])
	})
	return strings.Join(pairs, "&")
}

// splitPage separates the raw page values from the other '&' separated
// pairs of rawQuery. page is the last value seen.
func splitPage(rawQuery string) (pairs []string, page string, hasPage bool) {
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		if key, err := url.QueryUnescape(pairKey(pair)); err == nil && key == pageParam {
			_, page, _ = strings.Cut(pair, "=")
			hasPage = true
			continue
		}
		pairs = append(pairs, pair)
	}
	return pairs, page, hasPage
}

func pairKey(pair string) string {
	key, _, _ := strings.Cut(pair, "=")
	return key
}

func isFirstPage(value string) bool {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	return err == nil && n == 1
}

// PageOf returns the page number carried by raw, 1 when there is none.
func PageOf(raw string) int {
	u, err := url.Parse(raw)
	if err != nil {
		return 0
	}
	pages := u.Query()[pageParam]
	if len(pages) == 0 {
		return 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(pages[len(pages)-1]))
	if err != nil {
		return 0
	}
	return n
}

// WithPage sets the page parameter of raw, replacing any existing values.
func WithPage(raw string, page int) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		pairs, _, _ := splitPage(u.RawQuery)
		u.RawQuery = strings.Join(append(pairs, pageParam+"="+strconv.Itoa(page)), "&")
		return u.String()
	}
	query.Set(pageParam, strconv.Itoa(page))
	u.RawQuery = query.Encode()
	return u.String()
}

// Resolve turns ref into an absolute URL relative to base.
func Resolve(base, ref string) (string, error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	refURL, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", err
	}
	return baseURL.ResolveReference(refURL).String(), nil
}
