package proxy

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"resty.dev/v3"
)

const maxParallelChecks = 20

// Supplier hands out proxies in round-robin order
type Supplier interface {
	Next() string
	Len() int
}

type roundRobin struct {
	mu      sync.Mutex
	proxies []string
	next    int
}

// NewStatic returns a supplier over proxies without checking them
func NewStatic(proxies []string) Supplier {
	return &roundRobin{proxies: append([]string(nil), proxies...)}
}

// NewChecked keeps only the proxies that can reach testURL. Order of the
// surviving proxies follows the input order.
func NewChecked(ctx context.Context, proxies []string, testURL string, timeout time.Duration) Supplier {
	if len(proxies) == 0 {
		return NewStatic(nil)
	}

	log.Infof("🔄 Checking %d proxies against %s...", len(proxies), testURL)

	ok := make([]bool, len(proxies))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelChecks)
	for i, p := range proxies {
		g.Go(func() error {
			ok[i] = reachable(gctx, p, testURL, timeout)
			return nil
		})
	}
	_ = g.Wait()

	working := make([]string, 0, len(proxies))
	for i, p := range proxies {
		if ok[i] {
			working = append(working, p)
		} else {
			log.Warnf("⚠️ Proxy %s is not working, skipping", p)
		}
	}

	log.Infof("✅ %d of %d proxies usable", len(working), len(proxies))
	return &roundRobin{proxies: working}
}

func (r *roundRobin) Next() string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.proxies) == 0 {
		return ""
	}

	p := r.proxies[r.next]
	r.next = (r.next + 1) % len(r.proxies)
	return p
}

func (r *roundRobin) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.proxies)
}

func reachable(ctx context.Context, proxyURL, testURL string, timeout time.Duration) bool {
	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetProxy(proxyURL)

	resp, err := client.R().
		SetContext(ctx).
		Get(testURL)
	if err != nil {
		log.Debugf("Proxy check failed for %s: %v", proxyURL, err)
		return false
	}

	return !resp.IsError()
}
