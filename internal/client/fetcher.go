package client

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"sync"
	"time"

	"fouani/storesync/internal/config"
	"fouani/storesync/internal/domain"
	"fouani/storesync/internal/proxy"

	log "github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"
	"resty.dev/v3"
)

// Fetcher returns the body of a storefront page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

type siteFetcher struct {
	cfg     config.SiteConfig
	rl      ratelimit.Limiter
	delay   time.Duration
	proxies proxy.Supplier

	// one client per proxy; clients are never reconfigured after creation
	mu      sync.RWMutex
	clients map[string]*resty.Client
	current string
}

// NewFetcher builds the storefront HTTP client. Every call waits the
// politeness delay first; the limiter caps the combined request rate of all
// callers on top of that.
func NewFetcher(cfg config.SiteConfig, proxies proxy.Supplier) Fetcher {
	rl := ratelimit.NewUnlimited()
	if cfg.MaxRequestsPerSecond > 0 {
		rl = ratelimit.New(cfg.MaxRequestsPerSecond)
	}

	f := &siteFetcher{
		cfg:     cfg,
		rl:      rl,
		delay:   cfg.PolitenessDelay,
		proxies: proxies,
		clients: make(map[string]*resty.Client),
	}

	if proxies != nil {
		if p := proxies.Next(); p != "" {
			f.current = p
			log.Infof("🔗 Using initial proxy: %s", p)
		}
	}
	f.clients[f.current] = newRestyClient(cfg, f.current)

	return f
}

func newRestyClient(cfg config.SiteConfig, proxyURL string) *resty.Client {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(cfg.MaxRetries).
		SetRetryWaitTime(2*time.Second).
		SetRetryMaxWaitTime(10*time.Second).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8").
		SetHeader("Accept-Language", "en-US,en;q=0.5")

	if cfg.InsecureSkipVerify {
		client.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	if proxyURL != "" {
		client.SetProxy(proxyURL)
	}
	return client
}

func (f *siteFetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := f.wait(ctx); err != nil {
		return "", &domain.FetchError{URL: url, Err: err}
	}

	body, err := f.get(ctx, f.client(), url)
	if err == nil {
		return body, nil
	}

	if f.shouldRotate(err) {
		next := f.proxies.Next()
		log.Infof("🔄 Switching to proxy %s after: %v", next, err)
		client := f.use(next)

		if waitErr := f.wait(ctx); waitErr != nil {
			return "", &domain.FetchError{URL: url, Err: waitErr}
		}
		return f.get(ctx, client, url)
	}

	return "", err
}

// client returns the client bound to the current proxy
func (f *siteFetcher) client() *resty.Client {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.clients[f.current]
}

// use makes proxyURL current, creating its client on first use
func (f *siteFetcher) use(proxyURL string) *resty.Client {
	f.mu.Lock()
	defer f.mu.Unlock()

	client, ok := f.clients[proxyURL]
	if !ok {
		client = newRestyClient(f.cfg, proxyURL)
		f.clients[proxyURL] = client
	}
	f.current = proxyURL
	return client
}

func (f *siteFetcher) get(ctx context.Context, client *resty.Client, url string) (string, error) {
	f.rl.Take()

	resp, err := client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return "", &domain.FetchError{URL: url, Err: err}
	}

	if resp.IsError() {
		return "", &domain.FetchError{URL: url, StatusCode: resp.StatusCode()}
	}

	return resp.String(), nil
}

// wait sleeps for the politeness delay unless ctx ends first
func (f *siteFetcher) wait(ctx context.Context) error {
	if f.delay <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(f.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (f *siteFetcher) shouldRotate(err error) bool {
	if f.proxies == nil || f.proxies.Len() < 2 || ctxDone(err) {
		return false
	}
	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) {
		return false
	}
	return fetchErr.StatusCode == 0 ||
		fetchErr.StatusCode == http.StatusForbidden ||
		fetchErr.StatusCode == http.StatusTooManyRequests
}

func ctxDone(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
