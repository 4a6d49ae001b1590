// Package http implements fulltext.Fetcher on top of net/http: user agent
// and URL rewrite policy, redirect limits, header-only downloads, charset
// normalization, a read-through response cache and batch prefetching.
package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/fulltext"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultFetchTimeout is the default timeout for one request,
	// redirects included.
	DefaultFetchTimeout = 10 * time.Second

	// DefaultMaxRedirects is the default redirect hop limit.
	DefaultMaxRedirects = 5

	// DefaultMaxBodySize is the default limit on a response body.
	DefaultMaxBodySize = 10 << 20

	// DefaultCacheTTL is how long responses stay in the response cache.
	DefaultCacheTTL = 30 * time.Minute

	// DefaultConcurrency is how many prefetch requests run at once.
	DefaultConcurrency = 5

	// DefaultPrefetchTTL is how long an unclaimed prefetched response is
	// kept for a later Get.
	DefaultPrefetchTTL = 2 * time.Minute
)

// Default user agents. Article pages are requested as a browser; source
// feeds as a program, since some servers hand feed readers a different
// document than browsers.
const (
	BrowserUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"
	MachineUserAgent = "Mozilla/5.0 (compatible; fulltext/1.0; +https://github.com/fwojciec/fulltext)"
)

const browserAccept = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"

// ErrTooManyRedirects is returned when the redirect hop limit is exceeded.
var ErrTooManyRedirects = errors.New("too many redirects")

// Ensure Agent implements fulltext.Fetcher at compile time.
var _ fulltext.Fetcher = (*Agent)(nil)

// Agent retrieves pages over HTTP. The value returned by Machine shares
// the connection pool, cookie jar, cache and in-flight prefetches with
// the Agent it came from. An Agent is safe for concurrent use.
type Agent struct {
	follow   *http.Client
	noFollow *http.Client

	userAgent        string
	machineUserAgent string
	userAgents       map[string]string
	rewrites         []fulltext.Rewrite
	headerOnly       []string

	cache    fulltext.ResponseCache
	cacheTTL time.Duration
	limiter  fulltext.DomainLimiter

	timeout      time.Duration
	maxRedirects int
	maxBodySize  int64
	concurrency  int
	prefetchTTL  time.Duration

	inflight *inflight
	group    *singleflight.Group
	now      func() time.Time
}

// Option configures an Agent.
type Option func(*Agent)

// WithTimeout sets the timeout for one request.
func WithTimeout(d time.Duration) Option {
	return func(a *Agent) {
		a.timeout = d
	}
}

// WithUserAgents sets the browser and machine user agent strings.
func WithUserAgents(browser, machine string) Option {
	return func(a *Agent) {
		if browser != "" {
			a.userAgent = browser
		}
		if machine != "" {
			a.machineUserAgent = machine
		}
	}
}

// WithUserAgentOverrides sets per-host user agents. A key matches its
// host exactly; a key with a leading dot matches every subdomain.
func WithUserAgentOverrides(overrides map[string]string) Option {
	return func(a *Agent) {
		for host, ua := range overrides {
			a.userAgents[normalizeHost(host)] = ua
		}
	}
}

// WithRewrites sets the ordered URL rewrite rules.
func WithRewrites(rewrites []fulltext.Rewrite) Option {
	return func(a *Agent) {
		a.rewrites = rewrites
	}
}

// WithHeaderOnlyTypes sets media types ("application/pdf") or major types
// ("image") whose bodies are never downloaded.
func WithHeaderOnlyTypes(types []string) Option {
	return func(a *Agent) {
		a.headerOnly = types
	}
}

// WithCache enables the read-through response cache.
func WithCache(cache fulltext.ResponseCache, ttl time.Duration) Option {
	return func(a *Agent) {
		a.cache = cache
		if ttl > 0 {
			a.cacheTTL = ttl
		}
	}
}

// WithDomainLimiter throttles requests per host.
func WithDomainLimiter(l fulltext.DomainLimiter) Option {
	return func(a *Agent) {
		a.limiter = l
	}
}

// WithMaxRedirects sets the redirect hop limit.
func WithMaxRedirects(n int) Option {
	return func(a *Agent) {
		a.maxRedirects = n
	}
}

// WithMaxBodySize sets the largest body the agent will read.
func WithMaxBodySize(n int64) Option {
	return func(a *Agent) {
		a.maxBodySize = n
	}
}

// WithConcurrency sets how many prefetch requests run at once.
func WithConcurrency(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithClock sets the time source used to age prefetched responses.
func WithClock(now func() time.Time) Option {
	return func(a *Agent) {
		a.now = now
	}
}

// NewAgent creates an Agent that sends the browser user agent.
func NewAgent(opts ...Option) *Agent {
	a := &Agent{
		userAgent:        BrowserUserAgent,
		machineUserAgent: MachineUserAgent,
		userAgents:       make(map[string]string),
		cacheTTL:         DefaultCacheTTL,
		timeout:          DefaultFetchTimeout,
		maxRedirects:     DefaultMaxRedirects,
		maxBodySize:      DefaultMaxBodySize,
		concurrency:      DefaultConcurrency,
		prefetchTTL:      DefaultPrefetchTTL,
		inflight:         &inflight{pending: make(map[string]*call)},
		group:            &singleflight.Group{},
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	// cookiejar.New never returns an error.
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	transport := http.DefaultTransport.(*http.Transport).Clone()

	a.follow = &http.Client{
		Transport:     transport,
		Jar:           jar,
		Timeout:       a.timeout,
		CheckRedirect: RedirectPolicy(a.maxRedirects),
	}
	a.noFollow = &http.Client{
		Transport: transport,
		Jar:       jar,
		Timeout:   a.timeout,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return a
}

// Machine returns a view of the agent that identifies itself as a
// program instead of a browser. Use it for source feeds.
func (a *Agent) Machine() *Agent {
	m := *a
	m.userAgent = a.machineUserAgent
	return &m
}

// Close releases idle connections.
func (a *Agent) Close() error {
	a.follow.CloseIdleConnections()
	return nil
}

// RedirectPolicy returns a CheckRedirect function that follows redirects
// until maxHops have been followed, then fails with ErrTooManyRedirects.
func RedirectPolicy(maxHops int) func(*http.Request, []*http.Request) error {
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) > maxHops {
			return ErrTooManyRedirects
		}
		return nil
	}
}

// Get retrieves rawURL. A response prefetched for the same URL is handed
// over instead of issuing a new request; concurrent identical requests
// share one round trip.
func (a *Agent) Get(ctx context.Context, rawURL string, followRedirects bool) (*fulltext.FetchResponse, error) {
	target := a.Rewrite(rawURL)
	key := a.key(target, followRedirects)

	if followRedirects {
		if c := a.inflight.claim(key, a.now(), a.prefetchTTL); c != nil {
			select {
			case <-c.done:
				if c.err == nil {
					return c.resp, nil
				}
			case <-ctx.Done():
				return nil, fulltext.Errorf(fulltext.EFETCH, "fetch %s: %v", target, ctx.Err())
			}
		}
	}

	v, err, _ := a.group.Do(key, func() (any, error) {
		return a.fetch(ctx, target, followRedirects)
	})
	if err != nil {
		return nil, err
	}
	return v.(*fulltext.FetchResponse), nil
}

// Rewrite applies the URL rewrite rules whose host pattern occurs in the
// host of rawURL, in order.
func (a *Agent) Rewrite(rawURL string) string {
	host := hostOf(rawURL)
	for _, r := range a.rewrites {
		if r.Host == "" || r.Find == "" || !strings.Contains(host, strings.ToLower(r.Host)) {
			continue
		}
		rawURL = strings.ReplaceAll(rawURL, r.Find, r.Replace)
	}
	return rawURL
}

// UserAgent returns the user agent sent to host.
func (a *Agent) UserAgent(host string) string {
	host = normalizeHost(host)
	if ua, ok := a.userAgents[host]; ok {
		return ua
	}
	for rest := host; ; {
		i := strings.IndexByte(rest, '.')
		if i < 0 {
			break
		}
		rest = rest[i+1:]
		if ua, ok := a.userAgents["."+rest]; ok {
			return ua
		}
	}
	return a.userAgent
}

// fetch reads target through the cache and the network.
func (a *Agent) fetch(ctx context.Context, target string, followRedirects bool) (*fulltext.FetchResponse, error) {
	u, err := url.Parse(target)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fulltext.Errorf(fulltext.EINVALID, "invalid url %q", target)
	}
	userAgent := a.UserAgent(u.Hostname())
	key := a.cacheKey(target, followRedirects, userAgent)

	if resp, ok := a.cached(ctx, key); ok {
		return resp, nil
	}

	if a.limiter != nil {
		if err := a.limiter.Wait(ctx, u.Hostname()); err != nil {
			return nil, fulltext.Errorf(fulltext.EFETCH, "fetch %s: %v", target, err)
		}
	}

	resp, err := a.do(ctx, target, followRedirects, userAgent)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		a.store(ctx, key, resp)
	}
	return resp, nil
}

func (a *Agent) do(ctx context.Context, target string, followRedirects bool, userAgent string) (*fulltext.FetchResponse, error) {
	begin := a.now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fulltext.Errorf(fulltext.EINVALID, "invalid url %q: %v", target, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", browserAccept)
	if ref := fulltext.RefererFrom(ctx); ref != "" {
		req.Header.Set("Referer", ref)
	}

	client := a.noFollow
	if followRedirects {
		client = a.follow
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, ErrTooManyRedirects) {
			return nil, fulltext.Errorf(fulltext.EFETCH, "fetch %s: %v", target, ErrTooManyRedirects)
		}
		return nil, fulltext.Errorf(fulltext.EFETCH, "fetch %s: %v", target, err)
	}
	defer resp.Body.Close()

	out := &fulltext.FetchResponse{
		StatusCode:   resp.StatusCode,
		Header:       resp.Header.Clone(),
		EffectiveURL: resp.Request.URL.String(),
	}

	if a.isHeaderOnly(out.MediaType()) {
		out.HeaderOnly = true
		out.Elapsed = a.now().Sub(begin)
		return out, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, a.maxBodySize+1))
	if err != nil {
		return nil, fulltext.Errorf(fulltext.EFETCH, "read %s: %v", target, err)
	}
	if int64(len(body)) > a.maxBodySize {
		return nil, fulltext.Errorf(fulltext.EFETCH, "read %s: body exceeds %d bytes", target, a.maxBodySize)
	}
	if isHTML(out.MediaType()) {
		body = ToUTF8(body, resp.Header.Get("Content-Type"))
	}
	out.Body = body
	out.Elapsed = a.now().Sub(begin)
	return out, nil
}

func (a *Agent) isHeaderOnly(mediaType string) bool {
	if mediaType == "" {
		return false
	}
	major, _, _ := strings.Cut(mediaType, "/")
	for _, t := range a.headerOnly {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == mediaType || t == major {
			return true
		}
	}
	return false
}

// key identifies a request for deduplication purposes.
func (a *Agent) key(target string, followRedirects bool) string {
	return a.cacheKey(target, followRedirects, a.UserAgent(hostOf(target)))
}

func isHTML(mediaType string) bool {
	switch mediaType {
	case "", "text/html", "application/xhtml+xml":
		return true
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

func normalizeHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(host)), "www.")
}

// inflight tracks prefetched requests until a Get claims them.
type inflight struct {
	mu      sync.Mutex
	pending map[string]*call
}

type call struct {
	done     chan struct{}
	finished time.Time
	resp     *fulltext.FetchResponse
	err      error
}

// claim removes and returns the pending call for key. Calls that failed,
// or finished more than ttl ago, are discarded.
func (f *inflight) claim(key string, now time.Time, ttl time.Duration) *call {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.pending[key]
	if !ok {
		return nil
	}
	delete(f.pending, key)
	select {
	case <-c.done:
		if c.err != nil || now.Sub(c.finished) > ttl {
			return nil
		}
	default:
	}
	return c
}

// sweep drops failed calls and finished calls older than ttl.
func (f *inflight) sweep(now time.Time, ttl time.Duration) {
	for key, c := range f.pending {
		select {
		case <-c.done:
			if c.err != nil || now.Sub(c.finished) > ttl {
				delete(f.pending, key)
			}
		default:
		}
	}
}
