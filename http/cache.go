package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/fulltext"
)

// cachedResponse is the cache representation of a FetchResponse.
type cachedResponse struct {
	StatusCode   int         `json:"status"`
	Header       http.Header `json:"header"`
	Body         []byte      `json:"body"`
	EffectiveURL string      `json:"effective_url"`
	HeaderOnly   bool        `json:"header_only"`
}

// cacheKey hashes everything that can change the response.
func (a *Agent) cacheKey(target string, followRedirects bool, userAgent string) string {
	d := xxhash.New()
	_, _ = d.WriteString(userAgent)
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(strconv.FormatBool(followRedirects))
	_, _ = d.WriteString("\x00")
	_, _ = d.WriteString(target)
	return "http:" + strconv.FormatUint(d.Sum64(), 16)
}

// cached returns the cached response for key. Cache failures are misses.
func (a *Agent) cached(ctx context.Context, key string) (*fulltext.FetchResponse, bool) {
	if a.cache == nil {
		return nil, false
	}
	data, err := a.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var c cachedResponse
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, false
	}
	return &fulltext.FetchResponse{
		StatusCode:   c.StatusCode,
		Header:       c.Header,
		Body:         c.Body,
		EffectiveURL: c.EffectiveURL,
		HeaderOnly:   c.HeaderOnly,
		Cached:       true,
	}, true
}

// store writes resp to the cache. A failed write only costs a refetch.
func (a *Agent) store(ctx context.Context, key string, resp *fulltext.FetchResponse) {
	if a.cache == nil {
		return
	}
	data, err := json.Marshal(cachedResponse{
		StatusCode:   resp.StatusCode,
		Header:       resp.Header,
		Body:         resp.Body,
		EffectiveURL: resp.EffectiveURL,
		HeaderOnly:   resp.HeaderOnly,
	})
	if err != nil {
		return
	}
	_ = a.cache.Set(ctx, key, data, a.cacheTTL)
}
