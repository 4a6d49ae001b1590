// Package gin serves full-text feeds over HTTP.
package gin

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/fulltext"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FeedPath is the path of the feed endpoint.
const FeedPath = "/makefulltextfeed"

// DefaultOutputTTL is how long rendered feeds are served from the cache.
const DefaultOutputTTL = 10 * time.Minute

// RequestIDHeader carries the request id on responses.
const RequestIDHeader = "X-Request-ID"

// Format names accepted by the format parameter.
const (
	FormatRSS  = "rss"
	FormatAtom = "atom"
	FormatJSON = "json"
)

// Handler serves GET /makefulltextfeed.
type Handler struct {
	builder fulltext.FeedBuilder
	writers map[string]fulltext.FeedWriter
	cache   fulltext.ResponseCache
	ttl     time.Duration
	lang    fulltext.LanguageMode
	logger  *slog.Logger
	router  *gin.Engine
}

// Option configures a Handler.
type Option func(*Handler)

// WithWriter registers the writer for a format name. RSS must be
// registered; it is the fallback for unknown formats.
func WithWriter(format string, w fulltext.FeedWriter) Option {
	return func(h *Handler) {
		h.writers[format] = w
	}
}

// WithOutputCache caches rendered feeds per option set.
func WithOutputCache(cache fulltext.ResponseCache, ttl time.Duration) Option {
	return func(h *Handler) {
		h.cache = cache
		h.ttl = ttl
	}
}

// WithLanguage sets the language mode used when a request has no l
// parameter.
func WithLanguage(mode fulltext.LanguageMode) Option {
	return func(h *Handler) {
		h.lang = mode
	}
}

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// NewHandler creates a Handler that builds feeds with builder.
func NewHandler(builder fulltext.FeedBuilder, opts ...Option) *Handler {
	h := &Handler{
		builder: builder,
		writers: make(map[string]fulltext.FeedWriter),
		ttl:     DefaultOutputTTL,
		lang:    fulltext.LanguageDeclared,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), h.requestLogger())
	r.GET(FeedPath, h.feed)
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	h.router = r
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// requestLogger assigns a request id and logs every request once it has
// been served.
func (h *Handler) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(RequestIDHeader, id)
		logger := h.logger.With("request_id", id)
		c.Set("logger", logger)

		defer func(begin time.Time) {
			attrs := []any{
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"status", c.Writer.Status(),
				"duration", time.Since(begin),
			}
			if len(c.Errors) > 0 {
				logger.Warn("request", append(attrs, "err", c.Errors.String())...)
				return
			}
			logger.Info("request", attrs...)
		}(time.Now())
		c.Next()
	}
}

// params is the parsed query of a feed request.
type params struct {
	req    fulltext.FeedRequest
	format string
}

func (p params) cacheKey() string {
	var b strings.Builder
	for _, v := range []string{
		p.req.URL,
		strconv.Itoa(p.req.Max),
		string(p.req.Links),
		strconv.FormatBool(p.req.ExcludeOnFailure),
		strconv.FormatBool(p.req.HTMLOnly),
		strconv.Itoa(int(p.req.Language)),
		p.req.Pattern,
		p.format,
	} {
		b.WriteString(v)
		b.WriteByte(0)
	}
	return "feed:" + strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}

func parseParams(c *gin.Context, lang fulltext.LanguageMode) (params, error) {
	u, err := fulltext.NormalizeFeedURL(c.Query("url"))
	if err != nil {
		return params{}, err
	}
	p := params{
		req: fulltext.FeedRequest{
			URL:              u,
			Links:            fulltext.LinksPreserve,
			ExcludeOnFailure: c.Query("exc") == "1",
			HTMLOnly:         isTrue(c.Query("html")),
			Language:         lang,
			Pattern:          strings.TrimSpace(c.Query("what")),
		},
		format: FormatRSS,
	}
	if v := c.Query("max"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			p.req.Max = n
		}
	}
	switch mode := fulltext.LinkMode(c.Query("links")); mode {
	case fulltext.LinksFootnotes, fulltext.LinksRemove:
		p.req.Links = mode
	}
	if v := c.Query("l"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 && n <= int(fulltext.LanguageDetectAlways) {
			p.req.Language = fulltext.LanguageMode(n)
		}
	}
	switch f := strings.ToLower(c.Query("format")); f {
	case FormatAtom, FormatJSON:
		p.format = f
	}
	return p, nil
}

func isTrue(v string) bool {
	return v == "1" || v == "true"
}

func (h *Handler) feed(c *gin.Context) {
	logger := c.MustGet("logger").(*slog.Logger)

	p, err := parseParams(c, h.lang)
	if err != nil {
		_ = c.Error(err)
		c.String(http.StatusBadRequest, fulltext.ErrorMessage(err))
		return
	}
	w, ok := h.writers[p.format]
	if !ok {
		w, ok = h.writers[FormatRSS]
	}
	if !ok {
		h.fail(c, p.req.URL, fulltext.Errorf(fulltext.EINTERNAL, "no writer for %s", p.format))
		return
	}

	key := p.cacheKey()
	if body, ok := h.cached(c.Request.Context(), key, logger); ok {
		c.Header("X-Cache", "HIT")
		c.Data(http.StatusOK, w.ContentType(), body)
		return
	}

	out, err := h.builder.Build(c.Request.Context(), p.req)
	if err != nil {
		h.fail(c, p.req.URL, err)
		return
	}

	var buf bytes.Buffer
	if err := w.Write(&buf, out); err != nil {
		h.fail(c, p.req.URL, err)
		return
	}
	if h.cache != nil {
		if err := h.cache.Set(c.Request.Context(), key, buf.Bytes(), h.ttl); err != nil {
			logger.Warn("cache feed", "err", err)
		}
	}
	c.Header("X-Cache", "MISS")
	c.Data(http.StatusOK, w.ContentType(), buf.Bytes())
}

func (h *Handler) cached(ctx context.Context, key string, logger *slog.Logger) ([]byte, bool) {
	if h.cache == nil {
		return nil, false
	}
	body, err := h.cache.Get(ctx, key)
	if err != nil {
		if fulltext.ErrorCode(err) != fulltext.ENOTFOUND {
			logger.Warn("read feed cache", "err", err)
		}
		return nil, false
	}
	return body, true
}

// fail renders err as a plain-text error page. The page carries a fixed
// message per error code; the error itself is only logged.
func (h *Handler) fail(c *gin.Context, target string, err error) {
	_ = c.Error(err)
	status, msg := http.StatusInternalServerError, "Internal error."
	switch fulltext.ErrorCode(err) {
	case fulltext.EINVALID:
		status, msg = http.StatusBadRequest, "Invalid URL supplied"
	case fulltext.EBLOCKED:
		status, msg = http.StatusForbidden, "URL blocked"
	case fulltext.ENOTFOUND:
		status, msg = http.StatusNotFound, "No items found in "+target
	case fulltext.EFETCH, fulltext.EPARSE:
		status, msg = http.StatusBadGateway, "Error retrieving "+target
	}
	if errors.Is(err, context.DeadlineExceeded) {
		status, msg = http.StatusGatewayTimeout, "Timed out retrieving "+target
	}
	c.String(status, msg)
}
