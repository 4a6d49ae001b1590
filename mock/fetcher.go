package mock

import (
	"context"

	"github.com/fwojciec/fulltext"
)

var _ fulltext.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of fulltext.Fetcher.
type Fetcher struct {
	PrefetchFn func(ctx context.Context, urls []string)
	GetFn      func(ctx context.Context, url string, followRedirects bool) (*fulltext.FetchResponse, error)
}

func (f *Fetcher) Prefetch(ctx context.Context, urls []string) {
	if f.PrefetchFn != nil {
		f.PrefetchFn(ctx, urls)
	}
}

func (f *Fetcher) Get(ctx context.Context, url string, followRedirects bool) (*fulltext.FetchResponse, error) {
	return f.GetFn(ctx, url, followRedirects)
}

var _ fulltext.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of fulltext.DomainLimiter.
type DomainLimiter struct {
	WaitFn func(ctx context.Context, domain string) error
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}
