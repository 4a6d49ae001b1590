package http

import (
	"context"

	"github.com/fwojciec/fulltext/bloom"
	"golang.org/x/sync/errgroup"
)

// prefetchFalsePositiveRate trades filter size against the odd URL that
// is skipped here and fetched on demand by Get instead.
const prefetchFalsePositiveRate = 0.001

type prefetch struct {
	target string
	call   *call
}

// Prefetch starts fetching urls in the background, at most Concurrency at
// a time, and returns immediately. Get hands each successful result to its
// first caller. The fetches outlive ctx's cancellation; Timeout bounds them.
func (a *Agent) Prefetch(ctx context.Context, urls []string) {
	if len(urls) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	seen := bloom.NewFilter(uint(len(urls)), prefetchFalsePositiveRate)

	a.inflight.mu.Lock()
	a.inflight.sweep(a.now(), a.prefetchTTL)
	batch := make([]prefetch, 0, len(urls))
	for _, rawURL := range urls {
		target := a.Rewrite(rawURL)
		key := a.key(target, true)
		if seen.Seen(key) {
			continue
		}
		if _, ok := a.inflight.pending[key]; ok {
			continue
		}
		c := &call{done: make(chan struct{})}
		a.inflight.pending[key] = c
		batch = append(batch, prefetch{target: target, call: c})
	}
	a.inflight.mu.Unlock()

	go func() {
		g := new(errgroup.Group)
		g.SetLimit(a.concurrency)
		for _, p := range batch {
			g.Go(func() error {
				p.call.resp, p.call.err = a.fetch(ctx, p.target, true)
				p.call.finished = a.now()
				close(p.call.done)
				return nil
			})
		}
		_ = g.Wait()
	}()
}
