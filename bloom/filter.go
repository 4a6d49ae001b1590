// Package bloom deduplicates request batches with a Bloom filter.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// Filter remembers keys probabilistically. A key reported as new is
// certainly new; a key reported as seen may, rarely, not have been.
type Filter struct {
	f *bloom.BloomFilter
}

// NewFilter creates a Filter sized for n keys at the given false positive
// rate.
func NewFilter(n uint, fpRate float64) *Filter {
	if n == 0 {
		n = 1
	}
	return &Filter{
		f: bloom.NewWithEstimates(n, fpRate),
	}
}

// Seen reports whether key was possibly added before, then adds it.
func (f *Filter) Seen(key string) bool {
	return f.f.TestAndAddString(key)
}

// Len returns the approximate number of distinct keys added.
func (f *Filter) Len() uint {
	return uint(f.f.ApproximatedSize())
}
