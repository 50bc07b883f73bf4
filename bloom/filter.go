// Package bloom provides a probabilistic membership prefilter for crawl
// URLs.
package bloom

import "github.com/bits-and-blooms/bloom/v3"

// DefaultFalsePositiveRate is the target false positive rate of a filter
// created with NewURLFilter.
const DefaultFalsePositiveRate = 0.001

// URLFilter answers "definitely not seen" for URLs without keeping them in
// memory. A positive answer must be confirmed against an exact set.
type URLFilter struct {
	f        *bloom.BloomFilter
	capacity uint
	added    uint
}

// NewURLFilter creates a filter sized for capacity URLs at rate false
// positives. A rate outside (0, 1) uses DefaultFalsePositiveRate.
func NewURLFilter(capacity uint, rate float64) *URLFilter {
	if capacity == 0 {
		capacity = 1
	}
	if rate <= 0 || rate >= 1 {
		rate = DefaultFalsePositiveRate
	}
	return &URLFilter{
		f:        bloom.NewWithEstimates(capacity, rate),
		capacity: capacity,
	}
}

// Add records u.
func (f *URLFilter) Add(u string) {
	if !f.f.TestAndAddString(u) {
		f.added++
	}
}

// MayContain reports whether u may have been added. False means u was
// definitely never added.
func (f *URLFilter) MayContain(u string) bool {
	return f.f.TestString(u)
}

// Saturated reports whether more URLs were added than the filter was sized
// for, at which point the false positive rate exceeds its target.
func (f *URLFilter) Saturated() bool {
	return f.added > f.capacity
}

// ApproximateCount returns the estimated number of distinct URLs added.
func (f *URLFilter) ApproximateCount() uint {
	return uint(f.f.ApproximatedSize())
}
