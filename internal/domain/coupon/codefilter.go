package coupon

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// CodeFilter is a bloom filter over known coupon codes. A negative membership
// answer is definitive, so lookups for codes that were never issued skip the
// database entirely. False positives fall through to a normal lookup.
type CodeFilter struct {
	mu     sync.RWMutex
	filter *bloom.BloomFilter
}

// NewCodeFilter creates a filter sized for the expected number of codes with
// a 0.1% false-positive rate.
func NewCodeFilter(expectedCodes uint) *CodeFilter {
	if expectedCodes == 0 {
		expectedCodes = 1
	}
	return &CodeFilter{filter: bloom.NewWithEstimates(expectedCodes, 0.001)}
}

// Seed adds all given codes to the filter.
func (f *CodeFilter) Seed(codes []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, code := range codes {
		f.filter.AddString(code)
	}
}

// Add records a newly issued code.
func (f *CodeFilter) Add(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter.AddString(code)
}

// MayContain reports whether the code could exist. False means the code was
// definitely never issued.
func (f *CodeFilter) MayContain(code string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.filter.TestString(code)
}
