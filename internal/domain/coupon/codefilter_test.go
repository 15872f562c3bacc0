package coupon

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeFilter_Membership(t *testing.T) {
	f := NewCodeFilter(1000)
	f.Seed([]string{"WELCOME10", "HAPPYHOURS", "BIGSPENDER"})

	assert.True(t, f.MayContain("WELCOME10"))
	assert.True(t, f.MayContain("HAPPYHOURS"))
	assert.True(t, f.MayContain("BIGSPENDER"))

	f.Add("SPRING15")
	assert.True(t, f.MayContain("SPRING15"))
}

func TestCodeFilter_NegativesAreDefinitive(t *testing.T) {
	f := NewCodeFilter(10000)
	for i := range 1000 {
		f.Add(fmt.Sprintf("CODE-%04d", i))
	}

	// At a 0.1% false-positive rate a few thousand unknown probes may
	// produce the odd false positive, but never a false negative.
	var falsePositives int
	for i := range 5000 {
		if f.MayContain(fmt.Sprintf("UNKNOWN-%04d", i)) {
			falsePositives++
		}
	}
	assert.Less(t, falsePositives, 50)

	for i := range 1000 {
		assert.True(t, f.MayContain(fmt.Sprintf("CODE-%04d", i)))
	}
}

func TestCodeFilter_ZeroEstimate(t *testing.T) {
	f := NewCodeFilter(0)
	f.Add("ONLY")
	assert.True(t, f.MayContain("ONLY"))
}

func TestCodeFilter_ConcurrentAccess(t *testing.T) {
	f := NewCodeFilter(10000)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range 100 {
				f.Add(fmt.Sprintf("W%d-%d", i, j))
				f.MayContain(fmt.Sprintf("W%d-%d", i, j))
			}
		}()
	}
	wg.Wait()

	assert.True(t, f.MayContain("W0-0"))
	assert.True(t, f.MayContain("W7-99"))
}
