// Package traffic keeps a sliding window of data-route outcomes for the health check.
package traffic

import (
	"sync"
	"time"
)

// Tracker records success and failure timestamps and reports the error rate over its window.
// The zero value is not usable; call NewTracker.
type Tracker struct {
	window time.Duration
	now    func() time.Time

	mu           sync.Mutex
	successTimes []time.Time
	errorTimes   []time.Time
}

// NewTracker returns a Tracker that forgets outcomes older than window.
func NewTracker(window time.Duration) *Tracker {
	return &Tracker{window: window, now: time.Now}
}

// RecordSuccess records a data request answered from the cache or the dataset.
func (t *Tracker) RecordSuccess() {
	t.recordOutcome(&t.successTimes)
}

// RecordError records a data request that failed with a dataset error.
func (t *Tracker) RecordError() {
	t.recordOutcome(&t.errorTimes)
}

func (t *Tracker) recordOutcome(slice *[]time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	*slice = append(*slice, now)
	t.pruneLocked(now)
}

// ErrorRate returns (errorCount, totalCount) within the window.
func (t *Tracker) ErrorRate() (errors, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.pruneLocked(t.now())
	return len(t.errorTimes), len(t.errorTimes) + len(t.successTimes)
}

// Degraded reports whether at least minSamples outcomes were seen and the error
// percentage reached thresholdPct.
func (t *Tracker) Degraded(minSamples int, thresholdPct float64) bool {
	errs, total := t.ErrorRate()
	if total == 0 || total < minSamples {
		return false
	}
	return float64(errs)*100/float64(total) >= thresholdPct
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successTimes = nil
	t.errorTimes = nil
}

// pruneLocked drops timestamps that fell out of the window. Timestamps are appended
// in order, so the stale ones form a prefix. Must be called with mutex held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.window)
	prune := func(slice *[]time.Time) {
		times := *slice
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			*slice = append(times[:0], times[i:]...)
		}
	}
	prune(&t.successTimes)
	prune(&t.errorTimes)
}
