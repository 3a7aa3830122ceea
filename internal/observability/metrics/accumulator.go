package metrics

import (
	"sync"
	"time"
)

// smoothing is the weight given to the newest sample in the running average.
const smoothing = 0.2

// Snapshot is a point-in-time copy of the process-wide request aggregates.
type Snapshot struct {
	TotalRequests         int64     `json:"total_requests"`
	SuccessfulRequests    int64     `json:"successful_requests"`
	FailedRequests        int64     `json:"failed_requests"`
	AverageProcessingTime float64   `json:"average_processing_time"`
	LastProcessed         time.Time `json:"last_processed,omitempty"`
}

// Accumulator keeps running request aggregates shared by concurrent requests.
// The average processing time is exponentially smoothed over successful
// requests; the first sample is taken as is.
type Accumulator struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewAccumulator creates an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// RecordStart counts a request as received.
func (a *Accumulator) RecordStart() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snap.TotalRequests++
}

// RecordSuccess folds a successful request's duration into the aggregates.
func (a *Accumulator) RecordSuccess(processingSeconds float64, at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.snap.SuccessfulRequests++
	a.snap.LastProcessed = at
	if a.snap.AverageProcessingTime == 0 {
		a.snap.AverageProcessingTime = processingSeconds
		return
	}
	a.snap.AverageProcessingTime = a.snap.AverageProcessingTime*(1-smoothing) + processingSeconds*smoothing
}

// RecordFailure counts a request that ended in a request-terminal error.
func (a *Accumulator) RecordFailure() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.snap.FailedRequests++
}

// Snapshot returns a copy of the current aggregates.
func (a *Accumulator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snap
}
