package metrics

import (
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAccumulator_FirstSampleTakenAsIs(t *testing.T) {
	a := NewAccumulator()
	a.RecordStart()
	a.RecordSuccess(10, time.Unix(100, 0))

	snap := a.Snapshot()
	if snap.AverageProcessingTime != 10 {
		t.Errorf("expected average 10, got %v", snap.AverageProcessingTime)
	}
	if snap.TotalRequests != 1 || snap.SuccessfulRequests != 1 {
		t.Errorf("unexpected counts: %+v", snap)
	}
	if !snap.LastProcessed.Equal(time.Unix(100, 0)) {
		t.Errorf("unexpected last processed: %v", snap.LastProcessed)
	}
}

func TestAccumulator_ExponentialSmoothing(t *testing.T) {
	a := NewAccumulator()
	a.RecordSuccess(10, time.Now())
	a.RecordSuccess(20, time.Now())

	// 10*0.8 + 20*0.2
	if got := a.Snapshot().AverageProcessingTime; math.Abs(got-12) > 1e-9 {
		t.Errorf("expected average 12, got %v", got)
	}
}

func TestAccumulator_Concurrent(t *testing.T) {
	a := NewAccumulator()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a.RecordStart()
			if i%2 == 0 {
				a.RecordSuccess(1, time.Now())
			} else {
				a.RecordFailure()
			}
		}(i)
	}
	wg.Wait()

	snap := a.Snapshot()
	if snap.TotalRequests != 50 {
		t.Errorf("expected 50 total, got %d", snap.TotalRequests)
	}
	if snap.SuccessfulRequests != 25 || snap.FailedRequests != 25 {
		t.Errorf("unexpected split: %+v", snap)
	}
	if snap.AverageProcessingTime != 1 {
		t.Errorf("expected average 1, got %v", snap.AverageProcessingTime)
	}
}

func TestMetrics_Recorders(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRequestStart()
	m.RecordRequestEnd(true, 1.5)
	m.RecordFallback("translation", "identity")
	m.RecordFallback("translation", "identity")
	m.RecordTranslationAttempt("dhruva", false)
	m.RecordKafkaPublish("digest.completed", "completed", errors.New("down"), 0.01)

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("success")); got != 1 {
		t.Errorf("expected 1 successful request, got %v", got)
	}
	if got := testutil.ToFloat64(m.RequestsActive); got != 0 {
		t.Errorf("expected 0 active requests, got %v", got)
	}
	if got := testutil.ToFloat64(m.FallbacksTotal.WithLabelValues("translation", "identity")); got != 2 {
		t.Errorf("expected 2 identity fallbacks, got %v", got)
	}
	if got := testutil.ToFloat64(m.TranslationAttempts.WithLabelValues("dhruva", "failure")); got != 1 {
		t.Errorf("expected 1 failed attempt, got %v", got)
	}
	if got := testutil.ToFloat64(m.KafkaPublishErrors.WithLabelValues("digest.completed", "completed")); got != 1 {
		t.Errorf("expected 1 kafka error, got %v", got)
	}
}
