package utils

import (
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()

	m.RecordRequest(10*time.Millisecond, 200)
	m.RecordRequest(30*time.Millisecond, 503)
	m.RecordCardOperation(CardOpCreate, nil)
	m.RecordCardOperation(CardOpView, nil)
	m.RecordCardOperation(CardOpReplace, errors.New("boom"))
	m.RecordQuotaRejection()
	m.RecordValidationError()
	m.RecordCriticalError(errors.New("tx failed"))

	snap := m.GetMetricsSnapshot()
	checks := map[string]int64{
		"total_requests":    2,
		"failed_requests":   1,
		"cards_created":     1,
		"cards_replaced":    0,
		"public_views":      1,
		"quota_rejections":  1,
		"validation_errors": 1,
		"error_count":       2,
		"critical_errors":   1,
	}
	for key, want := range checks {
		if got := snap[key].(int64); got != want {
			t.Fatalf("%s: got=%d want=%d", key, got, want)
		}
	}
	if got := snap["average_latency"].(string); got != "20ms" {
		t.Fatalf("average_latency: got=%s want=20ms", got)
	}

	errorTypes := snap["error_types"].(map[string]int64)
	if errorTypes["replace: boom"] != 1 {
		t.Fatalf("unexpected error types: %v", errorTypes)
	}
	// снимок не должен разделять map с метриками
	errorTypes["replace: boom"] = 100
	if m.GetMetricsSnapshot()["error_types"].(map[string]int64)["replace: boom"] != 1 {
		t.Fatalf("snapshot shares state with metrics")
	}
}

func TestMetricsConcurrentUse(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordRequest(time.Millisecond, 200)
			m.RecordCardOperation(CardOpDelete, nil)
			m.RecordError(errors.New("x"))
		}()
	}
	wg.Wait()

	snap := m.GetMetricsSnapshot()
	if snap["total_requests"].(int64) != 50 || snap["cards_deleted"].(int64) != 50 || snap["error_count"].(int64) != 50 {
		t.Fatalf("lost updates: %v", snap)
	}
}
