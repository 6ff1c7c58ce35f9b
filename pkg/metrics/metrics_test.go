package metrics

import (
	"testing"
	"time"
)

func TestMetricsCollector_RecordFetch(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordFetch(10*time.Millisecond, true)
	mc.RecordFetch(20*time.Millisecond, true)
	mc.RecordFetch(5*time.Millisecond, false) // Miss

	metrics := mc.GetMetrics()
	fetches := metrics["fetches"].(map[string]interface{})

	if fetches["total"].(uint64) != 3 {
		t.Errorf("Expected 3 total fetches, got %v", fetches["total"])
	}
	if fetches["misses"].(uint64) != 1 {
		t.Errorf("Expected 1 miss, got %v", fetches["misses"])
	}

	hitRate := fetches["hit_rate"].(float64)
	if hitRate < 66.0 || hitRate > 67.0 {
		t.Errorf("Expected hit rate around 66.67%%, got %.2f%%", hitRate)
	}
}

func TestMetricsCollector_Evictions(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordEviction(false)
	mc.RecordEviction(true)
	mc.RecordEviction(true)

	metrics := mc.GetMetrics()
	evictions := metrics["evictions"].(map[string]interface{})

	if evictions["total"].(uint64) != 3 {
		t.Errorf("Expected 3 total evictions, got %v", evictions["total"])
	}
	if evictions["dirty"].(uint64) != 2 {
		t.Errorf("Expected 2 dirty evictions, got %v", evictions["dirty"])
	}
}

func TestMetricsCollector_Pages(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordPageAllocated()
	mc.RecordPageAllocated()
	mc.RecordPageDeleted()

	metrics := mc.GetMetrics()
	pages := metrics["pages"].(map[string]interface{})

	if pages["allocated"].(uint64) != 2 {
		t.Errorf("Expected 2 allocated pages, got %v", pages["allocated"])
	}
	if pages["deleted"].(uint64) != 1 {
		t.Errorf("Expected 1 deleted page, got %v", pages["deleted"])
	}
}

func TestMetricsCollector_Connections(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordConnectionStart()
	mc.RecordConnectionStart()
	mc.RecordConnectionStart()
	mc.RecordConnectionEnd()

	metrics := mc.GetMetrics()
	conns := metrics["connections"].(map[string]interface{})

	if conns["active"].(uint64) != 2 {
		t.Errorf("Expected 2 active connections, got %v", conns["active"])
	}
	if conns["total"].(uint64) != 3 {
		t.Errorf("Expected 3 total connections, got %v", conns["total"])
	}
}

func TestTimingHistogram_Buckets(t *testing.T) {
	th := NewTimingHistogram(100)

	// Record timings in different buckets
	th.Record(500 * time.Microsecond)  // <1ms
	th.Record(5 * time.Millisecond)    // 1-10ms
	th.Record(50 * time.Millisecond)   // 10-100ms
	th.Record(500 * time.Millisecond)  // 100-1000ms
	th.Record(1500 * time.Millisecond) // >1s

	buckets := th.GetBuckets()

	if buckets["0-1ms"] != 1 {
		t.Errorf("Expected 1 in 0-1ms bucket, got %v", buckets["0-1ms"])
	}
	if buckets["1-10ms"] != 1 {
		t.Errorf("Expected 1 in 1-10ms bucket, got %v", buckets["1-10ms"])
	}
	if buckets["10-100ms"] != 1 {
		t.Errorf("Expected 1 in 10-100ms bucket, got %v", buckets["10-100ms"])
	}
	if buckets["100-1000ms"] != 1 {
		t.Errorf("Expected 1 in 100-1000ms bucket, got %v", buckets["100-1000ms"])
	}
	if buckets[">1000ms"] != 1 {
		t.Errorf("Expected 1 in >1000ms bucket, got %v", buckets[">1000ms"])
	}
}

func TestTimingHistogram_Percentiles(t *testing.T) {
	th := NewTimingHistogram(100)

	// Record 100 timings
	for i := 1; i <= 100; i++ {
		th.Record(time.Duration(i) * time.Millisecond)
	}

	percentiles := th.GetPercentiles()

	p50 := percentiles["p50"]
	if p50 < 40*time.Millisecond || p50 > 60*time.Millisecond {
		t.Errorf("Expected p50 around 50ms, got %v", p50)
	}

	p95 := percentiles["p95"]
	if p95 < 90*time.Millisecond || p95 > 100*time.Millisecond {
		t.Errorf("Expected p95 around 95ms, got %v", p95)
	}

	p99 := percentiles["p99"]
	if p99 < 95*time.Millisecond || p99 > 100*time.Millisecond {
		t.Errorf("Expected p99 around 99ms, got %v", p99)
	}
}

func TestTimingHistogram_EmptyPercentiles(t *testing.T) {
	th := NewTimingHistogram(100)

	percentiles := th.GetPercentiles()

	if percentiles["p50"] != 0 {
		t.Errorf("Expected p50 to be 0 for empty histogram, got %v", percentiles["p50"])
	}
	if percentiles["p95"] != 0 {
		t.Errorf("Expected p95 to be 0 for empty histogram, got %v", percentiles["p95"])
	}
	if percentiles["p99"] != 0 {
		t.Errorf("Expected p99 to be 0 for empty histogram, got %v", percentiles["p99"])
	}
}

func TestMetricsCollector_Reset(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordFetch(10*time.Millisecond, true)
	mc.RecordEviction(false)
	mc.RecordPageAllocated()

	metrics := mc.GetMetrics()
	if metrics["fetches"].(map[string]interface{})["total"].(uint64) != 1 {
		t.Error("Expected 1 fetch before reset")
	}

	mc.Reset()

	metrics = mc.GetMetrics()
	fetches := metrics["fetches"].(map[string]interface{})
	evictions := metrics["evictions"].(map[string]interface{})
	pages := metrics["pages"].(map[string]interface{})

	if fetches["total"].(uint64) != 0 {
		t.Errorf("Expected 0 fetches after reset, got %v", fetches["total"])
	}
	if evictions["total"].(uint64) != 0 {
		t.Errorf("Expected 0 evictions after reset, got %v", evictions["total"])
	}
	if pages["allocated"].(uint64) != 0 {
		t.Errorf("Expected 0 allocated pages after reset, got %v", pages["allocated"])
	}
}

func TestMetricsCollector_AverageTiming(t *testing.T) {
	mc := NewMetricsCollector()

	mc.RecordFetch(10*time.Millisecond, true)
	mc.RecordFetch(20*time.Millisecond, true)
	mc.RecordFetch(30*time.Millisecond, true)

	metrics := mc.GetMetrics()
	fetches := metrics["fetches"].(map[string]interface{})
	avgDuration := fetches["avg_duration_ms"].(float64)

	// Average should be 20ms
	if avgDuration < 19.0 || avgDuration > 21.0 {
		t.Errorf("Expected average duration around 20ms, got %.2fms", avgDuration)
	}
}

func TestMetricsCollector_Uptime(t *testing.T) {
	mc := NewMetricsCollector()

	time.Sleep(100 * time.Millisecond)

	metrics := mc.GetMetrics()
	uptime := metrics["uptime_seconds"].(float64)

	if uptime < 0.1 {
		t.Errorf("Expected uptime >= 0.1 seconds, got %.3f", uptime)
	}
}

func TestMetricsCollector_ZeroDivision(t *testing.T) {
	mc := NewMetricsCollector()

	// Should not panic and should return 0 for averages with no data
	metrics := mc.GetMetrics()
	fetches := metrics["fetches"].(map[string]interface{})

	if fetches["avg_duration_ms"].(float64) != 0 {
		t.Errorf("Expected 0 average duration with no fetches, got %v", fetches["avg_duration_ms"])
	}
	if fetches["hit_rate"].(float64) != 0 {
		t.Errorf("Expected 0 hit rate with no fetches, got %v", fetches["hit_rate"])
	}
}

func TestTimingHistogram_CircularBuffer(t *testing.T) {
	th := NewTimingHistogram(5) // Small buffer

	// Add more than max capacity
	for i := 1; i <= 10; i++ {
		th.Record(time.Duration(i) * time.Millisecond)
	}

	// Should only keep last 5
	th.mu.Lock()
	count := len(th.recentTimings)
	th.mu.Unlock()

	if count != 5 {
		t.Errorf("Expected 5 recent timings, got %d", count)
	}

	// Percentiles should be calculated from last 5 (6-10)
	percentiles := th.GetPercentiles()
	p50 := percentiles["p50"]

	// P50 of [6,7,8,9,10] should be 8
	if p50 < 7*time.Millisecond || p50 > 9*time.Millisecond {
		t.Errorf("Expected p50 around 8ms, got %v", p50)
	}
}

func TestMetricsCollector_Concurrent(t *testing.T) {
	mc := NewMetricsCollector()

	done := make(chan bool, 4)

	go func() {
		for i := 0; i < 100; i++ {
			mc.RecordFetch(1*time.Millisecond, true)
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			mc.RecordEviction(false)
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			mc.RecordPageAllocated()
		}
		done <- true
	}()

	go func() {
		for i := 0; i < 100; i++ {
			_ = mc.GetMetrics()
		}
		done <- true
	}()

	for i := 0; i < 4; i++ {
		<-done
	}

	metrics := mc.GetMetrics()
	fetches := metrics["fetches"].(map[string]interface{})
	evictions := metrics["evictions"].(map[string]interface{})
	pages := metrics["pages"].(map[string]interface{})

	if fetches["total"].(uint64) != 100 {
		t.Errorf("Expected 100 fetches, got %v", fetches["total"])
	}
	if evictions["total"].(uint64) != 100 {
		t.Errorf("Expected 100 evictions, got %v", evictions["total"])
	}
	if pages["allocated"].(uint64) != 100 {
		t.Errorf("Expected 100 allocated pages, got %v", pages["allocated"])
	}
}
