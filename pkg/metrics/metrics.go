package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// MetricsCollector collects real-time performance metrics for the buffer
// pool and the HTTP server fronting it.
type MetricsCollector struct {
	// Fetch metrics
	fetchesExecuted uint64
	fetchHits       uint64
	fetchMisses     uint64
	totalFetchTime  uint64 // in nanoseconds

	// Eviction metrics
	evictions      uint64
	dirtyEvictions uint64

	// Page lifecycle metrics
	pagesAllocated uint64
	pagesDeleted   uint64

	// Connection metrics (for HTTP server)
	activeConnections uint64
	totalConnections  uint64

	// Operation timing buckets (histogram)
	mu           sync.RWMutex
	fetchTimings *TimingHistogram

	// Start time for uptime calculation
	startTime time.Time
}

// TimingHistogram stores timing data in buckets for histogram generation
type TimingHistogram struct {
	// Buckets: <1ms, 1-10ms, 10-100ms, 100ms-1s, >1s
	bucket0_1ms      uint64 // 0-1ms
	bucket1_10ms     uint64 // 1-10ms
	bucket10_100ms   uint64 // 10-100ms
	bucket100_1000ms uint64 // 100-1000ms
	bucket1000ms     uint64 // >1s

	// P50, P95, P99 tracking
	mu               sync.Mutex
	recentTimings    []time.Duration // Keep last 1000 timings
	maxRecentTimings int
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		fetchTimings: NewTimingHistogram(1000),
		startTime:    time.Now(),
	}
}

// NewTimingHistogram creates a new timing histogram
func NewTimingHistogram(maxRecent int) *TimingHistogram {
	return &TimingHistogram{
		recentTimings:    make([]time.Duration, 0, maxRecent),
		maxRecentTimings: maxRecent,
	}
}

// RecordFetch records a FetchPage call, distinguishing hits from misses.
func (mc *MetricsCollector) RecordFetch(duration time.Duration, hit bool) {
	atomic.AddUint64(&mc.fetchesExecuted, 1)
	if hit {
		atomic.AddUint64(&mc.fetchHits, 1)
	} else {
		atomic.AddUint64(&mc.fetchMisses, 1)
	}
	atomic.AddUint64(&mc.totalFetchTime, uint64(duration.Nanoseconds()))
	mc.fetchTimings.Record(duration)
}

// RecordEviction records that the replacer evicted a frame.
func (mc *MetricsCollector) RecordEviction(wasDirty bool) {
	atomic.AddUint64(&mc.evictions, 1)
	if wasDirty {
		atomic.AddUint64(&mc.dirtyEvictions, 1)
	}
}

// RecordPageAllocated records a successful NewPage call.
func (mc *MetricsCollector) RecordPageAllocated() {
	atomic.AddUint64(&mc.pagesAllocated, 1)
}

// RecordPageDeleted records a successful DeletePage call.
func (mc *MetricsCollector) RecordPageDeleted() {
	atomic.AddUint64(&mc.pagesDeleted, 1)
}

// RecordConnectionStart records connection metrics
func (mc *MetricsCollector) RecordConnectionStart() {
	atomic.AddUint64(&mc.totalConnections, 1)
	atomic.AddUint64(&mc.activeConnections, 1)
}

func (mc *MetricsCollector) RecordConnectionEnd() {
	atomic.AddUint64(&mc.activeConnections, ^uint64(0)) // Decrement using two's complement
}

// Record adds a timing to the histogram
func (th *TimingHistogram) Record(duration time.Duration) {
	// Update buckets atomically
	ms := duration.Milliseconds()
	if ms < 1 {
		atomic.AddUint64(&th.bucket0_1ms, 1)
	} else if ms < 10 {
		atomic.AddUint64(&th.bucket1_10ms, 1)
	} else if ms < 100 {
		atomic.AddUint64(&th.bucket10_100ms, 1)
	} else if ms < 1000 {
		atomic.AddUint64(&th.bucket100_1000ms, 1)
	} else {
		atomic.AddUint64(&th.bucket1000ms, 1)
	}

	// Add to recent timings for percentile calculation
	th.mu.Lock()
	defer th.mu.Unlock()

	if len(th.recentTimings) >= th.maxRecentTimings {
		// Shift array to remove oldest
		th.recentTimings = th.recentTimings[1:]
	}
	th.recentTimings = append(th.recentTimings, duration)
}

// GetBuckets returns the histogram bucket counts
func (th *TimingHistogram) GetBuckets() map[string]uint64 {
	return map[string]uint64{
		"0-1ms":      atomic.LoadUint64(&th.bucket0_1ms),
		"1-10ms":     atomic.LoadUint64(&th.bucket1_10ms),
		"10-100ms":   atomic.LoadUint64(&th.bucket10_100ms),
		"100-1000ms": atomic.LoadUint64(&th.bucket100_1000ms),
		">1000ms":    atomic.LoadUint64(&th.bucket1000ms),
	}
}

// GetPercentiles calculates P50, P95, P99 from recent timings
func (th *TimingHistogram) GetPercentiles() map[string]time.Duration {
	th.mu.Lock()
	defer th.mu.Unlock()

	if len(th.recentTimings) == 0 {
		return map[string]time.Duration{
			"p50": 0,
			"p95": 0,
			"p99": 0,
		}
	}

	// Create sorted copy
	sorted := make([]time.Duration, len(th.recentTimings))
	copy(sorted, th.recentTimings)

	// Simple insertion sort (fine for 1000 elements)
	for i := 1; i < len(sorted); i++ {
		key := sorted[i]
		j := i - 1
		for j >= 0 && sorted[j] > key {
			sorted[j+1] = sorted[j]
			j--
		}
		sorted[j+1] = key
	}

	// Calculate percentiles
	p50idx := len(sorted) * 50 / 100
	p95idx := len(sorted) * 95 / 100
	p99idx := len(sorted) * 99 / 100

	return map[string]time.Duration{
		"p50": sorted[p50idx],
		"p95": sorted[p95idx],
		"p99": sorted[p99idx],
	}
}

// GetMetrics returns a snapshot of all metrics
func (mc *MetricsCollector) GetMetrics() map[string]interface{} {
	fetchesExecuted := atomic.LoadUint64(&mc.fetchesExecuted)
	fetchHits := atomic.LoadUint64(&mc.fetchHits)
	fetchMisses := atomic.LoadUint64(&mc.fetchMisses)
	totalFetchTime := atomic.LoadUint64(&mc.totalFetchTime)

	evictions := atomic.LoadUint64(&mc.evictions)
	dirtyEvictions := atomic.LoadUint64(&mc.dirtyEvictions)

	pagesAllocated := atomic.LoadUint64(&mc.pagesAllocated)
	pagesDeleted := atomic.LoadUint64(&mc.pagesDeleted)

	activeConnections := atomic.LoadUint64(&mc.activeConnections)
	totalConnections := atomic.LoadUint64(&mc.totalConnections)

	var avgFetchTime float64
	if fetchesExecuted > 0 {
		avgFetchTime = float64(totalFetchTime) / float64(fetchesExecuted) / 1e6 // ms
	}

	var hitRate float64
	if fetchesExecuted > 0 {
		hitRate = float64(fetchHits) / float64(fetchesExecuted) * 100
	}

	uptime := time.Since(mc.startTime)

	return map[string]interface{}{
		"uptime_seconds": uptime.Seconds(),

		"fetches": map[string]interface{}{
			"total":              fetchesExecuted,
			"hits":               fetchHits,
			"misses":             fetchMisses,
			"hit_rate":           hitRate,
			"avg_duration_ms":    avgFetchTime,
			"timing_histogram":   mc.fetchTimings.GetBuckets(),
			"timing_percentiles": mc.fetchTimings.GetPercentiles(),
		},

		"evictions": map[string]interface{}{
			"total": evictions,
			"dirty": dirtyEvictions,
		},

		"pages": map[string]interface{}{
			"allocated": pagesAllocated,
			"deleted":   pagesDeleted,
		},

		"connections": map[string]interface{}{
			"active": activeConnections,
			"total":  totalConnections,
		},
	}
}

// Reset resets all metrics to zero
func (mc *MetricsCollector) Reset() {
	atomic.StoreUint64(&mc.fetchesExecuted, 0)
	atomic.StoreUint64(&mc.fetchHits, 0)
	atomic.StoreUint64(&mc.fetchMisses, 0)
	atomic.StoreUint64(&mc.totalFetchTime, 0)

	atomic.StoreUint64(&mc.evictions, 0)
	atomic.StoreUint64(&mc.dirtyEvictions, 0)

	atomic.StoreUint64(&mc.pagesAllocated, 0)
	atomic.StoreUint64(&mc.pagesDeleted, 0)

	atomic.StoreUint64(&mc.totalConnections, 0)
	// Don't reset activeConnections as it represents current state

	mc.mu.Lock()
	mc.fetchTimings = NewTimingHistogram(1000)
	mc.mu.Unlock()

	mc.startTime = time.Now()
}
