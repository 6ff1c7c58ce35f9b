package metrics

import (
	"fmt"
	"io"
	"sync/atomic"
	"time"
)

// PrometheusExporter exports metrics in Prometheus text format
type PrometheusExporter struct {
	collector       *MetricsCollector
	resourceTracker *ResourceTracker
	namespace       string // Metric namespace prefix (e.g., "laura_db")
}

// NewPrometheusExporter creates a new Prometheus exporter
func NewPrometheusExporter(collector *MetricsCollector, resourceTracker *ResourceTracker) *PrometheusExporter {
	return &PrometheusExporter{
		collector:       collector,
		resourceTracker: resourceTracker,
		namespace:       "laura_db_bufferpool",
	}
}

// SetNamespace sets the metric namespace prefix
func (pe *PrometheusExporter) SetNamespace(namespace string) {
	pe.namespace = namespace
}

// WriteMetrics writes all metrics in Prometheus text format to the writer
// Format: https://prometheus.io/docs/instrumenting/exposition_formats/
func (pe *PrometheusExporter) WriteMetrics(w io.Writer) error {
	uptime := time.Since(pe.collector.startTime).Seconds()
	if err := pe.writeGauge(w, "uptime_seconds", "Buffer pool manager uptime in seconds", uptime); err != nil {
		return err
	}

	// Fetch metrics
	fetchesExecuted := atomic.LoadUint64(&pe.collector.fetchesExecuted)
	fetchHits := atomic.LoadUint64(&pe.collector.fetchHits)
	fetchMisses := atomic.LoadUint64(&pe.collector.fetchMisses)
	totalFetchTime := atomic.LoadUint64(&pe.collector.totalFetchTime)
	var hitRate float64
	if fetchesExecuted > 0 {
		hitRate = float64(fetchHits) / float64(fetchesExecuted)
	}

	if err := pe.writeCounter(w, "fetches_total", "Total number of FetchPage calls", fetchesExecuted); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "fetch_hits_total", "Total number of FetchPage calls served from the pool", fetchHits); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "fetch_misses_total", "Total number of FetchPage calls requiring a disk read", fetchMisses); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "fetch_duration_nanoseconds_total", "Total fetch time in nanoseconds", totalFetchTime); err != nil {
		return err
	}
	if err := pe.writeGauge(w, "fetch_hit_rate", "Fetch hit rate (0-1)", hitRate); err != nil {
		return err
	}

	if err := pe.writeHistogram(w, "fetch_duration_seconds", "FetchPage duration histogram", pe.collector.fetchTimings); err != nil {
		return err
	}
	if err := pe.writePercentiles(w, "fetch_duration_seconds", pe.collector.fetchTimings); err != nil {
		return err
	}

	// Eviction metrics
	evictions := atomic.LoadUint64(&pe.collector.evictions)
	dirtyEvictions := atomic.LoadUint64(&pe.collector.dirtyEvictions)

	if err := pe.writeCounter(w, "evictions_total", "Total number of frames evicted by the replacer", evictions); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "dirty_evictions_total", "Total number of evictions that required a writeback", dirtyEvictions); err != nil {
		return err
	}

	// Page lifecycle metrics
	pagesAllocated := atomic.LoadUint64(&pe.collector.pagesAllocated)
	pagesDeleted := atomic.LoadUint64(&pe.collector.pagesDeleted)

	if err := pe.writeCounter(w, "pages_allocated_total", "Total number of pages allocated", pagesAllocated); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "pages_deleted_total", "Total number of pages deleted", pagesDeleted); err != nil {
		return err
	}

	// Connection metrics
	activeConnections := atomic.LoadUint64(&pe.collector.activeConnections)
	totalConnections := atomic.LoadUint64(&pe.collector.totalConnections)

	if err := pe.writeGauge(w, "active_connections", "Current number of active connections", float64(activeConnections)); err != nil {
		return err
	}
	if err := pe.writeCounter(w, "connections_total", "Total number of connections", totalConnections); err != nil {
		return err
	}

	// Resource tracker metrics (if available)
	if pe.resourceTracker != nil {
		stats := pe.resourceTracker.GetStats()

		if err := pe.writeGauge(w, "memory_heap_bytes", "Heap memory in bytes", float64(stats.HeapInUse)); err != nil {
			return err
		}
		if err := pe.writeGauge(w, "memory_stack_bytes", "Stack memory in bytes", float64(stats.StackInUse)); err != nil {
			return err
		}
		if err := pe.writeCounter(w, "memory_allocations_total", "Total memory allocations", stats.AllocBytes); err != nil {
			return err
		}
		if err := pe.writeGauge(w, "memory_objects", "Number of allocated objects", float64(stats.AllocObjects)); err != nil {
			return err
		}

		if err := pe.writeGauge(w, "goroutines", "Number of goroutines", float64(stats.NumGoroutines)); err != nil {
			return err
		}

		if err := pe.writeCounter(w, "io_bytes_read_total", "Total bytes read", stats.BytesRead); err != nil {
			return err
		}
		if err := pe.writeCounter(w, "io_bytes_written_total", "Total bytes written", stats.BytesWritten); err != nil {
			return err
		}
		if err := pe.writeCounter(w, "io_read_operations_total", "Total read operations", stats.ReadsCompleted); err != nil {
			return err
		}
		if err := pe.writeCounter(w, "io_write_operations_total", "Total write operations", stats.WritesCompleted); err != nil {
			return err
		}

		if err := pe.writeCounter(w, "gc_runs_total", "Total garbage collection runs", uint64(stats.GCRuns)); err != nil {
			return err
		}
		if err := pe.writeGauge(w, "gc_pause_nanoseconds", "Last GC pause time in nanoseconds", float64(stats.LastGCTimeNs)); err != nil {
			return err
		}

		if err := pe.writeGauge(w, "cpu_count", "Number of CPUs", float64(stats.NumCPU)); err != nil {
			return err
		}
	}

	return nil
}

// writeCounter writes a counter metric
func (pe *PrometheusExporter) writeCounter(w io.Writer, name, help string, value uint64) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s counter\n%s %d\n",
		metricName, help, metricName, metricName, value)
	return err
}

// writeGauge writes a gauge metric
func (pe *PrometheusExporter) writeGauge(w io.Writer, name, help string, value float64) error {
	metricName := pe.namespace + "_" + name
	_, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s gauge\n%s %g\n",
		metricName, help, metricName, metricName, value)
	return err
}

// writeHistogram writes histogram metrics from timing data
func (pe *PrometheusExporter) writeHistogram(w io.Writer, name, help string, th *TimingHistogram) error {
	metricName := pe.namespace + "_" + name

	if _, err := fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s histogram\n", metricName, help, metricName); err != nil {
		return err
	}

	buckets := th.GetBuckets()

	// Prometheus histogram buckets are cumulative
	var cumulative uint64

	cumulative += buckets["0-1ms"]
	if _, err := fmt.Fprintf(w, "%s_bucket{le=\"0.001\"} %d\n", metricName, cumulative); err != nil {
		return err
	}

	cumulative += buckets["1-10ms"]
	if _, err := fmt.Fprintf(w, "%s_bucket{le=\"0.01\"} %d\n", metricName, cumulative); err != nil {
		return err
	}

	cumulative += buckets["10-100ms"]
	if _, err := fmt.Fprintf(w, "%s_bucket{le=\"0.1\"} %d\n", metricName, cumulative); err != nil {
		return err
	}

	cumulative += buckets["100-1000ms"]
	if _, err := fmt.Fprintf(w, "%s_bucket{le=\"1.0\"} %d\n", metricName, cumulative); err != nil {
		return err
	}

	cumulative += buckets[">1000ms"]
	if _, err := fmt.Fprintf(w, "%s_bucket{le=\"+Inf\"} %d\n", metricName, cumulative); err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "%s_count %d\n", metricName, cumulative); err != nil {
		return err
	}

	return nil
}

// writePercentiles writes percentile metrics as gauges
func (pe *PrometheusExporter) writePercentiles(w io.Writer, baseName string, th *TimingHistogram) error {
	percentiles := th.GetPercentiles()

	if err := pe.writeGauge(w, baseName+"_p50",
		fmt.Sprintf("50th percentile of %s", baseName),
		percentiles["p50"].Seconds()); err != nil {
		return err
	}

	if err := pe.writeGauge(w, baseName+"_p95",
		fmt.Sprintf("95th percentile of %s", baseName),
		percentiles["p95"].Seconds()); err != nil {
		return err
	}

	if err := pe.writeGauge(w, baseName+"_p99",
		fmt.Sprintf("99th percentile of %s", baseName),
		percentiles["p99"].Seconds()); err != nil {
		return err
	}

	return nil
}
