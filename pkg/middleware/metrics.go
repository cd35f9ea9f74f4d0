package middleware

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
)

// MetricsCollector collects HTTP metrics.
type MetricsCollector struct {
	mu        sync.RWMutex
	namespace string
	subsystem string

	// Request counters
	requestsTotal   map[string]*uint64 // method:path:status -> count
	requestDuration map[string]*histogram

	// Active requests
	activeRequests int64

	// Start time
	startTime time.Time
}

// histogram is a simple histogram implementation.
type histogram struct {
	count uint64
	sum   float64
	mu    sync.Mutex
}

func (h *histogram) observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector(namespace, subsystem string) *MetricsCollector {
	return &MetricsCollector{
		namespace:       namespace,
		subsystem:       subsystem,
		requestsTotal:   make(map[string]*uint64),
		requestDuration: make(map[string]*histogram),
		startTime:       time.Now(),
	}
}

// RecordRequest records a request metric.
func (m *MetricsCollector) RecordRequest(method, path string, status int, duration time.Duration) {
	key := fmt.Sprintf("%s:%s:%d", method, path, status)

	m.mu.Lock()
	if _, ok := m.requestsTotal[key]; !ok {
		var counter uint64
		m.requestsTotal[key] = &counter
	}
	if _, ok := m.requestDuration[key]; !ok {
		m.requestDuration[key] = &histogram{}
	}
	counterPtr := m.requestsTotal[key]
	histPtr := m.requestDuration[key]
	m.mu.Unlock()

	atomic.AddUint64(counterPtr, 1)
	histPtr.observe(duration.Seconds())
}

// IncrementActive increments active request count.
func (m *MetricsCollector) IncrementActive() {
	atomic.AddInt64(&m.activeRequests, 1)
}

// DecrementActive decrements active request count.
func (m *MetricsCollector) DecrementActive() {
	atomic.AddInt64(&m.activeRequests, -1)
}

// Export exports metrics in Prometheus format.
func (m *MetricsCollector) Export() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var sb strings.Builder
	prefix := m.namespace
	if m.subsystem != "" {
		prefix = prefix + "_" + m.subsystem
	}

	// Process info
	sb.WriteString(fmt.Sprintf("# HELP %s_process_start_time_seconds Start time of the process.\n", prefix))
	sb.WriteString(fmt.Sprintf("# TYPE %s_process_start_time_seconds gauge\n", prefix))
	sb.WriteString(fmt.Sprintf("%s_process_start_time_seconds %d\n", prefix, m.startTime.Unix()))
	sb.WriteString("\n")

	// Uptime
	sb.WriteString(fmt.Sprintf("# HELP %s_process_uptime_seconds Uptime of the process.\n", prefix))
	sb.WriteString(fmt.Sprintf("# TYPE %s_process_uptime_seconds gauge\n", prefix))
	sb.WriteString(fmt.Sprintf("%s_process_uptime_seconds %.2f\n", prefix, time.Since(m.startTime).Seconds()))
	sb.WriteString("\n")

	// Active requests
	sb.WriteString(fmt.Sprintf("# HELP %s_requests_active Current number of active requests.\n", prefix))
	sb.WriteString(fmt.Sprintf("# TYPE %s_requests_active gauge\n", prefix))
	sb.WriteString(fmt.Sprintf("%s_requests_active %d\n", prefix, atomic.LoadInt64(&m.activeRequests)))
	sb.WriteString("\n")

	// Request total
	if len(m.requestsTotal) > 0 {
		sb.WriteString(fmt.Sprintf("# HELP %s_requests_total Total number of HTTP requests.\n", prefix))
		sb.WriteString(fmt.Sprintf("# TYPE %s_requests_total counter\n", prefix))

		// Sort keys for consistent output
		keys := make([]string, 0, len(m.requestsTotal))
		for k := range m.requestsTotal {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts := strings.SplitN(key, ":", 3)
			if len(parts) == 3 {
				method, path, status := parts[0], parts[1], parts[2]
				count := atomic.LoadUint64(m.requestsTotal[key])
				sb.WriteString(fmt.Sprintf("%s_requests_total{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n",
					prefix, method, path, status, count))
			}
		}
		sb.WriteString("\n")
	}

	// Request duration
	if len(m.requestDuration) > 0 {
		sb.WriteString(fmt.Sprintf("# HELP %s_request_duration_seconds HTTP request duration in seconds.\n", prefix))
		sb.WriteString(fmt.Sprintf("# TYPE %s_request_duration_seconds summary\n", prefix))

		keys := make([]string, 0, len(m.requestDuration))
		for k := range m.requestDuration {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		for _, key := range keys {
			parts := strings.SplitN(key, ":", 3)
			if len(parts) == 3 {
				method, path, status := parts[0], parts[1], parts[2]
				hist := m.requestDuration[key]
				hist.mu.Lock()
				count := hist.count
				sum := hist.sum
				hist.mu.Unlock()

				sb.WriteString(fmt.Sprintf("%s_request_duration_seconds_count{method=\"%s\",path=\"%s\",status=\"%s\"} %d\n",
					prefix, method, path, status, count))
				sb.WriteString(fmt.Sprintf("%s_request_duration_seconds_sum{method=\"%s\",path=\"%s\",status=\"%s\"} %.6f\n",
					prefix, method, path, status, sum))
			}
		}
	}

	return sb.String()
}

// Metrics returns a middleware that records request counts and latency.
// Paths are recorded by route template so path parameters do not explode
// the label space; unmatched routes are recorded as "unmatched".
func Metrics(collector *MetricsCollector) gin.HandlerFunc {
	return func(c *gin.Context) {
		collector.IncrementActive()
		start := time.Now()
		c.Next()
		collector.DecrementActive()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		collector.RecordRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// GetRequestCount returns the request count for given method, path, status.
func (m *MetricsCollector) GetRequestCount(method, path string, status int) uint64 {
	key := fmt.Sprintf("%s:%s:%d", method, path, status)
	m.mu.RLock()
	defer m.mu.RUnlock()

	if counter, ok := m.requestsTotal[key]; ok {
		return atomic.LoadUint64(counter)
	}
	return 0
}
