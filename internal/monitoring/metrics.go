// Package monitoring - metrics.go provides simple counters.
//
// DESIGN: Lightweight in-memory counters for operational metrics:
//   - requests/successes:    Total and successful request counts
//   - quota_rejections:      Requests rejected by the free-tier ledger
//   - upstream_failures:     Transport and provider HTTP failures
//   - tokens:                Input/output tokens reported by upstreams
//
// For production, export these to Prometheus or similar.
package monitoring

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MetricsCollector collects operational metrics.
type MetricsCollector struct {
	startedAt time.Time

	requests         atomic.Int64
	successes        atomic.Int64
	quotaRejections  atomic.Int64
	upstreamFailures atomic.Int64

	totalInputTokens  atomic.Int64
	totalOutputTokens atomic.Int64
}

// NewMetricsCollector creates a new metrics collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{startedAt: time.Now()}
}

// RecordRequest records a completed request.
func (mc *MetricsCollector) RecordRequest(success bool) {
	mc.requests.Add(1)
	if success {
		mc.successes.Add(1)
	}
}

// RecordQuotaRejection records a 429 from the ledger.
func (mc *MetricsCollector) RecordQuotaRejection() { mc.quotaRejections.Add(1) }

// RecordUpstreamFailure records a failed provider call.
func (mc *MetricsCollector) RecordUpstreamFailure() { mc.upstreamFailures.Add(1) }

// RecordAPIUsage records token usage reported by the provider.
func (mc *MetricsCollector) RecordAPIUsage(inputTokens, outputTokens int) {
	mc.totalInputTokens.Add(int64(inputTokens))
	mc.totalOutputTokens.Add(int64(outputTokens))
}

// StartedAt returns when the collector was created.
func (mc *MetricsCollector) StartedAt() time.Time { return mc.startedAt }

// Stats returns current metrics as a flat map.
func (mc *MetricsCollector) Stats() map[string]int64 {
	return map[string]int64{
		"requests":          mc.requests.Load(),
		"successes":         mc.successes.Load(),
		"quota_rejections":  mc.quotaRejections.Load(),
		"upstream_failures": mc.upstreamFailures.Load(),
		"input_tokens":      mc.totalInputTokens.Load(),
		"output_tokens":     mc.totalOutputTokens.Load(),
	}
}

// Uptime returns a human-readable uptime string.
func (mc *MetricsCollector) Uptime() string {
	return formatDuration(time.Since(mc.startedAt))
}

// formatDuration formats a duration as a human-readable string.
func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}
