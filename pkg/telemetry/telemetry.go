// Package telemetry exports the daemon's operational metrics. Ambient
// concern, not named in spec.md, carried per SPEC_FULL.md §10: grounded
// on Jeeves-Cluster-Organization-jeeves-core's
// coreengine/observability/metrics.go, the only example repo that wires
// prometheus/client_golang.
package telemetry

import (
	"context"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shirou/gopsutil/v3/process"
)

// Metrics holds the daemon's Prometheus collectors.
type Metrics struct {
	QueueDepth       prometheus.Gauge
	AppliesTotal     *prometheus.CounterVec
	DeadLetterCount  prometheus.Gauge
	RateLimiterWait  *prometheus.HistogramVec
	ProcessRSSBytes  prometheus.Gauge
	ProcessCPUPct    prometheus.Gauge
}

// New registers and returns the daemon's metric set against reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "linearmotion",
			Name:      "queue_depth",
			Help:      "Number of diffs currently buffered in the producer/consumer queue.",
		}),
		AppliesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "linearmotion",
			Name:      "applies_total",
			Help:      "Count of adapter Apply calls, by target system and outcome.",
		}, []string{"system", "outcome"}),
		DeadLetterCount: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "linearmotion",
			Name:      "dead_letter_count",
			Help:      "Number of entries currently in the dead-letter table.",
		}),
		RateLimiterWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "linearmotion",
			Name:      "rate_limiter_wait_seconds",
			Help:      "Time spent waiting for a rate-limiter token before an Apply call.",
		}, []string{"system"}),
		ProcessRSSBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "linearmotion",
			Name:      "process_rss_bytes",
			Help:      "Resident set size of the daemon process.",
		}),
		ProcessCPUPct: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "linearmotion",
			Name:      "process_cpu_percent",
			Help:      "CPU utilization percentage of the daemon process.",
		}),
	}
	reg.MustRegister(m.QueueDepth, m.AppliesTotal, m.DeadLetterCount, m.RateLimiterWait, m.ProcessRSSBytes, m.ProcessCPUPct)
	return m
}

// SampleProcess periodically samples RSS/CPU via gopsutil (a direct
// teacher dependency) until ctx is cancelled.
func (m *Metrics) SampleProcess(ctx context.Context, interval time.Duration) error {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if mem, err := proc.MemInfoWithContext(ctx); err == nil {
				m.ProcessRSSBytes.Set(float64(mem.RSS))
			}
			if pct, err := proc.CPUPercentWithContext(ctx); err == nil {
				m.ProcessCPUPct.Set(pct)
			}
		}
	}
}
