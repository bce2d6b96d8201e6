// Package stats implements the statistics aggregator: bounded sliding
// windows of arrival timestamps, inter-arrival latency and checksum-failure
// flags, unbounded per-entity and per-alert-type counters, and derived
// metrics computed on demand from current window contents.
package stats

import (
	"math"
	"sort"
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/NawrasBukhari/emulation-beta/internal/core"
	"github.com/NawrasBukhari/emulation-beta/internal/telemetry"
)

// LatencyStats holds summary statistics over the latency window. Variance is
// the population variance; the median uses even/odd midpoint averaging.
type LatencyStats struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	StdDev   float64 `json:"std_dev"`
	Variance float64 `json:"variance"`
}

// DistributionEntry pairs a cumulative count with its share of the total.
type DistributionEntry struct {
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// AlertStats summarizes cumulative alert counters.
type AlertStats struct {
	TotalAlerts      int            `json:"total_alerts"`
	AlertsByType     map[string]int `json:"alerts_by_type"`
	AlertsBySeverity map[string]int `json:"alerts_by_severity"`
	UniqueAlertTypes int            `json:"unique_alert_types"`
}

// CycleMetrics is one unbounded time-series record.
type CycleMetrics struct {
	Cycle     int                    `json:"cycle"`
	Timestamp float64                `json:"timestamp"`
	Metrics   map[string]interface{} `json:"metrics"`
}

// ComprehensiveStats is the full derived-metrics snapshot exposed at the
// reporting boundary.
type ComprehensiveStats struct {
	PacketRate           float64                      `json:"packet_rate"`
	LatencyStatistics    LatencyStats                 `json:"latency_statistics"`
	ChecksumErrorRate    float64                      `json:"checksum_error_rate"`
	UAVDistribution      map[string]DistributionEntry `json:"uav_distribution"`
	AnomalyDistribution  map[string]DistributionEntry `json:"anomaly_distribution"`
	AlertStatistics      AlertStats                   `json:"alert_statistics"`
	TotalPacketsInWindow int                          `json:"total_packets_in_window"`
	TimeSpanSeconds      float64                      `json:"time_span_seconds"`
	UniqueUAVs           int                          `json:"unique_uavs"`
	UniqueAnomalyTypes   int                          `json:"unique_anomaly_types"`
}

// Aggregator consumes the event stream independently of the detector and
// maintains rolling quality metrics for reporting.
type Aggregator struct {
	mu     sync.Mutex
	logger zerolog.Logger
	clk    clock.Clock

	timestamps     *core.Window[float64]
	latencies      *core.Window[float64]
	checksumErrors *core.Window[float64]

	uavPacketCounts map[string]int
	anomalyCounts   map[string]int
	alertCounts     map[string]int
	severityCounts  map[string]int
	cycleMetrics    []CycleMetrics
}

// NewAggregator creates an aggregator whose windows hold up to
// cfg.WindowSize samples each.
func NewAggregator(cfg core.StatsConfig, clk clock.Clock, logger zerolog.Logger) *Aggregator {
	size := cfg.WindowSize
	if size <= 0 {
		size = 100
	}
	return &Aggregator{
		logger:          logger.With().Str("component", "stats").Logger(),
		clk:             clk,
		timestamps:      core.NewWindow[float64](size),
		latencies:       core.NewWindow[float64](size),
		checksumErrors:  core.NewWindow[float64](size),
		uavPacketCounts: make(map[string]int),
		anomalyCounts:   make(map[string]int),
		alertCounts:     make(map[string]int),
		severityCounts:  make(map[string]int),
	}
}

// RecordPacket records one cycle's arrival. The packet may be nil for a loss
// cycle; the arrival timestamp is recorded either way. For present packets
// the identity counter and, when ground-truth-tagged, the anomaly-type
// counter are incremented.
func (a *Aggregator) RecordPacket(p *telemetry.Packet, cycle int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	now := float64(a.clk.Now().UnixNano()) / 1e9
	prev, hadPrev := a.timestamps.Last()
	a.timestamps.Push(now)

	if p != nil {
		a.uavPacketCounts[p.UAVID]++
		if p.Anomaly != "" {
			a.anomalyCounts[p.Anomaly]++
		}
	}

	if hadPrev {
		a.latencies.Push(now - prev)
	}
}

// RecordChecksumError records one checksum pass/fail flag.
func (a *Aggregator) RecordChecksumError(hasError bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if hasError {
		a.checksumErrors.Push(1)
	} else {
		a.checksumErrors.Push(0)
	}
}

// RecordAlert increments the cumulative per-type and per-severity counters.
func (a *Aggregator) RecordAlert(alert *core.Alert) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alertCounts[alert.Type]++
	a.severityCounts[alert.Severity.String()]++
}

// RecordCycleMetrics appends an unbounded timestamped record for later
// time-series export.
func (a *Aggregator) RecordCycleMetrics(cycle int, metrics map[string]interface{}) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cycleMetrics = append(a.cycleMetrics, CycleMetrics{
		Cycle:     cycle,
		Timestamp: float64(a.clk.Now().UnixNano()) / 1e9,
		Metrics:   metrics,
	})
}

// PacketRate returns (window length - 1) / (newest - oldest timestamp), or 0
// with fewer than two samples or a zero span.
func (a *Aggregator) PacketRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.packetRateLocked()
}

func (a *Aggregator) packetRateLocked() float64 {
	n := a.timestamps.Len()
	if n < 2 {
		return 0
	}
	first, _ := a.timestamps.First()
	last, _ := a.timestamps.Last()
	span := last - first
	if span == 0 {
		return 0
	}
	return float64(n-1) / span
}

// LatencyStatistics returns summary statistics over the current latency
// window. All fields are zero for an empty window.
func (a *Aggregator) LatencyStatistics() LatencyStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.latencyStatsLocked()
}

func (a *Aggregator) latencyStatsLocked() LatencyStats {
	values := a.latencies.Values()
	if len(values) == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	mean := core.Mean(sorted)
	var median float64
	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	} else {
		median = sorted[n/2]
	}

	variance := 0.0
	for _, x := range sorted {
		d := x - mean
		variance += d * d
	}
	variance /= float64(n)

	return LatencyStats{
		Mean:     mean,
		Median:   median,
		Min:      sorted[0],
		Max:      sorted[n-1],
		StdDev:   math.Sqrt(variance),
		Variance: variance,
	}
}

// ChecksumErrorRate returns the mean of the 0/1 checksum-failure window.
func (a *Aggregator) ChecksumErrorRate() float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return core.Mean(a.checksumErrors.Values())
}

// UAVDistribution returns per-identity counts with percentage of total.
func (a *Aggregator) UAVDistribution() map[string]DistributionEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return distribution(a.uavPacketCounts)
}

// AnomalyDistribution returns per-anomaly-type counts with percentage of
// total.
func (a *Aggregator) AnomalyDistribution() map[string]DistributionEntry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return distribution(a.anomalyCounts)
}

func distribution(counts map[string]int) map[string]DistributionEntry {
	total := 0
	for _, c := range counts {
		total += c
	}
	out := make(map[string]DistributionEntry, len(counts))
	if total == 0 {
		return out
	}
	for key, count := range counts {
		out[key] = DistributionEntry{
			Count:      count,
			Percentage: float64(count) / float64(total) * 100,
		}
	}
	return out
}

// AlertStatistics returns cumulative alert counters.
func (a *Aggregator) AlertStatistics() AlertStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.alertStatsLocked()
}

func (a *Aggregator) alertStatsLocked() AlertStats {
	total := 0
	byType := make(map[string]int, len(a.alertCounts))
	for k, v := range a.alertCounts {
		byType[k] = v
		total += v
	}
	bySeverity := make(map[string]int, len(a.severityCounts))
	for k, v := range a.severityCounts {
		bySeverity[k] = v
	}
	return AlertStats{
		TotalAlerts:      total,
		AlertsByType:     byType,
		AlertsBySeverity: bySeverity,
		UniqueAlertTypes: len(a.alertCounts),
	}
}

// TimeSeries returns all recorded cycle-metric records in order.
func (a *Aggregator) TimeSeries() []CycleMetrics {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]CycleMetrics, len(a.cycleMetrics))
	copy(out, a.cycleMetrics)
	return out
}

// ComprehensiveStats returns the full derived-metrics snapshot.
func (a *Aggregator) ComprehensiveStats() ComprehensiveStats {
	a.mu.Lock()
	defer a.mu.Unlock()

	span := 0.0
	if a.timestamps.Len() >= 2 {
		first, _ := a.timestamps.First()
		last, _ := a.timestamps.Last()
		span = last - first
	}

	return ComprehensiveStats{
		PacketRate:           a.packetRateLocked(),
		LatencyStatistics:    a.latencyStatsLocked(),
		ChecksumErrorRate:    core.Mean(a.checksumErrors.Values()),
		UAVDistribution:      distribution(a.uavPacketCounts),
		AnomalyDistribution:  distribution(a.anomalyCounts),
		AlertStatistics:      a.alertStatsLocked(),
		TotalPacketsInWindow: a.timestamps.Len(),
		TimeSpanSeconds:      span,
		UniqueUAVs:           len(a.uavPacketCounts),
		UniqueAnomalyTypes:   len(a.anomalyCounts),
	}
}

// Reset clears all windows, counters and time-series records.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.timestamps.Clear()
	a.latencies.Clear()
	a.checksumErrors.Clear()
	a.uavPacketCounts = make(map[string]int)
	a.anomalyCounts = make(map[string]int)
	a.alertCounts = make(map[string]int)
	a.severityCounts = make(map[string]int)
	a.cycleMetrics = nil
}
