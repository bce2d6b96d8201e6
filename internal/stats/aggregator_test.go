package stats

import (
	"math"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/NawrasBukhari/emulation-beta/internal/core"
	"github.com/NawrasBukhari/emulation-beta/internal/telemetry"
)

func newTestAggregator(t *testing.T, windowSize int) (*Aggregator, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Unix(1700000000, 0))
	return NewAggregator(core.StatsConfig{WindowSize: windowSize}, mock, zerolog.Nop()), mock
}

func recordAt(a *Aggregator, mock *clock.Mock, gap time.Duration, p *telemetry.Packet, cycle int) {
	mock.Add(gap)
	a.RecordPacket(p, cycle)
}

// ─── Packet rate ─────────────────────────────────────────────────────────────

func TestPacketRate(t *testing.T) {
	a, mock := newTestAggregator(t, 100)

	if got := a.PacketRate(); got != 0 {
		t.Errorf("rate on empty window = %v, want 0", got)
	}
	a.RecordPacket(&telemetry.Packet{UAVID: "UAV_001"}, 0)
	if got := a.PacketRate(); got != 0 {
		t.Errorf("rate on single sample = %v, want 0", got)
	}

	// Four more arrivals, one per second: five packets over four seconds.
	for i := 1; i < 5; i++ {
		recordAt(a, mock, time.Second, &telemetry.Packet{UAVID: "UAV_001"}, i)
	}
	if got := a.PacketRate(); math.Abs(got-1.0) > 1e-9 {
		t.Errorf("rate = %v, want 1.0", got)
	}
}

func TestPacketRate_ZeroSpan(t *testing.T) {
	a, _ := newTestAggregator(t, 100)
	a.RecordPacket(&telemetry.Packet{UAVID: "UAV_001"}, 0)
	a.RecordPacket(&telemetry.Packet{UAVID: "UAV_001"}, 1)
	if got := a.PacketRate(); got != 0 {
		t.Errorf("rate with identical timestamps = %v, want 0", got)
	}
}

// ─── Latency statistics ──────────────────────────────────────────────────────

func TestLatencyStatistics(t *testing.T) {
	a, mock := newTestAggregator(t, 100)

	if got := a.LatencyStatistics(); got != (LatencyStats{}) {
		t.Errorf("stats on empty window = %+v, want zero value", got)
	}

	// Gaps of 1s, 2s, 3s, 4s give latency samples {1, 2, 3, 4}.
	a.RecordPacket(nil, 0)
	for i, gap := range []time.Duration{time.Second, 2 * time.Second, 3 * time.Second, 4 * time.Second} {
		recordAt(a, mock, gap, nil, i+1)
	}

	stats := a.LatencyStatistics()
	if stats.Mean != 2.5 {
		t.Errorf("Mean = %v, want 2.5", stats.Mean)
	}
	if stats.Median != 2.5 {
		t.Errorf("Median = %v, want 2.5 (even-count midpoint)", stats.Median)
	}
	if stats.Min != 1 || stats.Max != 4 {
		t.Errorf("Min/Max = %v/%v, want 1/4", stats.Min, stats.Max)
	}
	if stats.Variance != 1.25 {
		t.Errorf("Variance = %v, want 1.25", stats.Variance)
	}
	if math.Abs(stats.StdDev-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("StdDev = %v, want sqrt(1.25)", stats.StdDev)
	}
}

func TestLatencyStatistics_OddMedian(t *testing.T) {
	a, mock := newTestAggregator(t, 100)
	a.RecordPacket(nil, 0)
	for i, gap := range []time.Duration{time.Second, 5 * time.Second, 2 * time.Second} {
		recordAt(a, mock, gap, nil, i+1)
	}
	if got := a.LatencyStatistics().Median; got != 2 {
		t.Errorf("Median of {1,5,2} = %v, want 2", got)
	}
}

// ─── Window eviction ─────────────────────────────────────────────────────────

func TestWindowEviction(t *testing.T) {
	a, mock := newTestAggregator(t, 3)

	// Six arrivals into a window of three: only the newest three timestamps
	// survive, so the rate reflects the recent 1s cadence, not the old 10s one.
	a.RecordPacket(nil, 0)
	for i := 1; i < 3; i++ {
		recordAt(a, mock, 10*time.Second, nil, i)
	}
	for i := 3; i < 6; i++ {
		recordAt(a, mock, time.Second, nil, i)
	}

	snapshot := a.ComprehensiveStats()
	if snapshot.TotalPacketsInWindow != 3 {
		t.Errorf("TotalPacketsInWindow = %d, want 3", snapshot.TotalPacketsInWindow)
	}
	if snapshot.TimeSpanSeconds != 2 {
		t.Errorf("TimeSpanSeconds = %v, want 2", snapshot.TimeSpanSeconds)
	}
	if got := a.PacketRate(); got != 1 {
		t.Errorf("rate = %v, want 1", got)
	}
}

// ─── Distributions ───────────────────────────────────────────────────────────

func TestUAVDistribution(t *testing.T) {
	a, _ := newTestAggregator(t, 100)

	a.RecordPacket(&telemetry.Packet{UAVID: "UAV_001"}, 0)
	a.RecordPacket(&telemetry.Packet{UAVID: "UAV_001"}, 1)
	a.RecordPacket(&telemetry.Packet{UAVID: "UAV_002"}, 2)
	a.RecordPacket(nil, 3)

	dist := a.UAVDistribution()
	if len(dist) != 2 {
		t.Fatalf("distribution holds %d ids, want 2", len(dist))
	}
	if dist["UAV_001"].Count != 2 || dist["UAV_002"].Count != 1 {
		t.Errorf("counts = %+v", dist)
	}
	// Loss cycles do not dilute the identity distribution.
	if math.Abs(dist["UAV_001"].Percentage-100.0*2/3) > 1e-9 {
		t.Errorf("percentage = %v, want 66.67", dist["UAV_001"].Percentage)
	}
}

func TestAnomalyDistribution(t *testing.T) {
	a, _ := newTestAggregator(t, 100)

	a.RecordPacket(&telemetry.Packet{UAVID: "UAV_001"}, 0)
	a.RecordPacket(&telemetry.Packet{UAVID: "UAV_002", Anomaly: telemetry.AnomalySpoofedID}, 1)
	a.RecordPacket(&telemetry.Packet{UAVID: "UAV_003", Anomaly: telemetry.AnomalySpoofedID}, 2)
	a.RecordPacket(&telemetry.Packet{UAVID: "UAV_004", Anomaly: telemetry.AnomalyMalformedPayload}, 3)

	dist := a.AnomalyDistribution()
	if dist[telemetry.AnomalySpoofedID].Count != 2 {
		t.Errorf("spoofed count = %d, want 2", dist[telemetry.AnomalySpoofedID].Count)
	}
	if dist[telemetry.AnomalySpoofedID].Percentage != 100.0*2/3 {
		t.Errorf("spoofed percentage = %v", dist[telemetry.AnomalySpoofedID].Percentage)
	}
	if _, ok := dist[""]; ok {
		t.Error("clean packets must not register an anomaly entry")
	}
}

func TestDistribution_EmptyIsEmptyMap(t *testing.T) {
	a, _ := newTestAggregator(t, 100)
	if got := a.UAVDistribution(); len(got) != 0 {
		t.Errorf("distribution = %v, want empty", got)
	}
}

// ─── Checksum errors ─────────────────────────────────────────────────────────

func TestChecksumErrorRate(t *testing.T) {
	a, _ := newTestAggregator(t, 100)

	if got := a.ChecksumErrorRate(); got != 0 {
		t.Errorf("rate on empty window = %v, want 0", got)
	}
	a.RecordChecksumError(true)
	a.RecordChecksumError(false)
	a.RecordChecksumError(false)
	a.RecordChecksumError(true)
	if got := a.ChecksumErrorRate(); got != 0.5 {
		t.Errorf("rate = %v, want 0.5", got)
	}
}

// ─── Alerts ──────────────────────────────────────────────────────────────────

func TestAlertStatistics(t *testing.T) {
	a, _ := newTestAggregator(t, 100)

	now := time.Unix(1700000000, 0)
	a.RecordAlert(core.NewAlert(core.AlertPacketLoss, core.SeverityHigh, now))
	a.RecordAlert(core.NewAlert(core.AlertPacketLoss, core.SeverityHigh, now))
	a.RecordAlert(core.NewAlert(core.AlertSpoofedID, core.SeverityCritical, now))

	stats := a.AlertStatistics()
	if stats.TotalAlerts != 3 {
		t.Errorf("TotalAlerts = %d, want 3", stats.TotalAlerts)
	}
	if stats.AlertsByType[core.AlertPacketLoss] != 2 {
		t.Errorf("AlertsByType = %v", stats.AlertsByType)
	}
	if stats.AlertsBySeverity["critical"] != 1 || stats.AlertsBySeverity["high"] != 2 {
		t.Errorf("AlertsBySeverity = %v", stats.AlertsBySeverity)
	}
	if stats.UniqueAlertTypes != 2 {
		t.Errorf("UniqueAlertTypes = %d, want 2", stats.UniqueAlertTypes)
	}
}

// ─── Time series ─────────────────────────────────────────────────────────────

func TestTimeSeries(t *testing.T) {
	a, mock := newTestAggregator(t, 100)

	a.RecordCycleMetrics(0, map[string]interface{}{"packet_present": true})
	mock.Add(time.Second)
	a.RecordCycleMetrics(1, map[string]interface{}{"packet_present": false})

	series := a.TimeSeries()
	if len(series) != 2 {
		t.Fatalf("series holds %d records, want 2", len(series))
	}
	if series[0].Cycle != 0 || series[1].Cycle != 1 {
		t.Errorf("cycles = %d, %d", series[0].Cycle, series[1].Cycle)
	}
	if series[1].Timestamp <= series[0].Timestamp {
		t.Errorf("timestamps not increasing: %v then %v", series[0].Timestamp, series[1].Timestamp)
	}
	if series[0].Metrics["packet_present"] != true {
		t.Errorf("metrics = %v", series[0].Metrics)
	}
}

// ─── Comprehensive snapshot and reset ────────────────────────────────────────

func TestComprehensiveStats(t *testing.T) {
	a, mock := newTestAggregator(t, 100)

	a.RecordPacket(&telemetry.Packet{UAVID: "UAV_001"}, 0)
	recordAt(a, mock, time.Second, &telemetry.Packet{UAVID: "UAV_002", Anomaly: telemetry.AnomalySpoofedID}, 1)
	a.RecordChecksumError(true)
	a.RecordAlert(core.NewAlert(core.AlertSpoofedID, core.SeverityCritical, mock.Now()))

	snapshot := a.ComprehensiveStats()
	if snapshot.TotalPacketsInWindow != 2 {
		t.Errorf("TotalPacketsInWindow = %d, want 2", snapshot.TotalPacketsInWindow)
	}
	if snapshot.TimeSpanSeconds != 1 {
		t.Errorf("TimeSpanSeconds = %v, want 1", snapshot.TimeSpanSeconds)
	}
	if snapshot.PacketRate != 1 {
		t.Errorf("PacketRate = %v, want 1", snapshot.PacketRate)
	}
	if snapshot.UniqueUAVs != 2 || snapshot.UniqueAnomalyTypes != 1 {
		t.Errorf("unique counts = %d/%d", snapshot.UniqueUAVs, snapshot.UniqueAnomalyTypes)
	}
	if snapshot.ChecksumErrorRate != 1 {
		t.Errorf("ChecksumErrorRate = %v, want 1", snapshot.ChecksumErrorRate)
	}
	if snapshot.AlertStatistics.TotalAlerts != 1 {
		t.Errorf("TotalAlerts = %d, want 1", snapshot.AlertStatistics.TotalAlerts)
	}
}

func TestReset(t *testing.T) {
	a, mock := newTestAggregator(t, 100)

	a.RecordPacket(&telemetry.Packet{UAVID: "UAV_001", Anomaly: telemetry.AnomalySpoofedID}, 0)
	recordAt(a, mock, time.Second, &telemetry.Packet{UAVID: "UAV_002"}, 1)
	a.RecordChecksumError(true)
	a.RecordAlert(core.NewAlert(core.AlertPacketLoss, core.SeverityHigh, mock.Now()))
	a.RecordCycleMetrics(0, map[string]interface{}{"x": 1})

	a.Reset()
	snapshot := a.ComprehensiveStats()
	if snapshot.TotalPacketsInWindow != 0 || snapshot.PacketRate != 0 {
		t.Errorf("window survived reset: %+v", snapshot)
	}
	if snapshot.UniqueUAVs != 0 || snapshot.UniqueAnomalyTypes != 0 {
		t.Errorf("counters survived reset: %+v", snapshot)
	}
	if snapshot.AlertStatistics.TotalAlerts != 0 {
		t.Errorf("alert counters survived reset")
	}
	if got := a.TimeSeries(); len(got) != 0 {
		t.Errorf("time series survived reset: %v", got)
	}
	if got := a.ChecksumErrorRate(); got != 0 {
		t.Errorf("checksum window survived reset: %v", got)
	}
}
