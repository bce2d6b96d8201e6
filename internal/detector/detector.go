// Package detector implements the anomaly detector: a pure
// accumulate-and-threshold model over bounded packet history and latency
// windows, composing the packet validator and emitting append-only alerts.
package detector

import (
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/NawrasBukhari/emulation-beta/internal/core"
	"github.com/NawrasBukhari/emulation-beta/internal/telemetry"
	"github.com/NawrasBukhari/emulation-beta/internal/validator"
)

// PacketRecord is one entry in the bounded packet-history window.
type PacketRecord struct {
	PacketID  int     `json:"packet_id"`
	UAVID     string  `json:"uav_id"`
	Timestamp float64 `json:"timestamp"`
	Checksum  int     `json:"checksum"`
}

// AnalysisResult reports what a single Analyze call observed, for callers
// that feed downstream collectors.
type AnalysisResult struct {
	Validation *validator.Result
	ChecksumOK bool
	Alerts     []*core.Alert
}

// Summary is a snapshot of the detector's accumulated state.
type Summary struct {
	TotalPackets         int             `json:"total_packets"`
	ChecksumMismatches   int             `json:"checksum_mismatches"`
	ChecksumMismatchRate float64         `json:"checksum_mismatch_rate"`
	AverageLatency       float64         `json:"average_latency"`
	LatencyVariance      float64         `json:"latency_variance"`
	UniqueUAVIDs         int             `json:"unique_uav_ids"`
	TotalAlerts          int             `json:"total_alerts"`
	AlertsByType         map[string]int  `json:"alerts_by_type"`
	AlertsBySeverity     map[string]int  `json:"alerts_by_severity"`
	ValidationStats      validator.Stats `json:"validation_stats"`
}

// Detector consumes one packet (or loss signal) at a time and evaluates
// threshold rules over its own windows. Alerts are append-only and are never
// deduplicated or rate-limited; the statistical rules fire on every call once
// their sample preconditions hold.
type Detector struct {
	mu        sync.Mutex
	logger    zerolog.Logger
	clk       clock.Clock
	validator *validator.Validator
	pipeline  *core.AlertPipeline
	cfg       core.DetectorConfig

	history   *core.Window[PacketRecord]
	latencies *core.Window[float64]

	checksumMismatches int
	totalPackets       int
	idFrequencies      map[string]int
	alerts             []*core.Alert
}

// NewDetector creates a detector. The pipeline may be nil; alerts are then
// only accumulated internally.
func NewDetector(v *validator.Validator, pipeline *core.AlertPipeline, cfg core.DetectorConfig, clk clock.Clock, logger zerolog.Logger) *Detector {
	if cfg.LatencyVarianceThreshold <= 0 {
		cfg.LatencyVarianceThreshold = 0.1
	}
	if cfg.ChecksumRateThreshold <= 0 {
		cfg.ChecksumRateThreshold = 0.05
	}
	if cfg.RepeatIDThreshold <= 0 {
		cfg.RepeatIDThreshold = 0.3
	}
	if cfg.HistorySize <= 0 {
		cfg.HistorySize = 100
	}
	if cfg.LatencyWindowSize <= 0 {
		cfg.LatencyWindowSize = 50
	}
	return &Detector{
		logger:        logger.With().Str("component", "detector").Logger(),
		clk:           clk,
		validator:     v,
		pipeline:      pipeline,
		cfg:           cfg,
		history:       core.NewWindow[PacketRecord](cfg.HistorySize),
		latencies:     core.NewWindow[float64](cfg.LatencyWindowSize),
		idFrequencies: make(map[string]int),
	}
}

// Analyze processes one cycle's packet. A nil packet is a loss signal: it
// emits a packet_loss alert and nothing else. Otherwise the packet is
// validated, recorded into the bounded windows, re-checked for checksum
// validity, matched against its ground-truth fault tag, and the statistical
// threshold rules are evaluated.
func (d *Detector) Analyze(p *telemetry.Packet) *AnalysisResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	res := &AnalysisResult{ChecksumOK: true}

	if p == nil {
		alert := core.NewAlert(core.AlertPacketLoss, core.SeverityHigh, d.clk.Now())
		d.emit(alert, res)
		return res
	}

	res.Validation = d.validator.FullValidation(p)
	for _, errCode := range res.Validation.Errors {
		if errCode == validator.ErrChecksumMismatch {
			continue
		}
		alert := core.NewAlert(core.ValidationErrorType(errCode), core.SeverityHigh, d.clk.Now())
		alert.PacketID = p.PacketID
		d.emit(alert, res)
	}

	d.totalPackets++
	now := float64(d.clk.Now().UnixNano()) / 1e9

	if last, ok := d.history.Last(); ok {
		d.latencies.Push(now - last.Timestamp)
	}

	d.history.Push(PacketRecord{
		PacketID:  p.PacketID,
		UAVID:     p.UAVID,
		Timestamp: p.Timestamp,
		Checksum:  p.Checksum,
	})
	d.idFrequencies[p.UAVID]++

	// Checksum validity is re-derived here, independently of the validator's
	// own check. Both paths apply the same sum-mod rule.
	if raw, err := telemetry.DecodePayload(p.Payload); err != nil || telemetry.Checksum(raw) != p.Checksum {
		d.checksumMismatches++
		res.ChecksumOK = false
	}

	if p.Anomaly == telemetry.AnomalySpoofedID && !d.validator.CheckIdentity(p) {
		alert := core.NewAlert(core.AlertSpoofedID, core.SeverityCritical, d.clk.Now())
		alert.UAVID = p.UAVID
		d.emit(alert, res)
	}

	if p.Anomaly == telemetry.AnomalyMalformedPayload {
		alert := core.NewAlert(core.AlertMalformedPayload, core.SeverityMedium, d.clk.Now())
		alert.PacketID = p.PacketID
		d.emit(alert, res)
	}

	d.checkStatisticalThresholds(res)
	return res
}

// checkStatisticalThresholds evaluates the three accumulated-state rules.
// Caller must hold d.mu.
func (d *Detector) checkStatisticalThresholds(res *AnalysisResult) {
	now := d.clk.Now()

	if d.latencies.Len() >= 10 {
		variance := core.Variance(d.latencies.Values())
		if variance > d.cfg.LatencyVarianceThreshold {
			alert := core.NewAlert(core.AlertLatencyVariance, core.SeverityMedium, now)
			alert.Variance = variance
			d.emit(alert, res)
		}
	}

	if d.totalPackets > 0 {
		rate := float64(d.checksumMismatches) / float64(d.totalPackets)
		if rate > d.cfg.ChecksumRateThreshold {
			alert := core.NewAlert(core.AlertChecksumRate, core.SeverityHigh, now)
			alert.Rate = rate
			d.emit(alert, res)
		}

		for uavID, count := range d.idFrequencies {
			frequency := float64(count) / float64(d.totalPackets)
			if frequency > d.cfg.RepeatIDThreshold {
				alert := core.NewAlert(core.AlertRepeatedID, core.SeverityMedium, now)
				alert.UAVID = uavID
				alert.Frequency = frequency
				d.emit(alert, res)
			}
		}
	}
}

// emit appends the alert to the lifetime list and fans it out. Caller must
// hold d.mu.
func (d *Detector) emit(alert *core.Alert, res *AnalysisResult) {
	d.alerts = append(d.alerts, alert)
	res.Alerts = append(res.Alerts, alert)
	if d.pipeline != nil {
		d.pipeline.Process(alert)
	}
	d.logger.Debug().
		Str("type", alert.Type).
		Str("severity", alert.Severity.String()).
		Msg("alert emitted")
}

// Alerts returns the full ordered alert list emitted so far.
func (d *Detector) Alerts() []*core.Alert {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*core.Alert, len(d.alerts))
	copy(out, d.alerts)
	return out
}

// Summary returns a snapshot of accumulated detector state, including the
// validator's own stats.
func (d *Detector) Summary() Summary {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := Summary{
		TotalPackets:       d.totalPackets,
		ChecksumMismatches: d.checksumMismatches,
		UniqueUAVIDs:       len(d.idFrequencies),
		TotalAlerts:        len(d.alerts),
		AlertsByType:       make(map[string]int),
		AlertsBySeverity:   make(map[string]int),
		ValidationStats:    d.validator.Stats(),
	}
	if d.totalPackets > 0 {
		s.ChecksumMismatchRate = float64(d.checksumMismatches) / float64(d.totalPackets)
	}
	if d.latencies.Len() > 0 {
		values := d.latencies.Values()
		s.AverageLatency = core.Mean(values)
		s.LatencyVariance = core.Variance(values)
	}
	for _, alert := range d.alerts {
		s.AlertsByType[alert.Type]++
		s.AlertsBySeverity[alert.Severity.String()]++
	}
	return s
}
