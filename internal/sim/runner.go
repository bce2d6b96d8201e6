// Package sim wires the telemetry pipeline together and drives it: per
// cycle, the emulated channel yields a packet (or a loss signal), the
// detector validates and analyzes it, the aggregator records timing, error
// and alert data, and the topology graph is told which unit was last seen.
// At the end of a run the accumulated state is read out into reports.
package sim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/NawrasBukhari/emulation-beta/internal/core"
	"github.com/NawrasBukhari/emulation-beta/internal/detector"
	"github.com/NawrasBukhari/emulation-beta/internal/emulator"
	"github.com/NawrasBukhari/emulation-beta/internal/report"
	"github.com/NawrasBukhari/emulation-beta/internal/stats"
	"github.com/NawrasBukhari/emulation-beta/internal/telemetry"
	"github.com/NawrasBukhari/emulation-beta/internal/topology"
	"github.com/NawrasBukhari/emulation-beta/internal/validator"
)

// RunResult is everything a completed run exposes at the reporting boundary.
type RunResult struct {
	Run      report.RunInfo           `json:"run"`
	Summary  detector.Summary         `json:"summary"`
	Stats    stats.ComprehensiveStats `json:"stats"`
	Topology topology.Statistics      `json:"topology"`
	Alerts   []*core.Alert            `json:"alerts"`
}

// Runner owns one simulation run's components and state.
type Runner struct {
	cfg    *core.Config
	logger zerolog.Logger
	clk    clock.Clock

	topology   *topology.Topology
	validator  *validator.Validator
	pipeline   *core.AlertPipeline
	detector   *detector.Detector
	aggregator *stats.Aggregator
	channel    *emulator.Emulator
	bus        *core.EventBus
}

// NewRunner builds a fully wired runner from configuration.
func NewRunner(cfg *core.Config) (*Runner, error) {
	return newRunner(cfg, clock.New())
}

func newRunner(cfg *core.Config, clk clock.Clock) (*Runner, error) {
	logger := newLogger(cfg)

	topo := topology.NewTopology(logger)
	topo.Initialize(cfg.Topology.Units, cfg.Topology.ConnectionProbability, cfg.Simulation.Seed)

	v := validator.NewValidator(topo.KnownIDs(), cfg.Validator, clk, logger)
	pipeline := core.NewAlertPipeline(logger, cfg.Alerts.MaxStore)
	det := detector.NewDetector(v, pipeline, cfg.Detector, clk, logger)
	agg := stats.NewAggregator(cfg.Stats, clk, logger)
	channel := emulator.NewEmulator(cfg.Simulation, topo.KnownIDs(), clk, logger)

	r := &Runner{
		cfg:        cfg,
		logger:     logger.With().Str("component", "runner").Logger(),
		clk:        clk,
		topology:   topo,
		validator:  v,
		pipeline:   pipeline,
		detector:   det,
		aggregator: agg,
		channel:    channel,
	}

	// The aggregator consumes the same alert stream as the reporting layer.
	pipeline.AddHandler(agg.RecordAlert)

	if cfg.Alerts.EnableConsole {
		pipeline.AddHandler(func(alert *core.Alert) {
			r.logger.Warn().
				Str("alert_id", alert.ID).
				Str("type", alert.Type).
				Str("severity", alert.Severity.String()).
				Msg("ANOMALY ALERT")
		})
	}

	if cfg.Bus.Enabled {
		bus, err := core.NewEventBus(&cfg.Bus, logger)
		if err != nil {
			return nil, fmt.Errorf("starting event bus: %w", err)
		}
		r.bus = bus
		pipeline.AddHandler(func(alert *core.Alert) {
			if err := bus.PublishAlert(alert); err != nil {
				r.logger.Error().Err(err).Str("alert_id", alert.ID).Msg("failed to publish alert to bus")
			}
		})
	}

	return r, nil
}

func newLogger(cfg *core.Config) zerolog.Logger {
	var logger zerolog.Logger
	if cfg.Logging.Format == "json" {
		logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}

	switch cfg.LogLevel() {
	case "debug":
		logger = logger.Level(zerolog.DebugLevel)
	case "warn":
		logger = logger.Level(zerolog.WarnLevel)
	case "error":
		logger = logger.Level(zerolog.ErrorLevel)
	default:
		logger = logger.Level(zerolog.InfoLevel)
	}
	return logger
}

// Run drives the configured number of cycles to completion and writes the
// enabled reports. The context is consulted between cycles; cancellation
// stops the run early with an error.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	start := r.clk.Now()
	runID := uuid.New().String()

	logFile, err := r.openAnomalyLog(start)
	if err != nil {
		return nil, err
	}
	defer logFile.Close()

	r.logger.Info().
		Str("run_id", runID).
		Int("cycles", r.cfg.Simulation.Cycles).
		Int64("seed", r.cfg.Simulation.Seed).
		Msg("starting simulation")

	for cycle := 1; cycle <= r.cfg.Simulation.Cycles; cycle++ {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("run cancelled at cycle %d: %w", cycle, ctx.Err())
		default:
		}

		p := r.channel.Generate()
		res := r.detector.Analyze(p)
		r.aggregator.RecordPacket(p, cycle)

		if p != nil {
			r.aggregator.RecordChecksumError(!res.ChecksumOK)
			r.topology.RecordSeen(p.UAVID, topology.StatusActive, p.Timestamp)
			if p.Anomaly == telemetry.AnomalySpoofedID {
				// No-op for the spoofed identity itself; real neighbors are
				// untouched unless the claimed id happens to be known.
				r.topology.InjectEdgeFailure(p.UAVID, r.cfg.Topology.FailureProbability)
			}
			if p.Anomaly != "" {
				fmt.Fprintf(logFile, "[Cycle %d] Anomaly detected: %s - UAV: %s - Packet ID: %d\n",
					cycle, p.Anomaly, p.UAVID, p.PacketID)
				r.logger.Warn().
					Int("cycle", cycle).
					Str("anomaly", p.Anomaly).
					Str("uav_id", p.UAVID).
					Msg("ground-truth anomaly injected")
			}
			if r.bus != nil {
				if data, err := p.Marshal(); err == nil {
					_ = r.bus.PublishPacket(p.UAVID, data)
				}
			}
		} else if r.bus != nil {
			_ = r.bus.PublishPacket("", []byte(`{"lost":true}`))
		}

		for _, alert := range res.Alerts {
			entry, _ := alert.Marshal()
			fmt.Fprintf(logFile, "[Cycle %d] Alert: %s - Severity: %s - %s\n",
				cycle, alert.Type, alert.Severity.String(), entry)
		}

		r.aggregator.RecordCycleMetrics(cycle, map[string]interface{}{
			"packet_present": p != nil,
			"checksum_ok":    res.ChecksumOK,
			"alerts":         len(res.Alerts),
		})
	}

	end := r.clk.Now()
	result := &RunResult{
		Run: report.RunInfo{
			RunID:           runID,
			Cycles:          r.cfg.Simulation.Cycles,
			StartTime:       start,
			EndTime:         end,
			DurationSeconds: end.Sub(start).Seconds(),
		},
		Summary:  r.detector.Summary(),
		Stats:    r.aggregator.ComprehensiveStats(),
		Topology: r.topology.Statistics(),
		Alerts:   r.detector.Alerts(),
	}

	if err := r.writeReports(result, end); err != nil {
		return nil, err
	}

	r.logger.Info().
		Int("total_packets", result.Summary.TotalPackets).
		Int("total_alerts", result.Summary.TotalAlerts).
		Msg("simulation completed")

	return result, nil
}

func (r *Runner) openAnomalyLog(start time.Time) (*os.File, error) {
	dir := r.cfg.Reports.OutputDir
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	name := filepath.Join(dir, fmt.Sprintf("anomalies_%s.log", start.Format("20060102_150405")))
	f, err := os.Create(name)
	if err != nil {
		return nil, fmt.Errorf("opening anomaly log: %w", err)
	}
	return f, nil
}

func (r *Runner) writeReports(result *RunResult, ts time.Time) error {
	cfg := r.cfg.Reports
	if !cfg.SummaryReport && !cfg.DetailedReport && !cfg.AlertReport && !cfg.MetricsReport {
		return nil
	}

	gen, err := report.NewGenerator(cfg.OutputDir, r.logger)
	if err != nil {
		return err
	}

	if cfg.SummaryReport {
		if _, err := gen.SummaryReport(result.Run, result.Summary, result.Alerts, ts); err != nil {
			return err
		}
	}
	if cfg.DetailedReport {
		if _, err := gen.DetailedReport(result.Run, result.Summary, result.Stats, result.Topology, result.Alerts, ts); err != nil {
			return err
		}
	}
	if cfg.AlertReport {
		if _, err := gen.AlertReport(result.Alerts, ts); err != nil {
			return err
		}
	}
	if cfg.MetricsReport {
		if _, err := gen.MetricsReport(result.Stats, ts); err != nil {
			return err
		}
	}
	return nil
}

// Close releases run resources (the event bus, when enabled).
func (r *Runner) Close() error {
	if r.bus != nil {
		return r.bus.Close()
	}
	return nil
}

// Topology exposes the run's connectivity graph.
func (r *Runner) Topology() *topology.Topology { return r.topology }

// Detector exposes the run's anomaly detector.
func (r *Runner) Detector() *detector.Detector { return r.detector }

// Aggregator exposes the run's statistics aggregator.
func (r *Runner) Aggregator() *stats.Aggregator { return r.aggregator }

// Validator exposes the run's packet validator.
func (r *Runner) Validator() *validator.Validator { return r.validator }
