// Package report turns the core's end-of-run snapshots into JSON report
// files. It owns all formatting and persistence; the analysis pipeline only
// hands it plain nested structures.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/NawrasBukhari/emulation-beta/internal/core"
	"github.com/NawrasBukhari/emulation-beta/internal/detector"
	"github.com/NawrasBukhari/emulation-beta/internal/stats"
	"github.com/NawrasBukhari/emulation-beta/internal/topology"
)

const (
	dateLayout  = "20060102"
	stampLayout = "20060102_150405"
)

// RunInfo describes a completed simulation run.
type RunInfo struct {
	RunID           string    `json:"run_id"`
	Cycles          int       `json:"cycles"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds float64   `json:"duration_seconds"`
}

// Metadata heads every generated report.
type Metadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	ReportType  string    `json:"report_type"`
	TotalAlerts int       `json:"total_alerts,omitempty"`
}

// Generator writes JSON reports into a single output directory.
type Generator struct {
	outputDir string
	logger    zerolog.Logger
}

// NewGenerator creates a generator, creating the output directory if needed.
func NewGenerator(outputDir string, logger zerolog.Logger) (*Generator, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("creating report dir: %w", err)
	}
	return &Generator{
		outputDir: outputDir,
		logger:    logger.With().Str("component", "report").Logger(),
	}, nil
}

// WriteJSON writes v as indented JSON under the output directory and returns
// the full path.
func (g *Generator) WriteJSON(filename string, v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshaling report: %w", err)
	}
	path := filepath.Join(g.outputDir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing report: %w", err)
	}
	g.logger.Info().Str("path", path).Msg("report written")
	return path, nil
}

// SummaryReport writes the end-of-run summary report.
func (g *Generator) SummaryReport(run RunInfo, summary detector.Summary, alerts []*core.Alert, ts time.Time) (string, error) {
	report := map[string]interface{}{
		"report_metadata": Metadata{GeneratedAt: ts, ReportType: "simulation_summary"},
		"simulation_summary": run,
		"packet_statistics": map[string]interface{}{
			"total_packets":          summary.TotalPackets,
			"checksum_mismatches":    summary.ChecksumMismatches,
			"checksum_mismatch_rate": summary.ChecksumMismatchRate,
			"unique_uav_ids":         summary.UniqueUAVIDs,
		},
		"latency_metrics": map[string]interface{}{
			"average_latency":  summary.AverageLatency,
			"latency_variance": summary.LatencyVariance,
		},
		"alert_summary": map[string]interface{}{
			"total_alerts":       summary.TotalAlerts,
			"alerts_by_type":     summary.AlertsByType,
			"alerts_by_severity": summary.AlertsBySeverity,
		},
		"all_alerts": alerts,
	}
	return g.WriteJSON(fmt.Sprintf("analysis_run_%s.json", ts.Format(dateLayout)), report)
}

// DetailedReport writes the full analysis report: run summary, aggregator
// stats, validation stats and topology stats.
func (g *Generator) DetailedReport(run RunInfo, summary detector.Summary, agg stats.ComprehensiveStats, topo topology.Statistics, alerts []*core.Alert, ts time.Time) (string, error) {
	report := map[string]interface{}{
		"report_metadata": Metadata{GeneratedAt: ts, ReportType: "detailed_analysis"},
		"simulation_summary": run,
		"packet_statistics": map[string]interface{}{
			"total_packets":          summary.TotalPackets,
			"checksum_mismatches":    summary.ChecksumMismatches,
			"checksum_mismatch_rate": summary.ChecksumMismatchRate,
			"unique_uav_ids":         summary.UniqueUAVIDs,
		},
		"latency_metrics": map[string]interface{}{
			"average_latency":  summary.AverageLatency,
			"latency_variance": summary.LatencyVariance,
		},
		"advanced_statistics":   agg,
		"validation_statistics": summary.ValidationStats,
		"topology_statistics":   topo,
		"alert_summary": map[string]interface{}{
			"total_alerts":       summary.TotalAlerts,
			"alerts_by_type":     summary.AlertsByType,
			"alerts_by_severity": summary.AlertsBySeverity,
		},
		"all_alerts": alerts,
	}
	return g.WriteJSON(fmt.Sprintf("detailed_analysis_%s.json", ts.Format(stampLayout)), report)
}

// AlertReport writes the alert-analysis report grouping alerts by severity
// and type.
func (g *Generator) AlertReport(alerts []*core.Alert, ts time.Time) (string, error) {
	chronological := make([]*core.Alert, len(alerts))
	copy(chronological, alerts)
	sort.SliceStable(chronological, func(i, j int) bool {
		return chronological[i].Timestamp.Before(chronological[j].Timestamp)
	})

	bySeverity := make(map[string][]*core.Alert)
	byType := make(map[string][]*core.Alert)
	for _, a := range alerts {
		bySeverity[a.Severity.String()] = append(bySeverity[a.Severity.String()], a)
		byType[a.Type] = append(byType[a.Type], a)
	}

	report := map[string]interface{}{
		"report_metadata": Metadata{
			GeneratedAt: ts,
			ReportType:  "alert_analysis",
			TotalAlerts: len(alerts),
		},
		"alerts_by_severity":     bySeverity,
		"alerts_by_type":         byType,
		"chronological_alerts":   chronological,
		"critical_alerts":        bySeverity[core.SeverityCritical.String()],
		"high_severity_alerts":   bySeverity[core.SeverityHigh.String()],
		"medium_severity_alerts": bySeverity[core.SeverityMedium.String()],
		"low_severity_alerts":    bySeverity[core.SeverityLow.String()],
	}
	return g.WriteJSON(fmt.Sprintf("alerts_%s.json", ts.Format(stampLayout)), report)
}

// MetricsReport writes the performance-metrics report from aggregator stats.
func (g *Generator) MetricsReport(agg stats.ComprehensiveStats, ts time.Time) (string, error) {
	report := map[string]interface{}{
		"report_metadata": Metadata{GeneratedAt: ts, ReportType: "performance_metrics"},
		"packet_metrics": map[string]interface{}{
			"packet_rate":             agg.PacketRate,
			"total_packets_in_window": agg.TotalPacketsInWindow,
			"time_span_seconds":       agg.TimeSpanSeconds,
		},
		"latency_metrics": agg.LatencyStatistics,
		"checksum_metrics": map[string]interface{}{
			"error_rate": agg.ChecksumErrorRate,
		},
		"uav_distribution":     agg.UAVDistribution,
		"anomaly_distribution": agg.AnomalyDistribution,
		"network_statistics": map[string]interface{}{
			"unique_uavs":          agg.UniqueUAVs,
			"unique_anomaly_types": agg.UniqueAnomalyTypes,
		},
	}
	return g.WriteJSON(fmt.Sprintf("metrics_%s.json", ts.Format(stampLayout)), report)
}
