package core

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the entire uavwatch configuration.
type Config struct {
	Simulation SimulationConfig `yaml:"simulation"`
	Topology   TopologyConfig   `yaml:"topology"`
	Detector   DetectorConfig   `yaml:"detector"`
	Validator  ValidatorConfig  `yaml:"validator"`
	Stats      StatsConfig      `yaml:"stats"`
	Alerts     AlertConfig      `yaml:"alerts"`
	Bus        BusConfig        `yaml:"bus"`
	Reports    ReportConfig     `yaml:"reports"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// SimulationConfig holds channel emulation settings.
type SimulationConfig struct {
	Cycles      int     `yaml:"cycles"`
	Seed        int64   `yaml:"seed"`
	AnomalyRate float64 `yaml:"anomaly_rate"`
	MinDelayMs  int     `yaml:"min_delay_ms"`
	MaxDelayMs  int     `yaml:"max_delay_ms"`
}

// TopologyConfig holds fleet topology settings.
type TopologyConfig struct {
	Units                 int     `yaml:"units"`
	ConnectionProbability float64 `yaml:"connection_probability"`
	FailureProbability    float64 `yaml:"failure_probability"`
}

// DetectorConfig holds anomaly detector thresholds and window sizes.
type DetectorConfig struct {
	LatencyVarianceThreshold float64 `yaml:"latency_variance_threshold"`
	ChecksumRateThreshold    float64 `yaml:"checksum_rate_threshold"`
	RepeatIDThreshold        float64 `yaml:"repeat_id_threshold"`
	HistorySize              int     `yaml:"history_size"`
	LatencyWindowSize        int     `yaml:"latency_window_size"`
}

// ValidatorConfig holds packet validation settings.
type ValidatorConfig struct {
	MaxAgeSeconds float64 `yaml:"max_age_seconds"`
	ErrorLogSize  int     `yaml:"error_log_size"`
}

// StatsConfig holds statistics aggregation settings.
type StatsConfig struct {
	WindowSize int `yaml:"window_size"`
}

// AlertConfig holds alert pipeline settings.
type AlertConfig struct {
	MaxStore      int  `yaml:"max_store"`
	EnableConsole bool `yaml:"enable_console"`
}

// BusConfig holds NATS event bus settings. The bus is optional: the
// simulation runs fully standalone when disabled.
type BusConfig struct {
	Enabled  bool   `yaml:"enabled"`
	URL      string `yaml:"url"`
	Embedded bool   `yaml:"embedded"`
	DataDir  string `yaml:"data_dir"`
	Port     int    `yaml:"port"`
}

// ReportConfig holds report output settings.
type ReportConfig struct {
	OutputDir      string `yaml:"output_dir"`
	SummaryReport  bool   `yaml:"summary_report"`
	DetailedReport bool   `yaml:"detailed_report"`
	AlertReport    bool   `yaml:"alert_report"`
	MetricsReport  bool   `yaml:"metrics_report"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sane defaults so that zero-config runs
// work out of the box.
func DefaultConfig() *Config {
	return &Config{
		Simulation: SimulationConfig{
			Cycles:      100,
			Seed:        42,
			AnomalyRate: 0.1,
			MinDelayMs:  10,
			MaxDelayMs:  50,
		},
		Topology: TopologyConfig{
			Units:                 10,
			ConnectionProbability: 0.3,
			FailureProbability:    0.1,
		},
		Detector: DetectorConfig{
			LatencyVarianceThreshold: 0.1,
			ChecksumRateThreshold:    0.05,
			RepeatIDThreshold:        0.3,
			HistorySize:              100,
			LatencyWindowSize:        50,
		},
		Validator: ValidatorConfig{
			MaxAgeSeconds: 60,
			ErrorLogSize:  100,
		},
		Stats: StatsConfig{
			WindowSize: 100,
		},
		Alerts: AlertConfig{
			MaxStore:      10000,
			EnableConsole: true,
		},
		Bus: BusConfig{
			Enabled:  false,
			URL:      "nats://127.0.0.1:4222",
			Embedded: true,
			DataDir:  "./data/nats",
			Port:     4222,
		},
		Reports: ReportConfig{
			OutputDir:      "./logs",
			SummaryReport:  true,
			DetailedReport: true,
			AlertReport:    true,
			MetricsReport:  true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from a YAML file, falling back to defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return cfg, nil
}

// SaveConfig writes the configuration to a YAML file.
func SaveConfig(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// LogLevel returns the parsed log level string.
func (c *Config) LogLevel() string {
	return strings.ToLower(c.Logging.Level)
}
