package core

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Severity represents the severity level of an anomaly alert.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Severity) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	sev, _ := ParseSeverity(str)
	*s = sev
	return nil
}

// ParseSeverity parses a severity string. The second return value is false
// for unrecognized input, in which case SeverityLow is returned.
func ParseSeverity(s string) (Severity, bool) {
	switch strings.ToLower(s) {
	case "low":
		return SeverityLow, true
	case "medium":
		return SeverityMedium, true
	case "high":
		return SeverityHigh, true
	case "critical":
		return SeverityCritical, true
	default:
		return SeverityLow, false
	}
}

// Alert type taxonomy. Validation-error alerts additionally carry the
// failed check name as a suffix (see ValidationErrorType).
const (
	AlertPacketLoss       = "packet_loss"
	AlertSpoofedID        = "spoofed_id"
	AlertMalformedPayload = "malformed_payload"
	AlertLatencyVariance  = "high_latency_variance"
	AlertChecksumRate     = "high_checksum_mismatch_rate"
	AlertRepeatedID       = "repeated_id_frequency"
)

// ValidationErrorType returns the alert type for a validation error code,
// e.g. "invalid_uav_id" -> "validation_error_invalid_uav_id".
func ValidationErrorType(errCode string) string {
	return "validation_error_" + errCode
}

// Alert is an emitted anomaly signal. Alerts are append-only: once emitted
// they are never retracted, deduplicated or rate-limited.
type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Severity  Severity  `json:"severity"`

	// Type-specific context. Zero values are omitted from JSON.
	UAVID     string  `json:"uav_id,omitempty"`
	PacketID  int     `json:"packet_id,omitempty"`
	Variance  float64 `json:"variance,omitempty"`
	Rate      float64 `json:"rate,omitempty"`
	Frequency float64 `json:"frequency,omitempty"`
}

// NewAlert creates an Alert with a generated ID.
func NewAlert(alertType string, severity Severity, ts time.Time) *Alert {
	return &Alert{
		ID:        uuid.New().String(),
		Type:      alertType,
		Timestamp: ts,
		Severity:  severity,
	}
}

// Marshal serializes the alert to JSON.
func (a *Alert) Marshal() ([]byte, error) {
	return json.Marshal(a)
}

// UnmarshalAlert deserializes an Alert from JSON.
func UnmarshalAlert(data []byte) (*Alert, error) {
	var alert Alert
	if err := json.Unmarshal(data, &alert); err != nil {
		return nil, err
	}
	return &alert, nil
}
