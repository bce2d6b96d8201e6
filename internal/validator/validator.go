// Package validator implements the multi-stage packet validator: structural,
// checksum, identity, payload-format and freshness checks, plus a composite
// verdict with running counters.
package validator

import (
	"sync"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/NawrasBukhari/emulation-beta/internal/core"
	"github.com/NawrasBukhari/emulation-beta/internal/telemetry"
)

// Validation error and warning codes.
const (
	ErrPacketNil            = "packet_is_none"
	ErrChecksumMismatch     = "checksum_mismatch"
	ErrInvalidUAVID         = "invalid_uav_id"
	ErrInvalidPayloadFormat = "invalid_payload_format"
	WarnTimestampOutOfRange = "timestamp_out_of_range"
)

// requiredFields lists the packet envelope fields checked by CheckStructure,
// in check order.
var requiredFields = []string{"packet_id", "uav_id", "timestamp", "payload", "checksum"}

// ChecksumDetail reports the outcome of the checksum check.
type ChecksumDetail struct {
	Valid    bool `json:"valid"`
	Expected int  `json:"expected"`
	Actual   int  `json:"actual"`
}

// IdentityDetail reports the outcome of the identity check.
type IdentityDetail struct {
	Valid bool   `json:"valid"`
	ID    string `json:"id"`
}

// PayloadDetail reports the outcome of the payload-format check.
type PayloadDetail struct {
	Valid              bool `json:"valid"`
	TelemetryAvailable bool `json:"telemetry_available"`
}

// TimestampDetail reports the outcome of the freshness check.
type TimestampDetail struct {
	Valid      bool    `json:"valid"`
	AgeSeconds float64 `json:"age_seconds"`
}

// Details holds per-check outcomes for a composite validation.
type Details struct {
	Checksum  *ChecksumDetail  `json:"checksum,omitempty"`
	UAVID     *IdentityDetail  `json:"uav_id,omitempty"`
	Payload   *PayloadDetail   `json:"payload,omitempty"`
	Timestamp *TimestampDetail `json:"timestamp,omitempty"`
}

// Result is a structured per-packet verdict. IsValid is true iff Errors is
// empty; freshness failures are warnings and never invalidate.
type Result struct {
	IsValid  bool     `json:"is_valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
	Details  Details  `json:"validation_details"`
}

// ErrorRecord is one entry in the bounded recent-error log.
type ErrorRecord struct {
	PacketID  int      `json:"packet_id"`
	Errors    []string `json:"errors"`
	Timestamp float64  `json:"timestamp"`
}

// Stats is a snapshot of the validator's cumulative counters.
type Stats struct {
	TotalValidated int           `json:"total_validated"`
	TotalInvalid   int           `json:"total_invalid"`
	ValidationRate float64       `json:"validation_rate"`
	ErrorCount     int           `json:"error_count"`
	RecentErrors   []ErrorRecord `json:"recent_errors"`
}

// Validator validates packets against structural and semantic rules. The
// known-identity set is injected at construction time, sourced from the
// topology graph.
type Validator struct {
	mu       sync.Mutex
	logger   zerolog.Logger
	clk      clock.Clock
	knownIDs map[string]struct{}
	maxAge   float64

	validated  int
	invalid    int
	errorCount int
	errorLog   *core.Window[ErrorRecord]
}

// NewValidator creates a validator trusting the given identity set.
func NewValidator(knownIDs []string, cfg core.ValidatorConfig, clk clock.Clock, logger zerolog.Logger) *Validator {
	known := make(map[string]struct{}, len(knownIDs))
	for _, id := range knownIDs {
		known[id] = struct{}{}
	}
	maxAge := cfg.MaxAgeSeconds
	if maxAge <= 0 {
		maxAge = 60
	}
	logSize := cfg.ErrorLogSize
	if logSize <= 0 {
		logSize = 100
	}
	return &Validator{
		logger:   logger.With().Str("component", "validator").Logger(),
		clk:      clk,
		knownIDs: known,
		maxAge:   maxAge,
		errorLog: core.NewWindow[ErrorRecord](logSize),
	}
}

// CheckStructure verifies the packet envelope. It fails with
// "packet_is_none" for a nil packet and "missing_field_<name>" for the first
// absent required field. Zero-value sentinels mark absent fields: packet id
// 0, empty uav id, zero timestamp, empty payload, negative checksum.
func (v *Validator) CheckStructure(p *telemetry.Packet) (bool, string) {
	if p == nil {
		return false, ErrPacketNil
	}
	for _, field := range requiredFields {
		missing := false
		switch field {
		case "packet_id":
			missing = p.PacketID <= 0
		case "uav_id":
			missing = p.UAVID == ""
		case "timestamp":
			missing = p.Timestamp == 0
		case "payload":
			missing = p.Payload == ""
		case "checksum":
			missing = p.Checksum < 0
		}
		if missing {
			return false, "missing_field_" + field
		}
	}
	return true, ""
}

// CheckChecksum recomputes the payload checksum and compares it to the
// declared value. A payload that fails to decode is reported as invalid with
// expected 0.
func (v *Validator) CheckChecksum(p *telemetry.Packet) (valid bool, expected, actual int) {
	raw, err := telemetry.DecodePayload(p.Payload)
	if err != nil {
		return false, 0, p.Checksum
	}
	expected = telemetry.Checksum(raw)
	return expected == p.Checksum, expected, p.Checksum
}

// CheckIdentity reports whether the packet's claimed identity is a member of
// the known set.
func (v *Validator) CheckIdentity(p *telemetry.Packet) bool {
	_, ok := v.knownIDs[p.UAVID]
	return ok
}

// CheckPayloadFormat decodes and parses the payload as a telemetry record.
func (v *Validator) CheckPayloadFormat(p *telemetry.Packet) (bool, *telemetry.Telemetry) {
	raw, err := telemetry.DecodePayload(p.Payload)
	if err != nil {
		return false, nil
	}
	t, err := telemetry.ParseTelemetry(raw)
	if err != nil {
		return false, nil
	}
	return true, t
}

// CheckFreshness reports whether the packet's claimed timestamp is within
// the freshness window: 0 <= now - timestamp <= maxAge. A future timestamp
// is stale. Freshness is a warning-class check.
func (v *Validator) CheckFreshness(p *telemetry.Packet) bool {
	age := v.age(p)
	return age >= 0 && age <= v.maxAge
}

func (v *Validator) age(p *telemetry.Packet) float64 {
	now := float64(v.clk.Now().UnixNano()) / 1e9
	return now - p.Timestamp
}

// FullValidation runs all checks and produces a composite verdict. A
// structural failure short-circuits with that single error; otherwise every
// remaining check runs and its failure accumulates into Errors (checksum,
// identity, payload format) or Warnings (freshness).
func (v *Validator) FullValidation(p *telemetry.Packet) *Result {
	result := &Result{
		Errors:   []string{},
		Warnings: []string{},
	}

	structOK, structErr := v.CheckStructure(p)
	if !structOK {
		result.Errors = append(result.Errors, structErr)
		v.mu.Lock()
		v.invalid++
		v.mu.Unlock()
		return result
	}

	checksumOK, expected, actual := v.CheckChecksum(p)
	result.Details.Checksum = &ChecksumDetail{Valid: checksumOK, Expected: expected, Actual: actual}
	if !checksumOK {
		result.Errors = append(result.Errors, ErrChecksumMismatch)
	}

	identityOK := v.CheckIdentity(p)
	result.Details.UAVID = &IdentityDetail{Valid: identityOK, ID: p.UAVID}
	if !identityOK {
		result.Errors = append(result.Errors, ErrInvalidUAVID)
	}

	payloadOK, parsed := v.CheckPayloadFormat(p)
	result.Details.Payload = &PayloadDetail{Valid: payloadOK, TelemetryAvailable: parsed != nil}
	if !payloadOK {
		result.Errors = append(result.Errors, ErrInvalidPayloadFormat)
	}

	freshOK := v.CheckFreshness(p)
	result.Details.Timestamp = &TimestampDetail{Valid: freshOK, AgeSeconds: v.age(p)}
	if !freshOK {
		result.Warnings = append(result.Warnings, WarnTimestampOutOfRange)
	}

	result.IsValid = len(result.Errors) == 0

	v.mu.Lock()
	if result.IsValid {
		v.validated++
	} else {
		v.invalid++
		v.errorCount++
		v.errorLog.Push(ErrorRecord{
			PacketID:  p.PacketID,
			Errors:    append([]string(nil), result.Errors...),
			Timestamp: float64(v.clk.Now().UnixNano()) / 1e9,
		})
	}
	v.mu.Unlock()

	if !result.IsValid {
		v.logger.Debug().
			Int("packet_id", p.PacketID).
			Strs("errors", result.Errors).
			Msg("packet failed validation")
	}

	return result
}

// Stats returns a snapshot of cumulative counters and the ten most recent
// error records.
func (v *Validator) Stats() Stats {
	v.mu.Lock()
	defer v.mu.Unlock()

	total := v.validated + v.invalid
	stats := Stats{
		TotalValidated: v.validated,
		TotalInvalid:   v.invalid,
		ErrorCount:     v.errorCount,
	}
	if total > 0 {
		stats.ValidationRate = float64(v.validated) / float64(total)
	}

	records := v.errorLog.Values()
	if len(records) > 10 {
		records = records[len(records)-10:]
	}
	stats.RecentErrors = records
	return stats
}

// ResetStats clears all counters and the recent-error log.
func (v *Validator) ResetStats() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.validated = 0
	v.invalid = 0
	v.errorCount = 0
	v.errorLog.Clear()
}
