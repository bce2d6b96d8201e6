// Package telemetry defines the wire-level data model shared by the packet
// source, the validator and the detector: the Packet envelope, the decoded
// Telemetry record, the base64+JSON payload codec and the checksum rule.
package telemetry

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// ChecksumModulus bounds the checksum value space: a checksum is always in
// [0, ChecksumModulus).
const ChecksumModulus = 10000

// Ground-truth fault modes a simulated source may inject per cycle. The tag
// is simulation-only bookkeeping: it is consulted by the detector's alerting
// logic and never trusted by the validator.
const (
	AnomalyPacketLoss       = "packet_loss"
	AnomalyMalformedPayload = "malformed_payload"
	AnomalySpoofedID        = "spoofed_id"
)

// Packet is a telemetry envelope as it arrives from the channel. Timestamp
// is seconds since epoch as claimed by the sender. A Checksum below zero
// means the field is absent.
type Packet struct {
	PacketID  int     `json:"packet_id"`
	UAVID     string  `json:"uav_id"`
	Timestamp float64 `json:"timestamp"`
	Payload   string  `json:"payload"`
	Checksum  int     `json:"checksum"`
	Anomaly   string  `json:"anomaly,omitempty"`
}

// Marshal serializes the packet to JSON.
func (p *Packet) Marshal() ([]byte, error) {
	return json.Marshal(p)
}

// Telemetry is the structured record decoded from a packet payload.
type Telemetry struct {
	UAVID     string  `json:"uav_id"`
	Timestamp float64 `json:"timestamp"`
	Altitude  float64 `json:"altitude"`
	Speed     float64 `json:"speed"`
	Heading   float64 `json:"heading"`
	Battery   float64 `json:"battery"`
	Status    string  `json:"status"`
}

// Checksum computes the checksum of a raw payload: the sum of its bytes
// modulo ChecksumModulus.
func Checksum(data []byte) int {
	sum := 0
	for _, b := range data {
		sum += int(b)
	}
	return sum % ChecksumModulus
}

// DecodePayload decodes a packet payload from its base64 wire encoding.
func DecodePayload(encoded string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("decoding payload: %w", err)
	}
	return data, nil
}

// EncodeTelemetry serializes a telemetry record to its wire form and returns
// the base64 payload together with the matching checksum.
func EncodeTelemetry(t *Telemetry) (payload string, checksum int, err error) {
	raw, err := json.Marshal(t)
	if err != nil {
		return "", 0, fmt.Errorf("marshaling telemetry: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), Checksum(raw), nil
}

// requiredFields lists the telemetry fields that must be present, in the
// order they are checked. The last four must carry numeric values.
var requiredFields = []string{"uav_id", "timestamp", "altitude", "speed", "heading", "battery", "status"}

var numericFields = []string{"altitude", "speed", "heading", "battery"}

// ParseTelemetry parses raw payload bytes as a Telemetry record. It fails if
// the bytes are not a JSON object, if any required field is absent, or if a
// numeric field carries a non-numeric value.
func ParseTelemetry(raw []byte) (*Telemetry, error) {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("parsing telemetry: %w", err)
	}

	for _, name := range requiredFields {
		if _, ok := fields[name]; !ok {
			return nil, fmt.Errorf("telemetry missing field %q", name)
		}
	}
	for _, name := range numericFields {
		if _, ok := fields[name].(float64); !ok {
			return nil, fmt.Errorf("telemetry field %q is not numeric", name)
		}
	}

	uavID, ok := fields["uav_id"].(string)
	if !ok {
		return nil, fmt.Errorf("telemetry field %q is not a string", "uav_id")
	}
	status, ok := fields["status"].(string)
	if !ok {
		return nil, fmt.Errorf("telemetry field %q is not a string", "status")
	}
	ts, ok := fields["timestamp"].(float64)
	if !ok {
		return nil, fmt.Errorf("telemetry field %q is not numeric", "timestamp")
	}

	return &Telemetry{
		UAVID:     uavID,
		Timestamp: ts,
		Altitude:  fields["altitude"].(float64),
		Speed:     fields["speed"].(float64),
		Heading:   fields["heading"].(float64),
		Battery:   fields["battery"].(float64),
		Status:    status,
	}, nil
}
