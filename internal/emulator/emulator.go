// Package emulator implements the simulated telemetry channel: once per
// cycle it yields either a well-formed packet from a known unit or one of
// three injected fault modes (packet loss, malformed payload, spoofed
// identity), with jittered pacing between cycles.
package emulator

import (
	"math/rand"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/NawrasBukhari/emulation-beta/internal/core"
	"github.com/NawrasBukhari/emulation-beta/internal/telemetry"
	"github.com/NawrasBukhari/emulation-beta/internal/topology"
)

var faultModes = []string{
	telemetry.AnomalyPacketLoss,
	telemetry.AnomalyMalformedPayload,
	telemetry.AnomalySpoofedID,
}

// Emulator is a seeded, deterministic packet source. Each Generate call
// consumes exactly one packet id, including loss cycles.
type Emulator struct {
	logger zerolog.Logger
	clk    clock.Clock
	rng    *rand.Rand

	uavIDs      []string
	anomalyRate float64
	minDelay    time.Duration
	maxDelay    time.Duration
	counter     int
}

// NewEmulator creates an emulator sending on behalf of the given fleet
// identities.
func NewEmulator(cfg core.SimulationConfig, uavIDs []string, clk clock.Clock, logger zerolog.Logger) *Emulator {
	return &Emulator{
		logger:      logger.With().Str("component", "emulator").Logger(),
		clk:         clk,
		rng:         rand.New(rand.NewSource(cfg.Seed)),
		uavIDs:      append([]string(nil), uavIDs...),
		anomalyRate: cfg.AnomalyRate,
		minDelay:    time.Duration(cfg.MinDelayMs) * time.Millisecond,
		maxDelay:    time.Duration(cfg.MaxDelayMs) * time.Millisecond,
	}
}

// Generate waits the jittered inter-cycle delay and yields the next packet.
// A nil return is a loss cycle. The ground-truth Anomaly tag reports which
// fault mode, if any, was injected.
func (e *Emulator) Generate() *telemetry.Packet {
	e.pace()
	e.counter++

	if e.rng.Float64() < e.anomalyRate {
		mode := faultModes[e.rng.Intn(len(faultModes))]
		return e.anomalousPacket(mode)
	}
	return e.normalPacket()
}

func (e *Emulator) pace() {
	if e.maxDelay <= 0 {
		return
	}
	delay := e.minDelay
	if e.maxDelay > e.minDelay {
		delay += time.Duration(e.rng.Int63n(int64(e.maxDelay - e.minDelay)))
	}
	e.clk.Sleep(delay)
}

// PacketCount returns how many cycles have been generated, loss cycles
// included.
func (e *Emulator) PacketCount() int { return e.counter }

func (e *Emulator) normalPacket() *telemetry.Packet {
	uavID := e.uavIDs[e.rng.Intn(len(e.uavIDs))]
	return e.buildPacket(uavID, "")
}

func (e *Emulator) anomalousPacket(mode string) *telemetry.Packet {
	switch mode {
	case telemetry.AnomalyPacketLoss:
		e.logger.Debug().Int("packet_id", e.counter).Msg("loss cycle injected")
		return nil

	case telemetry.AnomalyMalformedPayload:
		uavID := e.uavIDs[e.rng.Intn(len(e.uavIDs))]
		p := e.buildPacket(uavID, telemetry.AnomalyMalformedPayload)
		// Replace the true checksum with an arbitrary mismatched value.
		bad := 1000 + e.rng.Intn(9000)
		for bad == p.Checksum {
			bad = 1000 + e.rng.Intn(9000)
		}
		p.Checksum = bad
		return p

	case telemetry.AnomalySpoofedID:
		// Ordinals 100-999 are outside any realistic fleet size, so the
		// claimed identity is never in the known set.
		fakeID := topology.UnitID(100 + e.rng.Intn(900))
		return e.buildPacket(fakeID, telemetry.AnomalySpoofedID)
	}
	return nil
}

func (e *Emulator) buildPacket(uavID, anomaly string) *telemetry.Packet {
	ts := float64(e.clk.Now().UnixNano()) / 1e9
	t := &telemetry.Telemetry{
		UAVID:     uavID,
		Timestamp: ts,
		Altitude:  100 + e.rng.Float64()*4900,
		Speed:     10 + e.rng.Float64()*90,
		Heading:   e.rng.Float64() * 360,
		Battery:   20 + e.rng.Float64()*80,
		Status:    "operational",
	}
	payload, checksum, err := telemetry.EncodeTelemetry(t)
	if err != nil {
		// Telemetry records always marshal; treat failure as a bug.
		e.logger.Error().Err(err).Msg("encoding telemetry")
		return nil
	}
	return &telemetry.Packet{
		PacketID:  e.counter,
		UAVID:     uavID,
		Timestamp: ts,
		Payload:   payload,
		Checksum:  checksum,
		Anomaly:   anomaly,
	}
}
