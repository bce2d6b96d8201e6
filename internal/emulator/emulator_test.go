package emulator

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"

	"github.com/NawrasBukhari/emulation-beta/internal/core"
	"github.com/NawrasBukhari/emulation-beta/internal/telemetry"
)

var testFleet = []string{"UAV_001", "UAV_002", "UAV_003"}

// newTestEmulator disables pacing so Generate never sleeps on the mock clock.
func newTestEmulator(t *testing.T, seed int64, anomalyRate float64) (*Emulator, *clock.Mock) {
	t.Helper()
	mock := clock.NewMock()
	mock.Set(time.Unix(1700000000, 0))
	e := NewEmulator(core.SimulationConfig{
		Seed:        seed,
		AnomalyRate: anomalyRate,
		MinDelayMs:  0,
		MaxDelayMs:  0,
	}, testFleet, mock, zerolog.Nop())
	return e, mock
}

func TestGenerate_CleanTraffic(t *testing.T) {
	e, mock := newTestEmulator(t, 42, 0)

	known := make(map[string]bool, len(testFleet))
	for _, id := range testFleet {
		known[id] = true
	}

	for i := 1; i <= 50; i++ {
		p := e.Generate()
		if p == nil {
			t.Fatalf("cycle %d: loss at anomaly rate 0", i)
		}
		if p.PacketID != i {
			t.Errorf("cycle %d: packet id = %d", i, p.PacketID)
		}
		if !known[p.UAVID] {
			t.Errorf("cycle %d: id %q outside fleet", i, p.UAVID)
		}
		if p.Anomaly != "" {
			t.Errorf("cycle %d: anomaly tag %q at rate 0", i, p.Anomaly)
		}

		raw, err := telemetry.DecodePayload(p.Payload)
		if err != nil {
			t.Fatalf("cycle %d: payload does not decode: %v", i, err)
		}
		if telemetry.Checksum(raw) != p.Checksum {
			t.Errorf("cycle %d: checksum does not match payload", i)
		}
		tel, err := telemetry.ParseTelemetry(raw)
		if err != nil {
			t.Fatalf("cycle %d: payload does not parse: %v", i, err)
		}
		if tel.UAVID != p.UAVID {
			t.Errorf("cycle %d: payload id %q, envelope id %q", i, tel.UAVID, p.UAVID)
		}
		if p.Timestamp != float64(mock.Now().UnixNano())/1e9 {
			t.Errorf("cycle %d: timestamp = %v, want clock now", i, p.Timestamp)
		}
	}
	if e.PacketCount() != 50 {
		t.Errorf("PacketCount() = %d, want 50", e.PacketCount())
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, _ := newTestEmulator(t, 7, 0.3)
	b, _ := newTestEmulator(t, 7, 0.3)

	for i := 0; i < 100; i++ {
		pa, pb := a.Generate(), b.Generate()
		if (pa == nil) != (pb == nil) {
			t.Fatalf("cycle %d: loss decisions diverge", i)
		}
		if pa == nil {
			continue
		}
		if pa.UAVID != pb.UAVID || pa.Checksum != pb.Checksum || pa.Anomaly != pb.Anomaly {
			t.Fatalf("cycle %d: identically seeded sources diverge: %+v vs %+v", i, pa, pb)
		}
	}
}

func TestGenerate_FullAnomalyRate(t *testing.T) {
	e, _ := newTestEmulator(t, 3, 1.0)

	known := make(map[string]bool, len(testFleet))
	for _, id := range testFleet {
		known[id] = true
	}
	seen := make(map[string]int)

	for i := 1; i <= 200; i++ {
		p := e.Generate()
		if p == nil {
			seen[telemetry.AnomalyPacketLoss]++
			continue
		}
		seen[p.Anomaly]++

		switch p.Anomaly {
		case telemetry.AnomalyMalformedPayload:
			raw, err := telemetry.DecodePayload(p.Payload)
			if err != nil {
				t.Fatalf("cycle %d: malformed payload does not decode: %v", i, err)
			}
			if telemetry.Checksum(raw) == p.Checksum {
				t.Errorf("cycle %d: malformed packet carries a matching checksum", i)
			}
		case telemetry.AnomalySpoofedID:
			if known[p.UAVID] {
				t.Errorf("cycle %d: spoofed id %q is in the fleet", i, p.UAVID)
			}
		default:
			t.Errorf("cycle %d: unexpected tag %q at rate 1.0", i, p.Anomaly)
		}
	}

	// 200 draws across three modes; each should show up.
	for _, mode := range []string{telemetry.AnomalyPacketLoss, telemetry.AnomalyMalformedPayload, telemetry.AnomalySpoofedID} {
		if seen[mode] == 0 {
			t.Errorf("fault mode %q never injected over 200 cycles", mode)
		}
	}
	if e.PacketCount() != 200 {
		t.Errorf("PacketCount() = %d, loss cycles must count", e.PacketCount())
	}
}

func TestGenerate_PacingAdvancesClock(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Unix(1700000000, 0))
	e := NewEmulator(core.SimulationConfig{
		Seed:        42,
		AnomalyRate: 0,
		MinDelayMs:  10,
		MaxDelayMs:  10,
	}, testFleet, mock, zerolog.Nop())

	start := mock.Now()
	done := make(chan *telemetry.Packet, 1)
	go func() { done <- e.Generate() }()

	// The fixed 10ms delay blocks on the mock clock until it is advanced.
	for {
		select {
		case p := <-done:
			if p == nil {
				t.Fatal("unexpected loss cycle")
			}
			if got := mock.Now().Sub(start); got < 10*time.Millisecond {
				t.Errorf("clock advanced %v, want at least 10ms", got)
			}
			return
		default:
			mock.Add(time.Millisecond)
		}
	}
}
