package topology

import (
	"reflect"
	"testing"

	"github.com/rs/zerolog"
)

func newTestTopology(t *testing.T, units int, prob float64, seed int64) *Topology {
	t.Helper()
	topo := NewTopology(zerolog.Nop())
	topo.Initialize(units, prob, seed)
	return topo
}

func TestUnitID(t *testing.T) {
	cases := []struct {
		ordinal int
		want    string
	}{
		{1, "UAV_001"},
		{10, "UAV_010"},
		{123, "UAV_123"},
	}
	for _, tc := range cases {
		if got := UnitID(tc.ordinal); got != tc.want {
			t.Errorf("UnitID(%d) = %q, want %q", tc.ordinal, got, tc.want)
		}
	}
}

func TestInitialize_Deterministic(t *testing.T) {
	a := newTestTopology(t, 10, 0.3, 42)
	b := newTestTopology(t, 10, 0.3, 42)

	for _, id := range a.KnownIDs() {
		if !reflect.DeepEqual(a.Neighbors(id), b.Neighbors(id)) {
			t.Errorf("neighbors of %s differ across identically seeded graphs", id)
		}
		ia, ib := a.UnitInfo(id), b.UnitInfo(id)
		if ia.ConnectionStrength != ib.ConnectionStrength {
			t.Errorf("connection strength of %s differs across identically seeded graphs", id)
		}
	}
}

func TestInitialize_RegionsAndStrength(t *testing.T) {
	topo := newTestTopology(t, 12, 0.3, 42)

	wantRegions := map[string]string{
		"UAV_001": "north", "UAV_002": "north",
		"UAV_003": "east", "UAV_004": "east",
		"UAV_005": "south", "UAV_006": "south",
		"UAV_007": "west", "UAV_008": "west",
		"UAV_009": "center", "UAV_010": "center",
		"UAV_011": "unknown", "UAV_012": "unknown",
	}
	for id, want := range wantRegions {
		info := topo.UnitInfo(id)
		if info == nil {
			t.Fatalf("UnitInfo(%s) = nil", id)
		}
		if info.Region != want {
			t.Errorf("region of %s = %q, want %q", id, info.Region, want)
		}
		if info.ConnectionStrength < 0.5 || info.ConnectionStrength >= 1.0 {
			t.Errorf("connection strength of %s = %v, want in [0.5, 1.0)", id, info.ConnectionStrength)
		}
		if info.Status != StatusActive {
			t.Errorf("status of %s = %q, want active", id, info.Status)
		}
	}
}

func TestEdgeRelation_Symmetric(t *testing.T) {
	topo := newTestTopology(t, 15, 0.4, 7)

	for _, a := range topo.KnownIDs() {
		for _, b := range topo.Neighbors(a) {
			found := false
			for _, back := range topo.Neighbors(b) {
				if back == a {
					found = true
					break
				}
			}
			if !found {
				t.Errorf("edge %s-%s is not symmetric", a, b)
			}
		}
	}
}

func TestIsKnown(t *testing.T) {
	topo := newTestTopology(t, 10, 0.3, 42)
	if !topo.IsKnown("UAV_001") {
		t.Error("UAV_001 should be known")
	}
	if topo.IsKnown("UAV_999") {
		t.Error("UAV_999 should not be known")
	}
	if topo.IsKnown("") {
		t.Error("empty id should not be known")
	}
}

func TestShortestPath_SelfAndUnknown(t *testing.T) {
	topo := newTestTopology(t, 10, 0.3, 42)

	if got := topo.ShortestPath("UAV_001", "UAV_001"); len(got) != 1 || got[0] != "UAV_001" {
		t.Errorf("ShortestPath(X, X) = %v, want [UAV_001]", got)
	}
	if got := topo.ShortestPath("UAV_001", "UAV_999"); got != nil {
		t.Errorf("path to unknown destination = %v, want nil", got)
	}
	if got := topo.ShortestPath("UAV_999", "UAV_001"); got != nil {
		t.Errorf("path from unknown source = %v, want nil", got)
	}
}

func TestShortestPath_FullyConnected(t *testing.T) {
	topo := newTestTopology(t, 6, 1.0, 1)
	path := topo.ShortestPath("UAV_001", "UAV_006")
	if len(path) != 2 {
		t.Fatalf("path = %v, want direct 2-node path", path)
	}
	if path[0] != "UAV_001" || path[1] != "UAV_006" {
		t.Errorf("path = %v", path)
	}
}

func TestShortestPath_Disconnected(t *testing.T) {
	topo := newTestTopology(t, 10, 0, 42)
	if got := topo.ShortestPath("UAV_001", "UAV_002"); got != nil {
		t.Errorf("path in edgeless graph = %v, want nil", got)
	}
}

func TestZeroProbabilityGraph(t *testing.T) {
	topo := newTestTopology(t, 10, 0, 42)

	stats := topo.Statistics()
	if stats.TotalEdges != 0 {
		t.Errorf("TotalEdges = %d, want 0", stats.TotalEdges)
	}
	if stats.Density != 0 {
		t.Errorf("Density = %v, want 0", stats.Density)
	}
	isolated := topo.IsolatedUnits()
	if len(isolated) != 10 {
		t.Errorf("IsolatedUnits() returned %d units, want 10", len(isolated))
	}
}

func TestInjectEdgeFailure(t *testing.T) {
	topo := newTestTopology(t, 8, 1.0, 3)

	// Probability 1 removes every edge of the unit, symmetrically.
	topo.InjectEdgeFailure("UAV_001", 1.0)
	if got := topo.Neighbors("UAV_001"); len(got) != 0 {
		t.Errorf("neighbors after total failure = %v, want none", got)
	}
	for _, id := range topo.KnownIDs() {
		for _, n := range topo.Neighbors(id) {
			if n == "UAV_001" {
				t.Errorf("%s still lists UAV_001 as neighbor", id)
			}
		}
	}

	// Probability 0 removes nothing.
	before := topo.Neighbors("UAV_002")
	topo.InjectEdgeFailure("UAV_002", 0)
	if after := topo.Neighbors("UAV_002"); !reflect.DeepEqual(before, after) {
		t.Errorf("zero-probability failure changed neighbors: %v -> %v", before, after)
	}
}

func TestInjectEdgeFailure_UnknownIsNoop(t *testing.T) {
	topo := newTestTopology(t, 5, 1.0, 3)
	before := topo.Statistics().TotalEdges
	topo.InjectEdgeFailure("UAV_777", 1.0)
	if after := topo.Statistics().TotalEdges; after != before {
		t.Errorf("edges changed after failure on unknown id: %d -> %d", before, after)
	}
}

func TestRecordSeen(t *testing.T) {
	topo := newTestTopology(t, 5, 0.3, 42)

	topo.RecordSeen("UAV_002", StatusInactive, 1700000123)
	info := topo.UnitInfo("UAV_002")
	if info.Status != StatusInactive {
		t.Errorf("status = %q, want inactive", info.Status)
	}
	if info.LastSeen != 1700000123 {
		t.Errorf("last seen = %v, want 1700000123", info.LastSeen)
	}

	// Unknown id is a no-op.
	topo.RecordSeen("UAV_777", StatusActive, 1)
	if topo.IsKnown("UAV_777") {
		t.Error("RecordSeen must not create units")
	}
}

func TestStatistics(t *testing.T) {
	topo := newTestTopology(t, 4, 1.0, 9)
	topo.RecordSeen("UAV_004", StatusInactive, 0)

	stats := topo.Statistics()
	if stats.TotalUnits != 4 {
		t.Errorf("TotalUnits = %d, want 4", stats.TotalUnits)
	}
	if stats.ActiveUnits != 3 || stats.InactiveUnits != 1 {
		t.Errorf("active/inactive = %d/%d, want 3/1", stats.ActiveUnits, stats.InactiveUnits)
	}
	// Complete graph on 4 nodes: 6 edges, density 1.
	if stats.TotalEdges != 6 {
		t.Errorf("TotalEdges = %d, want 6", stats.TotalEdges)
	}
	if stats.Density != 1 {
		t.Errorf("Density = %v, want 1", stats.Density)
	}
	if stats.AvgDegree != 1.5 {
		t.Errorf("AvgDegree = %v, want 1.5", stats.AvgDegree)
	}
	if stats.RegionCounts["north"] != 2 || stats.RegionCounts["east"] != 2 {
		t.Errorf("RegionCounts = %v", stats.RegionCounts)
	}
}

func TestStatistics_Idempotent(t *testing.T) {
	topo := newTestTopology(t, 10, 0.5, 42)
	first := topo.Statistics()
	second := topo.Statistics()
	if !reflect.DeepEqual(first, second) {
		t.Error("Statistics() should be idempotent without intervening mutations")
	}
}

func TestRegionUnits(t *testing.T) {
	topo := newTestTopology(t, 10, 0.3, 42)
	north := topo.RegionUnits("north")
	if !reflect.DeepEqual(north, []string{"UAV_001", "UAV_002"}) {
		t.Errorf("RegionUnits(north) = %v", north)
	}
	if got := topo.RegionUnits("atlantis"); got != nil {
		t.Errorf("RegionUnits(atlantis) = %v, want empty", got)
	}
}

func TestHighlyConnected(t *testing.T) {
	topo := newTestTopology(t, 6, 1.0, 5)
	// Complete graph: every unit has 5 edges.
	if got := topo.HighlyConnected(5); len(got) != 6 {
		t.Errorf("HighlyConnected(5) = %v, want all 6", got)
	}
	if got := topo.HighlyConnected(6); len(got) != 0 {
		t.Errorf("HighlyConnected(6) = %v, want none", got)
	}
}

func TestReset(t *testing.T) {
	topo := newTestTopology(t, 5, 0.5, 42)
	if !topo.Initialized() {
		t.Fatal("topology should report initialized")
	}
	topo.Reset()
	if topo.Initialized() {
		t.Error("topology should report uninitialized after Reset")
	}
	if topo.IsKnown("UAV_001") {
		t.Error("units should be cleared by Reset")
	}
	if got := topo.Statistics().TotalUnits; got != 0 {
		t.Errorf("TotalUnits after Reset = %d, want 0", got)
	}
}
