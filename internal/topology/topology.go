// Package topology models the fleet connectivity graph: the fixed set of
// known unit identities, their region assignment, and an undirected edge
// relation supporting connectivity queries and random edge-failure injection.
package topology

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/rs/zerolog"
)

// Unit liveness statuses.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// regionTable maps unit ordinals (1-based) to their assigned region.
// Identities beyond the table map to "unknown".
var regionTable = []string{
	"north", "north",
	"east", "east",
	"south", "south",
	"west", "west",
	"center", "center",
}

// UnitInfo describes a single known unit.
type UnitInfo struct {
	ID                 string  `json:"id"`
	Status             string  `json:"status"`
	Region             string  `json:"region"`
	ConnectionStrength float64 `json:"connection_strength"`
	LastSeen           float64 `json:"last_seen,omitempty"`
}

// Statistics is a snapshot of graph-level metrics.
type Statistics struct {
	TotalUnits    int            `json:"total_units"`
	ActiveUnits   int            `json:"active_units"`
	InactiveUnits int            `json:"inactive_units"`
	TotalEdges    int            `json:"total_edges"`
	AvgDegree     float64        `json:"avg_degree"`
	RegionCounts  map[string]int `json:"region_counts"`
	Density       float64        `json:"density"`
}

// Topology is the fleet connectivity graph. Nodes are created once at
// initialization and never added or removed afterward; edges may only be
// removed, by fault injection. The edge relation is always symmetric.
type Topology struct {
	mu     sync.RWMutex
	logger zerolog.Logger
	rng    *rand.Rand

	units map[string]*UnitInfo
	order []string
	// conns holds per-node neighbor lists in insertion order. BFS visits
	// neighbors in this order, so equal-length path ties resolve to the
	// first-found path; the tie-break is implementation-defined.
	conns       map[string][]string
	initialized bool
}

// UnitID returns the deterministic identity for a unit ordinal, e.g.
// UnitID(1) == "UAV_001".
func UnitID(ordinal int) string {
	return fmt.Sprintf("UAV_%03d", ordinal)
}

// NewTopology creates an empty, uninitialized topology.
func NewTopology(logger zerolog.Logger) *Topology {
	return &Topology{
		logger: logger.With().Str("component", "topology").Logger(),
		units:  make(map[string]*UnitInfo),
		conns:  make(map[string][]string),
	}
}

// Initialize builds the graph: n deterministically named units, each assigned
// a region and a connection strength drawn uniformly from [0.5, 1.0), and for
// every unordered pair of distinct units one independent edge trial with the
// given probability. Deterministic for a given seed and parameters.
func (t *Topology) Initialize(n int, connectionProbability float64, seed int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rng = rand.New(rand.NewSource(seed))
	t.units = make(map[string]*UnitInfo, n)
	t.conns = make(map[string][]string, n)
	t.order = make([]string, 0, n)

	for i := 1; i <= n; i++ {
		id := UnitID(i)
		t.units[id] = &UnitInfo{
			ID:                 id,
			Status:             StatusActive,
			Region:             regionFor(i),
			ConnectionStrength: 0.5 + t.rng.Float64()*0.5,
		}
		t.conns[id] = []string{}
		t.order = append(t.order, id)
	}

	edges := 0
	for i := 0; i < len(t.order); i++ {
		for j := i + 1; j < len(t.order); j++ {
			if t.rng.Float64() < connectionProbability {
				a, b := t.order[i], t.order[j]
				t.conns[a] = append(t.conns[a], b)
				t.conns[b] = append(t.conns[b], a)
				edges++
			}
		}
	}

	t.initialized = true
	t.logger.Info().
		Int("units", n).
		Int("edges", edges).
		Float64("connection_probability", connectionProbability).
		Msg("topology initialized")
}

func regionFor(ordinal int) string {
	if ordinal >= 1 && ordinal <= len(regionTable) {
		return regionTable[ordinal-1]
	}
	return "unknown"
}

// IsKnown reports whether id is a member of the known identity set.
func (t *Topology) IsKnown(id string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.units[id]
	return ok
}

// KnownIDs returns all known unit identities in creation order.
func (t *Topology) KnownIDs() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// UnitInfo returns a copy of the unit's record, or nil for unknown ids.
func (t *Topology) UnitInfo(id string) *UnitInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	info, ok := t.units[id]
	if !ok {
		return nil
	}
	cp := *info
	return &cp
}

// Neighbors returns the unit's current neighbors. The slice is empty for
// unknown or isolated units.
func (t *Topology) Neighbors(id string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	conns := t.conns[id]
	out := make([]string, len(conns))
	copy(out, conns)
	return out
}

// ShortestPath returns the fewest-edge path from source to destination as an
// ordered node list, a single-element path if they are equal, or nil if
// either endpoint is unknown or no path exists.
func (t *Topology) ShortestPath(source, destination string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.units[source]; !ok {
		return nil
	}
	if _, ok := t.units[destination]; !ok {
		return nil
	}
	if source == destination {
		return []string{source}
	}

	parent := map[string]string{source: source}
	queue := []string{source}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, neighbor := range t.conns[current] {
			if _, seen := parent[neighbor]; seen {
				continue
			}
			parent[neighbor] = current
			if neighbor == destination {
				return reconstructPath(parent, source, destination)
			}
			queue = append(queue, neighbor)
		}
	}
	return nil
}

func reconstructPath(parent map[string]string, source, destination string) []string {
	path := []string{destination}
	for node := destination; node != source; node = parent[node] {
		path = append(path, parent[node])
	}
	// Reverse in place: parents were collected destination-first.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// InjectEdgeFailure removes each of the unit's current edges independently
// with the given probability. A no-op for unknown identities.
func (t *Topology) InjectEdgeFailure(id string, probability float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	conns, ok := t.conns[id]
	if !ok {
		return
	}

	var toRemove []string
	for _, neighbor := range conns {
		if t.rng.Float64() < probability {
			toRemove = append(toRemove, neighbor)
		}
	}
	for _, neighbor := range toRemove {
		t.conns[id] = removeNeighbor(t.conns[id], neighbor)
		t.conns[neighbor] = removeNeighbor(t.conns[neighbor], id)
	}

	if len(toRemove) > 0 {
		t.logger.Debug().
			Str("unit", id).
			Int("edges_removed", len(toRemove)).
			Msg("edge failure injected")
	}
}

func removeNeighbor(conns []string, id string) []string {
	for i, c := range conns {
		if c == id {
			return append(conns[:i], conns[i+1:]...)
		}
	}
	return conns
}

// RecordSeen updates the liveness status and last-seen timestamp of a known
// unit. A no-op for unknown identities.
func (t *Topology) RecordSeen(id, status string, lastSeen float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	info, ok := t.units[id]
	if !ok {
		return
	}
	info.Status = status
	if lastSeen != 0 {
		info.LastSeen = lastSeen
	}
}

// RegionUnits returns the ids of all units assigned to the given region.
func (t *Topology) RegionUnits(region string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for _, id := range t.order {
		if t.units[id].Region == region {
			out = append(out, id)
		}
	}
	return out
}

// IsolatedUnits returns the ids of all units with no remaining edges.
func (t *Topology) IsolatedUnits() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for _, id := range t.order {
		if len(t.conns[id]) == 0 {
			out = append(out, id)
		}
	}
	return out
}

// HighlyConnected returns the ids of all units with at least minEdges edges.
func (t *Topology) HighlyConnected(minEdges int) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	var out []string
	for _, id := range t.order {
		if len(t.conns[id]) >= minEdges {
			out = append(out, id)
		}
	}
	return out
}

// Statistics returns a snapshot of graph-level metrics. Density is
// edges / (n*(n-1)/2) for n > 1, else 0.
func (t *Topology) Statistics() Statistics {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := len(t.units)
	active := 0
	regionCounts := make(map[string]int)
	totalDegree := 0
	for _, id := range t.order {
		info := t.units[id]
		if info.Status == StatusActive {
			active++
		}
		regionCounts[info.Region]++
		totalDegree += len(t.conns[id])
	}
	edges := totalDegree / 2

	stats := Statistics{
		TotalUnits:    n,
		ActiveUnits:   active,
		InactiveUnits: n - active,
		TotalEdges:    edges,
		RegionCounts:  regionCounts,
	}
	if n > 0 {
		stats.AvgDegree = float64(edges) / float64(n)
	}
	if n > 1 {
		stats.Density = float64(edges) / (float64(n) * float64(n-1) / 2)
	}
	return stats
}

// Reset clears all units and edges, returning the topology to its
// uninitialized state.
func (t *Topology) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.units = make(map[string]*UnitInfo)
	t.conns = make(map[string][]string)
	t.order = nil
	t.initialized = false
}

// Initialized reports whether Initialize has been called.
func (t *Topology) Initialized() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.initialized
}
