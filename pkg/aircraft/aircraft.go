// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package aircraft holds the per-aircraft state the movement kernel,
// spawner, and observer all read and mutate: its assigned route, its
// position along that route, and its lifecycle phase.
package aircraft

import "github.com/flightops/groundsim/pkg/layout"

// Route is a precomputed path through the layout graph: an ordered
// list of edge ids from an origin node to a destination node.
type Route struct {
	Edges           []string
	OriginNode      string
	DestinationNode string
	TotalLength     float64
}

// Phase is the aircraft's position in its lifecycle.
type Phase string

const (
	PhaseTaxiOut   Phase = "taxi_out"
	PhaseHolding   Phase = "holding"
	PhaseRunway    Phase = "runway"
	PhaseTaxiIn    Phase = "taxi_in"
	PhaseAtGate    Phase = "at_gate"
	PhaseCompleted Phase = "completed"
)

// Aircraft is one simulated aircraft moving across the layout.
type Aircraft struct {
	ID        string
	Class     layout.SizeClass
	IsArrival bool

	Route          *Route
	EdgeIndex      int
	PositionOnEdge float64
	Speed          float64

	Phase  Phase
	GateID string

	// WaitTime is the accumulated time spent blocked at hold points
	// over the whole flight, synced each tick from the owning
	// HoldQueue's per-id accumulator (§4.3) and carried onto the
	// flight record at completion.
	WaitTime float64

	SpawnTime      float64
	CompletionTime float64
}

// New returns a freshly spawned aircraft at the start of its route.
func New(id string, class layout.SizeClass, isArrival bool, route *Route, spawnTime float64) *Aircraft {
	phase := PhaseTaxiOut
	if isArrival {
		phase = PhaseRunway
	}
	return &Aircraft{
		ID:        id,
		Class:     class,
		IsArrival: isArrival,
		Route:     route,
		Phase:     phase,
		SpawnTime: spawnTime,
	}
}

// CurrentEdgeID returns the id of the edge the aircraft currently
// occupies, or "" if it has no route or has finished traversing it.
func (a *Aircraft) CurrentEdgeID() string {
	if a.Route == nil || a.EdgeIndex < 0 || a.EdgeIndex >= len(a.Route.Edges) {
		return ""
	}
	return a.Route.Edges[a.EdgeIndex]
}

// NextEdgeID returns the id of the edge following the current one, or
// "" if the current edge is the last in the route.
func (a *Aircraft) NextEdgeID() string {
	if a.Route == nil || a.EdgeIndex+1 >= len(a.Route.Edges) {
		return ""
	}
	return a.Route.Edges[a.EdgeIndex+1]
}

// AtFinalEdge reports whether the aircraft is traversing the last edge
// of its route.
func (a *Aircraft) AtFinalEdge() bool {
	return a.Route != nil && a.EdgeIndex == len(a.Route.Edges)-1
}

// IsDone reports whether the aircraft has reached its destination.
func (a *Aircraft) IsDone() bool {
	return a.Phase == PhaseCompleted || a.Phase == PhaseAtGate
}

// TaxiTime returns elapsed simulated time since spawn, measured at
// completion (0 before CompletionTime is set).
func (a *Aircraft) TaxiTime() float64 {
	if a.CompletionTime <= 0 {
		return 0
	}
	return a.CompletionTime - a.SpawnTime
}
