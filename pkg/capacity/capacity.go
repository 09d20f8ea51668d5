// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package capacity tracks the airport's finite resources: gate
// occupancy (free/occupied/reserved), hold-point queues, runway mutual
// exclusion, and per-edge soft occupancy limits. Nothing here decides
// who gets a resource next — that's pkg/rules.PriorityOrder — this
// package only books the result.
package capacity

import (
	"fmt"

	"github.com/brunoga/deep"

	"github.com/flightops/groundsim/pkg/layout"
	"github.com/flightops/groundsim/pkg/params"
)

// GateState is the tri-state lifecycle of a gate.
type GateState string

const (
	GateFree     GateState = "free"
	GateOccupied GateState = "occupied"
	GateReserved GateState = "reserved"
)

// GateStatus is the booking state of a single gate node.
type GateStatus struct {
	NodeID     string
	Apron      string
	SizeClass  layout.SizeClass
	State      GateState
	OccupiedBy string
	ReservedBy string
}

// Reserve places a weak (id-only) hold on a free gate for an aircraft
// that has not yet spawned — the placeholder-then-patch pattern the
// spawner uses to commit a gate before the rest of an aircraft exists.
func (g *GateStatus) Reserve(aircraftID string) error {
	if g.State != GateFree {
		return fmt.Errorf("gate %s is not free (state=%s)", g.NodeID, g.State)
	}
	g.State = GateReserved
	g.ReservedBy = aircraftID
	return nil
}

// Occupy transitions a reserved (or, for an arrival taxiing straight
// in, a free) gate to occupied.
func (g *GateStatus) Occupy(aircraftID string) error {
	switch g.State {
	case GateReserved:
		if g.ReservedBy != aircraftID {
			return fmt.Errorf("gate %s reserved for %s, not %s", g.NodeID, g.ReservedBy, aircraftID)
		}
	case GateFree:
	default:
		return fmt.Errorf("gate %s is not available (state=%s)", g.NodeID, g.State)
	}
	g.State = GateOccupied
	g.OccupiedBy = aircraftID
	g.ReservedBy = ""
	return nil
}

// Release frees the gate unconditionally.
func (g *GateStatus) Release() {
	g.State = GateFree
	g.OccupiedBy = ""
	g.ReservedBy = ""
}

// HoldQueue is the FIFO (or priority-reordered, via pkg/rules) waiting
// line at a hold point, carrying each waiting id's accumulated waiting
// time (§3: "ordered queue of aircraft ids plus accumulated
// waiting-time per id").
type HoldQueue struct {
	NodeID   string
	waiting  []string
	waitTime map[string]float64
}

// Enqueue appends an aircraft to the back of the queue, if not already
// present, starting its wait-time accumulator at 0.
func (q *HoldQueue) Enqueue(aircraftID string) {
	for _, id := range q.waiting {
		if id == aircraftID {
			return
		}
	}
	q.waiting = append(q.waiting, aircraftID)
	if q.waitTime == nil {
		q.waitTime = make(map[string]float64)
	}
	if _, ok := q.waitTime[aircraftID]; !ok {
		q.waitTime[aircraftID] = 0
	}
}

// Remove removes the named aircraft from anywhere in the queue,
// reporting whether it was present.
func (q *HoldQueue) Remove(aircraftID string) bool {
	for i, id := range q.waiting {
		if id == aircraftID {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			delete(q.waitTime, aircraftID)
			return true
		}
	}
	return false
}

// Snapshot returns the queue contents in current order.
func (q *HoldQueue) Snapshot() []string {
	out := make([]string, len(q.waiting))
	copy(out, q.waiting)
	return out
}

// Len returns the number of aircraft waiting.
func (q *HoldQueue) Len() int { return len(q.waiting) }

// Advance adds dt to every queued id's accumulated wait time (§4.3
// advance_waiting(dt)).
func (q *HoldQueue) Advance(dt float64) {
	for _, id := range q.waiting {
		q.waitTime[id] += dt
	}
}

// WaitTime returns the accumulated wait time for id, or 0 if it is not
// (or is no longer) queued.
func (q *HoldQueue) WaitTime(id string) float64 {
	return q.waitTime[id]
}

// CarryWaitTimes copies accumulated wait time from a prior tick's
// queue for every id still present in q, so rebuilding the queue in
// priority order each tick doesn't reset anyone's clock.
func (q *HoldQueue) CarryWaitTimes(prev *HoldQueue) {
	if prev == nil {
		return
	}
	for id, wt := range prev.waitTime {
		if _, ok := q.waitTime[id]; ok {
			q.waitTime[id] = wt
		}
	}
}

// RunwayState is free or occupied relative to the runway's configured
// simultaneous-occupant capacity.
type RunwayState string

const (
	RunwayFree     RunwayState = "free"
	RunwayOccupied RunwayState = "occupied"
)

// RunwayStatus tracks mutual exclusion on a runway edge.
type RunwayStatus struct {
	EdgeID    string
	Capacity  int
	Occupants []string
}

// State reports Free or Occupied based on current occupancy.
func (r *RunwayStatus) State() RunwayState {
	if len(r.Occupants) >= r.Capacity {
		return RunwayOccupied
	}
	return RunwayFree
}

// Enter admits an aircraft onto the runway, failing if it is at
// capacity.
func (r *RunwayStatus) Enter(aircraftID string) bool {
	if len(r.Occupants) >= r.Capacity {
		return false
	}
	r.Occupants = append(r.Occupants, aircraftID)
	return true
}

// Leave removes an aircraft from the runway.
func (r *RunwayStatus) Leave(aircraftID string) {
	for i, id := range r.Occupants {
		if id == aircraftID {
			r.Occupants = append(r.Occupants[:i], r.Occupants[i+1:]...)
			return
		}
	}
}

// EdgeOccupancy is a soft per-edge occupant counter (§4.3): Add never
// refuses, so the spawner can register an aircraft on a full edge,
// while the movement kernel does not advance an aircraft onto an edge
// without capacity. The router does not read these counters.
type EdgeOccupancy struct {
	EdgeID    string
	Capacity  int
	Occupants []string
}

// HasCapacity reports whether the edge has room for another occupant.
func (e *EdgeOccupancy) HasCapacity() bool { return len(e.Occupants) < e.Capacity }

// Count returns the current occupant count.
func (e *EdgeOccupancy) Count() int { return len(e.Occupants) }

// Add records an aircraft entering the edge.
func (e *EdgeOccupancy) Add(aircraftID string) { e.Occupants = append(e.Occupants, aircraftID) }

// Remove records an aircraft leaving the edge.
func (e *EdgeOccupancy) Remove(aircraftID string) {
	for i, id := range e.Occupants {
		if id == aircraftID {
			e.Occupants = append(e.Occupants[:i], e.Occupants[i+1:]...)
			return
		}
	}
}

// Capacity is the complete resource-booking state for one simulation
// run.
type Capacity struct {
	Gates   map[string]*GateStatus
	Holds   map[string]*HoldQueue
	Runways map[string]*RunwayStatus
	Edges   map[string]*EdgeOccupancy

	gateOrder   []string
	holdOrder   []string
	runwayOrder []string
}

// InitializeFromLayout builds the initial, all-free resource state
// from the layout graph and the capacity parameter section.
func InitializeFromLayout(l *layout.Layout, p *params.Bundle) *Capacity {
	c := &Capacity{
		Gates:   make(map[string]*GateStatus),
		Holds:   make(map[string]*HoldQueue),
		Runways: make(map[string]*RunwayStatus),
		Edges:   make(map[string]*EdgeOccupancy),
	}

	for _, n := range l.Gates() {
		c.Gates[n.ID] = &GateStatus{NodeID: n.ID, Apron: n.Apron, SizeClass: n.SizeClass, State: GateFree}
		c.gateOrder = append(c.gateOrder, n.ID)
	}
	for _, n := range l.HoldPoints() {
		c.Holds[n.ID] = &HoldQueue{NodeID: n.ID}
		c.holdOrder = append(c.holdOrder, n.ID)
	}

	runwayCapacity := p.Capacity.Runway
	if runwayCapacity <= 0 {
		runwayCapacity = 1
	}
	for _, e := range l.RunwayEdges() {
		c.Runways[e.ID] = &RunwayStatus{EdgeID: e.ID, Capacity: runwayCapacity}
		c.runwayOrder = append(c.runwayOrder, e.ID)
	}

	for id, e := range l.Edges {
		c.Edges[id] = &EdgeOccupancy{EdgeID: id, Capacity: e.EffectiveCapacity()}
	}

	return c
}

// FreeGate returns the id of the first free gate (in layout order)
// compatible with apron and class, or "" if none is free. An empty
// apron matches any apron.
func (c *Capacity) FreeGate(apron string, class layout.SizeClass) string {
	for _, id := range c.gateOrder {
		g := c.Gates[id]
		if g.State != GateFree {
			continue
		}
		if apron != "" && g.Apron != apron {
			continue
		}
		if !layout.Compatible(class, g.SizeClass) {
			continue
		}
		return id
	}
	return ""
}

// GateOrder returns gate ids in layout order.
func (c *Capacity) GateOrder() []string { return append([]string(nil), c.gateOrder...) }

// HoldOrder returns hold-point ids in layout order.
func (c *Capacity) HoldOrder() []string { return append([]string(nil), c.holdOrder...) }

// RunwayOrder returns runway edge ids in layout order.
func (c *Capacity) RunwayOrder() []string { return append([]string(nil), c.runwayOrder...) }

// Snapshot returns a deep copy of the capacity state, safe for an
// observer to retain while the original continues mutating.
func (c *Capacity) Snapshot() *Capacity {
	cp, err := deep.Copy(c)
	if err != nil {
		// deep.Copy only fails on unsupported types (channels, funcs);
		// Capacity contains neither, so this path is unreachable in
		// practice. Fall back to the original to avoid a nil snapshot.
		return c
	}
	return cp
}
