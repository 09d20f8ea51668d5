// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package movement implements the Nagel-Schreckenberg-derived update
// kernel that advances every aircraft by one tick: accelerate, brake
// for the gap ahead, brake randomly, then advance — applied front-to-
// back along each aircraft's route so a leader's new position is
// always visible to its follower before the follower moves.
package movement

import (
	"math"
	"sort"

	"github.com/flightops/groundsim/pkg/aircraft"
	"github.com/flightops/groundsim/pkg/capacity"
	"github.com/flightops/groundsim/pkg/layout"
	"github.com/flightops/groundsim/pkg/params"
	"github.com/flightops/groundsim/pkg/rand"
	"github.com/flightops/groundsim/pkg/router"
	"github.com/flightops/groundsim/pkg/rules"
	"github.com/flightops/groundsim/pkg/util"
)

// HoldThreshold is the fraction of an edge's length at which an
// aircraft approaching a gated transition (a runway entry behind a
// hold point, or any edge whose next hop is currently blocked) stops
// advancing further rather than overshooting into an edge it cannot
// yet enter.
const HoldThreshold = 0.95

// Kernel advances aircraft state one tick at a time.
type Kernel struct {
	layout   *layout.Layout
	capacity *capacity.Capacity
	router   *router.Router
}

// New returns a Kernel over the given resources.
func New(l *layout.Layout, cap *capacity.Capacity, r *router.Router) *Kernel {
	return &Kernel{layout: l, capacity: cap, router: r}
}

// Step advances every aircraft in list by one tick of size dt, given
// the resolved weather for this tick, and returns the aircraft that
// completed their route this step (already marked PhaseCompleted, or
// PhaseAtGate for an arrival with an assigned gate).
func (k *Kernel) Step(list []*aircraft.Aircraft, p *params.Bundle, weather params.WeatherCondition, rng *rand.Rand, now float64) []*aircraft.Aircraft {
	ordered := frontToBack(list)

	var completed []*aircraft.Aircraft
	for _, a := range ordered {
		if a.Phase == aircraft.PhaseCompleted || a.Phase == aircraft.PhaseAtGate {
			continue
		}
		if k.step(a, list, p, weather, rng, now) {
			completed = append(completed, a)
		}
	}
	return completed
}

// frontToBack orders aircraft by route progress descending (furthest
// along first), so a leader is updated before its follower looks at
// its position.
func frontToBack(list []*aircraft.Aircraft) []*aircraft.Aircraft {
	ordered := make([]*aircraft.Aircraft, len(list))
	copy(ordered, list)
	sort.SliceStable(ordered, func(i, j int) bool {
		return progress(ordered[i]) > progress(ordered[j])
	})
	return ordered
}

func progress(a *aircraft.Aircraft) float64 {
	if a.Route == nil {
		return 0
	}
	return float64(a.EdgeIndex) + a.PositionOnEdge*1e-6 // edge index dominates; fine-grained tiebreak within an edge
}

// accelRate is the NaSch acceleration constant, in m/s^2.
const accelRate = 2.0

// randomBrakeProb is the fixed per-tick probability of a random
// braking event (the CA's stochastic noise term).
const randomBrakeProb = 0.2

// gapSafetyBuffer is the fixed following distance the gap-brake step
// subtracts from the raw gap ahead. This is distinct from
// rules.Separation (a configurable, section- and weather-scaled
// minimum that the kernel does not call); the NaSch update itself
// always brakes for this literal buffer.
const gapSafetyBuffer = 10.0

// step advances a single aircraft; it returns true if the aircraft
// completed its route this tick.
func (k *Kernel) step(a *aircraft.Aircraft, all []*aircraft.Aircraft, p *params.Bundle, weather params.WeatherCondition, rng *rand.Rand, now float64) bool {
	edgeID := a.CurrentEdgeID()
	if edgeID == "" {
		return k.complete(a, now)
	}
	edge := k.layout.GetEdge(edgeID)
	if edge == nil {
		return k.complete(a, now)
	}
	length := k.layout.Length(edge)

	dt := p.Simulation.TimeStepSize
	if dt <= 0 {
		dt = 1
	}
	vmax := rules.SpeedLimit(edge, a.Class, p, weather)

	// 1. accelerate
	a.Speed = util.Min(a.Speed+accelRate*dt, vmax)

	// 2. gap-brake: cap speed so the aircraft stops short of whatever
	// is ahead by the fixed safety buffer, in one tick.
	gap := k.gapAhead(a, all, edge, length)
	safeGap := util.Max(0, gap-gapSafetyBuffer)
	a.Speed = util.Min(a.Speed, safeGap/dt)

	// 3. hold-point / transition gating: don't cross onto a blocked
	// next edge once past the hold threshold.
	if a.PositionOnEdge/length >= HoldThreshold {
		if !k.canAdvanceToNext(a, edge) {
			a.Speed = 0
		}
	}

	// 4. random brake
	if a.Speed > 0 && rng.Float64() < randomBrakeProb {
		a.Speed = util.Max(0, a.Speed-accelRate*dt)
	}

	// 5. advance, carrying overflow into subsequent edges.
	return k.advance(a, edge, length, dt, now)
}

// gapAhead returns the raw distance to the nearest aircraft ahead,
// whether it is further along the same edge or already on the next
// one (gap = remaining room on this edge + its position on the next).
// If nothing is ahead, the gap is unbounded: the required separation
// is subtracted by the caller, not here.
func (k *Kernel) gapAhead(a *aircraft.Aircraft, all []*aircraft.Aircraft, edge *layout.Edge, length float64) float64 {
	nextID := a.NextEdgeID()
	gap := math.Inf(1)
	for _, other := range all {
		if other == a || other.Phase == aircraft.PhaseCompleted || other.Phase == aircraft.PhaseAtGate {
			continue
		}
		switch other.CurrentEdgeID() {
		case edge.ID:
			if other.PositionOnEdge > a.PositionOnEdge {
				if d := other.PositionOnEdge - a.PositionOnEdge; d < gap {
					gap = d
				}
			}
		case nextID:
			if nextID != "" {
				if d := (length - a.PositionOnEdge) + other.PositionOnEdge; d < gap {
					gap = d
				}
			}
		}
	}
	return gap
}

// canAdvanceToNext reports whether the edge following the aircraft's
// current one will admit it: if the current edge ends at a hold point
// with more than one aircraft blocked there, only the queue's
// priority-ordered front (computed by advanceWaiting, per
// Params.Priority.HoldRelease) may claim a freed slot this tick; a
// runway edge additionally requires mutual exclusion, and any edge
// requires soft capacity headroom.
func (k *Kernel) canAdvanceToNext(a *aircraft.Aircraft, current *layout.Edge) bool {
	if q, ok := k.capacity.Holds[current.End]; ok {
		if front := q.Snapshot(); len(front) > 0 && front[0] != a.ID {
			return false
		}
	}

	nextID := a.NextEdgeID()
	if nextID == "" {
		return true // final edge: completion handles its own gating.
	}
	next := k.layout.GetEdge(nextID)
	if next == nil {
		return false
	}
	if next.Kind == layout.EdgeRunway {
		if rwy, ok := k.capacity.Runways[nextID]; ok {
			if len(rwy.Occupants) >= rwy.Capacity {
				return false
			}
		}
	}
	if occ, ok := k.capacity.Edges[nextID]; ok {
		if !occ.HasCapacity() {
			return false
		}
	}
	return true
}

// advance moves the aircraft by its resolved speed, carrying overflow
// into the next edge (or completing the route) as needed. It returns
// true if the aircraft completed this tick.
func (k *Kernel) advance(a *aircraft.Aircraft, edge *layout.Edge, length, dt, now float64) bool {
	a.PositionOnEdge += a.Speed * dt

	for a.PositionOnEdge >= length {
		overflow := a.PositionOnEdge - length
		if a.AtFinalEdge() {
			k.releaseEdge(edge.ID, a.ID)
			return k.complete(a, now)
		}

		nextID := a.NextEdgeID()
		next := k.layout.GetEdge(nextID)
		if next == nil || !k.canAdvanceToNext(a, edge) {
			a.PositionOnEdge = length
			a.Speed = 0
			return false
		}

		k.releaseEdge(edge.ID, a.ID)
		a.EdgeIndex++
		a.PositionOnEdge = overflow
		k.occupyEdge(nextID, a.ID)
		if next.Kind == layout.EdgeRunway {
			if rwy, ok := k.capacity.Runways[nextID]; ok {
				rwy.Enter(a.ID)
			}
			a.Phase = aircraft.PhaseRunway
		} else if a.IsArrival {
			a.Phase = aircraft.PhaseTaxiIn
		} else {
			a.Phase = aircraft.PhaseTaxiOut
		}

		edge = next
		length = k.layout.Length(edge)
	}
	return false
}

func (k *Kernel) occupyEdge(edgeID, aircraftID string) {
	if occ, ok := k.capacity.Edges[edgeID]; ok {
		occ.Add(aircraftID)
	}
}

func (k *Kernel) releaseEdge(edgeID, aircraftID string) {
	if occ, ok := k.capacity.Edges[edgeID]; ok {
		occ.Remove(aircraftID)
	}
	if rwy, ok := k.capacity.Runways[edgeID]; ok {
		rwy.Leave(aircraftID)
	}
}

// complete finalizes an aircraft that has reached the end of its
// route: a departure releases its gate and is done; an arrival
// occupies its reserved gate. Edge and runway occupancy are released
// by the caller (advance) before this is called.
func (k *Kernel) complete(a *aircraft.Aircraft, now float64) bool {
	a.Phase = aircraft.PhaseCompleted
	a.CompletionTime = now
	a.Speed = 0
	if a.IsArrival && a.GateID != "" {
		if g, ok := k.capacity.Gates[a.GateID]; ok {
			g.Occupy(a.ID)
		}
		a.Phase = aircraft.PhaseAtGate
	} else if !a.IsArrival && a.GateID != "" {
		if g, ok := k.capacity.Gates[a.GateID]; ok {
			g.Release()
		}
	}
	return true
}
