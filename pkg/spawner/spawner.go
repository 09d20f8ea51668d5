// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package spawner admits new aircraft into the simulation each tick: a
// Bernoulli trial approximates a Poisson arrival process per direction,
// a multinomial draw picks the aircraft's size class, and a gate (for
// a departure's origin or an arrival's destination) is reserved before
// a route is ever computed, so a route failure cleanly releases the
// reservation instead of leaving a half-admitted aircraft behind.
package spawner

import (
	"fmt"

	"github.com/flightops/groundsim/pkg/aircraft"
	"github.com/flightops/groundsim/pkg/capacity"
	"github.com/flightops/groundsim/pkg/layout"
	"github.com/flightops/groundsim/pkg/params"
	"github.com/flightops/groundsim/pkg/rand"
	"github.com/flightops/groundsim/pkg/router"
	"github.com/flightops/groundsim/pkg/rules"
)

// Spawner admits departures and arrivals against the shared layout,
// capacity state, and router.
type Spawner struct {
	layout   *layout.Layout
	capacity *capacity.Capacity
	router   *router.Router

	counter int
}

// New returns a Spawner over the given resources.
func New(l *layout.Layout, cap *capacity.Capacity, r *router.Router) *Spawner {
	return &Spawner{layout: l, capacity: cap, router: r}
}

func (s *Spawner) nextID(prefix string) string {
	s.counter++
	return fmt.Sprintf("%s%d", prefix, s.counter)
}

// bernoulli approximates a Poisson process with the given rate
// (events/minute) over a tick of dtSeconds: probability of exactly one
// admission this tick is rate*dt/60, clamped to [0, 1].
func bernoulli(rng *rand.Rand, ratePerMinute, dtSeconds float64) bool {
	p := ratePerMinute * dtSeconds / 60.0
	if p <= 0 {
		return false
	}
	if p > 1 {
		p = 1
	}
	return rng.Float64() < p
}

// Tick runs one departure and one arrival admission trial and returns
// whatever aircraft were spawned (0, 1, or 2).
func (s *Spawner) Tick(now float64, p *params.Bundle, rng *rand.Rand) []*aircraft.Aircraft {
	var spawned []*aircraft.Aircraft

	if a := s.trySpawnDeparture(now, p, rng); a != nil {
		spawned = append(spawned, a)
	}
	if a := s.trySpawnArrival(now, p, rng); a != nil {
		spawned = append(spawned, a)
	}
	return spawned
}

func (s *Spawner) trySpawnDeparture(now float64, p *params.Bundle, rng *rand.Rand) *aircraft.Aircraft {
	rate := p.SpawnRate(false, rng)
	if !bernoulli(rng, rate, p.Simulation.TimeStepSize) {
		return nil
	}

	class := p.SampleClass(false, rng)
	gateID := s.capacity.FreeGate("", class)
	if gateID == "" {
		return nil
	}

	id := s.nextID("DEP")
	if err := s.capacity.Gates[gateID].Reserve(id); err != nil {
		return nil
	}

	dest := s.preferredRunwayEnd(p, rng)
	if dest == "" {
		s.capacity.Gates[gateID].Release()
		return nil
	}

	route, err := s.router.FindRoute(gateID, dest, class, false)
	if err != nil || len(route.Edges) == 0 {
		s.capacity.Gates[gateID].Release()
		return nil
	}

	if err := s.capacity.Gates[gateID].Occupy(id); err != nil {
		return nil
	}

	a := aircraft.New(id, class, false, route, now)
	a.GateID = gateID
	s.registerOnEdge(route.Edges[0], id)
	return a
}

func (s *Spawner) trySpawnArrival(now float64, p *params.Bundle, rng *rand.Rand) *aircraft.Aircraft {
	rate := p.SpawnRate(true, rng)
	if !bernoulli(rng, rate, p.Simulation.TimeStepSize) {
		return nil
	}

	class := p.SampleClass(true, rng)
	origin := s.preferredRunwayEnd(p, rng)
	if origin == "" {
		return nil
	}
	rwyEdge := s.runwayEdgeAt(origin)
	rwy := s.capacity.Runways[rwyEdge]
	if rwy == nil || len(rwy.Occupants) >= rwy.Capacity {
		return nil
	}

	gateID := s.capacity.FreeGate("", class)
	if gateID == "" {
		return nil
	}

	id := s.nextID("ARR")
	if err := s.capacity.Gates[gateID].Reserve(id); err != nil {
		return nil
	}

	route, err := s.router.FindRoute(origin, gateID, class, true)
	if err != nil || len(route.Edges) == 0 {
		s.capacity.Gates[gateID].Release()
		return nil
	}

	a := aircraft.New(id, class, true, route, now)
	a.GateID = gateID
	rwy.Enter(id)
	s.registerOnEdge(route.Edges[0], id)
	return a
}

// preferredRunwayEnd picks a uniformly random runway_end node among
// those matching the active runway direction for the current wind,
// falling back to a uniformly random choice among all runway ends if
// none matches by name.
func (s *Spawner) preferredRunwayEnd(p *params.Bundle, rng *rand.Rand) string {
	_, windDir := p.Wind(rng)
	want := rules.ActiveRunwayDirection(windDir)
	ends := s.layout.RunwayEnds()
	if len(ends) == 0 {
		return ""
	}
	var matching []*layout.Node
	for _, n := range ends {
		if n.Name == want {
			matching = append(matching, n)
		}
	}
	if len(matching) == 0 {
		matching = ends
	}
	return matching[rng.Intn(len(matching))].ID
}

// runwayEdgeAt returns the runway edge touching node id, if any.
func (s *Spawner) runwayEdgeAt(nodeID string) string {
	for _, e := range s.layout.EdgesFrom(nodeID) {
		if e.Kind == layout.EdgeRunway {
			return e.ID
		}
	}
	for id, e := range s.layout.Edges {
		if e.Kind == layout.EdgeRunway && (e.Start == nodeID || e.End == nodeID) {
			return id
		}
	}
	return ""
}

func (s *Spawner) registerOnEdge(edgeID, aircraftID string) {
	if occ := s.capacity.Edges[edgeID]; occ != nil {
		occ.Add(aircraftID)
	}
}
