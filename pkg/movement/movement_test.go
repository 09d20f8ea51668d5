// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package movement

import (
	"testing"

	"github.com/flightops/groundsim/pkg/aircraft"
	"github.com/flightops/groundsim/pkg/capacity"
	"github.com/flightops/groundsim/pkg/layout"
	"github.com/flightops/groundsim/pkg/params"
	"github.com/flightops/groundsim/pkg/rand"
	"github.com/flightops/groundsim/pkg/router"
)

func straightLayout() *layout.Layout {
	l := layout.New("t", "1.0")
	l.AddNode("GATE1", &layout.Node{Kind: layout.NodeGate})
	l.AddNode("HOLD1", &layout.Node{Kind: layout.NodeHoldPoint})
	l.AddNode("RWYEND1", &layout.Node{Kind: layout.NodeRunwayEnd})
	l.AddEdge("E1", &layout.Edge{Kind: layout.EdgeTaxiway, Start: "GATE1", End: "HOLD1", Length: 10, AllowedFlow: layout.FlowBoth})
	l.AddEdge("E2", &layout.Edge{Kind: layout.EdgeRunway, Start: "HOLD1", End: "RWYEND1", Length: 10, AllowedFlow: layout.FlowBoth})
	l.BuildIndices()
	return l
}

func fixtureKernel() (*Kernel, *capacity.Capacity, *params.Bundle) {
	l := straightLayout()
	p := params.Default()
	cap := capacity.InitializeFromLayout(l, p)
	r := router.New(l, 16)
	return New(l, cap, r), cap, p
}

// TestAdvanceAlongSingleEdge runs several ticks rather than one: the
// random brake fires with fixed 20% probability each tick, so a single
// tick could legitimately leave an unobstructed aircraft at rest.
func TestAdvanceAlongSingleEdge(t *testing.T) {
	k, cap, p := fixtureKernel()
	cap.Edges["E1"].Add("AC1")

	route := &aircraft.Route{Edges: []string{"E1", "E2"}, OriginNode: "GATE1", DestinationNode: "RWYEND1"}
	a := aircraft.New("AC1", layout.SizeMedium, false, route, 0)

	rng := rand.NewSeeded(1)
	for i := 0; i < 10 && a.PositionOnEdge == 0; i++ {
		k.Step([]*aircraft.Aircraft{a}, p, params.WeatherGood, rng, float64(i+1))
	}

	if a.PositionOnEdge <= 0 {
		t.Fatalf("expected aircraft to move forward over several ticks, got position %v", a.PositionOnEdge)
	}
}

func TestFollowerStopsBehindLeader(t *testing.T) {
	k, cap, p := fixtureKernel()
	cap.Edges["E1"].Add("LEADER")
	cap.Edges["E1"].Add("FOLLOWER")

	route := &aircraft.Route{Edges: []string{"E1", "E2"}, OriginNode: "GATE1", DestinationNode: "RWYEND1"}
	leader := aircraft.New("LEADER", layout.SizeMedium, false, route, 0)
	leader.PositionOnEdge = 2
	follower := aircraft.New("FOLLOWER", layout.SizeMedium, false, route, 0)
	follower.PositionOnEdge = 0

	rng := rand.NewSeeded(1)
	k.Step([]*aircraft.Aircraft{leader, follower}, p, params.WeatherGood, rng, 1)

	if follower.PositionOnEdge >= leader.PositionOnEdge {
		t.Fatalf("expected follower (%v) to remain behind leader (%v)", follower.PositionOnEdge, leader.PositionOnEdge)
	}
}

func TestCompletionReleasesGateForDeparture(t *testing.T) {
	k, cap, p := fixtureKernel()
	cap.Edges["E2"].Add("AC1")
	cap.Gates["GATE1"] = &capacity.GateStatus{NodeID: "GATE1", State: capacity.GateOccupied, OccupiedBy: "AC1"}

	route := &aircraft.Route{Edges: []string{"E2"}, OriginNode: "HOLD1", DestinationNode: "RWYEND1"}
	a := aircraft.New("AC1", layout.SizeMedium, false, route, 0)
	a.GateID = "GATE1"
	a.PositionOnEdge = 9.5
	a.Speed = 5

	rng := rand.NewSeeded(1)
	completed := k.Step([]*aircraft.Aircraft{a}, p, params.WeatherGood, rng, 5)

	if len(completed) != 1 {
		t.Fatalf("expected the aircraft to complete, got %v", completed)
	}
	if a.Phase != aircraft.PhaseCompleted {
		t.Fatalf("expected phase completed, got %v", a.Phase)
	}
	if cap.Gates["GATE1"].State != capacity.GateFree {
		t.Fatalf("expected gate freed on departure completion, got %v", cap.Gates["GATE1"].State)
	}
}

func TestCompletionOccupiesGateForArrival(t *testing.T) {
	k, cap, p := fixtureKernel()
	cap.Gates["GATE1"] = &capacity.GateStatus{NodeID: "GATE1", State: capacity.GateReserved, ReservedBy: "AC1"}
	cap.Edges["E2"].Add("AC1")

	route := &aircraft.Route{Edges: []string{"E2"}, OriginNode: "HOLD1", DestinationNode: "RWYEND1"}
	a := aircraft.New("AC1", layout.SizeMedium, true, route, 0)
	a.GateID = "GATE1"
	a.PositionOnEdge = 9.5
	a.Speed = 5

	rng := rand.NewSeeded(1)
	k.Step([]*aircraft.Aircraft{a}, p, params.WeatherGood, rng, 5)

	if cap.Gates["GATE1"].State != capacity.GateOccupied {
		t.Fatalf("expected gate occupied by arriving aircraft, got %v", cap.Gates["GATE1"].State)
	}
	if a.Phase != aircraft.PhaseAtGate {
		t.Fatalf("expected phase at_gate, got %v", a.Phase)
	}
}

// TestHoldQueuePriorityGatesRunwayEntry exercises canAdvanceToNext's
// consultation of the hold queue's priority order: with both aircraft
// blocked past the hold threshold, only the queue's front (AC2, placed
// there ahead of AC1) may claim the free runway slot.
func TestHoldQueuePriorityGatesRunwayEntry(t *testing.T) {
	k, cap, p := fixtureKernel()
	cap.Edges["E1"].Add("AC1")
	cap.Edges["E1"].Add("AC2")
	cap.Holds["HOLD1"].Enqueue("AC2")
	cap.Holds["HOLD1"].Enqueue("AC1")

	route := &aircraft.Route{Edges: []string{"E1", "E2"}, OriginNode: "GATE1", DestinationNode: "RWYEND1"}
	ac1 := aircraft.New("AC1", layout.SizeMedium, false, route, 0)
	ac1.PositionOnEdge = 9.6
	ac2 := aircraft.New("AC2", layout.SizeMedium, false, route, 0)
	ac2.PositionOnEdge = 9.6

	rng := rand.NewSeeded(1)
	for i := 0; i < 10 && ac2.EdgeIndex == 0; i++ {
		k.Step([]*aircraft.Aircraft{ac1, ac2}, p, params.WeatherGood, rng, float64(i+1))
	}

	if ac1.EdgeIndex != 0 {
		t.Fatalf("expected AC1 to remain blocked behind higher-priority AC2, got edge index %d", ac1.EdgeIndex)
	}
	if ac2.EdgeIndex != 1 {
		t.Fatalf("expected AC2 (front of hold queue) to advance onto the runway within several ticks, got edge index %d", ac2.EdgeIndex)
	}
}

func TestHoldGatingBlocksEntryToOccupiedRunway(t *testing.T) {
	k, cap, p := fixtureKernel()
	cap.Edges["E1"].Add("AC1")
	cap.Runways["E2"].Enter("OTHER")

	route := &aircraft.Route{Edges: []string{"E1", "E2"}, OriginNode: "GATE1", DestinationNode: "RWYEND1"}
	a := aircraft.New("AC1", layout.SizeMedium, false, route, 0)
	a.PositionOnEdge = 9.6 // past the 0.95 hold threshold on a length-10 edge
	a.Speed = 3

	rng := rand.NewSeeded(1)
	k.Step([]*aircraft.Aircraft{a}, p, params.WeatherGood, rng, 1)

	if a.EdgeIndex != 0 {
		t.Fatalf("expected aircraft to remain on E1 while the runway is occupied, got edge index %d", a.EdgeIndex)
	}
	if a.Speed != 0 {
		t.Fatalf("expected speed clamped to 0 at the hold point, got %v", a.Speed)
	}
}
