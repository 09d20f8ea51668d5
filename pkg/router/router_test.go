// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package router

import (
	"testing"

	"github.com/flightops/groundsim/pkg/layout"
)

func threeNodeLayout() *layout.Layout {
	l := layout.New("t", "1.0")
	l.AddNode("GATE1", &layout.Node{Kind: layout.NodeGate})
	l.AddNode("HOLD1", &layout.Node{Kind: layout.NodeHoldPoint})
	l.AddNode("RWYEND1", &layout.Node{Kind: layout.NodeRunwayEnd})
	l.AddEdge("E1", &layout.Edge{Kind: layout.EdgeApronLink, Start: "GATE1", End: "HOLD1", Length: 10, AllowedFlow: layout.FlowBoth})
	l.AddEdge("E2", &layout.Edge{Kind: layout.EdgeRunway, Start: "HOLD1", End: "RWYEND1", Length: 20, AllowedFlow: layout.FlowBoth})
	l.BuildIndices()
	return l
}

func TestFindRouteBasic(t *testing.T) {
	r := New(threeNodeLayout(), 16)
	route, err := r.FindRoute("GATE1", "RWYEND1", layout.SizeMedium, false)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	if len(route.Edges) != 2 || route.Edges[0] != "E1" || route.Edges[1] != "E2" {
		t.Fatalf("unexpected route %v", route.Edges)
	}
	if route.TotalLength != 30 {
		t.Fatalf("expected total length 30, got %v", route.TotalLength)
	}
}

func TestFindRouteCacheReturnsIndependentCopies(t *testing.T) {
	r := New(threeNodeLayout(), 16)
	a, _ := r.FindRoute("GATE1", "RWYEND1", layout.SizeMedium, false)
	b, _ := r.FindRoute("GATE1", "RWYEND1", layout.SizeMedium, false)

	a.Edges[0] = "MUTATED"
	if b.Edges[0] == "MUTATED" {
		t.Fatal("cached routes must not alias each other's edge slices")
	}
}

func TestFindRouteNoPath(t *testing.T) {
	l := layout.New("t", "1.0")
	l.AddNode("A", &layout.Node{Kind: layout.NodeGate})
	l.AddNode("B", &layout.Node{Kind: layout.NodeRunwayEnd})
	l.BuildIndices()

	r := New(l, 16)
	if _, err := r.FindRoute("A", "B", layout.SizeMedium, false); err != ErrNoRoute {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}

func TestFindRouteSameOriginDestination(t *testing.T) {
	r := New(threeNodeLayout(), 16)
	route, err := r.FindRoute("GATE1", "GATE1", layout.SizeMedium, false)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	if len(route.Edges) != 0 {
		t.Fatalf("expected empty route for identical endpoints, got %v", route.Edges)
	}
}

func TestPrecomputeFillsCache(t *testing.T) {
	r := New(threeNodeLayout(), 16)
	pairs := []RoutePair{
		{Origin: "GATE1", Destination: "RWYEND1", Class: layout.SizeMedium, IsArrival: false},
	}
	if err := r.Precompute(pairs); err != nil {
		t.Fatalf("Precompute: %v", err)
	}
	if _, ok := r.cache.Get(cacheKey{Origin: "GATE1", Destination: "RWYEND1", Class: layout.SizeMedium}); !ok {
		t.Fatal("expected precompute to populate the cache")
	}
}

func TestRerouteIfNeededAvoidsCongestionWithoutBacktracking(t *testing.T) {
	// Diamond: GATE1 -> A -> RWYEND1 and GATE1 -> B -> RWYEND1, plus
	// GATE1 -> HOLD1 -> A already traversed.
	l := layout.New("t", "1.0")
	l.AddNode("GATE1", &layout.Node{Kind: layout.NodeGate})
	l.AddNode("A", &layout.Node{Kind: layout.NodeIntersection})
	l.AddNode("B", &layout.Node{Kind: layout.NodeIntersection})
	l.AddNode("RWYEND1", &layout.Node{Kind: layout.NodeRunwayEnd})
	l.AddEdge("E1", &layout.Edge{Kind: layout.EdgeTaxiway, Start: "GATE1", End: "A", Length: 10, AllowedFlow: layout.FlowBoth})
	l.AddEdge("E2", &layout.Edge{Kind: layout.EdgeTaxiway, Start: "A", End: "RWYEND1", Length: 10, AllowedFlow: layout.FlowBoth})
	l.AddEdge("E3", &layout.Edge{Kind: layout.EdgeTaxiway, Start: "A", End: "B", Length: 5, AllowedFlow: layout.FlowBoth})
	l.AddEdge("E4", &layout.Edge{Kind: layout.EdgeTaxiway, Start: "B", End: "RWYEND1", Length: 5, AllowedFlow: layout.FlowBoth})
	l.BuildIndices()

	r := New(l, 16)
	route, err := r.FindRoute("GATE1", "RWYEND1", layout.SizeMedium, false)
	if err != nil {
		t.Fatalf("FindRoute: %v", err)
	}
	if route.Edges[0] != "E1" || route.Edges[1] != "E2" {
		t.Fatalf("expected shortest route E1,E2, got %v", route.Edges)
	}

	congested := map[string]bool{"E2": true}
	newRoute, changed, err := r.RerouteIfNeeded(route, 1, congested, layout.SizeMedium, false)
	if err != nil {
		t.Fatalf("RerouteIfNeeded: %v", err)
	}
	if !changed {
		t.Fatal("expected reroute to trigger on a congested upcoming edge")
	}
	if newRoute.Edges[0] != "E1" {
		t.Fatalf("expected already-traversed edge E1 to remain the prefix, got %v", newRoute.Edges)
	}
	for _, eid := range newRoute.Edges {
		if eid == "E2" {
			t.Fatal("reroute should have avoided the congested edge E2")
		}
	}
}

func TestRerouteIfNeededNoopWhenClear(t *testing.T) {
	r := New(threeNodeLayout(), 16)
	route, _ := r.FindRoute("GATE1", "RWYEND1", layout.SizeMedium, false)

	newRoute, changed, err := r.RerouteIfNeeded(route, 0, map[string]bool{}, layout.SizeMedium, false)
	if err != nil {
		t.Fatalf("RerouteIfNeeded: %v", err)
	}
	if changed {
		t.Fatal("expected no reroute when nothing ahead is congested")
	}
	if newRoute != route {
		t.Fatal("expected the same route pointer returned when unchanged")
	}
}
