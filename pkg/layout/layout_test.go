// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package layout

import (
	"encoding/json"
	"testing"
)

func linearTaxiLayout() *Layout {
	l := New("linear", "1.0")
	l.AddNode("GATE1", &Node{Kind: NodeGate, X: 0, Y: 0, Apron: "A", SizeClass: SizeMedium})
	l.AddNode("HOLD1", &Node{Kind: NodeHoldPoint, X: 100, Y: 0})
	l.AddNode("RWYEND1", &Node{Kind: NodeRunwayEnd, X: 200, Y: 0, Name: "09"})
	l.AddEdge("E1", &Edge{Kind: EdgeApronLink, Start: "GATE1", End: "HOLD1", Length: 100, AllowedFlow: FlowBoth})
	l.AddEdge("E2", &Edge{Kind: EdgeRunway, Start: "HOLD1", End: "RWYEND1", Length: 100, AllowedFlow: FlowBoth})
	l.BuildIndices()
	return l
}

func TestValidateOK(t *testing.T) {
	l := linearTaxiLayout()
	if errs := l.Validate(); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateMissingGate(t *testing.T) {
	l := New("nogates", "1.0")
	l.AddNode("HOLD1", &Node{Kind: NodeHoldPoint, X: 0, Y: 0})
	l.AddNode("RWYEND1", &Node{Kind: NodeRunwayEnd, X: 100, Y: 0})
	l.AddEdge("E1", &Edge{Kind: EdgeRunway, Start: "HOLD1", End: "RWYEND1", Length: 100, AllowedFlow: FlowBoth})
	l.BuildIndices()

	errs := l.Validate()
	found := false
	for _, e := range errs {
		if e == "layout has no gates" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected missing-gate error, got %v", errs)
	}
}

func TestValidateDanglingEdge(t *testing.T) {
	l := New("dangling", "1.0")
	l.AddNode("GATE1", &Node{Kind: NodeGate, X: 0, Y: 0})
	l.AddEdge("E1", &Edge{Kind: EdgeTaxiway, Start: "GATE1", End: "NOWHERE", Length: 10, AllowedFlow: FlowBoth})
	l.BuildIndices()

	errs := l.Validate()
	if len(errs) == 0 {
		t.Fatal("expected validation errors for dangling edge")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	l := linearTaxiLayout()

	b1, err := json.Marshal(l)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var l2 Layout
	if err := json.Unmarshal(b1, &l2); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	b2, err := json.Marshal(&l2)
	if err != nil {
		t.Fatalf("remarshal: %v", err)
	}

	if string(b1) != string(b2) {
		t.Fatalf("round trip not a fixed point:\n%s\nvs\n%s", b1, b2)
	}
}

func TestEffectiveLengthFallsBackToEuclidean(t *testing.T) {
	l := New("fallback", "1.0")
	l.AddNode("A", &Node{Kind: NodeGate, X: 0, Y: 0})
	l.AddNode("B", &Node{Kind: NodeRunwayEnd, X: 30, Y: 40})
	e := &Edge{Kind: EdgeTaxiway, Start: "A", End: "B", AllowedFlow: FlowBoth}
	l.AddEdge("E1", e)
	l.BuildIndices()

	if got := l.Length(e); got != 50 {
		t.Fatalf("expected Euclidean fallback of 50, got %v", got)
	}
}

func TestEdgesFromRespectsOneWay(t *testing.T) {
	l := New("oneway", "1.0")
	l.AddNode("A", &Node{Kind: NodeIntersection, X: 0, Y: 0})
	l.AddNode("B", &Node{Kind: NodeIntersection, X: 10, Y: 0})
	l.AddEdge("E1", &Edge{Kind: EdgeTaxiway, Start: "A", End: "B", Length: 10, AllowedFlow: FlowBoth, OneWay: true})
	l.BuildIndices()

	if n := len(l.EdgesFrom("A")); n != 1 {
		t.Fatalf("expected 1 edge from A, got %d", n)
	}
	if n := len(l.EdgesFrom("B")); n != 0 {
		t.Fatalf("expected 0 edges from B (one-way), got %d", n)
	}
}
