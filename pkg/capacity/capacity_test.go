// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package capacity

import (
	"testing"

	"github.com/flightops/groundsim/pkg/layout"
	"github.com/flightops/groundsim/pkg/params"
)

func fixtureLayout() *layout.Layout {
	l := layout.New("t", "1.0")
	l.AddNode("GATE1", &layout.Node{Kind: layout.NodeGate, Apron: "A", SizeClass: layout.SizeMedium})
	l.AddNode("GATE2", &layout.Node{Kind: layout.NodeGate, Apron: "A", SizeClass: layout.SizeSmall})
	l.AddNode("HOLD1", &layout.Node{Kind: layout.NodeHoldPoint})
	l.AddNode("RWYEND1", &layout.Node{Kind: layout.NodeRunwayEnd})
	l.AddEdge("E1", &layout.Edge{Kind: layout.EdgeApronLink, Start: "GATE1", End: "HOLD1", Length: 10, AllowedFlow: layout.FlowBoth})
	l.AddEdge("E2", &layout.Edge{Kind: layout.EdgeRunway, Start: "HOLD1", End: "RWYEND1", Length: 100, AllowedFlow: layout.FlowBoth})
	l.BuildIndices()
	return l
}

func TestGateReserveOccupyRelease(t *testing.T) {
	c := InitializeFromLayout(fixtureLayout(), params.Default())

	if err := c.Gates["GATE1"].Reserve("AC1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	if err := c.Gates["GATE1"].Reserve("AC2"); err == nil {
		t.Fatal("expected reserving an already-reserved gate to fail")
	}
	if err := c.Gates["GATE1"].Occupy("AC1"); err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if c.Gates["GATE1"].State != GateOccupied {
		t.Fatalf("expected gate occupied, got %v", c.Gates["GATE1"].State)
	}
	c.Gates["GATE1"].Release()
	if c.Gates["GATE1"].State != GateFree {
		t.Fatalf("expected gate free after release, got %v", c.Gates["GATE1"].State)
	}
}

func TestFreeGateRespectsSizeAndApron(t *testing.T) {
	c := InitializeFromLayout(fixtureLayout(), params.Default())

	if got := c.FreeGate("A", layout.SizeLarge); got != "" {
		t.Fatalf("expected no gate to fit a large aircraft, got %q", got)
	}
	if got := c.FreeGate("A", layout.SizeSmall); got != "GATE1" && got != "GATE2" {
		t.Fatalf("expected a free gate for small aircraft, got %q", got)
	}
	if got := c.FreeGate("B", layout.SizeSmall); got != "" {
		t.Fatalf("expected no gate in apron B, got %q", got)
	}
}

func TestRunwayMutualExclusion(t *testing.T) {
	c := InitializeFromLayout(fixtureLayout(), params.Default())
	rwy := c.Runways["E2"]

	if !rwy.Enter("AC1") {
		t.Fatal("expected first entry to succeed")
	}
	if rwy.Enter("AC2") {
		t.Fatal("expected second entry to fail under default capacity 1")
	}
	rwy.Leave("AC1")
	if !rwy.Enter("AC2") {
		t.Fatal("expected entry to succeed after the runway is vacated")
	}
}

func TestHoldQueueFIFO(t *testing.T) {
	q := &HoldQueue{NodeID: "HOLD1"}
	q.Enqueue("AC1")
	q.Enqueue("AC2")
	if got := q.Snapshot(); len(got) != 2 || got[0] != "AC1" || got[1] != "AC2" {
		t.Fatalf("unexpected queue snapshot %v", got)
	}
	if !q.Remove("AC1") {
		t.Fatal("expected to remove AC1")
	}
	if q.Len() != 1 {
		t.Fatalf("expected length 1 after removal, got %d", q.Len())
	}
}

func TestHoldQueueAdvanceAccumulatesWaitTime(t *testing.T) {
	q := &HoldQueue{NodeID: "HOLD1"}
	q.Enqueue("AC1")
	q.Advance(5)
	q.Advance(5)
	if got := q.WaitTime("AC1"); got != 10 {
		t.Fatalf("expected accumulated wait time 10, got %v", got)
	}

	q.Remove("AC1")
	if got := q.WaitTime("AC1"); got != 0 {
		t.Fatalf("expected wait time reset to 0 once removed, got %v", got)
	}
}

func TestHoldQueueCarryWaitTimesPreservesAcrossRebuild(t *testing.T) {
	prev := &HoldQueue{NodeID: "HOLD1"}
	prev.Enqueue("AC1")
	prev.Advance(12)

	rebuilt := &HoldQueue{NodeID: "HOLD1"}
	rebuilt.Enqueue("AC1")
	rebuilt.CarryWaitTimes(prev)
	if got := rebuilt.WaitTime("AC1"); got != 12 {
		t.Fatalf("expected carried wait time 12, got %v", got)
	}
}

func TestEdgeOccupancyCapacity(t *testing.T) {
	c := InitializeFromLayout(fixtureLayout(), params.Default())
	e := c.Edges["E1"]
	for i := 0; i < e.Capacity; i++ {
		if !e.HasCapacity() {
			t.Fatalf("expected capacity at occupant %d", i)
		}
		e.Add("AC")
	}
	if e.HasCapacity() {
		t.Fatal("expected edge to be full at its configured capacity")
	}
}

func TestSnapshotIsIndependentCopy(t *testing.T) {
	c := InitializeFromLayout(fixtureLayout(), params.Default())
	snap := c.Snapshot()

	c.Gates["GATE1"].State = GateOccupied
	if snap.Gates["GATE1"].State != GateFree {
		t.Fatal("snapshot should not observe mutations made after it was taken")
	}
}
