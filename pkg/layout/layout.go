// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package layout models the airport surface as a directed graph: nodes
// (gates, hold points, runway ends, intersections, ...) connected by
// edges (taxiways, runways, apron links, rapid exits), plus the
// adjacency indices the router and movement kernel need.
package layout

import (
	"encoding/json"
	"fmt"

	"github.com/flightops/groundsim/pkg/geo"
	"github.com/flightops/groundsim/pkg/util"

	"github.com/iancoleman/orderedmap"
)

// NodeKind enumerates the §3 node kinds.
type NodeKind string

const (
	NodeIntersection NodeKind = "intersection"
	NodeRunwayEnd    NodeKind = "runway_end"
	NodeRunwayEntry  NodeKind = "runway_entry"
	NodeRunwayExit   NodeKind = "runway_exit"
	NodeGate         NodeKind = "gate"
	NodeHoldPoint    NodeKind = "hold_point"
	NodeApronCenter  NodeKind = "apron_center"
)

// EdgeKind enumerates the §3 edge kinds.
type EdgeKind string

const (
	EdgeRunway    EdgeKind = "runway"
	EdgeTaxiway   EdgeKind = "taxiway"
	EdgeApronLink EdgeKind = "apron_link"
	EdgeRapidExit EdgeKind = "rapid_exit"
)

// AllowedFlow restricts which direction of traffic may use an edge.
type AllowedFlow string

const (
	FlowArrival   AllowedFlow = "arrival"
	FlowDeparture AllowedFlow = "departure"
	FlowBoth      AllowedFlow = "both"
)

// SizeClass is an aircraft or gate size category.
type SizeClass string

const (
	SizeSmall  SizeClass = "small"
	SizeMedium SizeClass = "medium"
	SizeLarge  SizeClass = "large"
)

// sizeOrder gives SizeClass a total order for gate-compatibility checks
// (small < medium < large).
var sizeOrder = map[SizeClass]int{SizeSmall: 1, SizeMedium: 2, SizeLarge: 3}

// Compatible reports whether an aircraft of class ac may use a gate (or
// other resource) restricted to at most restriction. An empty
// restriction imposes no limit.
func Compatible(ac, restriction SizeClass) bool {
	if restriction == "" {
		return true
	}
	return sizeOrder[ac] <= sizeOrder[restriction]
}

// Node is a single point in the airport graph.
type Node struct {
	ID        string    `json:"-"`
	Kind      NodeKind  `json:"type"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	Name      string    `json:"name,omitempty"`
	Apron     string    `json:"apron,omitempty"`
	SizeClass SizeClass `json:"size_class,omitempty"`
}

// Point returns the node's planar coordinates.
func (n *Node) Point() geo.Point2D { return geo.Point2D{X: n.X, Y: n.Y} }

// Edge is a directed (or bidirectional, if !OneWay) connection between
// two nodes.
type Edge struct {
	ID           string        `json:"-"`
	Kind         EdgeKind      `json:"type"`
	Start        string        `json:"start"`
	End          string        `json:"end"`
	Length       float64       `json:"length"`
	AllowedFlow  AllowedFlow   `json:"allowed_flow"`
	OneWay       bool          `json:"one_way"`
	SpeedHint    *float64      `json:"speed_hint,omitempty"`
	CapacityHint *int          `json:"capacity_hint,omitempty"`
	Polyline     []geo.Point2D `json:"polyline,omitempty"`
}

// EffectiveCapacity returns the edge's soft occupancy limit, defaulting
// to 10 when unset (§4.3).
func (e *Edge) EffectiveCapacity() int {
	if e.CapacityHint != nil && *e.CapacityHint > 0 {
		return *e.CapacityHint
	}
	return 10
}

// Layout is the full airport graph plus adjacency indices.
type Layout struct {
	Name    string
	Version string

	Nodes map[string]*Node
	Edges map[string]*Edge

	// nodeOrder/edgeOrder remember JSON key order so MarshalJSON is a
	// fixed point of UnmarshalJSON (L2 in spec §8).
	nodeOrder []string
	edgeOrder []string

	outEdges map[string][]string // node id -> edge ids leaving (or, for non-one-way edges, touching) it
	inEdges  map[string][]string // node id -> edge ids arriving at (or touching) it
}

// New returns an empty Layout ready to have nodes/edges added.
func New(name, version string) *Layout {
	return &Layout{
		Name:    name,
		Version: version,
		Nodes:   make(map[string]*Node),
		Edges:   make(map[string]*Edge),
	}
}

// AddNode inserts or replaces a node, preserving first-seen order.
func (l *Layout) AddNode(id string, n *Node) {
	n.ID = id
	if _, ok := l.Nodes[id]; !ok {
		l.nodeOrder = append(l.nodeOrder, id)
	}
	l.Nodes[id] = n
}

// AddEdge inserts or replaces an edge, preserving first-seen order.
func (l *Layout) AddEdge(id string, e *Edge) {
	e.ID = id
	if _, ok := l.Edges[id]; !ok {
		l.edgeOrder = append(l.edgeOrder, id)
	}
	l.Edges[id] = e
}

// BuildIndices (re)computes the adjacency indices from the current
// node/edge set. It must be called after any bulk mutation of Nodes or
// Edges before queries like EdgesFrom are used.
func (l *Layout) BuildIndices() {
	l.outEdges = make(map[string][]string, len(l.Nodes))
	l.inEdges = make(map[string][]string, len(l.Nodes))
	for _, id := range l.edgeOrder {
		e, ok := l.Edges[id]
		if !ok {
			continue
		}
		l.outEdges[e.Start] = append(l.outEdges[e.Start], id)
		l.inEdges[e.End] = append(l.inEdges[e.End], id)
		if !e.OneWay {
			l.outEdges[e.End] = append(l.outEdges[e.End], id)
			l.inEdges[e.Start] = append(l.inEdges[e.Start], id)
		}
	}
}

// GetNode looks up a node by id.
func (l *Layout) GetNode(id string) *Node { return l.Nodes[id] }

// GetEdge looks up an edge by id.
func (l *Layout) GetEdge(id string) *Edge { return l.Edges[id] }

// EdgesFrom returns the edges that may be departed from node id,
// in forward direction for edges it starts, and reverse direction for
// non-one-way edges it ends (the adjacency index already folds both
// cases into one list).
func (l *Layout) EdgesFrom(id string) []*Edge {
	ids := l.outEdges[id]
	out := make([]*Edge, 0, len(ids))
	for _, eid := range ids {
		if e, ok := l.Edges[eid]; ok {
			out = append(out, e)
		}
	}
	return out
}

// OtherEnd returns the node at the far end of e from "from" — e.g. for
// a forward traversal from e.Start, returns e.End, and vice-versa for a
// reverse traversal of a non-one-way edge.
func (e *Edge) OtherEnd(from string) string {
	if from == e.Start {
		return e.End
	}
	return e.Start
}

// Length returns the edge's configured length, falling back to the
// Euclidean distance between its endpoints when absent or zero (§3).
func (l *Layout) Length(e *Edge) float64 {
	if e.Length > 0 {
		return e.Length
	}
	start, end := l.Nodes[e.Start], l.Nodes[e.End]
	if start == nil || end == nil {
		return 0
	}
	return geo.Distance(start.Point(), end.Point())
}

// NodesOfKind returns all nodes of the given kind, in layout order.
func (l *Layout) NodesOfKind(kind NodeKind) []*Node {
	var out []*Node
	for _, id := range l.nodeOrder {
		if n := l.Nodes[id]; n != nil && n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

// EdgesOfKind returns all edges of the given kind, in layout order.
func (l *Layout) EdgesOfKind(kind EdgeKind) []*Edge {
	var out []*Edge
	for _, id := range l.edgeOrder {
		if e := l.Edges[id]; e != nil && e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// Gates returns every gate node, in layout order.
func (l *Layout) Gates() []*Node { return l.NodesOfKind(NodeGate) }

// HoldPoints returns every hold_point node, in layout order.
func (l *Layout) HoldPoints() []*Node { return l.NodesOfKind(NodeHoldPoint) }

// RunwayEnds returns every runway_end node, in layout order.
func (l *Layout) RunwayEnds() []*Node { return l.NodesOfKind(NodeRunwayEnd) }

// RunwayEdges returns every runway edge, in layout order.
func (l *Layout) RunwayEdges() []*Edge { return l.EdgesOfKind(EdgeRunway) }

// Validate checks the §3 structural invariants, accumulating every
// problem found rather than stopping at the first (§7 LayoutInvalid).
func (l *Layout) Validate() []string {
	var e util.ErrorLogger

	for id, edge := range l.Edges {
		e.Push("edge " + id)
		if _, ok := l.Nodes[edge.Start]; !ok {
			e.ErrorString("start node %q does not exist", edge.Start)
		}
		if _, ok := l.Nodes[edge.End]; !ok {
			e.ErrorString("end node %q does not exist", edge.End)
		}
		e.Pop()
	}

	if len(l.RunwayEdges()) == 0 {
		e.ErrorString("layout has no runway edges")
	}
	if len(l.Gates()) == 0 {
		e.ErrorString("layout has no gates")
	}
	if len(l.RunwayEnds()) == 0 {
		e.ErrorString("layout has no runway_end nodes")
	}

	return e.Errors()
}

///////////////////////////////////////////////////////////////////////////
// JSON

type layoutWire struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Nodes   *orderedmap.OrderedMap `json:"nodes"`
	Edges   *orderedmap.OrderedMap `json:"edges"`
}

// MarshalJSON emits the §6 layout schema, preserving the order nodes
// and edges were added/parsed in.
func (l *Layout) MarshalJSON() ([]byte, error) {
	nodes := orderedmap.New()
	for _, id := range l.nodeOrder {
		nodes.Set(id, l.Nodes[id])
	}
	edges := orderedmap.New()
	for _, id := range l.edgeOrder {
		edges.Set(id, l.Edges[id])
	}
	return json.Marshal(layoutWire{Name: l.Name, Version: l.Version, Nodes: nodes, Edges: edges})
}

// UnmarshalJSON parses the §6 layout schema and builds adjacency
// indices.
func (l *Layout) UnmarshalJSON(data []byte) error {
	var wire layoutWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	l.Name, l.Version = wire.Name, wire.Version
	l.Nodes = make(map[string]*Node)
	l.Edges = make(map[string]*Edge)
	l.nodeOrder, l.edgeOrder = nil, nil

	if wire.Nodes != nil {
		for _, id := range wire.Nodes.Keys() {
			raw, _ := wire.Nodes.Get(id)
			b, err := json.Marshal(raw)
			if err != nil {
				return fmt.Errorf("node %q: %w", id, err)
			}
			var n Node
			if err := util.UnmarshalJSONBytes(b, &n); err != nil {
				return fmt.Errorf("node %q: %w", id, err)
			}
			l.AddNode(id, &n)
		}
	}
	if wire.Edges != nil {
		for _, id := range wire.Edges.Keys() {
			raw, _ := wire.Edges.Get(id)
			b, err := json.Marshal(raw)
			if err != nil {
				return fmt.Errorf("edge %q: %w", id, err)
			}
			var e Edge
			if err := util.UnmarshalJSONBytes(b, &e); err != nil {
				return fmt.Errorf("edge %q: %w", id, err)
			}
			l.AddEdge(id, &e)
		}
	}

	l.BuildIndices()
	return nil
}
