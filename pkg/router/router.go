// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package router computes shortest paths across the layout graph:
// Dijkstra with an access predicate, an LRU cache keyed on (origin,
// destination, class, direction), bulk precomputation, and congestion-
// aware rerouting that never backtracks over ground already covered.
package router

import (
	"container/heap"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/flightops/groundsim/pkg/aircraft"
	"github.com/flightops/groundsim/pkg/layout"
	"github.com/flightops/groundsim/pkg/rules"
)

// ErrNoRoute is returned when no path exists under the access
// predicate in force.
var ErrNoRoute = fmt.Errorf("router: no route found")

type cacheKey struct {
	Origin, Destination string
	Class               layout.SizeClass
	IsArrival           bool
}

// Router computes and caches routes over a fixed layout.
type Router struct {
	layout *layout.Layout
	cache  *lru.Cache[cacheKey, *aircraft.Route]
}

// New returns a Router over l with an LRU route cache holding up to
// cacheSize entries.
func New(l *layout.Layout, cacheSize int) *Router {
	if cacheSize <= 0 {
		cacheSize = 1024
	}
	c, _ := lru.New[cacheKey, *aircraft.Route](cacheSize)
	return &Router{layout: l, cache: c}
}

// FindRoute returns the shortest access-valid route from origin to
// destination, serving from cache when available.
func (r *Router) FindRoute(origin, destination string, class layout.SizeClass, isArrival bool) (*aircraft.Route, error) {
	key := cacheKey{Origin: origin, Destination: destination, Class: class, IsArrival: isArrival}
	if cached, ok := r.cache.Get(key); ok {
		return cloneRoute(cached), nil
	}

	route, err := r.dijkstra(origin, destination, class, isArrival, nil, nil)
	if err != nil {
		return nil, err
	}
	r.cache.Add(key, cloneRoute(route))
	return route, nil
}

// RoutePair is one (origin, destination, class, direction) request for
// Precompute.
type RoutePair struct {
	Origin, Destination string
	Class               layout.SizeClass
	IsArrival           bool
}

// Precompute populates the cache for every pair, running lookups
// concurrently with bounded parallelism. It returns the first error
// encountered, if any, but still attempts every pair.
func (r *Router) Precompute(pairs []RoutePair) error {
	var g errgroup.Group
	g.SetLimit(8)
	for _, pair := range pairs {
		pair := pair
		g.Go(func() error {
			_, err := r.FindRoute(pair.Origin, pair.Destination, pair.Class, pair.IsArrival)
			return err
		})
	}
	return g.Wait()
}

// RerouteIfNeeded checks whether any upcoming edge on the aircraft's
// current route is congested (per the congested set, keyed by edge
// id), and if so computes a replacement route from the aircraft's
// current position that avoids backtracking over edges already
// traversed. It returns the original route unchanged, and false, when
// no edge ahead is congested.
func (r *Router) RerouteIfNeeded(current *aircraft.Route, currentEdgeIdx int, congested map[string]bool, class layout.SizeClass, isArrival bool) (*aircraft.Route, bool, error) {
	if current == nil || currentEdgeIdx >= len(current.Edges) {
		return current, false, nil
	}

	needsReroute := false
	for _, eid := range current.Edges[currentEdgeIdx:] {
		if congested[eid] {
			needsReroute = true
			break
		}
	}
	if !needsReroute {
		return current, false, nil
	}

	currentEdge := r.layout.GetEdge(current.Edges[currentEdgeIdx])
	if currentEdge == nil {
		return current, false, nil
	}
	from := currentEdge.Start

	forbidden := make(map[string]bool, currentEdgeIdx)
	for _, eid := range current.Edges[:currentEdgeIdx] {
		forbidden[eid] = true
	}

	costFn := func(edgeID string, base float64) float64 {
		if congested[edgeID] {
			return base * 2
		}
		return base
	}

	newRoute, err := r.dijkstra(from, current.DestinationNode, class, isArrival, costFn, forbidden)
	if err != nil {
		// No congestion-avoiding alternative; keep the original route
		// rather than strand the aircraft.
		return current, false, nil
	}
	newRoute.Edges = append(append([]string(nil), current.Edges[:currentEdgeIdx]...), newRoute.Edges...)
	newRoute.OriginNode = current.OriginNode
	return newRoute, true, nil
}

///////////////////////////////////////////////////////////////////////////
// Dijkstra

type pqItem struct {
	node string
	dist float64
	idx  int
}

type priorityQueue []*pqItem

func (pq priorityQueue) Len() int            { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool  { return pq[i].dist < pq[j].dist }
func (pq priorityQueue) Swap(i, j int)       { pq[i], pq[j] = pq[j], pq[i]; pq[i].idx, pq[j].idx = i, j }
func (pq *priorityQueue) Push(x interface{}) {
	item := x.(*pqItem)
	item.idx = len(*pq)
	*pq = append(*pq, item)
}
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// dijkstra finds the lowest-cost access-valid path from origin to
// destination. costFn, if non-nil, overrides an edge's base length
// cost (e.g. to penalize congestion); forbidden edges are never
// traversed (used to prevent backtracking during reroute).
func (r *Router) dijkstra(origin, destination string, class layout.SizeClass, isArrival bool, costFn func(edgeID string, base float64) float64, forbidden map[string]bool) (*aircraft.Route, error) {
	if origin == destination {
		return &aircraft.Route{OriginNode: origin, DestinationNode: destination}, nil
	}

	dist := map[string]float64{origin: 0}
	prevNode := map[string]string{}
	prevEdge := map[string]string{}
	visited := map[string]bool{}

	pq := &priorityQueue{{node: origin, dist: 0}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*pqItem)
		if visited[cur.node] {
			continue
		}
		visited[cur.node] = true
		if cur.node == destination {
			break
		}

		for _, e := range r.layout.EdgesFrom(cur.node) {
			if forbidden != nil && forbidden[e.ID] {
				continue
			}
			if !rules.CanAccess(r.layout, e, class, isArrival) {
				continue
			}
			next := e.OtherEnd(cur.node)
			if visited[next] {
				continue
			}
			base := r.layout.Length(e)
			cost := base
			if costFn != nil {
				cost = costFn(e.ID, base)
			}
			nd := dist[cur.node] + cost
			if existing, ok := dist[next]; !ok || nd < existing {
				dist[next] = nd
				prevNode[next] = cur.node
				prevEdge[next] = e.ID
				heap.Push(pq, &pqItem{node: next, dist: nd})
			}
		}
	}

	if _, ok := dist[destination]; !ok {
		return nil, ErrNoRoute
	}

	var edges []string
	total := dist[destination]
	for n := destination; n != origin; n = prevNode[n] {
		edges = append([]string{prevEdge[n]}, edges...)
	}

	return &aircraft.Route{
		Edges:           edges,
		OriginNode:      origin,
		DestinationNode: destination,
		TotalLength:     total,
	}, nil
}

func cloneRoute(r *aircraft.Route) *aircraft.Route {
	if r == nil {
		return nil
	}
	cp := *r
	cp.Edges = append([]string(nil), r.Edges...)
	return &cp
}
