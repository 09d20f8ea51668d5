// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package sim is the driver: it owns the layout, parameters, capacity
// state, router, spawner, movement kernel and observer for one run,
// and advances them through the fixed tick phase order (advance
// waiting, spawn, move, record) until the configured duration elapses.
package sim

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/davecgh/go-spew/spew"

	"github.com/flightops/groundsim/pkg/aircraft"
	"github.com/flightops/groundsim/pkg/capacity"
	"github.com/flightops/groundsim/pkg/layout"
	"github.com/flightops/groundsim/pkg/log"
	"github.com/flightops/groundsim/pkg/movement"
	"github.com/flightops/groundsim/pkg/observer"
	"github.com/flightops/groundsim/pkg/params"
	"github.com/flightops/groundsim/pkg/rand"
	"github.com/flightops/groundsim/pkg/router"
	"github.com/flightops/groundsim/pkg/rules"
	"github.com/flightops/groundsim/pkg/spawner"
	"github.com/flightops/groundsim/pkg/util"
)

// retentionSeconds is how long a completed aircraft is kept in the
// simulation's aircraft table (and so in DebugString dumps) after
// finishing its route. Retained aircraft are not returned by
// activeAircraft and are not counted in the per-tick series.
const retentionSeconds = 60.0

// Simulation runs one discrete-time ground-traffic simulation.
type Simulation struct {
	Layout *layout.Layout
	Params *params.Bundle

	capacity *capacity.Capacity
	router   *router.Router
	spawner  *spawner.Spawner
	kernel   *movement.Kernel
	obs      *observer.Observer
	rng      *rand.Rand
	log      *log.Logger

	aircraftByID map[string]*aircraft.Aircraft
	retiring     *util.ExpireSet[string]

	now float64
}

// New validates the layout and parameters and, if both are valid,
// constructs a ready-to-run Simulation. The returned error slices are
// the §7 LayoutInvalid/ParamInvalid detail lists; a non-empty slice
// means the Simulation return value is nil.
func New(l *layout.Layout, p *params.Bundle, logger *log.Logger) (*Simulation, []string, []string) {
	layoutErrs := l.Validate()
	paramErrs := p.Validate()
	if len(layoutErrs) > 0 || len(paramErrs) > 0 {
		return nil, layoutErrs, paramErrs
	}

	if logger == nil {
		logger = log.Discard()
	}

	cap := capacity.InitializeFromLayout(l, p)
	r := router.New(l, 2048)
	// Fill the route cache for every gate <-> runway point, per class and
	// direction; pairs with no route are left uncached.
	var pairs []router.RoutePair
	for _, g := range l.Gates() {
		for _, kind := range []layout.NodeKind{layout.NodeRunwayEnd, layout.NodeRunwayEntry, layout.NodeRunwayExit} {
			for _, pt := range l.NodesOfKind(kind) {
				for _, c := range []layout.SizeClass{layout.SizeSmall, layout.SizeMedium, layout.SizeLarge} {
					pairs = append(pairs, router.RoutePair{Origin: g.ID, Destination: pt.ID, Class: c}, router.RoutePair{Origin: pt.ID, Destination: g.ID, Class: c, IsArrival: true})
				}
			}
		}
	}
	_ = r.Precompute(pairs)
	s := &Simulation{
		Layout:       l,
		Params:       p,
		capacity:     cap,
		router:       r,
		spawner:      spawner.New(l, cap, r),
		kernel:       movement.New(l, cap, r),
		obs:          observer.New(),
		rng:          p.NewRand(),
		log:          logger,
		aircraftByID: make(map[string]*aircraft.Aircraft),
		retiring:     util.NewExpireSet[string](),
	}
	return s, nil, nil
}

// Tick advances the simulation by one time step, in the fixed phase
// order: release hold-point queues in priority order, admit new
// aircraft, move everyone, then record what happened.
func (s *Simulation) Tick() {
	s.now += s.Params.Simulation.TimeStepSize
	weather := s.Params.Weather(s.rng)

	s.advanceWaiting()

	spawned := s.spawner.Tick(s.now, s.Params, s.rng)
	for _, a := range spawned {
		s.aircraftByID[a.ID] = a
	}

	active := s.activeAircraft()
	completed := s.kernel.Step(active, s.Params, weather, s.rng, s.now)
	for _, a := range completed {
		s.retiring.Add(a.ID, s.now+retentionSeconds)
	}

	s.obs.RecordTick(s.now, s.tickCounts(), completed)

	for _, id := range s.retiring.Expired(s.now) {
		delete(s.aircraftByID, id)
	}

	s.log.Debug("tick complete", "time", s.now, "active", len(s.aircraftByID), "spawned", len(spawned), "completed", len(completed))
}

// Run advances the simulation to Params.Simulation.TotalDuration and
// returns the finished result.
func (s *Simulation) Run() Result {
	for s.now < s.Params.Simulation.TotalDuration {
		s.Tick()
	}
	return s.Result()
}

// activeAircraft returns, sorted by id, every aircraft that has not yet
// completed; completed and parked aircraft still within their
// retention window are left out.
func (s *Simulation) activeAircraft() []*aircraft.Aircraft {
	out := make([]*aircraft.Aircraft, 0, len(s.aircraftByID))
	ids := make([]string, 0, len(s.aircraftByID))
	for id := range s.aircraftByID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		a := s.aircraftByID[id]
		if a.Phase != aircraft.PhaseCompleted && a.Phase != aircraft.PhaseAtGate {
			out = append(out, a)
		}
	}
	return out
}

// advanceWaiting rebuilds every hold-point's queue in priority order
// for this tick, so the movement kernel's own per-aircraft gating
// reflects the configured release priority rather than raw arrival
// order when more than one aircraft is blocked at the same point, then
// adds this tick's dt to every queued id's accumulated wait time
// (§4.3 advance_waiting(dt)) and syncs the running total onto each
// aircraft so it survives into its flight record at completion.
func (s *Simulation) advanceWaiting() {
	dt := s.Params.Simulation.TimeStepSize
	for nodeID, queue := range s.capacity.Holds {
		ids := s.blockedAircraftAt(nodeID)
		if len(ids) == 0 {
			*queue = capacity.HoldQueue{NodeID: nodeID}
			continue
		}
		isArrival := func(i int) bool { return s.aircraftByID[ids[i]].IsArrival }
		sizeOf := func(i int) layout.SizeClass { return s.aircraftByID[ids[i]].Class }
		order := rules.PriorityOrder(len(ids), s.Params.Priority.HoldRelease, isArrival, sizeOf, s.rng)

		rebuilt := capacity.HoldQueue{NodeID: nodeID}
		for _, idx := range order {
			rebuilt.Enqueue(ids[idx])
		}
		rebuilt.CarryWaitTimes(queue)
		rebuilt.Advance(dt)
		*queue = rebuilt

		for _, id := range ids {
			s.aircraftByID[id].WaitTime = rebuilt.WaitTime(id)
		}
	}
}

// blockedAircraftAt returns, in a deterministic order, the ids of
// every active aircraft currently stopped at or past the hold
// threshold on an edge ending at nodeID.
func (s *Simulation) blockedAircraftAt(nodeID string) []string {
	var ids []string
	for _, id := range sortedKeys(s.aircraftByID) {
		a := s.aircraftByID[id]
		if a.Phase == aircraft.PhaseCompleted || a.Phase == aircraft.PhaseAtGate {
			continue
		}
		edgeID := a.CurrentEdgeID()
		if edgeID == "" {
			continue
		}
		edge := s.Layout.GetEdge(edgeID)
		if edge == nil || edge.End != nodeID {
			continue
		}
		length := s.Layout.Length(edge)
		if length > 0 && a.PositionOnEdge/length >= movement.HoldThreshold {
			ids = append(ids, a.ID)
		}
	}
	return ids
}

// tickCounts computes this tick's §4.8 series values from the
// post-move aircraft set and capacity state.
func (s *Simulation) tickCounts() observer.TickCounts {
	counts := observer.TickCounts{}
	for _, a := range s.activeAircraft() {
		counts.AircraftOnGround++
		if a.IsArrival {
			counts.ArrivalsOnGround++
		} else {
			counts.DeparturesOnGround++
		}
	}
	for _, q := range s.capacity.Holds {
		n := q.Len()
		counts.QueueLengthTotal += n
		if n > counts.QueueLengthMax {
			counts.QueueLengthMax = n
		}
	}
	for _, rwy := range s.capacity.Runways {
		if len(rwy.Occupants) > 0 {
			counts.RunwaysOccupied++
		}
	}
	return counts
}

func sortedKeys(m map[string]*aircraft.Aircraft) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ApplyMidRunUpdate merges a partial parameter update onto the running
// simulation at the current tick boundary.
func (s *Simulation) ApplyMidRunUpdate(raw []byte) error {
	return s.Params.ApplyMidRunUpdate(raw)
}

// Result is the complete §6 output of a run.
type Result struct {
	Now       float64                     `json:"time"`
	Records   []observer.FlightRecord     `json:"flight_records"`
	Series    observer.SeriesSet          `json:"time_series"`
	Buckets   []observer.ThroughputBucket `json:"throughput_buckets"`
	Histogram []observer.HistogramBin     `json:"taxi_time_histogram"`
	Summary   observer.Summary            `json:"summary"`
}

// Result snapshots the observer's accumulated state into the final
// report.
func (s *Simulation) Result() Result {
	return Result{
		Now:       s.now,
		Records:   s.obs.Records(),
		Series:    s.obs.Series(),
		Buckets:   s.obs.ThroughputBuckets(),
		Histogram: s.obs.TaxiTimeHistogram(),
		Summary:   s.obs.Summary(s.now),
	}
}

// DebugString dumps the simulation's internal state for troubleshooting.
func (s *Simulation) DebugString() string {
	return spew.Sdump(s.aircraftByID, s.capacity)
}

// RunFromJSON validates and runs a simulation described by raw layout
// and parameter JSON documents, returning the marshaled result or a
// §7-shaped error document.
func RunFromJSON(layoutJSON, paramsJSON []byte, logger *log.Logger) ([]byte, error) {
	var l layout.Layout
	if err := util.UnmarshalJSONBytes(layoutJSON, &l); err != nil {
		return errorDocument("failed to parse layout", []string{err.Error()}), nil
	}

	p := params.Default()
	if len(paramsJSON) > 0 {
		if err := util.UnmarshalJSONBytes(paramsJSON, p); err != nil {
			return errorDocument("failed to parse parameters", []string{err.Error()}), nil
		}
	}

	s, layoutErrs, paramErrs := New(&l, p, logger)
	if s == nil {
		if len(layoutErrs) > 0 {
			return errorDocument("layout validation failed", layoutErrs), nil
		}
		return errorDocument("parameter validation failed", paramErrs), nil
	}

	result := s.Run()
	return json.Marshal(result)
}

type errorDoc struct {
	Error   string   `json:"error"`
	Details []string `json:"details"`
}

func errorDocument(msg string, details []string) []byte {
	b, err := json.Marshal(errorDoc{Error: msg, Details: details})
	if err != nil {
		return []byte(fmt.Sprintf(`{"error":%q}`, msg))
	}
	return b
}
