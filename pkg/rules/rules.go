// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package rules implements the pure, stateless decision functions §4.1
// describes: edge access, section classification, speed limits,
// separation minima, queue priority ordering, and active-runway-
// direction selection from wind. Nothing here holds simulation state;
// every function takes what it needs as arguments.
package rules

import (
	"sort"

	"github.com/flightops/groundsim/pkg/layout"
	"github.com/flightops/groundsim/pkg/params"
	"github.com/flightops/groundsim/pkg/rand"
)

// SectionType classifies an edge into one of the three speed/separation
// buckets the speed and separation tables are keyed on.
func SectionType(e *layout.Edge) string {
	switch e.Kind {
	case layout.EdgeRunway:
		return "runway"
	case layout.EdgeApronLink:
		return "apron"
	default:
		return "taxiway"
	}
}

// CanAccess reports whether an aircraft of the given class, moving in
// the given direction, may use edge e: its AllowedFlow must admit the
// direction, and both endpoints' size-class restrictions (if any) must
// accommodate class.
func CanAccess(l *layout.Layout, e *layout.Edge, class layout.SizeClass, isArrival bool) bool {
	switch e.AllowedFlow {
	case layout.FlowArrival:
		if !isArrival {
			return false
		}
	case layout.FlowDeparture:
		if isArrival {
			return false
		}
	}
	for _, id := range []string{e.Start, e.End} {
		if n := l.GetNode(id); n != nil && n.SizeClass != "" {
			if !layout.Compatible(class, n.SizeClass) {
				return false
			}
		}
	}
	return true
}

// SpeedLimit returns the effective speed (m/s) for an
// aircraft of the given class crossing edge e, combining its base
// per-class speed with the section and weather multipliers, and capped
// by the edge's own speed hint when one is set.
func SpeedLimit(e *layout.Edge, class layout.SizeClass, p *params.Bundle, weather params.WeatherCondition) float64 {
	base := p.Movement.SpeedBase[class]
	if base <= 0 {
		base = p.Movement.SpeedBase[layout.SizeMedium]
	}
	sectionMult := p.Movement.SpeedMultSection[SectionType(e)]
	if sectionMult <= 0 {
		sectionMult = 1
	}
	weatherMult := p.Movement.SpeedMultWeather[weather]
	if weatherMult <= 0 {
		weatherMult = 1
	}
	limit := base * sectionMult * weatherMult
	if e.SpeedHint != nil && *e.SpeedHint > 0 && *e.SpeedHint < limit {
		limit = *e.SpeedHint
	}
	return limit
}

// Separation returns the minimum following distance required on an
// edge of e's section type, scaled by the current weather.
func Separation(e *layout.Edge, p *params.Bundle, weather params.WeatherCondition) float64 {
	var base float64
	switch SectionType(e) {
	case "runway":
		base = p.Separation.Runway
	case "apron":
		base = p.Separation.Apron
	default:
		base = p.Separation.Taxiway
	}
	mult := p.Separation.WeatherMult[weather]
	if mult <= 0 {
		mult = 1
	}
	return base * mult
}

// ActiveRunwayDirection picks the runway end name in use given the wind
// direction aircraft should land/depart into: winds from the western
// semicircle [180, 360) favor "27", winds from the eastern semicircle
// [0, 180) favor "09". This matches a simple two-threshold runway
// naming convention; layouts with other runway name pairs should treat
// the return value as "the reciprocal-favored end" and map it locally.
func ActiveRunwayDirection(windFromDegrees float64) string {
	wind := windFromDegrees
	for wind < 0 {
		wind += 360
	}
	for wind >= 360 {
		wind -= 360
	}
	if wind >= 180 && wind < 360 {
		return "27"
	}
	return "09"
}

// PriorityOrder returns a permutation of [0, n) describing the release
// order for a queue of n waiting items, according to mode. isArrival
// and sizeOf are queried by original queue index. ties break by the
// original (FIFO) order so the function is deterministic for a given
// rng draw sequence.
func PriorityOrder(n int, mode params.PriorityMode, isArrival func(i int) bool, sizeOf func(i int) layout.SizeClass, rng *rand.Rand) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}

	switch mode {
	case params.PriorityFIFO:
		// order already is FIFO.
	case params.PriorityRandom:
		for i := n - 1; i > 0; i-- {
			j := rng.Intn(i + 1)
			order[i], order[j] = order[j], order[i]
		}
	case params.PriorityDepartFirst:
		stableSortBy(order, func(i int) int {
			if isArrival(i) {
				return 1
			}
			return 0
		})
	case params.PriorityArriveFirst:
		stableSortBy(order, func(i int) int {
			if isArrival(i) {
				return 0
			}
			return 1
		})
	case params.PrioritySizePriority:
		rank := map[layout.SizeClass]int{layout.SizeLarge: 0, layout.SizeMedium: 1, layout.SizeSmall: 2}
		stableSortBy(order, func(i int) int { return rank[sizeOf(i)] })
	case params.PriorityWeighted:
		// Reserved: scoring semantics are not yet defined, so weighted
		// release is the fifo order (original queue position) until
		// they are.
	}

	return order
}

// stableSortBy stably sorts order by the key function, preserving
// relative position among equal keys.
func stableSortBy(order []int, key func(i int) int) {
	sort.SliceStable(order, func(a, b int) bool {
		return key(order[a]) < key(order[b])
	})
}
