// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package params models the simulation's parameter bundle: a tagged
// variant (Parameter.Mode) with a single Evaluate(rng) function per
// §4.2 and §9 ("no virtual dispatch per tick"), grouped into the
// traffic/environment/movement/separation/priority/capacity/simulation
// sections of the §6 JSON schema.
package params

import (
	"encoding/json"
	"math"

	"github.com/flightops/groundsim/pkg/layout"
	"github.com/flightops/groundsim/pkg/rand"
	"github.com/flightops/groundsim/pkg/util"
)

// ParamMode selects how a Parameter is evaluated.
type ParamMode string

const (
	ModeOff       ParamMode = "off"
	ModeFixed     ParamMode = "fixed"
	ModeRandom    ParamMode = "random"
	ModeRealistic ParamMode = "realistic"
)

// TrafficMode restricts which direction(s) of traffic the spawner admits.
type TrafficMode string

const (
	TrafficDeparturesOnly TrafficMode = "departures_only"
	TrafficArrivalsOnly   TrafficMode = "arrivals_only"
	TrafficMixed          TrafficMode = "mixed"
)

// WeatherCondition is a categorical weather state affecting speed and
// separation multipliers.
type WeatherCondition string

const (
	WeatherGood WeatherCondition = "good"
	WeatherMild WeatherCondition = "mild"
	WeatherBad  WeatherCondition = "bad"
)

// PriorityMode selects the comparator used to order a queue for release.
type PriorityMode string

const (
	PriorityFIFO         PriorityMode = "fifo"
	PriorityRandom       PriorityMode = "random"
	PriorityDepartFirst  PriorityMode = "depart_first"
	PriorityArriveFirst  PriorityMode = "arrive_first"
	PrioritySizePriority PriorityMode = "size_priority"
	PriorityWeighted     PriorityMode = "weighted"
)

var validWeather = map[WeatherCondition]bool{WeatherGood: true, WeatherMild: true, WeatherBad: true}
var validTrafficMode = map[TrafficMode]bool{TrafficDeparturesOnly: true, TrafficArrivalsOnly: true, TrafficMixed: true}
var validPriorityMode = map[PriorityMode]bool{
	PriorityFIFO: true, PriorityRandom: true, PriorityDepartFirst: true,
	PriorityArriveFirst: true, PrioritySizePriority: true, PriorityWeighted: true,
}

// Parameter is (mode, value, min, max, choices); Evaluate interprets it
// against the run-scoped RNG per §4.2.
type Parameter struct {
	Mode    ParamMode     `json:"mode"`
	Value   interface{}   `json:"value,omitempty"`
	Min     *float64      `json:"min_val,omitempty"`
	Max     *float64      `json:"max_val,omitempty"`
	Choices []interface{} `json:"choices,omitempty"`
}

// Fixed returns a Parameter pinned to a constant value.
func Fixed(value interface{}) Parameter { return Parameter{Mode: ModeFixed, Value: value} }

// Evaluate resolves the parameter against the run RNG:
//   - off        -> nil
//   - fixed      -> Value
//   - random     -> uniform choice from Choices, or uniform real in [Min,Max], else Value
//   - realistic  -> currently identical to fixed (reserved for time-varying schedules)
func (p Parameter) Evaluate(rng *rand.Rand) interface{} {
	switch p.Mode {
	case ModeOff:
		return nil
	case ModeFixed:
		return p.Value
	case ModeRandom:
		if len(p.Choices) > 0 {
			return p.Choices[rng.Intn(len(p.Choices))]
		}
		if p.Min != nil && p.Max != nil {
			return rng.Uniform(*p.Min, *p.Max)
		}
		return p.Value
	case ModeRealistic:
		return p.Value
	default:
		return p.Value
	}
}

// Float evaluates the parameter and coerces the result to float64,
// returning def if the parameter is off or not numeric.
func (p Parameter) Float(rng *rand.Rand, def float64) float64 {
	switch v := p.Evaluate(rng).(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err == nil {
			return f
		}
	}
	return def
}

// String evaluates the parameter and coerces the result to string,
// returning def if the parameter is off or not a string.
func (p Parameter) String(rng *rand.Rand, def string) string {
	if v, ok := p.Evaluate(rng).(string); ok {
		return v
	}
	return def
}

///////////////////////////////////////////////////////////////////////////
// Parameter bundle

// TrafficParams configures arrival/departure admission rates and class
// mixes.
type TrafficParams struct {
	DepartureSpawnRate Parameter                      `json:"departure_spawn_rate"`
	ArrivalSpawnRate   Parameter                      `json:"arrival_spawn_rate"`
	DepartureClassMix  map[layout.SizeClass]float64   `json:"departure_class_mix"`
	ArrivalClassMix    map[layout.SizeClass]float64   `json:"arrival_class_mix"`
	Mode               TrafficMode                    `json:"traffic_mode"`
}

// EnvironmentParams configures weather and wind.
type EnvironmentParams struct {
	Weather       Parameter `json:"weather_condition"`
	WindSpeed     Parameter `json:"wind_speed"`
	WindDirection Parameter `json:"wind_direction"`
}

// MovementParams configures per-class base speeds and the section/
// weather multipliers rules.SpeedLimit combines them with.
type MovementParams struct {
	SpeedBase        map[layout.SizeClass]float64 `json:"speed_base"`
	SpeedMultSection map[string]float64           `json:"speed_mult_section"`
	SpeedMultWeather map[WeatherCondition]float64 `json:"speed_mult_weather"`
}

// SeparationParams configures minimum separation distance by section
// type and the weather multiplier applied to it.
type SeparationParams struct {
	Runway      float64                      `json:"runway"`
	Taxiway     float64                      `json:"taxiway"`
	Apron       float64                      `json:"apron"`
	WeatherMult map[WeatherCondition]float64 `json:"weather_mult"`
}

// PriorityParams selects the ordering rule used at each of the three
// decision points where a queue must be released in some order.
type PriorityParams struct {
	Runway       PriorityMode `json:"runway"`
	Intersection PriorityMode `json:"intersection"`
	HoldRelease  PriorityMode `json:"hold_release"`
}

// CapacityParams configures static resource counts.
type CapacityParams struct {
	Gates  map[string]int `json:"gates"`
	Runway int            `json:"runway"`
}

// SimulationParams configures the tick loop itself.
type SimulationParams struct {
	TimeStepSize  float64 `json:"time_step_size"`
	TotalDuration float64 `json:"total_duration"`
	RandomSeed    int64   `json:"random_seed"`
}

// Bundle is the complete, top-level parameter set (§6 schema).
type Bundle struct {
	Traffic     TrafficParams     `json:"traffic"`
	Environment EnvironmentParams `json:"environment"`
	Movement    MovementParams    `json:"movement"`
	Separation  SeparationParams  `json:"separation"`
	Priority    PriorityParams    `json:"priority"`
	Capacity    CapacityParams    `json:"capacity"`
	Simulation  SimulationParams  `json:"simulation"`
}

// Default returns a reasonable default bundle, used when a request
// omits the parameters entirely and as the base a partial JSON document
// is merged onto.
func Default() *Bundle {
	return &Bundle{
		Traffic: TrafficParams{
			DepartureSpawnRate: Fixed(0.5),
			ArrivalSpawnRate:   Fixed(0.3),
			DepartureClassMix:  map[layout.SizeClass]float64{layout.SizeSmall: 0.2, layout.SizeMedium: 0.5, layout.SizeLarge: 0.3},
			ArrivalClassMix:    map[layout.SizeClass]float64{layout.SizeSmall: 0.3, layout.SizeMedium: 0.4, layout.SizeLarge: 0.3},
			Mode:               TrafficMixed,
		},
		Environment: EnvironmentParams{
			Weather:       Fixed(string(WeatherGood)),
			WindSpeed:     Fixed(0.0),
			WindDirection: Fixed(180.0),
		},
		Movement: MovementParams{
			SpeedBase:        map[layout.SizeClass]float64{layout.SizeSmall: 5.0, layout.SizeMedium: 6.0, layout.SizeLarge: 4.0},
			SpeedMultSection: map[string]float64{"runway": 1.0, "taxiway": 0.8, "apron": 0.5},
			SpeedMultWeather: map[WeatherCondition]float64{WeatherGood: 1.0, WeatherMild: 0.9, WeatherBad: 0.7},
		},
		Separation: SeparationParams{
			Runway: 15, Taxiway: 10, Apron: 5,
			WeatherMult: map[WeatherCondition]float64{WeatherGood: 1.0, WeatherMild: 1.2, WeatherBad: 1.5},
		},
		Priority: PriorityParams{Runway: PriorityFIFO, Intersection: PriorityFIFO, HoldRelease: PriorityFIFO},
		Capacity: CapacityParams{Gates: map[string]int{}, Runway: 1},
		Simulation: SimulationParams{
			TimeStepSize: 1.0, TotalDuration: 3600, RandomSeed: 42,
		},
	}
}

// NewRand constructs the single run-scoped RNG, seeded from
// Simulation.RandomSeed (§9: the seed is only honoured at construction).
func (b *Bundle) NewRand() *rand.Rand {
	return rand.NewSeeded(b.Simulation.RandomSeed)
}

// SpawnRate returns the configured spawn rate (aircraft/minute) for the
// given direction, forced to zero when TrafficMode excludes it.
func (b *Bundle) SpawnRate(isArrival bool, rng *rand.Rand) float64 {
	if b.Traffic.Mode == TrafficDeparturesOnly && isArrival {
		return 0
	}
	if b.Traffic.Mode == TrafficArrivalsOnly && !isArrival {
		return 0
	}
	if isArrival {
		return b.Traffic.ArrivalSpawnRate.Float(rng, 0)
	}
	return b.Traffic.DepartureSpawnRate.Float(rng, 0)
}

// Weather evaluates the current weather condition.
func (b *Bundle) Weather(rng *rand.Rand) WeatherCondition {
	return WeatherCondition(b.Environment.Weather.String(rng, string(WeatherGood)))
}

// Wind evaluates the current wind speed (m/s) and direction (degrees,
// wind FROM).
func (b *Bundle) Wind(rng *rand.Rand) (speed, direction float64) {
	return b.Environment.WindSpeed.Float(rng, 0), b.Environment.WindDirection.Float(rng, 0)
}

// ClassMix returns the directional class-mix map.
func (b *Bundle) ClassMix(isArrival bool) map[layout.SizeClass]float64 {
	if isArrival {
		return b.Traffic.ArrivalClassMix
	}
	return b.Traffic.DepartureClassMix
}

// SampleClass draws an aircraft size class from the directional class
// mix via weighted sampling.
func (b *Bundle) SampleClass(isArrival bool, rng *rand.Rand) layout.SizeClass {
	mix := b.ClassMix(isArrival)
	classes := make([]layout.SizeClass, 0, len(mix))
	weights := make([]float64, 0, len(mix))
	// Deterministic order: small, medium, large; any other key in the mix
	// is ignored.
	for _, c := range []layout.SizeClass{layout.SizeSmall, layout.SizeMedium, layout.SizeLarge} {
		if w, ok := mix[c]; ok {
			classes = append(classes, c)
			weights = append(weights, w)
		}
	}
	if len(classes) == 0 {
		return layout.SizeMedium
	}
	idx := rand.SampleIndexWeighted(rng, weights)
	if idx < 0 {
		idx = 0
	}
	return classes[idx]
}

///////////////////////////////////////////////////////////////////////////
// Mid-run update

// midRunUpdate mirrors only the keys §4.2 allows to change mid-run;
// any other key present in the update JSON is silently ignored because
// json.Unmarshal drops fields it doesn't recognize.
type midRunUpdate struct {
	Traffic *struct {
		DepartureSpawnRate *Parameter `json:"departure_spawn_rate"`
		ArrivalSpawnRate   *Parameter `json:"arrival_spawn_rate"`
	} `json:"traffic"`
	Environment *struct {
		Weather       *Parameter `json:"weather_condition"`
		WindSpeed     *Parameter `json:"wind_speed"`
		WindDirection *Parameter `json:"wind_direction"`
	} `json:"environment"`
	Priority *struct {
		Runway       *PriorityMode `json:"runway"`
		Intersection *PriorityMode `json:"intersection"`
		HoldRelease  *PriorityMode `json:"hold_release"`
	} `json:"priority"`
}

// ApplyMidRunUpdate merges a partial JSON document onto b, touching only
// the fields §4.2 designates safe for a mid-run change. It is meant to
// be called at a tick boundary (§5); callers that accept updates mid-
// tick must snapshot-then-apply themselves.
func (b *Bundle) ApplyMidRunUpdate(raw []byte) error {
	var u midRunUpdate
	if err := util.UnmarshalJSONBytes(raw, &u); err != nil {
		return err
	}
	if u.Traffic != nil {
		if u.Traffic.DepartureSpawnRate != nil {
			b.Traffic.DepartureSpawnRate = *u.Traffic.DepartureSpawnRate
		}
		if u.Traffic.ArrivalSpawnRate != nil {
			b.Traffic.ArrivalSpawnRate = *u.Traffic.ArrivalSpawnRate
		}
	}
	if u.Environment != nil {
		if u.Environment.Weather != nil {
			b.Environment.Weather = *u.Environment.Weather
		}
		if u.Environment.WindSpeed != nil {
			b.Environment.WindSpeed = *u.Environment.WindSpeed
		}
		if u.Environment.WindDirection != nil {
			b.Environment.WindDirection = *u.Environment.WindDirection
		}
	}
	if u.Priority != nil {
		if u.Priority.Runway != nil {
			b.Priority.Runway = *u.Priority.Runway
		}
		if u.Priority.Intersection != nil {
			b.Priority.Intersection = *u.Priority.Intersection
		}
		if u.Priority.HoldRelease != nil {
			b.Priority.HoldRelease = *u.Priority.HoldRelease
		}
	}
	return nil
}

///////////////////////////////////////////////////////////////////////////
// Validation (ParamInvalid, §7)

// Validate checks for unknown enum values, non-finite numbers, and
// negative rates, accumulating every problem found.
func (b *Bundle) Validate() []string {
	var e util.ErrorLogger

	e.Push("traffic")
	if !validTrafficMode[b.Traffic.Mode] {
		e.ErrorString("unknown traffic_mode %q", b.Traffic.Mode)
	}
	checkNonNegativeParam(&e, "departure_spawn_rate", b.Traffic.DepartureSpawnRate)
	checkNonNegativeParam(&e, "arrival_spawn_rate", b.Traffic.ArrivalSpawnRate)
	checkClassMix(&e, "departure_class_mix", b.Traffic.DepartureClassMix)
	checkClassMix(&e, "arrival_class_mix", b.Traffic.ArrivalClassMix)
	e.Pop()

	e.Push("environment")
	if b.Environment.Weather.Mode == ModeFixed {
		if s, ok := b.Environment.Weather.Value.(string); ok && !validWeather[WeatherCondition(s)] {
			e.ErrorString("unknown weather_condition %q", s)
		}
	}
	e.Pop()

	e.Push("movement")
	for class, base := range b.Movement.SpeedBase {
		if base < 0 {
			e.ErrorString("speed_base[%s] must be non-negative, got %v", class, base)
		}
	}
	e.Pop()

	e.Push("priority")
	for name, mode := range map[string]PriorityMode{
		"runway": b.Priority.Runway, "intersection": b.Priority.Intersection, "hold_release": b.Priority.HoldRelease,
	} {
		if !validPriorityMode[mode] {
			e.ErrorString("unknown priority mode %q for %s", mode, name)
		}
	}
	e.Pop()

	e.Push("simulation")
	if !isFinitePositive(b.Simulation.TimeStepSize) {
		e.ErrorString("time_step_size must be a finite positive number, got %v", b.Simulation.TimeStepSize)
	}
	if !isFinitePositive(b.Simulation.TotalDuration) {
		e.ErrorString("total_duration must be a finite positive number, got %v", b.Simulation.TotalDuration)
	}
	e.Pop()

	return e.Errors()
}

func checkNonNegativeParam(e *util.ErrorLogger, name string, p Parameter) {
	if p.Mode == ModeFixed {
		if f, ok := p.Value.(float64); ok {
			if math.IsNaN(f) || math.IsInf(f, 0) {
				e.ErrorString("%s is not a finite number", name)
			} else if f < 0 {
				e.ErrorString("%s must not be negative, got %v", name, f)
			}
		}
	}
}

func checkClassMix(e *util.ErrorLogger, name string, mix map[layout.SizeClass]float64) {
	if len(mix) == 0 {
		return
	}
	sum := 0.0
	for _, v := range mix {
		sum += v
	}
	const tol = 1e-3
	if math.Abs(sum-1.0) > tol {
		e.ErrorString("%s probabilities sum to %v, expected 1.0 (tolerance %v)", name, sum, tol)
	}
}

func isFinitePositive(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0) && f > 0
}
