// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package observer records what happened during a run: a per-flight
// record for every completed aircraft, six downsampled time series, a
// 300-second throughput breakdown, and a taxi-time histogram, all
// built up tick by tick and finalized once at the end of the run.
package observer

import (
	"math"
	"sort"

	"github.com/flightops/groundsim/pkg/aircraft"
)

// throughputBucketSeconds is the width of a departure/arrival
// throughput window.
const throughputBucketSeconds = 300

// downsampleTarget is the series length above which a time series is
// strided (by floor(len/downsampleTarget)) rather than kept whole; a
// strided series keeps between downsampleTarget and just under twice
// that many points.
const downsampleTarget = 500

// maxHistogramBins caps the taxi-time histogram at this many
// equal-width bins, below which it uses one bin per distinct observed
// value.
const maxHistogramBins = 20

// FlightRecord is the complete history of one aircraft's run.
type FlightRecord struct {
	ID             string  `json:"id"`
	Class          string  `json:"class"`
	IsArrival      bool    `json:"is_arrival"`
	Gate           string  `json:"gate"`
	SpawnTime      float64 `json:"spawn_time"`
	CompletionTime float64 `json:"completion_time"`
	TaxiTime       float64 `json:"taxi_time"`
	WaitTime       float64 `json:"wait_time"`
}

// TimeSeriesPoint is one (time, value) sample of a tick-level count.
type TimeSeriesPoint struct {
	Time  float64 `json:"time"`
	Count int     `json:"count"`
}

// SeriesSet is the complete §4.8 collection of per-tick time series.
type SeriesSet struct {
	AircraftOnGround   []TimeSeriesPoint `json:"aircraft_on_ground"`
	DeparturesOnGround []TimeSeriesPoint `json:"departures_on_ground"`
	ArrivalsOnGround   []TimeSeriesPoint `json:"arrivals_on_ground"`
	QueueLengthTotal   []TimeSeriesPoint `json:"queue_length_total"`
	QueueLengthMax     []TimeSeriesPoint `json:"queue_length_max"`
	RunwaysOccupied    []TimeSeriesPoint `json:"runways_occupied"`
}

// ThroughputBucket counts completions within one fixed-width window.
type ThroughputBucket struct {
	StartTime  float64 `json:"start_time"`
	Departures int     `json:"departures"`
	Arrivals   int     `json:"arrivals"`
}

// HistogramBin is one equal-width bin of a taxi-time histogram.
type HistogramBin struct {
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
	Count      int     `json:"count"`
}

// Summary is the set of scalar statistics computed over every
// completed flight.
type Summary struct {
	TotalCompleted  int `json:"total_completed"`
	TotalDepartures int `json:"total_departures"`
	TotalArrivals   int `json:"total_arrivals"`

	MeanDuration float64 `json:"mean_duration"`
	MinDuration  float64 `json:"min_duration"`
	MaxDuration  float64 `json:"max_duration"`

	MeanTaxiTime          float64 `json:"mean_taxi_time"`
	MeanTaxiTimeDeparture float64 `json:"mean_taxi_time_departure"`
	MeanTaxiTimeArrival   float64 `json:"mean_taxi_time_arrival"`
	MaxTaxiTime           float64 `json:"max_taxi_time"`

	MeanWaitTime float64 `json:"mean_wait_time"`
	MaxWaitTime  float64 `json:"max_wait_time"`

	ThroughputPerHour float64 `json:"throughput_per_hour"`

	MeanQueueLength float64 `json:"mean_queue_length"`
	MaxQueueLength  int     `json:"max_queue_length"`

	MaxInSystemCount int `json:"max_in_system_count"`
}

// TickCounts is one tick's worth of the six §4.8 series values,
// computed by the driver from its aircraft list and capacity state.
type TickCounts struct {
	AircraftOnGround   int
	DeparturesOnGround int
	ArrivalsOnGround   int
	QueueLengthTotal   int
	QueueLengthMax     int
	RunwaysOccupied    int
}

// Observer accumulates raw samples during a run and produces the
// finished report on demand.
type Observer struct {
	records []FlightRecord

	aircraftOnGround   []TimeSeriesPoint
	departuresOnGround []TimeSeriesPoint
	arrivalsOnGround   []TimeSeriesPoint
	queueLengthTotal   []TimeSeriesPoint
	queueLengthMax     []TimeSeriesPoint
	runwaysOccupied    []TimeSeriesPoint

	buckets map[int]*ThroughputBucket

	maxInSystem int
}

// New returns an empty Observer.
func New() *Observer {
	return &Observer{buckets: make(map[int]*ThroughputBucket)}
}

// RecordTick appends one sample to each of the six tick-level series
// and rolls the completions observed this tick into their throughput
// bucket and flight-record list.
func (o *Observer) RecordTick(now float64, counts TickCounts, completedThisTick []*aircraft.Aircraft) {
	o.aircraftOnGround = append(o.aircraftOnGround, TimeSeriesPoint{Time: now, Count: counts.AircraftOnGround})
	o.departuresOnGround = append(o.departuresOnGround, TimeSeriesPoint{Time: now, Count: counts.DeparturesOnGround})
	o.arrivalsOnGround = append(o.arrivalsOnGround, TimeSeriesPoint{Time: now, Count: counts.ArrivalsOnGround})
	o.queueLengthTotal = append(o.queueLengthTotal, TimeSeriesPoint{Time: now, Count: counts.QueueLengthTotal})
	o.queueLengthMax = append(o.queueLengthMax, TimeSeriesPoint{Time: now, Count: counts.QueueLengthMax})
	o.runwaysOccupied = append(o.runwaysOccupied, TimeSeriesPoint{Time: now, Count: counts.RunwaysOccupied})

	if counts.AircraftOnGround > o.maxInSystem {
		o.maxInSystem = counts.AircraftOnGround
	}

	bucketIdx := int(now) / throughputBucketSeconds
	bucket := o.buckets[bucketIdx]
	if bucket == nil {
		bucket = &ThroughputBucket{StartTime: float64(bucketIdx * throughputBucketSeconds)}
		o.buckets[bucketIdx] = bucket
	}

	for _, a := range completedThisTick {
		o.records = append(o.records, FlightRecord{
			ID: a.ID, Class: string(a.Class), IsArrival: a.IsArrival, Gate: a.GateID,
			SpawnTime: a.SpawnTime, CompletionTime: a.CompletionTime,
			TaxiTime: a.TaxiTime(), WaitTime: a.WaitTime,
		})
		if a.IsArrival {
			bucket.Arrivals++
		} else {
			bucket.Departures++
		}
	}
}

// Records returns every completed flight's record, in completion
// order.
func (o *Observer) Records() []FlightRecord {
	out := append([]FlightRecord(nil), o.records...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CompletionTime < out[j].CompletionTime })
	return out
}

// ThroughputBuckets returns the 300-second throughput windows in
// chronological order.
func (o *Observer) ThroughputBuckets() []ThroughputBucket {
	idxs := make([]int, 0, len(o.buckets))
	for idx := range o.buckets {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	out := make([]ThroughputBucket, 0, len(idxs))
	for _, idx := range idxs {
		out = append(out, *o.buckets[idx])
	}
	return out
}

// Series returns all six tick-level series, each downsampled
// independently.
func (o *Observer) Series() SeriesSet {
	return SeriesSet{
		AircraftOnGround:   downsample(o.aircraftOnGround),
		DeparturesOnGround: downsample(o.departuresOnGround),
		ArrivalsOnGround:   downsample(o.arrivalsOnGround),
		QueueLengthTotal:   downsample(o.queueLengthTotal),
		QueueLengthMax:     downsample(o.queueLengthMax),
		RunwaysOccupied:    downsample(o.runwaysOccupied),
	}
}

// downsample strides a series longer than downsampleTarget by
// floor(len/500), keeping every step-th sample rather than averaging
// over windows. The result is not capped at downsampleTarget: a series
// of 999 points has step 1 and is kept whole.
func downsample(series []TimeSeriesPoint) []TimeSeriesPoint {
	n := len(series)
	if n <= downsampleTarget {
		return append([]TimeSeriesPoint(nil), series...)
	}
	step := n / downsampleTarget
	if step < 1 {
		step = 1
	}
	out := make([]TimeSeriesPoint, 0, n/step+1)
	for i := 0; i < n; i += step {
		out = append(out, series[i])
	}
	return out
}

// TaxiTimeHistogram bins every completed flight's taxi time into
// min(20, distinct observed values) equal-width bins spanning
// [min, max] of the observed taxi times.
func (o *Observer) TaxiTimeHistogram() []HistogramBin {
	if len(o.records) == 0 {
		return nil
	}

	unique := make(map[float64]bool, len(o.records))
	minTaxi, maxTaxi := math.Inf(1), math.Inf(-1)
	for _, r := range o.records {
		unique[r.TaxiTime] = true
		if r.TaxiTime < minTaxi {
			minTaxi = r.TaxiTime
		}
		if r.TaxiTime > maxTaxi {
			maxTaxi = r.TaxiTime
		}
	}

	bins := len(unique)
	if bins > maxHistogramBins {
		bins = maxHistogramBins
	}
	if bins < 1 {
		bins = 1
	}
	if maxTaxi <= minTaxi {
		return []HistogramBin{{LowerBound: minTaxi, UpperBound: maxTaxi, Count: len(o.records)}}
	}

	width := (maxTaxi - minTaxi) / float64(bins)
	out := make([]HistogramBin, bins)
	for i := range out {
		out[i] = HistogramBin{LowerBound: minTaxi + float64(i)*width, UpperBound: minTaxi + float64(i+1)*width}
	}
	for _, r := range o.records {
		idx := int((r.TaxiTime - minTaxi) / width)
		if idx >= bins {
			idx = bins - 1
		}
		out[idx].Count++
	}
	return out
}

// Summary computes scalar statistics over every completed flight.
// elapsedSeconds is the simulated time the run covered, used for the
// throughput-per-hour figure.
func (o *Observer) Summary(elapsedSeconds float64) Summary {
	s := Summary{MaxInSystemCount: o.maxInSystem}
	if len(o.records) == 0 {
		return s
	}

	s.MinDuration = math.Inf(1)
	var sumDuration, sumTaxi, sumTaxiDep, sumTaxiArr, sumWait float64
	var nDep, nArr int

	for _, r := range o.records {
		s.TotalCompleted++
		duration := r.CompletionTime - r.SpawnTime
		sumDuration += duration
		if duration < s.MinDuration {
			s.MinDuration = duration
		}
		if duration > s.MaxDuration {
			s.MaxDuration = duration
		}

		sumTaxi += r.TaxiTime
		if r.TaxiTime > s.MaxTaxiTime {
			s.MaxTaxiTime = r.TaxiTime
		}

		if r.IsArrival {
			s.TotalArrivals++
			nArr++
			sumTaxiArr += r.TaxiTime
		} else {
			s.TotalDepartures++
			nDep++
			sumTaxiDep += r.TaxiTime
		}

		sumWait += r.WaitTime
		if r.WaitTime > s.MaxWaitTime {
			s.MaxWaitTime = r.WaitTime
		}
	}

	s.MeanDuration = sumDuration / float64(s.TotalCompleted)
	s.MeanTaxiTime = sumTaxi / float64(s.TotalCompleted)
	s.MeanWaitTime = sumWait / float64(s.TotalCompleted)
	if nDep > 0 {
		s.MeanTaxiTimeDeparture = sumTaxiDep / float64(nDep)
	}
	if nArr > 0 {
		s.MeanTaxiTimeArrival = sumTaxiArr / float64(nArr)
	}
	if elapsedSeconds > 0 {
		s.ThroughputPerHour = float64(s.TotalCompleted) / (elapsedSeconds / 3600.0)
	}

	var sumQueue float64
	for _, p := range o.queueLengthTotal {
		sumQueue += float64(p.Count)
	}
	if len(o.queueLengthTotal) > 0 {
		s.MeanQueueLength = sumQueue / float64(len(o.queueLengthTotal))
	}
	for _, p := range o.queueLengthMax {
		if p.Count > s.MaxQueueLength {
			s.MaxQueueLength = p.Count
		}
	}

	return s
}
