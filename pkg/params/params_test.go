// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package params

import (
	"encoding/json"
	"testing"

	"github.com/flightops/groundsim/pkg/layout"
	"github.com/flightops/groundsim/pkg/rand"
)

func TestParameterEvaluateModes(t *testing.T) {
	rng := rand.NewSeeded(1)

	if v := (Parameter{Mode: ModeOff}).Evaluate(rng); v != nil {
		t.Fatalf("off mode should evaluate to nil, got %v", v)
	}
	if v := Fixed(3.5).Evaluate(rng); v != 3.5 {
		t.Fatalf("fixed mode should return its value, got %v", v)
	}

	min, max := 1.0, 2.0
	rp := Parameter{Mode: ModeRandom, Min: &min, Max: &max}
	for i := 0; i < 20; i++ {
		v, ok := rp.Evaluate(rng).(float64)
		if !ok || v < min || v >= max {
			t.Fatalf("random range parameter produced out-of-range value %v", v)
		}
	}

	cp := Parameter{Mode: ModeRandom, Choices: []interface{}{"good", "bad"}}
	for i := 0; i < 20; i++ {
		v, ok := cp.Evaluate(rng).(string)
		if !ok || (v != "good" && v != "bad") {
			t.Fatalf("choice parameter produced unexpected value %v", v)
		}
	}
}

func TestBundleDefaultValidates(t *testing.T) {
	b := Default()
	if errs := b.Validate(); len(errs) != 0 {
		t.Fatalf("expected default bundle to validate cleanly, got %v", errs)
	}
}

func TestValidateRejectsBadClassMix(t *testing.T) {
	b := Default()
	b.Traffic.DepartureClassMix = map[layout.SizeClass]float64{layout.SizeSmall: 0.1, layout.SizeMedium: 0.1}
	errs := b.Validate()
	if len(errs) == 0 {
		t.Fatal("expected validation error for class mix not summing to 1")
	}
}

func TestValidateRejectsNegativeRate(t *testing.T) {
	b := Default()
	b.Traffic.DepartureSpawnRate = Fixed(-1.0)
	errs := b.Validate()
	if len(errs) == 0 {
		t.Fatal("expected validation error for negative spawn rate")
	}
}

func TestValidateRejectsUnknownEnum(t *testing.T) {
	b := Default()
	b.Traffic.Mode = TrafficMode("sideways")
	errs := b.Validate()
	if len(errs) == 0 {
		t.Fatal("expected validation error for unknown traffic_mode")
	}
}

func TestApplyMidRunUpdateOnlyTouchesAllowedFields(t *testing.T) {
	b := Default()
	originalDuration := b.Simulation.TotalDuration
	originalSpeed := b.Movement.SpeedBase[layout.SizeMedium]

	update := []byte(`{
		"traffic": {"departure_spawn_rate": {"mode": "fixed", "value": 0.9}},
		"environment": {"weather_condition": {"mode": "fixed", "value": "bad"}},
		"priority": {"runway": "size_priority"},
		"simulation": {"total_duration": 999999},
		"movement": {"speed_base": {"medium": 999}}
	}`)

	if err := b.ApplyMidRunUpdate(update); err != nil {
		t.Fatalf("ApplyMidRunUpdate: %v", err)
	}

	rng := rand.NewSeeded(1)
	if got := b.Traffic.DepartureSpawnRate.Float(rng, -1); got != 0.9 {
		t.Fatalf("expected departure_spawn_rate updated to 0.9, got %v", got)
	}
	if got := b.Weather(rng); got != WeatherBad {
		t.Fatalf("expected weather updated to bad, got %v", got)
	}
	if b.Priority.Runway != PrioritySizePriority {
		t.Fatalf("expected runway priority updated to size_priority, got %v", b.Priority.Runway)
	}
	if b.Simulation.TotalDuration != originalDuration {
		t.Fatalf("total_duration must not change via mid-run update, got %v want %v", b.Simulation.TotalDuration, originalDuration)
	}
	if b.Movement.SpeedBase[layout.SizeMedium] != originalSpeed {
		t.Fatalf("speed_base must not change via mid-run update, got %v want %v", b.Movement.SpeedBase[layout.SizeMedium], originalSpeed)
	}
}

func TestSampleClassRespectsMix(t *testing.T) {
	b := Default()
	b.Traffic.DepartureClassMix = map[layout.SizeClass]float64{layout.SizeLarge: 1.0}
	rng := rand.NewSeeded(3)
	for i := 0; i < 10; i++ {
		if c := b.SampleClass(false, rng); c != layout.SizeLarge {
			t.Fatalf("expected sampled class large, got %v", c)
		}
	}
}

func TestBundleJSONRoundTrip(t *testing.T) {
	b := Default()
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var b2 Bundle
	if err := json.Unmarshal(data, &b2); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	data2, err := json.Marshal(&b2)
	if err != nil {
		t.Fatalf("remarshal: %v", err)
	}
	if string(data) != string(data2) {
		t.Fatalf("params round trip not a fixed point:\n%s\nvs\n%s", data, data2)
	}
}
