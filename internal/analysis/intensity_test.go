package analysis

import (
	"math"
	"testing"
	"time"
)

func TestIntensityRatio(t *testing.T) {
	cfg := IntensityConfig{Window: 28, AnaerobicThreshold: 1.0, AerobicHighThreshold: 4.0}

	tests := []struct {
		name string
		days []IntensityDay
		want float64
	}{
		{
			name: "one intense day in four",
			days: []IntensityDay{
				{Load: 100, AerobicTE: 2, AnaerobicTE: 0},
				{Load: 100, AerobicTE: 2, AnaerobicTE: 0},
				{Load: 100, AerobicTE: 2, AnaerobicTE: 3},
				{Load: 100, AerobicTE: 2, AnaerobicTE: 0},
			},
			want: 0.25,
		},
		{
			name: "high aerobic counts as intense",
			days: []IntensityDay{
				{Load: 60, AerobicTE: 4.0},
				{Load: 140, AerobicTE: 3.9},
			},
			want: 0.3,
		},
		{
			name: "no load",
			days: []IntensityDay{{AnaerobicTE: 5}, {AerobicTE: 5}},
			want: 0,
		},
		{
			name: "empty window",
			want: 0,
		},
		{
			name: "negative and NaN loads ignored",
			days: []IntensityDay{
				{Load: -50, AnaerobicTE: 5},
				{Load: math.NaN(), AnaerobicTE: 5},
				{Load: 100, AnaerobicTE: 5},
			},
			want: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IntensityRatio(tt.days, cfg)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("IntensityRatio() = %v, want %v", got, tt.want)
			}
			if got < 0 || got > 1 {
				t.Errorf("ratio %v outside [0,1]", got)
			}
		})
	}
}

func TestIntensityScenario(t *testing.T) {
	cfg := IntensityConfig{Window: 4, AnaerobicThreshold: 1.0, AerobicHighThreshold: 4.0}
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	anaerobic := []float64{0, 0, 3, 0}
	var records []DailyRecord
	for i, an := range anaerobic {
		records = append(records, DailyRecord{
			Date:        base.AddDate(0, 0, i),
			ActualLoad:  100,
			AerobicTE:   2,
			AnaerobicTE: an,
		})
	}

	last := base.AddDate(0, 0, 3)
	window, padded := HybridWindow(records, last, last, cfg.Window)
	if padded != 0 {
		t.Errorf("padded = %d, want 0", padded)
	}
	ratio := IntensityRatio(window, cfg)
	if math.Abs(ratio-0.25) > 1e-9 {
		t.Errorf("ratio = %v, want 0.25", ratio)
	}
	if got := NormalizeIntensity(ratio); got != 100 {
		t.Errorf("NormalizeIntensity(0.25) = %v, want 100", got)
	}
}

func TestHybridWindow(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	records := []DailyRecord{
		{Date: base, ActualLoad: 40, PlannedLoad: 999, AnaerobicTE: 3},
		{Date: base.AddDate(0, 0, 1), ActualLoad: 50, PlannedLoad: 999},
		{Date: base.AddDate(0, 0, 3), ActualLoad: 999, PlannedLoad: 70},
	}
	today := base.AddDate(0, 0, 1)

	window, padded := HybridWindow(records, today, base.AddDate(0, 0, 3), 6)
	if len(window) != 6 {
		t.Fatalf("window length = %d, want 6", len(window))
	}
	if padded != 2 {
		t.Errorf("padded = %d, want 2", padded)
	}

	wantLoads := []float64{40, 40, 40, 50, 0, 70}
	for i, d := range window {
		if d.Load != wantLoads[i] {
			t.Errorf("day %d load = %v, want %v", i, d.Load, wantLoads[i])
		}
		if want := base.AddDate(0, 0, i-2); !d.Date.Equal(want) {
			t.Errorf("day %d date = %v, want %v", i, d.Date, want)
		}
	}
	if window[0].AnaerobicTE != 3 {
		t.Errorf("padding should copy the earliest day, got %+v", window[0])
	}

	t.Run("no records pads everything", func(t *testing.T) {
		w, p := HybridWindow(nil, today, today, 28)
		if len(w) != 28 || p != 28 {
			t.Errorf("len = %d, padded = %d", len(w), p)
		}
		if IntensityRatio(w, DefaultIntensityConfig()) != 0 {
			t.Error("empty history should have ratio 0")
		}
	})
}

func TestNormalizeIntensity(t *testing.T) {
	tests := []struct {
		ratio float64
		want  float64
	}{
		{0, 0},
		{0.25, 100},
		{0.4, 100},
		{0.5, 100},
		{0.6, 50},
		{0.7, 0},
		{0.9, 0},
		{0.125, math.Pow(0.5, 1.7) * 100},
		{math.NaN(), 0},
	}
	for _, tt := range tests {
		if got := NormalizeIntensity(tt.ratio); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("NormalizeIntensity(%v) = %v, want %v", tt.ratio, got, tt.want)
		}
	}
}
