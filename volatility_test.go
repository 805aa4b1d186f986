package main

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStddevFractionalChanges(t *testing.T) {
	// changes: +10%, -10% → mean 0, population stddev 0.1
	got := stddevFractionalChanges([]float64{1.0, 1.1, 0.99})
	if !almostEqual(got, 0.1, 1e-12) {
		t.Errorf("stddev = %g, want 0.1", got)
	}

	if got := stddevFractionalChanges([]float64{42}); got != 0 {
		t.Errorf("single price stddev = %g, want 0", got)
	}
	if got := stddevFractionalChanges(nil); got != 0 {
		t.Errorf("nil prices stddev = %g, want 0", got)
	}
	if got := stddevFractionalChanges([]float64{5, 5, 5, 5}); got != 0 {
		t.Errorf("flat prices stddev = %g, want 0", got)
	}
}

func TestEstimateVolatilityExtendsWindowOnFlatRead(t *testing.T) {
	fake := &fakeExchange{
		pricesByWindow: map[int][]float64{
			60:  {5, 5, 5},         // flat: forces one extension
			120: {1.0, 1.1, 0.99},  // varied
		},
	}
	got, err := estimateVolatility(context.Background(), fake, "token_usdt", 60)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if !almostEqual(got, 0.1, 1e-12) {
		t.Errorf("vol = %g, want 0.1 from the extended window", got)
	}
}

func TestEstimateVolatilityFlatFallback(t *testing.T) {
	// every window flat: bounded extension must terminate with the fallback
	fake := &fakeExchange{prices: []float64{5, 5, 5}}
	got, err := estimateVolatility(context.Background(), fake, "token_usdt", 60)
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	if got != volFlatFallback {
		t.Errorf("vol = %g, want fallback %g", got, volFlatFallback)
	}
}

func TestEstimateVolatilityGatewayError(t *testing.T) {
	fake := &fakeExchange{histErr: errors.New("kline down")}
	if _, err := estimateVolatility(context.Background(), fake, "token_usdt", 60); err == nil {
		t.Fatal("gateway error must propagate")
	}
}

func TestDynamicSleep(t *testing.T) {
	tests := []struct {
		vol  float64
		want time.Duration
	}{
		{0.08, 4 * time.Second},  // busy: halved
		{0.01, 16 * time.Second}, // calm: doubled
		{0.03, 8 * time.Second},  // middling: base
		{0.02, 8 * time.Second},  // boundary is inclusive of base
		{0.05, 8 * time.Second},
		{100, 4 * time.Second}, // extreme vol still just halves
		{0, 16 * time.Second},
	}
	for _, tt := range tests {
		if got := dynamicSleep(tt.vol); got != tt.want {
			t.Errorf("dynamicSleep(%g) = %s, want %s", tt.vol, got, tt.want)
		}
	}
	// clamp bounds hold whatever the schedule produces
	for _, v := range []float64{0, 0.01, 0.03, 0.08, 1000} {
		d := dynamicSleep(v)
		if d < sleepMin || d > sleepMax {
			t.Errorf("dynamicSleep(%g) = %s outside [%s, %s]", v, d, sleepMin, sleepMax)
		}
	}
}
