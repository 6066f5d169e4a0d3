package utils

import (
	"math"
	"testing"
)

func TestHaversineKm(t *testing.T) {
	// Astana to Almaty is roughly 970 km.
	d := HaversineKm(51.1605, 71.4704, 43.2389, 76.8897)
	if math.Abs(d-970) > 30 {
		t.Fatalf("expected ~970km, got %f", d)
	}
}

func TestHaversineZeroDistance(t *testing.T) {
	if d := HaversineKm(51.1, 71.4, 51.1, 71.4); d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}
