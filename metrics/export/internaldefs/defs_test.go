package internaldefs

import (
	"strings"
	"testing"

	"github.com/MrEthical07/sensorauth"
)

func TestCounterDefsUniqueAndPrefixed(t *testing.T) {
	names := map[string]bool{}
	ids := map[uint16]bool{}
	for _, def := range CounterDefs {
		if !strings.HasPrefix(def.Name, "sensorauth_") || !strings.HasSuffix(def.Name, "_total") {
			t.Errorf("bad counter name %q", def.Name)
		}
		if names[def.Name] || ids[uint16(def.ID)] {
			t.Errorf("duplicate counter %q", def.Name)
		}
		names[def.Name] = true
		ids[uint16(def.ID)] = true
	}
}

func TestHistogramBoundsFollowClientBuckets(t *testing.T) {
	want := []string{"0.05", "0.1", "0.25", "0.5", "1", "2.5", "5", "+Inf"}
	if len(HistogramBounds) != len(want) {
		t.Fatalf("expected %d bounds, got %d", len(want), len(HistogramBounds))
	}
	for i := range want {
		if HistogramBounds[i] != want[i] {
			t.Fatalf("bound %d: expected %q, got %q", i, want[i], HistogramBounds[i])
		}
	}
}

func TestCumulativeBuckets(t *testing.T) {
	got := CumulativeBuckets(sensorauth.LatencySnapshot{Buckets: []uint64{1, 2, 3}})
	want := [8]uint64{1, 3, 6, 6, 6, 6, 6, 6}
	if got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
