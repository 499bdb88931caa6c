package cooldown

import (
	"testing"
	"time"

	"github.com/MrEthical07/sensorauth/clock"
)

func TestCountdownDecrementsByOnePerTickAndClamps(t *testing.T) {
	fake := clock.NewFake(time.Time{})
	cd := New(fake, time.Second)

	var seen []int
	elapsed := 0
	cd.Start(3, func(n int) { seen = append(seen, n) }, func() { elapsed++ })

	if got := cd.Remaining(); got != 3 {
		t.Fatalf("expected 3 remaining before first tick, got %d", got)
	}

	for i := 0; i < 10; i++ {
		fake.Advance(time.Second)
		if got := cd.Remaining(); got < 0 {
			t.Fatalf("remaining went negative: %d", got)
		}
	}

	want := []int{2, 1, 0}
	if len(seen) != len(want) {
		t.Fatalf("expected ticks %v, got %v", want, seen)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Fatalf("expected ticks %v, got %v", want, seen)
		}
	}
	if elapsed != 1 {
		t.Fatalf("expected onElapsed once, got %d", elapsed)
	}
	if fake.Pending() != 0 {
		t.Fatalf("expected countdown to stop scheduling at zero, %d pending", fake.Pending())
	}
}

func TestCountdownRestartReplacesPreviousRun(t *testing.T) {
	fake := clock.NewFake(time.Time{})
	cd := New(fake, time.Second)

	firstTicks := 0
	cd.Start(60, func(int) { firstTicks++ }, nil)
	fake.Advance(15 * time.Second)
	if got := cd.Remaining(); got != 45 {
		t.Fatalf("expected 45 remaining, got %d", got)
	}

	secondTicks := 0
	cd.Start(60, func(int) { secondTicks++ }, nil)
	if got := cd.Remaining(); got != 60 {
		t.Fatalf("expected restart to 60, got %d", got)
	}

	fake.Advance(10 * time.Second)
	if firstTicks != 15 {
		t.Fatalf("expected abandoned countdown to stop ticking at 15, got %d", firstTicks)
	}
	if secondTicks != 10 {
		t.Fatalf("expected 10 ticks from replacement countdown, got %d", secondTicks)
	}
	if got := cd.Remaining(); got != 50 {
		t.Fatalf("expected 50 remaining, got %d", got)
	}
}

func TestCountdownCancelResetsToZero(t *testing.T) {
	fake := clock.NewFake(time.Time{})
	cd := New(fake, time.Second)

	ticked := false
	cd.Start(5, func(int) { ticked = true }, nil)
	cd.Cancel()

	fake.Advance(time.Minute)
	if ticked {
		t.Fatal("expected cancelled countdown not to tick")
	}
	if cd.Active() {
		t.Fatal("expected cancelled countdown to be inactive")
	}
}

func TestCountdownZeroStartElapsesImmediately(t *testing.T) {
	cd := New(clock.NewFake(time.Time{}), time.Second)
	elapsed := false
	cd.Start(0, nil, func() { elapsed = true })
	if !elapsed || cd.Remaining() != 0 {
		t.Fatalf("expected immediate elapse, elapsed=%v remaining=%d", elapsed, cd.Remaining())
	}
}
