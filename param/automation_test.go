package param

import (
	"math"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAutomationRamps(t *testing.T) {
	a := NewAutomation(0)
	a.SetValueAtTime(0, 0)
	a.LinearRampToValueAtTime(1, 0.1)
	a.LinearRampToValueAtTime(0.5, 0.3)

	tests := []struct {
		at   float64
		want float64
	}{
		{0, 0},
		{0.05, 0.5},
		{0.1, 1},
		{0.2, 0.75},
		{0.3, 0.5},
		{5, 0.5},
	}
	for _, tt := range tests {
		if got := a.ValueAt(tt.at); !approx(got, tt.want) {
			t.Errorf("ValueAt(%v) = %v, want %v", tt.at, got, tt.want)
		}
	}
}

func TestAutomationCancelHoldsCurrentValue(t *testing.T) {
	a := NewAutomation(0)
	a.SetValueAtTime(0, 0)
	a.LinearRampToValueAtTime(1, 1)

	// Cancel halfway through the ramp
	a.CancelScheduledValues(0.5)
	if got := a.ValueAt(0.5); !approx(got, 0.5) {
		t.Fatalf("held value = %v, want 0.5", got)
	}
	if got := a.ValueAt(0.9); !approx(got, 0.5) {
		t.Fatalf("value after cancel = %v, want 0.5 (ramp should be gone)", got)
	}

	// A ramp scheduled after the cancel starts from the held value
	a.LinearRampToValueAtTime(0, 1.5)
	if got := a.ValueAt(1.0); !approx(got, 0.25) {
		t.Fatalf("release midpoint = %v, want 0.25", got)
	}
}

func TestAutomationCancelWithNothingPending(t *testing.T) {
	a := NewAutomation(0.3)
	a.CancelScheduledValues(2)
	a.CancelScheduledValues(2)

	if got := a.ValueAt(3); !approx(got, 0.3) {
		t.Fatalf("ValueAt = %v, want 0.3", got)
	}
}

func TestAutomationSameTimeKeepsCallOrder(t *testing.T) {
	a := NewAutomation(0)
	a.SetValueAtTime(1, 1)
	a.SetValueAtTime(2, 1)

	events := a.Events()
	if len(events) != 2 || events[0].Value != 1 || events[1].Value != 2 {
		t.Fatalf("events out of order: %+v", events)
	}
	if got := a.ValueAt(1); got != 2 {
		t.Fatalf("ValueAt = %v, want last set (2)", got)
	}
}

func TestAutomationTrim(t *testing.T) {
	a := NewAutomation(0)
	a.SetValueAtTime(0, 0)
	a.LinearRampToValueAtTime(1, 1)
	a.LinearRampToValueAtTime(0, 3)

	a.Trim(2)

	events := a.Events()
	if len(events) != 2 {
		t.Fatalf("expected 2 events after trim, got %+v", events)
	}
	if events[0].Kind != SetValue || !approx(events[0].Value, 0.5) || events[0].Time != 2 {
		t.Fatalf("unexpected anchor %+v", events[0])
	}
	if got := a.ValueAt(2.5); !approx(got, 0.25) {
		t.Fatalf("ValueAt(2.5) = %v, want 0.25", got)
	}
}

func TestManualClockIsMonotonic(t *testing.T) {
	c := NewManualClock(1)
	c.Set(0.5)
	if c.Now() != 1 {
		t.Fatalf("clock went backwards: %v", c.Now())
	}
	c.Advance(0.25)
	c.Advance(-1)
	if c.Now() != 1.25 {
		t.Fatalf("Now = %v, want 1.25", c.Now())
	}
}
