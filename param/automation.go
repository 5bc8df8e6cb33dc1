package param

import "sort"

// EventKind identifies a scheduled automation point
type EventKind int

const (
	SetValue EventKind = iota
	LinearRamp
)

func (k EventKind) String() string {
	switch k {
	case SetValue:
		return "set"
	case LinearRamp:
		return "ramp"
	}
	return "unknown"
}

// Event is one point on an automation timeline
type Event struct {
	Kind  EventKind
	Value float64
	Time  float64
}

// Automation is an in-process Target: an ordered list of set/ramp points
// that can be evaluated at any time. A ramp starts from the value and time
// of the point before it (or from the initial value at time 0).
type Automation struct {
	initial float64
	events  []Event
}

// NewAutomation creates an empty timeline holding initial
func NewAutomation(initial float64) *Automation {
	return &Automation{initial: initial}
}

func (a *Automation) SetValueAtTime(value, time float64) {
	a.insert(Event{Kind: SetValue, Value: value, Time: time})
}

func (a *Automation) LinearRampToValueAtTime(value, time float64) {
	a.insert(Event{Kind: LinearRamp, Value: value, Time: time})
}

// CancelScheduledValues drops every point at or after time and pins the
// value held at that moment, so a following ramp starts from it.
func (a *Automation) CancelScheduledValues(time float64) {
	held := a.ValueAt(time)

	i := sort.Search(len(a.events), func(i int) bool { return a.events[i].Time >= time })
	a.events = a.events[:i]

	a.events = append(a.events, Event{Kind: SetValue, Value: held, Time: time})
}

// ValueAt evaluates the timeline at t
func (a *Automation) ValueAt(t float64) float64 {
	prevTime, prevValue := 0.0, a.initial
	for _, e := range a.events {
		if e.Time <= t {
			prevTime, prevValue = e.Time, e.Value
			continue
		}
		if e.Kind == LinearRamp {
			phase := (t - prevTime) / (e.Time - prevTime)
			return prevValue + (e.Value-prevValue)*phase
		}
		return prevValue
	}
	return prevValue
}

// Events returns a copy of the scheduled points in time order
func (a *Automation) Events() []Event {
	out := make([]Event, len(a.events))
	copy(out, a.events)
	return out
}

// Trim collapses everything up to t into a single set point so long
// sessions don't grow the timeline without bound.
func (a *Automation) Trim(t float64) {
	i := sort.Search(len(a.events), func(i int) bool { return a.events[i].Time > t })
	if i == 0 {
		return
	}
	held := a.ValueAt(t)
	rest := a.events[i:]
	events := make([]Event, 0, len(rest)+1)
	events = append(events, Event{Kind: SetValue, Value: held, Time: t})
	a.events = append(events, rest...)
}

// insert keeps points ordered by time; equal times keep call order
func (a *Automation) insert(e Event) {
	i := sort.Search(len(a.events), func(i int) bool { return a.events[i].Time > e.Time })
	a.events = append(a.events, Event{})
	copy(a.events[i+1:], a.events[i:])
	a.events[i] = e
}
