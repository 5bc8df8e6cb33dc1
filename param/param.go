package param

// Target is a parameter whose value can be automated over host time.
// Times are seconds on the host clock and never go backwards.
type Target interface {
	SetValueAtTime(value, time float64)
	LinearRampToValueAtTime(value, time float64)
	// CancelScheduledValues drops events at or after time. The value the
	// target holds at that moment is kept.
	CancelScheduledValues(time float64)
}

// GateReceiver takes a gate signal: 0 is off, anything above 0 is on
// with that intensity.
type GateReceiver interface {
	Gate(ratio float64)
}

// Clock reads the host's current time in seconds.
type Clock interface {
	Now() float64
}
