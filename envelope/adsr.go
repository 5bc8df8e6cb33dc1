package envelope

import (
	"go-voice/debug"
	"go-voice/param"
)

// Config holds the envelope shape. Times are seconds, Sustain is a
// fraction of the peak.
type Config struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// DefaultConfig is a short percussive-ish shape
func DefaultConfig() Config {
	return Config{
		Attack:  0.01,
		Decay:   0.1,
		Sustain: 0.7,
		Release: 0.3,
	}
}

// ADSR schedules attack/decay/sustain/release curves on connected targets.
// It never computes samples; it only schedules automation.
type ADSR struct {
	clock   param.Clock
	cfg     Config
	targets []param.Target
}

func NewADSR(clock param.Clock, cfg Config) *ADSR {
	return &ADSR{clock: clock, cfg: cfg}
}

func (e *ADSR) Config() Config {
	return e.cfg
}

// SetConfig takes effect on the next gate
func (e *ADSR) SetConfig(cfg Config) {
	e.cfg = cfg
}

// Connect adds t and pins it to 0 now
func (e *ADSR) Connect(t param.Target) {
	e.targets = append(e.targets, t)
	t.SetValueAtTime(0, e.clock.Now())
}

// Disconnect removes the first connection to t
func (e *ADSR) Disconnect(t param.Target) {
	for i := range e.targets {
		if e.targets[i] == t {
			e.targets = append(e.targets[:i], e.targets[i+1:]...)
			return
		}
	}
}

func (e *ADSR) Connections() int {
	return len(e.targets)
}

// Gate makes ADSR a GateReceiver: v > 0 starts a note at peak v
func (e *ADSR) Gate(v float64) {
	if v > 0 {
		e.NoteOn(v)
		return
	}
	e.NoteOff()
}

// NoteOn restarts the envelope from 0 on every target
func (e *ADSR) NoteOn(peak float64) {
	now := e.clock.Now()
	decayStart := now + e.cfg.Attack
	sustainStart := decayStart + e.cfg.Decay
	sustain := peak * e.cfg.Sustain

	for _, t := range e.targets {
		t.CancelScheduledValues(now)
		t.SetValueAtTime(0, now)
		t.LinearRampToValueAtTime(peak, decayStart)
		t.LinearRampToValueAtTime(sustain, sustainStart)
	}
	debug.Log("env", "on peak=%.3f at %.3f", peak, now)
}

// NoteOff releases from whatever value each target holds now
func (e *ADSR) NoteOff() {
	now := e.clock.Now()
	end := now + e.cfg.Release

	for _, t := range e.targets {
		t.CancelScheduledValues(now)
		t.LinearRampToValueAtTime(0, end)
	}
	debug.Log("env", "off at %.3f", now)
}
