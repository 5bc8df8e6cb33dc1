package voice

import (
	"go-voice/debug"
	"go-voice/midi"
	"go-voice/param"
)

// Config holds the allocator settings
type Config struct {
	Mode       NoteMode
	Priority   Priority
	Portamento float64 // glide time in seconds
}

// Allocator drives one monophonic voice from polyphonic key presses. It
// keeps every held key on a stack, picks the audible one by priority, and
// drives gate receivers and frequency targets.
//
// An Allocator is used from the host's callback goroutine only.
type Allocator struct {
	clock param.Clock
	cfg   Config

	gates []param.GateReceiver
	freqs []param.Target

	stack        []uint8
	lastNote     uint8
	lastVelocity uint8

	dispatch *midi.Dispatch
	device   midi.Device
}

// NewAllocator creates a silent allocator
func NewAllocator(clock param.Clock, cfg Config) *Allocator {
	if cfg.Portamento < 0 {
		cfg.Portamento = 0
	}
	return &Allocator{
		clock: clock,
		cfg:   cfg,
	}
}

func (a *Allocator) Config() Config {
	return a.cfg
}

// SetConfig changes mode, priority and glide. Held notes are kept.
func (a *Allocator) SetConfig(cfg Config) {
	if cfg.Portamento < 0 {
		cfg.Portamento = 0
	}
	a.cfg = cfg
}

// ConnectGate adds a gate receiver (port 0)
func (a *Allocator) ConnectGate(g param.GateReceiver) {
	a.gates = append(a.gates, g)
}

// DisconnectGate removes the first connection to g
func (a *Allocator) DisconnectGate(g param.GateReceiver) {
	for i := range a.gates {
		if a.gates[i] == g {
			a.gates = append(a.gates[:i], a.gates[i+1:]...)
			return
		}
	}
}

// ConnectFrequency adds a frequency target (port 1)
func (a *Allocator) ConnectFrequency(t param.Target) {
	a.freqs = append(a.freqs, t)
}

// DisconnectFrequency removes the first connection to t
func (a *Allocator) DisconnectFrequency(t param.Target) {
	for i := range a.freqs {
		if a.freqs[i] == t {
			a.freqs = append(a.freqs[:i], a.freqs[i+1:]...)
			return
		}
	}
}

// Connections returns how many targets are connected on port
func (a *Allocator) Connections(port Port) int {
	switch port {
	case PortGate:
		return len(a.gates)
	case PortFrequency:
		return len(a.freqs)
	}
	return 0
}

// Bind listens on dev through dispatch, dropping any previous binding
func (a *Allocator) Bind(dispatch *midi.Dispatch, dev midi.Device) {
	a.Unbind()
	if dispatch == nil || dev == nil {
		return
	}
	a.dispatch = dispatch
	a.device = dev
	dispatch.AddListener(dev, a, a.OnMessage)
	debug.Log("voice", "bound to %q", dev.ID())
}

// Unbind removes the listener registration. Safe when never bound.
func (a *Allocator) Unbind() {
	if a.dispatch != nil && a.device != nil {
		a.dispatch.RemoveListener(a.device, a)
		debug.Log("voice", "unbound from %q", a.device.ID())
	}
	a.dispatch = nil
	a.device = nil
}

// Device returns the bound device, or nil
func (a *Allocator) Device() midi.Device {
	return a.device
}

// OnMessage handles note messages; everything else is ignored
func (a *Allocator) OnMessage(msg midi.Message) {
	if !msg.Valid() {
		return
	}
	if _, note, velocity, ok := msg.NoteStart(); ok {
		a.NoteOn(note, velocity)
		return
	}
	if _, note, ok := msg.NoteEnd(); ok {
		a.NoteOff(note)
	}
}

// NoteOn pushes note. Velocity 0 is a note-off.
func (a *Allocator) NoteOn(note, velocity uint8) {
	if velocity == 0 {
		a.NoteOff(note)
		return
	}

	a.lastVelocity = velocity
	a.stack = append(a.stack, note)

	now := a.clock.Now()
	glideEnd := now
	if len(a.stack) > 1 {
		glideEnd += a.cfg.Portamento
	}

	a.sendNote(note, glideEnd)
	a.lastNote = note

	if len(a.stack) == 1 || a.cfg.Mode == Retrig {
		a.sendGate(velocity)
	}
}

// NoteOff releases the oldest held copy of note. Notes that aren't held
// are ignored.
func (a *Allocator) NoteOff(note uint8) {
	idx := -1
	for i, n := range a.stack {
		if n == note {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	a.stack = append(a.stack[:idx], a.stack[idx+1:]...)

	if len(a.stack) == 0 {
		a.sendGate(0)
		return
	}

	next := a.cfg.Priority.Resolve(a.stack)
	if a.cfg.Mode == Retrig && next != a.lastNote {
		a.sendGate(a.lastVelocity)
	}

	a.sendNote(next, a.clock.Now()+a.cfg.Portamento)
	a.lastNote = next
}

// Reset releases every held note at once
func (a *Allocator) Reset() {
	if len(a.stack) == 0 {
		return
	}
	a.stack = a.stack[:0]
	a.sendGate(0)
	debug.Log("voice", "all notes off")
}

// Held returns a copy of the note stack, oldest first
func (a *Allocator) Held() []uint8 {
	out := make([]uint8, len(a.stack))
	copy(out, a.stack)
	return out
}

// Sounding returns the audible note; ok is false when silent
func (a *Allocator) Sounding() (note uint8, ok bool) {
	if len(a.stack) == 0 {
		return 0, false
	}
	return a.lastNote, true
}

func (a *Allocator) sendGate(velocity uint8) {
	ratio := float64(velocity) / 128
	for _, g := range a.gates {
		g.Gate(ratio)
	}
	debug.Log("voice", "gate %.3f", ratio)
}

func (a *Allocator) sendNote(note uint8, end float64) {
	freq := NoteToFrequency(note)
	for _, t := range a.freqs {
		t.LinearRampToValueAtTime(freq, end)
	}
}
