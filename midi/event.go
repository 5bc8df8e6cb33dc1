package midi

import (
	"fmt"

	gomidi "gitlab.com/gomidi/midi/v2"
)

// MIDI message types
const (
	NoteOn  uint8 = 0x90
	NoteOff uint8 = 0x80
	CC      uint8 = 0xB0
)

// Message is a raw MIDI message as delivered by a device. Anything shorter
// than three bytes is invalid; listeners drop those themselves.
type Message []byte

// Valid reports whether the message carries status and both data bytes
func (m Message) Valid() bool {
	return len(m) >= 3
}

// Status returns the high nibble of the status byte (0x90, 0x80, 0xB0...)
func (m Message) Status() uint8 {
	if len(m) == 0 {
		return 0
	}
	return m[0] & 0xF0
}

// Channel returns the low nibble of the status byte (0-15)
func (m Message) Channel() uint8 {
	if len(m) == 0 {
		return 0
	}
	return m[0] & 0x0F
}

func (m Message) Data1() uint8 {
	if len(m) < 2 {
		return 0
	}
	return m[1] & 0x7F
}

func (m Message) Data2() uint8 {
	if len(m) < 3 {
		return 0
	}
	return m[2] & 0x7F
}

// normalized copies the first three bytes into a gomidi message
func (m Message) normalized() gomidi.Message {
	return gomidi.Message{m[0], m[1] & 0x7F, m[2] & 0x7F}
}

// NoteStart reports a note-on with velocity > 0
func (m Message) NoteStart() (channel, note, velocity uint8, ok bool) {
	if !m.Valid() {
		return 0, 0, 0, false
	}
	ok = m.normalized().GetNoteStart(&channel, &note, &velocity)
	return channel, note, velocity, ok
}

// NoteEnd reports a note-off, or a note-on with velocity 0
func (m Message) NoteEnd() (channel, note uint8, ok bool) {
	if !m.Valid() {
		return 0, 0, false
	}
	ok = m.normalized().GetNoteEnd(&channel, &note)
	return channel, note, ok
}

// ControlChange reports a control-change message
func (m Message) ControlChange() (channel, controller, value uint8, ok bool) {
	if !m.Valid() {
		return 0, 0, 0, false
	}
	ok = m.normalized().GetControlChange(&channel, &controller, &value)
	return channel, controller, value, ok
}

func (m Message) String() string {
	if !m.Valid() {
		return fmt.Sprintf("invalid [% X]", []byte(m))
	}
	return m.normalized().String()
}

// Event is a decoded note or controller message
type Event struct {
	Type     uint8 // NoteOn, NoteOff, CC
	Channel  uint8
	Note     uint8 // controller number for CC
	Velocity uint8 // controller value for CC
}

// Event decodes note and controller messages. A note-on with velocity 0
// comes back as NoteOff.
func (m Message) Event() (Event, bool) {
	if ch, note, vel, ok := m.NoteStart(); ok {
		return Event{Type: NoteOn, Channel: ch, Note: note, Velocity: vel}, true
	}
	if ch, note, ok := m.NoteEnd(); ok {
		return Event{Type: NoteOff, Channel: ch, Note: note}, true
	}
	if ch, cc, val, ok := m.ControlChange(); ok {
		return Event{Type: CC, Channel: ch, Note: cc, Velocity: val}, true
	}
	return Event{}, false
}
