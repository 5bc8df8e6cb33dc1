package voice

import (
	"fmt"
	"math"
)

// NoteMode decides whether overlapping notes retrigger the gate
type NoteMode int

const (
	// Retrig re-sends gate-on whenever the sounding note changes
	Retrig NoteMode = iota
	// Legato holds the gate on until every key is released
	Legato
)

func (m NoteMode) String() string {
	switch m {
	case Retrig:
		return "retrig"
	case Legato:
		return "legato"
	}
	return fmt.Sprintf("NoteMode(%d)", int(m))
}

// ParseNoteMode accepts "retrig" or "legato"
func ParseNoteMode(s string) (NoteMode, error) {
	switch s {
	case "retrig", "":
		return Retrig, nil
	case "legato":
		return Legato, nil
	}
	return Retrig, fmt.Errorf("unknown note mode %q", s)
}

// Priority picks the audible note among held keys
type Priority int

const (
	LastOn Priority = iota
	Highest
	Lowest
)

func (p Priority) String() string {
	switch p {
	case LastOn:
		return "last-on"
	case Highest:
		return "highest"
	case Lowest:
		return "lowest"
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// ParsePriority accepts "last-on", "highest" or "lowest"
func ParsePriority(s string) (Priority, error) {
	switch s {
	case "last-on", "":
		return LastOn, nil
	case "highest":
		return Highest, nil
	case "lowest":
		return Lowest, nil
	}
	return LastOn, fmt.Errorf("unknown priority %q", s)
}

// Resolve returns the audible note for a non-empty stack
func (p Priority) Resolve(stack []uint8) uint8 {
	if p == LastOn {
		return stack[len(stack)-1]
	}

	highest, lowest := stack[0], stack[0]
	for _, n := range stack {
		if n > highest {
			highest = n
		}
		if n < lowest {
			lowest = n
		}
	}
	if p == Highest {
		return highest
	}
	return lowest
}

// Port selects which side of the allocator a target connects to
type Port int

const (
	PortGate Port = iota
	PortFrequency
)

func (p Port) String() string {
	switch p {
	case PortGate:
		return "gate"
	case PortFrequency:
		return "frequency"
	}
	return fmt.Sprintf("Port(%d)", int(p))
}

// NoteToFrequency maps a MIDI note to Hz, equal temperament with A4 (69) = 440
func NoteToFrequency(note uint8) float64 {
	return 440 * math.Pow(2, (float64(note)-69)/12)
}
