package envelope

import (
	"go-voice/debug"
	"go-voice/param"
)

// Latch turns momentary gates into toggles. Each gate-on flips the
// latched value between 0 and the incoming intensity; gate-off is ignored.
type Latch struct {
	value float64
	gates []param.GateReceiver
}

func NewLatch() *Latch {
	return &Latch{}
}

// Value returns the latched gate, 0 when off
func (l *Latch) Value() float64 {
	return l.value
}

// Connect adds g and sends it the current value
func (l *Latch) Connect(g param.GateReceiver) {
	l.gates = append(l.gates, g)
	g.Gate(l.value)
}

// Disconnect turns g off if the latch is on, then removes the first
// connection to it.
func (l *Latch) Disconnect(g param.GateReceiver) {
	for i := range l.gates {
		if l.gates[i] != g {
			continue
		}
		if l.value > 0 {
			g.Gate(0)
		}
		l.gates = append(l.gates[:i], l.gates[i+1:]...)
		return
	}
}

func (l *Latch) Connections() int {
	return len(l.gates)
}

func (l *Latch) Gate(v float64) {
	if v <= 0 {
		return
	}
	if l.value > 0 {
		l.value = 0
	} else {
		l.value = v
	}
	for _, g := range l.gates {
		g.Gate(l.value)
	}
	debug.Log("env", "latch %.3f", l.value)
}
