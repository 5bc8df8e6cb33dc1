package cc

import (
	"testing"

	"go-voice/midi"
	"go-voice/param"
)

type set struct {
	value, time float64
}

type setLog struct {
	sets []set
}

func (s *setLog) SetValueAtTime(value, time float64)          { s.sets = append(s.sets, set{value, time}) }
func (s *setLog) LinearRampToValueAtTime(value, time float64) {}
func (s *setLog) CancelScheduledValues(time float64)          {}

func TestRouterScalesBy128(t *testing.T) {
	clock := param.NewManualClock(1.5)
	r := NewRouter(clock, 2, AnyController)
	a, b := &setLog{}, &setLog{}
	r.Connect(a)
	r.Connect(b)

	r.OnMessage(midi.Message{0xB2, 7, 64})
	r.OnMessage(midi.Message{0xB2, 7, 127})

	for _, target := range []*setLog{a, b} {
		if len(target.sets) != 2 {
			t.Fatalf("sets = %v, want 2", target.sets)
		}
		if target.sets[0] != (set{0.5, 1.5}) {
			t.Fatalf("first set = %+v, want {0.5 1.5}", target.sets[0])
		}
		if target.sets[1].value != 127.0/128 {
			t.Fatalf("full scale = %v, want 127/128", target.sets[1].value)
		}
	}
}

func TestRouterIgnoresOtherMessages(t *testing.T) {
	r := NewRouter(param.NewManualClock(0), 2, AnyController)
	target := &setLog{}
	r.Connect(target)

	r.OnMessage(midi.Message{0xB3, 7, 64}) // other channel
	r.OnMessage(midi.Message{0xB2, 7})     // short
	r.OnMessage(midi.Message{0x92, 60, 100})
	r.OnMessage(midi.Message{})

	if len(target.sets) != 0 {
		t.Fatalf("unexpected sets %v", target.sets)
	}
}

func TestRouterControllerFilter(t *testing.T) {
	r := NewRouter(param.NewManualClock(0), 0, 74)
	target := &setLog{}
	r.Connect(target)

	r.OnMessage(midi.Message{0xB0, 1, 10})
	r.OnMessage(midi.Message{0xB0, 74, 32})

	if len(target.sets) != 1 || target.sets[0].value != 0.25 {
		t.Fatalf("sets = %v, want one 0.25", target.sets)
	}
}

func TestRouterDisconnect(t *testing.T) {
	r := NewRouter(param.NewManualClock(0), 0, AnyController)
	a, b := &setLog{}, &setLog{}
	r.Connect(a)
	r.Connect(b)

	r.Disconnect(a)
	r.Disconnect(a)
	if r.Connections() != 1 {
		t.Fatalf("Connections = %d, want 1", r.Connections())
	}

	r.OnMessage(midi.Message{0xB0, 1, 64})
	if len(a.sets) != 0 || len(b.sets) != 1 {
		t.Fatalf("a=%v b=%v", a.sets, b.sets)
	}
}

func TestRouterBind(t *testing.T) {
	d := midi.NewDispatch()
	knobs := midi.NewVirtualDevice("knobs")
	r := NewRouter(param.NewManualClock(0), 0, AnyController)
	target := &setLog{}
	r.Connect(target)

	r.Bind(d, knobs)
	knobs.Deliver(midi.Message{0xB0, 1, 64})
	r.Unbind()
	r.Unbind()
	knobs.Deliver(midi.Message{0xB0, 1, 64})

	if len(target.sets) != 1 {
		t.Fatalf("sets = %v, want 1", target.sets)
	}
	if r.Device() != nil {
		t.Fatal("Device should be nil after Unbind")
	}
}
