package midi

import (
	"fmt"

	"go-voice/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// Sink receives messages straight from a driver goroutine. The host queues
// them and calls Port.Deliver from its own loop.
type Sink func(p *Port, msg Message)

// Port is a hardware MIDI input exposed as a Device
type Port struct {
	id       string
	inPort   drivers.In
	stopFunc func()
	handler  Handler
}

// OpenPort opens in and starts listening. Every message is copied and
// handed to sink.
func OpenPort(in drivers.In, sink Sink) (*Port, error) {
	p := &Port{
		id:     in.String(),
		inPort: in,
	}

	if !in.IsOpen() {
		if err := in.Open(); err != nil {
			return nil, fmt.Errorf("open %q: %w", p.id, err)
		}
	}

	stop, err := gomidi.ListenTo(in, func(msg gomidi.Message, timestampms int32) {
		raw := make(Message, len(msg))
		copy(raw, msg)
		sink(p, raw)
	}, gomidi.HandleError(func(listenErr error) {
		debug.Log("ports", "listener error on %q: %v", p.id, listenErr)
	}))
	if err != nil {
		_ = in.Close()
		return nil, fmt.Errorf("listen %q: %w", p.id, err)
	}
	p.stopFunc = stop

	debug.Log("ports", "opened %q", p.id)
	return p, nil
}

func (p *Port) ID() string {
	return p.id
}

func (p *Port) SetHandler(h Handler) {
	p.handler = h
}

// Deliver passes msg to the installed handler. Call it from the host loop,
// never from the driver callback.
func (p *Port) Deliver(msg Message) {
	if p.handler != nil {
		p.handler(msg)
	}
}

func (p *Port) Close() error {
	if p.stopFunc != nil {
		p.stopFunc()
		p.stopFunc = nil
	}
	if p.inPort != nil && p.inPort.IsOpen() {
		if err := p.inPort.Close(); err != nil {
			return fmt.Errorf("close %q: %w", p.id, err)
		}
	}
	debug.Log("ports", "closed %q", p.id)
	return nil
}
