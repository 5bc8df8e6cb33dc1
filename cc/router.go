package cc

import (
	"go-voice/debug"
	"go-voice/midi"
	"go-voice/param"
)

// AnyController disables the controller-number filter
const AnyController = -1

// Router forwards control-change values on one channel to parameter
// targets, scaled to value/128.
type Router struct {
	clock      param.Clock
	channel    uint8
	controller int

	targets []param.Target

	dispatch *midi.Dispatch
	device   midi.Device
}

// NewRouter listens for CC on channel (0-15). controller narrows it to one
// controller number; pass AnyController to take them all.
func NewRouter(clock param.Clock, channel uint8, controller int) *Router {
	return &Router{
		clock:      clock,
		channel:    channel & 0x0F,
		controller: controller,
	}
}

func (r *Router) Channel() uint8 {
	return r.channel
}

func (r *Router) Controller() int {
	return r.controller
}

func (r *Router) Connect(t param.Target) {
	r.targets = append(r.targets, t)
}

// Disconnect removes the first connection to t
func (r *Router) Disconnect(t param.Target) {
	for i := range r.targets {
		if r.targets[i] == t {
			r.targets = append(r.targets[:i], r.targets[i+1:]...)
			return
		}
	}
}

func (r *Router) Connections() int {
	return len(r.targets)
}

// Bind listens on dev through dispatch, dropping any previous binding
func (r *Router) Bind(dispatch *midi.Dispatch, dev midi.Device) {
	r.Unbind()
	if dispatch == nil || dev == nil {
		return
	}
	r.dispatch = dispatch
	r.device = dev
	dispatch.AddListener(dev, r, r.OnMessage)
	debug.Log("cc", "ch%d bound to %q", r.channel, dev.ID())
}

// Unbind removes the listener registration. Safe when never bound.
func (r *Router) Unbind() {
	if r.dispatch != nil && r.device != nil {
		r.dispatch.RemoveListener(r.device, r)
	}
	r.dispatch = nil
	r.device = nil
}

func (r *Router) Device() midi.Device {
	return r.device
}

// OnMessage schedules value/128 on every target for matching CC messages
func (r *Router) OnMessage(msg midi.Message) {
	if !msg.Valid() || msg.Status() != midi.CC || msg.Channel() != r.channel {
		return
	}
	if r.controller != AnyController && int(msg.Data1()) != r.controller {
		return
	}

	// 128, not 127: full scale never quite reaches 1
	value := float64(msg.Data2()) / 128
	now := r.clock.Now()
	for _, t := range r.targets {
		t.SetValueAtTime(value, now)
	}
	debug.LogEvery(32, "cc", "ch%d cc%d -> %.3f", r.channel, msg.Data1(), value)
}
