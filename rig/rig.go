package rig

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"go-voice/cc"
	"go-voice/config"
	"go-voice/debug"
	"go-voice/midi"
	"go-voice/param"
)

// Refresh rate for snapshots and automation trimming
const refreshFPS = 30

const inboxSize = 256

// Deliverer is a device whose messages can be handed to its handler.
// Both midi.Port and midi.VirtualDevice are Deliverers.
type Deliverer interface {
	midi.Device
	Deliver(msg midi.Message)
}

type job struct {
	dev Deliverer
	msg midi.Message
	fn  func()
}

type route struct {
	name   string
	port   string
	target string
	router *cc.Router
}

// Tap sees every message before it is dispatched
type Tap func(deviceID string, msg midi.Message)

// Rig owns the Dispatch, voices and CC routes, and serializes every
// callback onto the goroutine running Run.
type Rig struct {
	cfg      *config.Config
	clock    param.Clock
	dispatch *midi.Dispatch

	voices []*Voice
	routes []*route
	ports  []midi.Device // attach order

	tap Tap

	inbox   chan job
	dropped atomic.Uint64

	mu    sync.RWMutex
	state State

	// Notify the monitor of updates
	UpdateChan chan struct{}
}

// State is what the monitor shows
type State struct {
	Master  string
	Ports   []string
	Voices  []VoiceState
	Dropped uint64
}

// New builds voices and routes from cfg. Voices without a port pattern
// listen on midi.Master straight away.
func New(cfg *config.Config, clock param.Clock) (*Rig, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	r := &Rig{
		cfg:        cfg,
		clock:      clock,
		dispatch:   midi.NewDispatch(),
		inbox:      make(chan job, inboxSize),
		UpdateChan: make(chan struct{}, 1),
	}

	for _, vc := range cfg.Voices {
		v, err := newVoice(clock, vc)
		if err != nil {
			return nil, fmt.Errorf("voice %q: %w", vc.Name, err)
		}
		if v.Port == "" {
			v.Alloc.Bind(r.dispatch, midi.Master)
		}
		r.voices = append(r.voices, v)
	}

	for _, rc := range cfg.Routes {
		voiceName, paramName, err := rc.SplitTarget()
		if err != nil {
			return nil, err
		}
		target := r.Voice(voiceName).Param(paramName)

		rt := &route{
			name:   rc.Name,
			port:   rc.Port,
			target: rc.Target,
			router: cc.NewRouter(clock, rc.MIDIChannel(), rc.ControllerFilter()),
		}
		rt.router.Connect(target)
		if rt.port == "" {
			rt.router.Bind(r.dispatch, midi.Master)
		}
		r.routes = append(r.routes, rt)
	}

	r.refresh()
	debug.Log("rig", "built %d voices, %d routes", len(r.voices), len(r.routes))
	return r, nil
}

// Dispatch returns the rig's dispatch registry
func (r *Rig) Dispatch() *midi.Dispatch {
	return r.dispatch
}

// Voice finds a voice by name, or nil
func (r *Rig) Voice(name string) *Voice {
	for _, v := range r.voices {
		if v.Name == name {
			return v
		}
	}
	return nil
}

func (r *Rig) Voices() []*Voice {
	return r.voices
}

// SetTap installs fn to see every message. Call before Run.
func (r *Rig) SetTap(fn Tap) {
	r.tap = fn
}

// Sink is a midi.Sink for ports opened by a DeviceManager
func (r *Rig) Sink(p *midi.Port, msg midi.Message) {
	r.Enqueue(p, msg)
}

// Enqueue queues msg for delivery on dev. It never blocks; when the inbox
// is full the message is dropped and counted.
func (r *Rig) Enqueue(dev Deliverer, msg midi.Message) {
	select {
	case r.inbox <- job{dev: dev, msg: msg}:
	default:
		n := r.dropped.Add(1)
		debug.LogEvery(100, "rig", "inbox full, dropped %d messages", n)
	}
}

// Submit queues fn to run on the rig goroutine, after any messages already
// queued. It blocks while the inbox is full.
func (r *Rig) Submit(fn func()) {
	r.inbox <- job{fn: fn}
}

// Run delivers queued messages and work, attaches and detaches ports from
// events, and refreshes the snapshot (blocking - run in goroutine). events
// may be nil.
func (r *Rig) Run(ctx context.Context, events <-chan midi.DeviceEvent) {
	ticker := time.NewTicker(time.Second / refreshFPS)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, v := range r.voices {
				v.Silence()
			}
			r.refresh()
			debug.Log("rig", "stopped")
			return

		case j := <-r.inbox:
			r.handle(j)
			r.refresh()

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			switch ev.Type {
			case midi.DeviceConnected:
				r.AttachPort(ev.Port)
			case midi.DeviceDisconnected:
				r.DetachPort(ev.ID)
			}
			r.refresh()

		case <-ticker.C:
			now := r.clock.Now()
			for _, v := range r.voices {
				v.trim(now)
			}
			r.refresh()
		}
	}
}

func (r *Rig) handle(j job) {
	if j.fn != nil {
		j.fn()
		return
	}
	if r.tap != nil {
		r.tap(j.dev.ID(), j.msg)
	}
	j.dev.Deliver(j.msg)
}

// AttachPort registers dev and binds every unbound voice and route whose
// port pattern matches its name. A voice already listening on another
// matching port keeps it. Call from the rig goroutine, or before Run.
func (r *Rig) AttachPort(dev midi.Device) {
	if dev == nil {
		return
	}
	id := dev.ID()
	r.DetachPort(id)
	r.dispatch.RegisterDevice(dev)
	r.ports = append(r.ports, dev)
	debug.Log("rig", "attached %q", id)

	if r.wantsMaster(id) {
		r.dispatch.SetMaster(dev)
	}

	r.bindPort(dev)
}

// bindPort hands dev to every pattern-bound voice and route that is
// currently listening nowhere.
func (r *Rig) bindPort(dev midi.Device) {
	id := dev.ID()
	for _, v := range r.voices {
		if v.Port != "" && v.Alloc.Device() == nil && midi.ContainsFold(id, v.Port) {
			v.Alloc.Bind(r.dispatch, dev)
			debug.Log("rig", "voice %q on %q", v.Name, id)
		}
	}
	for _, rt := range r.routes {
		if rt.port != "" && rt.router.Device() == nil && midi.ContainsFold(id, rt.port) {
			rt.router.Bind(r.dispatch, dev)
			debug.Log("rig", "route %q (%s) on %q", rt.name, rt.target, id)
		}
	}
}

// DetachPort unbinds and silences everything listening on the port with
// id. If it was master, master-bound voices are silenced too and another
// port may be promoted.
func (r *Rig) DetachPort(id string) {
	idx := -1
	for i, p := range r.ports {
		if p.ID() == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	dev := r.ports[idx]
	r.ports = append(r.ports[:idx], r.ports[idx+1:]...)

	wasMaster := r.dispatch.Master() != nil && r.dispatch.Master().ID() == id

	for _, v := range r.voices {
		bound := v.Alloc.Device()
		if bound == nil {
			continue
		}
		switch {
		case bound.ID() == id:
			v.Alloc.Unbind()
			v.Silence()
		case wasMaster && bound.ID() == midi.MasterID:
			v.Silence()
		}
	}
	for _, rt := range r.routes {
		if bound := rt.router.Device(); bound != nil && bound.ID() == id {
			rt.router.Unbind()
		}
	}

	r.dispatch.UnregisterDevice(dev)
	debug.Log("rig", "detached %q", id)

	// Orphans move to the next matching port still attached
	for _, p := range r.ports {
		r.bindPort(p)
	}

	if wasMaster {
		for _, p := range r.ports {
			if r.wantsMaster(p.ID()) {
				r.dispatch.SetMaster(p)
				break
			}
		}
	}
}

// wantsMaster reports whether id should be promoted. With no master
// pattern configured the first port attached wins.
func (r *Rig) wantsMaster(id string) bool {
	pattern := r.cfg.Devices.Master
	if pattern == "" {
		return r.dispatch.Master() == nil
	}
	return midi.ContainsFold(id, pattern)
}

// Snapshot returns the last refreshed state. Safe from any goroutine.
func (r *Rig) Snapshot() State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state
}

// refresh rebuilds the snapshot and notifies on change
func (r *Rig) refresh() {
	now := r.clock.Now()
	s := State{
		Dropped: r.dropped.Load(),
	}
	if m := r.dispatch.Master(); m != nil {
		s.Master = m.ID()
	}
	for _, p := range r.ports {
		s.Ports = append(s.Ports, p.ID())
	}
	for _, v := range r.voices {
		s.Voices = append(s.Voices, v.state(now))
	}

	r.mu.Lock()
	changed := !reflect.DeepEqual(r.state, s)
	r.state = s
	r.mu.Unlock()

	if changed {
		r.notifyUpdate()
	}
}

// notifyUpdate signals the monitor without blocking
func (r *Rig) notifyUpdate() {
	select {
	case r.UpdateChan <- struct{}{}:
	default:
	}
}
