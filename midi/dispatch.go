package midi

import (
	"go-voice/debug"
)

// Listener is called for every message dispatched on a device
type Listener func(msg Message)

type registration struct {
	token    any
	listener Listener
}

// Dispatch fans raw MIDI out to listeners registered per device, in
// registration order. One Dispatch is created by the host and handed to
// every voice and router at bind time.
//
// Dispatch is not safe for concurrent use; the host serializes callbacks.
type Dispatch struct {
	devices   []Device
	listeners map[string][]registration
	master    Device
}

// NewDispatch creates an empty registry
func NewDispatch() *Dispatch {
	return &Dispatch{
		listeners: make(map[string][]registration),
	}
}

// RegisterDevice installs the dispatch handler on dev. Registering the
// same device id again does nothing.
func (d *Dispatch) RegisterDevice(dev Device) {
	if dev == nil {
		return
	}
	id := dev.ID()
	if _, ok := d.listeners[id]; ok {
		return
	}

	d.devices = append(d.devices, dev)
	d.listeners[id] = nil
	dev.SetHandler(func(msg Message) {
		d.Dispatch(dev, msg)
	})
	debug.Log("dispatch", "registered device %q", id)
}

// UnregisterDevice forgets the device with dev's id along with its
// listeners and any master promotion, so a reconnected port with the same
// id can be registered fresh.
func (d *Dispatch) UnregisterDevice(dev Device) {
	if dev == nil {
		return
	}
	id := dev.ID()
	if _, ok := d.listeners[id]; !ok {
		return
	}
	delete(d.listeners, id)

	for i := range d.devices {
		if d.devices[i].ID() != id {
			continue
		}
		d.devices[i].SetHandler(nil)
		d.devices = append(d.devices[:i:i], d.devices[i+1:]...)
		break
	}

	if d.master != nil && d.master.ID() == id {
		d.master = nil
		debug.Log("dispatch", "master %q went away", id)
	}
	debug.Log("dispatch", "unregistered device %q", id)
}

// SetMaster promotes dev so its traffic is mirrored to Master's listeners.
// nil clears the promotion.
func (d *Dispatch) SetMaster(dev Device) {
	if dev != nil {
		d.RegisterDevice(dev)
	}
	d.master = dev
	if dev == nil {
		debug.Log("dispatch", "master cleared")
		return
	}
	debug.Log("dispatch", "master is now %q", dev.ID())
}

// Master returns the promoted device, or nil
func (d *Dispatch) Master() Device {
	return d.master
}

// AddListener appends (token, fn) to dev's list, registering dev if needed.
// Tokens must be comparable; a pointer to the listening object is typical.
func (d *Dispatch) AddListener(dev Device, token any, fn Listener) {
	if dev == nil || fn == nil {
		return
	}
	d.RegisterDevice(dev)
	id := dev.ID()
	d.listeners[id] = append(d.listeners[id], registration{token: token, listener: fn})
}

// RemoveListener removes the first registration on dev whose token equals
// token. Unknown devices and tokens are ignored.
func (d *Dispatch) RemoveListener(dev Device, token any) {
	if dev == nil {
		return
	}
	id := dev.ID()
	regs, ok := d.listeners[id]
	if !ok {
		return
	}
	for i := range regs {
		if regs[i].token != token {
			continue
		}
		// Copy rather than shift in place: a dispatch in progress may be
		// iterating the old slice.
		next := make([]registration, 0, len(regs)-1)
		next = append(next, regs[:i]...)
		next = append(next, regs[i+1:]...)
		d.listeners[id] = next
		return
	}
}

// Dispatch delivers msg to dev's listeners, then to Master's listeners if
// dev is the promoted master. Devices call this from their handler slot.
func (d *Dispatch) Dispatch(dev Device, msg Message) {
	if dev == nil {
		return
	}
	id := dev.ID()
	d.deliver(id, msg)

	// Mirroring is decided by device id.
	if d.master != nil && id != MasterID && d.master.ID() == id {
		d.deliver(MasterID, msg)
	}
}

func (d *Dispatch) deliver(id string, msg Message) {
	// Listeners added during this pass wait for the next message
	regs := d.listeners[id]
	for _, r := range regs {
		r.listener(msg)
	}
}

// Devices returns registered device ids in registration order
func (d *Dispatch) Devices() []string {
	ids := make([]string, len(d.devices))
	for i, dev := range d.devices {
		ids[i] = dev.ID()
	}
	return ids
}

// Listeners returns how many listeners dev has
func (d *Dispatch) Listeners(dev Device) int {
	if dev == nil {
		return 0
	}
	return len(d.listeners[dev.ID()])
}
