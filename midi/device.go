package midi

// Handler receives raw messages from a device
type Handler func(msg Message)

// Device is a source of raw MIDI messages. It has a stable id and a single
// handler slot; the Dispatch installs itself there on registration.
type Device interface {
	ID() string
	SetHandler(h Handler)
}

// MasterID is the reserved id of the Master device
const MasterID = "<master>"

// Master names the promoted device in listener lists. It is an identity
// only: each Dispatch mirrors its own promoted device to MasterID, and
// registering Master installs no handler.
var Master Device = masterDevice{}

type masterDevice struct{}

func (masterDevice) ID() string { return MasterID }

func (masterDevice) SetHandler(Handler) {}

// VirtualDevice is a Device with no hardware behind it. Messages are
// injected with Deliver.
type VirtualDevice struct {
	id      string
	handler Handler
}

func NewVirtualDevice(id string) *VirtualDevice {
	return &VirtualDevice{id: id}
}

func (v *VirtualDevice) ID() string {
	return v.id
}

func (v *VirtualDevice) SetHandler(h Handler) {
	v.handler = h
}

// Deliver hands msg to the installed handler, if any
func (v *VirtualDevice) Deliver(msg Message) {
	if v.handler != nil {
		v.handler(msg)
	}
}
