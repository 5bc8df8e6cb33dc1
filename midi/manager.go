package midi

import (
	"context"
	"strings"
	"sync"
	"time"

	"go-voice/debug"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv" // Register MIDI driver
)

// DeviceEvent is emitted when input ports appear or disappear
type DeviceEvent struct {
	Type DeviceEventType
	Port *Port // nil on disconnect
	ID   string
}

type DeviceEventType int

const (
	DeviceConnected DeviceEventType = iota
	DeviceDisconnected
)

// DefaultExcluded are virtual/system ports that are never opened
var DefaultExcluded = []string{"Midi Through", "Through Port"}

// DeviceManager handles hot-plug detection of MIDI inputs
type DeviceManager struct {
	ports    map[string]*Port
	mu       sync.RWMutex
	events   chan DeviceEvent
	pollRate time.Duration
	exclude  []string
	sink     Sink
	list     func() ([]drivers.In, bool)
}

// NewDeviceManager creates a device manager. Messages from every port it
// opens go to sink.
func NewDeviceManager(sink Sink, exclude []string, pollRate time.Duration) *DeviceManager {
	if pollRate <= 0 {
		pollRate = time.Second
	}
	return &DeviceManager{
		ports:    make(map[string]*Port),
		events:   make(chan DeviceEvent, 16),
		pollRate: pollRate,
		exclude:  exclude,
		sink:     sink,
		list: func() ([]drivers.In, bool) {
			return ListInputs(3 * time.Second)
		},
	}
}

// Events returns a channel of port connect/disconnect events
func (dm *DeviceManager) Events() <-chan DeviceEvent {
	return dm.events
}

// Ports returns a snapshot of open ports
func (dm *DeviceManager) Ports() map[string]*Port {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	copy := make(map[string]*Port, len(dm.ports))
	for k, v := range dm.ports {
		copy[k] = v
	}
	return copy
}

// Run starts the polling loop (blocking - run in goroutine)
func (dm *DeviceManager) Run(ctx context.Context) {
	ticker := time.NewTicker(dm.pollRate)
	defer ticker.Stop()

	// Initial scan
	dm.scan(ctx)

	for {
		select {
		case <-ctx.Done():
			dm.closeAll()
			close(dm.events)
			return
		case <-ticker.C:
			dm.scan(ctx)
		}
	}
}

// ListInputs returns all MIDI inputs. ok is false if the driver didn't
// answer within timeout (CoreMIDI can hang).
func ListInputs(timeout time.Duration) (ins []drivers.In, ok bool) {
	ch := make(chan []drivers.In, 1)
	go func() {
		ch <- gomidi.GetInPorts()
	}()

	select {
	case got := <-ch:
		return got, true
	case <-time.After(timeout):
		debug.Log("ports", "input scan timed out after %v", timeout)
		return nil, false
	}
}

func (dm *DeviceManager) scan(ctx context.Context) {
	inPorts, ok := dm.list()
	if !ok {
		// Driver is hung - skip this scan
		return
	}

	seenIDs := make(map[string]bool)
	var pending []DeviceEvent

	for _, inPort := range inPorts {
		id := inPort.String()
		if dm.excluded(id) {
			continue
		}
		seenIDs[id] = true

		dm.mu.RLock()
		_, exists := dm.ports[id]
		dm.mu.RUnlock()
		if exists {
			continue
		}

		port, err := OpenPort(inPort, dm.sink)
		if err != nil {
			debug.Log("ports", "connect failed: %v", err)
			continue
		}

		dm.mu.Lock()
		dm.ports[id] = port
		dm.mu.Unlock()

		pending = append(pending, DeviceEvent{Type: DeviceConnected, Port: port, ID: id})
	}

	// Check for disconnects
	dm.mu.Lock()
	for id, port := range dm.ports {
		if seenIDs[id] {
			continue
		}
		port.Close()
		delete(dm.ports, id)
		pending = append(pending, DeviceEvent{Type: DeviceDisconnected, ID: id})
	}
	dm.mu.Unlock()

	// Nobody reads events once the host has stopped
	for _, ev := range pending {
		select {
		case dm.events <- ev:
		case <-ctx.Done():
			return
		}
	}
}

func (dm *DeviceManager) excluded(name string) bool {
	for _, pat := range dm.exclude {
		if ContainsFold(name, pat) {
			return true
		}
	}
	return false
}

func (dm *DeviceManager) closeAll() {
	dm.mu.Lock()
	defer dm.mu.Unlock()
	for _, p := range dm.ports {
		p.Close()
	}
	dm.ports = make(map[string]*Port)
}

// ContainsFold is a case-insensitive substring match
func ContainsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
