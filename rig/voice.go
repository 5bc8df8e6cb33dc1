package rig

import (
	"sort"

	"go-voice/config"
	"go-voice/envelope"
	"go-voice/param"
	"go-voice/voice"
)

// Voice is one monophonic instrument: allocator, optional latch, amplitude
// envelope and the automation params they drive.
type Voice struct {
	Name string
	Port string // port name pattern; empty listens on master

	Alloc *voice.Allocator
	Amp   *envelope.ADSR
	Latch *envelope.Latch // nil unless configured

	Frequency *param.Automation
	Amplitude *param.Automation
	Params    map[string]*param.Automation
}

func newVoice(clock param.Clock, vc config.VoiceConfig) (*Voice, error) {
	ac, err := vc.Allocator()
	if err != nil {
		return nil, err
	}

	v := &Voice{
		Name:      vc.Name,
		Port:      vc.Port,
		Alloc:     voice.NewAllocator(clock, ac),
		Amp:       envelope.NewADSR(clock, vc.ADSR()),
		Frequency: param.NewAutomation(0),
		Amplitude: param.NewAutomation(0),
		Params:    make(map[string]*param.Automation, len(vc.Params)),
	}
	for _, name := range vc.Params {
		v.Params[name] = param.NewAutomation(0)
	}

	v.Alloc.ConnectFrequency(v.Frequency)
	v.Amp.Connect(v.Amplitude)
	if vc.Latch {
		v.Latch = envelope.NewLatch()
		v.Alloc.ConnectGate(v.Latch)
		v.Latch.Connect(v.Amp)
	} else {
		v.Alloc.ConnectGate(v.Amp)
	}
	return v, nil
}

// Param looks up a built-in or extra param by name
func (v *Voice) Param(name string) *param.Automation {
	switch name {
	case config.ParamFrequency:
		return v.Frequency
	case config.ParamAmplitude:
		return v.Amplitude
	}
	return v.Params[name]
}

// Silence releases held notes and drops a latched gate
func (v *Voice) Silence() {
	v.Alloc.Reset()
	if v.Latch != nil && v.Latch.Value() > 0 {
		v.Latch.Gate(1)
	}
}

func (v *Voice) trim(t float64) {
	v.Frequency.Trim(t)
	v.Amplitude.Trim(t)
	for _, p := range v.Params {
		p.Trim(t)
	}
}

// VoiceState is a point-in-time copy of a voice for display
type VoiceState struct {
	Name      string
	Device    string // bound device id, empty when unbound
	Held      []uint8
	Note      uint8
	Sounding  bool
	Frequency float64
	Amplitude float64
	Latched   bool
	Params    []ParamState
}

type ParamState struct {
	Name  string
	Value float64
}

func (v *Voice) state(now float64) VoiceState {
	s := VoiceState{
		Name:      v.Name,
		Held:      v.Alloc.Held(),
		Frequency: v.Frequency.ValueAt(now),
		Amplitude: v.Amplitude.ValueAt(now),
		Latched:   v.Latch != nil && v.Latch.Value() > 0,
	}
	if dev := v.Alloc.Device(); dev != nil {
		s.Device = dev.ID()
	}
	s.Note, s.Sounding = v.Alloc.Sounding()

	for name, p := range v.Params {
		s.Params = append(s.Params, ParamState{Name: name, Value: p.ValueAt(now)})
	}
	sort.Slice(s.Params, func(i, j int) bool { return s.Params[i].Name < s.Params[j].Name })
	return s
}
