package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-voice/cc"
	"go-voice/envelope"
	"go-voice/voice"
)

// DevicesConfig controls port discovery
type DevicesConfig struct {
	Master     string   `json:"master,omitempty"` // port name pattern promoted to master
	Exclude    []string `json:"exclude,omitempty"`
	PollMillis int      `json:"pollMillis,omitempty"`
}

// EnvelopeConfig is the amplitude envelope for a voice
type EnvelopeConfig struct {
	Attack  float64 `json:"attack"`
	Decay   float64 `json:"decay"`
	Sustain float64 `json:"sustain"`
	Release float64 `json:"release"`
}

// VoiceConfig defines one monophonic voice
type VoiceConfig struct {
	Name       string         `json:"name"`
	Port       string         `json:"port,omitempty"` // empty listens on master
	NoteMode   string         `json:"noteMode,omitempty"`
	Priority   string         `json:"priority,omitempty"`
	Portamento float64        `json:"portamento,omitempty"`
	Envelope   EnvelopeConfig `json:"envelope"`
	Latch      bool           `json:"latch,omitempty"`
	Params     []string       `json:"params,omitempty"` // extra CC-addressable params
}

// RouteConfig sends a CC stream to a voice parameter
type RouteConfig struct {
	Name       string `json:"name,omitempty"`
	Port       string `json:"port,omitempty"`
	Channel    int    `json:"channel"`              // 1-16
	Controller *int   `json:"controller,omitempty"` // nil takes any controller
	Target     string `json:"target"`               // "voice/param"
}

// Config is the main configuration structure
type Config struct {
	Devices DevicesConfig `json:"devices"`
	Voices  []VoiceConfig `json:"voices,omitempty"`
	Routes  []RouteConfig `json:"routes,omitempty"`
}

// DefaultConfig returns one lead voice on master with a mod wheel route
func DefaultConfig() *Config {
	modWheel := 1
	env := envelope.DefaultConfig()
	return &Config{
		Devices: DevicesConfig{
			Exclude:    []string{"Midi Through", "Through Port"},
			PollMillis: 1000,
		},
		Voices: []VoiceConfig{
			{
				Name:     "lead",
				NoteMode: voice.Retrig.String(),
				Priority: voice.LastOn.String(),
				Envelope: EnvelopeConfig{
					Attack:  env.Attack,
					Decay:   env.Decay,
					Sustain: env.Sustain,
					Release: env.Release,
				},
				Params: []string{"cutoff"},
			},
		},
		Routes: []RouteConfig{
			{
				Name:       "mod wheel",
				Channel:    1,
				Controller: &modWheel,
				Target:     "lead/cutoff",
			},
		},
	}
}

// ConfigDir returns the config directory path
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "go-voice"), nil
}

// ConfigPath returns the full path to config.json
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// Load reads the config from disk, or returns defaults if not found
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads the config at path, or returns defaults if not found
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &cfg, nil
}

// Save writes the config to disk
func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

// SaveTo writes the config to path, creating its directory
func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// FindVoice finds a voice config by name
func (c *Config) FindVoice(name string) *VoiceConfig {
	for i := range c.Voices {
		if c.Voices[i].Name == name {
			return &c.Voices[i]
		}
	}
	return nil
}

// Validate checks names, modes and route targets
func (c *Config) Validate() error {
	seen := make(map[string]bool)
	for _, v := range c.Voices {
		if v.Name == "" {
			return fmt.Errorf("voice without a name")
		}
		if seen[v.Name] {
			return fmt.Errorf("duplicate voice %q", v.Name)
		}
		seen[v.Name] = true

		if _, err := v.Allocator(); err != nil {
			return fmt.Errorf("voice %q: %w", v.Name, err)
		}
		if v.Portamento < 0 {
			return fmt.Errorf("voice %q: negative portamento", v.Name)
		}
		e := v.Envelope
		if e.Attack < 0 || e.Decay < 0 || e.Release < 0 {
			return fmt.Errorf("voice %q: negative envelope time", v.Name)
		}
		if e.Sustain < 0 || e.Sustain > 1 {
			return fmt.Errorf("voice %q: sustain %.2f outside 0-1", v.Name, e.Sustain)
		}
	}

	for i, r := range c.Routes {
		label := r.Name
		if label == "" {
			label = fmt.Sprintf("#%d", i)
		}
		if r.Channel < 1 || r.Channel > 16 {
			return fmt.Errorf("route %s: channel %d outside 1-16", label, r.Channel)
		}
		if r.Controller != nil && (*r.Controller < 0 || *r.Controller > 127) {
			return fmt.Errorf("route %s: controller %d outside 0-127", label, *r.Controller)
		}
		voiceName, param, err := r.SplitTarget()
		if err != nil {
			return fmt.Errorf("route %s: %w", label, err)
		}
		v := c.FindVoice(voiceName)
		if v == nil {
			return fmt.Errorf("route %s: unknown voice %q", label, voiceName)
		}
		if !v.HasParam(param) {
			return fmt.Errorf("route %s: voice %q has no param %q", label, voiceName, param)
		}
	}
	return nil
}

// Allocator converts the voice settings
func (v *VoiceConfig) Allocator() (voice.Config, error) {
	mode, err := voice.ParseNoteMode(v.NoteMode)
	if err != nil {
		return voice.Config{}, err
	}
	priority, err := voice.ParsePriority(v.Priority)
	if err != nil {
		return voice.Config{}, err
	}
	return voice.Config{
		Mode:       mode,
		Priority:   priority,
		Portamento: v.Portamento,
	}, nil
}

// ADSR converts the envelope settings
func (v *VoiceConfig) ADSR() envelope.Config {
	return envelope.Config{
		Attack:  v.Envelope.Attack,
		Decay:   v.Envelope.Decay,
		Sustain: v.Envelope.Sustain,
		Release: v.Envelope.Release,
	}
}

// Built-in params every voice has
const (
	ParamFrequency = "frequency"
	ParamAmplitude = "amplitude"
)

// HasParam reports whether name is a built-in or extra param
func (v *VoiceConfig) HasParam(name string) bool {
	if name == ParamFrequency || name == ParamAmplitude {
		return true
	}
	for _, p := range v.Params {
		if p == name {
			return true
		}
	}
	return false
}

// SplitTarget parses "voice/param"
func (r *RouteConfig) SplitTarget() (voiceName, param string, err error) {
	voiceName, param, ok := strings.Cut(r.Target, "/")
	if !ok || voiceName == "" || param == "" {
		return "", "", fmt.Errorf("target %q is not voice/param", r.Target)
	}
	return voiceName, param, nil
}

// MIDIChannel is the zero-based channel the router filters on
func (r *RouteConfig) MIDIChannel() uint8 {
	return uint8(r.Channel - 1)
}

// ControllerFilter returns the controller number or cc.AnyController
func (r *RouteConfig) ControllerFilter() int {
	if r.Controller == nil {
		return cc.AnyController
	}
	return *r.Controller
}
