package playback

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"

	"go-voice/debug"
	"go-voice/midi"
)

// Cue is one channel message at an offset from the start of the file
type Cue struct {
	At  float64 // seconds
	Msg midi.Message
}

// Load reads every track of a standard MIDI file and merges the channel
// messages into one time-ordered list. Tempo changes are applied.
func Load(path string) ([]Cue, error) {
	return collect(smf.ReadTracks(path))
}

// Read is Load for an already open file
func Read(r io.Reader) ([]Cue, error) {
	return collect(smf.ReadTracksFrom(r))
}

func collect(tr *smf.TracksReader) ([]Cue, error) {
	var cues []Cue
	tr.Do(func(te smf.TrackEvent) {
		// channel voice messages only; meta and sysex start at 0xF0
		if len(te.Message) == 0 || te.Message[0] < 0x80 || te.Message[0] >= 0xF0 {
			return
		}
		msg := make(midi.Message, len(te.Message))
		copy(msg, te.Message)
		cues = append(cues, Cue{
			At:  float64(te.AbsMicroSeconds) / 1e6,
			Msg: msg,
		})
	})
	if err := tr.Error(); err != nil {
		return nil, fmt.Errorf("read midi file: %w", err)
	}

	// Tracks arrive one after another; keep each track's order at equal times
	sort.SliceStable(cues, func(i, j int) bool { return cues[i].At < cues[j].At })
	return cues, nil
}

// Player walks a cue list against elapsed time
type Player struct {
	cues []Cue
	pos  int
}

func NewPlayer(cues []Cue) *Player {
	return &Player{cues: cues}
}

// Len returns the number of cues
func (p *Player) Len() int {
	return len(p.cues)
}

// Duration returns the time of the last cue
func (p *Player) Duration() float64 {
	if len(p.cues) == 0 {
		return 0
	}
	return p.cues[len(p.cues)-1].At
}

// Done reports whether every cue has been sent
func (p *Player) Done() bool {
	return p.pos >= len(p.cues)
}

// Rewind starts over from the first cue
func (p *Player) Rewind() {
	p.pos = 0
}

// Until sends every pending cue at or before t and returns how many were
// sent.
func (p *Player) Until(t float64, send func(midi.Message)) int {
	n := 0
	for p.pos < len(p.cues) && p.cues[p.pos].At <= t {
		send(p.cues[p.pos].Msg)
		p.pos++
		n++
	}
	return n
}

// Play sends cues in real time from the current position until the list
// runs out or ctx is cancelled.
func (p *Player) Play(ctx context.Context, send func(midi.Message)) error {
	if p.Done() {
		return nil
	}
	offset := p.cues[p.pos].At
	start := time.Now()
	timer := time.NewTimer(0)
	defer timer.Stop()

	debug.Log("playback", "playing %d cues from %.3fs", len(p.cues)-p.pos, offset)
	for !p.Done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		elapsed := offset + time.Since(start).Seconds()
		p.Until(elapsed, send)
		if p.Done() {
			break
		}

		wait := time.Duration((p.cues[p.pos].At - elapsed) * float64(time.Second))
		if wait < 0 {
			wait = 0
		}
		timer.Reset(wait)
	}
	return nil
}
