package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"go-voice/config"
	"go-voice/debug"
	"go-voice/midi"
	"go-voice/param"
	"go-voice/playback"
	"go-voice/rig"
	"go-voice/theme"
	"go-voice/voice"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
	configPath := fs.String("config", "", "config file (default ~/.config/go-voice/config.json)")
	palettePath := fs.String("palette", "", "GIMP .gpl palette for colours")
	debugLog := fs.Bool("debug", false, "write ~/.config/go-voice/debug.log")
	loop := fs.Bool("loop", false, "play: repeat the file until interrupted")
	fs.Parse(os.Args[2:])

	logger := log.NewWithOptions(os.Stderr, log.Options{
		Prefix:          "voicectl",
		ReportTimestamp: true,
		TimeFormat:      time.Kitchen,
	})

	if *debugLog {
		logger.SetLevel(log.DebugLevel)
		if err := debug.Enable(); err != nil {
			logger.Warn("debug log unavailable", "err", err)
		}
		defer debug.Disable()
	}

	th := theme.New(nil)
	if *palettePath != "" {
		p, err := theme.LoadGPL(*palettePath)
		if err != nil {
			fail(logger, err)
		}
		th = theme.New(p)
	}

	cli := &app{th: th, log: logger, configPath: *configPath}

	var err error
	switch os.Args[1] {
	case "run":
		err = cli.run(false)
	case "monitor":
		err = cli.run(true)
	case "play":
		if fs.NArg() < 1 {
			usage()
			os.Exit(2)
		}
		err = cli.play(fs.Arg(0), *loop)
	case "list":
		err = cli.list()
	case "init":
		err = cli.initConfig()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fail(logger, err)
	}
}

type app struct {
	th         *theme.Theme
	log        *log.Logger
	configPath string
}

func usage() {
	fmt.Println("voicectl - MIDI driven monophonic voices")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  run      - Play configured voices from connected MIDI inputs")
	fmt.Println("  monitor  - Like run, printing every message and voice state")
	fmt.Println("  play     - Play a standard MIDI file through the voices (play song.mid)")
	fmt.Println("  list     - List MIDI inputs and how the config matches them")
	fmt.Println("  init     - Write the default config if none exists")
	fmt.Println("")
	fmt.Println("Flags: -config <path>  -palette <file.gpl>  -debug  -loop")
}

func fail(logger *log.Logger, err error) {
	logger.Error(err)
	os.Exit(1)
}

func (a *app) loadConfig() (*config.Config, error) {
	if a.configPath == "" {
		return config.Load()
	}
	return config.LoadFrom(a.configPath)
}

func (a *app) run(monitor bool) error {
	th := a.th
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	r, err := rig.New(cfg, param.NewWallClock())
	if err != nil {
		return err
	}
	if monitor {
		r.SetTap(func(id string, msg midi.Message) {
			fmt.Println(formatMessage(th, id, msg))
		})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exclude := append(append([]string{}, midi.DefaultExcluded...), cfg.Devices.Exclude...)
	poll := time.Duration(cfg.Devices.PollMillis) * time.Millisecond
	dm := midi.NewDeviceManager(r.Sink, exclude, poll)

	done := make(chan struct{})
	go dm.Run(ctx)
	go func() {
		r.Run(ctx, dm.Events())
		close(done)
	}()

	a.banner(r, cfg)
	fmt.Println(th.Label().Render("Connect MIDI devices any time - they'll be detected automatically. Ctrl+C to quit."))

	a.watch(r, done, monitor)
	return nil
}

func (a *app) banner(r *rig.Rig, cfg *config.Config) {
	fmt.Println(a.th.Title().Render("go-voice"))
	for _, v := range r.Voices() {
		fmt.Println("  " + describeVoice(a.th, cfg.FindVoice(v.Name)))
	}
}

// watch reports snapshot changes until done closes
func (a *app) watch(r *rig.Rig, done <-chan struct{}, voices bool) {
	var last rig.State
	lines := make(map[string]string)
	for {
		select {
		case <-done:
			return
		case <-r.UpdateChan:
			s := r.Snapshot()
			a.logPortChanges(last, s)
			if voices {
				for _, vs := range s.Voices {
					line := formatVoice(a.th, vs)
					if lines[vs.Name] != line {
						lines[vs.Name] = line
						fmt.Println(line)
					}
				}
			}
			last = s
		}
	}
}

func (a *app) logPortChanges(prev, next rig.State) {
	had := make(map[string]bool, len(prev.Ports))
	for _, p := range prev.Ports {
		had[p] = true
	}
	has := make(map[string]bool, len(next.Ports))
	for _, p := range next.Ports {
		has[p] = true
		if !had[p] {
			a.log.Info("port connected", "port", p, "master", next.Master == p)
		}
	}
	for _, p := range prev.Ports {
		if !has[p] {
			a.log.Warn("port disconnected", "port", p)
		}
	}
	if next.Master != prev.Master && next.Master != "" && had[next.Master] {
		a.log.Info("master moved", "port", next.Master)
	}
	if next.Dropped > prev.Dropped {
		a.log.Warn("inbox overflow", "dropped", next.Dropped-prev.Dropped)
	}
}

// play feeds a MIDI file through a virtual port promoted to master
func (a *app) play(path string, loop bool) error {
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}
	cues, err := playback.Load(path)
	if err != nil {
		return err
	}
	player := playback.NewPlayer(cues)

	r, err := rig.New(cfg, param.NewWallClock())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dev := midi.NewVirtualDevice("file:" + filepath.Base(path))
	r.Submit(func() {
		r.AttachPort(dev)
		r.Dispatch().SetMaster(dev)
	})

	rigCtx, stopRig := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(rigCtx, nil)
		close(done)
	}()
	go a.watch(r, done, true)

	a.banner(r, cfg)
	a.log.Info("playing", "file", path, "cues", player.Len(), "seconds", fmt.Sprintf("%.1f", player.Duration()))

	send := func(msg midi.Message) { r.Enqueue(dev, msg) }
	for {
		err = player.Play(ctx, send)
		if err != nil || !loop {
			break
		}
		player.Rewind()
	}

	// Let the last release ring out before the rig silences everything
	if ctx.Err() == nil {
		select {
		case <-time.After(releaseTail(cfg)):
		case <-ctx.Done():
		}
	}
	r.Submit(func() { r.DetachPort(dev.ID()) })
	stopRig()
	<-done

	if ctx.Err() != nil {
		a.log.Info("stopped")
		return nil
	}
	return err
}

func releaseTail(cfg *config.Config) time.Duration {
	var longest float64
	for _, v := range cfg.Voices {
		if v.Envelope.Release > longest {
			longest = v.Envelope.Release
		}
	}
	return time.Duration(longest * float64(time.Second))
}

func formatMessage(th *theme.Theme, id string, msg midi.Message) string {
	symbol := th.Symbols.Other
	color := th.Muted()
	if ev, ok := msg.Event(); ok {
		switch {
		case ev.Type == midi.NoteOn && ev.Velocity > 0:
			symbol, color = th.Symbols.NoteOn, th.Active()
		case ev.Type == midi.NoteOn || ev.Type == midi.NoteOff:
			symbol, color = th.Symbols.NoteOff, th.FG()
		case ev.Type == midi.CC:
			symbol, color = th.Symbols.CC, th.Accent()
		}
	}
	mark := th.Value().Foreground(color).Render(string(symbol))
	return fmt.Sprintf("%s %s %s", mark, th.Label().Render(id), msg.String())
}

func formatVoice(th *theme.Theme, vs rig.VoiceState) string {
	var b strings.Builder
	b.WriteString(th.Title().Render(vs.Name))
	b.WriteString(" ")
	b.WriteString(th.Meter(vs.Amplitude, 12))
	if vs.Sounding {
		fmt.Fprintf(&b, " %s %s", th.Value().Render(noteName(vs.Note)), th.Label().Render(fmt.Sprintf("%.1fHz", vs.Frequency)))
	}
	if vs.Latched {
		b.WriteString(" " + string(th.Symbols.Latched))
	}
	if len(vs.Held) > 1 {
		held := make([]string, len(vs.Held))
		for i, n := range vs.Held {
			held[i] = noteName(n)
		}
		b.WriteString(th.Label().Render(" [" + strings.Join(held, " ") + "]"))
	}
	for _, p := range vs.Params {
		b.WriteString(th.Label().Render(fmt.Sprintf(" %s=%.2f", p.Name, p.Value)))
	}
	return b.String()
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func noteName(n uint8) string {
	return fmt.Sprintf("%s%d", noteNames[n%12], int(n)/12-1)
}

func describeVoice(th *theme.Theme, vc *config.VoiceConfig) string {
	if vc == nil {
		return ""
	}
	port := vc.Port
	if port == "" {
		port = midi.MasterID
	}
	ac, _ := vc.Allocator()
	desc := fmt.Sprintf("%s on %s, %s %s", vc.Name, port, ac.Mode, ac.Priority)
	if ac.Portamento > 0 {
		desc += fmt.Sprintf(", glide %.0fms", ac.Portamento*1000)
	}
	if vc.Latch {
		desc += ", latched"
	}
	return th.Value().Render(desc)
}

func (a *app) list() error {
	th := a.th
	cfg, err := a.loadConfig()
	if err != nil {
		return err
	}

	fmt.Println(th.Title().Render("MIDI inputs"))
	fmt.Println(th.Label().Render("(waiting up to 3 seconds...)"))

	ins, ok := midi.ListInputs(3 * time.Second)
	if !ok {
		return fmt.Errorf("timed out listing MIDI inputs; the MIDI driver may be hung")
	}
	if len(ins) == 0 {
		fmt.Println(th.Label().Render("  none"))
		return nil
	}

	exclude := append(append([]string{}, midi.DefaultExcluded...), cfg.Devices.Exclude...)
	for i, in := range ins {
		name := in.String()
		var notes []string
		for _, pat := range exclude {
			if midi.ContainsFold(name, pat) {
				notes = append(notes, "excluded")
				break
			}
		}
		if cfg.Devices.Master != "" && midi.ContainsFold(name, cfg.Devices.Master) {
			notes = append(notes, string(th.Symbols.Master)+" master")
		}
		for _, v := range cfg.Voices {
			if v.Port != "" && midi.ContainsFold(name, v.Port) {
				notes = append(notes, "voice "+v.Name)
			}
		}
		for _, rc := range cfg.Routes {
			if rc.Port != "" && midi.ContainsFold(name, rc.Port) {
				notes = append(notes, "cc -> "+rc.Target)
			}
		}

		line := fmt.Sprintf("  %d: %s", i, th.Value().Render(name))
		if len(notes) > 0 {
			line += " " + th.Label().Render("("+strings.Join(notes, ", ")+")")
		}
		fmt.Println(line)
	}
	return nil
}

func (a *app) initConfig() error {
	th := a.th
	path := a.configPath
	if path == "" {
		p, err := config.ConfigPath()
		if err != nil {
			return err
		}
		path = p
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Println(th.Label().Render("config already exists: " + path))
		return nil
	}

	cfg := config.DefaultConfig()
	if err := cfg.SaveTo(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	fmt.Println(th.Value().Render("wrote " + path))
	fmt.Println(th.Label().Render(fmt.Sprintf("note modes: %s, %s; priorities: %s, %s, %s",
		voice.Retrig, voice.Legato, voice.LastOn, voice.Highest, voice.Lowest)))
	return nil
}
