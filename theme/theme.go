package theme

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type Theme struct {
	Palette Palette
	Symbols Symbols
}

type Symbols struct {
	NoteOn  rune // ● key down
	NoteOff rune // ○ key up
	CC      rune // ◆ controller
	Other   rune // · anything else

	MeterFull  rune // █
	MeterEmpty rune // ░

	Latched rune // ◉ latch engaged
	Master  rune // ★ promoted port
}

func New(palette Palette) *Theme {
	if len(palette) == 0 {
		palette = Plasma()
	}
	return &Theme{
		Palette: palette,
		Symbols: Symbols{
			NoteOn:  '●',
			NoteOff: '○',
			CC:      '◆',
			Other:   '·',

			MeterFull:  '█',
			MeterEmpty: '░',

			Latched: '◉',
			Master:  '★',
		},
	}
}

// Color roles mapped to palette positions (0-1)
const (
	RoleMuted   = 0.2
	RoleFG      = 0.4
	RoleAccent  = 0.5
	RoleActive  = 0.7
	RoleWarning = 0.8
	RoleSuccess = 1.0
)

func (t *Theme) FG() lipgloss.Color {
	return t.Palette.At(RoleFG).Color()
}

func (t *Theme) Accent() lipgloss.Color {
	return t.Palette.At(RoleAccent).Color()
}

func (t *Theme) Muted() lipgloss.Color {
	return t.Palette.At(RoleMuted).Color()
}

func (t *Theme) Active() lipgloss.Color {
	return t.Palette.At(RoleActive).Color()
}

func (t *Theme) Warning() lipgloss.Color {
	return t.Palette.At(RoleWarning).Color()
}

func (t *Theme) Success() lipgloss.Color {
	return t.Palette.At(RoleSuccess).Color()
}

// Color returns lipgloss color for any normalized value 0-1
func (t *Theme) Color(norm float64) lipgloss.Color {
	return t.Palette.At(norm).Color()
}

// Text styles for CLI output

func (t *Theme) Title() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.Accent())
}

func (t *Theme) Label() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Muted())
}

func (t *Theme) Value() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.FG())
}

func (t *Theme) Error() lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(t.Warning())
}

// Meter renders norm (clamped to 0-1) as a bar of width cells, each cell
// coloured by its position in the palette.
func (t *Theme) Meter(norm float64, width int) string {
	if width <= 0 {
		return ""
	}
	if norm < 0 {
		norm = 0
	}
	if norm > 1 {
		norm = 1
	}
	filled := int(norm*float64(width) + 0.5)

	var b strings.Builder
	for i := 0; i < width; i++ {
		if i < filled {
			cell := lipgloss.NewStyle().Foreground(t.Color(float64(i+1) / float64(width)))
			b.WriteString(cell.Render(string(t.Symbols.MeterFull)))
			continue
		}
		b.WriteString(lipgloss.NewStyle().Foreground(t.Muted()).Render(string(t.Symbols.MeterEmpty)))
	}
	return b.String()
}
