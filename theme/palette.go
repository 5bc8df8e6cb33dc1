package theme

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type RGB [3]uint8

func (c RGB) Color() lipgloss.Color {
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2]))
}

// Palette is a gradient of colour stops, sampled by At
type Palette []RGB

// Plasma is the built-in palette, dark purple through to yellow
func Plasma() Palette {
	return Palette{
		{0x0d, 0x08, 0x87},
		{0x41, 0x04, 0x9d},
		{0x6a, 0x00, 0xa8},
		{0x8f, 0x0d, 0xa4},
		{0xb1, 0x2a, 0x90},
		{0xcc, 0x47, 0x78},
		{0xe1, 0x64, 0x62},
		{0xf2, 0x84, 0x4b},
		{0xfc, 0xa6, 0x36},
		{0xfc, 0xce, 0x25},
		{0xf0, 0xf9, 0x21},
	}
}

// LoadGPL reads the colour rows of a GIMP palette file
func LoadGPL(path string) (Palette, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("palette: %w", err)
	}
	defer f.Close()

	p, err := ReadGPL(f)
	if err != nil {
		return nil, fmt.Errorf("palette %s: %w", path, err)
	}
	return p, nil
}

// ReadGPL keeps every line that starts with three integers. Header lines
// and comments never do.
func ReadGPL(r io.Reader) (Palette, error) {
	var p Palette
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 3 {
			continue
		}
		var c RGB
		ok := true
		for i := range c {
			n, err := strconv.ParseUint(fields[i], 10, 8)
			if err != nil {
				ok = false
				break
			}
			c[i] = uint8(n)
		}
		if ok {
			p = append(p, c)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(p) == 0 {
		return nil, fmt.Errorf("no colours")
	}
	return p, nil
}

// At samples the gradient at norm, clamped to 0-1
func (p Palette) At(norm float64) RGB {
	last := len(p) - 1
	switch {
	case norm <= 0:
		return p[0]
	case norm >= 1:
		return p[last]
	}

	pos := norm * float64(last)
	i := int(pos)
	frac := pos - float64(i)
	var c RGB
	for k := range c {
		c[k] = uint8(float64(p[i][k])*(1-frac) + float64(p[i+1][k])*frac)
	}
	return c
}
