package theme

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestAtClampsEndpoints(t *testing.T) {
	p := Plasma()
	if p.At(-1) != p[0] || p.At(0) != p[0] {
		t.Fatal("low end should clamp to the first colour")
	}
	if p.At(2) != p[len(p)-1] {
		t.Fatal("high end should clamp to the last colour")
	}
}

func TestLoadGPL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono.gpl")
	gpl := "GIMP Palette\nName: mono\nColumns: 2\n# comment\n0 0 0 black\n255 255 255 white\n"
	if err := os.WriteFile(path, []byte(gpl), 0644); err != nil {
		t.Fatal(err)
	}

	p, err := LoadGPL(path)
	if err != nil {
		t.Fatalf("LoadGPL: %v", err)
	}
	if len(p) != 2 {
		t.Fatalf("palette = %v", p)
	}
	if got := p.At(0.5); got != (RGB{127, 127, 127}) {
		t.Fatalf("midpoint = %v", got)
	}
	if got := p[1].Color(); got != "#ffffff" {
		t.Fatalf("white = %q", got)
	}

	empty := filepath.Join(t.TempDir(), "empty.gpl")
	os.WriteFile(empty, []byte("GIMP Palette\n"), 0644)
	if _, err := LoadGPL(empty); err == nil {
		t.Fatal("expected error for a palette with no colours")
	}
}

func TestReadGPLSkipsOutOfRangeRows(t *testing.T) {
	p, err := ReadGPL(strings.NewReader("GIMP Palette\n300 0 0 too red\n1 2 3\n"))
	if err != nil {
		t.Fatal(err)
	}
	if len(p) != 1 || p[0] != (RGB{1, 2, 3}) {
		t.Fatalf("palette = %v", p)
	}
}
