package strip

import (
	"io"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/termenv"
)

// Terminal is a strip driver that renders its frame as a row of colored
// blocks. Driver calls only update the frame; Render draws it.
type Terminal struct {
	*Memory

	out   *termenv.Output
	dirty bool
}

// NewTerminal creates a terminal strip of n pixels writing to w.
func NewTerminal(w io.Writer, n int) *Terminal {
	return &Terminal{
		Memory: NewMemory(n),
		out:    termenv.NewOutput(w),
	}
}

// Clear blanks every pixel.
func (t *Terminal) Clear() {
	t.Memory.Clear()
	t.Memory.Reset()
	t.dirty = true
}

// SetPixel sets one pixel.
func (t *Terminal) SetPixel(index, red, green, blue uint8) {
	t.Memory.SetPixel(index, red, green, blue)
	t.Memory.Reset()
	t.dirty = true
}

// Render redraws the frame in place if it changed since the last call.
func (t *Terminal) Render() error {
	if !t.dirty {
		return nil
	}
	t.dirty = false
	_, err := io.WriteString(t.out, "\r"+t.Line())
	return err
}

// Line returns the frame as a styled string without a line ending.
func (t *Terminal) Line() string {
	var sb strings.Builder
	for _, px := range t.Pixels {
		c := colorful.Color{
			R: float64(px.R) / 255,
			G: float64(px.G) / 255,
			B: float64(px.B) / 255,
		}
		block := "█"
		if px == (Color{}) {
			block = "·"
		}
		sb.WriteString(t.out.String(block).Foreground(t.out.Color(c.Hex())).String())
	}
	return sb.String()
}
