// Package strip provides LED strip drivers for the sequencer: an in-memory
// frame buffer that records every driver call, and a terminal renderer
// built on top of it.
package strip

import "fmt"

// Color is one pixel value.
type Color struct {
	R, G, B uint8
}

// Call is one recorded driver call.
type Call struct {
	Clear bool // true for Clear, false for SetPixel
	Index uint8
	Color Color
}

// String renders the call for test failure messages.
func (c Call) String() string {
	if c.Clear {
		return "clear"
	}
	return fmt.Sprintf("set %d (%d,%d,%d)", c.Index, c.Color.R, c.Color.G, c.Color.B)
}

// Memory is a strip driver backed by a frame buffer. Writes past the end of
// the frame are recorded as calls and counted but not stored.
type Memory struct {
	Pixels     []Color
	Calls      []Call
	OutOfRange int
}

// NewMemory creates a blank frame of n pixels.
func NewMemory(n int) *Memory {
	return &Memory{Pixels: make([]Color, n)}
}

// Clear blanks every pixel.
func (m *Memory) Clear() {
	for i := range m.Pixels {
		m.Pixels[i] = Color{}
	}
	m.Calls = append(m.Calls, Call{Clear: true})
}

// SetPixel sets one pixel.
func (m *Memory) SetPixel(index, red, green, blue uint8) {
	c := Color{red, green, blue}
	m.Calls = append(m.Calls, Call{Index: index, Color: c})
	if int(index) >= len(m.Pixels) {
		m.OutOfRange++
		return
	}
	m.Pixels[index] = c
}

// Reset forgets recorded calls without touching the frame.
func (m *Memory) Reset() {
	m.Calls = nil
	m.OutOfRange = 0
}

// Frame returns a copy of the current pixel values.
func (m *Memory) Frame() []Color {
	out := make([]Color, len(m.Pixels))
	copy(out, m.Pixels)
	return out
}
