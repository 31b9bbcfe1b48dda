package strip

import (
	"bytes"
	"strings"
	"testing"
)

func TestMemory(t *testing.T) {
	m := NewMemory(3)
	m.SetPixel(1, 10, 20, 30)
	m.SetPixel(5, 1, 1, 1)

	if m.Pixels[1] != (Color{10, 20, 30}) {
		t.Errorf("pixel 1 = %v", m.Pixels[1])
	}
	if m.OutOfRange != 1 {
		t.Errorf("OutOfRange = %d, want 1", m.OutOfRange)
	}
	if len(m.Calls) != 2 || m.Calls[1].String() != "set 5 (1,1,1)" {
		t.Errorf("calls = %v", m.Calls)
	}

	frame := m.Frame()
	m.Clear()
	if m.Pixels[1] != (Color{}) {
		t.Error("Clear left pixel 1 lit")
	}
	if frame[1] != (Color{10, 20, 30}) {
		t.Error("Frame did not copy the pixels")
	}
	if m.Calls[2].String() != "clear" {
		t.Errorf("last call = %s, want clear", m.Calls[2])
	}
}

func TestTerminalRender(t *testing.T) {
	var buf bytes.Buffer
	term := NewTerminal(&buf, 4)

	if err := term.Render(); err != nil || buf.Len() != 0 {
		t.Fatalf("render of an untouched strip wrote %q (err %v)", buf.String(), err)
	}

	term.SetPixel(0, 255, 0, 0)
	if err := term.Render(); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "\r") {
		t.Errorf("render should start with a carriage return: %q", out)
	}
	if strings.Count(out, "█") != 1 || strings.Count(out, "·") != 3 {
		t.Errorf("render = %q, want one lit and three dark pixels", out)
	}
	if len(term.Calls) != 0 {
		t.Error("terminal strip should not accumulate calls")
	}

	buf.Reset()
	if err := term.Render(); err != nil || buf.Len() != 0 {
		t.Errorf("second render without changes wrote %q", buf.String())
	}
}
