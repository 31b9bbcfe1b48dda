package image

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"

	"github.com/chazu/ledseq/pkg/sequencer"
	"github.com/chazu/ledseq/pkg/strip"
)

func TestImage_CBORRoundTrip(t *testing.T) {
	s, err := sequencer.New(strip.NewMemory(3), 3)
	if err != nil {
		t.Fatal(err)
	}
	img := FromSequencer(s)

	data, err := Marshal(img)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if !bytes.Equal(got.Code, sequencer.DefaultProgram) {
		t.Errorf("Code = % X, want % X", got.Code, sequencer.DefaultProgram)
	}
	if got.Capacity != sequencer.DefaultCapacity {
		t.Errorf("Capacity = %d, want %d", got.Capacity, sequencer.DefaultCapacity)
	}
	if got.NumLEDs != 3 {
		t.Errorf("NumLEDs = %d, want 3", got.NumLEDs)
	}
}

func TestImage_FromSequencerInEditMode(t *testing.T) {
	s, err := sequencer.New(strip.NewMemory(3), 3)
	if err != nil {
		t.Fatal(err)
	}
	var none [4]byte
	for _, b := range []byte{byte(sequencer.CmdClear), byte(sequencer.CmdEnterEdit), byte(sequencer.OpClearStrip)} {
		if err := s.HandleCommand(b, none); err != nil {
			t.Fatalf("command 0x%02X: %v", b, err)
		}
	}

	img := FromSequencer(s)
	if !bytes.Equal(img.Code, []byte{byte(sequencer.OpClearStrip)}) {
		t.Errorf("Code = % X, want 01", img.Code)
	}
	if err := img.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestImage_Deterministic(t *testing.T) {
	img := New([]byte{0x01, 0x03, 2}, 16)
	a, err := Marshal(img)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(New([]byte{0x01, 0x03, 2}, 16))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("canonical encoding differs between equal images")
	}
}

func TestImage_Validate(t *testing.T) {
	tests := []struct {
		name string
		img  *Image
		want error
	}{
		{"bad magic", &Image{Magic: "NOPE", Version: Version}, ErrBadMagic},
		{"bad version", &Image{Magic: Magic, Version: 9}, ErrBadVersion},
		{"too long", New([]byte{0x01, 0x01, 0x01}, 2), sequencer.ErrCapacityExceeded},
		{"corrupt", New([]byte{0x02, 1}, 16), sequencer.ErrCorruptProgram},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Marshal(tt.img)
			if err != nil {
				t.Fatal(err)
			}
			if _, err := Unmarshal(data); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestImage_Files(t *testing.T) {
	path := filepath.Join(t.TempDir(), "program.lseq")
	code, err := sequencer.Assemble("all 9 9 9\ndelay 1")
	if err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(path, New(code, 64)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	img, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(img.Code, code) {
		t.Errorf("Code = % X, want % X", img.Code, code)
	}

	if _, err := ReadFile(filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Unmarshal([]byte{0xff, 0x00}); err == nil {
		t.Error("expected error for garbage input")
	}
}
