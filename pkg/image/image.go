// Package image encodes sequencer programs as CBOR records for deployment
// preloads and for the inspection RPC.
package image

import (
	"errors"
	"fmt"
	"os"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/ledseq/pkg/sequencer"
)

// Magic identifies a program image.
const Magic = "LSEQ"

// Version is the current image format version.
const Version uint16 = 1

var (
	ErrBadMagic   = errors.New("not a program image")
	ErrBadVersion = errors.New("unsupported image version")
)

// Image is a program plus the buffer capacity it was captured from.
type Image struct {
	Magic    string `cbor:"1,keyasint"`
	Version  uint16 `cbor:"2,keyasint"`
	Capacity int    `cbor:"3,keyasint"`
	NumLEDs  uint8  `cbor:"4,keyasint,omitempty"`
	Code     []byte `cbor:"5,keyasint"`
}

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("image: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// FromSequencer captures the current program of s.
func FromSequencer(s *sequencer.Sequencer) *Image {
	return &Image{
		Magic:    Magic,
		Version:  Version,
		Capacity: s.Store().Capacity(),
		NumLEDs:  s.NumLEDs(),
		Code:     s.Program(),
	}
}

// New wraps code in an image.
func New(code []byte, capacity int) *Image {
	return &Image{Magic: Magic, Version: Version, Capacity: capacity, Code: code}
}

// Marshal serializes an image to canonical CBOR.
func Marshal(img *Image) ([]byte, error) {
	return encMode.Marshal(img)
}

// Unmarshal deserializes and validates an image.
func Unmarshal(data []byte) (*Image, error) {
	var img Image
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("image: unmarshal: %w", err)
	}
	if err := img.Validate(); err != nil {
		return nil, err
	}
	return &img, nil
}

// Validate checks the header and that the code decodes into complete
// instructions fitting the recorded capacity.
func (img *Image) Validate() error {
	if img.Magic != Magic {
		return fmt.Errorf("image: magic %q: %w", img.Magic, ErrBadMagic)
	}
	if img.Version != Version {
		return fmt.Errorf("image: version %d: %w", img.Version, ErrBadVersion)
	}
	if img.Capacity > 0 && len(img.Code) > img.Capacity {
		return fmt.Errorf("image: %d byte program, capacity %d: %w", len(img.Code), img.Capacity, sequencer.ErrCapacityExceeded)
	}
	if err := sequencer.Validate(img.Code); err != nil {
		return fmt.Errorf("image: %w", err)
	}
	return nil
}

// ReadFile loads an image from disk.
func ReadFile(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	img, err := Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// WriteFile stores an image on disk.
func WriteFile(path string, img *Image) error {
	data, err := Marshal(img)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
