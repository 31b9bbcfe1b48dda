package sequencer

// Strip is the LED strip driver the sequencer writes to.
//
// SetPixel must only be called with index below the strip length; the
// sequencer enforces that according to its PixelPolicy.
type Strip interface {
	// Clear blanks every pixel.
	Clear()
	// SetPixel sets the color of one pixel.
	SetPixel(index, red, green, blue uint8)
}

// PixelPolicy decides what happens to SET_PIXEL instructions whose index is
// not below the LED count. SET_ALL_PIXELS is always bounded by the LED count.
type PixelPolicy uint8

const (
	// PixelSkip drops out-of-range writes during playback.
	PixelSkip PixelPolicy = iota
	// PixelForward passes every index through to the strip driver.
	PixelForward
	// PixelReject refuses out-of-range SET_PIXEL appends with
	// ErrPixelOutOfRange and skips any that reach playback through a
	// preloaded program.
	PixelReject
)

// String returns the configuration name of the policy.
func (p PixelPolicy) String() string {
	switch p {
	case PixelSkip:
		return "skip"
	case PixelForward:
		return "forward"
	case PixelReject:
		return "reject"
	default:
		return "unknown"
	}
}

// ParsePixelPolicy parses a configuration name produced by String.
func ParsePixelPolicy(name string) (PixelPolicy, bool) {
	switch name {
	case "", "skip":
		return PixelSkip, true
	case "forward":
		return PixelForward, true
	case "reject":
		return PixelReject, true
	default:
		return PixelSkip, false
	}
}
