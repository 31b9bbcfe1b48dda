package sequencer

// DefaultMaxStepsPerTick bounds the work done by one Tick. Each executed
// instruction and each wrap back to offset 0 counts as one step.
const DefaultMaxStepsPerTick = 4096

// TickReport summarizes what one Tick did.
type TickReport struct {
	Executed  int  // Instructions executed
	Wrapped   int  // Times the cursor wrapped back to offset 0
	Skipped   int  // SET_PIXEL writes dropped by the pixel policy
	Waiting   bool // The tick only counted down a pending delay
	Truncated bool // The step bound was hit; the next tick resumes at the cursor
}

// Player executes a Store's program one tick at a time. Its cursor is only
// meaningful while the sequencer is running.
type Player struct {
	store    *Store
	strip    Strip
	numLEDs  uint8
	policy   PixelPolicy
	maxSteps int

	cursor int
	delay  uint8
}

// Tick advances playback by one time quantum.
//
// A pending delay is counted down first; while it stays above zero nothing
// executes. Otherwise instructions run from the cursor until a DELAY is
// executed, wrapping to offset 0 at the end of the program. A DELAY always
// ends the tick, even DELAY 0.
func (p *Player) Tick() TickReport {
	var r TickReport

	if p.delay > 0 {
		p.delay--
		if p.delay > 0 {
			r.Waiting = true
			return r
		}
	}

	for steps := 0; ; steps++ {
		if steps >= p.maxSteps {
			r.Truncated = true
			log.Warningf("tick truncated after %d steps at offset %d", steps, p.cursor)
			return r
		}

		in, n := p.store.At(p.cursor)
		if n == 0 {
			p.cursor = 0
			r.Wrapped++
			continue
		}
		p.cursor += n
		r.Executed++

		switch in.Op {
		case OpClearStrip:
			p.strip.Clear()
		case OpSetPixel:
			index := in.Operands[0]
			if index >= p.numLEDs && p.policy != PixelForward {
				r.Skipped++
				log.Debugf("skip pixel %d, strip has %d", index, p.numLEDs)
				continue
			}
			p.strip.SetPixel(index, in.Operands[1], in.Operands[2], in.Operands[3])
			log.Debugf("set color, %d, %d, %d, %d", index, in.Operands[1], in.Operands[2], in.Operands[3])
		case OpSetAllPixels:
			for i := 0; i < int(p.numLEDs); i++ {
				p.strip.SetPixel(uint8(i), in.Operands[0], in.Operands[1], in.Operands[2])
			}
		case OpDelay:
			p.delay = in.Operands[0]
			return r
		}
	}
}

// Rewind moves the cursor to offset 0.
func (p *Player) Rewind() {
	p.cursor = 0
}

// CancelDelay drops any pending delay.
func (p *Player) CancelDelay() {
	p.delay = 0
}

// Cursor returns the offset of the next instruction to execute.
func (p *Player) Cursor() int {
	return p.cursor
}

// Delay returns the number of ticks left before playback resumes.
func (p *Player) Delay() uint8 {
	return p.delay
}
