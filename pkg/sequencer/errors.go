package sequencer

import "errors"

// Every error below leaves the sequencer state unchanged. Callers that
// follow the fire-and-forget command protocol may ignore them.
var (
	ErrCapacityExceeded = errors.New("capacity exceeded")
	ErrInvalidOpcode    = errors.New("invalid opcode")
	ErrInvalidCommand   = errors.New("invalid command")
	ErrEmptyProgram     = errors.New("empty program")
	ErrPixelOutOfRange  = errors.New("pixel index out of range")
	ErrCorruptProgram   = errors.New("corrupt program")
	ErrBusy             = errors.New("program is running")
)
