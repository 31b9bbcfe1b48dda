package sequencer

import "fmt"

// DefaultCapacity is the size of the program buffer in bytes.
const DefaultCapacity = 2500

// Store is a fixed-capacity program buffer holding a terminator-ended
// sequence of variable-length instructions.
//
// The store owns the buffer but not the cursors into it: the Editor and the
// Player each keep their own offset. Instructions carry no length prefix, so
// every walk over the buffer re-derives boundaries from the opcodes.
//
// When the program fills the whole buffer there is no room for a
// terminator. The end of the buffer then acts as an implicit terminator for
// every decoder.
type Store struct {
	code      []byte
	remaining int
}

// NewStore creates an empty store with the given capacity in bytes.
func NewStore(capacity int) *Store {
	if capacity < 0 {
		capacity = 0
	}
	s := &Store{code: make([]byte, capacity)}
	s.Reset()
	return s
}

// Capacity returns the size of the buffer in bytes.
func (s *Store) Capacity() int {
	return len(s.code)
}

// Remaining returns the number of free bytes available to appends.
func (s *Store) Remaining() int {
	return s.remaining
}

// Reset truncates the program to empty.
func (s *Store) Reset() {
	if len(s.code) > 0 {
		s.code[0] = byte(OpTerminator)
	}
	s.remaining = len(s.code)
}

// Empty reports whether the program holds no instructions, i.e. whether
// offset 0 is a terminator.
func (s *Store) Empty() bool {
	return len(s.code) == 0 || Opcode(s.code[0]) == OpTerminator
}

// At decodes the instruction at offset. See Decode for the meaning of a
// zero length.
func (s *Store) At(offset int) (Instruction, int) {
	return Decode(s.code, offset)
}

// End walks the program from offset 0 and returns the offset of the first
// byte that does not start a complete instruction: the terminator, an
// unknown byte, or the end of the buffer. The walk is capped at one
// iteration per buffer byte so a corrupted buffer cannot make it run away.
func (s *Store) End() int {
	end := 0
	s.Walk(func(offset int, in Instruction) bool {
		end = offset + in.Len()
		return true
	})
	return end
}

// Append writes in at offset at and returns the offset just past it. The
// append is rejected with ErrCapacityExceeded when the remaining capacity
// is smaller than the encoded length, and with ErrInvalidOpcode for
// anything but the four instruction opcodes. A rejected append leaves the
// buffer and the remaining capacity unchanged. No terminator is written.
func (s *Store) Append(at int, in Instruction) (int, error) {
	if !in.Op.Valid() {
		return at, fmt.Errorf("append 0x%02X: %w", byte(in.Op), ErrInvalidOpcode)
	}
	n := in.Len()
	if s.remaining < n || at < 0 || at+n > len(s.code) {
		return at, fmt.Errorf("append %s (%d bytes, %d free): %w", in.Op, n, s.remaining, ErrCapacityExceeded)
	}
	copy(s.code[at:], in.Encode())
	s.remaining -= n
	return at + n, nil
}

// Terminate writes a terminator at offset at. It reports false, leaving the
// buffer untouched, when at is the end of a full buffer.
func (s *Store) Terminate(at int) bool {
	if at < 0 || at >= len(s.code) {
		return false
	}
	s.code[at] = byte(OpTerminator)
	return true
}

// Load replaces the program with code, which must be a sequence of
// complete instructions without a terminator, no longer than the capacity.
func (s *Store) Load(code []byte) error {
	if len(code) > len(s.code) {
		return fmt.Errorf("load %d bytes into %d: %w", len(code), len(s.code), ErrCapacityExceeded)
	}
	if err := Validate(code); err != nil {
		return err
	}
	copy(s.code, code)
	s.Terminate(len(code))
	s.remaining = len(s.code) - len(code)
	return nil
}

// Program returns a copy of the program bytes, excluding the terminator.
func (s *Store) Program() []byte {
	return s.Prefix(s.End())
}

// Prefix returns a copy of the first n bytes of the buffer. n is clamped
// to the buffer.
func (s *Store) Prefix(n int) []byte {
	n = max(0, min(n, len(s.code)))
	out := make([]byte, n)
	copy(out, s.code[:n])
	return out
}

// Raw returns a copy of the whole buffer, including bytes past the
// terminator.
func (s *Store) Raw() []byte {
	out := make([]byte, len(s.code))
	copy(out, s.code)
	return out
}

// Walk calls fn for every instruction from offset 0 to the end of the
// program, stopping early if fn returns false.
func (s *Store) Walk(fn func(offset int, in Instruction) bool) {
	offset := 0
	for i := 0; i < len(s.code); i++ {
		in, n := Decode(s.code, offset)
		if n == 0 || !fn(offset, in) {
			return
		}
		offset += n
	}
}

// Validate checks that code is a sequence of complete instructions.
func Validate(code []byte) error {
	offset := 0
	for offset < len(code) {
		op := Opcode(code[offset])
		if !op.Valid() {
			return fmt.Errorf("offset %d: byte 0x%02X: %w", offset, byte(op), ErrCorruptProgram)
		}
		n := op.InstructionLen()
		if offset+n > len(code) {
			return fmt.Errorf("offset %d: truncated %s: %w", offset, op, ErrCorruptProgram)
		}
		offset += n
	}
	return nil
}
