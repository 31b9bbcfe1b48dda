package sequencer

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"
)

func TestStoreAppendConservesCapacity(t *testing.T) {
	const capacity = 97
	s := NewStore(capacity)
	rng := rand.New(rand.NewSource(1))
	ops := AllOpcodes()

	cursor := 0
	used := 0
	for i := 0; i < 200; i++ {
		in := FromPayload(ops[rng.Intn(len(ops))], [4]byte{byte(rng.Intn(256)), 1, 2, 3})
		before := s.Raw()
		remaining := s.Remaining()

		next, err := s.Append(cursor, in)
		if remaining < in.Len() {
			if !errors.Is(err, ErrCapacityExceeded) {
				t.Fatalf("append %s with %d free: err = %v, want ErrCapacityExceeded", in.Op, remaining, err)
			}
			if next != cursor {
				t.Fatalf("rejected append moved cursor %d -> %d", cursor, next)
			}
			if s.Remaining() != remaining {
				t.Fatalf("rejected append changed remaining %d -> %d", remaining, s.Remaining())
			}
			if !bytes.Equal(before, s.Raw()) {
				t.Fatal("rejected append changed the buffer")
			}
			continue
		}
		if err != nil {
			t.Fatalf("append %s with %d free: %v", in.Op, remaining, err)
		}
		used += in.Len()
		cursor = next

		if s.Remaining()+used != capacity {
			t.Fatalf("remaining %d + used %d != capacity %d", s.Remaining(), used, capacity)
		}
	}
}

func TestStoreRejectsInvalidOpcode(t *testing.T) {
	s := NewStore(10)
	for _, op := range []Opcode{OpTerminator, Opcode(0x05), Opcode(0xFF)} {
		if _, err := s.Append(0, Instruction{Op: op}); !errors.Is(err, ErrInvalidOpcode) {
			t.Errorf("append 0x%02X: err = %v, want ErrInvalidOpcode", byte(op), err)
		}
	}
	if s.Remaining() != 10 {
		t.Errorf("remaining = %d, want 10", s.Remaining())
	}
}

func TestStoreCapacityScenario(t *testing.T) {
	s := NewStore(DefaultCapacity)
	cursor := 0
	var err error
	for s.Remaining() > 5 {
		if cursor, err = s.Append(cursor, SetPixel(0, 1, 2, 3)); err != nil {
			t.Fatal(err)
		}
	}
	if cursor, err = s.Append(cursor, Delay(1)); err != nil {
		t.Fatal(err)
	}
	if s.Remaining() != 3 {
		t.Fatalf("remaining = %d, want 3", s.Remaining())
	}

	before := s.Raw()
	next, err := s.Append(cursor, SetPixel(0, 1, 2, 3))
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("SET_PIXEL with 3 free: err = %v, want ErrCapacityExceeded", err)
	}
	if next != cursor || s.Remaining() != 3 || !bytes.Equal(before, s.Raw()) {
		t.Fatal("rejected SET_PIXEL changed the store")
	}

	if _, err := s.Append(cursor, Delay(2)); err != nil {
		t.Fatalf("DELAY with 3 free: %v", err)
	}
	if s.Remaining() != 1 {
		t.Errorf("remaining = %d, want 1", s.Remaining())
	}
}

func TestStoreEndOnFullBuffer(t *testing.T) {
	s := NewStore(6)
	cursor, _ := s.Append(0, SetPixel(1, 2, 3, 4))
	cursor, err := s.Append(cursor, ClearStrip())
	if err != nil {
		t.Fatal(err)
	}
	if s.Terminate(cursor) {
		t.Error("Terminate at end of a full buffer should report false")
	}
	if got := s.End(); got != 6 {
		t.Errorf("End() = %d, want 6", got)
	}
	if got := s.Program(); len(got) != 6 {
		t.Errorf("Program() length = %d, want 6", len(got))
	}
}

func TestStoreEndIsBounded(t *testing.T) {
	s := NewStore(16)
	for i := range s.code {
		s.code[i] = byte(OpClearStrip)
	}
	if got := s.End(); got != 16 {
		t.Errorf("End() over a buffer with no terminator = %d, want 16", got)
	}

	s.code[3] = 0xEE
	if got := s.End(); got != 3 {
		t.Errorf("End() stopping at an unknown byte = %d, want 3", got)
	}
}

func TestStoreLoad(t *testing.T) {
	s := NewStore(8)
	if err := s.Load([]byte{0x03, 5, 0x01}); err != nil {
		t.Fatal(err)
	}
	if s.Remaining() != 5 {
		t.Errorf("remaining = %d, want 5", s.Remaining())
	}
	if s.End() != 3 {
		t.Errorf("End() = %d, want 3", s.End())
	}

	tests := []struct {
		name string
		code []byte
		want error
	}{
		{"too long", make([]byte, 9), ErrCapacityExceeded},
		{"embedded terminator", []byte{0x01, 0x00, 0x01}, ErrCorruptProgram},
		{"unknown opcode", []byte{0x09}, ErrCorruptProgram},
		{"truncated", []byte{0x02, 1, 2}, ErrCorruptProgram},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Raw()
			if err := s.Load(tt.code); !errors.Is(err, tt.want) {
				t.Errorf("err = %v, want %v", err, tt.want)
			}
			if !bytes.Equal(before, s.Raw()) {
				t.Error("failed load changed the buffer")
			}
		})
	}
}

func TestStoreReset(t *testing.T) {
	s := NewStore(8)
	if err := s.Load([]byte{0x01, 0x01}); err != nil {
		t.Fatal(err)
	}
	s.Reset()
	if !s.Empty() {
		t.Error("store not empty after Reset")
	}
	if s.Remaining() != 8 {
		t.Errorf("remaining = %d, want 8", s.Remaining())
	}

	if !NewStore(0).Empty() {
		t.Error("zero-capacity store should be empty")
	}
}

func TestStoreWalk(t *testing.T) {
	s := NewStore(16)
	if err := s.Load([]byte{0x01, 0x03, 0x05, 0x04, 1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	var offsets []int
	var ops []Opcode
	s.Walk(func(offset int, in Instruction) bool {
		offsets = append(offsets, offset)
		ops = append(ops, in.Op)
		return true
	})
	wantOffsets := []int{0, 1, 3}
	wantOps := []Opcode{OpClearStrip, OpDelay, OpSetAllPixels}
	if len(offsets) != len(wantOffsets) {
		t.Fatalf("walked offsets %v, want %v", offsets, wantOffsets)
	}
	for i := range wantOffsets {
		if offsets[i] != wantOffsets[i] || ops[i] != wantOps[i] {
			t.Errorf("step %d = %s at %d, want %s at %d", i, ops[i], offsets[i], wantOps[i], wantOffsets[i])
		}
	}

	visited := 0
	s.Walk(func(int, Instruction) bool {
		visited++
		return false
	})
	if visited != 1 {
		t.Errorf("walk visited %d instructions after stop, want 1", visited)
	}
}

func TestStorePrefix(t *testing.T) {
	s := NewStore(4)
	if _, err := s.Append(0, Delay(9)); err != nil {
		t.Fatal(err)
	}
	if got := s.Prefix(2); !bytes.Equal(got, []byte{0x03, 9}) {
		t.Errorf("Prefix(2) = % X", got)
	}
	if got := s.Prefix(100); len(got) != 4 {
		t.Errorf("Prefix(100) length = %d, want 4", len(got))
	}
	if got := s.Prefix(-1); len(got) != 0 {
		t.Errorf("Prefix(-1) = % X, want empty", got)
	}
}
