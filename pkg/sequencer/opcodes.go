package sequencer

import "fmt"

// Opcode is the tag byte of an instruction stored in the program buffer.
type Opcode byte

const (
	OpTerminator   Opcode = 0x00 // End of program, not a real instruction
	OpClearStrip   Opcode = 0x01 // Blank every pixel
	OpSetPixel     Opcode = 0x02 // OpSetPixel <index:u8> <red:u8> <green:u8> <blue:u8>
	OpDelay        Opcode = 0x03 // OpDelay <ticks:u8>
	OpSetAllPixels Opcode = 0x04 // OpSetAllPixels <red:u8> <green:u8> <blue:u8>
)

// OpcodeInfo describes the encoding of an opcode.
type OpcodeInfo struct {
	Name       string // Human-readable name
	Mnemonic   string // Assembler keyword
	OperandLen int    // Number of operand bytes following the opcode
	Operands   string // Operand names, space separated
}

var opcodeInfoTable = map[Opcode]OpcodeInfo{
	OpClearStrip:   {"CLEAR_STRIP", "clear", 0, ""},
	OpSetPixel:     {"SET_PIXEL", "pixel", 4, "index red green blue"},
	OpDelay:        {"DELAY", "delay", 1, "ticks"},
	OpSetAllPixels: {"SET_ALL_PIXELS", "all", 3, "red green blue"},
}

// GetOpcodeInfo returns metadata for an opcode and whether it is a real
// instruction. The terminator and unknown bytes report ok == false.
func GetOpcodeInfo(op Opcode) (OpcodeInfo, bool) {
	info, ok := opcodeInfoTable[op]
	if !ok {
		if op == OpTerminator {
			return OpcodeInfo{Name: "END"}, false
		}
		return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op))}, false
	}
	return info, true
}

// String returns the human-readable name of an opcode.
func (op Opcode) String() string {
	info, _ := GetOpcodeInfo(op)
	return info.Name
}

// Valid reports whether op is one of the four instruction opcodes.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// OperandLen returns the number of operand bytes for this opcode.
func (op Opcode) OperandLen() int {
	info, _ := GetOpcodeInfo(op)
	return info.OperandLen
}

// InstructionLen returns the total encoded length of an instruction
// (1 + operand bytes), or 0 for the terminator and unknown bytes.
func (op Opcode) InstructionLen() int {
	if !op.Valid() {
		return 0
	}
	return 1 + op.OperandLen()
}

// DecodeOpcode interprets a byte received in command-entry mode. The
// terminator doubles as the exit-edit signal; any other byte outside the
// instruction set is reported as not ok.
func DecodeOpcode(b byte) (Opcode, bool) {
	op := Opcode(b)
	if op == OpTerminator || op.Valid() {
		return op, true
	}
	return op, false
}

// AllOpcodes returns every instruction opcode in encoding order.
func AllOpcodes() []Opcode {
	return []Opcode{OpClearStrip, OpSetPixel, OpDelay, OpSetAllPixels}
}

// Instruction is one decoded instruction. Operands beyond the opcode's
// operand length are zero.
type Instruction struct {
	Op       Opcode
	Operands [4]byte
}

// ClearStrip builds a CLEAR_STRIP instruction.
func ClearStrip() Instruction {
	return Instruction{Op: OpClearStrip}
}

// SetPixel builds a SET_PIXEL instruction.
func SetPixel(index, red, green, blue uint8) Instruction {
	return Instruction{Op: OpSetPixel, Operands: [4]byte{index, red, green, blue}}
}

// Delay builds a DELAY instruction.
func Delay(ticks uint8) Instruction {
	return Instruction{Op: OpDelay, Operands: [4]byte{ticks}}
}

// SetAllPixels builds a SET_ALL_PIXELS instruction.
func SetAllPixels(red, green, blue uint8) Instruction {
	return Instruction{Op: OpSetAllPixels, Operands: [4]byte{red, green, blue}}
}

// FromPayload builds an instruction from an opcode and the fixed 4-byte
// command payload, discarding bytes the opcode does not use.
func FromPayload(op Opcode, payload [4]byte) Instruction {
	in := Instruction{Op: op}
	copy(in.Operands[:op.OperandLen()], payload[:])
	return in
}

// Len returns the encoded length of the instruction.
func (in Instruction) Len() int {
	return in.Op.InstructionLen()
}

// Encode returns the encoded bytes of the instruction.
func (in Instruction) Encode() []byte {
	n := in.Len()
	if n == 0 {
		return nil
	}
	buf := make([]byte, n)
	buf[0] = byte(in.Op)
	copy(buf[1:], in.Operands[:n-1])
	return buf
}

// Decode reads the instruction at offset. It returns the instruction and
// its length. A length of 0 means offset holds a terminator, an unknown
// byte, or lies at or past the end of code; a truncated instruction that
// would straddle the end of code is reported the same way.
func Decode(code []byte, offset int) (Instruction, int) {
	if offset < 0 || offset >= len(code) {
		return Instruction{Op: OpTerminator}, 0
	}
	op := Opcode(code[offset])
	n := op.InstructionLen()
	if n == 0 || offset+n > len(code) {
		return Instruction{Op: op}, 0
	}
	in := Instruction{Op: op}
	copy(in.Operands[:], code[offset+1:offset+n])
	return in, n
}

// String renders the instruction in assembler syntax.
func (in Instruction) String() string {
	info, _ := GetOpcodeInfo(in.Op)
	switch in.Op {
	case OpClearStrip:
		return info.Mnemonic
	case OpSetPixel:
		return fmt.Sprintf("%s %d %d %d %d", info.Mnemonic, in.Operands[0], in.Operands[1], in.Operands[2], in.Operands[3])
	case OpDelay:
		return fmt.Sprintf("%s %d", info.Mnemonic, in.Operands[0])
	case OpSetAllPixels:
		return fmt.Sprintf("%s %d %d %d", info.Mnemonic, in.Operands[0], in.Operands[1], in.Operands[2])
	default:
		return info.Name
	}
}
