package sequencer

import (
	"fmt"
	"strconv"
	"strings"
)

var mnemonics = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Mnemonic] = op
	}
	return m
}()

// Assemble translates program text into encoded instructions. Each
// non-blank line holds one instruction:
//
//	clear
//	pixel <index> <red> <green> <blue>
//	delay <ticks>
//	all <red> <green> <blue>
//
// Operands are decimal or 0x-prefixed bytes. Text after '#' is ignored.
func Assemble(src string) ([]byte, error) {
	var code []byte
	for i, line := range strings.Split(src, "\n") {
		in, ok, err := AssembleLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		if ok {
			code = append(code, in.Encode()...)
		}
	}
	return code, nil
}

// AssembleLine parses a single line. ok is false for blank and comment
// lines.
func AssembleLine(line string) (in Instruction, ok bool, err error) {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	tokens := strings.Fields(line)
	if len(tokens) == 0 {
		return Instruction{}, false, nil
	}

	op, found := mnemonics[strings.ToLower(tokens[0])]
	if !found {
		return Instruction{}, false, fmt.Errorf("unknown instruction %q", tokens[0])
	}
	args := tokens[1:]
	if len(args) != op.OperandLen() {
		return Instruction{}, false, fmt.Errorf("%s takes %d operands, got %d", tokens[0], op.OperandLen(), len(args))
	}

	in.Op = op
	for j, arg := range args {
		v, err := strconv.ParseUint(arg, 0, 8)
		if err != nil {
			return Instruction{}, false, fmt.Errorf("operand %q: %w", arg, err)
		}
		in.Operands[j] = byte(v)
	}
	return in, true, nil
}
