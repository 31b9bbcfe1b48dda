package sequencer

import (
	"fmt"
	"strings"
)

// Disassemble returns a listing of code, one instruction per line, ending
// with the byte that stopped decoding.
func Disassemble(code []byte) string {
	var sb strings.Builder
	offset := disassembleTo(&sb, code, -1)
	writeEnd(&sb, code, offset)
	return sb.String()
}

// Listing returns a human-readable dump of the sequencer: its state header
// followed by the program with the playback cursor marked.
func (s *Sequencer) Listing() string {
	st := s.State()

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("; mode: %s\n", st.Mode))
	sb.WriteString(fmt.Sprintf("; program: %d bytes, %d of %d free\n", st.ProgramLen, st.Remaining, st.Capacity))
	switch st.Mode {
	case ModeCommandEntry:
		sb.WriteString(fmt.Sprintf("; append cursor: %04X\n", st.AppendCursor))
	default:
		sb.WriteString(fmt.Sprintf("; play cursor: %04X, delay: %d\n", st.PlayCursor, st.Delay))
	}
	sb.WriteString("\n")

	code := s.Program()
	mark := -1
	if st.Mode != ModeCommandEntry {
		mark = st.PlayCursor
	}
	offset := disassembleTo(&sb, code, mark)
	prefix := "  "
	if offset == mark {
		prefix = "> "
	}
	switch {
	case st.Mode == ModeCommandEntry:
		sb.WriteString(fmt.Sprintf("%04X  <append>\n", offset))
	case offset < s.store.Capacity():
		sb.WriteString(fmt.Sprintf("%04X%s%s\n", offset, prefix, OpTerminator))
	default:
		sb.WriteString(fmt.Sprintf("%04X%s<end of buffer>\n", offset, prefix))
	}
	return sb.String()
}

func disassembleTo(sb *strings.Builder, code []byte, mark int) int {
	offset := 0
	for offset < len(code) {
		in, n := Decode(code, offset)
		if n == 0 {
			break
		}
		prefix := "  "
		if offset == mark {
			prefix = "> "
		}
		sb.WriteString(fmt.Sprintf("%04X%s%s\n", offset, prefix, in))
		offset += n
	}
	return offset
}

func writeEnd(sb *strings.Builder, code []byte, offset int) {
	if offset >= len(code) {
		return
	}
	op := Opcode(code[offset])
	if op != OpTerminator && op.Valid() {
		sb.WriteString(fmt.Sprintf("%04X  <truncated %s>\n", offset, op))
		return
	}
	sb.WriteString(fmt.Sprintf("%04X  %s\n", offset, op))
}
