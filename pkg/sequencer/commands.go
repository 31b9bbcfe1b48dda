package sequencer

import "fmt"

// Command is a structural command accepted outside command-entry mode.
// It shares the byte space of Opcode but is a separate enumeration; the
// current Mode decides which decoder applies.
type Command byte

const (
	CmdClear     Command = 0x01 // Empty the program and blank the strip
	CmdRun       Command = 0x02 // Start playback
	CmdPause     Command = 0x03 // Stop playback at the current instruction
	CmdEnterEdit Command = 0x04 // Enter command-entry mode, appending to the program
)

var commandNames = map[Command]string{
	CmdClear:     "CLEAR",
	CmdRun:       "RUN",
	CmdPause:     "PAUSE",
	CmdEnterEdit: "ENTER_EDIT",
}

// DecodeCommand interprets a byte received outside command-entry mode.
func DecodeCommand(b byte) (Command, bool) {
	c := Command(b)
	_, ok := commandNames[c]
	return c, ok
}

// String returns the human-readable name of a command.
func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return fmt.Sprintf("UNKNOWN(0x%02X)", byte(c))
}

// Mode is the controller state that governs command dispatch and playback.
type Mode uint8

const (
	ModePaused Mode = iota
	ModeRunning
	ModeCommandEntry
)

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	switch m {
	case ModePaused:
		return "paused"
	case ModeRunning:
		return "running"
	case ModeCommandEntry:
		return "command-entry"
	default:
		return fmt.Sprintf("Mode(%d)", m)
	}
}
