// Package sequencer implements a bounded-memory bytecode interpreter that
// drives an addressable LED strip from a fixed-capacity program buffer.
//
// The sequencer is a three-mode controller:
//
//   - Paused: structural commands are accepted, playback is stopped
//   - Running: Tick executes the program, looping forever
//   - CommandEntry: command bytes are instruction opcodes appended to the
//     end of the program; the terminator byte leaves the mode
//
// # Program encoding
//
// Instructions are packed back to back with no length prefix and end at a
// 0x00 terminator:
//
//	0x01                      CLEAR_STRIP
//	0x02 index red green blue SET_PIXEL
//	0x03 ticks                DELAY
//	0x04 red green blue       SET_ALL_PIXELS
//
// Every walk over the buffer (playback, the end-of-program scan on entering
// edit mode, disassembly) re-derives boundaries from the opcode lengths.
//
// # Pacing
//
// A DELAY n instruction ends the current tick and suspends playback for n
// further ticks. Ticks between delays execute every instruction up to the
// next delay, bounded by a per-tick step limit; a tick that hits the limit
// resumes where it stopped on the next tick.
package sequencer
