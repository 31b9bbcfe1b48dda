package sequencer

import (
	"fmt"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("ledseq.sequencer")

// DefaultProgram is the program preloaded when no other is configured: blank
// the strip, wait, light pixel 1 red, wait.
var DefaultProgram = []byte{
	byte(OpClearStrip),
	byte(OpDelay), 5,
	byte(OpSetPixel), 1, 0xff, 0, 0,
	byte(OpDelay), 5,
}

// Option configures a Sequencer.
type Option func(*config)

type config struct {
	capacity int
	maxSteps int
	policy   PixelPolicy
	program  []byte
}

// WithCapacity sets the program buffer size in bytes.
func WithCapacity(n int) Option {
	return func(c *config) { c.capacity = n }
}

// WithMaxStepsPerTick bounds the instructions executed by one Tick.
func WithMaxStepsPerTick(n int) Option {
	return func(c *config) { c.maxSteps = n }
}

// WithPixelPolicy sets how out-of-range SET_PIXEL indices are handled.
func WithPixelPolicy(p PixelPolicy) Option {
	return func(c *config) { c.policy = p }
}

// WithProgram sets the program preloaded into the buffer. A nil program
// leaves the buffer empty.
func WithProgram(code []byte) Option {
	return func(c *config) { c.program = code }
}

// Sequencer is the mode controller. It dispatches commands according to the
// current mode, owns the program Store, and drives the Editor and Player
// over it.
//
// A Sequencer is not safe for concurrent use. HandleCommand, Tick and the
// accessors must be serialized by the caller.
type Sequencer struct {
	mode    Mode
	strip   Strip
	numLEDs uint8
	policy  PixelPolicy

	store  *Store
	editor *Editor
	player *Player
}

// New creates a paused sequencer bound to strip, with numLEDs pixels and
// the preloaded program. It returns an error if the program does not fit
// the buffer or is not a sequence of complete instructions.
func New(strip Strip, numLEDs uint8, opts ...Option) (*Sequencer, error) {
	cfg := &config{
		capacity: DefaultCapacity,
		maxSteps: DefaultMaxStepsPerTick,
		policy:   PixelSkip,
		program:  DefaultProgram,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.maxSteps <= 0 {
		cfg.maxSteps = DefaultMaxStepsPerTick
	}

	store := NewStore(cfg.capacity)
	if err := store.Load(cfg.program); err != nil {
		return nil, fmt.Errorf("preload program: %w", err)
	}

	s := &Sequencer{
		mode:    ModePaused,
		strip:   strip,
		numLEDs: numLEDs,
		policy:  cfg.policy,
		store:   store,
		editor:  &Editor{store: store},
		player: &Player{
			store:    store,
			strip:    strip,
			numLEDs:  numLEDs,
			policy:   cfg.policy,
			maxSteps: cfg.maxSteps,
		},
	}
	return s, nil
}

// Init blanks the strip and starts playing the preloaded program. An empty
// program leaves the sequencer paused.
func (s *Sequencer) Init() {
	log.Infof("init, %d leds, %d byte program", s.numLEDs, s.store.End())
	s.strip.Clear()
	_ = s.run()
}

// HandleCommand processes one command from the command source. payload is
// always four bytes; bytes an instruction does not use are ignored.
//
// Outside command-entry mode the command is a structural Command. In
// command-entry mode it is an instruction Opcode to append, or the
// terminator to leave edit mode.
//
// Every returned error means the command was ignored and state is
// unchanged.
func (s *Sequencer) HandleCommand(command byte, payload [4]byte) error {
	if s.mode != ModeCommandEntry {
		return s.handleStructural(command)
	}
	return s.handleEntry(command, payload)
}

func (s *Sequencer) handleStructural(b byte) error {
	cmd, ok := DecodeCommand(b)
	if !ok {
		log.Debugf("ignore command 0x%02X in %s mode", b, s.mode)
		return fmt.Errorf("command 0x%02X: %w", b, ErrInvalidCommand)
	}
	switch cmd {
	case CmdClear:
		s.clear()
	case CmdRun:
		return s.run()
	case CmdPause:
		s.pause()
	case CmdEnterEdit:
		s.enterEdit()
	}
	return nil
}

func (s *Sequencer) handleEntry(b byte, payload [4]byte) error {
	op, ok := DecodeOpcode(b)
	if !ok {
		log.Debugf("ignore opcode 0x%02X in %s mode", b, s.mode)
		return fmt.Errorf("opcode 0x%02X: %w", b, ErrInvalidOpcode)
	}
	if op == OpTerminator {
		s.exitEdit()
		return nil
	}
	in := FromPayload(op, payload)
	if op == OpSetPixel && s.policy == PixelReject && in.Operands[0] >= s.numLEDs {
		return fmt.Errorf("append pixel %d of %d: %w", in.Operands[0], s.numLEDs, ErrPixelOutOfRange)
	}
	log.Infof("add_instruction %s", in)
	if err := s.editor.Append(in); err != nil {
		log.Infof("append rejected: %s", err)
		return err
	}
	return nil
}

func (s *Sequencer) clear() {
	log.Info("clear_instructions")
	s.mode = ModePaused
	s.store.Reset()
	s.editor.Reset()
	s.player.Rewind()
	s.player.CancelDelay()
	s.strip.Clear()
}

func (s *Sequencer) run() error {
	if s.mode == ModeRunning {
		return nil
	}
	if s.store.Empty() {
		log.Info("run ignored, program is empty")
		return ErrEmptyProgram
	}
	log.Info("run")
	s.mode = ModeRunning
	return nil
}

func (s *Sequencer) pause() {
	log.Info("pause")
	s.mode = ModePaused
	s.player.CancelDelay()
}

func (s *Sequencer) enterEdit() {
	s.mode = ModeCommandEntry
	s.player.CancelDelay()
	s.editor.Begin()
	log.Infof("start_instruction_entry at offset %d, %d bytes free", s.editor.Cursor(), s.store.Remaining())
	s.strip.Clear()
}

func (s *Sequencer) exitEdit() {
	if !s.editor.Finish() {
		log.Info("program fills the buffer, no terminator written")
	}
	log.Infof("exit_instruction_entry, program ends at offset %d", s.editor.Cursor())
	s.mode = ModePaused
	s.player.Rewind()
}

// Tick advances playback by one time quantum. It does nothing unless the
// sequencer is running.
func (s *Sequencer) Tick() TickReport {
	if s.mode != ModeRunning {
		return TickReport{}
	}
	return s.player.Tick()
}

// Load replaces the program outside of edit mode and leaves the sequencer
// paused at offset 0. It fails with ErrBusy while running or editing.
func (s *Sequencer) Load(code []byte) error {
	if s.mode != ModePaused {
		return fmt.Errorf("load in %s mode: %w", s.mode, ErrBusy)
	}
	if err := s.store.Load(code); err != nil {
		return err
	}
	s.editor.Reset()
	s.player.Rewind()
	s.player.CancelDelay()
	log.Infof("loaded %d byte program", len(code))
	return nil
}

// Mode returns the current mode.
func (s *Sequencer) Mode() Mode {
	return s.mode
}

// Store returns the program store. Callers must not mutate it.
func (s *Sequencer) Store() *Store {
	return s.store
}

// Program returns a copy of the current program. While instructions are
// being entered the buffer holds no terminator, so the program ends at the
// append cursor rather than at whatever the old program left behind.
func (s *Sequencer) Program() []byte {
	return s.store.Prefix(s.programEnd())
}

func (s *Sequencer) programEnd() int {
	if s.mode == ModeCommandEntry {
		return s.editor.Cursor()
	}
	return s.store.End()
}

// NumLEDs returns the strip length.
func (s *Sequencer) NumLEDs() uint8 {
	return s.numLEDs
}

// State is a point-in-time view of the sequencer.
type State struct {
	Mode         Mode
	Capacity     int
	Remaining    int
	ProgramLen   int
	AppendCursor int
	PlayCursor   int
	Delay        uint8
}

// State returns a snapshot of the controller state.
func (s *Sequencer) State() State {
	return State{
		Mode:         s.mode,
		Capacity:     s.store.Capacity(),
		Remaining:    s.store.Remaining(),
		ProgramLen:   s.programEnd(),
		AppendCursor: s.editor.Cursor(),
		PlayCursor:   s.player.Cursor(),
		Delay:        s.player.Delay(),
	}
}
