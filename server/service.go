package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/chazu/ledseq/journal"
	"github.com/chazu/ledseq/pkg/image"
	"github.com/chazu/ledseq/pkg/sequencer"
)

// ServiceName is the fully-qualified name of the sequencer service.
const ServiceName = "ledseq.v1.SequencerService"

// Procedure paths, in the form Connect and gRPC both route on.
const (
	HandleCommandProcedure = "/" + ServiceName + "/HandleCommand"
	InspectProcedure       = "/" + ServiceName + "/Inspect"
	SnapshotProcedure      = "/" + ServiceName + "/Snapshot"
	LoadProcedure          = "/" + ServiceName + "/Load"
)

// StatusOK is the status of an accepted command.
const StatusOK = "ok"

// MaxFrameLen is the length of a full command frame: the command byte
// followed by the four payload bytes.
const MaxFrameLen = 5

// ErrBadFrame is returned for command frames that are empty or too long.
var ErrBadFrame = errors.New("malformed command frame")

var statusErrors = []error{
	sequencer.ErrCapacityExceeded,
	sequencer.ErrInvalidOpcode,
	sequencer.ErrInvalidCommand,
	sequencer.ErrEmptyProgram,
	sequencer.ErrPixelOutOfRange,
	sequencer.ErrCorruptProgram,
	sequencer.ErrBusy,
}

// Status maps the result of a sequencer operation to the status string
// returned to clients.
func Status(err error) string {
	if err == nil {
		return StatusOK
	}
	for _, e := range statusErrors {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return err.Error()
}

// EncodeFrame builds a command frame. Missing payload bytes are zero and
// extra ones are dropped.
func EncodeFrame(command byte, payload ...byte) []byte {
	frame := make([]byte, MaxFrameLen)
	frame[0] = command
	copy(frame[1:], payload)
	return frame
}

// ParseFrame splits a command frame. Short frames are zero-padded.
func ParseFrame(frame []byte) (byte, [4]byte, error) {
	var payload [4]byte
	if len(frame) == 0 || len(frame) > MaxFrameLen {
		return 0, payload, fmt.Errorf("%d bytes: %w", len(frame), ErrBadFrame)
	}
	copy(payload[:], frame[1:])
	return frame[0], payload, nil
}

// SequencerService implements the sequencer Connect/gRPC handler.
type SequencerService struct {
	worker  *Worker
	journal *journal.Journal
}

// NewSequencerService creates a SequencerService. j may be nil.
func NewSequencerService(w *Worker, j *journal.Journal) *SequencerService {
	return &SequencerService{worker: w, journal: j}
}

// Handler returns the path prefix and handler serving all procedures.
func (s *SequencerService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	mux := http.NewServeMux()
	mux.Handle(HandleCommandProcedure, connect.NewUnaryHandler(HandleCommandProcedure, s.HandleCommand, opts...))
	mux.Handle(InspectProcedure, connect.NewUnaryHandler(InspectProcedure, s.Inspect, opts...))
	mux.Handle(SnapshotProcedure, connect.NewUnaryHandler(SnapshotProcedure, s.Snapshot, opts...))
	mux.Handle(LoadProcedure, connect.NewUnaryHandler(LoadProcedure, s.Load, opts...))
	return "/" + ServiceName + "/", mux
}

type commandOutcome struct {
	mode sequencer.Mode
	err  error
}

// HandleCommand feeds one command frame to the sequencer.
func (s *SequencerService) HandleCommand(
	ctx context.Context,
	req *connect.Request[wrapperspb.BytesValue],
) (*connect.Response[wrapperspb.StringValue], error) {
	command, payload, err := ParseFrame(req.Msg.GetValue())
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	v, err := s.worker.Do(func(seq *sequencer.Sequencer) interface{} {
		mode := seq.Mode()
		return commandOutcome{mode: mode, err: seq.HandleCommand(command, payload)}
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	out := v.(commandOutcome)
	status := Status(out.err)

	if s.journal != nil {
		entry := journal.Entry{Command: command, Payload: payload, Mode: out.mode.String(), Status: status}
		if err := s.journal.Record(ctx, entry); err != nil {
			log.Errorf("journal: %s", err)
		}
	}
	return connect.NewResponse(wrapperspb.String(status)), nil
}

// Inspect returns the program listing with the controller state.
func (s *SequencerService) Inspect(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[wrapperspb.StringValue], error) {
	v, err := s.worker.Do(func(seq *sequencer.Sequencer) interface{} {
		return seq.Listing()
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(wrapperspb.String(v.(string))), nil
}

// Snapshot returns the current program as a CBOR image.
func (s *SequencerService) Snapshot(
	ctx context.Context,
	req *connect.Request[emptypb.Empty],
) (*connect.Response[wrapperspb.BytesValue], error) {
	v, err := s.worker.Do(func(seq *sequencer.Sequencer) interface{} {
		return image.FromSequencer(seq)
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	data, err := image.Marshal(v.(*image.Image))
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	return connect.NewResponse(wrapperspb.Bytes(data)), nil
}

// Load replaces the program with the one in a CBOR image.
func (s *SequencerService) Load(
	ctx context.Context,
	req *connect.Request[wrapperspb.BytesValue],
) (*connect.Response[wrapperspb.StringValue], error) {
	img, err := image.Unmarshal(req.Msg.GetValue())
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	v, err := s.worker.Do(func(seq *sequencer.Sequencer) interface{} {
		return seq.Load(img.Code)
	})
	if err != nil {
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	loadErr, _ := v.(error)
	return connect.NewResponse(wrapperspb.String(Status(loadErr))), nil
}
