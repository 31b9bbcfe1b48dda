package server

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/chazu/ledseq/journal"
	"github.com/chazu/ledseq/pkg/image"
	"github.com/chazu/ledseq/pkg/sequencer"
	"github.com/chazu/ledseq/pkg/strip"
)

func bg() context.Context {
	return context.Background()
}

// newTestServer starts a paused sequencer with the demo program on four
// LEDs behind an httptest server.
func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *Worker) {
	t.Helper()
	seq, err := sequencer.New(strip.NewMemory(4), 4)
	require.NoError(t, err)

	w := NewWorker(seq)
	srv := httptest.NewServer(New(w, opts...).Handler())
	t.Cleanup(func() {
		srv.Close()
		w.Stop()
	})
	return srv, w
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(srv.Client(), srv.URL)
}

func currentMode(t *testing.T, w *Worker) sequencer.Mode {
	t.Helper()
	v, err := w.Do(func(s *sequencer.Sequencer) interface{} { return s.Mode() })
	require.NoError(t, err)
	return v.(sequencer.Mode)
}

func TestFrames(t *testing.T) {
	frame := EncodeFrame(0x02, 7, 1, 2)
	assert.Equal(t, []byte{0x02, 7, 1, 2, 0}, frame)

	cmd, payload, err := ParseFrame([]byte{0x03, 9})
	require.NoError(t, err)
	assert.Equal(t, byte(0x03), cmd)
	assert.Equal(t, [4]byte{9, 0, 0, 0}, payload)

	_, _, err = ParseFrame(nil)
	assert.ErrorIs(t, err, ErrBadFrame)
	_, _, err = ParseFrame(make([]byte, 6))
	assert.ErrorIs(t, err, ErrBadFrame)
}

func TestStatus(t *testing.T) {
	assert.Equal(t, StatusOK, Status(nil))
	assert.Equal(t, "capacity exceeded", Status(sequencer.ErrCapacityExceeded))
	assert.Equal(t, "program is running", Status(sequencer.ErrBusy))
}

func TestHandleCommand_EditSession(t *testing.T) {
	srv, w := newTestServer(t)
	c := newTestClient(srv)

	st, err := c.HandleCommand(bg(), byte(sequencer.CmdEnterEdit))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, st)
	assert.Equal(t, sequencer.ModeCommandEntry, currentMode(t, w))

	st, err = c.HandleCommand(bg(), byte(sequencer.OpSetPixel), 1, 255, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, st)

	st, err = c.HandleCommand(bg(), 0x07)
	require.NoError(t, err)
	assert.Equal(t, "invalid opcode", st)

	st, err = c.HandleCommand(bg(), byte(sequencer.OpTerminator))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, st)
	assert.Equal(t, sequencer.ModePaused, currentMode(t, w))

	listing, err := c.Inspect(bg())
	require.NoError(t, err)
	assert.Contains(t, listing, "; mode: paused")
	assert.Contains(t, listing, "pixel 1 255 0 0")

	st, err = c.HandleCommand(bg(), 0x09)
	require.NoError(t, err)
	assert.Equal(t, "invalid command", st)
}

func TestHandleCommand_BadFrame(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newTestClient(srv)

	_, err := c.handleCommand.CallUnary(bg(), connect.NewRequest(wrapperspb.Bytes(nil)))
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestInspectAndSnapshot_DuringEdit(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newTestClient(srv)

	for _, cmd := range []sequencer.Command{sequencer.CmdClear, sequencer.CmdEnterEdit} {
		st, err := c.HandleCommand(bg(), byte(cmd))
		require.NoError(t, err)
		require.Equal(t, StatusOK, st)
	}
	st, err := c.HandleCommand(bg(), byte(sequencer.OpClearStrip))
	require.NoError(t, err)
	require.Equal(t, StatusOK, st)

	listing, err := c.Inspect(bg())
	require.NoError(t, err)
	assert.Contains(t, listing, "; program: 1 bytes")
	assert.NotContains(t, listing, "delay")

	data, err := c.Snapshot(bg())
	require.NoError(t, err)
	img, err := image.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(sequencer.OpClearStrip)}, img.Code)
}

func TestSnapshotAndLoad(t *testing.T) {
	srv, _ := newTestServer(t)
	c := newTestClient(srv)

	data, err := c.Snapshot(bg())
	require.NoError(t, err)
	img, err := image.Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, sequencer.DefaultProgram, img.Code)
	assert.Equal(t, uint8(4), img.NumLEDs)

	code, err := sequencer.Assemble("all 0 0 255\ndelay 3")
	require.NoError(t, err)
	newImage, err := image.Marshal(image.New(code, sequencer.DefaultCapacity))
	require.NoError(t, err)

	st, err := c.Load(bg(), newImage)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, st)

	data, err = c.Snapshot(bg())
	require.NoError(t, err)
	img, err = image.Unmarshal(data)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(code, img.Code), "code = % X, want % X", img.Code, code)

	st, err = c.HandleCommand(bg(), byte(sequencer.CmdRun))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, st)

	st, err = c.Load(bg(), newImage)
	require.NoError(t, err)
	assert.Equal(t, "program is running", st)

	_, err = c.Load(bg(), []byte("not an image"))
	require.Error(t, err)
	assert.Equal(t, connect.CodeInvalidArgument, connect.CodeOf(err))
}

func TestGRPCClient(t *testing.T) {
	srv, w := newTestServer(t)

	c, err := DialGRPC(strings.TrimPrefix(srv.URL, "http://"))
	require.NoError(t, err)
	defer c.Close()

	st, err := c.HandleCommand(bg(), byte(sequencer.CmdRun))
	require.NoError(t, err)
	assert.Equal(t, StatusOK, st)
	assert.Equal(t, sequencer.ModeRunning, currentMode(t, w))

	listing, err := c.Inspect(bg())
	require.NoError(t, err)
	assert.Contains(t, listing, "; mode: running")

	data, err := c.Snapshot(bg())
	require.NoError(t, err)
	_, err = image.Unmarshal(data)
	require.NoError(t, err)

	st, err = c.Load(bg(), data)
	require.NoError(t, err)
	assert.Equal(t, "program is running", st)

	_, err = c.Load(bg(), nil)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestJournal(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	srv, _ := newTestServer(t, WithJournal(j))
	c := newTestClient(srv)

	for _, cmd := range []byte{byte(sequencer.CmdEnterEdit), byte(sequencer.OpClearStrip), 0x09, byte(sequencer.OpTerminator)} {
		_, err := c.HandleCommand(bg(), cmd)
		require.NoError(t, err)
	}

	entries, err := j.Recent(bg(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 4)

	assert.Equal(t, "paused", entries[0].Mode)
	assert.Equal(t, "command-entry", entries[1].Mode)
	assert.Equal(t, "invalid opcode", entries[2].Status)
	assert.Equal(t, "command-entry", entries[3].Mode)
	assert.Equal(t, StatusOK, entries[3].Status)
}
