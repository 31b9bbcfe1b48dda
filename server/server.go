package server

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/tliron/commonlog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/chazu/ledseq/journal"
)

var log = commonlog.GetLogger("ledseq.server")

// Server exposes a sequencer over Connect and gRPC. Both protocols share
// one port; HTTP/2 is accepted in cleartext.
type Server struct {
	worker *Worker
	mux    *http.ServeMux
	http   *http.Server
}

// Option configures a Server.
type Option func(*serverConfig)

type serverConfig struct {
	journal *journal.Journal
}

// WithJournal records every received command in j.
func WithJournal(j *journal.Journal) Option {
	return func(c *serverConfig) { c.journal = j }
}

// New creates a Server routing requests through w.
func New(w *Worker, opts ...Option) *Server {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Server{
		worker: w,
		mux:    http.NewServeMux(),
	}

	path, handler := NewSequencerService(w, cfg.journal).Handler()
	s.mux.Handle(path, handler)

	s.http = &http.Server{Handler: s.Handler()}
	return s
}

// Handler returns the root handler, wrapped for cleartext HTTP/2.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(s.mux, &http2.Server{})
}

// ListenAndServe starts serving on addr ("host:port" or ":port"). It returns
// nil after Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(l)
}

// Serve accepts connections on l. It returns nil after Shutdown.
func (s *Server) Serve(l net.Listener) error {
	log.Noticef("sequencer listening on %s", l.Addr())
	log.Infof("  Connect: http://%s%s", l.Addr(), HandleCommandProcedure)
	log.Infof("  gRPC:    grpc://%s", l.Addr())
	if err := s.http.Serve(l); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, waits for in-flight ones, then stops
// the worker.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	s.worker.Stop()
	return err
}
