package server

import (
	"errors"
	"fmt"
	"sync"

	"github.com/chazu/ledseq/pkg/sequencer"
)

// ErrStopped is returned by Do after the worker has been stopped.
var ErrStopped = errors.New("worker stopped")

// request represents a unit of work to be executed on the sequencer goroutine.
type request struct {
	fn   func(*sequencer.Sequencer) interface{}
	done chan result
}

// result holds the return value from a sequencer operation.
type result struct {
	value interface{}
	err   error
}

// Worker serializes all sequencer access through a single goroutine.
// The sequencer is single-threaded; RPC handlers and the ticker must go
// through the worker so commands and ticks never interleave.
type Worker struct {
	seq      *sequencer.Sequencer
	requests chan request
	quit     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a Worker and starts the processing goroutine.
func NewWorker(s *sequencer.Sequencer) *Worker {
	w := &Worker{
		seq:      s,
		requests: make(chan request, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes requests sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs a function on the sequencer, recovering from panics.
func (w *Worker) execute(fn func(*sequencer.Sequencer) interface{}) result {
	var res result
	func() {
		defer func() {
			if r := recover(); r != nil {
				log.Errorf("recovered from panic: %v", r)
				res.err = fmt.Errorf("%v", r)
			}
		}()
		res.value = fn(w.seq)
	}()
	return res
}

// Do submits a function for execution on the sequencer goroutine and blocks
// until it completes. Returns the result and any error (including panics).
func (w *Worker) Do(fn func(*sequencer.Sequencer) interface{}) (interface{}, error) {
	select {
	case <-w.quit:
		return nil, ErrStopped
	default:
	}

	req := request{
		fn:   fn,
		done: make(chan result, 1),
	}
	select {
	case w.requests <- req:
	case <-w.quit:
		return nil, ErrStopped
	}
	select {
	case res := <-req.done:
		return res.value, res.err
	case <-w.quit:
		return nil, ErrStopped
	}
}

// Stop shuts down the worker goroutine. It is safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
