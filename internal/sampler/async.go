package sampler

import (
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// AsyncWriter moves window writes off the simulation goroutine. Windows are
// queued on a bounded channel and written in order by one goroutine. The
// first failure is latched: later windows are dropped and WriteWindow
// reports the error so the sampler can stop tracing.
type AsyncWriter struct {
	next   WindowWriter
	queue  chan Window
	done   chan struct{}
	logger zerolog.Logger

	// mu serialises senders against Close, errMu guards err.
	mu     sync.Mutex
	closed bool
	errMu  sync.Mutex
	err    error
}

func NewAsyncWriter(next WindowWriter, depth int, logger zerolog.Logger) *AsyncWriter {
	if depth < 1 {
		depth = 1
	}
	a := &AsyncWriter{
		next:   next,
		queue:  make(chan Window, depth),
		done:   make(chan struct{}),
		logger: logger,
	}
	go a.run()
	return a
}

func (a *AsyncWriter) run() {
	defer close(a.done)
	for w := range a.queue {
		if a.Err() != nil {
			continue
		}
		if err := a.next.WriteWindow(w); err != nil {
			a.errMu.Lock()
			a.err = err
			a.errMu.Unlock()
			a.logger.Error().Err(err).Uint32("core", w.Core).Uint32("window", w.Index).
				Msg("background trace write failed")
		}
	}
}

// WriteWindow queues w. It blocks only while the queue is full.
func (a *AsyncWriter) WriteWindow(w Window) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrWriterClosed
	}
	if err := a.Err(); err != nil {
		return err
	}
	a.queue <- w
	return nil
}

// Err returns the latched write error.
func (a *AsyncWriter) Err() error {
	a.errMu.Lock()
	defer a.errMu.Unlock()
	return a.err
}

// Close drains the queue, closes the underlying writer if it is an
// io.Closer and returns the first error seen.
func (a *AsyncWriter) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		<-a.done
		return a.Err()
	}
	a.closed = true
	close(a.queue)
	a.mu.Unlock()

	<-a.done

	var closeErr error
	if c, ok := a.next.(io.Closer); ok {
		closeErr = c.Close()
	}
	if err := a.Err(); err != nil {
		return err
	}
	return closeErr
}
