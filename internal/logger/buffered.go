package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer stops the buffered handler after flushing what it holds. The
// synchronous path returns a no-op.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

// entry pairs a record with the handler variant that must encode it.
// Records logged through a derived handler (logger.With) carry their extra
// attributes via that variant rather than the root handler.
type entry struct {
	h   slog.Handler
	rec slog.Record
}

// bufferedCore is the state shared by a root handler and everything derived
// from it. One drain goroutine serves the whole family.
type bufferedCore struct {
	ch      chan entry
	done    chan struct{}
	once    sync.Once
	dropped atomic.Uint64
}

// BufferedHandler moves record encoding off the calling goroutine. Sync and
// analysis passes log from worker goroutines; buffering keeps a slow stdout
// from stalling them. When the buffer is full the record is counted and
// discarded rather than blocking the caller.
type BufferedHandler struct {
	inner slog.Handler
	core  *bufferedCore
}

// NewBufferedHandler wraps inner with a buffer of size records and starts
// the drain goroutine.
func NewBufferedHandler(inner slog.Handler, size int) *BufferedHandler {
	core := &bufferedCore{
		ch:   make(chan entry, size),
		done: make(chan struct{}),
	}
	go func() {
		for e := range core.ch {
			_ = e.h.Handle(context.Background(), e.rec)
		}
		close(core.done)
	}()
	return &BufferedHandler{inner: inner, core: core}
}

func (h *BufferedHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues the record for the drain goroutine, dropping it when the
// buffer is full. The record is cloned because it outlives this call.
func (h *BufferedHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.core.ch <- entry{h: h.inner, rec: rec.Clone()}:
	default:
		h.core.dropped.Add(1)
	}
	return nil
}

// WithAttrs derives the inner handler and keeps the shared core, so the new
// attributes ride along with each enqueued record.
func (h *BufferedHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &BufferedHandler{inner: h.inner.WithAttrs(attrs), core: h.core}
}

func (h *BufferedHandler) WithGroup(name string) slog.Handler {
	return &BufferedHandler{inner: h.inner.WithGroup(name), core: h.core}
}

// Dropped reports how many records were discarded on a full buffer.
func (h *BufferedHandler) Dropped() uint64 {
	return h.core.dropped.Load()
}

// Close flushes buffered records and stops the drain goroutine. Safe to call
// more than once; only the first call does the work.
func (h *BufferedHandler) Close() {
	h.core.once.Do(func() {
		close(h.core.ch)
		<-h.core.done
	})
}
