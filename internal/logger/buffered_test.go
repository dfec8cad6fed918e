package logger

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// sink counts records and can simulate a slow encoder.
type sink struct {
	mu    sync.Mutex
	n     int
	delay time.Duration
}

func (s *sink) Enabled(context.Context, slog.Level) bool { return true }

func (s *sink) Handle(context.Context, slog.Record) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	s.n++
	s.mu.Unlock()
	return nil
}

func (s *sink) WithAttrs([]slog.Attr) slog.Handler { return s }
func (s *sink) WithGroup(string) slog.Handler      { return s }

func (s *sink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.n
}

func TestBufferedHandlerDelivers(t *testing.T) {
	inner := &sink{}
	h := NewBufferedHandler(inner, 16)

	rec := slog.NewRecord(time.Now(), slog.LevelInfo, "synced", 0)
	if err := h.Handle(context.Background(), rec); err != nil {
		t.Fatal(err)
	}
	h.Close()

	if got := inner.count(); got != 1 {
		t.Fatalf("records = %d, want 1", got)
	}
	if h.Dropped() != 0 {
		t.Errorf("dropped = %d, want 0", h.Dropped())
	}
}

func TestBufferedHandlerKeepsDerivedAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := NewBufferedHandler(slog.NewJSONHandler(&buf, nil), 16)

	log := slog.New(h).With("service", "repolens")
	log.Info("ready", "repos", 3)
	h.Close()

	out := buf.String()
	if !strings.Contains(out, `"service":"repolens"`) {
		t.Errorf("attrs added via With must survive the buffer, got %s", out)
	}
	if !strings.Contains(out, `"repos":3`) {
		t.Errorf("per-call attrs lost, got %s", out)
	}
}

func TestBufferedHandlerDropsWhenFull(t *testing.T) {
	inner := &sink{delay: 10 * time.Millisecond}
	h := NewBufferedHandler(inner, 1)

	for range 50 {
		rec := slog.NewRecord(time.Now(), slog.LevelInfo, "burst", 0)
		_ = h.Handle(context.Background(), rec)
	}
	h.Close()

	if h.Dropped() == 0 {
		t.Fatal("expected drops with a full buffer and slow sink")
	}
	if got := uint64(inner.count()) + h.Dropped(); got != 50 {
		t.Errorf("delivered + dropped = %d, want 50", got)
	}
}

func TestBufferedHandlerCloseFlushes(t *testing.T) {
	inner := &sink{}
	h := NewBufferedHandler(inner, 256)

	const total = 200
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range total / 4 {
				rec := slog.NewRecord(time.Now(), slog.LevelInfo, "drain", 0)
				_ = h.Handle(context.Background(), rec)
			}
		}()
	}
	wg.Wait()

	// Close blocks until everything enqueued has been written, and a second
	// Close is a no-op rather than a panic.
	h.Close()
	h.Close()

	if got := inner.count(); got != total {
		t.Fatalf("records after close = %d, want %d", got, total)
	}
}
