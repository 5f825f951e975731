package jobstore

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kthendral/optimizehub/internal/platform/logger"
	"github.com/kthendral/optimizehub/internal/realtime/bus"
)

type fakeBus struct {
	mu   sync.Mutex
	seen []bus.Event
}

func (f *fakeBus) Publish(_ context.Context, ev bus.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, ev)
	return nil
}

func (f *fakeBus) StartForwarder(context.Context, func(ev bus.Event)) error { return nil }
func (f *fakeBus) Close() error                                            { return nil }

func (f *fakeBus) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.seen)
}

func TestStoreForwardsChangeEventsToBus(t *testing.T) {
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	fb := &fakeBus{}
	s, err := New(log, WithRetention(time.Hour), WithBus(fb))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	job := newPendingJob()
	if err := s.Create(job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for fb.count() < 1 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if fb.count() != 1 {
		t.Fatalf("bus received %d events, want 1", fb.count())
	}
}

func TestStoreWithoutBusDefaultsToNoop(t *testing.T) {
	s := newTestStore(t)
	job := newPendingJob()
	if err := s.Create(job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Default bus.Noop() must not panic or block on publish.
}
