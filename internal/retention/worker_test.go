package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dataconfessional/confessional/internal/storage"
)

type fakePruner struct {
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (f *fakePruner) PruneBefore(t time.Time) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cutoffs = append(f.cutoffs, t)
	return 3, f.err
}

func (f *fakePruner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cutoffs)
}

func TestRunOnce_Cutoff(t *testing.T) {
	p := &fakePruner{}
	w := NewWorker(p, 48*time.Hour, 0)
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }

	n, err := w.RunOnce()
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 3 {
		t.Errorf("n = %d, want 3", n)
	}
	if want := now.Add(-48 * time.Hour); !p.cutoffs[0].Equal(want) {
		t.Errorf("cutoff = %v, want %v", p.cutoffs[0], want)
	}
	if w.interval != time.Hour {
		t.Errorf("default interval = %v, want 1h", w.interval)
	}
}

func TestRunOnce_Error(t *testing.T) {
	boom := errors.New("database is locked")
	w := NewWorker(&fakePruner{err: boom}, time.Hour, 0)

	if _, err := w.RunOnce(); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped store error", err)
	}
}

func TestRun_DisabledReturnsImmediately(t *testing.T) {
	p := &fakePruner{}
	done := make(chan struct{})
	go func() {
		NewWorker(p, 0, time.Millisecond).Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run with zero max age did not return")
	}
	if p.calls() != 0 {
		t.Errorf("pruned %d times with retention disabled", p.calls())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	p := &fakePruner{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		NewWorker(p, time.Hour, 5*time.Millisecond).Run(ctx)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for p.calls() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if p.calls() < 2 {
		t.Errorf("pruned %d times, want at least 2", p.calls())
	}
}

func TestRunOnce_SQLiteStore(t *testing.T) {
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	defer store.Close()

	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)
	for _, age := range []time.Duration{time.Hour, 10 * 24 * time.Hour, 40 * 24 * time.Hour} {
		if _, err := store.SaveInteraction(storage.Interaction{Kind: storage.KindChat, CreatedAt: now.Add(-age)}); err != nil {
			t.Fatal(err)
		}
	}

	w := NewWorker(store, 30*24*time.Hour, 0)
	w.now = func() time.Time { return now }
	n, err := w.RunOnce()
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if n != 1 {
		t.Errorf("pruned %d, want 1", n)
	}
	if c, _ := store.CountInteractions(); c != 2 {
		t.Errorf("remaining = %d, want 2", c)
	}
}
