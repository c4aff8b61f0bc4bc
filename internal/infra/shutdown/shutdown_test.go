package shutdown

import (
	"context"
	"errors"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestHandler_ShutdownOrder(t *testing.T) {
	h := NewHandler(time.Second)

	var order []int
	for i := 1; i <= 3; i++ {
		h.OnShutdown(func(ctx context.Context) error {
			order = append(order, i)
			return nil
		})
	}

	if err := h.Shutdown(); err != nil {
		t.Fatalf("Shutdown() = %v", err)
	}
	if diff := cmp.Diff([]int{3, 2, 1}, order); diff != "" {
		t.Errorf("hook order mismatch (-want +got):\n%s", diff)
	}

	select {
	case <-h.Done():
	default:
		t.Error("Done channel should be closed after Shutdown")
	}
}

func TestHandler_ShutdownOnce(t *testing.T) {
	h := NewHandler(time.Second)
	var calls int
	h.OnShutdown(func(ctx context.Context) error {
		calls++
		return nil
	})

	h.Shutdown()
	h.Shutdown()
	if calls != 1 {
		t.Errorf("hook ran %d times, want 1", calls)
	}
}

func TestHandler_ShutdownJoinsErrors(t *testing.T) {
	h := NewHandler(time.Second)
	errA := errors.New("close store")
	errB := errors.New("write metrics")

	var ran bool
	h.OnShutdown(func(ctx context.Context) error { ran = true; return nil })
	h.OnShutdown(func(ctx context.Context) error { return errA })
	h.OnShutdown(func(ctx context.Context) error { return errB })

	err := h.Shutdown()
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("Shutdown() = %v, want both errors", err)
	}
	if !ran {
		t.Error("hooks after a failing hook should still run")
	}
}

func TestHandler_HookContextDeadline(t *testing.T) {
	h := NewHandler(50 * time.Millisecond)
	h.OnShutdown(func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("hook context has no deadline")
		}
		return nil
	})
	h.Shutdown()
}

func TestHandler_WaitSignal(t *testing.T) {
	h := NewHandler(time.Second)
	var called bool
	h.OnShutdown(func(ctx context.Context) error {
		called = true
		return nil
	})

	type result struct {
		sig string
		err error
	}
	resCh := make(chan result, 1)
	go func() {
		sig, err := h.Wait(context.Background())
		resCh <- result{sig.String(), err}
	}()

	time.Sleep(50 * time.Millisecond)
	syscall.Kill(syscall.Getpid(), syscall.SIGTERM)

	select {
	case res := <-resCh:
		if res.err != nil {
			t.Errorf("Wait() error = %v", res.err)
		}
		if res.sig != syscall.SIGTERM.String() {
			t.Errorf("signal = %s", res.sig)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Wait() did not return")
	}
	if !called {
		t.Error("hook was not called")
	}
}

func TestHandler_WaitContextDone(t *testing.T) {
	h := NewHandler(time.Second)
	h.OnShutdown(func(ctx context.Context) error {
		t.Error("hook should not run when ctx ends")
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sig, err := h.Wait(ctx)
	if sig != nil || err != nil {
		t.Errorf("Wait() = %v, %v", sig, err)
	}
}

func TestHandler_ConcurrentOnShutdown(t *testing.T) {
	h := NewHandler(time.Second)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.OnShutdown(func(ctx context.Context) error { return nil })
		}()
	}
	wg.Wait()

	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.hooks) != 10 {
		t.Errorf("expected 10 hooks, got %d", len(h.hooks))
	}
}
