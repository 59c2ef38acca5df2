package taskpool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/baassets/pipeline/internal/constants"
)

func TestManagerProcessesAllTasks(t *testing.T) {
	var processed int64
	m := NewManager(4, 8, func(ctx context.Context, item any) error {
		atomic.AddInt64(&processed, 1)
		return nil
	})

	items := make([]any, 50)
	for i := range items {
		items[i] = i
	}
	m.ImportTasks(items)

	m.Run(context.Background())

	if got := atomic.LoadInt64(&processed); got != 50 {
		t.Errorf("processed %d tasks, want 50", got)
	}
	if p := m.Pending(); p != 0 {
		t.Errorf("Pending() = %d after Run, want 0", p)
	}
	if !m.Announced() {
		t.Error("Announced() = false after Run returned")
	}
}

func TestManagerFIFOOrder(t *testing.T) {
	var mu sync.Mutex
	var order []int

	m := NewManager(1, 1, func(ctx context.Context, item any) error {
		mu.Lock()
		order = append(order, item.(int))
		mu.Unlock()
		return nil
	})

	for i := 0; i < 10; i++ {
		m.Push(i)
	}
	m.Run(context.Background())

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		if v != i {
			t.Fatalf("order[%d] = %d, want %d (FIFO violated): %v", i, v, i, order)
		}
	}
}

func TestIncreaseWorkerCapsAtMaxWorkers(t *testing.T) {
	block := make(chan struct{})
	var started int32

	m := NewManager(0, 2, func(ctx context.Context, item any) error {
		atomic.AddInt32(&started, 1)
		<-block
		return nil
	})

	for i := 0; i < 5; i++ {
		m.Push(i)
	}

	for i := 0; i < 5; i++ {
		m.IncreaseWorker()
	}

	time.Sleep(50 * time.Millisecond)
	if got := atomic.LoadInt32(&started); got > 2 {
		t.Errorf("started %d workers concurrently, want at most 2 (maxWorkers cap)", got)
	}
	close(block)
}

func TestSetRelationWaitsForUpstream(t *testing.T) {
	upstream := NewManager(1, 1, func(ctx context.Context, item any) error {
		return nil
	})
	upstream.Push("a")

	var downstreamProcessed int64
	downstream := NewManager(1, 1, func(ctx context.Context, item any) error {
		atomic.AddInt64(&downstreamProcessed, 1)
		return nil
	})
	downstream.SetRelation("shut", upstream)

	done := make(chan struct{})
	go func() {
		downstream.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
		t.Fatal("downstream returned before upstream announced completion")
	case <-time.After(3 * constants.DequeueTimeout):
	}

	upstream.Run(context.Background())

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("downstream never shut down after upstream announced")
	}
}

func TestCancelDrainsWithoutProcessing(t *testing.T) {
	var processed int64
	var cancelFired int64

	m := NewManager(1, 1, func(ctx context.Context, item any) error {
		atomic.AddInt64(&processed, 1)
		time.Sleep(20 * time.Millisecond)
		return nil
	})
	m.SetCancelCallback(func() {
		atomic.AddInt64(&cancelFired, 1)
	})

	for i := 0; i < 20; i++ {
		m.Push(i)
	}

	done := make(chan struct{})
	go func() {
		m.Run(context.Background())
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	m.Cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after Cancel")
	}

	if cancelFired != 1 {
		t.Errorf("cancel callback fired %d times, want 1", cancelFired)
	}
	if atomic.LoadInt64(&processed) >= 20 {
		t.Error("Cancel should have stopped processing before all 20 items completed")
	}
}
