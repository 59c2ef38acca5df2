// Package taskpool implements a worker pool bound to one queue and one
// worker function: import tasks, run a target number of workers against
// them, and optionally chain pools together so a downstream pool's
// shutdown waits on an upstream pool's completion.
package taskpool

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/baassets/pipeline/internal/constants"
)

// WorkerFunc processes one item taken off a Manager's queue. A non-nil
// error does not stop the pool; callers that need failure tracking (e.g.
// appending to a shared failed list) do so inside their WorkerFunc.
type WorkerFunc func(ctx context.Context, item any) error

// Manager is a worker pool bound to a single unbounded FIFO queue and a
// single WorkerFunc. Items may be enqueued before Run/RunWithoutBlock or
// at any point while the pool is live (a worker forwarding its own item
// to a downstream pool is the common case).
type Manager struct {
	worker WorkerFunc

	in  chan any
	out chan any

	targetWorkers int32
	maxWorkers    int32
	liveWorkers   int32

	pending int64 // items queued or currently being processed

	stopTask  atomic.Bool
	announced atomic.Bool

	cancelOnce     sync.Once
	cancelCallback func()

	relation *Manager // the "other" pool this one's shutdown waits on

	wg sync.WaitGroup
}

// NewManager builds a pool with targetWorkers started by Run/RunWithoutBlock
// and at most maxWorkers live at any time.
func NewManager(targetWorkers, maxWorkers int, worker WorkerFunc) *Manager {
	if maxWorkers <= 0 {
		maxWorkers = constants.DefaultMaxWorkers
	}
	if targetWorkers > maxWorkers {
		targetWorkers = maxWorkers
	}

	m := &Manager{
		worker:        worker,
		in:            make(chan any),
		out:           make(chan any),
		targetWorkers: int32(targetWorkers),
		maxWorkers:    int32(maxWorkers),
	}
	go m.bufferLoop()
	return m
}

// bufferLoop adapts an unbuffered pair of channels into an unbounded FIFO
// queue, so Push never blocks on a slow consumer and Run's dequeue can use
// a short, non-blocking-forever timeout.
func (m *Manager) bufferLoop() {
	var buf []any
	for {
		if len(buf) == 0 {
			v, ok := <-m.in
			if !ok {
				close(m.out)
				return
			}
			buf = append(buf, v)
			continue
		}

		select {
		case v, ok := <-m.in:
			if !ok {
				for _, item := range buf {
					m.out <- item
				}
				close(m.out)
				return
			}
			buf = append(buf, v)
		case m.out <- buf[0]:
			buf = buf[1:]
		}
	}
}

// ImportTasks populates the queue before Run/RunWithoutBlock is called.
func (m *Manager) ImportTasks(items []any) {
	for _, item := range items {
		m.Push(item)
	}
}

// Push enqueues a single item. Safe to call at any time, including from
// within a WorkerFunc forwarding work to a downstream Manager.
func (m *Manager) Push(item any) {
	atomic.AddInt64(&m.pending, 1)
	m.in <- item
}

// Pending reports the number of items queued or currently being
// processed. Used by the pipeline to reassign its dynamic progress total.
func (m *Manager) Pending() int64 {
	return atomic.LoadInt64(&m.pending)
}

// SetCancelCallback registers a function invoked exactly once, the first
// time Cancel is called.
func (m *Manager) SetCancelCallback(fn func()) {
	m.cancelCallback = fn
}

// SetRelation wires this manager's shutdown condition to another: once
// this manager's own queue is empty, it will not declare itself done
// until other has announced completion. kind is accepted for readability
// at call sites; "shut" is the only relation this pool understands.
func (m *Manager) SetRelation(kind string, other *Manager) {
	m.relation = other
}

// Announced reports whether this manager has fully shut down, i.e. its Run
// or Wait has returned. Downstream pools wired via SetRelation poll this.
func (m *Manager) Announced() bool {
	return m.announced.Load()
}

// LiveWorkers reports the current number of live workers.
func (m *Manager) LiveWorkers() int {
	return int(atomic.LoadInt32(&m.liveWorkers))
}

// IncreaseWorker requests one more live worker, capped at maxWorkers. No-op
// once the cap is reached.
func (m *Manager) IncreaseWorker() {
	if atomic.AddInt32(&m.liveWorkers, 1) > m.maxWorkers {
		atomic.AddInt32(&m.liveWorkers, -1)
		return
	}
	m.wg.Add(1)
	go m.workerLoop(context.Background())
}

// Run starts targetWorkers workers and blocks until the pool has shut
// down, then announces completion.
func (m *Manager) Run(ctx context.Context) {
	m.RunWithoutBlock(ctx)
	m.wg.Wait()
	m.announced.Store(true)
}

// RunWithoutBlock starts targetWorkers workers and returns immediately.
func (m *Manager) RunWithoutBlock(ctx context.Context) {
	for i := int32(0); i < m.targetWorkers; i++ {
		atomic.AddInt32(&m.liveWorkers, 1)
		m.wg.Add(1)
		go m.workerLoop(ctx)
	}
}

// Wait blocks until every live worker has exited. Run calls this
// internally; callers using RunWithoutBlock call it directly.
func (m *Manager) Wait() {
	m.wg.Wait()
	m.announced.Store(true)
}

func (m *Manager) workerLoop(ctx context.Context) {
	defer m.wg.Done()
	defer atomic.AddInt32(&m.liveWorkers, -1)

	for {
		if m.stopTask.Load() {
			m.drainWithoutProcessing()
			return
		}
		if ctx.Err() != nil {
			m.drainWithoutProcessing()
			return
		}

		select {
		case item, ok := <-m.out:
			if !ok {
				return
			}
			_ = m.worker(ctx, item)
			atomic.AddInt64(&m.pending, -1)
		case <-time.After(constants.DequeueTimeout):
			if m.shutdownReady() {
				return
			}
		}
	}
}

func (m *Manager) shutdownReady() bool {
	if atomic.LoadInt64(&m.pending) != 0 {
		return false
	}
	if m.relation == nil {
		return true
	}
	return m.relation.Announced()
}

// drainWithoutProcessing empties the queue on interrupt, marking items
// done without invoking the worker function, per the cooperative-stop
// contract.
func (m *Manager) drainWithoutProcessing() {
	for {
		select {
		case _, ok := <-m.out:
			if !ok {
				return
			}
			atomic.AddInt64(&m.pending, -1)
		default:
			return
		}
	}
}

// Cancel signals a user interrupt: the cancel callback fires once, every
// worker stops taking new items and drains the queue without processing
// it, and Cancel returns without waiting on in-flight workers.
func (m *Manager) Cancel() {
	m.cancelOnce.Do(func() {
		if m.cancelCallback != nil {
			m.cancelCallback()
		}
	})
	m.stopTask.Store(true)
}
