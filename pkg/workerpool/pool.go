// Package workerpool runs tasks on a fixed set of goroutines with a bounded
// queue. Submit never blocks: when the queue is full it returns ErrPoolFull
// so the caller can shed load (analytics ingestion answers 429).
//
//	pool := workerpool.New("analytics", 8, 256)
//	defer pool.Shutdown()
//
//	if err := pool.Submit(func() { persist(event) }); errors.Is(err, workerpool.ErrPoolFull) {
//	    // back off
//	}
package workerpool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/metrics"
)

var ErrPoolFull = errors.New("workerpool: pool is full")

var ErrPoolClosed = errors.New("workerpool: pool is closed")

// Pool is a bounded goroutine pool.
type Pool struct {
	name  string
	tasks chan func()
	wg    sync.WaitGroup

	mu     sync.RWMutex // guards closed against concurrent Submit/Shutdown
	closed bool
}

// New starts size workers draining a queue of queue tasks. A queue <= 0
// defaults to twice the worker count.
func New(name string, size, queue int) *Pool {
	if size <= 0 {
		size = 1
	}
	if queue <= 0 {
		queue = size * 2
	}

	p := &Pool{name: name, tasks: make(chan func(), queue)}
	for i := 0; i < size; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Submit enqueues task without blocking.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		metrics.PoolQueued.WithLabelValues(p.name).Inc()
		return nil
	default:
		metrics.PoolRejected.WithLabelValues(p.name).Inc()
		return ErrPoolFull
	}
}

// Pending returns the number of queued tasks not yet picked up.
func (p *Pool) Pending() int { return len(p.tasks) }

// Shutdown stops accepting tasks, drains the queue and waits for the
// workers. Safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		metrics.PoolQueued.WithLabelValues(p.name).Dec()
		p.run(task)
	}
}

// run executes task, recovering panics so one bad task cannot kill a worker.
func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("workerpool: task panicked", "pool", p.name, "panic", fmt.Sprint(r))
		}
	}()
	task()
}
