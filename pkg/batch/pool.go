// Package batch runs homogeneous fan-out work on a bounded worker pool.
//
// Domain clients share one Pool per provider and use Run to hydrate many
// records concurrently. Results are partial on purpose: a failed item never
// fails the batch, it is logged and omitted.
package batch

import (
	"errors"
	"sync"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("batch: pool is closed")

// Pool is a fixed-size worker pool. Tasks run on whichever worker frees up
// first.
type Pool struct {
	tasks  chan func()
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines ready to execute submitted tasks.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 10
	}

	p := &Pool{tasks: make(chan func())}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for task := range p.tasks {
		task()
	}
}

// Submit enqueues a task, blocking while every worker is busy.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Close stops intake and blocks until in-flight tasks finish. Safe to call
// more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	p.mu.Unlock()

	close(p.tasks)
	p.wg.Wait()
}
