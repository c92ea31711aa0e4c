// Package worker provides a small bounded pool that decouples transport
// callbacks from event processing.
package worker

import (
	"context"
	"log/slog"
	"sync"
)

type ProcessFunc[T any] func(ctx context.Context, job T) error

type Pool[T any] struct {
	numWorkers int
	jobs       chan T
	processor  ProcessFunc[T]
	wg         sync.WaitGroup
}

func NewPool[T any](numWorkers int, bufferSize int, processor ProcessFunc[T]) *Pool[T] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool[T]{
		numWorkers: numWorkers,
		jobs:       make(chan T, bufferSize),
		processor:  processor,
	}
}

func (p *Pool[T]) Start(ctx context.Context) {
	for i := 1; i <= p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool[T]) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			if err := p.processor(ctx, job); err != nil {
				slog.Error("job processing failed", "worker", id, "error", err)
			}
		}
	}
}

// Submit enqueues a job, blocking while the buffer is full. It gives up and
// reports false once ctx is canceled, so shutdown never waits behind a full
// buffer. Callers must not submit after Stop.
func (p *Pool[T]) Submit(ctx context.Context, job T) bool {
	select {
	case p.jobs <- job:
		return true
	case <-ctx.Done():
		return false
	}
}

func (p *Pool[T]) Stop() {
	close(p.jobs)
	p.wg.Wait()
}
