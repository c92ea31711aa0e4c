package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPool_StartStop(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		return nil
	}

	pool := NewPool(2, 10, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 5; i++ {
		pool.Submit(ctx, i)
	}

	time.Sleep(50 * time.Millisecond)

	cancel()
	pool.Stop()

	if processed.Load() != 5 {
		t.Errorf("expected 5 jobs processed, got %d", processed.Load())
	}
}

func TestPool_SingleWorkerPreservesOrder(t *testing.T) {
	var got []int
	done := make(chan struct{})
	processor := func(ctx context.Context, job int) error {
		got = append(got, job)
		if job == 9 {
			close(done)
		}
		return nil
	}

	pool := NewPool(1, 10, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 10; i++ {
		pool.Submit(ctx, i)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for jobs")
	}

	cancel()
	pool.Stop()

	for i, v := range got {
		if v != i {
			t.Fatalf("expected jobs in submit order, got %v", got)
		}
	}
}

func TestPool_ProcessorErrorsDoNotStopWorkers(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		processed.Add(1)
		if job%2 == 0 {
			return errors.New("boom")
		}
		return nil
	}

	pool := NewPool(2, 10, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 6; i++ {
		pool.Submit(ctx, i)
	}

	time.Sleep(50 * time.Millisecond)

	cancel()
	pool.Stop()

	if processed.Load() != 6 {
		t.Errorf("expected 6 jobs processed, got %d", processed.Load())
	}
}

func TestPool_SubmitUnblocksOnCancel(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 2)
	processor := func(ctx context.Context, job int) error {
		started <- struct{}{}
		<-block
		return nil
	}

	pool := NewPool(1, 1, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	// One job in flight, one filling the buffer; the next Submit must block.
	pool.Submit(ctx, 0)
	<-started
	pool.Submit(ctx, 1)

	submitted := make(chan bool)
	go func() {
		submitted <- pool.Submit(ctx, 2)
	}()

	select {
	case <-submitted:
		t.Fatal("submit returned before the buffer had room")
	case <-time.After(50 * time.Millisecond):
	}

	cancel()

	select {
	case ok := <-submitted:
		if ok {
			t.Error("submit against a canceled context must report failure")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("submit stayed blocked after cancellation")
	}

	close(block)
	pool.Stop()
}

func TestPool_GracefulShutdownDrainsInFlight(t *testing.T) {
	var processed atomic.Int64
	processor := func(ctx context.Context, job int) error {
		time.Sleep(10 * time.Millisecond)
		processed.Add(1)
		return nil
	}

	pool := NewPool(2, 50, processor)

	ctx, cancel := context.WithCancel(context.Background())
	pool.Start(ctx)

	for i := 0; i < 20; i++ {
		pool.Submit(ctx, i)
	}

	cancel()

	done := make(chan struct{})
	go func() {
		pool.Stop()
		close(done)
	}()

	select {
	case <-done:
		// Good
	case <-time.After(5 * time.Second):
		t.Fatal("pool.Stop() timed out")
	}

	t.Logf("processed %d jobs before shutdown", processed.Load())
}
