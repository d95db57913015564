package workerpool_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/workerpool"
)

func submitEventually(t *testing.T, pool *workerpool.Pool, task func()) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		err := pool.Submit(task)
		if err == nil {
			return
		}
		if !errors.Is(err, workerpool.ErrPoolFull) || time.Now().After(deadline) {
			t.Fatalf("submit failed: %v", err)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestPool_SubmitAndExecute(t *testing.T) {
	pool := workerpool.New("test", 4, 16)
	defer pool.Shutdown()

	const n = 100
	var count atomic.Int64
	var wg sync.WaitGroup
	wg.Add(n)

	for i := 0; i < n; i++ {
		submitEventually(t, pool, func() {
			defer wg.Done()
			count.Add(1)
		})
	}
	wg.Wait()

	if got := count.Load(); got != n {
		t.Errorf("expected %d tasks to run, got %d", n, got)
	}
}

func TestPool_ErrPoolFull(t *testing.T) {
	pool := workerpool.New("test", 1, 2)
	defer pool.Shutdown()

	blocker := make(chan struct{})
	started := make(chan struct{})
	_ = pool.Submit(func() {
		close(started)
		<-blocker
	})
	<-started

	_ = pool.Submit(func() {})
	_ = pool.Submit(func() {})

	if err := pool.Submit(func() {}); !errors.Is(err, workerpool.ErrPoolFull) {
		t.Errorf("expected ErrPoolFull, got %v", err)
	}
	if pool.Pending() != 2 {
		t.Errorf("expected 2 pending tasks, got %d", pool.Pending())
	}

	close(blocker)
}

func TestPool_ErrPoolClosed(t *testing.T) {
	pool := workerpool.New("test", 2, 0)
	pool.Shutdown()
	pool.Shutdown()

	if err := pool.Submit(func() {}); !errors.Is(err, workerpool.ErrPoolClosed) {
		t.Errorf("expected ErrPoolClosed after Shutdown, got %v", err)
	}
}

func TestPool_ShutdownDrainsQueue(t *testing.T) {
	pool := workerpool.New("test", 1, 10)
	var ran atomic.Int64
	for i := 0; i < 10; i++ {
		_ = pool.Submit(func() {
			time.Sleep(time.Millisecond)
			ran.Add(1)
		})
	}
	pool.Shutdown()
	if ran.Load() != 10 {
		t.Fatalf("expected queued tasks to finish before Shutdown returns, ran %d", ran.Load())
	}
}

func TestPool_PanicRecovery(t *testing.T) {
	logger.Discard()
	pool := workerpool.New("test", 1, 0)
	defer pool.Shutdown()

	_ = pool.Submit(func() { panic("boom") })

	normal := make(chan struct{})
	submitEventually(t, pool, func() { close(normal) })

	select {
	case <-normal:
	case <-time.After(2 * time.Second):
		t.Fatal("pool did not recover from panic")
	}
}

func TestPool_ConcurrentSubmitAndShutdown(t *testing.T) {
	pool := workerpool.New("test", 4, 8)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = pool.Submit(func() {})
			}
		}()
	}
	pool.Shutdown()
	wg.Wait()
}
