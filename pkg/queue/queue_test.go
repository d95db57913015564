package queue_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/queue"
)

var handled atomic.Int32

type echoJob struct {
	Val string `json:"val"`
}

func (j *echoJob) Handle(context.Context) error {
	if j.Val == "hello" {
		handled.Add(1)
	}
	return nil
}

type failJob struct {
	Reason string `json:"reason"`
}

func (j *failJob) Handle(context.Context) error { return errors.New(j.Reason) }

type unregisteredJob struct{}

func (unregisteredJob) Handle(context.Context) error { return nil }

type recordingStore struct{ saved []queue.FailedJob }

func (s *recordingStore) SaveFailed(_ context.Context, f queue.FailedJob) error {
	s.saved = append(s.saved, f)
	return nil
}

func newManager(t *testing.T) (*queue.Manager, *queue.MemoryDriver) {
	t.Helper()
	logger.Discard()
	d := queue.NewMemoryDriver(10)
	m := queue.NewManager(d)
	m.SetRetry(2, func(int) time.Duration { return 0 })
	m.Register(func() queue.Job { return &echoJob{} })
	m.Register(func() queue.Job { return &failJob{} })
	return m, d
}

func TestDispatchAndProcess(t *testing.T) {
	m, _ := newManager(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.StartWorkers(ctx, 2)

	before := handled.Load()
	if err := m.Dispatch(ctx, &echoJob{Val: "hello"}); err != nil {
		t.Fatalf("dispatch failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for handled.Load() == before {
		if time.Now().After(deadline) {
			t.Fatal("job was never handled")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFailedJobIsRecorded(t *testing.T) {
	m, d := newManager(t)
	store := &recordingStore{}
	m.UseFailureStore(store)
	ctx := context.Background()

	if err := m.Dispatch(ctx, &failJob{Reason: "smtp down"}); err != nil {
		t.Fatal(err)
	}
	raw, err := d.Pop(ctx)
	if err != nil {
		t.Fatal(err)
	}
	m.Process(ctx, raw)

	failed := m.FailedJobs()
	if len(failed) != 1 || failed[0].Attempts != 2 || failed[0].Err.Error() != "smtp down" {
		t.Fatalf("unexpected failed jobs %+v", failed)
	}
	if len(store.saved) != 1 {
		t.Fatalf("expected failure to be persisted, got %d", len(store.saved))
	}
}

func TestDispatchRejectsUnregisteredJob(t *testing.T) {
	m, _ := newManager(t)
	err := m.Dispatch(context.Background(), unregisteredJob{})
	if !errors.Is(err, queue.ErrUnregistered) {
		t.Fatalf("expected ErrUnregistered, got %v", err)
	}
}

func TestMemoryDriverFull(t *testing.T) {
	d := queue.NewMemoryDriver(1)
	ctx := context.Background()
	if err := d.Push(ctx, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if err := d.Push(ctx, []byte("b")); !errors.Is(err, queue.ErrQueueFull) {
		t.Fatalf("expected ErrQueueFull, got %v", err)
	}
	if d.Len() != 1 {
		t.Fatalf("expected 1 pending, got %d", d.Len())
	}
}

func TestPopHonoursCancellation(t *testing.T) {
	d := queue.NewMemoryDriver(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := d.Pop(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
