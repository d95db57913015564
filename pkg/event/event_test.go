package event_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/developlogy/sitebuilder/pkg/event"
	"github.com/developlogy/sitebuilder/pkg/logger"
)

func TestFireRunsListenersInOrder(t *testing.T) {
	bus := event.NewBus()
	var order []string
	bus.Listen("site.saved", func(_ context.Context, p any) error {
		order = append(order, "first:"+p.(string))
		return nil
	})
	bus.Listen("site.saved", func(_ context.Context, p any) error {
		order = append(order, "second:"+p.(string))
		return nil
	})
	bus.Listen("order.completed", func(context.Context, any) error {
		t.Fatal("unrelated listener must not run")
		return nil
	})

	bus.Fire(context.Background(), "site.saved", "site-1")

	if len(order) != 2 || order[0] != "first:site-1" || order[1] != "second:site-1" {
		t.Fatalf("unexpected order %v", order)
	}
}

func TestListenerFailuresAreContained(t *testing.T) {
	logger.Discard()
	bus := event.NewBus()
	var ran atomic.Int32
	bus.Listen("order.failed", func(context.Context, any) error { return errors.New("broker down") })
	bus.Listen("order.failed", func(context.Context, any) error { panic("bad listener") })
	bus.Listen("order.failed", func(context.Context, any) error { ran.Add(1); return nil })

	bus.Fire(context.Background(), "order.failed", nil)
	if ran.Load() != 1 {
		t.Fatal("later listeners must still run")
	}
}

func TestFireAsyncSurvivesCancelledContext(t *testing.T) {
	bus := event.NewBus()
	var sawCancel atomic.Bool
	bus.Listen("site.saved", func(ctx context.Context, _ any) error {
		sawCancel.Store(ctx.Err() != nil)
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	bus.FireAsync(ctx, "site.saved", nil)
	bus.Wait()

	if sawCancel.Load() {
		t.Fatal("async listeners must get a detached context")
	}
}
