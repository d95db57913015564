// Package event is the in-process domain event bus. Services fire events
// such as "site.saved" or "order.completed"; listeners fan them out to the
// WebSocket hub, the message broker and the mail queue.
package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/developlogy/sitebuilder/pkg/logger"
)

// Handler receives an event payload. Returned errors are logged, never
// propagated to the firing service.
type Handler func(ctx context.Context, payload any) error

// Bus maps event names to listeners.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	wg       sync.WaitGroup
}

func NewBus() *Bus {
	return &Bus{handlers: map[string][]Handler{}}
}

var defaultBus = NewBus()

// Default returns the process-wide bus.
func Default() *Bus { return defaultBus }

// Listen registers handler for event on the default bus.
func Listen(event string, handler Handler) { defaultBus.Listen(event, handler) }

// Fire dispatches on the default bus synchronously.
func Fire(ctx context.Context, event string, payload any) { defaultBus.Fire(ctx, event, payload) }

// FireAsync dispatches on the default bus without waiting.
func FireAsync(ctx context.Context, event string, payload any) {
	defaultBus.FireAsync(ctx, event, payload)
}

func (b *Bus) Listen(event string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[event] = append(b.handlers[event], handler)
}

func (b *Bus) listeners(event string) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]Handler(nil), b.handlers[event]...)
}

// Fire runs every listener of event in registration order.
func (b *Bus) Fire(ctx context.Context, event string, payload any) {
	for _, h := range b.listeners(event) {
		b.call(ctx, event, h, payload)
	}
}

// FireAsync runs each listener on its own goroutine with a context that is
// not cancelled when the request ends.
func (b *Bus) FireAsync(ctx context.Context, event string, payload any) {
	detached := context.WithoutCancel(ctx)
	for _, h := range b.listeners(event) {
		b.wg.Add(1)
		go func(h Handler) {
			defer b.wg.Done()
			b.call(detached, event, h, payload)
		}(h)
	}
}

// Wait blocks until every FireAsync listener has returned.
func (b *Bus) Wait() { b.wg.Wait() }

func (b *Bus) call(ctx context.Context, event string, h Handler, payload any) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("event: listener panicked", "event", event, "panic", fmt.Sprint(r))
		}
	}()
	if err := h(ctx, payload); err != nil {
		logger.WithCtx(ctx).Warn("event: listener failed", "event", event, "error", err)
	}
}

// Flush removes all listeners.
func (b *Bus) Flush() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = map[string][]Handler{}
}
