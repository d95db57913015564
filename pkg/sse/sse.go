// Package sse writes Server-Sent Events. The analytics dashboard uses it to
// stream live stats:
//
//	stream, err := sse.New(c.W, c.R)
//	if err != nil { ... }
//	stream.Every(ctx, 5*time.Second, func() error {
//	    stats, err := svc.Stats(ctx, siteID)
//	    if err != nil { return err }
//	    return stream.Send("stats", stats)
//	})
package sse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
)

var ErrUnsupported = errors.New("sse: response writer cannot flush")

// Stream is one open SSE connection.
type Stream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	ctx     context.Context
	flusher http.Flusher
	seq     int
}

// New writes the SSE headers and flushes them.
func New(w http.ResponseWriter, r *http.Request) (*Stream, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, ErrUnsupported
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	return &Stream{w: w, ctx: r.Context(), flusher: flusher}, nil
}

// Send writes a named event with a JSON data payload and a sequential id.
func (s *Stream) Send(event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("sse: marshal: %w", err)
	}
	if s.Closed() {
		return s.ctx.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if _, err := fmt.Fprintf(s.w, "id: %d\nevent: %s\ndata: %s\n\n", s.seq, event, payload); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Comment writes an SSE comment, used as a keep-alive.
func (s *Stream) Comment(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.w, ": %s\n\n", strings.ReplaceAll(msg, "\n", " ")); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// Closed reports whether the client has gone away.
func (s *Stream) Closed() bool { return s.ctx.Err() != nil }

// Every calls tick immediately and then every interval until the client
// disconnects, ctx is done, or tick returns an error.
func (s *Stream) Every(ctx context.Context, interval time.Duration, tick func() error) error {
	if err := tick(); err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.ctx.Done():
			return nil
		case <-ticker.C:
			if err := tick(); err != nil {
				return err
			}
		}
	}
}
