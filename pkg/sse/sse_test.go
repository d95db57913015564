package sse_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/developlogy/sitebuilder/pkg/sse"
)

func TestSendWritesEvents(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/sites/1/analytics/stream", nil)

	stream, err := sse.New(rec, req)
	if err != nil {
		t.Fatal(err)
	}
	if err := stream.Send("stats", map[string]int{"totalPageviews": 3}); err != nil {
		t.Fatal(err)
	}
	_ = stream.Comment("keep-alive")

	body := rec.Body.String()
	if rec.Header().Get("Content-Type") != "text/event-stream" {
		t.Fatalf("unexpected content type %q", rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(body, "id: 1\nevent: stats\ndata: {\"totalPageviews\":3}\n\n") {
		t.Fatalf("unexpected body %q", body)
	}
	if !strings.Contains(body, ": keep-alive\n\n") {
		t.Fatalf("missing comment in %q", body)
	}
}

func TestEveryStopsWhenClientLeaves(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	req := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)
	stream, err := sse.New(httptest.NewRecorder(), req)
	if err != nil {
		t.Fatal(err)
	}

	ticks := 0
	done := make(chan error, 1)
	go func() {
		done <- stream.Every(context.Background(), time.Millisecond, func() error {
			ticks++
			if ticks == 3 {
				cancel()
			}
			return nil
		})
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Every did not return after the client disconnected")
	}
	if !stream.Closed() {
		t.Fatal("expected stream to report closed")
	}
}
