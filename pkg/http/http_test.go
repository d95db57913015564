package http_test

import (
	"context"
	gohttp "net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/developlogy/sitebuilder/pkg/http"
)

func TestRetriesServerErrorsThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(gohttp.StatusBadGateway)
			return
		}
		if r.Header.Get("Idempotency-Key") != "order-1" {
			t.Errorf("missing idempotency key")
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("amount") != "1999" {
			t.Errorf("unexpected form body: %v %v", r.PostForm, err)
		}
		w.Write([]byte(`{"id":"pi_123","status":"succeeded"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	resp, err := http.New(srv.Client()).Post(srv.URL).
		IdempotencyKey("order-1").
		Form(url.Values{"amount": {"1999"}}).
		Retry(3, time.Millisecond).
		Send(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	var body struct {
		ID string `json:"id"`
	}
	if err := resp.Decode(&body); err != nil || body.ID != "pi_123" {
		t.Fatalf("decode: %v %+v", err, body)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		atomic.AddInt32(&calls, 1)
		user, _, _ := r.BasicAuth()
		if user != "rzp_key" {
			t.Errorf("expected basic auth user, got %q", user)
		}
		w.WriteHeader(gohttp.StatusBadRequest)
		w.Write([]byte(`{"error":"bad amount"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	resp, err := http.New(srv.Client()).Post(srv.URL).
		BasicAuth("rzp_key", "secret").
		JSON(map[string]int{"amount": -1}).
		Retry(3, time.Millisecond).
		Send(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Fatalf("expected a single attempt, got %d", calls)
	}
	if err := resp.Throw(); !http.IsStatus(err, gohttp.StatusBadRequest) {
		t.Fatalf("expected 400 status error, got %v", err)
	}
}

func TestCancelledContextStopsRetrying(t *testing.T) {
	srv := httptest.NewServer(gohttp.HandlerFunc(func(w gohttp.ResponseWriter, r *gohttp.Request) {
		w.WriteHeader(gohttp.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := http.New(srv.Client()).Get(srv.URL).Retry(5, time.Second).Send(ctx)
	if err == nil {
		t.Fatal("expected an error for a cancelled context")
	}
}
