// Package http is the outbound client used for payment gateway calls. It
// retries transport errors and 5xx responses with exponential backoff, and
// sends form or JSON bodies:
//
//	resp, err := http.Default().Post("https://api.stripe.com/v1/payment_intents").
//	    BasicAuth(secretKey, "").
//	    IdempotencyKey(orderID).
//	    Form(url.Values{"amount": {"1999"}, "currency": {"usd"}}).
//	    Retry(3, 250*time.Millisecond).
//	    Send(ctx)
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	gohttp "net/http"
	"net/url"
	"strings"
	"time"

	"github.com/developlogy/sitebuilder/pkg/logger"
)

var defaultTransport = &gohttp.Transport{
	Proxy:               gohttp.ProxyFromEnvironment,
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 20,
	IdleConnTimeout:     90 * time.Second,
}

// Client sends requests through an underlying net/http client.
type Client struct {
	hc *gohttp.Client
}

var defaultClient = &Client{hc: &gohttp.Client{Transport: defaultTransport}}

// New wraps hc. A nil hc uses the shared pooled transport.
func New(hc *gohttp.Client) *Client {
	if hc == nil {
		return defaultClient
	}
	return &Client{hc: hc}
}

// Default returns the shared client.
func Default() *Client { return defaultClient }

func (c *Client) Get(u string) *Request    { return c.newRequest(gohttp.MethodGet, u) }
func (c *Client) Post(u string) *Request   { return c.newRequest(gohttp.MethodPost, u) }
func (c *Client) Delete(u string) *Request { return c.newRequest(gohttp.MethodDelete, u) }

// Request is a fluent request builder. It is not safe for concurrent use.
type Request struct {
	client    *Client
	method    string
	url       string
	headers   gohttp.Header
	body      []byte
	ctype     string
	err       error
	timeout   time.Duration
	attempts  int
	retryWait time.Duration
}

func (c *Client) newRequest(method, u string) *Request {
	h := gohttp.Header{}
	h.Set("Accept", "application/json")
	return &Request{
		client:    c,
		method:    method,
		url:       u,
		headers:   h,
		timeout:   15 * time.Second,
		attempts:  1,
		retryWait: 250 * time.Millisecond,
	}
}

// Header sets a single header.
func (r *Request) Header(key, value string) *Request {
	r.headers.Set(key, value)
	return r
}

// Bearer sets Authorization: Bearer <token>.
func (r *Request) Bearer(token string) *Request {
	return r.Header("Authorization", "Bearer "+token)
}

// BasicAuth sets HTTP basic credentials.
func (r *Request) BasicAuth(user, pass string) *Request {
	req := gohttp.Request{Header: gohttp.Header{}}
	req.SetBasicAuth(user, pass)
	return r.Header("Authorization", req.Header.Get("Authorization"))
}

// IdempotencyKey makes retried POSTs safe on gateways that honour it.
func (r *Request) IdempotencyKey(key string) *Request {
	return r.Header("Idempotency-Key", key)
}

// JSON sets a JSON-encoded body.
func (r *Request) JSON(v any) *Request {
	b, err := json.Marshal(v)
	if err != nil {
		r.err = fmt.Errorf("http: marshal body: %w", err)
		return r
	}
	r.body, r.ctype = b, "application/json"
	return r
}

// Form sets a form-encoded body.
func (r *Request) Form(v url.Values) *Request {
	r.body, r.ctype = []byte(v.Encode()), "application/x-www-form-urlencoded"
	return r
}

// Timeout sets the per-attempt timeout.
func (r *Request) Timeout(d time.Duration) *Request {
	r.timeout = d
	return r
}

// Retry sets the total number of attempts and the initial backoff, which
// doubles after each failed attempt.
func (r *Request) Retry(attempts int, wait time.Duration) *Request {
	if attempts < 1 {
		attempts = 1
	}
	r.attempts, r.retryWait = attempts, wait
	return r
}

// Send executes the request. A non-2xx response that is not retried is
// returned without error; use Response.Throw to turn it into one.
func (r *Request) Send(ctx context.Context) (*Response, error) {
	if r.err != nil {
		return nil, r.err
	}

	var lastErr error
	wait := r.retryWait
	for attempt := 1; attempt <= r.attempts; attempt++ {
		resp, err := r.do(ctx)
		switch {
		case err == nil && resp.StatusCode < 500:
			return resp, nil
		case err == nil:
			lastErr = resp.Throw()
			if attempt == r.attempts {
				return resp, nil
			}
		default:
			lastErr = err
		}
		if attempt == r.attempts {
			break
		}

		logger.WithCtx(ctx).Warn("http: request failed, retrying",
			"method", r.method, "url", r.url, "attempt", attempt, "backoff", wait, "error", lastErr)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return nil, fmt.Errorf("http: %d attempt(s) failed for %s %s: %w", r.attempts, r.method, r.url, lastErr)
}

func (r *Request) do(ctx context.Context) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := gohttp.NewRequestWithContext(ctx, r.method, r.url, body)
	if err != nil {
		return nil, fmt.Errorf("http: build request: %w", err)
	}
	req.Header = r.headers.Clone()
	if r.ctype != "" {
		req.Header.Set("Content-Type", r.ctype)
	}

	resp, err := r.client.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http: send: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("http: read body: %w", err)
	}
	return &Response{StatusCode: resp.StatusCode, Headers: resp.Header, Raw: raw}, nil
}

// StatusError is returned by Throw for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http: status %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Headers    gohttp.Header
	Raw        []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// Decode unmarshals the JSON body into dest.
func (r *Response) Decode(dest any) error {
	if err := json.Unmarshal(r.Raw, dest); err != nil {
		return fmt.Errorf("http: decode JSON: %w", err)
	}
	return nil
}

// Throw returns a *StatusError unless the status is 2xx.
func (r *Response) Throw() error {
	if r.OK() {
		return nil
	}
	body := string(r.Raw)
	if len(body) > 512 {
		body = body[:512]
	}
	return &StatusError{StatusCode: r.StatusCode, Body: body}
}
