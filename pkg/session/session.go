// Package session keeps anonymous visitor sessions (storefront carts) in the
// cache store, keyed by a random cookie id.
//
//	r.Use(session.Middleware(session.DefaultOptions()))
//
//	sess := session.FromCtx(r.Context())
//	var cart models.Cart
//	ok, _ := sess.Get("cart:"+siteID, &cart)
//	sess.Set("cart:"+siteID, cart)
//	_ = sess.Save(r.Context())
package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/developlogy/sitebuilder/pkg/cache"
)

// Options configures session behaviour.
type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
	Store      cache.Store // nil uses cache.Default()
}

// DefaultOptions returns a seven-day session cookie.
func DefaultOptions() Options {
	return Options{
		CookieName: "sitebuilder_sid",
		TTL:        7 * 24 * time.Hour,
	}
}

type ctxKey struct{}

// Session is the in-request handle of one visitor session.
type Session struct {
	mu      sync.Mutex
	id      string
	data    map[string]json.RawMessage
	opts    Options
	changed bool
}

func newID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func storageKey(id string) string { return "session:" + id }

func (s *Session) store() cache.Store {
	if s.opts.Store != nil {
		return s.opts.Store
	}
	return cache.Default()
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Get decodes the value under key into dest and reports whether it existed.
func (s *Session) Get(key string, dest any) (bool, error) {
	s.mu.Lock()
	raw, ok := s.data[key]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		return false, fmt.Errorf("session: decode %s: %w", key, err)
	}
	return true, nil
}

// Set stores value under key. It is persisted by Save.
func (s *Session) Set(key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("session: encode %s: %w", key, err)
	}
	s.mu.Lock()
	s.data[key] = raw
	s.changed = true
	s.mu.Unlock()
	return nil
}

// Delete removes key.
func (s *Session) Delete(key string) {
	s.mu.Lock()
	delete(s.data, key)
	s.changed = true
	s.mu.Unlock()
}

// Save persists a changed session and refreshes its TTL.
func (s *Session) Save(ctx context.Context) error {
	s.mu.Lock()
	if !s.changed {
		s.mu.Unlock()
		return nil
	}
	snapshot := make(map[string]json.RawMessage, len(s.data))
	for k, v := range s.data {
		snapshot[k] = v
	}
	s.changed = false
	s.mu.Unlock()

	if err := s.store().Set(ctx, storageKey(s.id), snapshot, s.opts.TTL); err != nil {
		return fmt.Errorf("session: save: %w", err)
	}
	return nil
}

// Middleware loads the session named by the cookie, or starts a new one and
// sets its cookie before the handler writes anything.
func Middleware(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := &Session{opts: opts, data: map[string]json.RawMessage{}}

			if cookie, err := r.Cookie(opts.CookieName); err == nil && len(cookie.Value) == 64 {
				sess.id = cookie.Value
				if ok, _ := sess.store().Get(r.Context(), storageKey(sess.id), &sess.data); !ok || sess.data == nil {
					sess.data = map[string]json.RawMessage{}
				}
			} else {
				id, err := newID()
				if err != nil {
					http.Error(w, "session unavailable", http.StatusInternalServerError)
					return
				}
				sess.id = id
				http.SetCookie(w, &http.Cookie{
					Name:     opts.CookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   int(opts.TTL.Seconds()),
					HttpOnly: true,
					Secure:   opts.Secure,
					SameSite: http.SameSiteLaxMode,
				})
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// WithSession stores sess on ctx.
func WithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromCtx returns the request session, or a fresh unsaved one when the
// middleware did not run.
func FromCtx(ctx context.Context) *Session {
	if s, ok := ctx.Value(ctxKey{}).(*Session); ok {
		return s
	}
	id, _ := newID()
	return &Session{id: id, data: map[string]json.RawMessage{}, opts: DefaultOptions()}
}
