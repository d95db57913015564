package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/developlogy/sitebuilder/pkg/auth"
	"github.com/developlogy/sitebuilder/pkg/logger"
	"github.com/developlogy/sitebuilder/pkg/middleware"
)

func ok(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(auth.UserID(r.Context()))) //nolint:errcheck
}

type revoked map[string]bool

func (r revoked) IsRevoked(_ context.Context, jti string) bool { return r[jti] }

func TestAuthRequiresToken(t *testing.T) {
	h := middleware.Auth(nil)(http.HandlerFunc(ok))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sites", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthAcceptsSessionToken(t *testing.T) {
	token, _, err := auth.GenerateToken("user-1", "owner@example.com", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	h := middleware.Auth(revoked{})(http.HandlerFunc(ok))
	req := httptest.NewRequest(http.MethodGet, "/api/sites", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || rec.Body.String() != "user-1" {
		t.Fatalf("expected user-1, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuthReadsCookie(t *testing.T) {
	token, _, _ := auth.GenerateToken("user-2", "owner@example.com", time.Now())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: middleware.SessionCookie, Value: token})
	rec := httptest.NewRecorder()
	middleware.Auth(nil)(http.HandlerFunc(ok)).ServeHTTP(rec, req)
	if rec.Body.String() != "user-2" {
		t.Fatalf("expected user-2, got %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuthRejectsMagicLinkToken(t *testing.T) {
	token, _, _ := auth.Issue(auth.Claims{Email: "owner@example.com", Purpose: auth.PurposeMagicLink}, auth.MagicLinkTTL, time.Now())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	middleware.Auth(nil)(http.HandlerFunc(ok)).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for a magic-link token, got %d", rec.Code)
	}
}

func TestAuthRejectsRevokedSession(t *testing.T) {
	token, claims, _ := auth.GenerateToken("user-3", "owner@example.com", time.Now())
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	middleware.Auth(revoked{claims.ID: true})(http.HandlerFunc(ok)).ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after sign-out, got %d", rec.Code)
	}
}

func TestLimiterWindow(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	l := middleware.NewLimiter(2, time.Minute).WithClock(func() time.Time { return now })

	if !l.Allow("1.2.3.4") || !l.Allow("1.2.3.4") {
		t.Fatal("first two requests must pass")
	}
	if l.Allow("1.2.3.4") {
		t.Fatal("third request in the window must be limited")
	}
	if !l.Allow("5.6.7.8") {
		t.Fatal("other clients have their own bucket")
	}

	now = now.Add(61 * time.Second)
	if removed := l.Sweep(); removed != 2 {
		t.Fatalf("expected 2 expired buckets, got %d", removed)
	}
	if !l.Allow("1.2.3.4") {
		t.Fatal("a new window must reset the count")
	}
}

func TestLimiterMiddlewareResponds429(t *testing.T) {
	l := middleware.NewLimiter(1, time.Minute)
	h := l.Middleware(http.HandlerFunc(ok))

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "9.9.9.9:1234"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Fatalf("request %d: expected %d, got %d", i, want, rec.Code)
		}
	}
}

func TestRecoveryReturns500(t *testing.T) {
	logger.Discard()
	h := middleware.Recovery(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	opts := middleware.CORSOptions{
		AllowedOrigins: []string{"https://builder.developlogy.com"},
		AllowedMethods: []string{"GET", "PATCH"},
		AllowedHeaders: []string{"Content-Type"},
	}
	h := middleware.CORS(opts)(http.HandlerFunc(ok))

	req := httptest.NewRequest(http.MethodOptions, "/api/builder/1/theme", nil)
	req.Header.Set("Origin", "https://builder.developlogy.com")
	req.Header.Set("Access-Control-Request-Method", "PATCH")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://builder.developlogy.com" {
		t.Fatalf("unexpected allow-origin %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatal("unknown origins must not be allowed")
	}
}
