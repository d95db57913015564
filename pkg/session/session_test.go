package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/developlogy/sitebuilder/pkg/cache"
	"github.com/developlogy/sitebuilder/pkg/session"
)

type cartValue struct {
	Items int `json:"items"`
}

func TestSessionPersistsAcrossRequests(t *testing.T) {
	opts := session.DefaultOptions()
	opts.Store = cache.NewMemoryStore()

	h := session.Middleware(opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromCtx(r.Context())
		var cart cartValue
		if _, err := sess.Get("cart:site-1", &cart); err != nil {
			t.Fatal(err)
		}
		cart.Items++
		_ = sess.Set("cart:site-1", cart)
		if err := sess.Save(r.Context()); err != nil {
			t.Fatal(err)
		}
		w.Write([]byte{byte('0' + cart.Items)}) //nolint:errcheck
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/store/site-1/cart", nil))
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != opts.CookieName || !cookies[0].HttpOnly {
		t.Fatalf("expected an HttpOnly session cookie, got %+v", cookies)
	}
	if rec.Body.String() != "1" {
		t.Fatalf("expected first request to see 1 item, got %q", rec.Body.String())
	}

	req := httptest.NewRequest(http.MethodPost, "/api/store/site-1/cart", nil)
	req.AddCookie(cookies[0])
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Body.String() != "2" {
		t.Fatalf("expected second request to see 2 items, got %q", rec.Body.String())
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatal("an existing session must not be re-issued")
	}
}

func TestMalformedCookieStartsNewSession(t *testing.T) {
	opts := session.DefaultOptions()
	opts.Store = cache.NewMemoryStore()

	var id string
	h := session.Middleware(opts)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = session.FromCtx(r.Context()).ID()
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: opts.CookieName, Value: "short"})
	h.ServeHTTP(httptest.NewRecorder(), req)

	if id == "short" || len(id) != 64 {
		t.Fatalf("expected a fresh session id, got %q", id)
	}
}
