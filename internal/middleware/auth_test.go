package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dukerupert/smartgrocery/internal/auth"
)

type fakeAuthenticator struct {
	tokens map[string]auth.AuthContext
	seen   string
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, token string) (auth.AuthContext, error) {
	f.seen = token
	ac, ok := f.tokens[token]
	if !ok {
		return auth.AuthContext{}, errors.New("unknown token")
	}
	return ac, nil
}

func newFakeAuthenticator() *fakeAuthenticator {
	return &fakeAuthenticator{tokens: map[string]auth.AuthContext{
		"good": {UserID: 7, SessionID: 3, Email: "alice@example.com"},
	}}
}

func TestRequireAuthNoToken(t *testing.T) {
	handler := RequireAuth(newFakeAuthenticator())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRequireAuthInvalidToken(t *testing.T) {
	handler := RequireAuth(newFakeAuthenticator())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthBearer(t *testing.T) {
	var gotAC auth.AuthContext
	handler := RequireAuth(newFakeAuthenticator())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected AuthContext in request context")
		}
		gotAC = ac
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "bearer good")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotAC.UserID != 7 || gotAC.SessionID != 3 {
		t.Errorf("AuthContext = %+v", gotAC)
	}
}

func TestRequireAuthCookie(t *testing.T) {
	fa := newFakeAuthenticator()
	handler := RequireAuth(fa)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if fa.seen != "good" {
		t.Errorf("authenticated token = %q, want good", fa.seen)
	}
}

func TestTokenFromRequestIgnoresOtherSchemes(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: "good"})

	if got := TokenFromRequest(req); got != "" {
		t.Errorf("token = %q, want empty", got)
	}
}
