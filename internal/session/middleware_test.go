package session

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMiddleware_MissingHeader(t *testing.T) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	wrapped := Middleware(testLogger())(handler)

	req := httptest.NewRequest("GET", "/cart", nil)
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
	if called {
		t.Error("next handler must not run without a session")
	}

	var resp struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	json.NewDecoder(w.Body).Decode(&resp)

	if resp.Error.Code != SessionRequired {
		t.Errorf("Error code = %s, want %s", resp.Error.Code, SessionRequired)
	}
}

func TestMiddleware_InvalidHeader(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not run for an invalid header")
	})

	wrapped := Middleware(testLogger())(handler)

	req := httptest.NewRequest("GET", "/cart", nil)
	req.Header.Set(HeaderName, `user="u1"`)
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestMiddleware_BlankToken(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler must not run for a blank token")
	})

	wrapped := Middleware(testLogger())(handler)

	req := httptest.NewRequest("GET", "/cart", nil)
	req.Header.Set(HeaderName, `user="u1", token=""`)
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("Status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestMiddleware_ValidHeader(t *testing.T) {
	var got Session
	var ok bool
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	wrapped := Middleware(testLogger())(handler)

	req := httptest.NewRequest("GET", "/cart", nil)
	req.Header.Set(HeaderName, `user=7, token="secret"`)
	w := httptest.NewRecorder()

	wrapped.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Status = %d, want %d", w.Code, http.StatusOK)
	}
	if !ok {
		t.Fatal("session not stored in context")
	}
	if got.UserID != "7" || got.Token != "secret" {
		t.Errorf("session = %+v", got)
	}
}

func TestFromContext_Empty(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("FromContext should report false on a bare context")
	}
}
