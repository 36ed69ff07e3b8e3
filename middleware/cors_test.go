package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORSPreflightShortCircuits(t *testing.T) {
	called := false
	handler := CORS(CORSOptions{MaxAge: 600})(http.HandlerFunc(
		func(http.ResponseWriter, *http.Request) { called = true }))

	r := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	r.Header.Set("Origin", "https://shop.example.com")
	r.Header.Set("Access-Control-Request-Method", http.MethodGet)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if called {
		t.Fatal("preflight reached the handler")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	h := rec.Header()
	if h.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("Allow-Origin = %q, want *", h.Get("Access-Control-Allow-Origin"))
	}
	if h.Get("Access-Control-Allow-Methods") == "" || h.Get("Access-Control-Allow-Headers") == "" {
		t.Fatal("preflight missing method/header grants")
	}
	if h.Get("Access-Control-Max-Age") != "600" {
		t.Fatalf("Max-Age = %q, want 600", h.Get("Access-Control-Max-Age"))
	}
}

func TestCORSEchoesOriginWithCredentials(t *testing.T) {
	handler := CORS(CORSOptions{
		AllowedOrigins:   []string{"https://shop.example.com"},
		AllowCredentials: true,
	})(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	r.Header.Set("Origin", "https://shop.example.com")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	h := rec.Header()
	if h.Get("Access-Control-Allow-Origin") != "https://shop.example.com" {
		t.Fatalf("Allow-Origin = %q", h.Get("Access-Control-Allow-Origin"))
	}
	if h.Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatal("Allow-Credentials not set")
	}
}

func TestCORSIgnoresDisallowedOrigin(t *testing.T) {
	handler := CORS(CORSOptions{
		AllowedOrigins: []string{"https://shop.example.com"},
	})(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	r.Header.Set("Origin", "https://evil.example.com")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("Allow-Origin granted to disallowed origin: %q",
			rec.Header().Get("Access-Control-Allow-Origin"))
	}
	// The request itself still executes.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCORSNonPreflightPassesThrough(t *testing.T) {
	handler := CORS(CORSOptions{})(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	r.Header.Set("Origin", "https://anywhere.example.com")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if env := decodeEnvelope(t, rec); !env.Success {
		t.Fatalf("envelope = %+v", env)
	}
}
