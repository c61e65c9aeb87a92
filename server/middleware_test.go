package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Muzaffarxon04/tg-message-archiver/telegram"
)

type fakeIngester struct {
	token      string
	authorized bool
	err        error
	calls      int
}

func (f *fakeIngester) Authorized() bool { return f.authorized }
func (f *fakeIngester) Token() string    { return f.token }
func (f *fakeIngester) Ingest(ctx context.Context, payload []byte) (telegram.Update, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return telegram.Decode(payload)
}

func TestRelayAuthMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		token          string
		header         string
		value          string
		expectedStatus int
	}{
		{name: "valid bearer", token: "s3cret", header: "Authorization", value: "Bearer s3cret", expectedStatus: http.StatusOK},
		{name: "valid relay header", token: "s3cret", header: "X-Relay-Token", value: "s3cret", expectedStatus: http.StatusOK},
		{name: "wrong token", token: "s3cret", header: "X-Relay-Token", value: "nope", expectedStatus: http.StatusUnauthorized},
		{name: "basic scheme rejected", token: "s3cret", header: "Authorization", value: "Basic s3cret", expectedStatus: http.StatusUnauthorized},
		{name: "missing credentials", token: "s3cret", expectedStatus: http.StatusUnauthorized},
		{name: "relay without token rejects everything", token: "", header: "X-Relay-Token", value: "", expectedStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := relayAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}), &fakeIngester{token: tt.token})

			req := httptest.NewRequest(http.MethodPost, "/telegram/updates", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("expected status %d, got %d", tt.expectedStatus, rr.Code)
			}
			if tt.expectedStatus == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") == "" {
				t.Error("expected WWW-Authenticate header on 401")
			}
		})
	}
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := newClientRateLimiter(ctx, 1, 3)
	handler := rateLimitMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}), limiter)

	do := func(remote, forwarded string) int {
		req := httptest.NewRequest(http.MethodPost, "/telegram/updates", nil)
		req.RemoteAddr = remote
		if forwarded != "" {
			req.Header.Set("X-Forwarded-For", forwarded)
		}
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 3; i++ {
		if code := do("192.168.1.1:12345", ""); code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i+1, code)
		}
	}
	if code := do("192.168.1.1:23456", ""); code != http.StatusTooManyRequests {
		t.Errorf("burst exhausted: expected 429, got %d", code)
	}
	if code := do("192.168.1.2:12345", ""); code != http.StatusOK {
		t.Errorf("other client: expected 200, got %d", code)
	}
	// The first forwarded hop identifies the client behind a proxy.
	for i := 0; i < 3; i++ {
		do("10.0.0.1:80", "203.0.113.9, 10.0.0.1")
	}
	if code := do("10.0.0.2:80", "203.0.113.9"); code != http.StatusTooManyRequests {
		t.Errorf("forwarded client: expected 429, got %d", code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	limiter := newClientRateLimiter(ctx, 1, 1)
	limiter.allow("1.2.3.4")
	limiter.allow("5.6.7.8")

	limiter.cleanup(time.Now())
	if n := len(limiter.visitors); n != 2 {
		t.Fatalf("fresh visitors evicted: %d left", n)
	}
	limiter.cleanup(time.Now().Add(limiter.idle + time.Second))
	if n := len(limiter.visitors); n != 0 {
		t.Errorf("idle visitors kept: %d left", n)
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		remote, forwarded, want string
	}{
		{"192.0.2.1:1234", "", "192.0.2.1"},
		{"[2001:db8::1]:443", "", "2001:db8::1"},
		{"192.0.2.1:1234", "198.51.100.7", "198.51.100.7"},
		{"192.0.2.1:1234", " 198.51.100.7 , 192.0.2.1", "198.51.100.7"},
		{"unix-socket", "", "unix-socket"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tt.remote
		if tt.forwarded != "" {
			req.Header.Set("X-Forwarded-For", tt.forwarded)
		}
		if got := clientIP(req); got != tt.want {
			t.Errorf("clientIP(%q, %q) = %q, want %q", tt.remote, tt.forwarded, got, tt.want)
		}
	}
}
