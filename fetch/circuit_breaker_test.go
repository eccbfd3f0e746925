package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestBreakerGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"manifest_version":"2"}`))
	}))
	defer server.Close()

	b := NewBreaker(NewFetcher())

	resp, err := b.Get(context.Background(), server.URL+"/ipfs/QmManifest")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, _ := io.ReadAll(resp.Body)
	if string(body) != `{"manifest_version":"2"}` {
		t.Errorf("body = %q", string(body))
	}
}

func TestBreakerHead(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD request, got %s", r.Method)
		}
		w.Header().Set("Content-Length", "512")
	}))
	defer server.Close()

	b := NewBreaker(NewFetcher())

	resp, err := b.Head(context.Background(), server.URL+"/ipfs/QmManifest")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if resp.Size != 512 {
		t.Errorf("Size = %d, want 512", resp.Size)
	}
}

func TestHostOf(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected string
	}{
		{"public gateway", "https://ipfs.io/ipfs/QmPX98i84FMGTF77aNSMijiDnqtYUpCPymZ4uYXR9pqb7Q", "ipfs.io"},
		{"subdomain gateway", "https://gateway.pinata.cloud/ipfs/QmHash", "gateway.pinata.cloud"},
		{"local node with port", "http://127.0.0.1:8080/ipfs/QmHash", "127.0.0.1:8080"},
		{"invalid URL", "not-a-valid-url", "not-a-valid-url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := hostOf(tt.url); got != tt.expected {
				t.Errorf("hostOf(%q) = %q, want %q", tt.url, got, tt.expected)
			}
		})
	}
}

func TestBreakerSeparateGateways(t *testing.T) {
	server1 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	defer server1.Close()

	server2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{}"))
	}))
	defer server2.Close()

	b := NewBreaker(NewFetcher())
	if len(b.States()) != 0 {
		t.Fatal("expected no breakers before the first fetch")
	}

	for _, u := range []string{server1.URL, server2.URL} {
		resp, err := b.Get(context.Background(), u+"/ipfs/QmHash")
		if err != nil {
			t.Fatalf("fetch %s failed: %v", u, err)
		}
		_ = resp.Body.Close()
	}

	states := b.States()
	if len(states) != 2 {
		t.Fatalf("expected 2 breaker states, got %d", len(states))
	}
	if states[0].Host >= states[1].Host {
		t.Errorf("states not sorted: %+v", states)
	}
	for _, s := range states {
		if s.Open {
			t.Errorf("breaker %s is open", s.Host)
		}
	}
}

func TestBreakerOpensOnFailures(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	b := NewBreaker(NewFetcher(WithMaxRetries(0), WithBaseDelay(0)),
		WithThreshold(3), WithCooldown(time.Minute))

	var lastErr error
	for range 6 {
		_, lastErr = b.Get(context.Background(), server.URL+"/ipfs/QmHash")
	}

	if requests != 3 {
		t.Errorf("requests = %d, want 3 before the breaker opened", requests)
	}
	if !errors.Is(lastErr, ErrUpstreamDown) {
		t.Errorf("last error = %v, want ErrUpstreamDown", lastErr)
	}
	for _, s := range b.States() {
		if !s.Open {
			t.Errorf("breaker %s is closed, want open", s.Host)
		}
	}

	// An open breaker also short-circuits HEAD probes.
	if _, err := b.Head(context.Background(), server.URL+"/ipfs/QmHash"); !errors.Is(err, ErrUpstreamDown) {
		t.Errorf("Head = %v, want ErrUpstreamDown", err)
	}
	if requests != 3 {
		t.Errorf("requests = %d after HEAD, want 3", requests)
	}
}

func TestBreakerIgnoresMissingContent(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	b := NewBreaker(NewFetcher(WithMaxRetries(0)), WithThreshold(2))

	for range 5 {
		_, err := b.Get(context.Background(), server.URL+"/ipfs/QmMissing")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	}
	if _, err := b.Head(context.Background(), server.URL+"/ipfs/QmMissing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("head err = %v, want ErrNotFound", err)
	}

	if requests != 6 {
		t.Errorf("requests = %d, want 6", requests)
	}
	for _, s := range b.States() {
		if s.Open {
			t.Errorf("breaker %s is open", s.Host)
		}
	}
}
