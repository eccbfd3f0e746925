package fetch

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const manifestBody = `{"manifest_version":"2","package_name":"owned","version":"1.0.0"}`

func TestGetSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("ETag", `"QmManifest"`)
		_, _ = w.Write([]byte(manifestBody))
	}))
	defer server.Close()

	f := NewFetcher()
	resp, err := f.Get(context.Background(), server.URL+"/ipfs/QmManifest")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.Size != int64(len(manifestBody)) {
		t.Errorf("Size = %d, want %d", resp.Size, len(manifestBody))
	}
	if resp.ContentType != "application/json" {
		t.Errorf("ContentType = %q, want %q", resp.ContentType, "application/json")
	}
	if resp.CID != "QmManifest" {
		t.Errorf("CID = %q, want QmManifest", resp.CID)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(body) != manifestBody {
		t.Errorf("body = %q, want %q", string(body), manifestBody)
	}
}

func TestGetNotFoundIsNotRetried(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	f := NewFetcher(WithBaseDelay(time.Millisecond))
	_, err := f.Get(context.Background(), server.URL+"/ipfs/QmMissing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestGetRetries(t *testing.T) {
	tests := []struct {
		name   string
		status int
		fails  int
	}{
		{"rate limited", http.StatusTooManyRequests, 2},
		{"gateway timeout", http.StatusGatewayTimeout, 1},
		{"service unavailable", http.StatusServiceUnavailable, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attempts := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				attempts++
				if attempts <= tt.fails {
					w.WriteHeader(tt.status)
					return
				}
				_, _ = w.Write([]byte(manifestBody))
			}))
			defer server.Close()

			f := NewFetcher(WithBaseDelay(5 * time.Millisecond))
			resp, err := f.Get(context.Background(), server.URL+"/ipfs/QmManifest")
			if err != nil {
				t.Fatalf("Get failed: %v", err)
			}
			_ = resp.Body.Close()

			if attempts != tt.fails+1 {
				t.Errorf("attempts = %d, want %d", attempts, tt.fails+1)
			}
		})
	}
}

func TestGetMaxRetries(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	f := NewFetcher(WithMaxRetries(2), WithBaseDelay(5*time.Millisecond))
	_, err := f.Get(context.Background(), server.URL+"/ipfs/QmManifest")
	if !errors.Is(err, ErrUpstreamDown) {
		t.Errorf("expected ErrUpstreamDown, got %v", err)
	}
	if !strings.Contains(err.Error(), "503") {
		t.Errorf("error %q does not name the status", err)
	}

	// Initial attempt + 2 retries = 3 total
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestGetUnexpectedStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte("blocked content\n"))
	}))
	defer server.Close()

	f := NewFetcher()
	_, err := f.Get(context.Background(), server.URL+"/ipfs/QmBlocked")
	if err == nil {
		t.Fatal("expected error for 403")
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrUpstreamDown) {
		t.Errorf("403 should not map to a sentinel, got %v", err)
	}
	if err.Error() != "unexpected status 403: blocked content" {
		t.Errorf("error = %q", err)
	}
}

func TestGetContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		_, _ = w.Write([]byte(manifestBody))
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	f := NewFetcher()
	if _, err := f.Get(ctx, server.URL+"/ipfs/QmSlow"); err == nil {
		t.Error("expected error on context cancellation")
	}
}

func TestGetTimeoutOption(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte(manifestBody))
	}))
	defer server.Close()

	f := NewFetcher(WithTimeout(20 * time.Millisecond))
	if _, err := f.Get(context.Background(), server.URL+"/ipfs/QmSlow"); err == nil {
		t.Error("expected client timeout")
	}
}

func TestRequestHeaders(t *testing.T) {
	var gotUA, gotAccept string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	f := NewFetcher(WithUserAgent("explorer-test/2.0"))
	resp, err := f.Get(context.Background(), server.URL+"/ipfs/QmManifest")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	_ = resp.Body.Close()

	if gotUA != "explorer-test/2.0" {
		t.Errorf("User-Agent = %q, want %q", gotUA, "explorer-test/2.0")
	}
	if !strings.HasPrefix(gotAccept, "application/json") {
		t.Errorf("Accept = %q", gotAccept)
	}
}

func TestHead(t *testing.T) {
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("method = %s, want HEAD", r.Method)
		}
		switch r.URL.Path {
		case "/ipfs/QmMissing":
			w.WriteHeader(http.StatusNotFound)
		case "/ipfs/QmFlaky":
			attempts++
			if attempts == 1 {
				w.WriteHeader(http.StatusBadGateway)
			}
		default:
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Content-Length", "2048")
			w.Header().Set("ETag", `W/"QmManifest"`)
		}
	}))
	defer server.Close()

	f := NewFetcher(WithBaseDelay(time.Millisecond))
	ctx := context.Background()

	resp, err := f.Head(ctx, server.URL+"/ipfs/QmManifest")
	if err != nil {
		t.Fatalf("Head failed: %v", err)
	}
	if resp.Body != nil {
		t.Error("HEAD response carries a body")
	}
	if resp.Size != 2048 {
		t.Errorf("Size = %d, want 2048", resp.Size)
	}
	if resp.ContentType != "application/json" || resp.CID != "QmManifest" {
		t.Errorf("resp = %+v", resp)
	}

	if _, err := f.Head(ctx, server.URL+"/ipfs/QmMissing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Head(missing) = %v, want ErrNotFound", err)
	}

	if _, err := f.Head(ctx, server.URL+"/ipfs/QmFlaky"); err != nil {
		t.Errorf("Head(flaky) = %v, want retried success", err)
	}
	if attempts != 2 {
		t.Errorf("flaky attempts = %d, want 2", attempts)
	}
}

func TestGetHonoursRetryAfter(t *testing.T) {
	var first time.Time
	var waited time.Duration
	attempts := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			first = time.Now()
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		waited = time.Since(first)
		_, _ = w.Write([]byte(manifestBody))
	}))
	defer server.Close()

	f := NewFetcher(WithBaseDelay(time.Millisecond))
	resp, err := f.Get(context.Background(), server.URL+"/ipfs/QmManifest")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	_ = resp.Body.Close()

	if waited < 900*time.Millisecond {
		t.Errorf("retried after %s, want at least the 1s Retry-After", waited)
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		header string
		want   time.Duration
	}{
		{"", 0},
		{"0", 0},
		{"-3", 0},
		{"2", 2 * time.Second},
		{"3600", maxRetryDelay},
		{"Wed, 21 Oct 2015 07:28:00 GMT", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.header); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %s, want %s", tt.header, got, tt.want)
		}
	}

	err := error(&retryAfterError{after: time.Second})
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("retryAfterError does not match ErrRateLimited")
	}
}

func TestResponseHeaders(t *testing.T) {
	if got := contentLength(""); got != -1 {
		t.Errorf("contentLength(\"\") = %d", got)
	}
	if got := contentLength("nope"); got != -1 {
		t.Errorf("contentLength(nope) = %d", got)
	}
	if got := contentLength("42"); got != 42 {
		t.Errorf("contentLength(42) = %d", got)
	}

	for etag, want := range map[string]string{
		"":                     "",
		`"QmManifest"`:         "QmManifest",
		`W/"QmManifest"`:       "QmManifest",
		`"DirIndex-2b567f6r"`:  "DirIndex-2b567f6r",
		`QmUnquotedIsAccepted`: "QmUnquotedIsAccepted",
	} {
		if got := etagCID(etag); got != want {
			t.Errorf("etagCID(%q) = %q, want %q", etag, got, want)
		}
	}
}

func TestCloseStopsDNSRefresh(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(manifestBody))
	}))
	defer server.Close()

	f := NewFetcher()
	f.Close()
	f.Close()

	select {
	case <-f.stopped:
	case <-time.After(time.Second):
		t.Fatal("DNS refresh loop still running after Close")
	}

	resp, err := f.Get(context.Background(), server.URL+"/ipfs/QmManifest")
	if err != nil {
		t.Fatalf("Get after Close failed: %v", err)
	}
	_ = resp.Body.Close()
}
