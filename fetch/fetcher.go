// Package fetch retrieves manifest content from HTTP gateways with retry,
// DNS caching and per-host circuit breaking.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenk/backoff"
	"github.com/rs/dnscache"
	"go.uber.org/zap"
)

const (
	// maxRetryDelay caps both computed backoff and gateway Retry-After hints.
	maxRetryDelay = 30 * time.Second

	dnsRefreshInterval = 5 * time.Minute
)

var (
	ErrNotFound     = errors.New("content not found")
	ErrRateLimited  = errors.New("rate limited by gateway")
	ErrUpstreamDown = errors.New("gateway unavailable")
)

// Response is a successful gateway reply. Body is nil for HEAD requests.
type Response struct {
	Body        io.ReadCloser
	Size        int64 // -1 if unknown
	ContentType string

	// CID is the content identifier the gateway reported in its ETag, or
	// empty when the gateway sent none.
	CID string
}

// Getter issues gateway requests. Missing content is ErrNotFound.
type Getter interface {
	Get(ctx context.Context, url string) (*Response, error)
	Head(ctx context.Context, url string) (*Response, error)
}

// Fetcher talks HTTP to a gateway.
type Fetcher struct {
	client     *http.Client
	userAgent  string
	maxRetries int
	baseDelay  time.Duration
	logger     *zap.Logger

	stop      chan struct{}
	stopped   chan struct{} // closed once the DNS refresh loop has exited
	closeOnce sync.Once
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// WithMaxRetries sets how many times a rate-limited or failing request is
// repeated.
func WithMaxRetries(n int) Option {
	return func(f *Fetcher) {
		f.maxRetries = n
	}
}

// WithBaseDelay sets the first retry delay.
func WithBaseDelay(d time.Duration) Option {
	return func(f *Fetcher) {
		f.baseDelay = d
	}
}

// WithLogger sets the logger used to report retries.
func WithLogger(l *zap.Logger) Option {
	return func(f *Fetcher) {
		f.logger = l
	}
}

// WithTimeout sets the overall timeout of a single HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.client.Timeout = d
	}
}

// NewFetcher creates a Fetcher whose transport resolves gateway hosts
// through a DNS cache.
// The cache is refreshed in the background until Close is called.
func NewFetcher(opts ...Option) *Fetcher {
	stop := make(chan struct{})
	stopped := make(chan struct{})
	f := &Fetcher{
		client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: newTransport(newResolver(stop, stopped)),
		},
		userAgent:  "ethpm-explorer/1.0",
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		logger:     zap.NewNop(),
		stop:       stop,
		stopped:    stopped,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Close stops the DNS refresh loop and drops idle connections. It is safe
// to call more than once; the Fetcher keeps working without refreshes.
func (f *Fetcher) Close() {
	f.closeOnce.Do(func() {
		close(f.stop)
		<-f.stopped
		f.client.CloseIdleConnections()
	})
}

func newResolver(stop <-chan struct{}, stopped chan<- struct{}) *dnscache.Resolver {
	resolver := &dnscache.Resolver{}
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(dnsRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				resolver.Refresh(true)
			}
		}
	}()
	return resolver
}

func newTransport(resolver *dnscache.Resolver) *http.Transport {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	return &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			host, port, err := net.SplitHostPort(addr)
			if err != nil {
				return nil, err
			}
			ips, err := resolver.LookupHost(ctx, host)
			if err != nil {
				return nil, err
			}
			for _, ip := range ips {
				conn, err := dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
				if err == nil {
					return conn, nil
				}
			}
			return nil, fmt.Errorf("no resolved address of %s accepted a connection", host)
		},
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
}

// Get downloads the content at url. The caller must close Response.Body.
func (f *Fetcher) Get(ctx context.Context, url string) (*Response, error) {
	return f.retry(ctx, http.MethodGet, url)
}

// Head asks the gateway whether it can serve url without downloading it.
func (f *Fetcher) Head(ctx context.Context, url string) (*Response, error) {
	return f.retry(ctx, http.MethodHead, url)
}

// retry repeats rate-limited and upstream failures with exponential backoff.
// A Retry-After hint from the gateway wins when it is longer.
func (f *Fetcher) retry(ctx context.Context, method, url string) (*Response, error) {
	bo := f.newBackOff()
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			delay := bo.NextBackOff()
			var rl *retryAfterError
			if errors.As(lastErr, &rl) && rl.after > delay {
				delay = rl.after
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		resp, err := f.roundTrip(ctx, method, url)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		if !errors.Is(err, ErrRateLimited) && !errors.Is(err, ErrUpstreamDown) {
			return nil, err
		}
		f.logger.Debug("retrying gateway request",
			zap.String("method", method),
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return nil, lastErr
}

// newBackOff doubles baseDelay per attempt with 10% jitter. The overall
// deadline is left to ctx.
func (f *Fetcher) newBackOff() *backoff.ExponentialBackOff {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = f.baseDelay
	bo.RandomizationFactor = 0.1
	bo.Multiplier = 2
	bo.MaxInterval = maxRetryDelay
	bo.MaxElapsedTime = 0
	bo.Reset()
	return bo
}

func (f *Fetcher) roundTrip(ctx context.Context, method, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json, */*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", strings.ToLower(method), url, err)
	}

	if resp.StatusCode == http.StatusOK {
		out := &Response{
			Size:        contentLength(resp.Header.Get("Content-Length")),
			ContentType: resp.Header.Get("Content-Type"),
			CID:         etagCID(resp.Header.Get("ETag")),
		}
		if method == http.MethodHead {
			_ = resp.Body.Close()
		} else {
			out.Body = resp.Body
		}
		return out, nil
	}

	defer func() { _ = resp.Body.Close() }()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		if after := parseRetryAfter(resp.Header.Get("Retry-After")); after > 0 {
			return nil, &retryAfterError{after: after}
		}
		return nil, ErrRateLimited
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("status %d: %w", resp.StatusCode, ErrUpstreamDown)
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
}

func contentLength(h string) int64 {
	if h == "" {
		return -1
	}
	n, err := strconv.ParseInt(h, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

// etagCID strips the quoting and weak marker gateways put around the CID,
// e.g. W/"QmPX..." becomes QmPX....
func etagCID(etag string) string {
	etag = strings.TrimPrefix(etag, "W/")
	return strings.Trim(etag, `"`)
}

// retryAfterError is a 429 that told us how long to wait.
type retryAfterError struct {
	after time.Duration
}

func (e *retryAfterError) Error() string {
	return fmt.Sprintf("%v (retry after %s)", ErrRateLimited, e.after)
}

func (e *retryAfterError) Unwrap() error {
	return ErrRateLimited
}

// parseRetryAfter reads a Retry-After header given in seconds. HTTP dates
// are ignored.
func parseRetryAfter(h string) time.Duration {
	secs, err := strconv.Atoi(h)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryDelay {
		return maxRetryDelay
	}
	return d
}
