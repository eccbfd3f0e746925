package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"

	"github.com/ethpm/explorer/internal/core"
	"github.com/ethpm/explorer/internal/ident"
)

// DefaultMaxBytes caps the size of a fetched manifest.
const DefaultMaxBytes = 8 << 20

// ContentFetcher returns the raw bytes behind a canonical content URI.
// Every failure wraps core.ErrContentUnavailable.
type ContentFetcher interface {
	Fetch(ctx context.Context, uri ident.URI) ([]byte, error)
}

// GatewayFetcher resolves content URIs through an HTTP gateway.
type GatewayFetcher struct {
	getter   Getter
	gateway  string
	maxBytes int64
	logger   *zap.Logger
}

// GatewayOption configures a GatewayFetcher.
type GatewayOption func(*GatewayFetcher)

// WithGateway sets the gateway prefix the content hash is appended to.
func WithGateway(prefix string) GatewayOption {
	return func(g *GatewayFetcher) {
		g.gateway = prefix
	}
}

// WithMaxBytes sets the largest body accepted from the gateway.
func WithMaxBytes(n int64) GatewayOption {
	return func(g *GatewayFetcher) {
		g.maxBytes = n
	}
}

// WithGatewayLogger sets the logger.
func WithGatewayLogger(l *zap.Logger) GatewayOption {
	return func(g *GatewayFetcher) {
		g.logger = l
	}
}

// NewGatewayFetcher reads content through getter. If getter is nil a
// Fetcher behind a Breaker with default settings is used.
func NewGatewayFetcher(getter Getter, opts ...GatewayOption) *GatewayFetcher {
	if getter == nil {
		getter = NewBreaker(NewFetcher())
	}
	g := &GatewayFetcher{
		getter:   getter,
		gateway:  ident.DefaultGateway,
		maxBytes: DefaultMaxBytes,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Gateway returns the configured gateway prefix.
func (g *GatewayFetcher) Gateway() string {
	return g.gateway
}

// Fetch downloads the content behind uri.
func (g *GatewayFetcher) Fetch(ctx context.Context, uri ident.URI) ([]byte, error) {
	url := uri.GatewayURL(g.gateway)
	start := time.Now()

	resp, err := g.getter.Get(ctx, url)
	if err != nil {
		g.logger.Warn("gateway fetch failed",
			zap.String("uri", uri.String()),
			zap.String("url", url),
			zap.Error(err))
		return nil, &core.ContentError{URI: uri.String(), Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.Size > g.maxBytes {
		return nil, &core.ContentError{
			URI: uri.String(),
			Err: fmt.Errorf("content is %d bytes, limit is %d", resp.Size, g.maxBytes),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, g.maxBytes+1))
	if err != nil {
		return nil, &core.ContentError{URI: uri.String(), Err: fmt.Errorf("reading body: %w", err)}
	}
	if int64(len(body)) > g.maxBytes {
		return nil, &core.ContentError{
			URI: uri.String(),
			Err: fmt.Errorf("content exceeds %d bytes", g.maxBytes),
		}
	}

	if resp.CID != "" && resp.CID != uri.Hash() {
		g.logger.Debug("gateway reported a different CID",
			zap.String("uri", uri.String()),
			zap.String("etag_cid", resp.CID))
	}
	g.logger.Debug("fetched content",
		zap.String("uri", uri.String()),
		zap.Int("bytes", len(body)),
		zap.Duration("elapsed", time.Since(start)))
	return body, nil
}

// Exists reports whether the gateway can serve uri, without downloading it.
// A missing CID is (false, nil); any other failure is a *core.ContentError.
func (g *GatewayFetcher) Exists(ctx context.Context, uri ident.URI) (bool, error) {
	_, err := g.getter.Head(ctx, uri.GatewayURL(g.gateway))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	}
	return false, &core.ContentError{URI: uri.String(), Err: err}
}
