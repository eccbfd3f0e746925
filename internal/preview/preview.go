// Package preview runs the manifest pipeline: resolve an identifier, fetch
// the content, validate and parse the manifest, and render its sections.
package preview

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ethpm/explorer/fetch"
	"github.com/ethpm/explorer/internal/core"
	"github.com/ethpm/explorer/internal/ident"
	"github.com/ethpm/explorer/internal/manifest"
	"github.com/ethpm/explorer/internal/metrics"
	"github.com/ethpm/explorer/internal/render"
)

const tracerName = "github.com/ethpm/explorer/internal/preview"

// Result is a successfully previewed manifest.
type Result struct {
	URI       ident.URI
	Manifest  *manifest.Manifest
	Page      *render.Page
	Hyperlink string // gateway URL of the raw manifest

	// PackageURL identifies the release as a purl, e.g.
	// pkg:generic/owned@1.0.0. Empty if the name cannot form one.
	PackageURL string
}

// Previewer is safe for concurrent use; it holds no per-request state.
type Previewer struct {
	fetcher     fetch.ContentFetcher
	renderer    *render.Renderer
	gateway     string
	concurrency int
	logger      *zap.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

// Option configures a Previewer.
type Option func(*Previewer)

// WithGateway sets the gateway prefix used for Result.Hyperlink.
func WithGateway(gateway string) Option {
	return func(p *Previewer) {
		p.gateway = gateway
	}
}

// WithConcurrency bounds BulkPreview when it is called with concurrency 0.
func WithConcurrency(n int) Option {
	return func(p *Previewer) {
		p.concurrency = n
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(p *Previewer) {
		p.logger = l
	}
}

// WithMetrics sets the collectors outcomes are recorded on.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Previewer) {
		p.metrics = m
	}
}

// WithTracerProvider sets where pipeline spans are sent. The global
// provider is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(p *Previewer) {
		p.tracer = tp.Tracer(tracerName)
	}
}

// New returns a Previewer reading content through f and rendering with r.
func New(f fetch.ContentFetcher, r *render.Renderer, opts ...Option) *Previewer {
	p := &Previewer{
		fetcher:     f,
		renderer:    r,
		gateway:     ident.DefaultGateway,
		concurrency: core.DefaultConcurrency,
		logger:      zap.NewNop(),
		metrics:     metrics.NewNop(),
		tracer:      otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Preview runs the whole pipeline for one identifier. Errors match
// core.ErrInvalidIdentifier, core.ErrContentUnavailable or
// core.ErrManifestValidation.
func (p *Previewer) Preview(ctx context.Context, raw string) (*Result, error) {
	start := time.Now()
	requestID := uuid.NewString()
	log := p.logger.With(
		zap.String("request_id", requestID),
		zap.String("identifier", raw))

	ctx, span := p.tracer.Start(ctx, "preview", trace.WithAttributes(
		attribute.String("explorer.request_id", requestID),
		attribute.String("explorer.identifier", raw)))
	defer span.End()

	res, err := p.preview(ctx, raw, log)

	outcome := Outcome(err)
	span.SetAttributes(attribute.String("explorer.outcome", outcome))
	p.metrics.PreviewTime.Observe(time.Since(start).Seconds())
	p.metrics.Previews.WithLabelValues(outcome).Inc()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		log.Info("preview failed", zap.String("outcome", outcome), zap.Error(err))
		return nil, err
	}
	log.Debug("preview rendered",
		zap.String("package", res.Manifest.PackageName),
		zap.String("version", res.Manifest.Version),
		zap.String("package_url", res.PackageURL),
		zap.Int("sections", len(res.Page.Sections)))
	return res, nil
}

func (p *Previewer) preview(ctx context.Context, raw string, log *zap.Logger) (*Result, error) {
	uri, err := ident.Resolve(raw)
	if err != nil {
		return nil, err
	}

	data, err := p.fetch(ctx, uri)
	if err != nil {
		return nil, err
	}
	log.Debug("fetched manifest", zap.String("uri", uri.String()), zap.Int("bytes", len(data)))

	_, span := p.tracer.Start(ctx, "load")
	m, err := manifest.Load(data)
	if err != nil {
		span.SetStatus(codes.Error, "invalid manifest")
		span.End()
		return nil, err
	}
	purl, err := m.PURL()
	if err != nil {
		log.Debug("no package URL", zap.Error(err))
	}
	span.SetAttributes(
		attribute.String("ethpm.package_name", m.PackageName),
		attribute.String("ethpm.version", m.Version),
		attribute.String("ethpm.package_url", purl))
	span.End()

	_, span = p.tracer.Start(ctx, "render")
	page := p.renderer.RenderAll(m)
	span.SetAttributes(attribute.Int("explorer.sections", len(page.Sections)))
	span.End()

	return &Result{
		URI:        uri,
		Manifest:   m,
		Page:       page,
		Hyperlink:  uri.GatewayURL(p.gateway),
		PackageURL: purl,
	}, nil
}

func (p *Previewer) fetch(ctx context.Context, uri ident.URI) ([]byte, error) {
	ctx, span := p.tracer.Start(ctx, "fetch", trace.WithAttributes(
		attribute.String("ipfs.cid", uri.Hash())))
	defer span.End()

	start := time.Now()
	data, err := p.fetcher.Fetch(ctx, uri)
	result := "ok"
	if err != nil {
		result = "error"
		span.SetStatus(codes.Error, err.Error())
	}
	p.metrics.FetchDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("explorer.bytes", len(data)))
	return data, err
}

// BulkPreview previews ids in parallel with at most concurrency previews in
// flight. Failed previews are omitted from the result.
func (p *Previewer) BulkPreview(ctx context.Context, ids []string, concurrency int) map[string]*Result {
	if concurrency <= 0 {
		concurrency = p.concurrency
	}
	return core.Bulk(ctx, ids, concurrency, p.Preview)
}

// Outcome classifies a preview error for metrics and logs.
func Outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, core.ErrInvalidIdentifier):
		return metrics.OutcomeInvalidIdentifier
	case errors.Is(err, core.ErrContentUnavailable):
		return metrics.OutcomeContentUnavailable
	case errors.Is(err, core.ErrManifestValidation):
		return metrics.OutcomeInvalidManifest
	}
	return metrics.OutcomeError
}
