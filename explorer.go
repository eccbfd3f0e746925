// Package explorer previews ethPM package manifests and browses ERC1319
// package registries.
//
// A manifest preview resolves an identifier to a content URI, fetches the
// manifest through an HTTP gateway, validates it against the manifest schema
// and renders each section for display:
//
//	cfg, err := explorer.LoadConfig("")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ex, err := explorer.New(cfg, prometheus.DefaultRegisterer)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer ex.Close()
//
//	res, err := ex.Preview(ctx, "ipfs://QmPX98i84FMGTF77aNSMijiDnqtYUpCPymZ4uYXR9pqb7Q")
//	if errors.Is(err, explorer.ErrManifestValidation) {
//		// show the unavailable state
//	}
//	fmt.Println(res.Manifest.PackageName, res.Manifest.Version)
//
// Registry browsing needs a ChainClient per network, supplied by the host:
//
//	b := ex.Browser(explorer.Clients{"1": mainnetClient})
//	view, err := b.BrowseContext(ctx, "mainnet", "0xa9c5...")
package explorer

import (
	"encoding/json"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ethpm/explorer/chains"
	"github.com/ethpm/explorer/fetch"
	"github.com/ethpm/explorer/internal/browse"
	"github.com/ethpm/explorer/internal/cache"
	"github.com/ethpm/explorer/internal/config"
	"github.com/ethpm/explorer/internal/core"
	"github.com/ethpm/explorer/internal/ident"
	"github.com/ethpm/explorer/internal/logger"
	"github.com/ethpm/explorer/internal/manifest"
	"github.com/ethpm/explorer/internal/metrics"
	"github.com/ethpm/explorer/internal/preview"
	"github.com/ethpm/explorer/internal/render"
)

// Re-export types from the pipeline packages
type (
	// URI is a canonical ipfs://<cid> content URI.
	URI = ident.URI

	// Manifest is a validated, parsed package manifest.
	Manifest = manifest.Manifest

	// Meta is the optional meta section of a manifest.
	Meta = manifest.Meta

	// Deployment is one deployed contract instance.
	Deployment = manifest.Deployment

	// Result is a successful preview.
	Result = preview.Result

	// PreviewContext is the manifest page context, including the
	// unavailable state.
	PreviewContext = preview.Context

	// Page is the rendered sections of a manifest.
	Page = render.Page

	// Section is a presentation-neutral rendered section.
	Section = render.Section

	// Entry is one node of a Section.
	Entry = render.Entry

	// SectionRenderer renders one manifest section.
	SectionRenderer = render.SectionRenderer

	// Presenter turns a Section into escaped markup.
	Presenter = render.Presenter

	Config      = config.Config
	ChainConfig = config.ChainConfig
)

// Re-export browsing types
type (
	ChainClient = browse.ChainClient
	Clients     = browse.Clients
	Registry    = browse.Registry
	View        = browse.View
	Package     = core.Package
	Release     = core.Release
)

// Re-export errors
var (
	ErrInvalidIdentifier  = core.ErrInvalidIdentifier
	ErrContentUnavailable = core.ErrContentUnavailable
	ErrManifestValidation = core.ErrManifestValidation
	ErrMalformedJSON      = core.ErrMalformedJSON
	ErrSchemaViolation    = core.ErrSchemaViolation
	ErrUnknownChain       = core.ErrUnknownChain
)

// Error types
type (
	IdentifierError = core.IdentifierError
	ContentError    = core.ContentError
	ValidationError = core.ValidationError
	Violation       = core.Violation
	ChainError      = core.ChainError
)

// Resolve canonicalizes a bare content hash or ipfs:// URI.
func Resolve(raw string) (URI, error) {
	return ident.Resolve(raw)
}

// LoadManifest validates and parses raw manifest bytes.
func LoadManifest(raw []byte) (*Manifest, error) {
	return manifest.Load(raw)
}

// LoadConfig reads configuration from path, or from explorer.yaml in ./configs
// or the working directory when path is empty.
func LoadConfig(path string) (*Config, error) {
	return config.Load(path)
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return config.Default()
}

// Explorer is the assembled preview pipeline.
type Explorer struct {
	*preview.Previewer

	Chains   *chains.Table
	Renderer *render.Renderer
	Logger   *zap.Logger

	cfg     *Config
	fetcher *fetch.Fetcher
	redis   *redis.Client
}

// New assembles the pipeline described by cfg. Metrics are registered on
// reg; pass nil to skip registration. Pipeline spans go to the global
// OpenTelemetry tracer provider.
func New(cfg *Config, reg prometheus.Registerer) (*Explorer, error) {
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	m := metrics.New(reg)

	table, err := cfg.ChainTable()
	if err != nil {
		return nil, fmt.Errorf("building chain table: %w", err)
	}

	httpFetcher := fetch.NewFetcher(
		fetch.WithTimeout(cfg.Fetch.Timeout),
		fetch.WithMaxRetries(cfg.Fetch.MaxRetries),
		fetch.WithBaseDelay(cfg.Fetch.BaseDelay),
		fetch.WithUserAgent(cfg.Fetch.UserAgent),
		fetch.WithLogger(logger.Component(log, "fetch")),
	)
	var content fetch.ContentFetcher = fetch.NewGatewayFetcher(
		fetch.NewBreaker(httpFetcher,
			fetch.WithThreshold(cfg.Fetch.BreakerThreshold),
			fetch.WithCooldown(cfg.Fetch.BreakerCooldown)),
		fetch.WithGateway(cfg.Gateway),
		fetch.WithMaxBytes(cfg.Fetch.MaxBytes),
		fetch.WithGatewayLogger(logger.Component(log, "gateway")),
	)

	ex := &Explorer{Chains: table, Logger: log, cfg: cfg, fetcher: httpFetcher}

	if cfg.Cache.Enabled {
		ex.redis = cache.NewClient(cache.Options{
			Address:  cfg.Cache.Redis.Address,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
		})
		content = cache.New(content, ex.redis,
			cache.WithTTL(cfg.Cache.TTL),
			cache.WithPrefix(cfg.Cache.Prefix),
			cache.WithLogger(logger.Component(log, "cache")),
			cache.WithMetrics(m))
	}

	ex.Renderer = render.New(table, render.WithGateway(cfg.Gateway))
	ex.Previewer = preview.New(content, ex.Renderer,
		preview.WithGateway(cfg.Gateway),
		preview.WithConcurrency(cfg.Concurrency),
		preview.WithLogger(logger.Component(log, "preview")),
		preview.WithMetrics(m))

	return ex, nil
}

// Browser returns a registry browser reading chains through clients.
func (e *Explorer) Browser(clients Clients) *browse.Browser {
	return browse.NewBrowser(e.Chains, clients, e.cfg.Concurrency, logger.Component(e.Logger, "browse"))
}

// Directory returns the static registry directory listing.
func (e *Explorer) Directory() (json.RawMessage, error) {
	return browse.LoadDirectory(e.cfg.DirectoryPath)
}

// OpenDirectory returns the directory listing as a value that can follow
// changes to the file with Watch.
func (e *Explorer) OpenDirectory() (*browse.Directory, error) {
	return browse.OpenDirectory(e.cfg.DirectoryPath, logger.Component(e.Logger, "directory"))
}

// Close stops the fetcher's DNS refresh, releases the cache connection and
// flushes the logger.
func (e *Explorer) Close() error {
	e.fetcher.Close()
	_ = e.Logger.Sync()
	if e.redis != nil {
		return e.redis.Close()
	}
	return nil
}
