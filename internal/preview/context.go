package preview

import (
	"context"
	"errors"

	"github.com/ethpm/explorer/internal/core"
	"github.com/ethpm/explorer/internal/ident"
	"github.com/ethpm/explorer/internal/manifest"
	"github.com/ethpm/explorer/internal/render"
)

// Context is what the manifest page template receives. On an expected
// failure ManifestData and Page are nil, Hyperlink is empty and Err says why;
// the template shows an unavailable state instead of the sections.
type Context struct {
	ManifestURI  string
	ManifestData *manifest.Manifest
	Page         *render.Page
	Hyperlink    string
	Err          error
}

// Available reports whether the manifest could be previewed.
func (c Context) Available() bool {
	return c.ManifestData != nil
}

// Context previews raw and folds the expected failures into an unavailable
// Context. Any other error is returned.
//
// A malformed identifier is folded too, not only unavailable content and
// invalid manifests: the page shows the unavailable state with an empty
// ManifestURI rather than failing the whole request.
func (p *Previewer) Context(ctx context.Context, raw string) (Context, error) {
	res, err := p.Preview(ctx, raw)
	if err == nil {
		return Context{
			ManifestURI:  res.URI.String(),
			ManifestData: res.Manifest,
			Page:         res.Page,
			Hyperlink:    res.Hyperlink,
		}, nil
	}

	if !Expected(err) {
		return Context{}, err
	}

	c := Context{Err: err}
	if uri, rerr := ident.Resolve(raw); rerr == nil {
		c.ManifestURI = uri.String()
	}
	return c, nil
}

// Expected reports whether err is a failure the page handles by showing the
// unavailable state: ErrContentUnavailable, ErrManifestValidation, and also
// ErrInvalidIdentifier.
func Expected(err error) bool {
	return errors.Is(err, core.ErrInvalidIdentifier) ||
		errors.Is(err, core.ErrContentUnavailable) ||
		errors.Is(err, core.ErrManifestValidation)
}
