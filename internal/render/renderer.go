package render

import (
	"html/template"
	"sync"

	"github.com/ethpm/explorer/chains"
	"github.com/ethpm/explorer/internal/ident"
	"github.com/ethpm/explorer/internal/manifest"
)

// RenderedSection is a section together with its presented markup.
type RenderedSection struct {
	Name    string
	Section Section
	HTML    template.HTML
}

// Page holds the rendered sections of one manifest in page order. Absent
// sections are left out.
type Page struct {
	Sections []RenderedSection
}

// Section returns the rendered section with the given name.
func (p *Page) Section(name string) (RenderedSection, bool) {
	for _, s := range p.Sections {
		if s.Name == name {
			return s, true
		}
	}
	return RenderedSection{}, false
}

// Renderer runs a fixed list of section renderers over a manifest.
type Renderer struct {
	renderers []SectionRenderer
	presenter Presenter
	gateway   string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithGateway sets the HTTP gateway prefix used for content URI links.
func WithGateway(gateway string) Option {
	return func(r *Renderer) {
		r.gateway = gateway
	}
}

// WithPresenter sets the presentation strategy. The default is HTMLPresenter.
func WithPresenter(p Presenter) Option {
	return func(r *Renderer) {
		r.presenter = p
	}
}

// WithRenderers replaces the default renderer list.
func WithRenderers(rs ...SectionRenderer) Option {
	return func(r *Renderer) {
		r.renderers = rs
	}
}

// New returns a Renderer for every manifest section. table labels
// deployments and may be nil, in which case every chain is unknown.
func New(table *chains.Table, opts ...Option) *Renderer {
	r := &Renderer{
		presenter: HTMLPresenter{},
		gateway:   ident.DefaultGateway,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.renderers == nil {
		r.renderers = DefaultRenderers(table, r.gateway)
	}
	return r
}

// DefaultRenderers returns one renderer per optional manifest section.
func DefaultRenderers(table *chains.Table, gateway string) []SectionRenderer {
	return []SectionRenderer{
		MetadataRenderer{},
		NewLinksRenderer(gateway),
		NewSourcesRenderer(gateway),
		ContractTypesRenderer{},
		NewDeploymentsRenderer(table),
		NewBuildDependenciesRenderer(gateway),
	}
}

// RenderAll runs every renderer concurrently and returns the present
// sections in renderer order.
func (r *Renderer) RenderAll(m *manifest.Manifest) *Page {
	results := make([]*RenderedSection, len(r.renderers))

	var wg sync.WaitGroup
	for i, sr := range r.renderers {
		wg.Add(1)
		go func(i int, sr SectionRenderer) {
			defer wg.Done()
			s, ok := sr.Render(m)
			if !ok {
				return
			}
			results[i] = &RenderedSection{Name: sr.Name(), Section: s, HTML: r.presenter.Present(s)}
		}(i, sr)
	}
	wg.Wait()

	page := &Page{}
	for _, rs := range results {
		if rs != nil {
			page.Sections = append(page.Sections, *rs)
		}
	}
	return page
}
