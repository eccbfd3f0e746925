package render

import (
	"github.com/ethpm/explorer/internal/ident"
	"github.com/ethpm/explorer/internal/manifest"
)

// URIMapRenderer renders any name to URI section with the link-or-text
// policy: content URIs link to their gateway URL, invalid content URIs are
// shown as text, and anything else is linked verbatim.
type URIMapRenderer struct {
	name    string
	title   string
	gateway string
	pick    func(*manifest.Manifest) map[string]string
}

// NewLinksRenderer renders meta.links.
func NewLinksRenderer(gateway string) *URIMapRenderer {
	return &URIMapRenderer{name: SectionLinks, title: "Links", gateway: gateway, pick: (*manifest.Manifest).Links}
}

// NewSourcesRenderer renders the sources section.
func NewSourcesRenderer(gateway string) *URIMapRenderer {
	return &URIMapRenderer{
		name: SectionSources, title: "Sources", gateway: gateway,
		pick: func(m *manifest.Manifest) map[string]string { return m.Sources },
	}
}

// NewBuildDependenciesRenderer renders the build_dependencies section.
func NewBuildDependenciesRenderer(gateway string) *URIMapRenderer {
	return &URIMapRenderer{
		name: SectionBuildDependencies, title: "Build Dependencies", gateway: gateway,
		pick: func(m *manifest.Manifest) map[string]string { return m.BuildDependencies },
	}
}

func (r *URIMapRenderer) Name() string { return r.name }

func (r *URIMapRenderer) Render(m *manifest.Manifest) (Section, bool) {
	values := r.pick(m)
	if values == nil {
		return Section{}, false
	}

	s := Section{Name: r.name, Title: r.title}
	for _, key := range manifest.SortedKeys(values) {
		s.Entries = append(s.Entries, linkOrText(key, values[key], r.gateway))
	}
	return s, true
}

func resolveHref(target, gateway string) string {
	if !ident.IsContentURI(target) {
		return target
	}
	u, err := ident.Resolve(target)
	if err != nil {
		return ""
	}
	return u.GatewayURL(gateway)
}
