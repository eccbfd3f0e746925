// Package render turns the sections of a parsed manifest into
// presentation-neutral trees and, through a Presenter, into escaped markup.
//
// Renderers are pure: they read the manifest and the chain table and share no
// mutable state, so a Renderer runs them concurrently.
package render

import (
	"github.com/ethpm/explorer/internal/manifest"
)

// Section names, in page order.
const (
	SectionMetadata          = "metadata"
	SectionLinks             = "links"
	SectionSources           = "sources"
	SectionContractTypes     = "contract_types"
	SectionDeployments       = "deployments"
	SectionBuildDependencies = "build_dependencies"
)

// Entry is one node of a rendered section. Every string holds raw,
// unescaped manifest text; escaping is the Presenter's job.
type Entry struct {
	ID       string // stable anchor, unique within the section when set
	Label    string
	Text     string
	Href     string // link target; empty means plain text
	Code     string // preformatted block, e.g. pretty JSON
	Children []Entry
}

// Section is the rendered form of one manifest section.
type Section struct {
	Name    string
	Title   string
	Entries []Entry
}

// SectionRenderer renders one optional manifest section. ok is false when
// the manifest does not carry the section.
type SectionRenderer interface {
	Name() string
	Render(m *manifest.Manifest) (s Section, ok bool)
}

// linkOrText labels target with its resolved HTTP URL when it is a content
// URI and leaves it as text otherwise.
func linkOrText(label, target, gateway string) Entry {
	return Entry{Label: label, Text: target, Href: resolveHref(target, gateway)}
}
