package render

import (
	"strings"

	"github.com/git-pkgs/spdx"

	"github.com/ethpm/explorer/internal/manifest"
)

// ListSeparator joins authors and keywords.
const ListSeparator = ", "

// MetadataRenderer renders authors, description, license and keywords.
type MetadataRenderer struct{}

func (MetadataRenderer) Name() string { return SectionMetadata }

func (MetadataRenderer) Render(m *manifest.Manifest) (Section, bool) {
	if m.Meta == nil {
		return Section{}, false
	}
	meta := m.Meta

	s := Section{Name: SectionMetadata, Title: "Metadata"}
	if len(meta.Authors) > 0 {
		s.Entries = append(s.Entries, Entry{ID: "authors", Label: "Authors", Text: strings.Join(meta.Authors, ListSeparator)})
	}
	if meta.Description != "" {
		s.Entries = append(s.Entries, Entry{ID: "description", Label: "Description", Text: meta.Description})
	}
	if meta.License != "" {
		e := Entry{ID: "license", Label: "License", Text: meta.License}
		if id := LicenseID(meta.License); id != "" && id != meta.License {
			e.Children = []Entry{{Label: "SPDX", Text: id}}
		}
		s.Entries = append(s.Entries, e)
	}
	if len(meta.Keywords) > 0 {
		s.Entries = append(s.Entries, Entry{ID: "keywords", Label: "Keywords", Text: strings.Join(meta.Keywords, ListSeparator)})
	}
	return s, true
}

// LicenseID returns the SPDX identifier for a free-form license string, or
// "" when it is not recognised.
func LicenseID(license string) string {
	id, err := spdx.Normalize(license)
	if err != nil {
		return ""
	}
	return id
}
