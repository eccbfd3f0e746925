package browse

import (
	"bytes"
	"html/template"

	"github.com/ethpm/explorer/internal/core"
	"github.com/ethpm/explorer/internal/ident"
)

const releaseListTemplate = `<dl class='row' style='font-size:.8em;'>` +
	`<dt class='col-sm-3' style='text-decoration:underline;'>Version</dt>` +
	`<dt class='col-sm-9' style='text-decoration:underline;'>Manifest URI</dt>` +
	`{{range .}}{{if .DetailsPath}}` +
	`<dd class="col-sm-3">{{.Version}}</dd>` +
	`<dd class="col-sm-7 text"><span>{{.Display}}</span></dd>` +
	`<dd class="col-sm-2"><a href="{{.DetailsPath}}" target="_blank" style="float:right;">Details</a></dd>` +
	`{{else}}` +
	`<dd class='col-sm-3'>{{.Version}}</dd><dd class='col-sm-9'>{{.Display}}</dd>` +
	`{{end}}{{end}}</dl>`

var releaseList = template.Must(template.New("releases").Parse(releaseListTemplate))

// ReleaseRow is one line of the release list.
type ReleaseRow struct {
	Version     string
	Display     string // humanized manifest URI, or the raw URI
	DetailsPath string // /manifest/<cid>, empty for non-content URIs
}

// ReleaseRows prepares releases for display. Content URIs are shortened and
// get a details link; anything else is shown verbatim.
func ReleaseRows(releases []core.Release) []ReleaseRow {
	rows := make([]ReleaseRow, len(releases))
	for i, rls := range releases {
		rows[i] = ReleaseRow{Version: rls.Version, Display: rls.ManifestURI}
		if uri, err := ident.Resolve(rls.ManifestURI); err == nil && ident.IsContentURI(rls.ManifestURI) {
			rows[i].Display = ident.Humanize(uri.String())
			rows[i].DetailsPath = "/manifest/" + uri.Hash()
		}
	}
	return rows
}

// ReleaseListHTML renders the release list fragment returned to the package
// drop-down. Every value is escaped.
func ReleaseListHTML(releases []core.Release) (template.HTML, error) {
	var buf bytes.Buffer
	if err := releaseList.Execute(&buf, ReleaseRows(releases)); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}
