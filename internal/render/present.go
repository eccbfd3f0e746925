package render

import (
	"bytes"
	"html/template"
	"strings"
)

// Presenter turns a Section into markup safe to embed in a page. Every
// manifest-supplied string is escaped.
type Presenter interface {
	Present(s Section) template.HTML
}

const sectionTemplate = `{{define "entries"}}<dl>
{{- range .}}<dt{{if .ID}} id="{{.ID}}"{{end}}>{{.Label}}</dt><dd>
{{- if .Href}}<a href="{{.Href}}" target="_blank">{{.Text}}</a>{{else}}{{.Text}}{{end}}
{{- if .Code}}<pre><code>{{.Code}}</code></pre>{{end}}
{{- if .Children}}{{template "entries" .Children}}{{end}}</dd>
{{- end}}</dl>{{end -}}
<section id="{{.Name}}"><h3>{{.Title}}</h3>{{template "entries" .Entries}}</section>`

var sectionHTML = template.Must(template.New("section").Parse(sectionTemplate))

// HTMLPresenter renders sections as nested definition lists. Link targets go
// through html/template URL filtering, so script URLs never reach an href.
type HTMLPresenter struct{}

func (HTMLPresenter) Present(s Section) template.HTML {
	var buf bytes.Buffer
	if err := sectionHTML.Execute(&buf, s); err != nil {
		return template.HTML(template.HTMLEscapeString(err.Error()))
	}
	return template.HTML(buf.String())
}

// TextPresenter renders sections as indented "label: value" lines.
type TextPresenter struct{}

func (TextPresenter) Present(s Section) template.HTML {
	var b strings.Builder
	b.WriteString(s.Title)
	b.WriteByte('\n')
	writeText(&b, s.Entries, 1)
	return template.HTML(template.HTMLEscapeString(b.String()))
}

func writeText(b *strings.Builder, entries []Entry, depth int) {
	indent := strings.Repeat("  ", depth)
	for _, e := range entries {
		b.WriteString(indent)
		b.WriteString(e.Label)
		if e.Text != "" {
			b.WriteString(": ")
			b.WriteString(e.Text)
		}
		if e.Href != "" && e.Href != e.Text {
			b.WriteString(" <" + e.Href + ">")
		}
		b.WriteByte('\n')
		if e.Code != "" {
			for _, line := range strings.Split(e.Code, "\n") {
				b.WriteString(indent + "  " + line + "\n")
			}
		}
		writeText(b, e.Children, depth+1)
	}
}
