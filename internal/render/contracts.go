package render

import (
	"bytes"
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	"github.com/ethpm/explorer/internal/manifest"
)

var unsafeIDChars = strings.NewReplacer(".", "", "/", "", "-", "")

// SafeID strips the characters that cannot appear in an element id.
func SafeID(name string) string {
	return unsafeIDChars.Replace(name)
}

// SafeIDs assigns a unique safe id to every name. Names are taken in sorted
// order; the first to claim an id keeps it and later ones get the first free
// _2, _3, ... suffix.
func SafeIDs(names []string) map[string]string {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	taken := make(map[string]bool, len(sorted))
	ids := make(map[string]string, len(sorted))
	for _, name := range sorted {
		base := SafeID(name)
		id := base
		for n := 2; taken[id]; n++ {
			id = base + "_" + strconv.Itoa(n)
		}
		taken[id] = true
		ids[name] = id
	}
	return ids
}

// ContractTypesRenderer renders one block per contract type with its
// pretty-printed JSON.
type ContractTypesRenderer struct{}

func (ContractTypesRenderer) Name() string { return SectionContractTypes }

func (ContractTypesRenderer) Render(m *manifest.Manifest) (Section, bool) {
	if m.ContractTypes == nil {
		return Section{}, false
	}

	names := manifest.SortedKeys(m.ContractTypes)
	ids := SafeIDs(names)

	s := Section{Name: SectionContractTypes, Title: "Contract Types"}
	for _, name := range names {
		s.Entries = append(s.Entries, Entry{
			ID:    ids[name],
			Label: name,
			Code:  PrettyJSON(m.ContractTypes[name]),
		})
	}
	return s, true
}

// PrettyJSON indents raw JSON with sorted object keys. Markup characters are
// left as-is for the Presenter to escape. Invalid input is returned verbatim.
func PrettyJSON(raw json.RawMessage) string {
	v, err := manifest.Decode(raw)
	if err != nil {
		return string(raw)
	}
	return prettyValue(v)
}

func prettyValue(v any) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return ""
	}
	return strings.TrimSuffix(buf.String(), "\n")
}
