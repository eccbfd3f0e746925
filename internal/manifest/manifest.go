// Package manifest validates and parses ethPM package manifests.
//
//	v, err := manifest.Validate(raw)
//	if err != nil {
//		return err // matches core.ErrManifestValidation
//	}
//	m := manifest.Parse(v)
//	fmt.Println(m.PackageName, m.Version)
package manifest

import (
	"encoding/json"
	"sort"

	"github.com/ethpm/explorer/internal/core"
)

// Manifest is a decoded package manifest. Optional sections that were absent
// from the document are nil.
type Manifest struct {
	PackageName     string
	Version         string
	ManifestVersion string

	Meta              *Meta
	Sources           map[string]string
	ContractTypes     map[string]json.RawMessage
	Deployments       map[string]map[string]Deployment
	BuildDependencies map[string]string
}

// Meta is the optional "meta" section.
type Meta struct {
	Authors     []string
	Description string
	License     string
	Keywords    []string
	Links       map[string]string
}

// Deployment is one contract instance deployed on a chain.
type Deployment struct {
	ContractType    string
	Address         string
	Transaction     string
	Block           string
	RuntimeBytecode string

	// Raw is the sorted-key JSON of the whole record, unknown fields included.
	Raw json.RawMessage
}

// Links returns meta.links, or nil.
func (m *Manifest) Links() map[string]string {
	if m.Meta == nil {
		return nil
	}
	return m.Meta.Links
}

// PURL returns the package URL of this release.
func (m *Manifest) PURL() (string, error) {
	return core.PackageURL(m.PackageName, m.Version)
}

// Load validates and parses raw manifest bytes.
func Load(raw []byte) (*Manifest, error) {
	v, err := Validate(raw)
	if err != nil {
		return nil, err
	}
	return Parse(v), nil
}

// Parse builds a Manifest from validated JSON. It never fails: every field it
// reads was type-checked by Validate, and absent sections stay nil.
func Parse(v *Validated) *Manifest {
	t := v.tree
	m := &Manifest{
		PackageName:     str(t["package_name"]),
		Version:         str(t["version"]),
		ManifestVersion: str(t["manifest_version"]),
	}

	if meta, ok := t["meta"].(map[string]any); ok {
		m.Meta = &Meta{
			Authors:     strs(meta["authors"]),
			Description: str(meta["description"]),
			License:     str(meta["license"]),
			Keywords:    uniq(strs(meta["keywords"])),
			Links:       strMap(meta["links"]),
		}
	}

	m.Sources = strMap(t["sources"])
	m.BuildDependencies = strMap(t["build_dependencies"])

	if types, ok := t["contract_types"].(map[string]any); ok {
		m.ContractTypes = make(map[string]json.RawMessage, len(types))
		for name, data := range types {
			m.ContractTypes[name] = mustJSON(data)
		}
	}

	if deps, ok := t["deployments"].(map[string]any); ok {
		m.Deployments = make(map[string]map[string]Deployment, len(deps))
		for chainURI, instances := range deps {
			inst, _ := instances.(map[string]any)
			out := make(map[string]Deployment, len(inst))
			for name, rec := range inst {
				out[name] = deployment(rec)
			}
			m.Deployments[chainURI] = out
		}
	}

	return m
}

func deployment(v any) Deployment {
	rec, _ := v.(map[string]any)
	d := Deployment{
		ContractType: str(rec["contract_type"]),
		Address:      str(rec["address"]),
		Transaction:  str(rec["transaction"]),
		Block:        str(rec["block"]),
		Raw:          mustJSON(rec),
	}
	switch rb := rec["runtime_bytecode"].(type) {
	case string:
		d.RuntimeBytecode = rb
	case map[string]any:
		d.RuntimeBytecode = str(rb["bytecode"])
	}
	return d
}

// SortedKeys returns the keys of m in lexical order. Canonical manifests are
// written with sorted keys, so this is also document order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func strs(v any) []string {
	arr, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func strMap(v any) map[string]string {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(obj))
	for k, item := range obj {
		if s, ok := item.(string); ok {
			out[k] = s
		}
	}
	return out
}

// uniq drops repeated keywords, keeping the first occurrence.
func uniq(in []string) []string {
	if in == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}

// mustJSON re-encodes a decoded JSON value. Values produced by
// encoding/json always re-encode, and maps come out with sorted keys.
func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("null")
	}
	return b
}
