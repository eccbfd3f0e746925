package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ethpm/explorer/internal/core"
)

var schemaLoader = gojsonschema.NewStringLoader(Schema)

// compiled is built once; the schema is a constant so a failure is a programming error.
var compiled = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(schemaLoader)
	if err != nil {
		panic(fmt.Sprintf("manifest schema: %v", err))
	}
	return s
}()

// Validated is decoded manifest JSON that satisfies Schema. Only Validate
// produces it, so Parse can trust its shape.
type Validated struct {
	raw  []byte
	tree map[string]any
}

// Raw returns the bytes the manifest was decoded from.
func (v *Validated) Raw() []byte {
	return v.raw
}

// Validate decodes raw and checks it against Schema. Syntax errors wrap
// core.ErrMalformedJSON; schema mismatches wrap core.ErrSchemaViolation and
// list every violation. Both are *core.ValidationError and match
// core.ErrManifestValidation.
func Validate(raw []byte) (*Validated, error) {
	doc, err := Decode(raw)
	if err != nil {
		return nil, &core.ValidationError{Kind: core.ErrMalformedJSON, Cause: err}
	}

	result, err := compiled.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return nil, &core.ValidationError{Kind: core.ErrSchemaViolation, Cause: err}
	}
	if !result.Valid() {
		return nil, &core.ValidationError{
			Kind:       core.ErrSchemaViolation,
			Violations: violations(result.Errors()),
		}
	}

	// the schema requires an object at the root
	tree, _ := doc.(map[string]any)
	return &Validated{raw: raw, tree: tree}, nil
}

// Decode parses a single JSON value. Numbers are kept as json.Number so
// they re-encode exactly as written.
func Decode(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("invalid character after top-level value")
	}
	return v, nil
}

func violations(errs []gojsonschema.ResultError) []core.Violation {
	out := make([]core.Violation, 0, len(errs))
	for _, e := range errs {
		field := e.Field()
		if e.Type() == "required" {
			if prop, ok := e.Details()["property"].(string); ok {
				if field == "(root)" {
					field = prop
				} else {
					field = field + "." + prop
				}
			}
		}
		out = append(out, core.Violation{Field: field, Message: e.Description()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Field < out[j].Field
	})
	return out
}
