package manifest

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpm/explorer/internal/core"
)

const mainnetURI = "blockchain://d4e56740f876aef8c010b86a40d5f56745a118d0906a34e69aec8c0db1cb8fa3/block/752820c0ad7abc1200f9ad42c4adc6fbb4bd44b5bed4667990e64565102c1ba6"

const fullManifest = `{
	"build_dependencies": {"owned": "ipfs://QmPX98i84FMGTF77aNSMijiDnqtYUpCPymZ4uYXR9pqb7Q"},
	"contract_types": {
		"StandardToken": {"abi": [{"name": "transfer", "type": "function"}], "natspec": {"title": "a <b>token</b>"}}
	},
	"deployments": {
		"` + mainnetURI + `": {
			"StandardToken": {
				"address": "0x8c1e6bd69d4e11c4e1e7e0d1eb6e5f7a7f2d3a4b",
				"block": "0x752820c0ad7abc1200f9ad42c4adc6fbb4bd44b5bed4667990e64565102c1ba6",
				"contract_type": "StandardToken",
				"runtime_bytecode": {"bytecode": "0x6060"},
				"transaction": "0x1f3a4b5c6d7e8f9a0b1c2d3e4f5a6b7c8d9e0f1a2b3c4d5e6f7a8b9c0d1e2f3a",
				"x-extra": 7
			}
		}
	},
	"manifest_version": "2",
	"meta": {
		"authors": ["Piper Merriam <pipermerriam@gmail.com>", "Nick Gheorghita"],
		"description": "ERC20 token <script>",
		"keywords": ["erc20", "token", "erc20"],
		"license": "MIT",
		"links": {"documentation": "ipfs://QmRQxEmb1Yy54FrLaTFiEZnouFALd7o1BU7T7Zpf3F2oTF", "repo": "https://github.com/ethpm/ethpm-spec"}
	},
	"package_name": "standard-token",
	"sources": {"./contracts/StandardToken.sol": "ipfs://QmZfUscJnCYxc7xWYeKPEAE4mXCCJPP8eDtZ1Af7sJEx65"},
	"version": "1.0.0"
}`

func TestLoadFullManifest(t *testing.T) {
	m, err := Load([]byte(fullManifest))
	require.NoError(t, err)

	assert.Equal(t, "standard-token", m.PackageName)
	assert.Equal(t, "1.0.0", m.Version)
	assert.Equal(t, "2", m.ManifestVersion)

	require.NotNil(t, m.Meta)
	assert.Equal(t, []string{"Piper Merriam <pipermerriam@gmail.com>", "Nick Gheorghita"}, m.Meta.Authors)
	assert.Equal(t, "ERC20 token <script>", m.Meta.Description)
	assert.Equal(t, "MIT", m.Meta.License)
	assert.Equal(t, []string{"erc20", "token"}, m.Meta.Keywords, "keywords are a set")
	assert.Equal(t, "https://github.com/ethpm/ethpm-spec", m.Links()["repo"])

	assert.Len(t, m.Sources, 1)
	assert.Equal(t, "ipfs://QmPX98i84FMGTF77aNSMijiDnqtYUpCPymZ4uYXR9pqb7Q", m.BuildDependencies["owned"])

	require.Contains(t, m.ContractTypes, "StandardToken")
	var ct map[string]any
	require.NoError(t, json.Unmarshal(m.ContractTypes["StandardToken"], &ct))
	assert.Contains(t, ct, "abi")

	require.Contains(t, m.Deployments, mainnetURI)
	d := m.Deployments[mainnetURI]["StandardToken"]
	assert.Equal(t, "0x8c1e6bd69d4e11c4e1e7e0d1eb6e5f7a7f2d3a4b", d.Address)
	assert.Equal(t, "StandardToken", d.ContractType)
	assert.Equal(t, "0x6060", d.RuntimeBytecode)
	assert.Contains(t, string(d.Raw), `"x-extra":7`)
}

func TestLoadMinimalManifest(t *testing.T) {
	m, err := Load([]byte(`{"manifest_version": "2", "package_name": "owned", "version": "1.0.0"}`))
	require.NoError(t, err)

	assert.Equal(t, "owned", m.PackageName)
	assert.Equal(t, "1.0.0", m.Version)
	assert.Equal(t, "2", m.ManifestVersion)

	assert.Nil(t, m.Meta)
	assert.Nil(t, m.Links())
	assert.Nil(t, m.Sources)
	assert.Nil(t, m.ContractTypes)
	assert.Nil(t, m.Deployments)
	assert.Nil(t, m.BuildDependencies)
}

func TestRequiredFieldsRoundTrip(t *testing.T) {
	cases := []struct {
		name, version, manifestVersion string
	}{
		{"owned", "1.0.0", "2"},
		{"safe-math-lib", "1.0.0-beta.1+build.7", "2"},
		{"wallet", "v3", "3"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw, err := json.Marshal(map[string]string{
				"package_name":     tc.name,
				"version":          tc.version,
				"manifest_version": tc.manifestVersion,
			})
			require.NoError(t, err)

			m, err := Load(raw)
			require.NoError(t, err)
			assert.Equal(t, tc.name, m.PackageName)
			assert.Equal(t, tc.version, m.Version)
			assert.Equal(t, tc.manifestVersion, m.ManifestVersion)
		})
	}
}

func TestValidateMalformedJSON(t *testing.T) {
	for _, raw := range []string{``, `{`, `{"package_name": }`, `not json`, `{"a":1} trailing`} {
		_, err := Validate([]byte(raw))
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, core.ErrMalformedJSON), "%q: %v", raw, err)
		assert.True(t, errors.Is(err, core.ErrManifestValidation), "%q: %v", raw, err)
		assert.False(t, errors.Is(err, core.ErrSchemaViolation), "%q: %v", raw, err)
	}
}

func TestValidateSchemaViolations(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		fields []string
	}{
		{
			name:   "missing required fields",
			raw:    `{"manifest_version": "2"}`,
			fields: []string{"package_name", "version"},
		},
		{
			name:   "wrong required type",
			raw:    `{"manifest_version": 2, "package_name": "owned", "version": "1.0.0"}`,
			fields: []string{"manifest_version"},
		},
		{
			name:   "invalid package name",
			raw:    `{"manifest_version": "2", "package_name": "Owned!", "version": "1.0.0"}`,
			fields: []string{"package_name"},
		},
		{
			name:   "optional sections mistyped",
			raw:    `{"manifest_version": "2", "package_name": "owned", "version": "1.0.0", "meta": {"authors": "me"}, "sources": []}`,
			fields: []string{"meta.authors", "sources"},
		},
		{
			name:   "bad deployment address",
			raw:    `{"manifest_version": "2", "package_name": "owned", "version": "1.0.0", "deployments": {"` + mainnetURI + `": {"Owned": {"address": "0x123"}}}}`,
			fields: []string{"deployments." + mainnetURI + ".Owned.address"},
		},
		{
			name:   "root is not an object",
			raw:    `["owned"]`,
			fields: []string{"(root)"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Validate([]byte(tt.raw))
			require.Error(t, err)
			assert.True(t, errors.Is(err, core.ErrSchemaViolation))
			assert.True(t, errors.Is(err, core.ErrManifestValidation))

			var verr *core.ValidationError
			require.True(t, errors.As(err, &verr))

			got := make([]string, len(verr.Violations))
			for i, v := range verr.Violations {
				got[i] = v.Field
			}
			for _, f := range tt.fields {
				assert.Contains(t, got, f)
			}
		})
	}
}

func TestValidateAcceptsEachOptionalSectionAbsent(t *testing.T) {
	var full map[string]any
	require.NoError(t, json.Unmarshal([]byte(fullManifest), &full))

	for _, section := range []string{"meta", "sources", "contract_types", "deployments", "build_dependencies"} {
		t.Run(section, func(t *testing.T) {
			doc := make(map[string]any, len(full))
			for k, v := range full {
				if k != section {
					doc[k] = v
				}
			}
			raw, err := json.Marshal(doc)
			require.NoError(t, err)

			m, err := Load(raw)
			require.NoError(t, err)
			assert.Equal(t, "standard-token", m.PackageName)
		})
	}
}

func TestPURL(t *testing.T) {
	m, err := Load([]byte(`{"manifest_version": "2", "package_name": "owned", "version": "1.0.0"}`))
	require.NoError(t, err)

	p, err := m.PURL()
	require.NoError(t, err)
	assert.Equal(t, "pkg:generic/owned@1.0.0", p)
}

func TestSortedKeys(t *testing.T) {
	keys := SortedKeys(map[string]int{"b": 1, "a": 2, "FooBar": 3, "Foo.Bar": 4})
	assert.Equal(t, []string{"Foo.Bar", "FooBar", "a", "b"}, keys)
}

func TestValidateKeepsRaw(t *testing.T) {
	raw := []byte(`{"manifest_version":"2","package_name":"owned","version":"1.0.0"}`)
	v, err := Validate(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, v.Raw())
}

func TestNumbersSurviveParsing(t *testing.T) {
	raw := `{
		"contract_types": {"Big": {"x-big": 123456789012345678901, "x-float": 1.50, "x-int": 9007199254740993}},
		"deployments": {"blockchain://abababababababababababababababababababababababababababababababab/block/752820c0ad7abc1200f9ad42c4adc6fbb4bd44b5bed4667990e64565102c1ba6": {
			"Big": {"contract_type": "Big", "x-block-number": 9007199254740993}
		}},
		"manifest_version": "2",
		"package_name": "big-numbers",
		"version": "1.0.0"
	}`

	m, err := Load([]byte(raw))
	require.NoError(t, err)

	ct := string(m.ContractTypes["Big"])
	assert.Contains(t, ct, `"x-big":123456789012345678901`)
	assert.Contains(t, ct, `"x-float":1.50`)
	assert.Contains(t, ct, `"x-int":9007199254740993`)

	for _, inst := range m.Deployments {
		assert.Contains(t, string(inst["Big"].Raw), `"x-block-number":9007199254740993`)
	}
}

func TestDecode(t *testing.T) {
	v, err := Decode([]byte(`{"n": 9007199254740993}`))
	require.NoError(t, err)
	assert.Equal(t, json.Number("9007199254740993"), v.(map[string]any)["n"])

	for _, raw := range []string{``, `{} {}`, `{"a":1}]`} {
		_, err := Decode([]byte(raw))
		assert.Error(t, err, raw)
	}
}
