package plugin

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDefinition() *Definition {
	return &Definition{
		Type:      TypeExtractors,
		Name:      "tap-github",
		Namespace: "tap_github",
		Label:     "GitHub",
		Variants: []Variant{
			{
				Name:         "meltanolabs",
				PipURL:       "meltanolabs-tap-github",
				Capabilities: []string{"catalog", "state"},
				Settings: []Setting{
					{Name: "auth_token", Kind: "password", Sensitive: true},
					{Name: "page_size", Kind: "integer", Value: 100},
				},
			},
			{Name: "singer-io", Original: true, PipURL: "tap-github", Namespace: "tap_github_legacy"},
		},
	}
}

func TestFindVariant(t *testing.T) {
	def := testDefinition()

	tests := []struct {
		name    string
		variant string
		want    string
		wantErr bool
	}{
		{name: "empty selects first", variant: "", want: "meltanolabs"},
		{name: "default selects first", variant: "default", want: "meltanolabs"},
		{name: "original flag", variant: "original", want: "singer-io"},
		{name: "by name", variant: "singer-io", want: "singer-io"},
		{name: "unknown", variant: "nope", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := def.FindVariant(tt.variant)
			if tt.wantErr {
				var notFound *VariantNotFoundError
				require.True(t, errors.As(err, &notFound))
				assert.Equal(t, "nope", notFound.Variant)
				assert.Equal(t, def.Ref(), notFound.Plugin)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, v.Name)
		})
	}
}

func TestFindVariantOriginalFallsBackToFirst(t *testing.T) {
	def := &Definition{Type: TypeLoaders, Name: "target-jsonl", Variants: []Variant{{Name: "a"}, {Name: "b"}}}
	v, err := def.FindVariant(VariantOriginal)
	require.NoError(t, err)
	assert.Equal(t, "a", v.Name)
}

func TestFindVariantNoVariants(t *testing.T) {
	def := &Definition{Type: TypeLoaders, Name: "target-jsonl"}
	_, err := def.FindVariant("")
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	got, err := ParseType(" Extractors ")
	require.NoError(t, err)
	assert.Equal(t, TypeExtractors, got)

	_, err = ParseType("widgets")
	assert.Error(t, err)
}

func TestFromVariantMergesDefinition(t *testing.T) {
	def := testDefinition()

	sp := FromVariant(&def.Variants[0], def)
	assert.Equal(t, TypeExtractors, sp.PluginType)
	assert.Equal(t, "tap-github", sp.Name)
	assert.Equal(t, "tap_github", sp.Namespace)
	assert.Equal(t, "meltanolabs", sp.Variant)
	assert.Equal(t, "GitHub", sp.Label)
	assert.Equal(t, []string{"catalog", "state"}, sp.Capabilities)
	assert.Equal(t, def.Ref(), sp.Ref())

	legacy := FromVariant(&def.Variants[1], def)
	assert.Equal(t, "tap_github_legacy", legacy.Namespace, "variant namespace overrides definition")
}

func TestFromVariantDoesNotAliasVariant(t *testing.T) {
	def := testDefinition()
	sp := FromVariant(&def.Variants[0], def)
	sp.Capabilities[0] = "changed"
	assert.Equal(t, "catalog", def.Variants[0].Capabilities[0])
}

func TestCanonicalOmitsEmpty(t *testing.T) {
	def := testDefinition()
	canon := FromVariant(&def.Variants[1], def).Canonical()

	assert.Equal(t, "extractors", canon["plugin_type"])
	assert.Equal(t, "singer-io", canon["variant"])
	assert.NotContains(t, canon, "docs")
	assert.NotContains(t, canon, "capabilities")
	assert.NotContains(t, canon, "settings")
}

func TestCanonicalMatchesJSONRoundTrip(t *testing.T) {
	def := testDefinition()
	sp := FromVariant(&def.Variants[0], def)

	written, err := json.Marshal(sp.Canonical())
	require.NoError(t, err)

	var decoded StandalonePlugin
	require.NoError(t, json.Unmarshal(written, &decoded))

	reread, err := json.Marshal(decoded.Canonical())
	require.NoError(t, err)
	assert.JSONEq(t, string(written), string(reread))
}
