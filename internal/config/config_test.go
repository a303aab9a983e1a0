package config

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	// Invariant that all default configurations are equal.
	expected, err := newDefault()
	require.NoError(t, err)
	got := Default()
	opts := cmpopts.EquateEmpty()
	require.True(
		t,
		cmp.Equal(expected, got, opts),
		"%s",
		cmp.Diff(expected, got, opts),
	)

	got.Math.Macros[`\RR`] = `\mathbb{R}`
	require.Empty(t, Default().Math.Macros)
}

func TestParseYAML(t *testing.T) {
	testCases := []struct {
		name           string
		rawConfig      string
		expectedConfig *Config
		errorSubstring string
	}{
		{
			name:           "full config v1",
			rawConfig:      testConfigV1Raw,
			expectedConfig: testConfigV1,
		},
		{
			name:      "only version",
			rawConfig: `version: v1`,
			expectedConfig: &Config{
				Version: "v1",
				Math:    ConfigMath{Macros: map[string]string{}, ThrowOnError: true},
				Render:  ConfigRender{CacheSize: 256},
			},
		},
		{
			name:           "unknown version",
			rawConfig:      `version: v1alpha1`,
			errorSubstring: "unknown version: v1alpha1",
		},
		{
			name: "unknown field",
			rawConfig: `version: v1
math:
  macro: {}
`,
			errorSubstring: "failed to parse v1 config",
		},
		{
			name: "validate cache size",
			rawConfig: `version: v1
render:
  cacheSize: 0
`,
			errorSubstring: "Config.Render.CacheSize",
		},
		{
			name: "validate macro names",
			rawConfig: `version: v1
math:
  macros:
    RR: '\mathbb{R}'
`,
			errorSubstring: "Config.Math.Macros[RR]",
		},
		{
			name: "validate tag name",
			rawConfig: `version: v1
math:
  inlineTagName: "Tex Math"
`,
			errorSubstring: "Config.Math.InlineTagName",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config, err := ParseYAML([]byte(tc.rawConfig))

			if tc.errorSubstring != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tc.errorSubstring)
				return
			}

			require.NoError(t, err)
			require.True(
				t,
				cmp.Equal(tc.expectedConfig, config),
				"%s", cmp.Diff(tc.expectedConfig, config),
			)
		})
	}
}

func TestParseYAML_Multiple(t *testing.T) {
	cfg1 := []byte(`version: v1
math:
  macros:
    '\RR': '\mathbb{R}'
  inlineTagName: tex-inline
`)
	cfg2 := []byte(`version: v1
math:
  macros:
    '\NN': '\mathbb{N}'
  throwOnError: false
`)
	expected := &Config{
		Version: "v1",
		Math: ConfigMath{
			Macros:        map[string]string{`\RR`: `\mathbb{R}`, `\NN`: `\mathbb{N}`},
			InlineTagName: "tex-inline",
		},
		Render: ConfigRender{CacheSize: 256},
	}

	config, err := ParseYAML(cfg1, cfg2)
	require.NoError(t, err)
	require.True(
		t,
		cmp.Equal(expected, config),
		"%s", cmp.Diff(expected, config),
	)
}

var (
	testConfigV1Raw = `version: v1
requires: ">= 1.0"

math:
  macros:
    '\RR': '\mathbb{R}'
  throwOnError: false
  inlineTagName: tex-inline
  displayTagName: tex-display

render:
  cacheSize: 64

log:
  enabled: true
  path: "/var/tmp/mathedit.log"
  verbose: true
`

	testConfigV1 = &Config{
		Version:  "v1",
		Requires: ">= 1.0",
		Math: ConfigMath{
			Macros:         map[string]string{`\RR`: `\mathbb{R}`},
			ThrowOnError:   false,
			InlineTagName:  "tex-inline",
			DisplayTagName: "tex-display",
		},
		Render: ConfigRender{CacheSize: 64},
		Log: ConfigLog{
			Enabled: true,
			Path:    "/var/tmp/mathedit.log",
			Verbose: true,
		},
	}
)
