package config

var defaults Config

const defaultsYAML = `version: v1

# Version constraint the running mathedit must satisfy, e.g. ">= 1.2".
requires: ""

# Settings of the math plugin.
math:
  # TeX macros available in every math node, e.g. "\\RR": "\\mathbb{R}".
  macros: {}
  # If false, invalid TeX is rendered as an inline error instead of
  # leaving the node unrendered.
  throwOnError: true
  # Custom DOM tag names for math nodes. Empty uses math-inline and
  # math-display.
  inlineTagName: ""
  displayTagName: ""

render:
  # Number of rendered formulas kept in memory.
  cacheSize: 256

log:
  enabled: false
  verbose: false
  # Defaults to stderr.
  path: ""
`

func init() {
	cfg, err := newDefault()
	if err != nil {
		panic(err)
	}
	defaults = *cfg
}

func newDefault() (*Config, error) {
	return parseYAML(&Config{}, []byte(defaultsYAML))
}

// Default returns the default configuration.
func Default() *Config {
	return defaults.Clone()
}
