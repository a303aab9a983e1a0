package config

import (
	"bytes"
	"io"
	"maps"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const currentVersion = "v1"

// Config is the configuration of mathedit read from mathedit.yaml.
type Config struct {
	Version  string       `yaml:"version" validate:"required,eq=v1"`
	// Requires is a constraint on the mathedit version, such as ">= 1.2".
	Requires string       `yaml:"requires"`
	Math     ConfigMath   `yaml:"math"`
	Render   ConfigRender `yaml:"render"`
	Log      ConfigLog    `yaml:"log"`
}

type ConfigMath struct {
	// Macros are TeX macro definitions shared by all math nodes.
	Macros         map[string]string `yaml:"macros" validate:"dive,keys,startswith=\\,endkeys"`
	ThrowOnError   bool              `yaml:"throwOnError"`
	InlineTagName  string            `yaml:"inlineTagName" validate:"omitempty,tagname"`
	DisplayTagName string            `yaml:"displayTagName" validate:"omitempty,tagname"`
}

type ConfigRender struct {
	CacheSize int `yaml:"cacheSize" validate:"min=1,max=65536"`
}

type ConfigLog struct {
	Enabled bool   `yaml:"enabled"`
	Verbose bool   `yaml:"verbose"`
	Path    string `yaml:"path"`
}

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	clone := *c
	clone.Math.Macros = maps.Clone(c.Math.Macros)
	return &clone
}

// ParseYAML parses one or more configuration files. Later files override
// the fields they set in earlier ones, on top of the defaults.
func ParseYAML(data ...[]byte) (*Config, error) {
	return parseYAML(Default(), data...)
}

func parseYAML(base *Config, data ...[]byte) (*Config, error) {
	cfg := base.Clone()
	for _, raw := range data {
		version, err := parseVersionFromYAML(raw)
		if err != nil {
			return nil, err
		}
		if version != currentVersion {
			return nil, errors.Errorf("unknown version: %s", version)
		}

		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(err, "failed to parse %s config", version)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, errors.Wrap(err, "failed to validate config")
	}
	return cfg, nil
}

type versionOnly struct {
	Version string `yaml:"version"`
}

func parseVersionFromYAML(data []byte) (string, error) {
	var result versionOnly

	if err := yaml.Unmarshal(data, &result); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal version")
	}

	return result.Version, nil
}

// Custom element names in lowercase with a hyphen, or plain lowercase
// HTML tag names.
var tagNameRe = regexp.MustCompile(`^[a-z][a-z0-9]*(-[a-z0-9]+)*$`)

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("tagname", func(fl validator.FieldLevel) bool {
		return tagNameRe.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}()

func validateConfig(cfg *Config) error {
	return errors.WithStack(validate.Struct(cfg))
}
