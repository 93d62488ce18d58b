// Package conf loads the externally owned per-type serialization overrides
// the engine consumes read-only: which types use an external serializer,
// which are raw-mode, and which field colocates related objects.
//
// Sources, in ascending precedence: a `binobj` config file (yaml/toml/json,
// found in the working directory or at BINOBJ_CONFIG), then environment
// variables prefixed BINOBJ_. A `.env` file is honored when present.
package conf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/oy3o/binobj"
)

// TypeOverride is one per-type entry of the configuration surface.
type TypeOverride struct {
	// Name is the logical type name the override binds to.
	Name string `mapstructure:"name"`
	// ID fixes the logical type id; 0 keeps the name-derived id.
	ID int32 `mapstructure:"id"`
	// Serializer is "external" or "reflective" (the default).
	Serializer string `mapstructure:"serializer"`
	// RawMode switches the type to schemaless sequential encoding.
	RawMode bool `mapstructure:"rawMode"`
	// AffinityField designates the colocation field.
	AffinityField string `mapstructure:"affinityField"`
}

// Config is the loaded override set.
type Config struct {
	Types []TypeOverride `mapstructure:"types"`
}

// Load reads the override configuration. A missing config file is not an
// error: the result is simply empty and every type falls back to automatic
// resolution.
func Load() (*Config, error) {
	// .env files are a development convenience; absence is fine.
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v := viper.New()
	v.SetEnvPrefix("binobj")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("binobj")
	v.AddConfigPath(".")
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("conf: reading config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.UnmarshalKey("types", &cfg.Types); err != nil {
		return nil, fmt.Errorf("conf: parsing type overrides: %w", err)
	}
	for _, t := range cfg.Types {
		if err := validate(t); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func validate(t TypeOverride) error {
	if t.Name == "" {
		return fmt.Errorf("conf: type override with empty name")
	}
	switch t.Serializer {
	case "", "reflective", "external":
	default:
		return fmt.Errorf("conf: type %q: invalid serializer %q", t.Name, t.Serializer)
	}
	return nil
}

// Options converts the loaded overrides into engine options.
func (c *Config) Options() []binobj.Option {
	opts := make([]binobj.Option, 0, len(c.Types))
	for _, t := range c.Types {
		opts = append(opts, binobj.WithTypeDefaults(t.Name, binobj.TypeDefaults{
			ID:            t.ID,
			External:      t.Serializer == "external",
			RawMode:       t.RawMode,
			AffinityField: t.AffinityField,
		}))
	}
	return opts
}
