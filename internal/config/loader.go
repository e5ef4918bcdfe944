package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "ICNA_EVENTS_"

	// EnvConfigFile names the YAML file to load when no path is given.
	EnvConfigFile = EnvPrefix + "CONFIG"
)

// Load builds a Config by layering, from low to high precedence:
//  1. defaults (Default())
//  2. the YAML file at path, or at $ICNA_EVENTS_CONFIG when path is empty
//  3. env (prefix ICNA_EVENTS_)
//  4. overrides, keyed like the YAML file (e.g. "max_pages")
//
// The result is validated before it is returned.
func Load(path string, overrides map[string]any) (*Config, error) {
	base := Default()

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv(EnvConfigFile)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrLoadConfig, path, err)
		}
	}

	// ICNA_EVENTS_MAX_PAGES -> max_pages, ICNA_EVENTS_RULES__ITEM -> rules.item
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: reading environment: %v", ErrLoadConfig, err)
	}

	for key, v := range overrides {
		if err := k.Set(key, v); err != nil {
			return nil, fmt.Errorf("%w: override %s: %v", ErrLoadConfig, key, err)
		}
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
