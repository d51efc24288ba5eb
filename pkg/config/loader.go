package config

import (
	"os"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/modforge/modforge/pkg/merr"
)

// envPrefix is the prefix MODFORGE_-style environment overrides carry,
// e.g. MODFORGE_LOCK_BLOCK for lock.block. Every underscore after the
// prefix becomes a dot, so a multi-word leaf such as paths.game_root
// cannot be set this way.
const envPrefix = "MODFORGE_"

// Load resolves a Config by layering, in increasing precedence: the
// embedded system defaults, userConfigPath's TOML document (skipped
// silently if it does not exist), and MODFORGE_-prefixed environment
// variables.
func Load(userConfigPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(&rawBytesProvider{bytes: defaultConfig}, toml.Parser()); err != nil {
		return nil, merr.Wrap(err, merr.ErrInvalidInput, "loading default configuration")
	}

	if userConfigPath != "" {
		if _, err := os.Stat(userConfigPath); err == nil {
			if err := k.Load(file.Provider(userConfigPath), toml.Parser()); err != nil {
				return nil, merr.Wrap(err, merr.ErrInvalidInput, "loading configuration file").
					WithDetail("path", userConfigPath)
			}
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, merr.Wrap(err, merr.ErrInvalidInput, "loading environment overrides")
	}

	var cfg Config
	unmarshalConf := koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			Result:           &cfg,
			WeaklyTypedInput: true,
			DecodeHook:       mapstructure.StringToSliceHookFunc(","),
		},
	}
	if err := k.UnmarshalWithConf("", &cfg, unmarshalConf); err != nil {
		return nil, merr.Wrap(err, merr.ErrInvalidInput, "unmarshaling configuration")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the fields Load cannot leave empty: a mod manager
// with no game directory or staging root has nowhere to operate.
func (c *Config) Validate() error {
	if c.Paths.GameRoot == "" {
		return merr.New(merr.ErrInvalidInput, "paths.game_root is required")
	}
	if c.Paths.StagingRoot == "" {
		return merr.New(merr.ErrInvalidInput, "paths.staging_root is required")
	}
	return nil
}
