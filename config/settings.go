package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/dmalone87/gatepipe/invoke"
)

// Settings is the operational configuration for the invocation layer.
type Settings struct {
	DirectURL            string `mapstructure:"direct_url"`
	RouterURL            string `mapstructure:"router_url"`
	BearerToken          string `mapstructure:"bearer_token"`
	SchemaVersion        string `mapstructure:"schema_version"`
	MaxValidationRetries int    `mapstructure:"max_validation_retries"`
	StateDir             string `mapstructure:"state_dir"`
	Refresh              bool   `mapstructure:"refresh"`
	DisableCache         bool   `mapstructure:"disable_cache"`
}

// LoadSettings reads settings from the given YAML file (optional; pass ""
// for environment-only) and from GATEPIPE_* environment variables, which
// take precedence.
func LoadSettings(path string) (*Settings, error) {
	v := viper.New()
	v.SetEnvPrefix("GATEPIPE")
	v.AutomaticEnv()

	v.SetDefault("direct_url", "")
	v.SetDefault("router_url", "")
	v.SetDefault("bearer_token", "")
	v.SetDefault("schema_version", "v1")
	v.SetDefault("max_validation_retries", 0)
	v.SetDefault("state_dir", ".gatepipe")
	v.SetDefault("refresh", false)
	v.SetDefault("disable_cache", false)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read settings %s: %w", path, err)
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return &s, nil
}

// InvokeConfig maps the settings onto the invocation layer's config.
func (s *Settings) InvokeConfig() invoke.Config {
	return invoke.Config{
		DirectURL:            s.DirectURL,
		RouterURL:            s.RouterURL,
		BearerToken:          s.BearerToken,
		SchemaVersion:        s.SchemaVersion,
		MaxValidationRetries: s.MaxValidationRetries,
		Refresh:              s.Refresh,
		DisableCache:         s.DisableCache,
	}
}
