// Package config is the environment/file configuration loader (C7),
// built on viper the way bd's cmd/bd/config.go binds flags and env vars
// over a config file: env vars take precedence, mandatory keys fail
// startup outright rather than falling back to a silent default.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the full set of environment the daemon needs to start.
type Config struct {
	EphemeralStoreURL string // redis://... ; required
	MetadataStorePath string // sqlite file path; defaults to waitingroom.db
	ListenAddr        string // host:port
	LogLevel          string // debug|info|warn|error
	LogDir            string // empty means stderr
}

// Load reads configuration from the environment (prefixed WAITINGROOM_)
// and an optional config file, applying defaults for everything but the
// ephemeral store URL, which is mandatory. The metadata store path
// defaults to waitingroom.db and is rejected only if set to empty.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("waitingroom")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_dir", "")
	v.SetDefault("metadata_store_path", "waitingroom.db")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		EphemeralStoreURL: v.GetString("ephemeral_store_url"),
		MetadataStorePath: v.GetString("metadata_store_path"),
		ListenAddr:        v.GetString("listen_addr"),
		LogLevel:          v.GetString("log_level"),
		LogDir:            v.GetString("log_dir"),
	}

	if cfg.EphemeralStoreURL == "" {
		return nil, fmt.Errorf("config: WAITINGROOM_EPHEMERAL_STORE_URL is required")
	}
	if cfg.MetadataStorePath == "" {
		return nil, fmt.Errorf("config: metadata store path is required")
	}
	return cfg, nil
}
