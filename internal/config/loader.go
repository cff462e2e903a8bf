package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"github.com/strange/local-bin/internal/errors"
)

const (
	// AppDir is the directory under the user config dir.
	AppDir = "gitosis-keygen"
	// ConfigFileName is the config file name inside AppDir.
	ConfigFileName = "config.yaml"
	// EnvPrefix prefixes environment overrides, e.g. GITOSIS_KEYGEN_TARGET_USER.
	EnvPrefix = "GITOSIS_KEYGEN"
)

// DefaultPath returns $XDG_CONFIG_HOME/gitosis-keygen/config.yaml, falling
// back to ~/.config/gitosis-keygen/config.yaml.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppDir, ConfigFileName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".config", AppDir, ConfigFileName)
}

// Find locates the config file using the search order:
// 1. Explicit path (from --config flag), which must exist
// 2. DefaultPath
//
// Returns the path to the config file, or empty string if not found.
func Find(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			if os.IsNotExist(err) {
				return "", errors.WrapWithCode(err, errors.ErrConfig,
					"Specified config file not found: "+explicit,
					"Check the path is correct, or create one with 'gitosis-keygen config init'")
			}
			return "", errors.WrapWithCode(err, errors.ErrConfig,
				"Cannot access config file: "+explicit,
				"Check file permissions")
		}
		return explicit, nil
	}

	path := DefaultPath()
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	return "", nil
}

// Load builds the effective config: defaults, then the file at path (if
// path is non-empty), then GITOSIS_KEYGEN_* environment variables.
// The result is validated.
func Load(path string) (*Config, error) {
	v := newViper()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if os.IsNotExist(err) {
				return nil, errors.WrapWithCode(err, errors.ErrConfig,
					"Config file not found",
					"Run 'gitosis-keygen config init' to create one, or specify one with --config")
			}
			return nil, errors.WrapWithCode(err, errors.ErrConfig,
				"Failed to read config file",
				"Check the file exists and is valid YAML")
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid config format",
			"Check the value types in "+displayPath(path))
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault finds and loads the config. With no file anywhere, the
// defaults (plus environment overrides) are returned.
func LoadOrDefault(explicit string) (*Config, string, error) {
	path, err := Find(explicit)
	if err != nil {
		return nil, "", err
	}
	cfg, err := Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// newViper returns a viper instance with every key defaulted, so that
// AutomaticEnv can see all of them during Unmarshal.
func newViper() *viper.Viper {
	v := viper.New()
	d := DefaultConfig()

	v.SetDefault("target_user", d.TargetUser)
	v.SetDefault("target_port", d.TargetPort)
	v.SetDefault("target_identifier", d.TargetIdentifier)
	v.SetDefault("key_type", d.KeyType)
	v.SetDefault("host_key_policy", d.HostKeyPolicy)
	v.SetDefault("known_hosts", d.KnownHosts)
	v.SetDefault("connect_timeout", d.ConnectTimeout.String())
	v.SetDefault("use_agent", d.UseAgent)
	v.SetDefault("identity_file", d.IdentityFile)

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	return v
}

func displayPath(path string) string {
	if path == "" {
		return "your environment (" + EnvPrefix + "_*)"
	}
	return path
}
