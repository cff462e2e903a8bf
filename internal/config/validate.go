package config

import (
	stderrors "errors"
	"fmt"

	"github.com/strange/local-bin/internal/errors"
	"github.com/strange/local-bin/internal/keys"
	"github.com/strange/local-bin/pkg/sshutil"
)

// Validate checks the config for errors and returns structured error messages.
func Validate(cfg *Config) error {
	if cfg.TargetPort < 1 || cfg.TargetPort > 65535 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("target_port %d is out of range", cfg.TargetPort),
			"Ports run from 1 to 65535.")
	}

	if err := keys.ValidateKeyType(cfg.KeyType); err != nil {
		return configError("key_type", err)
	}

	if _, err := sshutil.ParseHostKeyPolicy(cfg.HostKeyPolicy); err != nil {
		return err
	}

	if cfg.ConnectTimeout <= 0 {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("connect_timeout must be positive, got %s", cfg.ConnectTimeout),
			"Use a duration like 10s or 1m.")
	}

	if cfg.TargetUser != "" {
		if err := keys.ValidateConfigToken("target_user", cfg.TargetUser); err != nil {
			return configError("target_user", err)
		}
	}

	if cfg.TargetIdentifier != "" {
		if err := keys.ValidateIdentifier(cfg.TargetIdentifier); err != nil {
			return configError("target_identifier", err)
		}
	}

	return nil
}

// configError re-labels a validation error from another package as a
// config problem, keeping its message and suggestion.
func configError(key string, err error) error {
	var keyErr *errors.Error
	if !stderrors.As(err, &keyErr) {
		return errors.WrapWithCode(err, errors.ErrConfig, "Invalid "+key, "")
	}
	return errors.New(errors.ErrConfig, fmt.Sprintf("%s: %s", key, keyErr.Message), keyErr.Suggestion)
}
