package config

import (
	"errors"
	"fmt"
)

func NonEmpty(value, envName string) error {
	if value == "" {
		return fmt.Errorf("missing required env %s", envName)
	}
	return nil
}

func NonEmptyBytes(value []byte, envName string) error {
	if len(value) == 0 {
		return fmt.Errorf("missing required env %s", envName)
	}
	return nil
}

// RequireSecrets reports every missing signing key at once.
func (c Config) RequireSecrets() error {
	return errors.Join(
		NonEmptyBytes(c.JWTAccessSecret, "JWT_SECRET"),
		NonEmptyBytes(c.JWTRefreshSecret, "JWT_REFRESH_SECRET"),
		NonEmptyBytes(c.JWTResetSecret, "JWT_RESET_SECRET"),
	)
}

// RequireDatabase is checked by commands that touch the credential store.
func (c Config) RequireDatabase() error {
	return NonEmpty(c.DatabaseURL, "DATABASE_URL")
}

// RequireDurations reports every duration variable Load could not parse.
func (c Config) RequireDurations() error {
	return errors.Join(c.invalid...)
}
