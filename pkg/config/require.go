package config

import (
	"log/slog"
	"os"
)

var (
	osExit = os.Exit
	exit   = osExit
)

func MustNonEmpty(value, envName string) {
	if value == "" {
		slog.Error("missing required env", "env", envName)
		exit(1)
	}
}

func MustNonEmptyBytes(value []byte, envName string) {
	if len(value) == 0 {
		slog.Error("missing required env", "env", envName)
		exit(1)
	}
}

// MustRequired aborts start-up when the storage or token secrets are missing.
func (c Config) MustRequired() {
	MustNonEmpty(c.DatabaseURL, "DATABASE_URL")
	MustNonEmptyBytes(c.JWTAccessSecret, "JWT_SECRET")
	MustNonEmptyBytes(c.JWTRefreshSecret, "JWT_REFRESH_SECRET")
}
