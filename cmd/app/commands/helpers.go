// Package commands implements the CLI command actions.
package commands

import (
	"log/slog"
	"os"

	promptshield "github.com/allisson/promptshield"
)

// NewClient builds a client from environment configuration.
func NewClient() (*promptshield.Client, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return promptshield.New(promptshield.LoadConfig(), promptshield.WithLogger(logger))
}

// options converts a CLI ttl flag into operation options. The flag's zero
// default means no explicit TTL.
func options(ttl int) *promptshield.Options {
	if ttl == 0 {
		return nil
	}
	return promptshield.TTL(ttl)
}
