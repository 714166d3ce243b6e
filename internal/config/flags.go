package config

import (
	"flag"
	"fmt"
	"io"
)

// parseFlags parses the serve flags. Unset flags stay zero so lower
// precedence sources can fill them.
func parseFlags(args []string) (*Config, error) {
	cfg := new(Config)

	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.Address, "addr", "", "listen address")
	fs.StringVar(&cfg.DatabaseURL, "db", "", "SQLite path or postgres:// URL")
	fs.StringVar(&cfg.Uploads.Folder, "uploads", "", "upload directory for the local asset backend")
	fs.StringVar(&cfg.Uploads.Backend, "assets", "", "asset backend: local or minio")
	fs.StringVar(&cfg.SecretKey, "secret", "", "session signing key")
	fs.StringVar(&cfg.LogLevel, "log-level", "", "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("error parsing flags: %w", err)
	}

	return cfg, nil
}
