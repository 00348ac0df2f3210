package marketapi

import (
	"fmt"
	"strings"
	"time"
)

const (
	defaultListenAddr     = ":8090"
	defaultAllowedOrigin  = "http://localhost:5173"
	defaultRequestTimeout = 90 * time.Second
	defaultReadTimeout    = 15 * time.Second
	defaultGalleryLimit   = 20
	defaultActivityLimit  = 50
	maxActivityLimit      = 500
	shutdownTimeout       = 5 * time.Second
)

// Config aggregates runtime settings for the marketplace API.
type Config struct {
	ListenAddr     string
	AllowedOrigins []string
	// RequestTimeout bounds state-changing calls, which include ledger polling.
	RequestTimeout time.Duration
	ReadTimeout    time.Duration
}

// Validate fills defaults and ensures the configuration contains sane values.
func (cfg *Config) Validate() error {
	cfg.ListenAddr = defaultIfEmpty(cfg.ListenAddr, defaultListenAddr)
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{defaultAllowedOrigin}
	}
	if strings.TrimSpace(cfg.ListenAddr) == "" {
		return fmt.Errorf("listen addr is required")
	}
	for _, origin := range cfg.AllowedOrigins {
		if origin != "*" && !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("allowed origin %q must be an http(s) origin or *", origin)
		}
	}
	return nil
}

func defaultIfEmpty(value string, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// ParseAllowedOrigins splits comma-delimited origins into a slice.
func ParseAllowedOrigins(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			normalized = append(normalized, trimmed)
		}
	}
	return normalized
}
