package main

import "os"

// Config is a configuration for the flowd participant service.
type Config struct {
	HTTPAddr string
	// SenderVersion is stamped on every outbound protocol envelope.
	SenderVersion string
	// StoreBackend selects the response store backend: "mem" or "pg".
	StoreBackend string
	// DBDSN is the Postgres DSN, required for the pg backend.
	DBDSN string
}

func DefaultConfig() *Config {
	return &Config{
		HTTPAddr:      "localhost:9096",
		SenderVersion: "flowd/1.0",
		StoreBackend:  "mem",
	}
}

// ConfigFromEnv returns the default config with environment overrides
// applied.
func ConfigFromEnv() *Config {
	cfg := DefaultConfig()
	cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.SenderVersion = getenv("SENDER_VERSION", cfg.SenderVersion)
	cfg.StoreBackend = getenv("STORE_BACKEND", cfg.StoreBackend)
	cfg.DBDSN = getenv("DB_DSN", cfg.DBDSN)
	return cfg
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
