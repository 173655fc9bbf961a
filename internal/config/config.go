package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// applyDefaults sets default values for unset fields
func applyDefaults(cfg *Config) {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.MaxBodySize == 0 {
		cfg.MaxBodySize = DefaultMaxBodySize
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.Upstream.Name == "" {
		cfg.Upstream.Name = DefaultUpstreamName
	}
	if cfg.Cache != nil {
		if cfg.Cache.TTL == 0 {
			cfg.Cache.TTL = DefaultCacheTTL
		}
		if cfg.Cache.Size == 0 {
			cfg.Cache.Size = DefaultCacheSize
		}
	}
}

// validate checks the configuration for errors
func validate(cfg *Config) error {
	if cfg.Upstream.RPCURL == "" {
		return fmt.Errorf("upstream.rpcUrl is required")
	}

	if cfg.Port < 1 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("logLevel must be one of: debug, info, warn, error")
	}

	if cfg.RequestTimeout < 0 {
		return fmt.Errorf("requestTimeout must be non-negative")
	}

	if cfg.MaxBodySize < 0 {
		return fmt.Errorf("maxBodySize must be non-negative")
	}

	// Validate cache config if provided
	if cfg.Cache != nil && cfg.Cache.Enabled {
		if cfg.Cache.TTL <= 0 {
			return fmt.Errorf("cache.ttl must be positive when cache is enabled")
		}
		if cfg.Cache.Size <= 0 {
			return fmt.Errorf("cache.size must be positive when cache is enabled")
		}
	}

	return nil
}
