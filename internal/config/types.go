package config

import "time"

// Config represents the main configuration structure
type Config struct {
	Host           string         `json:"host"`
	Port           int            `json:"port"`
	LogLevel       string         `json:"logLevel"`
	MaxBodySize    int64          `json:"maxBodySize"`
	RequestTimeout int            `json:"requestTimeout"` // ms - timeout for upstream RPC calls
	Upstream       UpstreamConfig `json:"upstream"`
	Cache          *CacheConfig   `json:"cache,omitempty"`
	CORS           *CORSConfig    `json:"cors,omitempty"`
}

// UpstreamConfig represents the upstream chain node configuration
type UpstreamConfig struct {
	Name   string `json:"name"`
	RPCURL string `json:"rpcUrl"`
}

// CacheConfig represents cache configuration
type CacheConfig struct {
	Enabled         bool     `json:"enabled"`
	TTL             int      `json:"ttl"`             // ms
	Size            int      `json:"size"`            // number of entries
	DisabledMethods []string `json:"disabledMethods"` // methods to exclude from caching
}

// CORSConfig represents CORS configuration for the browser-facing surface
type CORSConfig struct {
	Enabled        bool     `json:"enabled"`
	AllowedOrigins []string `json:"allowedOrigins"`
}

// Default values
const (
	DefaultHost           = "localhost"
	DefaultPort           = 8080
	DefaultLogLevel       = "info"
	DefaultMaxBodySize    = int64(0) // 0 means no limit
	DefaultRequestTimeout = 10000    // ms
	DefaultUpstreamName   = "starknet"
	DefaultCacheTTL       = 30000 // ms
	DefaultCacheSize      = 1000  // entries
)

// GetRequestTimeoutDuration returns request timeout as time.Duration
func (c *Config) GetRequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Millisecond
}

// IsCacheEnabled returns true if cache is configured and enabled
func (c *Config) IsCacheEnabled() bool {
	return c.Cache != nil && c.Cache.Enabled
}

// IsCORSEnabled returns true if CORS is configured and enabled
func (c *Config) IsCORSEnabled() bool {
	return c.CORS != nil && c.CORS.Enabled
}

// GetAllowedOrigins returns the configured CORS origins, defaulting to any
func (c *Config) GetAllowedOrigins() []string {
	if c.CORS == nil || len(c.CORS.AllowedOrigins) == 0 {
		return []string{"*"}
	}
	return c.CORS.AllowedOrigins
}

// GetTTLDuration returns cache TTL as time.Duration
func (c *CacheConfig) GetTTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Millisecond
}
