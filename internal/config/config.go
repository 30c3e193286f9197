package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/dexmeta/meta-swap-api/internal/models"
)

// NativeTokenAddress mirrors the wire-level sentinel for configuration
// defaults.
const NativeTokenAddress = models.NativeTokenAddress

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Web3    Web3Config
	Token   TokenAPIConfig
	Cache   CacheConfig
	Logging LoggingConfig

	// NativeToken is the native-token sentinel address, lowercased.
	NativeToken string
	// ProviderTimeout is the default deadline for one upstream provider call.
	ProviderTimeout time.Duration
	// Partner is the affiliate tag some aggregators require.
	Partner string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string
	Port int
}

// Web3Config holds JSON-RPC access configuration. Node URLs are built as
// {URL}/{chainId}/{Key}.
type Web3Config struct {
	URL     string
	Key     string
	Timeout time.Duration
}

// TokenAPIConfig holds the token-metadata service configuration
type TokenAPIConfig struct {
	Domain string
	Key    string
}

// CacheConfig selects and configures the cache backend
type CacheConfig struct {
	Backend  string // "memory" or "redis"
	Host     string
	Port     int
	DB       int
	Password string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8000)
	v.SetDefault("WEB3_URL", "https://rpc-proxy.example.org")
	v.SetDefault("WEB3_KEY", "")
	v.SetDefault("WEB3_TIMEOUT", 10)
	v.SetDefault("TOKEN_API_DOMAIN", "https://tokens-api.example.org")
	v.SetDefault("TOKEN_API_KEY", "")
	v.SetDefault("CACHE", "memory")
	v.SetDefault("CACHE_HOST", "127.0.0.1")
	v.SetDefault("CACHE_PORT", 6379)
	v.SetDefault("CACHE_DB", 0)
	v.SetDefault("CACHE_PASSWORD", "")
	v.SetDefault("LOG_LEVEL", "INFO")
	v.SetDefault("NATIVE_TOKEN_ADDRESS", NativeTokenAddress)
	v.SetDefault("PROVIDER_TIMEOUT", 7)
	v.SetDefault("PARTNER", "meta-swap-api")

	cfg := &Config{
		Server: ServerConfig{
			Host: v.GetString("SERVER_HOST"),
			Port: v.GetInt("SERVER_PORT"),
		},
		Web3: Web3Config{
			URL:     v.GetString("WEB3_URL"),
			Key:     v.GetString("WEB3_KEY"),
			Timeout: time.Duration(v.GetInt("WEB3_TIMEOUT")) * time.Second,
		},
		Token: TokenAPIConfig{
			Domain: v.GetString("TOKEN_API_DOMAIN"),
			Key:    v.GetString("TOKEN_API_KEY"),
		},
		Cache: CacheConfig{
			Backend:  v.GetString("CACHE"),
			Host:     v.GetString("CACHE_HOST"),
			Port:     v.GetInt("CACHE_PORT"),
			DB:       v.GetInt("CACHE_DB"),
			Password: v.GetString("CACHE_PASSWORD"),
		},
		Logging: LoggingConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
		NativeToken:     strings.ToLower(v.GetString("NATIVE_TOKEN_ADDRESS")),
		ProviderTimeout: time.Duration(v.GetInt("PROVIDER_TIMEOUT")) * time.Second,
		Partner:         v.GetString("PARTNER"),
	}

	if cfg.Cache.Backend != "memory" && cfg.Cache.Backend != "redis" {
		return nil, fmt.Errorf("CACHE must be 'memory' or 'redis', got %q", cfg.Cache.Backend)
	}
	if cfg.Web3.URL == "" {
		return nil, fmt.Errorf("WEB3_URL is required")
	}

	return cfg, nil
}

// NodeURL builds the JSON-RPC endpoint for a chain
func (c *Config) NodeURL(chainID uint64) string {
	return fmt.Sprintf("%s/%d/%s", strings.TrimRight(c.Web3.URL, "/"), chainID, c.Web3.Key)
}
