package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

const (
	DefaultRPCURL         = "https://api.mainnet-beta.solana.com"
	DefaultDevnetRPCURL   = "https://api.devnet.solana.com"
	DefaultJupiterBaseURL = "https://quote-api.jup.ag/v6"
	DefaultTokenSearchURL = "https://lite-api.jup.ag/ultra/v1/search"
)

// Config holds the application configuration
type Config struct {
	RPCURL         string
	DevnetRPCURL   string
	JupiterBaseURL string
	TokenSearchURL string

	SlippageBps   int
	QuoteDebounce time.Duration
	HTTPTimeout   time.Duration

	StatePath     string
	Commitment    string
	SkipPreflight bool
	PrivateKey    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TokenCacheTTL time.Duration

	LogLevel string
}

var globalConfig *Config

// SetDefaults registers every default on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault("rpc_url", DefaultRPCURL)
	v.SetDefault("devnet_rpc_url", DefaultDevnetRPCURL)
	v.SetDefault("jupiter_base_url", DefaultJupiterBaseURL)
	v.SetDefault("token_search_url", DefaultTokenSearchURL)
	v.SetDefault("slippage_bps", 50)
	v.SetDefault("quote_debounce_ms", 600)
	v.SetDefault("http_timeout", "20s")
	v.SetDefault("state_path", "")
	v.SetDefault("commitment", "confirmed")
	v.SetDefault("skip_preflight", false)
	v.SetDefault("redis_db", 0)
	v.SetDefault("token_cache_ttl", "24h")
	v.SetDefault("log_level", "info")
}

// Load reads configuration from environment variables and config file
func Load() (*Config, error) {
	v := viper.GetViper()
	v.SetConfigName(".sol-swap")
	v.SetConfigType("yaml")
	v.AddConfigPath("$HOME")
	v.AddConfigPath(".")

	SetDefaults(v)

	// Read from environment variables
	v.SetEnvPrefix("SOL_SWAP")
	v.AutomaticEnv()

	// Config file is optional, a broken one is not
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg, err := FromViper(v)
	if err != nil {
		return nil, err
	}

	globalConfig = cfg
	return cfg, nil
}

// FromViper builds a validated Config from v
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		RPCURL:         v.GetString("rpc_url"),
		DevnetRPCURL:   v.GetString("devnet_rpc_url"),
		JupiterBaseURL: v.GetString("jupiter_base_url"),
		TokenSearchURL: v.GetString("token_search_url"),
		SlippageBps:    v.GetInt("slippage_bps"),
		QuoteDebounce:  time.Duration(v.GetInt("quote_debounce_ms")) * time.Millisecond,
		HTTPTimeout:    v.GetDuration("http_timeout"),
		StatePath:      v.GetString("state_path"),
		Commitment:     v.GetString("commitment"),
		SkipPreflight:  v.GetBool("skip_preflight"),
		PrivateKey:     v.GetString("private_key"),
		RedisAddr:      v.GetString("redis_addr"),
		RedisPassword:  v.GetString("redis_password"),
		RedisDB:        v.GetInt("redis_db"),
		TokenCacheTTL:  v.GetDuration("token_cache_ttl"),
		LogLevel:       v.GetString("log_level"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.SlippageBps < 0 || c.SlippageBps > 10000 {
		return fmt.Errorf("slippage_bps must be between 0 and 10000, got %d", c.SlippageBps)
	}
	if c.QuoteDebounce <= 0 {
		return fmt.Errorf("quote_debounce_ms must be greater than 0")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http_timeout must be greater than 0")
	}
	if c.RPCURL == "" || c.DevnetRPCURL == "" {
		return fmt.Errorf("rpc_url and devnet_rpc_url are required")
	}
	return nil
}

// Endpoint returns the RPC URL for the selected cluster
func (c *Config) Endpoint(devnet bool) string {
	if devnet {
		return c.DevnetRPCURL
	}
	return c.RPCURL
}

// HasWallet reports whether a signing key is configured
func (c *Config) HasWallet() bool {
	return c.PrivateKey != ""
}

// Get returns the global configuration
func Get() *Config {
	if globalConfig == nil {
		cfg, err := Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
			os.Exit(1)
		}
		return cfg
	}
	return globalConfig
}

// Set updates the global configuration
func Set(cfg *Config) {
	globalConfig = cfg
}
