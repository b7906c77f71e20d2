// Package config defines the top-level configuration for the wallet tracker
// and provides validation helpers.
package config

import (
	"fmt"

	"github.com/alanyoungcy/soltrack/internal/domain"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by environment variables.
type Config struct {
	Solana   SolanaConfig   `toml:"solana"`
	Database DatabaseConfig `toml:"database"`
	Redis    RedisConfig    `toml:"redis"`
	Push     PushConfig     `toml:"push"`
	Server   ServerConfig   `toml:"server"`
	Notify   NotifyConfig   `toml:"notify"`
	Archive  ArchiveConfig  `toml:"archive"`
	LogLevel string         `toml:"log_level"`
}

// SolanaConfig holds RPC endpoint and monitor tuning parameters.
type SolanaConfig struct {
	RPCURL string `toml:"rpc_url"`
	// PollIntervalSeconds is the monitor cycle period.
	PollIntervalSeconds int `toml:"poll_interval_seconds"`
	// SignatureLimit is how many recent signatures are requested per wallet
	// per cycle.
	SignatureLimit int `toml:"signature_limit"`
	// SeedSignatureLimit is how many persisted signatures are preloaded into
	// the dedupe set when a wallet becomes live.
	SeedSignatureLimit int `toml:"seed_signature_limit"`
	// MaxInflightRequests caps concurrent RPC calls.
	MaxInflightRequests int `toml:"max_inflight_requests"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	URL           string `toml:"url"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds optional Redis connection parameters for the token
// metadata cache. An empty Addr disables the Redis layer.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TTLMinutes int    `toml:"ttl_minutes"`
}

// PushConfig holds the WebSocket push hub parameters.
type PushConfig struct {
	Port int `toml:"port"`
}

// ServerConfig holds the read-only HTTP API parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// NotifyConfig holds optional trade alert parameters.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
	// MinTradeSol is the minimum absolute SOL delta for a buy/sell to
	// trigger an alert. Zero disables alerts entirely.
	MinTradeSol float64 `toml:"min_trade_sol"`
}

// ArchiveConfig holds cold-storage archival parameters. Archival runs only
// when Enabled is set; Validate rejects an enabled archive whose S3 bucket or
// region is missing.
type ArchiveConfig struct {
	Enabled       bool     `toml:"enabled"`
	RetentionDays int      `toml:"retention_days"`
	S3            S3Config `toml:"s3"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// Defaults returns a Config pre-populated with sane defaults. Load merges
// the TOML file and environment on top of this.
func Defaults() Config {
	return Config{
		Solana: SolanaConfig{
			PollIntervalSeconds: 5,
			SignatureLimit:      15,
			SeedSignatureLimit:  20,
			MaxInflightRequests: 8,
		},
		Database: DatabaseConfig{
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			PoolSize:   10,
			MaxRetries: 3,
			TTLMinutes: 10,
		},
		Push: PushConfig{
			Port: 8080,
		},
		Server: ServerConfig{
			Port: 3000,
		},
		Archive: ArchiveConfig{
			RetentionDays: 30,
		},
		LogLevel: "info",
	}
}

// Validate checks that every required field is present and consistent.
// Missing required environment-backed fields abort startup.
func (c *Config) Validate() error {
	if c.Solana.RPCURL == "" {
		return fmt.Errorf("config: SOLANA_RPC_URL: %w", domain.ErrConfigMissing)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("config: DATABASE_URL: %w", domain.ErrConfigMissing)
	}
	if c.Solana.PollIntervalSeconds <= 0 {
		return fmt.Errorf("config: poll_interval_seconds must be positive")
	}
	if c.Solana.SignatureLimit <= 0 {
		return fmt.Errorf("config: signature_limit must be positive")
	}
	if c.Push.Port <= 0 || c.Push.Port > 65535 {
		return fmt.Errorf("config: invalid push port %d", c.Push.Port)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid server port %d", c.Server.Port)
	}
	if c.Archive.Enabled {
		if c.Archive.S3.Bucket == "" || c.Archive.S3.Region == "" {
			return fmt.Errorf("config: archive enabled but s3 bucket/region missing")
		}
		if c.Archive.RetentionDays < 1 {
			return fmt.Errorf("config: archive retention_days must be at least 1")
		}
	}
	return nil
}
