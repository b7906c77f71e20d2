package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads an optional TOML configuration file at path, merges it on top
// of the built-in defaults, applies environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			// A missing file is fine; the environment alone can carry the
			// required settings.
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known environment variables and overwrites
// the corresponding Config fields when a variable is set. The four deploy
// variables (SOLANA_RPC_URL, DATABASE_URL, PORT, WS_PORT) keep their short
// historical names; everything else is namespaced under SOLTRACK_*.
func applyEnvOverrides(cfg *Config) {
	// ── Deploy surface ──
	setStr(&cfg.Solana.RPCURL, "SOLANA_RPC_URL")
	setStr(&cfg.Database.URL, "DATABASE_URL")
	setInt(&cfg.Server.Port, "PORT")
	setInt(&cfg.Push.Port, "WS_PORT")

	// ── Solana ──
	setInt(&cfg.Solana.PollIntervalSeconds, "SOLTRACK_POLL_INTERVAL_SECONDS")
	setInt(&cfg.Solana.SignatureLimit, "SOLTRACK_SIGNATURE_LIMIT")
	setInt(&cfg.Solana.SeedSignatureLimit, "SOLTRACK_SEED_SIGNATURE_LIMIT")
	setInt(&cfg.Solana.MaxInflightRequests, "SOLTRACK_MAX_INFLIGHT_REQUESTS")

	// ── Database ──
	setInt(&cfg.Database.PoolMaxConns, "SOLTRACK_DB_POOL_MAX_CONNS")
	setInt(&cfg.Database.PoolMinConns, "SOLTRACK_DB_POOL_MIN_CONNS")
	setBool(&cfg.Database.RunMigrations, "SOLTRACK_DB_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "SOLTRACK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "SOLTRACK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "SOLTRACK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "SOLTRACK_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "SOLTRACK_REDIS_MAX_RETRIES")
	setInt(&cfg.Redis.TTLMinutes, "SOLTRACK_REDIS_TTL_MINUTES")

	// ── Server ──
	setStringSlice(&cfg.Server.CORSOrigins, "SOLTRACK_SERVER_CORS_ORIGINS")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "SOLTRACK_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "SOLTRACK_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "SOLTRACK_NOTIFY_DISCORD_WEBHOOK_URL")
	setFloat64(&cfg.Notify.MinTradeSol, "SOLTRACK_NOTIFY_MIN_TRADE_SOL")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "SOLTRACK_ARCHIVE_ENABLED")
	setInt(&cfg.Archive.RetentionDays, "SOLTRACK_ARCHIVE_RETENTION_DAYS")
	setStr(&cfg.Archive.S3.Endpoint, "SOLTRACK_ARCHIVE_S3_ENDPOINT")
	setStr(&cfg.Archive.S3.Region, "SOLTRACK_ARCHIVE_S3_REGION")
	setStr(&cfg.Archive.S3.Bucket, "SOLTRACK_ARCHIVE_S3_BUCKET")
	setStr(&cfg.Archive.S3.AccessKey, "SOLTRACK_ARCHIVE_S3_ACCESS_KEY")
	setStr(&cfg.Archive.S3.SecretKey, "SOLTRACK_ARCHIVE_S3_SECRET_KEY")
	setBool(&cfg.Archive.S3.ForcePathStyle, "SOLTRACK_ARCHIVE_S3_FORCE_PATH_STYLE")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "SOLTRACK_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
