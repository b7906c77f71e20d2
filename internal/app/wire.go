package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	s3blob "github.com/alanyoungcy/soltrack/internal/blob/s3"
	"github.com/alanyoungcy/soltrack/internal/bus"
	redisc "github.com/alanyoungcy/soltrack/internal/cache/redis"
	solchain "github.com/alanyoungcy/soltrack/internal/chain/solana"
	"github.com/alanyoungcy/soltrack/internal/clock"
	"github.com/alanyoungcy/soltrack/internal/config"
	"github.com/alanyoungcy/soltrack/internal/domain"
	"github.com/alanyoungcy/soltrack/internal/monitor"
	"github.com/alanyoungcy/soltrack/internal/notify"
	"github.com/alanyoungcy/soltrack/internal/pnl"
	"github.com/alanyoungcy/soltrack/internal/push"
	"github.com/alanyoungcy/soltrack/internal/server"
	"github.com/alanyoungcy/soltrack/internal/server/handler"
	"github.com/alanyoungcy/soltrack/internal/store/postgres"
	"github.com/alanyoungcy/soltrack/internal/tokenmeta"
)

// Dependencies bundles everything the run loop needs. It is constructed by
// Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Users  domain.UserStore
	Trades domain.TradeStore
	Pnls   domain.PnlStore
	Tokens domain.TokenStore

	Chain     domain.ChainClient
	TokenMeta *tokenmeta.Service
	Bus       *bus.Bus
	Aggreg    *pnl.Aggregator
	Monitor   *monitor.Monitor
	Hub       *push.Hub
	API       *server.Server
	Alerter   *notify.TradeAlerter
	Archiver  *s3blob.Archiver // nil when archival is disabled
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}
	clk := clock.System{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		URL:      cfg.Database.URL,
		MaxConns: cfg.Database.PoolMaxConns,
		MinConns: cfg.Database.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Database.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Users = postgres.NewUserStore(pool)
	deps.Trades = postgres.NewTradeStore(pool)
	deps.Pnls = postgres.NewPnlStore(pool)
	deps.Tokens = postgres.NewTokenStore(pool)

	// --- Redis token cache (optional) ---
	var tokenCache tokenmeta.MetaCache
	if cfg.Redis.Addr != "" {
		redisClient, err := redisc.New(ctx, redisc.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		tokenCache = redisc.NewTokenCache(redisClient,
			time.Duration(cfg.Redis.TTLMinutes)*time.Minute)
	}

	// --- Chain client + token metadata ---
	chainClient := solchain.NewClient(solchain.ClientConfig{
		RPCURL:      cfg.Solana.RPCURL,
		MaxInflight: cfg.Solana.MaxInflightRequests,
	})
	deps.Chain = chainClient

	deps.TokenMeta = tokenmeta.New(deps.Tokens,
		solchain.NewRegistrySource(chainClient), tokenCache, logger)

	// --- Event bus, PnL aggregator, monitor ---
	deps.Bus = bus.New(logger)
	closers = append(closers, deps.Bus.Close)

	deps.Aggreg = pnl.New(deps.Pnls, deps.Bus, clk, logger)

	deps.Monitor = monitor.New(
		deps.Chain, deps.Users, deps.Trades, deps.Aggreg, deps.Bus, clk,
		monitor.Config{
			PollInterval:       time.Duration(cfg.Solana.PollIntervalSeconds) * time.Second,
			SignatureLimit:     cfg.Solana.SignatureLimit,
			SeedSignatureLimit: cfg.Solana.SeedSignatureLimit,
		},
		logger,
	)

	// --- Push hub ---
	assembler := push.NewAssembler(deps.Users, deps.Trades, deps.Pnls, deps.TokenMeta, clk)
	deps.Hub = push.NewHub(assembler, cfg.Push.Port, logger)

	// --- HTTP API ---
	deps.API = server.NewServer(
		server.Config{Port: cfg.Server.Port, CORSOrigins: cfg.Server.CORSOrigins},
		server.Handlers{
			Health: handler.NewHealthHandler(),
			Users:  handler.NewUserHandler(deps.Users, deps.Trades, deps.Pnls, deps.Chain, logger),
		},
		logger,
	)

	// --- Trade alerts ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Alerter = notify.NewTradeAlerter(
		notify.NewNotifier(senders, logger), cfg.Notify.MinTradeSol)

	// --- Cold-storage archival (optional) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Archive.S3.Endpoint,
			Region:         cfg.Archive.S3.Region,
			Bucket:         cfg.Archive.S3.Bucket,
			AccessKey:      cfg.Archive.S3.AccessKey,
			SecretKey:      cfg.Archive.S3.SecretKey,
			ForcePathStyle: cfg.Archive.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client), deps.Trades,
			cfg.Archive.RetentionDays, clk, logger)
	}

	return deps, cleanup, nil
}
