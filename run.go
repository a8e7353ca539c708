package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"binance-pattern-trader/config"
	"binance-pattern-trader/internal/api"
	"binance-pattern-trader/internal/auth"
	"binance-pattern-trader/internal/binance"
	"binance-pattern-trader/internal/cache"
	"binance-pattern-trader/internal/ledger"
	"binance-pattern-trader/internal/lifecycle"
	"binance-pattern-trader/internal/logging"
	"binance-pattern-trader/internal/monitor"
	"binance-pattern-trader/internal/notification"
	"binance-pattern-trader/internal/order"
	"binance-pattern-trader/internal/patterns"
	"binance-pattern-trader/internal/position"
	"binance-pattern-trader/internal/vault"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the trading loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			logger, closer, err := logging.New(logging.Config{
				Level:       cfg.LoggingConfig.Level,
				Output:      cfg.LoggingConfig.Output,
				JSONFormat:  cfg.LoggingConfig.JSONFormat,
				IncludeFile: cfg.LoggingConfig.IncludeFile,
				Component:   "main",
			})
			if err != nil {
				return err
			}
			defer closer.Close()
			logging.SetDefault(logger)

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, logger)
		},
	}
}

// run wires the bot from cfg and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger) error {
	logger.Info().Str("version", version).Str("network", cfg.BinanceConfig.Label()).Msg("Starting pattern bot")

	mode, err := order.ParseMode(cfg.TradingConfig.Mode)
	if err != nil {
		return err
	}

	checks := make(map[string]api.HealthCheck)
	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i].Close(); err != nil {
				logger.Warn().Err(err).Msg("Close failed")
			}
		}
	}()

	// Credentials
	if cfg.VaultConfig.Enabled {
		vc, err := vault.NewClient(cfg.VaultConfig)
		if err != nil {
			return err
		}
		keys, err := vc.GetAPIKey(ctx, cfg.BinanceConfig.TestNet)
		if err != nil {
			return err
		}
		cfg.BinanceConfig.APIKey = keys.APIKey
		cfg.BinanceConfig.SecretKey = keys.SecretKey
		checks["vault"] = vc.Health
		logger.Info().Msg("Binance credentials loaded from Vault")
	}

	// Exchange
	ex, err := binance.NewExchange(ctx, binance.ExchangeConfig{
		APIKey:        cfg.BinanceConfig.APIKey,
		SecretKey:     cfg.BinanceConfig.SecretKey,
		Mode:          mode,
		Testnet:       cfg.BinanceConfig.TestNet,
		BaseURL:       cfg.BinanceConfig.BaseURL,
		MockMode:      cfg.BinanceConfig.MockMode,
		DryRun:        cfg.TradingConfig.DryRun,
		StreamEnabled: cfg.BinanceConfig.StreamEnabled,
		StreamMaxAge:  time.Duration(cfg.BinanceConfig.StreamMaxAge) * time.Second,
		Symbols:       cfg.TradingConfig.Symbols,
	}, logger)
	if err != nil {
		return err
	}
	if ex.Stream != nil {
		go ex.Stream.Run(ctx)
	}

	// Locks and position records
	var (
		guard position.Guard = position.NewMemoryGuard()
		store position.Store
	)
	if cfg.RedisConfig.Enabled {
		cs, err := cache.NewCacheService(ctx, cfg.RedisConfig, logger)
		if err != nil {
			return err
		}
		closers = append(closers, cs)
		guard = position.NewRedisGuard(cs.Client(), lockOwner())
		store = position.NewRedisStore(cs.Client())
		ex.Market.SetLotSizeStore(cache.NewLotSizeCache(cs, string(mode)))
		checks["redis"] = cs.Ping
	} else {
		logger.Warn().Msg("Redis disabled, symbol locks will not survive a restart")
	}
	book := position.NewBook(store, logger)

	trades, err := ledger.Open(ctx, ledger.Config{
		CSVPath:     cfg.LedgerConfig.CSVPath,
		SQLitePath:  cfg.LedgerConfig.SQLitePath,
		PostgresDSN: cfg.LedgerConfig.PostgresDSN,
	})
	if err != nil {
		return err
	}
	closers = append(closers, trades)

	var notifier lifecycle.Notifier
	if cfg.NotificationConfig.Enabled {
		manager := newNotifier(cfg.NotificationConfig, logger)
		defer manager.Wait()
		notifier = manager
	}

	controller := lifecycle.New(lifecycle.Config{
		Symbols:        cfg.TradingConfig.Symbols,
		Notional:       cfg.TradingConfig.TradeValueUSDT,
		TakeProfitPct:  cfg.TradingConfig.TakeProfitPercent,
		StopLossPct:    cfg.TradingConfig.StopLossPercent,
		CandleInterval: cfg.TradingConfig.CandleInterval,
		CandleLimit:    cfg.TradingConfig.CandleLimit,
		TickInterval:   cfg.TradingConfig.TickDuration(),
		Parallel:       cfg.TradingConfig.Parallel,
		Label:          cfg.BinanceConfig.Label(),
	}, lifecycle.Dependencies{
		Market: ex.Market,
		Detector: patterns.NewDetector(patterns.Config{
			DojiThreshold: cfg.PatternConfig.DojiThreshold,
			Relative:      cfg.PatternConfig.DojiRelative,
		}),
		Gateway: ex.Gateway,
		Guard:   guard,
		Book:    book,
		Monitor: monitor.New(ex.Market, ex.Gateway, monitor.Config{
			PollInterval:    time.Duration(cfg.MonitorConfig.PollInterval) * time.Second,
			CloseAttempts:   cfg.MonitorConfig.CloseAttempts,
			CloseRetryDelay: time.Duration(cfg.MonitorConfig.CloseRetryDelay) * time.Millisecond,
		}, logger),
		Ledger:   trades,
		Notifier: notifier,
		Hooks:    lifecycle.PrometheusHooks{},
	}, logger)

	var server *api.Server
	if cfg.ServerConfig.Enabled {
		var jwtManager *auth.JWTManager
		if cfg.AuthConfig.Enabled {
			jwtManager = auth.NewJWTManager(cfg.AuthConfig.JWTSecret, cfg.AuthConfig.TokenDuration, cfg.AuthConfig.Issuer)
		}
		server = api.NewServer(api.ServerConfig{
			Port:           cfg.ServerConfig.Port,
			Host:           cfg.ServerConfig.Host,
			AllowedOrigins: splitOrigins(cfg.ServerConfig.AllowedOrigins),
			ReadTimeout:    time.Duration(cfg.ServerConfig.ReadTimeout) * time.Second,
			WriteTimeout:   time.Duration(cfg.ServerConfig.WriteTimeout) * time.Second,
			ProductionMode: !cfg.BinanceConfig.TestNet && !cfg.BinanceConfig.MockMode,
		}, controller, jwtManager, checks, logger)

		go func() {
			if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("API server stopped")
			}
		}()
	}

	if err := controller.Run(ctx); err != nil {
		return err
	}
	logger.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.TradingConfig.ShutdownDuration())
	defer cancel()

	if server != nil {
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("API server shutdown failed")
		}
	}
	if err := controller.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Monitors still running at shutdown")
		return err
	}

	logger.Info().Msg("Pattern bot stopped")
	return nil
}

func newNotifier(cfg config.NotificationConfig, logger zerolog.Logger) *notification.Manager {
	manager := notification.NewManager(logger)
	if cfg.Telegram.Enabled {
		manager.AddNotifier(notification.NewTelegramNotifier(notification.TelegramConfig{
			BotToken: cfg.Telegram.BotToken,
			ChatID:   cfg.Telegram.ChatID,
			Enabled:  cfg.Telegram.Enabled,
		}))
	}
	if cfg.Discord.Enabled {
		manager.AddNotifier(notification.NewDiscordNotifier(notification.DiscordConfig{
			WebhookURL: cfg.Discord.WebhookURL,
			Enabled:    cfg.Discord.Enabled,
		}))
	}
	logger.Info().Strs("notifiers", manager.Enabled()).Msg("Notifications enabled")
	return manager
}

// lockOwner identifies this process in Redis lock values.
func lockOwner() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	return fmt.Sprintf("%s:%d", host, os.Getpid())
}

func splitOrigins(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}
