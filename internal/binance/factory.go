package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"binance-pattern-trader/internal/order"
)

// Endpoints are the REST and stream base URLs for one mode and network
type Endpoints struct {
	REST   string
	Stream string
}

// EndpointsFor returns the production or testnet endpoints for mode.
func EndpointsFor(mode order.Mode, testnet bool) Endpoints {
	switch {
	case mode == order.ModeFutures && testnet:
		return Endpoints{REST: FuturesTestnetURL, Stream: FuturesTestnetStreamURL}
	case mode == order.ModeFutures:
		return Endpoints{REST: FuturesBaseURL, Stream: FuturesStreamURL}
	case testnet:
		return Endpoints{REST: SpotTestnetURL, Stream: SpotTestnetStreamURL}
	default:
		return Endpoints{REST: SpotBaseURL, Stream: SpotStreamURL}
	}
}

// ExchangeConfig selects how the exchange is reached
type ExchangeConfig struct {
	APIKey    string
	SecretKey string
	Mode      order.Mode
	Testnet   bool
	// BaseURL overrides the REST endpoint chosen by Mode and Testnet.
	BaseURL string
	// MockMode replaces the exchange with simulated data and fills.
	MockMode bool
	// DryRun fills orders at the quoted price without sending them.
	DryRun        bool
	StreamEnabled bool
	StreamMaxAge  time.Duration
	Symbols       []string
}

// Exchange bundles market data and order routing for one mode
type Exchange struct {
	Market  *Market
	Gateway order.Gateway
	// Stream is nil unless enabled; its Run must be started by the caller.
	Stream *PriceStream
}

type timeSyncer interface {
	SyncTime(ctx context.Context) (time.Duration, error)
}

// NewExchange builds clients for cfg and synchronises the clock for signed requests.
func NewExchange(ctx context.Context, cfg ExchangeConfig, logger zerolog.Logger) (*Exchange, error) {
	log := logger.With().Str("component", "Exchange").Logger()

	if cfg.Mode != order.ModeSpot && cfg.Mode != order.ModeFutures {
		return nil, fmt.Errorf("unsupported trading mode %q", cfg.Mode)
	}

	if cfg.MockMode {
		mock := NewMockClient(time.Now().UnixNano())
		ex := &Exchange{Market: NewMarket(mock, nil)}
		if cfg.Mode == order.ModeFutures {
			ex.Gateway = NewFuturesGateway(mock)
		} else {
			ex.Gateway = NewSpotGateway(mock)
		}
		log.Warn().Str("mode", string(cfg.Mode)).Msg("Using simulated exchange")
		return ex, nil
	}

	if !cfg.DryRun && (cfg.APIKey == "" || cfg.SecretKey == "") {
		return nil, fmt.Errorf("API key and secret are required for live trading")
	}

	endpoints := EndpointsFor(cfg.Mode, cfg.Testnet)
	if cfg.BaseURL != "" {
		endpoints.REST = cfg.BaseURL
	}

	var (
		market  MarketClient
		syncer  timeSyncer
		gateway order.Gateway
	)
	if cfg.Mode == order.ModeFutures {
		c := NewFuturesClient(cfg.APIKey, cfg.SecretKey, endpoints.REST)
		market, syncer, gateway = c, c, NewFuturesGateway(c)
	} else {
		c := NewClient(cfg.APIKey, cfg.SecretKey, endpoints.REST)
		market, syncer, gateway = c, c, NewSpotGateway(c)
	}

	if offset, err := syncer.SyncTime(ctx); err != nil {
		log.Warn().Err(err).Msg("Server time sync failed, using local clock")
	} else {
		log.Info().Dur("offset", offset).Msg("Server time synchronised")
	}

	ex := &Exchange{Gateway: gateway}
	if cfg.StreamEnabled && len(cfg.Symbols) > 0 {
		ex.Stream = NewPriceStream(endpoints.Stream, cfg.Symbols, cfg.StreamMaxAge, logger)
	}
	ex.Market = NewMarket(market, ex.Stream)

	if cfg.DryRun {
		ex.Gateway = order.NewPaperGateway(ex.Market, cfg.Mode)
		log.Warn().Msg("Dry run: orders are simulated at the quoted price")
	}

	log.Info().
		Str("mode", string(cfg.Mode)).
		Bool("testnet", cfg.Testnet).
		Str("rest", endpoints.REST).
		Msg("Exchange client ready")
	return ex, nil
}
