package binance

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Market stream endpoints
const (
	SpotStreamURL           = "wss://stream.binance.com:9443"
	SpotTestnetStreamURL    = "wss://stream.testnet.binance.vision"
	FuturesStreamURL        = "wss://fstream.binance.com"
	FuturesTestnetStreamURL = "wss://stream.binancefuture.com"
)

// DefaultStreamMaxAge is how old a streamed price may be before REST is used instead
const DefaultStreamMaxAge = 5 * time.Second

type priceTick struct {
	price float64
	at    time.Time
}

// PriceStream caches last prices from the combined miniTicker stream
type PriceStream struct {
	baseURL        string
	symbols        []string
	maxAge         time.Duration
	reconnectDelay time.Duration
	logger         zerolog.Logger

	mu     sync.RWMutex
	prices map[string]priceTick
	conn   *websocket.Conn
}

// NewPriceStream creates a stream for symbols. Run must be called to connect.
func NewPriceStream(baseURL string, symbols []string, maxAge time.Duration, logger zerolog.Logger) *PriceStream {
	if maxAge <= 0 {
		maxAge = DefaultStreamMaxAge
	}
	return &PriceStream{
		baseURL:        strings.TrimRight(baseURL, "/"),
		symbols:        symbols,
		maxAge:         maxAge,
		reconnectDelay: 3 * time.Second,
		logger:         logger.With().Str("component", "PriceStream").Logger(),
		prices:         make(map[string]priceTick),
	}
}

// URL returns the combined stream URL.
func (s *PriceStream) URL() string {
	streams := make([]string, len(s.symbols))
	for i, sym := range s.symbols {
		streams[i] = strings.ToLower(sym) + "@miniTicker"
	}
	return s.baseURL + "/stream?streams=" + strings.Join(streams, "/")
}

// Price returns the streamed price for symbol if it is fresh.
func (s *PriceStream) Price(symbol string) (float64, bool) {
	s.mu.RLock()
	tick, ok := s.prices[symbol]
	s.mu.RUnlock()
	if !ok || time.Since(tick.at) > s.maxAge {
		return 0, false
	}
	return tick.price, true
}

// Run connects and reconnects until ctx is done.
func (s *PriceStream) Run(ctx context.Context) {
	go func() {
		<-ctx.Done()
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.mu.Unlock()
	}()

	for {
		if ctx.Err() != nil {
			return
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.URL(), nil)
		if err != nil {
			s.logger.Warn().Err(err).Dur("retry_in", s.reconnectDelay).Msg("Price stream connection failed")
			if !wait(ctx, s.reconnectDelay) {
				return
			}
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		s.logger.Info().Int("symbols", len(s.symbols)).Msg("Price stream connected")

		s.readLoop(conn)
		conn.Close()

		if ctx.Err() != nil {
			return
		}
		s.logger.Warn().Dur("retry_in", s.reconnectDelay).Msg("Price stream lost, reconnecting")
		if !wait(ctx, s.reconnectDelay) {
			return
		}
	}
}

func (s *PriceStream) readLoop(conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().Err(err).Msg("Price stream read error")
			}
			return
		}
		s.handleMessage(message)
	}
}

func (s *PriceStream) handleMessage(message []byte) {
	var envelope struct {
		Stream string `json:"stream"`
		Data   struct {
			EventType string `json:"e"`
			EventTime int64  `json:"E"`
			Symbol    string `json:"s"`
			Close     string `json:"c"`
		} `json:"data"`
	}
	if err := json.Unmarshal(message, &envelope); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to parse stream message")
		return
	}
	if envelope.Data.EventType != "24hrMiniTicker" || envelope.Data.Symbol == "" {
		return
	}
	price := parseFloat(envelope.Data.Close)
	if price <= 0 {
		return
	}

	s.mu.Lock()
	s.prices[envelope.Data.Symbol] = priceTick{price: price, at: time.Now()}
	s.mu.Unlock()
}

func wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
