package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultSymbol            = "DOGEUSDT"
	DefaultTradeValueUSDT    = 10.0
	DefaultTakeProfitPercent = 0.5
	DefaultStopLossPercent   = 0.3
)

type Config struct {
	BinanceConfig      BinanceConfig      `json:"binance" yaml:"binance"`
	TradingConfig      TradingConfig      `json:"trading" yaml:"trading"`
	PatternConfig      PatternConfig      `json:"pattern" yaml:"pattern"`
	MonitorConfig      MonitorConfig      `json:"monitor" yaml:"monitor"`
	LedgerConfig       LedgerConfig       `json:"ledger" yaml:"ledger"`
	NotificationConfig NotificationConfig `json:"notification" yaml:"notification"`
	LoggingConfig      LoggingConfig      `json:"logging" yaml:"logging"`
	ServerConfig       ServerConfig       `json:"server" yaml:"server"`
	AuthConfig         AuthConfig         `json:"auth" yaml:"auth"`
	VaultConfig        VaultConfig        `json:"vault" yaml:"vault"`
	RedisConfig        RedisConfig        `json:"redis" yaml:"redis"`
}

type BinanceConfig struct {
	APIKey        string `json:"api_key" yaml:"api_key"`
	SecretKey     string `json:"secret_key" yaml:"secret_key"`
	BaseURL       string `json:"base_url" yaml:"base_url"` // Overrides the spot or futures endpoint
	TestNet       bool   `json:"testnet" yaml:"testnet"`
	MockMode      bool   `json:"mock_mode" yaml:"mock_mode"`           // Use simulated market data
	StreamEnabled bool   `json:"stream_enabled" yaml:"stream_enabled"` // Quote prices from the websocket ticker
	StreamMaxAge  int    `json:"stream_max_age" yaml:"stream_max_age"` // Seconds before a streamed price is stale
}

type TradingConfig struct {
	Symbols           []string `json:"symbols" yaml:"symbols"`
	Mode              string   `json:"mode" yaml:"mode"` // spot or futures
	TradeValueUSDT    float64  `json:"trade_value_usdt" yaml:"trade_value_usdt"`
	TakeProfitPercent float64  `json:"take_profit_percent" yaml:"take_profit_percent"`
	StopLossPercent   float64  `json:"stop_loss_percent" yaml:"stop_loss_percent"`
	DryRun            bool     `json:"dry_run" yaml:"dry_run"` // Fill orders at the current price without sending them
	CandleInterval    string   `json:"candle_interval" yaml:"candle_interval"`
	CandleLimit       int      `json:"candle_limit" yaml:"candle_limit"`
	TickInterval      int      `json:"tick_interval" yaml:"tick_interval"` // Seconds between evaluations
	Parallel          bool     `json:"parallel" yaml:"parallel"`
	ShutdownTimeout   int      `json:"shutdown_timeout" yaml:"shutdown_timeout"` // Seconds to wait for open monitors
}

// PatternConfig tunes the doji rule
type PatternConfig struct {
	DojiThreshold float64 `json:"doji_threshold" yaml:"doji_threshold"`
	DojiRelative  bool    `json:"doji_relative" yaml:"doji_relative"` // Threshold is a fraction of the open price
}

type MonitorConfig struct {
	PollInterval    int `json:"poll_interval" yaml:"poll_interval"` // Seconds
	CloseAttempts   int `json:"close_attempts" yaml:"close_attempts"`
	CloseRetryDelay int `json:"close_retry_delay" yaml:"close_retry_delay"` // Milliseconds
}

type LedgerConfig struct {
	CSVPath     string `json:"csv_path" yaml:"csv_path"`
	SQLitePath  string `json:"sqlite_path" yaml:"sqlite_path"`
	PostgresDSN string `json:"postgres_dsn" yaml:"postgres_dsn"`
}

type NotificationConfig struct {
	Enabled  bool           `json:"enabled" yaml:"enabled"`
	Telegram TelegramConfig `json:"telegram" yaml:"telegram"`
	Discord  DiscordConfig  `json:"discord" yaml:"discord"`
}

type TelegramConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	BotToken string `json:"bot_token" yaml:"bot_token"`
	ChatID   string `json:"chat_id" yaml:"chat_id"`
}

type DiscordConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
}

type LoggingConfig struct {
	Level       string `json:"level" yaml:"level"`               // DEBUG, INFO, WARN, ERROR
	Output      string `json:"output" yaml:"output"`             // stdout, stderr, or file path
	JSONFormat  bool   `json:"json_format" yaml:"json_format"`   // Output as JSON
	IncludeFile bool   `json:"include_file" yaml:"include_file"` // Include file and line number
}

// ServerConfig holds the operator HTTP API configuration
type ServerConfig struct {
	Enabled         bool   `json:"enabled" yaml:"enabled"`
	Port            int    `json:"port" yaml:"port"`
	Host            string `json:"host" yaml:"host"`
	AllowedOrigins  string `json:"allowed_origins" yaml:"allowed_origins"` // CORS allowed origins
	ReadTimeout     int    `json:"read_timeout" yaml:"read_timeout"`       // Seconds
	WriteTimeout    int    `json:"write_timeout" yaml:"write_timeout"`     // Seconds
	ShutdownTimeout int    `json:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// AuthConfig holds operator token configuration
type AuthConfig struct {
	Enabled       bool          `json:"enabled" yaml:"enabled"`
	JWTSecret     string        `json:"jwt_secret" yaml:"jwt_secret"`
	TokenDuration time.Duration `json:"token_duration" yaml:"token_duration"`
	Issuer        string        `json:"issuer" yaml:"issuer"`
}

// VaultConfig holds HashiCorp Vault configuration
type VaultConfig struct {
	Enabled    bool   `json:"enabled" yaml:"enabled"`
	Address    string `json:"address" yaml:"address"`
	Token      string `json:"token" yaml:"token"`
	MountPath  string `json:"mount_path" yaml:"mount_path"`   // KV secrets engine mount path
	SecretPath string `json:"secret_path" yaml:"secret_path"` // Path of the Binance credentials
}

// RedisConfig holds Redis configuration for symbol locks and position records
type RedisConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Address  string `json:"address" yaml:"address"`
	Password string `json:"password" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	PoolSize int    `json:"pool_size" yaml:"pool_size"`
}

// Load reads path (JSON, or YAML by extension), then .env, then environment overrides.
// A missing file is not an error; the defaults and environment are used instead.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		loaded, err := loadFromFile(path)
		switch {
		case err == nil:
			cfg = loaded
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the config
func applyEnvOverrides(cfg *Config) {
	// Binance config
	cfg.BinanceConfig.APIKey = getEnvOrDefault("BINANCE_API_KEY", cfg.BinanceConfig.APIKey)
	cfg.BinanceConfig.SecretKey = getEnvOrDefault("BINANCE_SECRET_KEY", cfg.BinanceConfig.SecretKey)
	cfg.BinanceConfig.BaseURL = getEnvOrDefault("BINANCE_BASE_URL", cfg.BinanceConfig.BaseURL)
	cfg.BinanceConfig.TestNet = getEnvBoolOrDefault("USE_TESTNET", cfg.BinanceConfig.TestNet)
	cfg.BinanceConfig.MockMode = getEnvBoolOrDefault("MOCK_MODE", cfg.BinanceConfig.MockMode)
	cfg.BinanceConfig.StreamEnabled = getEnvBoolOrDefault("BINANCE_STREAM_ENABLED", cfg.BinanceConfig.StreamEnabled)

	// Trading config
	if symbols := os.Getenv("SYMBOLS"); symbols != "" {
		cfg.TradingConfig.Symbols = splitSymbols(symbols)
	}
	cfg.TradingConfig.Mode = getEnvOrDefault("TRADING_MODE", cfg.TradingConfig.Mode)
	cfg.TradingConfig.TradeValueUSDT = getEnvFloatOrDefault("TRADE_VALUE_USDT", cfg.TradingConfig.TradeValueUSDT)
	cfg.TradingConfig.TakeProfitPercent = getEnvFloatOrDefault("TAKE_PROFIT_PERCENT", cfg.TradingConfig.TakeProfitPercent)
	cfg.TradingConfig.StopLossPercent = getEnvFloatOrDefault("STOP_LOSS_PERCENT", cfg.TradingConfig.StopLossPercent)
	cfg.TradingConfig.DryRun = getEnvBoolOrDefault("TRADING_DRY_RUN", cfg.TradingConfig.DryRun)
	cfg.TradingConfig.CandleInterval = getEnvOrDefault("CANDLE_INTERVAL", cfg.TradingConfig.CandleInterval)
	cfg.TradingConfig.TickInterval = getEnvIntOrDefault("TICK_INTERVAL", cfg.TradingConfig.TickInterval)
	cfg.TradingConfig.Parallel = getEnvBoolOrDefault("PARALLEL_SYMBOLS", cfg.TradingConfig.Parallel)

	// Ledger config
	cfg.LedgerConfig.CSVPath = getEnvOrDefault("LEDGER_CSV_PATH", cfg.LedgerConfig.CSVPath)
	cfg.LedgerConfig.SQLitePath = getEnvOrDefault("LEDGER_SQLITE_PATH", cfg.LedgerConfig.SQLitePath)
	cfg.LedgerConfig.PostgresDSN = getEnvOrDefault("DATABASE_URL", cfg.LedgerConfig.PostgresDSN)

	// Notification config. A bot token turns Telegram on.
	cfg.NotificationConfig.Telegram.BotToken = getEnvOrDefault("TELEGRAM_BOT_TOKEN", cfg.NotificationConfig.Telegram.BotToken)
	cfg.NotificationConfig.Telegram.ChatID = getEnvOrDefault("TELEGRAM_CHAT_ID", cfg.NotificationConfig.Telegram.ChatID)
	if os.Getenv("TELEGRAM_BOT_TOKEN") != "" && os.Getenv("TELEGRAM_CHAT_ID") != "" {
		cfg.NotificationConfig.Enabled = true
		cfg.NotificationConfig.Telegram.Enabled = true
	}
	cfg.NotificationConfig.Discord.WebhookURL = getEnvOrDefault("DISCORD_WEBHOOK_URL", cfg.NotificationConfig.Discord.WebhookURL)
	if os.Getenv("DISCORD_WEBHOOK_URL") != "" {
		cfg.NotificationConfig.Enabled = true
		cfg.NotificationConfig.Discord.Enabled = true
	}

	// Logging config
	cfg.LoggingConfig.Level = getEnvOrDefault("LOG_LEVEL", cfg.LoggingConfig.Level)
	cfg.LoggingConfig.Output = getEnvOrDefault("LOG_OUTPUT", cfg.LoggingConfig.Output)
	cfg.LoggingConfig.JSONFormat = getEnvBoolOrDefault("LOG_JSON", cfg.LoggingConfig.JSONFormat)
	cfg.LoggingConfig.IncludeFile = getEnvBoolOrDefault("LOG_INCLUDE_FILE", cfg.LoggingConfig.IncludeFile)

	// Server config
	cfg.ServerConfig.Enabled = getEnvBoolOrDefault("WEB_ENABLED", cfg.ServerConfig.Enabled)
	cfg.ServerConfig.Port = getEnvIntOrDefault("WEB_PORT", cfg.ServerConfig.Port)
	cfg.ServerConfig.Host = getEnvOrDefault("WEB_HOST", cfg.ServerConfig.Host)
	cfg.ServerConfig.AllowedOrigins = getEnvOrDefault("SERVER_ALLOWED_ORIGINS", cfg.ServerConfig.AllowedOrigins)

	// Auth config
	cfg.AuthConfig.Enabled = getEnvBoolOrDefault("AUTH_ENABLED", cfg.AuthConfig.Enabled)
	cfg.AuthConfig.JWTSecret = getEnvOrDefault("AUTH_JWT_SECRET", cfg.AuthConfig.JWTSecret)
	cfg.AuthConfig.TokenDuration = getEnvDurationOrDefault("AUTH_TOKEN_DURATION", cfg.AuthConfig.TokenDuration)

	// Vault config
	cfg.VaultConfig.Enabled = getEnvBoolOrDefault("VAULT_ENABLED", cfg.VaultConfig.Enabled)
	cfg.VaultConfig.Address = getEnvOrDefault("VAULT_ADDR", cfg.VaultConfig.Address)
	cfg.VaultConfig.Token = getEnvOrDefault("VAULT_TOKEN", cfg.VaultConfig.Token)
	cfg.VaultConfig.MountPath = getEnvOrDefault("VAULT_MOUNT_PATH", cfg.VaultConfig.MountPath)
	cfg.VaultConfig.SecretPath = getEnvOrDefault("VAULT_SECRET_PATH", cfg.VaultConfig.SecretPath)

	// Redis config
	cfg.RedisConfig.Enabled = getEnvBoolOrDefault("REDIS_ENABLED", cfg.RedisConfig.Enabled)
	cfg.RedisConfig.Address = getEnvOrDefault("REDIS_ADDR", cfg.RedisConfig.Address)
	cfg.RedisConfig.Password = getEnvOrDefault("REDIS_PASSWORD", cfg.RedisConfig.Password)
	cfg.RedisConfig.DB = getEnvIntOrDefault("REDIS_DB", cfg.RedisConfig.DB)
}

func applyDefaults(cfg *Config) {
	if len(cfg.TradingConfig.Symbols) == 0 {
		cfg.TradingConfig.Symbols = []string{DefaultSymbol}
	}
	if cfg.TradingConfig.Mode == "" {
		cfg.TradingConfig.Mode = "spot"
	}
	if cfg.TradingConfig.TradeValueUSDT == 0 {
		cfg.TradingConfig.TradeValueUSDT = DefaultTradeValueUSDT
	}
	if cfg.TradingConfig.TakeProfitPercent == 0 {
		cfg.TradingConfig.TakeProfitPercent = DefaultTakeProfitPercent
	}
	if cfg.TradingConfig.StopLossPercent == 0 {
		cfg.TradingConfig.StopLossPercent = DefaultStopLossPercent
	}
	if cfg.TradingConfig.CandleInterval == "" {
		cfg.TradingConfig.CandleInterval = "5m"
	}
	if cfg.TradingConfig.CandleLimit == 0 {
		cfg.TradingConfig.CandleLimit = 10
	}
	if cfg.TradingConfig.TickInterval == 0 {
		cfg.TradingConfig.TickInterval = 60
	}
	if cfg.TradingConfig.ShutdownTimeout == 0 {
		cfg.TradingConfig.ShutdownTimeout = 30
	}
	if cfg.MonitorConfig.PollInterval == 0 {
		cfg.MonitorConfig.PollInterval = 3
	}
	if cfg.MonitorConfig.CloseAttempts == 0 {
		cfg.MonitorConfig.CloseAttempts = 3
	}
	if cfg.MonitorConfig.CloseRetryDelay == 0 {
		cfg.MonitorConfig.CloseRetryDelay = 2000
	}
	if cfg.BinanceConfig.StreamMaxAge == 0 {
		cfg.BinanceConfig.StreamMaxAge = 10
	}
	if cfg.LoggingConfig.Level == "" {
		cfg.LoggingConfig.Level = "INFO"
	}
	if cfg.LoggingConfig.Output == "" {
		cfg.LoggingConfig.Output = "stdout"
	}
	if cfg.ServerConfig.Port == 0 {
		cfg.ServerConfig.Port = 8080
	}
	if cfg.ServerConfig.Host == "" {
		cfg.ServerConfig.Host = "0.0.0.0"
	}
	if cfg.ServerConfig.AllowedOrigins == "" {
		cfg.ServerConfig.AllowedOrigins = "*"
	}
	if cfg.ServerConfig.ReadTimeout == 0 {
		cfg.ServerConfig.ReadTimeout = 30
	}
	if cfg.ServerConfig.WriteTimeout == 0 {
		cfg.ServerConfig.WriteTimeout = 30
	}
	if cfg.ServerConfig.ShutdownTimeout == 0 {
		cfg.ServerConfig.ShutdownTimeout = 10
	}
	if cfg.AuthConfig.TokenDuration == 0 {
		cfg.AuthConfig.TokenDuration = 24 * time.Hour
	}
	if cfg.AuthConfig.Issuer == "" {
		cfg.AuthConfig.Issuer = "patternbot"
	}
	if cfg.VaultConfig.Address == "" {
		cfg.VaultConfig.Address = "http://localhost:8200"
	}
	if cfg.VaultConfig.MountPath == "" {
		cfg.VaultConfig.MountPath = "secret"
	}
	if cfg.VaultConfig.SecretPath == "" {
		cfg.VaultConfig.SecretPath = "patternbot/binance"
	}
	if cfg.RedisConfig.Address == "" {
		cfg.RedisConfig.Address = "localhost:6379"
	}
	if cfg.RedisConfig.PoolSize == 0 {
		cfg.RedisConfig.PoolSize = 10
	}
}

// Validate rejects settings the bot cannot trade with
func (c *Config) Validate() error {
	var errs []error

	t := c.TradingConfig
	if len(t.Symbols) == 0 {
		errs = append(errs, errors.New("trading.symbols must not be empty"))
	}
	switch strings.ToLower(t.Mode) {
	case "spot", "futures", "derivatives", "margin":
	default:
		errs = append(errs, fmt.Errorf("trading.mode %q is not spot or futures", t.Mode))
	}
	if t.TradeValueUSDT <= 0 {
		errs = append(errs, fmt.Errorf("trading.trade_value_usdt must be positive, got %v", t.TradeValueUSDT))
	}
	if t.TakeProfitPercent <= 0 || t.TakeProfitPercent >= 100 {
		errs = append(errs, fmt.Errorf("trading.take_profit_percent must be in (0, 100), got %v", t.TakeProfitPercent))
	}
	if t.StopLossPercent <= 0 || t.StopLossPercent >= 100 {
		errs = append(errs, fmt.Errorf("trading.stop_loss_percent must be in (0, 100), got %v", t.StopLossPercent))
	}
	if t.CandleLimit < 3 {
		errs = append(errs, fmt.Errorf("trading.candle_limit must be at least 3, got %d", t.CandleLimit))
	}
	if t.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("trading.tick_interval must be positive, got %d", t.TickInterval))
	}

	needsKeys := !c.BinanceConfig.MockMode && !t.DryRun && !c.VaultConfig.Enabled
	if needsKeys && (c.BinanceConfig.APIKey == "" || c.BinanceConfig.SecretKey == "") {
		errs = append(errs, errors.New("BINANCE_API_KEY and BINANCE_SECRET_KEY are required unless mock_mode, dry_run or vault is enabled"))
	}
	if c.NotificationConfig.Telegram.Enabled && (c.NotificationConfig.Telegram.BotToken == "" || c.NotificationConfig.Telegram.ChatID == "") {
		errs = append(errs, errors.New("telegram requires bot_token and chat_id"))
	}
	if c.AuthConfig.Enabled && len(c.AuthConfig.JWTSecret) < 32 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 32 characters"))
	}
	if c.VaultConfig.Enabled && c.VaultConfig.Token == "" {
		errs = append(errs, errors.New("vault.token is required when vault is enabled"))
	}

	return errors.Join(errs...)
}

// TickDuration returns the evaluation interval
func (t TradingConfig) TickDuration() time.Duration {
	return time.Duration(t.TickInterval) * time.Second
}

// ShutdownDuration returns how long shutdown waits for open monitors
func (t TradingConfig) ShutdownDuration() time.Duration {
	return time.Duration(t.ShutdownTimeout) * time.Second
}

// Label names the trading environment for notifications
func (b BinanceConfig) Label() string {
	switch {
	case b.MockMode:
		return "mock"
	case b.TestNet:
		return "testnet"
	}
	return "production"
}

func loadFromFile(filename string) (*Config, error) {
	file, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(file, &config)
	default:
		err = json.Unmarshal(file, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	return &config, nil
}

func splitSymbols(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if sym := strings.ToUpper(strings.TrimSpace(part)); sym != "" {
			out = append(out, sym)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// GenerateSampleConfig creates a sample configuration file, YAML when the name ends in .yaml or .yml
func GenerateSampleConfig(filename string) error {
	config := Config{
		BinanceConfig: BinanceConfig{
			APIKey:        "your_api_key_here",
			SecretKey:     "your_secret_key_here",
			TestNet:       true,
			StreamEnabled: true,
			StreamMaxAge:  10,
		},
		TradingConfig: TradingConfig{
			Symbols:           []string{"DOGEUSDT", "XRPUSDT"},
			Mode:              "spot",
			TradeValueUSDT:    DefaultTradeValueUSDT,
			TakeProfitPercent: DefaultTakeProfitPercent,
			StopLossPercent:   DefaultStopLossPercent,
			DryRun:            true,
			CandleInterval:    "5m",
			CandleLimit:       10,
			TickInterval:      60,
			ShutdownTimeout:   30,
		},
		PatternConfig: PatternConfig{
			DojiThreshold: 0.001,
		},
		MonitorConfig: MonitorConfig{
			PollInterval:    3,
			CloseAttempts:   3,
			CloseRetryDelay: 2000,
		},
		LedgerConfig: LedgerConfig{
			CSVPath: "logs/trades.csv",
		},
		NotificationConfig: NotificationConfig{
			Enabled: false,
			Telegram: TelegramConfig{
				Enabled:  false,
				BotToken: "",
				ChatID:   "",
			},
		},
		LoggingConfig: LoggingConfig{
			Level:       "INFO",
			Output:      "stdout",
			JSONFormat:  true,
			IncludeFile: false,
		},
		ServerConfig: ServerConfig{
			Enabled:        true,
			Port:           8080,
			Host:           "127.0.0.1",
			AllowedOrigins: "*",
		},
		RedisConfig: RedisConfig{
			Enabled: false,
			Address: "localhost:6379",
		},
	}

	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(config)
	default:
		data, err = json.MarshalIndent(config, "", "  ")
	}
	if err != nil {
		return err
	}

	return os.WriteFile(filename, data, 0644)
}
