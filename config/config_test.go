package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"BINANCE_API_KEY", "BINANCE_SECRET_KEY", "BINANCE_BASE_URL", "USE_TESTNET", "MOCK_MODE",
	"SYMBOLS", "TRADING_MODE", "TRADE_VALUE_USDT", "TAKE_PROFIT_PERCENT", "STOP_LOSS_PERCENT",
	"TRADING_DRY_RUN", "TELEGRAM_BOT_TOKEN", "TELEGRAM_CHAT_ID", "DISCORD_WEBHOOK_URL",
	"LOG_LEVEL", "AUTH_ENABLED", "AUTH_JWT_SECRET", "VAULT_ENABLED", "REDIS_ENABLED", "WEB_PORT",
}

// isolate clears recognised variables and runs the test from an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("missing.json")
	require.NoError(t, err)

	assert.Equal(t, []string{"DOGEUSDT"}, cfg.TradingConfig.Symbols)
	assert.Equal(t, "spot", cfg.TradingConfig.Mode)
	assert.Equal(t, DefaultTradeValueUSDT, cfg.TradingConfig.TradeValueUSDT)
	assert.Equal(t, 0.5, cfg.TradingConfig.TakeProfitPercent)
	assert.Equal(t, 0.3, cfg.TradingConfig.StopLossPercent)
	assert.Equal(t, "5m", cfg.TradingConfig.CandleInterval)
	assert.Equal(t, 60*time.Second, cfg.TradingConfig.TickDuration())
	assert.Equal(t, 3, cfg.MonitorConfig.PollInterval)
	assert.Equal(t, "production", cfg.BinanceConfig.Label())
}

func TestLoadEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("SYMBOLS", "dogeusdt, XRPUSDT ,,")
	t.Setenv("TRADE_VALUE_USDT", "25")
	t.Setenv("USE_TESTNET", "True")
	t.Setenv("TAKE_PROFIT_PERCENT", "1.2")
	t.Setenv("STOP_LOSS_PERCENT", "0.8")
	t.Setenv("TRADING_MODE", "futures")
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "42")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, []string{"DOGEUSDT", "XRPUSDT"}, cfg.TradingConfig.Symbols)
	assert.Equal(t, 25.0, cfg.TradingConfig.TradeValueUSDT)
	assert.True(t, cfg.BinanceConfig.TestNet)
	assert.Equal(t, "testnet", cfg.BinanceConfig.Label())
	assert.Equal(t, 1.2, cfg.TradingConfig.TakeProfitPercent)
	assert.Equal(t, 0.8, cfg.TradingConfig.StopLossPercent)
	assert.Equal(t, "futures", cfg.TradingConfig.Mode)
	assert.True(t, cfg.NotificationConfig.Enabled)
	assert.True(t, cfg.NotificationConfig.Telegram.Enabled)
	assert.Equal(t, "42", cfg.NotificationConfig.Telegram.ChatID)
}

func TestLoadDotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("BINANCE_API_KEY=from-dotenv\nSYMBOLS=BTCUSDT\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("BINANCE_API_KEY")
		os.Unsetenv("SYMBOLS")
	})
	// godotenv does not override variables that are already set, even to ""
	os.Unsetenv("BINANCE_API_KEY")
	os.Unsetenv("SYMBOLS")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.BinanceConfig.APIKey)
	assert.Equal(t, []string{"BTCUSDT"}, cfg.TradingConfig.Symbols)
}

func TestLoadYAMLAndJSON(t *testing.T) {
	dir := isolate(t)

	yamlPath := filepath.Join(dir, "bot.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte(`
trading:
  symbols: [ETHUSDT]
  trade_value_usdt: 15
  dry_run: true
auth:
  token_duration: 2h
`), 0o600))
	cfg, err := Load(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"ETHUSDT"}, cfg.TradingConfig.Symbols)
	assert.Equal(t, 15.0, cfg.TradingConfig.TradeValueUSDT)
	assert.True(t, cfg.TradingConfig.DryRun)
	assert.Equal(t, 2*time.Hour, cfg.AuthConfig.TokenDuration)

	jsonPath := filepath.Join(dir, "bot.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"trading":{"symbols":["BNBUSDT"],"mode":"futures"}}`), 0o600))
	cfg, err = Load(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"BNBUSDT"}, cfg.TradingConfig.Symbols)
	assert.Equal(t, "futures", cfg.TradingConfig.Mode)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
	_, err = Load(bad)
	assert.ErrorContains(t, err, "error parsing config file")
}

func TestValidate(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BINANCE_API_KEY")

	cfg.TradingConfig.DryRun = true
	assert.NoError(t, cfg.Validate())

	cfg.TradingConfig.Mode = "options"
	cfg.TradingConfig.TakeProfitPercent = 0
	cfg.TradingConfig.Symbols = nil
	cfg.AuthConfig.Enabled = true
	cfg.AuthConfig.JWTSecret = "short"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trading.mode")
	assert.Contains(t, err.Error(), "take_profit_percent")
	assert.Contains(t, err.Error(), "symbols")
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestGenerateSampleConfigRoundTrip(t *testing.T) {
	dir := isolate(t)

	for _, name := range []string{"sample.json", "sample.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, GenerateSampleConfig(path))

		cfg, err := Load(path)
		require.NoError(t, err, name)
		assert.Equal(t, []string{"DOGEUSDT", "XRPUSDT"}, cfg.TradingConfig.Symbols, name)
		assert.True(t, cfg.TradingConfig.DryRun, name)
		assert.NoError(t, cfg.Validate(), name)
	}
}
