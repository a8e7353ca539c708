package vault

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"binance-pattern-trader/config"

	"github.com/hashicorp/vault/api"
)

var ErrAPIKeyNotFound = errors.New("API key not found")

// APIKeyData represents the Binance credentials stored in Vault
type APIKeyData struct {
	APIKey    string `json:"api_key"`
	SecretKey string `json:"secret_key"`
	IsTestnet bool   `json:"is_testnet"`
}

// Client reads exchange credentials from a KV v2 secrets engine
type Client struct {
	client *api.Client
	config config.VaultConfig
	mu     sync.RWMutex
	cache  map[bool]*APIKeyData // testnet -> credentials
}

// NewClient creates a new Vault client
func NewClient(cfg config.VaultConfig) (*Client, error) {
	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{
		client: client,
		config: cfg,
		cache:  make(map[bool]*APIKeyData),
	}, nil
}

// StoreAPIKey writes credentials for the given network
func (c *Client) StoreAPIKey(ctx context.Context, data APIKeyData) error {
	secretData := map[string]interface{}{
		"data": map[string]interface{}{
			"api_key":    data.APIKey,
			"secret_key": data.SecretKey,
			"is_testnet": data.IsTestnet,
		},
	}

	if _, err := c.client.Logical().WriteWithContext(ctx, c.secretPath(data.IsTestnet), secretData); err != nil {
		return fmt.Errorf("failed to store API key in vault: %w", err)
	}

	c.mu.Lock()
	c.cache[data.IsTestnet] = &data
	c.mu.Unlock()
	return nil
}

// GetAPIKey returns the credentials for the given network, reading Vault once
func (c *Client) GetAPIKey(ctx context.Context, isTestnet bool) (*APIKeyData, error) {
	c.mu.RLock()
	if cached, ok := c.cache[isTestnet]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	path := c.secretPath(isTestnet)
	secret, err := c.client.Logical().ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read API key from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w at %s", ErrAPIKeyNotFound, path)
	}

	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format at %s", path)
	}

	apiKeyData := &APIKeyData{
		APIKey:    getString(data, "api_key"),
		SecretKey: getString(data, "secret_key"),
		IsTestnet: isTestnet,
	}
	if apiKeyData.APIKey == "" || apiKeyData.SecretKey == "" {
		return nil, fmt.Errorf("%w: empty api_key or secret_key at %s", ErrAPIKeyNotFound, path)
	}

	c.mu.Lock()
	c.cache[isTestnet] = apiKeyData
	c.mu.Unlock()
	return apiKeyData, nil
}

// Health checks the Vault connection
func (c *Client) Health(ctx context.Context) error {
	health, err := c.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("vault health check failed: %w", err)
	}
	if health.Sealed {
		return fmt.Errorf("vault is sealed")
	}
	return nil
}

// secretPath returns the KV v2 data path for a network
func (c *Client) secretPath(isTestnet bool) string {
	network := "mainnet"
	if isTestnet {
		network = "testnet"
	}
	return fmt.Sprintf("%s/data/%s/%s", c.config.MountPath, c.config.SecretPath, network)
}

func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
