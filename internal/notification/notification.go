// Package notification delivers operator messages to chat services.
package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// NotificationType classifies a message for formatting
type NotificationType string

const (
	NotifyInfo       NotificationType = "info"
	NotifySignal     NotificationType = "signal"
	NotifyTradeOpen  NotificationType = "trade_open"
	NotifyTradeClose NotificationType = "trade_close"
	NotifyError      NotificationType = "error"
)

// Notification is one message to deliver
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Timestamp time.Time
}

// Text renders the notification as plain text.
func (n *Notification) Text() string {
	if n.Title == "" {
		return n.Message
	}
	return n.Title + "\n\n" + n.Message
}

// Notifier is a delivery channel
type Notifier interface {
	Send(ctx context.Context, notification *Notification) error
	Name() string
	IsEnabled() bool
}

// DefaultSendTimeout bounds one asynchronous delivery
const DefaultSendTimeout = 10 * time.Second

// Manager fans messages out to every enabled notifier
type Manager struct {
	notifiers []Notifier
	logger    zerolog.Logger
	timeout   time.Duration
	wg        sync.WaitGroup
}

// NewManager creates a manager with no notifiers
func NewManager(logger zerolog.Logger) *Manager {
	return &Manager{
		logger:  logger.With().Str("component", "Notifier").Logger(),
		timeout: DefaultSendTimeout,
	}
}

// AddNotifier registers a delivery channel. Disabled notifiers are skipped at send time.
func (m *Manager) AddNotifier(n Notifier) {
	m.notifiers = append(m.notifiers, n)
}

// Enabled returns the names of enabled notifiers.
func (m *Manager) Enabled() []string {
	var names []string
	for _, n := range m.notifiers {
		if n.IsEnabled() {
			names = append(names, n.Name())
		}
	}
	return names
}

// Send delivers synchronously to all enabled notifiers and joins their errors.
func (m *Manager) Send(ctx context.Context, notification *Notification) error {
	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now()
	}
	var errs []error
	for _, n := range m.notifiers {
		if !n.IsEnabled() {
			continue
		}
		if err := n.Send(ctx, notification); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Dispatch delivers in the background. Failures are logged and never returned.
func (m *Manager) Dispatch(notification *Notification) {
	if notification.Timestamp.IsZero() {
		notification.Timestamp = time.Now()
	}
	for _, n := range m.notifiers {
		if !n.IsEnabled() {
			continue
		}
		m.wg.Add(1)
		go func(n Notifier) {
			defer m.wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
			defer cancel()
			if err := n.Send(ctx, notification); err != nil {
				m.logger.Warn().Err(err).
					Str("notifier", n.Name()).
					Str("type", string(notification.Type)).
					Msg("Notification delivery failed")
			}
		}(n)
	}
}

// Notify sends text classified as kind, fire-and-forget.
func (m *Manager) Notify(kind NotificationType, text string) {
	m.Dispatch(&Notification{Type: kind, Message: text})
}

// Wait blocks until in-flight deliveries finish.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// =============================================================================
// TELEGRAM NOTIFIER
// =============================================================================

// TelegramAPIBase is the default Bot API endpoint
const TelegramAPIBase = "https://api.telegram.org"

// TelegramConfig holds Telegram configuration
type TelegramConfig struct {
	BotToken string
	ChatID   string
	Enabled  bool
	APIBase  string
}

// TelegramNotifier sends notifications via the Telegram Bot API
type TelegramNotifier struct {
	botToken string
	chatID   string
	apiBase  string
	enabled  bool
	client   *http.Client
}

// NewTelegramNotifier creates a new Telegram notifier
func NewTelegramNotifier(config TelegramConfig) *TelegramNotifier {
	base := config.APIBase
	if base == "" {
		base = TelegramAPIBase
	}
	return &TelegramNotifier{
		botToken: config.BotToken,
		chatID:   config.ChatID,
		apiBase:  base,
		enabled:  config.Enabled && config.BotToken != "" && config.ChatID != "",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *TelegramNotifier) Name() string {
	return "telegram"
}

func (t *TelegramNotifier) IsEnabled() bool {
	return t.enabled
}

func (t *TelegramNotifier) Send(ctx context.Context, notification *Notification) error {
	if !t.enabled {
		return nil
	}

	payload := map[string]interface{}{
		"chat_id": t.chatID,
		"text":    notification.Text(),
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	if err := postJSON(ctx, t.client, url, payload, http.StatusOK); err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

// =============================================================================
// DISCORD NOTIFIER
// =============================================================================

// DiscordConfig holds Discord configuration
type DiscordConfig struct {
	WebhookURL string
	Enabled    bool
}

// DiscordNotifier sends notifications via Discord webhook
type DiscordNotifier struct {
	webhookURL string
	enabled    bool
	client     *http.Client
}

// NewDiscordNotifier creates a new Discord notifier
func NewDiscordNotifier(config DiscordConfig) *DiscordNotifier {
	return &DiscordNotifier{
		webhookURL: config.WebhookURL,
		enabled:    config.Enabled && config.WebhookURL != "",
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *DiscordNotifier) Name() string {
	return "discord"
}

func (d *DiscordNotifier) IsEnabled() bool {
	return d.enabled
}

func (d *DiscordNotifier) Send(ctx context.Context, notification *Notification) error {
	if !d.enabled {
		return nil
	}

	color := 0x95A5A6
	switch notification.Type {
	case NotifyError:
		color = 0xE74C3C
	case NotifySignal:
		color = 0x3498DB
	case NotifyTradeOpen:
		color = 0xF1C40F
	case NotifyTradeClose:
		color = 0x2ECC71
	}

	embed := map[string]interface{}{
		"description": notification.Message,
		"color":       color,
		"timestamp":   notification.Timestamp.Format(time.RFC3339),
	}
	if notification.Title != "" {
		embed["title"] = notification.Title
	}
	payload := map[string]interface{}{
		"embeds": []map[string]interface{}{embed},
	}

	if err := postJSON(ctx, d.client, d.webhookURL, payload, http.StatusOK, http.StatusNoContent); err != nil {
		return fmt.Errorf("discord: %w", err)
	}
	return nil
}

func postJSON(ctx context.Context, client *http.Client, url string, payload interface{}, okStatus ...int) error {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	defer resp.Body.Close()

	for _, code := range okStatus {
		if resp.StatusCode == code {
			return nil
		}
	}
	return fmt.Errorf("API returned status %d", resp.StatusCode)
}
