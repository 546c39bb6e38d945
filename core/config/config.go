package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// TelegramConfig holds Telegram bot related settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	AdminID int64  `yaml:"admin_id" envconfig:"TELEGRAM_ADMIN_ID"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// FloodConfig holds settings for the per-user minimum message interval.
// This is transport-level flood protection, independent of the paycode
// attempt lockout.
type FloodConfig struct {
	IntervalMS int `yaml:"interval_ms" envconfig:"FLOOD_INTERVAL_MS"`
}

// DialogConfig tunes the conversation engine.
type DialogConfig struct {
	SessionTTLSeconds    int      `yaml:"session_ttl_seconds" envconfig:"DIALOG_SESSION_TTL_SECONDS"`
	SweepIntervalSeconds int      `yaml:"sweep_interval_seconds" envconfig:"DIALOG_SWEEP_INTERVAL_SECONDS"`
	MaxFlowRetries       int      `yaml:"max_flow_retries" envconfig:"DIALOG_MAX_FLOW_RETRIES"`
	ResetKeywords        []string `yaml:"reset_keywords" envconfig:"DIALOG_RESET_KEYWORDS"`
}

// PaycodeConfig tunes redeemable code validation and abuse limits.
type PaycodeConfig struct {
	Prefix           string `yaml:"prefix" envconfig:"PAYCODE_PREFIX"`
	Digits           int    `yaml:"digits" envconfig:"PAYCODE_DIGITS"`
	MaxRawLength     int    `yaml:"max_raw_length" envconfig:"PAYCODE_MAX_RAW_LENGTH"`
	WindowSeconds    int    `yaml:"window_seconds" envconfig:"PAYCODE_WINDOW_SECONDS"`
	AttemptThreshold int    `yaml:"attempt_threshold" envconfig:"PAYCODE_ATTEMPT_THRESHOLD"`
	LockoutSeconds   int    `yaml:"lockout_seconds" envconfig:"PAYCODE_LOCKOUT_SECONDS"`
	IdleGCSeconds    int    `yaml:"idle_gc_seconds" envconfig:"PAYCODE_IDLE_GC_SECONDS"`
}

// ResolverConfig points at the external code-resolution service.
type ResolverConfig struct {
	BaseURL        string            `yaml:"base_url" envconfig:"RESOLVER_BASE_URL"`
	CategoryURLs   map[string]string `yaml:"category_urls"`
	APIKey         string            `yaml:"api_key" envconfig:"RESOLVER_API_KEY"`
	TimeoutSeconds int               `yaml:"timeout_seconds" envconfig:"RESOLVER_TIMEOUT_SECONDS"`
}

// DatabaseConfig holds Postgres settings for the receipt audit trail and
// account lookups. Leaving Host empty keeps the in-memory stores.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Enabled reports whether a database is configured.
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.Host) != ""
}

// FeeConfig describes the service fee applied to one product.
// Rounding accepts "2dp" (two decimals) or "nearest" (whole dollar).
type FeeConfig struct {
	RatePercent float64 `yaml:"rate_percent"`
	Rounding    string  `yaml:"rounding"`
}

// ProductConfig groups per-product fee and minimum amount settings.
type ProductConfig struct {
	Bill        FeeConfig `yaml:"bill"`
	Electricity FeeConfig `yaml:"electricity"`
	Airtime     FeeConfig `yaml:"airtime"`

	BillMinAmount        float64   `yaml:"bill_min_amount"`
	ElectricityMinAmount float64   `yaml:"electricity_min_amount"`
	AirtimeMinAmount     float64   `yaml:"airtime_min_amount"`
	AirtimeTiers         []float64 `yaml:"airtime_tiers"`
}

// Config aggregates the full application configuration.
type Config struct {
	Telegram TelegramConfig `yaml:"telegram"`
	Webhook  WebhookConfig  `yaml:"webhook"`
	Logging  LoggingConfig  `yaml:"logging"`
	Flood    FloodConfig    `yaml:"flood"`
	Dialog   DialogConfig   `yaml:"dialog"`
	Paycode  PaycodeConfig  `yaml:"paycode"`
	Resolver ResolverConfig `yaml:"resolver"`
	Products ProductConfig  `yaml:"products"`
	Database DatabaseConfig `yaml:"database"`
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates required fields and fills defaults in place.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	normalizeDialog(&cfg.Dialog)
	if err := normalizePaycode(&cfg.Paycode); err != nil {
		return err
	}
	if err := normalizeProducts(&cfg.Products); err != nil {
		return err
	}
	normalizeResolver(&cfg.Resolver)
	if cfg.Database.Enabled() {
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 10
		}
	}
	return nil
}

func normalizeDialog(d *DialogConfig) {
	if d.SessionTTLSeconds <= 0 {
		d.SessionTTLSeconds = 600
	}
	if d.SweepIntervalSeconds <= 0 {
		d.SweepIntervalSeconds = 60
	}
	if d.MaxFlowRetries <= 0 {
		d.MaxFlowRetries = 3
	}
	if len(d.ResetKeywords) == 0 {
		d.ResetKeywords = []string{"hi", "hello", "menu", "/start", "cancel"}
	}
	for i, kw := range d.ResetKeywords {
		d.ResetKeywords[i] = strings.ToLower(strings.TrimSpace(kw))
	}
}

func normalizePaycode(p *PaycodeConfig) error {
	if p.Prefix == "" {
		p.Prefix = "PAY"
	}
	p.Prefix = strings.ToUpper(strings.TrimSpace(p.Prefix))
	for _, r := range p.Prefix {
		if r < 'A' || r > 'Z' {
			return fmt.Errorf("paycode.prefix must be letters only, got %q", p.Prefix)
		}
	}
	if p.Digits <= 0 {
		p.Digits = 6
	}
	if p.MaxRawLength <= 0 {
		p.MaxRawLength = 64
	}
	if p.WindowSeconds <= 0 {
		p.WindowSeconds = 300
	}
	if p.AttemptThreshold <= 0 {
		p.AttemptThreshold = 3
	}
	if p.LockoutSeconds <= 0 {
		p.LockoutSeconds = 900
	}
	if p.IdleGCSeconds <= 0 {
		p.IdleGCSeconds = 3600
	}
	return nil
}

func normalizeProducts(p *ProductConfig) error {
	fillFee := func(f *FeeConfig, rate float64, rounding string) error {
		if f.RatePercent < 0 {
			return fmt.Errorf("fee rate_percent must be >= 0")
		}
		if f.RatePercent == 0 {
			f.RatePercent = rate
		}
		r := strings.ToLower(strings.TrimSpace(f.Rounding))
		if r == "" {
			r = rounding
		}
		if r != "2dp" && r != "nearest" {
			return fmt.Errorf("invalid fee rounding %q; allowed: 2dp, nearest", f.Rounding)
		}
		f.Rounding = r
		return nil
	}
	if err := fillFee(&p.Bill, 2.5, "2dp"); err != nil {
		return err
	}
	if err := fillFee(&p.Electricity, 5, "2dp"); err != nil {
		return err
	}
	if err := fillFee(&p.Airtime, 10, "nearest"); err != nil {
		return err
	}
	if p.BillMinAmount <= 0 {
		p.BillMinAmount = 1
	}
	if p.ElectricityMinAmount <= 0 {
		p.ElectricityMinAmount = 5
	}
	if p.AirtimeMinAmount <= 0 {
		p.AirtimeMinAmount = 0.5
	}
	if len(p.AirtimeTiers) == 0 {
		p.AirtimeTiers = []float64{1, 5, 10}
	}
	return nil
}

func normalizeResolver(r *ResolverConfig) {
	if r.TimeoutSeconds <= 0 {
		r.TimeoutSeconds = 10
	}
	if r.CategoryURLs == nil {
		r.CategoryURLs = map[string]string{}
	}
}
