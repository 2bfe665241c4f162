package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Rates      RateConfig
	Twilio     TwilioConfig
	Billing    BillingConfig
	Voice      VoiceConfig
	Google     GoogleConfig
	Anthropic  AnthropicConfig
	Geoapify   GeoapifyConfig
	Firecrawl  FirecrawlConfig
	Telegram   TelegramConfig
	WhatsApp   WhatsAppConfig
	Schedulers SchedulerConfig
}

type ServerConfig struct {
	Address   string
	PublicURL string // external base URL, used for Twilio signature validation
}

type DatabaseConfig struct {
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type AuthConfig struct {
	JWTSecret     string
	EncryptionKey string // 32 bytes, hex or raw, for AES-256-GCM token columns
}

// RateConfig holds the IQ cost rates. Discounted and tier-1 users are
// always billed at the US rate.
type RateConfig struct {
	MessageCost     float64
	MessageCostUS   float64
	VoiceSecondCost float64
	MonthlyQuota    float64 // credits_left granted on subscription activation
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	// Numbers maps lowercase ISO-3166 alpha-3 country codes to sender
	// numbers, parsed from TWILIO_NUMBERS ("usa=+1555...,fin=+358...").
	Numbers map[string]string
}

type BillingConfig struct {
	LemonSqueezyAPIKey        string
	LemonSqueezyStoreID       string
	LemonSqueezyVariantID     string
	LemonSqueezyWebhookSecret string
	PaddleAPIKey              string
	PaddleWebhookSecret       string
	PaddlePriceID             string
}

type VoiceConfig struct {
	ElevenLabsAPIKey string
}

type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type GeoapifyConfig struct {
	APIKey string
}

type FirecrawlConfig struct {
	APIKey string
}

type TelegramConfig struct {
	BotToken string // optional notification channel
}

type WhatsAppConfig struct {
	DeviceDir string // per-user sqlite device stores
}

type SchedulerConfig struct {
	VoiceInterval  time.Duration
	CheckInterval  time.Duration
	OutboxInterval time.Duration
}

func LoadAll() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Address:   getEnv("SERVER_ADDRESS", ":8080"),
			PublicURL: getEnv("PUBLIC_URL", "http://localhost:8080"),
		},
		Database: DatabaseConfig{
			PostgresURL: mustEnv("DATABASE_URL"),
		},
		Redis: loadRedisConfig(),
		Auth: AuthConfig{
			JWTSecret:     mustEnv("JWT_SECRET_KEY"),
			EncryptionKey: mustEnv("ENCRYPTION_KEY"),
		},
		Rates: RateConfig{
			MessageCost:     getEnvFloat("MESSAGE_COST", 0.30),
			MessageCostUS:   getEnvFloat("MESSAGE_COST_US", 0.10),
			VoiceSecondCost: getEnvFloat("VOICE_SECOND_COST", 0.0033),
			MonthlyQuota:    getEnvFloat("MONTHLY_QUOTA", 40),
		},
		Twilio: TwilioConfig{
			AccountSID: mustEnv("TWILIO_ACCOUNT_SID"),
			AuthToken:  mustEnv("TWILIO_AUTH_TOKEN"),
			Numbers:    parseNumbers(mustEnv("TWILIO_NUMBERS")),
		},
		Billing: BillingConfig{
			LemonSqueezyAPIKey:        getEnv("LEMONSQUEEZY_API_KEY", ""),
			LemonSqueezyStoreID:       getEnv("LEMONSQUEEZY_STORE_ID", ""),
			LemonSqueezyVariantID:     getEnv("LEMONSQUEEZY_VARIANT_ID", ""),
			LemonSqueezyWebhookSecret: mustEnv("LEMONSQUEEZY_WEBHOOK_SECRET"),
			PaddleAPIKey:              getEnv("PADDLE_API_KEY", ""),
			PaddleWebhookSecret:       getEnv("PADDLE_WEBHOOK_SECRET", ""),
			PaddlePriceID:             getEnv("PADDLE_PRICE_ID", ""),
		},
		Voice: VoiceConfig{
			ElevenLabsAPIKey: getEnv("ELEVENLABS_API_KEY", ""),
		},
		Google: GoogleConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		},
		Anthropic: AnthropicConfig{
			APIKey: mustEnv("ANTHROPIC_API_KEY"),
			Model:  getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		},
		Geoapify:  GeoapifyConfig{APIKey: getEnv("GEOAPIFY_API_KEY", "")},
		Firecrawl: FirecrawlConfig{APIKey: getEnv("FIRECRAWL_API_KEY", "")},
		Telegram:  TelegramConfig{BotToken: getEnv("TELEGRAM_BOT_TOKEN", "")},
		WhatsApp: WhatsAppConfig{
			DeviceDir: getEnv("WHATSAPP_DEVICE_DIR", "devices"),
		},
		Schedulers: SchedulerConfig{
			VoiceInterval:  time.Duration(getEnvInt("VOICE_POLL_SECONDS", 30)) * time.Second,
			CheckInterval:  time.Duration(getEnvInt("CHECK_POLL_SECONDS", 60)) * time.Second,
			OutboxInterval: time.Duration(getEnvInt("OUTBOX_POLL_SECONDS", 15)) * time.Second,
		},
	}

	validate(cfg)
	return cfg, nil
}

func loadRedisConfig() RedisConfig {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvInt("REDIS_DB", 0),
		TTL:      time.Duration(getEnvInt("REDIS_TTL_SECONDS", 3600)) * time.Second,
	}
}

// parseNumbers parses "usa=+15550001111,fin=+358401234567" into a map.
func parseNumbers(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			panic(fmt.Sprintf("invalid TWILIO_NUMBERS entry: %q", pair))
		}
		out[strings.ToLower(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return out
}

func validate(cfg *Config) {
	if len(cfg.Auth.EncryptionKey) != 32 {
		panic("ENCRYPTION_KEY must be exactly 32 bytes")
	}
	if cfg.Rates.MessageCost <= 0 || cfg.Rates.MessageCostUS <= 0 {
		panic("message cost rates must be > 0")
	}
	if cfg.Rates.VoiceSecondCost <= 0 {
		panic("VOICE_SECOND_COST must be > 0")
	}
	if len(cfg.Twilio.Numbers) == 0 {
		panic("TWILIO_NUMBERS must list at least one sender number")
	}
	if _, ok := cfg.Twilio.Numbers["usa"]; !ok {
		panic("TWILIO_NUMBERS must include a usa entry (regional fallback target)")
	}
	if cfg.Schedulers.VoiceInterval <= 0 || cfg.Schedulers.CheckInterval <= 0 || cfg.Schedulers.OutboxInterval <= 0 {
		panic("scheduler intervals must be > 0")
	}
}

func mustEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("missing required env var: %s", key))
	}
	return val
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("invalid int for env %s: %s", key, v))
	}
	return i
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		panic(fmt.Sprintf("invalid float for env %s: %s", key, v))
	}
	return f
}
