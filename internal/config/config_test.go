package config

import (
	"testing"
	"time"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/app_test")
	t.Setenv("JWT_SECRET_KEY", "jwt-secret")
	t.Setenv("ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	t.Setenv("TWILIO_ACCOUNT_SID", "AC123")
	t.Setenv("TWILIO_AUTH_TOKEN", "token")
	t.Setenv("TWILIO_NUMBERS", "usa=+15550001111, fin=+358401234567")
	t.Setenv("LEMONSQUEEZY_WEBHOOK_SECRET", "ls-secret")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
}

func TestLoadAllDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if cfg.Server.Address != ":8080" {
		t.Errorf("address = %q", cfg.Server.Address)
	}
	if cfg.Rates.MessageCost != 0.30 || cfg.Rates.MessageCostUS != 0.10 {
		t.Errorf("rates = %+v", cfg.Rates)
	}
	if cfg.Rates.MonthlyQuota != 40 {
		t.Errorf("monthly quota = %v, want 40", cfg.Rates.MonthlyQuota)
	}
	if cfg.Redis.Enabled {
		t.Error("redis should be disabled without REDIS_ADDR")
	}
	if cfg.Schedulers.VoiceInterval != 30*time.Second {
		t.Errorf("voice interval = %v", cfg.Schedulers.VoiceInterval)
	}
	if cfg.Twilio.Numbers["fin"] != "+358401234567" {
		t.Errorf("numbers = %v", cfg.Twilio.Numbers)
	}
}

func TestLoadAllOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("MESSAGE_COST", "0.5")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_TTL_SECONDS", "120")
	t.Setenv("OUTBOX_POLL_SECONDS", "5")

	cfg, err := LoadAll()
	if err != nil {
		t.Fatalf("LoadAll() error: %v", err)
	}

	if cfg.Rates.MessageCost != 0.5 {
		t.Errorf("message cost = %v", cfg.Rates.MessageCost)
	}
	if !cfg.Redis.Enabled || cfg.Redis.TTL != 2*time.Minute {
		t.Errorf("redis = %+v", cfg.Redis)
	}
	if cfg.Schedulers.OutboxInterval != 5*time.Second {
		t.Errorf("outbox interval = %v", cfg.Schedulers.OutboxInterval)
	}
}

func TestLoadAllPanicsOnBadKey(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENCRYPTION_KEY", "too-short")

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for short encryption key")
		}
	}()
	LoadAll()
}

func TestParseNumbers(t *testing.T) {
	got := parseNumbers("usa=+15550001111, FIN = +358401234567 ,")
	if len(got) != 2 {
		t.Fatalf("got %d entries: %v", len(got), got)
	}
	if got["usa"] != "+15550001111" || got["fin"] != "+358401234567" {
		t.Errorf("parseNumbers = %v", got)
	}

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for entry without =")
		}
	}()
	parseNumbers("usa+15550001111")
}
