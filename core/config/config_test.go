package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := &Config{}
	cfg.Telegram.Token = "token"
	return cfg
}

func TestNormalizeFillsDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}

	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Errorf("run_mode = %q", cfg.Telegram.RunMode)
	}
	if cfg.Dialog.SessionTTLSeconds != 600 || cfg.Dialog.SweepIntervalSeconds != 60 {
		t.Errorf("dialog defaults = %+v", cfg.Dialog)
	}
	if len(cfg.Dialog.ResetKeywords) == 0 {
		t.Error("reset keywords should default")
	}
	if cfg.Paycode.Prefix != "PAY" || cfg.Paycode.Digits != 6 {
		t.Errorf("paycode defaults = %+v", cfg.Paycode)
	}
	if cfg.Paycode.AttemptThreshold != 3 || cfg.Paycode.LockoutSeconds != 900 {
		t.Errorf("paycode limits = %+v", cfg.Paycode)
	}
	if cfg.Products.Electricity.RatePercent != 5 || cfg.Products.Electricity.Rounding != "2dp" {
		t.Errorf("electricity fee = %+v", cfg.Products.Electricity)
	}
	if cfg.Products.Airtime.Rounding != "nearest" {
		t.Errorf("airtime fee = %+v", cfg.Products.Airtime)
	}
	if len(cfg.Products.AirtimeTiers) != 3 {
		t.Errorf("airtime tiers = %v", cfg.Products.AirtimeTiers)
	}
	if cfg.Resolver.TimeoutSeconds != 10 {
		t.Errorf("resolver timeout = %d", cfg.Resolver.TimeoutSeconds)
	}
}

func TestNormalizeRequiresToken(t *testing.T) {
	if err := Normalize(&Config{}); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestNormalizeRejectsBadRunMode(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "carrier-pigeon"
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for invalid run mode")
	}
}

func TestNormalizeWebhookRequiresURL(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	if err := Normalize(cfg); err == nil || !strings.Contains(err.Error(), "webhook.url") {
		t.Fatalf("err = %v", err)
	}
}

func TestNormalizeRejectsBadRounding(t *testing.T) {
	cfg := validConfig()
	cfg.Products.Bill.Rounding = "bankers"
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for invalid rounding")
	}
}

func TestNormalizeRejectsBadPrefix(t *testing.T) {
	cfg := validConfig()
	cfg.Paycode.Prefix = "P4Y"
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for non-letter prefix")
	}
}

func TestNormalizeLowercasesResetKeywords(t *testing.T) {
	cfg := validConfig()
	cfg.Dialog.ResetKeywords = []string{" Hi ", "MENU"}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Dialog.ResetKeywords[0] != "hi" || cfg.Dialog.ResetKeywords[1] != "menu" {
		t.Errorf("keywords = %v", cfg.Dialog.ResetKeywords)
	}
}

func TestDatabaseEnabled(t *testing.T) {
	var d DatabaseConfig
	if d.Enabled() {
		t.Error("empty host should be disabled")
	}
	d.Host = "localhost"
	if !d.Enabled() {
		t.Error("host set should enable")
	}
	cfg := validConfig()
	cfg.Database.Host = "localhost"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if cfg.Database.Port != "5432" || cfg.Database.MaxConnections != 10 {
		t.Errorf("database defaults = %+v", cfg.Database)
	}
}
