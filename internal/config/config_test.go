package config

import "testing"

func TestLoadPollingDefaults(t *testing.T) {
	t.Setenv("POLL_MAX_ATTEMPTS", "")
	t.Setenv("POLL_BUDGET_SECONDS", "")
	t.Setenv("POLL_BATCH_SIZE", "")
	t.Setenv("POLL_CRON_SPEC", "")

	cfg := Load()
	if cfg.PollMaxAttempts != 10 {
		t.Fatalf("expected default poll max attempts 10, got %d", cfg.PollMaxAttempts)
	}
	if cfg.PollBudgetSeconds != 180 {
		t.Fatalf("expected default poll budget 180s, got %d", cfg.PollBudgetSeconds)
	}
	if cfg.PollBatchSize != 50 {
		t.Fatalf("expected default poll batch size 50, got %d", cfg.PollBatchSize)
	}
	if cfg.PollCronSpec != "@every 1m" {
		t.Fatalf("expected default poll cron spec, got %q", cfg.PollCronSpec)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("POLL_MAX_ATTEMPTS", "4")
	t.Setenv("INVOICE_TEST_MODE", "true")
	t.Setenv("TOKEN_TTL_MINUTES", "2")
	t.Setenv("API_RATE_LIMIT_RPS", "5")

	cfg := Load()
	if cfg.PollMaxAttempts != 4 {
		t.Fatalf("expected poll max attempts override, got %d", cfg.PollMaxAttempts)
	}
	if !cfg.InvoiceTestMode {
		t.Fatalf("expected invoice test mode enabled")
	}
	if cfg.TokenTTLMinutes != 2 {
		t.Fatalf("expected token ttl override, got %d", cfg.TokenTTLMinutes)
	}
	if cfg.APIRateLimitRPS != 5 {
		t.Fatalf("expected rate limit override, got %d", cfg.APIRateLimitRPS)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("POLL_MAX_ATTEMPTS", "not-a-number")
	t.Setenv("INVOICE_TEST_MODE", "maybe")

	cfg := Load()
	if cfg.PollMaxAttempts != 10 {
		t.Fatalf("malformed int must fall back to default, got %d", cfg.PollMaxAttempts)
	}
	if cfg.InvoiceTestMode {
		t.Fatalf("malformed bool must fall back to default")
	}
}
