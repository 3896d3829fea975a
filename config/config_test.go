package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/etnz/folio"
	"github.com/etnz/folio/date"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	filename := filepath.Join(t.TempDir(), "folio.yaml")
	require.NoError(t, os.WriteFile(filename, []byte(content), 0o644))
	return filename
}

func TestLoad_Defaults(t *testing.T) {
	filename := writeConfig(t, "base_currency: EUR\n")
	cfg, err := Load(filename)
	require.NoError(t, err)

	dir := filepath.Dir(filename)
	assert.Equal(t, "EUR", cfg.BaseCurrency)
	assert.True(t, cfg.RebalanceThreshold.Equal(NewDecimal(0.05).Decimal))
	assert.Equal(t, 14, cfg.ATR.Period)
	assert.True(t, cfg.ATR.Multiplier.Equal(NewDecimal(2).Decimal))
	assert.Equal(t, 60, cfg.ATR.Lookback)
	assert.Equal(t, filepath.Join(dir, "data", "trades.jsonl"), cfg.Data.Trades)
	assert.Equal(t, filepath.Join(dir, "data", "market"), cfg.Data.Market)
	assert.Equal(t, "https://eodhd.com/api", cfg.EODHD.BaseURL)
	assert.Equal(t, 30*time.Second, cfg.EODHD.Timeout)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.Equal(t, "folio:", cfg.Cache.Redis.Prefix)
	assert.Equal(t, "0 18 * * 1-5", cfg.Schedule.Cron)
	assert.Equal(t, "console", cfg.Log.Format)
}

func TestLoad_File(t *testing.T) {
	filename := writeConfig(t, `
base_currency: USD
allow_negative_cash: true
target_allocations:
  AAPL.US: 0.5
  MSFT.US: "0.3"
rebalance_threshold: 0.1
atr:
  period: 10
  multiplier: 1.5
window:
  from: 2025-01-01
  to: 2025-06-30
eodhd:
  api_key: ${TEST_FOLIO_KEY}
  timeout: 5s
email:
  smtp_host: smtp.example.com
  smtp_port: $TEST_FOLIO_PORT
  smtp_password: $TEST_FOLIO_UNSET
  to: [me@example.com]
`)
	t.Setenv("TEST_FOLIO_KEY", "secret")
	t.Setenv("TEST_FOLIO_PORT", "465")
	cfg, err := Load(filename)
	require.NoError(t, err)

	assert.True(t, cfg.AllowNegativeCash)
	assert.True(t, cfg.Replayer().AllowNegativeCash)
	targets := cfg.Targets()
	assert.Len(t, targets, 2)
	assert.True(t, targets["AAPL.US"].Equal(folio.R(0.5)))
	assert.True(t, targets["MSFT.US"].Equal(folio.R(0.3)))
	assert.True(t, cfg.RebalanceThreshold.Equal(NewDecimal(0.1).Decimal))
	assert.Equal(t, 10, cfg.ATR.Period)
	assert.Equal(t, "secret", cfg.EODHD.APIKey)
	assert.Equal(t, 5*time.Second, cfg.EODHD.Timeout)
	assert.Equal(t, 465, cfg.Email.SMTPPort, "an env value is resolved to the field type")
	assert.Empty(t, cfg.Email.SMTPPassword, "an unset variable is null")

	r := cfg.Window.Range(date.MustParse("2024-03-01"), date.MustParse("2025-07-15"))
	assert.Equal(t, "2025-01-01..2025-06-30", r.String())
	r = Window{}.Range(date.MustParse("2024-03-01"), date.MustParse("2025-07-15"))
	assert.Equal(t, "2024-03-01..2025-07-15", r.String())
}

func TestLoad_Environment(t *testing.T) {
	filename := writeConfig(t, "eodhd:\n  concurrency: 2\n")
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(filename), ".env"), []byte("FOLIO_EODHD_API_KEY=from-dotenv\n"), 0o644))
	t.Setenv("FOLIO_EODHD_CONCURRENCY", "8")
	t.Setenv("FOLIO_REBALANCE_THRESHOLD", "0.02")
	t.Setenv("FOLIO_EMAIL_TO", "a@example.com,b@example.com")
	t.Cleanup(func() { os.Unsetenv("FOLIO_EODHD_API_KEY") })

	cfg, err := Load(filename)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.EODHD.Concurrency)
	assert.Equal(t, "from-dotenv", cfg.EODHD.APIKey)
	assert.True(t, cfg.RebalanceThreshold.Equal(NewDecimal(0.02).Decimal))
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, cfg.Email.To)
}

func TestLoad_Missing(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(filepath.Join(dir, DefaultFile))
	require.NoError(t, err, "a missing default file falls back to defaults")
	assert.Equal(t, "USD", cfg.BaseCurrency)

	_, err = Load(filepath.Join(dir, "other.yaml"))
	assert.Error(t, err)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		content string
	}{
		{name: "currency", content: "base_currency: dollars\n"},
		{name: "weight", content: "target_allocations:\n  AAPL.US: 1.5\n"},
		{name: "overallocated", content: "target_allocations:\n  AAPL.US: 0.6\n  MSFT.US: 0.6\n"},
		{name: "threshold", content: "rebalance_threshold: -0.1\n"},
		{name: "decimal", content: "rebalance_threshold: ten\n"},
		{name: "window", content: "window:\n  from: 2025-06-01\n  to: 2025-01-01\n"},
		{name: "window format", content: "window:\n  from: 01/06/2025\n"},
		{name: "log format", content: "log:\n  format: xml\n"},
		{name: "lookback", content: "atr:\n  period: 20\n  lookback: 10\n"},
		{name: "redis", content: "cache:\n  redis:\n    addr: localhost\n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.content))
			assert.Error(t, err)
		})
	}
}

func TestEmail_Validate(t *testing.T) {
	email := Email{
		SMTPHost:        "smtp.example.com",
		SMTPPort:        465,
		SMTPUsername:    "me",
		SMTPPassword:    "secret",
		From:            "me@example.com",
		To:              []string{"you@example.com"},
		SubjectTemplate: "Report {date}",
	}
	settings, err := email.Validate()
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com", settings.Host)
	assert.Equal(t, 465, settings.Port)
	assert.Equal(t, "Report {date}", settings.Subject)

	_, err = Email{SMTPPort: 587, To: []string{"not an address"}}.Validate()
	require.Error(t, err)
	for _, want := range []string{"smtp_host", "smtp_password", "from", "not an address"} {
		assert.Contains(t, err.Error(), want)
	}
}
