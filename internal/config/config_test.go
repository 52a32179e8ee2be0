package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DISPATCH_MODE", "")
	t.Setenv("LEDGER_PAYMENT_LOOKUP", "")
	t.Setenv("API_KEY_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Address)
	assert.Equal(t, int64(25<<20), cfg.MaxFileSize)
	assert.Equal(t, DispatchAsynq, cfg.DispatchMode)
	assert.Equal(t, PaymentLookupLinked, cfg.PaymentLookup)
	assert.Equal(t, 30*time.Minute, cfg.ImportStaleAfter)
	assert.Len(t, cfg.APIKeySecret, 32)
	assert.False(t, cfg.SMTPEnabled())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STAFFDROP_ADDRESS", ":9090")
	t.Setenv("STAFFDROP_WORKERS", "0")
	t.Setenv("DISPATCH_MODE", "LOCAL")
	t.Setenv("IMPORT_STALE_AFTER", "90s")
	t.Setenv("S3_USE_SSL", "true")
	t.Setenv("SMTP_HOST", "mail.example.com")
	t.Setenv("API_KEY_SECRET", "pepper")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Address)
	assert.Equal(t, defaultWorkerCount, cfg.ProcessingPool, "non-positive pool falls back")
	assert.Equal(t, DispatchLocal, cfg.DispatchMode)
	assert.Equal(t, 90*time.Second, cfg.ImportStaleAfter)
	assert.True(t, cfg.S3UseSSL)
	assert.True(t, cfg.SMTPEnabled())
	assert.Equal(t, []byte("pepper"), cfg.APIKeySecret)
}

func TestLoadRejectsUnknownModes(t *testing.T) {
	t.Setenv("DISPATCH_MODE", "carrier-pigeon")
	_, err := Load()
	require.Error(t, err)

	t.Setenv("DISPATCH_MODE", "inline")
	t.Setenv("LEDGER_PAYMENT_LOOKUP", "introspect")
	_, err = Load()
	require.Error(t, err)
}

func TestValidateServerRejectsInline(t *testing.T) {
	cfg := &Config{DispatchMode: DispatchInline}
	require.Error(t, cfg.ValidateServer())

	for _, mode := range []string{DispatchAsynq, DispatchLocal, DispatchNone} {
		cfg.DispatchMode = mode
		assert.NoError(t, cfg.ValidateServer(), mode)
	}
}
