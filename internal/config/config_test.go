package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/gymnet")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":5000", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.False(t, cfg.SMTP.Secure)
	assert.False(t, cfg.SMTP.Configured())
}

func TestLoad_MissingDBURL(t *testing.T) {
	// t.Setenv restores the original value after the unset.
	t.Setenv("DB_URL", "unused")
	require.NoError(t, os.Unsetenv("DB_URL"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_SMTP(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/gymnet")
	t.Setenv("SMTP_HOST", "smtp.example.com")
	t.Setenv("SMTP_PORT", "465")
	t.Setenv("SMTP_USER", "mailer@example.com")
	t.Setenv("SMTP_PASS", "secret")
	t.Setenv("SMTP_SECURE", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.SMTP.Configured())
	assert.True(t, cfg.SMTP.Secure)
	assert.Equal(t, 465, cfg.SMTP.Port)
	assert.Equal(t, "mailer@example.com", cfg.SMTP.Sender())
}

func TestSMTPSender(t *testing.T) {
	assert.Equal(t, "from@example.com", SMTP{From: "from@example.com", User: "u@example.com"}.Sender())
	assert.Equal(t, "u@example.com", SMTP{User: "u@example.com"}.Sender())
	assert.Equal(t, "no-reply@gymnet.app", SMTP{}.Sender())
}
