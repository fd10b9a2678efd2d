package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "INR", cfg.Razorpay.Currency)
	assert.Equal(t, 10*time.Second, cfg.Razorpay.Timeout)
	assert.Equal(t, 587, cfg.Email.SMTPPort)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("RAZORPAY_KEY_ID", "rzp_test_key")
	t.Setenv("RAZORPAY_TIMEOUT", "3s")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/trips")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "rzp_test_key", cfg.Razorpay.KeyID)
	assert.Equal(t, 3*time.Second, cfg.Razorpay.Timeout)
	assert.Equal(t, "postgres://u:p@db:5432/trips", cfg.Database.DSN())
}

func TestDSNFromComponents(t *testing.T) {
	c := DatabaseConfig{User: "a", Password: "b", Host: "h", Port: "1", DBName: "d", SSLMode: "disable"}
	assert.Equal(t, "postgres://a:b@h:1/d?sslmode=disable", c.DSN())
}
