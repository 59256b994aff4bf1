package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 7*24*time.Hour, cfg.Settlement.HoldWindow)
	assert.Equal(t, "0.1", cfg.Settlement.PlatformFee.String())
	assert.Equal(t, "0.1", cfg.Settlement.VATRate.String())
	assert.Equal(t, "0 */10 * * * *", cfg.Settlement.SweepCron)
	assert.True(t, cfg.IsDevelopment())
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("SETTLEMENT_HOLD_DAYS=3\nKAFKA_BROKERS=a:9092, b:9092\n"), 0o600))
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("SETTLEMENT_HOLD_DAYS", "")
	t.Setenv("KAFKA_BROKERS", "")
	os.Unsetenv("SETTLEMENT_HOLD_DAYS")
	os.Unsetenv("KAFKA_BROKERS")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*24*time.Hour, cfg.Settlement.HoldWindow)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.KafkaBrokers)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	t.Setenv("ENVIRONMENT", "development")

	_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	assert.NoError(t, err)
}

func TestLoad_BankInfoKey(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		key     string
		wantErr bool
	}{
		{"valid key", "production", "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f", false},
		{"short key", "production", "0001", true},
		{"missing in production", "production", "", true},
		{"missing in development", "development", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("ENVIRONMENT", tt.env)
			t.Setenv("BANK_INFO_KEY", tt.key)

			cfg, err := Load("")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.key != "" {
				assert.Equal(t, byte(0x1f), cfg.Settlement.BankInfoKey[31])
			}
		})
	}
}
