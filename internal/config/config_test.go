package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

// ---------------------------------------------------------------------------
// Helper function tests
// ---------------------------------------------------------------------------

func TestGetEnv(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string // nil = don't set; pointer to distinguish "" from unset
		fallback string
		want     string
	}{
		{name: "returns fallback when unset", key: "BOTRELAY_TEST_GETENV_UNSET", setVal: nil, fallback: "default", want: "default"},
		{name: "returns env value when set", key: "BOTRELAY_TEST_GETENV_SET", setVal: strPtr("custom"), fallback: "default", want: "custom"},
		{name: "returns fallback when empty string", key: "BOTRELAY_TEST_GETENV_EMPTY", setVal: strPtr(""), fallback: "default", want: "default"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got := getEnv(tc.key, tc.fallback)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvInt(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback int
		want     int
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "BOTRELAY_TEST_INT_UNSET", setVal: nil, fallback: 42, want: 42},
		{name: "parses valid int", key: "BOTRELAY_TEST_INT_VALID", setVal: strPtr("8080"), fallback: 0, want: 8080},
		{name: "returns fallback for empty string", key: "BOTRELAY_TEST_INT_EMPTY", setVal: strPtr(""), fallback: 25, want: 25},
		{name: "errors on non-numeric", key: "BOTRELAY_TEST_INT_NAN", setVal: strPtr("abc"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvInt(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.key)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvBool(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback bool
		want     bool
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "BOTRELAY_TEST_BOOL_UNSET", setVal: nil, fallback: true, want: true},
		{name: "parses true", key: "BOTRELAY_TEST_BOOL_TRUE", setVal: strPtr("true"), fallback: false, want: true},
		{name: "parses false", key: "BOTRELAY_TEST_BOOL_FALSE", setVal: strPtr("false"), fallback: true, want: false},
		{name: "parses 1", key: "BOTRELAY_TEST_BOOL_ONE", setVal: strPtr("1"), fallback: false, want: true},
		{name: "errors on garbage", key: "BOTRELAY_TEST_BOOL_BAD", setVal: strPtr("yep"), fallback: false, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvBool(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvDuration(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		setVal   *string
		fallback time.Duration
		want     time.Duration
		wantErr  bool
	}{
		{name: "returns fallback when unset", key: "BOTRELAY_TEST_DUR_UNSET", setVal: nil, fallback: time.Minute, want: time.Minute},
		{name: "parses duration", key: "BOTRELAY_TEST_DUR_VALID", setVal: strPtr("90s"), fallback: 0, want: 90 * time.Second},
		{name: "errors on bare number", key: "BOTRELAY_TEST_DUR_BARE", setVal: strPtr("90"), fallback: 0, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.setVal != nil {
				t.Setenv(tc.key, *tc.setVal)
			}

			got, err := getEnvDuration(tc.key, tc.fallback)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestGetEnvList(t *testing.T) {
	t.Run("fallback when unset", func(t *testing.T) {
		got := getEnvList("BOTRELAY_TEST_LIST_UNSET", []string{"http://localhost:5173"})
		assert.Equal(t, []string{"http://localhost:5173"}, got)
	})

	t.Run("splits and trims", func(t *testing.T) {
		t.Setenv("BOTRELAY_TEST_LIST_SET", " https://a.example , https://b.example ,")
		got := getEnvList("BOTRELAY_TEST_LIST_SET", nil)
		assert.Equal(t, []string{"https://a.example", "https://b.example"}, got)
	})
}

// ---------------------------------------------------------------------------
// Load and validation
// ---------------------------------------------------------------------------

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("BOTRELAY_AUTH_SECRET", "an-adequately-long-secret-value-01")
	t.Setenv("BOTRELAY_AUTH_PASSWORD_HASH", "aabbccdd$eeff0011")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 12*time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 512, cfg.Relay.DedupSize)
	assert.Equal(t, 1000, cfg.Relay.LogRetention)
	assert.True(t, cfg.Relay.AutoStart)
}

func TestLoadRequiresAuthSecret(t *testing.T) {
	t.Setenv("BOTRELAY_AUTH_SECRET", "")
	t.Setenv("BOTRELAY_AUTH_PASSWORD_HASH", "aabbccdd$eeff0011")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOTRELAY_AUTH_SECRET")
}

func TestLoadRejectsShortAuthSecret(t *testing.T) {
	t.Setenv("BOTRELAY_AUTH_SECRET", "too-short")
	t.Setenv("BOTRELAY_AUTH_PASSWORD_HASH", "aabbccdd$eeff0011")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 characters")
}

func TestLoadRequiresPasswordHash(t *testing.T) {
	t.Setenv("BOTRELAY_AUTH_SECRET", "an-adequately-long-secret-value-01")
	t.Setenv("BOTRELAY_AUTH_PASSWORD_HASH", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BOTRELAY_AUTH_PASSWORD_HASH")
}

func TestLoadRejectsInvalidBounds(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "db port out of range", key: "BOTRELAY_DB_PORT", value: "70000"},
		{name: "zero max conns", key: "BOTRELAY_DB_MAX_CONNS", value: "0"},
		{name: "zero dedup size", key: "BOTRELAY_RELAY_DEDUP_SIZE", value: "0"},
		{name: "zero log retention", key: "BOTRELAY_RELAY_LOG_RETENTION", value: "0"},
		{name: "negative token ttl", key: "BOTRELAY_AUTH_TOKEN_TTL", value: "-1h"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.key)
		})
	}
}

func TestDSN(t *testing.T) {
	t.Parallel()

	db := DatabaseConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "botrelay",
		Password: "pw",
		DBName:   "botrelay_prod",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=botrelay password=pw dbname=botrelay_prod sslmode=require",
		db.DSN())
}
