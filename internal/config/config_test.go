package config

import (
	"crypto/tls"
	"flag"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("QUEST_AI_SECRET_KEY", "secret")
	t.Setenv("PUBLIC_KEY_B64", "cHVibGlj")
	t.Setenv("PLATFRORM_INT_URL", "http://platform.local")
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "mongo_db_tools", cfg.ServiceID)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, ":8080", cfg.Address)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "BASIC", cfg.ServiceTier)
	assert.Equal(t, 500*time.Second, cfg.SubscriptionCacheTTL)
	assert.Equal(t, 256, cfg.SubscriptionCacheSize)
	assert.Equal(t, 10*time.Second, cfg.SubscriptionTimeout)
	assert.Equal(t, 60*time.Second, cfg.PlatformTimeout)
	assert.False(t, cfg.Secure)
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVICE_TIER", "pro")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SUBSCRIPTION_CACHE_TTL", "30s")
	t.Setenv("SUBSCRIPTION_CACHE_SIZE", "4")
	t.Setenv("API_V1_STR", "api/v2/")
	t.Setenv("PORT", "9090")

	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "PRO", cfg.ServiceTier)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, 30*time.Second, cfg.SubscriptionCacheTTL)
	assert.Equal(t, 4, cfg.SubscriptionCacheSize)
	assert.Equal(t, "/api/v2", cfg.APIPrefix)
	assert.Equal(t, ":9090", cfg.Address)
}

func TestLoadFromEnv_PlatformURLFallback(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("PLATFRORM_INT_URL", "")
	t.Setenv("PLATFORM_INT_URL", "http://fallback.local")

	cfg := LoadFromEnv()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "http://fallback.local", cfg.PlatformURL)
}

func TestValidate_MissingRequired(t *testing.T) {
	t.Setenv("QUEST_AI_SECRET_KEY", "")
	t.Setenv("PUBLIC_KEY_B64", "")
	t.Setenv("PLATFRORM_INT_URL", "")
	t.Setenv("PLATFORM_INT_URL", "")

	err := LoadFromEnv().Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "QUEST_AI_SECRET_KEY is required")
	assert.Contains(t, err.Error(), "PUBLIC_KEY_B64 is required")
	assert.Contains(t, err.Error(), "PLATFRORM_INT_URL is required")
}

func TestValidate_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{name: "bad duration", key: "SUBSCRIPTION_CACHE_TTL", value: "soon", wantErr: "invalid SUBSCRIPTION_CACHE_TTL"},
		{name: "bad size", key: "SUBSCRIPTION_CACHE_SIZE", value: "many", wantErr: "invalid SUBSCRIPTION_CACHE_SIZE"},
		{name: "zero size", key: "SUBSCRIPTION_CACHE_SIZE", value: "0", wantErr: "must be positive"},
		{name: "bad tls version", key: "TLS_MIN_VERSION", value: "1.1", wantErr: "unsupported TLS version"},
		{name: "cert without key", key: "TLS_CERT", value: "/tmp/cert.pem", wantErr: "must both be provided"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.key, tt.value)

			err := LoadFromEnv().Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestBindFlags(t *testing.T) {
	setRequiredEnv(t)

	cfg := LoadFromEnv()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg.bindFlags(fs)

	require.NoError(t, fs.Parse([]string{
		"--service-tier", "enterprise",
		"--address", "127.0.0.1:7000",
		"--tls-self-signed",
		"--tls-min-version", "1.3",
	}))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "ENTERPRISE", cfg.ServiceTier)
	assert.Equal(t, "127.0.0.1:7000", cfg.Address)
	assert.True(t, cfg.Secure)
	assert.Equal(t, uint16(tls.VersionTLS13), cfg.TLS.MinVersion.Value())
}

func TestClientKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clients.yaml")
	require.NoError(t, os.WriteFile(path, []byte("partner_portal: p4rtner\nquest_ai: overridden\n"), 0o600))

	cfg := &Config{QuestAISecretKey: "from-env", ClientKeysFile: path}
	keys, err := cfg.ClientKeys()
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"quest_ai":       "overridden",
		"partner_portal": "p4rtner",
	}, keys)
}

func TestClientKeys_EnvOnly(t *testing.T) {
	cfg := &Config{QuestAISecretKey: "from-env"}
	keys, err := cfg.ClientKeys()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"quest_ai": "from-env"}, keys)
}

func TestClientKeys_InvalidFile(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "not a mapping", content: "- a\n- b\n", wantErr: "failed to parse"},
		{name: "empty secret", content: "partner: \"\"\n", wantErr: "empty secret"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			_, err := (&Config{ClientKeysFile: path}).ClientKeys()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	_, err := (&Config{ClientKeysFile: filepath.Join(dir, "missing.yaml")}).ClientKeys()
	require.Error(t, err)
}
