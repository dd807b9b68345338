package config

import (
	"errors"
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"k8s.io/utils/env"

	"github.com/questai/mongodb-tools-api/internal/constant"
)

// Config holds application configuration
type Config struct {
	// ServiceID identifies this service and is the default audience expected in v2 tokens.
	ServiceID string
	AppTitle  string

	// Server configuration
	Port           string
	Address        string
	APIPrefix      string
	AllowedOrigins []string
	DebugMode      bool
	Secure         bool
	TLS            TLSConfig

	// Token verification
	QuestAISecretKey string
	ClientKeysFile   string
	PublicKeyB64     string

	// Subscription gate
	MarketplaceURL        string
	ServiceTier           string
	SubscriptionCacheTTL  time.Duration
	SubscriptionCacheSize int
	SubscriptionTimeout   time.Duration
	TierCacheRedisURL     string

	// Platform integration and MongoDB
	PlatformURL         string
	PlatformTimeout     time.Duration
	MongoConnectTimeout time.Duration

	LogFile string

	loadErrs []error
}

// Load loads configuration from the environment (a local .env file is honoured)
// and binds command line flags on flag.CommandLine. Call flag.Parse and then Validate.
func Load() *Config {
	c := LoadFromEnv()
	c.bindFlags(flag.CommandLine)
	return c
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() *Config {
	// .env is optional; a missing file is not an error
	_ = godotenv.Load()

	c := &Config{
		ServiceID:         env.GetString("SERVICE_ID", constant.DefaultServiceID),
		AppTitle:          env.GetString("APP_TITLE", constant.DefaultAppTitle),
		Port:              env.GetString("PORT", "8080"),
		Address:           env.GetString("ADDRESS", ""),
		APIPrefix:         env.GetString("API_V1_STR", constant.DefaultAPIPrefix),
		AllowedOrigins:    splitList(env.GetString("ALLOWED_ORIGINS", "*")),
		QuestAISecretKey:  env.GetString("QUEST_AI_SECRET_KEY", ""),
		ClientKeysFile:    env.GetString("CLIENT_KEYS_FILE", ""),
		PublicKeyB64:      env.GetString("PUBLIC_KEY_B64", ""),
		MarketplaceURL:    env.GetString("MARKETPLACE_URL", constant.DefaultMarketplaceURL),
		ServiceTier:       strings.ToUpper(env.GetString("SERVICE_TIER", constant.DefaultServiceTier)),
		PlatformURL:       platformURL(),
		TierCacheRedisURL: env.GetString("TIER_CACHE_REDIS_URL", ""),
		LogFile:           env.GetString("LOG_FILE", ""),
		TLS:               loadTLSConfig(),
	}

	debug, err := env.GetBool("DEBUG_MODE", false)
	c.collect("DEBUG_MODE", err)
	c.DebugMode = debug

	size, err := env.GetInt("SUBSCRIPTION_CACHE_SIZE", constant.DefaultSubscriptionCacheSize)
	c.collect("SUBSCRIPTION_CACHE_SIZE", err)
	c.SubscriptionCacheSize = size

	c.SubscriptionCacheTTL = c.duration("SUBSCRIPTION_CACHE_TTL", constant.DefaultSubscriptionCacheTTL)
	c.SubscriptionTimeout = c.duration("SUBSCRIPTION_TIMEOUT", constant.DefaultSubscriptionTimeout)
	c.PlatformTimeout = c.duration("PLATFORM_TIMEOUT", constant.DefaultPlatformTimeout)
	c.MongoConnectTimeout = c.duration("MONGODB_CONNECT_TIMEOUT", constant.DefaultMongoConnectTimeout)

	return c
}

// bindFlags binds selected config options to the given flagset
func (c *Config) bindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.ServiceID, "service-id", c.ServiceID, "Service identifier, used as the expected token audience")
	fs.StringVar(&c.Port, "port", c.Port, "Port to listen on")
	fs.StringVar(&c.Address, "address", c.Address, "Address to listen on (overrides --port)")
	fs.BoolVar(&c.DebugMode, "debug", c.DebugMode, "Enable debug logging and permissive CORS")
	fs.StringVar(&c.ClientKeysFile, "client-keys-file", c.ClientKeysFile, "YAML file mapping client_id to HMAC secret")
	fs.StringVar(&c.MarketplaceURL, "marketplace-url", c.MarketplaceURL, "Base URL of the subscription service")
	fs.StringVar(&c.ServiceTier, "service-tier", c.ServiceTier, "Minimum subscription tier required (FREE, BASIC, STANDARD, PRO, ENTERPRISE)")
	fs.StringVar(&c.PlatformURL, "platform-url", c.PlatformURL, "Base URL of the platform integration service")
	c.TLS.bindFlags(fs)
}

// Validate checks that required values are present and normalises derived fields.
// A non-nil error is fatal at startup.
func (c *Config) Validate() error {
	errs := append([]error(nil), c.loadErrs...)

	required := []struct {
		name  string
		value string
	}{
		{"QUEST_AI_SECRET_KEY", c.QuestAISecretKey},
		{"PUBLIC_KEY_B64", c.PublicKeyB64},
		{"PLATFRORM_INT_URL", c.PlatformURL},
		{"MARKETPLACE_URL", c.MarketplaceURL},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", r.name))
		}
	}

	if c.SubscriptionCacheSize <= 0 {
		errs = append(errs, fmt.Errorf("SUBSCRIPTION_CACHE_SIZE must be positive, got %d", c.SubscriptionCacheSize))
	}
	if c.SubscriptionCacheTTL <= 0 {
		errs = append(errs, fmt.Errorf("SUBSCRIPTION_CACHE_TTL must be positive, got %s", c.SubscriptionCacheTTL))
	}

	if err := c.TLS.validate(); err != nil {
		errs = append(errs, err)
	}
	c.Secure = c.TLS.Enabled()

	if c.Address == "" {
		c.Address = ":" + c.Port
	}
	c.ServiceTier = strings.ToUpper(strings.TrimSpace(c.ServiceTier))
	c.APIPrefix = "/" + strings.Trim(c.APIPrefix, "/")

	return errors.Join(errs...)
}

func (c *Config) collect(key string, err error) {
	if err != nil {
		c.loadErrs = append(c.loadErrs, fmt.Errorf("invalid %s: %w", key, err))
	}
}

func (c *Config) duration(key string, defaultValue time.Duration) time.Duration {
	raw := env.GetString(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		c.collect(key, err)
		return defaultValue
	}
	return d
}

// platformURL prefers the misspelt PLATFRORM_INT_URL that existing deployments set.
func platformURL() string {
	if v := env.GetString("PLATFRORM_INT_URL", ""); v != "" {
		return v
	}
	return env.GetString("PLATFORM_INT_URL", "")
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
