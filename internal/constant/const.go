package constant

import "time"

const (
	DefaultServiceID   = "mongo_db_tools"
	DefaultAppTitle    = "MongoDB Tools"
	DefaultAPIPrefix   = "/api/v1"
	DefaultServiceTier = "BASIC"

	DefaultMarketplaceURL = "https://agents-api-staging.mangobeach-c18b898d.switzerlandnorth.azurecontainerapps.io"

	// SubscriptionPath is appended to the marketplace base URL.
	SubscriptionPath = "/api/v1/subscription"

	DefaultSubscriptionCacheTTL  = 500 * time.Second
	DefaultSubscriptionCacheSize = 256
	DefaultSubscriptionTimeout   = 10 * time.Second
	DefaultPlatformTimeout       = 60 * time.Second
	DefaultMongoConnectTimeout   = 10 * time.Second

	// ClientQuestAI is the client_id whose HMAC key comes from QUEST_AI_SECRET_KEY.
	ClientQuestAI = "quest_ai"

	// Header configuration constants.
	HeaderAuthorization = "Authorization"
	HeaderRequestID     = "X-Request-ID"
	BearerPrefix        = "Bearer "

	// Gin context keys.
	ContextKeyToken     = "token"
	ContextKeyTier      = "tier"
	ContextKeyRequestID = "request_id"
)
