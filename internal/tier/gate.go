package tier

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/questai/mongodb-tools-api/internal/auth"
	"github.com/questai/mongodb-tools-api/internal/constant"
	"github.com/questai/mongodb-tools-api/internal/handlers"
	"github.com/questai/mongodb-tools-api/internal/logger"
)

var errNoToken = errors.New("no verified token")

// Resolver resolves the tier of a caller identified by request headers.
type Resolver interface {
	Lookup(ctx context.Context, headers map[string]string) Lookup
}

var _ Resolver = (*Cache)(nil)

// Gate admits callers whose subscription tier is at least the configured minimum.
type Gate struct {
	resolver Resolver
	minimum  Tier
	logger   *logger.Logger
}

func NewGate(log *logger.Logger, resolver Resolver, minimum Tier) *Gate {
	if log == nil {
		log = logger.Production()
	}
	return &Gate{
		resolver: resolver,
		minimum:  minimum,
		logger:   log,
	}
}

// Minimum returns the tier required by the gate.
func (g *Gate) Minimum() Tier {
	return g.minimum
}

// Resolve looks up the caller's tier using their raw bearer token.
func (g *Gate) Resolve(ctx context.Context, token *auth.TokenData) Lookup {
	return g.resolver.Lookup(ctx, map[string]string{
		constant.HeaderAuthorization: constant.BearerPrefix + token.AccessToken,
	})
}

// Authorize returns the caller's tier, or a *ForbiddenError when it is below the minimum.
func (g *Gate) Authorize(ctx context.Context, token *auth.TokenData) (Tier, error) {
	if token == nil {
		return Free, errNoToken
	}

	lookup := g.Resolve(ctx, token)
	if !lookup.Tier.AtLeast(g.minimum) {
		g.logger.Info("Subscription tier too low",
			"user", token.Email,
			"tier", lookup.Tier,
			"required", g.minimum,
			"defaulted", lookup.Defaulted,
		)
		return lookup.Tier, &ForbiddenError{Required: g.minimum, Actual: lookup.Tier}
	}

	return lookup.Tier, nil
}

// RequireSubscription creates a middleware that runs after auth.RequireToken and
// stores the caller's Tier in the gin context.
func (g *Gate) RequireSubscription() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.TokenFromContext(c)
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			handlers.Abort(c, http.StatusUnauthorized, handlers.CodeUnauthorized, "Could not validate credentials")
			return
		}

		tier, err := g.Authorize(c.Request.Context(), token)
		if err != nil {
			var forbiddenErr *ForbiddenError
			if errors.As(err, &forbiddenErr) {
				handlers.Abort(c, http.StatusForbidden, handlers.CodeForbidden, forbiddenErr.Error())
				return
			}
			handlers.Abort(c, http.StatusInternalServerError, handlers.CodeInternalError, err.Error())
			return
		}

		c.Set(constant.ContextKeyTier, tier)
		c.Next()
	}
}

// FromContext returns the tier stored by RequireSubscription.
func FromContext(c *gin.Context) (Tier, bool) {
	value, exists := c.Get(constant.ContextKeyTier)
	if !exists {
		return Free, false
	}
	tier, ok := value.(Tier)
	return tier, ok
}
