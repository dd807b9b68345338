package fixtures

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/questai/mongodb-tools-api/internal/constant"
)

// SubscriptionStub configures a fake marketplace subscription service.
// Fields must not be changed once the server is started.
type SubscriptionStub struct {
	// Tiers maps a bearer token to the tier reported for it. Unknown tokens get a body
	// without subscription_package.
	Tiers map[string]string
	// Status, when non-zero, replaces the response status and RawBody becomes the body.
	Status int
	// RawBody, when set, is returned verbatim.
	RawBody string
	// Delay is applied before answering, aborted when the client goes away.
	Delay time.Duration

	calls atomic.Int64
}

// Calls returns how many requests reached the service.
func (s *SubscriptionStub) Calls() int {
	return int(s.calls.Load())
}

// NewSubscriptionServer starts a fake marketplace serving GET /api/v1/subscription.
func NewSubscriptionServer(t *testing.T, stub *SubscriptionStub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.GET(constant.SubscriptionPath, func(c *gin.Context) {
		stub.calls.Add(1)

		if stub.Delay > 0 {
			select {
			case <-time.After(stub.Delay):
			case <-c.Request.Context().Done():
				return
			}
		}

		if stub.Status != 0 {
			c.Data(stub.Status, "application/json", []byte(stub.RawBody))
			return
		}
		if stub.RawBody != "" {
			c.Data(http.StatusOK, "application/json", []byte(stub.RawBody))
			return
		}

		token := strings.TrimPrefix(c.GetHeader(constant.HeaderAuthorization), constant.BearerPrefix)
		tier, ok := stub.Tiers[token]
		if !ok {
			c.JSON(http.StatusOK, gin.H{})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"subscription_package": gin.H{"tier": tier},
		})
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

// PlatformStub configures a fake platform-integration service.
type PlatformStub struct {
	// ConnectionStrings maps a project to its MongoDB connection string.
	ConnectionStrings map[string]string
	// GraphTokens maps a scope to the token returned for it.
	GraphTokens map[string]string
	// Flows maps a flow name or id to its details.
	Flows map[string]map[string]any
	// Status, when non-zero, makes every endpoint fail with this status.
	Status int

	mu     sync.Mutex
	tokens []string
}

// Tokens returns the bearer tokens received, in order.
func (s *PlatformStub) Tokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tokens...)
}

func (s *PlatformStub) record(c *gin.Context) bool {
	s.mu.Lock()
	s.tokens = append(s.tokens, strings.TrimPrefix(c.GetHeader(constant.HeaderAuthorization), constant.BearerPrefix))
	s.mu.Unlock()

	if s.Status != 0 {
		c.String(s.Status, "platform unavailable")
		return false
	}
	return true
}

// NewPlatformServer starts a fake platform-integration service.
func NewPlatformServer(t *testing.T, stub *PlatformStub) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	router := gin.New()
	api := router.Group("/api/v1")

	api.GET("/mongodb_connections/:project", func(c *gin.Context) {
		if !stub.record(c) {
			return
		}
		conn, ok := stub.ConnectionStrings[c.Param("project")]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"detail": "project not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"connection_string": conn})
	})

	api.GET("/ms-graph/token", func(c *gin.Context) {
		if !stub.record(c) {
			return
		}
		token, ok := stub.GraphTokens[c.Query("scope")]
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"detail": "unsupported scope"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"access_token": token})
	})

	api.GET("/power_automate/flows/:flow", func(c *gin.Context) {
		if !stub.record(c) {
			return
		}
		flow, ok := stub.Flows[c.Param("flow")]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"detail": "flow not found"})
			return
		}
		c.JSON(http.StatusOK, flow)
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}
