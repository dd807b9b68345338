// Package platform talks to the platform-integration service, which owns per-project
// MongoDB connection details and delegated third-party tokens.
//
// Only GetMongoDBDetails backs an HTTP route. GetGraphToken and GetPowerAutomateFlow
// exist for tool integrations and have no route of their own.
package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/questai/mongodb-tools-api/internal/constant"
	"github.com/questai/mongodb-tools-api/internal/logger"
)

const (
	operationMongoDBDetails = "mongodb details"
	operationGraphToken     = "graph token"
	operationFlow           = "flow details"

	// maxErrorBody caps how much of an upstream error body is kept.
	maxErrorBody = 4096
)

var ErrMissingConnectionString = errors.New("platform returned no connection string")

// Client is a platform-integration client. All calls forward the caller's bearer token.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a client for the platform at baseURL. Each call is bounded by timeout.
func NewClient(log *logger.Logger, baseURL string, timeout time.Duration) *Client {
	if log == nil {
		log = logger.Production()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// GetMongoDBDetails fetches the connection details of a MongoDB project.
func (c *Client) GetMongoDBDetails(ctx context.Context, token, project string) (*MongoDBDetails, error) {
	endpoint := c.baseURL + "/api/v1/mongodb_connections/" + url.PathEscape(project)

	var details MongoDBDetails
	if err := c.get(ctx, operationMongoDBDetails, token, endpoint, &details); err != nil {
		return nil, err
	}
	if details.ConnectionString == "" {
		c.logger.Error("Platform returned empty MongoDB details", "project", project)
		return nil, ErrMissingConnectionString
	}

	return &details, nil
}

// GetGraphToken fetches a Microsoft Graph token for one of the Scope* values.
func (c *Client) GetGraphToken(ctx context.Context, token, scope string) (string, error) {
	endpoint := c.baseURL + "/api/v1/ms-graph/token?" + url.Values{"scope": {scope}}.Encode()

	var graph GraphToken
	if err := c.get(ctx, operationGraphToken, token, endpoint, &graph); err != nil {
		return "", err
	}

	return graph.AccessToken, nil
}

// GetPowerAutomateFlow fetches a flow by name or object id.
func (c *Client) GetPowerAutomateFlow(ctx context.Context, token, flow string) (Flow, error) {
	endpoint := c.baseURL + "/api/v1/power_automate/flows/" + url.PathEscape(flow)

	var details Flow
	if err := c.get(ctx, operationFlow, token, endpoint, &details); err != nil {
		return nil, err
	}

	return details, nil
}

func (c *Client) get(ctx context.Context, operation, token, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		c.logger.Error("Failed to build platform request", "operation", operation, "error", err)
		return fmt.Errorf("failed to build %s request: %w", operation, err)
	}
	req.Header.Set(constant.HeaderAuthorization, constant.BearerPrefix+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("Platform request failed", "operation", operation, "error", err)
		return fmt.Errorf("failed to get %s: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Error("Platform returned an error",
			"operation", operation,
			"status", resp.StatusCode,
			"body", string(body),
		)
		return &UpstreamError{Operation: operation, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.logger.Error("Failed to decode platform response", "operation", operation, "error", err)
		return fmt.Errorf("failed to decode %s: %w", operation, err)
	}

	return nil
}
