package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"wholesale-catalog-service/internal/clients"
)

// Config holds the settings needed to talk to a Shopify store
type Config struct {
	ShopDomain  string // store domain, e.g. example.myshopify.com
	AccessToken string
	APIVersion  string

	// Bulk operation polling
	PollInterval time.Duration
	PollMaxWait  time.Duration

	// Endpoint overrides the computed admin API endpoint. Used by tests.
	Endpoint string
}

// Client is a Shopify Admin GraphQL API client
type Client struct {
	endpoint     string
	accessToken  string
	httpClient   *http.Client
	rateLimiter  *rate.Limiter
	pollInterval time.Duration
	pollMaxWait  time.Duration
	logger       *logrus.Logger
}

// NewClient creates a new Shopify GraphQL client
func NewClient(cfg Config, logger *logrus.Logger) *Client {
	shopDomain := cfg.ShopDomain
	shopDomain = strings.TrimPrefix(shopDomain, "https://")
	shopDomain = strings.TrimPrefix(shopDomain, "http://")
	shopDomain = strings.TrimSuffix(shopDomain, "/")

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s/admin/api/%s/graphql.json", shopDomain, cfg.APIVersion)
	}

	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = 10 * time.Second
	}
	pollMaxWait := cfg.PollMaxWait
	if pollMaxWait <= 0 {
		pollMaxWait = 10 * time.Minute
	}

	return &Client{
		endpoint:     endpoint,
		accessToken:  cfg.AccessToken,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		rateLimiter:  rate.NewLimiter(rate.Limit(2), 1), // 2 requests per second
		pollInterval: pollInterval,
		pollMaxWait:  pollMaxWait,
		logger:       logger,
	}
}

// GraphQLRequest represents a GraphQL request
type GraphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// GraphQLResponse represents a GraphQL response
type GraphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors,omitempty"`
}

// GraphQLError represents a GraphQL error
type GraphQLError struct {
	Message string        `json:"message"`
	Path    []interface{} `json:"path,omitempty"`
}

// Execute executes a GraphQL query/mutation against the Admin API. HTTP and
// network failures are classified into the transient/configuration error
// taxonomy so callers can decide what to retry.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]interface{}) (json.RawMessage, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqBody := GraphQLRequest{Query: query, Variables: variables}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &clients.TransientError{Op: "shopify graphql", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &clients.TransientError{Op: "shopify graphql", Err: err}
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &clients.ConfigurationError{
			Op:     "shopify graphql",
			Reason: fmt.Sprintf("authentication failed (status %d), check shop domain and access token", resp.StatusCode),
		}
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, &clients.TransientError{
			Op:         "shopify graphql",
			StatusCode: resp.StatusCode,
			RetryAfter: clients.ParseRetryAfter(resp),
			Err:        fmt.Errorf("shopify API error: %s", strings.TrimSpace(string(body))),
		}
	case resp.StatusCode >= 400:
		return nil, &clients.ConfigurationError{
			Op:     "shopify graphql",
			Reason: fmt.Sprintf("request rejected (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body))),
		}
	}

	var graphQLResp GraphQLResponse
	if err := json.Unmarshal(body, &graphQLResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(graphQLResp.Errors) > 0 {
		messages := make([]string, len(graphQLResp.Errors))
		for i, gqlErr := range graphQLResp.Errors {
			messages[i] = gqlErr.Message
		}
		return nil, &clients.ConfigurationError{
			Op:     "shopify graphql",
			Reason: "graphql errors: " + strings.Join(messages, "; "),
		}
	}

	return graphQLResp.Data, nil
}
