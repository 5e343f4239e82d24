// Package shopify implements the GraphQL client capability against the
// Shopify Admin API.
package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"catalog-sync-service/internal/clients"
)

const apiVersion = "2024-01"

// Client is a Shopify Admin GraphQL client.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	accessToken string
	rateLimiter *rate.Limiter
}

// NewClient creates a client for the given store subdomain and access token.
func NewClient(store, accessToken string) *Client {
	return &Client{
		httpClient:  &http.Client{Timeout: 30 * time.Second},
		endpoint:    fmt.Sprintf("https://%s.myshopify.com/admin/api/%s/graphql.json", store, apiVersion),
		accessToken: accessToken,
		rateLimiter: rate.NewLimiter(rate.Limit(2), 1), // 2 requests per second
	}
}

// Execute posts one GraphQL operation and returns the decoded response
// document. Any failure below the document level is a TransportError.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]interface{}) (map[string]interface{}, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, &clients.TransportError{Op: "rate limit wait", Err: err}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		return nil, &clients.TransportError{Op: "encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &clients.TransportError{Op: "build request", Err: err}
	}
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &clients.TransportError{Op: "execute query", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &clients.TransportError{Op: "read response", Err: err}
	}

	if resp.StatusCode >= 400 {
		return nil, &clients.TransportError{
			Op:  "execute query",
			Err: fmt.Errorf("status %d: %s", resp.StatusCode, string(body)),
		}
	}

	var document map[string]interface{}
	if err := json.Unmarshal(body, &document); err != nil {
		return nil, &clients.TransportError{Op: "decode response", Err: err}
	}

	return document, nil
}
