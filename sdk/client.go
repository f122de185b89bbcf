// Package sdk implements a client for the ZeroTier Central control plane
// API. It covers the member-management subset zthost needs: validating an
// API key against a network, fetching a member record, and posting member
// configuration updates.
package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client is an SDK client scoped to one control plane and one API key.
// Declarations carry a key per network, so the reconciler creates one
// Client per declared network.
type Client struct {
	// BaseURL is the control plane base URL without a trailing slash.
	BaseURL string

	// APIKey is the bearer token for API calls.
	APIKey string

	// HTTPClient is the HTTP client used for requests.
	HTTPClient *http.Client

	// RetryAttempts is the number of times to retry failed requests.
	RetryAttempts int

	// RetryWaitMin is the minimum wait time between retries.
	RetryWaitMin time.Duration

	// RetryWaitMax is the maximum wait time between retries.
	RetryWaitMax time.Duration

	// limiter throttles outgoing requests; nil disables limiting.
	limiter *rate.Limiter
}

// NewClient creates a new SDK client with the given configuration.
func NewClient(config ClientConfig) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		BaseURL:       config.BaseURL,
		APIKey:        config.APIKey,
		HTTPClient:    config.HTTPClient,
		RetryAttempts: config.RetryAttempts,
		RetryWaitMin:  config.RetryWaitMin,
		RetryWaitMax:  config.RetryWaitMax,
		limiter:       config.limiter(),
	}, nil
}

// GetNetwork fetches a network record. A successful fetch doubles as API key
// validation for that network: Central returns 401 for bad keys and 404 for
// networks the key cannot see.
func (c *Client) GetNetwork(ctx context.Context, networkID string) (*Network, error) {
	path := fmt.Sprintf("/api/network/%s", networkID)

	var network Network
	if err := c.doJSONRequest(ctx, http.MethodGet, path, nil, &network); err != nil {
		return nil, fmt.Errorf("failed to get network %s: %w", networkID, err)
	}

	return &network, nil
}

// GetMember fetches the member record for a node on a network.
func (c *Client) GetMember(ctx context.Context, networkID, nodeID string) (*Member, error) {
	path := fmt.Sprintf("/api/network/%s/member/%s", networkID, nodeID)

	var member Member
	if err := c.doJSONRequest(ctx, http.MethodGet, path, nil, &member); err != nil {
		return nil, fmt.Errorf("failed to get member %s on network %s: %w", nodeID, networkID, err)
	}

	return &member, nil
}

// UpdateMember posts a member record for a node on a network. The control
// plane applies the posted fields and returns the stored record.
func (c *Client) UpdateMember(ctx context.Context, networkID, nodeID string, member *Member) (*Member, error) {
	path := fmt.Sprintf("/api/network/%s/member/%s", networkID, nodeID)

	var updated Member
	if err := c.doJSONRequest(ctx, http.MethodPost, path, member, &updated); err != nil {
		return nil, fmt.Errorf("failed to update member %s on network %s: %w", nodeID, networkID, err)
	}

	return &updated, nil
}

// DeleteMember removes the member record for a node on a network. Central
// treats deleting an absent member as success, so the call is idempotent.
func (c *Client) DeleteMember(ctx context.Context, networkID, nodeID string) error {
	path := fmt.Sprintf("/api/network/%s/member/%s", networkID, nodeID)

	if err := c.doJSONRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete member %s on network %s: %w", nodeID, networkID, err)
	}

	return nil
}

// doRequest performs an HTTP request against the control plane and maps
// auth/rate/not-found failures to sentinel errors.
func (c *Client) doRequest(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	fullURL := c.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if err := c.addAuthHeaders(req); err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.doRequestWithRetry(ctx, req)
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		drainAndCloseBody(resp)
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		drainAndCloseBody(resp)
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		drainAndCloseBody(resp)
		return nil, ErrRateLimited
	}

	return resp, nil
}

// parseJSONResponse parses a JSON response body into the provided destination.
func (c *Client) parseJSONResponse(resp *http.Response, dest interface{}) error {
	defer drainAndCloseBody(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return fmt.Errorf("failed to parse JSON response: %w", err)
	}

	return nil
}

// parseErrorResponse attempts to parse an error response from the control plane.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	status := resp.StatusCode

	var apiErr apiError
	if err := c.parseJSONResponse(resp, &apiErr); err != nil {
		return fmt.Errorf("request failed with status %d", status)
	}

	if apiErr.Message != "" {
		return fmt.Errorf("control plane error (status %d): %s", status, apiErr.Message)
	}

	return fmt.Errorf("request failed with status %d", status)
}

// doJSONRequest performs a request with an optional JSON body and parses the
// JSON response.
func (c *Client) doJSONRequest(ctx context.Context, method, path string, reqBody, respBody interface{}) error {
	var body io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.parseErrorResponse(resp)
	}

	if respBody != nil {
		return c.parseJSONResponse(resp, respBody)
	}

	drainAndCloseBody(resp)
	return nil
}
