package sdk

import "net/http"

// addAuthHeaders adds the bearer token header expected by the control plane.
// Returns an error if no API key is configured.
func (c *Client) addAuthHeaders(req *http.Request) error {
	if c.APIKey == "" {
		return ErrMissingAuth
	}
	// Central accepts the lowercase scheme; keep it as the original tooling
	// sent it.
	req.Header.Set("Authorization", "bearer "+c.APIKey)
	return nil
}
