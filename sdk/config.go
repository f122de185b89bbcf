package sdk

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// DefaultBaseURL is the hosted ZeroTier Central control plane.
const DefaultBaseURL = "https://my.zerotier.com"

// ClientConfig contains the configuration for creating a new SDK client.
type ClientConfig struct {
	// BaseURL is the control plane base URL. Defaults to DefaultBaseURL;
	// override for self-hosted controllers.
	BaseURL string

	// APIKey is the bearer token used to authenticate API calls. Central
	// scopes keys per account, and declarations may carry a different key
	// per network, so a client is created per network.
	APIKey string

	// HTTPClient is the HTTP client to use for requests.
	// Optional: if nil, a default client with reasonable timeouts is created.
	HTTPClient *http.Client

	// RetryAttempts is the number of times to retry requests that fail with
	// network errors or 5xx responses. Zero means a single attempt: failures
	// surface immediately and the run must be repeated, which is the
	// behaviour one-shot `zthost apply` wants. The daemon loop may opt in to
	// retries since it reconciles continuously.
	RetryAttempts int

	// RetryWaitMin is the minimum wait time between retries.
	// Default: 1 second.
	RetryWaitMin time.Duration

	// RetryWaitMax is the maximum wait time between retries.
	// Default: 30 seconds.
	RetryWaitMax time.Duration

	// Timeout is the HTTP request timeout.
	// Default: 30 seconds.
	Timeout time.Duration

	// RateLimit caps outgoing requests per second. Central enforces API
	// rate limits, so the client throttles itself rather than burning the
	// budget and surfacing 429s. Default: 10 requests/second, burst 10.
	// Set negative to disable.
	RateLimit float64
}

// Validate checks if the client configuration is valid and sets defaults.
func (c *ClientConfig) Validate() error {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}

	c.BaseURL = strings.TrimSuffix(strings.TrimSpace(c.BaseURL), "/")
	if !strings.HasPrefix(c.BaseURL, "http://") && !strings.HasPrefix(c.BaseURL, "https://") {
		return fmt.Errorf("%w: base URL must start with http:// or https://", ErrInvalidConfig)
	}

	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: api key is required", ErrInvalidConfig)
	}

	if c.RetryWaitMin == 0 {
		c.RetryWaitMin = 1 * time.Second
	}
	if c.RetryWaitMax == 0 {
		c.RetryWaitMax = 30 * time.Second
	}
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.RateLimit == 0 {
		c.RateLimit = 10
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{
			Timeout: c.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}

	return nil
}

// limiter builds the request rate limiter from the config, or nil when
// limiting is disabled.
func (c *ClientConfig) limiter() *rate.Limiter {
	if c.RateLimit < 0 {
		return nil
	}
	burst := int(c.RateLimit)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.RateLimit), burst)
}
