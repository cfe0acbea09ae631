package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/logging"
)

const (
	defaultAPIURL     = "https://ipapi.co/json/"
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultRetryDelay = 1 * time.Second
	defaultVersion    = "dev"
)

// Client fetches the approximate position of this machine from an IP
// geolocation service
type Client struct {
	httpClient *http.Client
	url        string
	maxRetries int
	retryDelay time.Duration
	version    string
	logger     *logrus.Entry
}

// ClientOption is a function that configures a Client
type ClientOption func(*Client)

// WithURL sets a custom API URL
func WithURL(url string) ClientOption {
	return func(c *Client) {
		c.url = url
	}
}

// WithTimeout sets a custom timeout for HTTP requests
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithMaxRetries sets the maximum number of retry attempts
func WithMaxRetries(maxRetries int) ClientOption {
	return func(c *Client) {
		c.maxRetries = maxRetries
	}
}

// WithRetryDelay sets the initial delay between retries
func WithRetryDelay(delay time.Duration) ClientOption {
	return func(c *Client) {
		c.retryDelay = delay
	}
}

// WithVersion sets the version string for the User-Agent header
func WithVersion(version string) ClientOption {
	return func(c *Client) {
		c.version = version
	}
}

// WithLogger sets the logger for the client
func WithLogger(logger *logrus.Entry) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a new API client with the given options
func NewClient(opts ...ClientOption) *Client {
	client := &Client{
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		url:        defaultAPIURL,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		version:    defaultVersion,
		logger:     logging.Discard(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// UserLocation represents the response of the geolocation API
type UserLocation struct {
	IP        string  `json:"ip"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country_name"`
	City      string  `json:"city"`

	// Set by the service instead of a position when it refuses the request
	Failed bool   `json:"error"`
	Reason string `json:"reason"`
}

// Location returns the coordinate part of the response
func (u UserLocation) Location() geo.Location {
	return geo.Location{Latitude: u.Latitude, Longitude: u.Longitude}
}

// Error represents a structured error from the API client
type Error struct {
	StatusCode int
	Retriable  bool
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("API error: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetriableStatusCode determines if an HTTP status code should trigger a retry
func IsRetriableStatusCode(statusCode int) bool {
	return statusCode == http.StatusServiceUnavailable ||
		statusCode == http.StatusTooManyRequests ||
		statusCode == http.StatusRequestTimeout ||
		statusCode >= 500
}

// GetUserLocation fetches the current position, retrying transient failures
// with exponential backoff
func (c *Client) GetUserLocation(ctx context.Context) (*UserLocation, error) {
	var lastErr error

	c.logger.Debugf("Fetching user location from %s (max retries: %d)", c.url, c.maxRetries)

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<uint(attempt-1))
			c.logger.Warnf("Retrying API request (attempt %d/%d) after %v delay", attempt+1, c.maxRetries+1, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				c.logger.Errorf("API request cancelled: %v", ctx.Err())
				return nil, ctx.Err()
			}
		}

		location, err := c.doGetUserLocation(ctx)
		if err == nil {
			c.logger.Infof(
				"Fetched user location: %s, %s (%.4f, %.4f)",
				location.City,
				location.Country,
				location.Latitude,
				location.Longitude,
			)
			return location, nil
		}

		lastErr = err

		var apiErr *Error
		if errors.As(err, &apiErr) {
			if !apiErr.Retriable {
				c.logger.Errorf("Non-retriable API error: %v", apiErr)
				break
			}
			c.logger.Warnf("Retriable API error on attempt %d: %v", attempt+1, apiErr)
			continue
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// network errors are always retried
		c.logger.Warnf("Network error on attempt %d: %v", attempt+1, err)
	}

	c.logger.Errorf("Failed to fetch user location after %d attempts: %v", c.maxRetries+1, lastErr)
	return nil, fmt.Errorf("failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

// doGetUserLocation performs a single attempt to fetch the user location
func (c *Client) doGetUserLocation(ctx context.Context) (*UserLocation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &Error{
			Retriable: false,
			Err:       fmt.Errorf("failed to create request: %w", err),
		}
	}
	req.Header.Set("User-Agent", fmt.Sprintf("cvs-compass/%s", c.version))

	c.logger.Debugf("Sending GET request to %s", c.url)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user location: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debugf("Received HTTP %d response", resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		retriable := IsRetriableStatusCode(resp.StatusCode)
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Retriable:  retriable,
			Err:        fmt.Errorf("unexpected status code %d", resp.StatusCode),
		}
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		return nil, &Error{
			Retriable: false,
			Err:       fmt.Errorf("unexpected content-type: %s (expected application/json)", contentType),
		}
	}

	var location UserLocation
	if err := json.NewDecoder(resp.Body).Decode(&location); err != nil {
		return nil, &Error{
			Retriable: false,
			Err:       fmt.Errorf("failed to parse API response: %w", err),
		}
	}

	if location.Failed {
		return nil, &Error{
			Retriable: location.Reason == "RateLimited",
			Err:       fmt.Errorf("service refused request: %s", location.Reason),
		}
	}

	if err := location.Location().Validate(); err != nil {
		return nil, &Error{
			Retriable: false,
			Err:       err,
		}
	}

	return &location, nil
}
