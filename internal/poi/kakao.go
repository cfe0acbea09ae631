package poi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Ch00k/cvs-compass/internal/geo"
	"github.com/Ch00k/cvs-compass/internal/location"
	"github.com/Ch00k/cvs-compass/internal/logging"
)

const (
	defaultKakaoURL   = "https://dapi.kakao.com/v2/local/search/category.json"
	convenienceStore  = "CS2"
	kakaoPageSize     = 15
	kakaoMaxPages     = 45
	kakaoMaxRadius    = 20000
	defaultKakaoRetry = 2
)

// KakaoClient searches the Kakao Local category API for convenience stores
type KakaoClient struct {
	httpClient *http.Client
	url        string
	apiKey     string
	maxRetries int
	retryDelay time.Duration
	version    string
	logger     *logrus.Entry
}

// KakaoOption configures a KakaoClient
type KakaoOption func(*KakaoClient)

// WithKakaoURL sets a custom endpoint
func WithKakaoURL(u string) KakaoOption {
	return func(c *KakaoClient) {
		c.url = u
	}
}

// WithKakaoRetries sets the retry count and initial backoff
func WithKakaoRetries(maxRetries int, delay time.Duration) KakaoOption {
	return func(c *KakaoClient) {
		c.maxRetries = maxRetries
		c.retryDelay = delay
	}
}

// WithKakaoVersion sets the version string for the User-Agent header
func WithKakaoVersion(version string) KakaoOption {
	return func(c *KakaoClient) {
		c.version = version
	}
}

// WithKakaoLogger sets the logger
func WithKakaoLogger(logger *logrus.Entry) KakaoOption {
	return func(c *KakaoClient) {
		c.logger = logger
	}
}

// NewKakaoClient creates a client authenticating with the REST API key
func NewKakaoClient(apiKey string, opts ...KakaoOption) *KakaoClient {
	c := &KakaoClient{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		url:        defaultKakaoURL,
		apiKey:     apiKey,
		maxRetries: defaultKakaoRetry,
		retryDelay: 500 * time.Millisecond,
		version:    "dev",
		logger:     logging.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements Searcher
func (c *KakaoClient) Name() string { return "kakao" }

type kakaoResponse struct {
	Meta struct {
		TotalCount    int  `json:"total_count"`
		PageableCount int  `json:"pageable_count"`
		IsEnd         bool `json:"is_end"`
	} `json:"meta"`
	Documents []kakaoDocument `json:"documents"`
}

type kakaoDocument struct {
	ID                string `json:"id"`
	PlaceName         string `json:"place_name"`
	CategoryGroupCode string `json:"category_group_code"`
	Phone             string `json:"phone"`
	AddressName       string `json:"address_name"`
	RoadAddressName   string `json:"road_address_name"`
	X                 string `json:"x"`
	Y                 string `json:"y"`
	Distance          string `json:"distance"`
}

type kakaoError struct {
	ErrorType string `json:"errorType"`
	Message   string `json:"message"`
}

// SearchNearby implements Searcher. Pages are fetched until the API reports
// the last page or the limit is reached.
func (c *KakaoClient) SearchNearby(ctx context.Context, q Query) ([]Item, error) {
	radius := q.Radius
	if radius <= 0 || radius > kakaoMaxRadius {
		radius = kakaoMaxRadius
	}

	var items []Item
	for page := 1; page <= kakaoMaxPages; page++ {
		resp, err := c.fetchPage(ctx, q.Center, radius, page)
		if err != nil {
			return nil, err
		}

		for _, doc := range resp.Documents {
			item, err := doc.item()
			if err != nil {
				c.logger.WithError(err).Warnf("Skipping store %q", doc.PlaceName)
				continue
			}
			items = append(items, item)
		}

		if resp.Meta.IsEnd || len(resp.Documents) == 0 {
			break
		}
		// the brand filter runs client side, so count matches rather than documents
		if q.Limit > 0 && len(filter(items, q)) >= q.Limit {
			break
		}
	}

	c.logger.Debugf("Kakao returned %d stores around %s", len(items), q.Center)

	withDistance(items, q.Center)
	SortByDistance(items)
	return filter(items, Query{Radius: radius, Limit: q.Limit, Brand: q.Brand}), nil
}

func (d kakaoDocument) item() (Item, error) {
	lon, err := strconv.ParseFloat(d.X, 64)
	if err != nil {
		return Item{}, fmt.Errorf("invalid longitude %q", d.X)
	}
	lat, err := strconv.ParseFloat(d.Y, 64)
	if err != nil {
		return Item{}, fmt.Errorf("invalid latitude %q", d.Y)
	}

	item := Item{
		ID:          "kakao:" + d.ID,
		Name:        d.PlaceName,
		Address:     d.AddressName,
		RoadAddress: d.RoadAddressName,
		Phone:       d.Phone,
		Brand:       leadingToken(d.PlaceName),
		Location:    geo.Location{Latitude: lat, Longitude: lon},
		Source:      "kakao",
	}
	if d.Distance != "" {
		if meters, err := strconv.ParseFloat(d.Distance, 64); err == nil {
			item.Distance = &meters
		}
	}
	return item, nil
}

func leadingToken(name string) string {
	if fields := strings.Fields(name); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func (c *KakaoClient) fetchPage(ctx context.Context, center geo.Location, radius, page int) (*kakaoResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.retryDelay * time.Duration(1<<uint(attempt-1))
			c.logger.Warnf("Retrying Kakao request (attempt %d/%d) after %v delay", attempt+1, c.maxRetries+1, delay)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.doFetchPage(ctx, center, radius, page)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var apiErr *location.Error
		if errors.As(err, &apiErr) && !apiErr.Retriable {
			break
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("kakao search failed after %d attempts: %w", c.maxRetries+1, lastErr)
}

func (c *KakaoClient) doFetchPage(ctx context.Context, center geo.Location, radius, page int) (*kakaoResponse, error) {
	params := url.Values{}
	params.Set("category_group_code", convenienceStore)
	params.Set("x", strconv.FormatFloat(center.Longitude, 'f', -1, 64))
	params.Set("y", strconv.FormatFloat(center.Latitude, 'f', -1, 64))
	params.Set("radius", strconv.Itoa(radius))
	params.Set("sort", "distance")
	params.Set("page", strconv.Itoa(page))
	params.Set("size", strconv.Itoa(kakaoPageSize))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &location.Error{Retriable: false, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Authorization", "KakaoAK "+c.apiKey)
	req.Header.Set("User-Agent", fmt.Sprintf("cvs-compass/%s", c.version))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query kakao: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		var kerr kakaoError
		_ = json.NewDecoder(resp.Body).Decode(&kerr)
		msg := fmt.Sprintf("unexpected status code %d", resp.StatusCode)
		if kerr.Message != "" {
			msg = fmt.Sprintf("%s: %s %s", msg, kerr.ErrorType, kerr.Message)
		}
		return nil, &location.Error{
			StatusCode: resp.StatusCode,
			Retriable:  location.IsRetriableStatusCode(resp.StatusCode),
			Err:        errors.New(msg),
		}
	}

	var body kakaoResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &location.Error{Retriable: false, Err: fmt.Errorf("failed to parse kakao response: %w", err)}
	}
	return &body, nil
}
