// Package client provides the HTTP client for the catalog REST API with
// retries, error classification and an optional shared category cache.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/catalog-client/pkg/cache"
	"github.com/Sternrassler/catalog-client/pkg/catalog"
	"github.com/Sternrassler/catalog-client/pkg/logging"
	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for catalog API requests.
var (
	catalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_requests_total",
		Help: "Total catalog API requests by endpoint and status",
	}, []string{"endpoint", "status"})

	catalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_request_duration_seconds",
		Help:    "Catalog API request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"endpoint"})

	catalogErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_errors_total",
		Help: "Total catalog API errors by class",
	}, []string{"class"})
)

// API paths.
const (
	PathCourses    = "/courses"
	PathCategories = "/categories"
)

// maxBodyBytes bounds how much of a response body is read.
const maxBodyBytes = 8 << 20

// Client is the catalog API client.
type Client struct {
	httpClient *http.Client
	baseURL    *url.URL
	categories *cache.Manager
	retry      retrier
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL of the catalog API, e.g. "https://api.example.com/api"
	BaseURL string

	// User-Agent header (REQUIRED)
	UserAgent string

	// Timeout bounds a single HTTP attempt
	Timeout time.Duration

	// Retry policy for server and network errors
	Retry RetryConfig

	// Redis client for the shared category cache (optional)
	Redis *redis.Client

	// CategoryTTL is how long the category list is shared through redis
	CategoryTTL time.Duration
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL, userAgent string) Config {
	return Config{
		BaseURL:     baseURL,
		UserAgent:   userAgent,
		Timeout:     10 * time.Second,
		Retry:       DefaultRetryConfig(),
		CategoryTTL: 10 * time.Minute,
	}
}

// New creates a new catalog client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}

	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https (got %q)", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.CategoryTTL <= 0 {
		cfg.CategoryTTL = 10 * time.Minute
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL: base,
		config:  cfg,
		logger:  logging.NewLogger(logging.ComponentClient),
	}
	c.retry = newRetrier(cfg.Retry, c.logger)
	if cfg.Redis != nil {
		c.categories = cache.NewManager(cfg.Redis)
	}

	return c, nil
}

// listResponse is the envelope of GET /courses.
type listResponse struct {
	Success    *bool            `json:"success"`
	Message    string           `json:"message"`
	Data       []catalog.Course `json:"data"`
	Pagination *struct {
		TotalCourses int `json:"totalCourses"`
		TotalPages   int `json:"totalPages"`
	} `json:"pagination"`
}

// categoriesResponse is the envelope variant of GET /categories.
type categoriesResponse struct {
	Success *bool              `json:"success"`
	Message string             `json:"message"`
	Data    []catalog.Category `json:"data"`
}

// ListCourses fetches one page of courses for filter.
//
// A response without pagination metadata is treated as a single page holding
// every returned course. Missing arrays decode as empty.
func (c *Client) ListCourses(ctx context.Context, filter catalog.FilterState) (*catalog.CoursePage, error) {
	if err := filter.Validate(); err != nil {
		return nil, fmt.Errorf("invalid filter: %w", err)
	}

	body, status, err := c.get(ctx, PathCourses, cache.QueryParams(filter))
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := sonic.Unmarshal(body, &resp); err != nil {
		catalogErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &APIError{StatusCode: status, ErrorClass: ErrorClassDecode, Message: "decode course list", Err: err}
	}
	if resp.Success != nil && !*resp.Success {
		catalogErrorsTotal.WithLabelValues(string(ErrorClassClient)).Inc()
		return nil, &APIError{StatusCode: status, ErrorClass: ErrorClassClient, Message: messageOr(resp.Message, "request unsuccessful")}
	}

	page := &catalog.CoursePage{Courses: resp.Data}
	if page.Courses == nil {
		page.Courses = []catalog.Course{}
	}
	if resp.Pagination != nil {
		page.TotalCount = max(resp.Pagination.TotalCourses, 0)
		page.TotalPages = max(resp.Pagination.TotalPages, 0)
	} else {
		page.TotalCount = len(page.Courses)
		page.TotalPages = 1
	}

	return page, nil
}

// FetchPage fetches the given page of filter. It satisfies
// pagination.PageFetcher.
func (c *Client) FetchPage(ctx context.Context, filter catalog.FilterState, page int) (*catalog.CoursePage, error) {
	return c.ListCourses(ctx, filter.WithPage(page))
}

// Categories returns the category list used to populate filter options.
// When a redis client is configured the list is shared through it for
// CategoryTTL; redis failures fall back to the API.
func (c *Client) Categories(ctx context.Context) ([]catalog.Category, error) {
	key := cache.CacheKey{Resource: cache.ResourceCategories}

	if c.categories != nil {
		entry, err := c.categories.Get(ctx, key)
		switch {
		case err == nil:
			if cats, decodeErr := decodeCategories(entry.Data); decodeErr == nil {
				c.logger.Debug().Int("categories", len(cats)).Msg("Categories served from cache")
				return cats, nil
			}
			c.logger.Warn().Msg("Cached categories are corrupt, refetching")
		case !errors.Is(err, cache.ErrCacheMiss):
			c.logger.Warn().Err(err).Msg("Category cache get error")
		}
	}

	body, status, err := c.get(ctx, PathCategories, nil)
	if err != nil {
		return nil, err
	}

	cats, err := decodeCategories(body)
	if err != nil {
		catalogErrorsTotal.WithLabelValues(string(ClassOf(err))).Inc()
		if apiErr, ok := err.(*APIError); ok {
			apiErr.StatusCode = status
		}
		return nil, err
	}

	if c.categories != nil {
		entry := &cache.StoredEntry{
			Data:     body,
			Expires:  time.Now().Add(c.config.CategoryTTL),
			CachedAt: time.Now(),
		}
		if err := c.categories.Set(ctx, key, entry); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to cache categories")
		}
	}

	return cats, nil
}

// decodeCategories accepts a bare JSON array or a {success, data} envelope.
func decodeCategories(body []byte) ([]catalog.Category, error) {
	trimmed := bytes.TrimSpace(body)

	var cats []catalog.Category
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := sonic.Unmarshal(trimmed, &cats); err != nil {
			return nil, &APIError{ErrorClass: ErrorClassDecode, Message: "decode categories", Err: err}
		}
	} else {
		var resp categoriesResponse
		if err := sonic.Unmarshal(trimmed, &resp); err != nil {
			return nil, &APIError{ErrorClass: ErrorClassDecode, Message: "decode categories", Err: err}
		}
		if resp.Success != nil && !*resp.Success {
			return nil, &APIError{ErrorClass: ErrorClassClient, Message: messageOr(resp.Message, "request unsuccessful")}
		}
		cats = resp.Data
	}

	if cats == nil {
		cats = []catalog.Category{}
	}
	return cats, nil
}

// get performs a GET with retries and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, int, error) {
	endpoint := c.baseURL.JoinPath(path)
	endpoint.RawQuery = query.Encode()

	requestID := uuid.NewString()
	startTime := time.Now()
	defer func() {
		catalogRequestDuration.WithLabelValues(path).Observe(time.Since(startTime).Seconds())
	}()

	var body []byte
	var status int

	err := c.retry.do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", c.config.UserAgent)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("X-Request-ID", requestID)

		c.logger.Debug().
			Str("endpoint", path).
			Str("query", endpoint.RawQuery).
			Str("request_id", requestID).
			Msg("Executing catalog request")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if ctx.Err() == nil {
				catalogErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
				catalogRequestsTotal.WithLabelValues(path, "network_error").Inc()
				c.logger.Warn().Err(err).Str("endpoint", path).Msg("HTTP request failed")
			}
			return &APIError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: err}
		}
		defer resp.Body.Close()

		status = resp.StatusCode
		catalogRequestsTotal.WithLabelValues(path, strconv.Itoa(status)).Inc()

		if class := classifyStatus(status); class != "" {
			catalogErrorsTotal.WithLabelValues(string(class)).Inc()
			c.logger.Warn().
				Str("endpoint", path).
				Int("status", status).
				Str("error_class", string(class)).
				Str("request_id", requestID).
				Msg("Catalog request error")
			return &APIError{
				StatusCode: status,
				ErrorClass: class,
				Message:    resp.Status,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
			}
		}

		body, err = io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
		if err != nil {
			return &APIError{StatusCode: status, ErrorClass: ErrorClassNetwork, Message: "read body", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, status, err
	}

	return body, status, nil
}

// classifyStatus categorizes a non-2xx status code.
func classifyStatus(status int) ErrorClass {
	switch {
	case status >= 200 && status < 300:
		return ""
	case status == http.StatusTooManyRequests:
		return ErrorClassThrottled
	case status >= 500:
		return ErrorClassServer
	default:
		return ErrorClassClient
	}
}

// parseRetryAfter reads a Retry-After value in delay-seconds or HTTP-date
// form. Missing, invalid or past values yield 0.
func parseRetryAfter(value string, now time.Time) time.Duration {
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return max(time.Duration(secs)*time.Second, 0)
	}
	if t, err := http.ParseTime(value); err == nil {
		return max(t.Sub(now), 0)
	}
	return 0
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

// Close closes idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
