// Package marketclient talks to the market's v2 REST API.
package marketclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pricecheck-service/internal/apperror"
	"pricecheck-service/internal/models"
	"pricecheck-service/internal/util"
)

const (
	DefaultTimeout   = 5 * time.Second
	DefaultRateLimit = 3
	DefaultRateBurst = 3
)

// Config configures a Client. Zero values take the defaults.
type Config struct {
	BaseURL    string
	Locale     string
	Timeout    time.Duration
	RateLimit  float64 // requests per second, <= 0 uses DefaultRateLimit
	RateBurst  int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// RequestOptions carries per-request headers and query parameters.
type RequestOptions struct {
	Platform string
	Locale   string
	Query    url.Values
}

// Client is a rate limited JSON client for the market API. Responses are
// unwrapped from the {apiVersion, data, error} envelope.
type Client struct {
	baseURL    string
	locale     string
	timeout    time.Duration
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// New creates a market API client
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = models.DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = DefaultRateBurst
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = util.GetLogger()
	}

	return &Client{
		baseURL:    baseURL,
		locale:     models.NormalizeLanguage(cfg.Locale),
		timeout:    timeout,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(rate.Limit(limit), burst),
		logger:     logger,
	}
}

// Locale is the language requested when RequestOptions.Locale is empty.
func (c *Client) Locale() string {
	return c.locale
}

type envelope struct {
	APIVersion string          `json:"apiVersion"`
	Data       json.RawMessage `json:"data"`
	Error      json.RawMessage `json:"error"`
}

// Get performs a GET request and decodes the envelope's data into out.
func (c *Client) Get(ctx context.Context, path string, opts RequestOptions, out any) error {
	_, err := c.do(ctx, http.MethodGet, path, nil, opts, out)
	return err
}

// Post sends body as JSON and decodes the envelope's data into out.
func (c *Client) Post(ctx context.Context, path string, body any, opts RequestOptions, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request body: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, path, payload, opts, out)
	return err
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, opts RequestOptions, out any) (string, error) {
	path = "/" + strings.TrimPrefix(path, "/")
	op := method + " " + path

	ctx, span := util.StartSpan(ctx, "MarketClient.Request",
		attribute.String("http.method", method),
		attribute.String("market.path", path),
	)
	var err error
	defer func() { util.EndSpan(span, err) }()

	if err = c.limiter.Wait(ctx); err != nil {
		err = apperror.Remote(0, op, err)
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, method, path, body, opts)
	if err != nil {
		err = apperror.Remote(0, op, err)
		return "", err
	}

	c.logger.Debug("Market request", zap.String("method", method), zap.String("url", req.URL.String()))

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		util.MarketRequestDuration.WithLabelValues(path, "error").Observe(time.Since(start).Seconds())
		c.logger.Error("Market request failed", zap.String("op", op), zap.Error(err))
		err = apperror.Remote(0, op, err)
		return "", err
	}
	defer resp.Body.Close()
	util.MarketRequestDuration.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		err = apperror.Remote(resp.StatusCode, op, err)
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err = apperror.Remote(resp.StatusCode, statusMessage(resp.StatusCode, raw), nil)
		c.logger.Error("Market request failed",
			zap.String("op", op),
			zap.Int("status", resp.StatusCode),
			zap.Error(err))
		return "", err
	}

	var env envelope
	if err = json.Unmarshal(raw, &env); err != nil {
		err = apperror.Remote(resp.StatusCode, "malformed response from "+op, err)
		return "", err
	}
	if msg, ok := envelopeError(env.Error); ok {
		err = apperror.Remote(resp.StatusCode, msg, nil)
		return "", err
	}

	if out != nil {
		if len(env.Data) == 0 || string(env.Data) == "null" {
			err = apperror.Remote(resp.StatusCode, "empty response from "+op, nil)
			return "", err
		}
		if err = json.Unmarshal(env.Data, out); err != nil {
			err = apperror.Remote(resp.StatusCode, "malformed response from "+op, err)
			return "", err
		}
	}
	return env.APIVersion, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body []byte, opts RequestOptions) (*http.Request, error) {
	u, err := url.Parse(c.baseURL + strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, err
	}
	if len(opts.Query) > 0 {
		q := u.Query()
		for key, values := range opts.Query {
			for _, v := range values {
				if v != "" {
					q.Add(key, v)
				}
			}
		}
		u.RawQuery = q.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	locale := c.locale
	if opts.Locale != "" {
		locale = models.NormalizeLanguage(opts.Locale)
	}
	req.Header.Set("Language", locale)
	if opts.Platform != "" {
		req.Header.Set("Platform", models.NormalizePlatform(opts.Platform))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// statusMessage prefers the error message in the body over the status line.
func statusMessage(status int, body []byte) string {
	var env envelope
	if json.Unmarshal(body, &env) == nil {
		if msg, ok := envelopeError(env.Error); ok {
			return msg
		}
	}
	return fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
}

// envelopeError extracts the message of a non-null envelope error, which the
// API sends either as a string or as an object with a message field.
func envelopeError(raw json.RawMessage) (string, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "" {
			return "", false
		}
		return s, true
	}

	var obj struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message, true
		}
		if obj.Code != "" {
			return obj.Code, true
		}
		return "API error", true
	}

	return "API error", true
}

// IsTimeout reports whether err came from a request that ran out of time.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}
