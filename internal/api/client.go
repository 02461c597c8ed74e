package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"spactl/internal/logging"
	"spactl/internal/models"
)

const (
	DefaultBaseURL = "http://localhost:3001/api/v1"
	DefaultTimeout = 30 * time.Second

	// error bodies beyond this are not worth classifying
	maxErrorBody = 64 << 10
)

// Config configures a Client
type Config struct {
	// Base URL of the API server, including the version prefix
	BaseURL string

	// Timeout applied to every request
	Timeout time.Duration

	// Durable token storage, read on every request
	Tokens *models.TokenStore

	// Underlying transport, http.DefaultTransport when nil
	Transport http.RoundTripper

	Logger *logrus.Logger
}

// Client handles communication with the API server
type Client struct {
	// Base URL of the API server
	BaseURL string

	// HTTP client with a timeout and the auth transport
	client *http.Client

	// Token store for managing authentication tokens
	tokens *models.TokenStore

	log *logrus.Logger

	mu        sync.Mutex
	listeners map[uint64]UnauthorizedListener
	nextID    uint64
}

// New creates a new API client
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Tokens == nil {
		cfg.Tokens = models.NewTokenStore(nil)
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}

	return &Client{
		BaseURL: strings.TrimRight(cfg.BaseURL, "/"),
		tokens:  cfg.Tokens,
		log:     cfg.Logger,
		client: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: newAuthTransport(cfg.Transport, cfg.Tokens, cfg.Logger),
		},
		listeners: make(map[uint64]UnauthorizedListener),
	}
}

// Tokens returns the durable token store the client reads from
func (c *Client) Tokens() *models.TokenStore {
	return c.tokens
}

// AddUnauthorizedListener registers l to be told when a request fails with 401.
// The returned func unregisters it.
func (c *Client) AddUnauthorizedListener(l UnauthorizedListener) (remove func()) {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.listeners[id] = l
	c.mu.Unlock()

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		delete(c.listeners, id)
	}
}

func (c *Client) notifyUnauthorized() {
	c.mu.Lock()
	ls := make([]UnauthorizedListener, 0, len(c.listeners))
	for _, l := range c.listeners {
		ls = append(ls, l)
	}
	c.mu.Unlock()

	for _, l := range ls {
		l.SessionInvalidated()
	}
}

// Get sends a GET request with optional query parameters and decodes the response into out
func (c *Client) Get(ctx context.Context, path string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, params, nil, out)
}

// Post sends body as JSON and decodes the response into out
func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPatch, path, nil, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, out)
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, body, out any) error {
	if ctx == nil {
		ctx = context.Background()
	}

	req, err := c.newRequest(ctx, method, path, params, body)
	if err != nil {
		c.log.WithFields(logging.Err(err)).WithField("path", path).Debug("building request failed")
		return c.reject(method, path, &APIError{Message: DefaultErrorMessage, StatusCode: http.StatusInternalServerError})
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return c.reject(method, path, errorFromTransport(err, false))
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.log.WithFields(logging.Err(err)).Debug("failed to close response body")
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return c.reject(method, path, errorFromResponse(resp.StatusCode, data))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return c.reject(method, path, errorFromTransport(err, true))
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		c.log.WithFields(logging.Err(err)).WithField("path", path).Debug("decoding response failed")
		return c.reject(method, path, &APIError{Message: DefaultErrorMessage, StatusCode: http.StatusInternalServerError})
	}

	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, params url.Values, body any) (*http.Request, error) {
	u := c.BaseURL + "/" + strings.TrimLeft(path, "/")
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("error marshalling request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// reject runs the failure side of the pipeline: forced logout on 401,
// the global error handler, then hands the error back to the caller.
func (c *Client) reject(method, path string, apiErr *APIError) error {
	c.log.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"status": apiErr.StatusCode,
	}).Debug(apiErr.Message)

	if apiErr.StatusCode == http.StatusUnauthorized {
		if err := c.tokens.ClearToken(); err != nil {
			c.log.WithFields(logging.Err(err)).Warn("failed to clear auth token")
		}
		c.notifyUnauthorized()
	}

	invokeErrorHandler(apiErr, c.log)

	return apiErr
}
