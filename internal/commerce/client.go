package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/rs/zerolog/log"
)

const defaultListingCacheSize = 256

// Client talks to the commerce REST API. All durable state (listings,
// users, reservations, sales) lives behind this API; the client keeps
// nothing except a small listing cache.
type Client struct {
	baseURL string
	client  *http.Client
	headers map[string]string

	listingCache *lru.Cache
}

// NewClient creates a commerce API client for the given base URL,
// e.g. "https://api.firmsnap.com".
func NewClient(baseURL string) (*Client, error) {
	cache, err := lru.New(defaultListingCacheSize)
	if err != nil {
		return nil, fmt.Errorf("create listing cache: %w", err)
	}

	return &Client{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		headers:      make(map[string]string),
		listingCache: cache,
	}, nil
}

// SetHeader sets a header on every outgoing request.
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetToken sets the bearer token used for authenticated endpoints.
func (c *Client) SetToken(token string) {
	c.headers["Authorization"] = "Bearer " + token
}

// SetTimeout overrides the default request timeout.
func (c *Client) SetTimeout(timeout time.Duration) {
	c.client.Timeout = timeout
}

// MakeRequest performs an HTTP request and returns the raw response body.
// Non-2xx responses become errors carrying the status and body.
func (c *Client) MakeRequest(ctx context.Context, method, endpoint string, body io.Reader) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		responseBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API returned status code: %d, response: %s", resp.StatusCode, string(responseBody))
	}

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return responseBody, nil
}

// doJSON sends payload (when non-nil) as JSON and decodes the response
// into out (when non-nil).
func (c *Client) doJSON(ctx context.Context, method, endpoint string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	responseBody, err := c.MakeRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	if out != nil {
		if err := json.Unmarshal(responseBody, out); err != nil {
			return fmt.Errorf("unmarshal %s %s response: %w", method, endpoint, err)
		}
	}

	log.Debug().Str("method", method).Str("endpoint", endpoint).Msg("commerce API call")
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, endpoint, nil, out)
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, endpoint, payload, out)
}

func (c *Client) put(ctx context.Context, endpoint string, payload, out interface{}) error {
	return c.doJSON(ctx, http.MethodPut, endpoint, payload, out)
}

func (c *Client) delete(ctx context.Context, endpoint string) error {
	return c.doJSON(ctx, http.MethodDelete, endpoint, nil, nil)
}
