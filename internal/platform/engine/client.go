// Package engine is the REST client for the off-chain matching engine. It
// covers market discovery, orderbook and trade queries, signed order
// submission, and oracle dispute queries.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// Client is the HTTP client for the matching-engine API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates an engine API client. baseURL is the API root, e.g.
// "http://localhost:3001".
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// do builds, sends, and reads an HTTP request against the engine API,
// returning the raw response body. Requests are not retried; the caller's
// polling loop is the retry mechanism.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if err := checkHTTPStatus(resp.StatusCode, respBody); err != nil {
		return nil, err
	}

	return respBody, nil
}

// checkHTTPStatus maps non-2xx status codes to domain errors. The engine puts
// a human-readable message in the body; when the body is empty we fall back
// to the bare status code so callers never see a blank error.
func checkHTTPStatus(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	msg := string(bytes.TrimSpace(body))
	if msg == "" {
		msg = fmt.Sprintf("HTTP %d", statusCode)
	}

	switch statusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", domain.ErrNotFound, msg)
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", domain.ErrUnauthorized, msg)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrRateLimited, msg)
	default:
		if msg == fmt.Sprintf("HTTP %d", statusCode) {
			return fmt.Errorf("%s", msg)
		}
		return fmt.Errorf("HTTP %d: %s", statusCode, msg)
	}
}

// listQuery encodes pagination and time-window options into URL query values.
func listQuery(opts domain.ListOpts) url.Values {
	q := url.Values{}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	if opts.Offset > 0 {
		q.Set("offset", strconv.Itoa(opts.Offset))
	}
	if opts.Since != nil {
		q.Set("since", strconv.FormatInt(opts.Since.UnixMilli(), 10))
	}
	if opts.Until != nil {
		q.Set("until", strconv.FormatInt(opts.Until.UnixMilli(), 10))
	}
	return q
}
