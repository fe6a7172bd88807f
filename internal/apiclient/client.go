// Package apiclient talks to the local service API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"uploadsvc/internal/api"
	"uploadsvc/internal/pacs"
)

const (
	DefaultTimeout = 3 * time.Second
	// LogTimeout bounds fire-and-forget UI log posts.
	LogTimeout = 500 * time.Millisecond
)

type Client struct {
	base string
	http *http.Client
}

// New returns a client for baseURL ("http://127.0.0.1:8085").
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) BaseURL() string { return c.base }

// call sends a request and decodes the JSON answer into out. Non-2xx
// answers still decode; the returned error carries the status.
func (c *Client) call(ctx context.Context, method, path string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return 0, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return 0, err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return resp.StatusCode, nil
}

// Status returns GET /api/status.
func (c *Client) Status(ctx context.Context) (api.StatusResponse, error) {
	var st api.StatusResponse
	code, err := c.call(ctx, http.MethodGet, "/api/status", nil, &st)
	if err != nil {
		return st, err
	}
	if code != http.StatusOK {
		return st, fmt.Errorf("status: HTTP %d", code)
	}
	return st, nil
}

// Action POSTs to a control endpoint such as "/api/start". A failed action is
// reported in the response, not as an error.
func (c *Client) Action(ctx context.Context, path string) (api.ActionResponse, error) {
	var resp api.ActionResponse
	code, err := c.call(ctx, http.MethodPost, path, nil, &resp)
	if err != nil {
		return resp, err
	}
	if code == http.StatusNotFound && !resp.OK && resp.Output == "" && resp.Error == "" {
		resp.Error = "Not Found"
	}
	return resp, nil
}

// PostLog appends a message to the UI log.
func (c *Client) PostLog(ctx context.Context, msg, source, color string) error {
	code, err := c.call(ctx, http.MethodPost, "/api/ui-log", api.LogRequest{Message: msg, Source: source, Color: color}, nil)
	if err != nil {
		return err
	}
	if code != http.StatusOK {
		return fmt.Errorf("ui-log: HTTP %d", code)
	}
	return nil
}

// Logs returns UI log entries newer than after.
func (c *Client) Logs(ctx context.Context, after int64) (api.LogsResponse, error) {
	var resp api.LogsResponse
	code, err := c.call(ctx, http.MethodGet, "/api/ui-log?after="+strconv.FormatInt(after, 10), nil, &resp)
	if err != nil {
		return resp, err
	}
	if code != http.StatusOK {
		return resp, fmt.Errorf("ui-log: HTTP %d", code)
	}
	return resp, nil
}

// Upload asks the service to upload a folder in the background.
func (c *Client) Upload(ctx context.Context, req pacs.Request) (api.UploadResponse, error) {
	var resp api.UploadResponse
	_, err := c.call(ctx, http.MethodPost, "/api/upload", req, &resp)
	return resp, err
}

// Notifier posts messages to the UI log with a short timeout, ignoring
// failures.
func (c *Client) Notifier(source string) pacs.Notifier {
	return pacs.NotifierFunc(func(msg, color string) {
		ctx, cancel := context.WithTimeout(context.Background(), LogTimeout)
		defer cancel()
		_ = c.PostLog(ctx, msg, source, color)
	})
}
