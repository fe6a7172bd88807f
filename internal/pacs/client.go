// Package pacs uploads DICOM studies to an Orthanc-compatible PACS.
package pacs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/retry"

	"uploadsvc/internal/config"
	"uploadsvc/internal/logger"
)

const (
	defaultTimeout = 15 * time.Second
	// Large studies over slow links take a long time per file.
	uploadTimeout = 30 * time.Minute
	maxErrorBody  = 2000
)

var (
	ErrNoBaseURL   = errors.New("pacs base_url is required")
	errNotUploaded = errors.New("instance not found")
)

// StatusError is a non-2xx answer from the PACS.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		body = "<empty>"
	}
	return fmt.Sprintf("%d %s", e.Code, body)
}

// Options configure a Client.
type Options struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Username     string
	Password     string
	Timeout      time.Duration
	HTTPClient   *http.Client
	Throttle     *Throttle
	Notifier     Notifier

	// ConfirmAttempts and ConfirmDelay control ConfirmUploaded.
	ConfirmAttempts int
	ConfirmDelay    time.Duration
	Clock           clock.Clock
}

type Client struct {
	base     string
	http     *http.Client
	auth     authorizer
	timeout  time.Duration
	throttle *Throttle
	notifier Notifier

	confirmAttempts int
	confirmDelay    time.Duration
	clock           clock.Clock
}

// NewClient picks OAuth2 client credentials when a token URL and client id
// are set, basic auth when a username is set, and no auth otherwise.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		return nil, ErrNoBaseURL
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	c := &Client{
		base:            base,
		http:            hc,
		timeout:         opts.Timeout,
		throttle:        opts.Throttle,
		notifier:        opts.Notifier,
		confirmAttempts: opts.ConfirmAttempts,
		confirmDelay:    opts.ConfirmDelay,
		clock:           opts.Clock,
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.throttle == nil {
		c.throttle = NewThrottle(0)
	}
	if c.confirmAttempts <= 0 {
		c.confirmAttempts = 3
	}
	if c.confirmDelay <= 0 {
		c.confirmDelay = 500 * time.Millisecond
	}
	if c.clock == nil {
		c.clock = clock.WallClock
	}

	switch {
	case opts.TokenURL != "" && opts.ClientID != "":
		if opts.ClientSecret == "" {
			return nil, errors.New("pacs client_secret is required")
		}
		c.auth = newClientCredentials(opts.TokenURL, opts.ClientID, opts.ClientSecret, hc)
	case opts.Username != "":
		c.auth = basicAuth{user: opts.Username, pass: opts.Password}
	default:
		c.auth = noAuth{}
	}
	return c, nil
}

// FromConfig builds a client from the [pacs] section.
func FromConfig(cfg config.PACSConfig, t *Throttle, n Notifier) (*Client, error) {
	if t == nil {
		t = NewThrottle(cfg.MaxUploadKBps)
	}
	return NewClient(Options{
		BaseURL:      cfg.BaseURL,
		TokenURL:     cfg.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Username:     cfg.Username,
		Password:     cfg.Password,
		Timeout:      cfg.Timeout.Std(),
		Throttle:     t,
		Notifier:     n,
	})
}

// Throttle returns the bandwidth cap shared by all uploads of this client.
func (c *Client) Throttle() *Throttle { return c.throttle }

// SetNotifier replaces the message sink. Call it before the first request.
func (c *Client) SetNotifier(n Notifier) { c.notifier = n }

type bodyFunc func() (io.Reader, int64, error)

func jsonBody(v any) bodyFunc {
	return func() (io.Reader, int64, error) {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, 0, err
		}
		return bytes.NewReader(b), int64(len(b)), nil
	}
}

// do sends one request, resetting credentials and retrying once on 401.
func (c *Client) do(ctx context.Context, method, path, contentType string, body bodyFunc) (*http.Response, error) {
	send := func() (*http.Response, error) {
		var (
			r    io.Reader
			size int64 = -1
		)
		if body != nil {
			var err error
			if r, size, err = body(); err != nil {
				return nil, err
			}
		}
		req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
		if err != nil {
			return nil, err
		}
		if size >= 0 && r != nil {
			req.ContentLength = size
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("Accept", "application/json")
		if err := c.auth.authorize(ctx, req); err != nil {
			return nil, fmt.Errorf("pacs auth: %w", err)
		}
		return c.http.Do(req)
	}

	resp, err := send()
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized {
		drain(resp)
		c.auth.reset()
		return send()
	}
	return resp, nil
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	resp.Body.Close()
}

func decode(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Code: resp.StatusCode, Body: string(b)}
	}
	if v == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// SystemInfo returns GET /system.
func (c *Client) SystemInfo(ctx context.Context) (map[string]any, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.do(ctx, http.MethodGet, "/system", "", nil)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := decode(resp, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UploadFile POSTs one DICOM file to /instances.
func (c *Client) UploadFile(ctx context.Context, path string, progress ProgressFunc) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	total := fi.Size()

	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	body := func() (io.Reader, int64, error) {
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return nil, 0, err
		}
		return newThrottledReader(ctx, f, total, c.throttle, progress), total, nil
	}
	resp, err := c.do(ctx, http.MethodPost, "/instances", "application/dicom", body)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := decode(resp, &out); err != nil {
		var se *StatusError
		if errors.As(err, &se) {
			c.notify(fmt.Sprintf("PACS upload failed for %s: %v", filepath.Base(path), se), "red")
		}
		return nil, err
	}
	return out, nil
}

type findRequest struct {
	Level string            `json:"Level"`
	Query map[string]string `json:"Query"`
	Limit int               `json:"Limit,omitempty"`
}

// find runs /tools/find and returns the matching Orthanc ids.
func (c *Client) find(ctx context.Context, req findRequest) ([]string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	resp, err := c.do(ctx, http.MethodPost, "/tools/find", "application/json", jsonBody(req))
	if err != nil {
		return nil, err
	}
	var ids []string
	if err := decode(resp, &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

func isNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

// InstanceExists reports whether the PACS already holds the instance. Lookup
// errors count as absent.
func (c *Client) InstanceExists(ctx context.Context, sopUID, seriesUID string) bool {
	if sopUID == "" {
		return false
	}
	ids, err := c.find(ctx, findRequest{
		Level: "Instance",
		Query: map[string]string{"SOPInstanceUID": sopUID},
		Limit: 1,
	})
	if err != nil {
		if !isNotFound(err) {
			c.notify(fmt.Sprintf("PACS lookup failed for SOPInstanceUID %s: %v", sopUID, err), "red")
		}
		return false
	}
	if len(ids) == 0 {
		return false
	}

	ids, err = c.find(ctx, findRequest{
		Level: "Instance",
		Query: map[string]string{"SeriesInstanceUID": seriesUID},
		Limit: 1,
	})
	if err != nil {
		c.notify(fmt.Sprintf("PACS lookup failed for SeriesInstanceUID %s: %v", seriesUID, err), "red")
		return false
	}
	return len(ids) > 0
}

// ConfirmUploaded polls InstanceExists until it succeeds or attempts run out.
func (c *Client) ConfirmUploaded(ctx context.Context, sopUID, seriesUID string) bool {
	err := retry.Call(retry.CallArgs{
		Func: func() error {
			if c.InstanceExists(ctx, sopUID, seriesUID) {
				return nil
			}
			return errNotUploaded
		},
		Attempts: c.confirmAttempts,
		Delay:    c.confirmDelay,
		Clock:    c.clock,
		Stop:     ctx.Done(),
	})
	return err == nil
}

// AddLabel attaches label to the study with the given StudyInstanceUID.
func (c *Client) AddLabel(ctx context.Context, studyUID, label string) bool {
	if studyUID == "" || label == "" {
		c.notify("Invalid study_uid or label for PACS labeling", "red")
		return false
	}
	ids, err := c.find(ctx, findRequest{
		Level: "Study",
		Query: map[string]string{"StudyInstanceUID": studyUID},
	})
	if err != nil {
		c.notify(fmt.Sprintf("Lookup failed: %v", err), "red")
		return false
	}
	if len(ids) == 0 {
		c.notify(fmt.Sprintf("Study %s not found in PACS", studyUID), "red")
		return false
	}
	id := ids[0]

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	path := "/studies/" + url.PathEscape(id) + "/labels/" + url.PathEscape(label)
	resp, err := c.do(ctx, http.MethodPut, path, "", nil)
	if err == nil {
		err = decode(resp, nil)
	}
	if err != nil {
		c.notify(fmt.Sprintf("PACS label add failed for study %s (orthanc_id: %s): %v", studyUID, id, err), "red")
		return false
	}
	c.notify(fmt.Sprintf("PACS label added for %s (orthanc_id: %s): %s", studyUID, id, label), "green")
	return true
}

func (c *Client) notify(msg, color string) {
	if color == "red" {
		logger.Warn("%s", msg)
	} else {
		logger.Info("%s", msg)
	}
	if c.notifier != nil {
		c.notifier.Notify(msg, color)
	}
}
