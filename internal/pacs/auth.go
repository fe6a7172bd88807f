package pacs

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// tokenEarlyExpiry refreshes tokens this long before the server-declared
// expiry.
const tokenEarlyExpiry = 30 * time.Second

// authorizer decorates outgoing requests with credentials.
type authorizer interface {
	authorize(ctx context.Context, req *http.Request) error
	// reset drops cached credentials after a 401.
	reset()
}

type noAuth struct{}

func (noAuth) authorize(context.Context, *http.Request) error { return nil }
func (noAuth) reset()                                         {}

type basicAuth struct{ user, pass string }

func (b basicAuth) authorize(_ context.Context, req *http.Request) error {
	req.SetBasicAuth(b.user, b.pass)
	return nil
}

func (basicAuth) reset() {}

// clientCredentials caches a client-credentials token source. The source is
// rebuilt on reset so the next request fetches a fresh token.
type clientCredentials struct {
	cfg  clientcredentials.Config
	http *http.Client

	mu sync.Mutex
	ts oauth2.TokenSource
}

func newClientCredentials(tokenURL, id, secret string, hc *http.Client) *clientCredentials {
	return &clientCredentials{
		cfg: clientcredentials.Config{
			ClientID:     id,
			ClientSecret: secret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		http: hc,
	}
}

// source is bound to a background context since it outlives any one request.
func (c *clientCredentials) source() oauth2.TokenSource {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.ts == nil {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, c.http)
		c.ts = oauth2.ReuseTokenSourceWithExpiry(nil, c.cfg.TokenSource(ctx), tokenEarlyExpiry)
	}
	return c.ts
}

func (c *clientCredentials) authorize(_ context.Context, req *http.Request) error {
	tok, err := c.source().Token()
	if err != nil {
		return err
	}
	tok.SetAuthHeader(req)
	return nil
}

func (c *clientCredentials) reset() {
	c.mu.Lock()
	c.ts = nil
	c.mu.Unlock()
}
