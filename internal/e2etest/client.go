package e2etest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	neturl "net/url"
	"time"

	"github.com/myrjola/rexcoach/internal/errors"
)

var ErrNotReady = errors.NewSentinel("timeout waiting for endpoint to be ready")

// Client talks JSON to the server and keeps the session cookie.
type Client struct {
	client *http.Client
	url    string
}

// NewClient creates a client for the server at url.
func NewClient(url string) (*Client, error) {
	jar, err := newUnsafeCookieJar()
	if err != nil {
		return nil, fmt.Errorf("create unsafe cookie jar: %w", err)
	}
	return &Client{client: &http.Client{Jar: jar}, url: url}, nil //nolint:exhaustruct // defaults.
}

// unsafeCookieJar drops the Secure attribute so that secure session cookies work against the plain HTTP test server.
type unsafeCookieJar struct {
	*cookiejar.Jar
}

func newUnsafeCookieJar() (*unsafeCookieJar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("new cookie jar: %w", err)
	}
	return &unsafeCookieJar{Jar: jar}, nil
}

func (j *unsafeCookieJar) SetCookies(u *neturl.URL, cookies []*http.Cookie) {
	for _, c := range cookies {
		c.Secure = false
	}
	j.Jar.SetCookies(u, cookies)
}

// WaitForReady polls urlPath until it responds with 200 OK, ctx is done or a second has passed.
func (c *Client) WaitForReady(ctx context.Context, urlPath string) error {
	deadline := time.Now().Add(time.Second)
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+urlPath, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		if resp, doErr := c.client.Do(req); doErr == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return ErrNotReady
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(100 * time.Millisecond): //nolint:mnd // polling interval.
		}
	}
}

// Response is a completed request with its body read.
type Response struct {
	StatusCode int
	Body       []byte
}

// Decode unmarshals the body into out.
func (r Response) Decode(out any) error {
	if err := json.Unmarshal(r.Body, out); err != nil {
		return fmt.Errorf("decode %q: %w", string(r.Body), err)
	}
	return nil
}

// ErrorMessage returns the "error" field of a JSON error body.
func (r Response) ErrorMessage() string {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.Unmarshal(r.Body, &body)
	return body.Error
}

// Do sends a request with in marshalled as the JSON body. A nil in sends no body.
func (c *Client) Do(ctx context.Context, method, urlPath string, in any) (Response, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return Response{}, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.url+urlPath, body)
	if err != nil {
		return Response{}, fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("read response: %w", err)
	}
	return Response{StatusCode: resp.StatusCode, Body: raw}, nil
}

// Get is Do with GET.
func (c *Client) Get(ctx context.Context, urlPath string) (Response, error) {
	return c.Do(ctx, http.MethodGet, urlPath, nil)
}

// Post is Do with POST.
func (c *Client) Post(ctx context.Context, urlPath string, in any) (Response, error) {
	return c.Do(ctx, http.MethodPost, urlPath, in)
}

// Register creates an account and signs in with it.
func (c *Client) Register(ctx context.Context, username, password string) error {
	return c.expectOK(c.Post(ctx, "/api/register", map[string]string{"username": username, "password": password}))
}

// Login signs in.
func (c *Client) Login(ctx context.Context, username, password string) error {
	return c.expectOK(c.Post(ctx, "/api/login", map[string]string{"username": username, "password": password}))
}

// Logout signs out.
func (c *Client) Logout(ctx context.Context) error {
	return c.expectOK(c.Post(ctx, "/api/logout", nil))
}

func (c *Client) expectOK(resp Response, err error) error {
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, resp.Body) //nolint:err113 // test helper.
	}
	return nil
}
