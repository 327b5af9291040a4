/*
Package place is a client for the Reddit r/place canvas API.

A Client logs in once and returns a Session. The Session carries the cookies
and modhash needed by the canvas endpoints and is used to read the color of a
pixel and to draw a pixel. Drawing is subject to a cooldown enforced by the
server; Draw reports it as a wait duration rather than an error.
*/
package place

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultBaseURL is the default API host
	DefaultBaseURL = "https://www.reddit.com"

	// DefaultUserAgent is sent with every request unless overridden
	DefaultUserAgent = "rplace/1.0"

	// PixelTimeout bounds a single pixel read
	PixelTimeout = 5 * time.Second

	loginEndpoint       = "/api/login/"
	pixelEndpoint       = "/api/place/pixel.json"
	drawEndpoint        = "/api/place/draw.json"
	defaultHTTPTimeout  = 30 * time.Second
	maxResponseBodySize = 4 << 20 // 4 MiB guard
)

// Client talks to the canvas API. It holds no credentials; see Login.
type Client struct {
	baseURL   string
	http      *http.Client
	userAgent string
}

// ClientOption mutates the client during construction.
type ClientOption func(*Client)

// WithBaseURL overrides the API host, useful for tests. No trailing slash
// required.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) { c.baseURL = baseURL }
}

// WithHTTPClient installs a custom http.Client. A cookie jar is added if the
// client does not have one as the session relies on cookies.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.http = hc }
}

// WithUserAgent sets a custom User-Agent string.
func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

// NewClient builds a client.
func NewClient(opts ...ClientOption) (*Client, error) {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: DefaultUserAgent,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if c.http.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("place: cookie jar: %w", err)
		}
		dup := *c.http
		dup.Jar = jar
		c.http = &dup
	}
	c.baseURL = sanitizeBaseURL(c.baseURL)
	return c, nil
}

func sanitizeBaseURL(baseURL string) string {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return DefaultBaseURL
	}
	return strings.TrimRight(baseURL, "/")
}

// Session is an authenticated handle. It is safe to reuse for every call but
// the canvas expects one caller at a time.
type Session struct {
	client  *Client
	user    string
	modhash string
}

type loginResponse struct {
	JSON struct {
		Errors [][]string `json:"errors"`
		Data   struct {
			Modhash string `json:"modhash"`
		} `json:"data"`
	} `json:"json"`
}

// Login authenticates user and returns a Session. If the server reports one
// or more errors an *AuthError is returned.
func (c *Client) Login(ctx context.Context, user, password string) (*Session, error) {
	user = strings.TrimSpace(user)
	if user == "" {
		return nil, ErrUserMissing
	}

	form := url.Values{
		"user":     {user},
		"passwd":   {password},
		"api_type": {"json"},
	}
	req, err := c.newRequest(ctx, http.MethodPost, loginEndpoint+url.PathEscape(user), form)
	if err != nil {
		return nil, err
	}

	raw, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, buildAPIError(status, raw)
	}

	var resp loginResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("place: decode login response: %w", err)
	}
	if len(resp.JSON.Errors) > 0 {
		return nil, newAuthError(resp.JSON.Errors)
	}

	return &Session{
		client:  c,
		user:    user,
		modhash: resp.JSON.Data.Modhash,
	}, nil
}

// User returns the name the session logged in as.
func (s *Session) User() string {
	return s.user
}

type pixelResponse struct {
	Color *int `json:"color"`
}

// Pixel returns the palette index currently at (x, y). Each call is bounded
// by PixelTimeout. A non-2xx response is returned as an *APIError; callers
// decide whether to retry. A pixel that was never drawn has no color and is
// reported as 0.
func (s *Session) Pixel(ctx context.Context, x, y int) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, PixelTimeout)
	defer cancel()

	q := url.Values{
		"x": {strconv.Itoa(x)},
		"y": {strconv.Itoa(y)},
	}
	req, err := s.client.newRequest(ctx, http.MethodGet, pixelEndpoint+"?"+q.Encode(), nil)
	if err != nil {
		return 0, err
	}
	s.authorize(req)

	raw, status, err := s.client.do(req)
	if err != nil {
		return 0, err
	}
	if status != http.StatusOK {
		return 0, buildAPIError(status, raw)
	}

	var resp pixelResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, fmt.Errorf("place: decode pixel response: %w", err)
	}
	if resp.Color == nil {
		return 0, nil
	}
	return *resp.Color, nil
}

type drawResponse struct {
	Error       json.RawMessage `json:"error"`
	WaitSeconds float64         `json:"wait_seconds"`
}

// Draw sets the pixel at (x, y) to the palette index color. On success the
// returned duration is zero. If the server refuses the write because the
// session is cooling down the duration is how long it asks to wait. The HTTP
// status is not inspected as a refused write still carries a JSON body.
func (s *Session) Draw(ctx context.Context, x, y, color int) (time.Duration, error) {
	form := url.Values{
		"x":     {strconv.Itoa(x)},
		"y":     {strconv.Itoa(y)},
		"color": {strconv.Itoa(color)},
	}
	req, err := s.client.newRequest(ctx, http.MethodPost, drawEndpoint, form)
	if err != nil {
		return 0, err
	}
	s.authorize(req)

	raw, status, err := s.client.do(req)
	if err != nil {
		return 0, err
	}

	var resp drawResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return 0, buildAPIError(status, raw)
	}
	if len(resp.Error) == 0 || string(resp.Error) == "null" {
		return 0, nil
	}
	if resp.WaitSeconds < 0 {
		return 0, errors.New("place: negative wait_seconds")
	}
	return time.Duration(resp.WaitSeconds * float64(time.Second)), nil
}

func (s *Session) authorize(req *http.Request) {
	if s.modhash != "" {
		req.Header.Set("X-Modhash", s.modhash)
	}
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, form url.Values) (*http.Request, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("place: build request: %w", err)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if ua := strings.TrimSpace(c.userAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	}
	return req, nil
}

// do executes the request and returns the (size limited) body and status.
func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("place: execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := ioutil.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("place: read response: %w", err)
	}
	return raw, resp.StatusCode, nil
}
