// Package remotesvc is the dashboards' client of the NexusSync HTTP API.
package remotesvc

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/nexussync/clubs/core"
	"github.com/nexussync/clubs/core/broadcast"
	"github.com/nexussync/clubs/core/session"
	"github.com/nexussync/clubs/core/user"
)

const originHeader = "X-Origin"

type Client struct {
	baseURL string
	rest    *rest.Client

	mu    sync.RWMutex
	token string
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.rest = &rest.Client{HTTPClient: hc} }
}

func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		rest:    &rest.Client{HTTPClient: &http.Client{Timeout: 30 * time.Second}},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func NewFromConfig(conf *core.Config) *Client {
	return New(conf.Dashboard.APIBaseURL, WithToken(conf.Dashboard.Token))
}

func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// params are the query params of a request; empty values are left out.
type params map[string]string

func (p params) set(key, val string) {
	if val = strings.TrimSpace(val); val != "" {
		p[key] = val
	}
}

func (p params) setTime(key string, t time.Time) {
	if !t.IsZero() {
		p[key] = t.UTC().Format(time.RFC3339)
	}
}

func (p params) setBool(key string, b *bool) {
	if b != nil {
		p[key] = strconv.FormatBool(*b)
	}
}

func (c *Client) do(ctx context.Context, method rest.Method, path string, query params, in, out interface{}) error {
	req := rest.Request{
		Method:  method,
		BaseURL: c.baseURL + path,
		Headers: map[string]string{"Accept": "application/json"},
	}
	if len(query) > 0 {
		req.QueryParams = query
	}
	if token := c.Token(); token != "" {
		req.Headers["Authorization"] = "Bearer " + token
	}
	// the changes caused by the request name the view that made it
	if origin := broadcast.OriginFromContext(ctx); origin != "" {
		req.Headers[originHeader] = origin
	}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request body")
		}
		req.Body = body
		req.Headers["Content-Type"] = "application/json"
	}

	resp, err := c.rest.SendWithContext(ctx, req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || resp.Body == "" {
		return nil
	}
	return errors.Wrapf(json.Unmarshal([]byte(resp.Body), out), "decoding %s %s", method, path)
}

type tokenResponse struct {
	Token string `json:"token"`
}

// Login authenticates the user, keeps the token for the next requests and returns the
// session to inject into the views.
func (c *Client) Login(ctx context.Context, username, password string) (*session.Session, error) {
	var resp tokenResponse
	in := map[string]string{"username": username, "password": password}
	if err := c.do(ctx, rest.Post, "/v1/users/login", nil, in, &resp); err != nil {
		return nil, errors.Wrap(err, "logging in")
	}
	c.SetToken(resp.Token)
	return c.Session(ctx)
}

// Refresh exchanges the current token for a fresh one.
func (c *Client) Refresh(ctx context.Context) (string, error) {
	var resp tokenResponse
	if err := c.do(ctx, rest.Post, "/v1/users/token-refresh", nil, nil, &resp); err != nil {
		return "", errors.Wrap(err, "refreshing token")
	}
	c.SetToken(resp.Token)
	return resp.Token, nil
}

// Session builds the session of the current token's user.
func (c *Client) Session(ctx context.Context) (*session.Session, error) {
	usr, err := c.Me(ctx)
	if err != nil {
		return nil, err
	}
	token := c.Token()
	return &session.Session{
		UserID:    usr.ID,
		Username:  usr.Username,
		Name:      usr.Name,
		Email:     usr.Email,
		Roles:     usr.Roles,
		Token:     token,
		ExpiresAt: tokenExpiry(token),
	}, nil
}

// tokenExpiry reads the expiry of a JWT without verifying it; the API does that.
func tokenExpiry(token string) time.Time {
	var claims jwt.StandardClaims
	if _, _, err := new(jwt.Parser).ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.Unix(claims.ExpiresAt, 0).UTC()
}

func (c *Client) Me(ctx context.Context) (user.User, error) {
	var usr user.User
	err := c.do(ctx, rest.Get, "/v1/users/me", nil, nil, &usr)
	return usr, errors.Wrap(err, "getting current user")
}

func (c *Client) RequestPasswordReset(ctx context.Context, email string) error {
	in := map[string]string{"email": email}
	return errors.Wrap(c.do(ctx, rest.Post, "/v1/users/password-reset", nil, in, nil), "requesting password reset")
}
