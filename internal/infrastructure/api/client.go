package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/singleflight"

	"storefront/internal/shared/response"
	"storefront/pkg/logger"
)

// SessionStore is what the client needs from the shopper's session.
type SessionStore interface {
	// Tokens returns the stored access and refresh tokens ("" when absent)
	Tokens(ctx context.Context) (access, refresh string)
	// SetTokens stores a refreshed pair. An empty refresh keeps the old one.
	SetTokens(ctx context.Context, access, refresh string) error
	// GuestID returns the persisted guest identifier, creating it on first use
	GuestID(ctx context.Context) (string, error)
	// Clear drops all local auth state
	Clear(ctx context.Context) error
}

type Options struct {
	BaseURL     string
	Timeout     time.Duration // 0 = none
	GuestHeader string
	RefreshPath string

	// HTTPClient overrides the default client (transport, jar, timeout).
	HTTPClient *http.Client

	// OnSessionExpired runs after the session was cleared because a 401
	// survived the refresh attempt.
	OnSessionExpired func()
}

// Client talks to the storefront REST API.
type Client struct {
	baseURL     string
	guestHeader string
	refreshPath string
	httpClient  *http.Client
	session     SessionStore
	onExpired   func()
	refreshes   singleflight.Group
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func NewClient(opts Options, session SessionStore) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("api base url is required")
	}
	if session == nil {
		return nil, fmt.Errorf("session store is required")
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("create cookie jar: %w", err)
		}
		httpClient = &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Jar:       jar,
			Timeout:   opts.Timeout,
		}
	}

	guestHeader := opts.GuestHeader
	if guestHeader == "" {
		guestHeader = "X-Guest-Id"
	}
	refreshPath := opts.RefreshPath
	if refreshPath == "" {
		refreshPath = "/auth/token/refresh/"
	}

	return &Client{
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		guestHeader: guestHeader,
		refreshPath: refreshPath,
		httpClient:  httpClient,
		session:     session,
		onExpired:   opts.OnSessionExpired,
	}, nil
}

func (c *Client) Get(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out interface{}) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out interface{}) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do sends one API call and decodes the envelope's data into out (may be nil).
//
// A 401 on an authenticated call triggers exactly one refresh + retry. If the
// retry is still unauthorized, or the refresh fails, the session is cleared
// and ErrSessionExpired is returned.
func (c *Client) Do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	access, refresh := c.session.Tokens(ctx)

	status, data, err := c.send(ctx, method, path, payload, access)
	if err != nil {
		return err
	}

	if status == http.StatusUnauthorized && access != "" {
		if refresh == "" {
			c.expire(ctx, method, path)
			return ErrSessionExpired
		}

		newAccess, err := c.refresh(ctx, access, refresh)
		if err != nil {
			logger.Error("token refresh failed", err)
			c.expire(ctx, method, path)
			return ErrSessionExpired
		}

		status, data, err = c.send(ctx, method, path, payload, newAccess)
		if err != nil {
			return err
		}
		if status == http.StatusUnauthorized {
			c.expire(ctx, method, path)
			return ErrSessionExpired
		}
	}

	return decode(status, data, out)
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, access string) (int, []byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if access != "" {
		req.Header.Set("Authorization", "Bearer "+access)
	} else {
		guestID, err := c.session.GuestID(ctx)
		if err != nil {
			return 0, nil, fmt.Errorf("resolve guest id: %w", err)
		}
		req.Header.Set(c.guestHeader, guestID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, data, nil
}

// refresh exchanges the refresh token for a new access token. Concurrent
// callers holding the same stale token share one refresh request.
func (c *Client) refresh(ctx context.Context, staleAccess, refreshToken string) (string, error) {
	v, err, _ := c.refreshes.Do(staleAccess, func() (interface{}, error) {
		payload, err := json.Marshal(refreshRequest{Refresh: refreshToken})
		if err != nil {
			return "", err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+c.refreshPath, bytes.NewReader(payload))
		if err != nil {
			return "", err
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", err
		}

		var out refreshResponse
		if err := decode(resp.StatusCode, data, &out); err != nil {
			return "", err
		}
		if out.Access == "" {
			return "", fmt.Errorf("refresh response has no access token")
		}

		if err := c.session.SetTokens(ctx, out.Access, out.Refresh); err != nil {
			return "", fmt.Errorf("store refreshed token: %w", err)
		}
		return out.Access, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (c *Client) expire(ctx context.Context, method, path string) {
	logger.Warn("session expired", map[string]interface{}{
		"method": method,
		"path":   path,
	})

	if err := c.session.Clear(ctx); err != nil {
		logger.Error("clear session failed", err)
	}
	if c.onExpired != nil {
		c.onExpired()
	}
}

func decode(status int, data []byte, out interface{}) error {
	var env response.Envelope
	hasBody := len(bytes.TrimSpace(data)) > 0
	if hasBody {
		if err := json.Unmarshal(data, &env); err != nil {
			if status < 200 || status >= 300 {
				return &APIError{StatusCode: status}
			}
			return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}

	if status < 200 || status >= 300 || (hasBody && !env.Success && env.Error != nil) {
		apiErr := &APIError{StatusCode: status}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
			apiErr.Details = env.Error.Details
		}
		return apiErr
	}

	if out == nil || len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return nil
}

// Requester is the slice of Client the repositories depend on.
type Requester interface {
	Do(ctx context.Context, method, path string, body, out interface{}) error
}

var _ Requester = (*Client)(nil)
