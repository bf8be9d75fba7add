package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/client/models"
	"github.com/dmitrijs2005/gophauth/internal/common"
)

const (
	pathHome      = "/"
	pathRegister  = "/register"
	pathLogin     = "/login"
	pathLogout    = "/logout"
	pathDashboard = "/dashboard"
)

// errorBodyLimit caps how much of an error body is decoded.
const errorBodyLimit = 64 << 10

// HTTPClient is a Client over the server's HTTP routes. It is safe for
// concurrent use; the session token is the only mutable state.
type HTTPClient struct {
	baseURL *url.URL
	http    *http.Client

	mu    sync.RWMutex
	token string
}

var _ Client = (*HTTPClient)(nil)

func NewHTTPClient(baseURL string, timeout time.Duration) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", baseURL)
	}

	return &HTTPClient{
		baseURL: u,
		http: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}, nil
}

// Token returns the session token currently held, or "".
func (c *HTTPClient) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *HTTPClient) setToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *HTTPClient) Register(ctx context.Context, email, password, name string) (*models.User, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)
	form.Set("name", name)

	if err := c.submit(ctx, pathRegister, form); err != nil {
		return nil, err
	}
	return c.WhoAmI(ctx)
}

func (c *HTTPClient) Login(ctx context.Context, email, password string) (*models.User, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)

	if err := c.submit(ctx, pathLogin, form); err != nil {
		return nil, err
	}
	return c.WhoAmI(ctx)
}

// WhoAmI asks the guarded dashboard who the current session belongs to.
// A redirect to the login page drops the local token and yields
// ErrUnauthorized.
func (c *HTTPClient) WhoAmI(ctx context.Context) (*models.User, error) {
	if c.Token() == "" {
		return nil, ErrUnauthorized
	}

	resp, err := c.do(ctx, http.MethodGet, pathDashboard, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var body struct {
			User *models.User `json:"user"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		if body.User == nil {
			return nil, ErrUnauthorized
		}
		return body.User, nil
	case http.StatusFound, http.StatusSeeOther:
		c.setToken("")
		return nil, ErrUnauthorized
	default:
		return nil, c.apiError(resp)
	}
}

// Logout asks the server to expire the cookie. The local token is dropped
// even when the server cannot be reached.
func (c *HTTPClient) Logout(ctx context.Context) error {
	defer c.setToken("")

	resp, err := c.do(ctx, http.MethodPost, pathLogout, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound && resp.StatusCode != http.StatusOK {
		return c.apiError(resp)
	}
	return nil
}

// Ping succeeds when the server answers the home route with anything below 500.
func (c *HTTPClient) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, pathHome, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *HTTPClient) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

// submit posts a form and expects the success redirect carrying a session
// cookie.
func (c *HTTPClient) submit(ctx context.Context, path string, form url.Values) error {
	resp, err := c.do(ctx, http.MethodPost, path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound && resp.StatusCode != http.StatusSeeOther {
		return c.apiError(resp)
	}
	if c.Token() == "" {
		return errors.New("server did not set a session cookie")
	}
	return nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), body)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")
	if token := c.Token(); token != "" {
		req.AddCookie(&http.Cookie{Name: common.SessionCookieName, Value: token})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	c.storeCookie(resp)
	return resp, nil
}

// storeCookie applies a session Set-Cookie: a value replaces the token, an
// empty value or Max-Age=0 clears it.
func (c *HTTPClient) storeCookie(resp *http.Response) {
	for _, ck := range resp.Cookies() {
		if ck.Name != common.SessionCookieName {
			continue
		}
		if ck.MaxAge < 0 || ck.Value == "" {
			c.setToken("")
		} else {
			c.setToken(ck.Value)
		}
	}
}

func (c *HTTPClient) apiError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	data, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
	if err := json.Unmarshal(data, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = http.StatusText(resp.StatusCode)
	}
	return apiErr
}
