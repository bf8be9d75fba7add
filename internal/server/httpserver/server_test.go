package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	usersrepo "github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/session"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type brokenRepo struct{}

func (brokenRepo) Create(context.Context, *models.User) (*models.User, error) {
	return nil, errors.New("db error: down")
}

func (brokenRepo) GetUserByEmail(context.Context, string) (*models.User, error) {
	return nil, errors.New("db error: down")
}

func (brokenRepo) GetUserByID(context.Context, string) (*models.User, error) {
	return nil, errors.New("db error: down")
}

func newTestServer(t *testing.T, repo usersrepo.Repository) *HTTPServer {
	t.Helper()

	logger := logging.NewDiscardLogger()
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	codec, err := auth.NewTokenCodec([]byte("test-secret"), 0)
	require.NoError(t, err)

	resolver := session.NewResolver(codec, repo, logger, session.WithMetrics(m))
	return NewHTTPServer("127.0.0.1:0", logger, Deps{
		Users:    services.NewUserService(repo, hasher, codec, logger, m),
		Resolver: resolver,
		Guard:    session.NewGuard(resolver),
		Cookie:   auth.DefaultSessionCookie,
		Gatherer: reg,
	})
}

func form(values map[string]string) io.Reader {
	v := url.Values{}
	for k, val := range values {
		v.Set(k, val)
	}
	return strings.NewReader(v.Encode())
}

func do(t *testing.T, s *HTTPServer, method, path string, body io.Reader, contentType, cookie string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if cookie != "" {
		req.Header.Set("Cookie", cookie)
	}
	resp, err := s.App().Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func sessionPair(t *testing.T, resp *http.Response) string {
	t.Helper()
	setCookie := resp.Header.Get("Set-Cookie")
	require.NotEmpty(t, setCookie)
	pair, _, _ := strings.Cut(setCookie, ";")
	return pair
}

const formType = "application/x-www-form-urlencoded"

func TestRegisterLoginDashboardLogout(t *testing.T) {
	s := newTestServer(t, usersrepo.NewInMemoryRepository())

	resp := do(t, s, http.MethodPost, "/register",
		form(map[string]string{"email": "a@x.com", "password": "longenough1", "name": "A"}), formType, "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	setCookie := resp.Header.Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(setCookie, "token="))
	assert.True(t, strings.HasSuffix(setCookie, "; HttpOnly; Path=/; Max-Age=604800; SameSite=Lax"), setCookie)
	cookie := sessionPair(t, resp)

	resp = do(t, s, http.MethodGet, "/dashboard", nil, "", cookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var dash userResponse
	decode(t, resp, &dash)
	require.NotNil(t, dash.User)
	assert.Equal(t, "a@x.com", dash.User.Email)
	registeredID := dash.User.ID

	resp = do(t, s, http.MethodPost, "/login",
		strings.NewReader(`{"email":"a@x.com","password":"longenough1"}`), "application/json", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)
	loginCookie := sessionPair(t, resp)

	resp = do(t, s, http.MethodGet, "/", nil, "", loginCookie)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var home userResponse
	decode(t, resp, &home)
	require.NotNil(t, home.User)
	assert.Equal(t, registeredID, home.User.ID)

	resp = do(t, s, http.MethodGet, "/logout", nil, "", loginCookie)
	require.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/", resp.Header.Get("Location"))
	assert.Equal(t, "token=; HttpOnly; Path=/; Max-Age=0; SameSite=Lax", resp.Header.Get("Set-Cookie"))

	resp = do(t, s, http.MethodGet, "/dashboard", nil, "", sessionPair(t, resp))
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestDashboard_RedirectsAnonymous(t *testing.T) {
	s := newTestServer(t, usersrepo.NewInMemoryRepository())

	for _, cookie := range []string{"", "token=", "token=forged.jwt.value", "theme=dark"} {
		resp := do(t, s, http.MethodGet, "/dashboard", nil, "", cookie)
		assert.Equal(t, http.StatusFound, resp.StatusCode, "cookie %q", cookie)
		assert.Equal(t, "/login", resp.Header.Get("Location"))
	}
}

func TestLoginAndRegisterPages(t *testing.T) {
	s := newTestServer(t, usersrepo.NewInMemoryRepository())

	resp := do(t, s, http.MethodGet, "/login", nil, "", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, s, http.MethodPost, "/register",
		form(map[string]string{"email": "a@x.com", "password": "longenough1", "name": "A"}), formType, "")
	cookie := sessionPair(t, resp)

	for _, path := range []string{"/login", "/register"} {
		resp = do(t, s, http.MethodGet, path, nil, "", cookie)
		assert.Equal(t, http.StatusFound, resp.StatusCode, path)
		assert.Equal(t, "/dashboard", resp.Header.Get("Location"))
	}
}

func TestRegister_Errors(t *testing.T) {
	s := newTestServer(t, usersrepo.NewInMemoryRepository())

	resp := do(t, s, http.MethodPost, "/register",
		form(map[string]string{"email": "a@x.com", "password": "short", "name": "A"}), formType, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body errorResponse
	decode(t, resp, &body)
	assert.Equal(t, services.MsgPasswordTooShort, body.Error)
	assert.Contains(t, body.Fields, "password")
	assert.Empty(t, resp.Header.Get("Set-Cookie"))

	resp = do(t, s, http.MethodPost, "/register",
		form(map[string]string{"email": "a@x.com"}), formType, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	decode(t, resp, &body)
	assert.Equal(t, services.MsgAllFieldsRequired, body.Error)

	valid := map[string]string{"email": "a@x.com", "password": "longenough1", "name": "A"}
	resp = do(t, s, http.MethodPost, "/register", form(valid), formType, "")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = do(t, s, http.MethodPost, "/register", form(valid), formType, "")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	body = errorResponse{}
	decode(t, resp, &body)
	assert.Equal(t, services.MsgUserExists, body.Error)
	assert.Empty(t, body.Fields)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	s := newTestServer(t, usersrepo.NewInMemoryRepository())

	resp := do(t, s, http.MethodPost, "/register",
		form(map[string]string{"email": "a@x.com", "password": "longenough1", "name": "A"}), formType, "")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	for _, creds := range []map[string]string{
		{"email": "a@x.com", "password": "wrongpassword"},
		{"email": "nobody@x.com", "password": "longenough1"},
	} {
		resp = do(t, s, http.MethodPost, "/login", form(creds), formType, "")
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body errorResponse
		decode(t, resp, &body)
		assert.Equal(t, services.MsgInvalidCredentials, body.Error)
		assert.Empty(t, resp.Header.Get("Set-Cookie"))
	}
}

func TestStoreOutage(t *testing.T) {
	s := newTestServer(t, brokenRepo{})

	resp := do(t, s, http.MethodPost, "/login",
		form(map[string]string{"email": "a@x.com", "password": "longenough1"}), formType, "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	resp = do(t, s, http.MethodGet, "/dashboard", nil, "", "token=whatever")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, usersrepo.NewInMemoryRepository())

	do(t, s, http.MethodGet, "/dashboard", nil, "", "")

	resp := do(t, s, http.MethodGet, "/metrics", nil, "", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(b), `gophauth_session_resolutions_total{reason="no_cookie"} 1`)
}

func TestServe_StopsOnCancel(t *testing.T) {
	s := newTestServer(t, usersrepo.NewInMemoryRepository())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}

func startListening(t *testing.T, s *HTTPServer) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return "http://" + ln.Addr().String()
}

func TestFormRequests_OverOneConnection(t *testing.T) {
	repo := usersrepo.NewInMemoryRepository()
	base := startListening(t, newTestServer(t, repo))

	transport := &http.Transport{MaxIdleConnsPerHost: 1, MaxConnsPerHost: 1}
	t.Cleanup(transport.CloseIdleConnections)
	client := &http.Client{
		Transport: transport,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	post := func(path string, values map[string]string) *http.Response {
		t.Helper()
		resp, err := client.Post(base+path, formType, form(values))
		require.NoError(t, err)
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		return resp
	}

	resp := post("/register", map[string]string{"email": "a@x.com", "password": "longenough1", "name": "A"})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	for i := 0; i < 4; i++ {
		resp = post("/register", map[string]string{
			"email":    fmt.Sprintf("user%d@example.org", i),
			"password": "longenough1",
			"name":     fmt.Sprintf("User %d", i),
		})
		require.Equal(t, http.StatusFound, resp.StatusCode)
	}

	resp = post("/login", map[string]string{"email": "a@x.com", "password": "longenough1"})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/dashboard", resp.Header.Get("Location"))

	resp = post("/register", map[string]string{"email": "a@x.com", "password": "otherpassword", "name": "B"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, 5, repo.Len())

	for i := 0; i < 4; i++ {
		u, err := repo.GetUserByEmail(context.Background(), fmt.Sprintf("user%d@example.org", i))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("User %d", i), u.Name)
	}
}
