package client

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/httpserver"
	usersrepo "github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophauth/internal/server/services"
	"github.com/dmitrijs2005/gophauth/internal/server/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// startServer runs the real HTTP routes over an in-memory store.
func startServer(t *testing.T) string {
	t.Helper()

	logger := logging.NewDiscardLogger()
	repo := usersrepo.NewInMemoryRepository()

	hasher, err := auth.NewPasswordHasher(bcrypt.MinCost)
	require.NoError(t, err)
	codec, err := auth.NewTokenCodec([]byte("client-test-secret"), 0)
	require.NoError(t, err)

	resolver := session.NewResolver(codec, repo, logger)
	srv := httpserver.NewHTTPServer("127.0.0.1:0", logger, httpserver.Deps{
		Users:    services.NewUserService(repo, hasher, codec, logger, nil),
		Resolver: resolver,
		Guard:    session.NewGuard(resolver),
		Cookie:   auth.DefaultSessionCookie,
	})

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	t.Cleanup(func() {
		cancel()
		<-done
	})

	return "http://" + ln.Addr().String()
}

func newClient(t *testing.T, baseURL string) *HTTPClient {
	t.Helper()
	c, err := NewHTTPClient(baseURL, 5*time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestHTTPClient_SessionLifecycle(t *testing.T) {
	ctx := context.Background()
	c := newClient(t, startServer(t))

	_, err := c.WhoAmI(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)

	registered, err := c.Register(ctx, "Ann@Example.com", "password123", "Ann")
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", registered.Email)
	assert.Equal(t, "Ann", registered.Name)
	assert.NotEmpty(t, c.Token())

	me, err := c.WhoAmI(ctx)
	require.NoError(t, err)
	assert.Equal(t, registered.ID, me.ID)

	require.NoError(t, c.Logout(ctx))
	assert.Empty(t, c.Token())

	_, err = c.WhoAmI(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)

	loggedIn, err := c.Login(ctx, "ann@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, loggedIn.ID)
}

func TestHTTPClient_RejectedForms(t *testing.T) {
	ctx := context.Background()
	base := startServer(t)

	first := newClient(t, base)
	_, err := first.Register(ctx, "bob@example.com", "password123", "Bob")
	require.NoError(t, err)

	second := newClient(t, base)

	_, err = second.Register(ctx, "bob@example.com", "password123", "Bob")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, services.MsgUserExists, apiErr.Message)
	assert.False(t, errors.Is(err, ErrUnavailable))

	_, err = second.Login(ctx, "bob@example.com", "wrong-password")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, services.MsgInvalidCredentials, apiErr.Message)

	_, err = second.Register(ctx, "not-an-email", "short", "")
	require.ErrorAs(t, err, &apiErr)
	assert.NotEmpty(t, apiErr.Fields)
	assert.Empty(t, second.Token())
}

func TestHTTPClient_Ping(t *testing.T) {
	c := newClient(t, startServer(t))
	assert.NoError(t, c.Ping(context.Background()))
}

func TestHTTPClient_Unavailable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := newClient(t, "http://"+addr)

	assert.ErrorIs(t, c.Ping(context.Background()), ErrUnavailable)
	_, err = c.Login(context.Background(), "a@b.c", "password123")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_ServerErrorIsUnavailable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"Something went wrong"}`))
	}))
	t.Cleanup(ts.Close)

	c := newClient(t, ts.URL)

	_, err := c.Login(context.Background(), "a@b.c", "password123")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "Something went wrong", apiErr.Message)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestHTTPClient_StaleSessionIsDropped(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case pathLogin:
			http.SetCookie(w, &http.Cookie{Name: "token", Value: "abc", HttpOnly: true, Path: "/"})
			http.Redirect(w, r, pathDashboard, http.StatusFound)
		case pathDashboard:
			http.Redirect(w, r, pathLogin, http.StatusFound)
		}
	}))
	t.Cleanup(ts.Close)

	c := newClient(t, ts.URL)

	_, err := c.Login(context.Background(), "a@b.c", "password123")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, c.Token())
}

func TestHTTPClient_LogoutCookieClearsToken(t *testing.T) {
	var gotCookie string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ck, err := r.Cookie("token"); err == nil {
			gotCookie = ck.Value
		}
		w.Header().Add("Set-Cookie", auth.EncodeLogout())
		http.Redirect(w, r, pathHome, http.StatusFound)
	}))
	t.Cleanup(ts.Close)

	c := newClient(t, ts.URL)
	c.setToken("held")

	require.NoError(t, c.Logout(context.Background()))
	assert.Equal(t, "held", gotCookie)
	assert.Empty(t, c.Token())
}

func TestNewHTTPClient_InvalidURL(t *testing.T) {
	for _, raw := range []string{"", "127.0.0.1:8080", "://nope"} {
		_, err := NewHTTPClient(raw, time.Second)
		assert.Error(t, err, raw)
	}
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Status: 400, Message: "Invalid input", Fields: map[string]string{
		"password": "too short",
		"email":    "invalid",
	}}
	assert.Equal(t, "Invalid input (email: invalid; password: too short)", err.Error())
	assert.NoError(t, err.Unwrap())

	assert.Equal(t, "boom", (&APIError{Status: 502, Message: "boom"}).Error())
}
