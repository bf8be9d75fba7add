// Package services contains application services for the gophauth client.
// The authentication service keeps track of who is signed in and turns the
// raw password bytes collected by the CLI into transport calls.
package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/client/client"
	"github.com/dmitrijs2005/gophauth/internal/client/models"
)

// AuthService defines authentication operations for the CLI.
//
// Contract:
//   - Register / Login: create or open a session and remember the user.
//   - WhoAmI: ask the server who the session belongs to.
//   - Logout: end the session locally and on the server.
//   - Ping: check server liveness.
//   - Close: release underlying client resources.
//
// All methods must honor context cancellation/timeouts.
type AuthService interface {
	Register(ctx context.Context, email string, password []byte, name string) (*models.User, error)
	Login(ctx context.Context, email string, password []byte) (*models.User, error)
	WhoAmI(ctx context.Context) (*models.User, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
	CurrentUser() *models.User
}

// authService is the concrete AuthService backed by a remote Client.
type authService struct {
	client client.Client

	mu      sync.RWMutex
	current *models.User
}

// NewAuthService constructs an AuthService bound to the given API client.
func NewAuthService(client client.Client) AuthService {
	return &authService{client: client}
}

func (a *authService) setCurrent(u *models.User) {
	a.mu.Lock()
	a.current = u
	a.mu.Unlock()
}

// CurrentUser is the user of the last successful Register, Login or WhoAmI,
// or nil.
func (a *authService) CurrentUser() *models.User {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.current
}

// Register creates an account; on success the new session becomes current.
func (a *authService) Register(ctx context.Context, email string, password []byte, name string) (*models.User, error) {
	u, err := a.client.Register(ctx, strings.TrimSpace(email), string(password), strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	a.setCurrent(u)
	return u, nil
}

// Login replaces any current session with the one for email.
func (a *authService) Login(ctx context.Context, email string, password []byte) (*models.User, error) {
	u, err := a.client.Login(ctx, strings.TrimSpace(email), string(password))
	if err != nil {
		return nil, err
	}
	a.setCurrent(u)
	return u, nil
}

// WhoAmI refreshes the current user. A session the server no longer accepts
// is forgotten.
func (a *authService) WhoAmI(ctx context.Context) (*models.User, error) {
	u, err := a.client.WhoAmI(ctx)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.setCurrent(nil)
		}
		return nil, err
	}
	a.setCurrent(u)
	return u, nil
}

// Logout forgets the current user even when the server call fails.
func (a *authService) Logout(ctx context.Context) error {
	a.setCurrent(nil)
	return a.client.Logout(ctx)
}

// Ping proxies a liveness check to the underlying client.
func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

// Close releases resources held by the underlying client.
func (a *authService) Close(ctx context.Context) error {
	return a.client.Close()
}
