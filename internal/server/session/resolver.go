// Package session turns an incoming Cookie header into the signed-in user.
//
// Every failure (no cookie, no token, bad or expired token, unknown user,
// store trouble) looks the same to callers: no user. The Reason on a
// Resolution is only for logs and metrics.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/dmitrijs2005/gophauth/internal/server/auth"
	"github.com/dmitrijs2005/gophauth/internal/server/metrics"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	usersrepo "github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// Reason explains a Resolution.
type Reason string

const (
	ReasonAuthenticated Reason = "authenticated"
	ReasonNoCookie      Reason = "no_cookie"
	ReasonNoToken       Reason = "no_token"
	ReasonInvalidToken  Reason = "invalid_token"
	ReasonExpiredToken  Reason = "expired_token"
	ReasonUnknownUser   Reason = "unknown_user"
	ReasonLookupFailed  Reason = "lookup_failed"
)

// DefaultLookupTimeout bounds the user store lookup of a single resolution.
const DefaultLookupTimeout = 5 * time.Second

// Resolution is the detailed result of Inspect. User is nil unless Reason
// is ReasonAuthenticated.
type Resolution struct {
	User   *models.PublicUser
	Reason Reason
}

type Resolver struct {
	cookie        auth.SessionCookie
	tokens        *auth.TokenCodec
	users         usersrepo.Repository
	lookupTimeout time.Duration
	logger        logging.Logger
	metrics       *metrics.Metrics
}

type Option func(*Resolver)

func WithLookupTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.lookupTimeout = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) { r.metrics = m }
}

func WithCookie(c auth.SessionCookie) Option {
	return func(r *Resolver) { r.cookie = c }
}

func NewResolver(tokens *auth.TokenCodec, users usersrepo.Repository, logger logging.Logger, opts ...Option) *Resolver {
	r := &Resolver{
		cookie:        auth.DefaultSessionCookie,
		tokens:        tokens,
		users:         users,
		lookupTimeout: DefaultLookupTimeout,
		logger:        logger.With("module", "session"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the signed-in user or false.
func (r *Resolver) Resolve(ctx context.Context, cookieHeader string) (*models.PublicUser, bool) {
	res := r.Inspect(ctx, cookieHeader)
	return res.User, res.User != nil
}

// Inspect resolves cookieHeader and keeps the reason. Nothing is cached:
// each call verifies the token and queries the store again.
func (r *Resolver) Inspect(ctx context.Context, cookieHeader string) Resolution {
	res := r.inspect(ctx, cookieHeader)
	r.metrics.RecordResolution(string(res.Reason))
	return res
}

func (r *Resolver) inspect(ctx context.Context, cookieHeader string) Resolution {
	if cookieHeader == "" {
		return Resolution{Reason: ReasonNoCookie}
	}

	token, ok := r.cookie.ExtractToken(cookieHeader)
	if !ok {
		return Resolution{Reason: ReasonNoToken}
	}

	userID, err := r.tokens.Parse(token)
	if err != nil {
		reason := ReasonInvalidToken
		if errors.Is(err, common.ErrTokenExpired) {
			reason = ReasonExpiredToken
		}
		r.logger.Debug(ctx, "session token rejected", "reason", reason)
		return Resolution{Reason: reason}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, r.lookupTimeout)
	defer cancel()

	user, err := r.users.GetUserByID(lookupCtx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			r.logger.Debug(ctx, "session user not found", "user_id", userID)
			return Resolution{Reason: ReasonUnknownUser}
		}
		r.logger.Error(ctx, "session user lookup failed", "user_id", userID, "error", err)
		return Resolution{Reason: ReasonLookupFailed}
	}

	return Resolution{User: user.Public(), Reason: ReasonAuthenticated}
}
