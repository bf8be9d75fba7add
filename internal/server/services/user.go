// Package services contains server-side business logic. This file implements
// UserService, which registers accounts, checks credentials and issues
// session tokens.
package services

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

const (
	opRegister = "register"
	opLogin    = "login"
)

// UserService provides authentication-related operations:
// - Register: create a user and open a session for it
// - Login: verify credentials and open a session
//
// Errors returned are *ValidationError, common.ErrorAlreadyExists,
// common.ErrorUnauthorized or common.ErrorInternal.
type UserService struct {
	users   usersrepo.Repository
	hasher  *auth.PasswordHasher
	tokens  *auth.TokenCodec
	logger  logging.Logger
	metrics *metrics.Metrics
}

// NewUserService wires the service. m may be nil.
func NewUserService(users usersrepo.Repository, hasher *auth.PasswordHasher, tokens *auth.TokenCodec,
	logger logging.Logger, m *metrics.Metrics) *UserService {
	return &UserService{
		users:   users,
		hasher:  hasher,
		tokens:  tokens,
		logger:  logger.With("module", "user_service"),
		metrics: m,
	}
}

// Register creates the account and returns it with a fresh session token.
// Uniqueness of the email is left to the store, so two concurrent sign-ups
// with one address produce exactly one account.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.PublicUser, string, error) {
	start := time.Now()

	in.normalize()
	if err := in.Validate(); err != nil {
		s.metrics.RecordAuthAttempt(opRegister, metrics.OutcomeValidation, time.Since(start))
		return nil, "", err
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.logger.Error(ctx, "hash password", "error", err)
		s.metrics.RecordAuthAttempt(opRegister, metrics.OutcomeError, time.Since(start))
		return nil, "", common.ErrorInternal
	}

	user, err := s.users.Create(ctx, &models.User{Email: in.Email, PasswordHash: hash, Name: in.Name})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			s.logger.Info(ctx, "registration rejected, email taken")
			s.metrics.RecordAuthAttempt(opRegister, metrics.OutcomeConflict, time.Since(start))
			return nil, "", common.ErrorAlreadyExists
		}
		s.logger.Error(ctx, "create user", "error", err)
		s.metrics.RecordAuthAttempt(opRegister, metrics.OutcomeError, time.Since(start))
		return nil, "", common.ErrorInternal
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error(ctx, "issue token", "user_id", user.ID, "error", err)
		s.metrics.RecordAuthAttempt(opRegister, metrics.OutcomeError, time.Since(start))
		return nil, "", common.ErrorInternal
	}

	s.logger.Info(ctx, "user registered", "user_id", user.ID)
	s.metrics.RecordAuthAttempt(opRegister, metrics.OutcomeSuccess, time.Since(start))
	return user.Public(), token, nil
}

// Login checks the password and returns the user with a fresh session token.
// Unknown email and wrong password both yield common.ErrorUnauthorized and
// both cost one bcrypt comparison.
func (s *UserService) Login(ctx context.Context, in LoginInput) (*models.PublicUser, string, error) {
	start := time.Now()

	in.normalize()
	if err := in.Validate(); err != nil {
		s.metrics.RecordAuthAttempt(opLogin, metrics.OutcomeValidation, time.Since(start))
		return nil, "", err
	}

	user, err := s.users.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			s.hasher.VerifyDummy(in.Password)
			s.metrics.RecordAuthAttempt(opLogin, metrics.OutcomeInvalid, time.Since(start))
			return nil, "", common.ErrorUnauthorized
		}
		s.logger.Error(ctx, "get user by email", "error", err)
		s.metrics.RecordAuthAttempt(opLogin, metrics.OutcomeError, time.Since(start))
		return nil, "", common.ErrorInternal
	}

	if !s.hasher.Verify(in.Password, user.PasswordHash) {
		s.logger.Debug(ctx, "password mismatch", "user_id", user.ID)
		s.metrics.RecordAuthAttempt(opLogin, metrics.OutcomeInvalid, time.Since(start))
		return nil, "", common.ErrorUnauthorized
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error(ctx, "issue token", "user_id", user.ID, "error", err)
		s.metrics.RecordAuthAttempt(opLogin, metrics.OutcomeError, time.Since(start))
		return nil, "", common.ErrorInternal
	}

	s.logger.Info(ctx, "user logged in", "user_id", user.ID)
	s.metrics.RecordAuthAttempt(opLogin, metrics.OutcomeSuccess, time.Since(start))
	return user.Public(), token, nil
}

// Message maps an error returned by Register or Login to the text shown to
// the user.
func Message(err error) string {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return verr.Message
	case errors.Is(err, common.ErrorAlreadyExists):
		return MsgUserExists
	case errors.Is(err, common.ErrorUnauthorized):
		return MsgInvalidCredentials
	default:
		return MsgSomethingWentWrong
	}
}
