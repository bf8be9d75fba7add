package auth

import (
	"fmt"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the work factor used for stored password hashes.
const DefaultBcryptCost = 10

// PasswordHasher hashes and verifies passwords with bcrypt at a fixed cost.
//
// It also keeps a hash of a throwaway password so that a login for an
// unknown account still spends the time of one bcrypt comparison.
type PasswordHasher struct {
	cost      int
	dummyHash []byte
}

// NewPasswordHasher validates cost against bcrypt's range and precomputes
// the dummy hash.
func NewPasswordHasher(cost int) (*PasswordHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range [%d, %d]", cost, bcrypt.MinCost, bcrypt.MaxCost)
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("gophauth-dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("generate dummy hash: %w", err)
	}

	return &PasswordHasher{cost: cost, dummyHash: dummy}, nil
}

func (h *PasswordHasher) Cost() int {
	return h.cost
}

// Hash returns the bcrypt hash of password. Each call uses a fresh salt.
func (h *PasswordHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", common.ErrEmptyPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// Verify reports whether password matches hash. A malformed hash is a
// mismatch.
func (h *PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// VerifyDummy burns one comparison against the dummy hash and always
// reports false.
func (h *PasswordHasher) VerifyDummy(password string) bool {
	_ = bcrypt.CompareHashAndPassword(h.dummyHash, []byte(password))
	return false
}
