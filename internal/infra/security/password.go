package security

import (
	"crypto/subtle"
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("security: invalid credentials")

type BcryptHasher struct {
	Cost int
}

func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.cost()
	out, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (h BcryptHasher) Compare(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

func (h BcryptHasher) cost() int {
	if h.Cost >= bcrypt.MinCost {
		return h.Cost
	}
	return bcrypt.DefaultCost
}

// OperatorCredentials checks the single operator account guarding the
// admin API.
type OperatorCredentials struct {
	User         string
	PasswordHash string
	Hasher       BcryptHasher
}

// Verify returns the operator name on success.
func (c OperatorCredentials) Verify(user, password string) (string, error) {
	if c.User == "" || c.PasswordHash == "" {
		return "", ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(c.User)) == 1
	// always hash so a wrong user name takes as long as a wrong password
	passErr := c.Hasher.Compare(c.PasswordHash, password)
	if !userOK || passErr != nil {
		return "", ErrInvalidCredentials
	}
	return c.User, nil
}
