// Package token issues and verifies time-limited, purpose-scoped signed
// tokens. A token binds a payload (an email address) to one intended use so
// that, for example, a password-reset token can never be replayed against the
// email-verification endpoint. Tokens embed their issuance time; the maximum
// age is supplied at verification, not baked into the token.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Purposes used by the account flows.
const (
	PurposeEmailVerification = "email-verification"
	PurposePasswordReset     = "password-reset"
)

var (
	// ErrInvalid covers tampered tokens, tokens signed under another secret
	// and tokens issued for a different purpose.
	ErrInvalid = errors.New("token: invalid")
	// ErrExpired means the signature checked out but the token is older than
	// the allowed age.
	ErrExpired = errors.New("token: expired")
)

type claims struct {
	Purpose string `json:"pur"`
	jwt.RegisteredClaims
}

type Service struct {
	secret []byte
	now    func() time.Time
}

func New(secret string) *Service {
	return &Service{secret: []byte(secret), now: time.Now}
}

// WithClock overrides the time source. Used by tests to drive expiry.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Issue signs payload for the given purpose. Two calls with identical
// arguments produce distinct tokens (each carries a random token id) that
// both verify.
func (s *Service) Issue(payload, purpose string) (string, error) {
	c := claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  payload,
			IssuedAt: jwt.NewNumericDate(s.now()),
			ID:       uuid.NewString(),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return tok, nil
}

// Verify checks the signature and purpose, then the elapsed time since
// issuance. Signature and purpose failures return ErrInvalid; a structurally
// valid token older than maxAge returns ErrExpired.
func (s *Service) Verify(tokenStr, purpose string, maxAge time.Duration) (string, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	var c claims
	tok, err := parser.ParseWithClaims(tokenStr, &c, func(*jwt.Token) (interface{}, error) {
		return s.secret, nil
	})
	if err != nil || !tok.Valid {
		return "", ErrInvalid
	}
	if c.Purpose != purpose {
		return "", ErrInvalid
	}
	if c.IssuedAt == nil {
		return "", ErrInvalid
	}
	if s.now().Sub(c.IssuedAt.Time) > maxAge {
		return "", ErrExpired
	}
	return c.Subject, nil
}
