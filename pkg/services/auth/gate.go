// Package auth issues and verifies the bearer tokens guarding the API.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultTokenTTL = time.Hour
	issuer          = "cloud-audit"
)

type ErrorKind string

const (
	KindMissing ErrorKind = "missing"
	KindExpired ErrorKind = "expired"
	KindInvalid ErrorKind = "invalid"
)

var (
	ErrMissing = &Error{Kind: KindMissing}
	ErrExpired = &Error{Kind: KindExpired}
	ErrInvalid = &Error{Kind: KindInvalid}
)

type Error struct {
	Kind  ErrorKind
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("token %s: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("token %s", e.Kind)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

type Claims struct {
	jwt.RegisteredClaims
}

// Gate verifies HS256 tokens signed with a shared key. A gate without a key
// is disabled and lets every request through.
type Gate struct {
	key   []byte
	ttl   time.Duration
	users map[string]string // username -> bcrypt hash
	now   func() time.Time
}

type Option func(*Gate)

func WithTTL(ttl time.Duration) Option {
	return func(g *Gate) {
		if ttl > 0 {
			g.ttl = ttl
		}
	}
}

// WithUsers sets the accounts allowed to obtain tokens. Usernames are case
// insensitive; configuration loaders lowercase map keys.
func WithUsers(users map[string]string) Option {
	return func(g *Gate) {
		g.users = make(map[string]string, len(users))
		for name, hash := range users {
			g.users[strings.ToLower(name)] = hash
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		g.now = now
	}
}

func NewGate(signingKey string, opts ...Option) *Gate {
	g := &Gate{
		key: []byte(signingKey),
		ttl: DefaultTokenTTL,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) Enabled() bool {
	return len(g.key) > 0
}

// Verify checks a raw token and returns its claims.
func (g *Gate) Verify(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissing
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(g.now),
	)
	_, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return g.key, nil
	})
	switch {
	case err == nil:
		return claims, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, &Error{Kind: KindExpired, Cause: err}
	default:
		return nil, &Error{Kind: KindInvalid, Cause: err}
	}
}

// Issue signs a token for username once the password matches its bcrypt hash.
func (g *Gate) Issue(username, password string) (string, time.Time, error) {
	username = strings.ToLower(username)
	hash, ok := g.users[username]
	if !ok {
		// same cost as a wrong password
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return "", time.Time{}, &Error{Kind: KindInvalid, Cause: errors.New("unknown user or wrong password")}
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return "", time.Time{}, &Error{Kind: KindInvalid, Cause: errors.New("unknown user or wrong password")}
	}
	return g.Sign(username)
}

// Sign issues a token for subject without a password check.
func (g *Gate) Sign(subject string) (string, time.Time, error) {
	if !g.Enabled() {
		return "", time.Time{}, errors.New("token signing is disabled: no signing key configured")
	}

	now := g.now()
	expiresAt := now.Add(g.ttl)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(g.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	if header == "" {
		return "", ErrMissing
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", &Error{Kind: KindInvalid, Cause: errors.New("invalid Authorization header")}
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrMissing
	}
	return token, nil
}

// bcrypt hash of an unguessable value
const dummyHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3ZsR5Yx5eaRZ4Jrz0pWzfHe"
