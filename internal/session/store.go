// Package session holds the console's bearer token and derives the role
// used to show or hide mutation controls. The role is read from the token
// without verifying its signature: it gates the interface only, and the
// backend re-checks authorization on every mutating endpoint.
package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"

	"github.com/hongminglow/lending-console/internal/models"
)

// TokenKey is the fixed key the token is stored under.
const TokenKey = "token"

// DemoToken is what the console stores when it signs in without a backend.
const DemoToken = "demo-token"

// Store reads and clears the session token. It never touches the network.
type Store struct {
	kv   KV
	demo bool
	log  logrus.FieldLogger
}

// Option configures a Store.
type Option func(*Store)

// WithDemoMode makes demo tokens count as admin.
func WithDemoMode(enabled bool) Option {
	return func(s *Store) { s.demo = enabled }
}

// WithLogger sets the logger used to report storage failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) { s.log = log }
}

// NewStore builds a session store over kv.
func NewStore(kv KV, opts ...Option) *Store {
	s := &Store{kv: kv, log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// DemoMode reports whether demo tokens are honoured.
func (s *Store) DemoMode() bool { return s.demo }

// Token returns the stored token. A storage failure counts as no token.
func (s *Store) Token(ctx context.Context) (string, bool) {
	token, ok, err := s.kv.Get(ctx, TokenKey)
	if err != nil {
		s.log.WithError(err).Warn("session: read token")
		return "", false
	}
	if !ok || strings.TrimSpace(token) == "" {
		return "", false
	}
	return token, true
}

// SetToken stores token after a successful login or registration.
func (s *Store) SetToken(ctx context.Context, token string) error {
	return s.kv.Set(ctx, TokenKey, token)
}

// Role returns the role claimed by the stored token.
func (s *Store) Role(ctx context.Context) (string, bool) {
	token, ok := s.Token(ctx)
	if !ok {
		return "", false
	}
	return RoleFromToken(token, s.demo)
}

// IsAdmin reports whether the stored token claims the admin role.
func (s *Store) IsAdmin(ctx context.Context) bool {
	role, ok := s.Role(ctx)
	return ok && role == models.RoleAdmin
}

// Logout clears the stored token. The backend is not contacted.
func (s *Store) Logout(ctx context.Context) error {
	return s.kv.Delete(ctx, TokenKey)
}

// RoleFromToken reads the role claim from the payload segment of token.
// With demo set, demo tokens without a readable role count as admin.
func RoleFromToken(token string, demo bool) (string, bool) {
	isDemo := token == DemoToken || strings.HasPrefix(token, "demo.")
	role, ok := decodeRole(token)
	if demo && isDemo && !ok {
		return models.RoleAdmin, true
	}
	return role, ok
}

func decodeRole(token string) (string, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err == nil {
		return roleClaim(claims)
	}

	parts := strings.Split(token, ".")
	if len(parts) < 2 {
		return "", false
	}
	payload, err := decodeSegment(parts[1])
	if err != nil {
		return "", false
	}
	claims = jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return "", false
	}
	return roleClaim(claims)
}

func roleClaim(claims jwt.MapClaims) (string, bool) {
	role, ok := claims["role"].(string)
	if !ok || role == "" {
		return "", false
	}
	return role, true
}

// decodeSegment accepts both URL-safe and standard base64, padded or not.
func decodeSegment(seg string) ([]byte, error) {
	seg = strings.TrimRight(seg, "=")
	if b, err := base64.RawURLEncoding.DecodeString(seg); err == nil {
		return b, nil
	}
	return base64.RawStdEncoding.DecodeString(seg)
}
