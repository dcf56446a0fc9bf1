// Package auth turns signed bearer tokens into request actors.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rpggio/recordbase/internal/domain/access"
)

// Config holds signer verification parameters.
type Config struct {
	Secret string
	Issuer string
	// TTL is the lifetime of issued tokens.
	TTL time.Duration
}

// ErrMissingToken is returned when no bearer token was supplied.
var ErrMissingToken = errors.New("missing bearer token")

// ErrInvalidToken wraps parsing/validation errors.
var ErrInvalidToken = errors.New("invalid bearer token")

// Claims is the token payload. Capabilities and groups apply to every instance.
type Claims struct {
	jwt.RegisteredClaims
	Capabilities []access.Capability `json:"caps,omitempty"`
	Groups       []int64             `json:"groups,omitempty"`
	GivenName    string              `json:"given_name,omitempty"`
	FamilyName   string              `json:"family_name,omitempty"`
}

// Actor returns the identity the claims describe.
func (c *Claims) Actor() access.Actor {
	return access.Actor{
		UserID:       c.Subject,
		Capabilities: c.Capabilities,
		Groups:       c.Groups,
	}
}

// Tokens issues and verifies HS256 tokens.
type Tokens struct {
	cfg Config
	now func() time.Time
}

// NewTokens creates a token service. The secret is required.
func NewTokens(cfg Config) (*Tokens, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, fmt.Errorf("auth secret missing")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	return &Tokens{cfg: cfg, now: time.Now}, nil
}

// Identity is what a token is issued for.
type Identity struct {
	Actor      access.Actor
	GivenName  string
	FamilyName string
}

// Issue signs a token for id.
func (t *Tokens) Issue(id Identity) (string, error) {
	if strings.TrimSpace(id.Actor.UserID) == "" {
		return "", fmt.Errorf("user id required")
	}
	now := t.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Actor.UserID,
			Issuer:    t.cfg.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.cfg.TTL)),
		},
		Capabilities: id.Actor.Capabilities,
		Groups:       id.Actor.Groups,
		GivenName:    id.GivenName,
		FamilyName:   id.FamilyName,
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(t.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse validates a token and returns its claims.
func (t *Tokens) Parse(token string) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	}
	if t.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(t.cfg.Issuer))
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(tok *jwt.Token) (interface{}, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", tok.Header["alg"])
		}
		return []byte(t.cfg.Secret), nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// ResolveActor parses token into an actor.
func (t *Tokens) ResolveActor(_ context.Context, token string) (access.Actor, error) {
	claims, err := t.Parse(token)
	if err != nil {
		return access.Actor{}, err
	}
	return claims.Actor(), nil
}
