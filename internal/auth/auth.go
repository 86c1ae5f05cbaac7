// Package auth verifies passwords and issues, rotates and revokes sessions.
// A session is a short-lived HS256 access token plus an opaque refresh
// token stored server side.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"to-dogether/internal/apperr"
	"to-dogether/internal/models"
	"to-dogether/internal/repository"
	"to-dogether/pkg/crypto"
)

type Config struct {
	Secret     []byte
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// Claims are the access token claims.
type Claims struct {
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

type Session struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	ExpiresAt        time.Time `json:"expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type Provider struct {
	cfg             Config
	now             func() time.Time
	newRefreshToken func() (string, error)
}

func NewProvider(cfg Config, now func() time.Time) *Provider {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if now == nil {
		now = time.Now
	}
	return &Provider{cfg: cfg, now: now, newRefreshToken: crypto.RefreshToken}
}

func (p *Provider) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), p.cfg.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Authenticate returns the user whose credentials match. Unknown usernames
// and wrong passwords are indistinguishable to the caller.
func (p *Provider) Authenticate(ctx context.Context, q repository.Queries, username, password string) (*models.User, error) {
	u, err := q.GetUserByUsername(ctx, username)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, apperr.ErrInvalidCredentials
	}
	return u, nil
}

// IssueSession revokes every live refresh token of u and starts a new session.
func (p *Provider) IssueSession(ctx context.Context, q repository.Queries, u *models.User) (*Session, error) {
	if err := q.RevokeUserRefreshTokens(ctx, u.ID); err != nil {
		return nil, err
	}

	now := p.now().UTC()
	raw, err := p.newRefreshToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	rt := &models.RefreshToken{
		UserID:    u.ID,
		Token:     raw,
		ExpiresAt: now.Add(p.cfg.RefreshTTL),
		CreatedAt: now,
	}
	if err := q.CreateRefreshToken(ctx, rt); err != nil {
		return nil, err
	}

	access, expiresAt, err := p.signAccessToken(u, now)
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:      access,
		RefreshToken:     raw,
		ExpiresAt:        expiresAt,
		RefreshExpiresAt: rt.ExpiresAt,
	}, nil
}

// RotateSession exchanges a live refresh token for a new session. An
// expired token is revoked before ErrSessionExpired is returned, so callers
// that want the revocation kept must commit despite the error.
func (p *Provider) RotateSession(ctx context.Context, q repository.Queries, refresh string) (*Session, *models.User, error) {
	rt, err := q.GetRefreshToken(ctx, refresh)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, nil, apperr.ErrSessionInvalid
		}
		return nil, nil, err
	}
	if rt.IsRevoked {
		return nil, nil, apperr.ErrSessionInvalid
	}
	if !p.now().Before(rt.ExpiresAt) {
		if err := q.RevokeRefreshToken(ctx, rt.ID); err != nil {
			return nil, nil, err
		}
		return nil, nil, apperr.ErrSessionExpired
	}

	u, err := q.GetUserByID(ctx, rt.UserID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, nil, apperr.ErrSessionInvalid
		}
		return nil, nil, err
	}
	s, err := p.IssueSession(ctx, q, u)
	if err != nil {
		return nil, nil, err
	}
	return s, u, nil
}

// RevokeSession revokes refresh if it exists. Unknown tokens are ignored.
func (p *Provider) RevokeSession(ctx context.Context, q repository.Queries, refresh string) error {
	rt, err := q.GetRefreshToken(ctx, refresh)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil
		}
		return err
	}
	return q.RevokeRefreshToken(ctx, rt.ID)
}

func (p *Provider) signAccessToken(u *models.User, now time.Time) (string, time.Time, error) {
	expiresAt := now.Add(p.cfg.AccessTTL)
	claims := Claims{
		UserID:   u.ID,
		Username: u.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.Itoa(u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign access token: %w", err)
	}
	return signed, expiresAt, nil
}

// ParseAccessToken verifies the signature and expiry of an access token.
func (p *Provider) ParseAccessToken(token string) (*Claims, error) {
	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	_, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return p.cfg.Secret, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.SessionInvalid, apperr.ErrSessionInvalid.Message, err)
	}
	if !claims.VerifyExpiresAt(p.now(), true) {
		return nil, apperr.Wrap(apperr.SessionExpired, apperr.ErrSessionExpired.Message, jwt.ErrTokenExpired)
	}
	if claims.UserID <= 0 {
		return nil, apperr.Wrap(apperr.SessionInvalid, apperr.ErrSessionInvalid.Message, errors.New("missing user_id claim"))
	}
	return claims, nil
}
