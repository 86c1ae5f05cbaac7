// Package pairing creates couples and admits a second member through the
// couple's invite token.
package pairing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"to-dogether/internal/apperr"
	"to-dogether/internal/models"
	"to-dogether/internal/repository"
	"to-dogether/pkg/crypto"
)

// CoupleTokenAttempts bounds invite token regeneration on collision.
const CoupleTokenAttempts = 5

var errTokenSpaceExhausted = errors.New("pairing: could not generate a unique invite token")

type Manager struct {
	newToken func() (string, error)
	now      func() time.Time
}

func NewManager(now func() time.Time) *Manager {
	if now == nil {
		now = time.Now
	}
	return &Manager{newToken: crypto.InviteToken, now: now}
}

// CreateCouple persists a new active couple with a fresh invite token.
func (m *Manager) CreateCouple(ctx context.Context, q repository.Queries) (*models.Couple, error) {
	for attempt := 0; attempt < CoupleTokenAttempts; attempt++ {
		token, err := m.newToken()
		if err != nil {
			return nil, fmt.Errorf("generate invite token: %w", err)
		}
		taken, err := q.InviteTokenExists(ctx, token)
		if err != nil {
			return nil, err
		}
		if taken {
			continue
		}

		c := &models.Couple{InviteToken: token, IsActive: true, CreatedAt: m.now().UTC()}
		if err := q.CreateCouple(ctx, c); err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, errTokenSpaceExhausted
}

// JoinCouple returns the couple the caller may join with token. It takes a
// row lock on the couple, so the caller must write the new member in the
// same transaction for the two-member cap to hold under concurrent joins.
func (m *Manager) JoinCouple(ctx context.Context, q repository.Queries, token string) (*models.Couple, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperr.ErrInvalidInviteToken
	}

	c, err := q.LockActiveCoupleByToken(ctx, token)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			return nil, apperr.ErrInvalidInviteToken
		}
		return nil, err
	}

	members, err := q.CountCoupleMembers(ctx, c.ID)
	if err != nil {
		return nil, err
	}
	if members >= models.MaxCoupleMembers {
		return nil, apperr.ErrCoupleFull
	}
	return c, nil
}
