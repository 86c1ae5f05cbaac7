package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"to-dogether/internal/apperr"
	"to-dogether/internal/models"
)

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func seedUser(t *testing.T, s *MemoryStore, name string, coupleID *int) *models.User {
	t.Helper()
	u := &models.User{Username: name, PasswordHash: "x", ColorCode: models.DefaultCreatorColor, CoupleID: coupleID, CreatedAt: t0}
	require.NoError(t, s.RunTransaction(context.Background(), func(q Queries) error {
		return q.CreateUser(context.Background(), u)
	}))
	return u
}

func TestMemoryRollbackDiscardsWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")

	err := s.RunTransaction(ctx, func(q Queries) error {
		require.NoError(t, q.CreateUser(ctx, &models.User{Username: "ghost", CreatedAt: t0}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.RunTransaction(ctx, func(q Queries) error {
		exists, err := q.UsernameExists(ctx, "ghost")
		require.NoError(t, err)
		assert.False(t, exists)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryUsernameUnique(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	seedUser(t, s, "alice", nil)

	err := s.RunTransaction(ctx, func(q Queries) error {
		return q.CreateUser(ctx, &models.User{Username: "alice", CreatedAt: t0})
	})
	assert.True(t, apperr.Is(err, apperr.UsernameTaken))
}

func TestMemorySavepointKeepsOuterWrites(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	alice := seedUser(t, s, "alice", nil)

	var listID int
	err := s.RunTransaction(ctx, func(q Queries) error {
		l := &models.TodoList{OwnerID: alice.ID, Title: "Groceries", CreatedAt: t0, UpdatedAt: t0}
		require.NoError(t, q.CreateList(ctx, l))
		listID = l.ID

		spErr := q.Savepoint(ctx, func(q Queries) error {
			require.NoError(t, q.CreateActivity(ctx, &models.Activity{UserID: alice.ID, Message: "m", CreatedAt: t0}))
			return errors.New("activity failed")
		})
		assert.Error(t, spErr)
		return nil
	})
	require.NoError(t, err)

	_ = s.RunTransaction(ctx, func(q Queries) error {
		_, err := q.GetList(ctx, listID)
		assert.NoError(t, err)
		n, err := q.CountActivitiesByUsers(ctx, []int{alice.ID})
		assert.NoError(t, err)
		assert.Zero(t, n)
		return nil
	})
}

func TestMemoryItemsOrderedAndCascade(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	alice := seedUser(t, s, "alice", nil)

	err := s.RunTransaction(ctx, func(q Queries) error {
		l := &models.TodoList{OwnerID: alice.ID, Title: "Trip", CreatedAt: t0, UpdatedAt: t0}
		require.NoError(t, q.CreateList(ctx, l))
		for _, order := range []int{3, 1, 2} {
			require.NoError(t, q.CreateItem(ctx, &models.TodoItem{TodoListID: l.ID, Title: "x", Order: order}))
		}

		items, err := q.ListItemsByList(ctx, l.ID)
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Equal(t, []int{1, 2, 3}, []int{items[0].Order, items[1].Order, items[2].Order})

		next, err := q.NextItemOrder(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, next)
		require.NoError(t, q.DeleteItem(ctx, l.ID, items[2].ID))
		next, err = q.NextItemOrder(ctx, l.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, next, "freed orders are not handed out again")

		require.NoError(t, q.DeleteList(ctx, l.ID))
		owned, err := q.ListItemsByOwners(ctx, []int{alice.ID})
		require.NoError(t, err)
		assert.Empty(t, owned)
		return nil
	})
	require.NoError(t, err)
}

func TestMemoryGetItemChecksList(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	alice := seedUser(t, s, "alice", nil)

	_ = s.RunTransaction(ctx, func(q Queries) error {
		a := &models.TodoList{OwnerID: alice.ID, Title: "A"}
		b := &models.TodoList{OwnerID: alice.ID, Title: "B"}
		require.NoError(t, q.CreateList(ctx, a))
		require.NoError(t, q.CreateList(ctx, b))
		it := &models.TodoItem{TodoListID: a.ID, Title: "x", Order: 1}
		require.NoError(t, q.CreateItem(ctx, it))

		_, err := q.GetItem(ctx, b.ID, it.ID)
		assert.True(t, apperr.Is(err, apperr.NotFound))
		assert.True(t, apperr.Is(q.DeleteItem(ctx, b.ID, it.ID), apperr.NotFound))
		return nil
	})
}

func TestMemoryActivitiesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	alice := seedUser(t, s, "alice", nil)
	bob := seedUser(t, s, "bob", nil)

	_ = s.RunTransaction(ctx, func(q Queries) error {
		for i, uid := range []int{alice.ID, bob.ID, alice.ID} {
			require.NoError(t, q.CreateActivity(ctx, &models.Activity{
				UserID: uid, Message: "m", CreatedAt: t0.Add(time.Duration(i) * time.Minute),
			}))
		}

		entries, err := q.ListActivitiesByUsers(ctx, []int{alice.ID, bob.ID}, 2)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "alice", entries[0].Username)
		assert.Equal(t, "bob", entries[1].Username)
		assert.True(t, entries[0].CreatedAt.After(entries[1].CreatedAt))

		total, err := q.CountActivitiesByUsers(ctx, []int{alice.ID, bob.ID})
		require.NoError(t, err)
		assert.Equal(t, 3, total)
		return nil
	})
}

func TestMemoryRevokeUserRefreshTokens(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	alice := seedUser(t, s, "alice", nil)

	_ = s.RunTransaction(ctx, func(q Queries) error {
		for _, tok := range []string{"a", "b"} {
			require.NoError(t, q.CreateRefreshToken(ctx, &models.RefreshToken{UserID: alice.ID, Token: tok, ExpiresAt: t0}))
		}
		require.NoError(t, q.RevokeUserRefreshTokens(ctx, alice.ID))
		for _, tok := range []string{"a", "b"} {
			rt, err := q.GetRefreshToken(ctx, tok)
			require.NoError(t, err)
			assert.True(t, rt.IsRevoked)
		}
		return nil
	})
}

func TestMemoryCoupleMembers(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var couple models.Couple
	_ = s.RunTransaction(ctx, func(q Queries) error {
		couple = models.Couple{InviteToken: "abc", IsActive: true, CreatedAt: t0}
		return q.CreateCouple(ctx, &couple)
	})
	seedUser(t, s, "alice", &couple.ID)
	seedUser(t, s, "bob", &couple.ID)

	_ = s.RunTransaction(ctx, func(q Queries) error {
		c, err := q.LockActiveCoupleByToken(ctx, "abc")
		require.NoError(t, err)
		n, err := q.CountCoupleMembers(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		members, err := q.ListCoupleMembers(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", members[0].Username)

		_, err = q.LockActiveCoupleByToken(ctx, "nope")
		assert.True(t, apperr.Is(err, apperr.NotFound))
		return nil
	})
}
