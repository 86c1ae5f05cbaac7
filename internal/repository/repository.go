package repository

import (
	"context"

	"to-dogether/internal/models"
)

// Store runs units of work. Every request's checks and writes happen inside
// a single RunTransaction call: fn's writes commit together or not at all.
type Store interface {
	RunTransaction(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
}

// Queries is the set of reads and writes available inside a transaction.
// Lookups of a single missing row return an apperr NotFound error.
type Queries interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
	UpdateUserProfile(ctx context.Context, id int, username, colorCode string) error
	// ListCoupleMembers returns the couple's users ordered by id.
	ListCoupleMembers(ctx context.Context, coupleID int) ([]models.User, error)
	CountCoupleMembers(ctx context.Context, coupleID int) (int, error)

	CreateCouple(ctx context.Context, c *models.Couple) error
	InviteTokenExists(ctx context.Context, token string) (bool, error)
	// LockActiveCoupleByToken returns the active couple holding token and
	// holds a row lock on it until the transaction ends.
	LockActiveCoupleByToken(ctx context.Context, token string) (*models.Couple, error)

	CreateList(ctx context.Context, l *models.TodoList) error
	GetList(ctx context.Context, id int) (*models.TodoList, error)
	// LockList is GetList plus a row lock held until the transaction ends.
	LockList(ctx context.Context, id int) (*models.TodoList, error)
	UpdateList(ctx context.Context, l *models.TodoList) error
	DeleteList(ctx context.Context, id int) error
	// ListListsByOwner returns lists ordered by created_at, then id.
	ListListsByOwner(ctx context.Context, ownerID int) ([]models.TodoList, error)

	// NextItemOrder hands out the order for a new item and advances the
	// list's high-water mark, so orders freed by deletes are never reused.
	// Callers hold the list row lock.
	NextItemOrder(ctx context.Context, listID int) (int, error)
	CreateItem(ctx context.Context, it *models.TodoItem) error
	GetItem(ctx context.Context, listID, itemID int) (*models.TodoItem, error)
	UpdateItem(ctx context.Context, it *models.TodoItem) error
	DeleteItem(ctx context.Context, listID, itemID int) error
	// ListItemsByList returns items ordered by order, then id.
	ListItemsByList(ctx context.Context, listID int) ([]models.TodoItem, error)
	ListItemsByOwners(ctx context.Context, ownerIDs []int) ([]models.OwnedItem, error)

	CreateActivity(ctx context.Context, a *models.Activity) error
	// ListActivitiesByUsers returns the newest activities first.
	ListActivitiesByUsers(ctx context.Context, userIDs []int, limit int) ([]models.ActivityEntry, error)
	CountActivitiesByUsers(ctx context.Context, userIDs []int) (int, error)

	CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error
	GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, id int) error
	RevokeUserRefreshTokens(ctx context.Context, userID int) error

	// Savepoint runs fn in a nested scope: if fn fails, only fn's writes are
	// undone and the enclosing transaction stays usable.
	Savepoint(ctx context.Context, fn func(q Queries) error) error
}
