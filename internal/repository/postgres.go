package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"to-dogether/internal/apperr"
	"to-dogether/internal/models"
)

const (
	userColumns     = "id, username, password_hash, color_code, couple_id, created_at"
	coupleColumns   = "id, invite_token, is_active, created_at"
	listColumns     = "id, owner_id, title, description, is_shared, color_code, created_at, updated_at"
	itemColumns     = `id, todo_list_id, title, description, status, severity, "order", created_at, updated_at`
	tokenColumns    = "id, user_id, token, expires_at, created_at, is_revoked"
	activityColumns = "a.id, a.user_id, a.activity_type, a.entity_type, a.entity_id, a.entity_title, a.message, a.created_at"

	uniqueViolation = "23505"
)

var psql = squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)

// PostgresStore is the production Store. Transactions run at the default
// READ COMMITTED level; the operations that need serialization take
// explicit row locks (LockActiveCoupleByToken, LockList).
type PostgresStore struct {
	db *sqlx.DB
}

func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) RunTransaction(ctx context.Context, fn func(q Queries) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := fn(&pgQueries{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

type pgQueries struct {
	tx    *sqlx.Tx
	depth int
}

func (q *pgQueries) get(ctx context.Context, dest any, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return q.tx.GetContext(ctx, dest, query, args...)
}

func (q *pgQueries) selectAll(ctx context.Context, dest any, b squirrel.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return q.tx.SelectContext(ctx, dest, query, args...)
}

func (q *pgQueries) exec(ctx context.Context, b squirrel.Sqlizer) (int64, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	res, err := q.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (q *pgQueries) insertReturningID(ctx context.Context, b squirrel.InsertBuilder, id *int) error {
	query, args, err := b.Suffix("RETURNING id").ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return q.tx.QueryRowxContext(ctx, query, args...).Scan(id)
}

func (q *pgQueries) count(ctx context.Context, b squirrel.SelectBuilder) (int, error) {
	var n int
	if err := q.get(ctx, &n, b); err != nil {
		return 0, err
	}
	return n, nil
}

func notFound(entity string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.Wrap(apperr.NotFound, entity+" not found", err)
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func affectedOrNotFound(entity string, n int64, err error) error {
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, entity+" not found")
	}
	return nil
}

// Users

func (q *pgQueries) CreateUser(ctx context.Context, u *models.User) error {
	err := q.insertReturningID(ctx, psql.Insert("users").
		Columns("username", "password_hash", "color_code", "couple_id", "created_at").
		Values(u.Username, u.PasswordHash, u.ColorCode, u.CoupleID, u.CreatedAt), &u.ID)
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.UsernameTaken, apperr.ErrUsernameTaken.Message, err)
	}
	return err
}

func (q *pgQueries) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	err := q.get(ctx, &u, psql.Select(userColumns).From("users").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, notFound("user", err)
	}
	return &u, nil
}

func (q *pgQueries) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := q.get(ctx, &u, psql.Select(userColumns).From("users").Where(squirrel.Eq{"username": username}))
	if err != nil {
		return nil, notFound("user", err)
	}
	return &u, nil
}

func (q *pgQueries) UsernameExists(ctx context.Context, username string) (bool, error) {
	n, err := q.count(ctx, psql.Select("COUNT(*)").From("users").Where(squirrel.Eq{"username": username}))
	return n > 0, err
}

func (q *pgQueries) UpdateUserProfile(ctx context.Context, id int, username, colorCode string) error {
	n, err := q.exec(ctx, psql.Update("users").
		Set("username", username).
		Set("color_code", colorCode).
		Where(squirrel.Eq{"id": id}))
	if isUniqueViolation(err) {
		return apperr.Wrap(apperr.UsernameTaken, apperr.ErrUsernameTaken.Message, err)
	}
	return affectedOrNotFound("user", n, err)
}

func (q *pgQueries) ListCoupleMembers(ctx context.Context, coupleID int) ([]models.User, error) {
	var users []models.User
	err := q.selectAll(ctx, &users, psql.Select(userColumns).From("users").
		Where(squirrel.Eq{"couple_id": coupleID}).
		OrderBy("id"))
	return users, err
}

func (q *pgQueries) CountCoupleMembers(ctx context.Context, coupleID int) (int, error) {
	return q.count(ctx, psql.Select("COUNT(*)").From("users").Where(squirrel.Eq{"couple_id": coupleID}))
}

// Couples

func (q *pgQueries) CreateCouple(ctx context.Context, c *models.Couple) error {
	return q.insertReturningID(ctx, psql.Insert("couples").
		Columns("invite_token", "is_active", "created_at").
		Values(c.InviteToken, c.IsActive, c.CreatedAt), &c.ID)
}

func (q *pgQueries) InviteTokenExists(ctx context.Context, token string) (bool, error) {
	n, err := q.count(ctx, psql.Select("COUNT(*)").From("couples").Where(squirrel.Eq{"invite_token": token}))
	return n > 0, err
}

func (q *pgQueries) LockActiveCoupleByToken(ctx context.Context, token string) (*models.Couple, error) {
	var c models.Couple
	err := q.get(ctx, &c, psql.Select(coupleColumns).From("couples").
		Where(squirrel.Eq{"invite_token": token, "is_active": true}).
		Suffix("FOR UPDATE"))
	if err != nil {
		return nil, notFound("couple", err)
	}
	return &c, nil
}

// Todo lists

func (q *pgQueries) CreateList(ctx context.Context, l *models.TodoList) error {
	return q.insertReturningID(ctx, psql.Insert("todo_lists").
		Columns("owner_id", "title", "description", "is_shared", "color_code", "created_at", "updated_at").
		Values(l.OwnerID, l.Title, l.Description, l.IsShared, l.ColorCode, l.CreatedAt, l.UpdatedAt), &l.ID)
}

func (q *pgQueries) GetList(ctx context.Context, id int) (*models.TodoList, error) {
	var l models.TodoList
	err := q.get(ctx, &l, psql.Select(listColumns).From("todo_lists").Where(squirrel.Eq{"id": id}))
	if err != nil {
		return nil, notFound("todo list", err)
	}
	return &l, nil
}

func (q *pgQueries) LockList(ctx context.Context, id int) (*models.TodoList, error) {
	var l models.TodoList
	err := q.get(ctx, &l, psql.Select(listColumns).From("todo_lists").
		Where(squirrel.Eq{"id": id}).
		Suffix("FOR UPDATE"))
	if err != nil {
		return nil, notFound("todo list", err)
	}
	return &l, nil
}

func (q *pgQueries) UpdateList(ctx context.Context, l *models.TodoList) error {
	n, err := q.exec(ctx, psql.Update("todo_lists").
		Set("title", l.Title).
		Set("description", l.Description).
		Set("is_shared", l.IsShared).
		Set("color_code", l.ColorCode).
		Set("updated_at", l.UpdatedAt).
		Where(squirrel.Eq{"id": l.ID}))
	return affectedOrNotFound("todo list", n, err)
}

// DeleteList relies on ON DELETE CASCADE to remove the list's items.
func (q *pgQueries) DeleteList(ctx context.Context, id int) error {
	n, err := q.exec(ctx, psql.Delete("todo_lists").Where(squirrel.Eq{"id": id}))
	return affectedOrNotFound("todo list", n, err)
}

func (q *pgQueries) ListListsByOwner(ctx context.Context, ownerID int) ([]models.TodoList, error) {
	var lists []models.TodoList
	err := q.selectAll(ctx, &lists, psql.Select(listColumns).From("todo_lists").
		Where(squirrel.Eq{"owner_id": ownerID}).
		OrderBy("created_at", "id"))
	return lists, err
}

// Todo items

// NextItemOrder never drops below max(order)+1, which covers items whose
// order was raised by an update.
func (q *pgQueries) NextItemOrder(ctx context.Context, listID int) (int, error) {
	var order int
	err := q.get(ctx, &order, psql.Update("todo_lists").
		Set("next_item_order", squirrel.Expr(
			`GREATEST(next_item_order, (SELECT COALESCE(MAX("order"), 0) FROM todo_items WHERE todo_list_id = ?) + 1) + 1`, listID)).
		Where(squirrel.Eq{"id": listID}).
		Suffix("RETURNING next_item_order - 1"))
	if err != nil {
		return 0, notFound("todo list", err)
	}
	return order, nil
}

func (q *pgQueries) CreateItem(ctx context.Context, it *models.TodoItem) error {
	return q.insertReturningID(ctx, psql.Insert("todo_items").
		Columns("todo_list_id", "title", "description", "status", "severity", `"order"`, "created_at", "updated_at").
		Values(it.TodoListID, it.Title, it.Description, it.Status, it.Severity, it.Order, it.CreatedAt, it.UpdatedAt), &it.ID)
}

func (q *pgQueries) GetItem(ctx context.Context, listID, itemID int) (*models.TodoItem, error) {
	var it models.TodoItem
	err := q.get(ctx, &it, psql.Select(itemColumns).From("todo_items").
		Where(squirrel.Eq{"id": itemID, "todo_list_id": listID}))
	if err != nil {
		return nil, notFound("todo item", err)
	}
	return &it, nil
}

func (q *pgQueries) UpdateItem(ctx context.Context, it *models.TodoItem) error {
	n, err := q.exec(ctx, psql.Update("todo_items").
		Set("title", it.Title).
		Set("description", it.Description).
		Set("status", it.Status).
		Set("severity", it.Severity).
		Set(`"order"`, it.Order).
		Set("updated_at", it.UpdatedAt).
		Where(squirrel.Eq{"id": it.ID, "todo_list_id": it.TodoListID}))
	return affectedOrNotFound("todo item", n, err)
}

func (q *pgQueries) DeleteItem(ctx context.Context, listID, itemID int) error {
	n, err := q.exec(ctx, psql.Delete("todo_items").Where(squirrel.Eq{"id": itemID, "todo_list_id": listID}))
	return affectedOrNotFound("todo item", n, err)
}

func (q *pgQueries) ListItemsByList(ctx context.Context, listID int) ([]models.TodoItem, error) {
	var items []models.TodoItem
	err := q.selectAll(ctx, &items, psql.Select(itemColumns).From("todo_items").
		Where(squirrel.Eq{"todo_list_id": listID}).
		OrderBy(`"order"`, "id"))
	return items, err
}

func (q *pgQueries) ListItemsByOwners(ctx context.Context, ownerIDs []int) ([]models.OwnedItem, error) {
	var items []models.OwnedItem
	err := q.selectAll(ctx, &items, psql.Select(
		"i.id", "i.todo_list_id", "i.title", "i.description", "i.status", "i.severity",
		`i."order"`, "i.created_at", "i.updated_at", "l.owner_id").
		From("todo_items i").
		Join("todo_lists l ON l.id = i.todo_list_id").
		Where(squirrel.Eq{"l.owner_id": ownerIDs}).
		OrderBy("i.id"))
	return items, err
}

// Activities

func (q *pgQueries) CreateActivity(ctx context.Context, a *models.Activity) error {
	return q.insertReturningID(ctx, psql.Insert("activities").
		Columns("user_id", "activity_type", "entity_type", "entity_id", "entity_title", "message", "created_at").
		Values(a.UserID, a.ActivityType, a.EntityType, a.EntityID, a.EntityTitle, a.Message, a.CreatedAt), &a.ID)
}

func (q *pgQueries) ListActivitiesByUsers(ctx context.Context, userIDs []int, limit int) ([]models.ActivityEntry, error) {
	var entries []models.ActivityEntry
	err := q.selectAll(ctx, &entries, psql.Select(activityColumns, "u.username", "u.color_code").
		From("activities a").
		Join("users u ON u.id = a.user_id").
		Where(squirrel.Eq{"a.user_id": userIDs}).
		OrderBy("a.created_at DESC", "a.id DESC").
		Limit(uint64(limit)))
	return entries, err
}

func (q *pgQueries) CountActivitiesByUsers(ctx context.Context, userIDs []int) (int, error) {
	return q.count(ctx, psql.Select("COUNT(*)").From("activities").Where(squirrel.Eq{"user_id": userIDs}))
}

// Refresh tokens

func (q *pgQueries) CreateRefreshToken(ctx context.Context, t *models.RefreshToken) error {
	return q.insertReturningID(ctx, psql.Insert("refresh_tokens").
		Columns("user_id", "token", "expires_at", "created_at", "is_revoked").
		Values(t.UserID, t.Token, t.ExpiresAt, t.CreatedAt, t.IsRevoked), &t.ID)
}

func (q *pgQueries) GetRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var t models.RefreshToken
	err := q.get(ctx, &t, psql.Select(tokenColumns).From("refresh_tokens").Where(squirrel.Eq{"token": token}))
	if err != nil {
		return nil, notFound("refresh token", err)
	}
	return &t, nil
}

func (q *pgQueries) RevokeRefreshToken(ctx context.Context, id int) error {
	_, err := q.exec(ctx, psql.Update("refresh_tokens").Set("is_revoked", true).Where(squirrel.Eq{"id": id}))
	return err
}

func (q *pgQueries) RevokeUserRefreshTokens(ctx context.Context, userID int) error {
	_, err := q.exec(ctx, psql.Update("refresh_tokens").Set("is_revoked", true).
		Where(squirrel.Eq{"user_id": userID, "is_revoked": false}))
	return err
}

func (q *pgQueries) Savepoint(ctx context.Context, fn func(q Queries) error) error {
	q.depth++
	defer func() { q.depth-- }()
	name := fmt.Sprintf("sp_%d", q.depth)

	if _, err := q.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("create savepoint: %w", err)
	}
	if err := fn(q); err != nil {
		if _, rbErr := q.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		return err
	}
	if _, err := q.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

var (
	_ Store   = (*PostgresStore)(nil)
	_ Queries = (*pgQueries)(nil)
)
