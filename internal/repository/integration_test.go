package repository_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"to-dogether/configs"
	"to-dogether/internal/account"
	"to-dogether/internal/activity"
	"to-dogether/internal/apperr"
	"to-dogether/internal/auth"
	"to-dogether/internal/models"
	"to-dogether/internal/pairing"
	"to-dogether/internal/repository"
	"to-dogether/internal/todo"
	"to-dogether/pkg/database"
	"to-dogether/pkg/logger"
)

// startPostgres runs a throwaway postgres container and returns a migrated store.
func startPostgres(t *testing.T) (*repository.PostgresStore, *sqlx.DB) {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unavailable: %v", err)
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16-alpine",
		Env:        []string{"POSTGRES_PASSWORD=secret", "POSTGRES_DB=todogether_test"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = pool.Purge(resource) })
	_ = resource.Expire(120)

	port, err := strconv.Atoi(resource.GetPort("5432/tcp"))
	require.NoError(t, err)
	cfg := configs.Config{DBHost: "localhost", DBPort: port, DBUser: "postgres", DBPassword: "secret", DBSSLMode: "disable"}

	var db *sqlx.DB
	pool.MaxWait = time.Minute
	require.NoError(t, pool.Retry(func() error {
		db, err = database.ConnectDB(context.Background(), cfg, "todogether_test")
		return err
	}))
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, repository.CreateTableIfNotExists(ctx, db))
	require.NoError(t, repository.CreateTableIfNotExists(ctx, db), "schema must be re-runnable")
	return repository.NewPostgresStore(db), db
}

func TestPostgresIntegration(t *testing.T) {
	store, db := startPostgres(t)
	ctx := context.Background()
	now := time.Now().UTC()

	log := logger.NewNop()
	provider := auth.NewProvider(auth.Config{
		Secret:     []byte("integration-secret"),
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, nil)
	accounts := account.NewService(store, provider, pairing.NewManager(nil), nil, log, nil)
	todos := todo.NewService(store, activity.NewRecorder(log, nil), log, nil)

	creator, err := accounts.Register(ctx, account.RegisterInput{Username: "alice", Password: "password123"})
	require.NoError(t, err)
	require.NotEmpty(t, creator.InviteToken)
	owner := *creator.User

	t.Run("concurrent joins never exceed two members", func(t *testing.T) {
		var wg sync.WaitGroup
		results := make([]error, 8)
		for i := range results {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, results[i] = accounts.Register(ctx, account.RegisterInput{
					Username:    fmt.Sprintf("joiner%d", i),
					Password:    "password123",
					InviteToken: creator.InviteToken,
				})
			}(i)
		}
		wg.Wait()

		joined := 0
		for _, err := range results {
			if err == nil {
				joined++
				continue
			}
			assert.True(t, apperr.Is(err, apperr.CoupleFull), "unexpected error: %v", err)
		}
		assert.Equal(t, 1, joined)

		var members int
		require.NoError(t, db.GetContext(ctx, &members, "SELECT COUNT(*) FROM users WHERE couple_id = $1", *owner.CoupleID))
		assert.Equal(t, 2, members)
	})

	t.Run("joining an inactive couple is rejected", func(t *testing.T) {
		_, err := db.ExecContext(ctx, "UPDATE couples SET is_active = FALSE WHERE id = $1", *owner.CoupleID)
		require.NoError(t, err)
		t.Cleanup(func() {
			_, _ = db.ExecContext(ctx, "UPDATE couples SET is_active = TRUE WHERE id = $1", *owner.CoupleID)
		})

		_, err = accounts.Register(ctx, account.RegisterInput{
			Username:    "latecomer",
			Password:    "password123",
			InviteToken: creator.InviteToken,
		})
		assert.ErrorIs(t, err, apperr.ErrInvalidInviteToken)
	})

	t.Run("concurrent item creation yields distinct orders", func(t *testing.T) {
		list, err := todos.CreateList(ctx, owner.ID, todo.ListInput{Title: "Groceries"})
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := todos.CreateItem(ctx, owner.ID, list.ID, todo.ItemInput{Title: fmt.Sprintf("item %d", i)})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		var orders []int
		require.NoError(t, db.SelectContext(ctx, &orders, `SELECT "order" FROM todo_items WHERE todo_list_id = $1 ORDER BY "order"`, list.ID))
		assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, orders)
	})

	t.Run("item order is not reused after deleting the last item", func(t *testing.T) {
		list, err := todos.CreateList(ctx, owner.ID, todo.ListInput{Title: "Chores"})
		require.NoError(t, err)
		_, err = todos.CreateItem(ctx, owner.ID, list.ID, todo.ItemInput{Title: "dishes"})
		require.NoError(t, err)
		laundry, err := todos.CreateItem(ctx, owner.ID, list.ID, todo.ItemInput{Title: "laundry"})
		require.NoError(t, err)
		require.NoError(t, todos.DeleteItem(ctx, owner.ID, list.ID, laundry.ID))

		vacuum, err := todos.CreateItem(ctx, owner.ID, list.ID, todo.ItemInput{Title: "vacuum"})
		require.NoError(t, err)
		assert.Equal(t, 3, vacuum.Order)
	})

	t.Run("deleting a list cascades to its items", func(t *testing.T) {
		var list models.TodoList
		require.NoError(t, store.RunTransaction(ctx, func(q repository.Queries) error {
			list = models.TodoList{OwnerID: owner.ID, Title: "Trip", ColorCode: models.DefaultListColor, CreatedAt: now, UpdatedAt: now}
			if err := q.CreateList(ctx, &list); err != nil {
				return err
			}
			return q.CreateItem(ctx, &models.TodoItem{TodoListID: list.ID, Title: "tickets", Order: 1, CreatedAt: now, UpdatedAt: now})
		}))
		require.NoError(t, store.RunTransaction(ctx, func(q repository.Queries) error {
			return q.DeleteList(ctx, list.ID)
		}))

		var remaining int
		require.NoError(t, db.GetContext(ctx, &remaining, "SELECT COUNT(*) FROM todo_items WHERE todo_list_id = $1", list.ID))
		assert.Zero(t, remaining)
	})

	require.NoError(t, repository.DeleteAllTable(ctx, db))
}
