package config

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"to-dogether/configs"
	"to-dogether/internal/account"
	"to-dogether/internal/activity"
	"to-dogether/internal/auth"
	"to-dogether/internal/cache"
	"to-dogether/internal/models"
	"to-dogether/internal/pairing"
	"to-dogether/internal/repository"
	"to-dogether/internal/todo"
	"to-dogether/internal/views"
	"to-dogether/pkg/database"
	"to-dogether/pkg/logger"
)

// Dependencies is everything the HTTP layer needs, built once at startup.
type Dependencies struct {
	Config   configs.Config
	Log      *logger.Loggers
	Store    repository.Store
	Validate *validator.Validate
	Auth     *auth.Provider
	Accounts *account.Service
	Todos    *todo.Service
	Views    *views.Service
}

// NewValidator returns a validator that reports fields by their JSON name
// and understands the "colorcode" tag.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("colorcode", func(fl validator.FieldLevel) bool {
		return models.ValidColorCode(fl.Field().String())
	})
	return v
}

// NewDependencies wires the services on top of an already opened store.
// A nil now uses time.Now.
func NewDependencies(cfg configs.Config, log *logger.Loggers, store repository.Store, identity cache.Identity, now func() time.Time) *Dependencies {
	if now == nil {
		now = time.Now
	}
	cost := bcrypt.DefaultCost
	if cfg.Env == "test" {
		cost = bcrypt.MinCost
	}
	provider := auth.NewProvider(auth.Config{
		Secret:     cfg.SigningKey(),
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
		BcryptCost: cost,
	}, now)
	recorder := activity.NewRecorder(log, now)

	return &Dependencies{
		Config:   cfg,
		Log:      log,
		Store:    store,
		Validate: NewValidator(),
		Auth:     provider,
		Accounts: account.NewService(store, provider, pairing.NewManager(now), identity, log, now),
		Todos:    todo.NewService(store, recorder, log, now),
		Views:    views.NewService(store, now),
	}
}

// Open connects the store selected by STORE_DRIVER and, when enabled, the
// Redis identity cache. The returned cleanup closes whatever was opened.
func Open(ctx context.Context, cfg configs.Config, log *logger.Loggers) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	var store repository.Store
	switch cfg.StoreDriver {
	case configs.StoreDriverMemory:
		store = repository.NewMemoryStore()
		log.System.Warn("Using in-memory store, data is lost on exit")
	default:
		db, err := database.ConnectDB(ctx, cfg, cfg.DBName)
		if err != nil {
			return nil, cleanup, err
		}
		closers = append(closers, func() { db.Close() })
		if err := repository.CreateTableIfNotExists(ctx, db); err != nil {
			cleanup()
			return nil, func() {}, err
		}
		store = repository.NewPostgresStore(db)
		log.System.Info("Database connected", zap.String("db", cfg.DBName))
	}

	var identity cache.Identity = cache.Noop{}
	if cfg.RedisEnabled {
		client, err := database.ConnectRedis(ctx, cfg)
		if err != nil {
			cleanup()
			return nil, func() {}, fmt.Errorf("identity cache: %w", err)
		}
		closers = append(closers, func() { client.Close() })
		identity = cache.NewRedisIdentity(client, cfg.RedisTTL)
		log.System.Info("Redis connected")
	}

	return NewDependencies(cfg, log, store, identity, nil), cleanup, nil
}
