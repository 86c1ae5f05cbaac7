package config

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"to-dogether/configs"
	"to-dogether/internal/repository"
	"to-dogether/pkg/logger"
)

func TestNewValidator(t *testing.T) {
	type profile struct {
		ColorCode string `json:"color_code" validate:"required,colorcode"`
	}
	v := NewValidator()

	assert.NoError(t, v.Struct(profile{ColorCode: "#A1b2C3"}))

	err := v.Struct(profile{ColorCode: "#fff"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 1)
	assert.Equal(t, "color_code", verrs[0].Field())
	assert.Equal(t, "colorcode", verrs[0].Tag())
}

func TestOpenMemoryStore(t *testing.T) {
	cfg := configs.Config{
		Env:             "test",
		StoreDriver:     configs.StoreDriverMemory,
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: time.Hour,
	}
	deps, cleanup, err := Open(context.Background(), cfg, logger.NewNop())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &repository.MemoryStore{}, deps.Store)
	assert.NotNil(t, deps.Accounts)
	assert.NotNil(t, deps.Todos)
	assert.NotNil(t, deps.Views)
	assert.NoError(t, deps.Store.Ping(context.Background()))
}
