package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"

	"to-dogether/internal/auth"
	"to-dogether/internal/models"
	"to-dogether/internal/repository"
	"to-dogether/pkg/logger"
)

func observedLoggers() (*logger.Loggers, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	zl := zap.New(core)
	return &logger.Loggers{Error: zl, Audit: zl, Request: zl, Security: zl, System: zl}, logs
}

func decode(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func issueToken(t *testing.T, p *auth.Provider) string {
	t.Helper()
	store := repository.NewMemoryStore()
	var token string
	require.NoError(t, store.RunTransaction(t.Context(), func(q repository.Queries) error {
		u := &models.User{Username: "alice", PasswordHash: "x", ColorCode: models.DefaultCreatorColor}
		if err := q.CreateUser(t.Context(), u); err != nil {
			return err
		}
		s, err := p.IssueSession(t.Context(), q, u)
		if err != nil {
			return err
		}
		token = s.AccessToken
		return nil
	}))
	return token
}

func TestUseToken(t *testing.T) {
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	p := auth.NewProvider(auth.Config{
		Secret:     []byte("test-secret"),
		AccessTTL:  time.Hour,
		RefreshTTL: 24 * time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, clock)
	log, logs := observedLoggers()

	app := fiber.New()
	app.Get("/me", UseToken(p, log), func(c *fiber.Ctx) error {
		id, _ := UserID(c)
		fromCtx, _ := logger.UserIDFromContext(c.UserContext())
		return c.JSON(fiber.Map{"id": id, "ctx": fromCtx})
	})
	token := issueToken(t, p)

	cases := []struct {
		name   string
		header string
		code   string
	}{
		{name: "missing header", header: "", code: "session_invalid"},
		{name: "wrong scheme", header: "Basic " + token, code: "session_invalid"},
		{name: "garbage token", header: "Bearer abc.def.ghi", code: "session_invalid"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			resp, err := app.Test(req, -1)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			assert.Equal(t, tc.code, decode(t, resp)["code"])
		})
	}
	assert.Equal(t, 1, logs.FilterMessage("Rejected access token").Len())

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, body["id"], body["ctx"])

	now = now.Add(2 * time.Hour)
	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "session_expired", decode(t, resp)["code"])
}

func TestErrorHandlerRecoversPanics(t *testing.T) {
	log, logs := observedLoggers()
	app := fiber.New()
	app.Use(ErrorHandler(log))
	app.Use(RequestID())
	app.Use(RequestContext())
	app.Get("/boom", func(c *fiber.Ctx) error {
		panic("kaboom")
	})

	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	req.Header.Set(fiber.HeaderXRequestID, "req-1")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "internal_error", decode(t, resp)["code"])

	panics := logs.FilterMessage("Recovered from panic: kaboom").All()
	require.Len(t, panics, 1)
	assert.Equal(t, "req-1", panics[0].ContextMap()["request_id"])

	handled := logs.FilterMessage("Request handled").All()
	require.Len(t, handled, 1)
	assert.Equal(t, int64(http.StatusInternalServerError), handled[0].ContextMap()["status"])
}

func TestErrorHandlerRendersReturnedErrors(t *testing.T) {
	log, logs := observedLoggers()
	app := fiber.New()
	app.Use(ErrorHandler(log))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/missing", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	handled := logs.FilterMessage("Request handled").All()
	require.Len(t, handled, 1)
	assert.Equal(t, int64(http.StatusNotFound), handled[0].ContextMap()["status"])
}
