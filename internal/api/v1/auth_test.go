package v1_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	v1 "github.com/gosuda/botrelay/internal/api/v1"
	"github.com/gosuda/botrelay/internal/auth"
)

func TestLogin(t *testing.T) {
	t.Parallel()

	hash, err := auth.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	svc := auth.NewService(hash, "0123456789abcdef0123456789abcdef", time.Hour)

	t.Run("happy_path", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterAuthRoutes(api, svc)

		resp := api.Post("/auth/login", map[string]any{
			"password": "correct horse battery staple",
		})

		require.Equal(t, http.StatusOK, resp.Code)
		assert.Contains(t, resp.Body.String(), "access_token")
	})

	t.Run("wrong_password", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterAuthRoutes(api, svc)

		resp := api.Post("/auth/login", map[string]any{
			"password": "wrong",
		})

		assert.Equal(t, http.StatusUnauthorized, resp.Code)
	})

	t.Run("missing_password", func(t *testing.T) {
		t.Parallel()

		_, api := humatest.New(t)
		v1.RegisterAuthRoutes(api, svc)

		resp := api.Post("/auth/login", map[string]any{})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	})
}
