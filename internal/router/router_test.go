package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"checknf/internal/config"
	"checknf/internal/eventos"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() { gin.SetMode(gin.TestMode) }

func novoRouter(t *testing.T, env string) *gin.Engine {
	t.Helper()
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	db, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}), &gorm.Config{})
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond})
	t.Cleanup(func() { rdb.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	r, err := New(ctx, Deps{
		Config: &config.Config{
			Env:                   env,
			CORSOrigins:           "*",
			JWTSecret:             "segredo-de-teste-com-32-caracteres!!",
			JWTExpirationHours:    1,
			JWTRefreshHours:       24,
			DashboardCacheSeconds: 60,
			UploadMaxMB:           10,
		},
		DB:    db,
		Redis: rdb,
		Hub:   eventos.NewHub(),
		Loc:   time.UTC,
	})
	require.NoError(t, err)
	return r
}

func TestNew_RegistersEveryRoute(t *testing.T) {
	r := novoRouter(t, "development")

	got := map[string]bool{}
	for _, rt := range r.Routes() {
		got[rt.Method+" "+rt.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"POST /v1/auth/login",
		"POST /v1/auth/refresh",
		"GET /v1/auth/me",
		"POST /v1/auth/logout",
		"POST /v1/auth/senha",
		"GET /v1/eventos",
		"GET /v1/dashboard",
		"GET /v1/notas",
		"GET /v1/notas/opcoes",
		"PATCH /v1/notas/:id/status",
		"POST /v1/notas/excluir",
		"GET /v1/notas/:id/canhoto",
		"GET /v1/canhotos",
		"POST /v1/canhotos/:id",
		"POST /v1/documentos",
		"POST /v1/documentos/:id/reprocessar",
		"GET /v1/relatorios/notas.xlsx",
		"GET /v1/relatorios/pendencias.pdf",
		"PATCH /v1/clientes/:id/reativar",
		"DELETE /v1/fretistas/:id",
		"PUT /v1/usuarios/:id",
		"GET /swagger/*any",
	} {
		assert.True(t, got[want], want)
	}
}

func TestNew_SwaggerHiddenInProduction(t *testing.T) {
	r := novoRouter(t, "production")
	for _, rt := range r.Routes() {
		assert.NotEqual(t, "/swagger/*any", rt.Path)
	}
}

func TestNew_ProtectedRoutesRequireToken(t *testing.T) {
	r := novoRouter(t, "development")

	for _, path := range []string{"/v1/notas", "/v1/dashboard", "/v1/auth/me", "/v1/eventos"} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, path, nil)
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"), path)
	}
}
