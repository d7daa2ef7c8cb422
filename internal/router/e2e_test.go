//go:build integration

package router

// End-to-end tests against real Postgres + Redis via testcontainers.
// Run with: go test -tags integration ./internal/router/... -v

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"checknf/internal/config"
	"checknf/internal/eventos"
	"checknf/internal/infra"
	"checknf/internal/model"
	"checknf/internal/repository"
	"checknf/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
)

// ── Helpers ──────────────────────────────────────────────────────────────────

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func do(t *testing.T, srv *httptest.Server, method, path string, body *bytes.Buffer, token string) *http.Response {
	t.Helper()
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequest(method, srv.URL+path, body)
	} else {
		req, err = http.NewRequest(method, srv.URL+path, nil)
	}
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, dest any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
}

// ── Setup ────────────────────────────────────────────────────────────────────

type testEnv struct {
	server *httptest.Server
	repo   repository.UsuarioRepository
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	pgC, err := tcPostgres.Run(ctx, "postgres:16-alpine",
		tcPostgres.WithDatabase("checknf_test"),
		tcPostgres.WithUsername("checknf"),
		tcPostgres.WithPassword("checknf"),
		testcontainers.WithWaitStrategy(tcPostgres.BasicWaitStrategies()...),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pgC.Terminate(ctx) })
	pgURL, err := pgC.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	rdC, err := tcRedis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err)
	t.Cleanup(func() { _ = rdC.Terminate(ctx) })
	rdURL, err := rdC.ConnectionString(ctx)
	require.NoError(t, err)

	db, err := infra.NewDatabase(pgURL)
	require.NoError(t, err)
	require.NoError(t, infra.Migrar(db))

	rdb, err := infra.NewRedis(rdURL)
	require.NoError(t, err)

	usuarios := repository.NewUsuarioRepository(db)
	hash, err := service.HashSenha("admin-e2e-2026")
	require.NoError(t, err)
	require.NoError(t, usuarios.Create(ctx, &model.Usuario{
		Username: "admin", Nome: "Admin E2E", PasswordHash: hash, Role: "admin", Activo: true,
	}))

	runCtx, cancel := context.WithCancel(ctx)
	t.Cleanup(cancel)
	r, err := New(runCtx, Deps{
		Config: &config.Config{
			Env:                   "test",
			CORSOrigins:           "*",
			JWTSecret:             "segredo-e2e-com-pelo-menos-32-chars",
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

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &testEnv{server: srv, repo: usuarios}
}

func login(t *testing.T, env *testEnv, username, senha string) string {
	t.Helper()
	resp := do(t, env.server, "POST", "/v1/auth/login",
		jsonBody(t, map[string]string{"username": username, "password": senha}), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		AccessToken string `json:"access_token"`
	}
	decodeJSON(t, resp, &body)
	require.NotEmpty(t, body.AccessToken)
	return body.AccessToken
}

// ── Tests ────────────────────────────────────────────────────────────────────

func TestE2E_NotaLifecycle(t *testing.T) {
	env := setupTestEnv(t)
	token := login(t, env, "admin", "admin-e2e-2026")
	hoje := time.Now().UTC().Format("2006-01-02")

	ids := []string{}
	for _, n := range []map[string]any{
		{"numero": "1001", "data_emissao": hoje, "cliente": "Mercado Sol", "fretista": "João", "valor_nota": "1000"},
		{"numero": "1002", "data_emissao": hoje, "cliente": "Atacado Lua", "fretista": "Maria", "valor_nota": "500"},
	} {
		resp := do(t, env.server, "POST", "/v1/notas", jsonBody(t, n), token)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		var criada struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		decodeJSON(t, resp, &criada)
		assert.Equal(t, "Pendente", criada.Status)
		ids = append(ids, criada.ID)
	}

	// duplicate numero is a conflict
	dup := do(t, env.server, "POST", "/v1/notas", jsonBody(t, map[string]any{
		"numero": "1001", "data_emissao": hoje, "cliente": "Outro",
	}), token)
	dup.Body.Close()
	assert.Equal(t, http.StatusConflict, dup.StatusCode)

	st := do(t, env.server, "PATCH", "/v1/notas/"+ids[1]+"/status",
		jsonBody(t, map[string]string{"status": "Entregue"}), token)
	st.Body.Close()
	require.Equal(t, http.StatusOK, st.StatusCode)

	var lista struct {
		Total int64 `json:"total"`
	}
	decodeJSON(t, do(t, env.server, "GET", "/v1/notas?status=Pendente", nil, token), &lista)
	assert.Equal(t, int64(1), lista.Total)

	var painel struct {
		Resumo struct {
			Total      int `json:"total"`
			Entregues  int `json:"entregues"`
			Eficiencia int `json:"eficiencia"`
		} `json:"resumo"`
	}
	decodeJSON(t, do(t, env.server, "GET", "/v1/dashboard", nil, token), &painel)
	assert.Equal(t, 2, painel.Resumo.Total)
	assert.Equal(t, 1, painel.Resumo.Entregues)
	assert.Equal(t, 50, painel.Resumo.Eficiencia)

	var excl struct {
		Removidas int64 `json:"removidas"`
	}
	decodeJSON(t, do(t, env.server, "POST", "/v1/notas/excluir",
		jsonBody(t, map[string]any{"ids": ids}), token), &excl)
	assert.Equal(t, int64(2), excl.Removidas)

	// the status change and delete invalidated the cached dashboard
	require.Eventually(t, func() bool {
		var p struct {
			Resumo struct {
				Total int `json:"total"`
			} `json:"resumo"`
		}
		decodeJSON(t, do(t, env.server, "GET", "/v1/dashboard", nil, token), &p)
		return p.Resumo.Total == 0
	}, 5*time.Second, 100*time.Millisecond)
}

func TestE2E_LogoutRevokesToken(t *testing.T) {
	env := setupTestEnv(t)
	token := login(t, env, "admin", "admin-e2e-2026")

	me := do(t, env.server, "GET", "/v1/auth/me", nil, token)
	me.Body.Close()
	require.Equal(t, http.StatusOK, me.StatusCode)

	out := do(t, env.server, "POST", "/v1/auth/logout", nil, token)
	out.Body.Close()
	require.Equal(t, http.StatusNoContent, out.StatusCode)

	again := do(t, env.server, "GET", "/v1/auth/me", nil, token)
	again.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, again.StatusCode)
}

func TestE2E_CarrierCannotReachNotas(t *testing.T) {
	env := setupTestEnv(t)
	fretista := "João"
	hash, err := service.HashSenha("carrier-e2e-2026")
	require.NoError(t, err)
	require.NoError(t, env.repo.Create(context.Background(), &model.Usuario{
		Username: "joao", Nome: "João", PasswordHash: hash, Role: "carrier", Fretista: &fretista, Activo: true,
	}))
	token := login(t, env, "joao", "carrier-e2e-2026")

	notas := do(t, env.server, "GET", "/v1/notas", nil, token)
	notas.Body.Close()
	assert.Equal(t, http.StatusForbidden, notas.StatusCode)

	canhotos := do(t, env.server, "GET", "/v1/canhotos", nil, token)
	canhotos.Body.Close()
	assert.Equal(t, http.StatusOK, canhotos.StatusCode)
}
