package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"checknf/internal/acesso"
	"checknf/internal/canhoto"
	"checknf/internal/dto"
	"checknf/internal/eventos"
	"checknf/internal/middleware"
	"checknf/internal/service"
	"checknf/internal/sessao"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Service stubs ────────────────────────────────────────────────────────────

type authStub struct {
	service.AuthService
	login func(dto.LoginRequest) (*dto.LoginResponse, error)
}

func (s *authStub) Login(_ context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	return s.login(req)
}

type notaStub struct {
	service.NotaService
	filtro    dto.NotaFilter
	nota      *dto.NotaResponse
	err       error
	excluidos []string
}

func (s *notaStub) Listar(_ context.Context, f dto.NotaFilter) (*dto.NotaListResponse, error) {
	s.filtro = f
	return &dto.NotaListResponse{Data: []dto.NotaResponse{}, Page: f.Page, Limit: f.Limit}, s.err
}

func (s *notaStub) ObterPorID(context.Context, uuid.UUID) (*dto.NotaResponse, error) {
	return s.nota, s.err
}

func (s *notaStub) Excluir(_ context.Context, ids []string) (*dto.ExcluirNotasResponse, error) {
	s.excluidos = ids
	return &dto.ExcluirNotasResponse{Removidas: int64(len(ids))}, s.err
}

type documentoStub struct {
	service.DocumentoService
	recebido service.Upload
}

func (s *documentoStub) Enviar(_ context.Context, u service.Upload) (*dto.DocumentoResponse, error) {
	s.recebido = u
	if len(u.Conteudo) == 0 {
		return nil, service.ErrArquivoVazio
	}
	return &dto.DocumentoResponse{ID: uuid.NewString(), NomeArquivo: u.Nome, Estado: "processando"}, nil
}

type relatorioStub struct{ service.RelatorioService }

func (relatorioStub) PlanilhaNotas(context.Context, canhoto.Filtro) (*service.Arquivo, error) {
	return &service.Arquivo{Nome: "notas-2026-10-19.xlsx", ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Conteudo: []byte("PK")}, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func init() { gin.SetMode(gin.TestMode) }

func doJSON(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func comSessao(role acesso.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := &sessao.Sessao{UsuarioID: uuid.New(), Username: "teste", Role: role}
		c.Set(middleware.SessaoKey, s)
		c.Request = c.Request.WithContext(sessao.NewContext(c.Request.Context(), s))
		c.Next()
	}
}

func multipartCom(t *testing.T, campo, nome string, conteudo []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(campo, nome)
	require.NoError(t, err)
	_, err = fw.Write(conteudo)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

// ── Tests: auth ──────────────────────────────────────────────────────────────

func TestLogin_StatusCodes(t *testing.T) {
	svc := &authStub{login: func(req dto.LoginRequest) (*dto.LoginResponse, error) {
		if req.Password != "correta1" {
			return nil, service.ErrCredenciaisInvalidas
		}
		return &dto.LoginResponse{AccessToken: "tok", TokenType: "bearer", Landing: "/dashboard"}, nil
	}}
	r := gin.New()
	r.POST("/login", NewAuthHandler(svc).Login)

	w := doJSON(r, http.MethodPost, "/login", dto.LoginRequest{Username: "ana", Password: "correta1"})
	assert.Equal(t, http.StatusOK, w.Code)
	var resp dto.LoginResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "/dashboard", resp.Landing)

	w = doJSON(r, http.MethodPost, "/login", dto.LoginRequest{Username: "ana", Password: "errada1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = doJSON(r, http.MethodPost, "/login", dto.LoginRequest{Username: "ana", Password: "12"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), `"Password":"min"`)

	w = httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/login", strings.NewReader("{nao e json"))
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ── Tests: notas ─────────────────────────────────────────────────────────────

func TestNotas_ListarBindsFilterFromQuery(t *testing.T) {
	svc := &notaStub{}
	r := gin.New()
	r.GET("/notas", NewNotasHandler(svc).Listar)

	w := doJSON(r, http.MethodGet, "/notas?busca=sol&status=Pendente&periodo_predefinido=este_mes&uf=SP&page=2", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "sol", svc.filtro.Busca)
	assert.Equal(t, "Pendente", svc.filtro.Status)
	assert.Equal(t, "este_mes", svc.filtro.PeriodoPredefinido)
	assert.Equal(t, "SP", svc.filtro.UF)
	assert.Equal(t, 2, svc.filtro.Page)
	assert.Equal(t, 50, svc.filtro.Limit)
}

func TestNotas_ListarRejectsBadPaging(t *testing.T) {
	r := gin.New()
	r.GET("/notas", NewNotasHandler(&notaStub{}).Listar)

	assert.Equal(t, http.StatusUnprocessableEntity, doJSON(r, http.MethodGet, "/notas?limit=5000", nil).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/notas?page=abc", nil).Code)
}

func TestNotas_ObterPorIDMapsErrors(t *testing.T) {
	svc := &notaStub{err: service.ErrNotaNaoEncontrada}
	r := gin.New()
	r.Use(middleware.ErrorHandler())
	r.GET("/notas/:id", NewNotasHandler(svc).ObterPorID)

	assert.Equal(t, http.StatusBadRequest, doJSON(r, http.MethodGet, "/notas/123", nil).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(r, http.MethodGet, "/notas/"+uuid.NewString(), nil).Code)

	svc.err = errors.New("pq: connection refused")
	w := doJSON(r, http.MethodGet, "/notas/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "pq:")
}

func TestNotas_ExcluirValidatesIDs(t *testing.T) {
	svc := &notaStub{}
	r := gin.New()
	r.POST("/notas/excluir", NewNotasHandler(svc).Excluir)

	w := doJSON(r, http.MethodPost, "/notas/excluir", dto.ExcluirNotasRequest{IDs: []string{"x"}})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Nil(t, svc.excluidos)

	w = doJSON(r, http.MethodPost, "/notas/excluir", dto.ExcluirNotasRequest{})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	ids := []string{uuid.NewString(), uuid.NewString()}
	w = doJSON(r, http.MethodPost, "/notas/excluir", dto.ExcluirNotasRequest{IDs: ids})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"removidas":2}`, w.Body.String())
	assert.Equal(t, ids, svc.excluidos)
}

func TestResponderErro_StatusTable(t *testing.T) {
	cases := map[error]int{
		service.ErrUltimoAdmin:            http.StatusConflict,
		service.ErrArquivoInvalido:        http.StatusUnsupportedMediaType,
		canhoto.ErrStatusInvalido:         http.StatusUnprocessableEntity,
		sessao.ErrTokenRevogado:           http.StatusUnauthorized,
		service.ErrDocumentoNaoEncontrado: http.StatusNotFound,
	}
	for err, want := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		responderErro(c, errors.Join(errors.New("contexto"), err))
		assert.Equal(t, want, w.Code, err.Error())
	}
}

// ── Tests: uploads and downloads ─────────────────────────────────────────────

func TestDocumentos_EnviarMultipart(t *testing.T) {
	svc := &documentoStub{}
	r := gin.New()
	r.POST("/documentos", comSessao(acesso.RoleCarrier), NewDocumentosHandler(svc, 1<<20).Enviar)

	png := []byte("\x89PNG\r\n\x1a\n-conteudo")
	body, ct := multipartCom(t, "arquivo", "canhoto.png", png)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/documentos", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "canhoto.png", svc.recebido.Nome)
	assert.Equal(t, png, svc.recebido.Conteudo)
	assert.Equal(t, int64(1<<20), svc.recebido.MaxBytes)
}

func TestDocumentos_EnviarRejectsMissingFieldAndOversize(t *testing.T) {
	r := gin.New()
	r.POST("/documentos", NewDocumentosHandler(&documentoStub{}, 16).Enviar)

	body, ct := multipartCom(t, "outro", "a.png", []byte("x"))
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/documentos", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body, ct = multipartCom(t, "arquivo", "a.png", bytes.Repeat([]byte("x"), 64))
	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/documentos", body)
	req.Header.Set("Content-Type", ct)
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestRelatorios_DownloadHeaders(t *testing.T) {
	r := gin.New()
	r.GET("/relatorios/notas.xlsx", NewRelatoriosHandler(relatorioStub{}).Notas)

	w := doJSON(r, http.MethodGet, "/relatorios/notas.xlsx?status=Pendente", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="notas-2026-10-19.xlsx"`, w.Header().Get("Content-Disposition"))
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.Equal(t, "PK", w.Body.String())
}

// ── Tests: event stream ──────────────────────────────────────────────────────

func TestEventos_StreamFiltersSessionEvents(t *testing.T) {
	hub := eventos.NewHub()
	r := gin.New()
	r.GET("/eventos", comSessao(acesso.RoleStaff), NewEventosHandler(hub, nil).Stream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/eventos", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return hub.Assinantes() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Publicar(context.Background(), eventos.Evento{Tipo: eventos.SessaoIniciada, Dados: map[string]any{"username": "ana"}})
	hub.Publicar(context.Background(), eventos.Evento{Tipo: eventos.NotaCriada, Dados: map[string]any{"numero": "12345"}})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var e eventos.Evento
	require.NoError(t, conn.ReadJSON(&e))
	assert.Equal(t, eventos.NotaCriada, e.Tipo)
}

func TestVisivel(t *testing.T) {
	admin := &sessao.Sessao{Role: acesso.RoleAdmin}
	staff := &sessao.Sessao{Role: acesso.RoleStaff}
	carrier := &sessao.Sessao{Role: acesso.RoleCarrier, Fretista: "João"}

	assert.True(t, visivel(admin, eventos.Evento{Tipo: eventos.SessaoEncerrada}))
	assert.False(t, visivel(staff, eventos.Evento{Tipo: eventos.SessaoEncerrada}))
	assert.False(t, visivel(carrier, eventos.Evento{Tipo: eventos.SessaoEncerrada}))
	assert.True(t, visivel(staff, eventos.Evento{Tipo: eventos.NotaCriada, Fretista: "Maria"}))
	assert.True(t, visivel(carrier, eventos.Evento{Tipo: eventos.DocumentoProcessado, Fretista: "João"}))
}

func TestVisivel_CarrierSeesOnlyOwnFretista(t *testing.T) {
	carrier := &sessao.Sessao{Role: acesso.RoleCarrier, Fretista: "João"}
	semVinculo := &sessao.Sessao{Role: acesso.RoleCarrier}

	assert.False(t, visivel(carrier, eventos.Evento{Tipo: eventos.NotaCriada, Fretista: "Maria"}))
	assert.False(t, visivel(carrier, eventos.Evento{Tipo: eventos.NotasExcluidas}))
	assert.True(t, visivel(carrier, eventos.Evento{Tipo: eventos.CanhotoAnexado, Fretista: "João"}))
	assert.False(t, visivel(semVinculo, eventos.Evento{Tipo: eventos.NotaCriada}))
}

func TestVisivel_PendingUserSeesNothing(t *testing.T) {
	novo := &sessao.Sessao{Role: acesso.RoleNew}

	assert.False(t, visivel(novo, eventos.Evento{Tipo: eventos.NotaCriada, Fretista: "João"}))
	assert.False(t, visivel(novo, eventos.Evento{Tipo: eventos.DocumentoProcessado}))
	assert.False(t, visivel(novo, eventos.Evento{Tipo: eventos.SessaoIniciada}))
}

func TestEventos_StreamRefusesPendingUser(t *testing.T) {
	r := gin.New()
	r.GET("/eventos", comSessao(acesso.RoleNew), middleware.RequirePagina(PaginasEventos...), NewEventosHandler(eventos.NewHub(), nil).Stream)

	w := doJSON(r, http.MethodGet, "/eventos", nil)

	assert.Equal(t, http.StatusForbidden, w.Code)
}
