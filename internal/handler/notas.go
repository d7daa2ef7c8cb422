package handler

import (
	"net/http"

	"checknf/internal/dto"
	"checknf/internal/service"

	"github.com/gin-gonic/gin"
)

type NotasHandler struct{ svc service.NotaService }

func NewNotasHandler(svc service.NotaService) *NotasHandler { return &NotasHandler{svc: svc} }

// Listar godoc
// @Summary Lista notas fiscais com filtros e paginacao
// @Tags notas
// @Produce json
// @Param busca query string false "Numero, cliente ou fretista"
// @Param periodo_predefinido query string false "hoje, ontem, esta_semana, ..."
// @Param status query string false "Status"
// @Param page query int false "Pagina"
// @Param limit query int false "Itens por pagina"
// @Success 200 {object} dto.NotaListResponse
// @Router /v1/notas [get]
func (h *NotasHandler) Listar(c *gin.Context) {
	var f dto.NotaFilter
	if !bindQuery(c, &f) {
		return
	}
	resp, err := h.svc.Listar(c.Request.Context(), f)
	if err != nil {
		responderErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *NotasHandler) ObterPorID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.ObterPorID(c.Request.Context(), id)
	if err != nil {
		responderErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *NotasHandler) Criar(c *gin.Context) {
	var req dto.NotaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Criar(c.Request.Context(), req)
	if err != nil {
		responderErro(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *NotasHandler) Atualizar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.NotaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Atualizar(c.Request.Context(), id, req)
	if err != nil {
		responderErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *NotasHandler) AlterarStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req dto.AtualizarStatusRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.AlterarStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		responderErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Excluir godoc
// @Summary Exclui notas em lote (tudo ou nada)
// @Tags notas
// @Accept json
// @Produce json
// @Param body body dto.ExcluirNotasRequest true "IDs"
// @Success 200 {object} dto.ExcluirNotasResponse
// @Router /v1/notas/excluir [post]
func (h *NotasHandler) Excluir(c *gin.Context) {
	var req dto.ExcluirNotasRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Excluir(c.Request.Context(), req.IDs)
	if err != nil {
		responderErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *NotasHandler) CanhotoURL(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.CanhotoURL(c.Request.Context(), id)
	if err != nil {
		responderErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Opcoes returns the distinct values for the filter dropdowns.
func (h *NotasHandler) Opcoes(c *gin.Context) {
	resp, err := h.svc.Opcoes(c.Request.Context())
	if err != nil {
		responderErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ── Canhotos Handler ─────────────────────────────────────────────────────────

// CanhotosHandler is the carrier-facing view of the invoices.
type CanhotosHandler struct {
	svc       service.NotaService
	maxUpload int64
}

func NewCanhotosHandler(svc service.NotaService, maxUpload int64) *CanhotosHandler {
	return &CanhotosHandler{svc: svc, maxUpload: maxUpload}
}

func (h *CanhotosHandler) Listar(c *gin.Context) {
	var f dto.NotaFilter
	if !bindQuery(c, &f) {
		return
	}
	resp, err := h.svc.ListarCanhotos(c.Request.Context(), f)
	if err != nil {
		responderErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CanhotosHandler) URL(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.CanhotoURL(c.Request.Context(), id)
	if err != nil {
		responderErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Anexar godoc
// @Summary Anexa o canhoto assinado e marca a nota como entregue
// @Tags canhotos
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "ID da nota"
// @Param arquivo formData file true "PDF, JPEG ou PNG"
// @Success 200 {object} dto.NotaResponse
// @Router /v1/canhotos/{id} [post]
func (h *CanhotosHandler) Anexar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	arquivo, ok := lerArquivo(c, h.maxUpload)
	if !ok {
		return
	}
	resp, err := h.svc.AnexarCanhoto(c.Request.Context(), id, arquivo)
	if err != nil {
		responderErro(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
