package handler

import (
	"net/http"

	"checknf/internal/dto"
	"checknf/internal/service"

	"github.com/gin-gonic/gin"
)

type DocumentosHandler struct {
	svc       service.DocumentoService
	maxUpload int64
}

func NewDocumentosHandler(svc service.DocumentoService, maxUpload int64) *DocumentosHandler {
	return &DocumentosHandler{svc: svc, maxUpload: maxUpload}
}

// Enviar godoc
// @Summary Envia um canhoto digitalizado para leitura OCR
// @Tags documentos
// @Accept multipart/form-data
// @Produce json
// @Param arquivo formData file true "PDF, JPEG ou PNG"
// @Success 202 {object} dto.DocumentoResponse
// @Failure 415 {object} apierror.APIError
// @Router /v1/documentos [post]
func (h *DocumentosHandler) Enviar(c *gin.Context) {
	arquivo, ok := lerArquivo(c, h.maxUpload)
	if !ok {
		return
	}
	resp, err := h.svc.Enviar(c.Request.Context(), arquivo)
	if err != nil {
		responderErro(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *DocumentosHandler) Listar(c *gin.Context) {
	var f dto.DocumentoFilter
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

func (h *DocumentosHandler) ObterPorID(c *gin.Context) {
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

func (h *DocumentosHandler) Reprocessar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Reprocessar(c.Request.Context(), id)
	if err != nil {
		responderErro(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}
