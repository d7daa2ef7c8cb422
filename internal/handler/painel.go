package handler

import (
	"fmt"
	"net/http"

	"checknf/internal/canhoto"
	"checknf/internal/service"

	"github.com/gin-gonic/gin"
)

type DashboardHandler struct{ svc service.DashboardService }

func NewDashboardHandler(svc service.DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

// Painel godoc
// @Summary KPIs, serie mensal, rankings e vencimentos proximos
// @Tags dashboard
// @Produce json
// @Param periodo_predefinido query string false "hoje, ontem, esta_semana, ..."
// @Param fretista query string false "Fretista"
// @Success 200 {object} canhoto.Painel
// @Router /v1/dashboard [get]
func (h *DashboardHandler) Painel(c *gin.Context) {
	var f canhoto.Filtro
	if !bindQuery(c, &f) {
		return
	}
	p, err := h.svc.Painel(c.Request.Context(), f)
	if err != nil {
		responderErro(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// ── Relatorios Handler ───────────────────────────────────────────────────────

type RelatoriosHandler struct{ svc service.RelatorioService }

func NewRelatoriosHandler(svc service.RelatorioService) *RelatoriosHandler {
	return &RelatoriosHandler{svc: svc}
}

// Notas godoc
// @Summary Exporta as notas filtradas em XLSX
// @Tags relatorios
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Router /v1/relatorios/notas.xlsx [get]
func (h *RelatoriosHandler) Notas(c *gin.Context) {
	var f canhoto.Filtro
	if !bindQuery(c, &f) {
		return
	}
	arq, err := h.svc.PlanilhaNotas(c.Request.Context(), f)
	if err != nil {
		responderErro(c, err)
		return
	}
	baixar(c, arq)
}

// Pendencias godoc
// @Summary PDF das notas pendentes agrupadas por fretista
// @Tags relatorios
// @Produce application/pdf
// @Router /v1/relatorios/pendencias.pdf [get]
func (h *RelatoriosHandler) Pendencias(c *gin.Context) {
	var f canhoto.Filtro
	if !bindQuery(c, &f) {
		return
	}
	arq, err := h.svc.Pendencias(c.Request.Context(), f)
	if err != nil {
		responderErro(c, err)
		return
	}
	baixar(c, arq)
}

func baixar(c *gin.Context, arq *service.Arquivo) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, arq.Nome))
	c.Data(http.StatusOK, arq.ContentType, arq.Conteudo)
}
