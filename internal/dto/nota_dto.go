package dto

import (
	"time"

	"checknf/internal/canhoto"

	"github.com/shopspring/decimal"
)

// ─── Filter / List ──────────────────────────────────────────────────────────

// NotaFilter is bound from the query string of GET /v1/notas. The embedded
// filter is shared with the dashboard and the reports.
type NotaFilter struct {
	canhoto.Filtro
	Page    int    `form:"page,default=1"   validate:"min=1"`
	Limit   int    `form:"limit,default=50" validate:"min=1,max=500"`
	Ordem   string `form:"ordem"`
	Direcao string `form:"direcao"          validate:"omitempty,oneof=asc desc"`
}

type NotaListResponse struct {
	Data       []NotaResponse `json:"data"`
	Total      int64          `json:"total"`
	Page       int            `json:"page"`
	Limit      int            `json:"limit"`
	TotalPages int            `json:"total_pages"`
}

// ─── Request DTOs ────────────────────────────────────────────────────────────

type NotaRequest struct {
	Numero         string          `json:"numero"          validate:"required,max=20"`
	Serie          *string         `json:"serie"           validate:"omitempty,max=5"`
	DataEmissao    string          `json:"data_emissao"    validate:"required,datetime=2006-01-02"`
	DataVencimento *string         `json:"data_vencimento" validate:"omitempty,datetime=2006-01-02"`
	Status         canhoto.Status  `json:"status"`
	Cliente        string          `json:"cliente"         validate:"required,max=200"`
	Fretista       string          `json:"fretista"        validate:"max=200"`
	Placa          string          `json:"placa"           validate:"max=10"`
	UF             string          `json:"uf"              validate:"omitempty,len=2"`
	Vendedor       string          `json:"vendedor"`
	Rede           string          `json:"rede"`
	ValorNota      decimal.Decimal `json:"valor_nota"      validate:"min=0"`
	CFOP           *string         `json:"cfop"            validate:"omitempty,len=4,numeric"`
}

type AtualizarStatusRequest struct {
	Status canhoto.Status `json:"status" validate:"required"`
}

type ExcluirNotasRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=500,dive,uuid"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type NotaResponse struct {
	ID             string             `json:"id"`
	Numero         string             `json:"numero"`
	Serie          *string            `json:"serie"`
	DataEmissao    string             `json:"data_emissao"`
	DataVencimento *string            `json:"data_vencimento"`
	Status         canhoto.Status     `json:"status"`
	Situacao       canhoto.Situacao   `json:"situacao"`
	Severidade     canhoto.Severidade `json:"severidade"`
	DiasAtraso     int                `json:"dias_atraso"`
	DiasVencer     *int               `json:"dias_vencer"`
	Cliente        string             `json:"cliente"`
	Fretista       string             `json:"fretista"`
	Placa          string             `json:"placa"`
	UF             string             `json:"uf"`
	Vendedor       string             `json:"vendedor"`
	Rede           string             `json:"rede"`
	ValorNota      decimal.Decimal    `json:"valor_nota"`
	CFOP           *string            `json:"cfop"`
	TemCanhoto     bool               `json:"tem_canhoto"`
	DocumentoID    *string            `json:"documento_id,omitempty"`
	RegistradoEm   time.Time          `json:"registrado_em"`
	EditadoEm      time.Time          `json:"editado_em"`
}

type ExcluirNotasResponse struct {
	Removidas int64 `json:"removidas"`
}

type CanhotoURLResponse struct {
	URL      string    `json:"url"`
	ExpiraEm time.Time `json:"expira_em"`
}
