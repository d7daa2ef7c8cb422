package dto

import "time"

type DocumentoFilter struct {
	Estado string `form:"estado" validate:"omitempty,oneof=processando processado rejeitado erro"`
	// Fretista is set from the session, never from the query string.
	Fretista string `form:"-"`
	Page     int    `form:"page,default=1"   validate:"min=1"`
	Limit    int    `form:"limit,default=50" validate:"min=1,max=200"`
}

type DocumentoResponse struct {
	ID          string    `json:"id"`
	NomeArquivo string    `json:"nome_arquivo"`
	ContentType string    `json:"content_type"`
	Tamanho     int64     `json:"tamanho"`
	Estado      string    `json:"estado"`
	Tentativas  int       `json:"tentativas"`
	UltimoErro  *string   `json:"ultimo_erro"`
	NotaID      *string   `json:"nota_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type DocumentoListResponse struct {
	Data       []DocumentoResponse `json:"data"`
	Total      int64               `json:"total"`
	Page       int                 `json:"page"`
	Limit      int                 `json:"limit"`
	TotalPages int                 `json:"total_pages"`
}
