package dto

// ─── Clientes ────────────────────────────────────────────────────────────────

type ClienteRequest struct {
	RazaoSocial  string `json:"razao_social"  validate:"required,min=2,max=200"`
	NomeFantasia string `json:"nome_fantasia" validate:"required,min=1,max=200"`
	CNPJ         string `json:"cnpj"          validate:"required,min=14,max=18"`
	Rede         string `json:"rede"          validate:"max=100"`
	UF           string `json:"uf"            validate:"omitempty,len=2,alpha"`
	Vendedor     string `json:"vendedor"      validate:"max=100"`
}

type ClienteResponse struct {
	ID           string `json:"id"`
	RazaoSocial  string `json:"razao_social"`
	NomeFantasia string `json:"nome_fantasia"`
	CNPJ         string `json:"cnpj"`
	Rede         string `json:"rede"`
	UF           string `json:"uf"`
	Vendedor     string `json:"vendedor"`
	Activo       bool   `json:"ativo"`
}

// ─── Fretistas ───────────────────────────────────────────────────────────────

type FretistaRequest struct {
	Placa string `json:"placa" validate:"required,min=7,max=8"`
	Nome  string `json:"nome"  validate:"required,min=2,max=200"`
}

type FretistaResponse struct {
	ID     string `json:"id"`
	Placa  string `json:"placa"`
	Nome   string `json:"nome"`
	Activo bool   `json:"ativo"`
}

// CadastroFilter is shared by the client and carrier listings.
type CadastroFilter struct {
	Busca    string `form:"busca"`
	Inativos bool   `form:"inativos"`
}
