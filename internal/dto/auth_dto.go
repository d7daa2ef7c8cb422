package dto

// ─── Request DTOs ────────────────────────────────────────────────────────────

type LoginRequest struct {
	Username string `json:"username" validate:"required,min=1"`
	Password string `json:"password" validate:"required,min=4"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type AlterarSenhaRequest struct {
	SenhaAtual string `json:"senha_atual" validate:"required"`
	NovaSenha  string `json:"nova_senha"  validate:"required,min=8,nefield=SenhaAtual"`
}

type CriarUsuarioRequest struct {
	Username string  `json:"username" validate:"required,min=1,max=150"`
	Nome     string  `json:"nome"     validate:"required,min=2,max=100"`
	Email    *string `json:"email"    validate:"omitempty,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Role     string  `json:"role"     validate:"required,oneof=admin staff carrier management new"`
	Fretista *string `json:"fretista"`
}

type AtualizarUsuarioRequest struct {
	Nome     string  `json:"nome"     validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email"    validate:"omitempty,email"`
	Role     string  `json:"role"     validate:"omitempty,oneof=admin staff carrier management new"`
	Fretista *string `json:"fretista"`
	Password string  `json:"password" validate:"omitempty,min=8"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type UsuarioResponse struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Nome     string  `json:"nome"`
	Email    *string `json:"email"`
	Role     string  `json:"role"`
	Fretista *string `json:"fretista"`
	Activo   bool    `json:"ativo"`
}

type LoginResponse struct {
	AccessToken  string          `json:"access_token"`
	RefreshToken string          `json:"refresh_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int             `json:"expires_in"` // seconds
	User         UsuarioResponse `json:"user"`
	Landing      string          `json:"landing"`
	Paginas      []string        `json:"paginas"`
}

type MeResponse struct {
	User    UsuarioResponse `json:"user"`
	Landing string          `json:"landing"`
	Paginas []string        `json:"paginas"`
}
