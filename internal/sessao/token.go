package sessao

import (
	"errors"
	"fmt"
	"time"

	"checknf/internal/acesso"
	"checknf/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	TipoAcesso  = "access"
	TipoRefresh = "refresh"
)

var (
	ErrTokenInvalido = errors.New("token invalido ou expirado")
	ErrTokenRevogado = errors.New("token revogado")
)

// Claims are embedded in every access and refresh token. The registered ID
// (jti) is what logout revokes.
type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Nome     string `json:"nome"`
	Role     string `json:"role"`
	Fretista string `json:"fretista,omitempty"`
	Tipo     string `json:"tipo"`
	jwt.RegisteredClaims
}

func (c *Claims) Sessao() (*Sessao, error) {
	uid, err := uuid.Parse(c.UserID)
	if err != nil {
		return nil, ErrTokenInvalido
	}
	s := &Sessao{
		UsuarioID: uid,
		Username:  c.Username,
		Nome:      c.Nome,
		Role:      acesso.Role(c.Role),
		Fretista:  c.Fretista,
		TokenID:   c.ID,
	}
	if c.ExpiresAt != nil {
		s.ExpiraEm = c.ExpiresAt.Time
	}
	return s, nil
}

// Emissor signs and parses HS256 tokens.
type Emissor struct {
	secret     []byte
	acessoTTL  time.Duration
	refreshTTL time.Duration
	agora      func() time.Time
}

func NewEmissor(secret string, acessoTTL, refreshTTL time.Duration) *Emissor {
	return &Emissor{secret: []byte(secret), acessoTTL: acessoTTL, refreshTTL: refreshTTL, agora: time.Now}
}

func (e *Emissor) AcessoTTL() time.Duration { return e.acessoTTL }

// RefreshTTL is the longest lifetime of any token this emissor signs.
func (e *Emissor) RefreshTTL() time.Duration { return e.refreshTTL }

// Emitir signs a token of the given kind for u.
func (e *Emissor) Emitir(u *model.Usuario, tipo string) (string, *Claims, error) {
	ttl := e.acessoTTL
	if tipo == TipoRefresh {
		ttl = e.refreshTTL
	}
	now := e.agora()
	claims := &Claims{
		UserID:   u.ID.String(),
		Username: u.Username,
		Nome:     u.Nome,
		Role:     u.Role,
		Tipo:     tipo,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	if u.Fretista != nil {
		claims.Fretista = *u.Fretista
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(e.secret)
	if err != nil {
		return "", nil, fmt.Errorf("assinar token: %w", err)
	}
	return signed, claims, nil
}

// Validar parses raw and checks signature, expiry and kind.
func (e *Emissor) Validar(raw, tipo string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return e.secret, nil
	}, jwt.WithTimeFunc(e.agora))
	if err != nil || !token.Valid {
		return nil, ErrTokenInvalido
	}
	if claims.Tipo != tipo || claims.ID == "" {
		return nil, ErrTokenInvalido
	}
	return claims, nil
}
