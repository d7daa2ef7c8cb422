// Package sessao carries the authenticated user through request contexts and
// issues, validates and revokes the JWTs that establish it.
package sessao

import (
	"context"
	"time"

	"checknf/internal/acesso"

	"github.com/google/uuid"
)

// Sessao is the authenticated user of one request.
type Sessao struct {
	UsuarioID uuid.UUID
	Username  string
	Nome      string
	Role      acesso.Role
	// Fretista is set for carrier logins bound to a carrier name.
	Fretista string
	TokenID  string
	ExpiraEm time.Time
}

// Pode reports whether the session may open page p.
func (s *Sessao) Pode(p acesso.Pagina) bool {
	return s != nil && acesso.Permite(s.Role, p)
}

type ctxKey struct{}

func NewContext(ctx context.Context, s *Sessao) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Sessao, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Sessao)
	return s, ok && s != nil
}
