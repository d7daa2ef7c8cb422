package middleware

import (
	"net/http"
	"strings"

	"checknf/internal/acesso"
	"checknf/internal/apierror"
	"checknf/internal/sessao"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const SessaoKey = "sessao"

// JWTAuth validates the access token and puts the session on both the gin
// context and the request context, so services can scope by carrier.
// The token comes from the Authorization header; browsers opening the event
// stream can only pass it as ?token=.
func JWTAuth(emissor *sessao.Emissor, revogacao sessao.Revogacao) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := tokenDe(c)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Autenticacao necessaria"))
			return
		}

		claims, err := emissor.Validar(raw, sessao.TipoAcesso)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token invalido ou expirado"))
			return
		}
		if revogacao != nil {
			revogado, err := revogacao.Revogado(c.Request.Context(), claims)
			if err != nil {
				log.Error().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("auth: revocation lookup failed")
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, apierror.New("Servico de sessao indisponivel"))
				return
			}
			if revogado {
				c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Sessao encerrada"))
				return
			}
		}
		s, err := claims.Sessao()
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("Token invalido ou expirado"))
			return
		}

		c.Set(SessaoKey, s)
		c.Request = c.Request.WithContext(sessao.NewContext(c.Request.Context(), s))
		c.Next()
	}
}

func tokenDe(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("token")
}

// RequirePagina lets the request through when the session's role may open
// any of the given pages.
func RequirePagina(paginas ...acesso.Pagina) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := GetSessao(c)
		for _, p := range paginas {
			if s.Pode(p) {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("Permissao insuficiente"))
	}
}

// GetSessao returns the session set by JWTAuth, or nil.
func GetSessao(c *gin.Context) *sessao.Sessao {
	v, ok := c.Get(SessaoKey)
	if !ok {
		return nil
	}
	s, _ := v.(*sessao.Sessao)
	return s
}
