package handler

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"checknf/internal/acesso"
	"checknf/internal/eventos"
	"checknf/internal/middleware"
	"checknf/internal/sessao"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsEscritaTimeout = 10 * time.Second
	wsPongTimeout    = 60 * time.Second
	wsPingIntervalo  = wsPongTimeout * 9 / 10
	wsBuffer         = 32
)

// EventosHandler streams hub events over a websocket.
type EventosHandler struct {
	hub      *eventos.Hub
	upgrader websocket.Upgrader
}

// NewEventosHandler accepts upgrades from the given origins; empty or "*"
// accepts any.
func NewEventosHandler(hub *eventos.Hub, origins []string) *EventosHandler {
	todos := len(origins) == 0 || slices.Contains(origins, "*")
	return &EventosHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return todos || origin == "" || slices.Contains(origins, origin)
			},
		},
	}
}

// Stream godoc
// @Summary Stream de eventos em tempo real (websocket, token via ?token=)
// @Tags eventos
// @Router /v1/eventos [get]
func (h *EventosHandler) Stream(c *gin.Context) {
	s := middleware.GetSessao(c)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Str("request_id", c.GetString(middleware.RequestIDKey)).Msg("eventos: upgrade failed")
		return
	}
	defer conn.Close()

	ch, cancel := h.hub.Assinar(wsBuffer)
	defer cancel()
	log.Debug().Str("username", s.Username).Int("assinantes", h.hub.Assinantes()).Msg("eventos: client connected")

	// the reader only exists to notice the client going away
	fechado := make(chan struct{})
	go func() {
		defer close(fechado)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongTimeout))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Str("username", s.Username).Msg("eventos: read error")
				}
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingIntervalo)
	defer ping.Stop()
	for {
		select {
		case <-fechado:
			return
		case <-c.Request.Context().Done():
			return
		case e, ok := <-ch:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(wsEscritaTimeout))
				return
			}
			if !visivel(s, e) {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsEscritaTimeout))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsEscritaTimeout)); err != nil {
				return
			}
		}
	}
}

// PaginasEventos are the pages whose data the stream carries. Sessions that
// can open none of them get nothing.
var PaginasEventos = []acesso.Pagina{acesso.PaginaDashboard, acesso.PaginaNotas, acesso.PaginaCanhotos}

// visivel hides session activity from everyone but user managers and
// scopes carrier sessions to their own fretista.
func visivel(s *sessao.Sessao, e eventos.Evento) bool {
	if strings.HasPrefix(string(e.Tipo), "sessao.") {
		return s.Pode(acesso.PaginaUsuarios)
	}
	if !slices.ContainsFunc(PaginasEventos, s.Pode) {
		return false
	}
	if s.Role == acesso.RoleCarrier {
		return e.Fretista != "" && e.Fretista == s.Fretista
	}
	return true
}
