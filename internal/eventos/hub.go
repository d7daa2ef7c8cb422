// Package eventos fans out domain events to live websocket subscribers and
// to optional external sinks.
package eventos

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Tipo string

const (
	SessaoIniciada      Tipo = "sessao.iniciada"
	SessaoEncerrada     Tipo = "sessao.encerrada"
	NotaCriada          Tipo = "nota.criada"
	NotaAtualizada      Tipo = "nota.atualizada"
	NotaStatusAlterado  Tipo = "nota.status_alterado"
	NotasExcluidas      Tipo = "notas.excluidas"
	CanhotoAnexado      Tipo = "nota.canhoto_anexado"
	DocumentoProcessado Tipo = "documento.processado"
	DocumentoRejeitado  Tipo = "documento.rejeitado"
)

type Evento struct {
	Tipo      Tipo      `json:"tipo"`
	Em        time.Time `json:"em"`
	UsuarioID string    `json:"usuario_id,omitempty"`
	// Fretista is the carrier the nota or documento belongs to; carrier
	// sessions only receive events carrying their own.
	Fretista string `json:"fretista,omitempty"`
	Dados    any    `json:"dados,omitempty"`
}

// Sink receives every published event, e.g. a Kafka topic.
type Sink interface {
	Enviar(ctx context.Context, e Evento) error
	Close() error
}

// Hub is an in-process pub/sub. Slow subscribers lose events rather than
// block publishers. A nil *Hub discards everything.
type Hub struct {
	mu    sync.RWMutex
	subs  map[uint64]chan Evento
	next  uint64
	sinks []Sink
}

func NewHub(sinks ...Sink) *Hub {
	return &Hub{subs: make(map[uint64]chan Evento), sinks: sinks}
}

// Assinar registers a subscriber. The returned cancel func closes the channel.
func (h *Hub) Assinar(buf int) (<-chan Evento, func()) {
	ch := make(chan Evento, buf)
	h.mu.Lock()
	id := h.next
	h.next++
	h.subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(ch)
		})
	}
}

func (h *Hub) Assinantes() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

func (h *Hub) Publicar(ctx context.Context, e Evento) {
	if h == nil {
		return
	}
	if e.Em.IsZero() {
		e.Em = time.Now().UTC()
	}

	h.mu.RLock()
	for id, ch := range h.subs {
		select {
		case ch <- e:
		default:
			log.Warn().Uint64("assinante", id).Str("tipo", string(e.Tipo)).Msg("evento descartado: assinante lento")
		}
	}
	h.mu.RUnlock()

	for _, s := range h.sinks {
		if err := s.Enviar(ctx, e); err != nil {
			log.Error().Err(err).Str("tipo", string(e.Tipo)).Msg("falha ao enviar evento ao sink")
		}
	}
}

// Close closes every sink. Subscribers are closed by their own cancel funcs.
func (h *Hub) Close() error {
	if h == nil {
		return nil
	}
	var first error
	for _, s := range h.sinks {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
