package service

import (
	"context"
	"time"

	"checknf/internal/eventos"
	"checknf/internal/sessao"

	"github.com/google/uuid"
)

// Armazenamento is the object storage used for canhoto scans.
type Armazenamento interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	PresignGet(ctx context.Context, key string) (string, time.Time, error)
	Delete(ctx context.Context, key string) error
}

// Publicador receives domain events.
type Publicador interface {
	Publicar(ctx context.Context, e eventos.Evento)
}

// Enfileirador queues documents for OCR.
type Enfileirador interface {
	EnqueueOCR(ctx context.Context, documentoID uuid.UUID, fretista string) error
}

// Relogio gives every service the same notion of "today".
type Relogio struct {
	Loc   *time.Location
	Agora func() time.Time
}

func NewRelogio(loc *time.Location) Relogio {
	if loc == nil {
		loc = time.UTC
	}
	return Relogio{Loc: loc, Agora: time.Now}
}

func (r Relogio) agora() time.Time {
	if r.Agora == nil {
		return time.Now()
	}
	return r.Agora()
}

func (r Relogio) loc() *time.Location {
	if r.Loc == nil {
		return time.UTC
	}
	return r.Loc
}

func publicar(ctx context.Context, hub Publicador, tipo eventos.Tipo, em time.Time, fretista string, dados any) {
	if hub == nil {
		return
	}
	e := eventos.Evento{Tipo: tipo, Em: em, Fretista: fretista, Dados: dados}
	if s, ok := sessao.FromContext(ctx); ok {
		e.UsuarioID = s.UsuarioID.String()
	}
	hub.Publicar(ctx, e)
}
