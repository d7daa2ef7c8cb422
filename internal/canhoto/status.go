// Package canhoto holds the invoice lifecycle rules: status and situation
// enums, aging classification, the filter predicate and the KPI aggregation
// that feeds the dashboard.
package canhoto

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Status is the closed set of lifecycle states an invoice can be in.
// Transitions are free-form: any status may follow any other.
type Status string

const (
	StatusPendente  Status = "Pendente"
	StatusEntregue  Status = "Entregue"
	StatusCancelada Status = "Cancelada"
	StatusDevolvida Status = "Devolvida"
	StatusReenviada Status = "Reenviada"
	StatusPaga      Status = "Paga"
)

// ErrStatusInvalido is returned when a value outside the enum reaches the
// ingestion boundary.
var ErrStatusInvalido = errors.New("status invalido")

// Statuses lists every status in display order.
func Statuses() []Status {
	return []Status{StatusPendente, StatusEntregue, StatusCancelada, StatusDevolvida, StatusReenviada, StatusPaga}
}

// ParseStatus normalizes case and surrounding spaces. Unknown values are rejected.
func ParseStatus(s string) (Status, error) {
	v := strings.TrimSpace(s)
	for _, st := range Statuses() {
		if strings.EqualFold(v, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrStatusInvalido, s)
}

// Valido reports whether s is exactly one of the enum values.
func (s Status) Valido() bool {
	for _, st := range Statuses() {
		if s == st {
			return true
		}
	}
	return false
}

func (s *Status) UnmarshalJSON(b []byte) error {
	var raw string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	st, err := ParseStatus(raw)
	if err != nil {
		return err
	}
	*s = st
	return nil
}

// Situacao is the coarse due-date proximity flag. It is always derived,
// never stored.
type Situacao string

const (
	SituacaoNoPrazo           Situacao = "NoPrazo"
	SituacaoProximoVencimento Situacao = "ProximoVencimento"
)

// ParseSituacao accepts both enum values case-insensitively.
func ParseSituacao(s string) (Situacao, bool) {
	v := strings.TrimSpace(s)
	switch {
	case strings.EqualFold(v, string(SituacaoNoPrazo)):
		return SituacaoNoPrazo, true
	case strings.EqualFold(v, string(SituacaoProximoVencimento)):
		return SituacaoProximoVencimento, true
	}
	return "", false
}

// Severidade drives the badge color of the upcoming-due table.
type Severidade string

const (
	SeveridadeNormal  Severidade = "normal"
	SeveridadeAlerta  Severidade = "alerta"
	SeveridadeCritica Severidade = "critica"
	SeveridadeVencida Severidade = "vencida"
)

var coresStatus = map[Status]string{
	StatusPendente:  "#f59e0b",
	StatusEntregue:  "#10b981",
	StatusCancelada: "#ef4444",
	StatusDevolvida: "#8b5cf6",
	StatusReenviada: "#3b82f6",
	StatusPaga:      "#14b8a6",
}

const corPadrao = "#6b7280"

// Cor returns the chart color for a status, neutral gray when unknown.
func Cor(s Status) string {
	if c, ok := coresStatus[s]; ok {
		return c
	}
	return corPadrao
}
