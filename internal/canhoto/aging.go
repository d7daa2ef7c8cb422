package canhoto

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// JanelaVencimento bounds the upcoming-due table, in days.
	JanelaVencimento = 20
	// LimiteAtraso is the overdue threshold for the delayed KPI, in days.
	LimiteAtraso = 7
	// LimiteAlerta is how close a due date must be to flag ProximoVencimento.
	LimiteAlerta = 7
	// PrazoCanhoto is the default days from emission for a signed receipt to
	// come back when the invoice carries no due date of its own.
	PrazoCanhoto = 20

	limiteCritico = 3
)

// Nota is the read-only view of an invoice the lifecycle rules operate on.
type Nota struct {
	ID         string
	Numero     string
	Cliente    string
	Fretista   string
	Placa      string
	Rede       string
	UF         string
	Vendedor   string
	Status     Status
	Emissao    time.Time
	Vencimento *time.Time
	Valor      decimal.Decimal
}

// Aging is the derived due-date state of a pending invoice.
// DiasVencer is nil when the invoice is overdue, has no due date, or is not pending.
type Aging struct {
	Rastreado  bool
	DiasAtraso int
	DiasVencer *int
}

// Dia truncates a stored calendar date to UTC midnight, keeping its Y-M-D.
func Dia(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Hoje returns the civil date of now in loc, at UTC midnight.
func Hoje(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return Dia(now.In(loc))
}

// VencimentoPadrao is the receipt due date implied by the emission date.
func VencimentoPadrao(emissao time.Time) time.Time {
	return Dia(emissao).AddDate(0, 0, PrazoCanhoto)
}

func diasEntre(de, ate time.Time) int {
	return int(ate.Sub(de).Hours() / 24)
}

// Classificar derives aging from the due date and the wall clock.
// Non-pending invoices are not tracked.
func Classificar(status Status, vencimento *time.Time, now time.Time, loc *time.Location) Aging {
	if status != StatusPendente {
		return Aging{}
	}
	a := Aging{Rastreado: true}
	if vencimento == nil {
		return a
	}
	diff := diasEntre(Hoje(now, loc), Dia(*vencimento))
	if diff < 0 {
		a.DiasAtraso = -diff
		return a
	}
	a.DiasVencer = &diff
	return a
}

// Severidade buckets the aging for display.
func (a Aging) Severidade() Severidade {
	switch {
	case !a.Rastreado:
		return SeveridadeNormal
	case a.DiasAtraso > 0:
		return SeveridadeVencida
	case a.DiasVencer == nil:
		return SeveridadeNormal
	case *a.DiasVencer <= limiteCritico:
		return SeveridadeCritica
	case *a.DiasVencer <= LimiteAlerta:
		return SeveridadeAlerta
	}
	return SeveridadeNormal
}

// Situacao is ProximoVencimento for pending invoices that are overdue or due
// within a week.
func (a Aging) Situacao() Situacao {
	if !a.Rastreado {
		return SituacaoNoPrazo
	}
	if a.DiasAtraso > 0 || (a.DiasVencer != nil && *a.DiasVencer <= LimiteAlerta) {
		return SituacaoProximoVencimento
	}
	return SituacaoNoPrazo
}

// Atrasada reports the delayed KPI bucket.
func (a Aging) Atrasada() bool {
	return a.Rastreado && a.DiasAtraso > LimiteAtraso
}

// NoHorizonte reports whether the invoice belongs in the upcoming-due table.
func (a Aging) NoHorizonte() bool {
	return a.Rastreado && a.DiasVencer != nil && *a.DiasVencer <= JanelaVencimento
}
