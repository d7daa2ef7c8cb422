package canhoto

import (
	"strings"
	"time"
)

// Periodo is a predefined emission-date window.
type Periodo string

const (
	PeriodoHoje          Periodo = "hoje"
	PeriodoOntem         Periodo = "ontem"
	PeriodoEstaSemana    Periodo = "esta_semana"
	PeriodoSemanaPassada Periodo = "semana_passada"
	PeriodoEsteMes       Periodo = "este_mes"
	PeriodoMesPassado    Periodo = "mes_passado"
	PeriodoEsteAno       Periodo = "este_ano"
	PeriodoAnoPassado    Periodo = "ano_passado"
	PeriodoPersonalizado Periodo = "personalizado"
)

// FormatoData is the wire format of filter dates.
const FormatoData = "2006-01-02"

// Intervalo is an inclusive civil-date range; a nil bound is open.
type Intervalo struct {
	Inicio *time.Time
	Fim    *time.Time
}

func (i Intervalo) Vazio() bool { return i.Inicio == nil && i.Fim == nil }

// Contem reports whether the civil date of t falls inside the range.
func (i Intervalo) Contem(t time.Time) bool {
	d := Dia(t)
	if i.Inicio != nil && d.Before(*i.Inicio) {
		return false
	}
	if i.Fim != nil && d.After(*i.Fim) {
		return false
	}
	return true
}

func parseData(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(FormatoData, s)
	if err != nil {
		return nil
	}
	return &t
}

func intervalo(inicio, fim time.Time) Intervalo {
	return Intervalo{Inicio: &inicio, Fim: &fim}
}

// ResolverPeriodo turns a preset (or explicit custom bounds) into a date range.
// Unknown presets and unparsable dates resolve to an open range.
// Weeks start on Sunday.
func ResolverPeriodo(preset, inicio, fim string, now time.Time, loc *time.Location) Intervalo {
	hoje := Hoje(now, loc)
	inicioSemana := hoje.AddDate(0, 0, -int(hoje.Weekday()))
	inicioMes := time.Date(hoje.Year(), hoje.Month(), 1, 0, 0, 0, 0, time.UTC)
	inicioAno := time.Date(hoje.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	switch Periodo(strings.TrimSpace(preset)) {
	case PeriodoHoje:
		return intervalo(hoje, hoje)
	case PeriodoOntem:
		ontem := hoje.AddDate(0, 0, -1)
		return intervalo(ontem, ontem)
	case PeriodoEstaSemana:
		return intervalo(inicioSemana, inicioSemana.AddDate(0, 0, 6))
	case PeriodoSemanaPassada:
		return intervalo(inicioSemana.AddDate(0, 0, -7), inicioSemana.AddDate(0, 0, -1))
	case PeriodoEsteMes:
		return intervalo(inicioMes, inicioMes.AddDate(0, 1, -1))
	case PeriodoMesPassado:
		return intervalo(inicioMes.AddDate(0, -1, 0), inicioMes.AddDate(0, 0, -1))
	case PeriodoEsteAno:
		return intervalo(inicioAno, inicioAno.AddDate(1, 0, -1))
	case PeriodoAnoPassado:
		return intervalo(inicioAno.AddDate(-1, 0, 0), inicioAno.AddDate(0, 0, -1))
	case PeriodoPersonalizado, "":
		return Intervalo{Inicio: parseData(inicio), Fim: parseData(fim)}
	}
	return Intervalo{}
}
