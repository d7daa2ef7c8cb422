package canhoto

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Filtro is the set of optional constraints the invoice list and the
// dashboard accept. Empty fields impose no constraint.
type Filtro struct {
	Busca              string `form:"busca"               json:"busca,omitempty"`
	PeriodoInicio      string `form:"periodo_inicio"      json:"periodo_inicio,omitempty"`
	PeriodoFim         string `form:"periodo_fim"         json:"periodo_fim,omitempty"`
	PeriodoPredefinido string `form:"periodo_predefinido" json:"periodo_predefinido,omitempty"`
	Fretista           string `form:"fretista"            json:"fretista,omitempty"`
	Cliente            string `form:"cliente"             json:"cliente,omitempty"`
	Rede               string `form:"rede"                json:"rede,omitempty"`
	Vendedor           string `form:"vendedor"            json:"vendedor,omitempty"`
	UF                 string `form:"uf"                  json:"uf,omitempty"`
	Status             string `form:"status"              json:"status,omitempty"`
	Situacao           string `form:"situacao"            json:"situacao,omitempty"`
}

// Predicado decides whether a single invoice passes a compiled Filtro.
type Predicado func(Nota) bool

// Intervalo resolves the emission-date window of the filter.
func (f Filtro) Intervalo(now time.Time, loc *time.Location) Intervalo {
	return ResolverPeriodo(f.PeriodoPredefinido, f.PeriodoInicio, f.PeriodoFim, now, loc)
}

// StatusAtivo returns the parsed status constraint, if any.
func (f Filtro) StatusAtivo() (Status, bool) {
	if strings.TrimSpace(f.Status) == "" {
		return "", false
	}
	st, err := ParseStatus(f.Status)
	if err != nil {
		return "", false
	}
	return st, true
}

// SituacaoAtiva returns the parsed situation constraint, if any.
func (f Filtro) SituacaoAtiva() (Situacao, bool) {
	return ParseSituacao(f.Situacao)
}

// minusculas lowercases rune by rune, the comparison Postgres ILIKE makes.
// No full case folding: "ß" does not match "ss" on either side.
func minusculas(s string) string {
	return cases.Lower(language.Und, cases.HandleFinalSigma(false)).String(s)
}

// Compilar resolves relative periods against now once and returns the
// conjunction of every active constraint.
func (f Filtro) Compilar(now time.Time, loc *time.Location) Predicado {
	periodo := f.Intervalo(now, loc)
	status, temStatus := f.StatusAtivo()
	situacao, temSituacao := f.SituacaoAtiva()
	busca := minusculas(strings.TrimSpace(f.Busca))

	contem := func(campo string) bool {
		return strings.Contains(minusculas(campo), busca)
	}

	return func(n Nota) bool {
		if busca != "" && !contem(n.Numero) && !contem(n.Cliente) && !contem(n.Fretista) {
			return false
		}
		if temStatus && n.Status != status {
			return false
		}
		if f.Fretista != "" && n.Fretista != f.Fretista {
			return false
		}
		if f.Cliente != "" && n.Cliente != f.Cliente {
			return false
		}
		if f.Rede != "" && n.Rede != f.Rede {
			return false
		}
		if f.UF != "" && n.UF != f.UF {
			return false
		}
		if f.Vendedor != "" && n.Vendedor != f.Vendedor {
			return false
		}
		if !periodo.Vazio() && !periodo.Contem(n.Emissao) {
			return false
		}
		if temSituacao && Classificar(n.Status, n.Vencimento, now, loc).Situacao() != situacao {
			return false
		}
		return true
	}
}

// Aplicar returns the invoices accepted by f, preserving input order.
func (f Filtro) Aplicar(notas []Nota, now time.Time, loc *time.Location) []Nota {
	aceita := f.Compilar(now, loc)
	out := make([]Nota, 0, len(notas))
	for _, n := range notas {
		if aceita(n) {
			out = append(out, n)
		}
	}
	return out
}
