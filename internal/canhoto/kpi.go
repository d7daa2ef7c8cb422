package canhoto

import (
	"cmp"
	"encoding/json"
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const (
	MesesSerie      = 6
	LimiteFretistas = 5
	LimiteClientes  = 10
	LimiteTabela    = 20

	semNome = "Não informado"
)

var mesesCurtos = [...]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// Resumo is the fixed-shape KPI card set.
type Resumo struct {
	Total         int             `json:"total"`
	Entregues     int             `json:"entregues"`
	Pendentes     int             `json:"pendentes"`
	Canceladas    int             `json:"canceladas"`
	Devolvidas    int             `json:"devolvidas"`
	Reenviadas    int             `json:"reenviadas"`
	Pagas         int             `json:"pagas"`
	Eficiencia    int             `json:"eficiencia"`
	ValorPendente decimal.Decimal `json:"valor_pendente"` // thousands, one decimal place
	Atrasadas     int             `json:"atrasadas"`
}

// MarshalJSON renders ValorPendente as a bare number with exactly one
// decimal place, e.g. 3.0.
func (r Resumo) MarshalJSON() ([]byte, error) {
	type plano Resumo
	return json.Marshal(struct {
		plano
		ValorPendente json.Number `json:"valor_pendente"`
	}{plano(r), json.Number(r.ValorPendente.StringFixed(1))})
}

type PontoMensal struct {
	Mes        string `json:"mes"`
	Ano        int    `json:"ano"`
	Entregues  int    `json:"entregues"`
	Pendentes  int    `json:"pendentes"`
	Canceladas int    `json:"canceladas"`
}

type FatiaStatus struct {
	Status     Status `json:"status"`
	Quantidade int    `json:"quantidade"`
	Cor        string `json:"cor"`
}

type Grupo struct {
	Nome       string `json:"nome"`
	Quantidade int    `json:"quantidade"`
}

type Vencimento struct {
	ID         string          `json:"id"`
	Numero     string          `json:"numero"`
	Cliente    string          `json:"cliente"`
	Fretista   string          `json:"fretista"`
	Valor      decimal.Decimal `json:"valor_nota"`
	Vencimento time.Time       `json:"data_vencimento"`
	DiasVencer int             `json:"dias_vencer"`
	Severidade Severidade      `json:"severidade"`
}

// Painel is everything the dashboard renders for one filtered set.
type Painel struct {
	Resumo       Resumo        `json:"resumo"`
	SerieMensal  []PontoMensal `json:"serie_mensal"`
	Distribuicao []FatiaStatus `json:"distribuicao_status"`
	TopFretistas []Grupo       `json:"top_fretistas"`
	TopClientes  []Grupo       `json:"top_clientes"`
	Vencimentos  []Vencimento  `json:"vencimentos_proximos"`
}

// Eficiencia is delivered/total as a rounded whole percentage, 0 for an empty set.
func Eficiencia(entregues, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(float64(entregues) * 100 / float64(total)))
}

// Agregar reduces an already filtered invoice set into the dashboard.
func Agregar(notas []Nota, now time.Time, loc *time.Location) Painel {
	p := Painel{
		SerieMensal:  serieMensal(notas, now, loc),
		Distribuicao: []FatiaStatus{},
		TopFretistas: []Grupo{},
		TopClientes:  []Grupo{},
		Vencimentos:  []Vencimento{},
	}
	if len(notas) == 0 {
		p.SerieMensal = []PontoMensal{}
	}

	valorPendente := decimal.Zero
	distIdx := map[Status]int{}
	var pendentes []Nota

	for _, n := range notas {
		p.Resumo.Total++
		switch n.Status {
		case StatusEntregue:
			p.Resumo.Entregues++
		case StatusPendente:
			p.Resumo.Pendentes++
		case StatusCancelada:
			p.Resumo.Canceladas++
		case StatusDevolvida:
			p.Resumo.Devolvidas++
		case StatusReenviada:
			p.Resumo.Reenviadas++
		case StatusPaga:
			p.Resumo.Pagas++
		}

		if i, ok := distIdx[n.Status]; ok {
			p.Distribuicao[i].Quantidade++
		} else {
			distIdx[n.Status] = len(p.Distribuicao)
			p.Distribuicao = append(p.Distribuicao, FatiaStatus{Status: n.Status, Quantidade: 1, Cor: Cor(n.Status)})
		}

		if n.Status != StatusPendente {
			continue
		}
		pendentes = append(pendentes, n)
		valorPendente = valorPendente.Add(n.Valor)

		a := Classificar(n.Status, n.Vencimento, now, loc)
		if a.Atrasada() {
			p.Resumo.Atrasadas++
		}
		if a.NoHorizonte() {
			p.Vencimentos = append(p.Vencimentos, Vencimento{
				ID:         n.ID,
				Numero:     n.Numero,
				Cliente:    n.Cliente,
				Fretista:   n.Fretista,
				Valor:      n.Valor,
				Vencimento: *n.Vencimento,
				DiasVencer: *a.DiasVencer,
				Severidade: a.Severidade(),
			})
		}
	}

	p.Resumo.Eficiencia = Eficiencia(p.Resumo.Entregues, p.Resumo.Total)
	p.Resumo.ValorPendente = valorPendente.Div(decimal.NewFromInt(1000)).Round(1)

	p.TopFretistas = topN(pendentes, func(n Nota) string { return n.Fretista }, LimiteFretistas)
	p.TopClientes = topN(pendentes, func(n Nota) string { return n.Cliente }, LimiteClientes)

	slices.SortStableFunc(p.Vencimentos, func(a, b Vencimento) int {
		return cmp.Compare(a.DiasVencer, b.DiasVencer)
	})
	if len(p.Vencimentos) > LimiteTabela {
		p.Vencimentos = p.Vencimentos[:LimiteTabela]
	}
	return p
}

func serieMensal(notas []Nota, now time.Time, loc *time.Location) []PontoMensal {
	hoje := Hoje(now, loc)
	base := time.Date(hoje.Year(), hoje.Month(), 1, 0, 0, 0, 0, time.UTC)

	type chave struct {
		ano int
		mes time.Month
	}
	serie := make([]PontoMensal, MesesSerie)
	idx := make(map[chave]int, MesesSerie)
	for i := 0; i < MesesSerie; i++ {
		m := base.AddDate(0, i-(MesesSerie-1), 0)
		serie[i] = PontoMensal{Mes: mesesCurtos[m.Month()-1], Ano: m.Year()}
		idx[chave{m.Year(), m.Month()}] = i
	}

	for _, n := range notas {
		e := Dia(n.Emissao)
		i, ok := idx[chave{e.Year(), e.Month()}]
		if !ok {
			continue
		}
		switch n.Status {
		case StatusEntregue:
			serie[i].Entregues++
		case StatusPendente:
			serie[i].Pendentes++
		case StatusCancelada:
			serie[i].Canceladas++
		}
	}
	return serie
}

// topN counts by key in first-seen order, then sorts descending with stable ties.
func topN(notas []Nota, chave func(Nota) string, limite int) []Grupo {
	grupos := []Grupo{}
	idx := map[string]int{}
	for _, n := range notas {
		nome := chave(n)
		if nome == "" {
			nome = semNome
		}
		if i, ok := idx[nome]; ok {
			grupos[i].Quantidade++
			continue
		}
		idx[nome] = len(grupos)
		grupos = append(grupos, Grupo{Nome: nome, Quantidade: 1})
	}
	slices.SortStableFunc(grupos, func(a, b Grupo) int {
		return cmp.Compare(b.Quantidade, a.Quantidade)
	})
	if len(grupos) > limite {
		grupos = grupos[:limite]
	}
	return grupos
}
