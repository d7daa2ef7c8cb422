package service

import (
	"context"

	"checknf/internal/canhoto"
	"checknf/internal/dto"
	"checknf/internal/infra"
	"checknf/internal/repository"
)

// Arquivo is a generated download.
type Arquivo struct {
	Nome        string
	ContentType string
	Conteudo    []byte
}

const contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type RelatorioService interface {
	PlanilhaNotas(ctx context.Context, f canhoto.Filtro) (*Arquivo, error)
	Pendencias(ctx context.Context, f canhoto.Filtro) (*Arquivo, error)
	// Atrasadas lists pending invoices overdue beyond tolerance, for the digest.
	Atrasadas(ctx context.Context) ([]dto.NotaResponse, error)
}

type relatorioService struct {
	repo    repository.NotaFiscalRepository
	relogio Relogio
}

func NewRelatorioService(repo repository.NotaFiscalRepository, relogio Relogio) RelatorioService {
	return &relatorioService{repo: repo, relogio: relogio}
}

func (s *relatorioService) PlanilhaNotas(ctx context.Context, f canhoto.Filtro) (*Arquivo, error) {
	notas, err := s.notas(ctx, f)
	if err != nil {
		return nil, err
	}
	b, err := infra.GerarPlanilhaNotas(notas)
	if err != nil {
		return nil, err
	}
	return &Arquivo{Nome: "notas-" + s.dia() + ".xlsx", ContentType: contentTypeXLSX, Conteudo: b}, nil
}

// Pendencias always restricts the filter to pending invoices.
func (s *relatorioService) Pendencias(ctx context.Context, f canhoto.Filtro) (*Arquivo, error) {
	f.Status = string(canhoto.StatusPendente)
	notas, err := s.notas(ctx, f)
	if err != nil {
		return nil, err
	}
	b, err := infra.GerarRelatorioPendencias(notas, s.relogio.agora().In(s.relogio.loc()))
	if err != nil {
		return nil, err
	}
	return &Arquivo{Nome: "pendencias-" + s.dia() + ".pdf", ContentType: "application/pdf", Conteudo: b}, nil
}

func (s *relatorioService) Atrasadas(ctx context.Context) ([]dto.NotaResponse, error) {
	notas, err := s.notas(ctx, canhoto.Filtro{
		Status:   string(canhoto.StatusPendente),
		Situacao: string(canhoto.SituacaoProximoVencimento),
	})
	if err != nil {
		return nil, err
	}
	out := notas[:0]
	for _, n := range notas {
		if n.DiasAtraso > canhoto.LimiteAtraso {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *relatorioService) notas(ctx context.Context, f canhoto.Filtro) ([]dto.NotaResponse, error) {
	now, loc := s.relogio.agora(), s.relogio.loc()
	rows, err := s.repo.ListAll(ctx, f, now, loc)
	if err != nil {
		return nil, err
	}
	pred := f.Compilar(now, loc)
	out := make([]dto.NotaResponse, 0, len(rows))
	for i := range rows {
		if !pred(rows[i].Canhoto()) {
			continue
		}
		out = append(out, NotaToResponse(&rows[i], now, loc))
	}
	return out, nil
}

func (s *relatorioService) dia() string {
	return canhoto.Hoje(s.relogio.agora(), s.relogio.loc()).Format(canhoto.FormatoData)
}
