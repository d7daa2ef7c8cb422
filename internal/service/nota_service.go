package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"time"

	"checknf/internal/acesso"
	"checknf/internal/canhoto"
	"checknf/internal/dto"
	"checknf/internal/eventos"
	"checknf/internal/model"
	"checknf/internal/repository"
	"checknf/internal/sessao"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type NotaService interface {
	Listar(ctx context.Context, f dto.NotaFilter) (*dto.NotaListResponse, error)
	ObterPorID(ctx context.Context, id uuid.UUID) (*dto.NotaResponse, error)
	Criar(ctx context.Context, req dto.NotaRequest) (*dto.NotaResponse, error)
	Atualizar(ctx context.Context, id uuid.UUID, req dto.NotaRequest) (*dto.NotaResponse, error)
	AlterarStatus(ctx context.Context, id uuid.UUID, status canhoto.Status) (*dto.NotaResponse, error)
	Excluir(ctx context.Context, ids []string) (*dto.ExcluirNotasResponse, error)
	CanhotoURL(ctx context.Context, id uuid.UUID) (*dto.CanhotoURLResponse, error)
	Opcoes(ctx context.Context) (*repository.OpcoesFiltro, error)

	// ListarCanhotos is the carrier view: carrier sessions only ever see
	// invoices assigned to their own fretista.
	ListarCanhotos(ctx context.Context, f dto.NotaFilter) (*dto.NotaListResponse, error)
	// AnexarCanhoto stores the signed receipt scan and marks the invoice delivered.
	AnexarCanhoto(ctx context.Context, id uuid.UUID, arquivo Upload) (*dto.NotaResponse, error)
}

type notaService struct {
	repo    repository.NotaFiscalRepository
	storage Armazenamento
	hub     Publicador
	relogio Relogio
}

func NewNotaService(repo repository.NotaFiscalRepository, storage Armazenamento, hub Publicador, relogio Relogio) NotaService {
	return &notaService{repo: repo, storage: storage, hub: hub, relogio: relogio}
}

func (s *notaService) Listar(ctx context.Context, f dto.NotaFilter) (*dto.NotaListResponse, error) {
	now, loc := s.relogio.agora(), s.relogio.loc()
	notas, total, err := s.repo.List(ctx, f, now, loc)
	if err != nil {
		return nil, err
	}
	data := make([]dto.NotaResponse, len(notas))
	for i := range notas {
		data[i] = NotaToResponse(&notas[i], now, loc)
	}
	return &dto.NotaListResponse{
		Data:       data,
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(max(f.Limit, 1)))),
	}, nil
}

func (s *notaService) ObterPorID(ctx context.Context, id uuid.UUID) (*dto.NotaResponse, error) {
	n, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.resposta(n), nil
}

func (s *notaService) Criar(ctx context.Context, req dto.NotaRequest) (*dto.NotaResponse, error) {
	n := &model.NotaFiscal{}
	if err := aplicarRequest(n, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, n); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrNotaDuplicada
		}
		return nil, err
	}
	publicar(ctx, s.hub, eventos.NotaCriada, s.relogio.agora(), n.Fretista, map[string]any{"id": n.ID.String(), "numero": n.Numero})
	return s.resposta(n), nil
}

func (s *notaService) Atualizar(ctx context.Context, id uuid.UUID, req dto.NotaRequest) (*dto.NotaResponse, error) {
	n, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := aplicarRequest(n, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, n); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrNotaDuplicada
		}
		return nil, err
	}
	publicar(ctx, s.hub, eventos.NotaAtualizada, s.relogio.agora(), n.Fretista, map[string]any{"id": n.ID.String(), "numero": n.Numero})
	return s.resposta(n), nil
}

func (s *notaService) AlterarStatus(ctx context.Context, id uuid.UUID, status canhoto.Status) (*dto.NotaResponse, error) {
	if !status.Valido() {
		return nil, canhoto.ErrStatusInvalido
	}
	if err := s.repo.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotaNaoEncontrada
		}
		return nil, err
	}
	n, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	publicar(ctx, s.hub, eventos.NotaStatusAlterado, s.relogio.agora(), n.Fretista, map[string]any{
		"id": n.ID.String(), "numero": n.Numero, "status": n.Status,
	})
	return s.resposta(n), nil
}

func (s *notaService) Excluir(ctx context.Context, ids []string) (*dto.ExcluirNotasResponse, error) {
	uids := make([]uuid.UUID, 0, len(ids))
	vistos := make(map[uuid.UUID]bool, len(ids))
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrNotaNaoEncontrada, raw)
		}
		if !vistos[id] {
			vistos[id] = true
			uids = append(uids, id)
		}
	}
	if len(uids) == 0 {
		return &dto.ExcluirNotasResponse{}, nil
	}
	removidas, err := s.repo.DeleteBatch(ctx, uids)
	if err != nil {
		return nil, err
	}
	publicar(ctx, s.hub, eventos.NotasExcluidas, s.relogio.agora(), "", map[string]any{"ids": ids, "removidas": removidas})
	return &dto.ExcluirNotasResponse{Removidas: removidas}, nil
}

func (s *notaService) CanhotoURL(ctx context.Context, id uuid.UUID) (*dto.CanhotoURLResponse, error) {
	n, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.CanhotoKey == nil || *n.CanhotoKey == "" {
		return nil, ErrSemCanhoto
	}
	url, expira, err := s.storage.PresignGet(ctx, *n.CanhotoKey)
	if err != nil {
		return nil, err
	}
	return &dto.CanhotoURLResponse{URL: url, ExpiraEm: expira}, nil
}

func (s *notaService) Opcoes(ctx context.Context) (*repository.OpcoesFiltro, error) {
	o, err := s.repo.Opcoes(ctx)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *notaService) ListarCanhotos(ctx context.Context, f dto.NotaFilter) (*dto.NotaListResponse, error) {
	if sess, ok := sessao.FromContext(ctx); ok && sess.Role == acesso.RoleCarrier {
		if sess.Fretista == "" {
			return &dto.NotaListResponse{Data: []dto.NotaResponse{}, Page: f.Page, Limit: f.Limit}, nil
		}
		f.Fretista = sess.Fretista
	}
	return s.Listar(ctx, f)
}

func (s *notaService) AnexarCanhoto(ctx context.Context, id uuid.UUID, arquivo Upload) (*dto.NotaResponse, error) {
	contentType, err := arquivo.validar()
	if err != nil {
		return nil, err
	}
	n, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}

	key := chaveCanhoto(s.relogio.agora(), uuid.New(), contentType)
	if err := s.storage.Put(ctx, key, contentType, arquivo.Conteudo); err != nil {
		return nil, err
	}
	anterior := n.CanhotoKey
	n.CanhotoKey = &key
	n.Status = canhoto.StatusEntregue
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, err
	}
	// best effort, the nota already points at the new scan
	if anterior != nil && *anterior != "" {
		if err := s.storage.Delete(ctx, *anterior); err != nil {
			log.Warn().Err(err).Str("key", *anterior).Msg("nota: failed to delete replaced canhoto")
		}
	}
	publicar(ctx, s.hub, eventos.CanhotoAnexado, s.relogio.agora(), n.Fretista, map[string]any{
		"id": n.ID.String(), "numero": n.Numero, "status": n.Status,
	})
	return s.resposta(n), nil
}

// buscar loads an invoice, hiding other carriers' invoices from carrier sessions.
func (s *notaService) buscar(ctx context.Context, id uuid.UUID) (*model.NotaFiscal, error) {
	n, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotaNaoEncontrada
	}
	if err != nil {
		return nil, err
	}
	if sess, ok := sessao.FromContext(ctx); ok && sess.Role == acesso.RoleCarrier && n.Fretista != sess.Fretista {
		return nil, ErrNotaNaoEncontrada
	}
	return n, nil
}

func (s *notaService) resposta(n *model.NotaFiscal) *dto.NotaResponse {
	r := NotaToResponse(n, s.relogio.agora(), s.relogio.loc())
	return &r
}

func aplicarRequest(n *model.NotaFiscal, req dto.NotaRequest) error {
	emissao, err := time.Parse(canhoto.FormatoData, req.DataEmissao)
	if err != nil {
		return ErrDataInvalida
	}
	var venc *time.Time
	if req.DataVencimento != nil && *req.DataVencimento != "" {
		v, err := time.Parse(canhoto.FormatoData, *req.DataVencimento)
		if err != nil {
			return ErrDataInvalida
		}
		venc = &v
	}
	status := req.Status
	if status == "" {
		status = canhoto.StatusPendente
	}
	if !status.Valido() {
		return canhoto.ErrStatusInvalido
	}

	n.Numero = req.Numero
	n.Serie = req.Serie
	n.DataEmissao = emissao
	n.DataVencimento = venc
	n.Status = status
	n.Cliente = req.Cliente
	n.Fretista = req.Fretista
	n.Placa = req.Placa
	n.UF = req.UF
	n.Vendedor = req.Vendedor
	n.Rede = req.Rede
	n.ValorNota = req.ValorNota.Round(2)
	n.CFOP = req.CFOP
	return nil
}

// NotaToResponse derives the aging fields against now.
func NotaToResponse(n *model.NotaFiscal, now time.Time, loc *time.Location) dto.NotaResponse {
	a := canhoto.Classificar(n.Status, n.DataVencimento, now, loc)
	r := dto.NotaResponse{
		ID:           n.ID.String(),
		Numero:       n.Numero,
		Serie:        n.Serie,
		DataEmissao:  n.DataEmissao.Format(canhoto.FormatoData),
		Status:       n.Status,
		Situacao:     a.Situacao(),
		Severidade:   a.Severidade(),
		DiasAtraso:   a.DiasAtraso,
		DiasVencer:   a.DiasVencer,
		Cliente:      n.Cliente,
		Fretista:     n.Fretista,
		Placa:        n.Placa,
		UF:           n.UF,
		Vendedor:     n.Vendedor,
		Rede:         n.Rede,
		ValorNota:    n.ValorNota,
		CFOP:         n.CFOP,
		TemCanhoto:   n.CanhotoKey != nil && *n.CanhotoKey != "",
		RegistradoEm: n.RegistradoEm,
		EditadoEm:    n.EditadoEm,
	}
	if n.DataVencimento != nil {
		v := n.DataVencimento.Format(canhoto.FormatoData)
		r.DataVencimento = &v
	}
	if n.DocumentoID != nil {
		d := n.DocumentoID.String()
		r.DocumentoID = &d
	}
	return r
}

// chaveCanhoto is the object key of a stored scan: canhotos/YYYY/MM/<id><ext>.
func chaveCanhoto(now time.Time, id uuid.UUID, contentType string) string {
	return path.Join("canhotos", now.UTC().Format("2006/01"), id.String()+extensoes[contentType])
}
