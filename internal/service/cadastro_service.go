package service

import (
	"context"
	"errors"
	"strings"

	"checknf/internal/canhoto"
	"checknf/internal/dto"
	"checknf/internal/model"
	"checknf/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ── Clientes ─────────────────────────────────────────────────────────────────

type ClienteService interface {
	Criar(ctx context.Context, req dto.ClienteRequest) (*dto.ClienteResponse, error)
	Listar(ctx context.Context, f dto.CadastroFilter) ([]dto.ClienteResponse, error)
	ObterPorID(ctx context.Context, id uuid.UUID) (*dto.ClienteResponse, error)
	Atualizar(ctx context.Context, id uuid.UUID, req dto.ClienteRequest) (*dto.ClienteResponse, error)
	Desativar(ctx context.Context, id uuid.UUID) error
	Reativar(ctx context.Context, id uuid.UUID) error
}

type clienteService struct {
	repo repository.ClienteRepository
}

func NewClienteService(repo repository.ClienteRepository) ClienteService {
	return &clienteService{repo: repo}
}

func (s *clienteService) Criar(ctx context.Context, req dto.ClienteRequest) (*dto.ClienteResponse, error) {
	c := &model.Cliente{Activo: true}
	if err := aplicarCliente(c, req); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCNPJDuplicado
		}
		return nil, err
	}
	return clienteToResponse(c), nil
}

func (s *clienteService) Listar(ctx context.Context, f dto.CadastroFilter) ([]dto.ClienteResponse, error) {
	clientes, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.ClienteResponse, len(clientes))
	for i := range clientes {
		resp[i] = *clienteToResponse(&clientes[i])
	}
	return resp, nil
}

func (s *clienteService) ObterPorID(ctx context.Context, id uuid.UUID) (*dto.ClienteResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, naoEncontrado(err, ErrClienteNaoEncontrado)
	}
	return clienteToResponse(c), nil
}

func (s *clienteService) Atualizar(ctx context.Context, id uuid.UUID, req dto.ClienteRequest) (*dto.ClienteResponse, error) {
	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, naoEncontrado(err, ErrClienteNaoEncontrado)
	}
	if err := aplicarCliente(c, req); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCNPJDuplicado
		}
		return nil, err
	}
	return clienteToResponse(c), nil
}

func (s *clienteService) Desativar(ctx context.Context, id uuid.UUID) error {
	return naoEncontrado(s.repo.SetActivo(ctx, id, false), ErrClienteNaoEncontrado)
}

func (s *clienteService) Reativar(ctx context.Context, id uuid.UUID) error {
	return naoEncontrado(s.repo.SetActivo(ctx, id, true), ErrClienteNaoEncontrado)
}

func aplicarCliente(c *model.Cliente, req dto.ClienteRequest) error {
	cnpj := canhoto.SomenteDigitos(req.CNPJ)
	if len(cnpj) != 14 {
		return ErrCNPJInvalido
	}
	c.RazaoSocial = strings.TrimSpace(req.RazaoSocial)
	c.NomeFantasia = strings.TrimSpace(req.NomeFantasia)
	c.CNPJ = cnpj
	c.Rede = strings.TrimSpace(req.Rede)
	c.UF = strings.ToUpper(req.UF)
	c.Vendedor = strings.TrimSpace(req.Vendedor)
	return nil
}

func clienteToResponse(c *model.Cliente) *dto.ClienteResponse {
	return &dto.ClienteResponse{
		ID:           c.ID.String(),
		RazaoSocial:  c.RazaoSocial,
		NomeFantasia: c.NomeFantasia,
		CNPJ:         c.CNPJ,
		Rede:         c.Rede,
		UF:           c.UF,
		Vendedor:     c.Vendedor,
		Activo:       c.Activo,
	}
}

// ── Fretistas ────────────────────────────────────────────────────────────────

type FretistaService interface {
	Criar(ctx context.Context, req dto.FretistaRequest) (*dto.FretistaResponse, error)
	Listar(ctx context.Context, f dto.CadastroFilter) ([]dto.FretistaResponse, error)
	ObterPorID(ctx context.Context, id uuid.UUID) (*dto.FretistaResponse, error)
	Atualizar(ctx context.Context, id uuid.UUID, req dto.FretistaRequest) (*dto.FretistaResponse, error)
	Desativar(ctx context.Context, id uuid.UUID) error
	Reativar(ctx context.Context, id uuid.UUID) error
}

type fretistaService struct {
	repo repository.FretistaRepository
}

func NewFretistaService(repo repository.FretistaRepository) FretistaService {
	return &fretistaService{repo: repo}
}

func (s *fretistaService) Criar(ctx context.Context, req dto.FretistaRequest) (*dto.FretistaResponse, error) {
	f := &model.Fretista{Placa: NormalizarPlaca(req.Placa), Nome: strings.TrimSpace(req.Nome), Activo: true}
	if err := s.repo.Create(ctx, f); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPlacaDuplicada
		}
		return nil, err
	}
	return fretistaToResponse(f), nil
}

func (s *fretistaService) Listar(ctx context.Context, filter dto.CadastroFilter) ([]dto.FretistaResponse, error) {
	fretistas, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	resp := make([]dto.FretistaResponse, len(fretistas))
	for i := range fretistas {
		resp[i] = *fretistaToResponse(&fretistas[i])
	}
	return resp, nil
}

func (s *fretistaService) ObterPorID(ctx context.Context, id uuid.UUID) (*dto.FretistaResponse, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, naoEncontrado(err, ErrFretistaNaoEncontrado)
	}
	return fretistaToResponse(f), nil
}

func (s *fretistaService) Atualizar(ctx context.Context, id uuid.UUID, req dto.FretistaRequest) (*dto.FretistaResponse, error) {
	f, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, naoEncontrado(err, ErrFretistaNaoEncontrado)
	}
	f.Placa = NormalizarPlaca(req.Placa)
	f.Nome = strings.TrimSpace(req.Nome)
	if err := s.repo.Update(ctx, f); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrPlacaDuplicada
		}
		return nil, err
	}
	return fretistaToResponse(f), nil
}

func (s *fretistaService) Desativar(ctx context.Context, id uuid.UUID) error {
	return naoEncontrado(s.repo.SetActivo(ctx, id, false), ErrFretistaNaoEncontrado)
}

func (s *fretistaService) Reativar(ctx context.Context, id uuid.UUID) error {
	return naoEncontrado(s.repo.SetActivo(ctx, id, true), ErrFretistaNaoEncontrado)
}

// NormalizarPlaca uppercases a plate and strips separators: "abc-1d23" → "ABC1D23".
func NormalizarPlaca(p string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(p) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func fretistaToResponse(f *model.Fretista) *dto.FretistaResponse {
	return &dto.FretistaResponse{ID: f.ID.String(), Placa: f.Placa, Nome: f.Nome, Activo: f.Activo}
}

// naoEncontrado swaps gorm's not-found for the service sentinel.
func naoEncontrado(err, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
