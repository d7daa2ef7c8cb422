package service

import (
	"context"
	"testing"

	"checknf/internal/dto"
	"checknf/internal/model"
	"checknf/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubClienteRepo struct {
	repository.ClienteRepository
	criados []*model.Cliente
	dup     bool
}

func (r *stubClienteRepo) Create(_ context.Context, c *model.Cliente) error {
	if r.dup {
		return gorm.ErrDuplicatedKey
	}
	c.ID = uuid.New()
	r.criados = append(r.criados, c)
	return nil
}

func (r *stubClienteRepo) FindByID(context.Context, uuid.UUID) (*model.Cliente, error) {
	return nil, gorm.ErrRecordNotFound
}

func (r *stubClienteRepo) SetActivo(context.Context, uuid.UUID, bool) error {
	return gorm.ErrRecordNotFound
}

type stubFretistaRepo struct {
	repository.FretistaRepository
	placas map[string]bool
}

func (r *stubFretistaRepo) Create(_ context.Context, f *model.Fretista) error {
	if r.placas[f.Placa] {
		return gorm.ErrDuplicatedKey
	}
	r.placas[f.Placa] = true
	f.ID = uuid.New()
	return nil
}

func TestClienteService_CriarNormalizesCNPJ(t *testing.T) {
	repo := &stubClienteRepo{}
	svc := NewClienteService(repo)

	resp, err := svc.Criar(context.Background(), dto.ClienteRequest{
		RazaoSocial: " Mercado Sol LTDA ", NomeFantasia: "Mercado Sol", CNPJ: "98.765.432/0001-10", UF: "sp",
	})
	require.NoError(t, err)

	assert.Equal(t, "98765432000110", resp.CNPJ)
	assert.Equal(t, "Mercado Sol LTDA", resp.RazaoSocial)
	assert.Equal(t, "SP", resp.UF)
	assert.True(t, resp.Activo)
}

func TestClienteService_Errors(t *testing.T) {
	repo := &stubClienteRepo{}
	svc := NewClienteService(repo)

	_, err := svc.Criar(context.Background(), dto.ClienteRequest{RazaoSocial: "X", NomeFantasia: "X", CNPJ: "12.345.678/0001"})
	assert.ErrorIs(t, err, ErrCNPJInvalido)
	assert.Empty(t, repo.criados)

	repo.dup = true
	_, err = svc.Criar(context.Background(), dto.ClienteRequest{RazaoSocial: "X", NomeFantasia: "X", CNPJ: "12345678000190"})
	assert.ErrorIs(t, err, ErrCNPJDuplicado)

	_, err = svc.ObterPorID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrClienteNaoEncontrado)

	assert.ErrorIs(t, svc.Desativar(context.Background(), uuid.New()), ErrClienteNaoEncontrado)
}

func TestFretistaService_CriarNormalizesPlateAndRejectsDuplicate(t *testing.T) {
	svc := NewFretistaService(&stubFretistaRepo{placas: map[string]bool{}})

	resp, err := svc.Criar(context.Background(), dto.FretistaRequest{Placa: "abc-1d23", Nome: " João "})
	require.NoError(t, err)
	assert.Equal(t, "ABC1D23", resp.Placa)
	assert.Equal(t, "João", resp.Nome)

	_, err = svc.Criar(context.Background(), dto.FretistaRequest{Placa: "ABC 1D23", Nome: "Outro"})
	assert.ErrorIs(t, err, ErrPlacaDuplicada)
}

func TestNormalizarPlaca(t *testing.T) {
	assert.Equal(t, "ABC1234", NormalizarPlaca("abc-1234"))
	assert.Equal(t, "BRA2E19", NormalizarPlaca(" bra 2e19 "))
	assert.Equal(t, "", NormalizarPlaca("--"))
}
