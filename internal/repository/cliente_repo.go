package repository

import (
	"context"
	"strings"

	"checknf/internal/dto"
	"checknf/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ClienteRepository interface {
	Create(ctx context.Context, c *model.Cliente) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Cliente, error)
	FindByCNPJ(ctx context.Context, cnpj string) (*model.Cliente, error)
	List(ctx context.Context, f dto.CadastroFilter) ([]model.Cliente, error)
	Update(ctx context.Context, c *model.Cliente) error
	SetActivo(ctx context.Context, id uuid.UUID, activo bool) error
}

type clienteRepo struct{ db *gorm.DB }

func NewClienteRepository(db *gorm.DB) ClienteRepository { return &clienteRepo{db: db} }

func (r *clienteRepo) Create(ctx context.Context, c *model.Cliente) error {
	return r.db.WithContext(ctx).Create(c).Error
}

func (r *clienteRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Cliente, error) {
	var c model.Cliente
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error
	return &c, err
}

func (r *clienteRepo) FindByCNPJ(ctx context.Context, cnpj string) (*model.Cliente, error) {
	var c model.Cliente
	err := r.db.WithContext(ctx).Where("cnpj = ? AND ativo = true", cnpj).First(&c).Error
	return &c, err
}

func (r *clienteRepo) List(ctx context.Context, f dto.CadastroFilter) ([]model.Cliente, error) {
	var clientes []model.Cliente
	q := r.db.WithContext(ctx)
	if !f.Inativos {
		q = q.Where("ativo = true")
	}
	if busca := strings.TrimSpace(f.Busca); busca != "" {
		p := "%" + escaparLike(busca) + "%"
		q = q.Where("nome_fantasia ILIKE ? OR razao_social ILIKE ? OR cnpj LIKE ?", p, p, p)
	}
	err := q.Order("nome_fantasia").Find(&clientes).Error
	return clientes, err
}

func (r *clienteRepo) Update(ctx context.Context, c *model.Cliente) error {
	return r.db.WithContext(ctx).Save(c).Error
}

func (r *clienteRepo) SetActivo(ctx context.Context, id uuid.UUID, activo bool) error {
	res := r.db.WithContext(ctx).Model(&model.Cliente{}).Where("id = ?", id).Update("ativo", activo)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
