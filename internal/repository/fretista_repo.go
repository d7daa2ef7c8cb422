package repository

import (
	"context"
	"strings"

	"checknf/internal/dto"
	"checknf/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type FretistaRepository interface {
	Create(ctx context.Context, f *model.Fretista) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Fretista, error)
	FindByPlaca(ctx context.Context, placa string) (*model.Fretista, error)
	List(ctx context.Context, f dto.CadastroFilter) ([]model.Fretista, error)
	Update(ctx context.Context, f *model.Fretista) error
	SetActivo(ctx context.Context, id uuid.UUID, activo bool) error
}

type fretistaRepo struct{ db *gorm.DB }

func NewFretistaRepository(db *gorm.DB) FretistaRepository { return &fretistaRepo{db: db} }

func (r *fretistaRepo) Create(ctx context.Context, f *model.Fretista) error {
	return r.db.WithContext(ctx).Create(f).Error
}

func (r *fretistaRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Fretista, error) {
	var f model.Fretista
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&f).Error
	return &f, err
}

func (r *fretistaRepo) FindByPlaca(ctx context.Context, placa string) (*model.Fretista, error) {
	var f model.Fretista
	err := r.db.WithContext(ctx).Where("placa = ?", placa).First(&f).Error
	return &f, err
}

func (r *fretistaRepo) List(ctx context.Context, filter dto.CadastroFilter) ([]model.Fretista, error) {
	var fretistas []model.Fretista
	q := r.db.WithContext(ctx)
	if !filter.Inativos {
		q = q.Where("ativo = true")
	}
	if busca := strings.TrimSpace(filter.Busca); busca != "" {
		p := "%" + escaparLike(busca) + "%"
		q = q.Where("nome ILIKE ? OR placa ILIKE ?", p, p)
	}
	err := q.Order("nome").Find(&fretistas).Error
	return fretistas, err
}

func (r *fretistaRepo) Update(ctx context.Context, f *model.Fretista) error {
	return r.db.WithContext(ctx).Save(f).Error
}

func (r *fretistaRepo) SetActivo(ctx context.Context, id uuid.UUID, activo bool) error {
	res := r.db.WithContext(ctx).Model(&model.Fretista{}).Where("id = ?", id).Update("ativo", activo)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
