package repository

import (
	"context"

	"checknf/internal/dto"
	"checknf/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentoRepository interface {
	Create(ctx context.Context, d *model.Documento) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Documento, error)
	List(ctx context.Context, f dto.DocumentoFilter) ([]model.Documento, int64, error)
	Update(ctx context.Context, d *model.Documento) error
	// Concluir stores the created invoice and marks the document processed
	// in one transaction.
	Concluir(ctx context.Context, d *model.Documento, n *model.NotaFiscal) error
}

type documentoRepo struct{ db *gorm.DB }

func NewDocumentoRepository(db *gorm.DB) DocumentoRepository { return &documentoRepo{db: db} }

func (r *documentoRepo) Create(ctx context.Context, d *model.Documento) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *documentoRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Documento, error) {
	var d model.Documento
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&d).Error
	return &d, err
}

func (r *documentoRepo) List(ctx context.Context, f dto.DocumentoFilter) ([]model.Documento, int64, error) {
	var docs []model.Documento
	var total int64
	offset := (f.Page - 1) * f.Limit

	q := r.db.WithContext(ctx).Model(&model.Documento{})
	if f.Estado != "" {
		q = q.Where("estado = ?", f.Estado)
	}
	if f.Fretista != "" {
		q = q.Where("fretista = ?", f.Fretista)
	}
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := q.Order("created_at DESC").Offset(offset).Limit(f.Limit).Find(&docs).Error
	return docs, total, err
}

func (r *documentoRepo) Update(ctx context.Context, d *model.Documento) error {
	return r.db.WithContext(ctx).Save(d).Error
}

func (r *documentoRepo) Concluir(ctx context.Context, d *model.Documento, n *model.NotaFiscal) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		n.DocumentoID = &d.ID
		if err := tx.Create(n).Error; err != nil {
			return err
		}
		d.NotaID = &n.ID
		d.Estado = model.DocumentoProcessado
		d.UltimoErro = nil
		return tx.Save(d).Error
	})
}
