package repository

import (
	"context"
	"strings"
	"time"

	"checknf/internal/canhoto"
	"checknf/internal/dto"
	"checknf/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OpcoesFiltro are the distinct values offered by the filter dropdowns.
type OpcoesFiltro struct {
	Fretistas  []string `json:"fretistas"`
	Clientes   []string `json:"clientes"`
	Redes      []string `json:"redes"`
	Vendedores []string `json:"vendedores"`
	UFs        []string `json:"ufs"`
}

type NotaFiscalRepository interface {
	Create(ctx context.Context, n *model.NotaFiscal) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.NotaFiscal, error)
	FindByNumero(ctx context.Context, numero string) (*model.NotaFiscal, error)
	Update(ctx context.Context, n *model.NotaFiscal) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status canhoto.Status) error
	DeleteBatch(ctx context.Context, ids []uuid.UUID) (int64, error)
	List(ctx context.Context, f dto.NotaFilter, now time.Time, loc *time.Location) ([]model.NotaFiscal, int64, error)
	ListAll(ctx context.Context, f canhoto.Filtro, now time.Time, loc *time.Location) ([]model.NotaFiscal, error)
	Opcoes(ctx context.Context) (OpcoesFiltro, error)
}

type notaFiscalRepo struct{ db *gorm.DB }

func NewNotaFiscalRepository(db *gorm.DB) NotaFiscalRepository { return &notaFiscalRepo{db: db} }

func (r *notaFiscalRepo) Create(ctx context.Context, n *model.NotaFiscal) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *notaFiscalRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.NotaFiscal, error) {
	var n model.NotaFiscal
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&n).Error
	return &n, err
}

func (r *notaFiscalRepo) FindByNumero(ctx context.Context, numero string) (*model.NotaFiscal, error) {
	var n model.NotaFiscal
	err := r.db.WithContext(ctx).Where("numero = ?", numero).First(&n).Error
	return &n, err
}

func (r *notaFiscalRepo) Update(ctx context.Context, n *model.NotaFiscal) error {
	return r.db.WithContext(ctx).Save(n).Error
}

func (r *notaFiscalRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status canhoto.Status) error {
	res := r.db.WithContext(ctx).Model(&model.NotaFiscal{}).Where("id = ?", id).Update("status", string(status))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// DeleteBatch removes every id in one statement; either all go or none do.
func (r *notaFiscalRepo) DeleteBatch(ctx context.Context, ids []uuid.UUID) (int64, error) {
	var removidas int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id IN ?", ids).Delete(&model.NotaFiscal{})
		removidas = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, err
	}
	return removidas, nil
}

// colunasOrdenaveis whitelists the sort keys accepted from the query string.
var colunasOrdenaveis = map[string]string{
	"numero":          "numero",
	"data_emissao":    "data_emissao",
	"data_vencimento": "data_vencimento",
	"valor_nota":      "valor_nota",
	"cliente":         "cliente",
	"fretista":        "fretista",
	"status":          "status",
	"registrado_em":   "registrado_em",
}

func (r *notaFiscalRepo) List(ctx context.Context, f dto.NotaFilter, now time.Time, loc *time.Location) ([]model.NotaFiscal, int64, error) {
	var notas []model.NotaFiscal
	var total int64
	offset := (f.Page - 1) * f.Limit

	q := filtrar(r.db.WithContext(ctx).Model(&model.NotaFiscal{}), f.Filtro, now, loc)

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col, ok := colunasOrdenaveis[f.Ordem]
	if !ok {
		col = "data_emissao"
	}
	desc := f.Direcao != "asc"

	err := q.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: desc}).
		Order("id").
		Offset(offset).Limit(f.Limit).
		Find(&notas).Error

	return notas, total, err
}

// ListAll returns every match in registration order, which the KPI
// aggregation uses as its first-seen order.
func (r *notaFiscalRepo) ListAll(ctx context.Context, f canhoto.Filtro, now time.Time, loc *time.Location) ([]model.NotaFiscal, error) {
	var notas []model.NotaFiscal
	err := filtrar(r.db.WithContext(ctx).Model(&model.NotaFiscal{}), f, now, loc).
		Order("registrado_em").Order("id").
		Find(&notas).Error
	return notas, err
}

func (r *notaFiscalRepo) Opcoes(ctx context.Context) (OpcoesFiltro, error) {
	var o OpcoesFiltro
	for _, c := range []struct {
		col string
		dst *[]string
	}{
		{"fretista", &o.Fretistas},
		{"cliente", &o.Clientes},
		{"rede", &o.Redes},
		{"vendedor", &o.Vendedores},
		{"uf", &o.UFs},
	} {
		col, dst := c.col, c.dst
		*dst = []string{}
		err := r.db.WithContext(ctx).Model(&model.NotaFiscal{}).
			Distinct(col).
			Where(col+" <> ''").
			Order(col).
			Pluck(col, dst).Error
		if err != nil {
			return OpcoesFiltro{}, err
		}
	}
	return o, nil
}

// filtrar translates a Filtro into WHERE clauses with the same semantics as
// canhoto.Filtro.Compilar: empty and malformed fields add nothing.
func filtrar(q *gorm.DB, f canhoto.Filtro, now time.Time, loc *time.Location) *gorm.DB {
	if busca := strings.TrimSpace(f.Busca); busca != "" {
		p := "%" + escaparLike(busca) + "%"
		q = q.Where("numero ILIKE ? OR cliente ILIKE ? OR fretista ILIKE ?", p, p, p)
	}
	if st, ok := f.StatusAtivo(); ok {
		q = q.Where("status = ?", string(st))
	}
	for _, c := range [][2]string{
		{"fretista", f.Fretista},
		{"cliente", f.Cliente},
		{"rede", f.Rede},
		{"uf", f.UF},
		{"vendedor", f.Vendedor},
	} {
		if c[1] != "" {
			q = q.Where(c[0]+" = ?", c[1])
		}
	}

	periodo := f.Intervalo(now, loc)
	if periodo.Inicio != nil {
		q = q.Where("data_emissao >= ?", periodo.Inicio.Format(canhoto.FormatoData))
	}
	if periodo.Fim != nil {
		q = q.Where("data_emissao <= ?", periodo.Fim.Format(canhoto.FormatoData))
	}

	if sit, ok := f.SituacaoAtiva(); ok {
		// overdue or due within the alert window, pending only
		limite := canhoto.Hoje(now, loc).AddDate(0, 0, canhoto.LimiteAlerta).Format(canhoto.FormatoData)
		proximo := "status = 'Pendente' AND data_vencimento IS NOT NULL AND data_vencimento <= ?"
		if sit == canhoto.SituacaoProximoVencimento {
			q = q.Where(proximo, limite)
		} else {
			q = q.Where("NOT ("+proximo+")", limite)
		}
	}
	return q
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escaparLike(s string) string { return likeEscaper.Replace(s) }
