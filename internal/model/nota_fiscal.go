package model

import (
	"time"

	"checknf/internal/canhoto"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NotaFiscal is one tracked invoice. Aging fields are never stored; they are
// derived from DataVencimento on every read.
type NotaFiscal struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Numero         string         `gorm:"type:varchar(20);uniqueIndex;not null"`
	Serie          *string        `gorm:"type:varchar(5)"`
	DataEmissao    time.Time      `gorm:"type:date;index;not null"`
	DataVencimento *time.Time     `gorm:"type:date;index"`
	Status         canhoto.Status `gorm:"type:varchar(20);index;not null;default:'Pendente'"`
	Cliente        string         `gorm:"index;not null"`
	Fretista       string         `gorm:"index"`
	Placa          string         `gorm:"type:varchar(10)"`
	UF             string         `gorm:"column:uf;type:varchar(2)"`
	Vendedor       string
	Rede           string
	ValorNota      decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0"`
	CFOP           *string         `gorm:"column:cfop;type:varchar(4)"`
	// CanhotoKey is the object storage key of the signed receipt scan
	CanhotoKey   *string    `gorm:"column:canhoto_key"`
	DocumentoID  *uuid.UUID `gorm:"type:uuid"`
	RegistradoEm time.Time  `gorm:"autoCreateTime"`
	EditadoEm    time.Time  `gorm:"autoUpdateTime"`
}

func (NotaFiscal) TableName() string { return "notas_fiscais" }

// Canhoto projects the row onto the lifecycle view used by filters and KPIs.
func (n NotaFiscal) Canhoto() canhoto.Nota {
	return canhoto.Nota{
		ID:         n.ID.String(),
		Numero:     n.Numero,
		Cliente:    n.Cliente,
		Fretista:   n.Fretista,
		Placa:      n.Placa,
		Rede:       n.Rede,
		UF:         n.UF,
		Vendedor:   n.Vendedor,
		Status:     n.Status,
		Emissao:    n.DataEmissao,
		Vencimento: n.DataVencimento,
		Valor:      n.ValorNota,
	}
}
