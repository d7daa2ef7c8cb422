package model

import (
	"time"

	"github.com/google/uuid"
)

// Cliente is a buyer. Rede, UF and Vendedor are copied onto each invoice
// at ingestion so filters never need a join.
type Cliente struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	RazaoSocial  string    `gorm:"not null"`
	NomeFantasia string    `gorm:"index;not null"`
	CNPJ         string    `gorm:"column:cnpj;type:varchar(14);uniqueIndex;not null"`
	Rede         string
	UF           string `gorm:"column:uf;type:varchar(2)"`
	Vendedor     string
	Activo       bool `gorm:"column:ativo;not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (Cliente) TableName() string { return "clientes" }
