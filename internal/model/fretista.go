package model

import (
	"time"

	"github.com/google/uuid"
)

// Fretista is a carrier, identified by vehicle plate.
type Fretista struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Placa     string    `gorm:"type:varchar(10);uniqueIndex;not null"`
	Nome      string    `gorm:"not null"`
	Activo    bool      `gorm:"column:ativo;not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Fretista) TableName() string { return "fretistas" }
