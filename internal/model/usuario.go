package model

import (
	"time"

	"github.com/google/uuid"
)

// Usuario is a dashboard login.
// Role: "admin" | "staff" | "carrier" | "management" | "new"
type Usuario struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Username     string    `gorm:"uniqueIndex;not null"`
	Nome         string    `gorm:"not null"`
	Email        *string
	PasswordHash string `gorm:"not null"`
	Role         string `gorm:"type:varchar(20);not null;default:'new'"`
	// Fretista binds a carrier login to the carrier name on invoices; nil = unbound
	Fretista  *string
	Activo    bool `gorm:"column:ativo;not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Usuario) TableName() string { return "usuarios" }
