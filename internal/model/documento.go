package model

import (
	"time"

	"github.com/google/uuid"
)

// Documento tracks one uploaded scan through OCR.
// Estado: "processando" | "processado" | "rejeitado" | "erro"
type Documento struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	NomeArquivo string    `gorm:"not null"`
	StorageKey  string    `gorm:"not null"`
	ContentType string    `gorm:"type:varchar(100);not null"`
	Tamanho     int64     `gorm:"not null"`
	Estado      string    `gorm:"type:varchar(20);index;not null;default:'processando'"`
	Tentativas  int       `gorm:"not null;default:0"`
	UltimoErro  *string
	TextoOCR    *string    `gorm:"column:texto_ocr"`
	NotaID      *uuid.UUID `gorm:"type:uuid"`
	EnviadoPor  uuid.UUID  `gorm:"type:uuid;not null"`
	// Fretista of the uploading carrier session; empty for office uploads.
	Fretista  string `gorm:"type:varchar(200);index;not null;default:''"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Documento) TableName() string { return "documentos" }

const (
	DocumentoProcessando = "processando"
	DocumentoProcessado  = "processado"
	DocumentoRejeitado   = "rejeitado"
	DocumentoErro        = "erro"
)
