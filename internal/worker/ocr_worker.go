package worker

// ocr_worker.go
// Processes OCR jobs from QueueOCR: downloads the uploaded scan, reads it
// through the OCR client, parses the DANFE fields and creates the invoice.
// Unreadable or ineligible documents are rejected without retry.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"checknf/internal/canhoto"
	"checknf/internal/eventos"
	"checknf/internal/infra"
	"checknf/internal/model"
	"checknf/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Armazenamento reads uploaded objects.
type Armazenamento interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// LeitorOCR turns a scan into text.
type LeitorOCR interface {
	ExtrairTexto(ctx context.Context, conteudo []byte, contentType string) (string, error)
}

// Publicador receives domain events.
type Publicador interface {
	Publicar(ctx context.Context, e eventos.Evento)
}

type OCRWorker struct {
	docs     repository.DocumentoRepository
	notas    repository.NotaFiscalRepository
	clientes repository.ClienteRepository
	storage  Armazenamento
	ocr      LeitorOCR
	hub      Publicador
	loc      *time.Location
	now      func() time.Time
}

func NewOCRWorker(
	docs repository.DocumentoRepository,
	notas repository.NotaFiscalRepository,
	clientes repository.ClienteRepository,
	storage Armazenamento,
	ocr LeitorOCR,
	hub Publicador,
	loc *time.Location,
) *OCRWorker {
	return &OCRWorker{
		docs: docs, notas: notas, clientes: clientes,
		storage: storage, ocr: ocr, hub: hub,
		loc: loc, now: time.Now,
	}
}

// rejeicao is a permanent failure: the document is marked rejected.
type rejeicao struct{ motivo string }

func (r rejeicao) Error() string { return r.motivo }

func rejeitar(format string, args ...any) error {
	return rejeicao{motivo: fmt.Sprintf(format, args...)}
}

func (w *OCRWorker) Process(ctx context.Context, job Job) error {
	var payload OCRJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		log.Error().Err(err).Msg("ocr_worker: invalid payload")
		return nil
	}
	id, err := uuid.Parse(payload.DocumentoID)
	if err != nil {
		log.Error().Str("documento_id", payload.DocumentoID).Msg("ocr_worker: invalid documento id")
		return nil
	}

	doc, err := w.docs.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warn().Str("documento_id", payload.DocumentoID).Msg("ocr_worker: documento no longer exists")
		return nil
	}
	if err != nil {
		return fmt.Errorf("ocr_worker: load documento: %w", err)
	}
	if doc.Estado != model.DocumentoProcessando {
		return nil
	}
	doc.Tentativas = job.Tentativa + 1

	if doc.Fretista == "" {
		doc.Fretista = payload.Fretista
	}
	nota, err := w.ler(ctx, doc, doc.Fretista)
	var rej rejeicao
	switch {
	case errors.As(err, &rej):
		return w.marcarRejeitado(ctx, doc, rej.motivo)
	case err != nil:
		msg := err.Error()
		doc.UltimoErro = &msg
		if uerr := w.docs.Update(ctx, doc); uerr != nil {
			log.Error().Err(uerr).Str("documento_id", doc.ID.String()).Msg("ocr_worker: failed to record attempt")
		}
		return err
	}

	if err := w.docs.Concluir(ctx, doc, nota); err != nil {
		// another upload or a manual entry took the numero after the lookup
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return w.marcarRejeitado(ctx, doc, fmt.Sprintf("nota %s já cadastrada", nota.Numero))
		}
		return fmt.Errorf("ocr_worker: save nota: %w", err)
	}

	log.Info().
		Str("documento_id", doc.ID.String()).
		Str("nota_id", nota.ID.String()).
		Str("numero", nota.Numero).
		Msg("ocr_worker: documento processed")
	w.publicar(ctx, eventos.DocumentoProcessado, doc.EnviadoPor, nota.Fretista, map[string]any{
		"documento_id": doc.ID.String(), "nota_id": nota.ID.String(), "numero": nota.Numero,
	})
	w.publicar(ctx, eventos.NotaCriada, doc.EnviadoPor, nota.Fretista, map[string]any{
		"id": nota.ID.String(), "numero": nota.Numero,
	})
	return nil
}

// ler builds the invoice from the scan. Errors of type rejeicao are final.
func (w *OCRWorker) ler(ctx context.Context, doc *model.Documento, fretista string) (*model.NotaFiscal, error) {
	conteudo, err := w.storage.Get(ctx, doc.StorageKey)
	if err != nil {
		return nil, err
	}

	texto, err := w.ocr.ExtrairTexto(ctx, conteudo, doc.ContentType)
	switch {
	case errors.Is(err, infra.ErrOCRVazio):
		return nil, rejeitar("nenhum texto reconhecido no documento")
	case errors.Is(err, infra.ErrOCRTipoInvalido), errors.Is(err, infra.ErrOCRMuitoGrande):
		return nil, rejeitar("%v", err)
	case err != nil:
		return nil, err
	}
	doc.TextoOCR = &texto

	campos, err := canhoto.Extrair(texto)
	if err != nil {
		return nil, rejeitar("leitura incompleta: %v", err)
	}
	if campos.CFOP != "" && !canhoto.CFOPElegivel(campos.CFOP) {
		return nil, rejeitar("CFOP %s não elegível para acompanhamento", campos.CFOP)
	}

	_, err = w.notas.FindByNumero(ctx, campos.Numero)
	if err == nil {
		return nil, rejeitar("nota %s já cadastrada", campos.Numero)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	emissao := canhoto.Hoje(w.now(), w.loc)
	if campos.Emissao != nil {
		emissao = canhoto.Dia(*campos.Emissao)
	}
	venc := canhoto.VencimentoPadrao(emissao)
	key := doc.StorageKey
	nota := &model.NotaFiscal{
		Numero:         campos.Numero,
		DataEmissao:    emissao,
		DataVencimento: &venc,
		Status:         canhoto.StatusPendente,
		Fretista:       fretista,
		ValorNota:      campos.Valor,
		CanhotoKey:     &key,
	}
	if campos.Serie != "" {
		s := campos.Serie
		nota.Serie = &s
	}
	if campos.CFOP != "" {
		c := campos.CFOP
		nota.CFOP = &c
	}

	nota.Cliente = "CNPJ não identificado"
	if campos.CNPJCliente != "" {
		nota.Cliente = "CNPJ " + campos.CNPJCliente
		cli, err := w.clientes.FindByCNPJ(ctx, campos.CNPJCliente)
		switch {
		case err == nil:
			nota.Cliente = cli.NomeFantasia
			nota.Rede = cli.Rede
			nota.UF = cli.UF
			nota.Vendedor = cli.Vendedor
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, err
		}
	}
	return nota, nil
}

func (w *OCRWorker) marcarRejeitado(ctx context.Context, doc *model.Documento, motivo string) error {
	doc.Estado = model.DocumentoRejeitado
	doc.UltimoErro = &motivo
	if err := w.docs.Update(ctx, doc); err != nil {
		return fmt.Errorf("ocr_worker: reject documento: %w", err)
	}
	log.Warn().Str("documento_id", doc.ID.String()).Str("motivo", motivo).Msg("ocr_worker: documento rejected")
	w.publicar(ctx, eventos.DocumentoRejeitado, doc.EnviadoPor, doc.Fretista, map[string]any{
		"documento_id": doc.ID.String(), "motivo": motivo,
	})
	return nil
}

// Esgotado marks the document as failed after the last retry.
func (w *OCRWorker) Esgotado(ctx context.Context, job Job, cause error) {
	var payload OCRJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return
	}
	id, err := uuid.Parse(payload.DocumentoID)
	if err != nil {
		return
	}
	doc, err := w.docs.FindByID(ctx, id)
	if err != nil {
		log.Error().Err(err).Str("documento_id", payload.DocumentoID).Msg("ocr_worker: load documento after retries")
		return
	}
	msg := cause.Error()
	doc.Estado = model.DocumentoErro
	doc.UltimoErro = &msg
	doc.Tentativas = job.Tentativa
	if err := w.docs.Update(ctx, doc); err != nil {
		log.Error().Err(err).Str("documento_id", payload.DocumentoID).Msg("ocr_worker: mark documento as erro")
		return
	}
	w.publicar(ctx, eventos.DocumentoRejeitado, doc.EnviadoPor, doc.Fretista, map[string]any{
		"documento_id": doc.ID.String(), "motivo": msg,
	})
}

func (w *OCRWorker) publicar(ctx context.Context, tipo eventos.Tipo, usuario uuid.UUID, fretista string, dados any) {
	if w.hub == nil {
		return
	}
	w.hub.Publicar(ctx, eventos.Evento{Tipo: tipo, Em: w.now(), UsuarioID: usuario.String(), Fretista: fretista, Dados: dados})
}
