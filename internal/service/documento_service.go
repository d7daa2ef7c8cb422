package service

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strings"

	"checknf/internal/acesso"
	"checknf/internal/dto"
	"checknf/internal/model"
	"checknf/internal/repository"
	"checknf/internal/sessao"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// extensoes are the accepted scan formats.
var extensoes = map[string]string{
	"application/pdf": ".pdf",
	"image/jpeg":      ".jpg",
	"image/png":       ".png",
}

// Upload is a file received from a multipart form.
type Upload struct {
	Nome     string
	Conteudo []byte
	MaxBytes int64
}

// validar sniffs the content type from the bytes; the client's header is
// not trusted.
func (u Upload) validar() (string, error) {
	if len(u.Conteudo) == 0 {
		return "", ErrArquivoVazio
	}
	if u.MaxBytes > 0 && int64(len(u.Conteudo)) > u.MaxBytes {
		return "", ErrArquivoGrande
	}
	ct := http.DetectContentType(u.Conteudo)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	if _, ok := extensoes[ct]; !ok {
		return "", ErrArquivoInvalido
	}
	return ct, nil
}

type DocumentoService interface {
	Enviar(ctx context.Context, arquivo Upload) (*dto.DocumentoResponse, error)
	Listar(ctx context.Context, f dto.DocumentoFilter) (*dto.DocumentoListResponse, error)
	ObterPorID(ctx context.Context, id uuid.UUID) (*dto.DocumentoResponse, error)
	Reprocessar(ctx context.Context, id uuid.UUID) (*dto.DocumentoResponse, error)
}

type documentoService struct {
	repo    repository.DocumentoRepository
	storage Armazenamento
	fila    Enfileirador
	relogio Relogio
}

func NewDocumentoService(repo repository.DocumentoRepository, storage Armazenamento, fila Enfileirador, relogio Relogio) DocumentoService {
	return &documentoService{repo: repo, storage: storage, fila: fila, relogio: relogio}
}

func (s *documentoService) Enviar(ctx context.Context, arquivo Upload) (*dto.DocumentoResponse, error) {
	contentType, err := arquivo.validar()
	if err != nil {
		return nil, err
	}
	sess, _ := sessao.FromContext(ctx)

	id := uuid.New()
	key := chaveCanhoto(s.relogio.agora(), id, contentType)
	if err := s.storage.Put(ctx, key, contentType, arquivo.Conteudo); err != nil {
		return nil, err
	}

	doc := &model.Documento{
		ID:          id,
		NomeArquivo: arquivo.Nome,
		StorageKey:  key,
		ContentType: contentType,
		Tamanho:     int64(len(arquivo.Conteudo)),
		Estado:      model.DocumentoProcessando,
	}
	if sess != nil {
		doc.EnviadoPor = sess.UsuarioID
		doc.Fretista = sess.Fretista
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.fila.EnqueueOCR(ctx, doc.ID, doc.Fretista); err != nil {
		// the row stays visible and can be reprocessed by hand
		msg := "falha ao enfileirar: " + err.Error()
		doc.Estado = model.DocumentoErro
		doc.UltimoErro = &msg
		if uerr := s.repo.Update(ctx, doc); uerr != nil {
			log.Error().Err(uerr).Str("documento_id", doc.ID.String()).Msg("documento: failed to record enqueue error")
		}
		return nil, err
	}
	return documentoToResponse(doc), nil
}

func (s *documentoService) Listar(ctx context.Context, f dto.DocumentoFilter) (*dto.DocumentoListResponse, error) {
	if sess, ok := sessao.FromContext(ctx); ok && sess.Role == acesso.RoleCarrier {
		if sess.Fretista == "" {
			return &dto.DocumentoListResponse{Data: []dto.DocumentoResponse{}, Page: f.Page, Limit: f.Limit}, nil
		}
		f.Fretista = sess.Fretista
	}
	docs, total, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	data := make([]dto.DocumentoResponse, len(docs))
	for i := range docs {
		data[i] = *documentoToResponse(&docs[i])
	}
	return &dto.DocumentoListResponse{
		Data:       data,
		Total:      total,
		Page:       f.Page,
		Limit:      f.Limit,
		TotalPages: int(math.Ceil(float64(total) / float64(max(f.Limit, 1)))),
	}, nil
}

func (s *documentoService) ObterPorID(ctx context.Context, id uuid.UUID) (*dto.DocumentoResponse, error) {
	doc, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	return documentoToResponse(doc), nil
}

func (s *documentoService) Reprocessar(ctx context.Context, id uuid.UUID) (*dto.DocumentoResponse, error) {
	doc, err := s.buscar(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.Estado != model.DocumentoRejeitado && doc.Estado != model.DocumentoErro {
		return nil, ErrReprocessamento
	}
	doc.Estado = model.DocumentoProcessando
	doc.Tentativas = 0
	doc.UltimoErro = nil
	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, err
	}
	// the nota belongs to whoever uploaded the scan, not to whoever retries it
	if err := s.fila.EnqueueOCR(ctx, doc.ID, doc.Fretista); err != nil {
		return nil, err
	}
	return documentoToResponse(doc), nil
}

// buscar loads a document, hiding other carriers' uploads from carrier sessions.
func (s *documentoService) buscar(ctx context.Context, id uuid.UUID) (*model.Documento, error) {
	doc, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentoNaoEncontrado
	}
	if err != nil {
		return nil, err
	}
	if sess, ok := sessao.FromContext(ctx); ok && sess.Role == acesso.RoleCarrier && doc.Fretista != sess.Fretista {
		return nil, ErrDocumentoNaoEncontrado
	}
	return doc, nil
}

func documentoToResponse(d *model.Documento) *dto.DocumentoResponse {
	r := &dto.DocumentoResponse{
		ID:          d.ID.String(),
		NomeArquivo: d.NomeArquivo,
		ContentType: d.ContentType,
		Tamanho:     d.Tamanho,
		Estado:      d.Estado,
		Tentativas:  d.Tentativas,
		UltimoErro:  d.UltimoErro,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.NotaID != nil {
		n := d.NotaID.String()
		r.NotaID = &n
	}
	return r
}
