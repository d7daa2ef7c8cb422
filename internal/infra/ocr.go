package infra

import (
	"context"
	"errors"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
)

// MaxOCRBytes is the largest file the synchronous Vision endpoints accept.
const MaxOCRBytes = 20 * 1024 * 1024

var (
	ErrOCRVazio        = errors.New("ocr: no text found in document")
	ErrOCRTipoInvalido = errors.New("ocr: unsupported content type")
	ErrOCRMuitoGrande  = errors.New("ocr: file too large")
)

// OCRConfig selects Vision credentials. With both empty the client falls
// back to application default credentials.
type OCRConfig struct {
	CredentialsJSON string
	CredentialsFile string
}

// VisionOCR reads the printed text of a scanned DANFE through Google Cloud
// Vision, guarded by a circuit breaker.
type VisionOCR struct {
	client  *vision.ImageAnnotatorClient
	breaker *Breaker
}

func NewVisionOCR(ctx context.Context, cfg OCRConfig, breaker *Breaker) (*VisionOCR, error) {
	var opts []option.ClientOption
	switch {
	case cfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ocr: vision client: %w", err)
	}
	if breaker == nil {
		breaker = NewBreaker("vision", BreakerConfig{})
	}
	return &VisionOCR{client: client, breaker: breaker}, nil
}

func (v *VisionOCR) Close() error { return v.client.Close() }

// ExtrairTexto returns the full text of a PDF or image.
func (v *VisionOCR) ExtrairTexto(ctx context.Context, conteudo []byte, contentType string) (string, error) {
	if len(conteudo) > MaxOCRBytes {
		return "", ErrOCRMuitoGrande
	}
	ler := v.lerImagem
	switch {
	case contentType == "application/pdf":
		ler = v.lerPDF
	case !strings.HasPrefix(contentType, "image/"):
		return "", ErrOCRTipoInvalido
	}
	var texto string
	err := v.breaker.Do(ctx, func(ctx context.Context) error {
		var err error
		texto, err = ler(ctx, conteudo)
		return err
	})
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(texto) == "" {
		return "", ErrOCRVazio
	}
	return texto, nil
}

func (v *VisionOCR) lerPDF(ctx context.Context, conteudo []byte) (string, error) {
	resp, err := v.client.BatchAnnotateFiles(ctx, &visionpb.BatchAnnotateFilesRequest{
		Requests: []*visionpb.AnnotateFileRequest{{
			InputConfig: &visionpb.InputConfig{Content: conteudo, MimeType: "application/pdf"},
			Features:    []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("ocr: vision files: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", ErrOCRVazio
	}
	arquivo := resp.Responses[0]
	if arquivo.Error != nil {
		return "", fmt.Errorf("ocr: vision: %s", arquivo.Error.Message)
	}
	var sb strings.Builder
	for _, pagina := range arquivo.Responses {
		if pagina.FullTextAnnotation == nil {
			continue
		}
		sb.WriteString(pagina.FullTextAnnotation.Text)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func (v *VisionOCR) lerImagem(ctx context.Context, conteudo []byte) (string, error) {
	resp, err := v.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image:    &visionpb.Image{Content: conteudo},
			Features: []*visionpb.Feature{{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION}},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("ocr: vision images: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", ErrOCRVazio
	}
	r := resp.Responses[0]
	if r.Error != nil {
		return "", fmt.Errorf("ocr: vision: %s", r.Error.Message)
	}
	if r.FullTextAnnotation == nil {
		return "", nil
	}
	return r.FullTextAnnotation.Text, nil
}
