package worker

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"checknf/internal/canhoto"
	"checknf/internal/dto"
	"checknf/internal/infra"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fonteStub struct {
	notas []dto.NotaResponse
	err   error
}

func (f fonteStub) Atrasadas(context.Context) ([]dto.NotaResponse, error) { return f.notas, f.err }

type mailerStub struct {
	enviados int
	para     []string
	assunto  string
	anexos   []infra.Anexo
	err      error
}

func (m *mailerStub) EnviarComAnexo(to []string, subject, _ string, anexos ...infra.Anexo) error {
	if m.err != nil {
		return m.err
	}
	m.enviados++
	m.para = to
	m.assunto = subject
	m.anexos = anexos
	return nil
}

var brt = time.FixedZone("BRT", -3*3600)

func atrasada() dto.NotaResponse {
	return dto.NotaResponse{
		Numero: "1001", DataEmissao: "2026-09-01", Status: canhoto.StatusPendente,
		Cliente: "Mercado Sol", Fretista: "João", DiasAtraso: 12, ValorNota: decimal.NewFromInt(100),
	}
}

func TestDigest_SendsOncePerDayAfterHour(t *testing.T) {
	m := &mailerStub{}
	d := NewDigest(DigestConfig{
		Fonte:         fonteStub{notas: []dto.NotaResponse{atrasada()}},
		Mailer:        m,
		Destinatarios: []string{"gestao@example.com"},
		Hora:          7,
		Loc:           brt,
	})

	// 09:30 UTC is 06:30 in Brasilia
	enviado, err := d.Executar(context.Background(), time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, enviado)

	enviado, err = d.Executar(context.Background(), time.Date(2026, 10, 19, 10, 5, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, enviado)

	enviado, err = d.Executar(context.Background(), time.Date(2026, 10, 19, 20, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, enviado)

	assert.Equal(t, 1, m.enviados)
	assert.Equal(t, []string{"gestao@example.com"}, m.para)
	assert.Contains(t, m.assunto, "19/10/2026")
	require.Len(t, m.anexos, 1)
	assert.Equal(t, "pendencias-2026-10-19.pdf", m.anexos[0].Nome)
	assert.True(t, bytes.HasPrefix(m.anexos[0].Conteudo, []byte("%PDF")))

	enviado, err = d.Executar(context.Background(), time.Date(2026, 10, 20, 10, 5, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, enviado)
}

func TestDigest_NothingOverdueSkipsTheDay(t *testing.T) {
	m := &mailerStub{}
	d := NewDigest(DigestConfig{Fonte: fonteStub{}, Mailer: m, Destinatarios: []string{"a@example.com"}, Loc: brt})

	enviado, err := d.Executar(context.Background(), time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.False(t, enviado)
	assert.Zero(t, m.enviados)
}

func TestDigest_SendFailureRetriesLater(t *testing.T) {
	m := &mailerStub{err: errors.New("smtp down")}
	d := NewDigest(DigestConfig{
		Fonte:         fonteStub{notas: []dto.NotaResponse{atrasada()}},
		Mailer:        m,
		Destinatarios: []string{"a@example.com"},
		Loc:           brt,
	})
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

	_, err := d.Executar(context.Background(), now)
	require.Error(t, err)

	m.err = nil
	enviado, err := d.Executar(context.Background(), now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, enviado)
}

func TestDigest_DisabledWithoutRecipients(t *testing.T) {
	d := NewDigest(DigestConfig{Fonte: fonteStub{err: errors.New("unused")}})
	enviado, err := d.Executar(context.Background(), time.Now())
	require.NoError(t, err)
	assert.False(t, enviado)
}
