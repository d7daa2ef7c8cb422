package service

import (
	"context"
	"strings"
	"testing"

	"checknf/internal/canhoto"
	"checknf/internal/dto"
	"checknf/internal/eventos"
	"checknf/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	pngMinimo = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	pdfMinimo = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")
)

func novaNotaService(notas ...*model.NotaFiscal) (*notaService, *stubNotaRepo, *storageFake, *hubFake) {
	repo := &stubNotaRepo{notas: notas}
	st, hub := newStorageFake(), &hubFake{}
	svc := NewNotaService(repo, st, hub, relogioFixo()).(*notaService)
	return svc, repo, st, hub
}

func notaRequest(numero string) dto.NotaRequest {
	return dto.NotaRequest{
		Numero:      numero,
		DataEmissao: "2026-10-14",
		Cliente:     "Mercado Sol",
		Fretista:    "João",
		ValorNota:   decimal.RequireFromString("1234.567"),
	}
}

func TestNotaService_CriarDefaultsStatusAndRoundsValue(t *testing.T) {
	svc, repo, _, hub := novaNotaService()

	resp, err := svc.Criar(context.Background(), notaRequest("12345"))
	require.NoError(t, err)

	assert.Equal(t, canhoto.StatusPendente, resp.Status)
	assert.Equal(t, "1234.57", resp.ValorNota.StringFixed(2))
	assert.Nil(t, resp.DataVencimento)
	assert.Equal(t, canhoto.SituacaoNoPrazo, resp.Situacao)
	require.Len(t, repo.notas, 1)
	require.Len(t, hub.eventos, 1)
	assert.Equal(t, eventos.NotaCriada, hub.eventos[0].Tipo)
	assert.Equal(t, "João", hub.eventos[0].Fretista)
}

func TestNotaService_CriarRejectsDuplicateAndBadInput(t *testing.T) {
	svc, _, _, _ := novaNotaService(notaFixture("12345", "João", canhoto.StatusPendente, nil))

	_, err := svc.Criar(context.Background(), notaRequest("12345"))
	assert.ErrorIs(t, err, ErrNotaDuplicada)

	req := notaRequest("999")
	req.DataEmissao = "14/10/2026"
	_, err = svc.Criar(context.Background(), req)
	assert.ErrorIs(t, err, ErrDataInvalida)

	req = notaRequest("999")
	req.Status = "Extraviada"
	_, err = svc.Criar(context.Background(), req)
	assert.ErrorIs(t, err, canhoto.ErrStatusInvalido)
}

func TestNotaService_ObterPorIDDerivesAging(t *testing.T) {
	n := notaFixture("1", "João", canhoto.StatusPendente, diaPtr("2026-10-22"))
	svc, _, _, _ := novaNotaService(n)

	resp, err := svc.ObterPorID(context.Background(), n.ID)
	require.NoError(t, err)

	require.NotNil(t, resp.DiasVencer)
	assert.Equal(t, 3, *resp.DiasVencer)
	assert.Equal(t, canhoto.SeveridadeCritica, resp.Severidade)
	assert.Equal(t, canhoto.SituacaoProximoVencimento, resp.Situacao)
	assert.Equal(t, "2026-10-22", *resp.DataVencimento)
}

func TestNotaService_CarrierCannotSeeOtherCarriersInvoice(t *testing.T) {
	n := notaFixture("1", "Maria", canhoto.StatusPendente, nil)
	svc, _, _, _ := novaNotaService(n)

	_, err := svc.ObterPorID(ctxCom("carrier", "João"), n.ID)
	assert.ErrorIs(t, err, ErrNotaNaoEncontrada)

	_, err = svc.ObterPorID(ctxCom("carrier", "Maria"), n.ID)
	assert.NoError(t, err)

	_, err = svc.ObterPorID(ctxCom("staff", ""), n.ID)
	assert.NoError(t, err)
}

func TestNotaService_AlterarStatus(t *testing.T) {
	n := notaFixture("1", "João", canhoto.StatusPendente, diaPtr("2026-10-01"))
	svc, _, _, hub := novaNotaService(n)

	resp, err := svc.AlterarStatus(context.Background(), n.ID, canhoto.StatusEntregue)
	require.NoError(t, err)
	assert.Equal(t, canhoto.StatusEntregue, resp.Status)
	assert.Equal(t, 0, resp.DiasAtraso)
	assert.Equal(t, eventos.NotaStatusAlterado, hub.eventos[0].Tipo)

	_, err = svc.AlterarStatus(context.Background(), n.ID, "Perdida")
	assert.ErrorIs(t, err, canhoto.ErrStatusInvalido)

	_, err = svc.AlterarStatus(context.Background(), uuid.New(), canhoto.StatusPaga)
	assert.ErrorIs(t, err, ErrNotaNaoEncontrada)
}

func TestNotaService_ExcluirDeduplicatesIDs(t *testing.T) {
	a := notaFixture("1", "João", canhoto.StatusPendente, nil)
	b := notaFixture("2", "João", canhoto.StatusPendente, nil)
	c := notaFixture("3", "João", canhoto.StatusPendente, nil)
	svc, repo, _, hub := novaNotaService(a, b, c)

	resp, err := svc.Excluir(context.Background(), []string{a.ID.String(), b.ID.String(), a.ID.String(), uuid.NewString()})
	require.NoError(t, err)

	assert.Equal(t, int64(2), resp.Removidas)
	require.Len(t, repo.notas, 1)
	assert.Equal(t, c.ID, repo.notas[0].ID)
	assert.Equal(t, eventos.NotasExcluidas, hub.eventos[0].Tipo)
}

func TestNotaService_ExcluirRejectsMalformedID(t *testing.T) {
	svc, _, _, hub := novaNotaService()

	_, err := svc.Excluir(context.Background(), []string{"nao-e-uuid"})
	assert.ErrorIs(t, err, ErrNotaNaoEncontrada)
	assert.Empty(t, hub.eventos)
}

func TestNotaService_ListarPaginates(t *testing.T) {
	var notas []*model.NotaFiscal
	for _, num := range []string{"1", "2", "3", "4", "5"} {
		notas = append(notas, notaFixture(num, "João", canhoto.StatusPendente, nil))
	}
	svc, _, _, _ := novaNotaService(notas...)

	resp, err := svc.Listar(context.Background(), dto.NotaFilter{Page: 2, Limit: 2})
	require.NoError(t, err)

	assert.Equal(t, int64(5), resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "3", resp.Data[0].Numero)
}

func TestNotaService_ListarCanhotosScopesCarrier(t *testing.T) {
	svc, _, _, _ := novaNotaService(
		notaFixture("1", "João", canhoto.StatusPendente, nil),
		notaFixture("2", "Maria", canhoto.StatusPendente, nil),
		notaFixture("3", "João", canhoto.StatusEntregue, nil),
	)
	f := dto.NotaFilter{Page: 1, Limit: 50}
	f.Fretista = "Maria"

	resp, err := svc.ListarCanhotos(ctxCom("carrier", "João"), f)
	require.NoError(t, err)
	assert.Equal(t, int64(2), resp.Total)
	for _, n := range resp.Data {
		assert.Equal(t, "João", n.Fretista)
	}

	resp, err = svc.ListarCanhotos(ctxCom("carrier", ""), f)
	require.NoError(t, err)
	assert.Empty(t, resp.Data)
	assert.Equal(t, int64(0), resp.Total)

	resp, err = svc.ListarCanhotos(ctxCom("admin", ""), f)
	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)
}

func TestNotaService_CanhotoURL(t *testing.T) {
	sem := notaFixture("1", "João", canhoto.StatusPendente, nil)
	com := notaFixture("2", "João", canhoto.StatusEntregue, nil)
	key := "canhotos/2026/10/x.png"
	com.CanhotoKey = &key
	svc, _, _, _ := novaNotaService(sem, com)

	_, err := svc.CanhotoURL(context.Background(), sem.ID)
	assert.ErrorIs(t, err, ErrSemCanhoto)

	resp, err := svc.CanhotoURL(context.Background(), com.ID)
	require.NoError(t, err)
	assert.Contains(t, resp.URL, key)
	assert.True(t, resp.ExpiraEm.After(agora))
}

func TestNotaService_AnexarCanhotoMarksDelivered(t *testing.T) {
	n := notaFixture("1", "João", canhoto.StatusPendente, diaPtr("2026-10-01"))
	svc, repo, st, hub := novaNotaService(n)

	resp, err := svc.AnexarCanhoto(ctxCom("carrier", "João"), n.ID, Upload{Nome: "c.png", Conteudo: pngMinimo})
	require.NoError(t, err)

	assert.Equal(t, canhoto.StatusEntregue, resp.Status)
	assert.True(t, resp.TemCanhoto)
	require.NotNil(t, repo.notas[0].CanhotoKey)
	key := *repo.notas[0].CanhotoKey
	assert.True(t, strings.HasPrefix(key, "canhotos/2026/10/"), key)
	assert.True(t, strings.HasSuffix(key, ".png"), key)
	assert.Equal(t, "image/png", st.tipos[key])
	assert.Equal(t, eventos.CanhotoAnexado, hub.eventos[0].Tipo)
	assert.Equal(t, "João", hub.eventos[0].Fretista)
	assert.NotEmpty(t, hub.eventos[0].UsuarioID)
}

func TestNotaService_AnexarCanhotoReplacesPreviousScan(t *testing.T) {
	n := notaFixture("1", "João", canhoto.StatusEntregue, nil)
	antiga := "canhotos/2026/09/antigo.png"
	n.CanhotoKey = &antiga
	svc, repo, st, _ := novaNotaService(n)
	st.objetos[antiga] = pngMinimo

	_, err := svc.AnexarCanhoto(context.Background(), n.ID, Upload{Conteudo: pdfMinimo})
	require.NoError(t, err)

	assert.NotContains(t, st.objetos, antiga)
	require.Len(t, st.objetos, 1)
	assert.True(t, strings.HasSuffix(*repo.notas[0].CanhotoKey, ".pdf"))
}

func TestNotaService_AnexarCanhotoRejectsBeforeStoring(t *testing.T) {
	n := notaFixture("1", "Maria", canhoto.StatusPendente, nil)
	svc, _, st, _ := novaNotaService(n)

	_, err := svc.AnexarCanhoto(context.Background(), n.ID, Upload{Conteudo: []byte("texto simples")})
	assert.ErrorIs(t, err, ErrArquivoInvalido)

	_, err = svc.AnexarCanhoto(ctxCom("carrier", "João"), n.ID, Upload{Conteudo: pngMinimo})
	assert.ErrorIs(t, err, ErrNotaNaoEncontrada)

	assert.Empty(t, st.objetos)
}
