package canhoto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("  entregue ")
	require.NoError(t, err)
	assert.Equal(t, StatusEntregue, st)

	_, err = ParseStatus("Extraviada")
	assert.ErrorIs(t, err, ErrStatusInvalido)

	_, err = ParseStatus("")
	assert.ErrorIs(t, err, ErrStatusInvalido)
}

func TestStatus_Valido(t *testing.T) {
	for _, st := range Statuses() {
		assert.True(t, st.Valido(), st)
	}
	assert.False(t, Status("pendente").Valido())
	assert.False(t, Status("").Valido())
}

func TestStatus_UnmarshalJSONRejectsUnknown(t *testing.T) {
	var body struct {
		Status Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"status":"PAGA"}`), &body))
	assert.Equal(t, StatusPaga, body.Status)

	err := json.Unmarshal([]byte(`{"status":"Perdida"}`), &body)
	assert.ErrorIs(t, err, ErrStatusInvalido)
}

func TestParseSituacao(t *testing.T) {
	s, ok := ParseSituacao("proximovencimento")
	assert.True(t, ok)
	assert.Equal(t, SituacaoProximoVencimento, s)

	s, ok = ParseSituacao("NoPrazo")
	assert.True(t, ok)
	assert.Equal(t, SituacaoNoPrazo, s)

	_, ok = ParseSituacao("Atrasada")
	assert.False(t, ok)
}
