package canhoto

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrLeituraIncompleta means the recognized text has no invoice number.
var ErrLeituraIncompleta = errors.New("numero da nota nao encontrado no documento")

// Campos are the invoice fields recovered from a scanned DANFE/canhoto.
type Campos struct {
	Numero      string
	Serie       string
	Emissao     *time.Time
	Valor       decimal.Decimal
	CFOP        string
	CNPJCliente string
}

var (
	reNumero  = regexp.MustCompile(`(?i)N[º°o]\.?\s*:?\s*(\d{1,3}(?:\.\d{3})+|\d+)`)
	reSerie   = regexp.MustCompile(`(?i)S[ÉE]RIE\s*:?\s*(\d{1,3})`)
	reEmissao = regexp.MustCompile(`(?is)DATA\s+DA?\s+EMISS[ÃA]O\s*:?\s*(\d{2}/\d{2}/\d{4})`)
	reValor   = regexp.MustCompile(`(?is)VALOR\s+TOTAL\s+DA\s+NOTA\s*:?\s*(?:R\$\s*)?(\d{1,3}(?:\.\d{3})*,\d{2})`)
	reCFOP    = regexp.MustCompile(`(?i)CFOP\s*:?\s*([1-7]\d{3})\b`)
	reCNPJ    = regexp.MustCompile(`\d{2}\.\d{3}\.\d{3}/\d{4}-\d{2}`)
)

// Extrair parses OCR text. The emitter's CNPJ comes first on a DANFE, so
// the second one found is taken as the client's.
func Extrair(texto string) (Campos, error) {
	var c Campos
	m := reNumero.FindStringSubmatch(texto)
	if m == nil {
		return c, ErrLeituraIncompleta
	}
	c.Numero = strings.TrimLeft(strings.ReplaceAll(m[1], ".", ""), "0")
	if c.Numero == "" {
		return c, ErrLeituraIncompleta
	}

	if m := reSerie.FindStringSubmatch(texto); m != nil {
		c.Serie = strings.TrimLeft(m[1], "0")
	}
	if m := reEmissao.FindStringSubmatch(texto); m != nil {
		if t, err := time.Parse("02/01/2006", m[1]); err == nil {
			c.Emissao = &t
		}
	}
	if m := reValor.FindStringSubmatch(texto); m != nil {
		raw := strings.ReplaceAll(strings.ReplaceAll(m[1], ".", ""), ",", ".")
		if v, err := decimal.NewFromString(raw); err == nil {
			c.Valor = v
		}
	}
	if m := reCFOP.FindStringSubmatch(texto); m != nil {
		c.CFOP = m[1]
	}
	if cnpjs := reCNPJ.FindAllString(texto, 2); len(cnpjs) == 2 {
		c.CNPJCliente = SomenteDigitos(cnpjs[1])
	}
	return c, nil
}

// SomenteDigitos strips CNPJ/plate punctuation.
func SomenteDigitos(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
