package infra

// pdf.go: pending-invoice report using go-pdf/fpdf.
// A4 landscape, one section per carrier with its invoices and subtotal,
// followed by the grand total. Used by the reports endpoint and attached to
// the daily overdue digest.

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"checknf/internal/dto"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const semFretista = "(sem fretista)"

// GrupoFretista is one carrier section of the report.
type GrupoFretista struct {
	Fretista string
	Notas    []dto.NotaResponse
	Total    decimal.Decimal
}

// AgruparPorFretista groups invoices by carrier, carriers in alphabetical
// order and the unassigned bucket last. Invoice order inside a group is kept.
func AgruparPorFretista(notas []dto.NotaResponse) []GrupoFretista {
	idx := map[string]int{}
	var grupos []GrupoFretista
	for _, n := range notas {
		nome := n.Fretista
		if nome == "" {
			nome = semFretista
		}
		i, ok := idx[nome]
		if !ok {
			i = len(grupos)
			idx[nome] = i
			grupos = append(grupos, GrupoFretista{Fretista: nome, Total: decimal.Zero})
		}
		grupos[i].Notas = append(grupos[i].Notas, n)
		grupos[i].Total = grupos[i].Total.Add(n.ValorNota)
	}
	sort.SliceStable(grupos, func(a, b int) bool {
		if (grupos[a].Fretista == semFretista) != (grupos[b].Fretista == semFretista) {
			return grupos[b].Fretista == semFretista
		}
		return grupos[a].Fretista < grupos[b].Fretista
	})
	return grupos
}

// GerarRelatorioPendencias renders the report and returns the PDF bytes.
func GerarRelatorioPendencias(notas []dto.NotaResponse, gerado time.Time) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		pdf.SetFont("Helvetica", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Página %d", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr("CHECKNF - Canhotos pendentes"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(0, 5, tr("Gerado em "+gerado.Format("02/01/2006 15:04")), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	cols := []struct {
		titulo  string
		largura float64
		alinha  string
	}{
		{"Número", 28, "L"},
		{"Emissão", 24, "C"},
		{"Vencimento", 24, "C"},
		{"Cliente", 95, "L"},
		{"UF", 12, "C"},
		{"Vendedor", 40, "L"},
		{"Valor (R$)", 30, "R"},
		{"Atraso", 24, "R"},
	}

	grupos := AgruparPorFretista(notas)
	if len(grupos) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.CellFormat(0, 6, tr("Nenhuma nota pendente."), "", 1, "L", false, 0, "")
	}

	total := decimal.Zero
	for _, g := range grupos {
		// ── Carrier section ──────────────────────────────────────────────────
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(0, 7, tr(fmt.Sprintf("%s - %d nota(s)", g.Fretista, len(g.Notas))), "", 1, "L", true, 0, "")

		pdf.SetFont("Helvetica", "B", 8)
		for _, c := range cols {
			pdf.CellFormat(c.largura, 5, tr(c.titulo), "B", 0, c.alinha, false, 0, "")
		}
		pdf.Ln(-1)

		pdf.SetFont("Helvetica", "", 8)
		for _, n := range g.Notas {
			venc := "-"
			if n.DataVencimento != nil {
				venc = formatarData(*n.DataVencimento)
			}
			atraso := ""
			if n.DiasAtraso > 0 {
				atraso = fmt.Sprintf("%d dia(s)", n.DiasAtraso)
			}
			cliente := n.Cliente
			if len([]rune(cliente)) > 55 {
				cliente = string([]rune(cliente)[:54]) + "…"
			}
			valores := []string{
				n.Numero, formatarData(n.DataEmissao), venc, cliente, n.UF, n.Vendedor,
				n.ValorNota.StringFixed(2), atraso,
			}
			for i, c := range cols {
				pdf.CellFormat(c.largura, 5, tr(valores[i]), "", 0, c.alinha, false, 0, "")
			}
			pdf.Ln(-1)
		}

		pdf.SetFont("Helvetica", "B", 8)
		pdf.CellFormat(0, 6, "Subtotal: R$ "+g.Total.StringFixed(2), "T", 1, "R", false, 0, "")
		pdf.Ln(2)
		total = total.Add(g.Total)
	}

	// ── Totals ────────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 7, tr(fmt.Sprintf("Total pendente: R$ %s em %d nota(s)", total.StringFixed(2), len(notas))), "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}

// formatarData turns YYYY-MM-DD into DD/MM/YYYY, passing anything else through.
func formatarData(s string) string {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return t.Format("02/01/2006")
}
