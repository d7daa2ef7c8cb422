package infra

import (
	"fmt"

	"checknf/internal/dto"

	"github.com/xuri/excelize/v2"
)

const planilhaNotas = "Notas"

var cabecalhoNotas = []string{
	"Número", "Série", "Emissão", "Vencimento", "Status", "Situação",
	"Dias atraso", "Dias a vencer", "Cliente", "Rede", "UF", "Vendedor",
	"Fretista", "Placa", "CFOP", "Valor (R$)",
}

// GerarPlanilhaNotas exports the filtered invoice list as an XLSX workbook.
func GerarPlanilhaNotas(notas []dto.NotaResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), planilhaNotas); err != nil {
		return nil, fmt.Errorf("xlsx: sheet: %w", err)
	}

	negrito, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"DDDDDD"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("xlsx: style: %w", err)
	}
	dinheiro, err := f.NewStyle(&excelize.Style{NumFmt: 4}) // #,##0.00
	if err != nil {
		return nil, fmt.Errorf("xlsx: style: %w", err)
	}

	header := make([]interface{}, len(cabecalhoNotas))
	for i, h := range cabecalhoNotas {
		header[i] = h
	}
	if err := f.SetSheetRow(planilhaNotas, "A1", &header); err != nil {
		return nil, fmt.Errorf("xlsx: header: %w", err)
	}
	ultimaColuna, _ := excelize.ColumnNumberToName(len(cabecalhoNotas))
	_ = f.SetCellStyle(planilhaNotas, "A1", ultimaColuna+"1", negrito)

	for i, n := range notas {
		linha := i + 2
		valor, _ := n.ValorNota.Float64()
		row := []interface{}{
			n.Numero, deref(n.Serie), n.DataEmissao, deref(n.DataVencimento),
			string(n.Status), string(n.Situacao), n.DiasAtraso, derefInt(n.DiasVencer),
			n.Cliente, n.Rede, n.UF, n.Vendedor, n.Fretista, n.Placa, deref(n.CFOP), valor,
		}
		cell, _ := excelize.CoordinatesToCellName(1, linha)
		if err := f.SetSheetRow(planilhaNotas, cell, &row); err != nil {
			return nil, fmt.Errorf("xlsx: row %d: %w", linha, err)
		}
		valorCell := fmt.Sprintf("%s%d", ultimaColuna, linha)
		_ = f.SetCellStyle(planilhaNotas, valorCell, valorCell, dinheiro)
	}

	_ = f.SetColWidth(planilhaNotas, "A", "H", 14)
	_ = f.SetColWidth(planilhaNotas, "I", "I", 40)
	_ = f.SetColWidth(planilhaNotas, "J", "P", 16)
	_ = f.SetPanes(planilhaNotas, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: write: %w", err)
	}
	return buf.Bytes(), nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt(p *int) interface{} {
	if p == nil {
		return ""
	}
	return *p
}
