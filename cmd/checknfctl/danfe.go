package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"checknf/internal/canhoto"
	"checknf/internal/config"
	"checknf/internal/infra"

	"github.com/spf13/cobra"
)

var lerDanfeCmd = &cobra.Command{
	Use:   "ler-danfe [arquivo]",
	Short: "Run OCR on a scanned DANFE and print the fields the ingestion would extract",
	Long: `Reads a PDF or image through Google Cloud Vision and applies the same
extraction rules the OCR worker uses, without touching the database.

Credentials come from GOOGLE_APPLICATION_CREDENTIALS or VISION_CREDENTIALS_JSON.`,
	Example: `  checknfctl ler-danfe canhoto.pdf
  checknfctl ler-danfe foto.jpg --texto`,
	Args: cobra.ExactArgs(1),
	RunE: runLerDanfe,
}

type leituraDanfe struct {
	Arquivo     string  `json:"arquivo"`
	Numero      string  `json:"numero,omitempty"`
	Serie       string  `json:"serie,omitempty"`
	Emissao     string  `json:"emissao,omitempty"`
	Valor       string  `json:"valor,omitempty"`
	CFOP        string  `json:"cfop,omitempty"`
	Elegivel    bool    `json:"elegivel"`
	CNPJCliente string  `json:"cnpj_cliente,omitempty"`
	Erro        string  `json:"erro,omitempty"`
	Texto       *string `json:"texto,omitempty"`
}

func init() {
	rootCmd.AddCommand(lerDanfeCmd)
	lerDanfeCmd.Flags().Bool("texto", false, "include the raw recognized text")
	lerDanfeCmd.Flags().Int("timeout", 120, "OCR timeout in seconds")
}

func runLerDanfe(cmd *cobra.Command, args []string) error {
	incluirTexto, _ := cmd.Flags().GetBool("texto")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	conteudo, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ocr, err := infra.NewVisionOCR(ctx, infra.OCRConfig{
		CredentialsJSON: cfg.VisionCredentialsJSON,
		CredentialsFile: cfg.VisionCredentialsFile,
	}, nil)
	if err != nil {
		return err
	}
	defer ocr.Close()

	texto, err := ocr.ExtrairTexto(ctx, conteudo, http.DetectContentType(conteudo))
	if err != nil {
		return err
	}

	out := leituraDanfe{Arquivo: args[0]}
	if incluirTexto {
		out.Texto = &texto
	}
	campos, err := canhoto.Extrair(texto)
	if err != nil {
		out.Erro = err.Error()
	} else {
		out.Numero = campos.Numero
		out.Serie = campos.Serie
		if campos.Emissao != nil {
			out.Emissao = campos.Emissao.Format(canhoto.FormatoData)
		}
		if !campos.Valor.IsZero() {
			out.Valor = campos.Valor.StringFixed(2)
		}
		out.CFOP = campos.CFOP
		out.Elegivel = campos.CFOP == "" || canhoto.CFOPElegivel(campos.CFOP)
		out.CNPJCliente = campos.CNPJCliente
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}
