package worker

// digest_cron.go
// Once a day, after DigestHora in the configured zone, emails the PDF of
// pending invoices overdue beyond tolerance to the configured recipients.

import (
	"context"
	"fmt"
	"time"

	"checknf/internal/canhoto"
	"checknf/internal/dto"
	"checknf/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const digestTickInterval = time.Minute

// FontePendencias lists the invoices that go into the digest.
type FontePendencias interface {
	Atrasadas(ctx context.Context) ([]dto.NotaResponse, error)
}

// Enviador sends an email with attachments.
type Enviador interface {
	EnviarComAnexo(to []string, subject, body string, anexos ...infra.Anexo) error
}

type DigestConfig struct {
	Fonte         FontePendencias
	Mailer        Enviador
	Destinatarios []string
	Hora          int
	Loc           *time.Location
	// RDB, when set, holds a per-day lock so only one replica sends.
	RDB *redis.Client
}

type Digest struct {
	cfg    DigestConfig
	ultimo string
}

func NewDigest(cfg DigestConfig) *Digest {
	if cfg.Loc == nil {
		cfg.Loc = time.UTC
	}
	return &Digest{cfg: cfg}
}

// StartDigestCron checks once a minute whether today's digest is due.
func StartDigestCron(ctx context.Context, d *Digest) {
	if len(d.cfg.Destinatarios) == 0 {
		log.Info().Msg("digest_cron: no recipients configured, disabled")
		return
	}
	go func() {
		ticker := time.NewTicker(digestTickInterval)
		defer ticker.Stop()

		log.Info().Int("hora", d.cfg.Hora).Msg("digest_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("digest_cron: shutting down")
				return
			case now := <-ticker.C:
				if _, err := d.Executar(ctx, now); err != nil {
					log.Error().Err(err).Msg("digest_cron: failed to send digest")
				}
			}
		}
	}()
}

// Executar sends the digest if it is due at now. It reports whether an
// email went out.
func (d *Digest) Executar(ctx context.Context, now time.Time) (bool, error) {
	if len(d.cfg.Destinatarios) == 0 {
		return false, nil
	}
	local := now.In(d.cfg.Loc)
	if local.Hour() < d.cfg.Hora {
		return false, nil
	}
	dia := local.Format("2006-01-02")
	if d.ultimo == dia {
		return false, nil
	}

	lockKey := "digest:" + dia
	if d.cfg.RDB != nil {
		ok, err := d.cfg.RDB.SetNX(ctx, lockKey, "1", 26*time.Hour).Result()
		if err != nil {
			return false, fmt.Errorf("digest lock: %w", err)
		}
		if !ok {
			d.ultimo = dia
			return false, nil
		}
	}
	liberar := func() {
		if d.cfg.RDB != nil {
			_ = d.cfg.RDB.Del(ctx, lockKey).Err()
		}
	}

	notas, err := d.cfg.Fonte.Atrasadas(ctx)
	if err != nil {
		liberar()
		return false, fmt.Errorf("digest pendencias: %w", err)
	}
	if len(notas) == 0 {
		d.ultimo = dia
		log.Info().Str("dia", dia).Msg("digest_cron: nothing overdue, skipped")
		return false, nil
	}

	pdf, err := infra.GerarRelatorioPendencias(notas, local)
	if err != nil {
		liberar()
		return false, err
	}
	assunto := fmt.Sprintf("CHECKNF: %d canhoto(s) em atraso em %s", len(notas), local.Format("02/01/2006"))
	corpo := fmt.Sprintf("Segue em anexo a relação de %d nota(s) com canhoto pendente há mais de %d dias do vencimento.\n",
		len(notas), canhoto.LimiteAtraso)
	anexo := infra.Anexo{
		Nome:        "pendencias-" + dia + ".pdf",
		ContentType: "application/pdf",
		Conteudo:    pdf,
	}
	if err := d.cfg.Mailer.EnviarComAnexo(d.cfg.Destinatarios, assunto, corpo, anexo); err != nil {
		liberar()
		return false, err
	}

	d.ultimo = dia
	log.Info().Str("dia", dia).Int("notas", len(notas)).Strs("para", d.cfg.Destinatarios).Msg("digest_cron: digest sent")
	return true, nil
}
