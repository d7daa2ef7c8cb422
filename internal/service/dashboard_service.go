package service

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"checknf/internal/canhoto"
	"checknf/internal/eventos"
	"checknf/internal/repository"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	dashboardVersaoKey = "dashboard:versao"
	dashboardPrefixo   = "dashboard:painel:"
)

type DashboardService interface {
	Painel(ctx context.Context, f canhoto.Filtro) (*canhoto.Painel, error)
	// Invalidar drops every cached panel.
	Invalidar(ctx context.Context)
	// Observar invalidates the cache whenever an invoice changes, until ctx ends.
	Observar(ctx context.Context, hub *eventos.Hub)
}

type dashboardService struct {
	repo    repository.NotaFiscalRepository
	rdb     *redis.Client
	ttl     time.Duration
	relogio Relogio
}

// NewDashboardService caches panels in Redis for ttl; a nil rdb disables caching.
func NewDashboardService(repo repository.NotaFiscalRepository, rdb *redis.Client, ttl time.Duration, relogio Relogio) DashboardService {
	return &dashboardService{repo: repo, rdb: rdb, ttl: ttl, relogio: relogio}
}

func (s *dashboardService) Painel(ctx context.Context, f canhoto.Filtro) (*canhoto.Painel, error) {
	now, loc := s.relogio.agora(), s.relogio.loc()

	key := ""
	if s.rdb != nil && s.ttl > 0 {
		key = s.chave(ctx, f, now, loc)
		if cached, err := s.rdb.Get(ctx, key).Bytes(); err == nil {
			var p canhoto.Painel
			if jsonErr := json.Unmarshal(cached, &p); jsonErr == nil {
				return &p, nil
			}
		}
	}

	notas, err := s.repo.ListAll(ctx, f, now, loc)
	if err != nil {
		return nil, err
	}
	vistas := make([]canhoto.Nota, len(notas))
	for i := range notas {
		vistas[i] = notas[i].Canhoto()
	}
	// re-checks the SQL constraints in Go; both sides lowercase the same way
	vistas = f.Aplicar(vistas, now, loc)
	p := canhoto.Agregar(vistas, now, loc)

	if key != "" {
		if b, jsonErr := json.Marshal(p); jsonErr == nil {
			_ = s.rdb.Set(context.Background(), key, b, s.ttl).Err()
		}
	}
	return &p, nil
}

// chave changes with the filter, the civil date and the cache version.
func (s *dashboardService) chave(ctx context.Context, f canhoto.Filtro, now time.Time, loc *time.Location) string {
	versao, err := s.rdb.Get(ctx, dashboardVersaoKey).Int64()
	if err != nil && err != redis.Nil {
		log.Warn().Err(err).Msg("dashboard: cache version unavailable")
	}
	raw, _ := json.Marshal(f)
	sum := sha1.Sum(raw)
	return dashboardPrefixo + strings.Join([]string{
		strconv.FormatInt(versao, 10),
		canhoto.Hoje(now, loc).Format(canhoto.FormatoData),
		hex.EncodeToString(sum[:]),
	}, ":")
}

func (s *dashboardService) Invalidar(ctx context.Context) {
	if s.rdb == nil {
		return
	}
	if err := s.rdb.Incr(ctx, dashboardVersaoKey).Err(); err != nil {
		log.Warn().Err(err).Msg("dashboard: failed to bump cache version")
	}
}

func (s *dashboardService) Observar(ctx context.Context, hub *eventos.Hub) {
	if hub == nil || s.rdb == nil {
		return
	}
	ch, cancel := hub.Assinar(64)
	go func() {
		defer cancel()
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-ch:
				if !ok {
					return
				}
				if afetaPainel(e.Tipo) {
					s.Invalidar(ctx)
				}
			}
		}
	}()
}

func afetaPainel(t eventos.Tipo) bool {
	switch t {
	case eventos.NotaCriada, eventos.NotaAtualizada, eventos.NotaStatusAlterado,
		eventos.NotasExcluidas, eventos.CanhotoAnexado:
		return true
	}
	return false
}
