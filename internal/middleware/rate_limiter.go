package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"checknf/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// janela counts requests of one IP within a fixed window.
type janela struct {
	count int
	fim   time.Time
}

// Limitador is a per-IP fixed-window counter.
type Limitador struct {
	limite int
	janela time.Duration
	msg    string
	agora  func() time.Time

	mu    sync.Mutex
	porIP map[string]*janela
}

func NewLimitador(limite int, duracao time.Duration, msg string) *Limitador {
	return &Limitador{limite: limite, janela: duracao, msg: msg, agora: time.Now, porIP: make(map[string]*janela)}
}

// LoginLimitador allows 20 login attempts per minute per IP.
func LoginLimitador() *Limitador {
	return NewLimitador(20, time.Minute, "Muitas tentativas de login. Tente novamente em 1 minuto.")
}

// permitir registers one hit and reports whether it is within the limit,
// plus when the window resets.
func (l *Limitador) permitir(ip string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.agora()
	j, ok := l.porIP[ip]
	if !ok || now.After(j.fim) {
		j = &janela{fim: now.Add(l.janela)}
		l.porIP[ip] = j
	}
	j.count++
	return j.count <= l.limite, j.fim
}

func (l *Limitador) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ok, fim := l.permitir(c.ClientIP())
		if !ok {
			segundos := int(time.Until(fim).Seconds()) + 1
			c.Header("Retry-After", strconv.Itoa(max(segundos, 1)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(l.msg))
			return
		}
		c.Next()
	}
}

// purgar drops expired windows and returns how many were removed.
func (l *Limitador) purgar() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.agora()
	n := 0
	for ip, j := range l.porIP {
		if now.After(j.fim) {
			delete(l.porIP, ip)
			n++
		}
	}
	return n
}

const purgeInterval = 5 * time.Minute

// StartPurga removes expired entries from the limiters until ctx ends, so
// IPs that never come back do not accumulate.
func StartPurga(ctx context.Context, limitadores ...*Limitador) {
	go func() {
		ticker := time.NewTicker(purgeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				total := 0
				for _, l := range limitadores {
					total += l.purgar()
				}
				if total > 0 {
					log.Debug().Int("entries_purged", total).Msg("rate limiter maps purged")
				}
			}
		}
	}()
}
