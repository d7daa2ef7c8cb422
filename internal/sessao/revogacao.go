package sessao

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	prefixoRevogado = "sessao:revogada:"
	prefixoUsuario  = "sessao:usuario:"
)

// Revogacao is the token denylist consulted on every authenticated request.
type Revogacao interface {
	Revogar(ctx context.Context, jti string, ate time.Time) error
	// RevogarUsuario revokes every token of the user issued so far. The mark
	// is kept until ate, which should outlive the longest token.
	RevogarUsuario(ctx context.Context, usuario string, ate time.Time) error
	Revogado(ctx context.Context, c *Claims) (bool, error)
}

// RedisRevogacao keeps one key per revoked jti and one cutoff per user, both
// expiring with the tokens they cover.
type RedisRevogacao struct {
	rdb   *redis.Client
	agora func() time.Time
}

func NewRedisRevogacao(rdb *redis.Client) *RedisRevogacao {
	return &RedisRevogacao{rdb: rdb, agora: time.Now}
}

func (r *RedisRevogacao) Revogar(ctx context.Context, jti string, ate time.Time) error {
	ttl := ate.Sub(r.agora())
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, prefixoRevogado+jti, 1, ttl).Err()
}

func (r *RedisRevogacao) RevogarUsuario(ctx context.Context, usuario string, ate time.Time) error {
	now := r.agora()
	ttl := ate.Sub(now)
	if ttl <= 0 {
		return nil
	}
	return r.rdb.Set(ctx, prefixoUsuario+usuario, now.Unix(), ttl).Err()
}

func (r *RedisRevogacao) Revogado(ctx context.Context, c *Claims) (bool, error) {
	vals, err := r.rdb.MGet(ctx, prefixoRevogado+c.ID, prefixoUsuario+c.UserID).Result()
	if err != nil {
		return false, err
	}
	if vals[0] != nil {
		return true, nil
	}
	s, ok := vals[1].(string)
	if !ok {
		return false, nil
	}
	corte, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return false, err
	}
	return EmitidoAte(c, time.Unix(corte, 0)), nil
}

// EmitidoAte reports whether c was issued no later than corte. iat has
// second precision, so a token from the cutoff's own second counts as older.
func EmitidoAte(c *Claims, corte time.Time) bool {
	if c.IssuedAt == nil {
		return true
	}
	return c.IssuedAt.Unix() <= corte.Unix()
}
