package service

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// PreviewLimiter acota cuantas previews puede pedir un cliente por ventana.
type PreviewLimiter interface {
	Allow(key string) bool
}

const redisPreviewAllowScript = `
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("EXPIRE", KEYS[1], ARGV[1])
end
return current
`

type redisPreviewLimiter struct {
	client redisEvaler
	window time.Duration
	max    int
	prefix string
}

type redisEvaler interface {
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

// NewRedisPreviewLimiter devuelve nil sin cliente; el handler trata nil como "sin limite".
func NewRedisPreviewLimiter(client *redis.Client, window time.Duration, max int) PreviewLimiter {
	if client == nil {
		return nil
	}
	return newRedisPreviewLimiter(client, window, max)
}

func newRedisPreviewLimiter(client redisEvaler, window time.Duration, max int) *redisPreviewLimiter {
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &redisPreviewLimiter{
		client: client,
		window: window,
		max:    max,
		prefix: "personaForge:preview:rl:",
	}
}

// Allow falla abierto si Redis no responde.
func (l *redisPreviewLimiter) Allow(key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	key = strings.TrimSpace(key)
	if key == "" {
		key = "anonymous"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	seconds := int(l.window.Seconds())
	if seconds <= 0 {
		seconds = 60
	}
	count, err := l.client.Eval(ctx, redisPreviewAllowScript, []string{l.prefix + key}, seconds).Int()
	if err != nil {
		return true
	}
	return count <= l.max
}
