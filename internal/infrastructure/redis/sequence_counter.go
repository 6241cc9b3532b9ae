package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventory-engine/internal/domain/repository"
)

var _ repository.SequenceCounter = (*SequenceCounter)(nil)

const (
	sequenceKeyPrefix = "seq:"
	sequenceTTL       = 72 * time.Hour
)

// INCR y, solo en el primer valor del día, EXPIRE; atómico en el servidor.
var incrementScript = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
	redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// SequenceCounter contador por (prefijo, día) en Redis; compartido entre instancias.
type SequenceCounter struct {
	client *redis.Client
}

// NewSequenceCounter construye el contador.
func NewSequenceCounter(client *redis.Client) *SequenceCounter {
	return &SequenceCounter{client: client}
}

// NewClient crea el cliente y verifica la conexión.
func NewClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Increment incrementa y devuelve seq:{prefix}:{day}.
func (c *SequenceCounter) Increment(ctx context.Context, prefix, day string) (int64, error) {
	key := sequenceKeyPrefix + prefix + ":" + day
	n, err := incrementScript.Run(ctx, c.client, []string{key}, int(sequenceTTL.Seconds())).Int64()
	if err != nil {
		return 0, fmt.Errorf("increment sequence: %w", err)
	}
	return n, nil
}
