package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/inventory-engine/internal/domain/repository"
)

var _ repository.SequenceCounter = (*SequenceCounter)(nil)

// SequenceCounter contador por (prefijo, día) protegido por mutex. Solo válido en un proceso.
type SequenceCounter struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewSequenceCounter crea el contador.
func NewSequenceCounter() *SequenceCounter {
	return &SequenceCounter{values: map[string]int64{}}
}

// Increment incrementa y devuelve el contador del prefijo en el día.
func (c *SequenceCounter) Increment(ctx context.Context, prefix, day string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	k := prefix + ":" + day
	c.values[k]++
	return c.values[k], nil
}
