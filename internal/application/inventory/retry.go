package inventory

import (
	"context"
	"errors"

	"github.com/jhoicas/inventory-engine/internal/domain"
)

// DefaultAttempts intentos ante conflicto de versión antes de devolverlo al llamador.
const DefaultAttempts = 3

// RetryOnConflict reintenta fn mientras falle por control optimista de concurrencia.
// Cada intento debe releer el agregado.
func RetryOnConflict(ctx context.Context, attempts int, fn func() error) error {
	if attempts <= 0 {
		attempts = 1
	}
	var err error
	for i := 0; i < attempts; i++ {
		err = fn()
		if !errors.Is(err, domain.ErrConcurrencyConflict) {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
	}
	return err
}
