package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/inventory-engine/internal/domain/repository"
)

var _ repository.SequenceCounter = (*SequenceCounter)(nil)

// SequenceCounter contador atómico en document_sequences. El upsert toma el bloqueo de fila,
// así dos llamadores concurrentes nunca obtienen el mismo valor.
type SequenceCounter struct {
	q Querier
}

// NewSequenceCounter construye el contador sobre un pool propio (config.DBConfig.ForSequences).
// Los números se piden con la tx del llamador abierta: compartir su pool agota las conexiones bajo carga.
// El número se consume aunque la tx del llamador haga rollback.
func NewSequenceCounter(q Querier) *SequenceCounter {
	return &SequenceCounter{q: q}
}

// Increment incrementa y devuelve el contador de (prefix, day).
func (c *SequenceCounter) Increment(ctx context.Context, prefix, day string) (int64, error) {
	query := `
		INSERT INTO document_sequences (prefix, day, value)
		VALUES ($1, $2, 1)
		ON CONFLICT (prefix, day)
		DO UPDATE SET value = document_sequences.value + 1
		RETURNING value`
	var n int64
	if err := c.q.QueryRow(ctx, query, prefix, day).Scan(&n); err != nil {
		return 0, fmt.Errorf("increment sequence: %w", err)
	}
	return n, nil
}
