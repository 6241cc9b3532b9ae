package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/inventory-engine/internal/domain"
	"github.com/jhoicas/inventory-engine/internal/domain/repository"
)

// Prefijos de numeración.
const (
	PrefixTransaction = "TXN"
	PrefixReservation = "RES"
	PrefixTransfer    = "TRF"
	PrefixCycleCount  = "CC"
)

const dayLayout = "20060102"

// Generator emite números "{prefijo}-{yyyyMMdd}-{secuencia:06}" sobre un contador atómico.
// Nunca cuenta filas existentes.
type Generator struct {
	counter repository.SequenceCounter
}

// NewGenerator construye el generador sobre el contador del backend configurado.
func NewGenerator(counter repository.SequenceCounter) *Generator {
	return &Generator{counter: counter}
}

// Next devuelve el siguiente número para (prefix, date). La fecha se toma en UTC.
func (g *Generator) Next(ctx context.Context, prefix string, date time.Time) (string, error) {
	if prefix == "" {
		return "", domain.ErrInvalidInput
	}
	day := date.UTC().Format(dayLayout)
	n, err := g.counter.Increment(ctx, prefix, day)
	if err != nil {
		return "", fmt.Errorf("sequence %s/%s: %w", prefix, day, err)
	}
	return Format(prefix, date, n), nil
}

// Format arma el número con la secuencia rellenada a seis dígitos.
func Format(prefix string, date time.Time, n int64) string {
	return fmt.Sprintf("%s-%s-%06d", prefix, date.UTC().Format(dayLayout), n)
}
