package repository

import "context"

// SequenceCounter contador atómico por (prefijo, día). Increment devuelve el valor ya incrementado,
// único aun con llamadas concurrentes.
type SequenceCounter interface {
	Increment(ctx context.Context, prefix, day string) (int64, error)
}
