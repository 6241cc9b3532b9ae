package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidInput        = errors.New("entrada inválida")
	ErrDuplicate           = errors.New("recurso duplicado")
	ErrUnauthorized        = errors.New("no autorizado")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrNegativeStock       = errors.New("la existencia quedaría negativa")
	ErrInvalidTransition   = errors.New("transición de estado no permitida")
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia, reintentar")
	ErrSameWarehouse       = errors.New("bodega origen y destino deben ser distintas")
	ErrIncompleteCount     = errors.New("conteo incompleto")
	ErrInactiveWarehouse   = errors.New("bodega inactiva")
)

// ValidationError rechazo síncrono que nombra la regla violada.
// Err conserva el sentinel para errors.Is.
type ValidationError struct {
	Rule   string
	Detail string
	Err    error
}

// NewValidationError construye el error de validación.
func NewValidationError(rule string, err error, format string, args ...any) *ValidationError {
	return &ValidationError{Rule: rule, Detail: fmt.Sprintf(format, args...), Err: err}
}

func (e *ValidationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %v", e.Rule, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Rule, e.Detail)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// RuleOf devuelve la regla de un ValidationError envuelto, o "" si no lo es.
func RuleOf(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Rule
	}
	return ""
}
