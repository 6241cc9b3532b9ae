package clock

import (
	"sync"
	"time"
)

// Clock fuente de "ahora" inyectable (expiraciones, fechas por defecto).
type Clock interface {
	Now() time.Time
}

// System reloj real en UTC.
type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

// Fixed reloj controlable para tests.
type Fixed struct {
	mu sync.Mutex
	t  time.Time
}

// NewFixed crea un reloj detenido en t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{t: t.UTC()}
}

func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Advance mueve el reloj hacia adelante.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

// Set fija el instante actual.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	f.t = t.UTC()
	f.mu.Unlock()
}
