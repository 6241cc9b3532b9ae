package reservation

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Expirer vence reservas activas cuya expiración ya pasó.
type Expirer interface {
	ExpireDue(ctx context.Context, batchSize int) (int, error)
}

// Sweeper barrido periódico de reservas vencidas. Corre una vez al iniciar y luego en cada tick.
type Sweeper struct {
	expirer   Expirer
	interval  time.Duration
	batchSize int
	log       zerolog.Logger
}

// NewSweeper construye el barrido. interval <= 0 lo deja deshabilitado.
func NewSweeper(expirer Expirer, interval time.Duration, batchSize int, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		expirer:   expirer,
		interval:  interval,
		batchSize: batchSize,
		log:       log.With().Str("component", "reservation_sweeper").Logger(),
	}
}

// Run bloquea hasta que ctx se cancela.
func (s *Sweeper) Run(ctx context.Context) error {
	if s.interval <= 0 {
		s.log.Info().Msg("barrido de reservas deshabilitado")
		return nil
	}
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.log.Info().Dur("interval", s.interval).Msg("barrido de reservas iniciado")

	s.RunOnce(ctx)
	for {
		select {
		case <-ticker.C:
			s.RunOnce(ctx)
		case <-ctx.Done():
			s.log.Info().Msg("barrido de reservas detenido")
			return nil
		}
	}
}

// RunOnce vence en lotes hasta que no quedan reservas vencidas.
func (s *Sweeper) RunOnce(ctx context.Context) int {
	total := 0
	for ctx.Err() == nil {
		n, err := s.expirer.ExpireDue(ctx, s.batchSize)
		if err != nil {
			s.log.Error().Err(err).Msg("barrido de reservas falló")
			break
		}
		total += n
		if n == 0 || n < s.batchSize {
			break
		}
	}
	if total > 0 {
		s.log.Info().Int("expired", total).Msg("reservas vencidas")
	}
	return total
}
