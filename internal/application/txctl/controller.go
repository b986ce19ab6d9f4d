// Package txctl envuelve un repository.TxRunner con tiempo límite por intento y reintentos
// con backoff ante conflictos de concurrencia o fallas transitorias.
package txctl

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog"

	"github.com/jhoicas/Confinamiento-api/internal/domain"
	"github.com/jhoicas/Confinamiento-api/internal/domain/repository"
	"github.com/jhoicas/Confinamiento-api/pkg/metrics"
)

// Config límites de cada unidad transaccional.
type Config struct {
	Timeout        time.Duration
	MaxAttempts    int
	BackoffInitial time.Duration
	BackoffMax     time.Duration
}

// DefaultConfig valores usados cuando la configuración llega vacía.
func DefaultConfig() Config {
	return Config{
		Timeout:        5 * time.Second,
		MaxAttempts:    4,
		BackoffInitial: 20 * time.Millisecond,
		BackoffMax:     500 * time.Millisecond,
	}
}

// Controller ejecuta unidades transaccionales de forma atómica.
type Controller struct {
	runner  repository.TxRunner
	cfg     Config
	log     zerolog.Logger
	metrics *metrics.Metrics
}

// New construye el controlador. metrics puede ser nil.
func New(runner repository.TxRunner, cfg Config, log zerolog.Logger, m *metrics.Metrics) *Controller {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BackoffInitial <= 0 {
		cfg.BackoffInitial = def.BackoffInitial
	}
	if cfg.BackoffMax < cfg.BackoffInitial {
		cfg.BackoffMax = cfg.BackoffInitial
	}
	return &Controller{runner: runner, cfg: cfg, log: log, metrics: m}
}

// Run ejecuta fn como una unidad atómica. fn puede ejecutarse más de una vez:
// no debe tener efectos fuera de los repositorios recibidos.
//
// Un conflicto o una falla transitoria se reintenta hasta MaxAttempts; si persiste devuelve
// *domain.ConcurrentModificationError. Un intento que excede Timeout devuelve
// *domain.TransactionTimeoutError sin reintentar. Cualquier otro error se devuelve tal cual.
func (c *Controller) Run(ctx context.Context, op string, opts repository.TxOptions, fn func(ctx context.Context, repos repository.Repositories) error) error {
	if opts.Isolation == "" {
		opts.Isolation = repository.IsolationReadCommitted
	}

	attempts := 0
	operation := func() (struct{}, error) {
		attempts++
		attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		err := c.runner.Run(attemptCtx, opts, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if ctx.Err() != nil {
			return struct{}{}, backoff.Permanent(ctx.Err())
		}
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
			c.metrics.TxFailure(op, "timeout")
			return struct{}{}, backoff.Permanent(&domain.TransactionTimeoutError{Operation: op, Timeout: c.cfg.Timeout})
		}
		if retryable(err) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.BackoffInitial
	b.MaxInterval = c.cfg.BackoffMax
	b.RandomizationFactor = 0.5

	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, wait time.Duration) {
			c.metrics.TxRetry(op)
			c.log.Debug().Err(err).Str("operation", op).Int("attempt", attempts).
				Dur("wait", wait).Msg("reintentando unidad transaccional")
		}),
	)
	if err == nil {
		return nil
	}
	if retryable(err) {
		c.metrics.TxFailure(op, "conflict")
		c.log.Warn().Err(err).Str("operation", op).Int("attempts", attempts).Msg("conflicto persistente")
		return &domain.ConcurrentModificationError{Operation: op, Attempts: attempts, Err: err}
	}
	return err
}

func retryable(err error) bool {
	var cm *domain.ConcurrentModificationError
	if errors.As(err, &cm) {
		// ya agotó sus propios reintentos en una unidad anidada
		return false
	}
	return errors.Is(err, domain.ErrConcurrentModification) || errors.Is(err, domain.ErrTransient)
}
