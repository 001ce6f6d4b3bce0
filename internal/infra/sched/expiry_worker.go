package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"access-code-service/internal/infra/metrics"
	"access-code-service/internal/usecase"
)

// ExpiryWorker periodically deactivates time-limited entitlements whose
// expiry has passed.
type ExpiryWorker struct {
	interval time.Duration
	entUC    *usecase.EntitlementUseCase
	log      *zerolog.Logger
}

func NewExpiryWorker(interval time.Duration, entUC *usecase.EntitlementUseCase, logger *zerolog.Logger) *ExpiryWorker {
	exprLog := logger.With().Str("component", "ExpiryWorker").Logger()
	return &ExpiryWorker{
		interval: interval,
		entUC:    entUC,
		log:      &exprLog,
	}
}

func (w *ExpiryWorker) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting entitlement expiry worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping entitlement expiry worker")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.entUC.SweepExpired(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("entitlement sweep failed")
			}
			if n > 0 {
				metrics.IncEntitlementsExpired(n)
				w.log.Info().Int("count", n).Msg("expired entitlements deactivated")
			}
		}
	}
}
