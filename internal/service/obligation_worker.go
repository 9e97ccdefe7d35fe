package service

import (
	"context"
	"sync"
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/rs/zerolog"
)

// ObligationWorker is a background worker that periodically processes
// due obligations for every tenant.
type ObligationWorker struct {
	scheduleService *ScheduleService
	tenantRepo      domain.TenantRepository
	logger          zerolog.Logger
	interval        time.Duration
	stopCh          chan struct{}
	doneCh          chan struct{}
	mu              sync.Mutex
	running         bool
}

// ObligationWorkerConfig holds configuration for the obligation worker
type ObligationWorkerConfig struct {
	Interval time.Duration // How often to run the obligation sweep
}

// DefaultObligationWorkerConfig returns sensible defaults
func DefaultObligationWorkerConfig() ObligationWorkerConfig {
	return ObligationWorkerConfig{
		Interval: 1 * time.Hour,
	}
}

// NewObligationWorker creates a new obligation worker
func NewObligationWorker(
	scheduleService *ScheduleService,
	tenantRepo domain.TenantRepository,
	logger zerolog.Logger,
	config ObligationWorkerConfig,
) *ObligationWorker {
	if config.Interval <= 0 {
		config.Interval = 1 * time.Hour
	}

	return &ObligationWorker{
		scheduleService: scheduleService,
		tenantRepo:      tenantRepo,
		logger:          logger.With().Str("component", "obligation_worker").Logger(),
		interval:        config.Interval,
		stopCh:          make(chan struct{}),
		doneCh:          make(chan struct{}),
	}
}

// Start begins the background obligation sweep
func (w *ObligationWorker) Start(ctx context.Context) {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info().
		Dur("interval", w.interval).
		Msg("Starting obligation worker")

	go w.run(ctx)
}

// Stop gracefully stops the obligation worker
func (w *ObligationWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	w.logger.Info().Msg("Stopping obligation worker")
	close(w.stopCh)
	<-w.doneCh
	w.logger.Info().Msg("Obligation worker stopped")
}

// run is the main loop for the obligation worker
func (w *ObligationWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	// Run immediately on startup
	w.sweepAllTenants(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return
		case <-w.stopCh:
			w.mu.Lock()
			w.running = false
			w.mu.Unlock()
			return
		case <-ticker.C:
			w.sweepAllTenants(ctx)
		}
	}
}

// sweepAllTenants processes due obligations for every tenant
func (w *ObligationWorker) sweepAllTenants(ctx context.Context) {
	w.logger.Debug().Msg("Starting obligation sweep for all tenants")
	startTime := time.Now()

	userIDs, err := w.tenantRepo.ListUserIDs()
	if err != nil {
		w.logger.Error().Err(err).Msg("Failed to list tenants for obligation sweep")
		return
	}

	totalProcessed := 0
	totalSkipped := 0
	totalErrors := 0

	for _, userID := range userIDs {
		select {
		case <-ctx.Done():
			w.logger.Info().Msg("Context cancelled, stopping sweep")
			return
		case <-w.stopCh:
			w.logger.Info().Msg("Stop signal received, stopping sweep")
			return
		default:
		}

		result, err := w.scheduleService.ProcessObligations(ctx, userID, time.Now())
		if err != nil {
			w.logger.Error().
				Err(err).
				Int64("user_id", userID).
				Msg("Failed to process obligations for tenant")
			totalErrors++
			continue
		}

		totalProcessed += result.ProcessedCount
		totalSkipped += result.SkippedCount
		totalErrors += len(result.Errors)

		if result.ProcessedCount > 0 {
			w.logger.Debug().
				Int64("user_id", userID).
				Int("processed", result.ProcessedCount).
				Int("skipped", result.SkippedCount).
				Msg("Processed obligations for tenant")
		}
	}

	elapsed := time.Since(startTime)
	w.logger.Info().
		Int("tenants", len(userIDs)).
		Int("total_processed", totalProcessed).
		Int("total_skipped", totalSkipped).
		Int("total_errors", totalErrors).
		Dur("elapsed", elapsed).
		Msg("Completed obligation sweep")
}

// SyncTenant manually triggers an obligation sweep for one tenant.
// This is what the cron endpoint calls.
func (w *ObligationWorker) SyncTenant(ctx context.Context, userID int64) (*ProcessResult, error) {
	w.logger.Debug().Int64("user_id", userID).Msg("Manual obligation sweep triggered")
	return w.scheduleService.ProcessObligations(ctx, userID, time.Now())
}

// IsRunning returns whether the worker is currently running
func (w *ObligationWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
