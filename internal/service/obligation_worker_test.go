package service

import (
	"context"
	"testing"
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/defterly/defter-backend/internal/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObligationWorker_StartStop(t *testing.T) {
	service, _, _, _ := setupScheduleService()
	tenantRepo := &testutil.MockTenantRepository{}

	worker := NewObligationWorker(service, tenantRepo, zerolog.Nop(), ObligationWorkerConfig{Interval: time.Hour})
	assert.False(t, worker.IsRunning())

	worker.Start(context.Background())
	assert.True(t, worker.IsRunning())

	// Idempotent start
	worker.Start(context.Background())

	worker.Stop()
	assert.False(t, worker.IsRunning())
}

func TestObligationWorker_SyncTenant(t *testing.T) {
	service, rpRepo, txRepo, _ := setupScheduleService()
	tenantRepo := &testutil.MockTenantRepository{UserIDs: []int64{1}}

	rpRepo.AddRegularPayment(&domain.RegularPayment{
		UserID: 1, Title: "Rent", Amount: decimal.NewFromInt(100), CurrencyID: 1,
		DueDate: time.Now().AddDate(0, 0, -1), Frequency: domain.PeriodMonthly, IsActive: true,
	})

	worker := NewObligationWorker(service, tenantRepo, zerolog.Nop(), DefaultObligationWorkerConfig())
	result, err := worker.SyncTenant(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ProcessedCount)
	assert.Len(t, txRepo.Transactions, 1)
}
