package service

import (
	"fmt"
	"sort"
	"time"

	"github.com/defterly/defter-backend/internal/domain"
	"github.com/defterly/defter-backend/internal/util"
	"github.com/rs/zerolog"
)

// quoteStaleAfter is how long a sent quote may sit without a response
// before it surfaces in the notification list.
const quoteStaleAfter = 7 * 24 * time.Hour

// NotificationService derives due-soon and overdue notifications from
// current debt, regular payment, and quote state. Nothing is persisted;
// the same state always yields the same list.
type NotificationService struct {
	debtRepo           domain.DebtRepository
	regularPaymentRepo domain.RegularPaymentRepository
	quoteRepo          domain.QuoteRepository
	lookaheadDays      int
	logger             zerolog.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	debtRepo domain.DebtRepository,
	regularPaymentRepo domain.RegularPaymentRepository,
	quoteRepo domain.QuoteRepository,
	lookaheadDays int,
	logger zerolog.Logger,
) *NotificationService {
	if lookaheadDays <= 0 {
		lookaheadDays = 7
	}
	return &NotificationService{
		debtRepo:           debtRepo,
		regularPaymentRepo: regularPaymentRepo,
		quoteRepo:          quoteRepo,
		lookaheadDays:      lookaheadDays,
		logger:             logger.With().Str("component", "notification_service").Logger(),
	}
}

// ListNotifications scans outstanding debts, upcoming regular payments,
// and open quotes, and returns the combined list sorted by due date.
// A malformed source row is logged and skipped, never fatal.
func (s *NotificationService) ListNotifications(userID int64, now time.Time) ([]domain.Notification, error) {
	today := util.StartOfDay(now)
	horizon := today.AddDate(0, 0, s.lookaheadDays)

	notifications := make([]domain.Notification, 0)
	notifications = append(notifications, s.debtNotifications(userID, today, horizon)...)
	notifications = append(notifications, s.regularPaymentNotifications(userID, today, horizon)...)
	notifications = append(notifications, s.quoteNotifications(userID, now, horizon)...)

	seen := make(map[string]bool, len(notifications))
	deduped := notifications[:0]
	for _, n := range notifications {
		if seen[n.ID] {
			continue
		}
		seen[n.ID] = true
		deduped = append(deduped, n)
	}

	sort.Slice(deduped, func(i, j int) bool {
		if !deduped[i].DueDate.Equal(deduped[j].DueDate) {
			return deduped[i].DueDate.Before(deduped[j].DueDate)
		}
		return deduped[i].ID < deduped[j].ID
	})
	return deduped, nil
}

func (s *NotificationService) debtNotifications(userID int64, today, horizon time.Time) []domain.Notification {
	debts, err := s.debtRepo.ListOutstandingDueBefore(userID, horizon)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to scan outstanding debts")
		return nil
	}

	out := make([]domain.Notification, 0, len(debts))
	for _, d := range debts {
		var kind domain.NotificationKind
		idPrefix := "debt-due"
		overdue := d.DueDate.Before(today)
		switch d.Type {
		case domain.DebtTypeReceivable:
			kind = domain.NotificationReceivableDue
			if overdue {
				kind = domain.NotificationReceivableOverdue
				idPrefix = "debt-overdue"
			}
		case domain.DebtTypePayable:
			kind = domain.NotificationPayableDue
			if overdue {
				kind = domain.NotificationPayableOverdue
				idPrefix = "debt-overdue"
			}
		default:
			s.logger.Warn().Int64("debt_id", d.ID).Str("type", string(d.Type)).Msg("Skipping debt with unknown type")
			continue
		}
		out = append(out, domain.Notification{
			ID:         fmt.Sprintf("%s-%d", idPrefix, d.ID),
			Kind:       kind,
			Title:      d.Title,
			Amount:     d.Amount.Sub(d.PaidAmount),
			CurrencyID: d.CurrencyID,
			DueDate:    d.DueDate,
			RefID:      d.ID,
		})
	}
	return out
}

func (s *NotificationService) regularPaymentNotifications(userID int64, today, horizon time.Time) []domain.Notification {
	payments, err := s.regularPaymentRepo.ListDueBetween(userID, today, horizon)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to scan regular payments")
		return nil
	}

	out := make([]domain.Notification, 0, len(payments))
	for _, rp := range payments {
		out = append(out, domain.Notification{
			ID:         fmt.Sprintf("rp-due-%d", rp.ID),
			Kind:       domain.NotificationRegularPaymentDue,
			Title:      rp.Title,
			Amount:     rp.Amount,
			CurrencyID: rp.CurrencyID,
			DueDate:    rp.DueDate,
			RefID:      rp.ID,
		})
	}
	return out
}

func (s *NotificationService) quoteNotifications(userID int64, now, horizon time.Time) []domain.Notification {
	quotes, err := s.quoteRepo.ListByStatus(userID, domain.QuoteStatusSent)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Failed to scan sent quotes")
		return nil
	}

	today := util.StartOfDay(now)
	out := make([]domain.Notification, 0, len(quotes))
	for _, q := range quotes {
		expired := q.ValidUntil != nil && q.ValidUntil.Before(today)
		switch {
		case q.ValidUntil != nil && !expired && !q.ValidUntil.After(horizon):
			out = append(out, domain.Notification{
				ID:         fmt.Sprintf("quote-expiring-%d", q.ID),
				Kind:       domain.NotificationQuoteExpiring,
				Title:      fmt.Sprintf("Quote %s", q.Number),
				Amount:     q.NetTotal,
				CurrencyID: q.CurrencyID,
				DueDate:    *q.ValidUntil,
				RefID:      q.ID,
			})
		case expired || now.Sub(q.UpdatedAt) > quoteStaleAfter:
			out = append(out, domain.Notification{
				ID:         fmt.Sprintf("quote-stale-%d", q.ID),
				Kind:       domain.NotificationQuoteStale,
				Title:      fmt.Sprintf("Quote %s", q.Number),
				Amount:     q.NetTotal,
				CurrencyID: q.CurrencyID,
				DueDate:    q.UpdatedAt.Add(quoteStaleAfter),
				RefID:      q.ID,
			})
		}
	}
	return out
}
