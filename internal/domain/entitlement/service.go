package entitlement

import (
	"context"
	"log/slog"

	"concedii/internal/platform/metrics"
	"concedii/internal/platform/querier"
)

// Service is the entitlement ledger. Consume and refund operate on a
// caller-supplied transaction querier; the transaction boundary belongs to
// the workflow that couples the ledger change with a status update.
type Service struct {
	Store   StoreAPI
	Metrics *metrics.Collector
}

func NewService(store StoreAPI, collector *metrics.Collector) *Service {
	return &Service{Store: store, Metrics: collector}
}

// ConsumeTx debits days from the balance. The remaining check and the
// increment happen under the row lock taken by GetForUpdateTx, so two
// concurrent approvals cannot both pass the check.
func (s *Service) ConsumeTx(ctx context.Context, q querier.Querier, userID int64, year int, leaveType string, days int) error {
	if days <= 0 {
		return nil
	}

	ent, err := s.Store.GetForUpdateTx(ctx, q, userID, year, leaveType)
	if err != nil {
		return err
	}

	if remaining := ent.Remaining(); remaining < days {
		return &InsufficientBalanceError{Available: remaining, Requested: days}
	}

	return s.Store.AddUsedTx(ctx, q, ent.ID, days)
}

// RefundTx credits days back, clamped so used_days never goes negative.
// A clamped refund is tolerated rather than rejected, but it usually means
// a caller bug (double interrupt), so it is logged and counted.
func (s *Service) RefundTx(ctx context.Context, q querier.Querier, userID int64, year int, leaveType string, days int) error {
	if days <= 0 {
		return nil
	}

	ent, err := s.Store.GetForUpdateTx(ctx, q, userID, year, leaveType)
	if err != nil {
		return err
	}

	newUsed := ent.UsedDays - days
	if newUsed < 0 {
		slog.Warn("refund clamped at zero",
			"userId", userID, "year", year, "type", leaveType,
			"usedDays", ent.UsedDays, "refundDays", days)
		if s.Metrics != nil {
			s.Metrics.RecordClampedRefund()
		}
		newUsed = 0
	}

	return s.Store.SetUsedTx(ctx, q, ent.ID, newUsed)
}

// UpsertGrant creates or overwrites the administrator-granted figures for
// a (user, year, type) key. used_days is never touched by a grant.
func (s *Service) UpsertGrant(ctx context.Context, userID int64, year int, leaveType string, annualDays, carryoverDays int) (Entitlement, error) {
	if annualDays < 0 || carryoverDays < 0 {
		return Entitlement{}, ErrNegativeDays
	}
	return s.Store.Upsert(ctx, userID, year, leaveType, annualDays, carryoverDays)
}

// GetBalance returns the stored figures plus the derived remaining days
// for every type present for the (user, year). Absent types are absent
// from the result, not defaulted.
func (s *Service) GetBalance(ctx context.Context, userID int64, year int) ([]Balance, error) {
	rows, err := s.Store.ListByUserYear(ctx, userID, year)
	if err != nil {
		return nil, err
	}

	balances := make([]Balance, 0, len(rows))
	for _, e := range rows {
		balances = append(balances, Balance{
			Year:          e.Year,
			Type:          e.Type,
			AnnualDays:    e.AnnualDays,
			CarryoverDays: e.CarryoverDays,
			UsedDays:      e.UsedDays,
			RemainingDays: e.Remaining(),
		})
	}
	return balances, nil
}
