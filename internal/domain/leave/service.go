package leave

import (
	"context"
	"errors"
	"time"

	"concedii/internal/domain/auth"
	"concedii/internal/domain/entitlement"
	"concedii/internal/platform/metrics"
	"concedii/internal/platform/querier"
)

// Ledger is the slice of the entitlement service the lifecycle drives.
type Ledger interface {
	ConsumeTx(ctx context.Context, q querier.Querier, userID int64, year int, leaveType string, days int) error
	RefundTx(ctx context.Context, q querier.Querier, userID int64, year int, leaveType string, days int) error
}

// TxRunner supplies the atomic unit of work for balance-affecting
// transitions.
type TxRunner interface {
	InTx(ctx context.Context, fn func(q querier.Querier) error) error
}

type Service struct {
	Store   StoreAPI
	Ledger  Ledger
	Tx      TxRunner
	Authz   *Authz
	Metrics *metrics.Collector

	// Now is swappable for tests.
	Now func() time.Time
}

func NewService(store StoreAPI, ledger Ledger, tx TxRunner, authz *Authz, collector *metrics.Collector) *Service {
	return &Service{
		Store:   store,
		Ledger:  ledger,
		Tx:      tx,
		Authz:   authz,
		Metrics: collector,
		Now:     time.Now,
	}
}

func (s *Service) CreateDraft(ctx context.Context, requesterID int64, input CreateDraftInput) (LeaveRequest, error) {
	if err := ValidateDraft(input); err != nil {
		return LeaveRequest{}, err
	}
	return s.Store.Create(ctx, requesterID, input)
}

// Submit moves the actor's own draft to SUBMITTED. No ledger effect.
func (s *Service) Submit(ctx context.Context, actorID, requestID int64) (LeaveRequest, error) {
	req, err := s.Store.GetByID(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if req.RequesterID != actorID {
		return LeaveRequest{}, ErrForbidden
	}
	if req.Status != StatusDraft {
		return LeaveRequest{}, ErrInvalidState
	}
	return s.Store.Submit(ctx, requestID)
}

// Approve sets the request APPROVED and debits the requester's
// entitlement as one transaction. A ledger refusal (missing row or
// insufficient balance) rolls the status change back, leaving the request
// SUBMITTED.
func (s *Service) Approve(ctx context.Context, actor auth.Actor, requestID int64) (LeaveRequest, error) {
	req, err := s.Store.GetByID(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if req.Status != StatusSubmitted {
		return LeaveRequest{}, ErrInvalidState
	}
	if err := s.Authz.CanApprove(ctx, actor); err != nil {
		return LeaveRequest{}, err
	}
	// Stale rows could have been written before the cross-year rule; do
	// not let them consume entitlement for the wrong year.
	if req.StartDate.Year() != req.EndDate.Year() {
		return LeaveRequest{}, invalidInput("endDate", "request spans calendar years")
	}

	var approved LeaveRequest
	err = s.Tx.InTx(ctx, func(q querier.Querier) error {
		updated, err := s.Store.ApproveTx(ctx, q, requestID, actor.ID)
		if err != nil {
			return err
		}
		if err := s.Ledger.ConsumeTx(ctx, q, updated.RequesterID, updated.StartDate.Year(), updated.Type, updated.DaysCount); err != nil {
			return err
		}
		approved = updated
		return nil
	})
	if err != nil {
		var insufficient *entitlement.InsufficientBalanceError
		if errors.As(err, &insufficient) && s.Metrics != nil {
			s.Metrics.RecordInsufficientBalance()
		}
		return LeaveRequest{}, err
	}

	if s.Metrics != nil {
		s.Metrics.RecordApproval()
	}
	return approved, nil
}

// Reject closes a submitted request. Days were never consumed, so the
// ledger is not involved.
func (s *Service) Reject(ctx context.Context, actor auth.Actor, requestID int64, reason *string) (LeaveRequest, error) {
	req, err := s.Store.GetByID(ctx, requestID)
	if err != nil {
		return LeaveRequest{}, err
	}
	if req.Status != StatusSubmitted {
		return LeaveRequest{}, ErrInvalidState
	}
	if err := s.Authz.CanApprove(ctx, actor); err != nil {
		return LeaveRequest{}, err
	}

	rejected, err := s.Store.Reject(ctx, requestID, actor.ID, reason)
	if err != nil {
		return LeaveRequest{}, err
	}
	if s.Metrics != nil {
		s.Metrics.RecordRejection()
	}
	return rejected, nil
}

// Interrupt cuts an approved leave short, refunding the unused days in
// the same transaction that records the interruption.
func (s *Service) Interrupt(ctx context.Context, actor auth.Actor, requestID int64, reason *string) (InterruptResult, error) {
	req, err := s.Store.GetByID(ctx, requestID)
	if err != nil {
		return InterruptResult{}, err
	}
	if req.Status != StatusApproved {
		return InterruptResult{}, ErrInvalidState
	}
	if err := s.Authz.CanInterrupt(actor); err != nil {
		return InterruptResult{}, err
	}

	now := s.Now()
	effectiveDays, refundDays := InterruptOutcome(req, now)

	var interrupted LeaveRequest
	err = s.Tx.InTx(ctx, func(q querier.Querier) error {
		updated, err := s.Store.InterruptTx(ctx, q, requestID, actor.ID, now, reason)
		if err != nil {
			return err
		}
		if err := s.Ledger.RefundTx(ctx, q, updated.RequesterID, updated.StartDate.Year(), updated.Type, refundDays); err != nil {
			return err
		}
		interrupted = updated
		return nil
	})
	if err != nil {
		return InterruptResult{}, err
	}

	if s.Metrics != nil {
		s.Metrics.RecordInterrupt()
	}
	return InterruptResult{Request: interrupted, EffectiveDays: effectiveDays, RefundDays: refundDays}, nil
}

// List applies the access rule, then pages through matching requests,
// most recent first. Employees without a staff role only ever see their
// own requests, whatever filter they ask for.
func (s *Service) List(ctx context.Context, actor auth.Actor, filter Filter, page Page) (ListResult, error) {
	if !CanListAll(actor) {
		own := actor.ID
		filter.RequesterID = &own
	}
	if filter.Status != "" && !validStatus(filter.Status) {
		return ListResult{}, invalidInput("status", "unknown status")
	}
	if filter.Type != "" && !entitlement.ValidType(filter.Type) {
		return ListResult{}, invalidInput("type", "must be CO or COR")
	}

	page = page.Normalize()
	items, total, err := s.Store.List(ctx, filter, page.PageSize, page.Offset())
	if err != nil {
		return ListResult{}, err
	}
	if items == nil {
		items = []LeaveRequest{}
	}
	return ListResult{Items: items, Total: total, Page: page.Page, PageSize: page.PageSize}, nil
}

func validStatus(status string) bool {
	for _, s := range ValidStatuses {
		if s == status {
			return true
		}
	}
	return false
}
