package leave

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"concedii/internal/domain/auth"
	"concedii/internal/domain/entitlement"
	"concedii/internal/platform/querier"
)

type fakeRequestStore struct {
	requests map[int64]*LeaveRequest
	nextID   int64
	clock    time.Time
}

func newFakeRequestStore() *fakeRequestStore {
	return &fakeRequestStore{
		requests: map[int64]*LeaveRequest{},
		nextID:   1,
		clock:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (f *fakeRequestStore) tick() time.Time {
	f.clock = f.clock.Add(time.Minute)
	return f.clock
}

func (f *fakeRequestStore) Create(_ context.Context, requesterID int64, input CreateDraftInput) (LeaveRequest, error) {
	now := f.tick()
	req := &LeaveRequest{
		ID:          f.nextID,
		RequesterID: requesterID,
		Type:        input.Type,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		DaysCount:   input.DaysCount,
		Status:      StatusDraft,
		Reason:      input.Reason,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.nextID++
	f.requests[req.ID] = req
	return *req, nil
}

func (f *fakeRequestStore) GetByID(_ context.Context, id int64) (LeaveRequest, error) {
	req, ok := f.requests[id]
	if !ok {
		return LeaveRequest{}, ErrNotFound
	}
	return *req, nil
}

func (f *fakeRequestStore) Submit(_ context.Context, id int64) (LeaveRequest, error) {
	req, ok := f.requests[id]
	if !ok || req.Status != StatusDraft {
		return LeaveRequest{}, ErrInvalidState
	}
	req.Status = StatusSubmitted
	req.UpdatedAt = f.tick()
	return *req, nil
}

func (f *fakeRequestStore) Reject(_ context.Context, id, rejecterID int64, reason *string) (LeaveRequest, error) {
	req, ok := f.requests[id]
	if !ok || req.Status != StatusSubmitted {
		return LeaveRequest{}, ErrInvalidState
	}
	req.Status = StatusRejected
	req.ApprovedByID = &rejecterID
	if reason != nil {
		req.Reason = reason
	}
	req.UpdatedAt = f.tick()
	return *req, nil
}

func (f *fakeRequestStore) ApproveTx(_ context.Context, _ querier.Querier, id, approverID int64) (LeaveRequest, error) {
	req, ok := f.requests[id]
	if !ok || req.Status != StatusSubmitted {
		return LeaveRequest{}, ErrInvalidState
	}
	req.Status = StatusApproved
	req.ApprovedByID = &approverID
	req.UpdatedAt = f.tick()
	return *req, nil
}

func (f *fakeRequestStore) InterruptTx(_ context.Context, _ querier.Querier, id, actorID int64, at time.Time, reason *string) (LeaveRequest, error) {
	req, ok := f.requests[id]
	if !ok || req.Status != StatusApproved {
		return LeaveRequest{}, ErrInvalidState
	}
	req.Status = StatusInterrupted
	req.InterruptedByID = &actorID
	req.InterruptedAt = &at
	if reason != nil {
		req.Reason = reason
	}
	req.UpdatedAt = f.tick()
	return *req, nil
}

func (f *fakeRequestStore) List(_ context.Context, filter Filter, limit, offset int) ([]LeaveRequest, int, error) {
	var matched []LeaveRequest
	// Iterate newest-first; ids are assigned in creation order.
	for id := f.nextID - 1; id >= 1; id-- {
		req, ok := f.requests[id]
		if !ok {
			continue
		}
		if filter.RequesterID != nil && req.RequesterID != *filter.RequesterID {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.Type != "" && req.Type != filter.Type {
			continue
		}
		if !filter.StartFrom.IsZero() && req.StartDate.Before(filter.StartFrom) {
			continue
		}
		if !filter.StartTo.IsZero() && req.StartDate.After(filter.StartTo) {
			continue
		}
		matched = append(matched, *req)
	}

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (f *fakeRequestStore) snapshot() map[int64]LeaveRequest {
	out := make(map[int64]LeaveRequest, len(f.requests))
	for id, req := range f.requests {
		out[id] = *req
	}
	return out
}

func (f *fakeRequestStore) restore(snap map[int64]LeaveRequest) {
	f.requests = make(map[int64]*LeaveRequest, len(snap))
	for id, req := range snap {
		copied := req
		f.requests[id] = &copied
	}
}

type fakeBalance struct {
	annual int
	carry  int
	used   int
}

type fakeLedger struct {
	rows     map[string]*fakeBalance
	consumes int
	refunds  int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{rows: map[string]*fakeBalance{}}
}

func ledgerKey(userID int64, year int, leaveType string) string {
	return fmt.Sprintf("%d/%d/%s", userID, year, leaveType)
}

func (f *fakeLedger) grant(userID int64, year int, leaveType string, annual, carry int) {
	f.rows[ledgerKey(userID, year, leaveType)] = &fakeBalance{annual: annual, carry: carry}
}

func (f *fakeLedger) used(userID int64, year int, leaveType string) int {
	row, ok := f.rows[ledgerKey(userID, year, leaveType)]
	if !ok {
		return 0
	}
	return row.used
}

func (f *fakeLedger) ConsumeTx(_ context.Context, _ querier.Querier, userID int64, year int, leaveType string, days int) error {
	if days <= 0 {
		return nil
	}
	row, ok := f.rows[ledgerKey(userID, year, leaveType)]
	if !ok {
		return entitlement.ErrNotFound
	}
	remaining := row.annual + row.carry - row.used
	if remaining < days {
		return &entitlement.InsufficientBalanceError{Available: remaining, Requested: days}
	}
	row.used += days
	f.consumes++
	return nil
}

func (f *fakeLedger) RefundTx(_ context.Context, _ querier.Querier, userID int64, year int, leaveType string, days int) error {
	if days <= 0 {
		return nil
	}
	row, ok := f.rows[ledgerKey(userID, year, leaveType)]
	if !ok {
		return entitlement.ErrNotFound
	}
	row.used -= days
	if row.used < 0 {
		row.used = 0
	}
	f.refunds++
	return nil
}

func (f *fakeLedger) snapshot() map[string]fakeBalance {
	out := make(map[string]fakeBalance, len(f.rows))
	for k, v := range f.rows {
		out[k] = *v
	}
	return out
}

func (f *fakeLedger) restore(snap map[string]fakeBalance) {
	f.rows = make(map[string]*fakeBalance, len(snap))
	for k, v := range snap {
		copied := v
		f.rows[k] = &copied
	}
}

// fakeTxRunner mimics transactional semantics over the in-memory fakes:
// when the callback fails, both stores roll back to their prior state.
type fakeTxRunner struct {
	store  *fakeRequestStore
	ledger *fakeLedger
}

func (f *fakeTxRunner) InTx(_ context.Context, fn func(q querier.Querier) error) error {
	storeSnap := f.store.snapshot()
	ledgerSnap := f.ledger.snapshot()
	if err := fn(nil); err != nil {
		f.store.restore(storeSnap)
		f.ledger.restore(ledgerSnap)
		return err
	}
	return nil
}

type fixture struct {
	svc    *Service
	store  *fakeRequestStore
	ledger *fakeLedger
	users  *fakeUsers
}

func newFixture() *fixture {
	store := newFakeRequestStore()
	ledger := newFakeLedger()
	users := &fakeUsers{}
	svc := NewService(store, ledger, &fakeTxRunner{store: store, ledger: ledger}, NewAuthz(users, "director"), nil)
	return &fixture{svc: svc, store: store, ledger: ledger, users: users}
}

var (
	requester = auth.Actor{ID: 1, Roles: []string{auth.RoleEmployee}}
	director  = auth.Actor{ID: 50, Roles: []string{auth.RoleDirector}}
)

func draftInput(days int) CreateDraftInput {
	return CreateDraftInput{
		Type:      entitlement.TypeOrdinary,
		StartDate: date(2025, 6, 2),
		EndDate:   date(2025, 6, 1+days),
		DaysCount: days,
	}
}

func submitted(t *testing.T, f *fixture, days int) LeaveRequest {
	t.Helper()
	req, err := f.svc.CreateDraft(context.Background(), requester.ID, draftInput(days))
	if err != nil {
		t.Fatalf("create draft failed: %v", err)
	}
	req, err = f.svc.Submit(context.Background(), requester.ID, req.ID)
	if err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	return req
}

func TestSubmitOnlyByOwner(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	req, err := f.svc.CreateDraft(ctx, requester.ID, draftInput(5))
	if err != nil {
		t.Fatalf("create draft failed: %v", err)
	}

	if _, err := f.svc.Submit(ctx, 99, req.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("submitting someone else's draft must be forbidden, got %v", err)
	}
	if _, err := f.svc.Submit(ctx, requester.ID, 12345); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if _, err := f.svc.Submit(ctx, requester.ID, req.ID); err != nil {
		t.Fatalf("owner submit failed: %v", err)
	}
	if _, err := f.svc.Submit(ctx, requester.ID, req.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("double submit must fail with ErrInvalidState, got %v", err)
	}
}

func TestApproveConsumesEntitlement(t *testing.T) {
	f := newFixture()
	f.ledger.grant(requester.ID, 2025, entitlement.TypeOrdinary, 21, 0)
	req := submitted(t, f, 5)

	approved, err := f.svc.Approve(context.Background(), director, req.ID)
	if err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if approved.Status != StatusApproved {
		t.Fatalf("expected APPROVED, got %s", approved.Status)
	}
	if approved.ApprovedByID == nil || *approved.ApprovedByID != director.ID {
		t.Fatalf("approver not recorded: %+v", approved.ApprovedByID)
	}
	if used := f.ledger.used(requester.ID, 2025, entitlement.TypeOrdinary); used != 5 {
		t.Fatalf("expected 5 used days, got %d", used)
	}
}

func TestApproveTwiceConsumesOnce(t *testing.T) {
	f := newFixture()
	f.ledger.grant(requester.ID, 2025, entitlement.TypeOrdinary, 21, 0)
	req := submitted(t, f, 5)
	ctx := context.Background()

	if _, err := f.svc.Approve(ctx, director, req.ID); err != nil {
		t.Fatalf("first approve failed: %v", err)
	}
	if _, err := f.svc.Approve(ctx, director, req.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("second approve must fail with ErrInvalidState, got %v", err)
	}
	if f.ledger.consumes != 1 {
		t.Fatalf("ledger must be consumed exactly once, got %d", f.ledger.consumes)
	}
}

func TestApproveInsufficientBalanceLeavesRequestSubmitted(t *testing.T) {
	f := newFixture()
	f.ledger.grant(requester.ID, 2025, entitlement.TypeOrdinary, 21, 0)
	ctx := context.Background()

	for _, days := range []int{5, 5, 10} {
		req := submitted(t, f, days)
		if _, err := f.svc.Approve(ctx, director, req.ID); err != nil {
			t.Fatalf("approve of %d days failed: %v", days, err)
		}
	}
	if used := f.ledger.used(requester.ID, 2025, entitlement.TypeOrdinary); used != 20 {
		t.Fatalf("expected 20 used days, got %d", used)
	}

	req := submitted(t, f, 2)
	_, err := f.svc.Approve(ctx, director, req.ID)
	var insufficient *entitlement.InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if insufficient.Available != 1 || insufficient.Requested != 2 {
		t.Fatalf("expected available 1 requested 2, got %+v", insufficient)
	}

	// The whole transaction rolled back: still SUBMITTED, nothing consumed.
	after, err := f.store.GetByID(ctx, req.ID)
	if err != nil {
		t.Fatalf("get after failed approve: %v", err)
	}
	if after.Status != StatusSubmitted {
		t.Fatalf("request must stay SUBMITTED after ledger refusal, got %s", after.Status)
	}
	if used := f.ledger.used(requester.ID, 2025, entitlement.TypeOrdinary); used != 20 {
		t.Fatalf("used days must be unchanged, got %d", used)
	}
}

func TestApproveWithoutEntitlementRowFails(t *testing.T) {
	f := newFixture()
	req := submitted(t, f, 5)

	if _, err := f.svc.Approve(context.Background(), director, req.ID); !errors.Is(err, entitlement.ErrNotFound) {
		t.Fatalf("expected entitlement ErrNotFound, got %v", err)
	}
	after, _ := f.store.GetByID(context.Background(), req.ID)
	if after.Status != StatusSubmitted {
		t.Fatalf("request must stay SUBMITTED, got %s", after.Status)
	}
}

func TestApproveAuthorization(t *testing.T) {
	f := newFixture()
	f.ledger.grant(requester.ID, 2025, entitlement.TypeOrdinary, 21, 0)
	req := submitted(t, f, 5)
	ctx := context.Background()

	deputy := auth.Actor{ID: 7, Roles: []string{auth.RoleDeputyDirector}}
	if _, err := f.svc.Approve(ctx, deputy, req.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-substitute deputy must be forbidden, got %v", err)
	}

	self := int64(7)
	f.users.substituteID = &self
	if _, err := f.svc.Approve(ctx, deputy, req.ID); err != nil {
		t.Fatalf("designated substitute must approve: %v", err)
	}
}

func TestRejectKeepsReasonWhenNoneSupplied(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	original := "family trip"
	input := draftInput(5)
	input.Reason = &original
	req, err := f.svc.CreateDraft(ctx, requester.ID, input)
	if err != nil {
		t.Fatalf("create draft failed: %v", err)
	}
	if _, err := f.svc.Submit(ctx, requester.ID, req.ID); err != nil {
		t.Fatalf("submit failed: %v", err)
	}

	rejected, err := f.svc.Reject(ctx, director, req.ID, nil)
	if err != nil {
		t.Fatalf("reject failed: %v", err)
	}
	if rejected.Status != StatusRejected {
		t.Fatalf("expected REJECTED, got %s", rejected.Status)
	}
	if rejected.Reason == nil || *rejected.Reason != original {
		t.Fatalf("original reason must be kept, got %v", rejected.Reason)
	}
	if used := f.ledger.used(requester.ID, 2025, entitlement.TypeOrdinary); used != 0 {
		t.Fatalf("reject must not touch the ledger, got %d used", used)
	}
}

func TestInterruptRefundsUnusedDays(t *testing.T) {
	f := newFixture()
	f.ledger.grant(requester.ID, 2025, entitlement.TypeOrdinary, 21, 0)
	ctx := context.Background()

	req, err := f.svc.CreateDraft(ctx, requester.ID, CreateDraftInput{
		Type:      entitlement.TypeOrdinary,
		StartDate: date(2025, 6, 2),
		EndDate:   date(2025, 6, 11),
		DaysCount: 10,
	})
	if err != nil {
		t.Fatalf("create draft failed: %v", err)
	}
	if _, err := f.svc.Submit(ctx, requester.ID, req.ID); err != nil {
		t.Fatalf("submit failed: %v", err)
	}
	if _, err := f.svc.Approve(ctx, director, req.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if used := f.ledger.used(requester.ID, 2025, entitlement.TypeOrdinary); used != 10 {
		t.Fatalf("expected 10 used after approve, got %d", used)
	}

	f.svc.Now = func() time.Time { return date(2025, 6, 5) }
	result, err := f.svc.Interrupt(ctx, director, req.ID, nil)
	if err != nil {
		t.Fatalf("interrupt failed: %v", err)
	}
	if result.EffectiveDays != 3 || result.RefundDays != 7 {
		t.Fatalf("expected 3/7, got %d/%d", result.EffectiveDays, result.RefundDays)
	}
	if result.Request.Status != StatusInterrupted {
		t.Fatalf("expected INTERRUPTED, got %s", result.Request.Status)
	}
	if result.Request.InterruptedAt == nil || !result.Request.InterruptedAt.Equal(date(2025, 6, 5)) {
		t.Fatalf("interruptedAt not recorded: %v", result.Request.InterruptedAt)
	}
	if used := f.ledger.used(requester.ID, 2025, entitlement.TypeOrdinary); used != 3 {
		t.Fatalf("expected 3 used after refund, got %d", used)
	}
}

func TestInterruptSameDayRefundsEverything(t *testing.T) {
	f := newFixture()
	f.ledger.grant(requester.ID, 2025, entitlement.TypeOrdinary, 21, 0)
	ctx := context.Background()
	req := submitted(t, f, 5)
	if _, err := f.svc.Approve(ctx, director, req.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	f.svc.Now = func() time.Time { return date(2025, 6, 2) }
	result, err := f.svc.Interrupt(ctx, director, req.ID, nil)
	if err != nil {
		t.Fatalf("interrupt failed: %v", err)
	}
	if result.EffectiveDays != 0 || result.RefundDays != 5 {
		t.Fatalf("expected 0/5, got %d/%d", result.EffectiveDays, result.RefundDays)
	}
	if used := f.ledger.used(requester.ID, 2025, entitlement.TypeOrdinary); used != 0 {
		t.Fatalf("expected full refund, got %d used", used)
	}
}

func TestInterruptAfterEndRefundsNothing(t *testing.T) {
	f := newFixture()
	f.ledger.grant(requester.ID, 2025, entitlement.TypeOrdinary, 21, 0)
	ctx := context.Background()
	req := submitted(t, f, 5)
	if _, err := f.svc.Approve(ctx, director, req.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	f.svc.Now = func() time.Time { return date(2025, 8, 1) }
	result, err := f.svc.Interrupt(ctx, director, req.ID, nil)
	if err != nil {
		t.Fatalf("interrupt failed: %v", err)
	}
	if result.RefundDays != 0 {
		t.Fatalf("expected no refund, got %d", result.RefundDays)
	}
	if used := f.ledger.used(requester.ID, 2025, entitlement.TypeOrdinary); used != 5 {
		t.Fatalf("used days must be unchanged, got %d", used)
	}
}

func TestInterruptRequiresApprovedStatus(t *testing.T) {
	f := newFixture()
	req := submitted(t, f, 5)

	if _, err := f.svc.Interrupt(context.Background(), director, req.ID, nil); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("interrupting a submitted request must fail, got %v", err)
	}
}

func TestInterruptAuthorization(t *testing.T) {
	f := newFixture()
	f.ledger.grant(requester.ID, 2025, entitlement.TypeOrdinary, 21, 0)
	ctx := context.Background()
	req := submitted(t, f, 5)
	if _, err := f.svc.Approve(ctx, director, req.ID); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	if _, err := f.svc.Interrupt(ctx, requester, req.ID, nil); !errors.Is(err, ErrForbidden) {
		t.Fatalf("plain employee must not interrupt, got %v", err)
	}

	secretary := auth.Actor{ID: 30, Roles: []string{auth.RoleSecretariat}}
	if _, err := f.svc.Interrupt(ctx, secretary, req.ID, nil); err != nil {
		t.Fatalf("secretariat interrupt failed: %v", err)
	}
}

func TestListScopesPlainEmployeesToOwnRequests(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.svc.CreateDraft(ctx, 1, draftInput(3)); err != nil {
		t.Fatalf("create draft failed: %v", err)
	}
	if _, err := f.svc.CreateDraft(ctx, 2, draftInput(4)); err != nil {
		t.Fatalf("create draft failed: %v", err)
	}

	other := int64(2)
	result, err := f.svc.List(ctx, requester, Filter{RequesterID: &other}, Page{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Total != 1 {
		t.Fatalf("expected only own request, got total %d", result.Total)
	}
	if result.Items[0].RequesterID != requester.ID {
		t.Fatalf("requester filter must be forced to the actor, got %d", result.Items[0].RequesterID)
	}

	staffResult, err := f.svc.List(ctx, director, Filter{RequesterID: &other}, Page{})
	if err != nil {
		t.Fatalf("staff list failed: %v", err)
	}
	if staffResult.Total != 1 || staffResult.Items[0].RequesterID != 2 {
		t.Fatalf("staff must filter by any requester, got %+v", staffResult.Items)
	}

	// An administrator without a staff role is scoped like any employee.
	admin := auth.Actor{ID: 1, Roles: []string{auth.RoleAdministrator}}
	adminResult, err := f.svc.List(ctx, admin, Filter{RequesterID: &other}, Page{})
	if err != nil {
		t.Fatalf("admin list failed: %v", err)
	}
	if adminResult.Total != 1 || adminResult.Items[0].RequesterID != admin.ID {
		t.Fatalf("admin-only actor must be forced to own requests, got %+v", adminResult.Items)
	}
}

func TestListPaginationAndOrdering(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		if _, err := f.svc.CreateDraft(ctx, requester.ID, draftInput(2)); err != nil {
			t.Fatalf("create draft failed: %v", err)
		}
	}

	result, err := f.svc.List(ctx, requester, Filter{}, Page{})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if result.Page != 1 || result.PageSize != DefaultPageSize {
		t.Fatalf("expected defaults 1/20, got %d/%d", result.Page, result.PageSize)
	}
	if result.Total != 25 || len(result.Items) != 20 {
		t.Fatalf("expected 25 total and 20 items, got %d/%d", result.Total, len(result.Items))
	}
	// Most recent first.
	if result.Items[0].ID <= result.Items[1].ID {
		t.Fatalf("expected newest first, got ids %d then %d", result.Items[0].ID, result.Items[1].ID)
	}

	second, err := f.svc.List(ctx, requester, Filter{}, Page{Page: 2, PageSize: 20})
	if err != nil {
		t.Fatalf("second page failed: %v", err)
	}
	if len(second.Items) != 5 {
		t.Fatalf("expected 5 items on page 2, got %d", len(second.Items))
	}

	clamped, err := f.svc.List(ctx, requester, Filter{}, Page{Page: -3, PageSize: 1000})
	if err != nil {
		t.Fatalf("clamped list failed: %v", err)
	}
	if clamped.Page != 1 || clamped.PageSize != MaxPageSize {
		t.Fatalf("expected clamped to 1/100, got %d/%d", clamped.Page, clamped.PageSize)
	}
}

func TestListRejectsUnknownFilterValues(t *testing.T) {
	f := newFixture()

	_, err := f.svc.List(context.Background(), director, Filter{Status: "WAITING"}, Page{})
	var invalid *InvalidInputError
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError for status, got %v", err)
	}

	_, err = f.svc.List(context.Background(), director, Filter{Type: "SICK"}, Page{})
	if !errors.As(err, &invalid) {
		t.Fatalf("expected InvalidInputError for type, got %v", err)
	}
}
