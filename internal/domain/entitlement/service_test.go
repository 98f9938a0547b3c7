package entitlement

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"concedii/internal/platform/querier"
)

type fakeStore struct {
	rows   map[string]*Entitlement
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{rows: map[string]*Entitlement{}, nextID: 1}
}

func key(userID int64, year int, leaveType string) string {
	return fmt.Sprintf("%d/%d/%s", userID, year, leaveType)
}

func (f *fakeStore) GetForUpdateTx(_ context.Context, _ querier.Querier, userID int64, year int, leaveType string) (Entitlement, error) {
	row, ok := f.rows[key(userID, year, leaveType)]
	if !ok {
		return Entitlement{}, ErrNotFound
	}
	return *row, nil
}

func (f *fakeStore) AddUsedTx(_ context.Context, _ querier.Querier, id int64, delta int) error {
	for _, row := range f.rows {
		if row.ID == id {
			row.UsedDays += delta
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) SetUsedTx(_ context.Context, _ querier.Querier, id int64, used int) error {
	for _, row := range f.rows {
		if row.ID == id {
			row.UsedDays = used
			return nil
		}
	}
	return ErrNotFound
}

func (f *fakeStore) Upsert(_ context.Context, userID int64, year int, leaveType string, annualDays, carryoverDays int) (Entitlement, error) {
	k := key(userID, year, leaveType)
	row, ok := f.rows[k]
	if !ok {
		row = &Entitlement{ID: f.nextID, UserID: userID, Year: year, Type: leaveType}
		f.nextID++
		f.rows[k] = row
	}
	row.AnnualDays = annualDays
	row.CarryoverDays = carryoverDays
	row.UpdatedAt = time.Now()
	return *row, nil
}

func (f *fakeStore) ListByUserYear(_ context.Context, userID int64, year int) ([]Entitlement, error) {
	var out []Entitlement
	for _, row := range f.rows {
		if row.UserID == userID && row.Year == year {
			out = append(out, *row)
		}
	}
	return out, nil
}

func TestConsumeDebitsUsedDays(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	if _, err := svc.UpsertGrant(ctx, 1, 2025, TypeOrdinary, 21, 0); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	if err := svc.ConsumeTx(ctx, nil, 1, 2025, TypeOrdinary, 5); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	balances, err := svc.GetBalance(ctx, 1, 2025)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if len(balances) != 1 {
		t.Fatalf("expected 1 balance, got %d", len(balances))
	}
	if balances[0].UsedDays != 5 || balances[0].RemainingDays != 16 {
		t.Fatalf("expected used 5 remaining 16, got used %d remaining %d", balances[0].UsedDays, balances[0].RemainingDays)
	}
}

func TestConsumeInsufficientBalance(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	if _, err := svc.UpsertGrant(ctx, 1, 2025, TypeOrdinary, 21, 0); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	for _, days := range []int{5, 5, 10} {
		if err := svc.ConsumeTx(ctx, nil, 1, 2025, TypeOrdinary, days); err != nil {
			t.Fatalf("consume %d failed: %v", days, err)
		}
	}

	err := svc.ConsumeTx(ctx, nil, 1, 2025, TypeOrdinary, 2)
	var insufficient *InsufficientBalanceError
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}
	if insufficient.Available != 1 || insufficient.Requested != 2 {
		t.Fatalf("expected available 1 requested 2, got %+v", insufficient)
	}

	balances, _ := svc.GetBalance(ctx, 1, 2025)
	if balances[0].UsedDays != 20 {
		t.Fatalf("failed consume must not change used days, got %d", balances[0].UsedDays)
	}
}

func TestConsumeNoEntitlement(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	err := svc.ConsumeTx(context.Background(), nil, 9, 2025, TypeOrdinary, 1)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestConsumeNonPositiveIsNoop(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	if err := svc.ConsumeTx(ctx, nil, 1, 2025, TypeOrdinary, 0); err != nil {
		t.Fatalf("zero-day consume should be a no-op even without a row: %v", err)
	}
	if err := svc.RefundTx(ctx, nil, 1, 2025, TypeOrdinary, -3); err != nil {
		t.Fatalf("negative refund should be a no-op: %v", err)
	}
}

func TestRefundClampsAtZero(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	if _, err := svc.UpsertGrant(ctx, 1, 2025, TypeOrdinary, 21, 0); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if err := svc.ConsumeTx(ctx, nil, 1, 2025, TypeOrdinary, 4); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	if err := svc.RefundTx(ctx, nil, 1, 2025, TypeOrdinary, 10); err != nil {
		t.Fatalf("over-refund must not error: %v", err)
	}

	balances, _ := svc.GetBalance(ctx, 1, 2025)
	if balances[0].UsedDays != 0 {
		t.Fatalf("expected used days clamped to 0, got %d", balances[0].UsedDays)
	}
	if balances[0].RemainingDays != 21 {
		t.Fatalf("expected remaining 21, got %d", balances[0].RemainingDays)
	}
}

func TestUpsertGrantPreservesUsedDays(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	if _, err := svc.UpsertGrant(ctx, 1, 2025, TypeOrdinary, 21, 2); err != nil {
		t.Fatalf("grant failed: %v", err)
	}
	if err := svc.ConsumeTx(ctx, nil, 1, 2025, TypeOrdinary, 7); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	ent, err := svc.UpsertGrant(ctx, 1, 2025, TypeOrdinary, 25, 0)
	if err != nil {
		t.Fatalf("re-grant failed: %v", err)
	}
	if ent.UsedDays != 7 {
		t.Fatalf("grant must not touch used days, got %d", ent.UsedDays)
	}
	if ent.AnnualDays != 25 || ent.CarryoverDays != 0 {
		t.Fatalf("grant must overwrite annual/carryover, got %d/%d", ent.AnnualDays, ent.CarryoverDays)
	}
}

func TestUpsertGrantRejectsNegative(t *testing.T) {
	svc := NewService(newFakeStore(), nil)

	if _, err := svc.UpsertGrant(context.Background(), 1, 2025, TypeOrdinary, -1, 0); !errors.Is(err, ErrNegativeDays) {
		t.Fatalf("expected ErrNegativeDays, got %v", err)
	}
	if _, err := svc.UpsertGrant(context.Background(), 1, 2025, TypeOrdinary, 21, -2); !errors.Is(err, ErrNegativeDays) {
		t.Fatalf("expected ErrNegativeDays, got %v", err)
	}
}

func TestGetBalanceOmitsAbsentTypes(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, nil)
	ctx := context.Background()

	if _, err := svc.UpsertGrant(ctx, 1, 2025, TypeOrdinary, 21, 0); err != nil {
		t.Fatalf("grant failed: %v", err)
	}

	balances, err := svc.GetBalance(ctx, 1, 2025)
	if err != nil {
		t.Fatalf("get balance failed: %v", err)
	}
	if len(balances) != 1 || balances[0].Type != TypeOrdinary {
		t.Fatalf("expected only the CO balance, got %+v", balances)
	}
}
