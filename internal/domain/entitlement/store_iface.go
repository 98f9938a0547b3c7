package entitlement

import (
	"context"

	"concedii/internal/platform/querier"
)

type StoreAPI interface {
	GetForUpdateTx(ctx context.Context, q querier.Querier, userID int64, year int, leaveType string) (Entitlement, error)
	AddUsedTx(ctx context.Context, q querier.Querier, id int64, delta int) error
	SetUsedTx(ctx context.Context, q querier.Querier, id int64, used int) error
	Upsert(ctx context.Context, userID int64, year int, leaveType string, annualDays, carryoverDays int) (Entitlement, error)
	ListByUserYear(ctx context.Context, userID int64, year int) ([]Entitlement, error)
}
