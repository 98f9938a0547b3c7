package reports

import (
	"context"
	"time"

	"concedii/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

type StoreAPI interface {
	ListIntersecting(ctx context.Context, start, endExclusive time.Time, requesterID *int64) ([]Row, error)
	BalancesForYear(ctx context.Context, year int, userID *int64) ([]UserBalances, error)
}
