package leave

import (
	"context"
	"time"

	"concedii/internal/platform/querier"
)

type StoreAPI interface {
	Create(ctx context.Context, requesterID int64, input CreateDraftInput) (LeaveRequest, error)
	GetByID(ctx context.Context, id int64) (LeaveRequest, error)
	Submit(ctx context.Context, id int64) (LeaveRequest, error)
	Reject(ctx context.Context, id, rejecterID int64, reason *string) (LeaveRequest, error)
	ApproveTx(ctx context.Context, q querier.Querier, id, approverID int64) (LeaveRequest, error)
	InterruptTx(ctx context.Context, q querier.Querier, id, actorID int64, at time.Time, reason *string) (LeaveRequest, error)
	List(ctx context.Context, filter Filter, limit, offset int) ([]LeaveRequest, int, error)
}
