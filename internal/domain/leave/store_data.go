package leave

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"concedii/internal/platform/querier"
)

const requestColumns = "id, requester_id, type, start_date, end_date, days_count, status, reason, approved_by_id, interrupted_by_id, interrupted_at, created_at, updated_at"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func scanRequest(row pgx.Row) (LeaveRequest, error) {
	var r LeaveRequest
	err := row.Scan(&r.ID, &r.RequesterID, &r.Type, &r.StartDate, &r.EndDate, &r.DaysCount, &r.Status,
		&r.Reason, &r.ApprovedByID, &r.InterruptedByID, &r.InterruptedAt, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

func (s *Store) Create(ctx context.Context, requesterID int64, input CreateDraftInput) (LeaveRequest, error) {
	row := s.DB.QueryRow(ctx, `
    INSERT INTO leave_requests (requester_id, type, start_date, end_date, days_count, status, reason)
    VALUES ($1, $2, $3, $4, $5, $6, $7)
    RETURNING `+requestColumns+`
  `, requesterID, input.Type, input.StartDate, input.EndDate, input.DaysCount, StatusDraft, input.Reason)
	return scanRequest(row)
}

func (s *Store) GetByID(ctx context.Context, id int64) (LeaveRequest, error) {
	row := s.DB.QueryRow(ctx, `
    SELECT `+requestColumns+`
    FROM leave_requests
    WHERE id = $1
  `, id)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, ErrNotFound
	}
	if err != nil {
		return LeaveRequest{}, err
	}
	return req, nil
}

// Submit moves a draft to SUBMITTED. The status guard in the WHERE clause
// makes a concurrent double submit lose cleanly.
func (s *Store) Submit(ctx context.Context, id int64) (LeaveRequest, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE leave_requests
    SET status = $1, updated_at = now()
    WHERE id = $2 AND status = $3
    RETURNING `+requestColumns+`
  `, StatusSubmitted, id, StatusDraft)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, ErrInvalidState
	}
	if err != nil {
		return LeaveRequest{}, err
	}
	return req, nil
}

func (s *Store) Reject(ctx context.Context, id, rejecterID int64, reason *string) (LeaveRequest, error) {
	row := s.DB.QueryRow(ctx, `
    UPDATE leave_requests
    SET status = $1, approved_by_id = $2, reason = COALESCE($3, reason), updated_at = now()
    WHERE id = $4 AND status = $5
    RETURNING `+requestColumns+`
  `, StatusRejected, rejecterID, reason, id, StatusSubmitted)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, ErrInvalidState
	}
	if err != nil {
		return LeaveRequest{}, err
	}
	return req, nil
}

// ApproveTx flips SUBMITTED to APPROVED inside the caller's transaction.
// Zero rows means the status changed underneath us; the transaction then
// aborts before the ledger is touched.
func (s *Store) ApproveTx(ctx context.Context, q querier.Querier, id, approverID int64) (LeaveRequest, error) {
	row := q.QueryRow(ctx, `
    UPDATE leave_requests
    SET status = $1, approved_by_id = $2, updated_at = now()
    WHERE id = $3 AND status = $4
    RETURNING `+requestColumns+`
  `, StatusApproved, approverID, id, StatusSubmitted)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, ErrInvalidState
	}
	if err != nil {
		return LeaveRequest{}, err
	}
	return req, nil
}

func (s *Store) InterruptTx(ctx context.Context, q querier.Querier, id, actorID int64, at time.Time, reason *string) (LeaveRequest, error) {
	row := q.QueryRow(ctx, `
    UPDATE leave_requests
    SET status = $1, interrupted_by_id = $2, interrupted_at = $3, reason = COALESCE($4, reason), updated_at = now()
    WHERE id = $5 AND status = $6
    RETURNING `+requestColumns+`
  `, StatusInterrupted, actorID, at, reason, id, StatusApproved)
	req, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return LeaveRequest{}, ErrInvalidState
	}
	if err != nil {
		return LeaveRequest{}, err
	}
	return req, nil
}

func (s *Store) List(ctx context.Context, filter Filter, limit, offset int) ([]LeaveRequest, int, error) {
	where := filterConditions(filter)

	countSQL, countArgs, err := psql.Select("COUNT(1)").From("leave_requests").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := s.DB.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listSQL, listArgs, err := psql.Select(requestColumns).
		From("leave_requests").
		Where(where).
		OrderBy("created_at DESC", "id DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := s.DB.Query(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []LeaveRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, req)
	}
	return items, total, rows.Err()
}

func filterConditions(filter Filter) sq.And {
	conds := sq.And{}
	if filter.RequesterID != nil {
		conds = append(conds, sq.Eq{"requester_id": *filter.RequesterID})
	}
	if filter.Status != "" {
		conds = append(conds, sq.Eq{"status": filter.Status})
	}
	if filter.Type != "" {
		conds = append(conds, sq.Eq{"type": filter.Type})
	}
	if !filter.StartFrom.IsZero() {
		conds = append(conds, sq.GtOrEq{"start_date": filter.StartFrom})
	}
	if !filter.StartTo.IsZero() {
		conds = append(conds, sq.LtOrEq{"start_date": filter.StartTo})
	}
	if len(conds) == 0 {
		conds = append(conds, sq.Expr("TRUE"))
	}
	return conds
}
