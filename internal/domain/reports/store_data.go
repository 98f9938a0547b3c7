package reports

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"concedii/internal/platform/querier"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// ListIntersecting returns every request whose [start_date, end_date]
// span touches the half-open window [start, endExclusive), with the
// requester and actor names resolved. Display names fall back to the
// username when full_name is empty.
func (s *Store) ListIntersecting(ctx context.Context, start, endExclusive time.Time, requesterID *int64) ([]Row, error) {
	builder := psql.Select(
		"r.id", "r.requester_id",
		"COALESCE(NULLIF(u.full_name, ''), u.username)",
		"r.type", "r.status",
		"r.start_date", "r.end_date", "r.days_count",
		"r.approved_by_id", "COALESCE(NULLIF(a.full_name, ''), a.username)",
		"r.interrupted_at", "r.interrupted_by_id", "COALESCE(NULLIF(i.full_name, ''), i.username)",
	).
		From("leave_requests r").
		Join("users u ON u.id = r.requester_id").
		LeftJoin("users a ON a.id = r.approved_by_id").
		LeftJoin("users i ON i.id = r.interrupted_by_id").
		Where(sq.Lt{"r.start_date": endExclusive}).
		Where(sq.Gt{"r.end_date": start}).
		OrderBy("r.start_date ASC", "r.id ASC")
	if requesterID != nil {
		builder = builder.Where(sq.Eq{"r.requester_id": *requesterID})
	}

	listSQL, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		err := rows.Scan(&r.ID, &r.RequesterID, &r.RequesterName,
			&r.Type, &r.Status,
			&r.StartDate, &r.EndDate, &r.DaysCount,
			&r.ApprovedByID, &r.ApprovedByName,
			&r.InterruptedAt, &r.InterruptedByID, &r.InterruptedByName)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// BalancesForYear returns one entry per user holding an entitlement for
// the year, both leave types folded into the same entry.
func (s *Store) BalancesForYear(ctx context.Context, year int, userID *int64) ([]UserBalances, error) {
	builder := psql.Select(
		"u.id", "u.username", "u.full_name",
		"e.type", "e.annual_days", "e.carryover_days", "e.used_days",
	).
		From("leave_entitlements e").
		Join("users u ON u.id = e.user_id").
		Where(sq.Eq{"e.year": year}).
		OrderBy("u.username ASC", "u.id ASC", "e.type ASC")
	if userID != nil {
		builder = builder.Where(sq.Eq{"e.user_id": *userID})
	}

	listSQL, args, err := builder.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Query(ctx, listSQL, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []UserBalances
	index := map[int64]int{}
	for rows.Next() {
		var (
			id                 int64
			username, fullName string
			leaveType          string
			line               BalanceLine
		)
		if err := rows.Scan(&id, &username, &fullName, &leaveType, &line.AnnualDays, &line.CarryoverDays, &line.UsedDays); err != nil {
			return nil, err
		}
		line.RemainingDays = line.AnnualDays + line.CarryoverDays - line.UsedDays

		pos, ok := index[id]
		if !ok {
			out = append(out, UserBalances{UserID: id, Username: username, FullName: fullName})
			pos = len(out) - 1
			index[id] = pos
		}
		switch leaveType {
		case "CO":
			out[pos].CO = &line
		case "COR":
			out[pos].COR = &line
		}
	}
	return out, rows.Err()
}
