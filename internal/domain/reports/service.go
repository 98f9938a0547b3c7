package reports

import (
	"context"
	"time"

	"concedii/internal/domain/auth"
	"concedii/internal/domain/leave"
)

type Service struct {
	Store StoreAPI

	// Now is swappable for tests.
	Now func() time.Time
}

func NewService(store StoreAPI) *Service {
	return &Service{Store: store, Now: time.Now}
}

// Weekly reports on the ISO week containing base, Monday through Sunday.
// A zero base means the current week.
func (s *Service) Weekly(ctx context.Context, actor auth.Actor, base time.Time) (Report, error) {
	if base.IsZero() {
		base = s.Now()
	}
	return s.build(ctx, actor, WeeklyWindow(base))
}

func (s *Service) Monthly(ctx context.Context, actor auth.Actor, year, month int) (Report, error) {
	window, err := MonthlyWindow(year, month)
	if err != nil {
		return Report{}, err
	}
	return s.build(ctx, actor, window)
}

func (s *Service) Yearly(ctx context.Context, actor auth.Actor, year int) (Report, error) {
	window, err := YearlyWindow(year)
	if err != nil {
		return Report{}, err
	}
	return s.build(ctx, actor, window)
}

func (s *Service) build(ctx context.Context, actor auth.Actor, window Interval) (Report, error) {
	scope := scopeFor(actor)

	stored, err := s.Store.ListIntersecting(ctx, window.Start, window.End, scope)
	if err != nil {
		return Report{}, err
	}

	rows := make([]Row, 0, len(stored))
	totals := Totals{ByStatus: map[string]int{}, ByType: map[string]int{}}
	for _, r := range stored {
		r.EffectiveDays = leave.EffectiveDays(leave.LeaveRequest{
			Status:        r.Status,
			StartDate:     r.StartDate,
			EndDate:       r.EndDate,
			DaysCount:     r.DaysCount,
			InterruptedAt: r.InterruptedAt,
		})
		rows = append(rows, r)

		totals.TotalRequests++
		totals.DaysRequested += r.DaysCount
		totals.EffectiveDaysApproved += r.EffectiveDays
		if r.InterruptedAt != nil {
			totals.InterruptedCount++
		}
		totals.ByStatus[r.Status]++
		totals.ByType[r.Type]++
	}

	balancesYear := window.Start.Year()
	balances, err := s.Store.BalancesForYear(ctx, balancesYear, scope)
	if err != nil {
		return Report{}, err
	}
	if balances == nil {
		balances = []UserBalances{}
	}

	return Report{
		Interval:       window,
		Totals:         totals,
		Rows:           rows,
		BalancesYear:   balancesYear,
		Balances:       balances,
		BalancesTotals: sumBalances(balances),
	}, nil
}

// scopeFor implements the report access rule: an actor whose only role
// is plain employee sees their own requests and balance, everyone with
// any further role sees the whole unit.
func scopeFor(actor auth.Actor) *int64 {
	for _, role := range actor.Roles {
		if role != auth.RoleEmployee {
			return nil
		}
	}
	own := actor.ID
	return &own
}

func sumBalances(balances []UserBalances) BalancesTotals {
	var totals BalancesTotals
	for _, b := range balances {
		if b.CO != nil {
			if totals.CO == nil {
				totals.CO = &BalanceLine{}
			}
			*totals.CO = totals.CO.add(*b.CO)
		}
		if b.COR != nil {
			if totals.COR == nil {
				totals.COR = &BalanceLine{}
			}
			*totals.COR = totals.COR.add(*b.COR)
		}
	}
	return totals
}

// WeeklyWindow is the half-open Monday-to-Monday week containing base.
func WeeklyWindow(base time.Time) Interval {
	day := time.Date(base.Year(), base.Month(), base.Day(), 0, 0, 0, 0, time.UTC)
	weekday := int(day.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	start := day.AddDate(0, 0, -(weekday - 1))
	return Interval{Start: start, End: start.AddDate(0, 0, 7)}
}

func MonthlyWindow(year, month int) (Interval, error) {
	if err := validYear(year); err != nil {
		return Interval{}, err
	}
	if month < 1 || month > 12 {
		return Interval{}, &leave.InvalidInputError{Field: "month", Reason: "must be between 1 and 12"}
	}
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return Interval{Start: start, End: start.AddDate(0, 1, 0)}, nil
}

func YearlyWindow(year int) (Interval, error) {
	if err := validYear(year); err != nil {
		return Interval{}, err
	}
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	return Interval{Start: start, End: start.AddDate(1, 0, 0)}, nil
}

func validYear(year int) error {
	if year < 2000 || year > 2100 {
		return &leave.InvalidInputError{Field: "year", Reason: "must be between 2000 and 2100"}
	}
	return nil
}
