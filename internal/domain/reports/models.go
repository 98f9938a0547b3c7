package reports

import "time"

// Row is one leave request as it appears in a report, with requester and
// actor names resolved and the effective day count computed.
type Row struct {
	ID            int64  `json:"id"`
	RequesterID   int64  `json:"requesterId"`
	RequesterName string `json:"requesterName"`

	Type   string `json:"type"`
	Status string `json:"status"`

	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	DaysCount int       `json:"daysCount"`

	ApprovedByID   *int64  `json:"approvedById,omitempty"`
	ApprovedByName *string `json:"approvedByName,omitempty"`

	InterruptedAt     *time.Time `json:"interruptedAt,omitempty"`
	InterruptedByID   *int64     `json:"interruptedById,omitempty"`
	InterruptedByName *string    `json:"interruptedByName,omitempty"`

	EffectiveDays int `json:"effectiveDays"`
}

type Totals struct {
	TotalRequests         int            `json:"totalRequests"`
	ByStatus              map[string]int `json:"byStatus"`
	ByType                map[string]int `json:"byType"`
	DaysRequested         int            `json:"daysRequested"`
	EffectiveDaysApproved int            `json:"effectiveDaysApproved"`
	InterruptedCount      int            `json:"interruptedCount"`
}

// BalanceLine mirrors one entitlement row without its identity columns.
type BalanceLine struct {
	AnnualDays    int `json:"annualDays"`
	CarryoverDays int `json:"carryoverDays"`
	UsedDays      int `json:"usedDays"`
	RemainingDays int `json:"remainingDays"`
}

func (b BalanceLine) add(other BalanceLine) BalanceLine {
	b.AnnualDays += other.AnnualDays
	b.CarryoverDays += other.CarryoverDays
	b.UsedDays += other.UsedDays
	b.RemainingDays += other.RemainingDays
	return b
}

// UserBalances holds a user's per-type balances for the report year. A
// type the user has no entitlement for stays nil.
type UserBalances struct {
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	FullName string `json:"fullName"`

	CO  *BalanceLine `json:"CO,omitempty"`
	COR *BalanceLine `json:"COR,omitempty"`
}

type BalancesTotals struct {
	CO  *BalanceLine `json:"CO,omitempty"`
	COR *BalanceLine `json:"COR,omitempty"`
}

type Interval struct {
	Start time.Time `json:"start"`
	// End is exclusive.
	End time.Time `json:"end"`
}

type Report struct {
	Interval Interval `json:"interval"`
	Totals   Totals   `json:"totals"`
	Rows     []Row    `json:"rows"`

	BalancesYear   int            `json:"balancesYear"`
	Balances       []UserBalances `json:"balances"`
	BalancesTotals BalancesTotals `json:"balancesTotals"`
}
