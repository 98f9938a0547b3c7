package entitlement

import "time"

// Leave type codes, the same closed set the request workflow uses.
const (
	TypeOrdinary         = "CO"
	TypeRestCompensation = "COR"
)

func ValidType(leaveType string) bool {
	return leaveType == TypeOrdinary || leaveType == TypeRestCompensation
}

// Entitlement is one balance row per (user, year, type). usedDays is the
// only field the workflow mutates; grants overwrite annual/carryover.
type Entitlement struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userId"`
	Year          int       `json:"year"`
	Type          string    `json:"type"`
	AnnualDays    int       `json:"annualDays"`
	CarryoverDays int       `json:"carryoverDays"`
	UsedDays      int       `json:"usedDays"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (e Entitlement) Remaining() int {
	return e.AnnualDays + e.CarryoverDays - e.UsedDays
}

// Balance is the read model returned to callers.
type Balance struct {
	Year          int    `json:"year"`
	Type          string `json:"type"`
	AnnualDays    int    `json:"annualDays"`
	CarryoverDays int    `json:"carryoverDays"`
	UsedDays      int    `json:"usedDays"`
	RemainingDays int    `json:"remainingDays"`
}
