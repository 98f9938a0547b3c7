package leave

import (
	"time"

	"concedii/internal/domain/entitlement"
)

// ValidateDraft checks caller-supplied draft fields. Day counts come from
// the caller; the core does not compute business-day spans.
func ValidateDraft(input CreateDraftInput) error {
	if !entitlement.ValidType(input.Type) {
		return invalidInput("type", "must be CO or COR")
	}
	if input.DaysCount <= 0 {
		return invalidInput("daysCount", "must be greater than zero")
	}
	if input.StartDate.IsZero() || input.EndDate.IsZero() {
		return invalidInput("startDate", "start and end dates are required")
	}
	if input.EndDate.Before(input.StartDate) {
		return invalidInput("endDate", "must be on or after startDate")
	}
	if input.StartDate.Year() != input.EndDate.Year() {
		return invalidInput("endDate", "request must not span calendar years; split it into one request per year")
	}
	return nil
}

// DiffDays returns the elapsed calendar days between start and end,
// rounded up, never negative. A same-instant interruption yields zero.
func DiffDays(start, end time.Time) int {
	elapsed := end.Sub(start)
	if elapsed <= 0 {
		return 0
	}
	days := int(elapsed / (24 * time.Hour))
	if elapsed%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// InterruptOutcome computes the days actually spent and the days owed
// back when an approved request is cut short at `now`. The effective end
// is clamped to the original end date, so a late interruption refunds
// nothing.
func InterruptOutcome(req LeaveRequest, now time.Time) (effectiveDays, refundDays int) {
	// The end date is inclusive: the leave runs until the end of that day.
	limit := req.EndDate.AddDate(0, 0, 1)
	effectiveEnd := now
	if limit.Before(effectiveEnd) {
		effectiveEnd = limit
	}
	effectiveDays = DiffDays(req.StartDate, effectiveEnd)
	refundDays = req.DaysCount - effectiveDays
	if refundDays < 0 {
		refundDays = 0
	}
	return effectiveDays, refundDays
}

// EffectiveDays is the reporting-side view of how many days a request
// actually covered, given its final status.
func EffectiveDays(req LeaveRequest) int {
	if req.Status == StatusInterrupted && req.InterruptedAt != nil {
		days, _ := InterruptOutcome(req, *req.InterruptedAt)
		return days
	}
	if req.Status == StatusApproved {
		return req.DaysCount
	}
	return 0
}
