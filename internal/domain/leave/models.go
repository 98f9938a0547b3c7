package leave

import "time"

// Request statuses. CANCELLED is part of the domain but no transition
// produces it yet; it is reserved, not wired.
const (
	StatusDraft       = "DRAFT"
	StatusSubmitted   = "SUBMITTED"
	StatusApproved    = "APPROVED"
	StatusRejected    = "REJECTED"
	StatusCancelled   = "CANCELLED"
	StatusInterrupted = "INTERRUPTED"
)

var ValidStatuses = []string{
	StatusDraft,
	StatusSubmitted,
	StatusApproved,
	StatusRejected,
	StatusCancelled,
	StatusInterrupted,
}

type LeaveRequest struct {
	ID              int64      `json:"id"`
	RequesterID     int64      `json:"requesterId"`
	Type            string     `json:"type"`
	StartDate       time.Time  `json:"startDate"`
	EndDate         time.Time  `json:"endDate"`
	DaysCount       int        `json:"daysCount"`
	Status          string     `json:"status"`
	Reason          *string    `json:"reason,omitempty"`
	ApprovedByID    *int64     `json:"approvedById,omitempty"`
	InterruptedByID *int64     `json:"interruptedById,omitempty"`
	InterruptedAt   *time.Time `json:"interruptedAt,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type CreateDraftInput struct {
	Type      string
	StartDate time.Time
	EndDate   time.Time
	DaysCount int
	Reason    *string
}

// Filter narrows List results. Zero values mean "no constraint"; the
// access rule in Service.List forces RequesterID for plain employees.
type Filter struct {
	RequesterID *int64
	Status      string
	Type        string
	StartFrom   time.Time
	StartTo     time.Time
}

type Page struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps paging to page >= 1 and pageSize within [1, 100],
// defaulting pageSize to 20.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
	return p
}

func (p Page) Offset() int {
	return (p.Page - 1) * p.PageSize
}

type ListResult struct {
	Items    []LeaveRequest `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
}

// InterruptResult reports the day arithmetic alongside the updated
// request so callers can show what was kept and what was refunded.
type InterruptResult struct {
	Request       LeaveRequest `json:"request"`
	EffectiveDays int          `json:"effectiveDays"`
	RefundDays    int          `json:"refundDays"`
}
