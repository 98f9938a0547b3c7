package metrics

import (
	"sync/atomic"
	"time"
)

type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	totalDurationMs uint64

	approvals           uint64
	rejections          uint64
	interrupts          uint64
	insufficientBalance uint64
	clampedRefunds      uint64
}

func New() *Collector {
	return &Collector{}
}

func (c *Collector) Record(status int, duration time.Duration) {
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

func (c *Collector) RecordApproval()  { atomic.AddUint64(&c.approvals, 1) }
func (c *Collector) RecordRejection() { atomic.AddUint64(&c.rejections, 1) }
func (c *Collector) RecordInterrupt() { atomic.AddUint64(&c.interrupts, 1) }

// RecordInsufficientBalance counts approvals refused by the ledger.
func (c *Collector) RecordInsufficientBalance() {
	atomic.AddUint64(&c.insufficientBalance, 1)
}

// RecordClampedRefund counts refunds that hit the zero floor, a likely
// sign of a caller bug such as a double interrupt.
func (c *Collector) RecordClampedRefund() {
	atomic.AddUint64(&c.clampedRefunds, 1)
}

func (c *Collector) Snapshot() map[string]any {
	total := atomic.LoadUint64(&c.totalRequests)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}
	return map[string]any{
		"requestsTotal":            total,
		"errorsTotal":              atomic.LoadUint64(&c.errorRequests),
		"avgDurationMs":            avg,
		"approvalsTotal":           atomic.LoadUint64(&c.approvals),
		"rejectionsTotal":          atomic.LoadUint64(&c.rejections),
		"interruptsTotal":          atomic.LoadUint64(&c.interrupts),
		"insufficientBalanceTotal": atomic.LoadUint64(&c.insufficientBalance),
		"clampedRefundsTotal":      atomic.LoadUint64(&c.clampedRefunds),
	}
}
