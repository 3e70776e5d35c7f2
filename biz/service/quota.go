package service

import (
	"context"
	"time"

	"github.com/yi-nology/photo_bridge/pkg/metrics"
)

// QuotaLimits are per-user byte budgets. Zero disables a window.
type QuotaLimits struct {
	PerDay   int64
	PerMonth int64
}

// QuotaUsage is the derived usage of one user.
type QuotaUsage struct {
	Day        int64 `json:"day_bytes"`
	Month      int64 `json:"month_bytes"`
	DayLimit   int64 `json:"day_limit_bytes"`
	MonthLimit int64 `json:"month_limit_bytes"`
}

// QuotaGuard rejects uploads that would exceed a user's daily or monthly budget.
// Usage is recomputed from the Catalog on each check and is not locked, so two
// concurrent uploads by one user may both pass and jointly exceed a limit.
type QuotaGuard struct {
	catalog Catalog
	limits  QuotaLimits
	now     func() time.Time
}

func NewQuotaGuard(catalog Catalog, limits QuotaLimits) *QuotaGuard {
	return &QuotaGuard{catalog: catalog, limits: limits, now: time.Now}
}

// Check returns nil when incoming bytes fit both windows, otherwise a
// *QuotaExceededError. The day window is checked first.
func (g *QuotaGuard) Check(ctx context.Context, userID uint, incoming int64) error {
	if g.limits.PerDay <= 0 && g.limits.PerMonth <= 0 {
		return nil
	}
	now := g.now()

	if g.limits.PerDay > 0 {
		from, to := dayWindow(now)
		used, err := g.catalog.SumBytesForUserInWindow(ctx, userID, from, to)
		if err != nil {
			return err
		}
		if err := exceeds(WindowDay, g.limits.PerDay, used, incoming); err != nil {
			return err
		}
	}
	if g.limits.PerMonth > 0 {
		from, to := monthWindow(now)
		used, err := g.catalog.SumBytesForUserInWindow(ctx, userID, from, to)
		if err != nil {
			return err
		}
		if err := exceeds(WindowMonth, g.limits.PerMonth, used, incoming); err != nil {
			return err
		}
	}
	return nil
}

// Usage reports both windows for the user.
func (g *QuotaGuard) Usage(ctx context.Context, userID uint) (*QuotaUsage, error) {
	now := g.now()
	dayFrom, dayTo := dayWindow(now)
	day, err := g.catalog.SumBytesForUserInWindow(ctx, userID, dayFrom, dayTo)
	if err != nil {
		return nil, err
	}
	monthFrom, monthTo := monthWindow(now)
	month, err := g.catalog.SumBytesForUserInWindow(ctx, userID, monthFrom, monthTo)
	if err != nil {
		return nil, err
	}
	return &QuotaUsage{
		Day:        day,
		Month:      month,
		DayLimit:   g.limits.PerDay,
		MonthLimit: g.limits.PerMonth,
	}, nil
}

func exceeds(window QuotaWindow, limit, used, incoming int64) error {
	if used+incoming <= limit {
		return nil
	}
	metrics.QuotaRejections.WithLabelValues(string(window)).Inc()
	return &QuotaExceededError{Window: window, Limit: limit, Used: used, Incoming: incoming}
}

// dayWindow is [00:00 today, 00:00 tomorrow) in now's location.
func dayWindow(now time.Time) (time.Time, time.Time) {
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 0, 1)
}

// monthWindow is [1st of this month, 1st of next month) in now's location.
func monthWindow(now time.Time) (time.Time, time.Time) {
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 1, 0)
}
