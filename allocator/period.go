package allocator

import (
	"fmt"
	"time"
)

// Week is the length of an incentives period
const Week = 7 * 24 * time.Hour

// Period is the half-open interval [From, To)
type Period struct {
	From time.Time
	To   time.Time
}

// NewWeeklyPeriod returns the UTC week, starting Monday 00:00, that contains t
func NewWeeklyPeriod(t time.Time) Period {
	t = t.UTC()
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	from := time.Date(t.Year(), t.Month(), t.Day()-daysSinceMonday, 0, 0, 0, 0, time.UTC)
	return Period{From: from, To: from.Add(Week)}
}

// Validate rejects empty or inverted periods
func (p Period) Validate() error {
	if p.From.IsZero() || p.To.IsZero() {
		return fmt.Errorf("%w: both bounds are required", ErrInvalidPeriod)
	}
	if !p.To.After(p.From) {
		return fmt.Errorf("%w: end %s is not after start %s", ErrInvalidPeriod, p.To.Format(time.RFC3339), p.From.Format(time.RFC3339))
	}
	return nil
}

func (p Period) String() string {
	return p.From.UTC().Format(time.DateOnly) + ".." + p.To.UTC().Format(time.DateOnly)
}

// ParsePeriod returns the week containing the YYYY-MM-DD date s.
// An empty s selects the last full week before now.
func ParsePeriod(s string, now time.Time) (Period, error) {
	if s == "" {
		return NewWeeklyPeriod(now.UTC().Add(-Week)), nil
	}

	day, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return Period{}, fmt.Errorf("%w: %w", ErrInvalidPeriod, err)
	}

	period := NewWeeklyPeriod(day)
	if period.To.After(now) {
		return Period{}, fmt.Errorf("%w: week %s has not ended", ErrInvalidPeriod, period)
	}
	return period, nil
}
