package domain

import (
	"time"

	"github.com/google/uuid"
)

// Frequency is the recurrence cadence of a RecurringRule.
type Frequency string

const (
	FrequencyDaily    Frequency = "daily"
	FrequencyWeekly   Frequency = "weekly"
	FrequencyBiweekly Frequency = "biweekly"
	FrequencyMonthly  Frequency = "monthly"
	FrequencyYearly   Frequency = "yearly"
)

// ValidFrequency reports whether f is one of the five recognized cadences.
func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyBiweekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// RecurringRule materializes an Expense on a schedule. It owns
// RecurringPayers and RecurringSplits that mirror ExpensePayer/
// ExpenseItemMember for the rule's single implicit item.
type RecurringRule struct {
	ID              uuid.UUID  `json:"id"`
	GroupID         uuid.UUID  `json:"groupId"`
	CreatorID       uuid.UUID  `json:"creatorMemberId"`
	Name            string     `json:"name"`
	Category        *string    `json:"category,omitempty"`
	AmountCents     int64      `json:"amountMinorUnits"`
	Currency        string     `json:"currency"`
	Frequency       Frequency  `json:"frequency"`
	DayOfWeek       *int       `json:"dayOfWeek,omitempty"`   // 0=Sunday..6=Saturday
	DayOfMonth      *int       `json:"dayOfMonth,omitempty"`  // 1..31, clamped to month length
	MonthOfYear     *int       `json:"monthOfYear,omitempty"` // 1..12
	StartDate       time.Time  `json:"startDate"`
	EndDate         *time.Time `json:"endDate,omitempty"`
	NextOccurrence  time.Time  `json:"nextOccurrence"`
	LastGeneratedAt *time.Time `json:"lastGeneratedAt,omitempty"`
	IsActive        bool       `json:"isActive"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`

	Payers []RecurringPayer `json:"payers"`
	Splits []RecurringSplit `json:"splits"`
}

// RecurringPayer mirrors ExpensePayer for the rule's materialized expense.
type RecurringPayer struct {
	ID              uuid.UUID `json:"id"`
	RecurringRuleID uuid.UUID `json:"recurringRuleId"`
	MemberID        uuid.UUID `json:"memberId"`
	AmountCents     int64     `json:"amountMinorUnits"`
}

// RecurringSplit mirrors ExpenseItemMember for the rule's implicit item.
type RecurringSplit struct {
	ID              uuid.UUID `json:"id"`
	RecurringRuleID uuid.UUID `json:"recurringRuleId"`
	MemberID        uuid.UUID `json:"memberId"`
	ShareMode       ShareMode `json:"shareMode"`
	Weight          *int64    `json:"weight,omitempty"`
	ExactCents      *int64    `json:"exactMinorUnits,omitempty"`
}

// lastDayOfMonth returns the number of days in the month containing t.
func lastDayOfMonth(t time.Time) int {
	firstOfNextMonth := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
	lastOfThisMonth := firstOfNextMonth.AddDate(0, 0, -1)
	return lastOfThisMonth.Day()
}

// clampDay returns day clamped to the last valid day of the month
// containing t, preserving t's year/month/time-of-day.
func clampDay(t time.Time, day int) time.Time {
	last := lastDayOfMonth(t)
	if day > last {
		day = last
	}
	if day < 1 {
		day = 1
	}
	return time.Date(t.Year(), t.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

// snapForwardToWeekday advances t forward (never backward) to the next
// date whose weekday equals dayOfWeek, or returns t unchanged if it already
// matches.
func snapForwardToWeekday(t time.Time, dayOfWeek int) time.Time {
	delta := (dayOfWeek - int(t.Weekday()) + 7) % 7
	if delta == 0 {
		return t
	}
	return t.AddDate(0, 0, delta)
}

// Advance computes the rule's next occurrence after its current
// NextOccurrence. It does not mutate the rule; callers assign the
// result back to NextOccurrence inside the generation transaction.
func (r *RecurringRule) Advance() time.Time {
	from := r.NextOccurrence
	switch r.Frequency {
	case FrequencyDaily:
		return from.AddDate(0, 0, 1)

	case FrequencyWeekly:
		next := from.AddDate(0, 0, 7)
		if r.DayOfWeek != nil {
			next = snapForwardToWeekday(next, *r.DayOfWeek)
		}
		return next

	case FrequencyBiweekly:
		next := from.AddDate(0, 0, 14)
		if r.DayOfWeek != nil {
			next = snapForwardToWeekday(next, *r.DayOfWeek)
		}
		return next

	case FrequencyMonthly:
		// Advance on a day-1 basis first, then clamp the day separately:
		// from.AddDate(0,1,0) would overflow a day like 31 straight through
		// a short target month (Go's AddDate normalizes day overflow by
		// rolling into the following month), which silently skips the
		// clamp this rule needs.
		day := from.Day()
		if r.DayOfMonth != nil {
			day = *r.DayOfMonth
		}
		next := time.Date(from.Year(), from.Month()+1, 1, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
		return clampDay(next, day)

	case FrequencyYearly:
		month := from.Month()
		if r.MonthOfYear != nil {
			month = time.Month(*r.MonthOfYear)
		}
		day := from.Day()
		if r.DayOfMonth != nil {
			day = *r.DayOfMonth
		}
		next := time.Date(from.Year()+1, month, 1, from.Hour(), from.Minute(), from.Second(), from.Nanosecond(), from.Location())
		return clampDay(next, day)

	default:
		return from.AddDate(0, 0, 1)
	}
}

// IsDue reports whether the rule should be considered for generation as of
// now: active and at or past its next occurrence. EndDate is not consulted
// here; HasExpired covers it.
func (r *RecurringRule) IsDue(now time.Time) bool {
	if !r.IsActive {
		return false
	}
	return !r.NextOccurrence.After(now)
}

// HasExpired reports whether the rule's EndDate has passed as of now.
func (r *RecurringRule) HasExpired(now time.Time) bool {
	return r.EndDate != nil && r.EndDate.Before(now)
}

// RecurringRuleRepository defines persistence operations for RecurringRule
// and its owned payers/splits.
type RecurringRuleRepository interface {
	GetByID(id uuid.UUID) (*RecurringRule, error)
	ListByGroup(groupID uuid.UUID) ([]*RecurringRule, error)
	ListDue(now time.Time) ([]*RecurringRule, error)
	Create(rule *RecurringRule) (*RecurringRule, error)
	Update(rule *RecurringRule) (*RecurringRule, error)
	Delete(id uuid.UUID) error
	Deactivate(id uuid.UUID) error
	// AdvanceAndRecordGeneration atomically advances nextOccurrence,
	// records lastGeneratedAt, and enforces the (ruleId, occurrence)
	// idempotency key so two racing sweeps can't both materialize the same
	// occurrence. Returns ErrDuplicateOccurrence if the
	// occurrence was already recorded.
	AdvanceAndRecordGeneration(ruleID uuid.UUID, occurrence time.Time, nextOccurrence time.Time, generatedAt time.Time) error
}
