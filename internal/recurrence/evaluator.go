package recurrence

import (
	"errors"
	"fmt"
	"time"

	"github.com/plandeck/task-planner-api/internal/models"
)

// Package recurrence holds the pure decision logic for recurring-task
// generation. Nothing here touches the database or the real clock; "now" is
// always an explicit argument so the results are deterministic.

var (
	// ErrNonPositiveInterval is returned for rules whose interval_value is
	// zero or negative. Such rules are configuration errors and must never
	// produce instances.
	ErrNonPositiveInterval = errors.New("recurrence: interval_value must be positive")

	// ErrUnknownRecurrenceType is returned when a rule carries a recurrence
	// type the evaluator does not know how to step.
	ErrUnknownRecurrenceType = errors.New("recurrence: unknown recurrence type")
)

// GenerationState says whether a rule has ever produced an instance, and if
// so when. It replaces the nullable last_generated column inside the
// evaluator so the first-instance-is-unconditional rule is explicit.
type GenerationState struct {
	at        time.Time
	generated bool
}

// NeverGenerated is the state of a rule that has not produced any instance.
func NeverGenerated() GenerationState {
	return GenerationState{}
}

// GeneratedAt is the state of a rule whose most recent instance was
// materialized at t.
func GeneratedAt(t time.Time) GenerationState {
	return GenerationState{at: t, generated: true}
}

// StateOf builds the GenerationState for a stored rule.
func StateOf(rule *models.RecurrenceRule) GenerationState {
	if rule.LastGenerated == nil {
		return NeverGenerated()
	}
	return GeneratedAt(*rule.LastGenerated)
}

// LastGenerated returns the timestamp of the most recent generation and
// whether one has ever happened.
func (s GenerationState) LastGenerated() (time.Time, bool) {
	return s.at, s.generated
}

// NextGenerationDate computes the next generation boundary strictly after
// from, stepping by the rule's type and interval only. The stored
// days_of_week/day_of_month refinement fields are intentionally not
// consulted here. Month and year steps clamp to the last valid day of the
// target month (Jan 31 + 1 month = Feb 29 in 2024, Feb 28 otherwise)
// instead of overflowing into the following month.
func NextGenerationDate(rule *models.RecurrenceRule, from time.Time) (time.Time, error) {
	if rule.IntervalValue <= 0 {
		return time.Time{}, fmt.Errorf("%w: got %d", ErrNonPositiveInterval, rule.IntervalValue)
	}

	switch rule.RecurrenceType {
	case models.RecurrenceDaily:
		return from.AddDate(0, 0, rule.IntervalValue), nil
	case models.RecurrenceWeekly:
		return from.AddDate(0, 0, rule.IntervalValue*7), nil
	case models.RecurrenceMonthly:
		return addMonthsClamped(from, rule.IntervalValue), nil
	case models.RecurrenceYearly:
		return addMonthsClamped(from, rule.IntervalValue*12), nil
	case models.RecurrenceCustom:
		// Custom rules interpret interval_value as hours.
		return from.Add(time.Duration(rule.IntervalValue) * time.Hour), nil
	default:
		return time.Time{}, fmt.Errorf("%w: %q", ErrUnknownRecurrenceType, rule.RecurrenceType)
	}
}

// IsGenerationDue decides whether a new instance should be materialized at
// now. End conditions are checked first; a rule that has never generated is
// always due; otherwise the rule is due once now reaches the next boundary
// after the last generation.
func IsGenerationDue(rule *models.RecurrenceRule, state GenerationState, now time.Time) (bool, error) {
	if rule.IntervalValue <= 0 {
		return false, fmt.Errorf("%w: got %d", ErrNonPositiveInterval, rule.IntervalValue)
	}

	if rule.EndType == models.RecurrenceEndDate && rule.EndDate != nil && now.After(*rule.EndDate) {
		return false, nil
	}

	if rule.EndType == models.RecurrenceEndCount && rule.MaxOccurrences != nil && rule.CurrentCount >= *rule.MaxOccurrences {
		return false, nil
	}

	last, generated := state.LastGenerated()
	if !generated {
		return true, nil
	}

	next, err := NextGenerationDate(rule, last)
	if err != nil {
		return false, err
	}
	return !now.Before(next), nil
}

// Window is the start/deadline pair for a new instance. Either field may be
// nil when the template has no corresponding timestamp.
type Window struct {
	Start    *time.Time
	Deadline *time.Time
}

// ComputeInstanceWindow computes the concrete timestamps for the instance
// being generated. The start lands on the next boundary after the last
// generation (or after the template's own start, for the first instance),
// with the time of day forced to match the template's start. The deadline
// preserves the template's start-to-deadline duration exactly.
func ComputeInstanceWindow(template *models.Task, rule *models.RecurrenceRule, state GenerationState) (Window, error) {
	if template.StartDatetime == nil {
		return Window{}, nil
	}

	templateStart := *template.StartDatetime
	base, generated := state.LastGenerated()
	if !generated {
		base = templateStart
	}

	next, err := NextGenerationDate(rule, base)
	if err != nil {
		return Window{}, err
	}

	start := time.Date(
		next.Year(), next.Month(), next.Day(),
		templateStart.Hour(), templateStart.Minute(), templateStart.Second(),
		0, templateStart.Location(),
	)

	window := Window{Start: &start}

	if template.DeadlineDatetime != nil {
		deadline := start.Add(template.DeadlineDatetime.Sub(templateStart))
		window.Deadline = &deadline
	}

	return window, nil
}

// addMonthsClamped advances t by the given number of calendar months,
// clamping the day of month to the last valid day of the target month.
func addMonthsClamped(t time.Time, months int) time.Time {
	firstOfTarget := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, months, 0)

	day := t.Day()
	if last := lastDayOfMonth(firstOfTarget.Year(), firstOfTarget.Month()); day > last {
		day = last
	}

	return time.Date(
		firstOfTarget.Year(), firstOfTarget.Month(), day,
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(),
		t.Location(),
	)
}

func lastDayOfMonth(year int, month time.Month) int {
	// Day zero of the following month.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
