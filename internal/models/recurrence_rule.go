package models

import "time"

type RecurrenceType string

const (
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceYearly  RecurrenceType = "yearly"
	RecurrenceCustom  RecurrenceType = "custom"
)

type RecurrenceEndType string

const (
	RecurrenceEndNever RecurrenceEndType = "never"
	RecurrenceEndDate  RecurrenceEndType = "date"
	RecurrenceEndCount RecurrenceEndType = "count"
)

// ValidRecurrenceType reports whether t is one of the known recurrence types.
func ValidRecurrenceType(t RecurrenceType) bool {
	switch t {
	case RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly, RecurrenceCustom:
		return true
	}
	return false
}

// ValidRecurrenceEndType reports whether t is one of the known end conditions.
func ValidRecurrenceEndType(t RecurrenceEndType) bool {
	switch t {
	case RecurrenceEndNever, RecurrenceEndDate, RecurrenceEndCount:
		return true
	}
	return false
}

// RecurrenceRule configures the cadence of a recurring template, one-to-one
// with its task. IntervalValue is interpreted by RecurrenceType: days, weeks,
// months, years, or hours for "custom". DaysOfWeek/DayOfMonth/WeekOfMonth/
// MonthOfYear are stored for rule editing but not consulted when stepping
// dates; see internal/recurrence.
type RecurrenceRule struct {
	ID             uint64            `gorm:"primarykey" json:"id"`
	TaskID         uint64            `gorm:"uniqueIndex;not null" json:"task_id"`
	RecurrenceType RecurrenceType    `gorm:"type:varchar(20);not null" json:"recurrence_type"`
	IntervalValue  int               `gorm:"not null;default:1" json:"interval_value"`
	DaysOfWeek     *string           `gorm:"type:varchar(32)" json:"days_of_week"`
	DayOfMonth     *int              `json:"day_of_month"`
	WeekOfMonth    *int              `json:"week_of_month"`
	MonthOfYear    *int              `json:"month_of_year"`
	EndType        RecurrenceEndType `gorm:"type:varchar(10);not null;default:'never'" json:"end_type"`
	EndDate        *time.Time        `json:"end_date"`
	MaxOccurrences *int              `json:"max_occurrences"`
	CurrentCount   int               `gorm:"not null;default:0" json:"current_count"`
	LastGenerated  *time.Time        `json:"last_generated"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
