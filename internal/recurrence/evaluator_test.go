package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plandeck/task-planner-api/internal/models"
)

func mustParse(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func timePtr(t time.Time) *time.Time { return &t }
func intPtr(v int) *int              { return &v }

func dailyRule(interval int) *models.RecurrenceRule {
	return &models.RecurrenceRule{
		RecurrenceType: models.RecurrenceDaily,
		IntervalValue:  interval,
		EndType:        models.RecurrenceEndNever,
	}
}

func TestNextGenerationDate_Stepping(t *testing.T) {
	from := mustParse(t, "2024-01-01T09:00:00Z")

	tests := []struct {
		name     string
		ruleType models.RecurrenceType
		interval int
		want     string
	}{
		{"daily single", models.RecurrenceDaily, 1, "2024-01-02T09:00:00Z"},
		{"daily multi", models.RecurrenceDaily, 3, "2024-01-04T09:00:00Z"},
		{"weekly", models.RecurrenceWeekly, 2, "2024-01-15T09:00:00Z"},
		{"monthly", models.RecurrenceMonthly, 1, "2024-02-01T09:00:00Z"},
		{"yearly", models.RecurrenceYearly, 1, "2025-01-01T09:00:00Z"},
		{"custom hours", models.RecurrenceCustom, 6, "2024-01-01T15:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &models.RecurrenceRule{RecurrenceType: tt.ruleType, IntervalValue: tt.interval}
			got, err := NextGenerationDate(rule, from)
			require.NoError(t, err)
			assert.Equal(t, mustParse(t, tt.want), got)
		})
	}
}

func TestNextGenerationDate_MonthEndClamps(t *testing.T) {
	tests := []struct {
		name     string
		ruleType models.RecurrenceType
		interval int
		from     string
		want     string
	}{
		// Jan 31 + 1 month lands on the last day of February, never March.
		{"jan 31 to leap feb", models.RecurrenceMonthly, 1, "2024-01-31T10:00:00Z", "2024-02-29T10:00:00Z"},
		{"jan 31 to non-leap feb", models.RecurrenceMonthly, 1, "2023-01-31T10:00:00Z", "2023-02-28T10:00:00Z"},
		{"may 31 to june 30", models.RecurrenceMonthly, 1, "2024-05-31T10:00:00Z", "2024-06-30T10:00:00Z"},
		{"multi month keeps day", models.RecurrenceMonthly, 2, "2024-01-31T10:00:00Z", "2024-03-31T10:00:00Z"},
		{"feb 29 plus year", models.RecurrenceYearly, 1, "2024-02-29T10:00:00Z", "2025-02-28T10:00:00Z"},
		{"feb 29 plus four years", models.RecurrenceYearly, 4, "2024-02-29T10:00:00Z", "2028-02-29T10:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &models.RecurrenceRule{RecurrenceType: tt.ruleType, IntervalValue: tt.interval}
			got, err := NextGenerationDate(rule, mustParse(t, tt.from))
			require.NoError(t, err)
			assert.Equal(t, mustParse(t, tt.want), got)
		})
	}
}

func TestNextGenerationDate_InvalidRules(t *testing.T) {
	from := mustParse(t, "2024-01-01T09:00:00Z")

	_, err := NextGenerationDate(dailyRule(0), from)
	assert.ErrorIs(t, err, ErrNonPositiveInterval)

	_, err = NextGenerationDate(dailyRule(-2), from)
	assert.ErrorIs(t, err, ErrNonPositiveInterval)

	_, err = NextGenerationDate(&models.RecurrenceRule{RecurrenceType: "hourly", IntervalValue: 1}, from)
	assert.ErrorIs(t, err, ErrUnknownRecurrenceType)
}

func TestIsGenerationDue_FirstInstanceIsUnconditional(t *testing.T) {
	now := mustParse(t, "2024-01-01T00:00:00Z")

	for _, interval := range []int{1, 7, 365} {
		due, err := IsGenerationDue(dailyRule(interval), NeverGenerated(), now)
		require.NoError(t, err)
		assert.True(t, due, "interval %d", interval)
	}
}

func TestIsGenerationDue_DailyBoundary(t *testing.T) {
	rule := dailyRule(2)
	last := mustParse(t, "2024-01-01T09:00:00Z")
	state := GeneratedAt(last)

	tests := []struct {
		now  string
		want bool
	}{
		{"2024-01-01T09:00:01Z", false},
		{"2024-01-02T09:00:00Z", false},
		{"2024-01-03T08:59:59Z", false},
		{"2024-01-03T09:00:00Z", true}, // boundary itself is due
		{"2024-01-05T00:00:00Z", true},
	}

	for _, tt := range tests {
		due, err := IsGenerationDue(rule, state, mustParse(t, tt.now))
		require.NoError(t, err)
		assert.Equal(t, tt.want, due, "now=%s", tt.now)
	}
}

func TestIsGenerationDue_CountEndCondition(t *testing.T) {
	rule := dailyRule(1)
	rule.EndType = models.RecurrenceEndCount
	rule.MaxOccurrences = intPtr(3)
	rule.CurrentCount = 3

	// Exhausted rules stay exhausted no matter how far now advances.
	for _, now := range []string{"2024-01-02T00:00:00Z", "2030-01-01T00:00:00Z"} {
		due, err := IsGenerationDue(rule, GeneratedAt(mustParse(t, "2024-01-01T00:00:00Z")), mustParse(t, now))
		require.NoError(t, err)
		assert.False(t, due)
	}

	// Even the first instance is blocked once the count is met.
	due, err := IsGenerationDue(rule, NeverGenerated(), mustParse(t, "2024-01-02T00:00:00Z"))
	require.NoError(t, err)
	assert.False(t, due)

	rule.CurrentCount = 2
	due, err = IsGenerationDue(rule, GeneratedAt(mustParse(t, "2024-01-01T00:00:00Z")), mustParse(t, "2024-01-02T00:00:00Z"))
	require.NoError(t, err)
	assert.True(t, due)
}

func TestIsGenerationDue_DateEndCondition(t *testing.T) {
	rule := dailyRule(1)
	rule.EndType = models.RecurrenceEndDate
	rule.EndDate = timePtr(mustParse(t, "2024-06-01T00:00:00Z"))
	state := GeneratedAt(mustParse(t, "2024-05-30T00:00:00Z"))

	due, err := IsGenerationDue(rule, state, mustParse(t, "2024-05-31T00:00:00Z"))
	require.NoError(t, err)
	assert.True(t, due)

	// The end date itself is still inside the rule's lifetime.
	due, err = IsGenerationDue(rule, state, mustParse(t, "2024-06-01T00:00:00Z"))
	require.NoError(t, err)
	assert.True(t, due)

	due, err = IsGenerationDue(rule, state, mustParse(t, "2024-06-01T00:00:01Z"))
	require.NoError(t, err)
	assert.False(t, due)
}

func TestIsGenerationDue_NonPositiveInterval(t *testing.T) {
	due, err := IsGenerationDue(dailyRule(0), NeverGenerated(), mustParse(t, "2024-01-01T00:00:00Z"))
	assert.ErrorIs(t, err, ErrNonPositiveInterval)
	assert.False(t, due)
}

func TestComputeInstanceWindow_NoStart(t *testing.T) {
	window, err := ComputeInstanceWindow(&models.Task{}, dailyRule(1), NeverGenerated())
	require.NoError(t, err)
	assert.Nil(t, window.Start)
	assert.Nil(t, window.Deadline)
}

func TestComputeInstanceWindow_FirstInstanceStepsFromTemplateStart(t *testing.T) {
	template := &models.Task{
		StartDatetime:    timePtr(mustParse(t, "2024-01-01T09:00:00Z")),
		DeadlineDatetime: timePtr(mustParse(t, "2024-01-01T17:00:00Z")),
	}

	window, err := ComputeInstanceWindow(template, dailyRule(2), NeverGenerated())
	require.NoError(t, err)
	require.NotNil(t, window.Start)
	require.NotNil(t, window.Deadline)
	assert.Equal(t, mustParse(t, "2024-01-03T09:00:00Z"), *window.Start)
	assert.Equal(t, mustParse(t, "2024-01-03T17:00:00Z"), *window.Deadline)
}

func TestComputeInstanceWindow_StepsFromLastGenerated(t *testing.T) {
	template := &models.Task{
		StartDatetime:    timePtr(mustParse(t, "2024-01-01T09:00:00Z")),
		DeadlineDatetime: timePtr(mustParse(t, "2024-01-01T17:00:00Z")),
	}
	state := GeneratedAt(mustParse(t, "2024-01-05T11:30:00Z"))

	window, err := ComputeInstanceWindow(template, dailyRule(2), state)
	require.NoError(t, err)
	require.NotNil(t, window.Start)

	// The date steps from the last generation but the time of day always
	// matches the template's original start.
	assert.Equal(t, mustParse(t, "2024-01-07T09:00:00Z"), *window.Start)
	assert.Equal(t, mustParse(t, "2024-01-07T17:00:00Z"), *window.Deadline)
}

func TestComputeInstanceWindow_PreservesDeadlineDuration(t *testing.T) {
	tests := []struct {
		name     string
		deadline string
	}{
		{"multi day span", "2024-01-03T12:15:30Z"},
		{"zero duration", "2024-01-01T09:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := mustParse(t, "2024-01-01T09:00:00Z")
			deadline := mustParse(t, tt.deadline)
			template := &models.Task{
				StartDatetime:    &start,
				DeadlineDatetime: &deadline,
			}

			window, err := ComputeInstanceWindow(template, dailyRule(1), NeverGenerated())
			require.NoError(t, err)
			require.NotNil(t, window.Start)
			require.NotNil(t, window.Deadline)
			assert.Equal(t, deadline.Sub(start), window.Deadline.Sub(*window.Start))
		})
	}
}

func TestComputeInstanceWindow_NoDeadline(t *testing.T) {
	template := &models.Task{
		StartDatetime: timePtr(mustParse(t, "2024-01-01T09:00:00Z")),
	}

	window, err := ComputeInstanceWindow(template, dailyRule(1), NeverGenerated())
	require.NoError(t, err)
	require.NotNil(t, window.Start)
	assert.Nil(t, window.Deadline)
}

func TestStateOf(t *testing.T) {
	rule := dailyRule(1)

	state := StateOf(rule)
	_, generated := state.LastGenerated()
	assert.False(t, generated)

	at := mustParse(t, "2024-03-01T08:00:00Z")
	rule.LastGenerated = &at
	state = StateOf(rule)
	last, generated := state.LastGenerated()
	assert.True(t, generated)
	assert.Equal(t, at, last)
}
