package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
)

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestDueTodayAndOverdue(t *testing.T) {
	now := time.Date(2024, time.March, 1, 14, 30, 0, 0, time.UTC)

	dueNow := time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)
	past := time.Date(2024, time.February, 28, 9, 0, 0, 0, time.UTC)
	future := time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

	touchpoints := []model.Touchpoint{
		{ID: "tp-due-today", ScheduledAt: timePtr(dueNow)},
		{ID: "tp-overdue", ScheduledAt: timePtr(past)},
		{ID: "tp-future", ScheduledAt: timePtr(future)},
		{ID: "tp-completed", ScheduledAt: timePtr(past), CompletedAt: timePtr(now), Outcome: "connected"},
		{ID: "tp-unscheduled"},
	}

	due := DueToday(touchpoints, now)
	require.Len(t, due, 1)
	assert.Equal(t, "tp-due-today", due[0].ID)

	overdue := Overdue(touchpoints, now)
	require.Len(t, overdue, 1)
	assert.Equal(t, "tp-overdue", overdue[0].ID)
}

func TestDueToday_TimeOfDayIsIgnored(t *testing.T) {
	// Due-date comparison strips time-of-day: a touchpoint at 09:00 matches a
	// "now" late in the evening of the same date.
	now := time.Date(2024, time.March, 1, 23, 59, 59, 0, time.UTC)
	tp := model.Touchpoint{ID: "tp-1", ScheduledAt: timePtr(time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC))}

	due := DueToday([]model.Touchpoint{tp}, now)
	require.Len(t, due, 1)

	assert.Empty(t, Overdue([]model.Touchpoint{tp}, now))
}

func TestDueToday_ComparedInNowLocation(t *testing.T) {
	// The calendar date is read in now's location, so a late-evening UTC
	// touchpoint counts as due on the next local day east of Greenwich.
	jakarta := time.FixedZone("WIB", 7*3600)
	now := time.Date(2024, time.March, 2, 10, 0, 0, 0, jakarta)
	tp := model.Touchpoint{ID: "tp-1", ScheduledAt: timePtr(time.Date(2024, time.March, 1, 20, 0, 0, 0, time.UTC))}

	due := DueToday([]model.Touchpoint{tp}, now)
	require.Len(t, due, 1)
	assert.Empty(t, Overdue([]model.Touchpoint{tp}, now))
}

func TestDueToday_SingleNowEvaluation(t *testing.T) {
	// The reference date is fixed per call: every item is classified against
	// the same "today", so one invocation can never split a uniform batch.
	now := time.Date(2024, time.June, 10, 11, 0, 0, 0, time.UTC)
	scheduled := time.Date(2024, time.June, 10, 9, 0, 0, 0, time.UTC)

	touchpoints := make([]model.Touchpoint, 50)
	for i := range touchpoints {
		touchpoints[i] = model.Touchpoint{ID: "tp", ScheduledAt: timePtr(scheduled)}
	}

	assert.Len(t, DueToday(touchpoints, now), len(touchpoints))
	assert.Empty(t, Overdue(touchpoints, now))
}

func TestOverdue_CompletedTouchpointsExcluded(t *testing.T) {
	now := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	past := time.Date(2024, time.February, 26, 9, 0, 0, 0, time.UTC)

	touchpoints := []model.Touchpoint{
		{ID: "tp-open", ScheduledAt: timePtr(past)},
		{ID: "tp-done", ScheduledAt: timePtr(past), CompletedAt: timePtr(past.Add(2 * time.Hour))},
	}

	overdue := Overdue(touchpoints, now)
	require.Len(t, overdue, 1)
	assert.Equal(t, "tp-open", overdue[0].ID)
}
