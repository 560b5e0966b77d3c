package scheduler

import (
	"time"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
	"gitlab.com/leadpilot/api/outreach-crm-service/pkg/utils"
)

// DueToday returns the open touchpoints whose scheduled date, time-of-day
// stripped, equals now's calendar date in now's location. now is evaluated
// once for the whole call so results stay stable across the scan even if the
// clock rolls over mid-iteration.
func DueToday(touchpoints []model.Touchpoint, now time.Time) []model.Touchpoint {
	due := make([]model.Touchpoint, 0)
	for _, tp := range touchpoints {
		if !tp.IsOpen() {
			continue
		}
		if utils.SameDate(now, *tp.ScheduledAt) {
			due = append(due, tp)
		}
	}
	return due
}

// Overdue returns the open touchpoints whose scheduled date is strictly
// before now's calendar date.
func Overdue(touchpoints []model.Touchpoint, now time.Time) []model.Touchpoint {
	today := utils.TruncateToDate(now)
	overdue := make([]model.Touchpoint, 0)
	for _, tp := range touchpoints {
		if !tp.IsOpen() {
			continue
		}
		scheduled := utils.TruncateToDate(tp.ScheduledAt.In(now.Location()))
		if scheduled.Before(today) {
			overdue = append(overdue, tp)
		}
	}
	return overdue
}
