package scheduler

import (
	"sort"
	"time"

	"gitlab.com/leadpilot/api/outreach-crm-service/internal/model"
)

// touchpointHourUTC is the fixed time-of-day every touchpoint is pinned to.
// The hour is a storage convention, not a scheduling signal; only the date
// component is meaningful.
const touchpointHourUTC = 9

// ScheduleTouchpoints computes concrete calendar dates for every step of an
// outreach sequence against one recipient. It is pure and deterministic: no
// clock reads, no I/O, no validation of the recipient identity. Steps are
// re-sorted by StepOrder before computation since storage order is not
// trusted. Steps sharing a StepOrder keep their input order (stable sort);
// the resolution of such ties is deliberately unspecified.
//
// Each step anchors in one of two modes: the first step, and any step without
// DaysAfterPrevious, counts DayOffset business days from the campaign start;
// a later step with DaysAfterPrevious set counts from the previous step's
// computed date instead. DaysAfterPrevious on the first step is ignored.
func ScheduleTouchpoints(recipient model.Recipient, campaignStart time.Time, steps []model.OutreachStep, data model.PersonalizationData) []model.ScheduledTouchpoint {
	sorted := make([]model.OutreachStep, len(steps))
	copy(sorted, steps)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StepOrder < sorted[j].StepOrder
	})

	touchpoints := make([]model.ScheduledTouchpoint, 0, len(sorted))
	previousDate := campaignStart
	for i, step := range sorted {
		var scheduledDate time.Time
		if i == 0 || step.DaysAfterPrevious == nil {
			scheduledDate = AddBusinessDays(campaignStart, step.DayOffset)
		} else {
			scheduledDate = AddBusinessDays(previousDate, *step.DaysAfterPrevious)
		}
		// The cursor advances on every step, regardless of which anchor
		// computed the date, and before time-of-day normalization.
		previousDate = scheduledDate

		touchpoints = append(touchpoints, model.ScheduledTouchpoint{
			Recipient:   recipient,
			Type:        step.Type,
			Subject:     ReplaceTemplateVariables(step.Name, data),
			Content:     ReplaceTemplateVariables(step.ContentLink, data),
			ScheduledAt: atScheduleHour(scheduledDate),
		})
	}
	return touchpoints
}

// atScheduleHour pins a computed date to 09:00:00 UTC on its calendar date.
func atScheduleHour(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, touchpointHourUTC, 0, 0, 0, time.UTC)
}
