package scheduler

import "time"

// DefaultBatchCutoffHour is the local hour after which a new enrollment batch
// anchors to the next business day instead of today.
const DefaultBatchCutoffHour = 17

// IsBusinessDay reports whether the date falls on Monday through Friday.
func IsBusinessDay(date time.Time) bool {
	weekday := date.Weekday()
	return weekday != time.Saturday && weekday != time.Sunday
}

// AddBusinessDays advances date by exactly n days counted only among
// Monday through Friday; Saturday and Sunday are never counted and never
// landed on. n == 0 returns the input unchanged, even when it falls on a
// weekend: zero business days were requested, so no adjustment happens.
// Negative n is not supported.
func AddBusinessDays(date time.Time, n int) time.Time {
	result := date
	added := 0
	for added < n {
		result = result.AddDate(0, 0, 1)
		if IsBusinessDay(result) {
			added++
		}
	}
	return result
}

// NextBusinessDay returns the first business day strictly after date.
func NextBusinessDay(date time.Time) time.Time {
	return AddBusinessDays(date, 1)
}

// NextBatchStartDate picks the anchor date for a new enrollment cohort: now
// itself when it is a business day before the cutoff hour, otherwise the next
// business day. Callers that need date-only semantics truncate the result.
func NextBatchStartDate(now time.Time, cutoffHour int) time.Time {
	if cutoffHour <= 0 {
		cutoffHour = DefaultBatchCutoffHour
	}
	if IsBusinessDay(now) && now.Hour() < cutoffHour {
		return now
	}
	return NextBusinessDay(now)
}
