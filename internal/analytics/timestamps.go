package analytics

import "time"

// FactTimestamp selects the timestamp recorded on a fact row. The event's own
// provider timestamp wins; the envelope occurred-at is the fallback.
func FactTimestamp(eventTime, fallback time.Time) time.Time {
	if !eventTime.IsZero() {
		return eventTime.UTC()
	}
	return fallback.UTC()
}
