package schedule

import "time"

// staleAfterWeeks is how many whole weeks an item may drift past its creation
// before it counts as neglected.
const staleAfterWeeks = 4

// IsStale reports whether a scheduled item has drifted too far past its
// creation time: more than four whole weeks between creation and the assigned
// visual date. Pinned items are never stale; their date is a deliberate
// choice, not queue drift.
func IsStale(item Item, visualDate time.Time) bool {
	if item.Kind == KindPinned || item.CreatedAt.IsZero() {
		return false
	}
	return wholeWeeks(item.CreatedAt, visualDate) > staleAfterWeeks
}
