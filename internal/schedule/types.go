// Package schedule implements the visual scheduling engine: given a client's
// backlog and weekly production capacity it assigns every item a calendar day,
// flags capacity overloads, detects stale items, and buckets the result into
// calendar weeks.
//
// Every function in this package is pure. Allocation is fully determined by
// (items, capacity, anchor); callers may invoke it concurrently over a
// consistent snapshot without any locking.
package schedule

import "time"

// Kind says how an item wants to be scheduled.
type Kind string

const (
	// KindFlow items are placed on the next business day with spare capacity.
	KindFlow Kind = "flow"
	// KindPinned items sit on an externally fixed calendar date.
	KindPinned Kind = "pinned"
)

// Item is the engine's read-only view of a content item.
type Item struct {
	ID   string
	Kind Kind

	// PinnedDate is the fixed calendar day for pinned items. The zero time
	// means "pinned but undated"; such items sort ahead of all dated pinned
	// items and resolve to the anchor day.
	PinnedDate time.Time

	// PriorityIndex orders flow items: lower schedules sooner. It carries no
	// meaning for pinned items.
	PriorityIndex int

	CreatedAt time.Time
}

// Capacity is a client's weekly production capacity.
type Capacity struct {
	// WeeklyItems is the number of items producible per 7-day week.
	// Must be >= 1; callers validate this before reaching the engine.
	WeeklyItems int
}

// Slot is the engine's placement decision for one item. Slots are derived
// values, recomputed on every allocation run and never persisted.
type Slot struct {
	Item       Item
	VisualDate time.Time
	Overloaded bool
	// WeekNumber is 1-based relative to the allocation anchor. Pinned dates
	// before the anchor yield week 0 or below.
	WeekNumber int
}

// Overrun reports that the forward scan hit its safety bound and force-placed
// an item. It is a diagnostic, not an error: the slot is still produced.
type Overrun struct {
	ItemID string
	Day    time.Time
	// Count is the occupancy observed on Day when the bound triggered.
	Count int
}

// WeekGroup is one calendar week of allocated slots.
type WeekGroup struct {
	WeekNumber int
	WeekStart  time.Time // Monday
	WeekEnd    time.Time // Sunday
	Slots      []Slot
	TotalSlots int
	// Overloaded is true when any slot in the week is overloaded.
	Overloaded bool
}
