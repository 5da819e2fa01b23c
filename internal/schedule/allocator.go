package schedule

import (
	"sort"
	"time"
)

// overrunFactor bounds the forward scan: a candidate day whose occupancy
// exceeds DailyLimit*overrunFactor aborts the scan and force-places the item
// there. This is a safety valve against runaway loops, not scheduling policy.
const overrunFactor = 10

// Allocate assigns a visual date to every item in the backlog and returns one
// slot per input item, in processing order, together with any overrun
// diagnostics.
//
// Processing order is fixed: pinned items first, ascending by pinned date
// (undated pinned items first), then flow items ascending by priority index
// with ties broken by input order. Pinned demand is booked against a day's
// capacity before any flow item competes for it, and the scan never
// backtracks, which makes the whole run deterministic.
//
// Capacity is advisory: no item is ever refused, an over-limit placement is
// only flagged on its slot.
func Allocate(items []Item, capacity Capacity, anchor time.Time) ([]Slot, []Overrun) {
	anchor = DayOf(anchor)
	limit := DailyLimit(capacity.WeeklyItems)

	ordered := make([]Item, len(items))
	copy(ordered, items)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if (a.Kind == KindPinned) != (b.Kind == KindPinned) {
			return a.Kind == KindPinned
		}
		if a.Kind == KindPinned {
			// The zero time naturally sorts undated pinned items first.
			return a.PinnedDate.Before(b.PinnedDate)
		}
		return a.PriorityIndex < b.PriorityIndex
	})

	// Occupancy is scoped to this run: day key -> slots already booked.
	occupied := make(map[string]int, len(ordered))

	slots := make([]Slot, 0, len(ordered))
	var overruns []Overrun

	for _, item := range ordered {
		var slot Slot
		if item.Kind == KindPinned {
			slot = placePinned(item, anchor, limit, occupied)
		} else {
			var overrun *Overrun
			slot, overrun = placeFlow(item, anchor, limit, occupied)
			if overrun != nil {
				overruns = append(overruns, *overrun)
			}
		}
		occupied[DayKey(slot.VisualDate)]++
		slot.WeekNumber = wholeWeeks(anchor, slot.VisualDate) + 1
		slots = append(slots, slot)
	}

	return slots, overruns
}

// placePinned puts an item on its fixed date no matter how full the day is.
// The overload flag only records that the day was already at or over its
// limit when the item landed.
func placePinned(item Item, anchor time.Time, limit int, occupied map[string]int) Slot {
	day := DayOf(item.PinnedDate)
	if item.PinnedDate.IsZero() {
		day = anchor
	}
	return Slot{
		Item:       item,
		VisualDate: day,
		Overloaded: occupied[DayKey(day)] >= limit,
	}
}

// placeFlow scans forward from the first business day after the anchor until
// it finds a day with spare capacity, skipping weekends. A day whose
// occupancy exceeds the safety bound stops the scan and takes the item
// anyway, reported as an Overrun.
func placeFlow(item Item, anchor time.Time, limit int, occupied map[string]int) (Slot, *Overrun) {
	day := nextBusinessDay(anchor)
	for {
		count := occupied[DayKey(day)]
		if count > limit*overrunFactor {
			return Slot{Item: item, VisualDate: day, Overloaded: true},
				&Overrun{ItemID: item.ID, Day: day, Count: count}
		}
		if count < limit {
			return Slot{Item: item, VisualDate: day}, nil
		}
		day = nextBusinessDay(day)
	}
}
