package schedule

import "sort"

// GroupByWeek buckets allocated slots into calendar weeks, ordered ascending
// by week number. Each group spans the Monday–Sunday week containing the
// first slot seen for that week number, and is flagged overloaded when any
// member slot is.
func GroupByWeek(slots []Slot) []WeekGroup {
	byWeek := make(map[int]*WeekGroup)
	for _, s := range slots {
		g, ok := byWeek[s.WeekNumber]
		if !ok {
			start := MondayOf(s.VisualDate)
			g = &WeekGroup{
				WeekNumber: s.WeekNumber,
				WeekStart:  start,
				WeekEnd:    start.AddDate(0, 0, 6),
			}
			byWeek[s.WeekNumber] = g
		}
		g.Slots = append(g.Slots, s)
		g.TotalSlots++
		if s.Overloaded {
			g.Overloaded = true
		}
	}

	groups := make([]WeekGroup, 0, len(byWeek))
	for _, g := range byWeek {
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].WeekNumber < groups[j].WeekNumber
	})
	return groups
}
