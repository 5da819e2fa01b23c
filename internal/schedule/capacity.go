package schedule

// DailyLimit derives the per-business-day item limit from a weekly capacity,
// assuming five production days per week. The result rounds up so a weekly
// capacity of 1..5 still yields one slot per day.
//
// weeklyItems must be positive; the limit is undefined otherwise.
func DailyLimit(weeklyItems int) int {
	return (weeklyItems + businessDaysPerWeek - 1) / businessDaysPerWeek
}

const businessDaysPerWeek = 5
