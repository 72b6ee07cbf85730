package schedule

import (
	"math"
	"time"

	"buste/internal/core"
)

const (
	// StatusComplete means the item has already saved its target.
	StatusComplete TimelineStatus = "complete"
	// StatusOnTrack means the remaining need fits in the paychecks left
	// before the deadline at the current allocation rate.
	StatusOnTrack TimelineStatus = "on-track"
	// StatusBehind means the deadline will be missed at the current rate.
	StatusBehind TimelineStatus = "behind"
	// StatusOngoing means the item has no deadline.
	StatusOngoing TimelineStatus = "ongoing"
)

type (
	// TimelineStatus is the terminal state of a funding timeline.
	TimelineStatus string

	// Timeline describes whether a planning item will be funded on
	// schedule and how urgent it is.
	Timeline struct {
		Status             TimelineStatus
		Urgency            float64 // 0-100; 100 always means behind
		RemainingNeeded    float64
		PaychecksNeeded    int
		AvailablePaychecks int
		// RequiredAllocation is the per-paycheck amount that would still
		// meet the deadline, for the shortfall message when behind.
		RequiredAllocation float64
	}
)

// CalculateFundingTimeline projects one planning item against its
// paycheck schedule. perPaycheck is the item's current allocation per
// pay date; payDates is the schedule of the paycheck funding the item.
func CalculateFundingTimeline(item core.PlanningItem, payDates []time.Time, perPaycheck float64) Timeline {
	tl := Timeline{Status: StatusOngoing}

	deadline, hasDeadline := parseDeadline(item.Deadline())
	remaining := core.ClampAmount(item.Target() - item.AlreadySaved)
	if remaining < 0 {
		remaining = 0
	}
	tl.RemainingNeeded = remaining
	if remaining <= 0 {
		tl.Status = StatusComplete
		return tl
	}
	if !hasDeadline {
		return tl
	}

	available := 0
	for _, d := range payDates {
		if !d.After(deadline) {
			available++
		}
	}
	tl.AvailablePaychecks = available

	rate := core.ClampAmount(perPaycheck)
	if rate > 0 {
		tl.PaychecksNeeded = int(math.Ceil(remaining / rate))
	} else {
		// No allocation at all can never meet a deadline.
		tl.PaychecksNeeded = available + 1
	}

	if available > 0 {
		tl.RequiredAllocation = remaining / float64(available)
	} else {
		tl.RequiredAllocation = remaining
	}

	if tl.PaychecksNeeded <= available {
		tl.Status = StatusOnTrack
		tl.Urgency = onTrackUrgency(tl.PaychecksNeeded, available)
	} else {
		tl.Status = StatusBehind
		tl.Urgency = 100
	}
	return tl
}

// UrgencyScore returns only the 0-100 urgency of an item's timeline:
// 0 when fully funded or without a deadline, 100 when behind schedule.
func UrgencyScore(item core.PlanningItem, payDates []time.Time, perPaycheck float64) float64 {
	return CalculateFundingTimeline(item, payDates, perPaycheck).Urgency
}

// onTrackUrgency scales with how much of the remaining schedule the item
// consumes, capped at 99 so that 100 unambiguously means behind.
func onTrackUrgency(needed, available int) float64 {
	if available < 1 {
		available = 1
	}
	u := 100 * float64(needed) / float64(available)
	return math.Min(u, 99)
}

func parseDeadline(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
