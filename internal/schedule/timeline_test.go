package schedule

import (
	"testing"
	"time"

	"buste/internal/core"
)

func biweeklyDates(from time.Time, count int) []time.Time {
	dates := make([]time.Time, 0, count)
	for d := from; len(dates) < count; d = d.AddDate(0, 0, 14) {
		dates = append(dates, d)
	}
	return dates
}

func TestCalculateFundingTimeline(t *testing.T) {
	payDates := biweeklyDates(date(2026, 3, 13), 10) // last date 2026-07-17

	tests := []struct {
		name          string
		item          core.PlanningItem
		perPaycheck   float64
		wantStatus    TimelineStatus
		wantNeeded    int
		wantAvailable int
	}{
		{
			name:       "already saved target is complete",
			item:       core.PlanningItem{Type: core.ItemGoal, TargetAmount: 1000, AlreadySaved: 1000, TargetDate: "2026-06-01"},
			wantStatus: StatusComplete,
		},
		{
			name:       "saved past target is complete",
			item:       core.PlanningItem{Type: core.ItemGoal, TargetAmount: 1000, AlreadySaved: 1200, TargetDate: "2026-06-01"},
			wantStatus: StatusComplete,
		},
		{
			name:       "no deadline is ongoing",
			item:       core.PlanningItem{Type: core.ItemGoal, TargetAmount: 1000, AlreadySaved: 100},
			wantStatus: StatusOngoing,
		},
		{
			name:       "malformed deadline is ongoing",
			item:       core.PlanningItem{Type: core.ItemGoal, TargetAmount: 1000, TargetDate: "soon"},
			wantStatus: StatusOngoing,
		},
		{
			// 400 remaining at 100 per paycheck needs 4; 7 dates fall
			// before 2026-06-10.
			name:          "comfortably on track",
			item:          core.PlanningItem{Type: core.ItemGoal, TargetAmount: 500, AlreadySaved: 100, TargetDate: "2026-06-10"},
			perPaycheck:   100,
			wantStatus:    StatusOnTrack,
			wantNeeded:    4,
			wantAvailable: 7,
		},
		{
			// Needs exactly as many paychecks as remain: still on track.
			name:          "needs every remaining paycheck",
			item:          core.PlanningItem{Type: core.ItemGoal, TargetAmount: 700, TargetDate: "2026-06-10"},
			perPaycheck:   100,
			wantStatus:    StatusOnTrack,
			wantNeeded:    7,
			wantAvailable: 7,
		},
		{
			name:          "needs one more than remain",
			item:          core.PlanningItem{Type: core.ItemGoal, TargetAmount: 800, TargetDate: "2026-06-10"},
			perPaycheck:   100,
			wantStatus:    StatusBehind,
			wantNeeded:    8,
			wantAvailable: 7,
		},
		{
			name:          "zero allocation rate with a deadline is behind",
			item:          core.PlanningItem{Type: core.ItemGoal, TargetAmount: 500, TargetDate: "2026-06-10"},
			perPaycheck:   0,
			wantStatus:    StatusBehind,
			wantNeeded:    8,
			wantAvailable: 7,
		},
		{
			name:          "deadline before any pay date is behind",
			item:          core.PlanningItem{Type: core.ItemExpense, Amount: 200, DueDate: "2026-03-01"},
			perPaycheck:   100,
			wantStatus:    StatusBehind,
			wantNeeded:    2,
			wantAvailable: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := CalculateFundingTimeline(tt.item, payDates, tt.perPaycheck)
			if tl.Status != tt.wantStatus {
				t.Fatalf("Status = %s, want %s", tl.Status, tt.wantStatus)
			}
			if tl.PaychecksNeeded != tt.wantNeeded {
				t.Errorf("PaychecksNeeded = %d, want %d", tl.PaychecksNeeded, tt.wantNeeded)
			}
			if tl.AvailablePaychecks != tt.wantAvailable {
				t.Errorf("AvailablePaychecks = %d, want %d", tl.AvailablePaychecks, tt.wantAvailable)
			}
		})
	}
}

func TestTimelineUrgency(t *testing.T) {
	payDates := biweeklyDates(date(2026, 3, 13), 10)

	t.Run("behind is always exactly 100", func(t *testing.T) {
		item := core.PlanningItem{Type: core.ItemGoal, TargetAmount: 800, TargetDate: "2026-06-10"}
		if got := UrgencyScore(item, payDates, 100); got != 100 {
			t.Errorf("UrgencyScore = %v, want 100", got)
		}
	})

	t.Run("on track stays below 100 even at full schedule use", func(t *testing.T) {
		item := core.PlanningItem{Type: core.ItemGoal, TargetAmount: 700, TargetDate: "2026-06-10"}
		got := UrgencyScore(item, payDates, 100)
		if got >= 100 {
			t.Errorf("UrgencyScore = %v, want < 100 while on track", got)
		}
		if got < 90 {
			t.Errorf("UrgencyScore = %v, want near the cap when every paycheck is needed", got)
		}
	})

	t.Run("urgency grows with schedule pressure", func(t *testing.T) {
		relaxed := core.PlanningItem{Type: core.ItemGoal, TargetAmount: 200, TargetDate: "2026-06-10"}
		tight := core.PlanningItem{Type: core.ItemGoal, TargetAmount: 600, TargetDate: "2026-06-10"}
		if UrgencyScore(relaxed, payDates, 100) >= UrgencyScore(tight, payDates, 100) {
			t.Error("urgency did not increase with a tighter schedule")
		}
	})

	t.Run("complete and ongoing score zero", func(t *testing.T) {
		complete := core.PlanningItem{Type: core.ItemGoal, TargetAmount: 100, AlreadySaved: 100, TargetDate: "2026-06-10"}
		ongoing := core.PlanningItem{Type: core.ItemGoal, TargetAmount: 100}
		if got := UrgencyScore(complete, payDates, 100); got != 0 {
			t.Errorf("complete item urgency = %v, want 0", got)
		}
		if got := UrgencyScore(ongoing, payDates, 100); got != 0 {
			t.Errorf("ongoing item urgency = %v, want 0", got)
		}
	})
}

func TestTimelineRequiredAllocation(t *testing.T) {
	payDates := biweeklyDates(date(2026, 3, 13), 10)

	t.Run("spreads remaining across available paychecks", func(t *testing.T) {
		item := core.PlanningItem{Type: core.ItemGoal, TargetAmount: 700, TargetDate: "2026-06-10"}
		tl := CalculateFundingTimeline(item, payDates, 50)
		if tl.RequiredAllocation != 100 {
			t.Errorf("RequiredAllocation = %v, want 100", tl.RequiredAllocation)
		}
	})

	t.Run("without pay dates it asks for everything at once", func(t *testing.T) {
		item := core.PlanningItem{Type: core.ItemGoal, TargetAmount: 700, TargetDate: "2026-06-10"}
		tl := CalculateFundingTimeline(item, nil, 50)
		if tl.RequiredAllocation != 700 {
			t.Errorf("RequiredAllocation = %v, want 700", tl.RequiredAllocation)
		}
	})
}
