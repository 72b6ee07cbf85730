// Package schedule provides the read-side projections of the planning
// views: future paycheck dates and funding timelines. Everything here is
// pure and safe to call repeatedly.
//
// This file implements the Strategy Pattern for paycheck date stepping.
// Each frequency has its own stepper that encapsulates how to advance
// from one pay date to the next.
package schedule

import (
	"fmt"
	"time"

	"buste/internal/core"
)

// DateStepper is the strategy interface for advancing a pay date by one
// frequency interval.
type DateStepper interface {
	// Next returns the pay date following t.
	Next(t time.Time) time.Time
}

// WeeklyStepper advances by 7 days.
type WeeklyStepper struct{}

func (WeeklyStepper) Next(t time.Time) time.Time { return t.AddDate(0, 0, 7) }

// BiweeklyStepper advances by 14 days.
type BiweeklyStepper struct{}

func (BiweeklyStepper) Next(t time.Time) time.Time { return t.AddDate(0, 0, 14) }

// SemimonthlyStepper advances to the next of the 1st or 15th of a month.
type SemimonthlyStepper struct{}

func (SemimonthlyStepper) Next(t time.Time) time.Time {
	switch {
	case t.Day() < 15:
		return time.Date(t.Year(), t.Month(), 15, 0, 0, 0, 0, t.Location())
	default:
		return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, t.Location())
	}
}

// MonthlyStepper advances to the same day next month, clamped to the
// last day when the next month is shorter.
type MonthlyStepper struct{}

func (MonthlyStepper) Next(t time.Time) time.Time {
	day := t.Day()
	lastDay := time.Date(t.Year(), t.Month()+2, 0, 0, 0, 0, 0, t.Location()).Day()
	if day > lastDay {
		day = lastDay
	}
	return time.Date(t.Year(), t.Month()+1, day, 0, 0, 0, 0, t.Location())
}

// dateSteppers maps frequencies to their steppers. The registry enables
// O(1) lookup and extension for new frequency types.
var dateSteppers = map[core.Frequency]DateStepper{
	core.Weekly:      WeeklyStepper{},
	core.Biweekly:    BiweeklyStepper{},
	core.Semimonthly: SemimonthlyStepper{},
	core.Monthly:     MonthlyStepper{},
}

// GetDateStepper returns the stepper for a frequency.
func GetDateStepper(frequency core.Frequency) (DateStepper, error) {
	stepper, ok := dateSteppers[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown frequency: %s", frequency)
	}
	return stepper, nil
}

// RegisterDateStepper registers a custom stepper for a new frequency.
func RegisterDateStepper(frequency core.Frequency, stepper DateStepper) {
	dateSteppers[frequency] = stepper
}

// PaycheckDates produces the next count pay dates for a paycheck, as a
// pure function of its start date and frequency. The anchor is rolled
// forward to the first occurrence on or after now; a start date that
// fails to parse degrades to now itself rather than failing.
func PaycheckDates(p core.Paycheck, count int, now time.Time) []time.Time {
	if count <= 0 {
		return nil
	}
	stepper, err := GetDateStepper(p.Frequency)
	if err != nil {
		return nil
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	anchor := today
	if t, err := time.Parse("2006-01-02", p.StartDate); err == nil {
		anchor = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, now.Location())
	}
	for anchor.Before(today) {
		anchor = stepper.Next(anchor)
	}

	dates := make([]time.Time, 0, count)
	for d := anchor; len(dates) < count; d = stepper.Next(d) {
		dates = append(dates, d)
	}
	return dates
}
