package copilot

import (
	"sort"
	"time"
)

// AnalyzeSeats classifies seats as active or inactive against the inactivity
// threshold and computes the utilization ratio. A seat is active when it has
// recorded activity within inactivityDays of asOf; seats that have never been
// used are inactive. The reference time is always caller-supplied so the
// result is a pure function of its inputs.
func AnalyzeSeats(seats []Seat, inactivityDays int, asOf time.Time) SeatSummary {
	summary := SeatSummary{
		TotalSeats: len(seats),
		Active:     []Seat{},
		Inactive:   []Seat{},
		NeverUsed:  []string{},
	}

	threshold := time.Duration(inactivityDays) * 24 * time.Hour
	for _, seat := range seats {
		if seat.PendingCancellation {
			summary.PendingCancellation++
		}
		if seat.LastActivityAt == nil {
			summary.NeverUsed = append(summary.NeverUsed, seat.Login)
			summary.Inactive = append(summary.Inactive, seat)
			continue
		}
		if asOf.Sub(*seat.LastActivityAt) <= threshold {
			summary.Active = append(summary.Active, seat)
		} else {
			summary.Inactive = append(summary.Inactive, seat)
		}
	}

	sortSeats(summary.Active)
	sortSeats(summary.Inactive)
	sort.Strings(summary.NeverUsed)

	summary.ActiveSeats = len(summary.Active)
	summary.InactiveSeats = len(summary.Inactive)
	// No seats means zero utilization, never a division fault.
	if summary.TotalSeats > 0 {
		summary.UtilizationRate = float64(summary.ActiveSeats) / float64(summary.TotalSeats)
	}
	return summary
}

func sortSeats(seats []Seat) {
	sort.Slice(seats, func(i, j int) bool { return seats[i].Login < seats[j].Login })
}
