package copilot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seatActiveAt(login string, last time.Time) Seat {
	return Seat{Login: login, LastActivityAt: &last}
}

func TestAnalyzeSeats_ThresholdClassification(t *testing.T) {
	asOf := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	seats := []Seat{
		seatActiveAt("recent", time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)),
		seatActiveAt("stale", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		{Login: "never"},
	}

	summary := AnalyzeSeats(seats, 14, asOf)

	assert.Equal(t, 3, summary.TotalSeats)
	assert.Equal(t, 1, summary.ActiveSeats)
	assert.Equal(t, 2, summary.InactiveSeats)
	require.Len(t, summary.Active, 1)
	assert.Equal(t, "recent", summary.Active[0].Login)
	assert.Equal(t, []string{"never"}, summary.NeverUsed)
	assert.InDelta(t, 1.0/3.0, summary.UtilizationRate, 0.001)
}

func TestAnalyzeSeats_ExactThresholdIsActive(t *testing.T) {
	asOf := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	seats := []Seat{
		seatActiveAt("edge", asOf.AddDate(0, 0, -14)),
		seatActiveAt("past-edge", asOf.AddDate(0, 0, -14).Add(-time.Second)),
	}

	summary := AnalyzeSeats(seats, 14, asOf)
	require.Len(t, summary.Active, 1)
	assert.Equal(t, "edge", summary.Active[0].Login)
	require.Len(t, summary.Inactive, 1)
	assert.Equal(t, "past-edge", summary.Inactive[0].Login)
}

func TestAnalyzeSeats_NoSeats(t *testing.T) {
	summary := AnalyzeSeats(nil, 14, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC))
	assert.Zero(t, summary.TotalSeats)
	assert.Zero(t, summary.UtilizationRate)
	assert.Empty(t, summary.Active)
	assert.Empty(t, summary.Inactive)
	assert.NotNil(t, summary.Active)
	assert.NotNil(t, summary.Inactive)
}

func TestAnalyzeSeats_PendingCancellationFlaggedSeparately(t *testing.T) {
	asOf := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	pending := seatActiveAt("leaving", asOf.AddDate(0, 0, -1))
	pending.PendingCancellation = true
	seats := []Seat{
		pending,
		{Login: "idle", PendingCancellation: true},
		seatActiveAt("staying", asOf.AddDate(0, 0, -2)),
	}

	summary := AnalyzeSeats(seats, 14, asOf)

	// Pending seats stay in the totals; the count lets callers separate
	// "will be reclaimed" from genuinely inactive.
	assert.Equal(t, 3, summary.TotalSeats)
	assert.Equal(t, 2, summary.PendingCancellation)
	assert.Equal(t, 2, summary.ActiveSeats)
}

func TestAnalyzeSeats_DeterministicOrdering(t *testing.T) {
	asOf := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	seats := []Seat{
		seatActiveAt("zed", asOf),
		seatActiveAt("amy", asOf),
		{Login: "mike"},
		{Login: "bob"},
	}

	summary := AnalyzeSeats(seats, 14, asOf)
	assert.Equal(t, "amy", summary.Active[0].Login)
	assert.Equal(t, "zed", summary.Active[1].Login)
	assert.Equal(t, "bob", summary.Inactive[0].Login)
	assert.Equal(t, "mike", summary.Inactive[1].Login)
	assert.Equal(t, []string{"bob", "mike"}, summary.NeverUsed)
}

func TestAnalyzeSeats_FixedAsOfIsDeterministic(t *testing.T) {
	asOf := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	seats := []Seat{seatActiveAt("a", asOf.AddDate(0, 0, -10))}

	first := AnalyzeSeats(seats, 14, asOf)
	second := AnalyzeSeats(seats, 14, asOf)
	assert.Equal(t, first, second)
}
