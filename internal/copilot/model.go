// Package copilot turns the raw usage payloads served by GitHub's Copilot
// metrics endpoints into a canonical per-day representation and derives
// breakdowns and seat-utilization summaries from it. The provider's payload
// shape has changed across API revisions and differs between scopes; callers
// see only the canonical model.
package copilot

import (
	"fmt"
	"time"
)

// Scope is the granularity metrics are requested at.
type Scope string

const (
	ScopeEnterprise   Scope = "enterprise"
	ScopeOrganization Scope = "organization"
	ScopeTeam         Scope = "team"
)

// ParseScope validates a scope name from config or a request.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeEnterprise, ScopeOrganization, ScopeTeam:
		return Scope(s), nil
	}
	return "", fmt.Errorf("unknown scope %q (want enterprise, organization or team)", s)
}

// SchemaRevision identifies a known shape of the provider's raw payload.
type SchemaRevision string

const (
	// RevisionUsage is the deprecated usage API: entries keyed by "day" with
	// flat total counts and a language×editor breakdown array.
	RevisionUsage SchemaRevision = "usage-2023"

	// RevisionMetrics is the current metrics API: entries keyed by "date"
	// with a nested editors/models/languages completion tree.
	RevisionMetrics SchemaRevision = "metrics-2024"
)

// DimensionCounts holds the suggestion/acceptance pair tracked per
// breakdown key.
type DimensionCounts struct {
	Suggestions int `json:"suggestions"`
	Acceptances int `json:"acceptances"`
}

// MetricsRecord is the canonical representation of one calendar day of
// Copilot usage. Dates are plain YYYY-MM-DD strings; any time-of-day or zone
// information in the source payload has been discarded. Records are value
// objects: derived views are built from copies, never by mutating a record
// in place.
type MetricsRecord struct {
	Date             string                     `json:"date"`
	TotalSuggestions int                        `json:"totalSuggestions"`
	TotalAcceptances int                        `json:"totalAcceptances"`
	ActiveUsers      int                        `json:"activeUsers"`
	Languages        map[string]DimensionCounts `json:"languageBreakdown"`
	Editors          map[string]DimensionCounts `json:"editorBreakdown"`
	Models           map[string]DimensionCounts `json:"modelBreakdown"`
}

// Dimension selects which breakdown map of a MetricsRecord to aggregate.
type Dimension string

const (
	DimensionLanguage Dimension = "language"
	DimensionEditor   Dimension = "editor"
	DimensionModel    Dimension = "model"
)

// ParseDimension validates a dimension name from a request.
func ParseDimension(s string) (Dimension, error) {
	switch Dimension(s) {
	case DimensionLanguage, DimensionEditor, DimensionModel:
		return Dimension(s), nil
	}
	return "", fmt.Errorf("unknown dimension %q (want language, editor or model)", s)
}

// BreakdownEntry is one key of an aggregated breakdown.
type BreakdownEntry struct {
	Key            string  `json:"key"`
	Suggestions    int     `json:"suggestions"`
	Acceptances    int     `json:"acceptances"`
	AcceptanceRate float64 `json:"acceptanceRate"`
}

// Breakdown is an aggregated view of a set of records grouped by one
// dimension, sorted descending by suggestions with lexicographic tie-break.
// It also carries the whole-window summary. ActiveUsers is the maximum daily
// value seen in the window: daily active-user counts are not additive.
type Breakdown struct {
	Dimension        Dimension        `json:"dimension"`
	Entries          []BreakdownEntry `json:"entries"`
	TotalSuggestions int              `json:"totalSuggestions"`
	TotalAcceptances int              `json:"totalAcceptances"`
	AcceptanceRate   float64          `json:"acceptanceRate"`
	ActiveUsers      int              `json:"activeUsers"`
}

// DateRange is an inclusive calendar-date filter. Empty bounds are open.
type DateRange struct {
	From string `json:"from,omitempty"`
	To   string `json:"to,omitempty"`
}

// Contains reports whether a canonical YYYY-MM-DD date falls in the range.
func (r DateRange) Contains(date string) bool {
	if r.From != "" && date < r.From {
		return false
	}
	if r.To != "" && date > r.To {
		return false
	}
	return true
}

// Seat is one Copilot seat assignment from the billing seats feed. A nil
// LastActivityAt means the seat has never been used.
type Seat struct {
	Login               string     `json:"login"`
	CreatedAt           time.Time  `json:"createdAt"`
	LastActivityAt      *time.Time `json:"lastActivityAt,omitempty"`
	AssignedTeam        string     `json:"assignedTeam,omitempty"`
	PendingCancellation bool       `json:"pendingCancellation"`
}

// SeatSummary is the derived utilization view over a seat list. It is
// regenerated per request and never cached by this package.
type SeatSummary struct {
	TotalSeats          int      `json:"totalSeats"`
	ActiveSeats         int      `json:"activeSeats"`
	InactiveSeats       int      `json:"inactiveSeats"`
	UtilizationRate     float64  `json:"utilizationRate"`
	PendingCancellation int      `json:"pendingCancellation"`
	Active              []Seat   `json:"active"`
	Inactive            []Seat   `json:"inactive"`
	NeverUsed           []string `json:"neverUsed"`
}
