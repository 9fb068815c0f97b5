package copilot

import "sort"

// Aggregate groups canonical records by one breakdown dimension over an
// inclusive date range (a zero range keeps every record). Output is
// deterministic: entries are sorted descending by suggestions with
// lexicographic tie-break on key, independent of map iteration order. An
// empty input yields an empty breakdown with zero totals, never a fault.
func Aggregate(records []MetricsRecord, dim Dimension, r DateRange) Breakdown {
	out := Breakdown{Dimension: dim, Entries: []BreakdownEntry{}}

	totals := map[string]DimensionCounts{}
	for _, rec := range records {
		if !r.Contains(rec.Date) {
			continue
		}
		out.TotalSuggestions += rec.TotalSuggestions
		out.TotalAcceptances += rec.TotalAcceptances
		// Daily active-user counts are not additive across days; report the
		// window maximum.
		if rec.ActiveUsers > out.ActiveUsers {
			out.ActiveUsers = rec.ActiveUsers
		}
		for key, c := range dimensionMap(rec, dim) {
			addCounts(totals, key, c.Suggestions, c.Acceptances)
		}
	}

	for key, c := range totals {
		out.Entries = append(out.Entries, BreakdownEntry{
			Key:            key,
			Suggestions:    c.Suggestions,
			Acceptances:    c.Acceptances,
			AcceptanceRate: acceptanceRate(c.Acceptances, c.Suggestions),
		})
	}
	sort.Slice(out.Entries, func(i, j int) bool {
		if out.Entries[i].Suggestions != out.Entries[j].Suggestions {
			return out.Entries[i].Suggestions > out.Entries[j].Suggestions
		}
		return out.Entries[i].Key < out.Entries[j].Key
	})

	out.AcceptanceRate = acceptanceRate(out.TotalAcceptances, out.TotalSuggestions)
	return out
}

func dimensionMap(rec MetricsRecord, dim Dimension) map[string]DimensionCounts {
	switch dim {
	case DimensionLanguage:
		return rec.Languages
	case DimensionEditor:
		return rec.Editors
	case DimensionModel:
		return rec.Models
	}
	return nil
}

// acceptanceRate is acceptances over suggestions, defined as 0 when there
// are no suggestions.
func acceptanceRate(acceptances, suggestions int) float64 {
	if suggestions == 0 {
		return 0
	}
	return float64(acceptances) / float64(suggestions)
}
