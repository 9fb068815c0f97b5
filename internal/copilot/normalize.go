package copilot

import (
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// ConversionError means a payload that passed validation still could not be
// mapped to canonical records. That is a defect in validator/normalizer
// coverage, not a data-quality problem, and is surfaced to callers as an
// internal error.
type ConversionError struct {
	Revision SchemaRevision
	Scope    Scope
	Reason   string
	Err      error
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("converting %s payload at %s scope: %s", e.Revision, e.Scope, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ConversionError) Unwrap() error { return e.Err }

// Wire shapes for the deprecated usage API. The breakdown is a flat
// language×editor cross product, so the same language repeats across rows.
type usageEntry struct {
	Day                   string     `json:"day"`
	TotalSuggestionsCount int        `json:"total_suggestions_count"`
	TotalAcceptancesCount int        `json:"total_acceptances_count"`
	TotalActiveUsers      int        `json:"total_active_users"`
	Breakdown             []usageRow `json:"breakdown"`
}

type usageRow struct {
	Language         string `json:"language"`
	Editor           string `json:"editor"`
	SuggestionsCount int    `json:"suggestions_count"`
	AcceptancesCount int    `json:"acceptances_count"`
}

// Wire shapes for the current metrics API.
type metricsEntry struct {
	Date               string              `json:"date"`
	TotalActiveUsers   int                 `json:"total_active_users"`
	IDECodeCompletions *metricsCompletions `json:"copilot_ide_code_completions"`
}

type metricsCompletions struct {
	Editors []metricsEditor `json:"editors"`
}

type metricsEditor struct {
	Name   string         `json:"name"`
	Models []metricsModel `json:"models"`
}

type metricsModel struct {
	Name      string            `json:"name"`
	Languages []metricsLanguage `json:"languages"`
}

type metricsLanguage struct {
	Name                 string `json:"name"`
	TotalCodeSuggestions int    `json:"total_code_suggestions"`
	TotalCodeAcceptances int    `json:"total_code_acceptances"`
}

// Normalizer converts validated raw payloads into canonical records. All
// knowledge of the provider's schema revisions and scope differences lives
// here; no other component sees more than one shape.
type Normalizer struct {
	scope  Scope
	logger *zap.Logger
}

func NewNormalizer(scope Scope, logger *zap.Logger) *Normalizer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Normalizer{scope: scope, logger: logger}
}

// Normalize maps a validated payload for the recognized revision onto
// canonical daily records, sorted ascending by date. Entries sharing a
// calendar date (seen in some team-scope responses) are merged by summing;
// the merge is commutative and associative, so entry order never affects the
// result. Soft anomalies are logged and never fail the conversion.
func (n *Normalizer) Normalize(payload []byte, revision SchemaRevision) ([]MetricsRecord, error) {
	var records []MetricsRecord
	var err error
	switch revision {
	case RevisionUsage:
		records, err = n.normalizeUsage(payload)
	case RevisionMetrics:
		records, err = n.normalizeMetrics(payload)
	default:
		return nil, &ConversionError{
			Revision: revision,
			Scope:    n.scope,
			Reason:   "no mapping for schema revision",
		}
	}
	if err != nil {
		return nil, err
	}
	return n.mergeByDate(records), nil
}

func (n *Normalizer) normalizeUsage(payload []byte) ([]MetricsRecord, error) {
	var entries []usageEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, &ConversionError{
			Revision: RevisionUsage,
			Scope:    n.scope,
			Reason:   "decoding daily entries",
			Err:      err,
		}
	}

	records := make([]MetricsRecord, 0, len(entries))
	for _, e := range entries {
		date, err := parseDay(e.Day)
		if err != nil {
			return nil, &ConversionError{
				Revision: RevisionUsage,
				Scope:    n.scope,
				Reason:   "entry date passed validation but failed normalization",
				Err:      err,
			}
		}

		rec := MetricsRecord{
			Date:             date,
			TotalSuggestions: e.TotalSuggestionsCount,
			TotalAcceptances: e.TotalAcceptancesCount,
			ActiveUsers:      e.TotalActiveUsers,
			Languages:        map[string]DimensionCounts{},
			Editors:          map[string]DimensionCounts{},
			// This revision has no model dimension.
			Models: map[string]DimensionCounts{},
		}
		for _, row := range e.Breakdown {
			addCounts(rec.Languages, row.Language, row.SuggestionsCount, row.AcceptancesCount)
			addCounts(rec.Editors, row.Editor, row.SuggestionsCount, row.AcceptancesCount)
		}
		records = append(records, rec)
	}
	return records, nil
}

func (n *Normalizer) normalizeMetrics(payload []byte) ([]MetricsRecord, error) {
	var entries []metricsEntry
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, &ConversionError{
			Revision: RevisionMetrics,
			Scope:    n.scope,
			Reason:   "decoding daily entries",
			Err:      err,
		}
	}

	records := make([]MetricsRecord, 0, len(entries))
	for _, e := range entries {
		date, err := parseDay(e.Date)
		if err != nil {
			return nil, &ConversionError{
				Revision: RevisionMetrics,
				Scope:    n.scope,
				Reason:   "entry date passed validation but failed normalization",
				Err:      err,
			}
		}

		rec := MetricsRecord{
			Date:        date,
			ActiveUsers: e.TotalActiveUsers,
			Languages:   map[string]DimensionCounts{},
			Editors:     map[string]DimensionCounts{},
			Models:      map[string]DimensionCounts{},
		}
		if e.IDECodeCompletions != nil {
			for _, editor := range e.IDECodeCompletions.Editors {
				for _, model := range editor.Models {
					for _, lang := range model.Languages {
						rec.TotalSuggestions += lang.TotalCodeSuggestions
						rec.TotalAcceptances += lang.TotalCodeAcceptances
						addCounts(rec.Languages, lang.Name, lang.TotalCodeSuggestions, lang.TotalCodeAcceptances)
						addCounts(rec.Editors, editor.Name, lang.TotalCodeSuggestions, lang.TotalCodeAcceptances)
						addCounts(rec.Models, model.Name, lang.TotalCodeSuggestions, lang.TotalCodeAcceptances)
					}
				}
			}
		}
		records = append(records, rec)
	}
	return records, nil
}

// mergeByDate collapses records sharing a calendar date and sorts the result
// ascending by date. It also checks the soft invariant that per-dimension
// sums stay within the daily totals; the provider has been observed to
// double-count across overlapping categories, so violations are logged, not
// rejected.
func (n *Normalizer) mergeByDate(records []MetricsRecord) []MetricsRecord {
	byDate := make(map[string]*MetricsRecord, len(records))
	dates := make([]string, 0, len(records))
	for _, rec := range records {
		existing, ok := byDate[rec.Date]
		if !ok {
			r := rec
			byDate[rec.Date] = &r
			dates = append(dates, rec.Date)
			continue
		}
		n.logger.Warn("merging duplicate date in raw payload",
			zap.String("date", rec.Date),
			zap.String("scope", string(n.scope)),
		)
		mergeInto(existing, rec)
	}
	sort.Strings(dates)

	merged := make([]MetricsRecord, 0, len(dates))
	for _, date := range dates {
		rec := *byDate[date]
		n.checkSoftInvariants(rec)
		merged = append(merged, rec)
	}
	return merged
}

func mergeInto(dst *MetricsRecord, src MetricsRecord) {
	dst.TotalSuggestions += src.TotalSuggestions
	dst.TotalAcceptances += src.TotalAcceptances
	dst.ActiveUsers += src.ActiveUsers
	for key, c := range src.Languages {
		addCounts(dst.Languages, key, c.Suggestions, c.Acceptances)
	}
	for key, c := range src.Editors {
		addCounts(dst.Editors, key, c.Suggestions, c.Acceptances)
	}
	for key, c := range src.Models {
		addCounts(dst.Models, key, c.Suggestions, c.Acceptances)
	}
}

func (n *Normalizer) checkSoftInvariants(rec MetricsRecord) {
	if rec.TotalAcceptances > rec.TotalSuggestions {
		n.logger.Warn("acceptances exceed suggestions",
			zap.String("date", rec.Date),
			zap.Int("suggestions", rec.TotalSuggestions),
			zap.Int("acceptances", rec.TotalAcceptances),
		)
	}
	for dim, m := range map[Dimension]map[string]DimensionCounts{
		DimensionLanguage: rec.Languages,
		DimensionEditor:   rec.Editors,
		DimensionModel:    rec.Models,
	} {
		sum := 0
		for _, c := range m {
			sum += c.Suggestions
		}
		if sum > rec.TotalSuggestions {
			n.logger.Warn("breakdown sum exceeds daily total",
				zap.String("date", rec.Date),
				zap.String("dimension", string(dim)),
				zap.Int("sum", sum),
				zap.Int("total", rec.TotalSuggestions),
			)
		}
	}
}

func addCounts(m map[string]DimensionCounts, key string, suggestions, acceptances int) {
	c := m[key]
	c.Suggestions += suggestions
	c.Acceptances += acceptances
	m[key] = c
}
