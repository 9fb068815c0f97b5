package copilot

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// Violation is one field-level problem found during validation.
type Violation struct {
	Path       string `json:"path"`
	Constraint string `json:"constraint"`
	Observed   string `json:"observed,omitempty"`
}

func (v Violation) String() string {
	if v.Observed == "" {
		return fmt.Sprintf("%s: %s", v.Path, v.Constraint)
	}
	return fmt.Sprintf("%s: %s (got %s)", v.Path, v.Constraint, v.Observed)
}

// ValidationResult is the outcome of classifying a raw payload. Either
// Revision is set and Violations is empty, or the payload failed: a payload
// matching no known revision sets Unrecognized and carries a single
// violation, while a recognized payload with bad fields carries one
// violation per problem.
type ValidationResult struct {
	Revision     SchemaRevision `json:"revision,omitempty"`
	Unrecognized bool           `json:"unrecognized,omitempty"`
	Violations   []Violation    `json:"violations,omitempty"`
}

// OK reports whether the payload may proceed to normalization.
func (r ValidationResult) OK() bool {
	return !r.Unrecognized && len(r.Violations) == 0
}

func unrecognized(reason string) ValidationResult {
	return ValidationResult{
		Unrecognized: true,
		Violations:   []Violation{{Path: "$", Constraint: reason}},
	}
}

// Validate classifies a raw metrics payload into one of the known schema
// revisions for the given scope and checks its fields. It is a pure function
// of its input: unknown extra fields are ignored, missing optional fields are
// fine, and a payload matching no known shape is rejected wholesale rather
// than producing a field-by-field dump.
func Validate(payload []byte, scope Scope) ValidationResult {
	if !gjson.ValidBytes(payload) {
		return unrecognized("not valid JSON")
	}
	doc := gjson.ParseBytes(payload)
	if !doc.IsArray() {
		return unrecognized("expected a JSON array of daily entries")
	}
	entries := doc.Array()
	if len(entries) == 0 {
		return unrecognized("payload contains no daily entries")
	}

	// Both revisions appear at every scope; the date key distinguishes them.
	// Scan until some entry carries one, so a single entry missing its date
	// still gets an entry-specific violation instead of wholesale rejection.
	rev, dateField := classify(entries)
	if rev == "" {
		return unrecognized("no entry has a \"date\" or a \"day\" field")
	}

	var violations []Violation
	for i, entry := range entries {
		path := fmt.Sprintf("$[%d]", i)
		if !entry.IsObject() {
			violations = append(violations, Violation{
				Path:       path,
				Constraint: "entry must be an object",
				Observed:   typeName(entry),
			})
			continue
		}
		violations = append(violations, checkDate(entry, path, dateField)...)
		switch rev {
		case RevisionUsage:
			violations = append(violations, checkUsageEntry(entry, path)...)
		case RevisionMetrics:
			violations = append(violations, checkMetricsEntry(entry, path)...)
		}
	}

	if len(violations) > 0 {
		return ValidationResult{Violations: violations}
	}
	return ValidationResult{Revision: rev}
}

func classify(entries []gjson.Result) (SchemaRevision, string) {
	for _, entry := range entries {
		switch {
		case entry.Get("date").Exists():
			return RevisionMetrics, "date"
		case entry.Get("day").Exists():
			return RevisionUsage, "day"
		}
	}
	return "", ""
}

func checkDate(entry gjson.Result, path, field string) []Violation {
	v := entry.Get(field)
	if !v.Exists() {
		return []Violation{{Path: path + "." + field, Constraint: "required field is missing"}}
	}
	if v.Type != gjson.String {
		return []Violation{{
			Path:       path + "." + field,
			Constraint: "must be a string calendar date",
			Observed:   typeName(v),
		}}
	}
	if _, err := parseDay(v.Str); err != nil {
		return []Violation{{
			Path:       path + "." + field,
			Constraint: "must parse as a calendar date",
			Observed:   v.Str,
		}}
	}
	return nil
}

// checkUsageEntry validates one deprecated usage-API entry: flat required
// totals plus an optional language×editor breakdown array.
func checkUsageEntry(entry gjson.Result, path string) []Violation {
	var violations []Violation
	for _, field := range []string{
		"total_suggestions_count",
		"total_acceptances_count",
		"total_active_users",
	} {
		violations = append(violations, checkCount(entry, path, field, true)...)
	}

	breakdown := entry.Get("breakdown")
	if !breakdown.Exists() {
		return violations
	}
	if !breakdown.IsArray() {
		return append(violations, Violation{
			Path:       path + ".breakdown",
			Constraint: "must be an array",
			Observed:   typeName(breakdown),
		})
	}
	for i, row := range breakdown.Array() {
		rowPath := fmt.Sprintf("%s.breakdown[%d]", path, i)
		for _, field := range []string{"language", "editor"} {
			v := row.Get(field)
			switch {
			case !v.Exists():
				violations = append(violations, Violation{
					Path:       rowPath + "." + field,
					Constraint: "required field is missing",
				})
			case v.Type != gjson.String:
				violations = append(violations, Violation{
					Path:       rowPath + "." + field,
					Constraint: "must be a string",
					Observed:   typeName(v),
				})
			}
		}
		violations = append(violations, checkCount(row, rowPath, "suggestions_count", false)...)
		violations = append(violations, checkCount(row, rowPath, "acceptances_count", false)...)
		violations = append(violations, checkCount(row, rowPath, "active_users", false)...)
	}
	return violations
}

// checkMetricsEntry validates one current metrics-API entry: active-user
// totals plus the optional nested editors/models/languages completion tree.
func checkMetricsEntry(entry gjson.Result, path string) []Violation {
	violations := checkCount(entry, path, "total_active_users", true)
	violations = append(violations, checkCount(entry, path, "total_engaged_users", false)...)

	completions := entry.Get("copilot_ide_code_completions")
	if !completions.Exists() || completions.Type == gjson.Null {
		return violations
	}
	if !completions.IsObject() {
		return append(violations, Violation{
			Path:       path + ".copilot_ide_code_completions",
			Constraint: "must be an object",
			Observed:   typeName(completions),
		})
	}

	editorsPath := path + ".copilot_ide_code_completions.editors"
	violations = append(violations, checkNamedArray(completions.Get("editors"), editorsPath,
		func(editor gjson.Result, editorPath string) []Violation {
			return checkNamedArray(editor.Get("models"), editorPath+".models",
				func(model gjson.Result, modelPath string) []Violation {
					return checkNamedArray(model.Get("languages"), modelPath+".languages",
						func(lang gjson.Result, langPath string) []Violation {
							vs := checkCount(lang, langPath, "total_code_suggestions", false)
							return append(vs, checkCount(lang, langPath, "total_code_acceptances", false)...)
						})
				})
		})...)
	return violations
}

// checkNamedArray validates an optional array of {"name": ...} objects:
// every element needs a string name, names must be unique within the array,
// and check runs per element.
func checkNamedArray(arr gjson.Result, path string, check func(gjson.Result, string) []Violation) []Violation {
	if !arr.Exists() || arr.Type == gjson.Null {
		return nil
	}
	if !arr.IsArray() {
		return []Violation{{Path: path, Constraint: "must be an array", Observed: typeName(arr)}}
	}

	var violations []Violation
	seen := map[string]bool{}
	for i, item := range arr.Array() {
		itemPath := fmt.Sprintf("%s[%d]", path, i)
		name := item.Get("name")
		switch {
		case !name.Exists():
			violations = append(violations, Violation{
				Path:       itemPath + ".name",
				Constraint: "required field is missing",
			})
			continue
		case name.Type != gjson.String:
			violations = append(violations, Violation{
				Path:       itemPath + ".name",
				Constraint: "must be a string",
				Observed:   typeName(name),
			})
			continue
		}
		if seen[name.Str] {
			violations = append(violations, Violation{
				Path:       itemPath + ".name",
				Constraint: "key must be unique within its dimension",
				Observed:   name.Str,
			})
		}
		seen[name.Str] = true
		violations = append(violations, check(item, itemPath)...)
	}
	return violations
}

// checkCount validates a non-negative integer field. Missing optional counts
// are fine (the normalizer defaults them to zero); missing required counts
// are violations.
func checkCount(obj gjson.Result, path, field string, required bool) []Violation {
	v := obj.Get(field)
	fieldPath := path + "." + field
	switch {
	case !v.Exists():
		if required {
			return []Violation{{Path: fieldPath, Constraint: "required field is missing"}}
		}
		return nil
	case v.Type != gjson.Number:
		return []Violation{{
			Path:       fieldPath,
			Constraint: "must be a non-negative integer",
			Observed:   typeName(v),
		}}
	case v.Num < 0 || !integralToken(v.Raw):
		return []Violation{{
			Path:       fieldPath,
			Constraint: "must be a non-negative integer",
			Observed:   v.Raw,
		}}
	}
	return nil
}

// integralToken reports whether a JSON number literal is a plain integer.
// Fractional or exponent forms (1.5, 1e3) are rejected up front: they cannot
// decode into the normalizer's integer fields, and a count the normalizer
// cannot map must surface as a data problem here, not as a conversion defect
// later.
func integralToken(raw string) bool {
	return !strings.ContainsAny(raw, ".eE")
}

func typeName(v gjson.Result) string {
	switch {
	case v.IsArray():
		return "array"
	case v.IsObject():
		return "object"
	case v.Type == gjson.String:
		return "string"
	case v.Type == gjson.Number:
		return "number"
	case v.Type == gjson.True || v.Type == gjson.False:
		return "boolean"
	case v.Type == gjson.Null:
		return "null"
	}
	return "unknown"
}

// parseDay normalizes a provider date to YYYY-MM-DD. The provider reports
// daily aggregates; any time-of-day or zone suffix is discarded.
func parseDay(s string) (string, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.Format("2006-01-02"), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.Format("2006-01-02"), nil
	}
	// Some responses carry a date with a bare time suffix.
	if i := strings.IndexAny(s, "T "); i > 0 {
		if t, err := time.Parse("2006-01-02", s[:i]); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}
	return "", fmt.Errorf("invalid calendar date %q", s)
}
