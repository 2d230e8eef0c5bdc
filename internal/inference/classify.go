// Package inference classifies raw cell strings into the closed ColumnType
// set and aggregates per-cell classifications into a per-column type
// (spec §4.1). Cell cleanup and numeric/date/bool parsing are grounded
// on the teacher's internal/core/convert.go; the per-column modal
// aggregation with a tie-break rank is new, built to the spec.
package inference

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
)

// numericRegex validates a string as integer/decimal/scientific notation
// after currency and separator cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// twoDigitYearPivot: 2-digit years parsing to more than this many years in
// the future are assumed to belong to the previous century.
const twoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		"2006-01-02", "2006/01/02", "2006.01.02", "20060102",
	}
	dateTimeLayouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"01/02/2006 15:04:05",
		"01/02/2006 3:04 PM",
	}
	dateOnlyLayouts = []string{
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
	}
)

var boolTokens = map[string]bool{
	"true": true, "t": true, "yes": true, "y": true, "1": true,
	"false": false, "f": false, "no": false, "n": false, "0": false,
}

// CleanCell strips whitespace, Excel formula quoting ("=\"...\""), and
// surrounding quote characters from a raw cell value before classification.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, `="`) && strings.HasSuffix(s, `"`):
		s = s[2 : len(s)-1]
	case strings.HasPrefix(s, "="):
		s = s[1:]
	}
	return strings.Trim(s, `"'`)
}

// Classify assigns a single raw sample to one ColumnType. An empty (after
// cleanup) sample classifies as ColumnUnknown: it carries no signal either
// way and is excluded from column-level aggregation.
func Classify(raw string) model.ColumnType {
	s := CleanCell(raw)
	if s == "" {
		return model.ColumnUnknown
	}
	if isInteger(s) {
		return model.ColumnInteger
	}
	if isDecimal(s) {
		return model.ColumnDecimal
	}
	if isBool(s) {
		return model.ColumnBoolean
	}
	if isDateTime(s) {
		return model.ColumnDateTime
	}
	if isDate(s) {
		return model.ColumnDate
	}
	return model.ColumnString
}

func isInteger(s string) bool {
	cleaned := cleanNumeric(s)
	if cleaned == "" || strings.ContainsAny(cleaned, ".eE") {
		return false
	}
	_, err := strconv.ParseInt(cleaned, 10, 64)
	return err == nil
}

func isDecimal(s string) bool {
	cleaned := cleanNumeric(s)
	if cleaned == "" || !numericRegex.MatchString(cleaned) {
		return false
	}
	_, err := strconv.ParseFloat(cleaned, 64)
	return err == nil
}

// cleanNumeric strips currency symbols, thousands separators, and the
// accounting-style "(123.45)" negative convention, matching the teacher's
// ToPgNumeric cleanup exactly.
func cleanNumeric(s string) string {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, "€", "")
	s = strings.ReplaceAll(s, "£", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)
	if negative {
		s = "-" + s
	}
	if !numericRegex.MatchString(s) {
		return ""
	}
	return s
}

func isBool(s string) bool {
	_, ok := boolTokens[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

func isDateTime(s string) bool {
	for _, layout := range dateTimeLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

func isDate(s string) bool {
	for _, layout := range fourDigitYearLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	for _, layout := range dateOnlyLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	for _, layout := range twoDigitYearLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}

// InferColumnType classifies each sample and aggregates the results via
// AggregateTypes, the column-level type of a text-sampled column (spec
// §4.1).
func InferColumnType(samples []string) model.ColumnType {
	classified := make([]model.ColumnType, len(samples))
	for i, s := range samples {
		classified[i] = Classify(s)
	}
	return AggregateTypes(classified)
}

// AggregateTypes reduces a column's per-cell classifications to one
// column-level type: the modal type among non-unknown entries, provided it
// holds at least an 80% share; otherwise ColumnString. Ties on the modal
// count are broken by ColumnType.Rank (spec §4.1). A column with no
// non-unknown entries at all — including one with no entries whatsoever —
// is ColumnString, per §4.1's "zero samples ⇒ string".
func AggregateTypes(types []model.ColumnType) model.ColumnType {
	counts := make(map[model.ColumnType]int)
	total := 0
	for _, t := range types {
		if t == model.ColumnUnknown {
			continue
		}
		counts[t]++
		total++
	}
	if total == 0 {
		return model.ColumnString
	}

	var best model.ColumnType
	bestCount := -1
	for t, c := range counts {
		switch {
		case c > bestCount:
			best, bestCount = t, c
		case c == bestCount && t.Rank() < best.Rank():
			best = t
		}
	}

	if float64(bestCount)/float64(total) >= 0.8 {
		return best
	}
	return model.ColumnString
}
