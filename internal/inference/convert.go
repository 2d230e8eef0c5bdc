package inference

import (
	"strconv"
	"strings"
	"time"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
)

// ToScalar converts a raw cell value to a model.Scalar under the given
// column type. An empty (after cleanup) cell always converts to
// model.Null, regardless of t. A value that fails to parse under t falls
// back to a string scalar holding the cleaned raw text, rather than
// dropping the cell: persistence of the original text always wins over
// strict typing (spec §4.1 edge cases).
func ToScalar(raw string, t model.ColumnType) model.Scalar {
	s := CleanCell(raw)
	if s == "" {
		return model.Null
	}

	switch t {
	case model.ColumnInteger:
		if cleaned := cleanNumeric(s); cleaned != "" {
			if n, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
				return model.NewInt(n)
			}
		}
	case model.ColumnDecimal:
		if cleaned := cleanNumeric(s); cleaned != "" {
			if _, err := strconv.ParseFloat(cleaned, 64); err == nil {
				return model.NewDecimal(cleaned)
			}
		}
	case model.ColumnBoolean:
		if b, ok := boolTokens[strings.ToLower(s)]; ok {
			return model.NewBool(b)
		}
	case model.ColumnDateTime:
		if ts, ok := parseTimestamp(s, dateTimeLayouts); ok {
			return model.NewTimestamp(ts)
		}
	case model.ColumnDate:
		if ts, ok := parseDate(s); ok {
			return model.NewTimestamp(ts)
		}
	}
	return model.NewString(s)
}

func parseTimestamp(s string, layouts []string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseDate handles 4-digit-year layouts first (unambiguous), then
// 2-digit-year layouts with pivot-year century adjustment, matching the
// teacher's ToPgDate behavior.
func parseDate(s string) (time.Time, bool) {
	if t, ok := parseTimestamp(s, fourDigitYearLayouts); ok {
		return t, true
	}
	if t, ok := parseTimestamp(s, dateOnlyLayouts); ok {
		return t, true
	}

	pivotYear := time.Now().Year() + twoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() > pivotYear {
			t = t.AddDate(-100, 0, 0)
		}
		return t, true
	}
	return time.Time{}, false
}
