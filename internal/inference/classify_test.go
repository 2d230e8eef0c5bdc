package inference

import (
	"testing"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
)

func TestCleanCell(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "trims whitespace", input: "  hello  ", want: "hello"},
		{name: "excel formula quoting", input: `="00123"`, want: "00123"},
		{name: "leading equals only", input: "=SUM(A1)", want: "SUM(A1)"},
		{name: "surrounding double quotes", input: `"value"`, want: "value"},
		{name: "surrounding single quotes", input: "'value'", want: "value"},
		{name: "empty string", input: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanCell(tt.input); got != tt.want {
				t.Errorf("CleanCell(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  model.ColumnType
	}{
		{name: "empty is unknown", input: "", want: model.ColumnUnknown},
		{name: "whitespace only is unknown", input: "   ", want: model.ColumnUnknown},
		{name: "plain integer", input: "123", want: model.ColumnInteger},
		{name: "negative integer", input: "-456", want: model.ColumnInteger},
		{name: "currency integer", input: "$1,234", want: model.ColumnInteger},
		{name: "decimal", input: "123.45", want: model.ColumnDecimal},
		{name: "currency decimal", input: "$1,234.56", want: model.ColumnDecimal},
		{name: "accounting negative", input: "(99.50)", want: model.ColumnDecimal},
		{name: "bool true token", input: "true", want: model.ColumnBoolean},
		{name: "bool yes token", input: "Yes", want: model.ColumnBoolean},
		{name: "iso datetime", input: "2024-01-02T15:04:05Z", want: model.ColumnDateTime},
		{name: "space separated datetime", input: "2024-01-02 15:04:05", want: model.ColumnDateTime},
		{name: "iso date", input: "2024-01-02", want: model.ColumnDate},
		{name: "slash date", input: "01/02/2024", want: model.ColumnDate},
		{name: "two digit year date", input: "01/02/24", want: model.ColumnDate},
		{name: "plain string", input: "hello world", want: model.ColumnString},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.input); got != tt.want {
				t.Errorf("Classify(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestInferColumnType(t *testing.T) {
	tests := []struct {
		name    string
		samples []string
		want    model.ColumnType
	}{
		{
			name:    "all integers",
			samples: []string{"1", "2", "3", "4"},
			want:    model.ColumnInteger,
		},
		{
			name:    "all empty is string",
			samples: []string{"", "", ""},
			want:    model.ColumnString,
		},
		{
			name:    "no samples is string",
			samples: nil,
			want:    model.ColumnString,
		},
		{
			name:    "mostly integers with a few blanks stays integer",
			samples: []string{"1", "2", "3", "4", "", ""},
			want:    model.ColumnInteger,
		},
		{
			name:    "below 80 percent share falls back to string",
			samples: []string{"1", "2", "hello", "world", "foo"},
			want:    model.ColumnString,
		},
		{
			name:    "small sample tie falls below threshold to string",
			samples: []string{"1", "2.5"},
			want:    model.ColumnString,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InferColumnType(tt.samples); got != tt.want {
				t.Errorf("InferColumnType(%v) = %v, want %v", tt.samples, got, tt.want)
			}
		})
	}
}
