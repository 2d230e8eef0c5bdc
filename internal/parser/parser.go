// Package parser defines the pluggable parsing capability set (spec §4.2)
// and the extension registry that resolves a filename to a Parser (§4.3).
package parser

import (
	"context"
	"io"

	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
)

// Options configures a single detect/preview/parse invocation (spec §3
// ParserOptions).
type Options struct {
	Delimiter   rune
	HasHeader   bool
	SkipRows    int
	BatchSize   int
	SheetName   string
	PreviewRows int

	// ColumnTypes carries the per-column type DetectSchema already settled
	// on, keyed by column name, so ParseStream coerces each record's
	// scalars to the column's detected type instead of re-deciding per
	// cell. Populated by the engine between DetectSchema and ParseStream;
	// nil when a parser is invoked standalone (callers then get the
	// string-preserving fallback).
	ColumnTypes map[string]model.ColumnType
}

// DefaultOptions returns the §6 parser-options-surface defaults.
func DefaultOptions() Options {
	return Options{
		Delimiter:   ';',
		HasHeader:   false,
		SkipRows:    0,
		BatchSize:   1000,
		PreviewRows: 10,
	}
}

// WithDefaults fills a non-positive BatchSize or PreviewRows with the §6
// default, leaving explicitly-set fields untouched. A zero Delimiter is
// left as is for the parser to resolve (the delimited parser reads it as
// ','); DefaultOptions is where the ';' default applies.
func (o Options) WithDefaults() Options {
	d := DefaultOptions()
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.PreviewRows <= 0 {
		o.PreviewRows = d.PreviewRows
	}
	return o
}

// ParsedRow is either a successful row with column-keyed data, or a
// failure marker with a message (spec §4.2 / glossary). Parsing never
// aborts on a single malformed row: the parser emits ParsedRow{OK: false}
// and continues.
type ParsedRow struct {
	Data         model.RowData
	RowNumber    int64
	OK           bool
	ErrorMessage string
}

// DetectResult is what schema detection (C4) produces from a parser.
type DetectResult struct {
	Columns            []model.Column
	EstimatedRowCount   int64
}

// Source is the byte source a parser reads from. Every task the engine
// ever hands a parser is an in-memory upload wrapped in bytes.NewReader,
// so it is always seekable in practice (see SPEC_FULL.md §9(a)); the
// interface keeps Seek so a future on-disk source is a type-level
// possibility rather than a silent assumption.
type Source interface {
	io.Reader
	io.Seeker
}

// Parser is the capability set every format implements (spec §4.2).
type Parser interface {
	// SupportedExtensions lists the lowercase, dot-less extensions this
	// parser handles, e.g. "csv".
	SupportedExtensions() []string

	// CanHandle reports whether filename's extension matches.
	CanHandle(filename string) bool

	// DetectSchema samples source in "sampling mode": it must leave source
	// rewound to position 0 before returning (spec §4.4).
	DetectSchema(ctx context.Context, source Source, opts Options) (DetectResult, error)

	// Preview returns the first n parsed rows without mutating any job
	// state. It must also leave source rewound to position 0.
	Preview(ctx context.Context, source Source, opts Options, n int) ([]ParsedRow, error)

	// ParseStream streams ParsedRow values in parse order over the
	// returned channel. The channel is closed when the source is
	// exhausted, the context is cancelled, or an unrecoverable error
	// occurs (delivered via the returned error channel). ParseStream
	// need not rewind source (the delimited parser reads from the current
	// position); callers that already ran DetectSchema on the same source
	// get it pre-rewound.
	ParseStream(ctx context.Context, source Source, opts Options) (<-chan ParsedRow, <-chan error)
}
