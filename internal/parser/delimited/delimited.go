// Package delimited implements the Parser interface (spec §4.2) for
// comma/tab/semicolon-delimited text files: csv, tsv, txt. Streaming and
// sanitization are grounded on the teacher's internal/core/streaming.go
// (via internal/parser.WrapForStreaming); header handling and row
// buffering generalize the two-phase approach in the teacher's
// processStreamingRecords (internal/core/upload.go).
package delimited

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/erisonnicodemos/QuickIngestFile/internal/inference"
	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
	"github.com/erisonnicodemos/QuickIngestFile/internal/parser"
)

// sampleRowLimit bounds how many data rows schema detection reads before
// classifying, so a multi-gigabyte file detects its schema in bounded time.
const sampleRowLimit = 100

// Parser handles csv, tsv, and txt delimited text.
type Parser struct{}

// New returns the delimited text Parser.
func New() *Parser { return &Parser{} }

func (p *Parser) SupportedExtensions() []string { return []string{"csv", "tsv", "txt"} }

func (p *Parser) CanHandle(filename string) bool {
	for _, ext := range p.SupportedExtensions() {
		if strings.HasSuffix(strings.ToLower(filename), "."+ext) {
			return true
		}
	}
	return false
}

func (p *Parser) newReader(source parser.Source, opts parser.Options) *csv.Reader {
	r := csv.NewReader(parser.WrapForStreaming(source, 0))
	r.Comma = resolveDelimiter(opts)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.ReuseRecord = true
	return r
}

func resolveDelimiter(opts parser.Options) rune {
	if opts.Delimiter == 0 {
		return ','
	}
	return opts.Delimiter
}

func (p *Parser) DetectSchema(ctx context.Context, source parser.Source, opts parser.Options) (parser.DetectResult, error) {
	defer source.Seek(0, io.SeekStart)
	opts = opts.WithDefaults()

	r := p.newReader(source, opts)
	for i := 0; i < opts.SkipRows; i++ {
		if _, err := r.Read(); err != nil {
			return parser.DetectResult{}, model.NewKindError(model.FailureSchemaDetection, "skip rows exceed file length", err)
		}
	}

	header, firstRow, err := readHeader(r, opts)
	if err != nil {
		return parser.DetectResult{}, model.NewKindError(model.FailureSchemaDetection, "reading header row", err)
	}
	if len(header) == 0 {
		return parser.DetectResult{}, model.ErrEmptyInput
	}

	samples := make([][]string, len(header))
	for i := range samples {
		samples[i] = make([]string, 0, sampleRowLimit)
	}

	rowCount := int64(0)
	if firstRow != nil {
		for i := range header {
			if i < len(firstRow) {
				samples[i] = append(samples[i], firstRow[i])
			}
		}
		rowCount++
	}
	for rowCount < sampleRowLimit {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		rowCount++
		if err != nil {
			continue
		}
		for i := range header {
			if i < len(record) {
				samples[i] = append(samples[i], record[i])
			}
		}
	}

	// Keep counting beyond the sample window so EstimatedRowCount reflects
	// the whole file, not just the sampled prefix.
	total := rowCount
	for {
		_, err := r.Read()
		if err == io.EOF {
			break
		}
		total++
	}

	columns := make([]model.Column, len(header))
	for i, name := range header {
		columns[i] = model.Column{
			Name:         name,
			Index:        i,
			DetectedType: inference.InferColumnType(samples[i]),
			DisplayName:  name,
		}
	}

	return parser.DetectResult{Columns: columns, EstimatedRowCount: total}, nil
}

func (p *Parser) Preview(ctx context.Context, source parser.Source, opts parser.Options, n int) ([]parser.ParsedRow, error) {
	defer source.Seek(0, io.SeekStart)
	opts = opts.WithDefaults()

	r := p.newReader(source, opts)
	for i := 0; i < opts.SkipRows; i++ {
		if _, err := r.Read(); err != nil {
			return nil, model.NewKindError(model.FailureSchemaDetection, "skip rows exceed file length", err)
		}
	}
	header, firstRow, err := readHeader(r, opts)
	if err != nil {
		return nil, model.NewKindError(model.FailureSchemaDetection, "reading header row", err)
	}

	// Collected in stream order first: a preview's own window is too small
	// and too early to know each column's detected type up front, so
	// records are buffered raw and coerced once the window's samples have
	// settled the types. Skipped if the caller already supplied types from
	// a prior DetectSchema.
	type rawRow struct {
		rowNum int64
		record []string
		err    error
	}
	var raw []rawRow
	var rowNum int64
	if firstRow != nil {
		rowNum++
		raw = append(raw, rawRow{rowNum: rowNum, record: firstRow})
	}
	for len(raw) < n {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		rowNum++
		raw = append(raw, rawRow{rowNum: rowNum, record: record, err: err})
	}

	types := opts.ColumnTypes
	if types == nil {
		samples := make([][]string, len(header))
		for _, rr := range raw {
			if rr.err != nil {
				continue
			}
			for i := range header {
				if i < len(rr.record) {
					samples[i] = append(samples[i], rr.record[i])
				}
			}
		}
		types = make(map[string]model.ColumnType, len(header))
		for i, name := range header {
			types[name] = inference.InferColumnType(samples[i])
		}
	}

	rows := make([]parser.ParsedRow, 0, len(raw))
	for _, rr := range raw {
		if rr.err != nil {
			rows = append(rows, parser.ParsedRow{RowNumber: rr.rowNum, OK: false, ErrorMessage: rr.err.Error()})
			continue
		}
		rows = append(rows, parser.ParsedRow{RowNumber: rr.rowNum, OK: true, Data: rowToData(header, rr.record, types)})
	}
	return rows, nil
}

func (p *Parser) ParseStream(ctx context.Context, source parser.Source, opts parser.Options) (<-chan parser.ParsedRow, <-chan error) {
	opts = opts.WithDefaults()
	out := make(chan parser.ParsedRow, opts.BatchSize)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		r := p.newReader(source, opts)
		for i := 0; i < opts.SkipRows; i++ {
			if _, err := r.Read(); err != nil {
				errc <- model.NewKindError(model.FailureSchemaDetection, "skip rows exceed file length", err)
				return
			}
		}
		header, firstRow, err := readHeader(r, opts)
		if err != nil {
			errc <- model.NewKindError(model.FailureSchemaDetection, "reading header row", err)
			return
		}
		if len(header) == 0 {
			errc <- model.ErrEmptyInput
			return
		}

		var rowNum int64
		if firstRow != nil {
			rowNum++
			select {
			case out <- parser.ParsedRow{RowNumber: rowNum, OK: true, Data: rowToData(header, firstRow, opts.ColumnTypes)}:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
		for {
			select {
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			default:
			}

			record, err := r.Read()
			if err == io.EOF {
				return
			}
			rowNum++
			if err != nil {
				select {
				case out <- parser.ParsedRow{RowNumber: rowNum, OK: false, ErrorMessage: err.Error()}:
				case <-ctx.Done():
					errc <- ctx.Err()
					return
				}
				continue
			}

			row := parser.ParsedRow{RowNumber: rowNum, OK: true, Data: rowToData(header, record, opts.ColumnTypes)}
			select {
			case out <- row:
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			}
		}
	}()

	return out, errc
}

// readHeader reads the first row of the stream. When opts.HasHeader is
// set, that row becomes the column names and is consumed. Otherwise the
// row carries data: column names are synthesized as Column1..ColumnN and
// the row itself is returned as firstRow so no caller silently drops the
// file's first record (spec §4.2 edge case: missing header).
func readHeader(r *csv.Reader, opts parser.Options) (header []string, firstRow []string, err error) {
	record, err := r.Read()
	if err != nil {
		return nil, nil, err
	}

	if opts.HasHeader {
		header = make([]string, len(record))
		for i, h := range record {
			h = inference.CleanCell(h)
			if h == "" {
				h = fmt.Sprintf("Column%d", i+1)
			}
			header[i] = h
		}
		return header, nil, nil
	}

	header = make([]string, len(record))
	firstRow = make([]string, len(record))
	copy(firstRow, record)
	for i := range header {
		header[i] = fmt.Sprintf("Column%d", i+1)
	}
	return header, firstRow, nil
}

// rowToData builds a record's scalar map. When types names the column's
// detected type it coerces each cell to that type (so a column detected as
// integer stores integers even for this particular row). Columns absent
// from types, or a nil types map from a standalone caller that never ran
// DetectSchema, fall back to the string-preserving scalar.
func rowToData(header []string, record []string, types map[string]model.ColumnType) model.RowData {
	data := make(model.RowData, len(header))
	for i, name := range header {
		if i >= len(record) {
			data[name] = model.Null
			continue
		}
		t := model.ColumnString
		if ct, ok := types[name]; ok {
			t = ct
		}
		data[name] = inference.ToScalar(record[i], t)
	}
	return data
}
