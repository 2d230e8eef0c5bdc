// Package spreadsheet implements the Parser interface (spec §4.2) for
// xlsx and xls workbooks using github.com/xuri/excelize/v2, the library
// the example pack's own spreadsheet ingestors (vessel-telemetry-api,
// unicode-excel-converter, rich-crm-backend) all depend on for the same
// read-rows-off-a-sheet problem.
package spreadsheet

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/erisonnicodemos/QuickIngestFile/internal/inference"
	"github.com/erisonnicodemos/QuickIngestFile/internal/model"
	"github.com/erisonnicodemos/QuickIngestFile/internal/parser"
)

const sampleRowLimit = 100

// Parser handles xlsx and xls workbooks.
type Parser struct{}

// New returns the spreadsheet Parser.
func New() *Parser { return &Parser{} }

func (p *Parser) SupportedExtensions() []string { return []string{"xlsx", "xls"} }

func (p *Parser) CanHandle(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls")
}

func (p *Parser) open(source parser.Source, opts parser.Options) (*excelize.File, string, error) {
	if _, err := source.Seek(0, io.SeekStart); err != nil {
		return nil, "", err
	}
	f, err := excelize.OpenReader(source)
	if err != nil {
		return nil, "", model.NewKindError(model.FailureSchemaDetection, "opening workbook", err)
	}

	sheet := opts.SheetName
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			f.Close()
			return nil, "", model.ErrEmptyInput
		}
		sheet = sheets[0]
	}
	return f, sheet, nil
}

func (p *Parser) DetectSchema(ctx context.Context, source parser.Source, opts parser.Options) (parser.DetectResult, error) {
	defer source.Seek(0, io.SeekStart)
	opts = opts.WithDefaults()

	f, sheet, err := p.open(source, opts)
	if err != nil {
		return parser.DetectResult{}, err
	}
	defer f.Close()

	rows, err := readRows(f, sheet, opts)
	if err != nil {
		return parser.DetectResult{}, model.NewKindError(model.FailureSchemaDetection, "reading sheet rows", err)
	}
	if len(rows) == 0 {
		return parser.DetectResult{}, model.ErrEmptyInput
	}

	header, dataRows := splitHeader(rows, opts)
	if len(header) == 0 {
		return parser.DetectResult{}, model.ErrEmptyInput
	}

	classified := make([][]model.ColumnType, len(header))
	for i := range classified {
		classified[i] = make([]model.ColumnType, 0, sampleRowLimit)
	}
	firstDataRow := opts.SkipRows + headerOffset(opts)
	for i := range dataRows {
		if i >= sampleRowLimit {
			break
		}
		for c := range header {
			t, _ := nativeCell(f, sheet, firstDataRow+i, c)
			classified[c] = append(classified[c], t)
		}
	}

	columns := make([]model.Column, len(header))
	for i, name := range header {
		columns[i] = model.Column{
			Name:         name,
			Index:        i,
			DetectedType: inference.AggregateTypes(classified[i]),
			DisplayName:  name,
		}
	}

	return parser.DetectResult{Columns: columns, EstimatedRowCount: int64(len(dataRows))}, nil
}

// headerOffset is how many sheet rows a header consumes: 1 when one is
// present, 0 otherwise. Used to convert a data-row index (relative to the
// post-skip, post-header window) into an absolute sheet row.
func headerOffset(opts parser.Options) int {
	if opts.HasHeader {
		return 1
	}
	return 0
}

func (p *Parser) Preview(ctx context.Context, source parser.Source, opts parser.Options, n int) ([]parser.ParsedRow, error) {
	defer source.Seek(0, io.SeekStart)
	opts = opts.WithDefaults()

	f, sheet, err := p.open(source, opts)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := readRows(f, sheet, opts)
	if err != nil {
		return nil, model.NewKindError(model.FailureSchemaDetection, "reading sheet rows", err)
	}
	header, dataRows := splitHeader(rows, opts)

	firstDataRow := opts.SkipRows + headerOffset(opts)
	out := make([]parser.ParsedRow, 0, n)
	for i := range dataRows {
		if len(out) >= n {
			break
		}
		out = append(out, parser.ParsedRow{RowNumber: int64(i + 1), OK: true, Data: nativeRowToData(f, sheet, firstDataRow+i, header)})
	}
	return out, nil
}

func (p *Parser) ParseStream(ctx context.Context, source parser.Source, opts parser.Options) (<-chan parser.ParsedRow, <-chan error) {
	opts = opts.WithDefaults()
	out := make(chan parser.ParsedRow, opts.BatchSize)
	errc := make(chan error, 1)

	go func() {
		defer close(out)
		defer close(errc)

		f, sheet, err := p.open(source, opts)
		if err != nil {
			errc <- err
			return
		}
		defer f.Close()

		rows, err := f.Rows(sheet)
		if err != nil {
			errc <- model.NewKindError(model.FailureSchemaDetection, "opening sheet row iterator", err)
			return
		}
		defer rows.Close()

		sheetRow := -1
		for i := 0; i < opts.SkipRows; i++ {
			if !rows.Next() {
				errc <- model.NewKindError(model.FailureSchemaDetection, "skip rows exceed sheet length", nil)
				return
			}
			sheetRow++
		}

		var header []string
		var rowNum int64

		if !rows.Next() {
			errc <- model.ErrEmptyInput
			return
		}
		sheetRow++
		firstRow, err := rows.Columns()
		if err != nil {
			errc <- model.NewKindError(model.FailureMalformedRow, "reading header row", err)
			return
		}

		firstDataSheetRow := -1
		if opts.HasHeader {
			header = synthesizeNames(firstRow)
		} else {
			header = genericNames(len(firstRow))
			firstDataSheetRow = sheetRow
		}

		emit := func(row parser.ParsedRow) bool {
			select {
			case out <- row:
				return true
			case <-ctx.Done():
				errc <- ctx.Err()
				return false
			}
		}

		if firstDataSheetRow >= 0 {
			rowNum++
			if !emit(parser.ParsedRow{RowNumber: rowNum, OK: true, Data: nativeRowToData(f, sheet, firstDataSheetRow, header)}) {
				return
			}
		}

		for rows.Next() {
			sheetRow++
			select {
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			default:
			}

			_, err := rows.Columns()
			rowNum++
			if err != nil {
				if !emit(parser.ParsedRow{RowNumber: rowNum, OK: false, ErrorMessage: err.Error()}) {
					return
				}
				continue
			}
			if !emit(parser.ParsedRow{RowNumber: rowNum, OK: true, Data: nativeRowToData(f, sheet, sheetRow, header)}) {
				return
			}
		}
	}()

	return out, errc
}

// readRows materializes every row of sheet as [][]string, honoring
// SkipRows. Full-sheet materialization trades memory for simplicity in
// the detect/preview paths, which only ever look at a bounded prefix or
// count; ParseStream uses the streaming row iterator instead.
func readRows(f *excelize.File, sheet string, opts parser.Options) ([][]string, error) {
	all, err := f.GetRows(sheet)
	if err != nil {
		return nil, err
	}
	if opts.SkipRows > 0 && opts.SkipRows < len(all) {
		all = all[opts.SkipRows:]
	} else if opts.SkipRows >= len(all) {
		all = nil
	}
	return all, nil
}

func splitHeader(rows [][]string, opts parser.Options) (header []string, dataRows [][]string) {
	if len(rows) == 0 {
		return nil, nil
	}
	if opts.HasHeader {
		return synthesizeNames(rows[0]), rows[1:]
	}
	return genericNames(len(rows[0])), rows
}

func synthesizeNames(raw []string) []string {
	names := make([]string, len(raw))
	for i, h := range raw {
		h = inference.CleanCell(h)
		if h == "" {
			h = fmt.Sprintf("Column%d", i+1)
		}
		names[i] = h
	}
	return names
}

func genericNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("Column%d", i+1)
	}
	return names
}

// nativeRowToData builds one row's scalar map by reading each header
// column's cell directly off the workbook at (sheetRow, col), rather than
// from a pre-flattened string row.
func nativeRowToData(f *excelize.File, sheet string, sheetRow int, header []string) model.RowData {
	data := make(model.RowData, len(header))
	for c, name := range header {
		_, scalar := nativeCell(f, sheet, sheetRow, c)
		data[name] = scalar
	}
	return data
}

// nativeCell classifies and converts the cell at (row, col), both 0-based,
// using its native excelize CellType rather than re-inferring from a
// stringified value (spec §4.2: "preserves native cell types").
// Numbers always resolve to ColumnDecimal/a float scalar, per the same
// section's "numbers (emitted as floating-point)". Dates and anything
// excelize leaves as a plain string still go through the shared text
// classifier, since a formula result or shared string still needs the
// bool/datetime/date/string distinction worked out from its text.
func nativeCell(f *excelize.File, sheet string, row, col int) (model.ColumnType, model.Scalar) {
	axis, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return model.ColumnUnknown, model.Null
	}

	ct, err := f.GetCellType(sheet, axis)
	if err != nil {
		return model.ColumnUnknown, model.Null
	}

	switch ct {
	case excelize.CellTypeBool:
		v, _ := f.GetCellValue(sheet, axis)
		return model.ColumnBoolean, model.NewBool(v == "1" || strings.EqualFold(v, "TRUE"))

	case excelize.CellTypeNumber:
		raw, _ := f.GetCellValue(sheet, axis, excelize.Options{RawCellValue: true})
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return model.ColumnUnknown, model.Null
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.ColumnString, model.NewString(raw)
		}
		return model.ColumnDecimal, model.NewFloat(v)

	case excelize.CellTypeDate:
		formatted := inference.CleanCell(cellValue(f, sheet, axis))
		if formatted == "" {
			return model.ColumnUnknown, model.Null
		}
		t := inference.Classify(formatted)
		if t != model.ColumnDateTime && t != model.ColumnDate {
			t = model.ColumnString
		}
		return t, inference.ToScalar(formatted, t)

	default:
		raw := inference.CleanCell(cellValue(f, sheet, axis))
		if raw == "" {
			return model.ColumnUnknown, model.Null
		}
		t := inference.Classify(raw)
		return t, inference.ToScalar(raw, t)
	}
}

func cellValue(f *excelize.File, sheet, axis string) string {
	v, _ := f.GetCellValue(sheet, axis)
	return v
}
