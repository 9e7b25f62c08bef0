package ingestion

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"runtime"
	"unicode/utf8"

	"tradeblocks/internal/domain"
)

// DefaultChunkSize is the number of rows processed between progress reports.
const DefaultChunkSize = 500

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Row is one data row keyed by canonical field name.
type Row struct {
	Index  int // 1-based data row index, header excluded
	Fields map[string]string
}

// ParseError records a data row that could not be read.
type ParseError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

func (e ParseError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Row, e.Message)
}

// ParseResult holds parsed rows and per-row errors in input order.
type ParseResult struct {
	Headers   []string
	Unmapped  []string // headers with no canonical field
	Rows      []Row
	Errors    []ParseError
	TotalRows int
}

// ProgressFunc receives the fraction of input consumed, in [0, 1].
type ProgressFunc func(fraction float64)

// Parser reads delimited text in chunks, yielding between chunks.
// The chunk size affects only scheduling and progress granularity.
type Parser struct {
	chunkSize  int
	onProgress ProgressFunc
}

// NewParser creates a parser with DefaultChunkSize.
func NewParser() *Parser {
	return &Parser{chunkSize: DefaultChunkSize}
}

// WithChunkSize sets the number of rows per chunk. Values < 1 are ignored.
func (p *Parser) WithChunkSize(n int) *Parser {
	if n > 0 {
		p.chunkSize = n
	}
	return p
}

// WithProgress sets the progress callback.
func (p *Parser) WithProgress(fn ProgressFunc) *Parser {
	p.onProgress = fn
	return p
}

// Parse reads data using mapping to name columns.
// Returns domain.ErrParseFailure when the header row is missing or maps no column.
// Cancelling ctx abandons the parse between chunks.
func (p *Parser) Parse(ctx context.Context, data []byte, mapping HeaderMapping) (*ParseResult, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: empty input", domain.ErrParseFailure)
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", domain.ErrParseFailure, err)
	}

	mapping = mapping.normalized()
	result := &ParseResult{Headers: header}
	fields := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	mapped := 0
	for i, h := range header {
		field := mapping[normalizeHeader(h)]
		if field == "" || seen[field] {
			result.Unmapped = append(result.Unmapped, h)
			continue
		}
		seen[field] = true
		fields[i] = field
		mapped++
	}
	if mapped == 0 {
		return nil, fmt.Errorf("%w: header has no recognised columns", domain.ErrParseFailure)
	}

	total := float64(len(data))
	lastProgress := 0.0
	inChunk := 0
	rowIndex := 0

	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		rowIndex++
		inChunk++

		switch {
		case err != nil:
			result.Errors = append(result.Errors, ParseError{Row: rowIndex, Message: csvErrorMessage(err)})
		case len(record) != len(header):
			result.Errors = append(result.Errors, ParseError{
				Row:     rowIndex,
				Message: fmt.Sprintf("expected %d columns, got %d", len(header), len(record)),
			})
		default:
			if msg := invalidEncoding(record); msg != "" {
				result.Errors = append(result.Errors, ParseError{Row: rowIndex, Message: msg})
				break
			}
			row := Row{Index: rowIndex, Fields: make(map[string]string, mapped)}
			for i, v := range record {
				if fields[i] != "" {
					row.Fields[fields[i]] = v
				}
			}
			result.Rows = append(result.Rows, row)
		}

		if inChunk == p.chunkSize {
			inChunk = 0
			if frac := float64(r.InputOffset()) / total; frac < 1 && frac >= lastProgress {
				lastProgress = frac
				p.report(frac)
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			runtime.Gosched()
		}
	}

	result.TotalRows = rowIndex
	p.report(1)
	return result, nil
}

func (p *Parser) report(frac float64) {
	if p.onProgress != nil {
		p.onProgress(frac)
	}
}

func invalidEncoding(record []string) string {
	for i, v := range record {
		if !utf8.ValidString(v) {
			return fmt.Sprintf("column %d is not valid UTF-8", i+1)
		}
	}
	return ""
}

func csvErrorMessage(err error) string {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		return pe.Err.Error()
	}
	return err.Error()
}
